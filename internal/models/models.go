package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// OrderStatus is the client-side lifecycle of a delivery order.
// Transitions: pending -> accepted | rejected, accepted -> completed.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusAccepted  OrderStatus = "accepted"
	StatusRejected  OrderStatus = "rejected"
	StatusCompleted OrderStatus = "completed"
)

// Order is a delivery job: a fare and two geocoordinates, pending
// acceptance by exactly one driver.
type Order struct {
	OrderID string      `json:"orderId"`
	Price   int         `json:"price"` // currency units, never negative
	Start   Coord       `json:"start"`
	End     Coord       `json:"end"`
	Status  OrderStatus `json:"status"`
	Pushed  time.Time   `json:"pushed,omitempty"`
}

// Session is the driver identity as the client sees it. The client is
// logged in iff Email is non-empty.
type Session struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	AccessToken string `json:"-"`
	Balance     int    `json:"balance"`
}

func (s Session) LoggedIn() bool { return s.Email != "" }
