package agent

import (
	"sync"
	"time"
)

// Notice is a user-facing message the UI would have shown as an alert.
type Notice struct {
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// NoticeBoard keeps the most recent notices for the control API. It stands
// in for the mobile app's alert dialog and satisfies controller.Notifier.
type NoticeBoard struct {
	mu      sync.Mutex
	notices []Notice
	limit   int
}

func NewNoticeBoard(limit int) *NoticeBoard {
	if limit <= 0 {
		limit = 50
	}
	return &NoticeBoard{limit: limit}
}

func (b *NoticeBoard) Notify(message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, Notice{Message: message, At: time.Now()})
	if len(b.notices) > b.limit {
		b.notices = b.notices[len(b.notices)-b.limit:]
	}
}

func (b *NoticeBoard) List() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Notice, len(b.notices))
	copy(out, b.notices)
	return out
}

// DeliveryTracker records which order the driver is currently delivering;
// the accept flow's "navigate to the delivery screen" becomes setting the
// active order. Satisfies controller.Navigator.
type DeliveryTracker struct {
	mu     sync.Mutex
	active string
}

func NewDeliveryTracker() *DeliveryTracker {
	return &DeliveryTracker{}
}

func (d *DeliveryTracker) GoToDelivery(orderID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = orderID
}

func (d *DeliveryTracker) Active() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

func (d *DeliveryTracker) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.active = ""
}
