package state

import (
	"sync"

	"github.com/example/delivery-driver/internal/models"
)

// OrderStore keeps the currently visible orders in stable insertion order
// for list rendering. Status transitions are deliberately unguarded: the
// server's single-claim constraint is the real source of truth and local
// flips are last-write-wins.
type OrderStore struct {
	mu     sync.RWMutex
	byID   map[string]*models.Order
	idents []string
}

func NewOrderStore() *OrderStore {
	return &OrderStore{byID: make(map[string]*models.Order)}
}

// Add inserts a new pending order. A duplicate orderId is a no-op; the
// first push wins and reports false.
func (st *OrderStore) Add(o models.Order) bool {
	st.mu.Lock()
	defer st.mu.Unlock()
	if _, ok := st.byID[o.OrderID]; ok {
		return false
	}
	o.Status = models.StatusPending
	st.byID[o.OrderID] = &o
	st.idents = append(st.idents, o.OrderID)
	return true
}

// Accept marks the order accepted, no-op if unknown.
func (st *OrderStore) Accept(orderID string) { st.setStatus(orderID, models.StatusAccepted) }

// Reject marks the order rejected, no-op if unknown.
func (st *OrderStore) Reject(orderID string) { st.setStatus(orderID, models.StatusRejected) }

// Complete marks the order completed, no-op if unknown.
func (st *OrderStore) Complete(orderID string) { st.setStatus(orderID, models.StatusCompleted) }

func (st *OrderStore) setStatus(orderID string, status models.OrderStatus) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if o, ok := st.byID[orderID]; ok {
		o.Status = status
	}
}

func (st *OrderStore) Get(orderID string) (models.Order, bool) {
	st.mu.RLock()
	defer st.mu.RUnlock()
	o, ok := st.byID[orderID]
	if !ok {
		return models.Order{}, false
	}
	return *o, true
}

// List returns a copy of all orders in the order they were pushed.
func (st *OrderStore) List() []models.Order {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]models.Order, 0, len(st.idents))
	for _, id := range st.idents {
		out = append(out, *st.byID[id])
	}
	return out
}

// Prune drops orders that reached a terminal status, keeping the visible
// set bounded on long-running agents.
func (st *OrderStore) Prune() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	kept := st.idents[:0]
	removed := 0
	for _, id := range st.idents {
		switch st.byID[id].Status {
		case models.StatusRejected, models.StatusCompleted:
			delete(st.byID, id)
			removed++
		default:
			kept = append(kept, id)
		}
	}
	st.idents = kept
	return removed
}
