package controller

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/example/delivery-driver/internal/api"
	"github.com/example/delivery-driver/internal/observability"
	"github.com/example/delivery-driver/internal/state"
)

// ErrBusy means an accept or complete call for the same order is already
// in flight. Different orders race freely; the server's single-claim
// constraint is the real guard.
var ErrBusy = errors.New("controller: order action already in flight")

// Orders drives the order-list and delivery screens.
type Orders struct {
	api    *api.Client
	store  *state.Store
	nav    Navigator
	notify Notifier
	logger *slog.Logger

	mu      sync.Mutex
	loading map[string]bool
}

func NewOrders(client *api.Client, store *state.Store, nav Navigator, notify Notifier, logger *slog.Logger) *Orders {
	return &Orders{
		api:     client,
		store:   store,
		nav:     nav,
		notify:  notify,
		logger:  logger,
		loading: make(map[string]bool),
	}
}

// Accept claims the order server-first: the local status only flips to
// accepted once the backend confirms. On a claim conflict (another driver
// got it) the server message is surfaced and the order is marked rejected
// locally since it is no longer available. Any other failure leaves the
// order pending for a retry.
func (c *Orders) Accept(ctx context.Context, orderID string) error {
	if !c.begin(orderID) {
		return ErrBusy
	}
	defer c.end(orderID)

	gen := c.store.Session.Generation()
	err := c.api.Accept(ctx, orderID)
	if c.store.Session.Generation() != gen {
		// the session changed while the request was in flight, drop the
		// residual outcome
		c.logger.Info("discarding stale accept response", "order_id", orderID)
		return nil
	}
	switch {
	case err == nil:
		c.store.Orders.Accept(orderID)
		observability.OrdersAccepted.Inc()
		c.logger.Info("order accepted", "order_id", orderID)
		c.nav.GoToDelivery(orderID)
		return nil
	case api.IsConflict(err):
		if msg := api.ConflictMessage(err); msg != "" {
			c.notify.Notify(msg)
		}
		c.store.Orders.Reject(orderID)
		observability.OrdersRejected.Inc()
		c.logger.Info("order already claimed", "order_id", orderID)
		return nil
	default:
		c.logger.Warn("accept failed, order stays pending", "order_id", orderID, "error", err)
		return err
	}
}

// Reject is purely local; the server is not informed.
func (c *Orders) Reject(orderID string) {
	c.store.Orders.Reject(orderID)
	observability.OrdersRejected.Inc()
	c.logger.Info("order rejected", "order_id", orderID)
}

// Complete reports the delivery done and refreshes the balance shown on
// the settings screen.
func (c *Orders) Complete(ctx context.Context, orderID string) error {
	if !c.begin(orderID) {
		return ErrBusy
	}
	defer c.end(orderID)

	gen := c.store.Session.Generation()
	if err := c.api.Complete(ctx, orderID); err != nil {
		c.logger.Warn("complete failed", "order_id", orderID, "error", err)
		return err
	}
	if c.store.Session.Generation() != gen {
		c.logger.Info("discarding stale complete response", "order_id", orderID)
		return nil
	}
	c.store.Orders.Complete(orderID)
	c.logger.Info("order completed", "order_id", orderID)

	if balance, err := c.api.Balance(ctx); err == nil {
		if c.store.Session.Generation() == gen {
			c.store.Session.SetBalance(balance)
		}
	} else {
		c.logger.Warn("balance refresh failed", "error", err)
	}
	return nil
}

func (c *Orders) begin(orderID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loading[orderID] {
		return false
	}
	c.loading[orderID] = true
	return true
}

func (c *Orders) end(orderID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.loading, orderID)
}
