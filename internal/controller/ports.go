// Package controller holds the per-screen presentation logic: sign-in,
// sign-up, order list, delivery and settings. Controllers read the state
// container and call the API client and realtime channel; they never keep
// state of their own beyond in-flight guards.
package controller

import (
	"context"
	"log/slog"

	"github.com/example/delivery-driver/internal/realtime"
)

// Navigator abstracts screen changes so the accept flow can move to the
// delivery screen without knowing the UI.
type Navigator interface {
	GoToDelivery(orderID string)
}

// Notifier surfaces user-facing notices (claim conflicts, re-login prompts).
type Notifier interface {
	Notify(message string)
}

// Channel is a live realtime subscription as the session controller sees it.
// *realtime.Subscription satisfies it.
type Channel interface {
	Close() error
	Done() <-chan struct{}
}

// Dialer opens the order-push channel. Injected so tests can substitute a
// fake transport.
type Dialer func(ctx context.Context, wsURL, accessToken string, sink realtime.OrderSink, logger *slog.Logger) (Channel, error)

// DialRealtime is the production Dialer backed by the websocket channel.
func DialRealtime(ctx context.Context, wsURL, accessToken string, sink realtime.OrderSink, logger *slog.Logger) (Channel, error) {
	return realtime.Dial(ctx, wsURL, accessToken, sink, logger)
}
