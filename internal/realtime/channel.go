// Package realtime maintains the persistent order-push channel. Orders are
// pushed by the backend without polling; the client only announces that it
// is ready to take work and forwards inbound order payloads into the order
// store. Reconnection policy is the caller's concern.
package realtime

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/delivery-driver/internal/models"
	"github.com/example/delivery-driver/internal/observability"
)

// Envelope is the wire frame for both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

const (
	// EventOrder is the inbound new-order push.
	EventOrder = "order"
	// EventAcceptOrder is the outbound capability announcement sent once
	// on connect. The payload is a placeholder string.
	EventAcceptOrder = "acceptOrder"
)

// OrderSink receives pushed orders. *state.OrderStore satisfies it.
type OrderSink interface {
	Add(models.Order) bool
}

// Subscription is a cancellable handle on a live channel. Close stops the
// read loop and closes the connection; it is safe to call more than once,
// so teardown on logout cannot double-handle events after a reconnect.
type Subscription struct {
	conn  *websocket.Conn
	done  chan struct{}
	close sync.Once
}

// Done is closed when the read loop exits, whether by Close or by a
// transport error.
func (s *Subscription) Done() <-chan struct{} { return s.done }

func (s *Subscription) Close() error {
	var err error
	s.close.Do(func() {
		err = s.conn.Close()
	})
	return err
}

// Dial connects the order-push channel. Callers must only dial while
// logged in and must Close the subscription when the session ends.
func Dial(ctx context.Context, wsURL, accessToken string, sink OrderSink, logger *slog.Logger) (*Subscription, error) {
	header := http.Header{}
	if accessToken != "" {
		header.Set("Authorization", "Bearer "+accessToken)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}

	hello, _ := json.Marshal("hello")
	if err := conn.WriteJSON(Envelope{Event: EventAcceptOrder, Data: hello}); err != nil {
		conn.Close()
		return nil, err
	}

	sub := &Subscription{conn: conn, done: make(chan struct{})}
	go sub.readLoop(sink, logger)
	return sub, nil
}

func (s *Subscription) readLoop(sink OrderSink, logger *slog.Logger) {
	defer close(s.done)
	defer s.conn.Close()
	for {
		var env Envelope
		if err := s.conn.ReadJSON(&env); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("realtime channel closed", "error", err)
			}
			return
		}
		if env.Event != EventOrder {
			logger.Debug("ignoring realtime event", "event", env.Event)
			continue
		}
		var o models.Order
		if err := json.Unmarshal(env.Data, &o); err != nil || o.OrderID == "" {
			observability.OrdersDropped.Inc()
			logger.Warn("undecodable order frame", "error", err)
			continue
		}
		if sink.Add(o) {
			observability.OrdersReceived.Inc()
			logger.Info("order received", "order_id", o.OrderID, "price", o.Price)
		} else {
			observability.OrdersDropped.Inc()
			logger.Debug("duplicate order dropped", "order_id", o.OrderID)
		}
	}
}
