package realtime

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/delivery-driver/internal/logging"
	"github.com/example/delivery-driver/internal/models"
	"github.com/example/delivery-driver/internal/state"
)

var upgrader = websocket.Upgrader{}

// pushServer upgrades one connection, records the first client frame and
// pushes the given envelopes.
func pushServer(t *testing.T, push []Envelope, gotHello chan<- Envelope) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		var first Envelope
		if err := conn.ReadJSON(&first); err == nil {
			gotHello <- first
		}
		for _, env := range push {
			if err := conn.WriteJSON(env); err != nil {
				return
			}
		}
		// keep the conn open until the client hangs up
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func mustEnvelope(t *testing.T, event string, data any) Envelope {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return Envelope{Event: event, Data: raw}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestDialAnnouncesCapabilityAndForwardsOrders(t *testing.T) {
	order := models.Order{
		OrderID: "O2",
		Price:   5000,
		Start:   models.Coord{Lat: 37.5, Lon: 127.0},
		End:     models.Coord{Lat: 37.6, Lon: 127.1},
	}
	gotHello := make(chan Envelope, 1)
	srv := pushServer(t, []Envelope{
		mustEnvelope(t, "ping", "ignored"),
		mustEnvelope(t, EventOrder, order),
	}, gotHello)
	defer srv.Close()

	store := state.NewOrderStore()
	logger := logging.NewLoggerTo(io.Discard, "error")
	sub, err := Dial(context.Background(), wsURL(srv), "tok", store, logger)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer sub.Close()

	select {
	case hello := <-gotHello:
		if hello.Event != EventAcceptOrder {
			t.Fatalf("expected capability announcement, got %q", hello.Event)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no announcement frame received")
	}

	waitFor(t, func() bool {
		o, ok := store.Get("O2")
		return ok && o.Status == models.StatusPending && o.Price == 5000
	})
}

func TestCloseStopsReadLoopDeterministically(t *testing.T) {
	gotHello := make(chan Envelope, 1)
	srv := pushServer(t, nil, gotHello)
	defer srv.Close()

	store := state.NewOrderStore()
	logger := logging.NewLoggerTo(io.Discard, "error")
	sub, err := Dial(context.Background(), wsURL(srv), "tok", store, logger)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	<-gotHello

	if err := sub.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	select {
	case <-sub.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("read loop did not stop after Close")
	}
	// second Close is a no-op
	_ = sub.Close()
}

func TestBadFramesAreDroppedNotFatal(t *testing.T) {
	order := models.Order{OrderID: "good", Price: 1000}
	gotHello := make(chan Envelope, 1)
	srv := pushServer(t, []Envelope{
		{Event: EventOrder, Data: json.RawMessage(`"not an order"`)},
		{Event: EventOrder, Data: json.RawMessage(`{}`)},
		mustEnvelope(t, EventOrder, order),
	}, gotHello)
	defer srv.Close()

	store := state.NewOrderStore()
	logger := logging.NewLoggerTo(io.Discard, "error")
	sub, err := Dial(context.Background(), wsURL(srv), "tok", store, logger)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer sub.Close()

	waitFor(t, func() bool {
		_, ok := store.Get("good")
		return ok
	})
	if got := len(store.List()); got != 1 {
		t.Fatalf("expected only the valid order, got %d", got)
	}
}
