package sim

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/example/delivery-driver/internal/models"
	"github.com/example/delivery-driver/internal/realtime"
)

// driverSession is one connected driver.
type driverSession struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *driverSession) send(env realtime.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(env)
}

// Registry holds the connected driver channels and fans new orders out to
// every one of them.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*driverSession
	logger   *slog.Logger
}

func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{sessions: make(map[string]*driverSession), logger: logger}
}

func (r *Registry) Add(email string, conn *websocket.Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if old, ok := r.sessions[email]; ok {
		_ = old.conn.Close()
	}
	r.sessions[email] = &driverSession{conn: conn}
}

func (r *Registry) Remove(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, email)
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// BroadcastOrder pushes a new order to every connected driver.
func (r *Registry) BroadcastOrder(o models.Order) {
	raw, err := json.Marshal(o)
	if err != nil {
		r.logger.Error("encode order push", "error", err)
		return
	}
	env := realtime.Envelope{Event: realtime.EventOrder, Data: raw}

	r.mu.RLock()
	targets := make(map[string]*driverSession, len(r.sessions))
	for email, s := range r.sessions {
		targets[email] = s
	}
	r.mu.RUnlock()

	for email, s := range targets {
		if err := s.send(env); err != nil {
			r.logger.Warn("order push failed, dropping session", "driver", email, "error", err)
			r.Remove(email)
		}
	}
}
