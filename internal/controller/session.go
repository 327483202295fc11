package controller

import (
	"context"
	"log/slog"
	"sync"

	"github.com/example/delivery-driver/internal/api"
	"github.com/example/delivery-driver/internal/keystore"
	"github.com/example/delivery-driver/internal/models"
	"github.com/example/delivery-driver/internal/state"
)

// Session drives sign-in, sign-up and the settings screen, and owns the
// realtime channel lifecycle: connected only while logged in, torn down
// deterministically on logout.
type Session struct {
	api    *api.Client
	store  *state.Store
	keys   keystore.Store
	wsURL  string
	dial   Dialer
	notify Notifier
	logger *slog.Logger

	mu sync.Mutex
	ch Channel
}

func NewSession(client *api.Client, store *state.Store, keys keystore.Store, wsURL string, dial Dialer, notify Notifier, logger *slog.Logger) *Session {
	if dial == nil {
		dial = DialRealtime
	}
	return &Session{
		api:    client,
		store:  store,
		keys:   keys,
		wsURL:  wsURL,
		dial:   dial,
		notify: notify,
		logger: logger,
	}
}

// guardedSink drops pushes that arrive after logout, so a handler invoked
// on the channel's own callback timing cannot mutate a cleared session's
// order list.
type guardedSink struct {
	store *state.Store
}

func (g guardedSink) Add(o models.Order) bool {
	if !g.store.Session.LoggedIn() {
		return false
	}
	return g.store.Orders.Add(o)
}

// SignIn authenticates, persists the refresh token and brings the order
// channel up.
func (s *Session) SignIn(ctx context.Context, email, password string) error {
	data, err := s.api.Login(ctx, email, password)
	if err != nil {
		return err
	}
	s.store.Session.SetUser(data.Name, data.Email, data.AccessToken)
	if err := s.keys.Save(data.RefreshToken); err != nil {
		// the session still works for this process lifetime, the next
		// start just cannot restore silently
		s.logger.Warn("persisting refresh token failed", "error", err)
	}
	s.connect(ctx, data.AccessToken)
	s.logger.Info("signed in", "email", data.Email)
	return nil
}

func (s *Session) SignUp(ctx context.Context, name, email, password string) error {
	return s.api.SignUp(ctx, name, email, password)
}

// SignOut tears the channel down, clears secure storage and resets the
// session wholesale. An in-flight request is not cancelled; its residual
// response is discarded by the generation check.
func (s *Session) SignOut(ctx context.Context) {
	if err := s.api.Logout(ctx); err != nil {
		s.logger.Warn("logout request failed", "error", err)
	}
	s.disconnect()
	if err := s.keys.Clear(); err != nil {
		s.logger.Warn("clearing refresh token failed", "error", err)
	}
	s.store.Session.Clear()
	s.logger.Info("signed out")
}

// Bootstrap silently restores the session at process start using the
// persisted refresh token. No token means stay logged out; an expired
// token surfaces a re-login notice; any other failure is logged only.
func (s *Session) Bootstrap(ctx context.Context) {
	token, err := s.keys.Load()
	if err != nil {
		s.logger.Warn("reading refresh token failed", "error", err)
		return
	}
	if token == "" {
		return
	}
	data, err := s.api.Refresh(ctx, token)
	if err != nil {
		if api.IsExpired(err) {
			s.notify.Notify("please sign in again")
		}
		s.logger.Warn("session restore failed", "error", err)
		return
	}
	s.store.Session.SetUser(data.Name, data.Email, data.AccessToken)
	s.connect(ctx, data.AccessToken)
	s.logger.Info("session restored", "email", data.Email)
}

// Connected reports whether the realtime channel is currently up.
func (s *Session) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch == nil {
		return false
	}
	select {
	case <-s.ch.Done():
		return false
	default:
		return true
	}
}

func (s *Session) connect(ctx context.Context, accessToken string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch != nil {
		select {
		case <-s.ch.Done():
			// dead channel, replace it
		default:
			return
		}
	}
	ch, err := s.dial(ctx, s.wsURL, accessToken, guardedSink{store: s.store}, s.logger)
	if err != nil {
		s.logger.Warn("realtime dial failed", "error", err)
		return
	}
	s.ch = ch
}

func (s *Session) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ch != nil {
		_ = s.ch.Close()
		s.ch = nil
	}
}
