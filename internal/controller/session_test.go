package controller

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/example/delivery-driver/internal/api"
	"github.com/example/delivery-driver/internal/logging"
	"github.com/example/delivery-driver/internal/models"
	"github.com/example/delivery-driver/internal/realtime"
	"github.com/example/delivery-driver/internal/state"
)

type fakeChannel struct {
	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newFakeChannel() *fakeChannel { return &fakeChannel{done: make(chan struct{})} }

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.closed {
		f.closed = true
		close(f.done)
	}
	return nil
}

func (f *fakeChannel) Done() <-chan struct{} { return f.done }

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

type fakeDialer struct {
	mu    sync.Mutex
	calls int
	token string
	sink  realtime.OrderSink
	ch    *fakeChannel
}

func (f *fakeDialer) dial(ctx context.Context, wsURL, accessToken string, sink realtime.OrderSink, logger *slog.Logger) (Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.token = accessToken
	f.sink = sink
	f.ch = newFakeChannel()
	return f.ch, nil
}

type sessionFixture struct {
	store   *state.Store
	keys    *memKeys
	session *Session
	dialer  *fakeDialer
	notify  *fakeNotify
}

func newSessionFixture(t *testing.T, handler http.Handler) *sessionFixture {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	store := state.New()
	keys := &memKeys{}
	logger := logging.NewLoggerTo(io.Discard, "error")
	client := api.NewClient(srv.URL, 2*time.Second, store.Session, keys, logger)
	dialer := &fakeDialer{}
	notify := &fakeNotify{}
	return &sessionFixture{
		store:   store,
		keys:    keys,
		session: NewSession(client, store, keys, "ws://unused", dialer.dial, notify, logger),
		dialer:  dialer,
		notify:  notify,
	}
}

func TestSignInPopulatesSessionPersistsTokenAndConnects(t *testing.T) {
	fx := newSessionFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{
				"name": "Kim", "email": "k@x.com",
				"accessToken": "acc", "refreshToken": "ref",
			},
		})
	}))

	if err := fx.session.SignIn(context.Background(), "k@x.com", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	snap := fx.store.Session.Snapshot()
	if snap.Name != "Kim" || snap.Email != "k@x.com" || snap.AccessToken != "acc" {
		t.Fatalf("unexpected session: %+v", snap)
	}
	if fx.keys.token != "ref" {
		t.Fatalf("refresh token must be persisted, got %q", fx.keys.token)
	}
	if fx.dialer.calls != 1 || fx.dialer.token != "acc" {
		t.Fatalf("expected one dial with access token, got calls=%d token=%q", fx.dialer.calls, fx.dialer.token)
	}
	if !fx.session.Connected() {
		t.Fatal("expected connected channel after sign-in")
	}
}

func TestSignOutTearsDownEverything(t *testing.T) {
	var logoutCalls int
	fx := newSessionFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			json.NewEncoder(w).Encode(map[string]any{
				"data": map[string]string{"name": "Kim", "email": "k@x.com", "accessToken": "acc", "refreshToken": "ref"},
			})
		case "/logout":
			logoutCalls++
			io.WriteString(w, `{"data":{}}`)
		}
	}))
	if err := fx.session.SignIn(context.Background(), "k@x.com", "pw"); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	fx.session.SignOut(context.Background())

	if logoutCalls != 1 {
		t.Fatalf("expected logout request, got %d", logoutCalls)
	}
	if !fx.dialer.ch.isClosed() {
		t.Fatal("channel must be closed on sign-out")
	}
	if fx.keys.token != "" {
		t.Fatal("refresh token must be cleared on sign-out")
	}
	if fx.store.Session.LoggedIn() {
		t.Fatal("session must be cleared on sign-out")
	}
}

func TestBootstrapWithoutTokenStaysLoggedOut(t *testing.T) {
	var calls int
	fx := newSessionFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))

	fx.session.Bootstrap(context.Background())

	if calls != 0 {
		t.Fatalf("no token means no refresh call, got %d", calls)
	}
	if fx.store.Session.LoggedIn() || fx.dialer.calls != 0 {
		t.Fatal("expected logged-out state with no channel")
	}
}

func TestBootstrapRestoresSessionSilently(t *testing.T) {
	fx := newSessionFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/refreshToken" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer ref" {
			t.Errorf("refresh must be the bearer credential, got %q", got)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"data": map[string]string{"accessToken": "abc", "name": "Kim", "email": "k@x.com"},
		})
	}))
	fx.keys.token = "ref"

	fx.session.Bootstrap(context.Background())

	snap := fx.store.Session.Snapshot()
	if snap.Name != "Kim" || snap.Email != "k@x.com" || snap.AccessToken != "abc" {
		t.Fatalf("unexpected restored session: %+v", snap)
	}
	if fx.dialer.calls != 1 {
		t.Fatalf("expected channel dial after restore, got %d", fx.dialer.calls)
	}
	if fx.notify.last() != "" {
		t.Fatalf("silent restore must not notify, got %q", fx.notify.last())
	}
}

func TestBootstrapExpiredTokenPromptsReLogin(t *testing.T) {
	fx := newSessionFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(api.StatusTokenExpired)
		json.NewEncoder(w).Encode(map[string]string{"code": "expired"})
	}))
	fx.keys.token = "stale-ref"

	fx.session.Bootstrap(context.Background())

	if fx.store.Session.LoggedIn() {
		t.Fatal("expired restore must leave the session empty")
	}
	if fx.notify.last() != "please sign in again" {
		t.Fatalf("expected re-login prompt, got %q", fx.notify.last())
	}
}

func TestBootstrapOtherFailureIsLoggedNotSurfaced(t *testing.T) {
	fx := newSessionFixture(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	fx.keys.token = "ref"

	fx.session.Bootstrap(context.Background())

	if fx.store.Session.LoggedIn() {
		t.Fatal("failed restore must leave the session empty")
	}
	if fx.notify.last() != "" {
		t.Fatalf("non-expired failures must not notify, got %q", fx.notify.last())
	}
}

func TestGuardedSinkDropsPushesAfterLogout(t *testing.T) {
	store := state.New()
	sink := guardedSink{store: store}

	store.Session.SetUser("Kim", "k@x.com", "acc")
	if !sink.Add(models.Order{OrderID: "O2", Price: 5000}) {
		t.Fatal("push while logged in must be stored")
	}

	store.Session.Clear()
	if sink.Add(models.Order{OrderID: "O3", Price: 5000}) {
		t.Fatal("push after logout must be dropped")
	}
	if _, ok := store.Orders.Get("O3"); ok {
		t.Fatal("dropped order must not appear in the store")
	}
}
