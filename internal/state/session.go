package state

import (
	"sync"

	"github.com/example/delivery-driver/internal/models"
)

// SessionStore holds the current driver session. All mutation goes through
// the store; callers read snapshots, never shared pointers.
type SessionStore struct {
	mu  sync.RWMutex
	s   models.Session
	gen uint64
}

func NewSessionStore() *SessionStore { return &SessionStore{} }

// SetUser replaces name, email and access token. Balance is untouched.
// Bumps the generation so responses issued against the previous identity
// can be recognized as stale.
func (st *SessionStore) SetUser(name, email, accessToken string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Name = name
	st.s.Email = email
	st.s.AccessToken = accessToken
	st.gen++
}

// SetAccessToken replaces only the access token, used after a refresh.
func (st *SessionStore) SetAccessToken(token string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.AccessToken = token
}

func (st *SessionStore) SetBalance(amount int) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s.Balance = amount
}

// Clear resets every field to its zero value, used on logout or an
// unrecoverable refresh failure.
func (st *SessionStore) Clear() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.s = models.Session{}
	st.gen++
}

func (st *SessionStore) Snapshot() models.Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s
}

func (st *SessionStore) AccessToken() string {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.AccessToken
}

func (st *SessionStore) LoggedIn() bool {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.s.LoggedIn()
}

// Generation changes whenever the session identity changes (SetUser, Clear).
// A caller that captured the generation before a network call can discard
// the response if it no longer matches.
func (st *SessionStore) Generation() uint64 {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.gen
}
