// Package state is the application's central state container: the driver
// session and the visible order set. Controllers receive the container and
// mutate only through its methods.
package state

type Store struct {
	Session *SessionStore
	Orders  *OrderStore
}

func New() *Store {
	return &Store{Session: NewSessionStore(), Orders: NewOrderStore()}
}
