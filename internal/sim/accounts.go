package sim

import (
	"errors"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrAccountExists   = errors.New("sim: email already registered")
	ErrBadCredentials  = errors.New("sim: invalid email or password")
	ErrAccountNotFound = errors.New("sim: no such account")
)

type Account struct {
	Name    string
	Email   string
	Balance int
}

// Accounts is the in-memory driver registry.
type Accounts struct {
	mu   sync.Mutex
	byID map[string]*accountRecord
}

type accountRecord struct {
	Account
	passwordHash []byte
}

func NewAccounts() *Accounts {
	return &Accounts{byID: make(map[string]*accountRecord)}
}

func (a *Accounts) Register(name, email, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.byID[email]; ok {
		return ErrAccountExists
	}
	a.byID[email] = &accountRecord{
		Account:      Account{Name: name, Email: email},
		passwordHash: hash,
	}
	return nil
}

func (a *Accounts) Authenticate(email, password string) (Account, error) {
	a.mu.Lock()
	rec, ok := a.byID[email]
	a.mu.Unlock()
	if !ok {
		return Account{}, ErrBadCredentials
	}
	if bcrypt.CompareHashAndPassword(rec.passwordHash, []byte(password)) != nil {
		return Account{}, ErrBadCredentials
	}
	return rec.Account, nil
}

func (a *Accounts) Get(email string) (Account, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.byID[email]
	if !ok {
		return Account{}, ErrAccountNotFound
	}
	return rec.Account, nil
}

// Credit adds the delivered order's fare to the driver balance.
func (a *Accounts) Credit(email string, amount int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	rec, ok := a.byID[email]
	if !ok {
		return 0, ErrAccountNotFound
	}
	rec.Balance += amount
	return rec.Balance, nil
}
