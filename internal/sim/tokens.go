package sim

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrTokenExpired distinguishes the expiry case so the HTTP layer can
// answer with the 419 {code:"expired"} contract.
var ErrTokenExpired = errors.New("sim: token expired")

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type TokenManager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenManager(secret string, accessTTL, refreshTTL time.Duration) *TokenManager {
	return &TokenManager{secret: []byte(secret), accessTTL: accessTTL, refreshTTL: refreshTTL}
}

type tokenClaims struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

func (m *TokenManager) issue(name, email, tokenType string, ttl time.Duration) (string, error) {
	claims := &tokenClaims{
		Name:      name,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *TokenManager) IssueAccess(name, email string) (string, error) {
	return m.issue(name, email, tokenTypeAccess, m.accessTTL)
}

func (m *TokenManager) IssueRefresh(name, email string) (string, error) {
	return m.issue(name, email, tokenTypeRefresh, m.refreshTTL)
}

func (m *TokenManager) parse(tokenStr, wantType string) (name, email string, err error) {
	token, err := jwt.ParseWithClaims(tokenStr, &tokenClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", "", ErrTokenExpired
		}
		return "", "", err
	}
	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return "", "", jwt.ErrSignatureInvalid
	}
	if claims.TokenType != wantType {
		return "", "", errors.New("sim: wrong token type")
	}
	return claims.Name, claims.Email, nil
}

// ParseAccess validates a short-lived access token.
func (m *TokenManager) ParseAccess(tokenStr string) (name, email string, err error) {
	return m.parse(tokenStr, tokenTypeAccess)
}

// ParseRefresh validates a long-lived refresh token.
func (m *TokenManager) ParseRefresh(tokenStr string) (name, email string, err error) {
	return m.parse(tokenStr, tokenTypeRefresh)
}
