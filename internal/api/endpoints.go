package api

import (
	"context"
	"net/http"
)

// LoginData is the payload of a successful sign-in.
type LoginData struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// RefreshData is the payload of a successful token refresh.
type RefreshData struct {
	AccessToken string `json:"accessToken"`
	Name        string `json:"name"`
	Email       string `json:"email"`
}

func (c *Client) Login(ctx context.Context, email, password string) (LoginData, error) {
	body := map[string]string{"email": email, "password": password}
	var resp struct {
		Data LoginData `json:"data"`
	}
	// no bearer token yet, skip the interceptor
	if err := c.once(ctx, http.MethodPost, "/login", body, &resp, ""); err != nil {
		return LoginData{}, err
	}
	return resp.Data, nil
}

func (c *Client) SignUp(ctx context.Context, name, email, password string) error {
	body := map[string]string{"name": name, "email": email, "password": password}
	return c.once(ctx, http.MethodPost, "/user", body, nil, "")
}

// Refresh exchanges the long-lived refresh token for a fresh access token.
// It bypasses the interceptor: the refresh token itself is the credential.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (RefreshData, error) {
	var resp struct {
		Data RefreshData `json:"data"`
	}
	if err := c.once(ctx, http.MethodPost, "/refreshToken", nil, &resp, refreshToken); err != nil {
		return RefreshData{}, err
	}
	return resp.Data, nil
}

func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/logout", nil, nil)
}

// Accept claims an order for this driver. A 400 response means another
// driver already claimed it; the server message is carried in the error.
func (c *Client) Accept(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodPost, "/accept", map[string]string{"orderId": orderID}, nil)
}

// Complete reports a delivered order.
func (c *Client) Complete(ctx context.Context, orderID string) error {
	return c.do(ctx, http.MethodPost, "/complete", map[string]string{"orderId": orderID}, nil)
}

// Balance fetches the driver's current balance.
func (c *Client) Balance(ctx context.Context) (int, error) {
	var resp struct {
		Data struct {
			Balance int `json:"balance"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/balance", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Data.Balance, nil
}
