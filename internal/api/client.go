// Package api is the authenticated HTTP client for the delivery backend.
// Every call goes through a single wrapped request function that performs
// transparent bearer-token refresh: on the distinguished expired-session
// response the persisted refresh token is exchanged for a new access token
// and the original request is re-issued exactly once. Triggering the
// refresh centrally means every call site benefits uniformly.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/delivery-driver/internal/keystore"
	"github.com/example/delivery-driver/internal/observability"
	"github.com/example/delivery-driver/internal/state"
)

type Client struct {
	baseURL string
	http    *http.Client
	session *state.SessionStore
	keys    keystore.Store
	logger  *slog.Logger
}

func NewClient(baseURL string, timeout time.Duration, session *state.SessionStore, keys keystore.Store, logger *slog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		session: session,
		keys:    keys,
		logger:  logger,
	}
}

// do issues an authenticated request and runs the refresh state machine:
//
//	issue -> success: done
//	      -> expired: load refresh token (absent: return original error),
//	                  exchange it, store the new access token, re-issue the
//	                  original request once; that outcome is final
//	      -> anything else: return unchanged
//
// At most one automatic retry, so a refresh endpoint that itself answers
// "expired" cannot loop.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	err := c.once(ctx, method, path, body, out, c.session.AccessToken())
	if !IsExpired(err) {
		return err
	}

	refreshToken, kerr := c.keys.Load()
	if kerr != nil {
		c.logger.Warn("refresh token unavailable", "error", kerr)
		return err
	}
	if refreshToken == "" {
		// nothing to refresh with, surface the original failure
		return err
	}

	data, rerr := c.Refresh(ctx, refreshToken)
	if rerr != nil {
		observability.RefreshFailures.Inc()
		c.logger.Warn("token refresh failed", "error", rerr)
		return rerr
	}
	c.session.SetAccessToken(data.AccessToken)
	observability.TokenRefreshes.Inc()
	c.logger.Debug("access token refreshed, retrying request", "method", method, "path", path)

	return c.once(ctx, method, path, body, out, data.AccessToken)
}

// once issues a single request with the given bearer token and decodes a
// 2xx JSON body into out.
func (c *Client) once(ctx context.Context, method, path string, body, out any, token string) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode body: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{StatusCode: resp.StatusCode}
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if decErr := json.NewDecoder(resp.Body).Decode(&apiErr); decErr == nil {
			se.APICode = apiErr.Code
			se.Message = apiErr.Message
		}
		return se
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode response: %w", err)
	}
	return nil
}
