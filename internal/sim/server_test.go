package sim

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/delivery-driver/internal/logging"
	"github.com/example/delivery-driver/internal/models"
)

func newTestServer(t *testing.T, accessTTL time.Duration) (*Server, *httptest.Server) {
	t.Helper()
	logger := logging.NewLoggerTo(io.Discard, "error")
	srv := NewServer(
		NewTokenManager("test-secret", accessTTL, time.Hour),
		NewAccounts(),
		NewMemoryOrders(),
		NewMemoryClaims(),
		nil, "krw", 600, logger,
	)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, ts
}

func signup(t *testing.T, base, name, email string) {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"name": name, "email": email, "password": "pw"})
	resp, err := http.Post(base+"/user", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("signup: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup status %d", resp.StatusCode)
	}
}

type loginPayload struct {
	Data struct {
		Name         string `json:"name"`
		Email        string `json:"email"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"data"`
}

func login(t *testing.T, base, email string) loginPayload {
	t.Helper()
	body, _ := json.Marshal(map[string]string{"email": email, "password": "pw"})
	resp, err := http.Post(base+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status %d", resp.StatusCode)
	}
	var out loginPayload
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return out
}

func authedReq(t *testing.T, method, url, token string, body any) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rd = bytes.NewReader(b)
	}
	req, _ := http.NewRequest(method, url, rd)
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	return resp
}

func TestSignUpLoginAndBalance(t *testing.T) {
	_, ts := newTestServer(t, time.Minute)
	signup(t, ts.URL, "Kim", "k@x.com")
	lp := login(t, ts.URL, "k@x.com")
	if lp.Data.Name != "Kim" || lp.Data.AccessToken == "" || lp.Data.RefreshToken == "" {
		t.Fatalf("unexpected login payload: %+v", lp.Data)
	}

	resp := authedReq(t, http.MethodGet, ts.URL+"/balance", lp.Data.AccessToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("balance status %d", resp.StatusCode)
	}
	var out struct {
		Data struct {
			Balance int `json:"balance"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if out.Data.Balance != 0 {
		t.Fatalf("fresh account balance must be 0, got %d", out.Data.Balance)
	}
}

func TestExpiredAccessTokenGets419ExpiredBody(t *testing.T) {
	_, ts := newTestServer(t, -time.Second)
	signup(t, ts.URL, "Kim", "k@x.com")
	lp := login(t, ts.URL, "k@x.com")

	resp := authedReq(t, http.MethodGet, ts.URL+"/balance", lp.Data.AccessToken, nil)
	defer resp.Body.Close()
	if resp.StatusCode != 419 {
		t.Fatalf("expected 419, got %d", resp.StatusCode)
	}
	var body struct {
		Code string `json:"code"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Code != "expired" {
		t.Fatalf("expected code expired, got %q", body.Code)
	}

	// the refresh token still works and yields a new access token
	rresp := authedReq(t, http.MethodPost, ts.URL+"/refreshToken", lp.Data.RefreshToken, nil)
	defer rresp.Body.Close()
	if rresp.StatusCode != http.StatusOK {
		t.Fatalf("refresh status %d", rresp.StatusCode)
	}
	var rout struct {
		Data struct {
			AccessToken string `json:"accessToken"`
			Name        string `json:"name"`
			Email       string `json:"email"`
		} `json:"data"`
	}
	json.NewDecoder(rresp.Body).Decode(&rout)
	if rout.Data.AccessToken == "" || rout.Data.Email != "k@x.com" {
		t.Fatalf("unexpected refresh payload: %+v", rout.Data)
	}
}

func TestSingleClaimSecondDriverGets400(t *testing.T) {
	srv, ts := newTestServer(t, time.Minute)
	signup(t, ts.URL, "Kim", "k@x.com")
	signup(t, ts.URL, "Lee", "l@x.com")
	kim := login(t, ts.URL, "k@x.com")
	lee := login(t, ts.URL, "l@x.com")

	srv.AddOrder(models.Order{OrderID: "O1", Price: 5000})

	resp := authedReq(t, http.MethodPost, ts.URL+"/accept", kim.Data.AccessToken, map[string]string{"orderId": "O1"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first accept status %d", resp.StatusCode)
	}

	resp = authedReq(t, http.MethodPost, ts.URL+"/accept", lee.Data.AccessToken, map[string]string{"orderId": "O1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second accept expected 400, got %d", resp.StatusCode)
	}
	var body struct {
		Message string `json:"message"`
	}
	json.NewDecoder(resp.Body).Decode(&body)
	if body.Message != "order already taken" {
		t.Fatalf("expected conflict message, got %q", body.Message)
	}
}

func TestCompleteCreditsFareToClaimantOnly(t *testing.T) {
	srv, ts := newTestServer(t, time.Minute)
	signup(t, ts.URL, "Kim", "k@x.com")
	signup(t, ts.URL, "Lee", "l@x.com")
	kim := login(t, ts.URL, "k@x.com")
	lee := login(t, ts.URL, "l@x.com")

	srv.AddOrder(models.Order{OrderID: "O1", Price: 5000})
	authedReq(t, http.MethodPost, ts.URL+"/accept", kim.Data.AccessToken, map[string]string{"orderId": "O1"}).Body.Close()

	// the non-claimant cannot complete
	resp := authedReq(t, http.MethodPost, ts.URL+"/complete", lee.Data.AccessToken, map[string]string{"orderId": "O1"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("foreign complete expected 400, got %d", resp.StatusCode)
	}

	resp = authedReq(t, http.MethodPost, ts.URL+"/complete", kim.Data.AccessToken, map[string]string{"orderId": "O1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("complete status %d", resp.StatusCode)
	}
	var out struct {
		Data struct {
			Balance int `json:"balance"`
		} `json:"data"`
	}
	json.NewDecoder(resp.Body).Decode(&out)
	if out.Data.Balance != 5000 {
		t.Fatalf("expected fare credited, got %d", out.Data.Balance)
	}
}

func TestUnknownOrderAccept404(t *testing.T) {
	_, ts := newTestServer(t, time.Minute)
	signup(t, ts.URL, "Kim", "k@x.com")
	kim := login(t, ts.URL, "k@x.com")
	resp := authedReq(t, http.MethodPost, ts.URL+"/accept", kim.Data.AccessToken, map[string]string{"orderId": "nope"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestLoginRateLimit(t *testing.T) {
	logger := logging.NewLoggerTo(io.Discard, "error")
	// one permitted login per minute with the standard burst of 5
	srv := NewServer(NewTokenManager("s", time.Minute, time.Hour), NewAccounts(),
		NewMemoryOrders(), NewMemoryClaims(), nil, "krw", 1, logger)
	ts := httptest.NewServer(srv)
	defer ts.Close()

	var last int
	for i := 0; i < 6; i++ {
		body, _ := json.Marshal(map[string]string{"email": "k@x.com", "password": "pw"})
		req, _ := http.NewRequest(http.MethodPost, ts.URL+"/login", bytes.NewReader(body))
		req.Header.Set("X-Forwarded-For", "10.1.2.3")
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("login: %v", err)
		}
		resp.Body.Close()
		last = resp.StatusCode
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", last)
	}
}
