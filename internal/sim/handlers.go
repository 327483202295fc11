package sim

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/example/delivery-driver/internal/models"
	"github.com/example/delivery-driver/internal/observability"
)

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "invalid", "name, email and password are required")
		return
	}
	if err := s.accounts.Register(req.Name, req.Email, req.Password); err != nil {
		if errors.Is(err, ErrAccountExists) {
			writeError(w, http.StatusConflict, "exists", "email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "internal", "registration failed")
		return
	}
	s.logger.Info("driver registered", "email", req.Email)
	writeData(w, http.StatusCreated, map[string]string{"email": req.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid", "invalid request body")
		return
	}
	acct, err := s.accounts.Authenticate(req.Email, req.Password)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "credentials", "invalid email or password")
		return
	}
	access, err := s.tokens.IssueAccess(acct.Name, acct.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "token issue failed")
		return
	}
	refresh, err := s.tokens.IssueRefresh(acct.Name, acct.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "token issue failed")
		return
	}
	s.logger.Info("driver logged in", "email", acct.Email)
	writeData(w, http.StatusOK, map[string]string{
		"name":         acct.Name,
		"email":        acct.Email,
		"accessToken":  access,
		"refreshToken": refresh,
	})
}

// handleRefresh exchanges a valid refresh token (sent as the bearer
// credential) for a new access token. An expired refresh token gets the
// same 419 treatment as an expired access token, which is what prompts
// the client to ask for a fresh sign-in.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "missing", "refresh token required")
		return
	}
	name, email, err := s.tokens.ParseRefresh(token)
	if err == ErrTokenExpired {
		writeError(w, 419, "expired", "refresh token expired")
		return
	}
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid", "invalid refresh token")
		return
	}
	access, err := s.tokens.IssueAccess(name, email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal", "token issue failed")
		return
	}
	writeData(w, http.StatusOK, map[string]string{
		"accessToken": access,
		"name":        name,
		"email":       email,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	// tokens are stateless here; logout exists so clients have a place to
	// report the session end
	s.logger.Info("driver logged out", "email", identityFrom(r).Email)
	writeData(w, http.StatusOK, map[string]string{})
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "invalid", "orderId is required")
		return
	}
	rec, ok := s.orders.Get(req.OrderID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown", "unknown order")
		return
	}

	winner, won, err := s.claims.Claim(r.Context(), req.OrderID, id.Email)
	if err != nil {
		s.logger.Error("claim registry error", "order_id", req.OrderID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "claim failed")
		return
	}
	if !won {
		observability.SimClaimsLost.Inc()
		s.logger.Info("claim lost", "order_id", req.OrderID, "driver", id.Email, "winner", winner)
		writeError(w, http.StatusBadRequest, "claimed", "order already taken")
		return
	}

	rec.Status = models.StatusAccepted
	rec.Driver = id.Email
	if paymentID, err := s.payments.Hold(r.Context(), int64(rec.Price), s.currency); err != nil {
		s.logger.Warn("payment hold failed", "order_id", rec.OrderID, "error", err)
	} else {
		rec.PaymentID = paymentID
	}
	if err := s.orders.Update(rec); err != nil {
		s.logger.Error("update order", "order_id", rec.OrderID, "error", err)
		if rec.PaymentID != "" {
			// the claim did not stick, release the fare hold
			if cerr := s.payments.Cancel(r.Context(), rec.PaymentID); cerr != nil {
				s.logger.Warn("payment cancel failed", "order_id", rec.OrderID, "error", cerr)
			}
		}
		writeError(w, http.StatusInternalServerError, "internal", "claim failed")
		return
	}
	observability.SimClaimsWon.Inc()
	s.logger.Info("order claimed", "order_id", rec.OrderID, "driver", id.Email)
	writeData(w, http.StatusOK, map[string]string{})
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	var req struct {
		OrderID string `json:"orderId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OrderID == "" {
		writeError(w, http.StatusBadRequest, "invalid", "orderId is required")
		return
	}
	rec, ok := s.orders.Get(req.OrderID)
	if !ok {
		writeError(w, http.StatusNotFound, "unknown", "unknown order")
		return
	}
	if rec.Driver != id.Email || rec.Status != models.StatusAccepted {
		writeError(w, http.StatusBadRequest, "not_yours", "order is not an active delivery of this driver")
		return
	}

	rec.Status = models.StatusCompleted
	if err := s.orders.Update(rec); err != nil {
		s.logger.Error("update order", "order_id", rec.OrderID, "error", err)
	}
	if rec.PaymentID != "" {
		if err := s.payments.Capture(r.Context(), rec.PaymentID); err != nil {
			s.logger.Warn("payment capture failed", "order_id", rec.OrderID, "error", err)
		}
	}
	balance, err := s.accounts.Credit(id.Email, rec.Price)
	if err != nil {
		s.logger.Error("credit balance", "driver", id.Email, "error", err)
	}
	s.logger.Info("order delivered", "order_id", rec.OrderID, "driver", id.Email, "fare", rec.Price)
	writeData(w, http.StatusOK, map[string]int{"balance": balance})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	acct, err := s.accounts.Get(identityFrom(r).Email)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown", "no such driver")
		return
	}
	writeData(w, http.StatusOK, map[string]int{"balance": acct.Balance})
}
