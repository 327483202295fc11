package agent

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/delivery-driver/internal/api"
	"github.com/example/delivery-driver/internal/controller"
	"github.com/example/delivery-driver/internal/eta"
	"github.com/example/delivery-driver/internal/models"
)

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.session.SignIn(r.Context(), req.Email, req.Password); err != nil {
		writeAPIError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sessionView())
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.session.SignUp(r.Context(), req.Name, req.Email, req.Password); err != nil {
		writeAPIError(w, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.session.SignOut(r.Context())
	s.delivery.Clear()
	w.WriteHeader(http.StatusNoContent)
}

type sessionView struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Balance   int    `json:"balance"`
	LoggedIn  bool   `json:"loggedIn"`
	Connected bool   `json:"connected"`
}

func (s *Server) sessionView() sessionView {
	snap := s.store.Session.Snapshot()
	return sessionView{
		Name:      snap.Name,
		Email:     snap.Email,
		Balance:   snap.Balance,
		LoggedIn:  snap.LoggedIn(),
		Connected: s.session.Connected(),
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sessionView())
}

type orderView struct {
	models.Order
	DistanceM  float64 `json:"distanceM"`
	ETASeconds float64 `json:"etaSeconds"`
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.store.Orders.List()
	out := make([]orderView, 0, len(orders))
	for _, o := range orders {
		out = append(out, s.annotate(o))
	}
	writeJSON(w, http.StatusOK, out)
}

// annotate adds trip distance and an estimated duration for display on the
// order list. Routing engine when configured, straight-line estimate
// otherwise.
func (s *Server) annotate(o models.Order) orderView {
	est := s.estimate(o.Start, o.End)
	return orderView{Order: o, DistanceM: est.DistanceM, ETASeconds: est.Seconds}
}

func (s *Server) estimate(from, to models.Coord) eta.Estimate {
	if s.etaCache != nil {
		if est, ok := s.etaCache.Get(from, to); ok {
			return est
		}
	}
	if s.etaClient != nil {
		if est, err := s.etaClient.EstimateTrip(from, to); err == nil {
			if s.etaCache != nil {
				s.etaCache.Set(from, to, est)
			}
			return est
		}
	}
	return eta.Naive(from, to, s.speedMps)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.store.Orders.Get(id); !ok {
		http.Error(w, "unknown order", http.StatusNotFound)
		return
	}
	if err := s.orders.Accept(r.Context(), id); err != nil {
		if errors.Is(err, controller.ErrBusy) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeAPIError(w, err)
		return
	}
	o, _ := s.store.Orders.Get(id)
	writeJSON(w, http.StatusOK, s.annotate(o))
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.store.Orders.Get(id); !ok {
		http.Error(w, "unknown order", http.StatusNotFound)
		return
	}
	s.orders.Reject(id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleComplete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := s.store.Orders.Get(id); !ok {
		http.Error(w, "unknown order", http.StatusNotFound)
		return
	}
	if err := s.orders.Complete(r.Context(), id); err != nil {
		if errors.Is(err, controller.ErrBusy) {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeAPIError(w, err)
		return
	}
	if s.delivery.Active() == id {
		s.delivery.Clear()
	}
	writeJSON(w, http.StatusOK, s.sessionView())
}

// handlePrune drops rejected and completed orders from the visible set,
// the "clear finished" action on the order list.
func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	removed := s.store.Orders.Prune()
	s.logger.Info("pruned terminal orders", "removed", removed)
	writeJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleDelivery(w http.ResponseWriter, r *http.Request) {
	id := s.delivery.Active()
	if id == "" {
		http.Error(w, "no active delivery", http.StatusNotFound)
		return
	}
	o, ok := s.store.Orders.Get(id)
	if !ok {
		http.Error(w, "no active delivery", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, s.annotate(o))
}

func (s *Server) handleNotices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.notices.List())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeAPIError maps backend failures onto the control surface: auth
// failures ask for a re-login, everything else is a bad gateway.
func writeAPIError(w http.ResponseWriter, err error) {
	var se *api.StatusError
	if errors.As(err, &se) {
		switch {
		case se.StatusCode == http.StatusUnauthorized || se.StatusCode == api.StatusTokenExpired:
			http.Error(w, "authentication required", http.StatusUnauthorized)
		case se.StatusCode >= 400 && se.StatusCode < 500:
			http.Error(w, se.Message, se.StatusCode)
		default:
			http.Error(w, "backend error", http.StatusBadGateway)
		}
		return
	}
	http.Error(w, "backend unreachable", http.StatusBadGateway)
}
