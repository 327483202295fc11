// Package sim is a self-contained delivery backend used for local
// development and protocol testing: it issues tokens, pushes orders over
// websocket and enforces the single-claim rule the client's accept flow
// depends on.
package sim

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/example/delivery-driver/internal/models"
	"github.com/example/delivery-driver/internal/observability"
)

type Server struct {
	tokens   *TokenManager
	accounts *Accounts
	orders   OrderStore
	claims   ClaimRegistry
	payments Payments
	registry *Registry
	currency string
	logger   *slog.Logger
	mux      *mux.Router

	limMu    sync.Mutex
	limiters map[string]*rate.Limiter
	loginLim rate.Limit
}

func NewServer(tokens *TokenManager, accounts *Accounts, orders OrderStore, claims ClaimRegistry,
	payments Payments, currency string, loginRatePerMin int, logger *slog.Logger) *Server {
	if payments == nil {
		payments = NopPayments{}
	}
	s := &Server{
		tokens:   tokens,
		accounts: accounts,
		orders:   orders,
		claims:   claims,
		payments: payments,
		registry: NewRegistry(logger),
		currency: currency,
		logger:   logger,
		mux:      mux.NewRouter(),
		limiters: make(map[string]*rate.Limiter),
		loginLim: rate.Limit(float64(loginRatePerMin) / 60.0),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/login", s.rateLimited(s.handleLogin)).Methods("POST")
	s.mux.HandleFunc("/user", s.handleSignUp).Methods("POST")
	s.mux.HandleFunc("/refreshToken", s.handleRefresh).Methods("POST")
	s.mux.HandleFunc("/logout", s.authenticated(s.handleLogout)).Methods("POST")
	s.mux.HandleFunc("/accept", s.authenticated(s.handleAccept)).Methods("POST")
	s.mux.HandleFunc("/complete", s.authenticated(s.handleComplete)).Methods("POST")
	s.mux.HandleFunc("/balance", s.authenticated(s.handleBalance)).Methods("GET")
	s.mux.HandleFunc("/ws", s.authenticated(s.handleWS)).Methods("GET")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

// AddOrder records a new order and fans it out to every connected driver.
// Both order feeds deliver through here.
func (s *Server) AddOrder(o models.Order) {
	if err := s.orders.Save(&OrderRecord{Order: o}); err != nil {
		s.logger.Error("save order", "order_id", o.OrderID, "error", err)
		return
	}
	s.registry.BroadcastOrder(o)
	observability.SimOrdersPushed.Inc()
	s.logger.Info("order pushed", "order_id", o.OrderID, "drivers", s.registry.Count())
}

// --- auth plumbing ---

type driverKey struct{}

type driverIdentity struct {
	Name  string
	Email string
}

// authenticated enforces the bearer access token and maps expiry onto the
// distinguished 419 {code:"expired"} response the clients key off.
func (s *Server) authenticated(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			writeError(w, http.StatusUnauthorized, "missing", "authorization required")
			return
		}
		name, email, err := s.tokens.ParseAccess(token)
		if err == ErrTokenExpired {
			writeError(w, 419, "expired", "access token expired")
			return
		}
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid", "invalid access token")
			return
		}
		ctx := context.WithValue(r.Context(), driverKey{}, driverIdentity{Name: name, Email: email})
		next(w, r.WithContext(ctx))
	}
}

func identityFrom(r *http.Request) driverIdentity {
	id, _ := r.Context().Value(driverKey{}).(driverIdentity)
	return id
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(h, "Bearer ")
}

func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.limiterFor(remoteIP(r)).Allow() {
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many login attempts")
			return
		}
		next(w, r)
	}
}

func (s *Server) limiterFor(ip string) *rate.Limiter {
	s.limMu.Lock()
	defer s.limMu.Unlock()
	lim, ok := s.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(s.loginLim, 5)
		s.limiters[ip] = lim
	}
	return lim
}

func remoteIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		parts := strings.Split(ip, ",")
		return strings.TrimSpace(parts[0])
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// --- response helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeData(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, map[string]any{"data": data})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]string{"code": code, "message": message})
}

// --- websocket ---

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := identityFrom(r)
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "driver", id.Email, "error", err)
		return
	}
	s.registry.Add(id.Email, conn)
	observability.SimDriversConnected.Inc()
	s.logger.Info("driver connected", "driver", id.Email)

	go func() {
		defer func() {
			s.registry.Remove(id.Email)
			observability.SimDriversConnected.Dec()
			conn.Close()
			s.logger.Info("driver disconnected", "driver", id.Email)
		}()
		for {
			// inbound frames are only the capability announcement and
			// keepalives, read and drop
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
