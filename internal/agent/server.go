// Package agent exposes the driver app's screens as a local HTTP control
// surface: sign-in/sign-up, the order list with accept/reject, the
// delivery view and settings. Rendering is out of scope; this is the
// process boundary a UI would sit on.
package agent

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/delivery-driver/internal/controller"
	"github.com/example/delivery-driver/internal/eta"
	"github.com/example/delivery-driver/internal/state"
)

type Server struct {
	store    *state.Store
	orders   *controller.Orders
	session  *controller.Session
	notices  *NoticeBoard
	delivery *DeliveryTracker

	etaClient eta.Client
	etaCache  *eta.Cache
	speedMps  float64

	logger *slog.Logger
	mux    *mux.Router
}

type Options struct {
	ETAClient       eta.Client // optional routing engine
	ETACache        *eta.Cache
	DefaultSpeedMps float64
}

func NewServer(store *state.Store, orders *controller.Orders, session *controller.Session,
	notices *NoticeBoard, delivery *DeliveryTracker, opts Options, logger *slog.Logger) *Server {
	s := &Server{
		store:     store,
		orders:    orders,
		session:   session,
		notices:   notices,
		delivery:  delivery,
		etaClient: opts.ETAClient,
		etaCache:  opts.ETACache,
		speedMps:  opts.DefaultSpeedMps,
		logger:    logger,
		mux:       mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/login", s.handleLogin).Methods("POST")
	s.mux.HandleFunc("/signup", s.handleSignUp).Methods("POST")
	s.mux.HandleFunc("/logout", s.handleLogout).Methods("POST")
	s.mux.HandleFunc("/session", s.handleSession).Methods("GET")
	s.mux.HandleFunc("/orders", s.handleOrders).Methods("GET")
	s.mux.HandleFunc("/orders/{id}/accept", s.handleAccept).Methods("POST")
	s.mux.HandleFunc("/orders/{id}/reject", s.handleReject).Methods("POST")
	s.mux.HandleFunc("/orders/{id}/complete", s.handleComplete).Methods("POST")
	s.mux.HandleFunc("/orders/prune", s.handlePrune).Methods("POST")
	s.mux.HandleFunc("/delivery", s.handleDelivery).Methods("GET")
	s.mux.HandleFunc("/notices", s.handleNotices).Methods("GET")
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }
