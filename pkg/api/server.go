package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"funds-transfer/pkg/account"
	"funds-transfer/pkg/logging"
	"funds-transfer/pkg/transfer"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service is the account and transfer API the server exposes.
// *transfer.Coordinator implements it.
type Service interface {
	CreateAccount(ctx context.Context, acct account.Account) error
	GetAccount(ctx context.Context, id string) (account.Account, error)
	Transfer(ctx context.Context, req transfer.Request) (transfer.Outcome, error)
}

// Server provides the HTTP endpoints for accounts and transfers.
type Server struct {
	service Service
	router  *mux.Router
	server  *http.Server
	config  ServerConfig
	logger  *logging.Logger

	requests *prometheus.CounterVec
	latency  *prometheus.HistogramVec
	started  time.Time
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	// Address to listen on (e.g., ":8080")
	Address string

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Registerer receives the HTTP request metrics (nil = not registered)
	Registerer prometheus.Registerer

	// Gatherer backs /metrics (default: prometheus.DefaultGatherer)
	Gatherer prometheus.Gatherer

	// Stats, when set, is included in the /status response
	Stats func() any

	// Logger defaults to the global logger
	Logger *logging.Logger
}

// DefaultServerConfig returns a default configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Address:      ":8080",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewServer creates the API server. It returns an error only if the HTTP
// metrics cannot be registered.
func NewServer(service Service, config ServerConfig) (*Server, error) {
	if config.Gatherer == nil {
		config.Gatherer = prometheus.DefaultGatherer
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.L()
	}

	s := &Server{
		service: service,
		config:  config,
		logger:  logger.Named("api"),
		started: time.Now(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "api_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "api_http_request_duration_seconds",
				Help:    "HTTP request latencies in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
	}

	if config.Registerer != nil {
		for _, c := range []prometheus.Collector{s.requests, s.latency} {
			if err := config.Registerer.Register(c); err != nil {
				return nil, err
			}
		}
	}

	r := mux.NewRouter()
	r.Use(s.metricsMiddleware)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/status", s.handleStatus).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	r.HandleFunc("/v1/accounts", s.handleCreateAccount).Methods(http.MethodPost)
	r.HandleFunc("/v1/accounts/transfer", s.handleTransfer).Methods(http.MethodPost)
	r.HandleFunc("/v1/accounts/{accountId}", s.handleGetAccount).Methods(http.MethodGet)

	s.router = r
	s.server = &http.Server{
		Addr:         config.Address,
		Handler:      r,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return s, nil
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the HTTP server in a goroutine.
func (s *Server) Start() error {
	go func() {
		s.logger.Info("server listening", zap.String("addr", s.config.Address))
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server failed", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

type createAccountRequest struct {
	AccountID string              `json:"accountId"`
	Balance   decimal.NullDecimal `json:"balance"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}
	if !req.Balance.Valid {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "balance is required"})
		return
	}

	acct := account.New(req.AccountID, req.Balance.Decimal)
	if err := s.service.CreateAccount(r.Context(), acct); err != nil {
		writeJSON(w, createStatus(err), errorResponse{Error: err.Error()})
		return
	}

	created, err := s.service.GetAccount(r.Context(), req.AccountID)
	if err != nil {
		created = acct
	}
	writeJSON(w, http.StatusCreated, created)
}

func createStatus(err error) int {
	switch {
	case errors.Is(err, account.ErrDuplicateAccountID),
		errors.Is(err, account.ErrInvalidAccountID),
		errors.Is(err, account.ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, account.ErrStoreClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["accountId"]

	acct, err := s.service.GetAccount(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, acct)
	case errors.Is(err, account.ErrAccountNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Account id " + id + " does not exist"})
	default:
		s.logger.Error("get account failed", logging.AccountID(id), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transfer.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	out, err := s.service.Transfer(r.Context(), req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	if !out.Succeeded() {
		writeJSON(w, http.StatusBadRequest, out)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	response := map[string]any{
		"status":    "running",
		"timestamp": time.Now().Unix(),
		"uptime":    time.Since(s.started).String(),
	}
	if s.config.Stats != nil {
		response["stats"] = s.config.Stats()
	}
	writeJSON(w, http.StatusOK, response)
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
