// Package api exposes the engine over HTTP: account and plan CRUD,
// refresh and device-test operations, plus health and metrics. It is a
// thin routing/status-code layer; all behavior lives in the engine and
// the store.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/pronovic/vplan/internal/engine"
	"github.com/pronovic/vplan/internal/model"
	"github.com/pronovic/vplan/internal/smartthings"
	"github.com/pronovic/vplan/internal/store"
)

// Server is the REST API server.
type Server struct {
	addr       string
	store      *store.Store
	manager    *engine.Manager
	httpServer *http.Server
}

// NewServer creates the API server.
func NewServer(host string, port int, st *store.Store, manager *engine.Manager) *Server {
	return &Server{
		addr:    fmt.Sprintf("%s:%d", host, port),
		store:   st,
		manager: manager,
	}
}

// Router builds the route table. Exposed for tests.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/metrics", s.handleMetrics).Methods(http.MethodGet)

	r.HandleFunc("/account", s.handleRetrieveAccount).Methods(http.MethodGet)
	r.HandleFunc("/account", s.handlePutAccount).Methods(http.MethodPost)
	r.HandleFunc("/account", s.handleDeleteAccount).Methods(http.MethodDelete)

	r.HandleFunc("/plan", s.handleListPlans).Methods(http.MethodGet)
	r.HandleFunc("/plan", s.handleCreatePlan).Methods(http.MethodPost)
	r.HandleFunc("/plan", s.handleUpdatePlan).Methods(http.MethodPut)
	r.HandleFunc("/plan/{plan}", s.handleRetrievePlan).Methods(http.MethodGet)
	r.HandleFunc("/plan/{plan}", s.handleDeletePlan).Methods(http.MethodDelete)
	r.HandleFunc("/plan/{plan}/status", s.handleRetrieveStatus).Methods(http.MethodGet)
	r.HandleFunc("/plan/{plan}/status", s.handleUpdateStatus).Methods(http.MethodPut)
	r.HandleFunc("/plan/{plan}/refresh", s.handleRefreshPlan).Methods(http.MethodPost)
	r.HandleFunc("/plan/{plan}/test/group/{group}", s.handleToggleGroup).Methods(http.MethodPost)
	r.HandleFunc("/plan/{plan}/test/device/{room}/{device}", s.handleToggleDevice).Methods(http.MethodPost)

	return r
}

// Run starts the server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:    s.addr,
		Handler: s.Router(),
	}

	log.Info().Str("addr", s.addr).Msg("Starting API server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("API server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "OK"})
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	metrics.WritePrometheus(w, true)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps error kinds to status codes: missing resources are
// 404, invalid plans 422, provider failures 502, anything else 500.
func writeError(w http.ResponseWriter, err error) {
	var invalid *model.InvalidPlanError
	var client *smartthings.ClientError
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, store.ErrExists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "already exists"})
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": invalid.Message})
	case errors.As(err, &client):
		log.Error().Err(err).Msg("Provider error")
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "provider error"})
	default:
		log.Error().Err(err).Msg("Internal error")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
