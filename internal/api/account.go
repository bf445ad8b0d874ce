package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/pronovic/vplan/internal/model"
	"github.com/pronovic/vplan/internal/store"
)

func (s *Server) handleRetrieveAccount(w http.ResponseWriter, _ *http.Request) {
	account, err := s.store.Account()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, account)
}

func (s *Server) handlePutAccount(w http.ResponseWriter, r *http.Request) {
	var account model.Account
	if err := json.NewDecoder(r.Body).Decode(&account); err != nil || account.PatToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "pat_token is required"})
		return
	}
	if err := s.store.PutAccount(account); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteAccount removes the account. Every plan is disabled first
// and a cleanup refresh is queued, so remote rules do not outlive the
// credentials that created them.
func (s *Server) handleDeleteAccount(w http.ResponseWriter, _ *http.Request) {
	names, err := s.store.PlanNames()
	if err != nil {
		writeError(w, err)
		return
	}
	for _, name := range names {
		doc, err := s.store.Plan(name)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			writeError(w, err)
			return
		}
		if err := s.store.SetPlanEnabled(name, false); err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, err)
			return
		}
		if err := s.manager.ScheduleImmediateRefresh(name, doc.Plan.Location); err != nil {
			log.Error().Err(err).Str("plan", name).Msg("Failed to schedule cleanup refresh")
		}
	}
	if err := s.store.DeleteAccount(); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
