package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/pronovic/vplan/internal/model"
)

func (s *Server) handleListPlans(w http.ResponseWriter, _ *http.Request) {
	names, err := s.store.PlanNames()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleRetrievePlan(w http.ResponseWriter, r *http.Request) {
	doc, err := s.store.Plan(mux.Vars(r)["plan"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// decodePlan parses and validates a plan document, then checks it
// against the live provider. A plan that references unknown devices is
// rejected here, before anything is persisted.
func (s *Server) decodePlan(w http.ResponseWriter, r *http.Request) (*model.PlanDocument, bool) {
	var doc model.PlanDocument
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed plan document"})
		return nil, false
	}
	if err := doc.Validate(); err != nil {
		writeError(w, err)
		return nil, false
	}
	if err := s.manager.ValidatePlan(r.Context(), &doc); err != nil {
		writeError(w, err)
		return nil, false
	}
	return &doc, true
}

// schedulePlanJobs queues an immediate refresh and (re)creates the
// daily refresh job after any plan mutation.
func (s *Server) schedulePlanJobs(w http.ResponseWriter, doc *model.PlanDocument) bool {
	if err := s.manager.ScheduleImmediateRefresh(doc.Plan.Name, doc.Plan.Location); err != nil {
		writeError(w, err)
		return false
	}
	if err := s.manager.ScheduleDailyRefresh(doc.Plan.Name, doc.Plan.Location, doc.Plan.RefreshTime, doc.Plan.RefreshZone); err != nil {
		writeError(w, err)
		return false
	}
	return true
}

func (s *Server) handleCreatePlan(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.decodePlan(w, r)
	if !ok {
		return
	}
	if err := s.store.CreatePlan(*doc); err != nil {
		writeError(w, err)
		return
	}
	if !s.schedulePlanJobs(w, doc) {
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	doc, ok := s.decodePlan(w, r)
	if !ok {
		return
	}
	if err := s.store.UpdatePlan(*doc); err != nil {
		writeError(w, err)
		return
	}
	if !s.schedulePlanJobs(w, doc) {
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeletePlan removes a plan. The immediate refresh queued here
// runs after deletion and finds no plan, so it clears the plan's remote
// rules from the location it last lived at.
func (s *Server) handleDeletePlan(w http.ResponseWriter, r *http.Request) {
	planName := mux.Vars(r)["plan"]
	doc, err := s.store.Plan(planName)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.DeletePlan(planName); err != nil {
		writeError(w, err)
		return
	}
	if err := s.manager.ScheduleImmediateRefresh(planName, doc.Plan.Location); err != nil {
		writeError(w, err)
		return
	}
	if err := s.manager.UnscheduleDailyRefresh(planName); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRetrieveStatus(w http.ResponseWriter, r *http.Request) {
	enabled, err := s.store.PlanEnabled(mux.Vars(r)["plan"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.Status{Enabled: enabled})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	planName := mux.Vars(r)["plan"]
	var status model.Status
	if err := json.NewDecoder(r.Body).Decode(&status); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed status"})
		return
	}
	doc, err := s.store.Plan(planName)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.store.SetPlanEnabled(planName, status.Enabled); err != nil {
		writeError(w, err)
		return
	}
	if err := s.manager.ScheduleImmediateRefresh(planName, doc.Plan.Location); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRefreshPlan(w http.ResponseWriter, r *http.Request) {
	planName := mux.Vars(r)["plan"]
	doc, err := s.store.Plan(planName)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.manager.ScheduleImmediateRefresh(planName, doc.Plan.Location); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toggles(r *http.Request) int {
	if value := r.URL.Query().Get("toggles"); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return 2
}

func (s *Server) handleToggleGroup(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	account, err := s.store.Account()
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := s.store.Plan(vars["plan"])
	if err != nil {
		writeError(w, err)
		return
	}
	devices := doc.Devices(vars["group"])
	if len(devices) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "group not found or has no devices"})
		return
	}
	if err := s.manager.ToggleDevices(r.Context(), account.PatToken, doc.Plan.Location, devices, toggles(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleToggleDevice(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	account, err := s.store.Account()
	if err != nil {
		writeError(w, err)
		return
	}
	doc, err := s.store.Plan(vars["plan"])
	if err != nil {
		writeError(w, err)
		return
	}
	target := model.Device{Room: vars["room"], Device: vars["device"]}
	found := false
	for _, device := range doc.Devices("") {
		if device.Room == target.Room && device.Device == target.Device {
			target = device
			found = true
			break
		}
	}
	if !found {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "device not found in plan"})
		return
	}
	if err := s.manager.ToggleDevices(r.Context(), account.PatToken, doc.Plan.Location, []model.Device{target}, toggles(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
