/*
handlers.go - HTTP handler implementations

PURPOSE:
  The read surface over the compliance engine. Every endpoint loads
  snapshots from the store, runs the pure computation, and renders DTOs -
  nothing here caches derived results across requests, matching the
  engine's recompute-on-demand contract.

ENDPOINTS:
  GET  /api/members/{id}/compliance    Per-member ComplianceResult
  GET  /api/members/{id}/requirements  Per-requirement evaluations
  GET  /api/compliance/matrix          Member x requirement grid
  GET  /api/requirements               Requirement configs
  POST /api/requirements               Create/update a requirement
  POST /api/alerts/run                 Manual daily alert pass
  GET  /api/health                     Liveness

SEE ALSO:
  - server.go: Route wiring
  - scheduler.go: Automated daily alert pass
*/
package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stationops/compliance-engine/certs"
	"github.com/stationops/compliance-engine/compliance"
	"github.com/stationops/compliance-engine/factory"
	"github.com/stationops/compliance-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store *sqlite.Store
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store) *Handler {
	return &Handler{Store: store}
}

// evaluator builds a fresh evaluator over the current course catalog.
func (h *Handler) evaluator(r *http.Request) (*compliance.Evaluator, error) {
	catalog, err := h.Store.CourseCatalog(r.Context())
	if err != nil {
		return nil, err
	}
	return &compliance.Evaluator{Catalog: catalog}, nil
}

// =============================================================================
// MEMBER COMPLIANCE
// =============================================================================

// GetMemberCompliance returns the ComplianceResult for one member.
func (h *Handler) GetMemberCompliance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID := compliance.MemberID(chi.URLParam(r, "id"))

	member, err := h.Store.GetMember(ctx, memberID)
	if err != nil {
		respondError(w, err)
		return
	}
	evaluator, err := h.evaluator(r)
	if err != nil {
		respondError(w, err)
		return
	}
	reqs, err := h.Store.ListRequirements(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	records, err := h.Store.RecordsByMember(ctx, memberID)
	if err != nil {
		respondError(w, err)
		return
	}
	waivers, err := h.Store.WaiversByMember(ctx, memberID)
	if err != nil {
		respondError(w, err)
		return
	}

	result := evaluator.EvaluateMember(member, reqs, records, waivers, compliance.Today())
	writeJSON(w, http.StatusOK, toComplianceResultDTO(result))
}

// GetMemberRequirements returns the per-requirement evaluations for a member.
func (h *Handler) GetMemberRequirements(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	memberID := compliance.MemberID(chi.URLParam(r, "id"))

	member, err := h.Store.GetMember(ctx, memberID)
	if err != nil {
		respondError(w, err)
		return
	}
	evaluator, err := h.evaluator(r)
	if err != nil {
		respondError(w, err)
		return
	}
	reqs, err := h.Store.ListRequirements(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	records, err := h.Store.RecordsByMember(ctx, memberID)
	if err != nil {
		respondError(w, err)
		return
	}
	waivers, err := h.Store.WaiversByMember(ctx, memberID)
	if err != nil {
		respondError(w, err)
		return
	}

	today := compliance.Today()
	dtos := []EvaluationDTO{}
	for _, req := range reqs {
		if !req.AppliesTo(member) {
			continue
		}
		dtos = append(dtos, toEvaluationDTO(evaluator.Evaluate(req, records, waivers, today)))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// COMPLIANCE MATRIX
// =============================================================================

// GetMatrix returns the member x requirement grid, computed fresh.
func (h *Handler) GetMatrix(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	evaluator, err := h.evaluator(r)
	if err != nil {
		respondError(w, err)
		return
	}
	members, err := h.Store.ListMembers(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	reqs, err := h.Store.ListRequirements(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	records, err := h.Store.ListRecords(ctx)
	if err != nil {
		respondError(w, err)
		return
	}

	input := compliance.MatrixInput{
		Members:         members,
		Requirements:    reqs,
		RecordsByMember: make(map[compliance.MemberID][]compliance.TrainingRecord),
		WaiversByMember: make(map[compliance.MemberID][]compliance.WaiverPeriod),
		Today:           compliance.Today(),
	}
	for _, rec := range records {
		input.RecordsByMember[rec.MemberID] = append(input.RecordsByMember[rec.MemberID], rec)
	}
	for _, m := range members {
		waivers, err := h.Store.WaiversByMember(ctx, m.ID)
		if err != nil {
			respondError(w, err)
			return
		}
		input.WaiversByMember[m.ID] = waivers
	}

	builder := &compliance.MatrixBuilder{Evaluator: evaluator}
	writeJSON(w, http.StatusOK, toMatrixDTO(builder.Build(input)))
}

// =============================================================================
// REQUIREMENTS
// =============================================================================

// ListRequirements returns all requirement configs.
func (h *Handler) ListRequirements(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Store.ListRequirements(r.Context())
	if err != nil {
		respondError(w, err)
		return
	}
	dtos := []RequirementDTO{}
	for _, req := range reqs {
		dtos = append(dtos, RequirementDTO{Config: factory.FromRequirement(req)})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRequirement validates and stores a requirement definition.
func (h *Handler) CreateRequirement(w http.ResponseWriter, r *http.Request) {
	var body CreateRequirementRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	req, err := factory.Build(body.Config)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	if err := h.Store.SaveRequirement(r.Context(), req); err != nil {
		respondError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, RequirementDTO{Config: factory.FromRequirement(req)})
}

// =============================================================================
// ALERTS
// =============================================================================

// RunAlerts triggers a daily alert pass and returns the fired events.
// Safe to call repeatedly: the tier CAS makes duplicate runs no-ops.
func (h *Handler) RunAlerts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	catalog, err := h.Store.CourseCatalog(ctx)
	if err != nil {
		respondError(w, err)
		return
	}
	records, err := h.Store.ListRecords(ctx)
	if err != nil {
		respondError(w, err)
		return
	}

	tracker := certs.NewTracker(h.Store, catalog)
	today := compliance.Today()
	events, err := tracker.RunDailyPass(ctx, today, records)
	if err != nil {
		respondError(w, err)
		return
	}

	run := AlertRunDTO{
		RanAt:          today.String(),
		RecordsVisited: len(records),
		Events:         []AlertEventDTO{},
	}
	for _, e := range events {
		run.Events = append(run.Events, toAlertEventDTO(e))
	}
	writeJSON(w, http.StatusOK, run)
}

// Health is the liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if compliance.IsNotFound(err) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
