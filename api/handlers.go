/*
handlers.go - HTTP API handlers for the payroll-hour engine

PURPOSE:
  Exposes the shift-segmentation engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to engine logic.

ENDPOINTS:
  Shifts:
    POST   /api/shifts                      Record a shift (aggregates if closed)
    GET    /api/shifts/{id}                 Get a shift
    GET    /api/shifts/{id}/segments        Get a shift's derived segments
    PUT    /api/shifts/{id}                 Manual correction (re-aggregates)
    POST   /api/shifts/{id}/close           Clock out (aggregates)

  Approvals:
    POST   /api/approvals                   Bulk re-aggregation of a batch

  Teams:
    POST   /api/teams/{id}/dedupe           Duplicate-shift sweep for a date

  Employees:
    GET    /api/employees/{id}/aggregates   Daily aggregates in a range
    GET    /api/employees/{id}/audit        Reconciliation report (JSON or CSV)
    PUT    /api/employees/{id}/aggregates/{date}/override
                                            Administrator manual override

  Holidays:
    GET    /api/holidays                    List holidays
    POST   /api/holidays                    Add a holiday
    DELETE /api/holidays/{date}             Remove a holiday

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Input errors (open shift, inverted interval, bad tag, bad dates)
  - 404: Shift/aggregate not found
  - 409: Manual-override conflict
  - 500: Internal errors

  Validation failures do not fail the request: the day outcome report
  carries them verbatim with status "blocked"; operators read them there.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/payroll-engine/engine"
	"github.com/warp/payroll-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store      *sqlite.Store
	Aggregator *engine.Aggregator
	Dedupe     *engine.Deduplicator
	Auditor    *engine.Auditor
}

// NewHandler wires the engine components around a store.
func NewHandler(store *sqlite.Store) *Handler {
	agg := &engine.Aggregator{
		Shifts:     store,
		Segments:   store,
		Aggregates: store,
		Holidays:   store,
	}
	return &Handler{
		Store:      store,
		Aggregator: agg,
		Dedupe: &engine.Deduplicator{
			Shifts:     store,
			Segments:   store,
			Teams:      store,
			Aggregator: agg,
		},
		Auditor: &engine.Auditor{
			Shifts:     store,
			Aggregates: store,
		},
	}
}

// =============================================================================
// SHIFT HANDLERS
// =============================================================================

// RecordShift creates a shift. Closed shifts are aggregated immediately;
// open shifts wait for CloseShift.
func (h *Handler) RecordShift(w http.ResponseWriter, r *http.Request) {
	var req RecordShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.EmployeeID == "" {
		writeError(w, http.StatusBadRequest, "employee_id is required", nil)
		return
	}

	shift, err := shiftFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift", err)
		return
	}

	if err := h.Store.SaveShift(r.Context(), *shift); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save shift", err)
		return
	}

	resp := map[string]any{"shift": toShiftDTO(*shift)}
	if !shift.IsOpen() {
		report, err := h.Aggregator.ProcessShift(r.Context(), *shift)
		if err != nil {
			writeError(w, statusForEngineErr(err), "Aggregation failed", err)
			return
		}
		resp["report"] = toReportDTO(report)
	}
	writeJSON(w, http.StatusCreated, resp)
}

// GetShift returns a single shift.
func (h *Handler) GetShift(w http.ResponseWriter, r *http.Request) {
	shift, err := h.Store.GetShift(r.Context(), engine.ShiftID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, statusForEngineErr(err), "Failed to get shift", err)
		return
	}
	writeJSON(w, http.StatusOK, toShiftDTO(*shift))
}

// GetShiftSegments returns a shift's derived segments.
func (h *Handler) GetShiftSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := h.Store.ListByShift(r.Context(), engine.ShiftID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list segments", err)
		return
	}
	writeJSON(w, http.StatusOK, toSegmentDTOs(segments))
}

// CorrectShift replaces a shift's boundaries and re-aggregates. Admin edits
// go through here; every mutation re-triggers segmentation.
func (h *Handler) CorrectShift(w http.ResponseWriter, r *http.Request) {
	id := engine.ShiftID(chi.URLParam(r, "id"))

	existing, err := h.Store.GetShift(r.Context(), id)
	if err != nil {
		writeError(w, statusForEngineErr(err), "Failed to get shift", err)
		return
	}

	var req CorrectShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	shift, err := shiftFromRequest(RecordShiftRequest{
		EmployeeID:  string(existing.EmployeeID),
		Start:       req.Start,
		End:         req.End,
		ActivityTag: req.ActivityTag,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid shift", err)
		return
	}
	shift.ID = id
	shift.CreatedAt = existing.CreatedAt

	if err := h.Store.SaveShift(r.Context(), *shift); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save shift", err)
		return
	}

	resp := map[string]any{"shift": toShiftDTO(*shift)}
	if !shift.IsOpen() {
		report, err := h.Aggregator.ProcessShift(r.Context(), *shift)
		if err != nil {
			writeError(w, statusForEngineErr(err), "Aggregation failed", err)
			return
		}
		resp["report"] = toReportDTO(report)
	}
	writeJSON(w, http.StatusOK, resp)
}

// CloseShift sets the end instant and aggregates.
func (h *Handler) CloseShift(w http.ResponseWriter, r *http.Request) {
	id := engine.ShiftID(chi.URLParam(r, "id"))

	shift, err := h.Store.GetShift(r.Context(), id)
	if err != nil {
		writeError(w, statusForEngineErr(err), "Failed to get shift", err)
		return
	}

	var req CloseShiftRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end instant", err)
		return
	}
	if !end.After(shift.Start) {
		writeError(w, http.StatusBadRequest, "End must be after start", engine.ErrInvalidInterval)
		return
	}

	shift.End = &end
	if err := h.Store.SaveShift(r.Context(), *shift); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save shift", err)
		return
	}

	report, err := h.Aggregator.ProcessShift(r.Context(), *shift)
	if err != nil {
		writeError(w, statusForEngineErr(err), "Aggregation failed", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"shift":  toShiftDTO(*shift),
		"report": toReportDTO(report),
	})
}

// =============================================================================
// APPROVAL HANDLERS
// =============================================================================

// ApproveBatch re-aggregates a batch of shifts with bounded concurrency.
func (h *Handler) ApproveBatch(w http.ResponseWriter, r *http.Request) {
	var req ApproveBatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var shifts []engine.ShiftInterval
	for _, id := range req.ShiftIDs {
		shift, err := h.Store.GetShift(r.Context(), engine.ShiftID(id))
		if err != nil {
			writeError(w, statusForEngineErr(err), "Failed to load shift "+id, err)
			return
		}
		shifts = append(shifts, *shift)
	}

	workers := req.Workers
	if workers <= 0 {
		workers = 4
	}

	results := h.Aggregator.ProcessBatch(r.Context(), shifts, workers)
	dtos := make([]BatchResultDTO, len(results))
	for i, res := range results {
		dtos[i] = BatchResultDTO{ShiftID: string(res.ShiftID), Report: toReportDTO(res.Report)}
		if res.Err != nil {
			dtos[i].Error = res.Err.Error()
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": dtos})
}

// =============================================================================
// TEAM HANDLERS
// =============================================================================

// DedupeTeam runs the duplicate-shift sweep for a team and date.
func (h *Handler) DedupeTeam(w http.ResponseWriter, r *http.Request) {
	teamID := engine.TeamID(chi.URLParam(r, "id"))
	date, err := engine.ParseWorkDate(r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid or missing date", err)
		return
	}

	result, err := h.Dedupe.Dedupe(r.Context(), teamID, date)
	if err != nil {
		writeError(w, statusForEngineErr(err), "Deduplication failed", err)
		return
	}
	writeJSON(w, http.StatusOK, DedupeResultDTO{
		Removed: toShiftDTOs(result.Removed),
		Kept:    toShiftDTOs(result.Kept),
	})
}

// =============================================================================
// EMPLOYEE HANDLERS
// =============================================================================

// ListAggregates returns the employee's daily aggregates in a range.
func (h *Handler) ListAggregates(w http.ResponseWriter, r *http.Request) {
	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	aggregates, err := h.Store.ListAggregates(r.Context(), employeeID, from, to)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list aggregates", err)
		return
	}

	dtos := make([]AggregateDTO, len(aggregates))
	for i, a := range aggregates {
		dtos[i] = toAggregateDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// AuditEmployee returns the reconciliation report for a range. With
// ?format=csv the flat export is returned instead of JSON.
func (h *Handler) AuditEmployee(w http.ResponseWriter, r *http.Request) {
	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	from, to, err := parseDateRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", err)
		return
	}

	results, err := h.Auditor.Audit(r.Context(), employeeID, from, to)
	if err != nil {
		writeError(w, statusForEngineErr(err), "Audit failed", err)
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=audit.csv")
		if err := engine.WriteCSV(w, results); err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to write CSV", err)
		}
		return
	}

	dtos := make([]AuditRowDTO, len(results))
	for i, res := range results {
		dtos[i] = toAuditRowDTO(res)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// OverrideAggregate replaces a day's values with administrator-entered ones.
// The row is marked manually overridden; automated aggregation surfaces a
// conflict instead of touching it afterwards.
func (h *Handler) OverrideAggregate(w http.ResponseWriter, r *http.Request) {
	employeeID := engine.EmployeeID(chi.URLParam(r, "id"))
	date, err := engine.ParseWorkDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}

	var req OverrideAggregateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	agg := engine.NewDailyAggregate(employeeID, date)
	for name, hours := range req.Buckets {
		bucket := engine.Bucket(name)
		if !bucket.Valid() {
			writeError(w, http.StatusBadRequest, "Unknown bucket: "+name, nil)
			return
		}
		agg.SetBucket(bucket, engine.NewHours(hours))
	}
	agg.Notes = req.Notes
	agg.Override = engine.OverrideManual

	if issues := engine.Validate(agg, time.Now()); len(issues) > 0 {
		dtos := make([]ValidationIssueDTO, len(issues))
		for i, issue := range issues {
			dtos[i] = ValidationIssueDTO{Code: string(issue.Code), Message: issue.Message}
		}
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "Override failed validation",
			"issues": dtos,
		})
		return
	}

	if err := h.Store.UpsertAggregate(r.Context(), agg); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save override", err)
		return
	}
	writeJSON(w, http.StatusOK, toAggregateDTO(agg))
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns all configured holidays.
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	holidays, err := h.Store.ListHolidays(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list holidays", err)
		return
	}

	dtos := make([]HolidayDTO, 0, len(holidays))
	for date, name := range holidays {
		dtos = append(dtos, HolidayDTO{Date: date.String(), Name: name})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a legal holiday.
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	var req HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	date, err := engine.ParseWorkDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if err := h.Store.SaveHoliday(r.Context(), date, req.Name); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// DeleteHoliday removes a legal holiday.
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	date, err := engine.ParseWorkDate(chi.URLParam(r, "date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date", err)
		return
	}
	if err := h.Store.DeleteHoliday(r.Context(), date); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func shiftFromRequest(req RecordShiftRequest) (*engine.ShiftInterval, error) {
	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return nil, err
	}

	shift := engine.ShiftInterval{
		ID:         engine.ShiftID(uuid.NewString()),
		EmployeeID: engine.EmployeeID(req.EmployeeID),
		Start:      start,
		Tag:        engine.ActivityTag(req.ActivityTag),
		Notes:      req.Notes,
	}
	if !shift.Tag.Valid() {
		return nil, engine.ErrInvalidActivityTag
	}
	if req.End != nil {
		end, err := time.Parse(time.RFC3339, *req.End)
		if err != nil {
			return nil, err
		}
		if !end.After(start) {
			return nil, engine.ErrInvalidInterval
		}
		shift.End = &end
	}
	return &shift, nil
}

func parseDateRange(r *http.Request) (from, to engine.WorkDate, err error) {
	from, err = engine.ParseWorkDate(r.URL.Query().Get("from"))
	if err != nil {
		return
	}
	to, err = engine.ParseWorkDate(r.URL.Query().Get("to"))
	return
}

func statusForEngineErr(err error) int {
	switch {
	case engine.IsInputError(err):
		return http.StatusBadRequest
	case engine.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrManualOverride):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
