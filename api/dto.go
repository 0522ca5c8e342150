/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - engine/types.go: The domain model these mirror
*/
package api

import (
	"time"

	"github.com/warp/payroll-engine/engine"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// RecordShiftRequest creates a shift. end may be omitted for an open shift;
// open shifts are stored but not aggregated until closed.
type RecordShiftRequest struct {
	EmployeeID  string  `json:"employee_id"`
	Start       string  `json:"start"`                  // RFC3339
	End         *string `json:"end,omitempty"`          // RFC3339
	ActivityTag string  `json:"activity_tag,omitempty"` // driving | passenger | equipment
	Notes       string  `json:"notes,omitempty"`
}

// CorrectShiftRequest replaces a shift's boundaries. Every correction
// re-triggers segmentation and aggregation.
type CorrectShiftRequest struct {
	Start       string  `json:"start"`
	End         *string `json:"end,omitempty"`
	ActivityTag string  `json:"activity_tag,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

// CloseShiftRequest clocks a shift out.
type CloseShiftRequest struct {
	End string `json:"end"` // RFC3339
}

// ApproveBatchRequest re-aggregates a batch of shifts.
type ApproveBatchRequest struct {
	ShiftIDs []string `json:"shift_ids"`
	Workers  int      `json:"workers,omitempty"` // concurrency bound, default 4
}

// OverrideAggregateRequest replaces a day's computed values with
// administrator-entered ones and marks the row manually overridden.
type OverrideAggregateRequest struct {
	Buckets map[string]float64 `json:"buckets"`
	Notes   string             `json:"notes,omitempty"`
}

// ShiftDTO represents a shift interval in API responses.
type ShiftDTO struct {
	ID          string  `json:"id"`
	EmployeeID  string  `json:"employee_id"`
	Start       string  `json:"start"`
	End         *string `json:"end,omitempty"`
	ActivityTag string  `json:"activity_tag,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

// SegmentDTO represents one derived classification segment.
type SegmentDTO struct {
	ShiftID  string  `json:"shift_id"`
	WorkDate string  `json:"work_date"`
	Start    string  `json:"start"`
	End      string  `json:"end"`
	Bucket   string  `json:"bucket"`
	Hours    float64 `json:"hours"`
}

// AggregateDTO represents a daily aggregate row.
type AggregateDTO struct {
	EmployeeID string             `json:"employee_id"`
	WorkDate   string             `json:"work_date"`
	Buckets    map[string]float64 `json:"buckets"`
	Total      float64            `json:"total"`
	Notes      string             `json:"notes,omitempty"`
	Override   string             `json:"override_state"`
}

// ValidationIssueDTO carries one failed invariant check, verbatim.
type ValidationIssueDTO struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// DayOutcomeDTO reports what happened to one work-date of a shift.
type DayOutcomeDTO struct {
	Date   string               `json:"date"`
	Status string               `json:"status"`
	Issues []ValidationIssueDTO `json:"issues,omitempty"`
	Error  string               `json:"error,omitempty"`
}

// AggregationReportDTO is the per-date result of processing one shift.
type AggregationReportDTO struct {
	ShiftID    string          `json:"shift_id"`
	EmployeeID string          `json:"employee_id"`
	Days       []DayOutcomeDTO `json:"days"`
}

// BatchResultDTO pairs a shift with its report or rejection.
type BatchResultDTO struct {
	ShiftID string                `json:"shift_id"`
	Report  *AggregationReportDTO `json:"report,omitempty"`
	Error   string                `json:"error,omitempty"`
}

// DedupeResultDTO reports a deduplication pass.
type DedupeResultDTO struct {
	Removed []ShiftDTO `json:"removed"`
	Kept    []ShiftDTO `json:"kept"`
}

// AuditRowDTO is one reconciled date.
type AuditRowDTO struct {
	Date             string   `json:"date"`
	EntriesTotal     float64  `json:"entries_total"`
	AggregateTotal   *float64 `json:"aggregate_total,omitempty"`
	Delta            float64  `json:"delta"`
	Discrepancy      bool     `json:"discrepancy"`
	Incomplete       bool     `json:"incomplete"`
	MissingAggregate bool     `json:"missing_aggregate"`
}

// HolidayDTO represents a legal holiday.
type HolidayDTO struct {
	Date string `json:"date"`
	Name string `json:"name,omitempty"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toShiftDTO(s engine.ShiftInterval) ShiftDTO {
	dto := ShiftDTO{
		ID:          string(s.ID),
		EmployeeID:  string(s.EmployeeID),
		Start:       s.Start.Format(time.RFC3339),
		ActivityTag: string(s.Tag),
		Notes:       s.Notes,
	}
	if s.End != nil {
		end := s.End.Format(time.RFC3339)
		dto.End = &end
	}
	return dto
}

func toShiftDTOs(shifts []engine.ShiftInterval) []ShiftDTO {
	dtos := make([]ShiftDTO, len(shifts))
	for i, s := range shifts {
		dtos[i] = toShiftDTO(s)
	}
	return dtos
}

func toSegmentDTOs(segments []engine.Segment) []SegmentDTO {
	dtos := make([]SegmentDTO, len(segments))
	for i, seg := range segments {
		dtos[i] = SegmentDTO{
			ShiftID:  string(seg.ShiftID),
			WorkDate: seg.WorkDate.String(),
			Start:    seg.Start.Format(time.RFC3339),
			End:      seg.End.Format(time.RFC3339),
			Bucket:   string(seg.Bucket),
			Hours:    seg.Hours.Float64(),
		}
	}
	return dtos
}

func toAggregateDTO(a engine.DailyAggregate) AggregateDTO {
	buckets := make(map[string]float64, len(engine.AllBuckets))
	for _, b := range engine.AllBuckets {
		buckets[string(b)] = a.BucketHours(b).Float64()
	}
	return AggregateDTO{
		EmployeeID: string(a.EmployeeID),
		WorkDate:   a.WorkDate.String(),
		Buckets:    buckets,
		Total:      a.Total().Float64(),
		Notes:      a.Notes,
		Override:   string(a.Override),
	}
}

func toReportDTO(r *engine.AggregationReport) *AggregationReportDTO {
	if r == nil {
		return nil
	}
	dto := &AggregationReportDTO{
		ShiftID:    string(r.ShiftID),
		EmployeeID: string(r.EmployeeID),
	}
	for _, day := range r.Days {
		d := DayOutcomeDTO{Date: day.Date.String(), Status: string(day.Status)}
		for _, issue := range day.Issues {
			d.Issues = append(d.Issues, ValidationIssueDTO{
				Code:    string(issue.Code),
				Message: issue.Message,
			})
		}
		if day.Err != nil {
			d.Error = day.Err.Error()
		}
		dto.Days = append(dto.Days, d)
	}
	return dto
}

func toAuditRowDTO(r engine.ReconciliationResult) AuditRowDTO {
	dto := AuditRowDTO{
		Date:             r.Date.String(),
		EntriesTotal:     r.EntriesTotal.Float64(),
		Delta:            r.Delta.Float64(),
		Discrepancy:      r.Discrepancy,
		Incomplete:       r.Incomplete,
		MissingAggregate: r.MissingAggregate,
	}
	if r.AggregateTotal != nil {
		total := r.AggregateTotal.Float64()
		dto.AggregateTotal = &total
	}
	return dto
}
