/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON shapes for the HTTP surface, decoupled from the core types.
  Dates travel as YYYY-MM-DD, times of day as HH:MM, money as decimal
  strings.

NAMING CONVENTION:
  - *DTO: response types returned to clients
  - *Request: request body types from clients

VALIDATION:
  Struct tags drive go-playground/validator; semantic checks (time
  ordering, overlap, role scope) stay in the core.

SEE ALSO:
  - handlers.go: converts between DTOs and core types
*/
package api

import (
	"time"

	"github.com/warp/worklog-engine/core"
)

// =============================================================================
// INTERVALS
// =============================================================================

// IntervalDTO represents a work interval in API responses.
type IntervalDTO struct {
	ID              string `json:"id"`
	OwnerID         string `json:"owner_id"`
	CompanyID       string `json:"company_id"`
	Date            string `json:"date"`
	Start           string `json:"start"`
	End             string `json:"end"`
	DurationHours   string `json:"duration_hours"`
	Note            string `json:"note,omitempty"`
	Project         string `json:"project,omitempty"`
	Status          string `json:"status"`
	RejectionReason string `json:"rejection_reason,omitempty"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}

func toIntervalDTO(iv core.WorkInterval) IntervalDTO {
	return IntervalDTO{
		ID:              iv.ID,
		OwnerID:         iv.OwnerID,
		CompanyID:       iv.CompanyID,
		Date:            iv.Date.String(),
		Start:           iv.Start.String(),
		End:             iv.End.String(),
		DurationHours:   iv.DurationHours().String(),
		Note:            iv.Note,
		Project:         iv.ProjectLabel,
		Status:          string(iv.Status),
		RejectionReason: iv.RejectionReason,
		CreatedAt:       iv.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       iv.UpdatedAt.Format(time.RFC3339),
	}
}

// CreateIntervalRequest books a new interval for the caller.
type CreateIntervalRequest struct {
	Date    string `json:"date" validate:"required"`
	Start   string `json:"start" validate:"required"`
	End     string `json:"end" validate:"required"`
	Note    string `json:"note" validate:"max=500"`
	Project string `json:"project" validate:"max=200"`
}

// UpdateIntervalRequest edits an interval; nil fields are untouched.
type UpdateIntervalRequest struct {
	Date    *string `json:"date"`
	Start   *string `json:"start"`
	End     *string `json:"end"`
	Note    *string `json:"note" validate:"omitempty,max=500"`
	Project *string `json:"project" validate:"omitempty,max=200"`
}

// RejectIntervalRequest carries the mandatory rejection reason.
type RejectIntervalRequest struct {
	Reason string `json:"reason" validate:"required"`
}

// ConflictDTO describes one overlapping interval in a conflict report.
type ConflictDTO struct {
	IntervalID   string   `json:"interval_id"`
	Start        string   `json:"start"`
	End          string   `json:"end"`
	OverlapStart string   `json:"overlap_start"`
	OverlapEnd   string   `json:"overlap_end"`
	OverlapRange string   `json:"overlap_range"`
	Kinds        []string `json:"kinds"`
}

func toConflictDTOs(conflicts []core.Conflict) []ConflictDTO {
	out := make([]ConflictDTO, len(conflicts))
	for i, c := range conflicts {
		kinds := make([]string, len(c.Kinds))
		for j, k := range c.Kinds {
			kinds[j] = string(k)
		}
		out[i] = ConflictDTO{
			IntervalID:   c.IntervalID,
			Start:        c.Start.String(),
			End:          c.End.String(),
			OverlapStart: c.OverlapStart.String(),
			OverlapEnd:   c.OverlapEnd.String(),
			OverlapRange: c.OverlapRange(),
			Kinds:        kinds,
		}
	}
	return out
}

// ReviewDTO is one entry of an interval's review history.
type ReviewDTO struct {
	ID         string `json:"id"`
	ReviewerID string `json:"reviewer_id"`
	Decision   string `json:"decision"`
	Reason     string `json:"reason,omitempty"`
	CreatedAt  string `json:"created_at"`
}

// =============================================================================
// PAYMENTS
// =============================================================================

// PaymentDTO represents a payment with its allocations.
type PaymentDTO struct {
	ID          string          `json:"id"`
	PayeeID     string          `json:"payee_id"`
	CompanyID   string          `json:"company_id"`
	CreatorID   string          `json:"creator_id"`
	Amount      string          `json:"amount"`
	IssueDate   string          `json:"issue_date"`
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	Method      string          `json:"payment_method"`
	Status      string          `json:"status"`
	Reference   string          `json:"reference,omitempty"`
	ReceiptURL  string          `json:"receipt_url,omitempty"`
	ConfirmedAt string          `json:"confirmed_at,omitempty"`
	CreatedAt   string          `json:"created_at"`
	Allocations []AllocationDTO `json:"allocations"`
}

// AllocationDTO is one payment-to-interval link.
type AllocationDTO struct {
	IntervalID string `json:"interval_id"`
	Amount     string `json:"amount"`
}

func toPaymentDTO(p core.Payment) PaymentDTO {
	dto := PaymentDTO{
		ID:          p.ID,
		PayeeID:     p.PayeeID,
		CompanyID:   p.CompanyID,
		CreatorID:   p.CreatorID,
		Amount:      p.Amount.String(),
		IssueDate:   p.IssueDate.String(),
		PeriodStart: p.PeriodStart.String(),
		PeriodEnd:   p.PeriodEnd.String(),
		Method:      string(p.Method),
		Status:      string(p.Status),
		Reference:   p.Reference,
		ReceiptURL:  p.ReceiptURL,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339),
		Allocations: make([]AllocationDTO, len(p.Allocations)),
	}
	if p.ConfirmedAt != nil {
		dto.ConfirmedAt = p.ConfirmedAt.Format(time.RFC3339)
	}
	for i, a := range p.Allocations {
		dto.Allocations[i] = AllocationDTO{IntervalID: a.IntervalID, Amount: a.Amount.String()}
	}
	return dto
}

// CreatePaymentRequest reconciles approved intervals into one payment.
type CreatePaymentRequest struct {
	PayeeID     string   `json:"payee_id" validate:"required"`
	IntervalIDs []string `json:"interval_ids" validate:"required,min=1,dive,required"`
	Amount      string   `json:"amount"` // optional override, decimal string
	Method      string   `json:"payment_method" validate:"required"`
	Reference   string   `json:"reference" validate:"max=200"`
	PeriodStart string   `json:"period_start" validate:"required"`
	PeriodEnd   string   `json:"period_end" validate:"required"`
}

// UpdatePaymentStatusRequest advances a payment's lifecycle.
type UpdatePaymentStatusRequest struct {
	Status      string  `json:"status" validate:"required"`
	ConfirmedAt *string `json:"confirmed_at"` // YYYY-MM-DD
	ReceiptURL  *string `json:"receipt_url" validate:"omitempty,url"`
	Reference   *string `json:"reference" validate:"omitempty,max=200"`
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error envelope. Conflict responses also
// carry the structured diagnostics.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`

	// Interval overlap conflicts.
	Conflicts []ConflictDTO `json:"conflicts,omitempty"`

	// Already-allocated payment conflicts.
	PaidIntervalIDs []string `json:"paid_interval_ids,omitempty"`
}
