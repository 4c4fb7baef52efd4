/*
handlers.go - HTTP handlers for the worklog engine

PURPOSE:
  Binds the transport-agnostic core operations to HTTP verbs and JSON
  bodies. Handlers parse and validate input, resolve the actor, call a
  core service, and translate domain errors to status codes.

ENDPOINTS:
  Intervals:
    GET    /api/intervals               List (scoped)
    POST   /api/intervals               Create
    GET    /api/intervals/{id}          Get
    PUT    /api/intervals/{id}          Update
    DELETE /api/intervals/{id}          Delete
    POST   /api/intervals/{id}/approve  Approve
    POST   /api/intervals/{id}/reject   Reject
    GET    /api/intervals/{id}/reviews  Review history

  Payments:
    GET    /api/payments                List (scoped)
    POST   /api/payments                Reconcile intervals into a payment
    GET    /api/payments/{id}           Get
    PUT    /api/payments/{id}/status    Advance lifecycle
    DELETE /api/payments/{id}           Delete (cascades allocations)

ERROR MAPPING:
  400 validation        401 no identity       403 insufficient scope
  404 missing OR out-of-scope (indistinguishable by design)
  409 conflict, with the structured report   500 generic message only

SEE ALSO:
  - dto.go: request/response shapes
  - middleware.go: actor resolution
  - server.go: router wiring
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/worklog-engine/core"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store     core.Store
	Intervals *core.IntervalService
	Approvals *core.ApprovalService
	Payments  *core.PaymentService
	Log       *logrus.Logger
	Metrics   *Metrics // optional

	validate *validator.Validate
}

// NewHandler wires the services over one store.
func NewHandler(store core.Store, notifier core.Notifier, clock core.Clock, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{
		Store:     store,
		Intervals: core.NewIntervalService(store, notifier, clock),
		Approvals: core.NewApprovalService(store, notifier, clock),
		Payments:  core.NewPaymentService(store, notifier, clock),
		Log:       log,
		validate:  validator.New(),
	}
}

// =============================================================================
// INTERVAL HANDLERS
// =============================================================================

// ListIntervals returns intervals visible to the caller.
func (h *Handler) ListIntervals(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	q := r.URL.Query()

	f := core.IntervalFilter{OwnerID: q.Get("owner_id")}
	if v := q.Get("from"); v != "" {
		day, err := core.ParseDay(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date", err)
			return
		}
		f.From = &day
	}
	if v := q.Get("to"); v != "" {
		day, err := core.ParseDay(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
		f.To = &day
	}
	if v := q.Get("status"); v != "" {
		status := core.IntervalStatus(v)
		f.Status = &status
	}
	f.UnpaidOnly = q.Get("unpaid_only") == "true"
	f.SortDesc = q.Get("sort") == "desc"
	f.Limit, f.Offset = pagination(q.Get("page"), q.Get("per_page"))

	scope := core.ScopeFor(actor)
	if q.Get("include_own") == "true" {
		scope = scope.WithOwnRecords()
	}

	intervals, err := h.Intervals.List(r.Context(), scope, f)
	if err != nil {
		h.writeDomainError(w, "Failed to list intervals", err)
		return
	}

	dtos := make([]IntervalDTO, len(intervals))
	for i, iv := range intervals {
		dtos[i] = toIntervalDTO(iv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateInterval books a new interval for the caller.
func (h *Handler) CreateInterval(w http.ResponseWriter, r *http.Request) {
	var req CreateIntervalRequest
	if !h.decode(w, r, &req) {
		return
	}

	in, err := parseCreateInterval(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid interval", err)
		return
	}

	iv, err := h.Intervals.Create(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		h.writeDomainError(w, "Failed to create interval", err)
		return
	}
	inc(h.metric(func(m *Metrics) prometheus.Counter { return m.IntervalsCreated }))
	writeJSON(w, http.StatusCreated, toIntervalDTO(*iv))
}

func parseCreateInterval(req CreateIntervalRequest) (core.CreateIntervalInput, error) {
	var in core.CreateIntervalInput
	day, err := core.ParseDay(req.Date)
	if err != nil {
		return in, err
	}
	start, err := core.ParseMinuteOfDay(req.Start)
	if err != nil {
		return in, err
	}
	end, err := core.ParseMinuteOfDay(req.End)
	if err != nil {
		return in, err
	}
	in.Date = day
	in.Start = start
	in.End = end
	in.Note = req.Note
	in.ProjectLabel = req.Project
	return in, nil
}

// GetInterval returns one interval within the caller's scope.
func (h *Handler) GetInterval(w http.ResponseWriter, r *http.Request) {
	iv, err := h.Intervals.Get(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get interval", err)
		return
	}
	writeJSON(w, http.StatusOK, toIntervalDTO(*iv))
}

// UpdateInterval edits an interval owned by the caller.
func (h *Handler) UpdateInterval(w http.ResponseWriter, r *http.Request) {
	var req UpdateIntervalRequest
	if !h.decode(w, r, &req) {
		return
	}

	var in core.UpdateIntervalInput
	if req.Date != nil {
		day, err := core.ParseDay(*req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date", err)
			return
		}
		in.Date = &day
	}
	if req.Start != nil {
		start, err := core.ParseMinuteOfDay(*req.Start)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid start time", err)
			return
		}
		in.Start = &start
	}
	if req.End != nil {
		end, err := core.ParseMinuteOfDay(*req.End)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid end time", err)
			return
		}
		in.End = &end
	}
	in.Note = req.Note
	in.ProjectLabel = req.Project

	iv, err := h.Intervals.Update(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeDomainError(w, "Failed to update interval", err)
		return
	}
	writeJSON(w, http.StatusOK, toIntervalDTO(*iv))
}

// DeleteInterval removes an unallocated interval.
func (h *Handler) DeleteInterval(w http.ResponseWriter, r *http.Request) {
	err := h.Intervals.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to delete interval", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApproveInterval applies a reviewer approval. Idempotent.
func (h *Handler) ApproveInterval(w http.ResponseWriter, r *http.Request) {
	iv, err := h.Approvals.Approve(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to approve interval", err)
		return
	}
	inc(h.metric(func(m *Metrics) prometheus.Counter { return m.IntervalsApproved }))
	writeJSON(w, http.StatusOK, toIntervalDTO(*iv))
}

// RejectInterval applies a reviewer rejection with a mandatory reason.
func (h *Handler) RejectInterval(w http.ResponseWriter, r *http.Request) {
	var req RejectIntervalRequest
	if !h.decode(w, r, &req) {
		return
	}
	iv, err := h.Approvals.Reject(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.writeDomainError(w, "Failed to reject interval", err)
		return
	}
	inc(h.metric(func(m *Metrics) prometheus.Counter { return m.IntervalsRejected }))
	writeJSON(w, http.StatusOK, toIntervalDTO(*iv))
}

// ListIntervalReviews returns the append-only review history.
func (h *Handler) ListIntervalReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.Intervals.Reviews(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to list reviews", err)
		return
	}
	dtos := make([]ReviewDTO, len(reviews))
	for i, rev := range reviews {
		dtos[i] = ReviewDTO{
			ID:         rev.ID,
			ReviewerID: rev.ReviewerID,
			Decision:   string(rev.Decision),
			Reason:     rev.Reason,
			CreatedAt:  rev.CreatedAt.Format(timeRFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// ListPayments returns payments visible to the caller.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	q := r.URL.Query()

	f := core.PaymentFilter{PayeeID: q.Get("payee_id")}
	if v := q.Get("status"); v != "" {
		status := core.PaymentStatus(v)
		f.Status = &status
	}
	if v := q.Get("from"); v != "" {
		day, err := core.ParseDay(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid from date", err)
			return
		}
		f.From = &day
	}
	if v := q.Get("to"); v != "" {
		day, err := core.ParseDay(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid to date", err)
			return
		}
		f.To = &day
	}
	f.SortDesc = q.Get("sort") == "desc"
	f.Limit, f.Offset = pagination(q.Get("page"), q.Get("per_page"))

	payments, err := h.Payments.List(r.Context(), core.ScopeFor(actor), f)
	if err != nil {
		h.writeDomainError(w, "Failed to list payments", err)
		return
	}
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		dtos[i] = toPaymentDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePayment reconciles approved intervals into a payment.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	var req CreatePaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	in := core.CreatePaymentInput{
		PayeeID:     req.PayeeID,
		IntervalIDs: req.IntervalIDs,
		Method:      core.PaymentMethod(req.Method),
		Reference:   req.Reference,
	}
	if req.Amount != "" {
		amount, err := decimal.NewFromString(req.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return
		}
		in.AmountOverride = &amount
	}
	var err error
	if in.PeriodStart, err = core.ParseDay(req.PeriodStart); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period start", err)
		return
	}
	if in.PeriodEnd, err = core.ParseDay(req.PeriodEnd); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period end", err)
		return
	}

	p, err := h.Payments.Create(r.Context(), actorFrom(r.Context()), in)
	if err != nil {
		h.writeDomainError(w, "Failed to create payment", err)
		return
	}
	inc(h.metric(func(m *Metrics) prometheus.Counter { return m.PaymentsCreated }))
	writeJSON(w, http.StatusCreated, toPaymentDTO(*p))
}

// GetPayment returns one payment within the caller's scope.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := h.Payments.Get(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to get payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*p))
}

// UpdatePaymentStatus advances a payment's lifecycle under role rules.
func (h *Handler) UpdatePaymentStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdatePaymentStatusRequest
	if !h.decode(w, r, &req) {
		return
	}
	in := core.UpdateStatusInput{
		Status:     core.PaymentStatus(req.Status),
		ReceiptURL: req.ReceiptURL,
		Reference:  req.Reference,
	}
	if req.ConfirmedAt != nil {
		day, err := core.ParseDay(*req.ConfirmedAt)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid confirmed_at date", err)
			return
		}
		in.ConfirmedAt = &day
	}
	p, err := h.Payments.UpdateStatus(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"), in)
	if err != nil {
		h.writeDomainError(w, "Failed to update payment", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentDTO(*p))
}

// DeletePayment removes a payment and returns its intervals to the
// unpaid pool.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	err := h.Payments.Delete(r.Context(), actorFrom(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, "Failed to delete payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Health is a liveness probe.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

const timeRFC3339 = "2006-01-02T15:04:05Z07:00"

// decode parses and validates a JSON body; writes the 400 itself.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err)
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// writeDomainError maps core errors onto HTTP. Internal failures are
// logged with detail and surfaced as a generic message only.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	var report *core.ConflictReport
	if errors.As(err, &report) {
		inc(h.metric(func(m *Metrics) prometheus.Counter { return m.IntervalConflicts }))
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:     "Interval overlaps existing intervals",
			Details:   report.Error(),
			Conflicts: toConflictDTOs(report.Conflicts),
		})
		return
	}
	var alloc *core.AllocationConflict
	if errors.As(err, &alloc) {
		inc(h.metric(func(m *Metrics) prometheus.Counter { return m.AllocationConflicts }))
		writeJSON(w, http.StatusConflict, ErrorResponse{
			Error:           "Intervals already allocated to a payment",
			PaidIntervalIDs: alloc.IntervalIDs,
		})
		return
	}

	switch {
	case errors.Is(err, core.ErrNoEligibleIntervals):
		writeError(w, http.StatusBadRequest, "No eligible intervals", err)
	case core.IsValidation(err):
		writeError(w, http.StatusBadRequest, message, err)
	case errors.Is(err, core.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, message, err)
	case errors.Is(err, core.ErrIntervalAllocated):
		writeError(w, http.StatusForbidden, "Interval is allocated to a payment", nil)
	case core.IsForbidden(err):
		writeError(w, http.StatusForbidden, message, err)
	case core.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", nil)
	case core.IsConflict(err):
		writeError(w, http.StatusConflict, message, err)
	default:
		h.Log.WithError(err).Error(message)
		writeError(w, http.StatusInternalServerError, message, nil)
	}
}

func pagination(page, perPage string) (limit, offset int) {
	p, _ := strconv.Atoi(page)
	pp, _ := strconv.Atoi(perPage)
	if pp <= 0 {
		return 0, 0
	}
	if p < 1 {
		p = 1
	}
	return pp, (p - 1) * pp
}

// metric fetches a counter when metrics are enabled; nil otherwise.
func (h *Handler) metric(get func(*Metrics) prometheus.Counter) prometheus.Counter {
	if h.Metrics == nil {
		return nil
	}
	return get(h.Metrics)
}

func inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
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
