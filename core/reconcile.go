/*
reconcile.go - Payment reconciliation engine

PURPOSE:
  Groups approved, unpaid intervals into a payment and apportions the
  amount across them. At-most-one-payment-per-interval is the invariant
  everything here protects.

ALGORITHM (create):
  1. Resolve candidate interval ids; any miss fails not-found
  2. Keep only APPROVED intervals; empty set fails
  3. Any candidate already allocated fails the whole batch
  4. amount = override, or total hours × payee hourly rate
  5. Per-interval share = amount × duration / total, rounded to cents,
     remainder folded into the last allocation so the sum is exact
  6. Payment + allocations insert in one transaction; the unique index
     on allocation interval ids catches the race two concurrent
     reconciliations would otherwise win together

UPDATE RULES:
  A payee confirms receipt: PENDING/AWAITING_CONFIRMATION → COMPLETED,
  nothing else. A privileged role may set any status (including
  CANCELLED) and correct receipt metadata. Deletion cascades the
  allocations and is privileged-only.
*/
package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentService orchestrates payment creation and lifecycle.
type PaymentService struct {
	Store    Store
	Notifier Notifier
	Clock    Clock
}

func NewPaymentService(store Store, notifier Notifier, clock Clock) *PaymentService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &PaymentService{Store: store, Notifier: notifier, Clock: clock}
}

// CreatePaymentInput carries the reconciliation request.
type CreatePaymentInput struct {
	PayeeID     string
	IntervalIDs []string

	// AmountOverride, when positive, replaces the hours × rate amount.
	AmountOverride *decimal.Decimal

	Method      PaymentMethod
	Reference   string
	PeriodStart Day
	PeriodEnd   Day
}

// Create reconciles the candidate intervals into one payment.
func (s *PaymentService) Create(ctx context.Context, actor Actor, in CreatePaymentInput) (*Payment, error) {
	if err := s.validateCreate(in); err != nil {
		return nil, err
	}

	payee, err := s.Store.GetWorker(ctx, in.PayeeID)
	if err != nil {
		return nil, err
	}
	if payee == nil {
		return nil, fmt.Errorf("payee %s: %w", in.PayeeID, ErrNotFound)
	}
	if !actor.IsPrivileged(payee.CompanyID) {
		return nil, fmt.Errorf("payment creation is a privileged operation: %w", ErrForbidden)
	}

	// An interval named twice is still one candidate, never two
	// allocations.
	ids := uniqueIDs(in.IntervalIDs)

	intervals, err := s.resolveCandidates(ctx, in.PayeeID, ids)
	if err != nil {
		return nil, err
	}

	eligible := make([]WorkInterval, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Status == IntervalApproved {
			eligible = append(eligible, iv)
		}
	}
	if len(eligible) == 0 {
		return nil, ErrNoEligibleIntervals
	}

	// Pre-flight allocation check over ALL candidates, not just the
	// eligible subset: a paid candidate fails the batch even if it is
	// no longer approved.
	taken, err := s.Store.AllocatedIntervalIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	if len(taken) > 0 {
		return nil, &AllocationConflict{IntervalIDs: taken}
	}

	amount, allocations := apportion(eligible, in.AmountOverride, payee.HourlyRate)

	now := s.Clock.Now()
	p := &Payment{
		ID:          uuid.NewString(),
		PayeeID:     payee.ID,
		CompanyID:   payee.CompanyID,
		CreatorID:   actor.ID,
		Amount:      amount,
		IssueDate:   DayOf(now),
		PeriodStart: in.PeriodStart,
		PeriodEnd:   in.PeriodEnd,
		Method:      in.Method,
		Status:      PaymentPending,
		Reference:   in.Reference,
		CreatedAt:   now,
		UpdatedAt:   now,
		Allocations: allocations,
	}
	for i := range p.Allocations {
		p.Allocations[i].ID = uuid.NewString()
		p.Allocations[i].PaymentID = p.ID
	}

	// The store's unique index is the arbiter for the check-then-insert
	// race; a concurrent winner surfaces here as *AllocationConflict.
	if err := s.Store.CreatePayment(ctx, p); err != nil {
		return nil, err
	}
	s.Notifier.PaymentCreated(ctx, *p)
	return p, nil
}

func (s *PaymentService) validateCreate(in CreatePaymentInput) error {
	if in.PayeeID == "" {
		return &FieldError{Field: "payee_id", Message: "payee is required"}
	}
	if len(in.IntervalIDs) == 0 {
		return &FieldError{Field: "interval_ids", Message: "at least one interval is required"}
	}
	if !ValidPaymentMethod(in.Method) {
		return &FieldError{Field: "payment_method", Message: "unknown payment method"}
	}
	if in.PeriodStart.IsZero() || in.PeriodEnd.IsZero() {
		return &FieldError{Field: "period", Message: "period start and end are required"}
	}
	if in.PeriodEnd.Before(in.PeriodStart) {
		return &FieldError{Field: "period", Message: "period end before start"}
	}
	if in.AmountOverride != nil && !in.AmountOverride.IsPositive() {
		return &FieldError{Field: "amount", Message: "amount override must be positive"}
	}
	return nil
}

// uniqueIDs drops duplicate ids, keeping first-seen order.
func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// resolveCandidates loads the candidate set, failing on unresolved ids
// or intervals not owned by the payee.
func (s *PaymentService) resolveCandidates(ctx context.Context, payeeID string, ids []string) ([]WorkInterval, error) {
	intervals, err := s.Store.ListIntervalsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	found := make(map[string]bool, len(intervals))
	for _, iv := range intervals {
		found[iv.ID] = true
		if iv.OwnerID != payeeID {
			return nil, &FieldError{Field: "interval_ids",
				Message: fmt.Sprintf("interval %s is not owned by payee %s", iv.ID, payeeID)}
		}
	}
	var missing []string
	for _, id := range ids {
		if !found[id] {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingIntervalsError{IntervalIDs: missing}
	}
	return intervals, nil
}

// apportion computes the payment amount and its per-interval split.
// Each share is amount × duration / total rounded to cents; the rounding
// remainder lands on the last allocation so the amounts sum exactly.
func apportion(eligible []WorkInterval, override *decimal.Decimal, hourlyRate decimal.Decimal) (decimal.Decimal, []PaymentAllocation) {
	total := decimal.Zero
	for _, iv := range eligible {
		total = total.Add(iv.DurationHours())
	}

	var amount decimal.Decimal
	if override != nil && override.IsPositive() {
		amount = override.Round(2)
	} else {
		amount = total.Mul(hourlyRate).Round(2)
	}

	allocations := make([]PaymentAllocation, len(eligible))
	if total.IsZero() {
		// Degenerate: intervals always have positive duration, but a
		// zero total must not divide.
		for i, iv := range eligible {
			allocations[i] = PaymentAllocation{IntervalID: iv.ID, Amount: decimal.Zero}
		}
		return amount, allocations
	}

	assigned := decimal.Zero
	for i, iv := range eligible {
		var share decimal.Decimal
		if i == len(eligible)-1 {
			share = amount.Sub(assigned)
		} else {
			share = amount.Mul(iv.DurationHours()).Div(total).Round(2)
			assigned = assigned.Add(share)
		}
		allocations[i] = PaymentAllocation{IntervalID: iv.ID, Amount: share}
	}
	return amount, allocations
}

// UpdateStatusInput carries a payment status change.
type UpdateStatusInput struct {
	Status      PaymentStatus
	ConfirmedAt *Day
	ReceiptURL  *string
	Reference   *string
}

// UpdateStatus advances a payment's lifecycle under role constraints.
func (s *PaymentService) UpdateStatus(ctx context.Context, actor Actor, id string, in UpdateStatusInput) (*Payment, error) {
	if !ValidPaymentStatus(in.Status) {
		return nil, &FieldError{Field: "status", Message: "unknown payment status"}
	}
	p, err := s.visiblePayment(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	now := s.Clock.Now()
	switch {
	case actor.IsPrivileged(p.CompanyID):
		p.Status = in.Status
		if in.ConfirmedAt != nil {
			at := in.ConfirmedAt.Time()
			p.ConfirmedAt = &at
		}
		if in.Status == PaymentCompleted && p.ConfirmedAt == nil {
			p.ConfirmedAt = &now
		}
		if in.ReceiptURL != nil {
			p.ReceiptURL = *in.ReceiptURL
		}
		if in.Reference != nil {
			p.Reference = *in.Reference
		}

	case actor.ID == p.PayeeID:
		// A payee only confirms receipt; everything else is privileged.
		if in.Status != PaymentCompleted {
			return nil, fmt.Errorf("payee may only confirm receipt: %w", ErrForbidden)
		}
		if p.Status != PaymentPending && p.Status != PaymentAwaitingConfirmation {
			return nil, fmt.Errorf("payment %s is %s and cannot be confirmed: %w", p.ID, p.Status, ErrConflict)
		}
		if in.ConfirmedAt != nil || in.ReceiptURL != nil || in.Reference != nil {
			return nil, fmt.Errorf("payee may not alter payment metadata: %w", ErrForbidden)
		}
		p.Status = PaymentCompleted
		p.ConfirmedAt = &now

	default:
		return nil, ErrForbidden
	}

	p.UpdatedAt = now
	if err := s.Store.UpdatePayment(ctx, p); err != nil {
		return nil, err
	}
	if p.Status == PaymentCompleted && actor.ID == p.PayeeID {
		s.Notifier.PaymentConfirmed(ctx, *p)
	}
	return p, nil
}

// Delete removes a payment and cascades its allocations, returning the
// intervals to the unpaid pool. Privileged roles only.
func (s *PaymentService) Delete(ctx context.Context, actor Actor, id string) error {
	p, err := s.visiblePayment(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.IsPrivileged(p.CompanyID) {
		return ErrForbidden
	}
	return s.Store.DeletePayment(ctx, id)
}

// Get returns one payment within the actor's scope.
func (s *PaymentService) Get(ctx context.Context, actor Actor, id string) (*Payment, error) {
	return s.visiblePayment(ctx, actor, id)
}

// List returns payments narrowed to the actor's scope.
func (s *PaymentService) List(ctx context.Context, scope Scope, f PaymentFilter) ([]Payment, error) {
	if err := scope.RestrictPayments(&f); err != nil {
		return nil, err
	}
	if f.PayeeID != "" && scope.Actor.Role != RoleEmployee && scope.Actor.Role != RoleDeveloper {
		payee, err := s.Store.GetWorker(ctx, f.PayeeID)
		if err != nil {
			return nil, err
		}
		if payee == nil {
			return nil, ErrNotFound
		}
		if err := scope.CheckExplicitOwner(*payee); err != nil {
			return nil, err
		}
	}
	return s.Store.ListPayments(ctx, f)
}

func (s *PaymentService) visiblePayment(ctx context.Context, actor Actor, id string) (*Payment, error) {
	p, err := s.Store.GetPayment(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrNotFound
	}
	if !ScopeFor(actor).AllowsPayment(*p) {
		return nil, ErrNotFound
	}
	return p, nil
}
