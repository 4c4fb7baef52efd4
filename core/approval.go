/*
approval.go - Interval review state machine

PURPOSE:
  PENDING → APPROVED | REJECTED, driven by eligible reviewers only.
  There is no path back to PENDING; reclassification is a fresh
  approve/reject, which is always legal for an eligible reviewer.

ELIGIBILITY:
  DEVELOPER anywhere; ADMIN or MANAGER of the owner's company. The owner
  themselves is never eligible by ownership — only by role.

IDEMPOTENCE:
  Approving an already-approved interval is a no-op success and appends
  no review record. Rejection always records, since the reason may
  change.

AUDIT TRAIL:
  Every effective decision appends one row to the review history. The
  history never participates in state decisions.
*/
package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ApprovalService drives interval status transitions.
type ApprovalService struct {
	Store    Store
	Notifier Notifier
	Clock    Clock
}

func NewApprovalService(store Store, notifier Notifier, clock Clock) *ApprovalService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &ApprovalService{Store: store, Notifier: notifier, Clock: clock}
}

// Approve marks the interval APPROVED and clears any rejection reason.
// Idempotent on already-approved intervals.
func (s *ApprovalService) Approve(ctx context.Context, actor Actor, id string) (*WorkInterval, error) {
	iv, err := s.reviewable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if iv.Status == IntervalApproved {
		return iv, nil
	}

	rev := Review{
		ID:         uuid.NewString(),
		IntervalID: iv.ID,
		ReviewerID: actor.ID,
		Decision:   IntervalApproved,
		CreatedAt:  s.Clock.Now(),
	}
	if err := s.Store.SetIntervalStatus(ctx, iv.ID, IntervalApproved, "", rev); err != nil {
		return nil, err
	}
	iv.Status = IntervalApproved
	iv.RejectionReason = ""
	iv.UpdatedAt = rev.CreatedAt
	return iv, nil
}

// Reject marks the interval REJECTED with a mandatory reason.
func (s *ApprovalService) Reject(ctx context.Context, actor Actor, id, reason string) (*WorkInterval, error) {
	if reason == "" {
		return nil, &FieldError{Field: "reason", Message: "rejection reason is required"}
	}
	iv, err := s.reviewable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	rev := Review{
		ID:         uuid.NewString(),
		IntervalID: iv.ID,
		ReviewerID: actor.ID,
		Decision:   IntervalRejected,
		Reason:     reason,
		CreatedAt:  s.Clock.Now(),
	}
	if err := s.Store.SetIntervalStatus(ctx, iv.ID, IntervalRejected, reason, rev); err != nil {
		return nil, err
	}
	iv.Status = IntervalRejected
	iv.RejectionReason = reason
	iv.UpdatedAt = rev.CreatedAt
	return iv, nil
}

// reviewable loads the interval and checks reviewer eligibility.
// Invisible intervals surface as not-found; visible-but-ineligible
// (an employee reviewing their own claim) as forbidden.
func (s *ApprovalService) reviewable(ctx context.Context, actor Actor, id string) (*WorkInterval, error) {
	iv, err := s.Store.GetInterval(ctx, id)
	if err != nil {
		return nil, err
	}
	if iv == nil {
		return nil, ErrNotFound
	}
	if !ScopeFor(actor).WithOwnRecords().AllowsInterval(*iv) {
		return nil, ErrNotFound
	}
	if !actor.IsReviewer(iv.CompanyID) {
		return nil, fmt.Errorf("actor %s may not review intervals of company %s: %w",
			actor.ID, iv.CompanyID, ErrForbidden)
	}
	return iv, nil
}
