/*
interval.go - Work interval lifecycle service

PURPOSE:
  Create, edit, list, and delete work intervals. Every create/edit is
  gated by conflict detection (conflict.go); every read is gated by the
  actor's scope (scope.go).

OWNERSHIP RULES:
  - Create: always on behalf of the caller; a worker books their own time
  - Edit: owner only, while the interval is unallocated; changing date or
    bounds additionally requires the interval to be un-reviewed (PENDING)
  - Delete: owner or a privileged role in the owner's company, and only
    while unallocated

VISIBILITY:
  Ids outside the actor's scope surface as ErrNotFound, indistinguishable
  from ids that do not exist.
*/
package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// IntervalService orchestrates the interval lifecycle over a Store.
type IntervalService struct {
	Store    Store
	Notifier Notifier
	Clock    Clock
}

func NewIntervalService(store Store, notifier Notifier, clock Clock) *IntervalService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	return &IntervalService{Store: store, Notifier: notifier, Clock: clock}
}

// CreateIntervalInput carries the caller-supplied fields for a new
// interval. Times are HH:MM on Date.
type CreateIntervalInput struct {
	Date         Day
	Start        MinuteOfDay
	End          MinuteOfDay
	Note         string
	ProjectLabel string
}

// Create books a new interval for the actor. Returns *ConflictReport
// (as error) when the candidate overlaps an existing non-rejected
// interval for the same worker and day.
func (s *IntervalService) Create(ctx context.Context, actor Actor, in CreateIntervalInput) (*WorkInterval, error) {
	now := s.Clock.Now()
	iv := &WorkInterval{
		ID:           uuid.NewString(),
		OwnerID:      actor.ID,
		CompanyID:    actor.CompanyID,
		Date:         in.Date,
		Start:        in.Start,
		End:          in.End,
		Note:         in.Note,
		ProjectLabel: in.ProjectLabel,
		Status:       IntervalPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := iv.Validate(); err != nil {
		return nil, err
	}
	if err := s.Store.CreateInterval(ctx, iv); err != nil {
		return nil, err
	}
	s.Notifier.IntervalSubmitted(ctx, *iv)
	return iv, nil
}

// UpdateIntervalInput carries a partial edit. Nil fields are untouched.
type UpdateIntervalInput struct {
	Date         *Day
	Start        *MinuteOfDay
	End          *MinuteOfDay
	Note         *string
	ProjectLabel *string
}

func (in UpdateIntervalInput) touchesBounds() bool {
	return in.Date != nil || in.Start != nil || in.End != nil
}

// Update edits an interval owned by the actor. Bounds changes re-run the
// conflict check against the edited candidate, excluding the interval's
// own prior version.
func (s *IntervalService) Update(ctx context.Context, actor Actor, id string, in UpdateIntervalInput) (*WorkInterval, error) {
	iv, err := s.visibleInterval(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if iv.OwnerID != actor.ID {
		return nil, fmt.Errorf("only the owner may edit an interval: %w", ErrForbidden)
	}

	if in.touchesBounds() {
		allocated, err := s.allocated(ctx, id)
		if err != nil {
			return nil, err
		}
		if allocated {
			return nil, ErrIntervalAllocated
		}
		if iv.Status != IntervalPending {
			return nil, fmt.Errorf("reviewed intervals cannot be re-timed: %w", ErrForbidden)
		}
	}

	if in.Date != nil {
		iv.Date = *in.Date
	}
	if in.Start != nil {
		iv.Start = *in.Start
	}
	if in.End != nil {
		iv.End = *in.End
	}
	if in.Note != nil {
		iv.Note = *in.Note
	}
	if in.ProjectLabel != nil {
		iv.ProjectLabel = *in.ProjectLabel
	}
	iv.UpdatedAt = s.Clock.Now()

	if err := iv.Validate(); err != nil {
		return nil, err
	}
	if err := s.Store.UpdateInterval(ctx, iv); err != nil {
		return nil, err
	}
	return iv, nil
}

// Delete removes an interval. Owners delete their own; privileged roles
// delete within their company regardless of review state. Allocated
// intervals are never deletable.
func (s *IntervalService) Delete(ctx context.Context, actor Actor, id string) error {
	iv, err := s.visibleInterval(ctx, actor, id)
	if err != nil {
		return err
	}
	if iv.OwnerID != actor.ID && !actor.IsPrivileged(iv.CompanyID) {
		return ErrForbidden
	}
	allocated, err := s.allocated(ctx, id)
	if err != nil {
		return err
	}
	if allocated {
		return ErrIntervalAllocated
	}
	return s.Store.DeleteInterval(ctx, id)
}

// Get returns one interval within the actor's scope.
func (s *IntervalService) Get(ctx context.Context, actor Actor, id string) (*WorkInterval, error) {
	return s.visibleInterval(ctx, actor, id)
}

// List returns intervals narrowed to the actor's scope. An explicit
// owner filter outside the scope fails with ErrForbidden.
func (s *IntervalService) List(ctx context.Context, scope Scope, f IntervalFilter) ([]WorkInterval, error) {
	if err := scope.RestrictIntervals(&f); err != nil {
		return nil, err
	}
	if f.OwnerID != "" && scope.Actor.Role != RoleEmployee && scope.Actor.Role != RoleDeveloper {
		owner, err := s.Store.GetWorker(ctx, f.OwnerID)
		if err != nil {
			return nil, err
		}
		if owner == nil {
			return nil, ErrNotFound
		}
		if err := scope.CheckExplicitOwner(*owner); err != nil {
			return nil, err
		}
	}
	return s.Store.ListIntervals(ctx, f)
}

// Reviews returns the append-only review history for one interval the
// actor can see.
func (s *IntervalService) Reviews(ctx context.Context, actor Actor, id string) ([]Review, error) {
	if _, err := s.visibleInterval(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.Store.ListReviews(ctx, id)
}

// visibleInterval loads an interval and hides out-of-scope ids behind
// ErrNotFound.
func (s *IntervalService) visibleInterval(ctx context.Context, actor Actor, id string) (*WorkInterval, error) {
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
	return iv, nil
}

func (s *IntervalService) allocated(ctx context.Context, id string) (bool, error) {
	taken, err := s.Store.AllocatedIntervalIDs(ctx, []string{id})
	if err != nil {
		return false, err
	}
	return len(taken) > 0, nil
}
