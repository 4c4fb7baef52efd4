/*
store.go - Storage interfaces

PURPOSE:
  Persistence contracts the services depend on. Implementations:
  store/sqlite (production) and core/store (in-memory, for tests).

ATOMICITY CONTRACT:
  CreateInterval / UpdateInterval run the same-day conflict check and the
  write as one serialized unit per implementation — a transaction in
  SQLite, a mutex in memory. Two concurrent submissions can never both
  pass the check and both land.

  CreatePayment inserts the payment and all its allocations atomically
  and returns *AllocationConflict if any interval is already allocated,
  whether detected up front or by the unique index at insert time.

UNPAID PREDICATE:
  "Eligible for payment" is always: status APPROVED and no allocation row
  references the interval. ListIntervals with UnpaidOnly and
  AllocatedIntervalIDs both answer from the allocation table; nothing
  caches unpaid status across requests.
*/
package core

import "context"

// =============================================================================
// FILTERS
// =============================================================================

// IntervalFilter selects intervals. Scope fields (CompanyID,
// ExcludeOwnerID, and usually OwnerID) are set by Scope.RestrictIntervals,
// not by callers.
type IntervalFilter struct {
	OwnerID        string
	CompanyID      string
	ExcludeOwnerID string

	From   *Day
	To     *Day
	Status *IntervalStatus

	// UnpaidOnly additionally requires status APPROVED and no allocation.
	UnpaidOnly bool

	Limit    int
	Offset   int
	SortDesc bool // by (date, start); default ascending
}

// PaymentFilter selects payments by payee/company/status and issue date.
type PaymentFilter struct {
	PayeeID   string
	CompanyID string

	Status *PaymentStatus
	From   *Day
	To     *Day

	Limit    int
	Offset   int
	SortDesc bool // by issue date
}

// =============================================================================
// STORES
// =============================================================================

type IntervalStore interface {
	// CreateInterval validates against same-day conflicts and inserts.
	// Returns *ConflictReport on overlap.
	CreateInterval(ctx context.Context, iv *WorkInterval) error

	// UpdateInterval re-runs the conflict check with the edited bounds,
	// excluding the interval's own prior version, then persists.
	UpdateInterval(ctx context.Context, iv *WorkInterval) error

	GetInterval(ctx context.Context, id string) (*WorkInterval, error)
	ListIntervals(ctx context.Context, f IntervalFilter) ([]WorkInterval, error)
	ListIntervalsByIDs(ctx context.Context, ids []string) ([]WorkInterval, error)
	DeleteInterval(ctx context.Context, id string) error

	// SetIntervalStatus applies a reviewer decision and appends the
	// review record in the same transaction.
	SetIntervalStatus(ctx context.Context, id string, status IntervalStatus, reason string, rev Review) error

	ListReviews(ctx context.Context, intervalID string) ([]Review, error)
}

type PaymentStore interface {
	// CreatePayment inserts the payment and its allocations atomically.
	// Returns *AllocationConflict if any interval is already allocated.
	CreatePayment(ctx context.Context, p *Payment) error

	GetPayment(ctx context.Context, id string) (*Payment, error)
	ListPayments(ctx context.Context, f PaymentFilter) ([]Payment, error)
	UpdatePayment(ctx context.Context, p *Payment) error

	// DeletePayment removes the payment and cascades its allocations,
	// returning the referenced intervals to the unpaid pool.
	DeletePayment(ctx context.Context, id string) error

	// AllocatedIntervalIDs returns which of ids already have an
	// allocation, in input order.
	AllocatedIntervalIDs(ctx context.Context, ids []string) ([]string, error)
}

type WorkerStore interface {
	SaveWorker(ctx context.Context, w Worker) error
	GetWorker(ctx context.Context, id string) (*Worker, error)
	ListWorkers(ctx context.Context, companyID string) ([]Worker, error)
}

// Store is the combined persistence surface the services take.
type Store interface {
	IntervalStore
	PaymentStore
	WorkerStore
}
