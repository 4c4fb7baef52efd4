/*
Package core implements the worklog engine: interval conflict detection,
the approval workflow, access scoping, and payment reconciliation.

PURPOSE:
  This package contains the domain types and algorithms that every other
  layer agrees on. The HTTP layer and the SQLite store are adapters around
  the services defined here; they never re-derive scoping or eligibility
  rules on their own.

KEY CONCEPTS IN THIS FILE (types.go):
  - Actor: who is calling (id, role, company) — resolved by the identity
    layer before the core is invoked
  - WorkInterval: a claimed span of work time on one calendar day,
    expressed as minutes-since-midnight with half-open bounds
  - Payment / PaymentAllocation: a payout and its per-interval split
  - Day / MinuteOfDay: date-only and time-of-day value types

DESIGN PRINCIPLES:
  1. Precision: decimal.Decimal for every money and hour computation
  2. Half-open ranges: [start, end) — touching intervals never overlap
  3. Explicit time: services take a Clock, never read the wall clock
  4. Single predicate: "unpaid" is always answered by the allocation store

SEE ALSO:
  - conflict.go: overlap detection
  - scope.go: role/company visibility
  - approval.go: interval review lifecycle
  - reconcile.go: payment creation and allocation
*/
package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ROLES & ACTORS
// =============================================================================

type Role string

const (
	RoleDeveloper Role = "DEVELOPER"
	RoleAdmin     Role = "ADMIN"
	RoleManager   Role = "MANAGER"
	RoleEmployee  Role = "EMPLOYEE"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleDeveloper, RoleAdmin, RoleManager, RoleEmployee:
		return true
	}
	return false
}

// Actor is the opaque caller identity handed to the core by the session
// layer. The core never authenticates; it only authorizes.
type Actor struct {
	ID        string
	Role      Role
	CompanyID string
}

// IsReviewer reports whether the actor may approve/reject intervals owned
// by a worker of ownerCompanyID. Developers review anywhere; admins and
// managers only within their own company. Owners never review themselves
// by role alone — eligibility is purely role+company.
func (a Actor) IsReviewer(ownerCompanyID string) bool {
	switch a.Role {
	case RoleDeveloper:
		return true
	case RoleAdmin, RoleManager:
		return a.CompanyID == ownerCompanyID
	}
	return false
}

// IsPrivileged reports whether the actor holds a role that can manage
// payments and delete records inside companyID.
func (a Actor) IsPrivileged(companyID string) bool {
	return a.IsReviewer(companyID)
}

// =============================================================================
// DAY & MINUTE-OF-DAY
// =============================================================================

const dayLayout = "2006-01-02"

// Day is a calendar date with no time component, always UTC.
type Day struct {
	t time.Time
}

func NewDay(year int, month time.Month, day int) Day {
	return Day{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func DayOf(t time.Time) Day {
	return NewDay(t.Year(), t.Month(), t.Day())
}

func ParseDay(s string) (Day, error) {
	t, err := time.Parse(dayLayout, s)
	if err != nil {
		return Day{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return Day{t: t}, nil
}

func (d Day) Time() time.Time    { return d.t }
func (d Day) IsZero() bool       { return d.t.IsZero() }
func (d Day) Equal(o Day) bool   { return d.t.Equal(o.t) }
func (d Day) Before(o Day) bool  { return d.t.Before(o.t) }
func (d Day) After(o Day) bool   { return d.t.After(o.t) }
func (d Day) AddDays(n int) Day  { return Day{t: d.t.AddDate(0, 0, n)} }
func (d Day) String() string     { return d.t.Format(dayLayout) }

// MinuteOfDay is a time of day in minutes since midnight, 0..1440.
// Interval bounds use it with half-open semantics: end is exclusive.
type MinuteOfDay int

const MinutesPerDay MinuteOfDay = 24 * 60

func ParseMinuteOfDay(s string) (MinuteOfDay, error) {
	var h, m int
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	if h < 0 || m < 0 || m > 59 || h > 24 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return MinuteOfDay(h*60 + m), nil
}

func (m MinuteOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

func minOfDay(a, b MinuteOfDay) MinuteOfDay {
	if a < b {
		return a
	}
	return b
}

func maxOfDay(a, b MinuteOfDay) MinuteOfDay {
	if a > b {
		return a
	}
	return b
}

// =============================================================================
// WORK INTERVAL
// =============================================================================

type IntervalStatus string

const (
	IntervalPending  IntervalStatus = "PENDING"
	IntervalApproved IntervalStatus = "APPROVED"
	IntervalRejected IntervalStatus = "REJECTED"
)

// WorkInterval is a claimed span of work time for one worker on one day.
// Start/End are minutes since midnight on Date, half-open [Start, End).
type WorkInterval struct {
	ID        string
	OwnerID   string
	CompanyID string // denormalized from the owner, for scoping

	Date  Day
	Start MinuteOfDay
	End   MinuteOfDay

	Note         string
	ProjectLabel string

	Status          IntervalStatus
	RejectionReason string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// DurationMinutes returns End − Start. Positive for any valid interval.
func (iv WorkInterval) DurationMinutes() int {
	return int(iv.End - iv.Start)
}

// DurationHours returns the interval length in hours as an exact decimal.
func (iv WorkInterval) DurationHours() decimal.Decimal {
	return decimal.NewFromInt(int64(iv.DurationMinutes())).Div(decimal.NewFromInt(60))
}

// StartInstant and EndInstant place the minute bounds on the calendar day.
func (iv WorkInterval) StartInstant() time.Time {
	return iv.Date.Time().Add(time.Duration(iv.Start) * time.Minute)
}

func (iv WorkInterval) EndInstant() time.Time {
	return iv.Date.Time().Add(time.Duration(iv.End) * time.Minute)
}

// Validate checks the structural invariants of the interval itself.
// Conflict checks against other intervals are a separate concern.
func (iv WorkInterval) Validate() error {
	if iv.OwnerID == "" {
		return &FieldError{Field: "owner_id", Message: "owner is required"}
	}
	if iv.Date.IsZero() {
		return &FieldError{Field: "date", Message: "date is required"}
	}
	if iv.Start < 0 || iv.End > MinutesPerDay {
		return &FieldError{Field: "start", Message: "bounds must lie within the day"}
	}
	if iv.End <= iv.Start {
		return &FieldError{Field: "end", Message: "end must be after start"}
	}
	if iv.Status == IntervalRejected && iv.RejectionReason == "" {
		return &FieldError{Field: "rejection_reason", Message: "rejected intervals carry a reason"}
	}
	return nil
}

// =============================================================================
// WORKER
// =============================================================================

// Worker is the minimal view of a person the core needs: identity for
// scoping and an hourly rate for reconciliation. Provisioning lives
// outside the core.
type Worker struct {
	ID         string
	Name       string
	CompanyID  string
	Role       Role
	HourlyRate decimal.Decimal
	CreatedAt  time.Time
}

// AsActor converts a stored worker into the caller identity shape.
func (w Worker) AsActor() Actor {
	return Actor{ID: w.ID, Role: w.Role, CompanyID: w.CompanyID}
}

// =============================================================================
// PAYMENT & ALLOCATION
// =============================================================================

type PaymentStatus string

const (
	PaymentPending              PaymentStatus = "PENDING"
	PaymentAwaitingConfirmation PaymentStatus = "AWAITING_CONFIRMATION"
	PaymentCompleted            PaymentStatus = "COMPLETED"
	PaymentCancelled            PaymentStatus = "CANCELLED"
)

func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentPending, PaymentAwaitingConfirmation, PaymentCompleted, PaymentCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	MethodCash         PaymentMethod = "CASH"
	MethodCheck        PaymentMethod = "CHECK"
	MethodOther        PaymentMethod = "OTHER"
)

func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case MethodBankTransfer, MethodCash, MethodCheck, MethodOther:
		return true
	}
	return false
}

// Payment groups a set of approved intervals into one payout.
// Amount always equals the sum of the allocation amounts.
type Payment struct {
	ID        string
	PayeeID   string
	CompanyID string // denormalized from the payee
	CreatorID string

	Amount      decimal.Decimal
	IssueDate   Day
	PeriodStart Day
	PeriodEnd   Day
	Method      PaymentMethod
	Status      PaymentStatus
	Reference   string
	ReceiptURL  string
	ConfirmedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	// Allocations are loaded with the payment; the allocation table is
	// the single source of truth for "is this interval paid".
	Allocations []PaymentAllocation
}

// PaymentAllocation links one payment to one interval. The store enforces
// a unique index on IntervalID so no interval is ever allocated twice.
type PaymentAllocation struct {
	ID         string
	PaymentID  string
	IntervalID string
	Amount     decimal.Decimal
}

// =============================================================================
// REVIEW HISTORY
// =============================================================================

// Review is one append-only record of a reviewer decision. The approval
// state machine stays unchanged; history is observation only.
type Review struct {
	ID         string
	IntervalID string
	ReviewerID string
	Decision   IntervalStatus // APPROVED or REJECTED
	Reason     string
	CreatedAt  time.Time
}
