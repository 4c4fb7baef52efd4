/*
scope.go - Role/company access scoping

PURPOSE:
  One Scope value per actor, threaded through interval listing, approval
  eligibility, and payment queries. Every consumer applies the same
  predicate; none re-derives visibility rules locally.

RULES:
  DEVELOPER  unrestricted
  ADMIN      restricted to the actor's company
  MANAGER    restricted to the actor's company; listings exclude the
             manager's own records unless the include-own flag is set
  EMPLOYEE   restricted to the actor's own records only

  An explicit single-owner query is rejected outright when it falls
  outside the scope: employees targeting anyone else fail regardless of
  company, admins/managers targeting an owner of another company fail
  even if the id exists.

SEE ALSO:
  - store.go: the filter structs Scope narrows
  - interval.go, reconcile.go: the consumers
*/
package core

// Scope is the query predicate derived from an actor. Zero value is
// unusable; always construct with ScopeFor.
type Scope struct {
	Actor      Actor
	IncludeOwn bool
}

func ScopeFor(actor Actor) Scope {
	return Scope{Actor: actor}
}

// WithOwnRecords returns a copy of the scope where a manager's listings
// include the manager's own records.
func (s Scope) WithOwnRecords() Scope {
	s.IncludeOwn = true
	return s
}

// allows is the record-level predicate over (ownerID, companyID).
func (s Scope) allows(ownerID, companyID string) bool {
	switch s.Actor.Role {
	case RoleDeveloper:
		return true
	case RoleAdmin, RoleManager:
		return companyID == s.Actor.CompanyID
	case RoleEmployee:
		return ownerID == s.Actor.ID
	}
	return false
}

// AllowsInterval reports whether the interval is visible to the actor.
func (s Scope) AllowsInterval(iv WorkInterval) bool {
	return s.allows(iv.OwnerID, iv.CompanyID)
}

// AllowsPayment reports whether the payment is visible to the actor.
func (s Scope) AllowsPayment(p Payment) bool {
	return s.allows(p.PayeeID, p.CompanyID)
}

// CheckExplicitOwner validates a query that names a specific owner.
// The owner record must already be resolved; employees are rejected
// before any lookup is needed (see RestrictIntervals).
func (s Scope) CheckExplicitOwner(owner Worker) error {
	if !s.allows(owner.ID, owner.CompanyID) {
		return ErrForbidden
	}
	return nil
}

// RestrictIntervals narrows a caller-supplied filter to the scope.
// Returns ErrForbidden for explicit owner queries an employee may never
// make; company checks for admin/manager owner queries happen in the
// service once the owner is resolved.
func (s Scope) RestrictIntervals(f *IntervalFilter) error {
	switch s.Actor.Role {
	case RoleDeveloper:
		return nil
	case RoleAdmin:
		f.CompanyID = s.Actor.CompanyID
		return nil
	case RoleManager:
		f.CompanyID = s.Actor.CompanyID
		if f.OwnerID == "" && !s.IncludeOwn {
			f.ExcludeOwnerID = s.Actor.ID
		}
		return nil
	case RoleEmployee:
		if f.OwnerID != "" && f.OwnerID != s.Actor.ID {
			return ErrForbidden
		}
		f.OwnerID = s.Actor.ID
		return nil
	}
	return ErrForbidden
}

// RestrictPayments narrows a payment filter the same way. Payments have
// no include-own carve-out; a manager sees company payments including
// their own.
func (s Scope) RestrictPayments(f *PaymentFilter) error {
	switch s.Actor.Role {
	case RoleDeveloper:
		return nil
	case RoleAdmin, RoleManager:
		f.CompanyID = s.Actor.CompanyID
		return nil
	case RoleEmployee:
		if f.PayeeID != "" && f.PayeeID != s.Actor.ID {
			return ErrForbidden
		}
		f.PayeeID = s.Actor.ID
		return nil
	}
	return ErrForbidden
}
