package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/worklog-engine/core"
)

var (
	dev      = core.Actor{ID: "dev", Role: core.RoleDeveloper, CompanyID: "platform"}
	acmeAdm  = core.Actor{ID: "adm-1", Role: core.RoleAdmin, CompanyID: "acme"}
	acmeMgr  = core.Actor{ID: "mgr-1", Role: core.RoleManager, CompanyID: "acme"}
	acmeEmp  = core.Actor{ID: "emp-1", Role: core.RoleEmployee, CompanyID: "acme"}
	acmeEmp2 = core.Actor{ID: "emp-2", Role: core.RoleEmployee, CompanyID: "acme"}
)

func TestScope_AllowsInterval(t *testing.T) {
	own := core.WorkInterval{OwnerID: "emp-1", CompanyID: "acme"}
	colleague := core.WorkInterval{OwnerID: "emp-2", CompanyID: "acme"}
	foreign := core.WorkInterval{OwnerID: "emp-9", CompanyID: "globex"}

	tests := []struct {
		name  string
		actor core.Actor
		iv    core.WorkInterval
		want  bool
	}{
		{"developer sees everything", dev, foreign, true},
		{"admin sees own company", acmeAdm, colleague, true},
		{"admin blocked cross-company", acmeAdm, foreign, false},
		{"manager sees own company", acmeMgr, own, true},
		{"manager blocked cross-company", acmeMgr, foreign, false},
		{"employee sees own records", acmeEmp, own, true},
		{"employee blocked from colleague", acmeEmp, colleague, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, core.ScopeFor(tt.actor).AllowsInterval(tt.iv))
		})
	}
}

func TestScope_RestrictIntervals_Employee(t *testing.T) {
	// GIVEN: An employee listing without an explicit owner
	// THEN: The filter is pinned to the employee's own id

	f := core.IntervalFilter{}
	require.NoError(t, core.ScopeFor(acmeEmp).RestrictIntervals(&f))
	assert.Equal(t, "emp-1", f.OwnerID)

	// An explicit owner other than self is refused before any query runs.
	f = core.IntervalFilter{OwnerID: "emp-2"}
	err := core.ScopeFor(acmeEmp).RestrictIntervals(&f)
	assert.ErrorIs(t, err, core.ErrForbidden)

	// Naming self explicitly is allowed.
	f = core.IntervalFilter{OwnerID: "emp-1"}
	require.NoError(t, core.ScopeFor(acmeEmp).RestrictIntervals(&f))
	assert.Equal(t, "emp-1", f.OwnerID)
}

func TestScope_RestrictIntervals_Manager(t *testing.T) {
	// Default manager listing: company-wide minus the manager's own rows.
	f := core.IntervalFilter{}
	require.NoError(t, core.ScopeFor(acmeMgr).RestrictIntervals(&f))
	assert.Equal(t, "acme", f.CompanyID)
	assert.Equal(t, "mgr-1", f.ExcludeOwnerID)

	// Include-own drops the exclusion.
	f = core.IntervalFilter{}
	require.NoError(t, core.ScopeFor(acmeMgr).WithOwnRecords().RestrictIntervals(&f))
	assert.Empty(t, f.ExcludeOwnerID)

	// Explicit owner queries are scoped to the company but never excluded;
	// a manager may name themselves.
	f = core.IntervalFilter{OwnerID: "mgr-1"}
	require.NoError(t, core.ScopeFor(acmeMgr).RestrictIntervals(&f))
	assert.Empty(t, f.ExcludeOwnerID)
}

func TestScope_RestrictIntervals_AdminAndDeveloper(t *testing.T) {
	f := core.IntervalFilter{}
	require.NoError(t, core.ScopeFor(acmeAdm).RestrictIntervals(&f))
	assert.Equal(t, "acme", f.CompanyID)
	assert.Empty(t, f.ExcludeOwnerID, "admins see their own rows")

	f = core.IntervalFilter{}
	require.NoError(t, core.ScopeFor(dev).RestrictIntervals(&f))
	assert.Empty(t, f.CompanyID, "developer listing is unrestricted")
}

func TestScope_CheckExplicitOwner(t *testing.T) {
	acmeWorker := core.Worker{ID: "emp-2", CompanyID: "acme"}
	globexWorker := core.Worker{ID: "emp-9", CompanyID: "globex"}

	assert.NoError(t, core.ScopeFor(acmeAdm).CheckExplicitOwner(acmeWorker))
	assert.ErrorIs(t, core.ScopeFor(acmeAdm).CheckExplicitOwner(globexWorker), core.ErrForbidden)
	assert.ErrorIs(t, core.ScopeFor(acmeMgr).CheckExplicitOwner(globexWorker), core.ErrForbidden)
	assert.NoError(t, core.ScopeFor(dev).CheckExplicitOwner(globexWorker))
}

func TestScope_RestrictPayments(t *testing.T) {
	// Managers see company payments including their own; no exclusion.
	f := core.PaymentFilter{}
	require.NoError(t, core.ScopeFor(acmeMgr).RestrictPayments(&f))
	assert.Equal(t, "acme", f.CompanyID)

	// Employees are pinned to their own payments.
	f = core.PaymentFilter{}
	require.NoError(t, core.ScopeFor(acmeEmp).RestrictPayments(&f))
	assert.Equal(t, "emp-1", f.PayeeID)

	f = core.PaymentFilter{PayeeID: "emp-2"}
	assert.ErrorIs(t, core.ScopeFor(acmeEmp).RestrictPayments(&f), core.ErrForbidden)
}

func TestActor_IsReviewer(t *testing.T) {
	tests := []struct {
		name         string
		actor        core.Actor
		ownerCompany string
		want         bool
	}{
		{"developer reviews anywhere", dev, "globex", true},
		{"admin reviews own company", acmeAdm, "acme", true},
		{"admin blocked cross-company", acmeAdm, "globex", false},
		{"manager reviews own company", acmeMgr, "acme", true},
		{"manager blocked cross-company", acmeMgr, "globex", false},
		{"employee never reviews", acmeEmp2, "acme", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.actor.IsReviewer(tt.ownerCompany))
		})
	}
}
