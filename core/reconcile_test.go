package core_test

import (
	"context"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/worklog-engine/core"
)

// payIntervals reconciles the given intervals into one bank-transfer
// payment covering the first week of March.
func payIntervals(t *testing.T, fx *fixture, actor core.Actor, payeeID string, ids ...string) *core.Payment {
	t.Helper()
	p, err := fx.payments.Create(context.Background(), actor, core.CreatePaymentInput{
		PayeeID:     payeeID,
		IntervalIDs: ids,
		Method:      core.MethodBankTransfer,
		PeriodStart: march1(),
		PeriodEnd:   march1().AddDays(6),
	})
	require.NoError(t, err)
	return p
}

// =============================================================================
// CREATE
// =============================================================================

func TestPaymentService_Create_HoursTimesRate(t *testing.T) {
	// GIVEN: emp-1 (rate $20/h) with approved intervals of 2h and 3h
	// WHEN: An admin reconciles both
	// THEN: Amount is $100.00 split $40.00 / $60.00 by duration

	fx := newFixture(t)
	a := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(11, 0))
	b := fx.book(t, acmeEmp, march1(), hm(13, 0), hm(16, 0))
	fx.approve(t, acmeMgr, a.ID)
	fx.approve(t, acmeMgr, b.ID)

	p := payIntervals(t, fx, acmeAdm, "emp-1", a.ID, b.ID)

	assert.True(t, p.Amount.Equal(decimal.RequireFromString("100.00")), "got %s", p.Amount)
	require.Len(t, p.Allocations, 2)
	assert.True(t, p.Allocations[0].Amount.Equal(decimal.RequireFromString("40.00")))
	assert.True(t, p.Allocations[1].Amount.Equal(decimal.RequireFromString("60.00")))
	assert.Equal(t, core.PaymentPending, p.Status)
	assert.Equal(t, "adm-1", p.CreatorID)
	assert.True(t, p.IssueDate.Equal(core.DayOf(fx.clock.At)))
}

func TestPaymentService_Create_DuplicateIDsCollapse(t *testing.T) {
	// GIVEN: One approved 2h interval at $20/h
	// WHEN: An admin reconciles it with the same id listed twice
	// THEN: One $40.00 allocation, not a doubled payment

	fx := newFixture(t)
	iv := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(11, 0))
	fx.approve(t, acmeMgr, iv.ID)

	p := payIntervals(t, fx, acmeAdm, "emp-1", iv.ID, iv.ID)

	assert.True(t, p.Amount.Equal(decimal.RequireFromString("40.00")), "got %s", p.Amount)
	require.Len(t, p.Allocations, 1)
	assert.Equal(t, iv.ID, p.Allocations[0].IntervalID)
}

func TestPaymentService_Create_OverrideAndRemainder(t *testing.T) {
	// GIVEN: Three equal 1h intervals and an override of $100.00
	// THEN: Shares are 33.33 / 33.33 / 33.34 and sum exactly to the amount

	fx := newFixture(t)
	a := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(10, 0))
	b := fx.book(t, acmeEmp, march1(), hm(10, 0), hm(11, 0))
	c := fx.book(t, acmeEmp, march1(), hm(11, 0), hm(12, 0))
	for _, iv := range []*core.WorkInterval{a, b, c} {
		fx.approve(t, acmeMgr, iv.ID)
	}

	override := decimal.RequireFromString("100.00")
	p, err := fx.payments.Create(context.Background(), acmeAdm, core.CreatePaymentInput{
		PayeeID:        "emp-1",
		IntervalIDs:    []string{a.ID, b.ID, c.ID},
		AmountOverride: &override,
		Method:         core.MethodCash,
		PeriodStart:    march1(),
		PeriodEnd:      march1(),
	})
	require.NoError(t, err)

	require.Len(t, p.Allocations, 3)
	assert.True(t, p.Allocations[0].Amount.Equal(decimal.RequireFromString("33.33")))
	assert.True(t, p.Allocations[1].Amount.Equal(decimal.RequireFromString("33.33")))
	assert.True(t, p.Allocations[2].Amount.Equal(decimal.RequireFromString("33.34")))

	sum := decimal.Zero
	for _, al := range p.Allocations {
		sum = sum.Add(al.Amount)
	}
	assert.True(t, sum.Equal(p.Amount))
}

func TestPaymentService_Create_FractionalRate(t *testing.T) {
	// 90 minutes at $22/h is exactly $33.00.
	fx := newFixture(t)
	iv := fx.book(t, acmeEmp2, march1(), hm(9, 0), hm(10, 30))
	fx.approve(t, acmeMgr, iv.ID)

	p := payIntervals(t, fx, acmeAdm, "emp-2", iv.ID)
	assert.True(t, p.Amount.Equal(decimal.RequireFromString("33.00")), "got %s", p.Amount)
}

func TestPaymentService_Create_NoEligibleIntervals(t *testing.T) {
	// Pending and rejected candidates never pay out.
	fx := newFixture(t)
	pending := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(11, 0))
	rejected := fx.book(t, acmeEmp, march1(), hm(13, 0), hm(14, 0))
	_, err := fx.approvals.Reject(context.Background(), acmeMgr, rejected.ID, "not billable")
	require.NoError(t, err)

	_, err = fx.payments.Create(context.Background(), acmeAdm, core.CreatePaymentInput{
		PayeeID:     "emp-1",
		IntervalIDs: []string{pending.ID, rejected.ID},
		Method:      core.MethodBankTransfer,
		PeriodStart: march1(),
		PeriodEnd:   march1(),
	})
	assert.ErrorIs(t, err, core.ErrNoEligibleIntervals)
}

func TestPaymentService_Create_AlreadyAllocatedFailsBatch(t *testing.T) {
	// GIVEN: Interval a is already paid
	// WHEN: A second payment includes a plus a fresh interval b
	// THEN: The whole batch fails naming a; b stays unpaid

	fx := newFixture(t)
	a := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(11, 0))
	b := fx.book(t, acmeEmp, march1(), hm(13, 0), hm(14, 0))
	fx.approve(t, acmeMgr, a.ID)
	fx.approve(t, acmeMgr, b.ID)
	payIntervals(t, fx, acmeAdm, "emp-1", a.ID)

	_, err := fx.payments.Create(context.Background(), acmeAdm, core.CreatePaymentInput{
		PayeeID:     "emp-1",
		IntervalIDs: []string{a.ID, b.ID},
		Method:      core.MethodBankTransfer,
		PeriodStart: march1(),
		PeriodEnd:   march1(),
	})
	require.Error(t, err)
	var conflict *core.AllocationConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{a.ID}, conflict.IntervalIDs)

	// b is still reconcilable on its own.
	payIntervals(t, fx, acmeAdm, "emp-1", b.ID)
}

func TestPaymentService_Create_MissingAndForeignIntervals(t *testing.T) {
	fx := newFixture(t)
	mine := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(11, 0))
	other := fx.book(t, acmeEmp2, march1(), hm(9, 0), hm(11, 0))
	fx.approve(t, acmeMgr, mine.ID)

	_, err := fx.payments.Create(context.Background(), acmeAdm, core.CreatePaymentInput{
		PayeeID:     "emp-1",
		IntervalIDs: []string{mine.ID, "ghost"},
		Method:      core.MethodBankTransfer,
		PeriodStart: march1(),
		PeriodEnd:   march1(),
	})
	var missing *core.MissingIntervalsError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, []string{"ghost"}, missing.IntervalIDs)

	_, err = fx.payments.Create(context.Background(), acmeAdm, core.CreatePaymentInput{
		PayeeID:     "emp-1",
		IntervalIDs: []string{mine.ID, other.ID},
		Method:      core.MethodBankTransfer,
		PeriodStart: march1(),
		PeriodEnd:   march1(),
	})
	assert.True(t, core.IsValidation(err), "intervals of another worker cannot ride along")
}

func TestPaymentService_Create_Privileged(t *testing.T) {
	fx := newFixture(t)
	iv := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(11, 0))
	fx.approve(t, acmeMgr, iv.ID)

	in := core.CreatePaymentInput{
		PayeeID:     "emp-1",
		IntervalIDs: []string{iv.ID},
		Method:      core.MethodBankTransfer,
		PeriodStart: march1(),
		PeriodEnd:   march1(),
	}

	_, err := fx.payments.Create(context.Background(), acmeEmp, in)
	assert.True(t, core.IsForbidden(err), "an employee cannot pay themselves")

	gbx := core.Actor{ID: "gbx-adm", Role: core.RoleAdmin, CompanyID: "globex"}
	_, err = fx.payments.Create(context.Background(), gbx, in)
	assert.True(t, core.IsForbidden(err), "cross-company admin cannot pay")

	_, err = fx.payments.Create(context.Background(), acmeMgr, in)
	assert.NoError(t, err, "a manager reconciles within their company")
}

func TestPaymentService_Create_ValidateInput(t *testing.T) {
	fx := newFixture(t)
	negative := decimal.RequireFromString("-5")

	cases := []struct {
		name string
		in   core.CreatePaymentInput
	}{
		{"no payee", core.CreatePaymentInput{IntervalIDs: []string{"x"},
			Method: core.MethodCash, PeriodStart: march1(), PeriodEnd: march1()}},
		{"no intervals", core.CreatePaymentInput{PayeeID: "emp-1",
			Method: core.MethodCash, PeriodStart: march1(), PeriodEnd: march1()}},
		{"bad method", core.CreatePaymentInput{PayeeID: "emp-1", IntervalIDs: []string{"x"},
			Method: "WIRE", PeriodStart: march1(), PeriodEnd: march1()}},
		{"no period", core.CreatePaymentInput{PayeeID: "emp-1", IntervalIDs: []string{"x"},
			Method: core.MethodCash}},
		{"inverted period", core.CreatePaymentInput{PayeeID: "emp-1", IntervalIDs: []string{"x"},
			Method: core.MethodCash, PeriodStart: march1().AddDays(1), PeriodEnd: march1()}},
		// A non-positive override is refused outright rather than
		// silently falling back to hours times rate.
		{"non-positive override", core.CreatePaymentInput{PayeeID: "emp-1", IntervalIDs: []string{"x"},
			AmountOverride: &negative,
			Method:         core.MethodCash, PeriodStart: march1(), PeriodEnd: march1()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := fx.payments.Create(context.Background(), acmeAdm, tc.in)
			assert.True(t, core.IsValidation(err))
		})
	}
}

func TestPaymentService_Create_ConcurrentAtMostOne(t *testing.T) {
	// GIVEN: One approved interval and two concurrent reconciliations
	// THEN: Exactly one payment wins; the loser gets an allocation conflict

	fx := newFixture(t)
	iv := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(11, 0))
	fx.approve(t, acmeMgr, iv.ID)

	in := core.CreatePaymentInput{
		PayeeID:     "emp-1",
		IntervalIDs: []string{iv.ID},
		Method:      core.MethodBankTransfer,
		PeriodStart: march1(),
		PeriodEnd:   march1(),
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = fx.payments.Create(context.Background(), acmeAdm, in)
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
		} else if core.IsConflict(err) {
			lost++
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, 1, lost)
}

// =============================================================================
// STATUS LIFECYCLE
// =============================================================================

func TestPaymentService_PayeeConfirmsReceipt(t *testing.T) {
	// GIVEN: A pending payment for emp-1
	// WHEN: emp-1 confirms receipt
	// THEN: COMPLETED with a confirmation timestamp

	fx := newFixture(t)
	iv := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(11, 0))
	fx.approve(t, acmeMgr, iv.ID)
	p := payIntervals(t, fx, acmeAdm, "emp-1", iv.ID)

	got, err := fx.payments.UpdateStatus(context.Background(), acmeEmp, p.ID, core.UpdateStatusInput{
		Status: core.PaymentCompleted,
	})
	require.NoError(t, err)
	assert.Equal(t, core.PaymentCompleted, got.Status)
	require.NotNil(t, got.ConfirmedAt)
	assert.Equal(t, fx.clock.At, *got.ConfirmedAt)
}

func TestPaymentService_PayeeMayOnlyConfirm(t *testing.T) {
	fx := newFixture(t)
	iv := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(11, 0))
	fx.approve(t, acmeMgr, iv.ID)
	p := payIntervals(t, fx, acmeAdm, "emp-1", iv.ID)

	_, err := fx.payments.UpdateStatus(context.Background(), acmeEmp, p.ID, core.UpdateStatusInput{
		Status: core.PaymentCancelled,
	})
	assert.True(t, core.IsForbidden(err))

	url := "https://receipts.example/1.pdf"
	_, err = fx.payments.UpdateStatus(context.Background(), acmeEmp, p.ID, core.UpdateStatusInput{
		Status: core.PaymentCompleted, ReceiptURL: &url,
	})
	assert.True(t, core.IsForbidden(err), "payees never touch metadata")

	backdate := march1()
	_, err = fx.payments.UpdateStatus(context.Background(), acmeEmp, p.ID, core.UpdateStatusInput{
		Status: core.PaymentCompleted, ConfirmedAt: &backdate,
	})
	assert.True(t, core.IsForbidden(err), "payees never set the confirmation date")
}

func TestPaymentService_PrivilegedBackdatesConfirmation(t *testing.T) {
	// GIVEN: A pending payment
	// WHEN: An admin completes it with an explicit confirmation date
	// THEN: The supplied date wins over the server clock

	fx := newFixture(t)
	iv := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(11, 0))
	fx.approve(t, acmeMgr, iv.ID)
	p := payIntervals(t, fx, acmeAdm, "emp-1", iv.ID)

	confirmed := march1().AddDays(3)
	got, err := fx.payments.UpdateStatus(context.Background(), acmeAdm, p.ID, core.UpdateStatusInput{
		Status: core.PaymentCompleted, ConfirmedAt: &confirmed,
	})
	require.NoError(t, err)
	require.NotNil(t, got.ConfirmedAt)
	assert.Equal(t, confirmed.Time(), *got.ConfirmedAt)
}

func TestPaymentService_PayeeCannotConfirmCancelled(t *testing.T) {
	fx := newFixture(t)
	iv := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(11, 0))
	fx.approve(t, acmeMgr, iv.ID)
	p := payIntervals(t, fx, acmeAdm, "emp-1", iv.ID)

	_, err := fx.payments.UpdateStatus(context.Background(), acmeAdm, p.ID, core.UpdateStatusInput{
		Status: core.PaymentCancelled,
	})
	require.NoError(t, err)

	_, err = fx.payments.UpdateStatus(context.Background(), acmeEmp, p.ID, core.UpdateStatusInput{
		Status: core.PaymentCompleted,
	})
	assert.True(t, core.IsConflict(err))
}

func TestPaymentService_PrivilegedSetsAnyStatusAndMetadata(t *testing.T) {
	fx := newFixture(t)
	iv := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(11, 0))
	fx.approve(t, acmeMgr, iv.ID)
	p := payIntervals(t, fx, acmeAdm, "emp-1", iv.ID)

	url := "https://receipts.example/7.pdf"
	ref := "PAY-2024-007"
	got, err := fx.payments.UpdateStatus(context.Background(), acmeAdm, p.ID, core.UpdateStatusInput{
		Status: core.PaymentAwaitingConfirmation, ReceiptURL: &url, Reference: &ref,
	})
	require.NoError(t, err)
	assert.Equal(t, core.PaymentAwaitingConfirmation, got.Status)
	assert.Equal(t, url, got.ReceiptURL)
	assert.Equal(t, ref, got.Reference)
	assert.Nil(t, got.ConfirmedAt)
}

// =============================================================================
// VISIBILITY & LISTING
// =============================================================================

func TestPaymentService_Visibility(t *testing.T) {
	fx := newFixture(t)
	iv := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(11, 0))
	fx.approve(t, acmeMgr, iv.ID)
	p := payIntervals(t, fx, acmeAdm, "emp-1", iv.ID)

	// The payee sees their payment.
	got, err := fx.payments.Get(context.Background(), acmeEmp, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	// A colleague does not; the id reads as nonexistent.
	_, err = fx.payments.Get(context.Background(), acmeEmp2, p.ID)
	assert.True(t, core.IsNotFound(err))

	gbx := core.Actor{ID: "gbx-adm", Role: core.RoleAdmin, CompanyID: "globex"}
	_, err = fx.payments.Get(context.Background(), gbx, p.ID)
	assert.True(t, core.IsNotFound(err))
}

func TestPaymentService_List(t *testing.T) {
	fx := newFixture(t)
	a := fx.book(t, acmeEmp, march1(), hm(9, 0), hm(11, 0))
	b := fx.book(t, acmeEmp2, march1(), hm(9, 0), hm(11, 0))
	fx.approve(t, acmeMgr, a.ID)
	fx.approve(t, acmeMgr, b.ID)
	payIntervals(t, fx, acmeAdm, "emp-1", a.ID)
	payIntervals(t, fx, acmeAdm, "emp-2", b.ID)

	got, err := fx.payments.List(context.Background(), core.ScopeFor(acmeAdm), core.PaymentFilter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = fx.payments.List(context.Background(), core.ScopeFor(acmeEmp), core.PaymentFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "emp-1", got[0].PayeeID)

	_, err = fx.payments.List(context.Background(), core.ScopeFor(acmeEmp), core.PaymentFilter{PayeeID: "emp-2"})
	assert.True(t, core.IsForbidden(err))
}
