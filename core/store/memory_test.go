package store

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/worklog-engine/core"
)

func TestMemory_CreatePayment_DuplicateIntervalInBatch(t *testing.T) {
	// GIVEN: A payment batch naming the same interval twice
	// THEN: Refused like the SQLite unique index would, nothing stored

	m := NewMemory()
	p := &core.Payment{
		ID:      "pay-1",
		PayeeID: "emp-1",
		Amount:  decimal.RequireFromString("80.00"),
		Allocations: []core.PaymentAllocation{
			{ID: "a", PaymentID: "pay-1", IntervalID: "iv-1", Amount: decimal.RequireFromString("40.00")},
			{ID: "b", PaymentID: "pay-1", IntervalID: "iv-1", Amount: decimal.RequireFromString("40.00")},
		},
	}

	err := m.CreatePayment(context.Background(), p)
	var conflict *core.AllocationConflict
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, []string{"iv-1"}, conflict.IntervalIDs)

	got, err := m.GetPayment(context.Background(), "pay-1")
	require.NoError(t, err)
	assert.Nil(t, got)

	taken, err := m.AllocatedIntervalIDs(context.Background(), []string{"iv-1"})
	require.NoError(t, err)
	assert.Empty(t, taken)
}
