// Package store provides an in-memory core.Store for tests and dev.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/worklog-engine/core"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory implements core.Store behind one mutex, which also serves as
// the serialization the conflict-check-then-insert contract requires.
type Memory struct {
	mu          sync.RWMutex
	intervals   map[string]core.WorkInterval
	payments    map[string]core.Payment
	allocations map[string]string // interval id -> payment id
	workers     map[string]core.Worker
	reviews     map[string][]core.Review
}

func NewMemory() *Memory {
	return &Memory{
		intervals:   make(map[string]core.WorkInterval),
		payments:    make(map[string]core.Payment),
		allocations: make(map[string]string),
		workers:     make(map[string]core.Worker),
		reviews:     make(map[string][]core.Review),
	}
}

// ──────────────────────────── intervals ────────────────────────────

func (m *Memory) CreateInterval(_ context.Context, iv *core.WorkInterval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkConflictsLocked(iv, ""); err != nil {
		return err
	}
	m.intervals[iv.ID] = *iv
	return nil
}

func (m *Memory) UpdateInterval(_ context.Context, iv *core.WorkInterval) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.intervals[iv.ID]; !ok {
		return core.ErrNotFound
	}
	if err := m.checkConflictsLocked(iv, iv.ID); err != nil {
		return err
	}
	m.intervals[iv.ID] = *iv
	return nil
}

func (m *Memory) checkConflictsLocked(iv *core.WorkInterval, excludeID string) error {
	var sameDay []core.WorkInterval
	for _, other := range m.intervals {
		if other.OwnerID == iv.OwnerID && other.Date.Equal(iv.Date) {
			sameDay = append(sameDay, other)
		}
	}
	cand := core.Candidate{Date: iv.Date, Start: iv.Start, End: iv.End, ExcludeID: excludeID}
	if report := core.NewConflictReport(cand, core.FindConflicts(cand, sameDay)); report != nil {
		return report
	}
	return nil
}

func (m *Memory) GetInterval(_ context.Context, id string) (*core.WorkInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if iv, ok := m.intervals[id]; ok {
		return &iv, nil
	}
	return nil, nil
}

func (m *Memory) ListIntervals(_ context.Context, f core.IntervalFilter) ([]core.WorkInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.WorkInterval
	for _, iv := range m.intervals {
		if !matchesInterval(iv, f) {
			continue
		}
		if f.UnpaidOnly {
			if iv.Status != core.IntervalApproved {
				continue
			}
			if _, taken := m.allocations[iv.ID]; taken {
				continue
			}
		}
		out = append(out, iv)
	}

	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		less := a.Date.Before(b.Date) || (a.Date.Equal(b.Date) && a.Start < b.Start)
		if f.SortDesc {
			return !less && !(a.Date.Equal(b.Date) && a.Start == b.Start)
		}
		return less
	})
	return paginate(out, f.Offset, f.Limit), nil
}

func matchesInterval(iv core.WorkInterval, f core.IntervalFilter) bool {
	if f.OwnerID != "" && iv.OwnerID != f.OwnerID {
		return false
	}
	if f.CompanyID != "" && iv.CompanyID != f.CompanyID {
		return false
	}
	if f.ExcludeOwnerID != "" && iv.OwnerID == f.ExcludeOwnerID {
		return false
	}
	if f.From != nil && iv.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && iv.Date.After(*f.To) {
		return false
	}
	if f.Status != nil && iv.Status != *f.Status {
		return false
	}
	return true
}

func (m *Memory) ListIntervalsByIDs(_ context.Context, ids []string) ([]core.WorkInterval, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.WorkInterval
	for _, id := range ids {
		if iv, ok := m.intervals[id]; ok {
			out = append(out, iv)
		}
	}
	return out, nil
}

func (m *Memory) DeleteInterval(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.intervals[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.intervals, id)
	delete(m.reviews, id)
	return nil
}

func (m *Memory) SetIntervalStatus(_ context.Context, id string, status core.IntervalStatus, reason string, rev core.Review) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	iv, ok := m.intervals[id]
	if !ok {
		return core.ErrNotFound
	}
	iv.Status = status
	iv.RejectionReason = reason
	iv.UpdatedAt = rev.CreatedAt
	m.intervals[id] = iv
	m.reviews[id] = append(m.reviews[id], rev)
	return nil
}

func (m *Memory) ListReviews(_ context.Context, intervalID string) ([]core.Review, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.Review, len(m.reviews[intervalID]))
	copy(out, m.reviews[intervalID])
	return out, nil
}

// ──────────────────────────── payments ────────────────────────────

func (m *Memory) CreatePayment(_ context.Context, p *core.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Uniqueness check and insert under one lock, like the unique
	// index does for the SQLite store. A duplicate within the batch
	// itself violates the index too.
	var taken []string
	inBatch := make(map[string]bool, len(p.Allocations))
	for _, a := range p.Allocations {
		if _, exists := m.allocations[a.IntervalID]; exists || inBatch[a.IntervalID] {
			taken = append(taken, a.IntervalID)
		}
		inBatch[a.IntervalID] = true
	}
	if len(taken) > 0 {
		return &core.AllocationConflict{IntervalIDs: taken}
	}

	m.payments[p.ID] = clonePayment(*p)
	for _, a := range p.Allocations {
		m.allocations[a.IntervalID] = p.ID
	}
	return nil
}

func (m *Memory) GetPayment(_ context.Context, id string) (*core.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if p, ok := m.payments[id]; ok {
		p = clonePayment(p)
		return &p, nil
	}
	return nil, nil
}

func (m *Memory) ListPayments(_ context.Context, f core.PaymentFilter) ([]core.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.Payment
	for _, p := range m.payments {
		if f.PayeeID != "" && p.PayeeID != f.PayeeID {
			continue
		}
		if f.CompanyID != "" && p.CompanyID != f.CompanyID {
			continue
		}
		if f.Status != nil && p.Status != *f.Status {
			continue
		}
		if f.From != nil && p.IssueDate.Before(*f.From) {
			continue
		}
		if f.To != nil && p.IssueDate.After(*f.To) {
			continue
		}
		out = append(out, clonePayment(p))
	}
	sort.Slice(out, func(i, j int) bool {
		less := out[i].IssueDate.Before(out[j].IssueDate) ||
			(out[i].IssueDate.Equal(out[j].IssueDate) && out[i].CreatedAt.Before(out[j].CreatedAt))
		if f.SortDesc {
			return !less
		}
		return less
	})
	return paginate(out, f.Offset, f.Limit), nil
}

func (m *Memory) UpdatePayment(_ context.Context, p *core.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.ID]; !ok {
		return core.ErrNotFound
	}
	m.payments[p.ID] = clonePayment(*p)
	return nil
}

func (m *Memory) DeletePayment(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return core.ErrNotFound
	}
	for _, a := range p.Allocations {
		delete(m.allocations, a.IntervalID)
	}
	delete(m.payments, id)
	return nil
}

func (m *Memory) AllocatedIntervalIDs(_ context.Context, ids []string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var taken []string
	for _, id := range ids {
		if _, exists := m.allocations[id]; exists {
			taken = append(taken, id)
		}
	}
	return taken, nil
}

// ──────────────────────────── workers ────────────────────────────

func (m *Memory) SaveWorker(_ context.Context, w core.Worker) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.workers[w.ID] = w
	return nil
}

func (m *Memory) GetWorker(_ context.Context, id string) (*core.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if w, ok := m.workers[id]; ok {
		return &w, nil
	}
	return nil, nil
}

func (m *Memory) ListWorkers(_ context.Context, companyID string) ([]core.Worker, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.Worker
	for _, w := range m.workers {
		if companyID == "" || w.CompanyID == companyID {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ──────────────────────────── helpers ────────────────────────────

func clonePayment(p core.Payment) core.Payment {
	allocs := make([]core.PaymentAllocation, len(p.Allocations))
	copy(allocs, p.Allocations)
	p.Allocations = allocs
	if p.ConfirmedAt != nil {
		at := *p.ConfirmedAt
		p.ConfirmedAt = &at
	}
	return p
}

func paginate[T any](in []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(in) {
			return nil
		}
		in = in[offset:]
	}
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}
