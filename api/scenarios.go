/*
scenarios.go - Demo scenario loaders

PURPOSE:
  Seeds the store with small, recognizable datasets for local runs and
  demos: companies, workers with hourly rates, and intervals in various
  review states. Loading is DEVELOPER-only and additive; run against a
  fresh database for a clean slate.

SCENARIOS:
  two-companies   Workers across two companies, no intervals. Good for
                  exploring scoping rules by switching X-Actor-ID.
  payroll-cycle   One company with approved unpaid intervals, ready to
                  reconcile into a payment.
*/
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/worklog-engine/core"
)

// ScenarioDTO describes one loadable scenario.
type ScenarioDTO struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario by name.
type LoadScenarioRequest struct {
	Name string `json:"name" validate:"required"`
}

type scenario struct {
	description string
	load        func(ctx context.Context, store core.Store, now time.Time) error
}

var scenarios = map[string]scenario{
	"two-companies": {
		description: "Workers across two companies; switch X-Actor-ID to explore scoping",
		load:        loadTwoCompanies,
	},
	"payroll-cycle": {
		description: "Approved unpaid intervals ready for payment reconciliation",
		load:        loadPayrollCycle,
	},
}

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	var dtos []ScenarioDTO
	for name, s := range scenarios {
		dtos = append(dtos, ScenarioDTO{Name: name, Description: s.description})
	}
	writeJSON(w, http.StatusOK, dtos)
}

// LoadScenario seeds the selected scenario. DEVELOPER only.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r.Context())
	if actor.Role != core.RoleDeveloper {
		writeError(w, http.StatusForbidden, "Scenario loading is developer-only", nil)
		return
	}

	var req LoadScenarioRequest
	if !h.decode(w, r, &req) {
		return
	}
	s, ok := scenarios[req.Name]
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown scenario", nil)
		return
	}

	if err := s.load(r.Context(), h.Store, h.Intervals.Clock.Now()); err != nil {
		h.Log.WithError(err).Error("scenario load failed")
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", nil)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.Name})
}

// SeedDeveloper ensures a bootstrap developer identity exists so the
// API is usable against an empty database.
func SeedDeveloper(ctx context.Context, store core.Store, now time.Time) error {
	existing, err := store.GetWorker(ctx, "dev")
	if err != nil || existing != nil {
		return err
	}
	return store.SaveWorker(ctx, core.Worker{
		ID:         "dev",
		Name:       "Platform Developer",
		CompanyID:  "platform",
		Role:       core.RoleDeveloper,
		HourlyRate: decimal.Zero,
		CreatedAt:  now,
	})
}

func loadTwoCompanies(ctx context.Context, store core.Store, now time.Time) error {
	workers := []core.Worker{
		{ID: "acme-admin", Name: "Ada Admin", CompanyID: "acme", Role: core.RoleAdmin, HourlyRate: decimal.NewFromInt(45)},
		{ID: "acme-manager", Name: "Mary Manager", CompanyID: "acme", Role: core.RoleManager, HourlyRate: decimal.NewFromInt(38)},
		{ID: "acme-emp-1", Name: "Evan Employee", CompanyID: "acme", Role: core.RoleEmployee, HourlyRate: decimal.NewFromInt(20)},
		{ID: "acme-emp-2", Name: "Erin Employee", CompanyID: "acme", Role: core.RoleEmployee, HourlyRate: decimal.NewFromInt(22)},
		{ID: "globex-admin", Name: "Gus Admin", CompanyID: "globex", Role: core.RoleAdmin, HourlyRate: decimal.NewFromInt(50)},
		{ID: "globex-emp-1", Name: "Greta Employee", CompanyID: "globex", Role: core.RoleEmployee, HourlyRate: decimal.NewFromInt(25)},
	}
	for _, w := range workers {
		w.CreatedAt = now
		if err := store.SaveWorker(ctx, w); err != nil {
			return err
		}
	}
	return nil
}

func loadPayrollCycle(ctx context.Context, store core.Store, now time.Time) error {
	if err := loadTwoCompanies(ctx, store, now); err != nil {
		return err
	}

	day := core.DayOf(now).AddDays(-7)
	entries := []struct {
		owner      string
		start, end core.MinuteOfDay
		status     core.IntervalStatus
	}{
		{"acme-emp-1", 9 * 60, 11 * 60, core.IntervalApproved},
		{"acme-emp-1", 13 * 60, 16 * 60, core.IntervalApproved},
		{"acme-emp-1", 16*60 + 30, 18 * 60, core.IntervalPending},
		{"acme-emp-2", 8 * 60, 12 * 60, core.IntervalApproved},
	}
	for _, e := range entries {
		iv := &core.WorkInterval{
			ID:        uuid.NewString(),
			OwnerID:   e.owner,
			CompanyID: "acme",
			Date:      day,
			Start:     e.start,
			End:       e.end,
			Status:    core.IntervalPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := store.CreateInterval(ctx, iv); err != nil {
			return err
		}
		if e.status == core.IntervalApproved {
			rev := core.Review{
				ID:         uuid.NewString(),
				IntervalID: iv.ID,
				ReviewerID: "acme-manager",
				Decision:   core.IntervalApproved,
				CreatedAt:  now,
			}
			if err := store.SetIntervalStatus(ctx, iv.ID, core.IntervalApproved, "", rev); err != nil {
				return err
			}
		}
	}
	return nil
}
