/*
Package sqlite provides the SQLite-backed implementation of core.Store.

PURPOSE:
  Persists workers, intervals, payments, allocations, and the review
  history. In production the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

INVARIANTS ENFORCED BY SCHEMA:
  idx_allocations_interval:  UNIQUE on payment_allocations(interval_id) -
    the arbiter of at-most-one-payment-per-interval. A concurrent
    reconciliation that slips past the pre-flight check dies here.
  ON DELETE CASCADE from payments to payment_allocations - deleting a
    payment returns its intervals to the unpaid pool in one statement.

CONCURRENCY:
  The DSN requests immediate transactions (_txlock=immediate), so every
  read-check-insert sequence takes the write lock up front: two
  concurrent interval submissions serialize, and the second sees the
  first's committed row during its conflict check. A sync.RWMutex guards
  the handle as well, matching SQLite's single-writer reality.

WAL MODE:
  Opened with WAL for read concurrency and crash recovery.

USAGE:
  store, err := sqlite.New("./data/worklog.db")  // ":memory:" for tests
  defer store.Close()

SEE ALSO:
  - core/store.go: interface contracts
  - core/store/memory.go: in-memory implementation for unit tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/worklog-engine/core"
)

// Store implements core.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at dbPath. Use ":memory:" for tests.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection sidesteps SQLITE_BUSY between pooled conns;
	// the database is the serialization point either way.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS workers (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		company_id  TEXT NOT NULL,
		role        TEXT NOT NULL,
		hourly_rate TEXT NOT NULL,
		created_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_workers_company ON workers(company_id);

	CREATE TABLE IF NOT EXISTS work_intervals (
		id               TEXT PRIMARY KEY,
		owner_id         TEXT NOT NULL,
		company_id       TEXT NOT NULL,
		day              TEXT NOT NULL,
		start_minute     INTEGER NOT NULL,
		end_minute       INTEGER NOT NULL,
		note             TEXT,
		project_label    TEXT,
		status           TEXT NOT NULL,
		rejection_reason TEXT,
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL,
		CHECK (end_minute > start_minute)
	);

	-- Hot path: same-day conflict checks and owner/date listings.
	CREATE INDEX IF NOT EXISTS idx_intervals_owner_day
		ON work_intervals(owner_id, day);
	CREATE INDEX IF NOT EXISTS idx_intervals_company
		ON work_intervals(company_id, day);

	CREATE TABLE IF NOT EXISTS payments (
		id           TEXT PRIMARY KEY,
		payee_id     TEXT NOT NULL,
		company_id   TEXT NOT NULL,
		creator_id   TEXT NOT NULL,
		amount       TEXT NOT NULL,
		issue_date   TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end   TEXT NOT NULL,
		method       TEXT NOT NULL,
		status       TEXT NOT NULL,
		reference    TEXT,
		receipt_url  TEXT,
		confirmed_at TEXT,
		created_at   TEXT NOT NULL,
		updated_at   TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_payee ON payments(payee_id);
	CREATE INDEX IF NOT EXISTS idx_payments_company ON payments(company_id, issue_date);

	CREATE TABLE IF NOT EXISTS payment_allocations (
		id          TEXT PRIMARY KEY,
		payment_id  TEXT NOT NULL REFERENCES payments(id) ON DELETE CASCADE,
		interval_id TEXT NOT NULL REFERENCES work_intervals(id),
		amount      TEXT NOT NULL
	);

	-- CRITICAL: an interval belongs to at most one payment, ever.
	CREATE UNIQUE INDEX IF NOT EXISTS idx_allocations_interval
		ON payment_allocations(interval_id);
	CREATE INDEX IF NOT EXISTS idx_allocations_payment
		ON payment_allocations(payment_id);

	CREATE TABLE IF NOT EXISTS interval_reviews (
		id          TEXT PRIMARY KEY,
		interval_id TEXT NOT NULL,
		reviewer_id TEXT NOT NULL,
		decision    TEXT NOT NULL,
		reason      TEXT,
		created_at  TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reviews_interval
		ON interval_reviews(interval_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// INTERVALS
// =============================================================================

// CreateInterval runs the same-day conflict check and the insert inside
// one immediate transaction.
func (s *Store) CreateInterval(ctx context.Context, iv *core.WorkInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeIntervalChecked(ctx, iv, "")
}

// UpdateInterval re-checks conflicts with the edited bounds, excluding
// the interval's own prior version.
func (s *Store) UpdateInterval(ctx context.Context, iv *core.WorkInterval) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeIntervalChecked(ctx, iv, iv.ID)
}

func (s *Store) writeIntervalChecked(ctx context.Context, iv *core.WorkInterval, excludeID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	sameDay, err := s.sameDayIntervals(ctx, tx, iv.OwnerID, iv.Date)
	if err != nil {
		return err
	}
	cand := core.Candidate{Date: iv.Date, Start: iv.Start, End: iv.End, ExcludeID: excludeID}
	if report := core.NewConflictReport(cand, core.FindConflicts(cand, sameDay)); report != nil {
		return report
	}

	if excludeID == "" {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO work_intervals
			(id, owner_id, company_id, day, start_minute, end_minute,
			 note, project_label, status, rejection_reason, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			iv.ID, iv.OwnerID, iv.CompanyID, iv.Date.String(), int(iv.Start), int(iv.End),
			iv.Note, iv.ProjectLabel, string(iv.Status), nullString(iv.RejectionReason),
			formatTime(iv.CreatedAt), formatTime(iv.UpdatedAt))
	} else {
		var res sql.Result
		res, err = tx.ExecContext(ctx, `
			UPDATE work_intervals
			SET day = ?, start_minute = ?, end_minute = ?, note = ?,
			    project_label = ?, status = ?, rejection_reason = ?, updated_at = ?
			WHERE id = ?`,
			iv.Date.String(), int(iv.Start), int(iv.End), iv.Note,
			iv.ProjectLabel, string(iv.Status), nullString(iv.RejectionReason),
			formatTime(iv.UpdatedAt), iv.ID)
		if err == nil {
			if n, _ := res.RowsAffected(); n == 0 {
				return core.ErrNotFound
			}
		}
	}
	if err != nil {
		return fmt.Errorf("failed to write interval: %w", err)
	}
	return tx.Commit()
}

func (s *Store) sameDayIntervals(ctx context.Context, tx *sql.Tx, ownerID string, day core.Day) ([]core.WorkInterval, error) {
	rows, err := tx.QueryContext(ctx,
		intervalSelect+` WHERE owner_id = ? AND day = ?`, ownerID, day.String())
	if err != nil {
		return nil, fmt.Errorf("failed to query same-day intervals: %w", err)
	}
	defer rows.Close()
	return scanIntervals(rows)
}

const intervalSelect = `
	SELECT id, owner_id, company_id, day, start_minute, end_minute,
	       note, project_label, status, rejection_reason, created_at, updated_at
	FROM work_intervals`

func (s *Store) GetInterval(ctx context.Context, id string) (*core.WorkInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, intervalSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get interval: %w", err)
	}
	defer rows.Close()

	intervals, err := scanIntervals(rows)
	if err != nil {
		return nil, err
	}
	if len(intervals) == 0 {
		return nil, nil
	}
	return &intervals[0], nil
}

func (s *Store) ListIntervals(ctx context.Context, f core.IntervalFilter) ([]core.WorkInterval, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if f.OwnerID != "" {
		where = append(where, "owner_id = ?")
		args = append(args, f.OwnerID)
	}
	if f.CompanyID != "" {
		where = append(where, "company_id = ?")
		args = append(args, f.CompanyID)
	}
	if f.ExcludeOwnerID != "" {
		where = append(where, "owner_id != ?")
		args = append(args, f.ExcludeOwnerID)
	}
	if f.From != nil {
		where = append(where, "day >= ?")
		args = append(args, f.From.String())
	}
	if f.To != nil {
		where = append(where, "day <= ?")
		args = append(args, f.To.String())
	}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.UnpaidOnly {
		// The unpaid predicate: approved, and no allocation row. The
		// allocation table is the only source of truth here.
		where = append(where, "status = ?")
		args = append(args, string(core.IntervalApproved))
		where = append(where,
			"NOT EXISTS (SELECT 1 FROM payment_allocations a WHERE a.interval_id = work_intervals.id)")
	}

	query := intervalSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	if f.SortDesc {
		query += " ORDER BY day DESC, start_minute DESC"
	} else {
		query += " ORDER BY day, start_minute"
	}
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	} else if f.Offset > 0 {
		query += fmt.Sprintf(" LIMIT -1 OFFSET %d", f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list intervals: %w", err)
	}
	defer rows.Close()
	return scanIntervals(rows)
}

func (s *Store) ListIntervalsByIDs(ctx context.Context, ids []string) ([]core.WorkInterval, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		intervalSelect+` WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list intervals by id: %w", err)
	}
	defer rows.Close()
	return scanIntervals(rows)
}

func (s *Store) DeleteInterval(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM work_intervals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete interval: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// SetIntervalStatus applies the decision and appends the review record
// in one transaction.
func (s *Store) SetIntervalStatus(ctx context.Context, id string, status core.IntervalStatus, reason string, rev core.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE work_intervals
		SET status = ?, rejection_reason = ?, updated_at = ?
		WHERE id = ?`,
		string(status), nullString(reason), formatTime(rev.CreatedAt), id)
	if err != nil {
		return fmt.Errorf("failed to update interval status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO interval_reviews (id, interval_id, reviewer_id, decision, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		rev.ID, rev.IntervalID, rev.ReviewerID, string(rev.Decision),
		nullString(rev.Reason), formatTime(rev.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to append review: %w", err)
	}
	return tx.Commit()
}

func (s *Store) ListReviews(ctx context.Context, intervalID string) ([]core.Review, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, interval_id, reviewer_id, decision, reason, created_at
		FROM interval_reviews WHERE interval_id = ? ORDER BY created_at`, intervalID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var out []core.Review
	for rows.Next() {
		var (
			rev       core.Review
			decision  string
			reason    sql.NullString
			createdAt string
		)
		if err := rows.Scan(&rev.ID, &rev.IntervalID, &rev.ReviewerID, &decision, &reason, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		rev.Decision = core.IntervalStatus(decision)
		rev.Reason = reason.String
		rev.CreatedAt = parseTime(createdAt)
		out = append(out, rev)
	}
	return out, rows.Err()
}

// =============================================================================
// PAYMENTS & ALLOCATIONS
// =============================================================================

// CreatePayment inserts the payment and all allocations atomically. The
// pre-flight allocation query runs inside the same immediate transaction
// as the inserts, and the unique index backstops it regardless.
func (s *Store) CreatePayment(ctx context.Context, p *core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ids := make([]string, len(p.Allocations))
	for i, a := range p.Allocations {
		ids[i] = a.IntervalID
	}
	taken, err := allocatedIn(ctx, tx, ids)
	if err != nil {
		return err
	}
	if len(taken) > 0 {
		return &core.AllocationConflict{IntervalIDs: taken}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO payments
		(id, payee_id, company_id, creator_id, amount, issue_date, period_start,
		 period_end, method, status, reference, receipt_url, confirmed_at,
		 created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PayeeID, p.CompanyID, p.CreatorID, p.Amount.String(),
		p.IssueDate.String(), p.PeriodStart.String(), p.PeriodEnd.String(),
		string(p.Method), string(p.Status), nullString(p.Reference),
		nullString(p.ReceiptURL), nullTime(p.ConfirmedAt),
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return fmt.Errorf("failed to insert payment: %w", err)
	}

	for _, a := range p.Allocations {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO payment_allocations (id, payment_id, interval_id, amount)
			VALUES (?, ?, ?, ?)`,
			a.ID, a.PaymentID, a.IntervalID, a.Amount.String())
		if err != nil {
			if isUniqueConstraintError(err) {
				return &core.AllocationConflict{IntervalIDs: []string{a.IntervalID}}
			}
			return fmt.Errorf("failed to insert allocation: %w", err)
		}
	}
	return tx.Commit()
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func allocatedIn(ctx context.Context, q queryer, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx, `
		SELECT interval_id FROM payment_allocations
		WHERE interval_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query allocations: %w", err)
	}
	defer rows.Close()

	allocated := make(map[string]bool)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocated[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Preserve input order in the report.
	var taken []string
	for _, id := range ids {
		if allocated[id] {
			taken = append(taken, id)
		}
	}
	return taken, nil
}

func (s *Store) AllocatedIntervalIDs(ctx context.Context, ids []string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return allocatedIn(ctx, s.db, ids)
}

const paymentSelect = `
	SELECT id, payee_id, company_id, creator_id, amount, issue_date,
	       period_start, period_end, method, status, reference, receipt_url,
	       confirmed_at, created_at, updated_at
	FROM payments`

func (s *Store) GetPayment(ctx context.Context, id string) (*core.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, paymentSelect+` WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	payments, err := scanPayments(rows)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, nil
	}
	p := payments[0]
	if err := s.loadAllocations(ctx, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *Store) ListPayments(ctx context.Context, f core.PaymentFilter) ([]core.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		where []string
		args  []any
	)
	if f.PayeeID != "" {
		where = append(where, "payee_id = ?")
		args = append(args, f.PayeeID)
	}
	if f.CompanyID != "" {
		where = append(where, "company_id = ?")
		args = append(args, f.CompanyID)
	}
	if f.Status != nil {
		where = append(where, "status = ?")
		args = append(args, string(*f.Status))
	}
	if f.From != nil {
		where = append(where, "issue_date >= ?")
		args = append(args, f.From.String())
	}
	if f.To != nil {
		where = append(where, "issue_date <= ?")
		args = append(args, f.To.String())
	}

	query := paymentSelect
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY issue_date"
	if f.SortDesc {
		query += " DESC"
	}
	query += ", created_at"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	payments, err := scanPayments(rows)
	if err != nil {
		return nil, err
	}
	for i := range payments {
		if err := s.loadAllocations(ctx, &payments[i]); err != nil {
			return nil, err
		}
	}
	return payments, nil
}

func (s *Store) loadAllocations(ctx context.Context, p *core.Payment) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, payment_id, interval_id, amount
		FROM payment_allocations WHERE payment_id = ? ORDER BY rowid`, p.ID)
	if err != nil {
		return fmt.Errorf("failed to load allocations: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			a      core.PaymentAllocation
			amount string
		)
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.IntervalID, &amount); err != nil {
			return fmt.Errorf("failed to scan allocation: %w", err)
		}
		if a.Amount, err = parseDecimal(amount); err != nil {
			return err
		}
		p.Allocations = append(p.Allocations, a)
	}
	return rows.Err()
}

func (s *Store) UpdatePayment(ctx context.Context, p *core.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE payments
		SET status = ?, reference = ?, receipt_url = ?, confirmed_at = ?, updated_at = ?
		WHERE id = ?`,
		string(p.Status), nullString(p.Reference), nullString(p.ReceiptURL),
		nullTime(p.ConfirmedAt), formatTime(p.UpdatedAt), p.ID)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) DeletePayment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Allocations go with it via ON DELETE CASCADE.
	res, err := s.db.ExecContext(ctx, `DELETE FROM payments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// =============================================================================
// WORKERS
// =============================================================================

func (s *Store) SaveWorker(ctx context.Context, w core.Worker) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workers (id, name, company_id, role, hourly_rate, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, company_id = excluded.company_id,
			role = excluded.role, hourly_rate = excluded.hourly_rate`,
		w.ID, w.Name, w.CompanyID, string(w.Role), w.HourlyRate.String(),
		formatTime(w.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to save worker: %w", err)
	}
	return nil
}

func (s *Store) GetWorker(ctx context.Context, id string) (*core.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		w         core.Worker
		role      string
		rate      string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, company_id, role, hourly_rate, created_at
		FROM workers WHERE id = ?`, id).
		Scan(&w.ID, &w.Name, &w.CompanyID, &role, &rate, &createdAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	w.Role = core.Role(role)
	if w.HourlyRate, err = parseDecimal(rate); err != nil {
		return nil, err
	}
	w.CreatedAt = parseTime(createdAt)
	return &w, nil
}

func (s *Store) ListWorkers(ctx context.Context, companyID string) ([]core.Worker, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, name, company_id, role, hourly_rate, created_at FROM workers`
	var args []any
	if companyID != "" {
		query += ` WHERE company_id = ?`
		args = append(args, companyID)
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list workers: %w", err)
	}
	defer rows.Close()

	var out []core.Worker
	for rows.Next() {
		var (
			w         core.Worker
			role      string
			rate      string
			createdAt string
		)
		if err := rows.Scan(&w.ID, &w.Name, &w.CompanyID, &role, &rate, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		w.Role = core.Role(role)
		hourly, err := parseDecimal(rate)
		if err != nil {
			return nil, err
		}
		w.HourlyRate = hourly
		w.CreatedAt = parseTime(createdAt)
		out = append(out, w)
	}
	return out, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

func scanIntervals(rows *sql.Rows) ([]core.WorkInterval, error) {
	var out []core.WorkInterval
	for rows.Next() {
		var (
			iv                   core.WorkInterval
			day                  string
			start, end           int
			note, project        sql.NullString
			status               string
			reason               sql.NullString
			createdAt, updatedAt string
		)
		if err := rows.Scan(&iv.ID, &iv.OwnerID, &iv.CompanyID, &day, &start, &end,
			&note, &project, &status, &reason, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan interval: %w", err)
		}
		d, err := core.ParseDay(day)
		if err != nil {
			return nil, fmt.Errorf("corrupt day value %q: %w", day, err)
		}
		iv.Date = d
		iv.Start = core.MinuteOfDay(start)
		iv.End = core.MinuteOfDay(end)
		iv.Note = note.String
		iv.ProjectLabel = project.String
		iv.Status = core.IntervalStatus(status)
		iv.RejectionReason = reason.String
		iv.CreatedAt = parseTime(createdAt)
		iv.UpdatedAt = parseTime(updatedAt)
		out = append(out, iv)
	}
	return out, rows.Err()
}

func scanPayments(rows *sql.Rows) ([]core.Payment, error) {
	defer rows.Close()
	var out []core.Payment
	for rows.Next() {
		var (
			p                               core.Payment
			amount, issue, pstart, pend     string
			method, status                  string
			reference, receipt, confirmedAt sql.NullString
			createdAt, updatedAt            string
		)
		if err := rows.Scan(&p.ID, &p.PayeeID, &p.CompanyID, &p.CreatorID,
			&amount, &issue, &pstart, &pend, &method, &status,
			&reference, &receipt, &confirmedAt, &createdAt, &updatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		var err error
		if p.Amount, err = parseDecimal(amount); err != nil {
			return nil, err
		}
		if p.IssueDate, err = parseDay(issue); err != nil {
			return nil, err
		}
		if p.PeriodStart, err = parseDay(pstart); err != nil {
			return nil, err
		}
		if p.PeriodEnd, err = parseDay(pend); err != nil {
			return nil, err
		}
		p.Method = core.PaymentMethod(method)
		p.Status = core.PaymentStatus(status)
		p.Reference = reference.String
		p.ReceiptURL = receipt.String
		if confirmedAt.Valid {
			t := parseTime(confirmedAt.String)
			p.ConfirmedAt = &t
		}
		p.CreatedAt = parseTime(createdAt)
		p.UpdatedAt = parseTime(updatedAt)
		out = append(out, p)
	}
	return out, rows.Err()
}

// =============================================================================
// VALUE HELPERS
// =============================================================================

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("corrupt decimal value %q: %w", s, err)
	}
	return d, nil
}

func parseDay(s string) (core.Day, error) {
	d, err := core.ParseDay(s)
	if err != nil {
		return core.Day{}, fmt.Errorf("corrupt day value %q: %w", s, err)
	}
	return d, nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
