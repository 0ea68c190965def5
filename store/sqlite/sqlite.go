/*
Package sqlite provides a SQLite-backed implementation of engine.Store.

PURPOSE:
  Persists persons, evaluation records, the three compensation tables
  and payroll runs. In production the same patterns apply to
  PostgreSQL with minor SQL dialect differences.

KEY TABLES:
  persons:             Evaluated individuals
  evaluations:         One row per axis record; the typed record is kept
                       as its flat JSON row in payload_json
  base_salary_configs: Versioned base salary per (role, tier)
  incentive_configs:   Versioned incentive range per role
  allowance_configs:   Versioned allowance per employment type
  payroll_runs:        One row per run
  payroll_lines:       Priced persons of a run

CONFIG ROW ORDER:
  Config tables carry an autoincrement seq column. Rows are always read
  ordered by seq because on a tie (same key, same effective month) the
  row stored later wins.

INDEXES:
  - idx_evaluations_week: Window loads (hot path)
  - idx_evaluations_status: Overdue sweep and latest-week lookup

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. In production with PostgreSQL,
  database-level concurrency control handles this instead.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

USAGE:
  store, err := sqlite.New("./data/evaluation.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  eng := engine.New(store)

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - engine/store.go: Interface definitions
  - store/memory: In-memory implementation for testing
  - factory/evaluation.go: Payload codec
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/evaluation-engine/compensation"
	"github.com/warp/evaluation-engine/engine"
	"github.com/warp/evaluation-engine/evaluation"
	"github.com/warp/evaluation-engine/factory"
	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/period"
)

var _ engine.Store = (*Store)(nil)

// Store implements engine.Store using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every connection would see its own empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS persons (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		role TEXT NOT NULL,
		tier INTEGER NOT NULL,
		employment_type TEXT NOT NULL,
		fte REAL NOT NULL DEFAULT 0,
		is_evaluated INTEGER NOT NULL DEFAULT 0,
		created_at TEXT,
		retired_at TEXT
	);

	CREATE TABLE IF NOT EXISTS evaluations (
		id TEXT PRIMARY KEY,
		evaluation_type TEXT NOT NULL,
		person_id TEXT NOT NULL,
		evaluator_id TEXT,
		week TEXT NOT NULL,
		status TEXT NOT NULL,
		due_date TEXT,
		payload_json TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_week
		ON evaluations(week);
	CREATE INDEX IF NOT EXISTS idx_evaluations_status
		ON evaluations(status, week);
	CREATE INDEX IF NOT EXISTS idx_evaluations_person
		ON evaluations(person_id, week);

	CREATE TABLE IF NOT EXISTS base_salary_configs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		tier INTEGER NOT NULL,
		effective_month TEXT NOT NULL,
		base_salary TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS incentive_configs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		effective_month TEXT NOT NULL,
		min_incentive TEXT NOT NULL,
		max_incentive TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS allowance_configs (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		employment_type TEXT NOT NULL,
		effective_month TEXT NOT NULL,
		allowance TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payroll_runs (
		id TEXT PRIMARY KEY,
		month TEXT NOT NULL,
		curve TEXT NOT NULL,
		total_net TEXT NOT NULL,
		skipped_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS payroll_lines (
		run_id TEXT NOT NULL REFERENCES payroll_runs(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		person_id TEXT NOT NULL,
		person_json TEXT NOT NULL,
		total_points REAL NOT NULL,
		base_salary TEXT NOT NULL,
		incentive TEXT NOT NULL,
		allowance TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		net TEXT NOT NULL,
		rank INTEGER NOT NULL,
		cohort_size INTEGER NOT NULL,
		deviation REAL NOT NULL,
		position_t REAL NOT NULL,
		PRIMARY KEY (run_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_payroll_runs_month
		ON payroll_runs(month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// =============================================================================
// PERSON STORE
// =============================================================================

// SavePerson inserts or replaces a person.
func (s *Store) SavePerson(ctx context.Context, p generic.Person) error {
	if err := p.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO persons (id, name, role, tier, employment_type, fte, is_evaluated, created_at, retired_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			role = excluded.role,
			tier = excluded.tier,
			employment_type = excluded.employment_type,
			fte = excluded.fte,
			is_evaluated = excluded.is_evaluated,
			created_at = excluded.created_at,
			retired_at = excluded.retired_at
	`

	var retired sql.NullString
	if p.RetiredAt != nil {
		retired = nullString(p.RetiredAt.String())
	}
	_, err := s.db.ExecContext(ctx, query,
		p.ID, p.Name, p.Role, int(p.Tier), p.EmploymentType, p.FTE, p.IsEvaluated,
		dayString(p.CreatedAt), retired,
	)
	if err != nil {
		return fmt.Errorf("failed to save person: %w", err)
	}
	return nil
}

const personColumns = "id, name, role, tier, employment_type, fte, is_evaluated, created_at, retired_at"

// GetPerson retrieves a person by ID.
func (s *Store) GetPerson(ctx context.Context, id generic.PersonID) (generic.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx, "SELECT "+personColumns+" FROM persons WHERE id = ?", id)
	p, err := scanPerson(row)
	if err == sql.ErrNoRows {
		return generic.Person{}, fmt.Errorf("%w: %s", generic.ErrPersonNotFound, id)
	}
	return p, err
}

// ListPersons returns all persons ordered by id.
func (s *Store) ListPersons(ctx context.Context) ([]generic.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, "SELECT "+personColumns+" FROM persons ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var persons []generic.Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, err
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// DeletePerson removes a person. Their evaluation records are kept.
func (s *Store) DeletePerson(ctx context.Context, id generic.PersonID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM persons WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", generic.ErrPersonNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPerson(row scanner) (generic.Person, error) {
	var p generic.Person
	var tier int
	var createdAt, retiredAt sql.NullString
	if err := row.Scan(&p.ID, &p.Name, &p.Role, &tier, &p.EmploymentType, &p.FTE, &p.IsEvaluated, &createdAt, &retiredAt); err != nil {
		return generic.Person{}, err
	}
	p.Tier = generic.Tier(tier)
	if createdAt.Valid && createdAt.String != "" {
		p.CreatedAt, _ = generic.ParseDay(createdAt.String)
	}
	if retiredAt.Valid && retiredAt.String != "" {
		at, err := generic.ParseDay(retiredAt.String)
		if err == nil {
			p.RetiredAt = &at
		}
	}
	return p, nil
}

// =============================================================================
// EVALUATION STORE
// =============================================================================

// SaveEvaluation inserts or replaces one record.
func (s *Store) SaveEvaluation(ctx context.Context, e evaluation.AxisEvaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.saveEvaluation(ctx, s.db, e)
}

// SaveEvaluations writes records atomically.
func (s *Store) SaveEvaluations(ctx context.Context, es []evaluation.AxisEvaluation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, e := range es {
		if err := s.saveEvaluation(ctx, sqlTx, e); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

func (s *Store) saveEvaluation(ctx context.Context, db execer, e evaluation.AxisEvaluation) error {
	h := evaluation.HeaderOf(e)
	if h.ID == "" {
		return &generic.ValidationError{Field: "id", Message: "is required"}
	}
	payload, err := json.Marshal(factory.ToJSON(e))
	if err != nil {
		return fmt.Errorf("failed to encode evaluation %s: %w", h.ID, err)
	}

	query := `
		INSERT INTO evaluations
		(id, evaluation_type, person_id, evaluator_id, week, status, due_date, payload_json, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			evaluation_type = excluded.evaluation_type,
			person_id = excluded.person_id,
			evaluator_id = excluded.evaluator_id,
			week = excluded.week,
			status = excluded.status,
			due_date = excluded.due_date,
			payload_json = excluded.payload_json,
			updated_at = excluded.updated_at
	`

	_, err = db.ExecContext(ctx, query,
		h.ID,
		string(e.Axis()),
		h.PersonID,
		nullString(string(h.EvaluatorID)),
		h.Week.String(),
		h.Status,
		nullString(dayString(h.DueDate)),
		string(payload),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save evaluation %s: %w", h.ID, err)
	}
	return nil
}

// GetEvaluation retrieves a record by ID.
func (s *Store) GetEvaluation(ctx context.Context, id string) (evaluation.AxisEvaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payload string
	err := s.db.QueryRowContext(ctx, "SELECT payload_json FROM evaluations WHERE id = ?", id).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", generic.ErrEvaluationNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return factory.Decode([]byte(payload))
}

// LoadEvaluations returns every record of the given weeks in insertion
// order.
func (s *Store) LoadEvaluations(ctx context.Context, weeks []period.WeekID) ([]evaluation.AxisEvaluation, error) {
	if len(weeks) == 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	placeholders := make([]string, len(weeks))
	args := make([]any, len(weeks))
	for i, w := range weeks {
		placeholders[i] = "?"
		args[i] = w.String()
	}
	query := "SELECT payload_json FROM evaluations WHERE week IN (" + strings.Join(placeholders, ", ") + ") ORDER BY rowid"
	return s.queryEvaluations(ctx, query, args...)
}

// PendingEvaluations returns every pending record.
func (s *Store) PendingEvaluations(ctx context.Context) ([]evaluation.AxisEvaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryEvaluations(ctx,
		"SELECT payload_json FROM evaluations WHERE status = ? ORDER BY id",
		evaluation.StatusPending,
	)
}

// LatestWeek returns the latest week holding a completed record. Week ids
// are zero padded, so their text order is their calendar order.
func (s *Store) LatestWeek(ctx context.Context) (period.WeekID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var week sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT MAX(week) FROM evaluations WHERE status = ?", evaluation.StatusCompleted,
	).Scan(&week)
	if err != nil {
		return period.WeekID{}, false, err
	}
	if !week.Valid {
		return period.WeekID{}, false, nil
	}
	id, err := period.ParseWeekID(week.String)
	if err != nil {
		return period.WeekID{}, false, fmt.Errorf("stored week %q: %w", week.String, err)
	}
	return id, true, nil
}

func (s *Store) queryEvaluations(ctx context.Context, query string, args ...any) ([]evaluation.AxisEvaluation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []evaluation.AxisEvaluation
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		e, err := factory.Decode([]byte(payload))
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// =============================================================================
// CONFIG STORE
// =============================================================================

// LoadConfig returns all rows of the three tables in insertion order.
func (s *Store) LoadConfig(ctx context.Context) (compensation.ConfigSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var set compensation.ConfigSet

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, role, tier, effective_month, base_salary FROM base_salary_configs ORDER BY seq")
	if err != nil {
		return set, err
	}
	for rows.Next() {
		var r compensation.BaseSalaryRow
		var tier int
		var amount string
		if err := rows.Scan(&r.ID, &r.Role, &tier, &r.EffectiveMonth, &amount); err != nil {
			rows.Close()
			return set, err
		}
		r.Tier = generic.Tier(tier)
		r.BaseSalary = parseDecimal(amount)
		set.BaseSalaries = append(set.BaseSalaries, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return set, err
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT id, role, effective_month, min_incentive, max_incentive FROM incentive_configs ORDER BY seq")
	if err != nil {
		return set, err
	}
	for rows.Next() {
		var r compensation.IncentiveRow
		var minInc, maxInc string
		if err := rows.Scan(&r.ID, &r.Role, &r.EffectiveMonth, &minInc, &maxInc); err != nil {
			rows.Close()
			return set, err
		}
		r.MinIncentive = parseDecimal(minInc)
		r.MaxIncentive = parseDecimal(maxInc)
		set.Incentives = append(set.Incentives, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return set, err
	}

	rows, err = s.db.QueryContext(ctx,
		"SELECT id, employment_type, effective_month, allowance FROM allowance_configs ORDER BY seq")
	if err != nil {
		return set, err
	}
	defer rows.Close()
	for rows.Next() {
		var r compensation.AllowanceRow
		var amount string
		if err := rows.Scan(&r.ID, &r.EmploymentType, &r.EffectiveMonth, &amount); err != nil {
			return set, err
		}
		r.Allowance = parseDecimal(amount)
		set.Allowances = append(set.Allowances, r)
	}
	return set, rows.Err()
}

// SaveConfig appends the rows of set atomically. A row whose id already
// exists is updated in place and keeps its position.
func (s *Store) SaveConfig(ctx context.Context, set compensation.ConfigSet) error {
	if err := set.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	for _, r := range set.BaseSalaries {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO base_salary_configs (id, role, tier, effective_month, base_salary)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				role = excluded.role, tier = excluded.tier,
				effective_month = excluded.effective_month, base_salary = excluded.base_salary`,
			r.ID, r.Role, int(r.Tier), r.EffectiveMonth, r.BaseSalary.String())
		if err != nil {
			return fmt.Errorf("failed to save base salary row %s: %w", r.ID, err)
		}
	}
	for _, r := range set.Incentives {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO incentive_configs (id, role, effective_month, min_incentive, max_incentive)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				role = excluded.role, effective_month = excluded.effective_month,
				min_incentive = excluded.min_incentive, max_incentive = excluded.max_incentive`,
			r.ID, r.Role, r.EffectiveMonth, r.MinIncentive.String(), r.MaxIncentive.String())
		if err != nil {
			return fmt.Errorf("failed to save incentive row %s: %w", r.ID, err)
		}
	}
	for _, r := range set.Allowances {
		_, err := sqlTx.ExecContext(ctx, `
			INSERT INTO allowance_configs (id, employment_type, effective_month, allowance)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				employment_type = excluded.employment_type,
				effective_month = excluded.effective_month, allowance = excluded.allowance`,
			r.ID, r.EmploymentType, r.EffectiveMonth, r.Allowance.String())
		if err != nil {
			return fmt.Errorf("failed to save allowance row %s: %w", r.ID, err)
		}
	}

	return sqlTx.Commit()
}

// =============================================================================
// RUN STORE
// =============================================================================

// createdAtLayout has a fixed width so that created_at sorts as text in
// time order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SaveRun writes a run and its lines atomically.
func (s *Store) SaveRun(ctx context.Context, run engine.Run) error {
	skipped, err := json.Marshal(run.Skipped)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO payroll_runs (id, month, curve, total_net, skipped_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Month.String(), run.Curve, run.TotalNet.String(), string(skipped),
		run.CreatedAt.UTC().Format(createdAtLayout),
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return fmt.Errorf("payroll run %s already exists", run.ID)
		}
		return fmt.Errorf("failed to save payroll run: %w", err)
	}

	for i, l := range run.Lines {
		person, err := json.Marshal(l.Person)
		if err != nil {
			return err
		}
		c := l.Compensation
		_, err = sqlTx.ExecContext(ctx, `
			INSERT INTO payroll_lines
			(run_id, position, person_id, person_json, total_points, base_salary, incentive,
			 allowance, unit_price, net, rank, cohort_size, deviation, position_t)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, l.Person.ID, string(person), l.TotalPoints,
			c.BaseSalary.String(), c.Incentive.String(), c.Allowance.String(), c.UnitPrice.String(), c.Net.String(),
			c.Rank, c.CohortSize, c.Deviation, c.Position,
		)
		if err != nil {
			return fmt.Errorf("failed to save payroll line %d: %w", i, err)
		}
	}

	return sqlTx.Commit()
}

// GetRun retrieves a run with its lines.
func (s *Store) GetRun(ctx context.Context, id string) (engine.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, err := scanRun(s.db.QueryRowContext(ctx,
		"SELECT id, month, curve, total_net, skipped_json, created_at FROM payroll_runs WHERE id = ?", id))
	if err == sql.ErrNoRows {
		return engine.Run{}, fmt.Errorf("%w: %s", generic.ErrRunNotFound, id)
	}
	if err != nil {
		return engine.Run{}, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT person_json, total_points, base_salary, incentive, allowance, unit_price, net,
		       rank, cohort_size, deviation, position_t
		FROM payroll_lines WHERE run_id = ? ORDER BY position`, id)
	if err != nil {
		return engine.Run{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var l engine.Line
		var person, base, incentive, allowance, unit, net string
		c := &l.Compensation
		if err := rows.Scan(&person, &l.TotalPoints, &base, &incentive, &allowance, &unit, &net,
			&c.Rank, &c.CohortSize, &c.Deviation, &c.Position); err != nil {
			return engine.Run{}, err
		}
		if err := json.Unmarshal([]byte(person), &l.Person); err != nil {
			return engine.Run{}, fmt.Errorf("decode line person: %w", err)
		}
		c.PersonID = l.Person.ID
		c.Month = run.Month
		c.Evaluated = l.Person.IsEvaluated
		c.BaseSalary = parseDecimal(base)
		c.Incentive = parseDecimal(incentive)
		c.Allowance = parseDecimal(allowance)
		c.UnitPrice = parseDecimal(unit)
		c.Net = parseDecimal(net)
		run.Lines = append(run.Lines, l)
	}
	return run, rows.Err()
}

// ListRuns returns runs newest first, without their lines.
func (s *Store) ListRuns(ctx context.Context) ([]engine.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, month, curve, total_net, skipped_json, created_at FROM payroll_runs ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []engine.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func scanRun(row scanner) (engine.Run, error) {
	var run engine.Run
	var month, total, skipped, createdAt string
	if err := row.Scan(&run.ID, &month, &run.Curve, &total, &skipped, &createdAt); err != nil {
		return engine.Run{}, err
	}
	m, err := generic.ParseMonth(month)
	if err != nil {
		return engine.Run{}, fmt.Errorf("stored run month %q: %w", month, err)
	}
	run.Month = m
	run.TotalNet = parseDecimal(total)
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if err := json.Unmarshal([]byte(skipped), &run.Skipped); err != nil {
		return engine.Run{}, fmt.Errorf("decode skipped persons: %w", err)
	}
	return run, nil
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{
		"payroll_lines", "payroll_runs", "evaluations", "persons",
		"base_salary_configs", "incentive_configs", "allowance_configs",
	}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func dayString(tp generic.TimePoint) string {
	if tp.IsZero() {
		return ""
	}
	return tp.String()
}

func parseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
