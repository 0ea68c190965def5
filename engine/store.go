/*
store.go - Persistence interfaces consumed by the engine

PURPOSE:
  Defines the boundary between the engine service and the database.
  The core packages never see a store; the engine loads persons,
  evaluation records and configuration rows, hands them to the pure
  core, and persists payroll runs.

KEY INTERFACES:
  PersonStore:     Evaluated individuals (upsert, lookup, list, delete)
  EvaluationStore: Axis evaluation records, batch writes, pending scan
  ConfigStore:     The three versioned compensation tables
  RunStore:        Payroll run results

ORDER MATTERS FOR CONFIG:
  When two rows share a key and an effective month, the row loaded
  later wins. Implementations must return config rows in insertion
  order.

ATOMIC BATCHES:
  SaveEvaluations() is all-or-nothing. The overdue sweep writes the
  status change and its penalty records in one batch, so a crash can
  never leave an overdue record without its penalties.

IMPLEMENTATIONS:
  - store/sqlite: SQLite with WAL and auto-migration
  - store/memory: In-memory for tests and the demo server

SEE ALSO:
  - engine.go: The service using these interfaces
*/
package engine

import (
	"context"

	"github.com/warp/evaluation-engine/compensation"
	"github.com/warp/evaluation-engine/evaluation"
	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/period"
)

// =============================================================================
// STORE INTERFACES
// =============================================================================

// PersonStore persists evaluated individuals.
type PersonStore interface {
	// SavePerson inserts or replaces a person.
	SavePerson(ctx context.Context, p generic.Person) error

	// GetPerson returns ErrPersonNotFound when the id is unknown.
	GetPerson(ctx context.Context, id generic.PersonID) (generic.Person, error)

	// ListPersons returns all persons ordered by id.
	ListPersons(ctx context.Context) ([]generic.Person, error)

	DeletePerson(ctx context.Context, id generic.PersonID) error
}

// EvaluationStore persists axis evaluation records.
type EvaluationStore interface {
	// SaveEvaluation inserts or replaces a record by id.
	SaveEvaluation(ctx context.Context, e evaluation.AxisEvaluation) error

	// SaveEvaluations writes records atomically. Either all succeed or
	// none do.
	SaveEvaluations(ctx context.Context, es []evaluation.AxisEvaluation) error

	// GetEvaluation returns ErrEvaluationNotFound when the id is unknown.
	GetEvaluation(ctx context.Context, id string) (evaluation.AxisEvaluation, error)

	// LoadEvaluations returns every record of the given weeks, whatever
	// its status.
	LoadEvaluations(ctx context.Context, weeks []period.WeekID) ([]evaluation.AxisEvaluation, error)

	// PendingEvaluations returns every record still pending.
	PendingEvaluations(ctx context.Context) ([]evaluation.AxisEvaluation, error)

	// LatestWeek returns the latest week holding a completed record.
	// ok is false when there is none.
	LatestWeek(ctx context.Context) (week period.WeekID, ok bool, err error)
}

// ConfigStore persists the compensation tables.
type ConfigStore interface {
	// LoadConfig returns all rows in insertion order.
	LoadConfig(ctx context.Context) (compensation.ConfigSet, error)

	// SaveConfig appends the rows of set after the existing ones.
	SaveConfig(ctx context.Context, set compensation.ConfigSet) error
}

// RunStore persists payroll runs.
type RunStore interface {
	SaveRun(ctx context.Context, run Run) error

	// GetRun returns ErrRunNotFound when the id is unknown.
	GetRun(ctx context.Context, id string) (Run, error)

	// ListRuns returns runs newest first, without their lines.
	ListRuns(ctx context.Context) ([]Run, error)
}

// Store is everything the engine needs.
type Store interface {
	PersonStore
	EvaluationStore
	ConfigStore
	RunStore
}
