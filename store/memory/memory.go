// Package memory provides an in-memory engine.Store for tests and the
// demo server.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/evaluation-engine/compensation"
	"github.com/warp/evaluation-engine/engine"
	"github.com/warp/evaluation-engine/evaluation"
	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/period"
)

var _ engine.Store = (*Store)(nil)

// =============================================================================
// MEMORY STORE
// =============================================================================

type Store struct {
	mu          sync.RWMutex
	persons     map[generic.PersonID]generic.Person
	evaluations map[string]evaluation.AxisEvaluation
	seq         map[string]int // first insertion order, kept on update
	nextSeq     int
	config      compensation.ConfigSet
	runs        map[string]engine.Run
}

func New() *Store {
	return &Store{
		persons:     make(map[generic.PersonID]generic.Person),
		evaluations: make(map[string]evaluation.AxisEvaluation),
		seq:         make(map[string]int),
		runs:        make(map[string]engine.Run),
	}
}

// Reset drops every row.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persons = make(map[generic.PersonID]generic.Person)
	s.evaluations = make(map[string]evaluation.AxisEvaluation)
	s.seq = make(map[string]int)
	s.nextSeq = 0
	s.config = compensation.ConfigSet{}
	s.runs = make(map[string]engine.Run)
	return nil
}

// Close is a no-op; it lets the memory store stand in for a database.
func (s *Store) Close() error { return nil }

// =============================================================================
// PERSONS
// =============================================================================

func (s *Store) SavePerson(_ context.Context, p generic.Person) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.persons[p.ID] = p
	return nil
}

func (s *Store) GetPerson(_ context.Context, id generic.PersonID) (generic.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.persons[id]
	if !ok {
		return generic.Person{}, fmt.Errorf("%w: %s", generic.ErrPersonNotFound, id)
	}
	return p, nil
}

func (s *Store) ListPersons(_ context.Context) ([]generic.Person, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]generic.Person, 0, len(s.persons))
	for _, p := range s.persons {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeletePerson(_ context.Context, id generic.PersonID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.persons[id]; !ok {
		return fmt.Errorf("%w: %s", generic.ErrPersonNotFound, id)
	}
	delete(s.persons, id)
	return nil
}

// =============================================================================
// EVALUATIONS
// =============================================================================

func (s *Store) SaveEvaluation(ctx context.Context, e evaluation.AxisEvaluation) error {
	return s.SaveEvaluations(ctx, []evaluation.AxisEvaluation{e})
}

// SaveEvaluations writes records atomically. All records are checked
// before any is written.
func (s *Store) SaveEvaluations(_ context.Context, es []evaluation.AxisEvaluation) error {
	for _, e := range es {
		if evaluation.HeaderOf(e).ID == "" {
			return &generic.ValidationError{Field: "id", Message: "is required"}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range es {
		s.putLocked(e)
	}
	return nil
}

func (s *Store) putLocked(e evaluation.AxisEvaluation) {
	id := evaluation.HeaderOf(e).ID
	if _, ok := s.seq[id]; !ok {
		s.seq[id] = s.nextSeq
		s.nextSeq++
	}
	s.evaluations[id] = e
}

func (s *Store) GetEvaluation(_ context.Context, id string) (evaluation.AxisEvaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.evaluations[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrEvaluationNotFound, id)
	}
	return e, nil
}

// LoadEvaluations returns every record of the given weeks in insertion
// order. Updating a record keeps its position.
func (s *Store) LoadEvaluations(_ context.Context, weeks []period.WeekID) ([]evaluation.AxisEvaluation, error) {
	wanted := make(map[period.WeekID]bool, len(weeks))
	for _, w := range weeks {
		wanted[w] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []evaluation.AxisEvaluation
	for _, e := range s.evaluations {
		if wanted[evaluation.HeaderOf(e).Week] {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return s.seq[evaluation.HeaderOf(out[i]).ID] < s.seq[evaluation.HeaderOf(out[j]).ID]
	})
	return out, nil
}

func (s *Store) PendingEvaluations(_ context.Context) ([]evaluation.AxisEvaluation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []evaluation.AxisEvaluation
	for _, e := range s.evaluations {
		if evaluation.HeaderOf(e).Status == evaluation.StatusPending {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return evaluation.HeaderOf(out[i]).ID < evaluation.HeaderOf(out[j]).ID
	})
	return out, nil
}

func (s *Store) LatestWeek(_ context.Context) (period.WeekID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest period.WeekID
	found := false
	for _, e := range s.evaluations {
		h := evaluation.HeaderOf(e)
		if !h.Completed() {
			continue
		}
		if !found || latest.Before(h.Week) {
			latest, found = h.Week, true
		}
	}
	return latest, found, nil
}

// =============================================================================
// CONFIG
// =============================================================================

func (s *Store) LoadConfig(_ context.Context) (compensation.ConfigSet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return compensation.ConfigSet{
		BaseSalaries: append([]compensation.BaseSalaryRow(nil), s.config.BaseSalaries...),
		Incentives:   append([]compensation.IncentiveRow(nil), s.config.Incentives...),
		Allowances:   append([]compensation.AllowanceRow(nil), s.config.Allowances...),
	}, nil
}

// SaveConfig appends the rows of set. A row whose id already exists is
// updated in place and keeps its position.
func (s *Store) SaveConfig(_ context.Context, set compensation.ConfigSet) error {
	if err := set.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config.BaseSalaries = upsert(s.config.BaseSalaries, set.BaseSalaries, func(r compensation.BaseSalaryRow) string { return r.ID })
	s.config.Incentives = upsert(s.config.Incentives, set.Incentives, func(r compensation.IncentiveRow) string { return r.ID })
	s.config.Allowances = upsert(s.config.Allowances, set.Allowances, func(r compensation.AllowanceRow) string { return r.ID })
	return nil
}

// =============================================================================
// PAYROLL RUNS
// =============================================================================

func (s *Store) SaveRun(_ context.Context, run engine.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; ok {
		return fmt.Errorf("payroll run %s already exists", run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

func (s *Store) GetRun(_ context.Context, id string) (engine.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return engine.Run{}, fmt.Errorf("%w: %s", generic.ErrRunNotFound, id)
	}
	return run, nil
}

func (s *Store) ListRuns(_ context.Context) ([]engine.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]engine.Run, 0, len(s.runs))
	for _, r := range s.runs {
		r.Lines = nil
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// upsert appends rows to table. A row whose id is already present
// replaces it in place.
func upsert[T any](table, rows []T, id func(T) string) []T {
	pos := make(map[string]int, len(table))
	for i, r := range table {
		pos[id(r)] = i
	}
	for _, r := range rows {
		if i, ok := pos[id(r)]; ok {
			table[i] = r
			continue
		}
		pos[id(r)] = len(table)
		table = append(table, r)
	}
	return table
}
