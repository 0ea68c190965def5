/*
Package engine is the service layer of the evaluation engine.

PURPOSE:
  The core packages (period, evaluation, cohort, compensation) are pure.
  The engine loads what they need from a Store, calls them in the right
  order, logs and records metrics, and persists payroll runs. HTTP
  handlers, the overdue scheduler and the CLI all go through it.

FLOW OF A PAYROLL RUN:
  1. Resolve the month window (majority-week rule)
  2. Load persons, records of the window's weeks and config rows
  3. Aggregate every evaluable person once
  4. Per role, in parallel: build the cohort, price every member
  5. Persist the run and record metrics

NO DATA:
  The aggregator reports a person without completed records with a bool.
  The engine turns that into generic.ErrNoData for callers that speak
  errors; a payroll run lists such persons as skipped.

SEE ALSO:
  - store.go: Persistence interfaces
  - api/: HTTP surface
  - cmd/evalctl: CLI surface
*/
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/warp/evaluation-engine/cohort"
	"github.com/warp/evaluation-engine/compensation"
	"github.com/warp/evaluation-engine/evaluation"
	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/logger"
	"github.com/warp/evaluation-engine/metrics"
	"github.com/warp/evaluation-engine/period"
)

// DefaultOverduePenaltyPoints is the deduction appended for each party of
// an overdue evaluation.
const DefaultOverduePenaltyPoints = 20.0

// DefaultWorkers bounds the per-role fan-out of a payroll run.
const DefaultWorkers = 4

// Engine orchestrates the core packages over a Store.
type Engine struct {
	store      Store
	aggregator evaluation.Aggregator
	resolver   *compensation.Resolver
	log        logger.Logger
	metrics    *metrics.Manager

	workers       int
	penaltyPoints float64
	now           func() time.Time
	newID         func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithMetrics sets the metrics manager. A nil manager records nothing.
func WithMetrics(m *metrics.Manager) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithRoleWeights sets the per-role multipliers of the aggregator.
func WithRoleWeights(w evaluation.RoleWeights) Option {
	return func(e *Engine) { e.aggregator = evaluation.NewAggregator(w) }
}

// WithResolver sets the compensation resolver.
func WithResolver(r *compensation.Resolver) Option {
	return func(e *Engine) {
		if r != nil {
			e.resolver = r
		}
	}
}

// WithWorkers bounds how many roles a payroll run prices concurrently.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithOverduePenalty sets the points deducted per party of an overdue
// evaluation. Zero disables penalty records; the status is still changed.
func WithOverduePenalty(points float64) Option {
	return func(e *Engine) { e.penaltyPoints = points }
}

// WithClock overrides time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides the id generator for runs and penalty records.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}

// New creates an engine over store.
func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		aggregator:    evaluation.NewAggregator(nil),
		resolver:      compensation.NewResolver(),
		log:           logger.NewNop(),
		workers:       DefaultWorkers,
		penaltyPoints: DefaultOverduePenaltyPoints,
		now:           time.Now,
		newID:         uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store exposes the underlying store to handlers that only read or write
// plain rows.
func (e *Engine) Store() Store { return e.store }

// Resolver returns the compensation resolver in use.
func (e *Engine) Resolver() *compensation.Resolver { return e.resolver }

// Now returns the engine clock.
func (e *Engine) Now() time.Time { return e.now() }

// =============================================================================
// PERIODS
// =============================================================================

// LatestWeek returns the latest week with completed data, or nil.
func (e *Engine) LatestWeek(ctx context.Context) (*period.WeekID, error) {
	w, ok, err := e.store.LatestWeek(ctx)
	if err != nil {
		return nil, fmt.Errorf("latest week: %w", err)
	}
	if !ok {
		return nil, nil
	}
	return &w, nil
}

// DefaultMonth is the month a caller means when it names none: the
// calendar month before the engine clock.
func (e *Engine) DefaultMonth() generic.Month {
	return generic.MonthOf(generic.DayOf(e.now())).Previous()
}

// Window resolves a period. A nil reference selects the default period of
// the kind relative to the clock and the latest week with data.
func (e *Engine) Window(ctx context.Context, kind period.Kind, ref *period.Reference) (period.Window, error) {
	if ref != nil {
		return period.Resolve(kind, *ref)
	}
	var latest *period.WeekID
	if kind == period.KindWeek {
		var err error
		if latest, err = e.LatestWeek(ctx); err != nil {
			return period.Window{}, err
		}
	}
	return period.ResolveDefault(kind, e.now(), latest)
}

// =============================================================================
// EVALUATIONS
// =============================================================================

// RecordEvaluation validates and stores one record. The evaluated person
// must exist.
func (e *Engine) RecordEvaluation(ctx context.Context, rec evaluation.AxisEvaluation) error {
	return e.RecordEvaluations(ctx, []evaluation.AxisEvaluation{rec})
}

// RecordEvaluations validates every record before storing the batch
// atomically. One invalid record rejects the whole batch. A record whose
// id is already stored may only replace a pending one.
func (e *Engine) RecordEvaluations(ctx context.Context, recs []evaluation.AxisEvaluation) error {
	known := make(map[generic.PersonID]bool)
	statuses := make(map[string]evaluation.Status)
	for _, rec := range recs {
		if err := evaluation.Validate(rec); err != nil {
			return err
		}
		h := evaluation.HeaderOf(rec)
		if err := e.checkTransition(ctx, statuses, h); err != nil {
			return err
		}
		if known[h.PersonID] {
			continue
		}
		if _, err := e.store.GetPerson(ctx, h.PersonID); err != nil {
			return err
		}
		known[h.PersonID] = true
	}
	if err := e.store.SaveEvaluations(ctx, recs); err != nil {
		return fmt.Errorf("save %d evaluations: %w", len(recs), err)
	}
	return nil
}

// checkTransition compares h with the previous version of the record,
// either earlier in the same batch or already stored.
func (e *Engine) checkTransition(ctx context.Context, batch map[string]evaluation.Status, h evaluation.Header) error {
	if h.ID == "" {
		return nil
	}
	prev, ok := batch[h.ID]
	if !ok {
		stored, err := e.store.GetEvaluation(ctx, h.ID)
		switch {
		case errors.Is(err, generic.ErrEvaluationNotFound):
			batch[h.ID] = h.Status
			return nil
		case err != nil:
			return fmt.Errorf("load evaluation %s: %w", h.ID, err)
		}
		prev = evaluation.HeaderOf(stored).Status
	}
	if err := evaluation.CheckTransition(prev, h.Status); err != nil {
		return fmt.Errorf("evaluation %s: %w", h.ID, err)
	}
	batch[h.ID] = h.Status
	return nil
}

// =============================================================================
// AGGREGATION
// =============================================================================

// PersonAggregate combines a person's records over the window. It returns
// ErrNoData when no completed record contributes.
func (e *Engine) PersonAggregate(ctx context.Context, id generic.PersonID, window period.Window) (evaluation.AggregatedEvaluation, error) {
	p, err := e.store.GetPerson(ctx, id)
	if err != nil {
		return evaluation.AggregatedEvaluation{}, err
	}
	records, err := e.store.LoadEvaluations(ctx, window.WeekIDs())
	if err != nil {
		return evaluation.AggregatedEvaluation{}, fmt.Errorf("load evaluations: %w", err)
	}

	agg, ok := e.aggregator.Aggregate(p.ID, p.Role, window.WeekIDs(), records)
	e.metrics.RecordAggregation(ok)
	if !ok {
		return evaluation.AggregatedEvaluation{}, fmt.Errorf("%s %s: %w", id, window.Label, generic.ErrNoData)
	}
	return agg, nil
}

// snapshot is everything loaded once for a window.
type snapshot struct {
	persons    []generic.Person
	aggregates map[generic.PersonID]evaluation.AggregatedEvaluation
}

// load aggregates every evaluable person over the window.
func (e *Engine) load(ctx context.Context, window period.Window) (snapshot, error) {
	persons, err := e.store.ListPersons(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("list persons: %w", err)
	}
	records, err := e.store.LoadEvaluations(ctx, window.WeekIDs())
	if err != nil {
		return snapshot{}, fmt.Errorf("load evaluations: %w", err)
	}

	byPerson := make(map[generic.PersonID][]evaluation.AxisEvaluation)
	for _, r := range records {
		id := evaluation.HeaderOf(r).PersonID
		byPerson[id] = append(byPerson[id], r)
	}

	aggregates := make(map[generic.PersonID]evaluation.AggregatedEvaluation)
	for _, p := range persons {
		if !p.Role.IsEvaluable() {
			continue
		}
		agg, ok := e.aggregator.Aggregate(p.ID, p.Role, window.WeekIDs(), byPerson[p.ID])
		e.metrics.RecordAggregation(ok)
		if ok {
			aggregates[p.ID] = agg
		}
	}
	return snapshot{persons: persons, aggregates: aggregates}, nil
}

// =============================================================================
// COHORT RANKING
// =============================================================================

// CohortRanking ranks the evaluated members of a role over the window.
func (e *Engine) CohortRanking(ctx context.Context, role generic.Role, window period.Window) (cohort.Stat, error) {
	if !role.IsEvaluable() {
		return cohort.Stat{}, fmt.Errorf("%w: role %s is not evaluated", generic.ErrInvalidPerson, role)
	}
	snap, err := e.load(ctx, window)
	if err != nil {
		return cohort.Stat{}, err
	}
	stat := cohort.Build(role, window, snap.persons, snap.aggregates)
	e.metrics.SetCohortSize(string(role), stat.Size())
	return stat, nil
}

// =============================================================================
// COMPENSATION
// =============================================================================

// PersonCompensation prices one person for a month. Persons that are not
// evaluated get an all-zero result; evaluated persons without completed
// records get ErrNoData.
func (e *Engine) PersonCompensation(ctx context.Context, id generic.PersonID, month generic.Month) (compensation.Compensation, error) {
	p, err := e.store.GetPerson(ctx, id)
	if err != nil {
		return compensation.Compensation{}, err
	}
	if !p.IsEvaluated {
		return e.resolver.Resolve(compensation.Input{Person: p, TargetMonth: month})
	}

	window, err := period.MonthWindow(month.Year, month.Month)
	if err != nil {
		return compensation.Compensation{}, err
	}
	snap, err := e.load(ctx, window)
	if err != nil {
		return compensation.Compensation{}, err
	}
	agg, ok := snap.aggregates[p.ID]
	if !ok {
		return compensation.Compensation{}, fmt.Errorf("%s %s: %w", id, window.Label, generic.ErrNoData)
	}
	config, err := e.store.LoadConfig(ctx)
	if err != nil {
		return compensation.Compensation{}, fmt.Errorf("load config: %w", err)
	}

	return e.resolver.Resolve(compensation.Input{
		Person:      p,
		TargetMonth: month,
		TotalPoints: agg.TotalPoints,
		Cohort:      cohort.Select(p.Role, window, snap.persons, snap.aggregates),
		Config:      config,
	})
}

// =============================================================================
// PAYROLL RUN
// =============================================================================

// RunPayroll prices every evaluated person for the month and persists the
// run. Roles are priced concurrently, bounded by the worker limit. Lines
// are ordered by role, then rank.
func (e *Engine) RunPayroll(ctx context.Context, month generic.Month) (Run, error) {
	start := e.now()
	log := e.log.Named("payroll")

	run, err := e.runPayroll(ctx, month, start)
	elapsed := e.now().Sub(start)
	if err != nil {
		e.metrics.RecordPayrollRun(elapsed, 0, 0, 0, err)
		log.Error(ctx, "payroll run failed", logger.String("month", month.String()), logger.Error(err))
		return Run{}, err
	}

	e.metrics.RecordPayrollRun(elapsed, len(run.Lines), len(run.Skipped), run.TotalNet.InexactFloat64(), nil)
	log.Info(ctx, "payroll run completed",
		logger.String("run_id", run.ID),
		logger.String("month", month.String()),
		logger.Int("lines", len(run.Lines)),
		logger.Int("skipped", len(run.Skipped)),
		logger.String("total_net", run.TotalNet.String()),
	)
	return run, nil
}

func (e *Engine) runPayroll(ctx context.Context, month generic.Month, start time.Time) (Run, error) {
	window, err := period.MonthWindow(month.Year, month.Month)
	if err != nil {
		return Run{}, err
	}
	snap, err := e.load(ctx, window)
	if err != nil {
		return Run{}, err
	}
	config, err := e.store.LoadConfig(ctx)
	if err != nil {
		return Run{}, fmt.Errorf("load config: %w", err)
	}

	roles := generic.EvaluableRoles
	lines := make([][]Line, len(roles))
	skipped := make([][]generic.PersonID, len(roles))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for i, role := range roles {
		i, role := i, role
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			roleLines, roleSkipped, err := e.priceRole(role, month, window, snap, config)
			if err != nil {
				return fmt.Errorf("price %s: %w", role, err)
			}
			lines[i] = roleLines
			skipped[i] = roleSkipped
			e.metrics.SetCohortSize(string(role), len(roleLines))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Run{}, err
	}

	run := Run{
		ID:        e.newID(),
		Month:     month,
		CreatedAt: start.UTC(),
		Curve:     e.resolver.Curve().Name(),
	}
	for i := range roles {
		run.Lines = append(run.Lines, lines[i]...)
		run.Skipped = append(run.Skipped, skipped[i]...)
	}
	run.TotalNet = sumNet(run.Lines)

	if err := e.store.SaveRun(ctx, run); err != nil {
		return Run{}, fmt.Errorf("save run: %w", err)
	}
	return run, nil
}

// priceRole prices the cohort of one role. Members active in the window
// but without completed records are returned as skipped.
func (e *Engine) priceRole(role generic.Role, month generic.Month, window period.Window, snap snapshot, config compensation.ConfigSet) ([]Line, []generic.PersonID, error) {
	stat := cohort.Build(role, window, snap.persons, snap.aggregates)
	members := stat.Members()

	byID := make(map[generic.PersonID]generic.Person, len(snap.persons))
	var skipped []generic.PersonID
	for _, p := range snap.persons {
		byID[p.ID] = p
		if !p.InCohort(role, window.Period()) {
			continue
		}
		if _, ok := snap.aggregates[p.ID]; !ok {
			skipped = append(skipped, p.ID)
		}
	}

	lines := make([]Line, 0, len(stat.Standings))
	for _, st := range stat.Standings {
		p := byID[st.PersonID]
		comp, err := e.resolver.Resolve(compensation.Input{
			Person:      p,
			TargetMonth: month,
			TotalPoints: st.TotalPoints,
			Cohort:      members,
			Config:      config,
		})
		if err != nil {
			return nil, nil, err
		}
		lines = append(lines, Line{Person: p, TotalPoints: st.TotalPoints, Compensation: comp})
	}
	return lines, skipped, nil
}

// =============================================================================
// OVERDUE SWEEP
// =============================================================================

// SweepOverdue marks pending records past their due date as overdue and
// appends a penalty record for the evaluated person and for the evaluator
// in the record's week. Each overdue record is written in one batch with
// its penalties.
func (e *Engine) SweepOverdue(ctx context.Context, now time.Time) (SweepResult, error) {
	log := e.log.Named("sweep")
	today := generic.DayOf(now)

	pending, err := e.store.PendingEvaluations(ctx)
	if err != nil {
		e.metrics.RecordSweep(0, 0, err)
		return SweepResult{}, fmt.Errorf("pending evaluations: %w", err)
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return evaluation.HeaderOf(pending[i]).ID < evaluation.HeaderOf(pending[j]).ID
	})

	var res SweepResult
	for _, rec := range pending {
		h := evaluation.HeaderOf(rec)
		if !h.IsOverdue(today) {
			continue
		}

		marked := h
		marked.Status = evaluation.StatusOverdue
		batch := []evaluation.AxisEvaluation{evaluation.WithHeader(rec, marked)}
		batch = append(batch, e.overduePenalties(h)...)

		if err := e.store.SaveEvaluations(ctx, batch); err != nil {
			e.metrics.RecordSweep(res.Marked, res.Penalties, err)
			log.Error(ctx, "overdue sweep failed", logger.String("evaluation_id", h.ID), logger.Error(err))
			return res, fmt.Errorf("mark %s overdue: %w", h.ID, err)
		}
		res.Marked++
		res.Penalties += len(batch) - 1
		log.Debug(ctx, "evaluation overdue",
			logger.String("evaluation_id", h.ID),
			logger.String("person_id", string(h.PersonID)),
			logger.String("week", h.Week.String()),
		)
	}

	e.metrics.RecordSweep(res.Marked, res.Penalties, nil)
	if res.Marked > 0 {
		log.Info(ctx, "overdue sweep completed", logger.Int("marked", res.Marked), logger.Int("penalties", res.Penalties))
	}
	return res, nil
}

func (e *Engine) overduePenalties(h evaluation.Header) []evaluation.AxisEvaluation {
	if e.penaltyPoints <= 0 {
		return nil
	}
	parties := []generic.PersonID{h.PersonID}
	if h.EvaluatorID != "" && h.EvaluatorID != h.PersonID {
		parties = append(parties, h.EvaluatorID)
	}

	out := make([]evaluation.AxisEvaluation, 0, len(parties))
	for _, id := range parties {
		points := -e.penaltyPoints
		out = append(out, evaluation.Penalty{
			Header: evaluation.Header{
				ID:       e.newID(),
				PersonID: id,
				Week:     h.Week,
				Status:   evaluation.StatusCompleted,
			},
			Points: &points,
			Reason: fmt.Sprintf("overdue %s evaluation %s", h.Week, h.ID),
		})
	}
	return out
}
