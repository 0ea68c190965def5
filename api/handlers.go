/*
handlers.go - HTTP API handlers for the evaluation engine

PURPOSE:
  Exposes the evaluation engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the engine service layer.

ENDPOINTS:
  Periods:
    GET    /api/periods                     Resolve a period (kind, year, month, half, week)

  Persons:
    GET    /api/persons                     List all persons
    POST   /api/persons                     Create or replace a person
    GET    /api/persons/{id}                Get person details
    DELETE /api/persons/{id}                Delete a person
    GET    /api/persons/{id}/aggregate      Aggregated evaluation for a period
    GET    /api/persons/{id}/compensation   Compensation for a month

  Evaluations:
    GET    /api/evaluations?week=2025-W10   Records of one week
    POST   /api/evaluations                 Record one row or an array of rows
    GET    /api/evaluations/{id}            Get one record

  Cohorts:
    GET    /api/cohorts/{role}              Ranked cohort for a period

  Config:
    GET    /api/config                      Export compensation tables
    POST   /api/config                      Append compensation rows

  Payroll:
    GET    /api/payroll/runs                List runs (without lines)
    POST   /api/payroll/runs                Run payroll for a month
    GET    /api/payroll/runs/{id}           Get a run with its lines

  Admin:
    POST   /api/admin/sweep                 Mark overdue evaluations now

  Scenarios:
    GET    /api/scenarios                   List demo scenarios
    POST   /api/scenarios/load              Load a demo scenario

PERIOD QUERY:
  kind=week|month|half (default month). Without any of year, month, half or
  week the default period of the kind is used: latest week with data,
  previous month, last completed half.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid period, malformed config rows
  - 404: Person, evaluation or run not found; no completed evaluation
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/warp/evaluation-engine/engine"
	"github.com/warp/evaluation-engine/evaluation"
	"github.com/warp/evaluation-engine/factory"
	"github.com/warp/evaluation-engine/generic"
	"github.com/warp/evaluation-engine/logger"
	"github.com/warp/evaluation-engine/period"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Store is what the handlers need beyond the engine: the demo reset.
type Store interface {
	engine.Store
	Reset(ctx context.Context) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Engine            *engine.Engine
	Store             Store
	EvaluationFactory *factory.EvaluationFactory
	Log               logger.Logger

	// Track currently loaded scenario
	mu              sync.Mutex
	currentScenario string
}

// NewHandler creates a handler over an engine and the store it runs on.
func NewHandler(eng *engine.Engine, store Store, log logger.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{
		Engine:            eng,
		Store:             store,
		EvaluationFactory: factory.NewEvaluationFactory(),
		Log:               log,
	}
}

// =============================================================================
// PERIOD HANDLERS
// =============================================================================

// GetPeriod resolves a period window.
func (h *Handler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	window, err := h.windowFromQuery(r)
	if err != nil {
		writeEngineError(w, "Invalid period", err)
		return
	}
	writeJSON(w, http.StatusOK, toWindowDTO(window))
}

// windowFromQuery reads kind, year, month, half and week from the query.
func (h *Handler) windowFromQuery(r *http.Request) (period.Window, error) {
	q := r.URL.Query()

	kind := period.KindMonth
	if s := q.Get("kind"); s != "" {
		k, err := period.ParseKind(s)
		if err != nil {
			return period.Window{}, err
		}
		kind = k
	}

	if q.Get("year") == "" && q.Get("week") == "" {
		return h.Engine.Window(r.Context(), kind, nil)
	}

	var ref period.Reference
	if s := q.Get("year"); s != "" {
		year, err := strconv.Atoi(s)
		if err != nil {
			return period.Window{}, &generic.InvalidPeriodError{Field: "year", Value: s}
		}
		ref.Year = year
	}

	switch kind {
	case period.KindWeek:
		id, err := period.ParseWeekID(q.Get("week"))
		if err != nil {
			return period.Window{}, err
		}
		ref.Week = id
		ref.Year = id.Year
	case period.KindMonth:
		s := q.Get("month")
		m, err := strconv.Atoi(s)
		if err != nil {
			return period.Window{}, &generic.InvalidPeriodError{Field: "month", Value: s}
		}
		ref.Month = time.Month(m)
	case period.KindHalf:
		half, err := period.ParseHalf(q.Get("half"))
		if err != nil {
			return period.Window{}, err
		}
		ref.Half = half
	}
	return h.Engine.Window(r.Context(), kind, &ref)
}

// =============================================================================
// PERSON HANDLERS
// =============================================================================

// ListPersons returns all persons.
func (h *Handler) ListPersons(w http.ResponseWriter, r *http.Request) {
	persons, err := h.Store.ListPersons(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list persons", err)
		return
	}

	dtos := make([]PersonDTO, len(persons))
	for i, p := range persons {
		dtos[i] = toPersonDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetPerson returns a single person.
func (h *Handler) GetPerson(w http.ResponseWriter, r *http.Request) {
	id := generic.PersonID(chi.URLParam(r, "id"))

	p, err := h.Store.GetPerson(r.Context(), id)
	if err != nil {
		writeEngineError(w, "Failed to get person", err)
		return
	}
	writeJSON(w, http.StatusOK, toPersonDTO(p))
}

// CreatePerson creates or replaces a person.
func (h *Handler) CreatePerson(w http.ResponseWriter, r *http.Request) {
	var req CreatePersonRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	p, err := personFromRequest(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid person", err)
		return
	}

	if err := h.Store.SavePerson(r.Context(), p); err != nil {
		writeEngineError(w, "Failed to save person", err)
		return
	}

	writeJSON(w, http.StatusCreated, toPersonDTO(p))
}

// DeletePerson removes a person. Their evaluation records are kept.
func (h *Handler) DeletePerson(w http.ResponseWriter, r *http.Request) {
	id := generic.PersonID(chi.URLParam(r, "id"))

	if err := h.Store.DeletePerson(r.Context(), id); err != nil {
		writeEngineError(w, "Failed to delete person", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func personFromRequest(req CreatePersonRequest) (generic.Person, error) {
	role, err := generic.ParseRole(req.Role)
	if err != nil {
		return generic.Person{}, err
	}
	tier, err := generic.ParseTier(req.Tier)
	if err != nil {
		return generic.Person{}, err
	}
	et, err := factory.ParseEmploymentType(req.EmploymentType)
	if err != nil {
		return generic.Person{}, err
	}

	p := generic.Person{
		ID:             generic.PersonID(req.ID),
		Name:           req.Name,
		Role:           role,
		Tier:           tier,
		EmploymentType: et,
		FTE:            req.FTE,
		IsEvaluated:    req.IsEvaluated,
	}
	if req.CreatedAt != "" {
		if p.CreatedAt, err = generic.ParseDay(req.CreatedAt); err != nil {
			return generic.Person{}, fmt.Errorf("%w: created_at must be YYYY-MM-DD", generic.ErrInvalidPerson)
		}
	}
	if req.RetiredAt != "" {
		retired, err := generic.ParseDay(req.RetiredAt)
		if err != nil {
			return generic.Person{}, fmt.Errorf("%w: retired_at must be YYYY-MM-DD", generic.ErrInvalidPerson)
		}
		p.RetiredAt = &retired
	}
	return p, p.Validate()
}

// =============================================================================
// AGGREGATION & COMPENSATION HANDLERS
// =============================================================================

// GetAggregate returns a person's aggregated evaluation for a period.
func (h *Handler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	id := generic.PersonID(chi.URLParam(r, "id"))

	window, err := h.windowFromQuery(r)
	if err != nil {
		writeEngineError(w, "Invalid period", err)
		return
	}

	agg, err := h.Engine.PersonAggregate(r.Context(), id, window)
	if err != nil {
		writeEngineError(w, "Failed to aggregate evaluations", err)
		return
	}
	writeJSON(w, http.StatusOK, toAggregateDTO(agg, window.Label))
}

// GetCompensation returns a person's compensation for ?month=YYYY-MM,
// defaulting to the previous month.
func (h *Handler) GetCompensation(w http.ResponseWriter, r *http.Request) {
	id := generic.PersonID(chi.URLParam(r, "id"))

	month, err := h.monthParam(r.URL.Query().Get("month"))
	if err != nil {
		writeEngineError(w, "Invalid month", err)
		return
	}

	comp, err := h.Engine.PersonCompensation(r.Context(), id, month)
	if err != nil {
		writeEngineError(w, "Failed to resolve compensation", err)
		return
	}
	writeJSON(w, http.StatusOK, toCompensationDTO(comp))
}

func (h *Handler) monthParam(s string) (generic.Month, error) {
	if s == "" {
		return h.Engine.DefaultMonth(), nil
	}
	return generic.ParseMonth(s)
}

// =============================================================================
// EVALUATION HANDLERS
// =============================================================================

// ListEvaluations returns the records of ?week=YYYY-Www, defaulting to the
// latest week with data.
func (h *Handler) ListEvaluations(w http.ResponseWriter, r *http.Request) {
	var week period.WeekID
	if s := r.URL.Query().Get("week"); s != "" {
		id, err := period.ParseWeekID(s)
		if err != nil {
			writeEngineError(w, "Invalid week", err)
			return
		}
		week = id
	} else {
		latest, err := h.Engine.LatestWeek(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to find latest week", err)
			return
		}
		if latest == nil {
			writeJSON(w, http.StatusOK, []factory.EvaluationJSON{})
			return
		}
		week = *latest
	}

	recs, err := h.Store.LoadEvaluations(r.Context(), []period.WeekID{week})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load evaluations", err)
		return
	}

	dtos := make([]factory.EvaluationJSON, len(recs))
	for i, rec := range recs {
		dtos[i] = factory.ToJSON(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// MaxEvaluationBody caps the body of an evaluation upload.
const MaxEvaluationBody = 1 << 20

// CreateEvaluations records a single row or an array of rows. An array is
// stored atomically.
func (h *Handler) CreateEvaluations(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxEvaluationBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large", err)
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var rows []factory.EvaluationJSON
	single := !bytes.HasPrefix(bytes.TrimSpace(body), []byte("["))
	if single {
		var row factory.EvaluationJSON
		if err := json.Unmarshal(body, &row); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
		rows = append(rows, row)
	} else if err := json.Unmarshal(body, &rows); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	recs := make([]evaluation.AxisEvaluation, 0, len(rows))
	for i, row := range rows {
		rec, err := h.EvaluationFactory.FromJSON(row)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid evaluation at index %d", i), err)
			return
		}
		recs = append(recs, rec)
	}

	if err := h.Engine.RecordEvaluations(r.Context(), recs); err != nil {
		writeEngineError(w, "Failed to record evaluations", err)
		return
	}

	dtos := make([]factory.EvaluationJSON, len(recs))
	for i, rec := range recs {
		dtos[i] = factory.ToJSON(rec)
	}
	if single {
		writeJSON(w, http.StatusCreated, dtos[0])
		return
	}
	writeJSON(w, http.StatusCreated, dtos)
}

// GetEvaluation returns one record.
func (h *Handler) GetEvaluation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetEvaluation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "Failed to get evaluation", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ToJSON(rec))
}

// =============================================================================
// COHORT HANDLERS
// =============================================================================

// GetCohort returns the ranked cohort of a role for a period.
func (h *Handler) GetCohort(w http.ResponseWriter, r *http.Request) {
	role, err := generic.ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid role", err)
		return
	}

	window, err := h.windowFromQuery(r)
	if err != nil {
		writeEngineError(w, "Invalid period", err)
		return
	}

	stat, err := h.Engine.CohortRanking(r.Context(), role, window)
	if err != nil {
		writeEngineError(w, "Failed to rank cohort", err)
		return
	}
	writeJSON(w, http.StatusOK, toCohortDTO(stat))
}

// =============================================================================
// CONFIG HANDLERS
// =============================================================================

// GetConfig exports every compensation row in insertion order.
func (h *Handler) GetConfig(w http.ResponseWriter, r *http.Request) {
	set, err := h.Store.LoadConfig(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load config", err)
		return
	}
	writeJSON(w, http.StatusOK, factory.ConfigToJSON(set))
}

// CreateConfig appends compensation rows. Existing rows are never edited;
// a later row wins a same-month tie.
func (h *Handler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	var req factory.ConfigJSON
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	set, err := factory.ConfigFromJSON(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid config rows", err)
		return
	}

	if err := h.Store.SaveConfig(r.Context(), set); err != nil {
		writeEngineError(w, "Failed to save config", err)
		return
	}
	writeJSON(w, http.StatusCreated, factory.ConfigToJSON(set))
}

// =============================================================================
// PAYROLL HANDLERS
// =============================================================================

// ListRuns returns every payroll run, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payroll runs", err)
		return
	}

	dtos := make([]RunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateRun prices every evaluated person for a month and stores the run.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunPayrollRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return
		}
	}

	month, err := h.monthParam(req.Month)
	if err != nil {
		writeEngineError(w, "Invalid month", err)
		return
	}

	run, err := h.Engine.RunPayroll(r.Context(), month)
	if err != nil {
		writeEngineError(w, "Failed to run payroll", err)
		return
	}
	writeJSON(w, http.StatusCreated, toRunDTO(run))
}

// GetRun returns a payroll run with its lines.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.Store.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeEngineError(w, "Failed to get payroll run", err)
		return
	}
	writeJSON(w, http.StatusOK, toRunDTO(run))
}

// =============================================================================
// ADMIN HANDLERS
// =============================================================================

// TriggerSweep marks overdue evaluations immediately.
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	res, err := h.Engine.SweepOverdue(r.Context(), h.Engine.Now())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to sweep overdue evaluations", err)
		return
	}
	writeJSON(w, http.StatusOK, SweepDTO{Marked: res.Marked, Penalties: res.Penalties})
}

// ResetDatabase clears all data.
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.Reset(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset database", err)
		return
	}

	h.mu.Lock()
	h.currentScenario = ""
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps domain errors to a status. A person without
// completed evaluations gets a 404 that says so, never a zero score.
func writeEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, generic.ErrNoData):
		writeError(w, http.StatusNotFound, "Evaluation not yet completed", err)
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		writeError(w, http.StatusInternalServerError, message, err)
	}
}
