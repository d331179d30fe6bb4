package wfc

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/lawnchairsociety/tilewfc/internal/logger"
)

// Outcome is the verdict of one attempt
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeFailure
)

// String returns the string representation of an Outcome
func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "unknown"
	}
}

// Placement is one materialized cell handed to an InstantiationSink
type Placement struct {
	X, Z     int
	Module   *Module
	Fallback bool // The cell ran out of modules and got the fallback
}

// InstantiationSink materializes the chosen module of each cell
type InstantiationSink interface {
	Place(p Placement) error
}

// OutcomeSink is notified once per attempt
type OutcomeSink interface {
	RecordAttempt(r AttemptReport) error
}

// ViewportSink is told the grid dimensions after an attempt concludes
type ViewportSink interface {
	Frame(width, height int)
}

// AttemptReport summarises one attempt for outcome sinks
type AttemptReport struct {
	Attempt       int // 1-indexed
	Seed          int64
	Width, Height int
	Outcome       Outcome
	Err           error // Why the attempt failed, nil on success
	Elapsed       time.Duration
	Final         bool // No further attempt will run
}

// Attempt is the full result of one attempt
type Attempt struct {
	AttemptReport
	Grid      *Grid
	Decisions []Decision
}

// Succeeded reports whether the attempt produced a valid level
func (a *Attempt) Succeeded() bool {
	return a != nil && a.Outcome == OutcomeSuccess
}

// Config contains parameters for level generation
type Config struct {
	Width, Height  int
	Seed           int64 // SeedUnset derives a fresh seed for every attempt
	AttemptBudget  int   // Maximum number of attempts
	StopOnSuccess  bool  // Stop retrying after the first success
	StartModule    string
	GoalModule     string
	FallbackModule string // Defaults to StartModule, then the first catalog module
	BorderModules  []string
	UseBorder      bool // Restrict the outer ring to BorderModules
	UseStartGoal   bool // Place one start and one goal cell
}

// DefaultConfig returns reasonable defaults for a level
func DefaultConfig() Config {
	return Config{
		Width:         10,
		Height:        10,
		Seed:          SeedUnset,
		AttemptBudget: 1,
		StopOnSuccess: true,
	}
}

// Controller runs attempts against a catalog until the budget is met
type Controller struct {
	cfg         Config
	catalog     *Catalog
	fallback    ModuleID
	constraints []InitialConstraint

	builder  GridBuilder
	rng      RandomSource
	placer   InstantiationSink
	outcomes OutcomeSink
	viewport ViewportSink

	running   atomic.Bool
	attempts  int
	succeeded bool
	last      *Attempt
}

// NewController validates the configuration and resolves module references
func NewController(cfg Config, catalog *Catalog) (*Controller, error) {
	if catalog == nil || catalog.Len() == 0 {
		return nil, fmt.Errorf("%w: module catalog is empty", ErrConfiguration)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: invalid grid size %dx%d", ErrConfiguration, cfg.Width, cfg.Height)
	}
	if cfg.AttemptBudget <= 0 {
		return nil, fmt.Errorf("%w: attempt budget must be positive, got %d", ErrConfiguration, cfg.AttemptBudget)
	}

	c := &Controller{
		cfg:      cfg,
		catalog:  catalog,
		fallback: ModuleID(0),
		builder:  GridBuilderFunc(NewGrid),
		rng:      NewRandom(1),
	}

	fallbackName := cfg.FallbackModule
	if fallbackName == "" {
		fallbackName = cfg.StartModule
	}
	if fallbackName != "" {
		id, err := catalog.MustLookup(fallbackName)
		if err != nil {
			return nil, fmt.Errorf("fallback module: %w", err)
		}
		c.fallback = id
	}

	if cfg.UseBorder {
		bc, err := NewBorderConstraint(catalog, cfg.BorderModules)
		if err != nil {
			return nil, err
		}
		c.constraints = append(c.constraints, bc)
	}

	if cfg.UseStartGoal {
		if cfg.Width*cfg.Height < 2 {
			return nil, fmt.Errorf("%w: start and goal need at least 2 cells", ErrConfiguration)
		}
		sg, err := NewStartGoalConstraint(catalog, cfg.StartModule, cfg.GoalModule)
		if err != nil {
			return nil, err
		}
		c.constraints = append(c.constraints, sg)
	}

	return c, nil
}

// SetGridBuilder replaces the default grid builder
func (c *Controller) SetGridBuilder(b GridBuilder) {
	c.builder = b
}

// SetRandomSource replaces the default random source
func (c *Controller) SetRandomSource(r RandomSource) {
	c.rng = r
}

// SetInstantiationSink sets where finished cells are materialized
func (c *Controller) SetInstantiationSink(s InstantiationSink) {
	c.placer = s
}

// SetOutcomeSink sets where attempt outcomes are reported
func (c *Controller) SetOutcomeSink(s OutcomeSink) {
	c.outcomes = s
}

// SetViewportSink sets who is told the grid dimensions
func (c *Controller) SetViewportSink(s ViewportSink) {
	c.viewport = s
}

// AddConstraint appends an initial constraint applied to every attempt
func (c *Controller) AddConstraint(ic InitialConstraint) {
	c.constraints = append(c.constraints, ic)
}

// Attempts returns the number of attempts run so far
func (c *Controller) Attempts() int {
	return c.attempts
}

// Last returns the most recent attempt, or nil
func (c *Controller) Last() *Attempt {
	return c.last
}

// Running reports whether an attempt is in progress
func (c *Controller) Running() bool {
	return c.running.Load()
}

// Done reports whether no further attempt will be started
func (c *Controller) Done() bool {
	if c.attempts >= c.cfg.AttemptBudget {
		return true
	}
	return c.cfg.StopOnSuccess && c.succeeded
}

// Run keeps starting attempts until the budget is met, or until one
// succeeds when StopOnSuccess is set. The context is checked between attempts.
func (c *Controller) Run(ctx context.Context) (*Attempt, error) {
	for !c.Done() {
		if err := ctx.Err(); err != nil {
			return c.last, err
		}
		if _, err := c.Step(); err != nil {
			return c.last, err
		}
	}
	return c.last, nil
}

// Step runs a single attempt if none is running and the budget allows it
func (c *Controller) Step() (*Attempt, error) {
	if !c.running.CompareAndSwap(false, true) {
		return nil, ErrAttemptInProgress
	}
	defer c.running.Store(false)

	if c.Done() {
		return nil, ErrBudgetExhausted
	}

	seed := ResolveSeed(c.cfg.Seed)
	start := time.Now()

	grid, err := c.builder.Build(c.cfg.Width, c.cfg.Height, c.catalog)
	if err != nil {
		return nil, fmt.Errorf("failed to build grid: %w", err)
	}

	c.rng.Reseed(seed)
	solver := NewSolver(c.catalog, grid, c.rng)
	if err := solver.ApplyConstraints(c.constraints); err != nil {
		return nil, fmt.Errorf("failed to apply initial constraints: %w", err)
	}

	c.attempts++
	attempt := &Attempt{
		AttemptReport: AttemptReport{
			Attempt: c.attempts,
			Seed:    seed,
			Width:   grid.Width,
			Height:  grid.Height,
			Outcome: OutcomeSuccess,
		},
		Grid: grid,
	}

	if runErr := solver.Run(); runErr != nil {
		if !errors.Is(runErr, ErrDomainExhausted) && !errors.Is(runErr, ErrInvalidAdjacency) {
			return nil, runErr
		}
		attempt.Outcome = OutcomeFailure
		attempt.Err = runErr
	}
	attempt.Decisions = solver.Decisions()
	c.succeeded = c.succeeded || attempt.Outcome == OutcomeSuccess

	var sinkErr error
	if c.placer != nil {
		sinkErr = Materialize(grid, c.catalog, c.fallback, c.placer)
	}
	if c.viewport != nil {
		c.viewport.Frame(grid.Width, grid.Height)
	}

	attempt.Elapsed = time.Since(start)
	attempt.Final = c.Done()
	c.last = attempt

	if c.outcomes != nil {
		if err := c.outcomes.RecordAttempt(attempt.AttemptReport); err != nil {
			logger.Warning("Failed to record attempt outcome", "attempt", attempt.Attempt, "error", err)
		}
	}

	if attempt.Final {
		logger.Always("Level generation finished",
			"attempt", attempt.Attempt,
			"outcome", attempt.Outcome.String(),
			"elapsed", attempt.Elapsed,
			"seed", seed)
	} else {
		logger.Debug("Level attempt finished", "attempt", attempt.Attempt, "outcome", attempt.Outcome.String())
	}

	if sinkErr != nil {
		return attempt, fmt.Errorf("failed to materialize level: %w", sinkErr)
	}
	return attempt, nil
}

// Materialize hands every cell's module to the sink in row-major order.
// Cells with an empty domain receive the fallback module.
func Materialize(g *Grid, catalog *Catalog, fallback ModuleID, sink InstantiationSink) error {
	for i := range g.Cells {
		cell := &g.Cells[i]
		p := Placement{X: cell.X, Z: cell.Z}
		if len(cell.Domain) == 0 {
			p.Module = catalog.Module(fallback)
			p.Fallback = true
		} else {
			p.Module = catalog.Module(cell.Domain[0])
		}
		if err := sink.Place(p); err != nil {
			return fmt.Errorf("cell (%d,%d): %w", cell.X, cell.Z, err)
		}
	}
	return nil
}
