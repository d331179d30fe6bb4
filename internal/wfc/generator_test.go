package wfc

import (
	"bytes"
	"context"
	"errors"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/lawnchairsociety/tilewfc/internal/logger"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Width != 10 || cfg.Height != 10 {
		t.Errorf("size = %dx%d, want 10x10", cfg.Width, cfg.Height)
	}
	if cfg.Seed != SeedUnset {
		t.Errorf("Seed = %d, want SeedUnset", cfg.Seed)
	}
	if cfg.AttemptBudget != 1 {
		t.Errorf("AttemptBudget = %d, want 1", cfg.AttemptBudget)
	}
	if cfg.UseBorder || cfg.UseStartGoal {
		t.Error("initial constraints should be disabled by default")
	}
}

func TestNewControllerErrors(t *testing.T) {
	c := dungeonCatalog(t)

	tests := []struct {
		name    string
		cfg     func(*Config)
		catalog *Catalog
	}{
		{"nil catalog", func(*Config) {}, nil},
		{"zero width", func(cfg *Config) { cfg.Width = 0 }, c},
		{"negative height", func(cfg *Config) { cfg.Height = -3 }, c},
		{"zero budget", func(cfg *Config) { cfg.AttemptBudget = 0 }, c},
		{"unknown fallback", func(cfg *Config) { cfg.FallbackModule = "void" }, c},
		{"unknown start as fallback", func(cfg *Config) { cfg.StartModule = "void" }, c},
		{"border without modules", func(cfg *Config) { cfg.UseBorder = true }, c},
		{"start goal missing goal", func(cfg *Config) {
			cfg.UseStartGoal = true
			cfg.StartModule = "start"
		}, c},
		{"start goal on one cell", func(cfg *Config) {
			cfg.Width, cfg.Height = 1, 1
			cfg.UseStartGoal = true
			cfg.StartModule, cfg.GoalModule = "start", "goal"
		}, c},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.cfg(&cfg)
			if _, err := NewController(cfg, tc.catalog); !errors.Is(err, ErrConfiguration) {
				t.Errorf("NewController() error = %v, want ErrConfiguration", err)
			}
		})
	}
}

func TestControllerTwoModulesEndToEnd(t *testing.T) {
	c := mustCatalog(t,
		ModuleDef{Name: "a", Edges: sameEdges("ab")},
		ModuleDef{Name: "b", Edges: sameEdges("ab")},
	)
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 4, 4
	cfg.Seed = 12345

	ctrl, err := NewController(cfg, c)
	if err != nil {
		t.Fatalf("NewController() failed: %v", err)
	}
	sink := &recordingSink{}
	ctrl.SetInstantiationSink(sink)
	ctrl.SetOutcomeSink(sink)
	ctrl.SetViewportSink(sink)

	attempt, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !attempt.Succeeded() {
		t.Fatalf("attempt failed: %v", attempt.Err)
	}
	if attempt.Seed != 12345 {
		t.Errorf("Seed = %d, want 12345", attempt.Seed)
	}

	for i := range attempt.Grid.Cells {
		if !attempt.Grid.Cells[i].IsFinal {
			t.Errorf("cell %d not final", i)
		}
	}
	if len(sink.placements) != 16 {
		t.Errorf("placements = %d, want 16", len(sink.placements))
	}
	for _, p := range sink.placements {
		if p.Fallback || p.Module == nil {
			t.Errorf("placement %+v should carry a solved module", p)
		}
	}
	if !reflect.DeepEqual(sink.frames, [][2]int{{4, 4}}) {
		t.Errorf("frames = %v, want [[4 4]]", sink.frames)
	}
	if len(sink.reports) != 1 || !sink.reports[0].Final {
		t.Errorf("reports = %+v, want one final report", sink.reports)
	}
}

func TestControllerSingleModuleAlwaysSucceeds(t *testing.T) {
	c := mustCatalog(t, ModuleDef{Name: "a", Edges: sameEdges("a")})

	for _, size := range [][2]int{{1, 1}, {2, 9}, {6, 6}} {
		cfg := DefaultConfig()
		cfg.Width, cfg.Height = size[0], size[1]

		ctrl, err := NewController(cfg, c)
		if err != nil {
			t.Fatalf("NewController() failed: %v", err)
		}
		sink := &recordingSink{}
		ctrl.SetInstantiationSink(sink)

		attempt, err := ctrl.Run(context.Background())
		if err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		if !attempt.Succeeded() {
			t.Errorf("%dx%d: attempt failed: %v", size[0], size[1], attempt.Err)
		}
		for _, p := range sink.placements {
			if p.Module.Name != "a" {
				t.Errorf("%dx%d: placed %s at (%d,%d), want a", size[0], size[1], p.Module.Name, p.X, p.Z)
			}
		}
	}
}

func TestControllerRetriesUntilBudget(t *testing.T) {
	// Neither module accepts anything on any edge
	c := mustCatalog(t,
		ModuleDef{Name: "x", Edges: sameEdges()},
		ModuleDef{Name: "y", Edges: sameEdges()},
	)
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 3, 3
	cfg.AttemptBudget = 5

	ctrl, err := NewController(cfg, c)
	if err != nil {
		t.Fatalf("NewController() failed: %v", err)
	}
	sink := &recordingSink{}
	ctrl.SetOutcomeSink(sink)

	last, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}

	if ctrl.Attempts() != 5 {
		t.Errorf("Attempts() = %d, want 5", ctrl.Attempts())
	}
	if got := sink.count(OutcomeFailure); got != 5 {
		t.Errorf("failures = %d, want 5", got)
	}
	if got := sink.count(OutcomeSuccess); got != 0 {
		t.Errorf("successes = %d, want 0", got)
	}
	if last.Succeeded() || !errors.Is(last.Err, ErrDomainExhausted) {
		t.Errorf("last attempt error = %v, want ErrDomainExhausted", last.Err)
	}

	for i, rep := range sink.reports {
		if rep.Attempt != i+1 {
			t.Errorf("report %d has Attempt %d", i, rep.Attempt)
		}
		if rep.Final != (i == 4) {
			t.Errorf("report %d Final = %v", i, rep.Final)
		}
	}

	if _, err := ctrl.Step(); !errors.Is(err, ErrBudgetExhausted) {
		t.Errorf("Step() after budget error = %v, want ErrBudgetExhausted", err)
	}
	if len(sink.reports) != 5 {
		t.Errorf("a 6th attempt was reported")
	}
}

func TestControllerLogsFinalAttemptOnce(t *testing.T) {
	var buf bytes.Buffer
	logger.SetOutput(&buf, "text", "ERROR")
	t.Cleanup(func() { logger.SetOutput(io.Discard, "text", "ERROR") })

	c := mustCatalog(t, ModuleDef{Name: "x", Edges: sameEdges()})
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 2, 1
	cfg.Seed = 99
	cfg.AttemptBudget = 3

	ctrl, err := NewController(cfg, c)
	if err != nil {
		t.Fatalf("NewController() failed: %v", err)
	}
	if _, err := ctrl.Run(context.Background()); err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if ctrl.Attempts() != 3 {
		t.Fatalf("Attempts() = %d, want 3", ctrl.Attempts())
	}

	var always []string
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if strings.Contains(line, "level=ALWAYS") {
			always = append(always, line)
		}
	}
	if len(always) != 1 {
		t.Fatalf("ALWAYS lines = %d, want 1:\n%s", len(always), buf.String())
	}
	for _, want := range []string{"seed=99", "attempt=3", "outcome=failure", "elapsed="} {
		if !strings.Contains(always[0], want) {
			t.Errorf("final attempt line missing %q: %s", want, always[0])
		}
	}
}

func TestControllerStopOnSuccess(t *testing.T) {
	c := mustCatalog(t, ModuleDef{Name: "a", Edges: sameEdges("a")})

	tests := []struct {
		stop bool
		want int
	}{
		{true, 1},
		{false, 4},
	}

	for _, tc := range tests {
		cfg := DefaultConfig()
		cfg.Width, cfg.Height = 3, 3
		cfg.AttemptBudget = 4
		cfg.StopOnSuccess = tc.stop

		ctrl, err := NewController(cfg, c)
		if err != nil {
			t.Fatal(err)
		}
		sink := &recordingSink{}
		ctrl.SetOutcomeSink(sink)

		if _, err := ctrl.Run(context.Background()); err != nil {
			t.Fatalf("Run() failed: %v", err)
		}
		if ctrl.Attempts() != tc.want {
			t.Errorf("StopOnSuccess=%v: Attempts() = %d, want %d", tc.stop, ctrl.Attempts(), tc.want)
		}
		if got := sink.count(OutcomeSuccess); got != tc.want {
			t.Errorf("StopOnSuccess=%v: successes = %d, want %d", tc.stop, got, tc.want)
		}
	}
}

func TestControllerFixedSeedRepeatsAttempts(t *testing.T) {
	c := terrainCatalog(t)
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 6, 5
	cfg.Seed = 777
	cfg.AttemptBudget = 3
	cfg.StopOnSuccess = false

	ctrl, err := NewController(cfg, c)
	if err != nil {
		t.Fatal(err)
	}

	var first *Attempt
	for i := 0; i < 3; i++ {
		a, err := ctrl.Step()
		if err != nil {
			t.Fatalf("Step() #%d failed: %v", i, err)
		}
		if first == nil {
			first = a
			continue
		}
		if !reflect.DeepEqual(a.Decisions, first.Decisions) {
			t.Errorf("attempt %d decisions differ from attempt 1", a.Attempt)
		}
		if a.Outcome != first.Outcome {
			t.Errorf("attempt %d outcome = %s, want %s", a.Attempt, a.Outcome, first.Outcome)
		}
	}
}

func TestControllerUnsetSeedIsDerived(t *testing.T) {
	c := mustCatalog(t, ModuleDef{Name: "a", Edges: sameEdges("a")})
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 2, 2

	ctrl, err := NewController(cfg, c)
	if err != nil {
		t.Fatal(err)
	}
	rng := newSpyRandom(t)
	ctrl.SetRandomSource(rng)

	a, err := ctrl.Step()
	if err != nil {
		t.Fatal(err)
	}
	if a.Seed == SeedUnset {
		t.Error("attempt used the unset sentinel as its seed")
	}
	if len(rng.seeds) != 1 || rng.seeds[0] != a.Seed {
		t.Errorf("reseeded with %v, want [%d]", rng.seeds, a.Seed)
	}
}

func TestControllerRejectsReentrantStep(t *testing.T) {
	c := mustCatalog(t, ModuleDef{Name: "a", Edges: sameEdges("a")})
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 2, 1
	cfg.AttemptBudget = 3

	ctrl, err := NewController(cfg, c)
	if err != nil {
		t.Fatal(err)
	}

	var nested []error
	sink := &recordingSink{}
	sink.onPlace = func(Placement) error {
		if !ctrl.Running() {
			t.Error("Running() should be true while materializing")
		}
		_, err := ctrl.Step()
		nested = append(nested, err)
		return nil
	}
	ctrl.SetInstantiationSink(sink)

	if _, err := ctrl.Step(); err != nil {
		t.Fatalf("Step() failed: %v", err)
	}
	if ctrl.Running() {
		t.Error("Running() should be false after Step returns")
	}
	if ctrl.Attempts() != 1 {
		t.Errorf("Attempts() = %d, want 1", ctrl.Attempts())
	}
	for _, err := range nested {
		if !errors.Is(err, ErrAttemptInProgress) {
			t.Errorf("nested Step() error = %v, want ErrAttemptInProgress", err)
		}
	}
}

func TestControllerFallbackOnFailure(t *testing.T) {
	c := mustCatalog(t,
		ModuleDef{Name: "start", Edges: sameEdges()},
		ModuleDef{Name: "rock", Edges: sameEdges()},
	)
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 3, 1
	cfg.Seed = 4
	cfg.StartModule = "start"

	ctrl, err := NewController(cfg, c)
	if err != nil {
		t.Fatal(err)
	}
	sink := &recordingSink{}
	ctrl.SetInstantiationSink(sink)

	a, err := ctrl.Step()
	if err != nil {
		t.Fatal(err)
	}
	if a.Succeeded() {
		t.Fatal("attempt should fail")
	}
	if len(sink.placements) != 3 {
		t.Fatalf("placements = %d, want one per cell", len(sink.placements))
	}

	fallbacks := 0
	for _, p := range sink.placements {
		if p.Fallback {
			fallbacks++
			if p.Module.Name != "start" {
				t.Errorf("fallback at (%d,%d) = %s, want start", p.X, p.Z, p.Module.Name)
			}
		}
	}
	if fallbacks == 0 {
		t.Error("expected at least one fallback placement")
	}
}

func TestControllerSinkErrorIsReturned(t *testing.T) {
	c := mustCatalog(t, ModuleDef{Name: "a", Edges: sameEdges("a")})
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 2, 2

	ctrl, err := NewController(cfg, c)
	if err != nil {
		t.Fatal(err)
	}
	boom := errors.New("disk full")
	sink := &recordingSink{onPlace: func(Placement) error { return boom }}
	ctrl.SetInstantiationSink(sink)
	ctrl.SetOutcomeSink(sink)

	a, err := ctrl.Step()
	if !errors.Is(err, boom) {
		t.Errorf("Step() error = %v, want %v", err, boom)
	}
	if a == nil || !a.Succeeded() {
		t.Error("a sink error does not change the verdict")
	}
	if len(sink.reports) != 1 {
		t.Errorf("outcome should still be reported, got %d reports", len(sink.reports))
	}
}

func TestControllerRunHonoursContext(t *testing.T) {
	c := mustCatalog(t, ModuleDef{Name: "a", Edges: sameEdges("a")})
	cfg := DefaultConfig()
	cfg.AttemptBudget = 3

	ctrl, err := NewController(cfg, c)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ctrl.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if ctrl.Attempts() != 0 {
		t.Errorf("Attempts() = %d, want 0", ctrl.Attempts())
	}
}

func TestControllerWithConstraints(t *testing.T) {
	c := dungeonCatalog(t)
	cfg := DefaultConfig()
	cfg.Width, cfg.Height = 5, 5
	cfg.Seed = 2024
	cfg.UseStartGoal = true
	cfg.StartModule, cfg.GoalModule = "start", "goal"
	cfg.UseBorder = true
	cfg.BorderModules = []string{"pillar", "start", "goal"}

	ctrl, err := NewController(cfg, c)
	if err != nil {
		t.Fatalf("NewController() failed: %v", err)
	}
	a, err := ctrl.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() failed: %v", err)
	}
	if !a.Succeeded() {
		t.Fatalf("attempt failed: %v", a.Err)
	}

	floor, _ := c.Lookup("floor")
	for i := range a.Grid.Cells {
		cell := &a.Grid.Cells[i]
		if a.Grid.IsBorder(cell) && cell.Domain[0] == floor {
			t.Errorf("border cell (%d,%d) got floor", cell.X, cell.Z)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	if OutcomeSuccess.String() != "success" || OutcomeFailure.String() != "failure" {
		t.Error("unexpected Outcome strings")
	}
	if Outcome(9).String() != "unknown" {
		t.Error("unknown outcome should print unknown")
	}
}
