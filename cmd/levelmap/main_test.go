package main

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"

	"github.com/lawnchairsociety/tilewfc/internal/levelfile"
)

func TestLegend(t *testing.T) {
	level := &levelfile.Level{
		Width:  2,
		Height: 2,
		Cells: []levelfile.Cell{
			{X: 0, Z: 0, Module: "wall"},
			{X: 1, Z: 0, Module: "floor"},
			{X: 0, Z: 1, Module: "wall"},
		},
	}

	got := legend(level)
	floor := strings.Index(got, "f  floor")
	wall := strings.Index(got, "w  wall")
	if floor < 0 || wall < 0 {
		t.Fatalf("legend missing modules:\n%s", got)
	}
	if floor > wall {
		t.Error("legend not sorted by module name")
	}
	if !strings.Contains(got, "wall             2") {
		t.Errorf("wall count missing:\n%s", got)
	}
}

func testLevel() *levelfile.Level {
	return &levelfile.Level{
		Width:   3,
		Height:  2,
		Seed:    7,
		Outcome: "success",
		Cells: []levelfile.Cell{
			{X: 0, Z: 0, Module: "floor"},
			{X: 1, Z: 0, Module: "floor"},
			{X: 2, Z: 0, Module: "wall", Fallback: true},
			{X: 0, Z: 1, Module: "wall"},
			{X: 1, Z: 1, Module: "water"},
			{X: 2, Z: 1, Module: "wall"},
		},
	}
}

func newTestScreen(t *testing.T) tcell.SimulationScreen {
	t.Helper()
	screen := tcell.NewSimulationScreen("UTF-8")
	if err := screen.Init(); err != nil {
		t.Fatal(err)
	}
	screen.SetSize(40, 10)
	t.Cleanup(screen.Fini)
	return screen
}

func TestMapViewDraw(t *testing.T) {
	screen := newTestScreen(t)
	view := newMapView(screen, testLevel())
	view.draw()

	// Row 1 holds the highest z row
	want := map[[2]int]rune{
		{0, 1}: 'w', {1, 1}: 'w', {2, 1}: 'w',
		{0, 2}: 'f', {1, 2}: 'f', {2, 2}: 'w',
	}
	for pos, r := range want {
		got, _, _, _ := screen.GetContent(pos[0], pos[1])
		if got != r {
			t.Errorf("screen (%d,%d) = %q, want %q", pos[0], pos[1], got, r)
		}
	}

	_, _, style, _ := screen.GetContent(2, 2)
	if style != view.styles["wall"].Reverse(true) {
		t.Error("fallback cell not drawn reversed")
	}
	_, _, style, _ = screen.GetContent(0, 1)
	if style != view.styles["wall"] {
		t.Error("regular wall cell drawn with the wrong style")
	}
}

func TestMapViewScrollAndQuit(t *testing.T) {
	screen := newTestScreen(t)
	view := newMapView(screen, testLevel())

	if !view.handle(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone)) {
		t.Fatal("arrow key closed the view")
	}
	if view.offX != 1 {
		t.Errorf("offX = %d, want 1", view.offX)
	}
	for i := 0; i < 5; i++ {
		view.handle(tcell.NewEventKey(tcell.KeyRight, 0, tcell.ModNone))
	}
	if view.offX != 2 {
		t.Errorf("offX = %d, want clamped to 2", view.offX)
	}
	view.handle(tcell.NewEventKey(tcell.KeyUp, 0, tcell.ModNone))
	if view.offZ != 0 {
		t.Errorf("offZ = %d, want clamped to 0", view.offZ)
	}

	if view.handle(tcell.NewEventKey(tcell.KeyRune, 'q', tcell.ModNone)) {
		t.Error("q did not close the view")
	}
	if view.handle(tcell.NewEventKey(tcell.KeyEscape, 0, tcell.ModNone)) {
		t.Error("Escape did not close the view")
	}
}
