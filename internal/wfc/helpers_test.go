package wfc

import (
	"testing"
)

// sameEdges returns edge lists with the same classes on every side
func sameEdges(classes ...string) [NumDirections][]string {
	var e [NumDirections][]string
	for _, d := range AllDirections() {
		e[d] = classes
	}
	return e
}

func mustCatalog(t *testing.T, defs ...ModuleDef) *Catalog {
	t.Helper()
	c, err := NewCatalog(defs)
	if err != nil {
		t.Fatalf("NewCatalog() failed: %v", err)
	}
	return c
}

func mustGrid(t *testing.T, w, h int, c *Catalog) *Grid {
	t.Helper()
	g, err := NewGrid(w, h, c)
	if err != nil {
		t.Fatalf("NewGrid(%d, %d) failed: %v", w, h, err)
	}
	return g
}

// terrainCatalog never contradicts: sand accepts both grass and water
func terrainCatalog(t *testing.T) *Catalog {
	return mustCatalog(t,
		ModuleDef{Name: "grass", Edges: sameEdges("g")},
		ModuleDef{Name: "sand", Edges: sameEdges("g", "w")},
		ModuleDef{Name: "water", Edges: sameEdges("w")},
	)
}

// spyRandom records every draw and fails the test on an out-of-range one
type spyRandom struct {
	t     *testing.T
	r     *Random
	seeds []int64
	draws []int
}

func newSpyRandom(t *testing.T) *spyRandom {
	return &spyRandom{t: t, r: NewRandom(1)}
}

func (s *spyRandom) Reseed(seed int64) {
	s.seeds = append(s.seeds, seed)
	s.r.Reseed(seed)
}

func (s *spyRandom) Intn(n int) int {
	s.draws = append(s.draws, n)
	if n <= 0 {
		s.t.Fatalf("Intn(%d) called with an empty range", n)
	}
	return s.r.Intn(n)
}

// recordingSink collects everything the controller reports
type recordingSink struct {
	placements []Placement
	reports    []AttemptReport
	frames     [][2]int
	onPlace    func(p Placement) error
}

func (r *recordingSink) Place(p Placement) error {
	r.placements = append(r.placements, p)
	if r.onPlace != nil {
		return r.onPlace(p)
	}
	return nil
}

func (r *recordingSink) RecordAttempt(rep AttemptReport) error {
	r.reports = append(r.reports, rep)
	return nil
}

func (r *recordingSink) Frame(width, height int) {
	r.frames = append(r.frames, [2]int{width, height})
}

func (r *recordingSink) count(o Outcome) int {
	n := 0
	for _, rep := range r.reports {
		if rep.Outcome == o {
			n++
		}
	}
	return n
}

func domainSizes(g *Grid) []int {
	sizes := make([]int, g.Len())
	for i := range g.Cells {
		sizes[i] = len(g.Cells[i].Domain)
	}
	return sizes
}
