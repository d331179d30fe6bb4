package wfc

import (
	"errors"
	"fmt"
)

var (
	ErrDomainExhausted   = errors.New("wfc: domain exhausted - no valid module for cell")
	ErrInvalidAdjacency  = errors.New("wfc: incompatible modules placed next to each other")
	ErrConfiguration     = errors.New("wfc: invalid configuration")
	ErrAttemptInProgress = errors.New("wfc: an attempt is already running")
	ErrBudgetExhausted   = errors.New("wfc: attempt budget exhausted")
)

// Decision records one step of the collapse loop
type Decision struct {
	Cell   int
	Module ModuleID
	Random bool // true when the module was drawn, false when the cell was finalized
}

// Solver runs the collapse loop for a single attempt. It owns the grid's
// cells for the duration of the attempt and is not safe for concurrent use.
type Solver struct {
	Catalog *Catalog
	Grid    *Grid

	rng       RandomSource
	queue     *cellQueue
	decisions []Decision
	failed    int
}

// NewSolver creates a solver and queues every cell of the grid
func NewSolver(catalog *Catalog, grid *Grid, rng RandomSource) *Solver {
	s := &Solver{
		Catalog: catalog,
		Grid:    grid,
		rng:     rng,
		queue:   newCellQueue(grid),
		failed:  NoNeighbour,
	}
	for i := range grid.Cells {
		s.queue.Push(i)
	}
	return s
}

// Rand returns the random source used for collapse choices
func (s *Solver) Rand() RandomSource {
	return s.rng
}

// Decisions returns the collapse decisions taken so far
func (s *Solver) Decisions() []Decision {
	return s.decisions
}

// FailedCell returns the cell whose domain ran out, or nil
func (s *Solver) FailedCell() *Cell {
	if s.failed == NoNeighbour {
		return nil
	}
	return s.Grid.Cell(s.failed)
}

// Remaining returns the number of cells not yet finalized
func (s *Solver) Remaining() int {
	return s.queue.Len()
}

// ApplyConstraints runs the initial constraints in order
func (s *Solver) ApplyConstraints(constraints []InitialConstraint) error {
	for _, c := range constraints {
		if err := c.Apply(s); err != nil {
			return err
		}
	}
	return nil
}

// Run drives the loop until every cell is final or a domain runs out
func (s *Solver) Run() error {
	for {
		done, err := s.Step()
		if err != nil {
			return err
		}
		if done {
			return s.Verify()
		}
	}
}

// Step performs one iteration of the collapse loop.
// It returns done once the queue is empty.
func (s *Solver) Step() (bool, error) {
	idx := s.queue.Peek()
	if idx < 0 {
		return true, nil
	}
	cell := s.Grid.Cell(idx)

	switch len(cell.Domain) {
	case 0:
		s.failed = idx
		return false, fmt.Errorf("%w: cell (%d,%d)", ErrDomainExhausted, cell.X, cell.Z)

	case 1:
		cell.IsFinal = true
		s.queue.Pop()
		s.decisions = append(s.decisions, Decision{Cell: idx, Module: cell.Domain[0]})
		s.Propagate(idx)

	default:
		choice := cell.Domain[s.rng.Intn(len(cell.Domain))]
		cell.Domain = append(cell.Domain[:0], choice)
		s.queue.Fix(idx)
		s.decisions = append(s.decisions, Decision{Cell: idx, Module: choice, Random: true})
	}

	return s.queue.Len() == 0, nil
}

// Propagate narrows the neighbours of the source cell to modules whose
// facing edge shares a class with what the source still allows.
//
// Each open neighbour in direction d is filtered, followed by that
// neighbour's own neighbours in the two directions orthogonal to d, using
// the same allowed set. There is no further cascade.
func (s *Solver) Propagate(idx int) {
	src := s.Grid.Cell(idx)

	for _, d := range AllDirections() {
		n := s.Grid.Neighbour(src, d)
		if !open(n) {
			continue
		}

		allowed := s.Catalog.AllowedAcross(src.Domain, d)
		facing := d.Opposite()
		s.filter(n, facing, allowed)

		for _, o := range d.Orthogonal() {
			m := s.Grid.Neighbour(n, o)
			if !open(m) {
				continue
			}
			s.filter(m, facing, allowed)
		}
	}
}

// open reports whether propagation may still narrow the cell
func open(c *Cell) bool {
	return c != nil && !c.IsFinal && len(c.Domain) > 1
}

// filter keeps the modules whose edge in direction facing accepts a class
// from allowed. Returns true if the domain shrank.
func (s *Solver) filter(c *Cell, facing Direction, allowed map[string]struct{}) bool {
	return s.Restrict(c.Index, func(id ModuleID) bool {
		return s.Catalog.Module(id).AcceptsAny(facing, allowed)
	})
}

// Restrict removes every module for which keep returns false from a
// non-final cell and re-keys it in the queue. Returns true if the domain shrank.
func (s *Solver) Restrict(idx int, keep func(ModuleID) bool) bool {
	c := s.Grid.Cell(idx)
	if c.IsFinal {
		return false
	}

	before := len(c.Domain)
	kept := c.Domain[:0]
	for _, id := range c.Domain {
		if keep(id) {
			kept = append(kept, id)
		}
	}
	c.Domain = kept

	if len(kept) == before {
		return false
	}
	s.queue.Fix(idx)
	return true
}

// Verify checks every adjacent pair of finalized cells against the catalog
func (s *Solver) Verify() error {
	g := s.Grid
	for i := range g.Cells {
		c := &g.Cells[i]
		if !c.IsFinal || len(c.Domain) != 1 {
			continue
		}
		// Up and Right cover every pair once
		for _, d := range []Direction{Up, Right} {
			n := g.Neighbour(c, d)
			if n == nil || !n.IsFinal || len(n.Domain) != 1 {
				continue
			}
			if !s.Catalog.CanBeAdjacent(c.Domain[0], n.Domain[0], d) {
				return fmt.Errorf("%w: %s at (%d,%d) and %s at (%d,%d)", ErrInvalidAdjacency,
					s.Catalog.Module(c.Domain[0]), c.X, c.Z,
					s.Catalog.Module(n.Domain[0]), n.X, n.Z)
			}
		}
	}
	return nil
}
