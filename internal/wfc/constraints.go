package wfc

import "fmt"

// InitialConstraint shrinks cell domains once, before the collapse loop starts
type InitialConstraint interface {
	Apply(s *Solver) error
}

// BorderConstraint limits the outer ring of cells to a subset of modules
type BorderConstraint struct {
	Modules []ModuleID
}

// NewBorderConstraint resolves module names against the catalog
func NewBorderConstraint(catalog *Catalog, names []string) (*BorderConstraint, error) {
	if len(names) == 0 {
		return nil, fmt.Errorf("%w: border constraint needs at least one module", ErrConfiguration)
	}
	bc := &BorderConstraint{}
	for _, name := range names {
		id, err := catalog.MustLookup(name)
		if err != nil {
			return nil, err
		}
		bc.Modules = append(bc.Modules, id)
	}
	return bc, nil
}

// Apply restricts every border cell and propagates from the ones that changed
func (bc *BorderConstraint) Apply(s *Solver) error {
	allowed := make(map[ModuleID]bool, len(bc.Modules))
	for _, id := range bc.Modules {
		allowed[id] = true
	}

	g := s.Grid
	for i := range g.Cells {
		if !g.IsBorder(&g.Cells[i]) {
			continue
		}
		if s.Restrict(i, func(id ModuleID) bool { return allowed[id] }) {
			s.Propagate(i)
		}
	}
	return nil
}

// StartGoalConstraint places exactly one start module and one goal module
// at two distinct random cells. No other cell may take either module.
type StartGoalConstraint struct {
	Start, Goal ModuleID

	// Set by Apply
	StartCell, GoalCell int
}

// NewStartGoalConstraint resolves the start and goal module names
func NewStartGoalConstraint(catalog *Catalog, start, goal string) (*StartGoalConstraint, error) {
	startID, err := catalog.MustLookup(start)
	if err != nil {
		return nil, fmt.Errorf("start module: %w", err)
	}
	goalID, err := catalog.MustLookup(goal)
	if err != nil {
		return nil, fmt.Errorf("goal module: %w", err)
	}
	if startID == goalID {
		return nil, fmt.Errorf("%w: start and goal module are both %q", ErrConfiguration, start)
	}
	return &StartGoalConstraint{Start: startID, Goal: goalID, StartCell: NoNeighbour, GoalCell: NoNeighbour}, nil
}

// Apply picks the two cells, pins them and propagates from both.
// Only cells that can still hold the start (or goal) module are candidates,
// so a border constraint applied earlier keeps both off the ring.
func (sg *StartGoalConstraint) Apply(s *Solver) error {
	n := s.Grid.Len()
	if n < 2 {
		return fmt.Errorf("%w: start and goal need at least 2 cells, grid has %d", ErrConfiguration, n)
	}

	starts := sg.candidates(s.Grid, sg.Start, NoNeighbour)
	if len(starts) == 0 {
		return fmt.Errorf("%w: no cell can hold the start module", ErrConfiguration)
	}
	rng := s.Rand()
	sg.StartCell = starts[rng.Intn(len(starts))]

	goals := sg.candidates(s.Grid, sg.Goal, sg.StartCell)
	if len(goals) == 0 {
		return fmt.Errorf("%w: no cell can hold the goal module", ErrConfiguration)
	}
	sg.GoalCell = goals[rng.Intn(len(goals))]

	for i := range s.Grid.Cells {
		switch i {
		case sg.StartCell:
			s.Restrict(i, func(id ModuleID) bool { return id == sg.Start })
		case sg.GoalCell:
			s.Restrict(i, func(id ModuleID) bool { return id == sg.Goal })
		default:
			s.Restrict(i, func(id ModuleID) bool { return id != sg.Start && id != sg.Goal })
		}
	}

	s.Propagate(sg.StartCell)
	s.Propagate(sg.GoalCell)
	return nil
}

// candidates returns the open cells whose domain contains id, skipping skip
func (sg *StartGoalConstraint) candidates(g *Grid, id ModuleID, skip int) []int {
	var cells []int
	for i := range g.Cells {
		if i == skip || g.Cells[i].IsFinal {
			continue
		}
		for _, m := range g.Cells[i].Domain {
			if m == id {
				cells = append(cells, i)
				break
			}
		}
	}
	return cells
}
