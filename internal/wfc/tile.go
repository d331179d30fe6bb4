package wfc

import "fmt"

// Direction represents one of the four edges of a grid cell
type Direction int

const (
	Up Direction = iota
	Left
	Bottom
	Right
)

// NumDirections is the number of neighbour slots per cell
const NumDirections = 4

// String returns the string representation of a Direction
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Left:
		return "left"
	case Bottom:
		return "bottom"
	case Right:
		return "right"
	default:
		return "unknown"
	}
}

// Opposite returns the direction facing back across the same edge
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Bottom
	case Left:
		return Right
	case Bottom:
		return Up
	case Right:
		return Left
	default:
		return d
	}
}

// Orthogonal returns the two directions perpendicular to d
func (d Direction) Orthogonal() [2]Direction {
	if d == Up || d == Bottom {
		return [2]Direction{Left, Right}
	}
	return [2]Direction{Up, Bottom}
}

// Offset returns the (dx, dz) step for the direction. Up grows z.
func (d Direction) Offset() (int, int) {
	switch d {
	case Up:
		return 0, 1
	case Left:
		return -1, 0
	case Bottom:
		return 0, -1
	case Right:
		return 1, 0
	}
	return 0, 0
}

// AllDirections returns all four directions in neighbour slot order
func AllDirections() []Direction {
	return []Direction{Up, Left, Bottom, Right}
}

// ParseDirection converts a catalog edge key into a Direction
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "up", "north":
		return Up, nil
	case "left", "west":
		return Left, nil
	case "bottom", "down", "south":
		return Bottom, nil
	case "right", "east":
		return Right, nil
	default:
		return 0, fmt.Errorf("%w: unknown direction %q", ErrConfiguration, s)
	}
}

// ModuleID is a handle into a Catalog
type ModuleID int

// NoModule is returned by lookups that find nothing
const NoModule ModuleID = -1

// Module is a placeable tile definition.
// Edges holds, per direction, the compatibility classes accepted across that edge.
type Module struct {
	ID      ModuleID
	Name    string
	Edges   [NumDirections][]string
	Payload string

	edgeSets [NumDirections]map[string]struct{}
}

// AcceptsAny reports whether the module's edge in direction d shares a class with allowed
func (m *Module) AcceptsAny(d Direction, allowed map[string]struct{}) bool {
	if len(allowed) == 0 {
		return false
	}
	for class := range m.edgeSets[d] {
		if _, ok := allowed[class]; ok {
			return true
		}
	}
	return false
}

// CompatibleWith returns true if other may sit on side d of m
func (m *Module) CompatibleWith(d Direction, other *Module) bool {
	return other.AcceptsAny(d.Opposite(), m.edgeSets[d])
}

func (m *Module) String() string {
	return m.Name
}
