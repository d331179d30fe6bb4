package wfc

import "fmt"

// NoNeighbour marks an empty neighbour slot at the grid boundary
const NoNeighbour = -1

// Cell is one grid position during solving
type Cell struct {
	Index      int
	X, Z       int
	Domain     []ModuleID         // Modules still possible for this cell
	Neighbours [NumDirections]int // Arena indices, NoNeighbour at the boundary
	IsFinal    bool               // Accepted and propagated; Domain is frozen
}

// Entropy returns the number of possible states
func (c *Cell) Entropy() int {
	return len(c.Domain)
}

// Collapsed reports whether only one module remains
func (c *Cell) Collapsed() bool {
	return len(c.Domain) == 1
}

// Grid is an arena of cells addressed by z*Width+x
type Grid struct {
	Width, Height int
	Cells         []Cell
}

// GridBuilder creates the grid for one attempt
type GridBuilder interface {
	Build(width, height int, catalog *Catalog) (*Grid, error)
}

// GridBuilderFunc adapts a function to GridBuilder
type GridBuilderFunc func(width, height int, catalog *Catalog) (*Grid, error)

// Build calls f
func (f GridBuilderFunc) Build(width, height int, catalog *Catalog) (*Grid, error) {
	return f(width, height, catalog)
}

// NewGrid builds a width x height grid whose cells start with the full catalog
func NewGrid(width, height int, catalog *Catalog) (*Grid, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: invalid grid size %dx%d", ErrConfiguration, width, height)
	}
	if catalog == nil || catalog.Len() == 0 {
		return nil, fmt.Errorf("%w: module catalog is empty", ErrConfiguration)
	}

	g := &Grid{
		Width:  width,
		Height: height,
		Cells:  make([]Cell, width*height),
	}

	all := catalog.All()
	for z := 0; z < height; z++ {
		for x := 0; x < width; x++ {
			idx := g.index(x, z)
			cell := &g.Cells[idx]
			cell.Index = idx
			cell.X = x
			cell.Z = z
			cell.Domain = append([]ModuleID(nil), all...)
			for _, d := range AllDirections() {
				cell.Neighbours[d] = g.neighbourIndex(x, z, d)
			}
		}
	}

	return g, nil
}

func (g *Grid) index(x, z int) int {
	return z*g.Width + x
}

func (g *Grid) neighbourIndex(x, z int, d Direction) int {
	dx, dz := d.Offset()
	nx, nz := x+dx, z+dz
	if !g.InBounds(nx, nz) {
		return NoNeighbour
	}
	return g.index(nx, nz)
}

// InBounds reports whether (x, z) lies on the grid
func (g *Grid) InBounds(x, z int) bool {
	return x >= 0 && x < g.Width && z >= 0 && z < g.Height
}

// At returns the cell at (x, z), or nil if out of bounds
func (g *Grid) At(x, z int) *Cell {
	if !g.InBounds(x, z) {
		return nil
	}
	return &g.Cells[g.index(x, z)]
}

// Cell returns the cell at an arena index
func (g *Grid) Cell(idx int) *Cell {
	return &g.Cells[idx]
}

// Neighbour returns the adjacent cell in direction d, or nil at the boundary
func (g *Grid) Neighbour(c *Cell, d Direction) *Cell {
	idx := c.Neighbours[d]
	if idx == NoNeighbour {
		return nil
	}
	return &g.Cells[idx]
}

// IsBorder reports whether the cell lies on the outer ring
func (g *Grid) IsBorder(c *Cell) bool {
	return c.X == 0 || c.Z == 0 || c.X == g.Width-1 || c.Z == g.Height-1
}

// Len returns the number of cells
func (g *Grid) Len() int {
	return len(g.Cells)
}
