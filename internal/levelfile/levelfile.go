// Package levelfile stores generated levels as YAML.
package levelfile

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/tilewfc/internal/wfc"
)

// Level is a generated level in YAML form
type Level struct {
	Catalog string `yaml:"catalog,omitempty"`
	Seed    int64  `yaml:"seed"`
	Attempt int    `yaml:"attempt"`
	Outcome string `yaml:"outcome"`
	Width   int    `yaml:"width"`
	Height  int    `yaml:"height"`
	Cells   []Cell `yaml:"cells"`
}

// Cell is one materialized grid cell
type Cell struct {
	X        int    `yaml:"x"`
	Z        int    `yaml:"z"`
	Module   string `yaml:"module"`
	Payload  string `yaml:"payload,omitempty"`
	Fallback bool   `yaml:"fallback,omitempty"`
}

// At returns the cell at (x, z), or nil
func (l *Level) At(x, z int) *Cell {
	for i := range l.Cells {
		if l.Cells[i].X == x && l.Cells[i].Z == z {
			return &l.Cells[i]
		}
	}
	return nil
}

// Render draws the level with the first letter of each module name,
// highest z row first. Missing cells are drawn as '.'.
func (l *Level) Render(w io.Writer) error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("invalid level size %dx%d", l.Width, l.Height)
	}

	glyphs := make(map[[2]int]rune, len(l.Cells))
	for _, c := range l.Cells {
		r, _ := utf8.DecodeRuneInString(c.Module)
		if r == utf8.RuneError {
			r = '?'
		}
		glyphs[[2]int{c.X, c.Z}] = r
	}

	row := make([]rune, l.Width)
	for z := l.Height - 1; z >= 0; z-- {
		for x := 0; x < l.Width; x++ {
			if r, ok := glyphs[[2]int{x, z}]; ok {
				row[x] = r
			} else {
				row[x] = '.'
			}
		}
		if _, err := fmt.Fprintln(w, string(row)); err != nil {
			return err
		}
	}
	return nil
}

// Writer collects placements from a controller and writes them as a level.
// Later attempts overwrite the cells of earlier ones.
type Writer struct {
	catalog string
	width   int
	height  int
	cells   map[[2]int]Cell
	report  *wfc.AttemptReport
}

// NewWriter creates a Writer tagging levels with the catalog fingerprint
func NewWriter(catalog string) *Writer {
	return &Writer{
		catalog: catalog,
		cells:   make(map[[2]int]Cell),
	}
}

// Place implements wfc.InstantiationSink
func (w *Writer) Place(p wfc.Placement) error {
	if p.Module == nil {
		return fmt.Errorf("cell (%d,%d) has no module", p.X, p.Z)
	}
	w.cells[[2]int{p.X, p.Z}] = Cell{
		X:        p.X,
		Z:        p.Z,
		Module:   p.Module.Name,
		Payload:  p.Module.Payload,
		Fallback: p.Fallback,
	}
	return nil
}

// Frame implements wfc.ViewportSink. Cells outside the new size are dropped.
func (w *Writer) Frame(width, height int) {
	w.width, w.height = width, height
	for key := range w.cells {
		if key[0] >= width || key[1] >= height {
			delete(w.cells, key)
		}
	}
}

// SetReport records which attempt the level came from
func (w *Writer) SetReport(r wfc.AttemptReport) {
	w.report = &r
}

// Level returns the collected cells sorted by (z, x)
func (w *Writer) Level() *Level {
	level := &Level{
		Catalog: w.catalog,
		Width:   w.width,
		Height:  w.height,
		Cells:   make([]Cell, 0, len(w.cells)),
	}
	if w.report != nil {
		level.Seed = w.report.Seed
		level.Attempt = w.report.Attempt
		level.Outcome = w.report.Outcome.String()
	}
	for _, c := range w.cells {
		level.Cells = append(level.Cells, c)
	}
	sortCells(level.Cells)
	return level
}

// WriteFile writes the collected level to path
func (w *Writer) WriteFile(path string) error {
	return WriteLevel(w.Level(), path)
}

// WriteLevel writes a level to a YAML file, creating parent directories
func WriteLevel(level *Level, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	if err := Encode(f, level); err != nil {
		return err
	}
	return f.Close()
}

// Encode writes the header comment and the level YAML to out
func Encode(out io.Writer, level *Level) error {
	var header bytes.Buffer
	fmt.Fprintf(&header, "# Level %dx%d - %s\n", level.Width, level.Height, level.Outcome)
	fmt.Fprintf(&header, "# Generated with seed: %d (attempt %d)\n", level.Seed, level.Attempt)
	fmt.Fprintf(&header, "# Cell count: %d\n\n", len(level.Cells))
	if _, err := out.Write(header.Bytes()); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	encoder := yaml.NewEncoder(out)
	encoder.SetIndent(2)

	ordered := &orderedLevel{
		Catalog: level.Catalog,
		Seed:    level.Seed,
		Attempt: level.Attempt,
		Outcome: level.Outcome,
		Width:   level.Width,
		Height:  level.Height,
		Cells:   cellsNode(level.Cells),
	}
	if err := encoder.Encode(ordered); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

// ReadFile loads a level written by WriteLevel
func ReadFile(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read level file: %w", err)
	}

	var level Level
	if err := yaml.Unmarshal(data, &level); err != nil {
		return nil, fmt.Errorf("failed to parse level file: %w", err)
	}

	if level.Width <= 0 || level.Height <= 0 {
		return nil, fmt.Errorf("invalid level size %dx%d", level.Width, level.Height)
	}

	for _, c := range level.Cells {
		if c.X < 0 || c.X >= level.Width || c.Z < 0 || c.Z >= level.Height {
			return nil, fmt.Errorf("cell (%d,%d) outside %dx%d level", c.X, c.Z, level.Width, level.Height)
		}
	}
	sortCells(level.Cells)
	return &level, nil
}

// orderedLevel is used for serialization with compact cells
type orderedLevel struct {
	Catalog string    `yaml:"catalog,omitempty"`
	Seed    int64     `yaml:"seed"`
	Attempt int       `yaml:"attempt"`
	Outcome string    `yaml:"outcome"`
	Width   int       `yaml:"width"`
	Height  int       `yaml:"height"`
	Cells   yaml.Node `yaml:"cells"`
}

func sortCells(cells []Cell) {
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Z != cells[j].Z {
			return cells[i].Z < cells[j].Z
		}
		return cells[i].X < cells[j].X
	})
}

// cellsNode renders each cell as a one-line flow mapping
func cellsNode(cells []Cell) yaml.Node {
	node := yaml.Node{Kind: yaml.SequenceNode}
	for _, c := range cells {
		cellNode := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
		addIntField(cellNode, "x", c.X)
		addIntField(cellNode, "z", c.Z)
		addStringField(cellNode, "module", c.Module)
		if c.Payload != "" {
			addStringField(cellNode, "payload", c.Payload)
		}
		if c.Fallback {
			cellNode.Content = append(cellNode.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: "fallback"},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: "true"},
			)
		}
		node.Content = append(node.Content, cellNode)
	}
	return node
}

func addStringField(node *yaml.Node, key, value string) {
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

func addIntField(node *yaml.Node, key string, value int) {
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(value)},
	)
}
