package main

import (
	"fmt"
	"sort"
	"unicode/utf8"

	"github.com/gdamore/tcell/v2"

	"github.com/lawnchairsociety/tilewfc/internal/levelfile"
)

var palette = []tcell.Color{
	tcell.ColorGreen,
	tcell.ColorBlue,
	tcell.ColorYellow,
	tcell.ColorPurple,
	tcell.ColorTeal,
	tcell.ColorRed,
	tcell.ColorOlive,
	tcell.ColorSilver,
}

// mapView draws a level on a terminal screen and scrolls with the arrow keys
type mapView struct {
	screen tcell.Screen
	level  *levelfile.Level
	styles map[string]tcell.Style
	offX   int
	offZ   int
}

func newMapView(screen tcell.Screen, level *levelfile.Level) *mapView {
	names := make([]string, 0)
	seen := make(map[string]bool)
	for _, c := range level.Cells {
		if !seen[c.Module] {
			seen[c.Module] = true
			names = append(names, c.Module)
		}
	}
	sort.Strings(names)

	styles := make(map[string]tcell.Style, len(names))
	for i, name := range names {
		styles[name] = tcell.StyleDefault.Foreground(palette[i%len(palette)])
	}
	return &mapView{screen: screen, level: level, styles: styles}
}

// screenPos maps a level cell to a screen position; row 0 holds the title
func (v *mapView) screenPos(x, z int) (int, int) {
	return x - v.offX, 1 + (v.level.Height - 1 - z) - v.offZ
}

func (v *mapView) draw() {
	v.screen.Clear()

	title := fmt.Sprintf("%dx%d seed %d %s  (arrows scroll, q quits)",
		v.level.Width, v.level.Height, v.level.Seed, v.level.Outcome)
	for i, r := range title {
		v.screen.SetContent(i, 0, r, nil, tcell.StyleDefault.Bold(true))
	}

	width, height := v.screen.Size()
	for _, c := range v.level.Cells {
		sx, sy := v.screenPos(c.X, c.Z)
		if sx < 0 || sy < 1 || sx >= width || sy >= height {
			continue
		}
		r, _ := utf8.DecodeRuneInString(c.Module)
		style := v.styles[c.Module]
		if c.Fallback {
			style = style.Reverse(true)
		}
		v.screen.SetContent(sx, sy, r, nil, style)
	}
	v.screen.Show()
}

// handle applies one event and reports whether the view stays open
func (v *mapView) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyLeft:
			v.scroll(-1, 0)
		case tcell.KeyRight:
			v.scroll(1, 0)
		case tcell.KeyUp:
			v.scroll(0, -1)
		case tcell.KeyDown:
			v.scroll(0, 1)
		case tcell.KeyRune:
			if ev.Rune() == 'q' {
				return false
			}
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

func (v *mapView) scroll(dx, dz int) {
	v.offX = clamp(v.offX+dx, 0, max(v.level.Width-1, 0))
	v.offZ = clamp(v.offZ+dz, 0, max(v.level.Height-1, 0))
}

func clamp(n, lo, hi int) int {
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}

// runTUI shows the level until the user quits
func runTUI(level *levelfile.Level) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	view := newMapView(screen, level)
	for {
		view.draw()
		if !view.handle(screen.PollEvent()) {
			return nil
		}
	}
}
