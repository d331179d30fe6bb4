package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/lawnchairsociety/tilewfc/internal/levelfile"
)

func main() {
	inputFile := flag.String("input", "levels/level.yaml", "Path to a generated level file")
	outputFile := flag.String("output", "", "Output file (empty for stdout)")
	showLegend := flag.Bool("legend", true, "Show legend")
	interactive := flag.Bool("tui", false, "Browse the level in a scrollable terminal view")
	flag.Parse()

	level, err := levelfile.ReadFile(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading level: %v\n", err)
		os.Exit(1)
	}

	if *interactive {
		if err := runTUI(level); err != nil {
			fmt.Fprintf(os.Stderr, "Error running terminal view: %v\n", err)
			os.Exit(1)
		}
		return
	}

	var output strings.Builder
	output.WriteString(fmt.Sprintf("Level %dx%d (Seed: %d, Attempt: %d, %s)\n",
		level.Width, level.Height, level.Seed, level.Attempt, level.Outcome))
	output.WriteString(strings.Repeat("=", 40) + "\n\n")

	if err := level.Render(&output); err != nil {
		fmt.Fprintf(os.Stderr, "Error rendering level: %v\n", err)
		os.Exit(1)
	}
	output.WriteString("\n")

	fallbacks := 0
	for _, c := range level.Cells {
		if c.Fallback {
			fallbacks++
		}
	}
	if fallbacks > 0 {
		output.WriteString(fmt.Sprintf("WARNING: %d cells ran out of modules and use the fallback.\n\n", fallbacks))
	}

	if *showLegend {
		output.WriteString(legend(level))
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output.String()), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Map written to %s\n", *outputFile)
	} else {
		fmt.Print(output.String())
	}
}

// legend lists every glyph with the modules drawn with it and their counts
func legend(level *levelfile.Level) string {
	counts := make(map[string]int)
	for _, c := range level.Cells {
		counts[c.Module]++
	}

	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)

	var sb strings.Builder
	sb.WriteString("Legend:\n")
	for _, name := range names {
		r, _ := utf8.DecodeRuneInString(name)
		sb.WriteString(fmt.Sprintf("  %c  %-16s %d\n", r, name, counts[name]))
	}
	sb.WriteString("  .  (empty)\n")
	return sb.String()
}
