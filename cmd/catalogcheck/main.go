package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/lawnchairsociety/tilewfc/internal/wfc"
)

func main() {
	catalogFile := flag.String("catalog", "data/modules.yaml", "Path to module catalog YAML file")
	flag.Parse()

	catalog, err := wfc.LoadCatalog(*catalogFile)
	if err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}

	fmt.Printf("Loaded %d modules (fingerprint %s)\n\n", catalog.Len(), catalog.Fingerprint())

	problems := 0
	for _, id := range catalog.All() {
		m := catalog.Module(id)
		fmt.Printf("%s\n", m.Name)
		for _, d := range wfc.AllDirections() {
			accepted := neighbours(catalog, id, d)
			fmt.Printf("  %-7s %-20s -> %s\n", d, strings.Join(m.Edges[d], ","), strings.Join(accepted, ", "))
			if len(accepted) == 0 {
				problems++
			}
		}
	}

	if problems > 0 {
		fmt.Printf("\nWARNING: %d module sides accept no neighbour; any level containing them will fail.\n", problems)
		os.Exit(1)
	}
	fmt.Println("\nEvery module side accepts at least one neighbour.")
}

// neighbours lists the modules that may sit on side d of module id
func neighbours(catalog *wfc.Catalog, id wfc.ModuleID, d wfc.Direction) []string {
	var names []string
	for _, other := range catalog.All() {
		if catalog.CanBeAdjacent(id, other, d) {
			names = append(names, catalog.Module(other).Name)
		}
	}
	return names
}
