package wfc

import (
	"encoding/hex"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// ModuleDef describes one catalog entry before it is assigned a handle
type ModuleDef struct {
	Name    string
	Payload string
	Edges   [NumDirections][]string
}

// Catalog is the read-only set of modules a level is built from.
// Module handles are positions in the catalog, so every new cell
// starts with the domain 0..Len()-1.
type Catalog struct {
	modules []*Module
	byName  map[string]ModuleID
}

// NewCatalog validates the definitions and assigns handles in order
func NewCatalog(defs []ModuleDef) (*Catalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("%w: module catalog is empty", ErrConfiguration)
	}

	c := &Catalog{
		modules: make([]*Module, 0, len(defs)),
		byName:  make(map[string]ModuleID, len(defs)),
	}

	for i, def := range defs {
		if def.Name == "" {
			return nil, fmt.Errorf("%w: module %d has no name", ErrConfiguration, i)
		}
		if _, dup := c.byName[def.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate module %q", ErrConfiguration, def.Name)
		}

		m := &Module{
			ID:      ModuleID(i),
			Name:    def.Name,
			Payload: def.Payload,
		}
		for _, d := range AllDirections() {
			classes := append([]string(nil), def.Edges[d]...)
			m.Edges[d] = classes
			m.edgeSets[d] = make(map[string]struct{}, len(classes))
			for _, class := range classes {
				m.edgeSets[d][class] = struct{}{}
			}
		}

		c.modules = append(c.modules, m)
		c.byName[def.Name] = m.ID
	}

	return c, nil
}

// Len returns the number of modules in the catalog
func (c *Catalog) Len() int {
	return len(c.modules)
}

// Module returns the module for a handle, or nil if out of range
func (c *Catalog) Module(id ModuleID) *Module {
	if id < 0 || int(id) >= len(c.modules) {
		return nil
	}
	return c.modules[id]
}

// Lookup returns the handle for a module name
func (c *Catalog) Lookup(name string) (ModuleID, bool) {
	id, ok := c.byName[name]
	if !ok {
		return NoModule, false
	}
	return id, true
}

// MustLookup returns the handle for name or an ErrConfiguration error
func (c *Catalog) MustLookup(name string) (ModuleID, error) {
	id, ok := c.Lookup(name)
	if !ok {
		return NoModule, fmt.Errorf("%w: unknown module %q", ErrConfiguration, name)
	}
	return id, nil
}

// All returns every module handle in catalog order
func (c *Catalog) All() []ModuleID {
	ids := make([]ModuleID, len(c.modules))
	for i := range c.modules {
		ids[i] = ModuleID(i)
	}
	return ids
}

// Compatible returns the set of edge classes a module accepts in direction d
func (c *Catalog) Compatible(id ModuleID, d Direction) map[string]struct{} {
	m := c.Module(id)
	if m == nil {
		return nil
	}
	return m.edgeSets[d]
}

// AllowedAcross is the union of the edge classes that any module in domain
// accepts in direction d.
func (c *Catalog) AllowedAcross(domain []ModuleID, d Direction) map[string]struct{} {
	if len(domain) == 1 {
		return c.modules[domain[0]].edgeSets[d]
	}
	allowed := make(map[string]struct{})
	for _, id := range domain {
		for class := range c.modules[id].edgeSets[d] {
			allowed[class] = struct{}{}
		}
	}
	return allowed
}

// CanBeAdjacent returns true if module b may sit on side d of module a
func (c *Catalog) CanBeAdjacent(a, b ModuleID, d Direction) bool {
	return c.modules[a].CompatibleWith(d, c.modules[b])
}

// Fingerprint identifies the catalog content so outcome statistics
// from different catalog revisions are not mixed.
func (c *Catalog) Fingerprint() string {
	var sb strings.Builder
	for _, m := range c.modules {
		sb.WriteString(m.Name)
		sb.WriteByte('|')
		sb.WriteString(m.Payload)
		for _, d := range AllDirections() {
			classes := append([]string(nil), m.Edges[d]...)
			sort.Strings(classes)
			sb.WriteByte('|')
			sb.WriteString(strings.Join(classes, ","))
		}
		sb.WriteByte('\n')
	}
	sum := blake2b.Sum256([]byte(sb.String()))
	return hex.EncodeToString(sum[:8])
}
