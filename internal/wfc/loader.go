package wfc

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ModuleDefinition represents a module entry in the catalog YAML file
type ModuleDefinition struct {
	Name    string              `yaml:"name"`
	Payload string              `yaml:"payload,omitempty"`
	Edges   map[string][]string `yaml:"edges"`
}

// CatalogFile represents the structure of the modules YAML file
type CatalogFile struct {
	Modules []ModuleDefinition `yaml:"modules"`
}

// LoadCatalog loads module definitions from a YAML file
func LoadCatalog(filename string) (*Catalog, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog builds a Catalog from YAML content
func ParseCatalog(data []byte) (*Catalog, error) {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}

	defs := make([]ModuleDef, 0, len(file.Modules))
	for _, md := range file.Modules {
		def, err := md.toDef()
		if err != nil {
			return nil, err
		}
		defs = append(defs, def)
	}

	return NewCatalog(defs)
}

func (md ModuleDefinition) toDef() (ModuleDef, error) {
	def := ModuleDef{Name: md.Name, Payload: md.Payload}
	for key, classes := range md.Edges {
		d, err := ParseDirection(key)
		if err != nil {
			return ModuleDef{}, fmt.Errorf("module %q: %w", md.Name, err)
		}
		def.Edges[d] = append(def.Edges[d], classes...)
	}
	return def, nil
}
