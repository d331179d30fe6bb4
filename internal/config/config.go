// Package config loads the level generator's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/tilewfc/internal/wfc"
)

// GeneratorConfig holds every setting of a level generation run.
type GeneratorConfig struct {
	Catalog     string            `yaml:"catalog"`
	Output      string            `yaml:"output"`
	Grid        GridConfig        `yaml:"grid"`
	Attempts    AttemptsConfig    `yaml:"attempts"`
	Modules     ModulesConfig     `yaml:"modules"`
	Constraints ConstraintsConfig `yaml:"constraints"`
	Database    DatabaseConfig    `yaml:"database"`
	Viewer      ViewerConfig      `yaml:"viewer"`
}

// GridConfig holds the level dimensions.
type GridConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// AttemptsConfig controls seeding and retries.
type AttemptsConfig struct {
	// Seed of 0 derives a fresh seed from the clock for every attempt.
	Seed int64 `yaml:"seed"`

	// Budget is the maximum number of attempts.
	Budget int `yaml:"budget"`

	// StopOnSuccess stops retrying after the first valid level.
	// Disable it to run the whole budget, e.g. to measure failure rates.
	StopOnSuccess bool `yaml:"stop_on_success"`
}

// ModulesConfig names the catalog modules with a special role.
type ModulesConfig struct {
	Start    string   `yaml:"start"`
	Goal     string   `yaml:"goal"`
	Fallback string   `yaml:"fallback"`
	Border   []string `yaml:"border"`
}

// ConstraintsConfig toggles the initial constraints.
type ConstraintsConfig struct {
	Border    bool `yaml:"border"`
	StartGoal bool `yaml:"start_goal"`
}

// DatabaseConfig selects where attempt outcomes are stored.
type DatabaseConfig struct {
	Enabled bool `yaml:"enabled"`

	// Driver is "sqlite" or "postgres".
	Driver     string `yaml:"driver"`
	SQLitePath string `yaml:"sqlite_path"`

	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL connection settings.
type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"ssl_mode"`
}

// ViewerConfig holds the live websocket viewer settings.
type ViewerConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`

	// AllowedOrigins is a list of origins allowed to connect via WebSocket.
	// Empty list enforces same-origin policy.
	// Use "*" to allow all origins.
	AllowedOrigins []string `yaml:"allowed_origins"`

	// MaxMessageSize is the largest inbound viewer message in bytes.
	MaxMessageSize int64 `yaml:"max_message_size"`
}

// DefaultConfig returns a GeneratorConfig for a single 10x10 attempt.
func DefaultConfig() *GeneratorConfig {
	return &GeneratorConfig{
		Catalog: "data/modules.yaml",
		Output:  "levels/level.yaml",
		Grid: GridConfig{
			Width:  10,
			Height: 10,
		},
		Attempts: AttemptsConfig{
			Seed:          wfc.SeedUnset,
			Budget:        1,
			StopOnSuccess: true,
		},
		Database: DatabaseConfig{
			Driver:     "sqlite",
			SQLitePath: "data/levelgen.db",
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "disable",
			},
		},
		Viewer: ViewerConfig{
			Addr:           ":8080",
			AllowedOrigins: []string{}, // Same-origin only by default
			MaxMessageSize: 4096,
		},
	}
}

// LoadConfig loads generator configuration from a YAML file.
// If the file doesn't exist, returns default config.
func LoadConfig(path string) (*GeneratorConfig, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return config, err
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse %s: %w", path, err)
	}

	return config, nil
}

// Validate checks the settings that do not need the catalog.
// Module names are resolved later by wfc.NewController.
func (c *GeneratorConfig) Validate() error {
	var problems []string

	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		problems = append(problems, fmt.Sprintf("grid size must be positive, got %dx%d", c.Grid.Width, c.Grid.Height))
	}
	if c.Attempts.Budget <= 0 {
		problems = append(problems, fmt.Sprintf("attempt budget must be positive, got %d", c.Attempts.Budget))
	}
	if c.Catalog == "" {
		problems = append(problems, "catalog path is required")
	}
	if c.Constraints.Border && len(c.Modules.Border) == 0 {
		problems = append(problems, "border constraint needs at least one border module")
	}
	if c.Constraints.StartGoal {
		if c.Modules.Start == "" || c.Modules.Goal == "" {
			problems = append(problems, "start/goal constraint needs both modules")
		} else if c.Modules.Start == c.Modules.Goal {
			problems = append(problems, "start and goal modules must differ")
		}
		if c.Grid.Width*c.Grid.Height < 2 {
			problems = append(problems, "start/goal constraint needs at least 2 cells")
		}
	}
	if c.Database.Enabled {
		switch c.Database.Driver {
		case "sqlite":
			if c.Database.SQLitePath == "" {
				problems = append(problems, "sqlite database needs a path")
			}
		case "postgres":
			if c.Database.Postgres.Database == "" {
				problems = append(problems, "postgres database needs a database name")
			}
		default:
			problems = append(problems, fmt.Sprintf("unknown database driver %q", c.Database.Driver))
		}
	}
	if c.Viewer.Enabled && c.Viewer.Addr == "" {
		problems = append(problems, "viewer needs a listen address")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", wfc.ErrConfiguration, strings.Join(problems, "; "))
	}
	return nil
}

// ToController maps the generator settings onto a wfc.Config.
func (c *GeneratorConfig) ToController() wfc.Config {
	return wfc.Config{
		Width:          c.Grid.Width,
		Height:         c.Grid.Height,
		Seed:           c.Attempts.Seed,
		AttemptBudget:  c.Attempts.Budget,
		StopOnSuccess:  c.Attempts.StopOnSuccess,
		StartModule:    c.Modules.Start,
		GoalModule:     c.Modules.Goal,
		FallbackModule: c.Modules.Fallback,
		BorderModules:  append([]string(nil), c.Modules.Border...),
		UseBorder:      c.Constraints.Border,
		UseStartGoal:   c.Constraints.StartGoal,
	}
}

// IsOriginAllowed checks if the given origin is allowed based on the config.
// Returns true if:
// - AllowedOrigins contains "*" (allow all)
// - AllowedOrigins contains the exact origin
// - AllowedOrigins is empty and origin matches the request host (same-origin)
func (c *ViewerConfig) IsOriginAllowed(origin, requestHost string) bool {
	if len(c.AllowedOrigins) == 0 {
		return isSameOrigin(origin, requestHost)
	}

	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	return false
}

// isSameOrigin checks if the origin matches the request host.
func isSameOrigin(origin, requestHost string) bool {
	if origin == "" {
		return true // Non-browser clients send no Origin header
	}

	originHost := origin
	if idx := strings.Index(origin, "://"); idx != -1 {
		originHost = origin[idx+3:]
	}
	originHost = strings.TrimSuffix(originHost, "/")

	return originHost == requestHost
}
