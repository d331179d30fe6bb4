package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/lawnchairsociety/tilewfc/internal/config"
	"github.com/lawnchairsociety/tilewfc/internal/database"
	"github.com/lawnchairsociety/tilewfc/internal/levelfile"
	"github.com/lawnchairsociety/tilewfc/internal/logger"
	"github.com/lawnchairsociety/tilewfc/internal/viewer"
	"github.com/lawnchairsociety/tilewfc/internal/wfc"
)

func main() {
	code, err := run(os.Args[1:], os.Stdout)
	if err != nil {
		log.Printf("levelgen: %v", err)
	}
	os.Exit(code)
}

// run generates a level and returns the process exit status: 0 when the
// last attempt succeeded, 1 when it failed or setup went wrong, 2 on bad flags.
func run(args []string, stdout io.Writer) (int, error) {
	flags := flag.NewFlagSet("levelgen", flag.ContinueOnError)
	configFile := flags.String("config", "data/levelgen.yaml", "Path to generator config YAML file")
	loggingConfig := flags.String("logging", "data/logging.yaml", "Path to logging config YAML file")
	catalogFile := flags.String("catalog", "", "Path to module catalog YAML file (overrides config)")
	seed := flags.Int64("seed", 0, "Generation seed (0: fresh seed from the clock for every attempt)")
	width := flags.Int("width", 0, "Grid width (overrides config)")
	height := flags.Int("height", 0, "Grid height (overrides config)")
	attempts := flags.Int("attempts", 0, "Attempt budget (overrides config)")
	keepGoing := flags.Bool("all", false, "Run the whole attempt budget even after a success")
	outFile := flags.String("out", "", "Output level file (overrides config)")
	dbFile := flags.String("db", "", "Record attempts in this SQLite database")
	serveAddr := flags.String("serve", "", "Serve the live viewer on this address")
	showStats := flags.Bool("stats", false, "Print recorded attempt statistics for the catalog and exit")
	printLevel := flags.Bool("print", false, "Print the generated level to stdout")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0, nil
		}
		return 2, err
	}

	logConfig, _ := logger.LoadConfig(*loggingConfig)
	logger.Initialize(logConfig)

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		return 1, fmt.Errorf("failed to load config: %w", err)
	}

	// Only flags given on the command line override the config file
	flags.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "catalog":
			cfg.Catalog = *catalogFile
		case "seed":
			cfg.Attempts.Seed = *seed
		case "width":
			cfg.Grid.Width = *width
		case "height":
			cfg.Grid.Height = *height
		case "attempts":
			cfg.Attempts.Budget = *attempts
		case "all":
			cfg.Attempts.StopOnSuccess = !*keepGoing
		case "out":
			cfg.Output = *outFile
		case "db":
			cfg.Database.Enabled = true
			cfg.Database.Driver = "sqlite"
			cfg.Database.SQLitePath = *dbFile
		case "serve":
			cfg.Viewer.Enabled = true
			cfg.Viewer.Addr = *serveAddr
		}
	})

	if err := cfg.Validate(); err != nil {
		return 1, fmt.Errorf("invalid configuration: %w", err)
	}

	catalog, err := wfc.LoadCatalog(cfg.Catalog)
	if err != nil {
		return 1, fmt.Errorf("failed to load module catalog: %w", err)
	}
	fingerprint := catalog.Fingerprint()
	logger.Info("Module catalog loaded", "path", cfg.Catalog, "modules", catalog.Len(), "fingerprint", fingerprint)

	var db *database.Database
	if cfg.Database.Enabled {
		db, err = database.OpenWithConfig(databaseConfig(cfg.Database))
		if err != nil {
			return 1, fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
	}

	if *showStats {
		if db == nil {
			return 1, errors.New("-stats needs a database (use -db or enable it in the config)")
		}
		if err := printStats(stdout, db, fingerprint); err != nil {
			return 1, fmt.Errorf("failed to read statistics: %w", err)
		}
		return 0, nil
	}

	ctrl, err := wfc.NewController(cfg.ToController(), catalog)
	if err != nil {
		return 1, fmt.Errorf("failed to create generator: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	writer := levelfile.NewWriter(fingerprint)
	placers := wfc.InstantiationSinks{writer}
	viewports := wfc.ViewportSinks{writer}

	var hub *viewer.Hub
	if cfg.Viewer.Enabled {
		hub = viewer.NewHub(cfg.Viewer)
		placers = append(placers, hub)
		viewports = append(viewports, hub)
		go func() {
			if err := hub.ListenAndServe(ctx, cfg.Viewer.Addr); err != nil {
				logger.Error("Viewer stopped", "error", err)
			}
		}()
	}

	ctrl.SetInstantiationSink(placers)
	ctrl.SetViewportSink(viewports)
	if db != nil {
		ctrl.SetOutcomeSink(db.Recorder(fingerprint))
	}

	last, err := ctrl.Run(ctx)
	if err != nil && last == nil {
		return 1, fmt.Errorf("level generation failed: %w", err)
	}
	if err != nil {
		logger.Error("Level generation stopped early", "attempts", ctrl.Attempts(), "error", err)
	}

	writer.SetReport(last.AttemptReport)
	if err := writer.WriteFile(cfg.Output); err != nil {
		return 1, fmt.Errorf("failed to write level: %w", err)
	}
	logger.Info("Level written", "path", cfg.Output, "outcome", last.Outcome.String(), "attempts", ctrl.Attempts())

	if *printLevel {
		if err := writer.Level().Render(stdout); err != nil {
			return 1, fmt.Errorf("failed to print level: %w", err)
		}
	}

	if hub != nil && ctx.Err() == nil {
		logger.Info("Viewer still serving, press Ctrl+C to exit", "address", cfg.Viewer.Addr)
		<-ctx.Done()
	}

	if !last.Succeeded() {
		return 1, nil
	}
	return 0, nil
}

func databaseConfig(c config.DatabaseConfig) database.Config {
	if c.Driver == "postgres" {
		pg := database.DefaultPostgresConfig()
		pg.Host = c.Postgres.Host
		pg.Port = c.Postgres.Port
		pg.User = c.Postgres.User
		pg.Password = c.Postgres.Password
		pg.Database = c.Postgres.Database
		if c.Postgres.SSLMode != "" {
			pg.SSLMode = c.Postgres.SSLMode
		}
		return database.Config{Driver: c.Driver, Postgres: pg}
	}
	return database.DefaultConfig(c.SQLitePath)
}

func printStats(w io.Writer, db *database.Database, catalog string) error {
	stats, err := db.Stats(catalog)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Catalog %s\n", catalog)
	fmt.Fprintf(w, "  attempts:     %d\n", stats.Total)
	fmt.Fprintf(w, "  successes:    %d\n", stats.Successes)
	fmt.Fprintf(w, "  failures:     %d\n", stats.Failures)
	fmt.Fprintf(w, "  success rate: %.1f%%\n", stats.SuccessRate()*100)
	fmt.Fprintf(w, "  avg elapsed:  %s\n", stats.AvgElapsed)

	recent, err := db.RecentAttempts(catalog, 10)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		return nil
	}
	fmt.Fprintln(w, "Recent attempts:")
	for _, rec := range recent {
		outcome := "success"
		if !rec.Success {
			outcome = "failure: " + rec.Error
		}
		fmt.Fprintf(w, "  #%d seed=%d %dx%d %s (%s)\n", rec.Attempt, rec.Seed, rec.Width, rec.Height, outcome, rec.Elapsed)
	}
	return nil
}
