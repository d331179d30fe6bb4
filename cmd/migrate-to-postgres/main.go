// migrate-to-postgres copies recorded generation attempts from SQLite to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/levelgen.db \
//	    -pg-host localhost \
//	    -pg-user tilewfc \
//	    -pg-password tilewfc \
//	    -pg-database tilewfc
package main

import (
	"flag"
	"log"

	"github.com/lawnchairsociety/tilewfc/internal/database"
)

func main() {
	sqlitePath := flag.String("sqlite", "data/levelgen.db", "Path to SQLite database")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "tilewfc", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "tilewfc", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", "tilewfc", "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", "disable", "PostgreSQL SSL mode")
	dryRun := flag.Bool("dry-run", false, "Count the attempts without copying them")
	flag.Parse()

	log.Println("SQLite to PostgreSQL Migration Tool")
	log.Println("====================================")

	log.Printf("Opening SQLite database: %s", *sqlitePath)
	src, err := database.Open(*sqlitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite database: %v", err)
	}
	defer src.Close()

	var dst *database.Database
	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
	} else {
		pg := database.DefaultPostgresConfig()
		pg.Host = *pgHost
		pg.Port = *pgPort
		pg.User = *pgUser
		pg.Password = *pgPassword
		pg.Database = *pgDatabase
		pg.SSLMode = *pgSSLMode

		log.Printf("Opening PostgreSQL database: %s@%s:%d/%s", *pgUser, *pgHost, *pgPort, *pgDatabase)
		dst, err = database.OpenWithConfig(database.Config{Driver: string(database.DialectPostgres), Postgres: pg})
		if err != nil {
			log.Fatalf("Failed to open PostgreSQL database: %v", err)
		}
		defer dst.Close()
	}

	var total int64
	err = src.EachAttempt(func(rec *database.AttemptRecord) error {
		total++
		if dst == nil {
			return nil
		}
		return dst.ImportAttempt(rec)
	})
	if err != nil {
		log.Fatalf("Failed to migrate attempts after %d rows: %v", total, err)
	}

	log.Println("====================================")
	log.Printf("Migration complete! Total attempts migrated: %d", total)
	if *dryRun {
		log.Println("(DRY RUN - No actual changes were made)")
	}
}
