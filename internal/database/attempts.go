package database

import (
	"time"

	"github.com/lawnchairsociety/tilewfc/internal/wfc"
)

// AttemptRecord is one stored generation attempt.
type AttemptRecord struct {
	ID        int64
	Catalog   string
	Attempt   int
	Seed      int64
	Width     int
	Height    int
	Success   bool
	Error     string
	Elapsed   time.Duration
	CreatedAt time.Time
}

// AttemptStats aggregates the stored attempts of one catalog.
type AttemptStats struct {
	Total      int
	Successes  int
	Failures   int
	AvgElapsed time.Duration
}

// SuccessRate returns the fraction of successful attempts, 0 when none ran.
func (s AttemptStats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Successes) / float64(s.Total)
}

// RecordAttempt stores an attempt report under the given catalog key and
// returns the new row id.
func (d *Database) RecordAttempt(catalog string, r wfc.AttemptReport) (int64, error) {
	errText := ""
	if r.Err != nil {
		errText = r.Err.Error()
	}
	success := 0
	if r.Outcome == wfc.OutcomeSuccess {
		success = 1
	}

	query := d.qb.BuildWithReturning(`
		INSERT INTO attempts (catalog, attempt, seed, width, height, success, error, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, "id")
	args := []any{catalog, r.Attempt, r.Seed, r.Width, r.Height, success, errText,
		r.Elapsed.Milliseconds(), time.Now().UTC()}

	if !d.dialect.SupportsLastInsertID() {
		var id int64
		if err := d.db.QueryRow(query, args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := d.db.Exec(query, args...)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Stats returns the aggregate outcome of every attempt stored for catalog.
func (d *Database) Stats(catalog string) (*AttemptStats, error) {
	var stats AttemptStats
	var avgMs float64

	err := d.db.QueryRow(d.qb.Build(`
		SELECT COUNT(*), COALESCE(SUM(success), 0), COALESCE(AVG(elapsed_ms), 0)
		FROM attempts
		WHERE catalog = ?
	`), catalog).Scan(&stats.Total, &stats.Successes, &avgMs)
	if err != nil {
		return nil, err
	}

	stats.Failures = stats.Total - stats.Successes
	stats.AvgElapsed = time.Duration(avgMs * float64(time.Millisecond))
	return &stats, nil
}

// RecentAttempts returns up to limit attempts for catalog, newest first.
func (d *Database) RecentAttempts(catalog string, limit int) ([]*AttemptRecord, error) {
	rows, err := d.db.Query(d.qb.Build(`
		SELECT id, catalog, attempt, seed, width, height, success, error, elapsed_ms, created_at
		FROM attempts
		WHERE catalog = ?
		ORDER BY id DESC
		LIMIT ?
	`), catalog, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*AttemptRecord
	for rows.Next() {
		rec, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// AttemptRecorder stores every attempt of a controller under one catalog key.
type AttemptRecorder struct {
	db      *Database
	catalog string
}

// Recorder returns a wfc.OutcomeSink writing to this database.
func (d *Database) Recorder(catalog string) *AttemptRecorder {
	return &AttemptRecorder{db: d, catalog: catalog}
}

// RecordAttempt implements wfc.OutcomeSink.
func (r *AttemptRecorder) RecordAttempt(report wfc.AttemptReport) error {
	_, err := r.db.RecordAttempt(r.catalog, report)
	return err
}

// EachAttempt calls fn for every stored attempt in id order
func (d *Database) EachAttempt(fn func(*AttemptRecord) error) error {
	rows, err := d.db.Query(`
		SELECT id, catalog, attempt, seed, width, height, success, error, elapsed_ms, created_at
		FROM attempts
		ORDER BY id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanAttempt(rows)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// ImportAttempt stores a record copied from another database, keeping its
// creation time. The id is assigned by this database.
func (d *Database) ImportAttempt(rec *AttemptRecord) error {
	success := 0
	if rec.Success {
		success = 1
	}
	_, err := d.db.Exec(d.qb.Build(`
		INSERT INTO attempts (catalog, attempt, seed, width, height, success, error, elapsed_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), rec.Catalog, rec.Attempt, rec.Seed, rec.Width, rec.Height, success, rec.Error,
		rec.Elapsed.Milliseconds(), rec.CreatedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttempt(row rowScanner) (*AttemptRecord, error) {
	rec := &AttemptRecord{}
	var success int
	var elapsedMs int64
	if err := row.Scan(&rec.ID, &rec.Catalog, &rec.Attempt, &rec.Seed, &rec.Width, &rec.Height,
		&success, &rec.Error, &elapsedMs, &rec.CreatedAt); err != nil {
		return nil, err
	}
	rec.Success = success == 1
	rec.Elapsed = time.Duration(elapsedMs) * time.Millisecond
	return rec, nil
}
