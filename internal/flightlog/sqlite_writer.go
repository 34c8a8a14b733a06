package flightlog

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"ksp-autopilot/internal/telemetry"
)

const sampleSchema = `
CREATE TABLE IF NOT EXISTS flight_samples (
	flight_id        TEXT NOT NULL,
	vessel           TEXT NOT NULL,
	body             TEXT NOT NULL,
	phase            TEXT NOT NULL,
	elapsed_s        REAL NOT NULL,
	altitude         REAL NOT NULL,
	apoapsis         REAL NOT NULL,
	periapsis        REAL NOT NULL,
	vertical_speed   REAL NOT NULL,
	horizontal_speed REAL NOT NULL,
	speed            REAL NOT NULL,
	pitch            REAL NOT NULL,
	heading          REAL NOT NULL,
	fuel             REAL NOT NULL,
	oxidizer         REAL NOT NULL,
	ts               TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_flight_samples_flight ON flight_samples(flight_id, ts);
`

// SQLiteWriter archives flight samples into a local SQLite database so past
// flights can be queried and compared without parsing text logs.
type SQLiteWriter struct {
	db   *sql.DB
	stmt *sql.Stmt
}

// NewSQLiteWriter opens (creating if needed) the archive database at path.
func NewSQLiteWriter(path string) (*SQLiteWriter, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open flight archive: %w", err)
	}
	if _, err := db.Exec(sampleSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create flight_samples table: %w", err)
	}
	stmt, err := db.Prepare(`INSERT INTO flight_samples (
		flight_id, vessel, body, phase, elapsed_s,
		altitude, apoapsis, periapsis, vertical_speed, horizontal_speed,
		speed, pitch, heading, fuel, oxidizer, ts
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("prepare sample insert: %w", err)
	}
	return &SQLiteWriter{db: db, stmt: stmt}, nil
}

// WriteSample inserts a single sample.
func (w *SQLiteWriter) WriteSample(row telemetry.FlightSample) error {
	_, err := w.stmt.Exec(
		row.FlightID, row.Vessel, row.Body, row.Phase, row.ElapsedS,
		row.Altitude, row.Apoapsis, row.Periapsis, row.VerticalSpeed, row.HorizontalSpeed,
		row.Speed, row.Pitch, row.Heading, row.Fuel, row.Oxidizer, row.Timestamp,
	)
	return err
}

// WriteSamples inserts multiple samples in one transaction.
func (w *SQLiteWriter) WriteSamples(rows []telemetry.FlightSample) error {
	tx, err := w.db.Begin()
	if err != nil {
		return err
	}
	stmt := tx.Stmt(w.stmt)
	for _, row := range rows {
		if _, err := stmt.Exec(
			row.FlightID, row.Vessel, row.Body, row.Phase, row.ElapsedS,
			row.Altitude, row.Apoapsis, row.Periapsis, row.VerticalSpeed, row.HorizontalSpeed,
			row.Speed, row.Pitch, row.Heading, row.Fuel, row.Oxidizer, row.Timestamp,
		); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// Close closes the archive database.
func (w *SQLiteWriter) Close() error {
	w.stmt.Close()
	return w.db.Close()
}
