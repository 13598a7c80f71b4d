package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mr1hm/go-quake-map/internal/models"

	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db *sql.DB
}

func NewSQLiteDB(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	// :memory: databases are per connection
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("error while pinging database: %w", err)
	}

	s := &SQLiteDB{
		db: db,
	}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("error while migrating to database: %w", err)
	}

	return s, nil
}

func (s *SQLiteDB) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS earthquakes (
			id TEXT PRIMARY KEY,
			magnitude REAL NOT NULL,
			place TEXT NOT NULL,
			occurred_at INTEGER NOT NULL,
			latitude REAL NOT NULL,
			longitude REAL NOT NULL,
			url TEXT,
			created_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_earthquakes_occurred_at ON earthquakes(occurred_at);
		CREATE INDEX IF NOT EXISTS idx_earthquakes_magnitude ON earthquakes(magnitude);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Add archives e unless its ID is already stored. It reports whether a row was inserted.
func (s *SQLiteDB) Add(ctx context.Context, e *models.Earthquake) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO earthquakes (id, magnitude, place, occurred_at, latitude, longitude, url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Magnitude, e.Place, e.Time.UnixMilli(), e.Latitude, e.Longitude, e.URL, e.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("error inserting earthquake %s: %w", e.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error inserting earthquake %s: %w", e.ID, err)
	}
	return n > 0, nil
}

func (s *SQLiteDB) GetByID(ctx context.Context, id string) (*models.Earthquake, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, magnitude, place, occurred_at, latitude, longitude, url, created_at
		FROM earthquakes WHERE id = ?`, id)

	e, err := scanEarthquake(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error getting earthquake %s: %w", id, err)
	}
	return &e, nil
}

// ListEarthquakes returns archived earthquakes, newest first.
func (s *SQLiteDB) ListEarthquakes(ctx context.Context, opts Filter) ([]models.Earthquake, error) {
	var (
		where []string
		args  []any
	)
	if opts.Since != nil {
		where = append(where, "occurred_at >= ?")
		args = append(args, opts.Since.UnixMilli())
	}
	if opts.MinMagnitude != nil {
		where = append(where, "magnitude >= ?")
		args = append(args, *opts.MinMagnitude)
	}

	query := `SELECT id, magnitude, place, occurred_at, latitude, longitude, url, created_at FROM earthquakes`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY occurred_at DESC, id"

	if opts.Limit > 0 {
		query += " LIMIT ? OFFSET ?"
		args = append(args, opts.Limit, opts.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing earthquakes: %w", err)
	}
	defer rows.Close()

	var quakes []models.Earthquake
	for rows.Next() {
		e, err := scanEarthquake(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning earthquake: %w", err)
		}
		quakes = append(quakes, e)
	}
	return quakes, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEarthquake(sc scanner) (models.Earthquake, error) {
	var (
		e                 models.Earthquake
		url               sql.NullString
		occurred, created int64
	)
	if err := sc.Scan(&e.ID, &e.Magnitude, &e.Place, &occurred, &e.Latitude, &e.Longitude, &url, &created); err != nil {
		return models.Earthquake{}, err
	}
	e.URL = url.String
	e.Time = time.UnixMilli(occurred)
	e.CreatedAt = time.UnixMilli(created)
	return e, nil
}

// Ping reports whether the database is reachable.
func (s *SQLiteDB) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDB) Close() error {
	return s.db.Close()
}
