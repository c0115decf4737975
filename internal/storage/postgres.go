package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/ignite/ga-deep-dive/internal/domain"
)

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS ga_snapshots (
	id           TEXT PRIMARY KEY,
	property_id  TEXT NOT NULL,
	date         DATE NOT NULL,
	days         INTEGER NOT NULL,
	body         JSONB NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL,
	UNIQUE (property_id, date, days)
)`

// PostgresStore keeps snapshots in the ga_snapshots table.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres opens a pooled connection to url.
func OpenPostgres(url string) (*sql.DB, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	db.SetMaxOpenConns(4)
	return db, nil
}

// NewPostgresStore wraps db.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// EnsureSchema creates the table when missing.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, snapshotSchema); err != nil {
		return fmt.Errorf("creating ga_snapshots: %w", err)
	}
	return nil
}

// Save upserts on (property_id, date, days).
func (s *PostgresStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	body, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO ga_snapshots (id, property_id, date, days, body, generated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (property_id, date, days)
		DO UPDATE SET id = EXCLUDED.id, body = EXCLUDED.body, generated_at = EXCLUDED.generated_at`,
		snap.ID, snap.PropertyID, snap.Date, snap.Days, body, snap.GeneratedAt)
	if err != nil {
		return fmt.Errorf("saving snapshot: %w", err)
	}
	return nil
}

// Latest returns the newest snapshot for the property.
func (s *PostgresStore) Latest(ctx context.Context, propertyID string) (*domain.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT body FROM ga_snapshots WHERE property_id = $1 ORDER BY date DESC, generated_at DESC LIMIT 1`,
		propertyID)
	return scanSnapshot(row, propertyID)
}

// Previous returns the newest days-long snapshot dated before before.
func (s *PostgresStore) Previous(ctx context.Context, propertyID string, days int, before string) (*domain.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT body FROM ga_snapshots WHERE property_id = $1 AND days = $2 AND date < $3 ORDER BY date DESC LIMIT 1`,
		propertyID, days, before)
	return scanSnapshot(row, propertyID)
}

func scanSnapshot(row *sql.Row, propertyID string) (*domain.Snapshot, error) {
	var body []byte
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notFound(propertyID)
		}
		return nil, fmt.Errorf("loading snapshot: %w", err)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	return &snap, nil
}
