// Package storage persists run snapshots so later runs can compare
// themselves with earlier ones.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ignite/ga-deep-dive/internal/config"
	"github.com/ignite/ga-deep-dive/internal/domain"
)

// dateLayout is the snapshot date format; it sorts lexically.
const dateLayout = "2006-01-02"

// SnapshotStore saves and looks up snapshots by property. Snapshots are
// keyed by property, window length and date, so runs over different
// windows on the same day are kept apart. Lookups that match nothing
// return domain.ErrNotFound.
type SnapshotStore interface {
	Save(ctx context.Context, snap *domain.Snapshot) error
	// Latest returns the most recent snapshot for a property, whatever
	// its window.
	Latest(ctx context.Context, propertyID string) (*domain.Snapshot, error)
	// Previous returns the most recent snapshot over a days-long window
	// dated strictly before before (YYYY-MM-DD).
	Previous(ctx context.Context, propertyID string, days int, before string) (*domain.Snapshot, error)
}

// New opens the store named by cfg.Type. db is used by the postgres store
// and may be nil otherwise. Type "none" returns a nil store.
func New(ctx context.Context, cfg config.StorageConfig, db *sql.DB) (SnapshotStore, error) {
	switch cfg.Type {
	case "", "local":
		return NewLocalStore(cfg.LocalPath)
	case "aws":
		store, err := NewAWSStore(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("initializing AWS storage: %w", err)
		}
		return store, nil
	case "postgres":
		if db == nil {
			return nil, fmt.Errorf("postgres storage needs database_url")
		}
		store := NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "none":
		return nil, nil
	}
	return nil, fmt.Errorf("unknown storage type %q", cfg.Type)
}

func notFound(propertyID string) error {
	return fmt.Errorf("snapshot for property %s: %w", propertyID, domain.ErrNotFound)
}
