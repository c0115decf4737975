package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/ignite/ga-deep-dive/internal/domain"
)

// LocalStore keeps one JSON file per property, date and window length:
// <dir>/<property>_<date>_<days>d.json. A second save for the same key
// replaces the first.
type LocalStore struct {
	dir string
	mu  sync.RWMutex
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalStore{dir: dir}, nil
}

// fileKey names one stored snapshot.
type fileKey struct {
	date string
	days int
}

func (s *LocalStore) path(propertyID string, k fileKey) string {
	name := fmt.Sprintf("%s_%s_%dd.json", filepath.Base(propertyID), k.date, k.days)
	return filepath.Join(s.dir, name)
}

// Save writes the snapshot through a temp file and rename.
func (s *LocalStore) Save(_ context.Context, snap *domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling snapshot: %w", err)
	}
	path := s.path(snap.PropertyID, fileKey{date: snap.Date, days: snap.Days})
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// Latest returns the newest snapshot file for the property.
func (s *LocalStore) Latest(_ context.Context, propertyID string) (*domain.Snapshot, error) {
	return s.newestBefore(propertyID, -1, "")
}

// Previous returns the newest days-long snapshot dated before before.
func (s *LocalStore) Previous(_ context.Context, propertyID string, days int, before string) (*domain.Snapshot, error) {
	return s.newestBefore(propertyID, days, before)
}

// newestBefore scans newest first. days < 0 matches any window and an
// empty before matches any date.
func (s *LocalStore) newestBefore(propertyID string, days int, before string) (*domain.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys, err := s.keys(propertyID)
	if err != nil {
		return nil, err
	}
	for i := len(keys) - 1; i >= 0; i-- {
		k := keys[i]
		if days >= 0 && k.days != days {
			continue
		}
		if before != "" && k.date >= before {
			continue
		}
		return s.load(propertyID, k)
	}
	return nil, notFound(propertyID)
}

// keys lists stored snapshots for a property ordered by date, then window.
func (s *LocalStore) keys(propertyID string) ([]fileKey, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading storage directory: %w", err)
	}
	prefix := filepath.Base(propertyID) + "_"
	var out []fileKey
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, prefix) || filepath.Ext(name) != ".json" {
			continue
		}
		if k, ok := parseFileKey(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".json")); ok {
			out = append(out, k)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].date != out[j].date {
			return out[i].date < out[j].date
		}
		return out[i].days < out[j].days
	})
	return out, nil
}

// parseFileKey reads "<date>_<days>d".
func parseFileKey(s string) (fileKey, bool) {
	date, rest, ok := strings.Cut(s, "_")
	if !ok || len(date) != len(dateLayout) || !strings.HasSuffix(rest, "d") {
		return fileKey{}, false
	}
	days, err := strconv.Atoi(strings.TrimSuffix(rest, "d"))
	if err != nil || days < 0 {
		return fileKey{}, false
	}
	return fileKey{date: date, days: days}, true
}

func (s *LocalStore) load(propertyID string, k fileKey) (*domain.Snapshot, error) {
	file, err := os.Open(s.path(propertyID, k))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var snap domain.Snapshot
	if err := json.NewDecoder(file).Decode(&snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot %s: %w", file.Name(), err)
	}
	return &snap, nil
}
