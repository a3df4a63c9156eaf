// Package sqlite provides a SQLite implementation of the store interfaces.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/cascade-ml/cascade-ui/internal/store"
)

// Schema is the SQL schema of the snapshot database.
const Schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    request_key TEXT PRIMARY KEY,
    endpoint    TEXT NOT NULL,
    payload     BLOB NOT NULL,
    saved_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_saved_at ON snapshots(saved_at);
`

// SnapshotStore implements store.SnapshotStore on a single SQLite file.
type SnapshotStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ store.SnapshotStore = (*SnapshotStore)(nil)

// Open opens (or creates) the snapshot database at path and runs the schema.
func Open(path string, logger *slog.Logger) (*SnapshotStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)")
	if err != nil {
		return nil, fmt.Errorf("open snapshot db: %w", err)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate snapshot db: %w", err)
	}

	logger.Debug("snapshot store opened", "path", path)
	return &SnapshotStore{db: db, logger: logger}, nil
}

// Close closes the database connection.
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Put stores payload as the latest snapshot for key.
func (s *SnapshotStore) Put(ctx context.Context, key string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO snapshots (request_key, endpoint, payload, saved_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(request_key) DO UPDATE SET payload = excluded.payload, saved_at = excluded.saved_at`,
		key, endpointOf(key), payload, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("put snapshot: %w", err)
	}
	return nil
}

// Get returns the snapshot stored for key.
func (s *SnapshotStore) Get(ctx context.Context, key string) ([]byte, time.Time, bool, error) {
	var payload []byte
	var savedAt int64
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, saved_at FROM snapshots WHERE request_key = ?`, key,
	).Scan(&payload, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, fmt.Errorf("get snapshot: %w", err)
	}
	return payload, time.Unix(0, savedAt), true, nil
}

// Prune deletes snapshots saved before cutoff.
func (s *SnapshotStore) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE saved_at < ?`, cutoff.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	if n > 0 {
		s.logger.Info("pruned snapshots", "count", n, "cutoff", cutoff)
	}
	return n, nil
}

// Count returns the number of stored snapshots.
func (s *SnapshotStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count snapshots: %w", err)
	}
	return n, nil
}

// endpointOf extracts the endpoint from a request key ("METHOD /v1/x body").
func endpointOf(key string) string {
	parts := strings.SplitN(key, " ", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[1]
}
