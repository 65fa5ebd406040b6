package dedup

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ppiankov/feedstream/internal/source"
	_ "modernc.org/sqlite"
)

// sqliteBusyTimeoutMS lets concurrent writers wait on the file lock instead
// of failing with SQLITE_BUSY.
const sqliteBusyTimeoutMS = 5000

// SQLite is a persistent Store backed by a local database file.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies the
// schema.
func OpenSQLite(path string) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("path is required")
	}

	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)", path, sqliteBusyTimeoutMS)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := migrateSQLite(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLite) Store(ctx context.Context, item source.Item) (bool, error) {
	if s == nil || s.db == nil {
		return false, errNotInitialized
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO seen_items(item_id, source) VALUES(?, ?)",
		item.ID, item.Source,
	)
	if err != nil {
		return false, fmt.Errorf("insert seen item %s: %w", KeyOf(item), err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func (s *SQLite) StoreAll(ctx context.Context, items []source.Item) error {
	return storeAll(ctx, s, items)
}

// Count returns the total number of recorded keys.
func (s *SQLite) Count(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errNotInitialized
	}

	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM seen_items").Scan(&n); err != nil {
		return 0, fmt.Errorf("count seen items: %w", err)
	}
	return n, nil
}

// CountBySource returns recorded keys grouped by source, ordered by source.
func (s *SQLite) CountBySource(ctx context.Context) ([]SourceCount, error) {
	if s == nil || s.db == nil {
		return nil, errNotInitialized
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source, COUNT(*)
		FROM seen_items
		GROUP BY source
		ORDER BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("count by source: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []SourceCount
	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.Source, &sc.Count); err != nil {
			return nil, fmt.Errorf("scan source count: %w", err)
		}
		counts = append(counts, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate source counts: %w", err)
	}
	return counts, nil
}

// Forget deletes every key recorded for src and returns how many were removed.
func (s *SQLite) Forget(ctx context.Context, src string) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errNotInitialized
	}

	res, err := s.db.ExecContext(ctx, "DELETE FROM seen_items WHERE source = ?", src)
	if err != nil {
		return 0, fmt.Errorf("forget %s: %w", src, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
