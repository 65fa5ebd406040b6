package dedup

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ppiankov/feedstream/internal/source"
)

// Postgres is a persistent Store shared through a PostgreSQL database.
type Postgres struct {
	pool *pgxpool.Pool
}

// OpenPostgres connects to dsn, verifies the connection and applies the schema.
func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("dsn is required")
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := migratePostgres(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	return &Postgres{pool: pool}, nil
}

func migratePostgres(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	_, err := pool.Exec(ctx,
		"INSERT INTO metadata(key, value) VALUES('schema_version', $1) ON CONFLICT (key) DO NOTHING",
		strconv.Itoa(schemaVersion),
	)
	if err != nil {
		return fmt.Errorf("insert schema version: %w", err)
	}

	var versionStr string
	err = pool.QueryRow(ctx, "SELECT value FROM metadata WHERE key = 'schema_version'").Scan(&versionStr)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	return checkVersion(versionStr)
}

func (p *Postgres) Close() error {
	if p != nil && p.pool != nil {
		p.pool.Close()
	}
	return nil
}

func (p *Postgres) Store(ctx context.Context, item source.Item) (bool, error) {
	if p == nil || p.pool == nil {
		return false, errNotInitialized
	}

	ct, err := p.pool.Exec(ctx,
		"INSERT INTO seen_items(item_id, source) VALUES($1, $2) ON CONFLICT (item_id, source) DO NOTHING",
		item.ID, item.Source,
	)
	if err != nil {
		return false, fmt.Errorf("insert seen item %s: %w", KeyOf(item), err)
	}
	return ct.RowsAffected() == 1, nil
}

// StoreAll issues one statement per item so a failure leaves the earlier
// inserts committed.
func (p *Postgres) StoreAll(ctx context.Context, items []source.Item) error {
	return storeAll(ctx, p, items)
}

// Count returns the total number of recorded keys.
func (p *Postgres) Count(ctx context.Context) (int64, error) {
	if p == nil || p.pool == nil {
		return 0, errNotInitialized
	}

	var n int64
	if err := p.pool.QueryRow(ctx, "SELECT COUNT(*) FROM seen_items").Scan(&n); err != nil {
		return 0, fmt.Errorf("count seen items: %w", err)
	}
	return n, nil
}

// CountBySource returns recorded keys grouped by source, ordered by source.
func (p *Postgres) CountBySource(ctx context.Context) ([]SourceCount, error) {
	if p == nil || p.pool == nil {
		return nil, errNotInitialized
	}

	rows, err := p.pool.Query(ctx, `
		SELECT source, COUNT(*)
		FROM seen_items
		GROUP BY source
		ORDER BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("count by source: %w", err)
	}

	counts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (SourceCount, error) {
		var sc SourceCount
		err := row.Scan(&sc.Source, &sc.Count)
		return sc, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan source counts: %w", err)
	}
	return counts, nil
}

// Forget deletes every key recorded for src and returns how many were removed.
func (p *Postgres) Forget(ctx context.Context, src string) (int64, error) {
	if p == nil || p.pool == nil {
		return 0, errNotInitialized
	}

	ct, err := p.pool.Exec(ctx, "DELETE FROM seen_items WHERE source = $1", src)
	if err != nil {
		return 0, fmt.Errorf("forget %s: %w", src, err)
	}
	return ct.RowsAffected(), nil
}
