// Package postgres provides a Postgres-backed chart store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/billboard-charts/internal/chart"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// DefaultTable is used when Config.Table is empty.
const DefaultTable = "chart_entries"

// Config controls the Postgres connection pool used for chart rows.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type pool interface {
	Begin(context.Context) (pgx.Tx, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Close()
}

// EntryStore keeps every chart kind in one table keyed by (chart, chart_date, rank).
type EntryStore struct {
	pool  pool
	table string
}

// New connects to Postgres using cfg.
func New(ctx context.Context, cfg Config) (*EntryStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	table, err := tableName(cfg.Table)
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &EntryStore{pool: p, table: table}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, table string) (*EntryStore, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	name, err := tableName(table)
	if err != nil {
		return nil, err
	}
	return &EntryStore{pool: p, table: name}, nil
}

func tableName(table string) (string, error) {
	if table == "" {
		table = DefaultTable
	}
	if !validTableName.MatchString(table) {
		return "", fmt.Errorf("invalid table name %q", table)
	}
	return table, nil
}

// Close releases the underlying pool resources.
func (s *EntryStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// EnsureSchema creates the entry table when it does not exist.
func (s *EntryStore) EnsureSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
	chart          TEXT    NOT NULL,
	chart_date     DATE    NOT NULL,
	rank           INTEGER NOT NULL,
	title          TEXT    NOT NULL,
	artist         TEXT    NOT NULL,
	last_week      INTEGER,
	peak_position  INTEGER,
	weeks_on_chart INTEGER,
	PRIMARY KEY (chart, chart_date, rank)
)`, s.table)
	if _, err := s.pool.Exec(ctx, query); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// Location implements store.Backend.
func (s *EntryStore) Location(kind chart.Kind) string {
	return fmt.Sprintf("postgres:%s?chart=%s", s.table, kind)
}

// Load implements store.Backend. A kind with no rows reports chart.ErrStoreNotFound.
func (s *EntryStore) Load(ctx context.Context, kind chart.Kind) ([]chart.Entry, error) {
	query := fmt.Sprintf(`
SELECT chart_date, rank, title, artist, last_week, peak_position, weeks_on_chart
FROM %s
WHERE chart = $1
ORDER BY chart_date, rank`, s.table)

	rows, err := s.pool.Query(ctx, query, kind.String())
	if err != nil {
		return nil, fmt.Errorf("query %s entries: %w", kind, err)
	}
	defer rows.Close()

	var entries []chart.Entry
	for rows.Next() {
		var e chart.Entry
		if err := rows.Scan(&e.Date, &e.Rank, &e.Title, &e.Artist, &e.LastWeek, &e.PeakPosition, &e.WeeksOnChart); err != nil {
			return nil, fmt.Errorf("scan %s entry: %w", kind, err)
		}
		e.Date = e.Date.UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read %s entries: %w", kind, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%s: %w", s.Location(kind), chart.ErrStoreNotFound)
	}
	return entries, nil
}

// Save implements store.Backend by replacing every row of kind in one transaction.
func (s *EntryStore) Save(ctx context.Context, kind chart.Kind, entries []chart.Entry) (err error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("rollback: %w", rbErr))
			}
		}
	}()

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE chart = $1`, s.table)
	if _, err = tx.Exec(ctx, deleteQuery, kind.String()); err != nil {
		return fmt.Errorf("delete %s entries: %w", kind, err)
	}

	insertQuery := fmt.Sprintf(`
INSERT INTO %s (chart, chart_date, rank, title, artist, last_week, peak_position, weeks_on_chart)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`, s.table)
	for _, e := range entries {
		if _, err = tx.Exec(ctx, insertQuery,
			kind.String(), e.Date, e.Rank, e.Title, e.Artist,
			e.LastWeek, e.PeakPosition, e.WeeksOnChart,
		); err != nil {
			return fmt.Errorf("insert %s entry %s: %w", kind, e.Key(), err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit %s entries: %w", kind, err)
	}
	return nil
}
