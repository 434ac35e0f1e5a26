package tabular

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresConfig describes how the store initialises its Postgres connection
// pool.
type PostgresConfig struct {
	DSN                 string
	MaxConnections      int32
	MinConnections      int32
	MaxConnLifetime     time.Duration
	MaxConnIdleTime     time.Duration
	HealthCheckInterval time.Duration
	ConnectTimeout      time.Duration
	ApplicationName     string
}

// PostgresOption mutates Postgres store configuration.
type PostgresOption func(*PostgresConfig)

// WithPostgresPoolLimits bounds the connection pool size.
func WithPostgresPoolLimits(maxConns, minConns int32) PostgresOption {
	return func(cfg *PostgresConfig) {
		if maxConns > 0 {
			cfg.MaxConnections = maxConns
		}
		if minConns >= 0 {
			cfg.MinConnections = minConns
		}
	}
}

// WithPostgresPoolDurations configures connection lifetime, idle time, and
// health check cadence for the pool.
func WithPostgresPoolDurations(maxLifetime, maxIdle, healthInterval time.Duration) PostgresOption {
	return func(cfg *PostgresConfig) {
		if maxLifetime > 0 {
			cfg.MaxConnLifetime = maxLifetime
		}
		if maxIdle > 0 {
			cfg.MaxConnIdleTime = maxIdle
		}
		if healthInterval > 0 {
			cfg.HealthCheckInterval = healthInterval
		}
	}
}

// WithPostgresConnectTimeout bounds how long establishing a new connection
// may take.
func WithPostgresConnectTimeout(timeout time.Duration) PostgresOption {
	return func(cfg *PostgresConfig) {
		if timeout > 0 {
			cfg.ConnectTimeout = timeout
		}
	}
}

// WithPostgresApplicationName sets the application_name reported to Postgres.
func WithPostgresApplicationName(name string) PostgresOption {
	return func(cfg *PostgresConfig) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			cfg.ApplicationName = trimmed
		}
	}
}

// PostgresStore is a Store backed by two relations: sheets(name, header) and
// sheet_rows(sheet, position, cells). Positions are the same 1-based row
// indices the API exposes, with the header held on the sheets relation, so
// data rows occupy positions >= 2. Deletes renumber later positions inside
// the same transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore opens a Postgres-backed sheet store and ensures its schema
// exists.
func NewPostgresStore(ctx context.Context, dsn string, opts ...PostgresOption) (*PostgresStore, error) {
	cfg := PostgresConfig{DSN: dsn}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn required")
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if cfg.MaxConnections > 0 {
		poolCfg.MaxConns = cfg.MaxConnections
	}
	if cfg.MinConnections >= 0 {
		poolCfg.MinConns = cfg.MinConnections
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolCfg.MaxConnIdleTime = cfg.MaxConnIdleTime
	}
	if cfg.HealthCheckInterval > 0 {
		poolCfg.HealthCheckPeriod = cfg.HealthCheckInterval
	}
	if cfg.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = cfg.ConnectTimeout
	}
	if cfg.ApplicationName != "" {
		if poolCfg.ConnConfig.RuntimeParams == nil {
			poolCfg.ConnConfig.RuntimeParams = make(map[string]string)
		}
		poolCfg.ConnConfig.RuntimeParams["application_name"] = cfg.ApplicationName
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	store := &PostgresStore{pool: pool}
	if err := store.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

func (s *PostgresStore) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sheets (
			name   text PRIMARY KEY,
			header jsonb NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS sheet_rows (
			sheet    text NOT NULL REFERENCES sheets(name) ON DELETE CASCADE,
			position integer NOT NULL,
			cells    jsonb NOT NULL,
			PRIMARY KEY (sheet, position)
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply sheet schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying connection pool, bounded by ctx.
func (s *PostgresStore) Close(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	done := make(chan struct{})
	go func() {
		s.pool.Close()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) EnsureSheet(ctx context.Context, name string, header []string) error {
	encoded, err := encodeCells(header)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO sheets (name, header) VALUES ($1, $2) ON CONFLICT (name) DO NOTHING`,
		name, encoded)
	if err != nil {
		return fmt.Errorf("ensure sheet %q: %w", name, err)
	}
	return nil
}

func (s *PostgresStore) Rows(ctx context.Context, name string) ([][]string, error) {
	header, err := s.header(ctx, s.pool, name)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx,
		`SELECT cells FROM sheet_rows WHERE sheet = $1 ORDER BY position`, name)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	defer rows.Close()

	result := [][]string{header}
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan sheet %q row: %w", name, err)
		}
		cells, err := decodeCells(raw)
		if err != nil {
			return nil, fmt.Errorf("decode sheet %q row: %w", name, err)
		}
		result = append(result, cells)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", name, err)
	}
	return result, nil
}

func (s *PostgresStore) AppendRow(ctx context.Context, name string, row []string) error {
	encoded, err := encodeCells(row)
	if err != nil {
		return err
	}
	return s.inSheetTx(ctx, name, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO sheet_rows (sheet, position, cells)
			 SELECT $1, COALESCE(MAX(position), 1) + 1, $2
			 FROM sheet_rows WHERE sheet = $1`,
			name, encoded)
		if err != nil {
			return fmt.Errorf("append to sheet %q: %w", name, err)
		}
		return nil
	})
}

func (s *PostgresStore) UpdateRow(ctx context.Context, name string, index int, row []string) error {
	if index < 2 {
		return fmt.Errorf("row %d: %w", index, ErrRowOutOfRange)
	}
	encoded, err := encodeCells(row)
	if err != nil {
		return err
	}
	return s.inSheetTx(ctx, name, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE sheet_rows SET cells = $3 WHERE sheet = $1 AND position = $2`,
			name, index, encoded)
		if err != nil {
			return fmt.Errorf("update sheet %q row %d: %w", name, index, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("row %d: %w", index, ErrRowOutOfRange)
		}
		return nil
	})
}

func (s *PostgresStore) DeleteRow(ctx context.Context, name string, index int) error {
	if index < 2 {
		return fmt.Errorf("row %d: %w", index, ErrRowOutOfRange)
	}
	return s.inSheetTx(ctx, name, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`DELETE FROM sheet_rows WHERE sheet = $1 AND position = $2`,
			name, index)
		if err != nil {
			return fmt.Errorf("delete sheet %q row %d: %w", name, index, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("row %d: %w", index, ErrRowOutOfRange)
		}
		_, err = tx.Exec(ctx,
			`UPDATE sheet_rows SET position = position - 1 WHERE sheet = $1 AND position > $2`,
			name, index)
		if err != nil {
			return fmt.Errorf("renumber sheet %q rows: %w", name, err)
		}
		return nil
	})
}

// inSheetTx runs fn inside a transaction that holds the sheet's row in the
// sheets relation FOR UPDATE. That lock serialises append/update/delete for a
// single sheet across every connection, keeping positional indices coherent.
func (s *PostgresStore) inSheetTx(ctx context.Context, name string, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin sheet %q mutation: %w", name, err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var locked string
	err = tx.QueryRow(ctx,
		`SELECT name FROM sheets WHERE name = $1 FOR UPDATE`, name).Scan(&locked)
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("sheet %q: %w", name, ErrSheetNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock sheet %q: %w", name, err)
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit sheet %q mutation: %w", name, err)
	}
	return nil
}

type pgQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (s *PostgresStore) header(ctx context.Context, q pgQuerier, name string) ([]string, error) {
	var raw []byte
	err := q.QueryRow(ctx, `SELECT header FROM sheets WHERE name = $1`, name).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("sheet %q: %w", name, ErrSheetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read sheet %q header: %w", name, err)
	}
	return decodeCells(raw)
}

func encodeCells(cells []string) (string, error) {
	if cells == nil {
		cells = []string{}
	}
	encoded, err := json.Marshal(cells)
	if err != nil {
		return "", fmt.Errorf("encode row: %w", err)
	}
	return string(encoded), nil
}

func decodeCells(raw []byte) ([]string, error) {
	var cells []string
	if err := json.Unmarshal(raw, &cells); err != nil {
		return nil, err
	}
	return cells, nil
}

var _ Store = (*PostgresStore)(nil)
