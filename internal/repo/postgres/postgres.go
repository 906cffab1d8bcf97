package postgres

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"github.com/hamed0406/uptimewatch/internal/domain"
	"github.com/hamed0406/uptimewatch/internal/repo"
)

var _ repo.Store = (*Store)(nil)

//go:embed migrations/*.sql
var migrations embed.FS

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

// New connects, pings and applies pending migrations.
func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	s := &Store{pool: pool, log: log}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(s.pool)
	defer db.Close()
	goose.SetBaseFS(migrations)
	goose.SetLogger(zap.NewStdLog(s.log.Named("goose")))
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// ---- ServiceStore ----

func (s *Store) LoadServices(ctx context.Context) ([]domain.ServiceSpec, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT name, url, timeout_ms, expected_status
		   FROM services
		  ORDER BY position, name`)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	out := []domain.ServiceSpec{}
	for rows.Next() {
		var sp domain.ServiceSpec
		if err := rows.Scan(&sp.Name, &sp.URL, &sp.TimeoutMs, &sp.ExpectedStatusCode); err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, sp)
	}
	return out, rows.Err()
}

func (s *Store) SaveServices(ctx context.Context, specs []domain.ServiceSpec) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM services`); err != nil {
		return fmt.Errorf("clear services: %w", err)
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"services"},
		[]string{"name", "position", "url", "timeout_ms", "expected_status"},
		pgx.CopyFromSlice(len(specs), func(i int) ([]any, error) {
			sp := specs[i]
			return []any{sp.Name, i, sp.URL, sp.TimeoutMs, sp.ExpectedStatusCode}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("insert services: %w", err)
	}
	return tx.Commit(ctx)
}

// ---- HistoryStore ----

func (s *Store) LoadHistory(ctx context.Context, name string) ([]domain.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT observed_at, status, status_code, response_time_ms, error
		   FROM history
		  WHERE service = $1
		  ORDER BY observed_at, id`, name)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	out := []domain.HistoryEntry{}
	for rows.Next() {
		var (
			e      domain.HistoryEntry
			status string
			code   *int32
		)
		if err := rows.Scan(&e.Timestamp, &status, &code, &e.ResponseTimeMs, &e.Error); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Status = domain.Status(status)
		if code != nil {
			v := int(*code)
			e.StatusCode = &v
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// SaveHistory replaces the stored sequence in one transaction.
func (s *Store) SaveHistory(ctx context.Context, name string, entries []domain.HistoryEntry) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM history WHERE service = $1`, name); err != nil {
		return fmt.Errorf("clear history: %w", err)
	}
	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"history"},
		[]string{"service", "observed_at", "status", "status_code", "response_time_ms", "error"},
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			return []any{name, e.Timestamp, string(e.Status), e.StatusCode, e.ResponseTimeMs, e.Error}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return tx.Commit(ctx)
}

func (s *Store) DeleteHistory(ctx context.Context, name string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM history WHERE service = $1`, name); err != nil {
		return fmt.Errorf("delete history: %w", err)
	}
	return nil
}

// ---- ConfigStore ----

func (s *Store) LoadNotificationConfig(ctx context.Context) (domain.NotificationConfig, error) {
	var (
		cfg domain.NotificationConfig
		raw []byte
	)
	err := s.pool.QueryRow(ctx, `SELECT doc FROM notification_config WHERE id = 1`).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("load notification config: %w", err)
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse notification config: %w", err)
	}
	return cfg, nil
}

func (s *Store) SaveNotificationConfig(ctx context.Context, cfg domain.NotificationConfig) error {
	raw, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode notification config: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO notification_config (id, doc) VALUES (1, $1)
		 ON CONFLICT (id) DO UPDATE SET doc = EXCLUDED.doc`, raw)
	if err != nil {
		return fmt.Errorf("save notification config: %w", err)
	}
	return nil
}
