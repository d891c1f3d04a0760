package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/Ducpm1301/ga-webcs/internal/model"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock
// implements it for unit tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	pgxCfg.MaxConns = 5
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS session_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS session_rev (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	revision BIGINT NOT NULL
);

INSERT INTO session_rev (id, revision) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Token(ctx context.Context) (string, error) {
	return s.get(ctx, keyToken)
}

func (s *PostgresStore) SetToken(ctx context.Context, token string) error {
	return s.set(ctx, keyToken, token)
}

func (s *PostgresStore) Partners(ctx context.Context) ([]model.Partner, error) {
	raw, err := s.get(ctx, keyPartners)
	if err != nil || raw == "" {
		return nil, err
	}
	var partners []model.Partner
	if err := json.Unmarshal([]byte(raw), &partners); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal partners")
	}
	return partners, nil
}

func (s *PostgresStore) SetPartners(ctx context.Context, partners []model.Partner) error {
	raw, err := json.Marshal(partners)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal partners")
	}
	return s.set(ctx, keyPartners, string(raw))
}

func (s *PostgresStore) SelectedPartner(ctx context.Context) (string, error) {
	return s.get(ctx, keySelectedPartner)
}

func (s *PostgresStore) SetSelectedPartner(ctx context.Context, partnerID string) error {
	return s.set(ctx, keySelectedPartner, partnerID)
}

func (s *PostgresStore) Clear(ctx context.Context) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin clear")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`DELETE FROM session_kv WHERE key IN ($1, $2, $3)`,
		keyToken, keyPartners, keySelectedPartner,
	); err != nil {
		return eris.Wrap(err, "postgres: clear session")
	}
	if _, err := tx.Exec(ctx, `UPDATE session_rev SET revision = revision + 1 WHERE id = 1`); err != nil {
		return eris.Wrap(err, "postgres: bump revision")
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit clear")
}

func (s *PostgresStore) Revision(ctx context.Context) (int64, error) {
	var rev int64
	err := s.pool.QueryRow(ctx, `SELECT revision FROM session_rev WHERE id = 1`).Scan(&rev)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrap(err, "postgres: read revision")
	}
	return rev, nil
}

func (s *PostgresStore) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.pool.QueryRow(ctx, `SELECT value FROM session_kv WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "postgres: get %s", key)
	}
	return value, nil
}

func (s *PostgresStore) set(ctx context.Context, key, value string) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrapf(err, "postgres: begin set %s", key)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if _, err := tx.Exec(ctx,
		`INSERT INTO session_kv (key, value, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`,
		key, value,
	); err != nil {
		return eris.Wrapf(err, "postgres: set %s", key)
	}
	if _, err := tx.Exec(ctx, `UPDATE session_rev SET revision = revision + 1 WHERE id = 1`); err != nil {
		return eris.Wrap(err, "postgres: bump revision")
	}
	return eris.Wrapf(tx.Commit(ctx), "postgres: commit set %s", key)
}
