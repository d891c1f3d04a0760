package store

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/Ducpm1301/ga-webcs/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS session_kv (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS session_rev (
	id       INTEGER PRIMARY KEY CHECK (id = 1),
	revision INTEGER NOT NULL
);

INSERT OR IGNORE INTO session_rev (id, revision) VALUES (1, 0);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Token(ctx context.Context) (string, error) {
	return s.get(ctx, keyToken)
}

func (s *SQLiteStore) SetToken(ctx context.Context, token string) error {
	return s.set(ctx, keyToken, token)
}

func (s *SQLiteStore) Partners(ctx context.Context) ([]model.Partner, error) {
	raw, err := s.get(ctx, keyPartners)
	if err != nil || raw == "" {
		return nil, err
	}
	var partners []model.Partner
	if err := json.Unmarshal([]byte(raw), &partners); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal partners")
	}
	return partners, nil
}

func (s *SQLiteStore) SetPartners(ctx context.Context, partners []model.Partner) error {
	raw, err := json.Marshal(partners)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal partners")
	}
	return s.set(ctx, keyPartners, string(raw))
}

func (s *SQLiteStore) SelectedPartner(ctx context.Context) (string, error) {
	return s.get(ctx, keySelectedPartner)
}

func (s *SQLiteStore) SetSelectedPartner(ctx context.Context, partnerID string) error {
	return s.set(ctx, keySelectedPartner, partnerID)
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin clear")
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM session_kv WHERE key IN (?, ?, ?)`,
		keyToken, keyPartners, keySelectedPartner,
	); err != nil {
		return eris.Wrap(err, "sqlite: clear session")
	}
	if _, err := tx.ExecContext(ctx, `UPDATE session_rev SET revision = revision + 1 WHERE id = 1`); err != nil {
		return eris.Wrap(err, "sqlite: bump revision")
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit clear")
}

func (s *SQLiteStore) Revision(ctx context.Context) (int64, error) {
	var rev int64
	err := s.db.QueryRowContext(ctx, `SELECT revision FROM session_rev WHERE id = 1`).Scan(&rev)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: read revision")
	}
	return rev, nil
}

func (s *SQLiteStore) get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM session_kv WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: get %s", key)
	}
	return value, nil
}

func (s *SQLiteStore) set(ctx context.Context, key, value string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrapf(err, "sqlite: begin set %s", key)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO session_kv (key, value, updated_at) VALUES (?, ?, datetime('now'))
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value,
	); err != nil {
		return eris.Wrapf(err, "sqlite: set %s", key)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE session_rev SET revision = revision + 1 WHERE id = 1`); err != nil {
		return eris.Wrap(err, "sqlite: bump revision")
	}
	return eris.Wrapf(tx.Commit(), "sqlite: commit set %s", key)
}
