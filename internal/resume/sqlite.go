package resume

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"magnetctl/internal/domain"
)

const createResumeTable = `
CREATE TABLE IF NOT EXISTS resume_data (
	info_hash TEXT PRIMARY KEY,
	blob BLOB NOT NULL,
	updated_at DATETIME NOT NULL
);
`

// SQLiteStore keeps resume blobs in a single sqlite table.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) a sqlite database at path and ensures the
// resume table exists.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// the replay worker and the main loop share the handle
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(ctx, createResumeTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create resume_data table: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, id domain.Identity) ([]byte, error) {
	var blob []byte
	err := s.db.QueryRowContext(ctx, `SELECT blob FROM resume_data WHERE info_hash=?`, Key(id)).Scan(&blob)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query resume data: %w", err)
	}
	return blob, nil
}

func (s *SQLiteStore) Save(ctx context.Context, id domain.Identity, blob []byte) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO resume_data (info_hash, blob, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(info_hash) DO UPDATE SET blob=excluded.blob, updated_at=excluded.updated_at`,
		Key(id),
		blob,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("upsert resume data: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id domain.Identity) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM resume_data WHERE info_hash=?`, Key(id))
	if err != nil {
		return fmt.Errorf("delete resume data: %w", err)
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resume delete rows affected: %w", err)
	}
	if aff == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]domain.Identity, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT info_hash FROM resume_data ORDER BY updated_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query resume keys: %w", err)
	}
	defer rows.Close()

	var ids []domain.Identity
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan resume key: %w", err)
		}
		id, err := domain.ParseIdentity(key)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

var _ Store = (*SQLiteStore)(nil)
