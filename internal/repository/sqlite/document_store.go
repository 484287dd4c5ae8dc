// Package sqlite provides a single-file document store for one-node deployments.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"congresy/internal/domain"
)

const schema = `
	CREATE TABLE IF NOT EXISTS documents (
		kind       TEXT    NOT NULL,
		id         TEXT    NOT NULL,
		version    INTEGER NOT NULL,
		body       BLOB    NOT NULL,
		updated_at TEXT    NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (kind, id)
	)
`

// Store is a DocumentStore kept in a SQLite database file.
type Store struct {
	sqlDB *sql.DB
}

// Open opens the SQLite database at path and creates the documents table.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps CAS updates serialized without SQLITE_BUSY retries.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.ExecContext(ctx, schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate documents: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *Store) Get(ctx context.Context, kind domain.Kind, id string) (*domain.Document, error) {
	doc := &domain.Document{Kind: kind, ID: id}
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT version, body FROM documents WHERE kind = ? AND id = ?`,
		string(kind), id,
	).Scan(&doc.Version, &doc.Body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *Store) Save(ctx context.Context, kind domain.Kind, id string, version int64, body []byte) (int64, error) {
	if version == 0 {
		result, err := s.sqlDB.ExecContext(ctx,
			`INSERT INTO documents (kind, id, version, body) VALUES (?, ?, 1, ?) ON CONFLICT (kind, id) DO NOTHING`,
			string(kind), id, body,
		)
		if err != nil {
			return 0, err
		}
		if rows, _ := result.RowsAffected(); rows == 0 {
			return 0, domain.ErrVersionConflict
		}
		return 1, nil
	}

	result, err := s.sqlDB.ExecContext(ctx,
		`UPDATE documents
		SET version = version + 1, body = ?, updated_at = CURRENT_TIMESTAMP
		WHERE kind = ? AND id = ? AND version = ?`,
		body, string(kind), id, version,
	)
	if err != nil {
		return 0, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return 0, domain.ErrVersionConflict
	}
	return version + 1, nil
}

func (s *Store) Delete(ctx context.Context, kind domain.Kind, id string) error {
	result, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM documents WHERE kind = ? AND id = ?`,
		string(kind), id,
	)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) List(ctx context.Context, kind domain.Kind) ([]*domain.Document, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, version, body FROM documents WHERE kind = ? ORDER BY id`,
		string(kind),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]*domain.Document, 0)
	for rows.Next() {
		doc := &domain.Document{Kind: kind}
		if err := rows.Scan(&doc.ID, &doc.Version, &doc.Body); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

var _ domain.DocumentStore = (*Store)(nil)
