package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"congresy/internal/domain"
)

const uniqueViolation = "23505"

// schema is applied by Migrate. Every aggregate kind shares one table keyed by (kind, id).
const schema = `
	CREATE TABLE IF NOT EXISTS documents (
		kind       TEXT        NOT NULL,
		id         TEXT        NOT NULL,
		version    BIGINT      NOT NULL,
		body       JSONB       NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		PRIMARY KEY (kind, id)
	)
`

type documentRepository struct {
	DB *sql.DB
}

// NewDocumentRepository returns a DocumentStore backed by the documents table.
func NewDocumentRepository(db *sql.DB) domain.DocumentStore {
	return &documentRepository{
		DB: db,
	}
}

// Open connects to PostgreSQL and applies the schema.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate creates the documents table if it does not exist.
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate documents: %w", err)
	}
	return nil
}

func (r *documentRepository) Get(ctx context.Context, kind domain.Kind, id string) (*domain.Document, error) {
	query := `
		SELECT version, body
		FROM documents
		WHERE kind = $1 AND id = $2
	`
	doc := &domain.Document{Kind: kind, ID: id}
	err := r.DB.QueryRowContext(ctx, query, string(kind), id).Scan(&doc.Version, &doc.Body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (r *documentRepository) Save(ctx context.Context, kind domain.Kind, id string, version int64, body []byte) (int64, error) {
	if version == 0 {
		query := `
			INSERT INTO documents (kind, id, version, body)
			VALUES ($1, $2, 1, $3)
		`
		if _, err := r.DB.ExecContext(ctx, query, string(kind), id, body); err != nil {
			var pqErr *pq.Error
			if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
				return 0, domain.ErrVersionConflict
			}
			return 0, err
		}
		return 1, nil
	}

	// A missing row and a stale version both leave zero rows; either way the caller re-reads.
	query := `
		UPDATE documents
		SET version = version + 1, body = $4, updated_at = now()
		WHERE kind = $1 AND id = $2 AND version = $3
		RETURNING version
	`
	var next int64
	err := r.DB.QueryRowContext(ctx, query, string(kind), id, version, body).Scan(&next)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, domain.ErrVersionConflict
		}
		return 0, err
	}
	return next, nil
}

func (r *documentRepository) Delete(ctx context.Context, kind domain.Kind, id string) error {
	query := `DELETE FROM documents WHERE kind = $1 AND id = $2`
	result, err := r.DB.ExecContext(ctx, query, string(kind), id)
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *documentRepository) List(ctx context.Context, kind domain.Kind) ([]*domain.Document, error) {
	query := `
		SELECT id, version, body
		FROM documents
		WHERE kind = $1
		ORDER BY id
	`
	rows, err := r.DB.QueryContext(ctx, query, string(kind))
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
