package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const pgUniqueViolation = "23505"

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, title, original_blob_key, current_blob_key, current_edit_number, created_at, last_modified)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, title, original_blob_key, current_blob_key, current_edit_number, created_at, last_modified
	`
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Title,
		doc.OriginalBlobKey,
		doc.CurrentBlobKey,
		doc.CurrentEditNumber,
		doc.CreatedAt,
		doc.LastModified,
	)
	out, err := scanDocument(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("create document %s: %w", doc.ID, repository.ErrConflict)
		}
		return nil, err
	}
	return out, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `
		SELECT id, title, original_blob_key, current_blob_key, current_edit_number, created_at, last_modified
		FROM documents
		WHERE id = $1
	`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return d, nil
}

// UpdateIfEditNumber is a compare-and-swap on current_edit_number.
// Exactly one of any set of concurrent callers passing the same expected value can succeed.
func (r *DocumentPostgres) UpdateIfEditNumber(ctx context.Context, id string, expected int, upd model.DocumentUpdate) (bool, error) {
	const q = `
		UPDATE documents
		SET current_blob_key = $1, current_edit_number = $2, last_modified = $3
		WHERE id = $4 AND current_edit_number = $5
	`
	res, err := r.db.ExecContext(ctx, q,
		upd.CurrentBlobKey,
		upd.CurrentEditNumber,
		upd.LastModified,
		id,
		expected,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.Title,
		&d.OriginalBlobKey,
		&d.CurrentBlobKey,
		&d.CurrentEditNumber,
		&d.CreatedAt,
		&d.LastModified,
	); err != nil {
		return nil, err
	}
	return &d, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
