package postgres

import (
	"context"
	"database/sql"
	"errors"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// HistoryPostgres is a PostgreSQL implementation of repository.HistoryRepository.
// Rows are only ever inserted.
type HistoryPostgres struct {
	db *sql.DB
}

// NewHistoryPostgres creates a new HistoryPostgres repository.
func NewHistoryPostgres(db *sql.DB) *HistoryPostgres {
	return &HistoryPostgres{db: db}
}

var _ repository.HistoryRepository = (*HistoryPostgres)(nil)

// Append inserts rec unless (document_id, edit_number) already exists.
func (r *HistoryPostgres) Append(ctx context.Context, rec *model.HistoryRecord) (bool, error) {
	const q = `
		INSERT INTO document_history (document_id, edit_number, blob_key, edited_at, edited_by, change_description)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (document_id, edit_number) DO NOTHING
	`
	res, err := r.db.ExecContext(ctx, q,
		rec.DocumentID,
		rec.EditNumber,
		rec.BlobKey,
		rec.EditedAt,
		rec.EditedBy,
		rec.ChangeDescription,
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

// Exists reports whether a history record is present.
func (r *HistoryPostgres) Exists(ctx context.Context, documentID string, editNumber int) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM document_history WHERE document_id = $1 AND edit_number = $2)`
	var ok bool
	if err := r.db.QueryRowContext(ctx, q, documentID, editNumber).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// FindByEditNumber fetches one history record.
func (r *HistoryPostgres) FindByEditNumber(ctx context.Context, documentID string, editNumber int) (*model.HistoryRecord, error) {
	const q = `
		SELECT document_id, edit_number, blob_key, edited_at, edited_by, change_description
		FROM document_history
		WHERE document_id = $1 AND edit_number = $2
	`
	rec, err := scanHistory(r.db.QueryRowContext(ctx, q, documentID, editNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return rec, nil
}

// ListByDocument returns all history records of a document, oldest first.
func (r *HistoryPostgres) ListByDocument(ctx context.Context, documentID string) ([]model.HistoryRecord, error) {
	const q = `
		SELECT document_id, edit_number, blob_key, edited_at, edited_by, change_description
		FROM document_history
		WHERE document_id = $1
		ORDER BY edit_number ASC
	`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.HistoryRecord, 0)
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func scanHistory(row rowScanner) (*model.HistoryRecord, error) {
	var h model.HistoryRecord
	if err := row.Scan(
		&h.DocumentID,
		&h.EditNumber,
		&h.BlobKey,
		&h.EditedAt,
		&h.EditedBy,
		&h.ChangeDescription,
	); err != nil {
		return nil, err
	}
	return &h, nil
}
