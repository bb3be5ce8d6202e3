package repository

import (
	"context"
	"errors"

	"docvault/internal/model"
)

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when an insert collides with an existing primary key.
	ErrConflict = errors.New("record already exists")
)

// DocumentRepository is the metadata index: one Document row per document id.
// No business logic here — strictly persistence operations.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID, or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// UpdateIfEditNumber applies upd only if the stored current edit number still equals expected.
	// It reports false, with a nil error, when the condition did not hold.
	UpdateIfEditNumber(ctx context.Context, id string, expected int, upd model.DocumentUpdate) (bool, error)
}

// HistoryRepository is the append-only history log keyed by (document id, edit number).
type HistoryRepository interface {
	// Append stores rec. It reports false, with a nil error, when a record with the
	// same identity already exists; existing records are never overwritten.
	Append(ctx context.Context, rec *model.HistoryRecord) (bool, error)

	// Exists reports whether the record (documentID, editNumber) is present.
	Exists(ctx context.Context, documentID string, editNumber int) (bool, error)

	// FindByEditNumber returns one record, or ErrNotFound.
	FindByEditNumber(ctx context.Context, documentID string, editNumber int) (*model.HistoryRecord, error)

	// ListByDocument returns every record of a document ordered by edit number ascending.
	ListByDocument(ctx context.Context, documentID string) ([]model.HistoryRecord, error)
}
