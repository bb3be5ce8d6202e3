package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"docvault/internal/cache"
	"docvault/internal/events"
	"docvault/internal/logger"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

const defaultContentType = "text/plain; charset=utf-8"

// UploadInput is a new document. A nil Content means the payload is absent; an empty slice is a valid empty file.
type UploadInput struct {
	FileName    string
	Content     []byte
	ContentType string
}

// UploadResult identifies the created document.
type UploadResult struct {
	DocumentID string `json:"documentId"`
	EditNumber int    `json:"editNumber"`
}

// EditInput replaces the full content of a document. A nil Content means the payload is absent.
type EditInput struct {
	DocumentID        string
	Content           []byte
	EditedBy          string
	ChangeDescription string
}

// EditResult describes the version an Edit produced.
type EditResult struct {
	DocumentID string    `json:"documentId"`
	EditNumber int       `json:"editNumber"`
	EditedBy   string    `json:"editedBy"`
	EditedAt   time.Time `json:"editedAt"`
}

// LatestResult is the current content of a document. CurrentEditNumber is the version Content belongs to.
type LatestResult struct {
	DocumentID        string    `json:"documentId"`
	Title             string    `json:"title"`
	Content           []byte    `json:"-"`
	CurrentEditNumber int       `json:"currentEditNumber"`
	CreatedAt         time.Time `json:"createdAt"`
	LastModified      time.Time `json:"lastModified"`
}

// HistoryResult lists every version of a document, oldest first.
type HistoryResult struct {
	DocumentID string                `json:"documentId"`
	TotalEdits int                   `json:"totalEdits"`
	History    []model.HistoryRecord `json:"history"`
}

// VersionResult is the content and provenance of one historical version.
type VersionResult struct {
	Record  model.HistoryRecord
	Content []byte
}

// RepairResult reports what a reconciliation pass did.
type RepairResult struct {
	DocumentID        string               `json:"documentId"`
	CurrentEditNumber int                  `json:"currentEditNumber"`
	Repaired          bool                 `json:"repaired"`
	Record            *model.HistoryRecord `json:"record,omitempty"`
}

// DocumentService is the versioning engine. It keeps the metadata index, the history
// log and the blob store coherent without cross-store transactions by always writing
// blob, then conditional pointer update, then history record.
type DocumentService interface {
	// Upload stores a new document as edit number 1.
	Upload(ctx context.Context, in UploadInput) (*UploadResult, error)

	// Edit makes one attempt at producing the next version. Losing the race with another
	// edit yields ErrConcurrentModification; use EditWithRetry to retry with fresh state.
	Edit(ctx context.Context, in EditInput) (*EditResult, error)

	// GetLatest returns the current content together with its edit number.
	GetLatest(ctx context.Context, id string) (*LatestResult, error)

	// GetHistory returns every history record ordered by edit number ascending.
	GetHistory(ctx context.Context, id string) (*HistoryResult, error)

	// GetVersion returns the content of one historical version.
	GetVersion(ctx context.Context, id string, editNumber int) (*VersionResult, error)

	// Repair synthesizes the history record of the current version when an edit
	// committed its pointer update but never appended its record.
	Repair(ctx context.Context, id string) (*RepairResult, error)
}

// Options carries the engine's optional collaborators and tuning.
type Options struct {
	Cache   cache.BlobCache
	Events  events.Publisher
	Metrics *Metrics
	Logger  *logger.Logger
	// HistoryGracePeriod is how long after a pointer update a missing history record
	// is attributed to the edit still being in flight rather than to a crash.
	HistoryGracePeriod time.Duration
	// Now overrides the clock; defaults to time.Now in UTC.
	Now func() time.Time
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store   storage.Storage
	docs    repository.DocumentRepository
	history repository.HistoryRepository

	cache   cache.BlobCache
	events  events.Publisher
	metrics *Metrics
	log     *logger.Logger
	grace   time.Duration
	now     func() time.Time
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(store storage.Storage, docs repository.DocumentRepository, history repository.HistoryRepository, opts Options) DocumentService {
	s := &documentService{
		store:   store,
		docs:    docs,
		history: history,
		cache:   opts.Cache,
		events:  opts.Events,
		metrics: opts.Metrics,
		log:     opts.Logger,
		grace:   opts.HistoryGracePeriod,
		now:     opts.Now,
	}
	if s.cache == nil {
		s.cache = cache.Noop{}
	}
	if s.events == nil {
		s.events = events.Noop{}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (res *UploadResult, err error) {
	const op = "upload"
	ctx, span := startSpan(ctx, op, "", 0)
	defer func() { endSpan(span, err) }()

	if err := model.ValidateFileName(in.FileName); err != nil {
		return nil, newError(KindValidation, op, "", 0, err)
	}
	if in.Content == nil {
		return nil, newError(KindValidation, op, "", 0, model.ErrContentRequired)
	}

	id := uuid.NewString()
	fileName := strings.TrimSpace(in.FileName)
	now := s.now()
	ct := model.OrDefault(in.ContentType, defaultContentType)

	// Both blobs must exist before the document becomes visible.
	origKey := originalKey(id, fileName)
	if err := s.putBlob(ctx, origKey, in.Content, ct, map[string]string{
		"document-id":       id,
		"original-filename": fileName,
	}); err != nil {
		return nil, newError(KindStorage, op, id, 0, err)
	}
	curKey := versionKey(id, 1)
	if err := s.putBlob(ctx, curKey, in.Content, ct, blobMetadata(id, 1)); err != nil {
		return nil, newError(KindStorage, op, id, 1, err)
	}

	doc := &model.Document{
		ID:                id,
		Title:             fileName,
		OriginalBlobKey:   origKey,
		CurrentBlobKey:    curKey,
		CurrentEditNumber: 1,
		CreatedAt:         now,
		LastModified:      now,
	}
	if _, err := s.docs.Create(ctx, doc); err != nil {
		return nil, newError(KindStorage, op, id, 1, fmt.Errorf("create document: %w", err))
	}
	s.metrics.versionCreated()

	rec := model.HistoryRecord{
		DocumentID:        id,
		EditNumber:        1,
		BlobKey:           curKey,
		EditedAt:          now,
		EditedBy:          model.UploadEditor,
		ChangeDescription: model.InitialChangeDescription,
	}
	if err := s.appendHistory(ctx, op, &rec); err != nil {
		return nil, err
	}

	return &UploadResult{DocumentID: id, EditNumber: 1}, nil
}

func (s *documentService) Edit(ctx context.Context, in EditInput) (res *EditResult, err error) {
	const op = "edit"
	ctx, span := startSpan(ctx, op, in.DocumentID, 0)
	defer func() { endSpan(span, err) }()

	if in.DocumentID == "" {
		return nil, newError(KindValidation, op, "", 0, model.ErrIDRequired)
	}
	if in.Content == nil {
		return nil, newError(KindValidation, op, in.DocumentID, 0, model.ErrContentRequired)
	}
	editedBy := model.OrDefault(in.EditedBy, model.DefaultEditor)
	desc := model.OrDefault(in.ChangeDescription, model.DefaultChangeDescription)

	doc, err := s.findDocument(ctx, op, in.DocumentID)
	if err != nil {
		return nil, err
	}
	expected := doc.CurrentEditNumber

	// Refuse to build on a version whose history record is missing, so a gap can
	// only ever sit at the tail of the log where Repair can fill it.
	ok, err := s.history.Exists(ctx, doc.ID, expected)
	if err != nil {
		return nil, newError(KindStorage, op, doc.ID, expected, fmt.Errorf("check history: %w", err))
	}
	if !ok {
		return nil, s.missingHistory(op, doc, expected)
	}

	ct, err := s.currentContentType(ctx, op, doc)
	if err != nil {
		return nil, err
	}

	next := expected + 1
	key := versionKey(doc.ID, next)
	if err := s.putBlob(ctx, key, in.Content, ct, blobMetadata(doc.ID, next)); err != nil {
		return nil, newError(KindStorage, op, doc.ID, next, err)
	}

	now := s.now()
	swapped, err := s.docs.UpdateIfEditNumber(ctx, doc.ID, expected, model.DocumentUpdate{
		CurrentBlobKey:    key,
		CurrentEditNumber: next,
		LastModified:      now,
	})
	if err != nil {
		return nil, newError(KindStorage, op, doc.ID, next, fmt.Errorf("update document: %w", err))
	}
	if !swapped {
		// The blob at key stays unreferenced.
		s.metrics.conflict()
		return nil, newError(KindConcurrentModification, op, doc.ID, next,
			fmt.Errorf("current edit number is no longer %d", expected))
	}
	s.metrics.versionCreated()

	rec := model.HistoryRecord{
		DocumentID:        doc.ID,
		EditNumber:        next,
		BlobKey:           key,
		EditedAt:          now,
		EditedBy:          editedBy,
		ChangeDescription: desc,
	}
	if err := s.appendHistory(ctx, op, &rec); err != nil {
		return nil, err
	}

	return &EditResult{DocumentID: doc.ID, EditNumber: next, EditedBy: editedBy, EditedAt: now}, nil
}

func (s *documentService) GetLatest(ctx context.Context, id string) (res *LatestResult, err error) {
	const op = "get_latest"
	ctx, span := startSpan(ctx, op, id, 0)
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, newError(KindValidation, op, "", 0, model.ErrIDRequired)
	}
	doc, err := s.findDocument(ctx, op, id)
	if err != nil {
		return nil, err
	}

	content, err := s.readBlob(ctx, op, doc.ID, doc.CurrentEditNumber, doc.CurrentBlobKey)
	if err != nil {
		return nil, err
	}

	return &LatestResult{
		DocumentID:        doc.ID,
		Title:             doc.Title,
		Content:           content,
		CurrentEditNumber: doc.CurrentEditNumber,
		CreatedAt:         doc.CreatedAt,
		LastModified:      doc.LastModified,
	}, nil
}

func (s *documentService) GetHistory(ctx context.Context, id string) (res *HistoryResult, err error) {
	const op = "get_history"
	ctx, span := startSpan(ctx, op, id, 0)
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, newError(KindValidation, op, "", 0, model.ErrIDRequired)
	}

	// The document is read before the log: a concurrent edit can then only make
	// the log look longer than the pointer, never shorter.
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, newError(KindStorage, op, id, 0, fmt.Errorf("find document: %w", err))
	}

	records, err := s.history.ListByDocument(ctx, id)
	if err != nil {
		return nil, newError(KindStorage, op, id, 0, fmt.Errorf("list history: %w", err))
	}

	if ok, at := model.Contiguous(records); !ok {
		return nil, s.inconsistent(op, id, at, fmt.Errorf("history gap at edit %d", at))
	}
	if doc != nil && len(records) < doc.CurrentEditNumber {
		missing := len(records) + 1
		if missing < doc.CurrentEditNumber || !s.withinGrace(doc) {
			return nil, s.inconsistent(op, id, missing,
				fmt.Errorf("history has %d records, document is at edit %d", len(records), doc.CurrentEditNumber))
		}
	}
	if len(records) == 0 {
		return nil, newError(KindNotFound, op, id, 0, nil)
	}

	return &HistoryResult{DocumentID: id, TotalEdits: len(records), History: records}, nil
}

func (s *documentService) GetVersion(ctx context.Context, id string, editNumber int) (res *VersionResult, err error) {
	const op = "get_version"
	ctx, span := startSpan(ctx, op, id, editNumber)
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, newError(KindValidation, op, "", 0, model.ErrIDRequired)
	}
	if editNumber < 1 {
		return nil, newError(KindValidation, op, id, 0, model.ErrEditNumber)
	}

	rec, err := s.history.FindByEditNumber(ctx, id, editNumber)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindStorage, op, id, editNumber, fmt.Errorf("find history: %w", err))
		}
		doc, derr := s.docs.FindByID(ctx, id)
		if derr != nil && !errors.Is(derr, repository.ErrNotFound) {
			return nil, newError(KindStorage, op, id, editNumber, fmt.Errorf("find document: %w", derr))
		}
		if doc == nil || editNumber > doc.CurrentEditNumber {
			return nil, newError(KindNotFound, op, id, editNumber, nil)
		}
		return nil, s.missingHistory(op, doc, editNumber)
	}

	content, err := s.readBlob(ctx, op, id, editNumber, rec.BlobKey)
	if err != nil {
		return nil, err
	}
	return &VersionResult{Record: *rec, Content: content}, nil
}

func (s *documentService) Repair(ctx context.Context, id string) (res *RepairResult, err error) {
	const op = "repair"
	ctx, span := startSpan(ctx, op, id, 0)
	defer func() { endSpan(span, err) }()

	if id == "" {
		return nil, newError(KindValidation, op, "", 0, model.ErrIDRequired)
	}
	doc, err := s.findDocument(ctx, op, id)
	if err != nil {
		return nil, err
	}

	records, err := s.history.ListByDocument(ctx, id)
	if err != nil {
		return nil, newError(KindStorage, op, id, 0, fmt.Errorf("list history: %w", err))
	}
	if ok, at := model.Contiguous(records); !ok {
		return nil, s.inconsistent(op, id, at, fmt.Errorf("history gap at edit %d cannot be reconstructed", at))
	}

	n := doc.CurrentEditNumber
	switch {
	case len(records) >= n:
		return &RepairResult{DocumentID: id, CurrentEditNumber: n}, nil
	case len(records) < n-1:
		return nil, s.inconsistent(op, id, len(records)+1,
			fmt.Errorf("%d history records missing, only the current one can be reconstructed", n-len(records)))
	case s.withinGrace(doc):
		return nil, newError(KindConcurrentModification, op, id, n, errors.New("edit may still be in flight"))
	}

	if _, err := s.store.Stat(ctx, doc.CurrentBlobKey); err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, s.inconsistent(op, id, n, fmt.Errorf("current blob %s is missing: %w", doc.CurrentBlobKey, err))
		}
		return nil, newError(KindStorage, op, id, n, err)
	}

	rec := synthesizeRecord(doc)
	inserted, err := s.history.Append(ctx, &rec)
	if err != nil {
		return nil, newError(KindStorage, op, id, n, fmt.Errorf("append history: %w", err))
	}
	if inserted {
		s.log.Warn("history_record_synthesized", nil, map[string]any{
			"component":   "service",
			"operation":   op,
			"document_id": id,
			"edit_number": n,
			"edited_by":   rec.EditedBy,
		})
		s.publish(ctx, &rec)
	}

	return &RepairResult{DocumentID: id, CurrentEditNumber: n, Repaired: inserted, Record: &rec}, nil
}

// synthesizeRecord rebuilds the history record of doc's current version. Edit 1 is
// always an upload, so it can be reconstructed exactly; later provenance is unknown
// and marked as such.
func synthesizeRecord(doc *model.Document) model.HistoryRecord {
	rec := model.HistoryRecord{
		DocumentID:        doc.ID,
		EditNumber:        doc.CurrentEditNumber,
		BlobKey:           doc.CurrentBlobKey,
		EditedAt:          doc.LastModified,
		EditedBy:          model.RecoveredEditor,
		ChangeDescription: model.RecoveredChangeDescription,
	}
	if doc.CurrentEditNumber == 1 {
		rec.EditedAt = doc.CreatedAt
		rec.EditedBy = model.UploadEditor
		rec.ChangeDescription = model.InitialChangeDescription
	}
	return rec
}

func (s *documentService) findDocument(ctx context.Context, op, id string) (*model.Document, error) {
	doc, err := s.docs.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(KindNotFound, op, id, 0, nil)
		}
		return nil, newError(KindStorage, op, id, 0, fmt.Errorf("find document: %w", err))
	}
	return doc, nil
}

// appendHistory runs after the pointer update has committed. A failure here leaves
// the document usable but its log one record short, which Repair can fix.
func (s *documentService) appendHistory(ctx context.Context, op string, rec *model.HistoryRecord) error {
	inserted, err := s.history.Append(ctx, rec)
	if err != nil {
		return s.inconsistent(op, rec.DocumentID, rec.EditNumber,
			fmt.Errorf("version committed but history append failed: %w", err))
	}
	if !inserted {
		s.log.Warn("history_record_already_present", nil, map[string]any{
			"component":   "service",
			"operation":   op,
			"document_id": rec.DocumentID,
			"edit_number": rec.EditNumber,
		})
		return nil
	}
	s.publish(ctx, rec)
	return nil
}

func (s *documentService) publish(ctx context.Context, rec *model.HistoryRecord) {
	err := s.events.PublishVersionCreated(ctx, events.VersionCreated{
		DocumentID:        rec.DocumentID,
		EditNumber:        rec.EditNumber,
		BlobKey:           rec.BlobKey,
		EditedBy:          rec.EditedBy,
		EditedAt:          rec.EditedAt,
		ChangeDescription: rec.ChangeDescription,
	})
	if err != nil {
		s.metrics.publishFailed()
		s.log.Error("version_event_publish_failed", err, map[string]any{
			"component":   "service",
			"document_id": rec.DocumentID,
			"edit_number": rec.EditNumber,
		})
	}
}

// missingHistory classifies an absent history record for editNumber of doc.
func (s *documentService) missingHistory(op string, doc *model.Document, editNumber int) error {
	if editNumber == doc.CurrentEditNumber && s.withinGrace(doc) {
		s.metrics.conflict()
		return newError(KindConcurrentModification, op, doc.ID, editNumber,
			fmt.Errorf("history for edit %d not yet recorded", editNumber))
	}
	return s.inconsistent(op, doc.ID, editNumber, fmt.Errorf("history record for edit %d is missing", editNumber))
}

func (s *documentService) withinGrace(doc *model.Document) bool {
	return s.now().Sub(doc.LastModified) < s.grace
}

func (s *documentService) inconsistent(op, id string, editNumber int, err error) error {
	s.metrics.inconsistent(op)
	s.log.Error("inconsistent_state", err, map[string]any{
		"component":   "service",
		"operation":   op,
		"document_id": id,
		"edit_number": editNumber,
	})
	return newError(KindInconsistentState, op, id, editNumber, err)
}

// currentContentType is the content type of doc's current blob, so a new version keeps
// the type the document was uploaded with.
func (s *documentService) currentContentType(ctx context.Context, op string, doc *model.Document) (string, error) {
	info, err := s.store.Stat(ctx, doc.CurrentBlobKey)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return "", s.inconsistent(op, doc.ID, doc.CurrentEditNumber,
				fmt.Errorf("current blob %s is missing: %w", doc.CurrentBlobKey, err))
		}
		return "", newError(KindStorage, op, doc.ID, doc.CurrentEditNumber, err)
	}
	return model.OrDefault(info.ContentType, defaultContentType), nil
}

func (s *documentService) putBlob(ctx context.Context, key string, content []byte, contentType string, meta map[string]string) error {
	_, err := s.store.Put(ctx, key, bytes.NewReader(content), storage.PutObjectOptions{
		Size:        int64(len(content)),
		ContentType: contentType,
		Metadata:    meta,
	})
	if err != nil {
		return fmt.Errorf("put blob: %w", err)
	}
	return nil
}

// readBlob serves immutable blob content, preferring the cache. A blob that a
// document or history record references but the store lacks is an inconsistency.
func (s *documentService) readBlob(ctx context.Context, op, id string, editNumber int, key string) ([]byte, error) {
	if data, ok, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn("blob_cache_get_failed", err, map[string]any{"component": "service", "blob_key": key})
	} else if ok {
		return data, nil
	}

	rc, _, err := s.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return nil, s.inconsistent(op, id, editNumber, fmt.Errorf("blob %s is missing: %w", key, err))
		}
		return nil, newError(KindStorage, op, id, editNumber, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, newError(KindStorage, op, id, editNumber, fmt.Errorf("read blob %s: %w", key, err))
	}

	if err := s.cache.Set(ctx, key, data); err != nil {
		s.log.Warn("blob_cache_set_failed", err, map[string]any{"component": "service", "blob_key": key})
	}
	return data, nil
}

func blobMetadata(id string, editNumber int) map[string]string {
	return map[string]string{
		"document-id": id,
		"edit-number": strconv.Itoa(editNumber),
	}
}
