package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// memStore is an in-memory blob store.
type memStore struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	types   map[string]string
	putErr  error
	putHook func(key string) error
}

func newMemStore() *memStore {
	return &memStore{blobs: map[string][]byte{}, types: map[string]string{}}
}

func (m *memStore) Put(_ context.Context, key string, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		return storage.ObjectInfo{}, m.putErr
	}
	if m.putHook != nil {
		if err := m.putHook(key); err != nil {
			return storage.ObjectInfo{}, err
		}
	}
	m.blobs[key] = data
	m.types[key] = opt.ContentType
	return storage.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: opt.ContentType}, nil
}

func (m *memStore) Get(_ context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return nil, storage.ObjectInfo{}, fmt.Errorf("get object %s: %w", key, storage.ErrObjectNotFound)
	}
	return io.NopCloser(strings.NewReader(string(data))), storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (m *memStore) Stat(_ context.Context, key string) (storage.ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.blobs[key]
	if !ok {
		return storage.ObjectInfo{}, fmt.Errorf("stat object %s: %w", key, storage.ErrObjectNotFound)
	}
	return storage.ObjectInfo{Key: key, Size: int64(len(data)), ContentType: m.types[key]}, nil
}

func (m *memStore) contentType(key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.types[key]
}

func (m *memStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}

func (m *memStore) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.blobs, key)
}

// memDocs is an in-memory metadata index with a real compare-and-swap.
type memDocs struct {
	mu   sync.Mutex
	docs map[string]model.Document
	// beforeUpdate runs outside the lock ahead of every conditional update.
	beforeUpdate func()
}

func newMemDocs() *memDocs { return &memDocs{docs: map[string]model.Document{}} }

func (m *memDocs) Create(_ context.Context, doc *model.Document) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[doc.ID]; ok {
		return nil, repository.ErrConflict
	}
	m.docs[doc.ID] = *doc
	out := *doc
	return &out, nil
}

func (m *memDocs) FindByID(_ context.Context, id string) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &d, nil
}

func (m *memDocs) UpdateIfEditNumber(_ context.Context, id string, expected int, upd model.DocumentUpdate) (bool, error) {
	if hook := m.beforeUpdate; hook != nil {
		m.beforeUpdate = nil
		hook()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok || d.CurrentEditNumber != expected {
		return false, nil
	}
	m.docs[id] = d.Apply(upd)
	return true, nil
}

func (m *memDocs) get(id string) model.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.docs[id]
}

func (m *memDocs) set(d model.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[d.ID] = d
}

// memHistory is an in-memory append-only history log.
type memHistory struct {
	mu        sync.Mutex
	recs      map[string]map[int]model.HistoryRecord
	appendErr error
}

func newMemHistory() *memHistory {
	return &memHistory{recs: map[string]map[int]model.HistoryRecord{}}
}

func (m *memHistory) Append(_ context.Context, rec *model.HistoryRecord) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.appendErr != nil {
		return false, m.appendErr
	}
	byNum, ok := m.recs[rec.DocumentID]
	if !ok {
		byNum = map[int]model.HistoryRecord{}
		m.recs[rec.DocumentID] = byNum
	}
	if _, dup := byNum[rec.EditNumber]; dup {
		return false, nil
	}
	byNum[rec.EditNumber] = *rec
	return true, nil
}

func (m *memHistory) Exists(_ context.Context, id string, n int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.recs[id][n]
	return ok, nil
}

func (m *memHistory) FindByEditNumber(_ context.Context, id string, n int) (*model.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.recs[id][n]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (m *memHistory) ListByDocument(_ context.Context, id string) ([]model.HistoryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.HistoryRecord, 0, len(m.recs[id]))
	for _, r := range m.recs[id] {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EditNumber < out[j].EditNumber })
	return out, nil
}

func (m *memHistory) remove(id string, n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.recs[id], n)
}

func (m *memHistory) setAppendErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.appendErr = err
}
