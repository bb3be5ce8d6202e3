package mocks

import (
	"context"

	"docvault/internal/model"
	"github.com/stretchr/testify/mock"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) FindByID(ctx context.Context, id string) (*model.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Document), args.Error(1)
}

func (m *MockDocumentRepository) UpdateIfEditNumber(ctx context.Context, id string, expected int, upd model.DocumentUpdate) (bool, error) {
	args := m.Called(ctx, id, expected, upd)
	return args.Bool(0), args.Error(1)
}

type MockHistoryRepository struct {
	mock.Mock
}

func (m *MockHistoryRepository) Append(ctx context.Context, rec *model.HistoryRecord) (bool, error) {
	args := m.Called(ctx, rec)
	return args.Bool(0), args.Error(1)
}

func (m *MockHistoryRepository) Exists(ctx context.Context, documentID string, editNumber int) (bool, error) {
	args := m.Called(ctx, documentID, editNumber)
	return args.Bool(0), args.Error(1)
}

func (m *MockHistoryRepository) FindByEditNumber(ctx context.Context, documentID string, editNumber int) (*model.HistoryRecord, error) {
	args := m.Called(ctx, documentID, editNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.HistoryRecord), args.Error(1)
}

func (m *MockHistoryRepository) ListByDocument(ctx context.Context, documentID string) ([]model.HistoryRecord, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.HistoryRecord), args.Error(1)
}
