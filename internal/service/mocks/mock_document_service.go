package mocks

import (
	"context"

	"docvault/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) Upload(ctx context.Context, in service.UploadInput) (*service.UploadResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadResult), args.Error(1)
}

func (m *MockDocumentService) Edit(ctx context.Context, in service.EditInput) (*service.EditResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EditResult), args.Error(1)
}

func (m *MockDocumentService) GetLatest(ctx context.Context, id string) (*service.LatestResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.LatestResult), args.Error(1)
}

func (m *MockDocumentService) GetHistory(ctx context.Context, id string) (*service.HistoryResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.HistoryResult), args.Error(1)
}

func (m *MockDocumentService) GetVersion(ctx context.Context, id string, editNumber int) (*service.VersionResult, error) {
	args := m.Called(ctx, id, editNumber)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.VersionResult), args.Error(1)
}

func (m *MockDocumentService) Repair(ctx context.Context, id string) (*service.RepairResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.RepairResult), args.Error(1)
}
