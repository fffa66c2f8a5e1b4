package mocks

import (
	"context"
	"time"

	"relistapi/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockOriginalRepository struct {
	mock.Mock
}

func (m *MockOriginalRepository) Create(ctx context.Context, o *model.Original) (*model.Original, error) {
	args := m.Called(ctx, o)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Original), args.Error(1)
}

func (m *MockOriginalRepository) FindByID(ctx context.Context, id string) (*model.Original, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Original), args.Error(1)
}

func (m *MockOriginalRepository) FindByContentHash(ctx context.Context, accountID, contentHash string) (*model.Original, error) {
	args := m.Called(ctx, accountID, contentHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Original), args.Error(1)
}

func (m *MockOriginalRepository) FindByNormalizedTitle(ctx context.Context, accountID, title string) (*model.Original, error) {
	args := m.Called(ctx, accountID, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Original), args.Error(1)
}

func (m *MockOriginalRepository) LatestActive(ctx context.Context, accountID string) (*model.Original, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Original), args.Error(1)
}

func (m *MockOriginalRepository) ListByAccount(ctx context.Context, accountID string) ([]model.Original, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Original), args.Error(1)
}

func (m *MockOriginalRepository) ListOlderThan(ctx context.Context, cutoff time.Time) ([]model.Original, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Original), args.Error(1)
}

func (m *MockOriginalRepository) CountImageRefs(ctx context.Context, storagePath, excludeOriginalID string) (int, error) {
	args := m.Called(ctx, storagePath, excludeOriginalID)
	return args.Int(0), args.Error(1)
}

func (m *MockOriginalRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOriginalRepository) UpdateStatus(ctx context.Context, id string, status model.OriginalStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}
