package mocks

import (
	"context"
	"time"

	"relistapi/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockOriginalService struct {
	mock.Mock
}

func (m *MockOriginalService) Store(ctx context.Context, event model.ListingEvent) (*model.Original, bool, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*model.Original), args.Bool(1), args.Error(2)
}

func (m *MockOriginalService) Get(ctx context.Context, id string) (*model.Original, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Original), args.Error(1)
}

func (m *MockOriginalService) FindByTitle(ctx context.Context, accountID, title string) (*model.Original, error) {
	args := m.Called(ctx, accountID, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Original), args.Error(1)
}

func (m *MockOriginalService) LatestActive(ctx context.Context, accountID string) (*model.Original, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Original), args.Error(1)
}

func (m *MockOriginalService) ListByAccount(ctx context.Context, accountID string) ([]model.Original, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Original), args.Error(1)
}

func (m *MockOriginalService) Archive(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOriginalService) ImageURL(ctx context.Context, originalID, sha string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, originalID, sha, expiry)
	return args.String(0), args.Error(1)
}

func (m *MockOriginalService) LoadImage(ctx context.Context, img model.OriginalImage) ([]byte, error) {
	args := m.Called(ctx, img)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockOriginalService) PurgeOlderThan(ctx context.Context, age time.Duration) (int, error) {
	args := m.Called(ctx, age)
	return args.Int(0), args.Error(1)
}
