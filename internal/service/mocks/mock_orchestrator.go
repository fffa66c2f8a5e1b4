package mocks

import (
	"context"

	"relistapi/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockOrchestrator struct {
	mock.Mock
}

func (m *MockOrchestrator) Process(ctx context.Context, event model.ListingEvent) (*model.VariantBundle, error) {
	args := m.Called(ctx, event)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VariantBundle), args.Error(1)
}

func (m *MockOrchestrator) Relist(ctx context.Context, originalID string) (*model.VariantBundle, error) {
	args := m.Called(ctx, originalID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.VariantBundle), args.Error(1)
}

func (m *MockOrchestrator) Maintain(ctx context.Context) (int, int64, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Get(1).(int64), args.Error(2)
}
