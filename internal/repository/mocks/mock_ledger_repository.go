package mocks

import (
	"context"
	"time"

	"relistapi/internal/model"

	"github.com/stretchr/testify/mock"
)

type MockLedgerRepository struct {
	mock.Mock
}

func (m *MockLedgerRepository) HasText(ctx context.Context, accountID, originalID string, kind model.TextKind, text string) (bool, error) {
	args := m.Called(ctx, accountID, originalID, kind, text)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) ListTexts(ctx context.Context, accountID, originalID string, kind model.TextKind) ([]string, error) {
	args := m.Called(ctx, accountID, originalID, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockLedgerRepository) LastStrategy(ctx context.Context, accountID string, kind model.TextKind) (model.TextStrategy, error) {
	args := m.Called(ctx, accountID, kind)
	return args.Get(0).(model.TextStrategy), args.Error(1)
}

func (m *MockLedgerRepository) AppendText(ctx context.Context, v *model.TextVariant) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockLedgerRepository) HasImageTuple(ctx context.Context, accountID, sourceSHA string, width, height, quality int) (bool, error) {
	args := m.Called(ctx, accountID, sourceSHA, width, height, quality)
	return args.Bool(0), args.Error(1)
}

func (m *MockLedgerRepository) AppendImage(ctx context.Context, accountID string, d *model.ImageDerivative) error {
	args := m.Called(ctx, accountID, d)
	return args.Error(0)
}

func (m *MockLedgerRepository) Compact(ctx context.Context, cutoff time.Time) (int64, error) {
	args := m.Called(ctx, cutoff)
	return args.Get(0).(int64), args.Error(1)
}
