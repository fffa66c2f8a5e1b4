package mocks

import (
	"context"

	"relistapi/internal/assist"

	"github.com/stretchr/testify/mock"
)

type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Propose(ctx context.Context, req assist.ProposeRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *MockAdapter) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}
