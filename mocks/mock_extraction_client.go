package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"subview/internal/domain"
)

// MockExtractionClient is a mock implementation of port.ExtractionClient.
type MockExtractionClient struct {
	mock.Mock
}

func (m *MockExtractionClient) Fetch(ctx context.Context, submissionID string) (*domain.ExtractionResult, error) {
	args := m.Called(ctx, submissionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ExtractionResult), args.Error(1)
}
