package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

// MockDocumentSource is a mock implementation of port.DocumentSource.
type MockDocumentSource struct {
	mock.Mock
}

func (m *MockDocumentSource) Fetch(ctx context.Context, url string) ([]byte, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockDocumentSource) Open(ctx context.Context, url string) (io.ReadCloser, int64, string, error) {
	args := m.Called(ctx, url)
	if args.Get(0) == nil {
		return nil, 0, "", args.Error(3)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(int64), args.String(2), args.Error(3)
}
