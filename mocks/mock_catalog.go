package mocks

import (
	"github.com/stretchr/testify/mock"

	"subview/internal/domain"
)

// MockCatalog is a mock implementation of port.Catalog.
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) Submissions() []domain.Submission {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.Submission)
}

func (m *MockCatalog) Submission(id string) (*domain.Submission, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Submission), args.Error(1)
}

func (m *MockCatalog) Document(id string) (*domain.Document, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}
