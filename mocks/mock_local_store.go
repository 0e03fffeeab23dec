package mocks

import (
	"github.com/stretchr/testify/mock"
)

// MockLocalStore is a mock implementation of port.LocalStore.
type MockLocalStore struct {
	mock.Mock
}

func (m *MockLocalStore) Get(key string) ([]byte, error) {
	args := m.Called(key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockLocalStore) Put(key string, value []byte) error {
	args := m.Called(key, value)
	return args.Error(0)
}

func (m *MockLocalStore) Delete(key string) error {
	args := m.Called(key)
	return args.Error(0)
}

func (m *MockLocalStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
