package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"subview/internal/domain"
	"subview/internal/port"
)

// MockPageRenderer is a mock implementation of port.PageRenderer.
type MockPageRenderer struct {
	mock.Mock
}

func (m *MockPageRenderer) Open(ctx context.Context, doc domain.Document, data []byte) (port.RenderedDocument, error) {
	args := m.Called(ctx, doc, data)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(port.RenderedDocument), args.Error(1)
}

// MockRenderedDocument is a mock implementation of port.RenderedDocument.
type MockRenderedDocument struct {
	mock.Mock
}

func (m *MockRenderedDocument) PageCount() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockRenderedDocument) RenderPage(ctx context.Context, page int) (*port.RenderedPage, error) {
	args := m.Called(ctx, page)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*port.RenderedPage), args.Error(1)
}

func (m *MockRenderedDocument) Close() error {
	args := m.Called()
	return args.Error(0)
}
