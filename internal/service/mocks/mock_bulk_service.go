package mocks

import (
	"context"

	"certigen/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockBulkService struct {
	mock.Mock
}

func (m *MockBulkService) Run(ctx context.Context, req service.BulkRequest, emit func(service.StreamEvent)) {
	m.Called(ctx, req, emit)
}
