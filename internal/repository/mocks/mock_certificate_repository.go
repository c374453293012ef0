package mocks

import (
	"context"

	"certigen/internal/model"
	"certigen/internal/repository"
	"github.com/stretchr/testify/mock"
)

type MockCertificateRepository struct {
	mock.Mock
}

func (m *MockCertificateRepository) Create(ctx context.Context, cert *model.Certificate) (*model.Certificate, error) {
	args := m.Called(ctx, cert)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Certificate), args.Error(1)
}

func (m *MockCertificateRepository) FindByID(ctx context.Context, id string) (*model.Certificate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Certificate), args.Error(1)
}

func (m *MockCertificateRepository) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Certificate], error) {
	args := m.Called(ctx, pq)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*repository.PageResult[model.Certificate]), args.Error(1)
}

func (m *MockCertificateRepository) IncrementDownloadCount(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockCertificateRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
