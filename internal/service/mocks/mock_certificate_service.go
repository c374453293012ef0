package mocks

import (
	"context"

	"certigen/internal/model"
	"certigen/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockCertificateService struct {
	mock.Mock
}

func (m *MockCertificateService) Generate(ctx context.Context, templateID, recipientName string, customFields map[string]string) (*model.Certificate, []byte, error) {
	args := m.Called(ctx, templateID, recipientName, customFields)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Certificate), args.Get(1).([]byte), args.Error(2)
}

func (m *MockCertificateService) Preview(ctx context.Context, templateID string, values map[string]string) ([]byte, error) {
	args := m.Called(ctx, templateID, values)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCertificateService) Issue(ctx context.Context, tpl *model.Template, background []byte, rec model.Recipient) (*model.Certificate, []byte, error) {
	args := m.Called(ctx, tpl, background, rec)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Certificate), args.Get(1).([]byte), args.Error(2)
}

func (m *MockCertificateService) List(ctx context.Context, limit, offset int) (*service.CertificateListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.CertificateListResult), args.Error(1)
}

func (m *MockCertificateService) Get(ctx context.Context, id string) (*model.Certificate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Certificate), args.Error(1)
}

func (m *MockCertificateService) Download(ctx context.Context, id string) (*model.Certificate, []byte, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Certificate), args.Get(1).([]byte), args.Error(2)
}

func (m *MockCertificateService) SendEmail(ctx context.Context, id, email string) (string, error) {
	args := m.Called(ctx, id, email)
	return args.String(0), args.Error(1)
}

func (m *MockCertificateService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
