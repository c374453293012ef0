package mocks

import (
	"context"
	"io"

	"certigen/internal/model"
	"certigen/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockTemplateService struct {
	mock.Mock
}

func (m *MockTemplateService) Create(ctx context.Context, r io.Reader, originalFilename, name string) (*model.Template, error) {
	args := m.Called(ctx, r, originalFilename, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateService) SaveFields(ctx context.Context, id string, fields []model.TextField) (*model.Template, error) {
	args := m.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateService) List(ctx context.Context, limit, offset int) (*service.TemplateListResult, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.TemplateListResult), args.Error(1)
}

func (m *MockTemplateService) Get(ctx context.Context, id string) (*model.Template, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (m *MockTemplateService) Background(ctx context.Context, tpl *model.Template) ([]byte, error) {
	args := m.Called(ctx, tpl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockTemplateService) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
