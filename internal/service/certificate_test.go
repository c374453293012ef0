package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"io"
	"strings"
	"testing"

	"certigen/internal/fontfit"
	"certigen/internal/mail"
	mailMocks "certigen/internal/mail/mocks"
	"certigen/internal/model"
	"certigen/internal/render"
	"certigen/internal/repository"
	repoMocks "certigen/internal/repository/mocks"
	"certigen/internal/storage"
	storeMocks "certigen/internal/storage/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeTemplateService is an in-package testify mock for TemplateService.
// The shared mocks package cannot be used here without an import cycle.
type fakeTemplateService struct {
	mock.Mock
}

var _ TemplateService = (*fakeTemplateService)(nil)

func (f *fakeTemplateService) Create(ctx context.Context, r io.Reader, originalFilename, name string) (*model.Template, error) {
	args := f.Called(ctx, r, originalFilename, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (f *fakeTemplateService) SaveFields(ctx context.Context, id string, fields []model.TextField) (*model.Template, error) {
	args := f.Called(ctx, id, fields)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (f *fakeTemplateService) List(ctx context.Context, limit, offset int) (*TemplateListResult, error) {
	args := f.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TemplateListResult), args.Error(1)
}

func (f *fakeTemplateService) Get(ctx context.Context, id string) (*model.Template, error) {
	args := f.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Template), args.Error(1)
}

func (f *fakeTemplateService) Background(ctx context.Context, tpl *model.Template) ([]byte, error) {
	args := f.Called(ctx, tpl)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (f *fakeTemplateService) Delete(ctx context.Context, id string) error {
	args := f.Called(ctx, id)
	return args.Error(0)
}

func newTestRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	fonts, err := fontfit.NewFontSet()
	require.NoError(t, err)
	return render.NewRenderer(fonts)
}

func certTestTemplate() *model.Template {
	return &model.Template{
		ID:     "tpl-id",
		Name:   "Cert",
		Width:  1122,
		Height: 794,
		TextFields: []model.TextField{{
			FieldID:    "recipientName",
			FieldName:  "Recipient Name",
			X:          20, Y: 40, Width: 60, Height: 15,
			FontSize:   48,
			FontFamily: "Arial",
			FontWeight: model.WeightBold,
			Alignment:  model.AlignCenter,
			Color:      "#000000",
		}},
	}
}

func TestCertificateService_Generate(t *testing.T) {
	ctx := context.Background()
	background := pngImage(t, 113, 80)

	t.Run("happy path", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockCertificateRepository)
		mTpl := new(fakeTemplateService)

		tpl := certTestTemplate()
		mTpl.On("Get", ctx, "tpl-id").Return(tpl, nil)
		mTpl.On("Background", ctx, tpl).Return(background, nil)

		mStore.On("Put", ctx, mock.MatchedBy(func(key string) bool {
			return strings.HasPrefix(key, "certificates/") && strings.HasSuffix(key, ".pdf")
		}), mock.Anything, mock.MatchedBy(func(opt storage.PutObjectOptions) bool {
			return opt.ContentType == "application/pdf" && opt.Size > 0
		})).Return(storage.ObjectInfo{}, nil)

		mRepo.On("Create", ctx, mock.MatchedBy(func(cert *model.Certificate) bool {
			return cert.RecipientName == "John Doe" && cert.TemplateID == "tpl-id" &&
				strings.HasPrefix(cert.PDFKey, "certificates/")
		})).Return(&model.Certificate{ID: "cert-id", RecipientName: "John Doe"}, nil)

		svc := NewCertificateService(mStore, mRepo, mTpl, newTestRenderer(t), nil, "Your Certificate", "CertiGen")
		cert, pdf, err := svc.Generate(ctx, "tpl-id", "John Doe", map[string]string{"course": "Go 101"})

		assert.NoError(t, err)
		assert.Equal(t, "cert-id", cert.ID)
		assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
		mTpl.AssertExpectations(t)
	})

	t.Run("missing recipient name", func(t *testing.T) {
		svc := NewCertificateService(nil, nil, nil, newTestRenderer(t), nil, "", "")
		_, _, err := svc.Generate(ctx, "tpl-id", "", nil)
		assert.ErrorIs(t, err, ErrRecipientRequired)
	})

	t.Run("template not found", func(t *testing.T) {
		mTpl := new(fakeTemplateService)
		mTpl.On("Get", ctx, "missing").Return(nil, ErrTemplateNotFound)

		svc := NewCertificateService(nil, nil, mTpl, newTestRenderer(t), nil, "", "")
		_, _, err := svc.Generate(ctx, "missing", "John Doe", nil)
		assert.ErrorIs(t, err, ErrTemplateNotFound)
	})

	t.Run("rollback on db failure", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockCertificateRepository)
		mTpl := new(fakeTemplateService)

		tpl := certTestTemplate()
		mTpl.On("Get", ctx, "tpl-id").Return(tpl, nil)
		mTpl.On("Background", ctx, tpl).Return(background, nil)
		mStore.On("Put", ctx, mock.Anything, mock.Anything, mock.Anything).Return(storage.ObjectInfo{}, nil)
		mRepo.On("Create", ctx, mock.Anything).Return(nil, errors.New("db fail"))
		mStore.On("Delete", ctx, mock.Anything).Return(nil)

		svc := NewCertificateService(mStore, mRepo, mTpl, newTestRenderer(t), nil, "", "")
		_, _, err := svc.Generate(ctx, "tpl-id", "John Doe", nil)

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "db save failed")
		mStore.AssertExpectations(t)
	})
}

func TestCertificateService_Preview(t *testing.T) {
	ctx := context.Background()
	background := pngImage(t, 113, 80)

	mTpl := new(fakeTemplateService)
	tpl := certTestTemplate()
	mTpl.On("Get", ctx, "tpl-id").Return(tpl, nil)
	mTpl.On("Background", ctx, tpl).Return(background, nil)

	svc := NewCertificateService(nil, nil, mTpl, newTestRenderer(t), nil, "", "")
	out, err := svc.Preview(ctx, "tpl-id", map[string]string{"recipientName": "Jane"})

	assert.NoError(t, err)
	// PNG magic bytes
	assert.True(t, bytes.HasPrefix(out, []byte("\x89PNG")))
	mTpl.AssertExpectations(t)
}

func TestCertificateService_Download(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path bumps counter", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockCertificateRepository)

		mRepo.On("FindByID", ctx, "cert-id").
			Return(&model.Certificate{ID: "cert-id", PDFKey: "certificates/cert-id.pdf", DownloadCount: 1}, nil)
		mStore.On("Get", ctx, "certificates/cert-id.pdf").
			Return(io.NopCloser(strings.NewReader("%PDF")), storage.ObjectInfo{}, nil)
		mRepo.On("IncrementDownloadCount", ctx, "cert-id").Return(nil)

		svc := NewCertificateService(mStore, mRepo, nil, nil, nil, "", "")
		cert, pdf, err := svc.Download(ctx, "cert-id")

		assert.NoError(t, err)
		assert.Equal(t, []byte("%PDF"), pdf)
		assert.Equal(t, 2, cert.DownloadCount)
		mRepo.AssertExpectations(t)
	})

	t.Run("counter failure does not block download", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockCertificateRepository)

		mRepo.On("FindByID", ctx, "cert-id").
			Return(&model.Certificate{ID: "cert-id", PDFKey: "certificates/cert-id.pdf", DownloadCount: 1}, nil)
		mStore.On("Get", ctx, "certificates/cert-id.pdf").
			Return(io.NopCloser(strings.NewReader("%PDF")), storage.ObjectInfo{}, nil)
		mRepo.On("IncrementDownloadCount", ctx, "cert-id").Return(errors.New("db fail"))

		svc := NewCertificateService(mStore, mRepo, nil, nil, nil, "", "")
		cert, pdf, err := svc.Download(ctx, "cert-id")

		assert.NoError(t, err)
		assert.Equal(t, []byte("%PDF"), pdf)
		assert.Equal(t, 1, cert.DownloadCount)
	})

	t.Run("not found", func(t *testing.T) {
		mRepo := new(repoMocks.MockCertificateRepository)
		mRepo.On("FindByID", ctx, "missing").Return(nil, sql.ErrNoRows)

		svc := NewCertificateService(nil, mRepo, nil, nil, nil, "", "")
		_, _, err := svc.Download(ctx, "missing")
		assert.ErrorIs(t, err, ErrCertificateNotFound)
	})
}

func TestCertificateService_SendEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockCertificateRepository)
		mSender := new(mailMocks.MockSender)

		mRepo.On("FindByID", ctx, "cert-id").
			Return(&model.Certificate{ID: "cert-id", RecipientName: "John Doe", PDFKey: "certificates/cert-id.pdf"}, nil)
		mStore.On("Get", ctx, "certificates/cert-id.pdf").
			Return(io.NopCloser(strings.NewReader("%PDF")), storage.ObjectInfo{}, nil)
		mSender.On("Send", ctx, mock.MatchedBy(func(m mail.Message) bool {
			return m.To == "john@example.com" &&
				m.Subject == "Your Certificate" &&
				len(m.Attachments) == 1 &&
				m.Attachments[0].ContentType == "application/pdf"
		})).Return("<id@certigen>", nil)

		svc := NewCertificateService(mStore, mRepo, nil, nil, mSender, "Your Certificate", "CertiGen")
		messageID, err := svc.SendEmail(ctx, "cert-id", "john@example.com")

		assert.NoError(t, err)
		assert.Equal(t, "<id@certigen>", messageID)
		mSender.AssertExpectations(t)
	})

	t.Run("missing email", func(t *testing.T) {
		svc := NewCertificateService(nil, nil, nil, nil, nil, "", "")
		_, err := svc.SendEmail(ctx, "cert-id", "")
		assert.ErrorIs(t, err, ErrEmailRequired)
	})
}

func TestCertificateService_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockCertificateRepository)

		mRepo.On("FindByID", ctx, "cert-id").
			Return(&model.Certificate{ID: "cert-id", PDFKey: "certificates/cert-id.pdf"}, nil)
		mStore.On("Delete", ctx, "certificates/cert-id.pdf").Return(nil)
		mRepo.On("Delete", ctx, "cert-id").Return(nil)

		svc := NewCertificateService(mStore, mRepo, nil, nil, nil, "", "")
		assert.NoError(t, svc.Delete(ctx, "cert-id"))
		mStore.AssertExpectations(t)
		mRepo.AssertExpectations(t)
	})

	t.Run("storage delete error keeps db row", func(t *testing.T) {
		mStore := new(storeMocks.MockStorage)
		mRepo := new(repoMocks.MockCertificateRepository)

		mRepo.On("FindByID", ctx, "cert-id").
			Return(&model.Certificate{ID: "cert-id", PDFKey: "certificates/cert-id.pdf"}, nil)
		mStore.On("Delete", ctx, "certificates/cert-id.pdf").Return(errors.New("storage fail"))

		svc := NewCertificateService(mStore, mRepo, nil, nil, nil, "", "")
		err := svc.Delete(ctx, "cert-id")
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "delete storage")
	})
}

func TestCertificateService_List(t *testing.T) {
	ctx := context.Background()

	mRepo := new(repoMocks.MockCertificateRepository)
	mRepo.On("List", ctx, repository.PageQuery{Limit: 10, Offset: 0}).
		Return(&repository.PageResult[model.Certificate]{
			Items: []model.Certificate{{ID: "1"}},
			Total: 1,
		}, nil)

	svc := NewCertificateService(nil, mRepo, nil, nil, nil, "", "")
	res, err := svc.List(ctx, 0, -1)

	assert.NoError(t, err)
	assert.Len(t, res.Items, 1)
	assert.Equal(t, 1, res.Total)
	mRepo.AssertExpectations(t)
}
