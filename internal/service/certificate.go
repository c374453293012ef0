package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"certigen/internal/mail"
	"certigen/internal/model"
	"certigen/internal/render"
	"certigen/internal/repository"
	"certigen/internal/storage"
)

var (
	ErrCertificateNotFound = errors.New("certificate not found")
	ErrRecipientRequired   = errors.New("recipient name is required")
	ErrEmailRequired       = errors.New("recipient email is required")
)

// CertificateListResult is the service-level DTO for paginated certificates.
type CertificateListResult struct {
	Items []model.Certificate `json:"data"`
	Total int                 `json:"total"`
}

// CertificateService defines the use cases for generating and delivering
// certificates.
type CertificateService interface {
	// Generate renders a single certificate from a template, stores the PDF,
	// persists the record, and returns both record and document bytes.
	Generate(ctx context.Context, templateID, recipientName string, customFields map[string]string) (*model.Certificate, []byte, error)

	// Preview renders a transient PNG of the template with the given field
	// values. Nothing is stored.
	Preview(ctx context.Context, templateID string, values map[string]string) ([]byte, error)

	// Issue renders and persists one certificate against an already-fetched
	// template and background. It backs the bulk generation loop, which fetches
	// the template once for the whole batch.
	Issue(ctx context.Context, tpl *model.Template, background []byte, rec model.Recipient) (*model.Certificate, []byte, error)

	// List returns certificates using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*CertificateListResult, error)

	// Get returns a single certificate by its ID.
	Get(ctx context.Context, id string) (*model.Certificate, error)

	// Download returns the certificate record and its PDF bytes, bumping the
	// download counter.
	Download(ctx context.Context, id string) (*model.Certificate, []byte, error)

	// SendEmail delivers an already-generated certificate to the given address.
	// Returns the mail message identifier.
	SendEmail(ctx context.Context, id, email string) (string, error)

	// Delete removes a certificate by ID from both storage and repository.
	Delete(ctx context.Context, id string) error
}

// certificateService is a concrete implementation of CertificateService.
type certificateService struct {
	store     storage.Storage
	repo      repository.CertificateRepository
	templates TemplateService
	renderer  *render.Renderer
	sender    mail.Sender
	subject   string
	fromName  string
}

// NewCertificateService constructs a new CertificateService.
func NewCertificateService(
	store storage.Storage,
	repo repository.CertificateRepository,
	templates TemplateService,
	renderer *render.Renderer,
	sender mail.Sender,
	subject, fromName string,
) CertificateService {
	return &certificateService{
		store:     store,
		repo:      repo,
		templates: templates,
		renderer:  renderer,
		sender:    sender,
		subject:   subject,
		fromName:  fromName,
	}
}

func (s *certificateService) Generate(ctx context.Context, templateID, recipientName string, customFields map[string]string) (*model.Certificate, []byte, error) {
	if recipientName == "" {
		return nil, nil, ErrRecipientRequired
	}
	tpl, err := s.templates.Get(ctx, templateID)
	if err != nil {
		return nil, nil, err
	}
	background, err := s.templates.Background(ctx, tpl)
	if err != nil {
		return nil, nil, err
	}

	rec := model.Recipient{Name: recipientName}
	return s.issue(ctx, tpl, background, rec, customFields)
}

func (s *certificateService) Preview(ctx context.Context, templateID string, values map[string]string) ([]byte, error) {
	tpl, err := s.templates.Get(ctx, templateID)
	if err != nil {
		return nil, err
	}
	background, err := s.templates.Background(ctx, tpl)
	if err != nil {
		return nil, err
	}
	return s.renderer.RenderPreview(tpl, background, values)
}

func (s *certificateService) Issue(ctx context.Context, tpl *model.Template, background []byte, rec model.Recipient) (*model.Certificate, []byte, error) {
	return s.issue(ctx, tpl, background, rec, nil)
}

// issue renders the PDF, uploads it, and persists the record. The storage
// object is rolled back if the DB save fails, mirroring template creation.
func (s *certificateService) issue(ctx context.Context, tpl *model.Template, background []byte, rec model.Recipient, customFields map[string]string) (*model.Certificate, []byte, error) {
	values := map[string]string{render.PrimaryNameField: rec.Name}
	for k, v := range customFields {
		values[k] = v
	}

	pdf, err := s.renderer.RenderPDF(tpl, background, values)
	if err != nil {
		return nil, nil, fmt.Errorf("render certificate: %w", err)
	}

	id := uuid.New().String()
	key := "certificates/" + id + ".pdf"
	if _, err := s.store.Put(ctx, key, bytes.NewReader(pdf), storage.PutObjectOptions{
		Size:        int64(len(pdf)),
		ContentType: "application/pdf",
	}); err != nil {
		return nil, nil, fmt.Errorf("upload to storage: %w", err)
	}

	cert := &model.Certificate{
		ID:             id,
		TemplateID:     tpl.ID,
		RecipientName:  rec.Name,
		RecipientEmail: rec.Email,
		CustomFields:   customFields,
		PDFKey:         key,
		CreatedAt:      time.Now().UTC(),
	}
	stored, err := s.repo.Create(ctx, cert)
	if err != nil {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, pdf, nil
}

// List returns paginated certificates without exposing repository types.
func (s *certificateService) List(ctx context.Context, limit, offset int) (*CertificateListResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if offset < 0 {
		offset = 0
	}

	res, err := s.repo.List(ctx, repository.PageQuery{Limit: limit, Offset: offset})
	if err != nil {
		return nil, err
	}
	return &CertificateListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a certificate by ID.
func (s *certificateService) Get(ctx context.Context, id string) (*model.Certificate, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	cert, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCertificateNotFound
		}
		return nil, err
	}
	return cert, nil
}

// Download fetches the PDF bytes and bumps the download counter. A counter
// failure does not block the download itself.
func (s *certificateService) Download(ctx context.Context, id string) (*model.Certificate, []byte, error) {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := storage.ReadAll(ctx, s.store, cert.PDFKey)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch certificate pdf: %w", err)
	}
	if err := s.repo.IncrementDownloadCount(ctx, id); err == nil {
		cert.DownloadCount++
	}
	return cert, pdf, nil
}

// SendEmail delivers the stored PDF as an attachment.
func (s *certificateService) SendEmail(ctx context.Context, id, email string) (string, error) {
	if email == "" {
		return "", ErrEmailRequired
	}
	cert, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	pdf, err := storage.ReadAll(ctx, s.store, cert.PDFKey)
	if err != nil {
		return "", fmt.Errorf("fetch certificate pdf: %w", err)
	}

	body, err := mail.CertificateBody(cert.RecipientName, s.fromName)
	if err != nil {
		return "", err
	}
	return s.sender.Send(ctx, mail.Message{
		To:       email,
		ToName:   cert.RecipientName,
		Subject:  s.subject,
		HTMLBody: body,
		Attachments: []mail.Attachment{{
			Filename:    "certificate-" + cert.ID + ".pdf",
			ContentType: "application/pdf",
			Content:     pdf,
		}},
	})
}

// Delete removes a certificate's PDF from storage, then deletes its record.
func (s *certificateService) Delete(ctx context.Context, id string) error {
	cert, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, cert.PDFKey); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return s.repo.Delete(ctx, id)
}
