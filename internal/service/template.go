package service

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"certigen/internal/model"
	"certigen/internal/repository"
	"certigen/internal/storage"
)

var (
	ErrIDRequired       = errors.New("id is required")
	ErrTemplateNotFound = errors.New("template not found")
	ErrReaderNil        = errors.New("reader is nil")
	ErrUnsupportedImage = errors.New("unsupported template image format")
)

// presignedImageValidity caps how long a persisted background URL stays
// fetchable; S3-compatible backends allow at most seven days.
const presignedImageValidity = 7 * 24 * time.Hour

// TemplateListResult is the service-level DTO for paginated templates.
type TemplateListResult struct {
	Items []model.Template `json:"data"`
	Total int              `json:"total"`
}

// TemplateService defines the use cases for handling certificate templates.
type TemplateService interface {
	// Create uploads a background image to object storage, validates its
	// dimensions against the A4 landscape ratio, saves metadata to DB, and
	// rolls back storage if DB save fails.
	// - originalFilename is used only to extract extension; the stored object
	//   name is UUID + original extension.
	Create(ctx context.Context, r io.Reader, originalFilename, name string) (*model.Template, error)

	// SaveFields validates and persists a replacement text field layout.
	SaveFields(ctx context.Context, id string, fields []model.TextField) (*model.Template, error)

	// List returns templates using limit/offset and a total count.
	List(ctx context.Context, limit, offset int) (*TemplateListResult, error)

	// Get returns a single template by its ID.
	Get(ctx context.Context, id string) (*model.Template, error)

	// Background returns the raw background image bytes of a template.
	Background(ctx context.Context, tpl *model.Template) ([]byte, error)

	// Delete removes a template by ID from both storage and repository.
	Delete(ctx context.Context, id string) error
}

// templateService is a concrete implementation of TemplateService.
type templateService struct {
	store storage.Storage
	repo  repository.TemplateRepository
}

// NewTemplateService constructs a new TemplateService.
func NewTemplateService(store storage.Storage, repo repository.TemplateRepository) TemplateService {
	return &templateService{store: store, repo: repo}
}

func (s *templateService) Create(ctx context.Context, r io.Reader, originalFilename, name string) (*model.Template, error) {
	if r == nil {
		return nil, ErrReaderNil
	}

	// The image must be held in memory anyway: dimensions are read before the
	// upload and the upload needs a sized reader.
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read template image: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if err := model.ValidateDimensions(cfg.Width, cfg.Height); err != nil {
		return nil, err
	}

	ext := filepath.Ext(originalFilename)
	if ext == "" {
		ext = "." + format
	}
	key := filepath.ToSlash(filepath.Join("templates", uuid.New().String()+ext))

	// Upload to object storage
	if _, err := s.store.Put(ctx, key, bytes.NewReader(data), storage.PutObjectOptions{
		Size:        int64(len(data)),
		ContentType: "image/" + format,
		Metadata: map[string]string{
			"original-filename": originalFilename,
		},
	}); err != nil {
		return nil, fmt.Errorf("upload to storage: %w", err)
	}

	imageURL, err := s.store.PresignGet(ctx, key, presignedImageValidity)
	if err != nil {
		imageURL = "" // preview clients re-request the URL; persistence must not fail on it
	}

	if name == "" {
		name = originalFilename
	}
	now := time.Now().UTC()
	tpl := &model.Template{
		ID:         uuid.New().String(),
		Name:       name,
		ImageKey:   key,
		ImageURL:   imageURL,
		Width:      cfg.Width,
		Height:     cfg.Height,
		TextFields: []model.TextField{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	stored, err := s.repo.Create(ctx, tpl)
	if err != nil {
		// Rollback: delete the object from storage
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			return nil, fmt.Errorf("db save failed: %v; rollback delete failed: %v", err, delErr)
		}
		return nil, fmt.Errorf("db save failed: %w", err)
	}
	return stored, nil
}

// SaveFields validates the layout, then replaces it atomically.
func (s *templateService) SaveFields(ctx context.Context, id string, fields []model.TextField) (*model.Template, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	if err := model.ValidateTextFields(fields); err != nil {
		return nil, err
	}
	tpl, err := s.repo.UpdateFields(ctx, id, fields)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return tpl, nil
}

// List returns paginated templates without exposing repository types.
func (s *templateService) List(ctx context.Context, limit, offset int) (*TemplateListResult, error) {
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
	return &TemplateListResult{Items: res.Items, Total: res.Total}, nil
}

// Get returns a template by ID.
func (s *templateService) Get(ctx context.Context, id string) (*model.Template, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	return tpl, nil
}

// Background fetches the template's image bytes from object storage.
func (s *templateService) Background(ctx context.Context, tpl *model.Template) ([]byte, error) {
	if tpl == nil || tpl.ImageKey == "" {
		return nil, ErrTemplateNotFound
	}
	data, err := storage.ReadAll(ctx, s.store, tpl.ImageKey)
	if err != nil {
		return nil, fmt.Errorf("fetch template background: %w", err)
	}
	return data, nil
}

// Delete removes a template's background from storage, then deletes its record.
// Certificate rows cascade at the database level.
func (s *templateService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrIDRequired
	}
	tpl, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTemplateNotFound
		}
		return err
	}
	// Delete from storage first; if this fails, keep DB row to avoid orphaned storage reference loss
	if err := s.store.Delete(ctx, tpl.ImageKey); err != nil {
		return fmt.Errorf("delete storage: %w", err)
	}
	return s.repo.Delete(ctx, id)
}
