package repository

import (
	"context"

	"certigen/internal/model"
)

// TemplateRepository defines data access for certificate templates using SQL
// queries only. No business logic here — strictly persistence operations.
type TemplateRepository interface {
	// Create inserts a new template record.
	// The caller provides ID and timestamps; the text field layout is stored as JSON.
	// Returns the stored template (may include values set by the DB).
	Create(ctx context.Context, tpl *model.Template) (*model.Template, error)

	// FindByID returns a template by its ID.
	FindByID(ctx context.Context, id string) (*model.Template, error)

	// List returns a paginated list of templates and total rows count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Template], error)

	// UpdateFields replaces the text field layout of a template and bumps
	// updated_at. Returns the updated template, or sql.ErrNoRows if absent.
	UpdateFields(ctx context.Context, id string, fields []model.TextField) (*model.Template, error)

	// Delete removes a template by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}
