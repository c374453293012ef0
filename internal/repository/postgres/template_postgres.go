package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"certigen/internal/model"
	"certigen/internal/repository"
)

// TemplatePostgres is a PostgreSQL implementation of repository.TemplateRepository.
// It uses database/sql with parameterized queries and contains no business logic.
// The text field layout is persisted as a JSONB column.
type TemplatePostgres struct {
	db *sql.DB
}

// NewTemplatePostgres creates a new TemplatePostgres repository.
func NewTemplatePostgres(db *sql.DB) *TemplatePostgres {
	return &TemplatePostgres{db: db}
}

var _ repository.TemplateRepository = (*TemplatePostgres)(nil)

// Create inserts a new template row and returns the stored record.
func (r *TemplatePostgres) Create(ctx context.Context, tpl *model.Template) (*model.Template, error) {
	fields, err := marshalFields(tpl.TextFields)
	if err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO templates (id, name, image_key, image_url, width, height, text_fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, name, image_key, image_url, width, height, text_fields, created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, q,
		tpl.ID,
		tpl.Name,
		tpl.ImageKey,
		tpl.ImageURL,
		tpl.Width,
		tpl.Height,
		fields,
		tpl.CreatedAt,
		tpl.UpdatedAt,
	)
	return scanTemplate(row)
}

// FindByID fetches a single template by its ID.
func (r *TemplatePostgres) FindByID(ctx context.Context, id string) (*model.Template, error) {
	const q = `
		SELECT id, name, image_key, image_url, width, height, text_fields, created_at, updated_at
		FROM templates
		WHERE id = $1
	`
	return scanTemplate(r.db.QueryRowContext(ctx, q, id))
}

// List returns templates using LIMIT/OFFSET pagination and a total count.
func (r *TemplatePostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Template], error) {
	// Count total rows
	const qCount = `SELECT COUNT(*) FROM templates`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	// Fetch page
	const qList = `
		SELECT id, name, image_key, image_url, width, height, text_fields, created_at, updated_at
		FROM templates
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Template, 0)
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Template]{
		Items: items,
		Total: total,
	}, nil
}

// UpdateFields replaces the text field layout and bumps updated_at.
func (r *TemplatePostgres) UpdateFields(ctx context.Context, id string, fields []model.TextField) (*model.Template, error) {
	payload, err := marshalFields(fields)
	if err != nil {
		return nil, err
	}

	const q = `
		UPDATE templates
		SET text_fields = $2, updated_at = now()
		WHERE id = $1
		RETURNING id, name, image_key, image_url, width, height, text_fields, created_at, updated_at
	`
	return scanTemplate(r.db.QueryRowContext(ctx, q, id, payload))
}

// Delete removes a template by ID. It does not return an error if the row does not exist.
func (r *TemplatePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM templates WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*model.Template, error) {
	var (
		tpl    model.Template
		fields []byte
	)
	if err := row.Scan(
		&tpl.ID,
		&tpl.Name,
		&tpl.ImageKey,
		&tpl.ImageURL,
		&tpl.Width,
		&tpl.Height,
		&fields,
		&tpl.CreatedAt,
		&tpl.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		if err := json.Unmarshal(fields, &tpl.TextFields); err != nil {
			return nil, fmt.Errorf("decode text_fields: %w", err)
		}
	}
	if tpl.TextFields == nil {
		tpl.TextFields = []model.TextField{}
	}
	return &tpl, nil
}

func marshalFields(fields []model.TextField) ([]byte, error) {
	if fields == nil {
		fields = []model.TextField{}
	}
	b, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode text_fields: %w", err)
	}
	return b, nil
}
