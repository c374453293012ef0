package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"certigen/internal/model"
	"certigen/internal/repository"
)

// CertificatePostgres is a PostgreSQL implementation of repository.CertificateRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type CertificatePostgres struct {
	db *sql.DB
}

// NewCertificatePostgres creates a new CertificatePostgres repository.
func NewCertificatePostgres(db *sql.DB) *CertificatePostgres {
	return &CertificatePostgres{db: db}
}

var _ repository.CertificateRepository = (*CertificatePostgres)(nil)

// Create inserts a new certificate row and returns the stored record.
func (r *CertificatePostgres) Create(ctx context.Context, cert *model.Certificate) (*model.Certificate, error) {
	custom, err := marshalCustomFields(cert.CustomFields)
	if err != nil {
		return nil, err
	}

	const q = `
		INSERT INTO certificates (id, template_id, recipient_name, recipient_email, custom_fields, pdf_key, download_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, template_id, recipient_name, recipient_email, custom_fields, pdf_key, download_count, created_at
	`
	row := r.db.QueryRowContext(ctx, q,
		cert.ID,
		cert.TemplateID,
		cert.RecipientName,
		cert.RecipientEmail,
		custom,
		cert.PDFKey,
		cert.DownloadCount,
		cert.CreatedAt,
	)
	return scanCertificate(row)
}

// FindByID fetches a single certificate by its ID.
func (r *CertificatePostgres) FindByID(ctx context.Context, id string) (*model.Certificate, error) {
	const q = `
		SELECT id, template_id, recipient_name, recipient_email, custom_fields, pdf_key, download_count, created_at
		FROM certificates
		WHERE id = $1
	`
	return scanCertificate(r.db.QueryRowContext(ctx, q, id))
}

// List returns certificates using LIMIT/OFFSET pagination and a total count,
// newest first.
func (r *CertificatePostgres) List(ctx context.Context, pq repository.PageQuery) (*repository.PageResult[model.Certificate], error) {
	// Count total rows
	const qCount = `SELECT COUNT(*) FROM certificates`
	var total int
	if err := r.db.QueryRowContext(ctx, qCount).Scan(&total); err != nil {
		return nil, err
	}

	// Fetch page
	const qList = `
		SELECT id, template_id, recipient_name, recipient_email, custom_fields, pdf_key, download_count, created_at
		FROM certificates
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.QueryContext(ctx, qList, pq.Limit, pq.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Certificate, 0)
	for rows.Next() {
		cert, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *cert)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Certificate]{
		Items: items,
		Total: total,
	}, nil
}

// IncrementDownloadCount bumps the counter by one, or returns sql.ErrNoRows.
func (r *CertificatePostgres) IncrementDownloadCount(ctx context.Context, id string) error {
	const q = `
		UPDATE certificates
		SET download_count = download_count + 1
		WHERE id = $1
		RETURNING download_count
	`
	var count int
	return r.db.QueryRowContext(ctx, q, id).Scan(&count)
}

// Delete removes a certificate by ID. It does not return an error if the row does not exist.
func (r *CertificatePostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM certificates WHERE id = $1`
	res, err := r.db.ExecContext(ctx, q, id)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

func scanCertificate(row rowScanner) (*model.Certificate, error) {
	var (
		cert   model.Certificate
		custom []byte
	)
	if err := row.Scan(
		&cert.ID,
		&cert.TemplateID,
		&cert.RecipientName,
		&cert.RecipientEmail,
		&custom,
		&cert.PDFKey,
		&cert.DownloadCount,
		&cert.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(custom) > 0 {
		if err := json.Unmarshal(custom, &cert.CustomFields); err != nil {
			return nil, fmt.Errorf("decode custom_fields: %w", err)
		}
	}
	return &cert, nil
}

func marshalCustomFields(custom map[string]string) ([]byte, error) {
	if custom == nil {
		custom = map[string]string{}
	}
	b, err := json.Marshal(custom)
	if err != nil {
		return nil, fmt.Errorf("encode custom_fields: %w", err)
	}
	return b, nil
}
