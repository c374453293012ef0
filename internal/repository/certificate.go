package repository

import (
	"context"

	"certigen/internal/model"
)

// CertificateRepository defines data access for generated certificates using
// SQL queries only. No business logic here — strictly persistence operations.
type CertificateRepository interface {
	// Create inserts a new certificate record.
	// Custom field values are stored as JSON alongside the recipient.
	Create(ctx context.Context, cert *model.Certificate) (*model.Certificate, error)

	// FindByID returns a certificate by its ID.
	FindByID(ctx context.Context, id string) (*model.Certificate, error)

	// List returns a paginated list of certificates, newest first, and total rows count.
	List(ctx context.Context, pq PageQuery) (*PageResult[model.Certificate], error)

	// IncrementDownloadCount bumps the download counter by one.
	// Returns sql.ErrNoRows if the certificate does not exist.
	IncrementDownloadCount(ctx context.Context, id string) error

	// Delete removes a certificate by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}
