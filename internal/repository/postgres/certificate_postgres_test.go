package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"certigen/internal/model"
	"certigen/internal/repository"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
)

func TestCertificatePostgres_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewCertificatePostgres(db)
	ctx := context.Background()

	now := time.Now().UTC()
	cert := &model.Certificate{
		ID:             "cert-uuid",
		TemplateID:     "tpl-uuid",
		RecipientName:  "John Doe",
		RecipientEmail: "john@example.com",
		CustomFields:   map[string]string{"course": "Go 101"},
		PDFKey:         "certificates/cert-uuid.pdf",
		DownloadCount:  0,
		CreatedAt:      now,
	}
	custom := []byte(`{"course":"Go 101"}`)

	rows := sqlmock.NewRows([]string{"id", "template_id", "recipient_name", "recipient_email", "custom_fields", "pdf_key", "download_count", "created_at"}).
		AddRow(cert.ID, cert.TemplateID, cert.RecipientName, cert.RecipientEmail, custom, cert.PDFKey, cert.DownloadCount, cert.CreatedAt)

	mock.ExpectQuery("INSERT INTO certificates").
		WithArgs(cert.ID, cert.TemplateID, cert.RecipientName, cert.RecipientEmail, custom, cert.PDFKey, cert.DownloadCount, cert.CreatedAt).
		WillReturnRows(rows)

	result, err := repo.Create(ctx, cert)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, cert.ID, result.ID)
	assert.Equal(t, "Go 101", result.CustomFields["course"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCertificatePostgres_FindByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewCertificatePostgres(db)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows([]string{"id", "template_id", "recipient_name", "recipient_email", "custom_fields", "pdf_key", "download_count", "created_at"}).
			AddRow("cert-id", "tpl-id", "Jane", "jane@example.com", []byte(`{}`), "certificates/cert-id.pdf", 2, time.Now())

		mock.ExpectQuery("SELECT (.+) FROM certificates WHERE id = ?").
			WithArgs("cert-id").
			WillReturnRows(rows)

		cert, err := repo.FindByID(ctx, "cert-id")

		assert.NoError(t, err)
		assert.NotNil(t, cert)
		assert.Equal(t, "cert-id", cert.ID)
		assert.Equal(t, 2, cert.DownloadCount)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM certificates WHERE id = ?").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		cert, err := repo.FindByID(ctx, "missing")

		assert.ErrorIs(t, err, sql.ErrNoRows)
		assert.Nil(t, cert)
	})
}

func TestCertificatePostgres_List(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewCertificatePostgres(db)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("SELECT COUNT\\(\\*\\) FROM certificates").
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

		rows := sqlmock.NewRows([]string{"id", "template_id", "recipient_name", "recipient_email", "custom_fields", "pdf_key", "download_count", "created_at"}).
			AddRow("cert-id", "tpl-id", "Jane", "jane@example.com", []byte(`{}`), "certificates/cert-id.pdf", 0, time.Now())

		mock.ExpectQuery("SELECT (.+) FROM certificates ORDER BY").
			WithArgs(10, 0).
			WillReturnRows(rows)

		res, err := repo.List(ctx, repository.PageQuery{Limit: 10, Offset: 0})

		assert.NoError(t, err)
		assert.Equal(t, 1, res.Total)
		assert.Len(t, res.Items, 1)
	})
}

func TestCertificatePostgres_IncrementDownloadCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewCertificatePostgres(db)
	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery("UPDATE certificates").
			WithArgs("cert-id").
			WillReturnRows(sqlmock.NewRows([]string{"download_count"}).AddRow(3))

		assert.NoError(t, repo.IncrementDownloadCount(ctx, "cert-id"))
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("UPDATE certificates").
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		assert.ErrorIs(t, repo.IncrementDownloadCount(ctx, "missing"), sql.ErrNoRows)
	})
}

func TestCertificatePostgres_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	defer db.Close()

	repo := NewCertificatePostgres(db)
	ctx := context.Background()

	mock.ExpectExec("DELETE FROM certificates WHERE id = ?").
		WithArgs("cert-id").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = repo.Delete(ctx, "cert-id")

	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
