package handler

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"certigen/internal/model"
	"certigen/internal/service"
)

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
// Keep handlers minimal: request parsing, service calls, and error mapping only.
func RegisterRoutes(app *fiber.App, db *sql.DB, tplSvc service.TemplateService, certSvc service.CertificateService, bulkSvc service.BulkService) {
	// Serve OpenAPI spec and Swagger UI
	app.Get("/openapi.yaml", func(c *fiber.Ctx) error {
		c.Type("yaml")
		return c.SendFile("openapi.yaml")
	})
	app.Get("/docs", func(c *fiber.Ctx) error {
		html := `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <title>API Docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>
    window.ui = SwaggerUIBundle({
      url: '/openapi.yaml',
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: 'BaseLayout'
    });
  </script>
</body>
</html>`
		return c.Type("html").SendString(html)
	})

	// Health endpoint: checks DB connectivity only
	app.Get("/health", func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			return writeError(c, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "dependency unavailable")
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "healthy"})
	})

	// Simple liveness probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})

	api := app.Group("/api")

	// Upload template background (multipart/form-data, field name: template;
	// optional name field)
	api.Post("/templates/upload", func(c *fiber.Ctx) error {
		fh, err := c.FormFile("template")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "template image is required")
		}

		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		defer f.Close()

		tpl, err := tplSvc.Create(c.UserContext(), f, fh.Filename, c.FormValue("name"))
		if err != nil {
			switch {
			case errors.Is(err, model.ErrAspectRatio), errors.Is(err, model.ErrInvalidDimensions):
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			case errors.Is(err, service.ErrUnsupportedImage):
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "unsupported image format")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.Status(fiber.StatusCreated).JSON(tpl)
	})

	// Replace the text field layout of a template
	api.Post("/templates/:id/fields", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}

		var body struct {
			TextFields []model.TextField `json:"textFields"`
		}
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		}

		tpl, err := tplSvc.SaveFields(c.UserContext(), id, body.TextFields)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrTemplateNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "template not found")
			case errors.Is(err, model.ErrInvalidField),
				errors.Is(err, model.ErrInvalidFontWeight),
				errors.Is(err, model.ErrInvalidAlignment):
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(tpl)
	})

	// List templates with limit & offset
	api.Get("/templates", func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}
		res, err := tplSvc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	})

	// Get template by ID
	api.Get("/templates/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		tpl, err := tplSvc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrTemplateNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "template not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(tpl)
	})

	// Delete template by ID
	api.Delete("/templates/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := tplSvc.Delete(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrTemplateNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "template not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})

	// Generate one certificate
	api.Post("/certificates/generate", func(c *fiber.Ctx) error {
		var body struct {
			TemplateID    string            `json:"templateId"`
			RecipientName string            `json:"recipientName"`
			CustomFields  map[string]string `json:"customFields"`
		}
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		}
		if _, err := uuid.Parse(body.TemplateID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid templateId format")
		}

		cert, _, err := certSvc.Generate(c.UserContext(), body.TemplateID, body.RecipientName, body.CustomFields)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrRecipientRequired):
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "recipientName is required")
			case errors.Is(err, service.ErrTemplateNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "template not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "RENDER_ERROR", "certificate generation failed")
		}
		return c.Status(fiber.StatusCreated).JSON(cert)
	})

	// Render a transient PNG preview; nothing is stored
	api.Post("/certificates/preview", func(c *fiber.Ctx) error {
		var body struct {
			TemplateID string            `json:"templateId"`
			Values     map[string]string `json:"values"`
		}
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		}
		if _, err := uuid.Parse(body.TemplateID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid templateId format")
		}

		png, err := certSvc.Preview(c.UserContext(), body.TemplateID, body.Values)
		if err != nil {
			if errors.Is(err, service.ErrTemplateNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "template not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "RENDER_ERROR", "preview rendering failed")
		}
		c.Type("png")
		return c.Send(png)
	})

	// Bulk generate + mail, streaming progress as SSE
	api.Post("/certificates/bulk-generate-stream", bulkGenerateStream(bulkSvc))

	// List certificates with limit & offset
	api.Get("/certificates", func(c *fiber.Ctx) error {
		limit, err := strconv.Atoi(c.Query("limit", "10"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_LIMIT", "invalid limit")
		}
		offset, err := strconv.Atoi(c.Query("offset", "0"))
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_OFFSET", "invalid offset")
		}
		res, err := certSvc.List(c.UserContext(), limit, offset)
		if err != nil {
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(res)
	})

	// Download the generated PDF
	api.Get("/certificates/:id/download", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		cert, pdf, err := certSvc.Download(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrCertificateNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "certificate not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="certificate-`+cert.ID+`.pdf"`)
		c.Type("pdf")
		return c.Send(pdf)
	})

	// Get certificate by ID
	api.Get("/certificates/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		cert, err := certSvc.Get(c.UserContext(), id)
		if err != nil {
			if errors.Is(err, service.ErrCertificateNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "certificate not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.JSON(cert)
	})

	// Re-send an already generated certificate by mail
	api.Post("/certificates/:id/send-email", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		var body struct {
			Email string `json:"email"`
		}
		if err := c.BodyParser(&body); err != nil {
			return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "invalid request body")
		}

		messageID, err := certSvc.SendEmail(c.UserContext(), id, body.Email)
		if err != nil {
			switch {
			case errors.Is(err, service.ErrEmailRequired):
				return writeError(c, fiber.StatusBadRequest, "VALIDATION_ERROR", "email is required")
			case errors.Is(err, service.ErrCertificateNotFound):
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "certificate not found")
			}
			return writeError(c, fiber.StatusBadGateway, "TRANSPORT_ERROR", "email delivery failed")
		}
		return c.JSON(fiber.Map{"messageId": messageID})
	})

	// Delete certificate by ID
	api.Delete("/certificates/:id", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, err := uuid.Parse(id); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid id format")
		}
		if err := certSvc.Delete(c.UserContext(), id); err != nil {
			if errors.Is(err, service.ErrCertificateNotFound) {
				return writeError(c, fiber.StatusNotFound, "NOT_FOUND", "certificate not found")
			}
			return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
		}
		return c.SendStatus(fiber.StatusNoContent)
	})
}
