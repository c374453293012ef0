package handler

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"

	"certigen/internal/service"
)

// bulkGenerateStream handles the bulk run endpoint. The response is a
// Server-Sent Events stream: one "connected" frame, then every progress event
// of the run, ending with exactly one "complete" or "error" frame.
//
// The fiber context is only valid until the handler returns, while the stream
// writer runs after it. Everything the run needs is therefore captured from
// the request up front; the run itself is deliberately detached from the
// request context so an early client disconnect cannot abort a half-sent
// batch.
func bulkGenerateStream(bulkSvc service.BulkService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		templateID := c.FormValue("templateId")
		if _, err := uuid.Parse(templateID); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_ID", "invalid templateId format")
		}

		fh, err := c.FormFile("csv")
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_REQUIRED", "csv file is required")
		}
		f, err := fh.Open()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot open uploaded file")
		}
		csvData, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return writeError(c, fiber.StatusBadRequest, "FILE_OPEN_ERROR", "cannot read uploaded file")
		}

		req := service.BulkRequest{
			TemplateID:   templateID,
			CSV:          bytes.NewReader(csvData),
			SMTPUsername: c.FormValue("smtpUsername"),
			SMTPPassword: c.FormValue("smtpPassword"),
		}

		c.Set(fiber.HeaderContentType, "text/event-stream")
		c.Set(fiber.HeaderCacheControl, "no-cache")
		c.Set(fiber.HeaderConnection, "keep-alive")

		c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
			writeSSE(w, service.StreamEvent{Type: service.EventConnected, Message: "Connected to certificate generation stream"})
			bulkSvc.Run(context.Background(), req, func(ev service.StreamEvent) {
				writeSSE(w, ev)
			})
		}))
		return nil
	}
}

// writeSSE writes one event frame and flushes it immediately so clients see
// progress as it happens. Write errors mean the client went away; the run
// continues regardless and later writes fail the same silent way.
func writeSSE(w *bufio.Writer, ev service.StreamEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	w.WriteString("data: ")
	w.Write(payload)
	w.WriteString("\n\n")
	w.Flush()
}
