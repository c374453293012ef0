package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"certigen/internal/bulk"
	"certigen/internal/ingest"
	"certigen/internal/mail"
)

// Stream event types. A run emits exactly one terminal "complete" or "error"
// event; everything before it is progress.
const (
	EventConnected       = "connected"
	EventInfo            = "info"
	EventGenerating      = "generating"
	EventGenerationError = "generation_error"
	EventProgress        = "progress"
	EventComplete        = "complete"
	EventError           = "error"
)

// StreamEvent is one frame of the bulk-run progress stream. Field names mirror
// the wire format consumed by streaming clients; zero fields are omitted so
// each event type only carries what it means.
type StreamEvent struct {
	Type                   string            `json:"type"`
	Message                string            `json:"message,omitempty"`
	Current                int               `json:"current,omitempty"`
	Total                  int               `json:"total,omitempty"`
	Recipient              any               `json:"recipient,omitempty"`
	Status                 string            `json:"status,omitempty"`
	Percent                int               `json:"percent,omitempty"`
	Successful             int               `json:"successful,omitempty"`
	Failed                 int               `json:"failed,omitempty"`
	ElapsedTime            int64             `json:"elapsedTime,omitempty"`
	EstimatedTimeRemaining int64             `json:"estimatedTimeRemaining,omitempty"`
	Error                  string            `json:"error,omitempty"`
	Data                   *bulk.Report      `json:"data,omitempty"`
	Generation             *GenerationResult `json:"generation,omitempty"`
}

// GenerationResult summarizes the render phase of a bulk run.
type GenerationResult struct {
	Requested int `json:"requested"`
	Generated int `json:"generated"`
	Failed    int `json:"failed"`
}

// BulkRequest carries everything a bulk run needs, captured up front so the
// run can outlive the originating HTTP request context.
type BulkRequest struct {
	TemplateID string
	CSV        io.Reader

	// Optional SMTP credential overrides; the server defaults apply when empty.
	SMTPUsername string
	SMTPPassword string
}

// BulkService orchestrates a full bulk run: parse recipients, render one
// certificate per recipient, then dispatch the rendered documents by mail,
// reporting progress through a caller-supplied callback.
type BulkService interface {
	Run(ctx context.Context, req BulkRequest, emit func(StreamEvent))
}

type bulkService struct {
	templates TemplateService
	issuer    bulk.Issuer
	senders   mail.SenderFactory
	subject   string
	fromName  string
	delay     time.Duration
}

// NewBulkService constructs a new BulkService. The issuer is typically the
// CertificateService; the factory builds a sender per run so caller-supplied
// SMTP credentials stay scoped to their request.
func NewBulkService(
	templates TemplateService,
	issuer bulk.Issuer,
	senders mail.SenderFactory,
	subject, fromName string,
	delay time.Duration,
) BulkService {
	return &bulkService{
		templates: templates,
		issuer:    issuer,
		senders:   senders,
		subject:   subject,
		fromName:  fromName,
		delay:     delay,
	}
}

// Run executes the batch. It never returns an error: every outcome, including
// setup failures, is reported through the event stream, and the stream always
// ends with exactly one "complete" or "error" event.
func (s *bulkService) Run(ctx context.Context, req BulkRequest, emit func(StreamEvent)) {
	if emit == nil {
		emit = func(StreamEvent) {}
	}

	fail := func(msg string) {
		emit(StreamEvent{Type: EventError, Error: msg})
	}

	recipients, err := ingest.ParseRecipients(req.CSV)
	if err != nil {
		fail(err.Error())
		return
	}

	tpl, err := s.templates.Get(ctx, req.TemplateID)
	if err != nil {
		fail(err.Error())
		return
	}
	background, err := s.templates.Background(ctx, tpl)
	if err != nil {
		fail(err.Error())
		return
	}

	total := len(recipients)
	emit(StreamEvent{
		Type:    EventInfo,
		Message: fmt.Sprintf("Generating %d certificates...", total),
		Total:   total,
	})

	items := bulk.NewGenerator(s.issuer).GenerateAll(ctx, tpl, background, recipients, func(ev bulk.GenerateEvent) {
		switch ev.Stage {
		case bulk.StageGenerating:
			emit(StreamEvent{
				Type:      EventGenerating,
				Message:   fmt.Sprintf("Generating certificate %d/%d", ev.Current, ev.Total),
				Current:   ev.Current,
				Total:     ev.Total,
				Recipient: bulk.RecipientRef{Name: ev.Recipient.Name, Email: ev.Recipient.Email},
			})
		case bulk.StageError:
			emit(StreamEvent{
				Type:      EventGenerationError,
				Current:   ev.Current,
				Total:     ev.Total,
				Recipient: bulk.RecipientRef{Name: ev.Recipient.Name, Email: ev.Recipient.Email},
				Error:     ev.Err.Error(),
			})
		}
	})

	gen := &GenerationResult{Requested: total}
	dispatch := make([]bulk.DispatchItem, 0, len(items))
	for _, item := range items {
		if item.Err != nil {
			gen.Failed++
			continue
		}
		gen.Generated++
		dispatch = append(dispatch, bulk.DispatchItem{
			Recipient: item.Recipient,
			Filename:  "certificate-" + item.Certificate.ID + ".pdf",
			Document:  item.PDF,
		})
	}

	if len(dispatch) == 0 {
		fail("no certificates could be generated")
		return
	}

	emit(StreamEvent{
		Type:    EventInfo,
		Message: fmt.Sprintf("Sending %d emails...", len(dispatch)),
		Total:   len(dispatch),
	})

	sender := s.senders(req.SMTPUsername, req.SMTPPassword)
	dispatcher := bulk.NewDispatcher(sender, s.subject, s.fromName, s.delay)
	report := dispatcher.DispatchAll(ctx, dispatch, func(ev bulk.ProgressEvent) {
		emit(StreamEvent{
			Type:                   EventProgress,
			Status:                 string(ev.Type),
			Current:                ev.Current,
			Total:                  ev.Total,
			Percent:                ev.Percent,
			Recipient:              ev.Recipient,
			Successful:             ev.Successful,
			Failed:                 ev.Failed,
			ElapsedTime:            ev.ElapsedTime,
			EstimatedTimeRemaining: ev.EstimatedTimeRemaining,
			Error:                  ev.Error,
		})
	})

	emit(StreamEvent{
		Type:       EventComplete,
		Message:    fmt.Sprintf("Sent %d of %d emails", len(report.Successes), len(dispatch)),
		Successful: len(report.Successes),
		Failed:     len(report.Failures),
		Data:       report,
		Generation: gen,
	})
}
