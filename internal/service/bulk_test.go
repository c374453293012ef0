package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"certigen/internal/mail"
	mailMocks "certigen/internal/mail/mocks"
	"certigen/internal/model"
)

// stubIssuer adapts a function to bulk.Issuer.
type stubIssuer func(ctx context.Context, tpl *model.Template, background []byte, rec model.Recipient) (*model.Certificate, []byte, error)

func (f stubIssuer) Issue(ctx context.Context, tpl *model.Template, background []byte, rec model.Recipient) (*model.Certificate, []byte, error) {
	return f(ctx, tpl, background, rec)
}

const bulkTestCSV = "name,email\nJohn Doe,john@example.com\nJane,jane@example.com\n"

func okIssuer() stubIssuer {
	return func(_ context.Context, _ *model.Template, _ []byte, rec model.Recipient) (*model.Certificate, []byte, error) {
		return &model.Certificate{ID: "cert-" + rec.Name}, []byte("%PDF"), nil
	}
}

func collectEvents(t *testing.T, svc BulkService, req BulkRequest) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	svc.Run(context.Background(), req, func(ev StreamEvent) {
		events = append(events, ev)
	})
	return events
}

func eventTypes(events []StreamEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Type)
	}
	return out
}

func TestBulkService_Run(t *testing.T) {
	mTpl := new(fakeTemplateService)
	tpl := certTestTemplate()
	mTpl.On("Get", mock.Anything, "tpl-id").Return(tpl, nil)
	mTpl.On("Background", mock.Anything, tpl).Return([]byte("bg"), nil)

	sender := new(mailMocks.MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return("<id@certigen>", nil).Times(2)

	factory := func(username, password string) mail.Sender {
		assert.Equal(t, "user@example.com", username)
		assert.Equal(t, "app-password", password)
		return sender
	}

	svc := NewBulkService(mTpl, okIssuer(), factory, "Your Certificate", "CertiGen", time.Millisecond)
	events := collectEvents(t, svc, BulkRequest{
		TemplateID:   "tpl-id",
		CSV:          strings.NewReader(bulkTestCSV),
		SMTPUsername: "user@example.com",
		SMTPPassword: "app-password",
	})

	// info, generating x2, info, (sending+terminal) x2, complete
	require.Equal(t, []string{
		EventInfo,
		EventGenerating, EventGenerating,
		EventInfo,
		EventProgress, EventProgress, EventProgress, EventProgress,
		EventComplete,
	}, eventTypes(events))

	assert.Equal(t, "Generating 2 certificates...", events[0].Message)
	assert.Equal(t, 2, events[0].Total)

	// Dispatcher events arrive wrapped as "progress" with the phase in status.
	assert.Equal(t, "sending", events[4].Status)
	assert.Equal(t, "success", events[5].Status)

	terminal := events[len(events)-1]
	assert.Equal(t, 2, terminal.Successful)
	assert.Equal(t, 0, terminal.Failed)
	require.NotNil(t, terminal.Data)
	assert.Len(t, terminal.Data.Successes, 2)
	require.NotNil(t, terminal.Generation)
	assert.Equal(t, 2, terminal.Generation.Generated)

	sender.AssertExpectations(t)
	mTpl.AssertExpectations(t)
}

func TestBulkService_Run_GenerationFailureIsSkippedNotFatal(t *testing.T) {
	mTpl := new(fakeTemplateService)
	tpl := certTestTemplate()
	mTpl.On("Get", mock.Anything, "tpl-id").Return(tpl, nil)
	mTpl.On("Background", mock.Anything, tpl).Return([]byte("bg"), nil)

	issuer := stubIssuer(func(_ context.Context, _ *model.Template, _ []byte, rec model.Recipient) (*model.Certificate, []byte, error) {
		if rec.Name == "John Doe" {
			return nil, nil, errors.New("render boom")
		}
		return &model.Certificate{ID: "cert-ok"}, []byte("%PDF"), nil
	})

	sender := new(mailMocks.MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return("<id@certigen>", nil).Once()
	factory := func(string, string) mail.Sender { return sender }

	svc := NewBulkService(mTpl, issuer, factory, "Your Certificate", "CertiGen", time.Millisecond)
	events := collectEvents(t, svc, BulkRequest{
		TemplateID: "tpl-id",
		CSV:        strings.NewReader(bulkTestCSV),
	})

	types := eventTypes(events)
	assert.Contains(t, types, EventGenerationError)
	assert.Equal(t, EventComplete, types[len(types)-1])

	terminal := events[len(events)-1]
	require.NotNil(t, terminal.Generation)
	assert.Equal(t, 2, terminal.Generation.Requested)
	assert.Equal(t, 1, terminal.Generation.Generated)
	assert.Equal(t, 1, terminal.Generation.Failed)

	// Only the successfully generated certificate was mailed.
	sender.AssertExpectations(t)
}

func TestBulkService_Run_BadCSV(t *testing.T) {
	svc := NewBulkService(nil, nil, nil, "", "", time.Millisecond)
	events := collectEvents(t, svc, BulkRequest{
		TemplateID: "tpl-id",
		CSV:        strings.NewReader("name,email\n"),
	})

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Contains(t, events[0].Error, "no valid recipients")
}

func TestBulkService_Run_TemplateMissing(t *testing.T) {
	mTpl := new(fakeTemplateService)
	mTpl.On("Get", mock.Anything, "missing").Return(nil, ErrTemplateNotFound)

	svc := NewBulkService(mTpl, nil, nil, "", "", time.Millisecond)
	events := collectEvents(t, svc, BulkRequest{
		TemplateID: "missing",
		CSV:        strings.NewReader(bulkTestCSV),
	})

	require.Len(t, events, 1)
	assert.Equal(t, EventError, events[0].Type)
	assert.Contains(t, events[0].Error, "template not found")
}

func TestBulkService_Run_AllGenerationsFail(t *testing.T) {
	mTpl := new(fakeTemplateService)
	tpl := certTestTemplate()
	mTpl.On("Get", mock.Anything, "tpl-id").Return(tpl, nil)
	mTpl.On("Background", mock.Anything, tpl).Return([]byte("bg"), nil)

	issuer := stubIssuer(func(context.Context, *model.Template, []byte, model.Recipient) (*model.Certificate, []byte, error) {
		return nil, nil, errors.New("render boom")
	})

	svc := NewBulkService(mTpl, issuer, func(string, string) mail.Sender {
		t.Fatal("no sender should be built when nothing was generated")
		return nil
	}, "", "", time.Millisecond)

	events := collectEvents(t, svc, BulkRequest{
		TemplateID: "tpl-id",
		CSV:        strings.NewReader(bulkTestCSV),
	})

	types := eventTypes(events)
	assert.Equal(t, EventError, types[len(types)-1])

	// Exactly one terminal event.
	terminals := 0
	for _, typ := range types {
		if typ == EventError || typ == EventComplete {
			terminals++
		}
	}
	assert.Equal(t, 1, terminals)
}
