package bulk

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"certigen/internal/mail"
	mailMocks "certigen/internal/mail/mocks"
)

func testItems(n int) []DispatchItem {
	recs := testRecipients(n)
	items := make([]DispatchItem, 0, n)
	for i, rec := range recs {
		items = append(items, DispatchItem{
			Recipient: rec,
			Filename:  fmt.Sprintf("certificate-%d.pdf", i+1),
			Document:  []byte("%PDF"),
		})
	}
	return items
}

// newTestDispatcher swaps the real sleep for a counter so tests stay fast.
func newTestDispatcher(sender mail.Sender) (*Dispatcher, *int) {
	d := NewDispatcher(sender, "Your Certificate", "CertiGen", DefaultSendDelay)
	sleeps := 0
	d.sleep = func(time.Duration) { sleeps++ }
	return d, &sleeps
}

func TestDispatchAll_AllSucceed(t *testing.T) {
	sender := new(mailMocks.MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return("<id@certigen>", nil).Times(3)

	d, sleeps := newTestDispatcher(sender)

	var events []ProgressEvent
	report := d.DispatchAll(context.Background(), testItems(3), func(ev ProgressEvent) {
		events = append(events, ev)
	})

	require.Len(t, report.Successes, 3)
	assert.Empty(t, report.Failures)
	for i, s := range report.Successes {
		assert.Equal(t, fmt.Sprintf("Recipient %d", i+1), s.Name)
		assert.Equal(t, "<id@certigen>", s.MessageID)
		assert.False(t, s.Timestamp.IsZero())
	}

	// One sending + one terminal event per item, alternating strictly.
	require.Len(t, events, 6)
	for i := 0; i < 3; i++ {
		sending, terminal := events[i*2], events[i*2+1]
		assert.Equal(t, EventSending, sending.Type)
		assert.Equal(t, EventSuccess, terminal.Type)
		assert.Equal(t, i+1, sending.Current)
		assert.Equal(t, i+1, terminal.Current)
		assert.Equal(t, 3, sending.Total)
		assert.Equal(t, sending.Recipient, terminal.Recipient)
		// The success counter includes the current item only in the
		// terminal event.
		assert.Equal(t, i, sending.Successful)
		assert.Equal(t, i+1, terminal.Successful)
	}

	// The pacing delay applies after every attempt.
	assert.Equal(t, 3, *sleeps)
	sender.AssertExpectations(t)
}

func TestDispatchAll_SecondSendFails(t *testing.T) {
	sender := new(mailMocks.MockSender)
	sendErr := errors.New("smtp: auth rejected")
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m mail.Message) bool {
		return m.To == "r2@example.com"
	})).Return("", sendErr)
	sender.On("Send", mock.Anything, mock.Anything).Return("<ok@certigen>", nil)

	d, sleeps := newTestDispatcher(sender)

	var events []ProgressEvent
	report := d.DispatchAll(context.Background(), testItems(3), func(ev ProgressEvent) {
		events = append(events, ev)
	})

	require.Len(t, report.Successes, 2)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "Recipient 1", report.Successes[0].Name)
	assert.Equal(t, "Recipient 3", report.Successes[1].Name)
	assert.Equal(t, "Recipient 2", report.Failures[0].Name)
	assert.Contains(t, report.Failures[0].Error, "auth rejected")
	assert.False(t, report.Failures[0].Timestamp.IsZero())

	// 3 sending + 3 terminal events, in strict recipient order.
	require.Len(t, events, 6)
	wantTypes := []EventType{EventSending, EventSuccess, EventSending, EventFailed, EventSending, EventSuccess}
	for i, want := range wantTypes {
		assert.Equal(t, want, events[i].Type, "event %d", i)
	}
	assert.Equal(t, "r2@example.com", events[3].Recipient.Email)
	assert.Contains(t, events[3].Error, "auth rejected")

	// Terminal counters after the failed item: 1 success, 1 failure.
	assert.Equal(t, 1, events[3].Successful)
	assert.Equal(t, 1, events[3].Failed)

	// Delay is unconditional, failure included.
	assert.Equal(t, 3, *sleeps)
}

func TestDispatchAll_ProgressMetrics(t *testing.T) {
	sender := new(mailMocks.MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return("<id@certigen>", nil)

	d, _ := newTestDispatcher(sender)

	var events []ProgressEvent
	d.DispatchAll(context.Background(), testItems(4), func(ev ProgressEvent) {
		events = append(events, ev)
	})

	require.Len(t, events, 8)
	assert.Equal(t, 25, events[0].Percent)
	assert.Equal(t, 50, events[2].Percent)
	assert.Equal(t, 75, events[4].Percent)
	assert.Equal(t, 100, events[6].Percent)

	// Sending and terminal events of one item carry identical metrics.
	for i := 0; i < 4; i++ {
		assert.Equal(t, events[i*2].Percent, events[i*2+1].Percent)
		assert.Equal(t, events[i*2].ElapsedTime, events[i*2+1].ElapsedTime)
		assert.Equal(t, events[i*2].EstimatedTimeRemaining, events[i*2+1].EstimatedTimeRemaining)
	}
}

func TestDispatchAll_PacingDelay(t *testing.T) {
	sender := new(mailMocks.MockSender)
	sender.On("Send", mock.Anything, mock.Anything).Return("<id@certigen>", nil)

	d := NewDispatcher(sender, "Your Certificate", "CertiGen", 20*time.Millisecond)

	start := time.Now()
	d.DispatchAll(context.Background(), testItems(3), nil)
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond, "three attempts pace at least 3 delays")
}

func TestDispatchAll_AttachesDocument(t *testing.T) {
	sender := new(mailMocks.MockSender)
	sender.On("Send", mock.Anything, mock.MatchedBy(func(m mail.Message) bool {
		return len(m.Attachments) == 1 &&
			m.Attachments[0].Filename == "certificate-1.pdf" &&
			m.Attachments[0].ContentType == "application/pdf" &&
			m.Subject == "Your Certificate"
	})).Return("<id@certigen>", nil).Once()

	d, _ := newTestDispatcher(sender)
	report := d.DispatchAll(context.Background(), testItems(1), nil)

	require.Len(t, report.Successes, 1)
	sender.AssertExpectations(t)
}

func TestDispatchAll_Empty(t *testing.T) {
	d, sleeps := newTestDispatcher(new(mailMocks.MockSender))

	called := false
	report := d.DispatchAll(context.Background(), nil, func(ProgressEvent) { called = true })

	assert.Empty(t, report.Successes)
	assert.Empty(t, report.Failures)
	assert.False(t, called)
	assert.Equal(t, 0, *sleeps)
}
