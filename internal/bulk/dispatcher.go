package bulk

import (
	"context"
	"fmt"
	"time"

	"certigen/internal/mail"
	"certigen/internal/model"
)

// DefaultSendDelay paces outbound mail to stay under provider rate limits.
const DefaultSendDelay = 500 * time.Millisecond

// DispatchItem pairs a recipient with the rendered document to deliver.
type DispatchItem struct {
	Recipient model.Recipient
	Filename  string
	Document  []byte
}

// SendResult records one delivered message.
type SendResult struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	MessageID string    `json:"messageId"`
	Timestamp time.Time `json:"timestamp"`
}

// SendFailure records one failed delivery attempt.
type SendFailure struct {
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Report is the final partition of a dispatch run. Failures never mask the
// successes achieved before them.
type Report struct {
	Successes []SendResult  `json:"success"`
	Failures  []SendFailure `json:"failed"`
}

// Dispatcher sends one message per item, strictly in order, one at a time.
// Sequential sends are deliberate: they respect provider rate limits and keep
// the progress index meaningful. No attempt is retried.
type Dispatcher struct {
	sender   mail.Sender
	subject  string
	fromName string
	delay    time.Duration

	sleep func(time.Duration)
}

func NewDispatcher(sender mail.Sender, subject, fromName string, delay time.Duration) *Dispatcher {
	if delay <= 0 {
		delay = DefaultSendDelay
	}
	return &Dispatcher{
		sender:   sender,
		subject:  subject,
		fromName: fromName,
		delay:    delay,
		sleep:    time.Sleep,
	}
}

// DispatchAll delivers every item and returns the full success/failure
// partition. Before each attempt a "sending" event is emitted, after it a
// terminal "success" or "failed" event; both carry the same progress metrics
// captured at the start of the iteration. The pacing delay applies after
// every attempt, success or failure.
func (d *Dispatcher) DispatchAll(ctx context.Context, items []DispatchItem, onProgress func(ProgressEvent)) *Report {
	emit := func(ev ProgressEvent) {
		if onProgress != nil {
			onProgress(ev)
		}
	}

	report := &Report{
		Successes: make([]SendResult, 0, len(items)),
		Failures:  make([]SendFailure, 0),
	}
	prog := NewProgress(len(items))

	for i, item := range items {
		rec := item.Recipient
		prog.Current = i + 1
		prog.CurrentRecipient = rec.Name

		// Metrics are captured once per iteration so the sending and
		// terminal events of one item agree.
		percent := prog.Percent()
		elapsed := roundSeconds(prog.Elapsed())
		remaining := roundSeconds(prog.EstimateRemaining())

		base := ProgressEvent{
			Current:                prog.Current,
			Total:                  prog.Total,
			Percent:                percent,
			Recipient:              RecipientRef{Name: rec.Name, Email: rec.Email},
			ElapsedTime:            elapsed,
			EstimatedTimeRemaining: remaining,
		}

		sending := base
		sending.Type = EventSending
		sending.Successful = prog.Successful
		sending.Failed = prog.Failed
		emit(sending)
		prog.Log(fmt.Sprintf("sending %d/%d to %s", prog.Current, prog.Total, rec.Email))

		messageID, err := d.send(ctx, item)
		if err != nil {
			report.Failures = append(report.Failures, SendFailure{
				Name:      rec.Name,
				Email:     rec.Email,
				Error:     err.Error(),
				Timestamp: time.Now().UTC(),
			})
			prog.Failed++
			prog.Log(fmt.Sprintf("failed %s: %v", rec.Email, err))

			failed := base
			failed.Type = EventFailed
			failed.Successful = prog.Successful
			failed.Failed = prog.Failed
			failed.Error = err.Error()
			emit(failed)
		} else {
			report.Successes = append(report.Successes, SendResult{
				Name:      rec.Name,
				Email:     rec.Email,
				MessageID: messageID,
				Timestamp: time.Now().UTC(),
			})
			prog.Successful++
			prog.Log(fmt.Sprintf("sent %s (%s)", rec.Email, messageID))

			success := base
			success.Type = EventSuccess
			success.Successful = prog.Successful
			success.Failed = prog.Failed
			emit(success)
		}

		d.sleep(d.delay)
	}

	return report
}

func (d *Dispatcher) send(ctx context.Context, item DispatchItem) (string, error) {
	body, err := mail.CertificateBody(item.Recipient.Name, d.fromName)
	if err != nil {
		return "", err
	}
	return d.sender.Send(ctx, mail.Message{
		To:       item.Recipient.Email,
		ToName:   item.Recipient.Name,
		Subject:  d.subject,
		HTMLBody: body,
		Attachments: []mail.Attachment{{
			Filename:    item.Filename,
			ContentType: "application/pdf",
			Content:     item.Document,
		}},
	})
}

func roundSeconds(d time.Duration) int64 {
	return int64((d + 500*time.Millisecond) / time.Second)
}
