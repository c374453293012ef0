package mail

import "context"

// Package mail abstracts outbound email delivery. The dispatcher only depends
// on the Sender interface; the SMTP implementation lives in smtp.go.

// Attachment is one file attached to an outgoing message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Message is a fully composed outgoing email.
type Message struct {
	To          string
	ToName      string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// Sender delivers a single message and returns the message identifier it was
// sent under. Auth and network failures surface as transport errors.
type Sender interface {
	Send(ctx context.Context, msg Message) (string, error)
}

// SenderFactory builds a Sender bound to per-request credentials. Batch runs
// accept caller-supplied SMTP credentials, so the service layer cannot hold a
// single preconfigured sender.
type SenderFactory func(username, password string) Sender
