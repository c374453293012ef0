package bulk

import "certigen/internal/model"

// EventType classifies dispatcher progress events. Every item produces one
// "sending" event followed by exactly one terminal "success" or "failed"
// event.
type EventType string

const (
	EventSending EventType = "sending"
	EventSuccess EventType = "success"
	EventFailed  EventType = "failed"
)

// RecipientRef identifies the recipient an event refers to.
type RecipientRef struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// ProgressEvent is one dispatcher progress notification. Field names mirror
// the wire format consumed by streaming clients.
type ProgressEvent struct {
	Type                   EventType    `json:"type"`
	Current                int          `json:"current"`
	Total                  int          `json:"total"`
	Percent                int          `json:"percent"`
	Recipient              RecipientRef `json:"recipient"`
	Successful             int          `json:"successful"`
	Failed                 int          `json:"failed"`
	ElapsedTime            int64        `json:"elapsedTime"`
	EstimatedTimeRemaining int64        `json:"estimatedTimeRemaining"`
	Error                  string       `json:"error,omitempty"`
}

// GenerateStage classifies orchestrator callbacks.
type GenerateStage string

const (
	StageGenerating GenerateStage = "generating"
	StageError      GenerateStage = "error"
)

// GenerateEvent is one orchestrator notification: StageGenerating before each
// render, StageError after a failed one.
type GenerateEvent struct {
	Stage     GenerateStage
	Current   int
	Total     int
	Recipient model.Recipient
	Err       error
}
