package model

import "time"

// Certificate is the rendering record for one generated document. It is
// created once per successful render and only mutated afterwards to bump the
// download counter. Deletion is an explicit administrative action that also
// removes the backing PDF object.
type Certificate struct {
	ID             string            `json:"certificateId"`
	TemplateID     string            `json:"templateId"`
	RecipientName  string            `json:"recipientName"`
	RecipientEmail string            `json:"recipientEmail,omitempty"`
	CustomFields   map[string]string `json:"customFields,omitempty"`
	PDFKey         string            `json:"-"`
	DownloadCount  int               `json:"downloadCount"`
	CreatedAt      time.Time         `json:"generatedAt"`
}
