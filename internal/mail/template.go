package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

// certificateBody is the default HTML body for certificate delivery mail.
var certificateBody = template.Must(template.New("certificate").Parse(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: 'Segoe UI', Tahoma, sans-serif; color: #333; background-color: #f4f4f4; margin: 0; padding: 0;">
  <div style="max-width: 650px; margin: 0 auto; background-color: #ffffff; padding: 40px 50px;">
    <p style="font-size: 18px; font-weight: 600; color: #2c3e50;">Dear {{.RecipientName}},</p>
    <p style="font-size: 15px; color: #555;">
      We're pleased to share your certificate. Please find it attached to this
      email; you may download and print it for your records.
    </p>
    <div style="margin-top: 35px; padding-top: 25px; border-top: 1px solid #e0e0e0; font-size: 15px;">
      <p style="margin-bottom: 8px;">Warm regards,</p>
      <p style="font-weight: 600; color: #2c3e50;">{{.FromName}}</p>
    </div>
  </div>
  <div style="max-width: 650px; margin: 0 auto; background-color: #f8f9fa; padding: 25px 50px; text-align: center;">
    <p style="font-size: 13px; color: #888;">This is an automated email. Please do not reply to this message.</p>
  </div>
</body>
</html>`))

// CertificateBody renders the delivery email HTML for one recipient.
func CertificateBody(recipientName, fromName string) (string, error) {
	var buf bytes.Buffer
	err := certificateBody.Execute(&buf, struct {
		RecipientName string
		FromName      string
	}{RecipientName: recipientName, FromName: fromName})
	if err != nil {
		return "", fmt.Errorf("render mail body: %w", err)
	}
	return buf.String(), nil
}
