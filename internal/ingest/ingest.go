package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"certigen/internal/model"
)

// Package ingest parses tabular recipient lists. The expected shape is a CSV
// with a header row containing name and email columns in any letter case.
// Rows missing either value are dropped silently; the caller only hears about
// the batch-level outcome.

var (
	// ErrNoRecipients is reported after fully consuming an input that
	// yielded no valid rows. Distinct from a parse failure.
	ErrNoRecipients = errors.New("no valid recipients found in CSV file")
	// ErrMalformedCSV wraps parser-level failures.
	ErrMalformedCSV = errors.New("malformed CSV input")
)

// ParseRecipients consumes the whole stream and returns the materialized,
// filtered recipient list. Emails are lowercased for case-insensitive
// comparison downstream.
func ParseRecipients(r io.Reader) ([]model.Recipient, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrNoRecipients
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
	}

	nameIdx, emailIdx := -1, -1
	for i, col := range header {
		col = strings.TrimSpace(col)
		switch {
		case strings.EqualFold(col, "name"):
			if nameIdx == -1 {
				nameIdx = i
			}
		case strings.EqualFold(col, "email"):
			if emailIdx == -1 {
				emailIdx = i
			}
		}
	}

	recipients := make([]model.Recipient, 0)
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedCSV, err)
		}

		rec := model.NewRecipient(cell(row, nameIdx), cell(row, emailIdx))
		if !rec.Valid() {
			continue
		}
		recipients = append(recipients, rec)
	}

	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	return recipients, nil
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
