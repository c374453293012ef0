package model

import "strings"

// Package model contains domain models/data structures.
// Models are persistence-agnostic; conversion to pixels, SQL rows, or JSON
// payloads happens in the layers that need it.

// Recipient is one (name, email) pair targeted for certificate delivery.
// Recipients are produced transiently by the CSV ingestor and are not
// persisted on their own.
type Recipient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// NewRecipient trims both values and lowercases the email so address
// comparison is case-insensitive downstream.
func NewRecipient(name, email string) Recipient {
	return Recipient{
		Name:  strings.TrimSpace(name),
		Email: strings.ToLower(strings.TrimSpace(email)),
	}
}

// Valid reports whether the recipient has both a name and an email.
func (r Recipient) Valid() bool {
	return r.Name != "" && r.Email != ""
}
