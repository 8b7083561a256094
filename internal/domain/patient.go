package domain

import (
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// MaxNameLength is the longest accepted name, in runes
const MaxNameLength = 200

// Validation errors
var (
	ErrEmptyName    = errors.New("name cannot be empty")
	ErrNameTooLong  = errors.New("name cannot exceed 200 characters")
	ErrEmptyEmail   = errors.New("email cannot be empty")
	ErrInvalidEmail = errors.New("email is not a valid address")
	ErrInvalidID    = errors.New("invalid patient ID")
)

// Patient is a registered patient
type Patient struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewPatient creates a normalized patient with fresh timestamps.
// The ID is left zero; the store assigns it.
func NewPatient(name, email string) *Patient {
	now := time.Now().UTC()
	p := &Patient{
		Name:      name,
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	}
	p.Normalize()
	return p
}

// Normalize trims both fields, composes the name to NFC and lower-cases the
// domain part of the email. The local part is left alone.
func (p *Patient) Normalize() {
	p.Name = norm.NFC.String(strings.TrimSpace(p.Name))
	p.Email = NormalizeEmail(p.Email)
}

// NormalizeEmail trims the address and lower-cases everything after the last @
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

// Validate checks the patient fields. Call Normalize first.
func (p *Patient) Validate() error {
	if p.Name == "" {
		return ErrEmptyName
	}
	if utf8.RuneCountInString(p.Name) > MaxNameLength {
		return ErrNameTooLong
	}
	if p.Email == "" {
		return ErrEmptyEmail
	}
	if !IsValidEmail(p.Email) {
		return ErrInvalidEmail
	}
	return nil
}

// IsValidEmail reports whether s is a bare address like user@example.com
func IsValidEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	if addr.Name != "" || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && at < len(s)-1
}

// Matches reports whether the query occurs in the name or email, ignoring case.
// An empty query matches everything.
func (p *Patient) Matches(query string) bool {
	query = strings.TrimSpace(query)
	if query == "" {
		return true
	}
	fold := cases.Fold()
	q := fold.String(norm.NFC.String(query))
	return strings.Contains(fold.String(p.Name), q) ||
		strings.Contains(fold.String(p.Email), q)
}

// EmailKey folds an address to the form the registry deduplicates on.
// Two addresses name the same patient when their keys are equal.
func EmailKey(email string) string {
	return strings.ToLower(NormalizeEmail(email))
}
