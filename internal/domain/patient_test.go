package domain

import (
	"errors"
	"strings"
	"testing"
)

func TestNewPatient(t *testing.T) {
	t.Run("normalizes and timestamps", func(t *testing.T) {
		p := NewPatient("  Juan Pérez ", " juan@Example.COM ")

		if p.Name != "Juan Pérez" {
			t.Errorf("expected trimmed name, got %q", p.Name)
		}
		if p.Email != "juan@example.com" {
			t.Errorf("expected normalized email, got %q", p.Email)
		}
		if p.ID != 0 {
			t.Errorf("expected zero ID, got %d", p.ID)
		}
		if p.CreatedAt.IsZero() || p.UpdatedAt.IsZero() {
			t.Error("expected timestamps to be set")
		}
	})

	t.Run("composes decomposed accents", func(t *testing.T) {
		// "e" followed by U+0301 COMBINING ACUTE ACCENT
		p := NewPatient("Jose\u0301", "jose@example.com")
		if p.Name != "Jos\u00e9" {
			t.Errorf("expected NFC name, got %q", p.Name)
		}
	})
}

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Ana@Clinic.ORG", "Ana@clinic.org"},
		{"  ana@clinic.org  ", "ana@clinic.org"},
		{"no-at-sign", "no-at-sign"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := NormalizeEmail(tt.input); got != tt.want {
			t.Errorf("NormalizeEmail(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestPatientValidate(t *testing.T) {
	tests := []struct {
		name    string
		patient Patient
		wantErr error
	}{
		{"valid", Patient{Name: "Ana Gómez", Email: "ana@example.com"}, nil},
		{"empty name", Patient{Name: "", Email: "ana@example.com"}, ErrEmptyName},
		{"empty email", Patient{Name: "Ana", Email: ""}, ErrEmptyEmail},
		{"invalid email", Patient{Name: "Ana", Email: "not-an-email"}, ErrInvalidEmail},
		{"display name rejected", Patient{Name: "Ana", Email: "Ana <ana@example.com>"}, ErrInvalidEmail},
		{"name too long", Patient{Name: strings.Repeat("a", MaxNameLength+1), Email: "a@b.co"}, ErrNameTooLong},
		{"name at limit", Patient{Name: strings.Repeat("ñ", MaxNameLength), Email: "a@b.co"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patient.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestPatientValidateWhitespaceOnly(t *testing.T) {
	p := NewPatient("   ", "\t")
	if err := p.Validate(); !errors.Is(err, ErrEmptyName) {
		t.Errorf("expected ErrEmptyName, got %v", err)
	}
}

func TestPatientMatches(t *testing.T) {
	p := &Patient{Name: "María López", Email: "maria@hospital.org"}

	tests := []struct {
		query string
		want  bool
	}{
		{"", true},
		{"maría", true},
		{"MARÍA", true},
		{"lópez", true},
		{"hospital", true},
		{"pedro", false},
	}

	for _, tt := range tests {
		if got := p.Matches(tt.query); got != tt.want {
			t.Errorf("Matches(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestEmailKey(t *testing.T) {
	if EmailKey("Ana@Example.com") != EmailKey(" ana@example.COM ") {
		t.Error("expected addresses to match ignoring case and padding")
	}
	if EmailKey("ana@example.com") == EmailKey("ana2@example.com") {
		t.Error("expected different addresses not to match")
	}
}
