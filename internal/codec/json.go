package codec

import (
	"encoding/json"
	"fmt"
	"io"

	"patientdesk/internal/domain"
)

// JSONCodec handles JSON import/export
type JSONCodec struct{}

// NewJSONCodec creates a new JSON codec
func NewJSONCodec() *JSONCodec {
	return &JSONCodec{}
}

// Format returns the codec format identifier
func (c *JSONCodec) Format() string {
	return "json"
}

// ContentType returns the MIME type of exports
func (c *JSONCodec) ContentType() string {
	return "application/json"
}

type jsonRoster struct {
	Patients []domain.Patient `json:"patients"`
}

// Parse imports a roster from JSON. Both {"patients": [...]} and a bare
// array are accepted.
func (c *JSONCodec) Parse(r io.Reader) ([]domain.Patient, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	var patients []domain.Patient
	if err := json.Unmarshal(raw, &patients); err == nil {
		return patients, nil
	}

	var roster jsonRoster
	if err := json.Unmarshal(raw, &roster); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return roster.Patients, nil
}

// Export exports a roster to JSON
func (c *JSONCodec) Export(patients []domain.Patient, w io.Writer) error {
	if patients == nil {
		patients = []domain.Patient{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(jsonRoster{Patients: patients}); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	return nil
}
