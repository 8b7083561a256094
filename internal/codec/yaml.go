package codec

import (
	"errors"
	"fmt"
	"io"
	"time"

	"patientdesk/internal/domain"

	"gopkg.in/yaml.v3"
)

// YAMLCodec handles YAML roster import/export
type YAMLCodec struct{}

// NewYAMLCodec creates a new YAML codec
func NewYAMLCodec() *YAMLCodec {
	return &YAMLCodec{}
}

// Format returns the codec format identifier
func (c *YAMLCodec) Format() string {
	return "yaml"
}

// ContentType returns the MIME type of exports
func (c *YAMLCodec) ContentType() string {
	return "application/x-yaml"
}

// yamlRoster represents the YAML structure for a patient roster
type yamlRoster struct {
	Patients []yamlPatient `yaml:"patients"`
}

type yamlPatient struct {
	ID        int64      `yaml:"id,omitempty"`
	Name      string     `yaml:"name"`
	Email     string     `yaml:"email"`
	CreatedAt *time.Time `yaml:"created_at,omitempty"`
}

// Parse imports a roster from YAML. An empty document is an empty roster.
func (c *YAMLCodec) Parse(r io.Reader) ([]domain.Patient, error) {
	var yr yamlRoster
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(&yr); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	patients := make([]domain.Patient, 0, len(yr.Patients))
	for _, yp := range yr.Patients {
		p := domain.Patient{
			ID:    yp.ID,
			Name:  yp.Name,
			Email: yp.Email,
		}
		if yp.CreatedAt != nil {
			p.CreatedAt = *yp.CreatedAt
		}
		patients = append(patients, p)
	}

	return patients, nil
}

// Export exports a roster to YAML
func (c *YAMLCodec) Export(patients []domain.Patient, w io.Writer) error {
	yr := yamlRoster{Patients: make([]yamlPatient, 0, len(patients))}
	for _, p := range patients {
		yp := yamlPatient{
			ID:    p.ID,
			Name:  p.Name,
			Email: p.Email,
		}
		if !p.CreatedAt.IsZero() {
			created := p.CreatedAt
			yp.CreatedAt = &created
		}
		yr.Patients = append(yr.Patients, yp)
	}

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(yr); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}
