package codec

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"patientdesk/internal/domain"
)

// ErrUnknownFormat is returned for formats without a codec
var ErrUnknownFormat = errors.New("unknown roster format")

// Importer interface for importing patient rosters from various formats
type Importer interface {
	Parse(r io.Reader) ([]domain.Patient, error)
	Format() string
}

// Exporter interface for exporting patient rosters to various formats
type Exporter interface {
	Export(patients []domain.Patient, w io.Writer) error
	Format() string
	ContentType() string
}

// Codec both imports and exports a roster format
type Codec interface {
	Importer
	Exporter
}

// ForFormat returns the codec for a format name ("json", "yaml" or "yml")
func ForFormat(format string) (Codec, error) {
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "json":
		return NewJSONCodec(), nil
	case "yaml", "yml":
		return NewYAMLCodec(), nil
	default:
		return nil, fmt.Errorf("%q: %w", format, ErrUnknownFormat)
	}
}

// ForPath picks a codec from the file extension
func ForPath(path string) (Codec, error) {
	return ForFormat(filepath.Ext(path))
}
