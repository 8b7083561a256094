package repository

import (
	"context"
	"errors"
	"io"

	"patientdesk/internal/domain"
)

// Repository errors
var (
	ErrNotFound             = errors.New("record not found")
	ErrUnrecognizedDatabase = errors.New("database file has no patient table")
)

// ImportStats summarizes a whole-database import
type ImportStats struct {
	Imported int `json:"imported"`
	Skipped  int `json:"skipped"`
}

// Repository defines the interface for patient data access
type Repository interface {
	// Read operations
	ListPatients(ctx context.Context) ([]domain.Patient, error)
	GetPatient(ctx context.Context, id int64) (*domain.Patient, error)
	FindPatientByEmail(ctx context.Context, email string) (*domain.Patient, error)
	CountPatients(ctx context.Context) (int, error)

	// Write operations
	CreatePatient(ctx context.Context, p *domain.Patient) error
	UpdatePatient(ctx context.Context, p *domain.Patient) error
	DeletePatient(ctx context.Context, id int64) error

	// Bulk operations
	ReplacePatients(ctx context.Context, patients []domain.Patient) error

	// Whole-database transfer
	ExportDatabase(ctx context.Context, w io.Writer) (int64, error)
	ImportDatabase(ctx context.Context, r io.Reader) (ImportStats, error)

	// Close releases resources
	Close() error
}
