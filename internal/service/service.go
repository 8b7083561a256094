package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"patientdesk/internal/domain"
	"patientdesk/internal/repository"
)

// Service errors
var (
	ErrPatientNotFound = errors.New("patient not found")
	ErrNoSelection     = errors.New("no patient selected for editing")
	ErrUnknownStrategy = errors.New("unknown import strategy")
)

// PatientService provides business logic for patient operations
type PatientService struct {
	repo     repository.Repository
	eventBus *EventBus
}

// NewPatientService creates a new patient service
func NewPatientService(repo repository.Repository, eventBus *EventBus) *PatientService {
	if eventBus == nil {
		eventBus = NewEventBus()
	}
	return &PatientService{
		repo:     repo,
		eventBus: eventBus,
	}
}

// ListPatients returns all patients newest first, filtered by query when set
func (s *PatientService) ListPatients(ctx context.Context, query string) ([]domain.Patient, error) {
	patients, err := s.repo.ListPatients(ctx)
	if err != nil {
		return nil, err
	}
	if query == "" {
		return patients, nil
	}

	filtered := make([]domain.Patient, 0, len(patients))
	for _, p := range patients {
		if p.Matches(query) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// CountPatients returns the number of stored patients
func (s *PatientService) CountPatients(ctx context.Context) (int, error) {
	return s.repo.CountPatients(ctx)
}

// GetPatient retrieves a single patient by ID
func (s *PatientService) GetPatient(ctx context.Context, id int64) (*domain.Patient, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}
	p, err := s.repo.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("patient %d: %w", id, ErrPatientNotFound)
	}
	return p, nil
}

// AddPatient creates a new patient
func (s *PatientService) AddPatient(ctx context.Context, name, email string) (*domain.Patient, error) {
	p := domain.NewPatient(name, email)
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.CreatePatient(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create patient: %w", err)
	}

	s.eventBus.Publish(Event{
		Type:    EventPatientCreated,
		Payload: p,
	})

	return p, nil
}

// UpdatePatient replaces the name and email of an existing patient
func (s *PatientService) UpdatePatient(ctx context.Context, id int64, name, email string) (*domain.Patient, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidID
	}

	p := &domain.Patient{ID: id, Name: name, Email: email}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return nil, err
	}

	if err := s.repo.UpdatePatient(ctx, p); err != nil {
		return nil, s.mapNotFound(id, err)
	}

	updated, err := s.GetPatient(ctx, id)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(Event{
		Type:    EventPatientUpdated,
		Payload: updated,
	})

	return updated, nil
}

// DeletePatient removes a patient
func (s *PatientService) DeletePatient(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.ErrInvalidID
	}

	if err := s.repo.DeletePatient(ctx, id); err != nil {
		return s.mapNotFound(id, err)
	}

	s.eventBus.Publish(Event{
		Type:    EventPatientDeleted,
		Payload: map[string]int64{"id": id},
	})

	return nil
}

// SaveRequest is a submission of the admin form
type SaveRequest struct {
	Mode  domain.FormMode
	ID    int64
	Name  string
	Email string
}

// SaveResult reports what a form submission did
type SaveResult struct {
	Patient  *domain.Patient
	Mode     domain.FormMode
	ToastKey string
}

// Save dispatches a form submission: CREATE adds a patient, EDIT updates the
// selected one
func (s *PatientService) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	if req.Mode.IsEdit() {
		if req.ID <= 0 {
			return nil, ErrNoSelection
		}
		p, err := s.UpdatePatient(ctx, req.ID, req.Name, req.Email)
		if err != nil {
			return nil, err
		}
		return &SaveResult{Patient: p, Mode: domain.FormModeEdit, ToastKey: domain.ToastKeyUpdated}, nil
	}

	p, err := s.AddPatient(ctx, req.Name, req.Email)
	if err != nil {
		return nil, err
	}
	return &SaveResult{Patient: p, Mode: domain.FormModeCreate, ToastKey: domain.ToastKeySaved}, nil
}

// ExportDatabase writes the whole database as a .sqlite file
func (s *PatientService) ExportDatabase(ctx context.Context, w io.Writer) (int64, error) {
	return s.repo.ExportDatabase(ctx, w)
}

// ImportDatabase replaces all patients with the valid rows of an uploaded
// .sqlite file
func (s *PatientService) ImportDatabase(ctx context.Context, r io.Reader) (repository.ImportStats, error) {
	stats, err := s.repo.ImportDatabase(ctx, r)
	if err != nil {
		return repository.ImportStats{}, err
	}

	s.eventBus.Publish(Event{
		Type: EventPatientsImported,
		Payload: map[string]any{
			"source":   "sqlite",
			"patients": stats.Imported,
			"skipped":  stats.Skipped,
		},
	})

	return stats, nil
}

func (s *PatientService) mapNotFound(id int64, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("patient %d: %w", id, ErrPatientNotFound)
	}
	return err
}
