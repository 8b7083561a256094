package service

import (
	"context"
	"fmt"
	"strings"

	"patientdesk/internal/domain"
)

// Strategy decides how a roster import treats existing patients
type Strategy string

const (
	// StrategyMerge upserts by email and keeps everyone else
	StrategyMerge Strategy = "merge"
	// StrategyReplace wipes the registry before inserting
	StrategyReplace Strategy = "replace"
)

// ParseStrategy parses an import strategy, defaulting to merge when empty
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyMerge:
		return StrategyMerge, nil
	case StrategyReplace:
		return StrategyReplace, nil
	default:
		return "", fmt.Errorf("%q: %w", s, ErrUnknownStrategy)
	}
}

// ImportResult summarizes a roster import
type ImportResult struct {
	Created    int      `json:"created"`
	Updated    int      `json:"updated"`
	Unchanged  int      `json:"unchanged"`
	Skipped    int      `json:"skipped"`
	Duplicates int      `json:"duplicates"` // rows folded into a later row with the same email
	Strategy   Strategy `json:"strategy"`
}

// ImportRoster loads patients from a roster. Rows that fail validation are
// skipped and counted. When several rows share an email the last one wins.
// Incoming IDs are ignored.
func (s *PatientService) ImportRoster(ctx context.Context, patients []domain.Patient, strategy Strategy) (*ImportResult, error) {
	result := &ImportResult{Strategy: strategy}

	valid := make([]domain.Patient, 0, len(patients))
	seen := make(map[string]int, len(patients))
	for _, p := range patients {
		p.ID = 0
		p.Normalize()
		if err := p.Validate(); err != nil {
			result.Skipped++
			continue
		}

		key := domain.EmailKey(p.Email)
		if i, ok := seen[key]; ok {
			valid[i] = p
			result.Duplicates++
			continue
		}
		seen[key] = len(valid)
		valid = append(valid, p)
	}

	switch strategy {
	case StrategyReplace:
		if err := s.repo.ReplacePatients(ctx, valid); err != nil {
			return nil, fmt.Errorf("failed to replace patients: %w", err)
		}
		result.Created = len(valid)
	case StrategyMerge:
		if err := s.mergeRoster(ctx, valid, result); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%q: %w", strategy, ErrUnknownStrategy)
	}

	s.eventBus.Publish(Event{
		Type:    EventPatientsImported,
		Payload: result,
	})

	return result, nil
}

func (s *PatientService) mergeRoster(ctx context.Context, patients []domain.Patient, result *ImportResult) error {
	for i := range patients {
		p := &patients[i]

		existing, err := s.repo.FindPatientByEmail(ctx, p.Email)
		if err != nil {
			return fmt.Errorf("failed to look up %q: %w", p.Email, err)
		}

		if existing == nil {
			if err := s.repo.CreatePatient(ctx, p); err != nil {
				return fmt.Errorf("failed to create patient %q: %w", p.Email, err)
			}
			result.Created++
			continue
		}

		if existing.Name == p.Name && existing.Email == p.Email {
			result.Unchanged++
			continue
		}

		existing.Name = p.Name
		existing.Email = p.Email
		if err := s.repo.UpdatePatient(ctx, existing); err != nil {
			return fmt.Errorf("failed to update patient %q: %w", p.Email, err)
		}
		result.Updated++
	}
	return nil
}
