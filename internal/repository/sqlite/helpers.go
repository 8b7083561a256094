package sqlite

import (
	"strings"
	"time"

	"patientdesk/internal/domain"
)

// ============================================================================
// Patient Row Scanner
// ============================================================================
//
// Column order must match between:
// - patientColumns constant
// - scanArgs() return slice
// - All SELECT queries using patientColumns

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

// patientRow holds all columns from a patient query for scanning
type patientRow struct {
	ID        int64
	Name      string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// scanArgs returns pointers to all fields for sql.Scan()
// MUST match patientColumns order exactly:
// id, name, email, created_at, updated_at
func (r *patientRow) scanArgs() []any {
	return []any{
		&r.ID,        // 1
		&r.Name,      // 2
		&r.Email,     // 3
		&r.CreatedAt, // 4
		&r.UpdatedAt, // 5
	}
}

// toDomain converts the scanned row to a domain.Patient
func (r *patientRow) toDomain() domain.Patient {
	return domain.Patient{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// patientColumns is the SELECT column list for patient queries
const patientColumns = `id, name, email, created_at, updated_at`

func scanPatient(s rowScanner) (domain.Patient, error) {
	var row patientRow
	if err := s.Scan(row.scanArgs()...); err != nil {
		return domain.Patient{}, err
	}
	return row.toDomain(), nil
}

// ============================================================================
// SQL Literal Helpers
// ============================================================================

// quoteLiteral renders s as a single-quoted SQL string literal.
// VACUUM INTO and ATTACH take file names as expressions.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
