package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"patientdesk/internal/domain"
	"patientdesk/internal/repository"

	_ "modernc.org/sqlite"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Repository implements repository.Repository using SQLite
type Repository struct {
	db           *sql.DB
	path         string
	snapshotPath string

	// snapMu serializes rewrites of the snapshot slot
	snapMu sync.Mutex
}

var _ repository.Repository = (*Repository)(nil)

// Option configures a Repository
type Option func(*Repository)

// WithSnapshot keeps a full copy of the database at path, rewritten after
// every successful write. A missing database file is restored from it on open.
func WithSnapshot(path string) Option {
	return func(r *Repository) {
		r.snapshotPath = path
	}
}

// New opens (creating if needed) the SQLite database at dbPath
func New(dbPath string, opts ...Option) (*Repository, error) {
	repo := &Repository{path: dbPath}
	for _, opt := range opts {
		opt(repo)
	}

	if err := repo.restoreFromSnapshot(); err != nil {
		return nil, fmt.Errorf("failed to restore snapshot: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// A single connection keeps :memory: databases coherent and serializes writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	repo.db = db
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return repo, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS patients (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_patients_email ON patients(email COLLATE NOCASE);
	`

	_, err := r.db.Exec(schema)
	return err
}

// ListPatients returns all patients, newest first
func (r *Repository) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	defer rows.Close()

	patients := make([]domain.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan patient: %w", err)
		}
		patients = append(patients, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating patients: %w", err)
	}

	return patients, nil
}

// GetPatient retrieves a single patient by ID.
// Returns nil, nil when the patient does not exist.
func (r *Repository) GetPatient(ctx context.Context, id int64) (*domain.Patient, error) {
	p, err := scanPatient(r.db.QueryRowContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients WHERE id = ?
	`, id))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}

	return &p, nil
}

// FindPatientByEmail returns the oldest patient with the given email,
// ignoring ASCII case. Returns nil, nil when there is none.
func (r *Repository) FindPatientByEmail(ctx context.Context, email string) (*domain.Patient, error) {
	p, err := scanPatient(r.db.QueryRowContext(ctx, `
		SELECT `+patientColumns+`
		FROM patients WHERE email = ? COLLATE NOCASE
		ORDER BY id ASC LIMIT 1
	`, email))

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query patient by email: %w", err)
	}

	return &p, nil
}

// CountPatients returns the number of stored patients
func (r *Repository) CountPatients(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM patients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count patients: %w", err)
	}
	return n, nil
}

// CreatePatient inserts a patient and sets its ID
func (r *Repository) CreatePatient(ctx context.Context, p *domain.Patient) error {
	now := time.Now().UTC()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	p.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO patients (name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, p.Name, p.Email, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert patient: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read patient id: %w", err)
	}
	p.ID = id

	r.persist(ctx)
	return nil
}

// UpdatePatient overwrites the name and email of an existing patient
func (r *Repository) UpdatePatient(ctx context.Context, p *domain.Patient) error {
	p.UpdatedAt = time.Now().UTC()

	result, err := r.db.ExecContext(ctx, `
		UPDATE patients SET name = ?, email = ?, updated_at = ?
		WHERE id = ?
	`, p.Name, p.Email, p.UpdatedAt, p.ID)
	if err != nil {
		return fmt.Errorf("failed to update patient: %w", err)
	}

	if err := requireAffected(result, p.ID); err != nil {
		return err
	}

	r.persist(ctx)
	return nil
}

// DeletePatient removes a patient
func (r *Repository) DeletePatient(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM patients WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete patient: %w", err)
	}

	if err := requireAffected(result, id); err != nil {
		return err
	}

	r.persist(ctx)
	return nil
}

// ReplacePatients replaces all data with the provided patients.
// IDs are reassigned in slice order; the slice is updated in place.
func (r *Repository) ReplacePatients(ctx context.Context, patients []domain.Patient) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM patients`); err != nil {
		return fmt.Errorf("failed to clear patients: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO patients (name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare patient statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range patients {
		p := &patients[i]
		if p.CreatedAt.IsZero() {
			p.CreatedAt = now
		}
		p.UpdatedAt = now

		result, err := stmt.ExecContext(ctx, p.Name, p.Email, p.CreatedAt, p.UpdatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert patient %q: %w", p.Email, err)
		}
		if p.ID, err = result.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read patient id: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.persist(ctx)
	return nil
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.db.Close()
}

func requireAffected(result sql.Result, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("patient %d: %w", id, repository.ErrNotFound)
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
