package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"patientdesk/internal/domain"
	"patientdesk/internal/repository"
)

// sqliteHeader opens every SQLite 3 database file
var sqliteHeader = []byte("SQLite format 3\x00")

// Legacy browser layout: Pacientes(id INTEGER PRIMARY KEY AUTOINCREMENT, nombres TEXT, correo TEXT)
const legacyTable = "Pacientes"

// ExportDatabase writes a consistent copy of the whole database to w
func (r *Repository) ExportDatabase(ctx context.Context, w io.Writer) (int64, error) {
	dir, err := os.MkdirTemp("", "patientdesk-export-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create export dir: %w", err)
	}
	defer os.RemoveAll(dir)

	target := filepath.Join(dir, "patients.sqlite")
	if err := r.vacuumInto(ctx, target); err != nil {
		return 0, err
	}

	f, err := os.Open(target)
	if err != nil {
		return 0, fmt.Errorf("failed to open export: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(w, f)
	if err != nil {
		return n, fmt.Errorf("failed to write export: %w", err)
	}
	return n, nil
}

// ImportDatabase replaces all patients with those in the SQLite file read
// from r. Rows that fail validation are skipped and counted.
func (r *Repository) ImportDatabase(ctx context.Context, src io.Reader) (repository.ImportStats, error) {
	dir, err := os.MkdirTemp("", "patientdesk-import-*")
	if err != nil {
		return repository.ImportStats{}, fmt.Errorf("failed to create import dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "upload.sqlite")
	if err := writeUpload(path, src); err != nil {
		return repository.ImportStats{}, err
	}

	stats, err := r.importFile(ctx, path)
	if err != nil {
		return repository.ImportStats{}, err
	}

	if stats.Skipped > 0 {
		slog.Warn("skipped invalid rows in database import", "imported", stats.Imported, "skipped", stats.Skipped)
	}

	r.persist(ctx)
	return stats, nil
}

func writeUpload(path string, src io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create upload file: %w", err)
	}
	defer f.Close()

	header := make([]byte, len(sqliteHeader))
	if _, err := io.ReadFull(src, header); err != nil {
		return fmt.Errorf("read header: %w", repository.ErrUnrecognizedDatabase)
	}
	if !bytes.Equal(header, sqliteHeader) {
		return fmt.Errorf("not an SQLite 3 file: %w", repository.ErrUnrecognizedDatabase)
	}

	if _, err := f.Write(header); err != nil {
		return fmt.Errorf("failed to write upload: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		return fmt.Errorf("failed to write upload: %w", err)
	}
	return f.Close()
}

// importFile attaches the file on a dedicated connection and replaces our
// patients with its valid rows in one transaction
func (r *Repository) importFile(ctx context.Context, path string) (repository.ImportStats, error) {
	var stats repository.ImportStats

	conn, err := r.db.Conn(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "ATTACH DATABASE "+quoteLiteral(path)+" AS src"); err != nil {
		return stats, fmt.Errorf("failed to attach import: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.Background(), "DETACH DATABASE src"); err != nil {
			slog.Warn("failed to detach import database", "error", err)
		}
	}()

	query, err := selectImportSource(ctx, conn)
	if err != nil {
		return stats, err
	}

	incoming, err := readImportRows(ctx, conn, query)
	if err != nil {
		return stats, err
	}

	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return stats, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM main.patients`); err != nil {
		return stats, fmt.Errorf("failed to clear patients: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO main.patients (id, name, email, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return stats, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for i := range incoming {
		p := &incoming[i]
		p.Normalize()
		if err := p.Validate(); err != nil {
			stats.Skipped++
			continue
		}
		if _, err := stmt.ExecContext(ctx, p.ID, p.Name, p.Email, p.CreatedAt, p.UpdatedAt); err != nil {
			return repository.ImportStats{}, fmt.Errorf("failed to insert patient %d: %w", p.ID, err)
		}
		stats.Imported++
	}

	if err := tx.Commit(); err != nil {
		return repository.ImportStats{}, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return stats, nil
}

// selectImportSource picks the read query for the attached file's layout.
// Both return id, name, email, created_at, updated_at.
func selectImportSource(ctx context.Context, conn *sql.Conn) (string, error) {
	hasPatients, err := hasTable(ctx, conn, "patients")
	if err != nil {
		return "", err
	}
	if hasPatients {
		return `SELECT id, name, email, created_at, updated_at FROM src.patients ORDER BY id`, nil
	}

	hasLegacy, err := hasTable(ctx, conn, legacyTable)
	if err != nil {
		return "", err
	}
	if hasLegacy {
		return `SELECT id, nombres, correo, NULL, NULL FROM src.` + legacyTable + ` ORDER BY id`, nil
	}

	return "", repository.ErrUnrecognizedDatabase
}

// readImportRows loads every source row. NULL text becomes empty and
// missing or unparsable timestamps fall back to now.
func readImportRows(ctx context.Context, conn *sql.Conn, query string) ([]domain.Patient, error) {
	rows, err := conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read import: %v: %w", err, repository.ErrUnrecognizedDatabase)
	}
	defer rows.Close()

	now := time.Now().UTC()
	var out []domain.Patient
	for rows.Next() {
		var (
			id               int64
			name, email      sql.NullString
			created, updated any
		)
		if err := rows.Scan(&id, &name, &email, &created, &updated); err != nil {
			return nil, fmt.Errorf("read import row: %v: %w", err, repository.ErrUnrecognizedDatabase)
		}
		out = append(out, domain.Patient{
			ID:        id,
			Name:      name.String,
			Email:     email.String,
			CreatedAt: timeOr(created, now),
			UpdatedAt: timeOr(updated, now),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read import: %v: %w", err, repository.ErrUnrecognizedDatabase)
	}
	return out, nil
}

func timeOr(v any, fallback time.Time) time.Time {
	if t, ok := v.(time.Time); ok && !t.IsZero() {
		return t
	}
	return fallback
}

func hasTable(ctx context.Context, conn *sql.Conn, name string) (bool, error) {
	var found string
	err := conn.QueryRowContext(ctx, `
		SELECT name FROM src.sqlite_master WHERE type = 'table' AND name = ?
	`, name).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		// A corrupt body behind a valid header fails here
		return false, fmt.Errorf("inspect import: %v: %w", err, repository.ErrUnrecognizedDatabase)
	}
	return true, nil
}

// vacuumInto writes a compacted copy of the database to target, which must
// not exist yet
func (r *Repository) vacuumInto(ctx context.Context, target string) error {
	if _, err := r.db.ExecContext(ctx, "VACUUM INTO "+quoteLiteral(target)); err != nil {
		return fmt.Errorf("failed to copy database: %w", err)
	}
	return nil
}
