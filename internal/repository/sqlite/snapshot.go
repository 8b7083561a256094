package sqlite

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// persist rewrites the snapshot slot after a write. The write itself has
// already committed, so failures are logged rather than returned.
func (r *Repository) persist(ctx context.Context) {
	if r.snapshotPath == "" {
		return
	}
	if err := r.Snapshot(ctx); err != nil {
		slog.Error("failed to persist snapshot", "path", r.snapshotPath, "error", err)
	}
}

// Snapshot atomically replaces the snapshot file with the current database.
// It is a no-op when no snapshot path is configured.
func (r *Repository) Snapshot(ctx context.Context) error {
	if r.snapshotPath == "" {
		return nil
	}

	r.snapMu.Lock()
	defer r.snapMu.Unlock()

	dir := filepath.Dir(r.snapshotPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	// VACUUM INTO refuses an existing target, so only the unique name is kept
	f, err := os.CreateTemp(dir, filepath.Base(r.snapshotPath)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create snapshot temp: %w", err)
	}
	tmp := f.Name()
	f.Close()
	if err := os.Remove(tmp); err != nil {
		return fmt.Errorf("reserve snapshot temp: %w", err)
	}

	if err := r.vacuumInto(ctx, tmp); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, r.snapshotPath); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace snapshot: %w", err)
	}
	return nil
}

// restoreFromSnapshot seeds a missing database file from the snapshot slot
func (r *Repository) restoreFromSnapshot() error {
	if r.snapshotPath == "" || r.path == MemoryPath {
		return nil
	}
	if fileExists(r.path) || !fileExists(r.snapshotPath) {
		return nil
	}

	src, err := os.Open(r.snapshotPath)
	if err != nil {
		return fmt.Errorf("open snapshot: %w", err)
	}
	defer src.Close()

	if dir := filepath.Dir(r.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create database dir: %w", err)
		}
	}

	dst, err := os.OpenFile(r.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("create database: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(r.path)
		return fmt.Errorf("copy snapshot: %w", err)
	}
	if err := dst.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	slog.Info("restored database from snapshot", "path", r.path, "snapshot", r.snapshotPath)
	return nil
}
