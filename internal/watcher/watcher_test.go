package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"patientdesk/internal/codec"
	"patientdesk/internal/domain"
	"patientdesk/internal/service"
)

type importCall struct {
	patients []domain.Patient
	strategy service.Strategy
}

type fakeImporter struct {
	calls chan importCall
}

func newFakeImporter() *fakeImporter {
	return &fakeImporter{calls: make(chan importCall, 16)}
}

func (f *fakeImporter) ImportRoster(_ context.Context, patients []domain.Patient, strategy service.Strategy) (*service.ImportResult, error) {
	f.calls <- importCall{patients: patients, strategy: strategy}
	return &service.ImportResult{Created: len(patients), Strategy: strategy}, nil
}

func (f *fakeImporter) next(t *testing.T) importCall {
	t.Helper()
	select {
	case c := <-f.calls:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for roster import")
		return importCall{}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestSyncRoster(t *testing.T) {
	dir := t.TempDir()

	t.Run("yaml", func(t *testing.T) {
		path := filepath.Join(dir, "roster.yaml")
		writeFile(t, path, "patients:\n  - name: Ana\n    email: ana@example.com\n")

		imp := newFakeImporter()
		res, err := SyncRoster(context.Background(), path, service.StrategyReplace, imp)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Created)

		call := imp.next(t)
		assert.Equal(t, service.StrategyReplace, call.strategy)
		require.Len(t, call.patients, 1)
		assert.Equal(t, "ana@example.com", call.patients[0].Email)
	})

	t.Run("unknown extension", func(t *testing.T) {
		path := filepath.Join(dir, "roster.csv")
		writeFile(t, path, "name,email\n")

		_, err := SyncRoster(context.Background(), path, service.StrategyMerge, newFakeImporter())
		assert.True(t, errors.Is(err, codec.ErrUnknownFormat))
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := SyncRoster(context.Background(), filepath.Join(dir, "gone.json"), service.StrategyMerge, newFakeImporter())
		assert.Error(t, err)
	})
}

func TestWatchRosterReimportsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "roster.json")
	writeFile(t, path, `[{"name":"Ana","email":"ana@example.com"}]`)

	imp := newFakeImporter()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- WatchRoster(ctx, path, service.StrategyMerge, imp, 20*time.Millisecond)
	}()

	initial := imp.next(t)
	assert.Len(t, initial.patients, 1)

	// Give the watcher time to register the directory before writing
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, `[{"name":"Ana","email":"ana@example.com"},{"name":"Beto","email":"beto@example.com"}]`)

	changed := imp.next(t)
	assert.Len(t, changed.patients, 2)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}

func TestWatchIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.json")
	writeFile(t, path, "[]")

	changes := make(chan struct{}, 4)
	w := New(path, func() { changes <- struct{}{} }).WithDebounce(10 * time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Watch(ctx)

	time.Sleep(100 * time.Millisecond)
	writeFile(t, filepath.Join(dir, "other.json"), "[]")

	select {
	case <-changes:
		t.Fatal("change reported for unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}
