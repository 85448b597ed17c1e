package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcherReportsWrites(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "planner.yaml", "log:\n  level: info\n")

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	writeFile(t, dir, "other.yaml", "ignored: true\n")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	select {
	case name := <-w.Events:
		assert.Equal(t, "planner.yaml", filepath.Base(name))
	case err := <-w.Errors:
		t.Fatalf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for config write")
	}
}

func TestWatcherCoalescesTruncateAndWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "planner.yaml", "log:\n  level: info\n")

	w, err := NewWatcher(path)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	time.Sleep(debounce / 5)
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	select {
	case <-w.Events:
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "log:\n  level: debug\n", string(data), "reported after the last write")
	case err := <-w.Errors:
		t.Fatalf("watch error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("no event for config write")
	}

	select {
	case name := <-w.Events:
		t.Fatalf("second event for one save: %s", name)
	case <-time.After(3 * debounce):
	}
}

func TestWatcherClose(t *testing.T) {
	path := writeFile(t, t.TempDir(), "planner.yaml", "")
	w, err := NewWatcher(path)
	require.NoError(t, err)

	require.NoError(t, w.Close())
	assert.NoError(t, w.Close(), "second close is a no-op")

	_, open := <-w.Events
	assert.False(t, open)
}

func TestNewWatcherMissingDir(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope", "planner.yaml"))
	assert.Error(t, err)
}
