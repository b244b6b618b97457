package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	defer goleak.VerifyNone(t)

	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.json")
	require.NoError(t, os.WriteFile(path, []byte(bareJSON), 0o644))

	h, err := NewHolder(context.Background(), NewFileSource(path))
	require.NoError(t, err)
	require.Len(t, h.Load().Rules, 2)

	updates, unsub := h.Subscribe()
	defer unsub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	w := NewWatcher(h, path, 20*time.Millisecond, zerolog.Nop())
	go func() { done <- w.Run(ctx) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("["+ruleJSON("R-Only")+"]"), 0o644))

	select {
	case <-updates:
	case <-time.After(5 * time.Second):
		t.Fatal("catalog was not reloaded after write")
	}
	require.Len(t, h.Load().Rules, 1)
	assert.Equal(t, "R-Only", h.Load().Rules[0].ID)

	// A broken write keeps the previous snapshot.
	before := h.Load()
	require.NoError(t, os.WriteFile(path, []byte(`[{"id":`), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Same(t, before, h.Load())

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not stop")
	}
}

func TestWatcher_MissingDirectory(t *testing.T) {
	defer goleak.VerifyNone(t)

	h, err := NewHolder(context.Background(), EmbeddedSource{})
	require.NoError(t, err)

	w := NewWatcher(h, filepath.Join(t.TempDir(), "nope", "catalog.json"), 0, zerolog.Nop())
	assert.Equal(t, DefaultDebounce, w.debounce)
	assert.Error(t, w.Run(context.Background()))
}
