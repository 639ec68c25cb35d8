package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"goac/internal/message"
	"goac/internal/store"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func openTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "goac.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func writeMail(t *testing.T, dir, name, from string) string {
	t.Helper()
	raw := "From: " + from + "\r\nTo: me@example.org\r\nSubject: hi\r\n\r\nbody\r\n"
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	return path
}

func waitEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for watch event")
		return Event{}
	}
}

func TestWatcherProcessesExistingAndNewFiles(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	existing := writeMail(t, dir, "existing.eml", "bob@example.org")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(s, dir)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	ev := waitEvent(t, w.Events())
	require.NoError(t, ev.Err)
	assert.Equal(t, existing, ev.Path)
	assert.Equal(t, message.KindPlain, ev.Result.Kind)
	assert.Equal(t, "bob@example.org", ev.Result.From)

	// The drain event proves the watcher is live; new files follow.
	fresh := writeMail(t, dir, "fresh.eml", "carol@example.org")
	ev = waitEvent(t, w.Events())
	require.NoError(t, ev.Err)
	assert.Equal(t, fresh, ev.Path)
	assert.Equal(t, "carol@example.org", ev.Result.From)

	// Both senders were recorded as peers.
	_, err := s.GetPeer("bob@example.org")
	assert.NoError(t, err)
	_, err = s.GetPeer("carol@example.org")
	assert.NoError(t, err)

	cancel()
	require.NoError(t, <-done)

	// fsnotify may deliver Create and Write for the same file; drain any
	// duplicates until the channel closes.
	for ev := range w.Events() {
		require.NoError(t, ev.Err)
	}
}

func TestWatcherReportsUnreadableMail(t *testing.T) {
	s := openTestStore(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.eml")
	require.NoError(t, os.WriteFile(path, []byte("no headers at all"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := New(s, dir)
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	ev := waitEvent(t, w.Events())
	assert.Equal(t, path, ev.Path)
	assert.Error(t, ev.Err)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcherMissingDir(t *testing.T) {
	s := openTestStore(t)
	w := New(s, filepath.Join(t.TempDir(), "nope"))
	err := w.Run(context.Background())
	assert.Error(t, err)
}
