package catchment

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkspaces(t *testing.T) *Workspaces {
	t.Helper()
	ws, err := NewWorkspaces(nil, t.TempDir(), "catchment-")
	require.NoError(t, err)
	return ws
}

func TestAcquireAndClose(t *testing.T) {
	ws := newTestWorkspaces(t)

	w, err := ws.Acquire(context.Background())
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(filepath.Base(w.Dir()), "catchment-"))
	assert.Equal(t, ws.Root(), filepath.Dir(w.Dir()))

	entries, err := os.ReadDir(w.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
	assert.Equal(t, 1, ws.Live())

	require.NoError(t, os.MkdirAll(filepath.Join(w.Dir(), "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(w.Dir(), "nested", "catchment.geojson"), []byte("{}"), 0o644))

	require.NoError(t, w.Close())
	_, err = os.Stat(w.Dir())
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, ws.Live())

	// Second close is a no-op.
	require.NoError(t, w.Close())
}

func TestAcquireHonoursCancelledContext(t *testing.T) {
	ws := newTestWorkspaces(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ws.Acquire(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, ws.Live())
}

func TestConcurrentAcquireNeverCollides(t *testing.T) {
	ws := newTestWorkspaces(t)

	const n = 64
	var (
		mu   sync.Mutex
		seen = map[string]bool{}
		wg   sync.WaitGroup
	)
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			w, err := ws.Acquire(context.Background())
			if !assert.NoError(t, err) {
				return
			}
			defer w.Close()
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[w.Dir()], "duplicate workspace %s", w.Dir())
			seen[w.Dir()] = true
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	assert.Equal(t, 0, ws.Live())
	entries, err := os.ReadDir(ws.Root())
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCloseAll(t *testing.T) {
	ws := newTestWorkspaces(t)
	a, err := ws.Acquire(context.Background())
	require.NoError(t, err)
	b, err := ws.Acquire(context.Background())
	require.NoError(t, err)

	require.NoError(t, ws.CloseAll())
	for _, dir := range []string{a.Dir(), b.Dir()} {
		_, err := os.Stat(dir)
		assert.True(t, os.IsNotExist(err), dir)
	}
	assert.Equal(t, 0, ws.Live())
	require.NoError(t, a.Close())
}

func TestSweepStale(t *testing.T) {
	ws := newTestWorkspaces(t)

	old := filepath.Join(ws.Root(), "catchment-old")
	fresh := filepath.Join(ws.Root(), "catchment-fresh")
	other := filepath.Join(ws.Root(), "unrelated-old")
	for _, d := range []string{old, fresh, other} {
		require.NoError(t, os.Mkdir(d, 0o755))
	}
	past := time.Now().Add(-2 * time.Hour)
	require.NoError(t, os.Chtimes(old, past, past))
	require.NoError(t, os.Chtimes(other, past, past))

	live, err := ws.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, os.Chtimes(live.Dir(), past, past))
	defer live.Close()

	n, err := ws.SweepStale(time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = os.Stat(old)
	assert.True(t, os.IsNotExist(err))
	for _, d := range []string{fresh, other, live.Dir()} {
		_, err := os.Stat(d)
		assert.NoError(t, err, d)
	}

	n, err = ws.SweepStale(0)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
