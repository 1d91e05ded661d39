package loader

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingLoader struct {
	calls atomic.Int32
	fn    func(key string) ([]byte, error)
}

func (c *countingLoader) Load(_ context.Context, key string) ([]byte, error) {
	c.calls.Add(1)
	return c.fn(key)
}

func TestCached_TTL(t *testing.T) {
	next := &countingLoader{fn: func(key string) ([]byte, error) { return []byte(key), nil }}
	c := NewCached(next, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	for range 3 {
		data, err := c.Load(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "a", string(data))
	}
	assert.EqualValues(t, 1, next.calls.Load())

	now = now.Add(2 * time.Minute)
	_, err := c.Load(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 2, next.calls.Load())

	c.Invalidate("a")
	_, err = c.Load(ctx, "a")
	require.NoError(t, err)
	assert.EqualValues(t, 3, next.calls.Load())

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestCached_ErrorsAreNotCached(t *testing.T) {
	fail := true
	next := &countingLoader{fn: func(key string) ([]byte, error) {
		if fail {
			return nil, errors.New("flaky")
		}
		return []byte("ok"), nil
	}}
	c := NewCached(next, 0)

	_, err := c.Load(context.Background(), "k")
	require.Error(t, err)

	fail = false
	data, err := c.Load(context.Background(), "k")
	require.NoError(t, err)
	assert.Equal(t, "ok", string(data))
	assert.EqualValues(t, 2, next.calls.Load())
}

func TestCached_DeduplicatesConcurrentLoads(t *testing.T) {
	next := &countingLoader{fn: func(key string) ([]byte, error) {
		time.Sleep(30 * time.Millisecond)
		return []byte(key), nil
	}}
	c := NewCached(next, time.Minute)

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Load(context.Background(), "same")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, next.calls.Load())
}

func TestWatcher_InvalidatesChangedFiles(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "pricing.json")
	writeFile(t, path, "v1")

	fsys := NewFilesystem(root)
	c := NewCached(fsys, 0)
	w, err := NewWatcher(fsys, c, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	data, err := c.Load(ctx, "pricing")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))

	require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))

	assert.Eventually(t, func() bool {
		data, err := c.Load(ctx, "pricing")
		return err == nil && string(data) == "v2"
	}, 2*time.Second, 10*time.Millisecond)
}
