package analyzer

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func copyFile(t *testing.T, src, dst string) {
	t.Helper()
	d, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(dst, d, 0o644))
}

func TestCache(t *testing.T) {
	t.Parallel()
	tmpDir := t.TempDir()
	cacheDir := filepath.Join(tmpDir, "cache")
	cache, err := NewCache(cacheDir, 0)
	require.NoError(t, err)

	t.Run("SaveAndLoad", func(t *testing.T) {
		report := &Report{File: "a.yaml", Verdict: Unsafe, Errors: []ErrorSite{{Function: "main", Node: 4, Lines: []int{3}}}}
		require.NoError(t, cache.Set("a.yaml", "h1", report))

		got, found := cache.Get("a.yaml", "h1")
		require.True(t, found)
		assert.True(t, got.Cached)
		got.Cached = false
		assert.Equal(t, report, got)

		// entries survive a restart
		reopened, err := NewCache(cacheDir, 0)
		require.NoError(t, err)
		got, found = reopened.Get("a.yaml", "h1")
		require.True(t, found)
		assert.Equal(t, Unsafe, got.Verdict)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, found := cache.Get("nonexistent.yaml", "h1")
		assert.False(t, found)
	})

	t.Run("HashChanged", func(t *testing.T) {
		require.NoError(t, cache.Set("b.yaml", "h1", &Report{File: "b.yaml", Verdict: Safe}))
		_, found := cache.Get("b.yaml", "h2")
		assert.False(t, found)
		_, found = cache.Get("b.yaml", "h1")
		assert.False(t, found, "stale entries are dropped")
	})

	t.Run("InvalidateAll", func(t *testing.T) {
		require.NoError(t, cache.Set("c.yaml", "h1", &Report{File: "c.yaml"}))
		require.NoError(t, cache.InvalidateAll())
		assert.Zero(t, cache.Len())
	})
}

func TestCacheMaxAge(t *testing.T) {
	t.Parallel()
	cache, err := NewCache("", time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, cache.Set("a.yaml", "h", &Report{}))
	time.Sleep(5 * time.Millisecond)
	_, found := cache.Get("a.yaml", "h")
	assert.False(t, found)
}

func TestCacheConcurrency(t *testing.T) {
	t.Parallel()
	cache, err := NewCache(filepath.Join(t.TempDir(), "cache"), 0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			assert.NoError(t, cache.Set("a.yaml", "h", &Report{File: "a.yaml"}))
		}()
		go func() {
			defer wg.Done()
			_, _ = cache.Get("a.yaml", "h")
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, cache.Len())
}

func TestAnalyzeFileWithCache(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "prog.yaml")
	copyFile(t, "testdata/safe.yaml", path)

	cache, err := NewCache("", 0)
	require.NoError(t, err)
	a := newAnalyzer(t, WithCache(cache))

	first, err := a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, Safe, second.Verdict)
	assert.Contains(t, FormatReport(second), "(cached")

	copyFile(t, "testdata/unsafe.yaml", path)
	third, err := a.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, Unsafe, third.Verdict)

	// another configuration does not reuse the entry
	config := DefaultConfig()
	config.Domain.Size = 8
	other, err := New(config, nil, WithCache(cache))
	require.NoError(t, err)
	fourth, err := other.AnalyzeFile(context.Background(), path)
	require.NoError(t, err)
	assert.False(t, fourth.Cached)
}
