package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	Name   string    `json:"name"`
	Values []float64 `json:"values"`
}

func newTestCache(t *testing.T, maxAge time.Duration) *FileCache[payload] {
	t.Helper()
	t.Setenv("TRM_CACHE_PATH", t.TempDir())
	return NewFileCache[payload]("unit", maxAge)
}

func TestFileCacheRoundTrip(t *testing.T) {
	fc := newTestCache(t, 0)
	key := fc.GenerateKey("a", 1, 2.5)

	_, ok := fc.Get(key)
	assert.False(t, ok)

	in := payload{Name: "north", Values: []float64{1, 2, 3}}
	require.NoError(t, fc.Set(key, in))

	out, ok := fc.Get(key)
	require.True(t, ok)
	assert.Equal(t, in, out)
}

func TestFileCacheCorruptionIsAMiss(t *testing.T) {
	fc := newTestCache(t, 0)
	key := fc.GenerateKey("b")
	require.NoError(t, fc.Set(key, payload{Name: "x"}))

	file := filepath.Join(fc.cacheDir, key+".json")
	tampered := `{"data":{"name":"tampered"},"created_at":"2026-01-01T00:00:00Z","checksum":"nope"}`
	require.NoError(t, os.WriteFile(file, []byte(tampered), 0o644))

	_, ok := fc.Get(key)
	assert.False(t, ok, "a bad checksum reads as a miss")
}

func TestFileCacheExpiry(t *testing.T) {
	fc := newTestCache(t, time.Nanosecond)
	key := fc.GenerateKey("c")
	require.NoError(t, fc.Set(key, payload{Name: "old"}))
	time.Sleep(2 * time.Millisecond)

	_, ok := fc.Get(key)
	assert.False(t, ok)
}

func TestGenerateKeyIsStable(t *testing.T) {
	fc := newTestCache(t, 0)
	assert.Equal(t, fc.GenerateKey("lat", 1.5), fc.GenerateKey("lat", 1.5))
	assert.NotEqual(t, fc.GenerateKey("lat", 1.5), fc.GenerateKey("lat", 1.6))
}
