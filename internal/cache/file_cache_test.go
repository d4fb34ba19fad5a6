package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type summary struct {
	Region  string  `json:"region"`
	Flooded float64 `json:"flooded"`
}

func TestFileCacheRoundTrip(t *testing.T) {
	fc := NewFileCache[summary](t.TempDir(), "summaries")
	key := fc.GenerateKey("red.jp2", "nir.jp2", 20.0)

	_, ok := fc.Get(key)
	assert.False(t, ok)

	require.NoError(t, fc.Set(key, summary{Region: "Cluj", Flooded: 12.5}))

	got, ok := fc.Get(key)
	require.True(t, ok)
	assert.Equal(t, summary{Region: "Cluj", Flooded: 12.5}, got)
}

func TestFileCacheGenerateKey(t *testing.T) {
	fc := NewFileCache[summary](t.TempDir(), "summaries")

	assert.Equal(t, fc.GenerateKey("a", 1), fc.GenerateKey("a", 1))
	assert.NotEqual(t, fc.GenerateKey("a", 1), fc.GenerateKey("a", 2))
	assert.Len(t, fc.GenerateKey("a"), 40)
}

func TestFileCacheRejectsTamperedEntry(t *testing.T) {
	dir := t.TempDir()
	fc := NewFileCache[summary](dir, "summaries")
	require.NoError(t, fc.Set("k", summary{Region: "Iasi", Flooded: 1}))

	path := filepath.Join(dir, "summaries", "k.json")
	tampered := `{"data":{"region":"Iasi","flooded":99},"stored_at":"2024-01-01T00:00:00Z","sum":"0000"}`
	require.NoError(t, os.WriteFile(path, []byte(tampered), 0644))

	_, ok := fc.Get("k")
	assert.False(t, ok)
	assert.NoFileExists(t, path)
}

func TestFileCacheMaxAge(t *testing.T) {
	dir := t.TempDir()
	fc := NewFileCache[summary](dir, "summaries", WithMaxAge(time.Nanosecond))
	require.NoError(t, fc.Set("k", summary{Region: "Craiova"}))
	time.Sleep(time.Millisecond)

	_, ok := fc.Get("k")
	assert.False(t, ok)
	assert.NoFileExists(t, filepath.Join(dir, "summaries", "k.json"))

	fresh := NewFileCache[summary](dir, "summaries", WithMaxAge(time.Hour))
	require.NoError(t, fresh.Set("k", summary{Region: "Craiova"}))
	got, ok := fresh.Get("k")
	require.True(t, ok)
	assert.Equal(t, "Craiova", got.Region)
}

func TestFileCacheLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	fc := NewFileCache[summary](dir, "summaries")
	require.NoError(t, fc.Set("a", summary{Region: "Cluj"}))
	require.NoError(t, fc.Set("a", summary{Region: "Cluj", Flooded: 2}))

	files, err := os.ReadDir(filepath.Join(dir, "summaries"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.json", files[0].Name())
}
