package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/dossier/internal/model"
)

func TestKey(t *testing.T) {
	a := Key(NamespaceReport, "Acme Ltd", "UK")
	b := Key(NamespaceReport, "Acme Ltd", "UK")
	c := Key(NamespaceReport, "Acme LtdUK")
	d := Key(NamespacePage, "Acme Ltd", "UK")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "parts are separated before hashing")
	assert.NotEqual(t, a, d)
	assert.True(t, strings.HasPrefix(a, "dossier:v1:report:"))
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	require.NoError(t, c.Set("k", []byte("v"), 0))
	val, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Set("short", []byte("x"), time.Millisecond))
	time.Sleep(5 * time.Millisecond)
	_, ok = c.Get("short")
	assert.False(t, ok)

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)

	require.NoError(t, c.Set("k", []byte("v"), 0))
	require.NoError(t, c.Clear())
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key(NamespacePage, "https://en.wikipedia.org/wiki/Acme")

	_, ok := c.Get(key)
	assert.False(t, ok)

	require.NoError(t, c.Set(key, []byte("page"), 0))
	val, ok := c.Get(key)
	require.True(t, ok)
	assert.Equal(t, []byte("page"), val)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "no temp files left behind")
	assert.NotContains(t, entries[0].Name(), ":")

	require.NoError(t, c.Delete(key))
	require.NoError(t, c.Delete(key), "deleting a missing key is fine")
}

func TestDiskCache_ExpiredAndCorrupt(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	require.NoError(t, c.Set("old", []byte("v"), time.Nanosecond))
	time.Sleep(time.Millisecond)
	_, ok := c.Get("old")
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.cache"), []byte("{"), 0o644))
	_, ok = c.Get("bad")
	assert.False(t, ok)
	_, err := os.Stat(filepath.Join(dir, "bad.cache"))
	assert.True(t, os.IsNotExist(err))
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	first := NewLayeredCache(time.Minute, dir, time.Hour)
	require.NoError(t, first.Set("k", []byte("v"), 0))

	// A fresh process sees only the disk layer
	second := NewLayeredCache(time.Minute, dir, time.Hour)
	val, ok := second.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	_, ok = second.memory.Get("k")
	assert.True(t, ok)

	require.NoError(t, second.Delete("k"))
	_, ok = second.Get("k")
	assert.False(t, ok)
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	type page struct{ Title string }
	require.NoError(t, SetJSON(c, "p", page{Title: "Acme"}, 0))

	var got page
	require.True(t, GetJSON(c, "p", &got))
	assert.Equal(t, "Acme", got.Title)

	require.NoError(t, c.Set("bad", []byte("not json"), 0))
	assert.False(t, GetJSON(c, "bad", &got))
	assert.False(t, GetJSON(c, "missing", &got))
}

func TestNew(t *testing.T) {
	assert.IsType(t, Nop{}, New(model.CacheConfig{Enabled: false}))

	c := New(model.CacheConfig{Enabled: true, Dir: t.TempDir(), MemoryTTL: time.Minute, DiskTTL: time.Hour})
	assert.IsType(t, &LayeredCache{}, c)

	var nop Nop
	require.NoError(t, nop.Set("k", []byte("v"), 0))
	_, ok := nop.Get("k")
	assert.False(t, ok)
}
