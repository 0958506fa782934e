package zipcache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"90210", "90210", true},
		{"90210-1234", "90210", true},
		{"902101234", "90210", true},
		{"9021", "", false},
		{"", "", false},
		{"abcde", "abcde", true}, // cache keys are not digit-restricted
	}
	for _, tt := range tests {
		got, ok := Normalize(tt.in)
		assert.Equal(t, tt.wantOK, ok, "Normalize(%q) ok", tt.in)
		assert.Equal(t, tt.want, got, "Normalize(%q)", tt.in)
	}
}

func TestNormalizeUS(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"90210", "90210", true},
		{"90210-1234", "90210", true},
		{"9021", "", false},
		{"", "", false},
		{"abcde", "", false},
		{"ABCDE", "", false},
		{"12a45", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeUS(tt.in)
		assert.Equal(t, tt.wantOK, ok, "NormalizeUS(%q) ok", tt.in)
		assert.Equal(t, tt.want, got, "NormalizeUS(%q)", tt.in)
	}
}

func TestCacheSetGet(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache.json"))

	coord, found := c.Get("90210")
	assert.False(t, found)
	assert.Nil(t, coord)

	c.Set("90210", &Coordinate{Lat: 34.09, Lng: -118.41})
	coord, found = c.Get("90210")
	require.True(t, found)
	require.NotNil(t, coord)
	assert.InDelta(t, 34.09, coord.Lat, 0.0001)
	assert.InDelta(t, -118.41, coord.Lng, 0.0001)

	// ZIP+4 input hits the same normalized key.
	coord, found = c.Get("90210-1234")
	require.True(t, found)
	require.NotNil(t, coord)

	assert.True(t, c.Has("90210"))
	assert.Equal(t, 1, c.Len())
}

func TestCacheNegativeEntry(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache.json"))

	c.Set("00000", nil)

	coord, found := c.Get("00000")
	assert.True(t, found, "negative entry must still be found")
	assert.Nil(t, coord)
	assert.True(t, c.Has("00000"))
	assert.Equal(t, 1, c.Negatives())
}

func TestCacheNonNormalizableInput(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "cache.json"))

	c.Set("123", &Coordinate{Lat: 1, Lng: 2})
	assert.Equal(t, 0, c.Len(), "short codes must never enter the cache")

	_, found := c.Get("123")
	assert.False(t, found)
	assert.False(t, c.Has(""))
}

func TestCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c := New(path)
	c.Set("90210", &Coordinate{Lat: 34.09, Lng: -118.41})
	c.Set("00000", nil)
	require.NoError(t, c.Save())

	fresh := New(path)
	fresh.Load()

	require.Equal(t, 2, fresh.Len())

	coord, found := fresh.Get("90210")
	require.True(t, found)
	require.NotNil(t, coord)
	assert.InDelta(t, 34.09, coord.Lat, 0.0001)
	assert.InDelta(t, -118.41, coord.Lng, 0.0001)

	// The negative entry survives the round trip as an entry, not as absence.
	coord, found = fresh.Get("00000")
	assert.True(t, found)
	assert.Nil(t, coord)

	// A code that was never looked up stays absent.
	_, found = fresh.Get("99999")
	assert.False(t, found)
}

func TestCacheLoadMissingFile(t *testing.T) {
	c := New(filepath.Join(t.TempDir(), "does-not-exist.json"))
	c.Load()
	assert.Equal(t, 0, c.Len())
}

func TestCacheLoadMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0644))

	c := New(path)
	c.Load()
	assert.Equal(t, 0, c.Len())

	// A usable cache after a bad load: Set and Save still work.
	c.Set("90210", &Coordinate{Lat: 34.09, Lng: -118.41})
	require.NoError(t, c.Save())
}

func TestCacheSaveOverwritesPrevious(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.json")

	c := New(path)
	c.Set("10001", &Coordinate{Lat: 40.75, Lng: -73.99})
	require.NoError(t, c.Save())

	c.Set("60601", nil)
	require.NoError(t, c.Save())

	fresh := New(path)
	fresh.Load()
	assert.Equal(t, 2, fresh.Len())
	assert.Equal(t, 1, fresh.Negatives())
}
