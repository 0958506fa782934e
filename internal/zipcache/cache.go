// Package zipcache persists ZIP-to-coordinate lookups between runs as a JSON
// document on disk.
package zipcache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Coordinate is a latitude/longitude pair in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Cache maps normalized 5-character ZIP codes to coordinates. A nil value is
// a negative entry: the code was looked up and has no resolvable coordinate.
// Negative entries survive Save/Load, so known-bad codes are never fetched
// again on later runs.
type Cache struct {
	path    string
	entries map[string]*Coordinate
}

// New creates an empty Cache backed by the given file path.
func New(path string) *Cache {
	return &Cache{path: path, entries: make(map[string]*Coordinate)}
}

// Normalize truncates a raw ZIP code to its 5-character prefix. ok is false
// when the input has fewer than 5 characters.
func Normalize(raw string) (zip5 string, ok bool) {
	if len(raw) < 5 {
		return "", false
	}
	return raw[:5], true
}

// NormalizeUS truncates like Normalize and additionally requires all five
// characters to be digits, the only form a US ZIP lookup accepts.
func NormalizeUS(raw string) (zip5 string, ok bool) {
	zip5, ok = Normalize(raw)
	if !ok {
		return "", false
	}
	for _, ch := range zip5 {
		if ch < '0' || ch > '9' {
			return "", false
		}
	}
	return zip5, true
}

// Load reads the cache file. A missing, unreadable, or malformed file yields
// an empty cache rather than an error.
func (c *Cache) Load() {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if !os.IsNotExist(err) {
			zap.L().Warn("zipcache: unreadable cache file, starting empty",
				zap.String("path", c.path), zap.Error(err))
		}
		return
	}

	entries := make(map[string]*Coordinate)
	if err := json.Unmarshal(data, &entries); err != nil {
		zap.L().Warn("zipcache: malformed cache file, starting empty",
			zap.String("path", c.path), zap.Error(err))
		return
	}

	c.entries = entries
	zap.L().Debug("zipcache: loaded",
		zap.String("path", c.path), zap.Int("entries", len(entries)))
}

// Get returns the cached coordinate for a ZIP code. found reports whether an
// entry exists at all; a found entry with a nil coordinate is a negative
// entry. Non-normalizable input reports not found.
func (c *Cache) Get(zip string) (coord *Coordinate, found bool) {
	zip5, ok := Normalize(zip)
	if !ok {
		return nil, false
	}
	coord, found = c.entries[zip5]
	return coord, found
}

// Has reports whether an entry, positive or negative, exists for the ZIP.
func (c *Cache) Has(zip string) bool {
	_, found := c.Get(zip)
	return found
}

// Set records the coordinate for a ZIP code. A nil coordinate records a
// negative entry. Non-normalizable input is dropped.
func (c *Cache) Set(zip string, coord *Coordinate) {
	zip5, ok := Normalize(zip)
	if !ok {
		return
	}
	c.entries[zip5] = coord
}

// Len returns the number of entries, negative entries included.
func (c *Cache) Len() int { return len(c.entries) }

// Negatives returns the number of negative entries.
func (c *Cache) Negatives() int {
	n := 0
	for _, coord := range c.entries {
		if coord == nil {
			n++
		}
	}
	return n
}

// Save writes the full mapping as indented JSON. Negative entries serialize
// as null, so a reload still distinguishes "looked up, not found" from
// "never looked up". The write goes through a temp file and rename so a
// crash mid-write cannot truncate the previous cache.
func (c *Cache) Save() error {
	data, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return eris.Wrap(err, "zipcache: marshal")
	}

	tmp, err := os.CreateTemp(filepath.Dir(c.path), ".zipcache-*")
	if err != nil {
		return eris.Wrap(err, "zipcache: create temp file")
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close() //nolint:errcheck
		os.Remove(tmp.Name())
		return eris.Wrap(err, "zipcache: write temp file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrap(err, "zipcache: close temp file")
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return eris.Wrap(err, "zipcache: rename into place")
	}

	zap.L().Debug("zipcache: saved",
		zap.String("path", c.path), zap.Int("entries", len(c.entries)))
	return nil
}
