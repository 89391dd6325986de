package analyzer

import (
	"crypto/sha256"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const cacheFileName = "reach_cache.gob"

type cacheEntry struct {
	// Hash covers the file contents and the configuration it was analyzed
	// with.
	Hash      string
	Report    Report
	CreatedAt time.Time
}

// Cache remembers the reports of files whose contents and configuration did
// not change since they were analyzed. With a directory, entries survive
// between runs.
type Cache struct {
	dir     string
	entries map[string]cacheEntry
	mutex   sync.Mutex
	maxAge  time.Duration
}

// NewCache returns a cache persisted under dir, or kept in memory only when
// dir is empty. A zero maxAge keeps entries forever.
func NewCache(dir string, maxAge time.Duration) (*Cache, error) {
	c := &Cache{
		dir:     dir,
		entries: make(map[string]cacheEntry),
		maxAge:  maxAge,
	}
	if dir == "" {
		return c, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	if err := c.load(); err != nil {
		return nil, fmt.Errorf("failed to load cache: %w", err)
	}
	return c, nil
}

func (c *Cache) load() error {
	file, err := os.Open(filepath.Join(c.dir, cacheFileName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	defer file.Close()

	return gob.NewDecoder(file).Decode(&c.entries)
}

func (c *Cache) save() error {
	if c.dir == "" {
		return nil
	}
	file, err := os.Create(filepath.Join(c.dir, cacheFileName))
	if err != nil {
		return fmt.Errorf("failed to create cache file: %w", err)
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(c.entries); err != nil {
		return fmt.Errorf("failed to encode cache file: %w", err)
	}
	return nil
}

// Get returns the report stored for filename if hash still matches.
func (c *Cache) Get(filename, hash string) (*Report, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[filename]
	if !ok {
		return nil, false
	}
	if entry.Hash != hash || (c.maxAge > 0 && time.Since(entry.CreatedAt) > c.maxAge) {
		delete(c.entries, filename)
		return nil, false
	}
	r := entry.Report
	r.Cached = true
	return &r, true
}

// Set stores the report of filename.
func (c *Cache) Set(filename, hash string, r *Report) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries[filename] = cacheEntry{
		Hash:      hash,
		Report:    *r,
		CreatedAt: time.Now(),
	}
	return c.save()
}

// InvalidateAll drops every entry.
func (c *Cache) InvalidateAll() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[string]cacheEntry)
	return c.save()
}

// Len returns the number of entries.
func (c *Cache) Len() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.entries)
}

// contentHash fingerprints a file together with the configuration, so that
// a change of either invalidates its cached report.
func contentHash(filename string, config Config) (string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to calculate hash: %w", err)
	}
	settings, err := yaml.Marshal(config)
	if err != nil {
		return "", err
	}
	hash.Write(settings)
	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
