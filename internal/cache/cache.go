// internal/cache/cache.go
//
// The local cache mirrors the full record set in one JSON file. It is read
// once at startup (before any remote fetch completes) and rewritten in full
// after every successful mutating remote call. It is also the fallback data
// source when a remote fetch fails.

package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/quotedesk/quotedesk/internal/quote"
)

// FileName is the fixed storage key holding the record set.
const FileName = "quotations.json"

// Cache persists the record set to a single file under the cache directory.
type Cache struct {
	path string
	mu   sync.Mutex
}

// New builds a cache rooted at dir, creating the directory if needed.
func New(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: ensure dir: %w", err)
	}
	return &Cache{path: filepath.Join(dir, FileName)}, nil
}

// Path returns the file backing this cache.
func (c *Cache) Path() string {
	if c == nil {
		return ""
	}
	return c.path
}

// Load reads the cached record set. A missing file and a corrupt file both
// yield an empty set: the cache is best-effort and must never fail startup.
func (c *Cache) Load() []quote.Quotation {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil
	}
	var records []quote.Quotation
	if err := json.Unmarshal(data, &records); err != nil {
		return nil
	}
	return records
}

// Save overwrites the cache with the full record set. No incremental
// diffing: the last successful fetch wins.
func (c *Cache) Save(records []quote.Quotation) error {
	if c == nil {
		return fmt.Errorf("cache: nil receiver")
	}
	if records == nil {
		records = []quote.Quotation{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("cache: encode records: %w", err)
	}
	if err := os.WriteFile(c.path, data, 0o644); err != nil {
		return fmt.Errorf("cache: write %s: %w", c.path, err)
	}
	return nil
}

// Exists reports whether the cache file has been written yet.
func (c *Cache) Exists() bool {
	if c == nil {
		return false
	}
	_, err := os.Stat(c.path)
	return !errors.Is(err, fs.ErrNotExist)
}
