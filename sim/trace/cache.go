package trace

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Cache persists traces to a directory, one JSON file per content key.
// Keys are content hashes, so the cache follows a write-once convention:
// a file that already exists for a key holds the same content and is left
// in place. Concurrent writers of the same key are not coordinated beyond
// that convention.
type Cache struct {
	Dir string
}

// NewCache creates a Cache rooted at dir, creating the directory if needed.
func NewCache(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating trace cache dir: %w", err)
	}
	return &Cache{Dir: dir}, nil
}

func (c *Cache) path(key string) string {
	return filepath.Join(c.Dir, key+".json")
}

// Load returns the cached trace for key, or (nil, false) on a miss.
// A file with a mismatched format version or key is stale and reported as a
// miss so the caller regenerates it.
func (c *Cache) Load(key string) (*Trace, bool, error) {
	data, err := os.ReadFile(c.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached trace: %w", err)
	}

	var t Trace
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, false, fmt.Errorf("parsing cached trace: %w", err)
	}
	if t.FormatVersion != FormatVersion || t.Key != key {
		logrus.Warnf("stale trace cache entry %s (version %d, want %d); regenerating", key, t.FormatVersion, FormatVersion)
		return nil, false, nil
	}
	return &t, true, nil
}

// Save writes the trace under its own key. An existing file for the same key
// is left untouched (write-once).
func (c *Cache) Save(t *Trace) error {
	path := c.path(t.Key)
	if _, err := os.Stat(path); err == nil {
		logrus.Debugf("trace %s already cached", t.Key)
		return nil
	}

	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling trace: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}
