package gdelt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/RRaffay/nuntium-em/internal/globaltime"
)

type cacheEnvelope struct {
	FetchedAt time.Time   `json:"fetched_at"`
	Records   []RawRecord `json:"records"`
}

// Cache stores fetched record batches as JSON files keyed by country and
// window, with a fixed expiry.
type Cache struct {
	dir string
	ttl time.Duration
}

func NewCache(dir string, ttl time.Duration) *Cache {
	return &Cache{dir: dir, ttl: ttl}
}

func (c *Cache) path(country string, hours int) string {
	return filepath.Join(c.dir, fmt.Sprintf("%s_%dhours.json", country, hours))
}

// Get returns the cached batch for the key if present and unexpired.
func (c *Cache) Get(country string, hours int) ([]RawRecord, bool) {
	if c == nil {
		return nil, false
	}
	data, err := os.ReadFile(c.path(country, hours))
	if err != nil {
		return nil, false
	}
	var env cacheEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	if globaltime.Now().Sub(env.FetchedAt) > c.ttl {
		return nil, false
	}
	return env.Records, true
}

// Put writes the batch atomically via a temp file and rename.
func (c *Cache) Put(country string, hours int, records []RawRecord) error {
	if c == nil {
		return nil
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	env := cacheEnvelope{FetchedAt: globaltime.Now(), Records: records}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal cache entry: %w", err)
	}

	target := c.path(country, hours)
	tmp, err := os.CreateTemp(c.dir, "cache-*.tmp")
	if err != nil {
		return fmt.Errorf("create cache temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close cache temp file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("publish cache entry: %w", err)
	}
	return nil
}
