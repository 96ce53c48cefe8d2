// Package cache persists embedding vectors on disk so that an unchanged data
// dictionary is embedded once rather than on every start.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kyleking/askdb/internal/config"
	"github.com/kyleking/askdb/internal/logging"
)

const (
	entrySuffix = ".vec"

	DefaultTTL       = 30 * 24 * time.Hour
	DefaultMaxSizeMB = 50
)

// Entry is the on-disk form of one cached vector
type Entry struct {
	Namespace string    `json:"namespace"`
	Text      string    `json:"text"`
	Vector    []float32 `json:"vector"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Stats represents cache statistics
type Stats struct {
	TotalEntries int64   `json:"total_entries"`
	TotalSize    int64   `json:"total_size"`
	HitRate      float64 `json:"hit_rate"`
	Hits         int64   `json:"hits"`
	Misses       int64   `json:"misses"`
}

// VectorCache stores vectors keyed by namespace and text. The namespace
// identifies the model that produced the vector, so switching models never
// returns stale dimensions.
type VectorCache struct {
	directory string
	maxSize   int64
	ttl       time.Duration

	mu    sync.Mutex
	stats Stats
}

// NewVectorCache opens (creating if needed) a cache directory and drops
// expired entries
func NewVectorCache(directory string, maxSizeMB int, ttl time.Duration) (*VectorCache, error) {
	directory = config.ExpandPath(directory)

	if err := os.MkdirAll(directory, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	if maxSizeMB <= 0 {
		maxSizeMB = DefaultMaxSizeMB
	}

	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &VectorCache{
		directory: directory,
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		ttl:       ttl,
	}

	if err := c.Cleanup(context.Background()); err != nil {
		return nil, err
	}

	return c, nil
}

// Get returns the cached vector for text, if present and fresh
func (c *VectorCache) Get(ctx context.Context, namespace, text string) ([]float32, bool) {
	if ctx.Err() != nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	path := c.path(namespace, text)

	entry, err := readEntry(path)
	if err != nil || entry.Namespace != namespace || entry.Text != text {
		c.stats.Misses++
		return nil, false
	}

	if time.Now().After(entry.ExpiresAt) {
		c.stats.Misses++
		_ = os.Remove(path)

		return nil, false
	}

	c.stats.Hits++

	return entry.Vector, true
}

// Set stores vector for text, evicting the oldest entries when the cache
// would exceed its size limit
func (c *VectorCache) Set(ctx context.Context, namespace, text string, vector []float32) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	now := time.Now()

	data, err := json.Marshal(Entry{
		Namespace: namespace,
		Text:      text,
		Vector:    vector,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.enforceSize(int64(len(data))); err != nil {
		return fmt.Errorf("failed to enforce cache size: %w", err)
	}

	if err := os.WriteFile(c.path(namespace, text), data, 0600); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	return nil
}

// Clear removes all entries from cache
func (c *VectorCache) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entries, err := c.list()
	if err != nil {
		return err
	}

	for _, e := range entries {
		_ = os.Remove(e.path)
	}

	c.stats = Stats{}

	return nil
}

// Cleanup removes expired and unreadable entries
func (c *VectorCache) Cleanup(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	files, err := c.list()
	if err != nil {
		return err
	}

	now := time.Now()

	var removed int

	for _, f := range files {
		entry, err := readEntry(f.path)
		if err == nil && !now.After(entry.ExpiresAt) {
			continue
		}

		_ = os.Remove(f.path)
		removed++
	}

	if removed > 0 {
		logging.Debugf("removed %d expired embedding cache entries", removed)
	}

	return nil
}

// GetStats returns cache statistics
func (c *VectorCache) GetStats(ctx context.Context) (*Stats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	files, err := c.list()
	if err != nil {
		return nil, err
	}

	stats := c.stats
	stats.TotalEntries = int64(len(files))

	for _, f := range files {
		stats.TotalSize += f.size
	}

	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRate = float64(stats.Hits) / float64(total)
	}

	return &stats, nil
}

// Directory returns the cache directory
func (c *VectorCache) Directory() string {
	return c.directory
}

func (c *VectorCache) path(namespace, text string) string {
	return filepath.Join(c.directory, hashKey(namespace, text)+entrySuffix)
}

// hashKey creates a safe filename from a cache key
func hashKey(namespace, text string) string {
	sum := sha256.Sum256([]byte(namespace + "\x00" + text))
	return hex.EncodeToString(sum[:])[:32]
}

type fileInfo struct {
	path    string
	size    int64
	modTime time.Time
}

func (c *VectorCache) list() ([]fileInfo, error) {
	var files []fileInfo

	err := filepath.WalkDir(c.directory, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() || !strings.HasSuffix(path, entrySuffix) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}

		files = append(files, fileInfo{path: path, size: info.Size(), modTime: info.ModTime()})

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}

	return files, nil
}

// enforceSize removes the oldest entries until newEntrySize fits. Callers hold mu.
func (c *VectorCache) enforceSize(newEntrySize int64) error {
	files, err := c.list()
	if err != nil {
		return err
	}

	var current int64
	for _, f := range files {
		current += f.size
	}

	if current+newEntrySize <= c.maxSize {
		return nil
	}

	sort.Slice(files, func(i, j int) bool { return files[i].modTime.Before(files[j].modTime) })

	needed := current + newEntrySize - c.maxSize

	var freed int64

	for _, f := range files {
		if freed >= needed {
			break
		}

		_ = os.Remove(f.path)
		freed += f.size
	}

	return nil
}

func readEntry(path string) (*Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to parse cache entry: %w", err)
	}

	return &entry, nil
}
