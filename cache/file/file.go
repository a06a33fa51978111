// Package file provides a cache.Cache that persists entries as files in a
// directory. It survives process restarts and can be shared by processes on
// one host.
//
// Reads are served from an in-memory snapshot which an fsnotify watcher keeps
// coherent: any change to a cache file made by another process drops the
// corresponding snapshot entry and the next Get re-reads it from disk. When a
// watcher cannot be created the cache reads from disk on every Get.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/ggoodman/incognito-go/cache"
)

const (
	fileSuffix = ".json"
	tempPrefix = ".tmp-"
)

// Option configures a file cache.
type Option func(*Cache)

// WithLogger sets the logger used for watcher diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(c *Cache) { c.log = log }
}

type storedItem struct {
	Data      []byte     `json:"data"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (s *storedItem) expired(now time.Time) bool {
	return s.ExpiresAt != nil && now.After(*s.ExpiresAt)
}

// Cache implements cache.Cache on top of a directory.
type Cache struct {
	dir string
	log *slog.Logger

	mu       sync.RWMutex
	snapshot map[string]*storedItem
	versions map[string]uint64

	watcher *fsnotify.Watcher
	wg      sync.WaitGroup
	closed  bool
}

// New opens (creating if needed) a file cache rooted at dir.
func New(dir string, opts ...Option) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("file cache: directory is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("file cache: create directory: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("file cache: resolve directory: %w", err)
	}

	c := &Cache{
		dir:      abs,
		log:      slog.Default(),
		snapshot: make(map[string]*storedItem),
		versions: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(c)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		c.log.Debug("fsnotify unavailable", slog.String("err", err.Error()))
		return c, nil
	}
	if err := w.Add(abs); err != nil {
		c.log.Debug("fsnotify add dir failed", slog.String("dir", abs), slog.String("err", err.Error()))
		_ = w.Close()
		return c, nil
	}
	c.watcher = w
	c.wg.Add(1)
	go c.watch()

	return c, nil
}

// Dir returns the absolute directory backing the cache.
func (c *Cache) Dir() string { return c.dir }

// fileName maps a cache key onto a single path element.
func fileName(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.HasPrefix(key, tempPrefix) {
		return "", fmt.Errorf("%w: %q", cache.ErrInvalidKey, key)
	}
	return url.PathEscape(key) + fileSuffix, nil
}

// Get returns the item stored under key, or a miss.
func (c *Cache) Get(ctx context.Context, key string) (cache.Item, error) {
	name, err := fileName(key)
	if err != nil {
		return nil, err
	}

	c.mu.RLock()
	stored, ok := c.snapshot[name]
	version := c.versions[name]
	c.mu.RUnlock()

	if !ok {
		stored, err = c.read(name)
		if err != nil {
			return nil, err
		}
		if stored == nil {
			return cache.Miss(key), nil
		}
		c.remember(name, version, stored)
	}

	if stored.expired(time.Now()) {
		return cache.Miss(key), nil
	}

	return cache.NewItem(key, stored.Data, true), nil
}

// Save writes item atomically (temp file + rename).
func (c *Cache) Save(ctx context.Context, item cache.Item, opts ...cache.Option) error {
	name, err := fileName(item.Key())
	if err != nil {
		return err
	}
	options := cache.ApplyOptions(opts...)

	now := time.Now()
	stored := &storedItem{Data: item.Value(), CreatedAt: now}
	if options.TTL != nil {
		expiresAt := now.Add(*options.TTL)
		stored.ExpiresAt = &expiresAt
	}

	payload, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("file cache: marshal item: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("file cache: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("file cache: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("file cache: close temp file: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(c.dir, name)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("file cache: rename into place: %w", err)
	}

	c.invalidate(name)

	return nil
}

// Delete removes the file backing key.
func (c *Cache) Delete(ctx context.Context, key string) error {
	name, err := fileName(key)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(c.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("file cache: delete %s: %w", name, err)
	}
	c.invalidate(name)
	return nil
}

// Close stops the watcher. Files on disk are left in place.
func (c *Cache) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	w := c.watcher
	c.mu.Unlock()

	var err error
	if w != nil {
		err = w.Close()
		c.wg.Wait()
	}
	return err
}

func (c *Cache) read(name string) (*storedItem, error) {
	raw, err := os.ReadFile(filepath.Join(c.dir, name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("file cache: read %s: %w", name, err)
	}
	var stored storedItem
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("file cache: decode %s: %w", name, err)
	}
	return &stored, nil
}

// remember stores a freshly read entry unless the file changed after the
// caller sampled version.
func (c *Cache) remember(name string, version uint64, stored *storedItem) {
	if c.watcher == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[name] == version {
		c.snapshot[name] = stored
	}
}

func (c *Cache) invalidate(name string) {
	c.mu.Lock()
	delete(c.snapshot, name)
	c.versions[name]++
	c.mu.Unlock()
}

func (c *Cache) watch() {
	defer c.wg.Done()
	for {
		select {
		case ev, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Base(ev.Name)
			if strings.HasPrefix(name, tempPrefix) || !strings.HasSuffix(name, fileSuffix) {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename|fsnotify.Chmod) != 0 {
				c.invalidate(name)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Debug("fsnotify error", slog.String("err", err.Error()))
		}
	}
}

var _ cache.Cache = (*Cache)(nil)
