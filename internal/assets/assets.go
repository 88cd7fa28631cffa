// Package assets handles sprite sheet lookup and caching.
package assets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Faultbox/albia/internal/logger"
	"github.com/Faultbox/albia/pkg/formats"
)

// ErrNotFound is returned when no directory holds the requested sprite.
var ErrNotFound = errors.New("sprite not found")

// Manager loads S16 sprite sheets from a list of directories.
type Manager struct {
	dirs  []string
	cache *Cache
	mu    sync.RWMutex
}

// NewManager creates a new asset manager.
func NewManager() *Manager {
	return &Manager{
		cache: NewCache(),
	}
}

// AddDir adds a sprite directory to the manager.
// Directories are searched in reverse order (last added = highest priority).
func (m *Manager) AddDir(dir string) error {
	st, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("opening sprite dir %s: %w", dir, err)
	}
	if !st.IsDir() {
		return fmt.Errorf("opening sprite dir %s: not a directory", dir)
	}

	m.mu.Lock()
	m.dirs = append(m.dirs, dir)
	m.mu.Unlock()

	return nil
}

// Resolve returns the path of the sheet for name. name is either a path to
// an existing file or a file stem such as a gallery's FSP.
func (m *Manager) Resolve(name string) (string, error) {
	if st, err := os.Stat(name); err == nil && !st.IsDir() {
		return name, nil
	}

	stem := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))

	m.mu.RLock()
	defer m.mu.RUnlock()

	// Search directories in reverse order
	for i := len(m.dirs) - 1; i >= 0; i-- {
		for _, candidate := range []string{stem + ".s16", strings.ToUpper(stem) + ".S16"} {
			path := filepath.Join(m.dirs[i], candidate)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}

// Load resolves and parses a sprite sheet. Parsed sheets are cached by path.
func (m *Manager) Load(name string) (*formats.S16, error) {
	path, err := m.Resolve(name)
	if err != nil {
		return nil, err
	}

	// Check cache first
	if sheet, ok := m.cache.Get(path); ok {
		return sheet, nil
	}

	sheet, err := formats.ParseS16File(path)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	m.cache.Set(path, sheet)
	logger.Debug("sprite sheet loaded", zap.String("path", path), zap.Int("frames", len(sheet.Frames)))
	return sheet, nil
}

// GalleryImage decodes the sprite a gallery image record points at.
func (m *Manager) GalleryImage(g formats.Gallery, i int) (formats.S16Image, error) {
	if i < 0 || i >= len(g.Images) {
		return formats.S16Image{}, fmt.Errorf("%w: gallery %s has %d images", formats.ErrS16ImageIndex, g.FSP, len(g.Images))
	}
	sheet, err := m.Load(g.FSP)
	if err != nil {
		return formats.S16Image{}, err
	}
	return sheet.ImageFor(g.Images[i])
}

// Close drops all directories and cached sheets.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.dirs = nil
	m.cache.Clear()
}

// Cache is a simple in-memory cache for parsed sprite sheets.
type Cache struct {
	data map[string]*formats.S16
	mu   sync.Mutex

	// Stats
	hits   int
	misses int
}

// NewCache creates a new cache.
func NewCache() *Cache {
	return &Cache{
		data: make(map[string]*formats.S16),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) (*formats.S16, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	sheet, ok := c.data[key]
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	return sheet, ok
}

// Set stores an item in cache.
func (c *Cache) Set(key string, sheet *formats.S16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = sheet
}

// Clear clears the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]*formats.S16)
	c.hits = 0
	c.misses = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}
