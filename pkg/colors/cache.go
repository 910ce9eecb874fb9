// Package colors gives each assignee a stable Google Calendar event colour.
// Calendar offers eleven event colours; when all are taken the least
// recently used assignee gives up theirs.
package colors

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/harrisonrobin/taskboard/pkg/config"
)

// Unassigned is the colour used for tasks without an assignee.
const Unassigned = "14"

const (
	cacheFile = "assignee_colors.json"
	maxColor  = 11
)

type AssigneeState struct {
	ColorID      string    `json:"color_id"`
	LastModified time.Time `json:"last_modified"`
}

type ColorCache struct {
	Path      string
	Assignees map[string]*AssigneeState `json:"assignees"`

	mu     sync.Mutex
	dirty  bool
	now    func() time.Time
	logger *slog.Logger
}

// NewColorCache opens the cache under ~/.config/taskboard.
func NewColorCache() (*ColorCache, error) {
	dir, err := config.GetXdgHome()
	if err != nil {
		return nil, err
	}
	return NewColorCacheAt(filepath.Join(dir, cacheFile), slog.Default())
}

// NewColorCacheAt opens the cache stored at path.
func NewColorCacheAt(path string, logger *slog.Logger) (*ColorCache, error) {
	cache := &ColorCache{
		Path:      path,
		Assignees: make(map[string]*AssigneeState),
		now:       time.Now,
		logger:    logger,
	}
	if err := cache.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return cache, nil
}

func (c *ColorCache) Load() error {
	f, err := os.Open(c.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	assignees := make(map[string]*AssigneeState)
	if err := json.NewDecoder(f).Decode(&assignees); err != nil {
		return fmt.Errorf("decode colour cache %s: %w", c.Path, err)
	}
	c.mu.Lock()
	c.Assignees = assignees
	c.mu.Unlock()
	return nil
}

func (c *ColorCache) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dirty {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0700); err != nil {
		c.logger.Error("could not create colour cache directory", slog.String("error", err.Error()))
		return err
	}
	lock := flock.New(c.Path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock colour cache: %w", err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(c.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		c.logger.Error("could not create colour cache file", slog.String("error", err.Error()))
		return err
	}
	defer f.Close()
	if err := json.NewEncoder(f).Encode(c.Assignees); err != nil {
		return err
	}
	c.dirty = false
	return nil
}

// GetColorID returns the colour for an assignee, claiming a free one or
// recycling the least recently used.
func (c *ColorCache) GetColorID(assigneeID string) string {
	if assigneeID == "" {
		return Unassigned
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if state, ok := c.Assignees[assigneeID]; ok {
		state.LastModified = c.now()
		c.dirty = true
		return state.ColorID
	}
	return c.assignColor(assigneeID)
}

func (c *ColorCache) assignColor(assigneeID string) string {
	used := make(map[string]bool)
	for _, s := range c.Assignees {
		used[s.ColorID] = true
	}
	for i := 1; i <= maxColor; i++ {
		id := strconv.Itoa(i)
		if !used[id] {
			c.claim(assigneeID, id)
			return id
		}
	}

	var oldest string
	var oldestTime time.Time
	for a, s := range c.Assignees {
		if oldest == "" || s.LastModified.Before(oldestTime) {
			oldest, oldestTime = a, s.LastModified
		}
	}
	recycled := c.Assignees[oldest].ColorID
	delete(c.Assignees, oldest)
	c.claim(assigneeID, recycled)
	return recycled
}

func (c *ColorCache) claim(assigneeID, colorID string) {
	c.Assignees[assigneeID] = &AssigneeState{ColorID: colorID, LastModified: c.now()}
	c.dirty = true
}
