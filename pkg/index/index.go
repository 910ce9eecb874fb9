// Package index remembers which Google Calendar event belongs to which
// task so syncs can skip the extended-property search.
package index

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/gofrs/flock"

	"github.com/harrisonrobin/taskboard/pkg/config"
)

const indexFile = "events.json"

type EventIndex struct {
	Mappings map[string]string `json:"mappings"`
	Path     string            `json:"-"`
	mu       sync.RWMutex
	dirty    bool
}

// NewEventIndex opens the index under ~/.config/taskboard.
func NewEventIndex() (*EventIndex, error) {
	dir, err := config.GetXdgHome()
	if err != nil {
		return nil, err
	}
	return NewEventIndexAt(filepath.Join(dir, indexFile))
}

// NewEventIndexAt opens the index stored at path. A missing file yields an
// empty index.
func NewEventIndexAt(path string) (*EventIndex, error) {
	idx := &EventIndex{
		Mappings: make(map[string]string),
		Path:     path,
	}
	if err := idx.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return idx, nil
}

func (idx *EventIndex) Load() error {
	lock := flock.New(idx.Path + ".lock")
	if err := os.MkdirAll(filepath.Dir(idx.Path), 0700); err != nil {
		return err
	}
	if err := lock.RLock(); err != nil {
		return fmt.Errorf("lock event index: %w", err)
	}
	defer lock.Unlock()

	f, err := os.Open(idx.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	mappings := make(map[string]string)
	if err := json.NewDecoder(f).Decode(&mappings); err != nil {
		return fmt.Errorf("decode event index %s: %w", idx.Path, err)
	}
	idx.mu.Lock()
	idx.Mappings = mappings
	idx.dirty = false
	idx.mu.Unlock()
	return nil
}

// Save writes the index if it changed since the last load or save.
func (idx *EventIndex) Save() error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if !idx.dirty {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(idx.Path), 0700); err != nil {
		return err
	}
	lock := flock.New(idx.Path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("lock event index: %w", err)
	}
	defer lock.Unlock()

	f, err := os.OpenFile(idx.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(idx.Mappings); err != nil {
		return err
	}
	idx.dirty = false
	return nil
}

func (idx *EventIndex) Get(taskID string) string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.Mappings[taskID]
}

func (idx *EventIndex) Set(taskID, eventID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if idx.Mappings[taskID] != eventID {
		idx.Mappings[taskID] = eventID
		idx.dirty = true
	}
}

func (idx *EventIndex) Remove(taskID string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, exists := idx.Mappings[taskID]; exists {
		delete(idx.Mappings, taskID)
		idx.dirty = true
	}
}

// Len returns the number of mapped tasks.
func (idx *EventIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.Mappings)
}
