package overdue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/config"
)

const tableFile = "pending_events.json"

// Entry is a calendar event whose task was not done when it was pushed.
type Entry struct {
	TaskID  string    `json:"task_id"`
	EventID string    `json:"event_id"`
	Summary string    `json:"summary"`
	Due     time.Time `json:"due"`
}

// Table tracks pushed events until their due date passes, so the event
// can be marked overdue in the calendar once.
type Table struct {
	Entries map[string]Entry `json:"entries"`
	Path    string           `json:"-"`

	mu    sync.Mutex
	dirty bool
}

// NewTable opens the table under ~/.config/taskboard.
func NewTable() (*Table, error) {
	dir, err := config.GetXdgHome()
	if err != nil {
		return nil, err
	}
	return NewTableAt(filepath.Join(dir, tableFile))
}

// NewTableAt opens the table stored at path. An empty path keeps the
// table in memory only.
func NewTableAt(path string) (*Table, error) {
	t := &Table{
		Path:    path,
		Entries: make(map[string]Entry),
	}
	if path == "" {
		return t, nil
	}
	if err := t.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return t, nil
}

func (t *Table) Load() error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	t.mu.Lock()
	defer t.mu.Unlock()
	if err := json.NewDecoder(f).Decode(t); err != nil {
		return fmt.Errorf("decode pending events %s: %w", t.Path, err)
	}
	if t.Entries == nil {
		t.Entries = make(map[string]Entry)
	}
	return nil
}

func (t *Table) Save() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.dirty || t.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(t.Path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(t.Path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(t); err != nil {
		return err
	}
	t.dirty = false
	return nil
}

// Update records an event with a due date. A zero due date removes it.
func (t *Table) Update(taskID, eventID, summary string, due time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if due.IsZero() {
		t.removeLocked(taskID)
		return
	}
	entry := Entry{TaskID: taskID, EventID: eventID, Summary: summary, Due: due}
	if old, ok := t.Entries[taskID]; !ok || old != entry {
		t.Entries[taskID] = entry
		t.dirty = true
	}
}

func (t *Table) Remove(taskID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.removeLocked(taskID)
}

func (t *Table) removeLocked(taskID string) {
	if _, ok := t.Entries[taskID]; ok {
		delete(t.Entries, taskID)
		t.dirty = true
	}
}

// Len returns the number of pending entries.
func (t *Table) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.Entries)
}

// Sweep removes and returns the entries due before now.
func (t *Table) Sweep(now time.Time) []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	var swept []Entry
	for id, entry := range t.Entries {
		if entry.Due.Before(now) {
			swept = append(swept, entry)
			delete(t.Entries, id)
			t.dirty = true
		}
	}
	return swept
}
