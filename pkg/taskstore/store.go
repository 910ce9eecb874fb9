// Package taskstore is the in-memory collection of board tasks.
package taskstore

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harrisonrobin/taskboard/pkg/model"
)

// DeadlinePush is how far PushDeadline moves a due date.
const DeadlinePush = 24 * time.Hour

var (
	// ErrTaskNotFound indicates no task has the requested id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidStatus indicates a status outside the board's columns.
	ErrInvalidStatus = errors.New("invalid status")
)

// Store is safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	tasks map[string]model.Task
	order []string
	newID func() string
}

// Option configures a Store.
type Option func(*Store)

// WithIDGenerator overrides id generation.
func WithIDGenerator(fn func() string) Option {
	return func(s *Store) {
		s.newID = fn
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		tasks: make(map[string]model.Task),
		newID: func() string { return "task-" + uuid.NewString() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create stores t under a fresh id. New tasks always start in todo.
func (s *Store) Create(t model.Task) model.Task {
	s.mu.Lock()
	defer s.mu.Unlock()

	t.ID = s.newID()
	t.Status = model.StatusTodo
	t.Due = t.Due.UTC()
	s.putLocked(t)
	return t
}

// Load stores t as given, keeping its id and status. Used for seed data.
func (s *Store) Load(t model.Task) error {
	if t.ID == "" {
		return fmt.Errorf("loading task %q: missing id", t.Title)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("loading task %s: %w: %q", t.ID, ErrInvalidStatus, t.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.ID]; exists {
		return fmt.Errorf("loading task %s: duplicate id", t.ID)
	}
	t.Due = t.Due.UTC()
	s.putLocked(t)
	return nil
}

func (s *Store) putLocked(t model.Task) {
	s.tasks[t.ID] = t
	s.order = append(s.order, t.ID)
}

// Get returns the task with the given id.
func (s *Store) Get(id string) (model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	return t, nil
}

// Update merges the set fields into the task.
func (s *Store) Update(id string, fields model.TaskFields) (model.Task, error) {
	return s.modify(id, func(t model.Task) model.Task {
		return fields.Apply(t)
	})
}

// SetStatus moves a task to another column. Any transition is allowed.
func (s *Store) SetStatus(id string, status model.Status) (model.Task, error) {
	if !status.Valid() {
		return model.Task{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.modify(id, func(t model.Task) model.Task {
		t.Status = status
		return t
	})
}

// PushDeadline moves the due date DeadlinePush later.
func (s *Store) PushDeadline(id string) (model.Task, error) {
	return s.modify(id, func(t model.Task) model.Task {
		t.Due = t.Due.Add(DeadlinePush)
		return t
	})
}

func (s *Store) modify(id string, fn func(model.Task) model.Task) (model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	t = fn(t)
	t.ID = id
	s.tasks[id] = t
	return t, nil
}

// Delete removes a task permanently.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, id)
	}
	delete(s.tasks, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// All returns every task in creation order.
func (s *Store) All() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]model.Task, 0, len(s.order))
	for _, id := range s.order {
		tasks = append(tasks, s.tasks[id])
	}
	return tasks
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// AssignedTo counts the tasks assigned to userID.
func (s *Store) AssignedTo(userID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, t := range s.tasks {
		if t.AssigneeID == userID {
			n++
		}
	}
	return n
}
