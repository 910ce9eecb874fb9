package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the kanban column a task sits in.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists the board columns in display order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

var statusLabels = map[Status]string{
	StatusTodo:       "To Do",
	StatusInProgress: "In Progress",
	StatusDone:       "Done",
}

func (s Status) Valid() bool {
	_, ok := statusLabels[s]
	return ok
}

func (s Status) String() string { return string(s) }

// Label returns the column heading for the status.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// ParseStatus accepts either the wire value ("in_progress") or the label ("In Progress").
func ParseStatus(s string) (Status, error) {
	if v, ok := parseEnum(s, statusLabels); ok {
		return v, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Priority of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var priorityLabels = map[Priority]string{
	PriorityLow:    "Low",
	PriorityMedium: "Medium",
	PriorityHigh:   "High",
}

func (p Priority) Valid() bool {
	_, ok := priorityLabels[p]
	return ok
}

func (p Priority) String() string { return string(p) }

func (p Priority) Label() string {
	if l, ok := priorityLabels[p]; ok {
		return l
	}
	return string(p)
}

// Rank orders priorities, high first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

func ParsePriority(s string) (Priority, error) {
	if v, ok := parseEnum(s, priorityLabels); ok {
		return v, nil
	}
	return "", fmt.Errorf("unknown priority %q", s)
}

// Frequency is how often a task recurs. Informational only; nothing schedules on it.
type Frequency string

const (
	FrequencyOneTime Frequency = "one_time"
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

var frequencyLabels = map[Frequency]string{
	FrequencyOneTime: "One Time",
	FrequencyDaily:   "Daily",
	FrequencyWeekly:  "Weekly",
	FrequencyMonthly: "Monthly",
	FrequencyYearly:  "Yearly",
}

func (f Frequency) Valid() bool {
	_, ok := frequencyLabels[f]
	return ok
}

func (f Frequency) String() string { return string(f) }

func (f Frequency) Label() string {
	if l, ok := frequencyLabels[f]; ok {
		return l
	}
	return string(f)
}

func ParseFrequency(s string) (Frequency, error) {
	if v, ok := parseEnum(s, frequencyLabels); ok {
		return v, nil
	}
	return "", fmt.Errorf("unknown frequency %q", s)
}

func parseEnum[T ~string](s string, labels map[T]string) (T, bool) {
	s = strings.TrimSpace(s)
	for v, label := range labels {
		if strings.EqualFold(s, string(v)) || strings.EqualFold(s, label) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Task is a single card on the board. The assignee is referenced by id;
// the user itself lives in the directory.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Status      Status    `json:"status"`
	Priority    Priority  `json:"priority"`
	Frequency   Frequency `json:"frequency"`
	Due         time.Time `json:"dueDate"`
	AssigneeID  string    `json:"assigneeId"`
}

// Overdue reports whether the task is past due and not finished.
func (t Task) Overdue(now time.Time) bool {
	return t.Status != StatusDone && !t.Due.IsZero() && t.Due.Before(now)
}

// TaskFields is a partial task update. Nil fields are left unchanged.
type TaskFields struct {
	Title       *string
	Description *string
	Priority    *Priority
	Frequency   *Frequency
	Due         *time.Time
	AssigneeID  *string
}

// Empty reports whether no field is set.
func (f TaskFields) Empty() bool {
	return f.Title == nil && f.Description == nil && f.Priority == nil &&
		f.Frequency == nil && f.Due == nil && f.AssigneeID == nil
}

// Apply merges the set fields into t and returns the result.
func (f TaskFields) Apply(t Task) Task {
	if f.Title != nil {
		t.Title = *f.Title
	}
	if f.Description != nil {
		t.Description = *f.Description
	}
	if f.Priority != nil {
		t.Priority = *f.Priority
	}
	if f.Frequency != nil {
		t.Frequency = *f.Frequency
	}
	if f.Due != nil {
		t.Due = f.Due.UTC()
	}
	if f.AssigneeID != nil {
		t.AssigneeID = *f.AssigneeID
	}
	return t
}
