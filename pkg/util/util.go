package util

import (
	"fmt"
	"strings"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/taskboard/pkg/model"
)

const (
	// TaskIDProperty is the private extended property linking an event to its task.
	TaskIDProperty = "taskboard_id"

	// EventLength is the duration given to calendar events.
	EventLength = time.Hour
)

// Summary prefixes by task state.
const (
	PrefixDone       = "✓"
	PrefixInProgress = "‣"
	PrefixOverdue    = "!"
)

// EventNeedsUpdate returns a patch with the fields of target that differ
// from existing, or nil if the event is current.
func EventNeedsUpdate(existing, target *calendar.Event) (*calendar.Event, error) {
	patch := &calendar.Event{}
	needsUpdate := false

	if existing.Summary != target.Summary {
		patch.Summary = target.Summary
		needsUpdate = true
	}
	if existing.Description != target.Description {
		patch.Description = target.Description
		needsUpdate = true
	}
	if existing.ColorId != target.ColorId {
		patch.ColorId = target.ColorId
		needsUpdate = true
	}

	if existing.Start == nil || existing.End == nil {
		patch.Start = target.Start
		patch.End = target.End
		return patch, nil
	}
	existingStart, err := time.Parse(time.RFC3339, existing.Start.DateTime)
	if err != nil {
		return nil, err
	}
	targetStart, err := time.Parse(time.RFC3339, target.Start.DateTime)
	if err != nil {
		return nil, err
	}
	existingEnd, err := time.Parse(time.RFC3339, existing.End.DateTime)
	if err != nil {
		return nil, err
	}
	targetEnd, err := time.Parse(time.RFC3339, target.End.DateTime)
	if err != nil {
		return nil, err
	}
	if !existingStart.Equal(targetStart) || !existingEnd.Equal(targetEnd) {
		patch.Start = target.Start
		patch.End = target.End
		needsUpdate = true
	}

	if needsUpdate {
		return patch, nil
	}
	return nil, nil
}

// SummaryFor returns the event title: the task title with a state prefix.
func SummaryFor(task model.Task, now time.Time) string {
	prefix := ""
	switch {
	case task.Status == model.StatusDone:
		prefix = PrefixDone
	case task.Overdue(now):
		prefix = PrefixOverdue
	case task.Status == model.StatusInProgress:
		prefix = PrefixInProgress
	}
	if prefix == "" {
		return task.Title
	}
	return prefix + " " + task.Title
}

// ConvertTaskToCalendarEvent builds the event for task. The event starts
// at the due date and lasts EventLength.
func ConvertTaskToCalendarEvent(task model.Task, assignee model.User, colorID string, now time.Time) (*calendar.Event, error) {
	if task.ID == "" {
		return nil, fmt.Errorf("could not convert task without id")
	}
	if task.Due.IsZero() {
		return nil, fmt.Errorf("task has no due date: %s", task.ID)
	}
	start := task.Due.UTC()
	end := start.Add(EventLength)

	var desc strings.Builder
	if task.Description != "" {
		desc.WriteString(task.Description)
		desc.WriteString("\n\n")
	}
	fmt.Fprintf(&desc, "Status: %s\n", task.Status.Label())
	fmt.Fprintf(&desc, "Priority: %s\n", task.Priority.Label())
	if task.Frequency != model.FrequencyOneTime {
		fmt.Fprintf(&desc, "Repeats: %s\n", task.Frequency.Label())
	}
	if assignee.Name != "" {
		fmt.Fprintf(&desc, "Assignee: %s\n", assignee.Name)
	}
	fmt.Fprintf(&desc, "ID: %s\n", task.ID)

	return &calendar.Event{
		Summary:     SummaryFor(task, now),
		Description: desc.String(),
		ColorId:     colorID,
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
		ExtendedProperties: &calendar.EventExtendedProperties{
			Private: map[string]string{TaskIDProperty: task.ID},
		},
	}, nil
}
