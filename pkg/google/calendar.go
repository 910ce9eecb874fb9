package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"

	"github.com/harrisonrobin/taskboard/pkg/colors"
	"github.com/harrisonrobin/taskboard/pkg/index"
	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/overdue"
	"github.com/harrisonrobin/taskboard/pkg/util"
)

// CalendarClient pushes tasks to one Google calendar.
type CalendarClient struct {
	srv        *calendar.Service
	calendarID string
	index      *index.EventIndex
	colors     *colors.ColorCache
	pending    *overdue.Table
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*CalendarClient)

func WithColors(c *colors.ColorCache) Option {
	return func(cc *CalendarClient) { cc.colors = c }
}

// WithPending records pushed events so the overdue watcher can flag them.
func WithPending(t *overdue.Table) Option {
	return func(cc *CalendarClient) { cc.pending = t }
}

func WithLogger(l *slog.Logger) Option {
	return func(cc *CalendarClient) { cc.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(cc *CalendarClient) { cc.now = now }
}

// NewCalendarClient creates a new Google Calendar client.
func NewCalendarClient(srv *calendar.Service, calendarID string, idx *index.EventIndex, opts ...Option) *CalendarClient {
	c := &CalendarClient{
		srv:        srv,
		calendarID: calendarID,
		index:      idx,
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CalendarID returns the id of the calendar events are written to.
func (c *CalendarClient) CalendarID() string { return c.calendarID }

// SyncTask creates the event for a task or patches the fields that changed.
func (c *CalendarClient) SyncTask(ctx context.Context, task model.Task, assignee model.User) (*calendar.Event, error) {
	colorID := colors.Unassigned
	if c.colors != nil {
		colorID = c.colors.GetColorID(task.AssigneeID)
	}
	now := c.now()
	event, err := util.ConvertTaskToCalendarEvent(task, assignee, colorID, now)
	if err != nil {
		return nil, err
	}

	existing, err := c.findEvent(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("error searching for event: %w", err)
	}

	var synced *calendar.Event
	if existing != nil {
		patch, err := util.EventNeedsUpdate(existing, event)
		if err != nil {
			c.logger.Warn("could not compare task with its calendar event",
				slog.String("task", task.ID), slog.String("error", err.Error()))
			return nil, err
		}
		if patch == nil {
			synced = existing
		} else if synced, err = c.PatchEvent(ctx, existing.Id, patch); err != nil {
			return nil, err
		}
	} else if synced, err = c.srv.Events.Insert(c.calendarID, event).Context(ctx).Do(); err != nil {
		return nil, err
	}

	if c.index != nil {
		c.index.Set(task.ID, synced.Id)
	}
	if c.pending != nil {
		if task.Status == model.StatusDone || task.Overdue(now) {
			c.pending.Remove(task.ID)
		} else {
			c.pending.Update(task.ID, synced.Id, event.Summary, task.Due)
		}
	}
	c.logger.Info("task synced to calendar", slog.String("task", task.ID), slog.String("event", synced.Id))
	return synced, nil
}

// RemoveTask deletes the event for a task. A task without an event is not
// an error.
func (c *CalendarClient) RemoveTask(ctx context.Context, taskID string) error {
	existing, err := c.findEvent(ctx, taskID)
	if err != nil {
		return fmt.Errorf("error searching for event: %w", err)
	}
	if c.index != nil {
		c.index.Remove(taskID)
	}
	if c.pending != nil {
		c.pending.Remove(taskID)
	}
	if existing == nil {
		return nil
	}
	if err := c.DeleteEvent(ctx, existing.Id); err != nil && !isStatus(err, http.StatusGone, http.StatusNotFound) {
		return err
	}
	return nil
}

// MarkOverdue prefixes the summary of a swept event.
func (c *CalendarClient) MarkOverdue(ctx context.Context, entry overdue.Entry) error {
	_, err := c.PatchEvent(ctx, entry.EventID, &calendar.Event{
		Summary: util.PrefixOverdue + " " + entry.Summary,
	})
	return err
}

// PatchEvent performs a partial update on an event.
func (c *CalendarClient) PatchEvent(ctx context.Context, eventID string, patch *calendar.Event) (*calendar.Event, error) {
	return c.srv.Events.Patch(c.calendarID, eventID, patch).Context(ctx).Do()
}

// DeleteEvent deletes an event from the calendar.
func (c *CalendarClient) DeleteEvent(ctx context.Context, eventID string) error {
	return c.srv.Events.Delete(c.calendarID, eventID).Context(ctx).Do()
}

// GetEventByTaskID searches for the event carrying the task id in its
// private extended properties.
func (c *CalendarClient) GetEventByTaskID(ctx context.Context, taskID string) (*calendar.Event, error) {
	events, err := c.srv.Events.List(c.calendarID).
		PrivateExtendedProperty(fmt.Sprintf("%s=%s", util.TaskIDProperty, taskID)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, err
	}
	if len(events.Items) > 0 {
		return events.Items[0], nil
	}
	return nil, nil
}

// findEvent tries the local index first and falls back to the API search.
func (c *CalendarClient) findEvent(ctx context.Context, taskID string) (*calendar.Event, error) {
	if c.index != nil {
		if eventID := c.index.Get(taskID); eventID != "" {
			event, err := c.srv.Events.Get(c.calendarID, eventID).Context(ctx).Do()
			if err == nil && event.Status != "cancelled" {
				return event, nil
			}
			c.index.Remove(taskID)
		}
	}
	return c.GetEventByTaskID(ctx, taskID)
}

func isStatus(err error, codes ...int) bool {
	var apiErr *googleapi.Error
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.Code == code {
			return true
		}
	}
	return false
}
