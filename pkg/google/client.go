// Package google syncs board tasks to Google Calendar events.
package google

import (
	"context"
	"fmt"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/taskboard/pkg/auth"
	"github.com/harrisonrobin/taskboard/pkg/index"
)

// NewClient authorizes through flow and opens the calendar named
// calendarName.
func NewClient(ctx context.Context, flow *auth.Flow, calendarName string, idx *index.EventIndex, opts ...Option) (*CalendarClient, error) {
	srv, err := auth.GetCalendarService(ctx, flow)
	if err != nil {
		return nil, err
	}
	calendarID, err := FindCalendar(ctx, srv, calendarName)
	if err != nil {
		return nil, err
	}
	return NewCalendarClient(srv, calendarID, idx, opts...), nil
}

// FindCalendar returns the id of the calendar whose summary is name.
func FindCalendar(ctx context.Context, srv *calendar.Service, name string) (string, error) {
	calendarList, err := srv.CalendarList.List().Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to retrieve calendar list: %w", err)
	}
	for _, item := range calendarList.Items {
		if item.Summary == name {
			return item.Id, nil
		}
	}
	return "", fmt.Errorf("calendar '%s' not found", name)
}
