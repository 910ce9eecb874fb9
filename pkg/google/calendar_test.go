package google

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/taskboard/pkg/colors"
	"github.com/harrisonrobin/taskboard/pkg/index"
	"github.com/harrisonrobin/taskboard/pkg/logging"
	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/overdue"
	"github.com/harrisonrobin/taskboard/pkg/util"
)

var now = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

// fakeCalendar serves the subset of the Calendar API the client uses.
type fakeCalendar struct {
	mu      sync.Mutex
	events  map[string]*calendar.Event
	next    int
	inserts int
	patches int
	deletes int
}

func newFakeCalendar() *fakeCalendar {
	return &fakeCalendar{events: make(map[string]*calendar.Event)}
}

func (f *fakeCalendar) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, calendar.CalendarList{Items: []*calendar.CalendarListEntry{
			{Id: "primary", Summary: "Personal"},
			{Id: "cal-tasks", Summary: "Tasks"},
		}})
	})
	mux.HandleFunc("GET /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		want := r.URL.Query().Get("privateExtendedProperty")
		var items []*calendar.Event
		for _, e := range f.events {
			if e.ExtendedProperties == nil {
				continue
			}
			for k, v := range e.ExtendedProperties.Private {
				if k+"="+v == want {
					items = append(items, e)
				}
			}
		}
		writeJSON(w, calendar.Events{Items: items})
	})
	mux.HandleFunc("POST /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		var e calendar.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.next++
		f.inserts++
		e.Id = fmt.Sprintf("evt-%d", f.next)
		f.events[e.Id] = &e
		f.mu.Unlock()
		writeJSON(w, e)
	})
	mux.HandleFunc("GET /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		e, ok := f.events[r.PathValue("id")]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
			return
		}
		writeJSON(w, e)
	})
	mux.HandleFunc("PATCH /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch calendar.Event
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		e, ok := f.events[r.PathValue("id")]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
			return
		}
		f.patches++
		if patch.Summary != "" {
			e.Summary = patch.Summary
		}
		if patch.Description != "" {
			e.Description = patch.Description
		}
		if patch.ColorId != "" {
			e.ColorId = patch.ColorId
		}
		if patch.Start != nil {
			e.Start, e.End = patch.Start, patch.End
		}
		writeJSON(w, e)
	})
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.deletes++
		delete(f.events, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

type stats struct{ inserts, patches, deletes, events int }

func (f *fakeCalendar) stats() stats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return stats{f.inserts, f.patches, f.deletes, len(f.events)}
}

func (f *fakeCalendar) summary(id string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e, ok := f.events[id]; ok {
		return e.Summary
	}
	return ""
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newService(t *testing.T, f *fakeCalendar) *calendar.Service {
	t.Helper()
	srv := httptest.NewServer(f.handler())
	t.Cleanup(srv.Close)
	svc, err := calendar.NewService(context.Background(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"))
	require.NoError(t, err)
	return svc
}

func newClient(t *testing.T, f *fakeCalendar) (*CalendarClient, *index.EventIndex, *overdue.Table) {
	t.Helper()
	dir := t.TempDir()
	idx, err := index.NewEventIndexAt(filepath.Join(dir, "events.json"))
	require.NoError(t, err)
	cache, err := colors.NewColorCacheAt(filepath.Join(dir, "colors.json"), logging.Discard())
	require.NoError(t, err)
	pending, err := overdue.NewTableAt("")
	require.NoError(t, err)

	c := NewCalendarClient(newService(t, f), "cal-tasks", idx,
		WithColors(cache),
		WithPending(pending),
		WithLogger(logging.Discard()),
		WithClock(func() time.Time { return now }))
	return c, idx, pending
}

func sampleTask() model.Task {
	return model.Task{
		ID:         "task-1",
		Title:      "Prepare Q3 report",
		Status:     model.StatusTodo,
		Priority:   model.PriorityHigh,
		Frequency:  model.FrequencyOneTime,
		Due:        now.Add(48 * time.Hour),
		AssigneeID: "user-2",
	}
}

func TestSyncTaskCreatesThenPatches(t *testing.T) {
	fake := newFakeCalendar()
	c, idx, pending := newClient(t, fake)
	ctx := context.Background()
	bea := model.User{ID: "user-2", Name: "Bea"}

	created, err := c.SyncTask(ctx, sampleTask(), bea)
	require.NoError(t, err)
	assert.Equal(t, "evt-1", created.Id)
	assert.Equal(t, "evt-1", idx.Get("task-1"))
	assert.Equal(t, "1", created.ColorId)
	assert.Equal(t, 1, pending.Len())

	// Unchanged task: no API writes.
	_, err = c.SyncTask(ctx, sampleTask(), bea)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.stats().inserts)
	assert.Equal(t, 0, fake.stats().patches)

	moved := sampleTask()
	moved.Status = model.StatusDone
	updated, err := c.SyncTask(ctx, moved, bea)
	require.NoError(t, err)
	assert.Equal(t, 1, fake.stats().patches)
	assert.True(t, strings.HasPrefix(updated.Summary, util.PrefixDone))
	assert.Equal(t, 0, pending.Len())
}

func TestSyncTaskFindsEventWithoutIndex(t *testing.T) {
	fake := newFakeCalendar()
	c, idx, _ := newClient(t, fake)
	ctx := context.Background()

	_, err := c.SyncTask(ctx, sampleTask(), model.User{})
	require.NoError(t, err)

	// Stale index entry falls back to the extended property search.
	idx.Set("task-1", "evt-missing")
	edited := sampleTask()
	edited.Title = "Prepare Q3 report draft"
	got, err := c.SyncTask(ctx, edited, model.User{})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", got.Id)
	assert.Equal(t, "Prepare Q3 report draft", got.Summary)
	assert.Equal(t, 1, fake.stats().inserts)
	assert.Equal(t, "evt-1", idx.Get("task-1"))
}

func TestRemoveTask(t *testing.T) {
	fake := newFakeCalendar()
	c, idx, pending := newClient(t, fake)
	ctx := context.Background()

	_, err := c.SyncTask(ctx, sampleTask(), model.User{})
	require.NoError(t, err)
	require.NoError(t, c.RemoveTask(ctx, "task-1"))

	assert.Equal(t, stats{inserts: 1, deletes: 1}, fake.stats())
	assert.Empty(t, idx.Get("task-1"))
	assert.Equal(t, 0, pending.Len())

	require.NoError(t, c.RemoveTask(ctx, "task-unknown"))
	assert.Equal(t, 1, fake.stats().deletes)
}

func TestMarkOverdue(t *testing.T) {
	fake := newFakeCalendar()
	c, _, pending := newClient(t, fake)
	ctx := context.Background()

	_, err := c.SyncTask(ctx, sampleTask(), model.User{})
	require.NoError(t, err)

	swept := pending.Sweep(now.Add(72 * time.Hour))
	require.Len(t, swept, 1)
	require.NoError(t, c.MarkOverdue(ctx, swept[0]))
	assert.Equal(t, "! Prepare Q3 report", fake.summary("evt-1"))
}

func TestFindCalendar(t *testing.T) {
	svc := newService(t, newFakeCalendar())
	id, err := FindCalendar(context.Background(), svc, "Tasks")
	require.NoError(t, err)
	assert.Equal(t, "cal-tasks", id)

	_, err = FindCalendar(context.Background(), svc, "Work")
	assert.Error(t, err)
}
