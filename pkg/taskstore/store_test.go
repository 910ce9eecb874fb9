package taskstore

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/taskboard/pkg/model"
)

func newTestStore() *Store {
	n := 0
	return New(WithIDGenerator(func() string {
		n++
		return fmt.Sprintf("task-%d", n)
	}))
}

var due = time.Date(2026, 5, 4, 15, 30, 0, 0, time.UTC)

func sampleTask() model.Task {
	return model.Task{
		Title:       "QA for version 1.2 release",
		Description: "Full regression on staging.",
		Status:      model.StatusDone,
		Priority:    model.PriorityMedium,
		Frequency:   model.FrequencyWeekly,
		Due:         due,
		AssigneeID:  "user-3",
	}
}

func TestCreateForcesTodo(t *testing.T) {
	s := newTestStore()
	local := due.In(time.FixedZone("PDT", -7*3600))
	in := sampleTask()
	in.ID = "caller-chosen"
	in.Due = local

	got := s.Create(in)
	assert.Equal(t, "task-1", got.ID)
	assert.Equal(t, model.StatusTodo, got.Status)
	assert.Equal(t, time.UTC, got.Due.Location())
	assert.True(t, got.Due.Equal(due))

	stored, err := s.Get(got.ID)
	require.NoError(t, err)
	assert.Equal(t, got, stored)
}

func TestUpdateMergesOnlySetFields(t *testing.T) {
	s := newTestStore()
	orig := s.Create(sampleTask())

	title := "QA for 1.3"
	prio := model.PriorityHigh
	got, err := s.Update(orig.ID, model.TaskFields{Title: &title, Priority: &prio})
	require.NoError(t, err)

	want := orig
	want.Title = title
	want.Priority = prio
	assert.Equal(t, want, got)

	_, err = s.Update("task-404", model.TaskFields{Title: &title})
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestSetStatusRoundTrip(t *testing.T) {
	s := newTestStore()
	orig := s.Create(sampleTask())

	done, err := s.SetStatus(orig.ID, model.StatusDone)
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, done.Status)

	back, err := s.SetStatus(orig.ID, model.StatusTodo)
	require.NoError(t, err)
	assert.Equal(t, orig, back)

	_, err = s.SetStatus(orig.ID, "archived")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	_, err = s.SetStatus("task-404", model.StatusDone)
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestPushDeadlineIsCumulative(t *testing.T) {
	s := newTestStore()
	orig := s.Create(sampleTask())

	once, err := s.PushDeadline(orig.ID)
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, once.Due.Sub(orig.Due))

	twice, err := s.PushDeadline(orig.ID)
	require.NoError(t, err)
	assert.Equal(t, 48*time.Hour, twice.Due.Sub(orig.Due))

	_, err = s.PushDeadline("task-404")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestDelete(t *testing.T) {
	s := newTestStore()
	a := s.Create(sampleTask())
	b := s.Create(sampleTask())

	require.NoError(t, s.Delete(a.ID))
	assert.ErrorIs(t, s.Delete(a.ID), ErrTaskNotFound)
	_, err := s.Get(a.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	all := s.All()
	require.Len(t, all, 1)
	assert.Equal(t, b.ID, all[0].ID)
	assert.Equal(t, 1, s.Len())
}

func TestLoadAndAssignedTo(t *testing.T) {
	s := newTestStore()
	seeded := sampleTask()
	seeded.ID = "task-urgent"
	require.NoError(t, s.Load(seeded))

	got, err := s.Get("task-urgent")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, got.Status, "Load keeps the given status")

	assert.Error(t, s.Load(seeded), "duplicate id")
	bad := sampleTask()
	bad.ID = "task-bad"
	bad.Status = "blocked"
	assert.ErrorIs(t, s.Load(bad), ErrInvalidStatus)

	s.Create(sampleTask())
	assert.Equal(t, 2, s.AssignedTo("user-3"))
	assert.Equal(t, 0, s.AssignedTo("user-1"))
}
