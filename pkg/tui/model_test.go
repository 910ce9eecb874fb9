package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/harrisonrobin/taskboard/pkg/board"
	"github.com/harrisonrobin/taskboard/pkg/directory"
	"github.com/harrisonrobin/taskboard/pkg/logging"
	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/seed"
	"github.com/harrisonrobin/taskboard/pkg/session"
	"github.com/harrisonrobin/taskboard/pkg/taskstore"
)

var now = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

// testBoard returns the demo board logged in as email.
func testBoard(t *testing.T, email string) *board.Board {
	t.Helper()
	dir := directory.New(directory.WithHashCost(bcrypt.MinCost))
	store := taskstore.New()
	data, err := seed.Default()
	require.NoError(t, err)
	require.NoError(t, data.Apply(dir, store, now))

	sess := session.New(dir, logging.Discard())
	_, err = sess.Login(email, "password123")
	require.NoError(t, err)
	return board.New(dir, store, sess,
		board.WithLogger(logging.Discard()),
		board.WithClock(func() time.Time { return now }))
}

func press(m Model, keys ...string) Model {
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "space":
			msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func TestNewModelColumns(t *testing.T) {
	m := New(testBoard(t, "admin@team.com"))
	require.NoError(t, m.err)
	require.Len(t, m.columns, 3)
	assert.Len(t, m.columns[0], 2)
	assert.Len(t, m.columns[1], 3)
	assert.Len(t, m.columns[2], 1)

	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "task-1", sel.ID)
}

func TestModelWithoutActor(t *testing.T) {
	dir := directory.New(directory.WithHashCost(bcrypt.MinCost))
	store := taskstore.New()
	sess := session.New(dir, logging.Discard())
	b := board.New(dir, store, sess, board.WithLogger(logging.Discard()))

	m := New(b)
	require.ErrorIs(t, m.err, session.ErrNotAuthenticated)
	require.Len(t, m.columns, 3)

	m = press(m, "j", "k", "space", "l", "space", "p")
	_, ok := m.Selected()
	assert.False(t, ok)
	assert.Nil(t, m.grabbed)
	assert.Contains(t, m.View(), "not logged in")
}

func TestModelNavigation(t *testing.T) {
	m := New(testBoard(t, "admin@team.com"))

	m = press(m, "j")
	sel, _ := m.Selected()
	assert.Equal(t, "task-3", sel.ID)

	m = press(m, "j")
	sel, _ = m.Selected()
	assert.Equal(t, "task-3", sel.ID, "cursor stops at the last card")

	m = press(m, "l")
	sel, _ = m.Selected()
	assert.Equal(t, "task-urgent", sel.ID)

	m = press(m, "h", "h")
	assert.Equal(t, 0, m.col)
}

func TestGrabAndDrop(t *testing.T) {
	b := testBoard(t, "admin@team.com")
	m := New(b)

	m = press(m, "space", "l", "l", "space")
	require.NoError(t, m.err)
	assert.Contains(t, m.notice, "Moved")

	moved, err := b.Task("task-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusDone, moved.Status)
	assert.Len(t, m.columns[2], 2)

	sel, ok := m.Selected()
	require.True(t, ok)
	assert.Equal(t, "task-1", sel.ID)
}

func TestGrabCancel(t *testing.T) {
	b := testBoard(t, "admin@team.com")
	m := New(b)

	m = press(m, "space", "l", "esc")
	assert.Nil(t, m.grabbed)
	assert.Equal(t, 0, m.col)

	unchanged, err := b.Task("task-1")
	require.NoError(t, err)
	assert.Equal(t, model.StatusTodo, unchanged.Status)
}

func TestPushDeadline(t *testing.T) {
	b := testBoard(t, "admin@team.com")
	m := New(b)

	m = press(m, "p")
	require.NoError(t, m.err)
	pushed, err := b.Task("task-1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(72*time.Hour), pushed.Due)
}

func TestMemberPushesOwnTask(t *testing.T) {
	b := testBoard(t, "sam@team.com")
	m := New(b)
	// Sam sees only their own tasks, all in progress.
	assert.Empty(t, m.columns[0])
	m = press(m, "l", "p")
	require.NoError(t, m.err)

	pushed, err := b.Task("task-2")
	require.NoError(t, err)
	assert.Equal(t, now.Add(144*time.Hour), pushed.Due)
}

func TestViewShowsColumnsAndUrgency(t *testing.T) {
	m := New(testBoard(t, "admin@team.com"))
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 150, Height: 40})
	view := updated.(Model).View()

	for _, want := range []string{"To Do (2)", "In Progress (3)", "Done (1)", "Deploy urgent hotfix", "URGENT", "Alex (Admin)"} {
		assert.True(t, strings.Contains(view, want), "view missing %q", want)
	}
}

func TestQuit(t *testing.T) {
	m := New(testBoard(t, "admin@team.com"))
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestDueText(t *testing.T) {
	task := model.Task{Status: model.StatusTodo, Due: now.Add(90 * time.Minute)}
	assert.Equal(t, "due in 1h", DueText(task, now))

	task.Due = now.Add(-3 * time.Hour)
	assert.Equal(t, "overdue by 3h", DueText(task, now))

	task.Due = now.Add(-72 * time.Hour)
	assert.Equal(t, "overdue by 3d", DueText(task, now))

	assert.Equal(t, "no due date", DueText(model.Task{}, now))
}
