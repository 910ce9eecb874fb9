// Package tui is the interactive kanban board. Cards are moved between
// columns with the keyboard: grab a card, carry it left or right and
// drop it.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/overdue"
	"github.com/harrisonrobin/taskboard/pkg/style"
)

const refreshInterval = 30 * time.Second

// Board is the part of the board service the TUI drives.
type Board interface {
	Columns() (map[model.Status][]model.Task, error)
	MoveTask(id string, status model.Status) (model.Task, error)
	PushDeadline(id string) (model.Task, error)
	User(id string) (model.User, error)
	Now() time.Time
}

type tickMsg time.Time

// Model is the bubbletea model for the board.
type Model struct {
	board Board
	keys  KeyMap
	help  help.Model

	columns [][]model.Task
	col     int
	rows    []int

	// grabbed is the card being carried, or nil.
	grabbed *model.Task

	notice string
	err    error
	width  int
}

// New loads the board into a model.
func New(b Board) Model {
	m := Model{
		board: b,
		keys:  DefaultKeyMap,
		help:  help.New(),

		columns: make([][]model.Task, len(model.Statuses)),
		rows:    make([]int, len(model.Statuses)),
	}
	m.reload()
	return m
}

// Run starts the board in the alternate screen and blocks until quit.
func Run(b Board) error {
	_, err := tea.NewProgram(New(b), tea.WithAltScreen()).Run()
	return err
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

func (m *Model) reload() {
	cols, err := m.board.Columns()
	if err != nil {
		m.err = err
		return
	}
	m.columns = make([][]model.Task, len(model.Statuses))
	for i, s := range model.Statuses {
		m.columns[i] = cols[s]
		if m.rows[i] >= len(m.columns[i]) {
			m.rows[i] = max(len(m.columns[i])-1, 0)
		}
	}
}

// Selected returns the card under the cursor.
func (m Model) Selected() (model.Task, bool) {
	if m.col >= len(m.columns) || len(m.columns[m.col]) == 0 {
		return model.Task{}, false
	}
	return m.columns[m.col][m.rows[m.col]], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tickMsg:
		m.reload()
		return m, tick()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Up):
		if m.grabbed == nil && m.rows[m.col] > 0 {
			m.rows[m.col]--
		}

	case key.Matches(msg, m.keys.Down):
		if m.grabbed == nil && m.rows[m.col] < len(m.columns[m.col])-1 {
			m.rows[m.col]++
		}

	case key.Matches(msg, m.keys.Left):
		if m.col > 0 {
			m.col--
		}

	case key.Matches(msg, m.keys.Right):
		if m.col < len(m.columns)-1 {
			m.col++
		}

	case key.Matches(msg, m.keys.Grab):
		m.grabOrDrop()

	case key.Matches(msg, m.keys.Cancel):
		if m.grabbed != nil {
			m.col = statusIndex(m.grabbed.Status)
			m.grabbed = nil
			m.notice = "Move cancelled."
		}

	case key.Matches(msg, m.keys.Push):
		if t, ok := m.Selected(); ok && m.grabbed == nil {
			pushed, err := m.board.PushDeadline(t.ID)
			m.setResult(err, fmt.Sprintf("Pushed %q to %s.", pushed.Title, pushed.Due.Local().Format("Mon Jan 2 15:04")))
			m.reload()
		}

	case key.Matches(msg, m.keys.Refresh):
		m.reload()
	}
	return m, nil
}

func (m *Model) grabOrDrop() {
	if m.grabbed == nil {
		t, ok := m.Selected()
		if !ok {
			return
		}
		m.grabbed = &t
		m.notice = fmt.Sprintf("Carrying %q. Move with ←/→ and drop with space.", t.Title)
		m.err = nil
		return
	}

	t := *m.grabbed
	m.grabbed = nil
	target := model.Statuses[m.col]
	if target == t.Status {
		m.notice = ""
		return
	}
	moved, err := m.board.MoveTask(t.ID, target)
	m.setResult(err, fmt.Sprintf("Moved %q to %s.", moved.Title, target.Label()))
	m.reload()
	for i, c := range m.columns[m.col] {
		if c.ID == t.ID {
			m.rows[m.col] = i
		}
	}
}

func (m *Model) setResult(err error, notice string) {
	m.err = err
	if err == nil {
		m.notice = notice
	} else {
		m.notice = ""
	}
}

func statusIndex(s model.Status) int {
	for i, st := range model.Statuses {
		if st == s {
			return i
		}
	}
	return 0
}

func (m Model) View() string {
	width := m.width
	if width == 0 {
		width = 120
	}
	colWidth := max(width/len(model.Statuses)-4, 20)
	cardWidth := colWidth - style.Column.GetHorizontalPadding()
	now := m.board.Now()

	rendered := make([]string, len(m.columns))
	for i, tasks := range m.columns {
		status := model.Statuses[i]
		var b strings.Builder
		b.WriteString(style.ColumnTitle.Render(fmt.Sprintf("%s (%d)", status.Label(), len(tasks))))
		b.WriteString("\n")
		for j, t := range tasks {
			selected := i == m.col && j == m.rows[i] && m.grabbed == nil
			b.WriteString(m.renderCard(t, now, selected, cardWidth))
			b.WriteString("\n")
		}
		if m.grabbed != nil && i == m.col {
			b.WriteString(style.SelectedCard.Width(cardWidth).Render("» " + m.grabbed.Title))
			b.WriteString("\n")
		}
		colStyle := style.Column
		if i == m.col {
			colStyle = style.FocusedColumn
		}
		rendered[i] = colStyle.Width(colWidth).Render(b.String())
	}

	var out strings.Builder
	out.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	out.WriteString("\n")
	switch {
	case m.err != nil:
		out.WriteString(style.ErrorPrefix + " " + m.err.Error())
	case m.notice != "":
		out.WriteString(style.ArrowPrefix + " " + m.notice)
	}
	out.WriteString("\n")
	out.WriteString(m.help.View(m.keys))
	return out.String()
}

func (m Model) renderCard(t model.Task, now time.Time, selected bool, width int) string {
	var b strings.Builder
	b.WriteString(style.Bold.Render(t.Title))
	b.WriteString("\n")
	b.WriteString(style.Priority(t.Priority))
	if u, err := m.board.User(t.AssigneeID); err == nil {
		b.WriteString(style.Dim.Render(" · " + u.Name))
	}
	b.WriteString("\n")
	switch {
	case overdue.Urgent(t, now):
		b.WriteString(style.Urgent.Render("URGENT " + DueText(t, now)))
	case t.Overdue(now):
		b.WriteString(style.Error.Render(DueText(t, now)))
	default:
		b.WriteString(style.Dim.Render(DueText(t, now)))
	}

	card := style.Card
	if selected {
		card = style.SelectedCard
	}
	return card.Width(width).Render(b.String())
}

// DueText describes a due date relative to now.
func DueText(t model.Task, now time.Time) string {
	if t.Due.IsZero() {
		return "no due date"
	}
	d := t.Due.Sub(now)
	switch {
	case t.Status == model.StatusDone:
		return "due " + t.Due.Local().Format("Jan 2")
	case d < 0:
		return "overdue by " + roughDuration(-d)
	case d < 48*time.Hour:
		return "due in " + roughDuration(d)
	}
	return "due " + t.Due.Local().Format("Mon Jan 2")
}

func roughDuration(d time.Duration) string {
	switch {
	case d < time.Minute:
		return "less than a minute"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 48*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	}
	return fmt.Sprintf("%dd", int(d.Hours()/24))
}
