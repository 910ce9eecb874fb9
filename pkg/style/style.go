// Package style provides consistent terminal styling using Lipgloss.
package style

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/harrisonrobin/taskboard/pkg/model"
)

var (
	// Success style for positive outcomes
	Success = lipgloss.NewStyle().
		Foreground(lipgloss.Color("10")). // Green
		Bold(true)

	// Warning style for cautionary messages
	Warning = lipgloss.NewStyle().
		Foreground(lipgloss.Color("11")). // Yellow
		Bold(true)

	// Error style for failures
	Error = lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")). // Red
		Bold(true)

	Info = lipgloss.NewStyle().
		Foreground(lipgloss.Color("12")) // Blue

	Dim = lipgloss.NewStyle().
		Foreground(lipgloss.Color("8")) // Gray

	Bold = lipgloss.NewStyle().
		Bold(true)

	SuccessPrefix = Success.Render("✓")
	WarningPrefix = Warning.Render("⚠")
	ErrorPrefix   = Error.Render("✗")
	ArrowPrefix   = Info.Render("→")

	// Toast frames transient notices such as calendar reminders.
	Toast = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("12")).
		Padding(0, 1)

	// Column is a kanban column; FocusedColumn the one holding the cursor.
	Column = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)

	FocusedColumn = Column.
			BorderForeground(lipgloss.Color("12"))

	ColumnTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			MarginBottom(1)

	// Card is a task on the board; SelectedCard the one under the cursor.
	Card = lipgloss.NewStyle().
		Padding(0, 1).
		MarginBottom(1)

	SelectedCard = Card.
			Background(lipgloss.Color("237"))

	// Urgent marks tasks due within two hours.
	Urgent = lipgloss.NewStyle().
		Foreground(lipgloss.Color("9")).
		Bold(true).
		Blink(true)
)

var priorityColors = map[model.Priority]lipgloss.Color{
	model.PriorityHigh:   lipgloss.Color("9"),  // Red
	model.PriorityMedium: lipgloss.Color("11"), // Yellow
	model.PriorityLow:    lipgloss.Color("10"), // Green
}

// Priority renders a priority label in its colour.
func Priority(p model.Priority) string {
	c, ok := priorityColors[p]
	if !ok {
		return p.Label()
	}
	return lipgloss.NewStyle().Foreground(c).Render(p.Label())
}
