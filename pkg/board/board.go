// Package board is the actor-scoped application service. Every command the
// front ends issue goes through a Board, which resolves the current actor
// from the session and applies the visibility and edit policies before
// touching the task store or the directory.
package board

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/directory"
	"github.com/harrisonrobin/taskboard/pkg/ics"
	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/policy"
	"github.com/harrisonrobin/taskboard/pkg/session"
	"github.com/harrisonrobin/taskboard/pkg/taskstore"
	"github.com/harrisonrobin/taskboard/pkg/visibility"
)

// DefaultDueIn is the due offset for tasks created without a due date.
const DefaultDueIn = 24 * time.Hour

// ErrInvalidTask indicates a draft or update with bad field values.
var ErrInvalidTask = errors.New("invalid task")

// Draft is a task as submitted by an actor. Zero fields take defaults:
// medium priority, one-time frequency, due in 24h, assigned to the actor.
type Draft struct {
	Title       string
	Description string
	Priority    model.Priority
	Frequency   model.Frequency
	Due         time.Time
	AssigneeID  string
}

// Board is safe for concurrent use to the extent its parts are.
type Board struct {
	users   *directory.Directory
	tasks   *taskstore.Store
	session *session.Session
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Board.
type Option func(*Board)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Board) {
		b.logger = l
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(b *Board) {
		b.now = now
	}
}

// New wires a board over its stores.
func New(users *directory.Directory, tasks *taskstore.Store, sess *session.Session, opts ...Option) *Board {
	b := &Board{
		users:   users,
		tasks:   tasks,
		session: sess,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Session returns the session the board acts for.
func (b *Board) Session() *session.Session { return b.session }

// Now returns the board's current time.
func (b *Board) Now() time.Time { return b.now() }

// Actor returns the logged-in user.
func (b *Board) Actor() (model.User, error) {
	return b.session.Actor()
}

// Visible returns the actor's tasks in creation order.
func (b *Board) Visible() ([]model.Task, error) {
	actor, err := b.Actor()
	if err != nil {
		return nil, err
	}
	return visibility.VisibleTasks(actor, b.tasks, b.users), nil
}

// Columns returns the actor's tasks grouped by status.
func (b *Board) Columns() (map[model.Status][]model.Task, error) {
	tasks, err := b.Visible()
	if err != nil {
		return nil, err
	}
	return visibility.Columns(tasks), nil
}

// Task returns one visible task.
func (b *Board) Task(id string) (model.Task, error) {
	actor, err := b.Actor()
	if err != nil {
		return model.Task{}, err
	}
	return b.visibleTask(actor, id)
}

func (b *Board) visibleTask(actor model.User, id string) (model.Task, error) {
	t, err := b.tasks.Get(id)
	if err != nil {
		return model.Task{}, err
	}
	if !visibility.CanSee(actor, t, b.users) {
		return model.Task{}, fmt.Errorf("%w: %s", taskstore.ErrTaskNotFound, id)
	}
	return t, nil
}

// TeamMembers returns the users the actor may assign tasks to.
func (b *Board) TeamMembers() ([]model.User, error) {
	actor, err := b.Actor()
	if err != nil {
		return nil, err
	}
	return b.users.TeamOf(actor), nil
}

// User resolves a user id, typically a task's assignee.
func (b *Board) User(id string) (model.User, error) {
	return b.users.Get(id)
}

// CreateTask validates d, fills defaults and stores a new todo task.
func (b *Board) CreateTask(d Draft) (model.Task, error) {
	actor, err := b.Actor()
	if err != nil {
		return model.Task{}, err
	}

	t := model.Task{
		Title:       strings.TrimSpace(d.Title),
		Description: strings.TrimSpace(d.Description),
		Priority:    d.Priority,
		Frequency:   d.Frequency,
		Due:         d.Due,
		AssigneeID:  d.AssigneeID,
	}
	if t.Priority == "" {
		t.Priority = model.PriorityMedium
	}
	if t.Frequency == "" {
		t.Frequency = model.FrequencyOneTime
	}
	if t.Due.IsZero() {
		t.Due = b.now().Add(DefaultDueIn)
	}
	if t.AssigneeID == "" {
		t.AssigneeID = actor.ID
	}

	if err := validateTask(t); err != nil {
		return model.Task{}, err
	}
	if t.AssigneeID != actor.ID && !policy.CanReassignOrChangeDueDate(actor) {
		return model.Task{}, fmt.Errorf("%w: only admins can assign tasks to others", policy.ErrPermissionDenied)
	}
	if err := b.checkAssignee(actor, t.AssigneeID); err != nil {
		return model.Task{}, err
	}

	created := b.tasks.Create(t)
	b.logger.Info("task created",
		slog.String("task", created.ID),
		slog.String("actor", actor.ID),
		slog.String("assignee", created.AssigneeID))
	return created, nil
}

// EditTask applies a partial update on behalf of the actor.
func (b *Board) EditTask(id string, fields model.TaskFields) (model.Task, error) {
	actor, err := b.Actor()
	if err != nil {
		return model.Task{}, err
	}
	current, err := b.visibleTask(actor, id)
	if err != nil {
		return model.Task{}, err
	}
	if err := policy.AuthorizeEdit(actor, current, fields); err != nil {
		return model.Task{}, err
	}
	if fields.Title != nil {
		title := strings.TrimSpace(*fields.Title)
		fields.Title = &title
	}
	if err := validateTask(fields.Apply(current)); err != nil {
		return model.Task{}, err
	}
	if fields.AssigneeID != nil && *fields.AssigneeID != current.AssigneeID {
		if err := b.checkAssignee(actor, *fields.AssigneeID); err != nil {
			return model.Task{}, err
		}
	}

	updated, err := b.tasks.Update(id, fields)
	if err != nil {
		return model.Task{}, err
	}
	b.logger.Info("task updated", slog.String("task", id), slog.String("actor", actor.ID))
	return updated, nil
}

// MoveTask changes a visible task's status. Any viewer may move a task.
func (b *Board) MoveTask(id string, status model.Status) (model.Task, error) {
	actor, err := b.Actor()
	if err != nil {
		return model.Task{}, err
	}
	if _, err := b.visibleTask(actor, id); err != nil {
		return model.Task{}, err
	}
	moved, err := b.tasks.SetStatus(id, status)
	if err != nil {
		return model.Task{}, err
	}
	b.logger.Info("task moved",
		slog.String("task", id),
		slog.String("status", string(status)),
		slog.String("actor", actor.ID))
	return moved, nil
}

// DeleteTask permanently removes a task the actor may edit.
func (b *Board) DeleteTask(id string) (model.Task, error) {
	actor, t, err := b.editable(id)
	if err != nil {
		return model.Task{}, err
	}
	if err := b.tasks.Delete(id); err != nil {
		return model.Task{}, err
	}
	b.logger.Info("task deleted", slog.String("task", id), slog.String("actor", actor.ID))
	return t, nil
}

// PushDeadline moves a task the actor may edit 24h later.
func (b *Board) PushDeadline(id string) (model.Task, error) {
	actor, _, err := b.editable(id)
	if err != nil {
		return model.Task{}, err
	}
	pushed, err := b.tasks.PushDeadline(id)
	if err != nil {
		return model.Task{}, err
	}
	b.logger.Info("deadline pushed",
		slog.String("task", id),
		slog.Time("due", pushed.Due),
		slog.String("actor", actor.ID))
	return pushed, nil
}

func (b *Board) editable(id string) (model.User, model.Task, error) {
	actor, err := b.Actor()
	if err != nil {
		return model.User{}, model.Task{}, err
	}
	t, err := b.visibleTask(actor, id)
	if err != nil {
		return model.User{}, model.Task{}, err
	}
	if !policy.CanEdit(actor, t) {
		return model.User{}, model.Task{}, fmt.Errorf("%w: %s cannot edit task %s", policy.ErrPermissionDenied, actor.Name, id)
	}
	return actor, t, nil
}

// AddTeamMember creates an account on the actor's team.
func (b *Board) AddTeamMember(m directory.Member) (model.User, error) {
	actor, err := b.Actor()
	if err != nil {
		return model.User{}, err
	}
	u, err := b.users.AddTeamMember(actor, m)
	if err != nil {
		return model.User{}, err
	}
	b.logger.Info("team member added", slog.String("user", u.ID), slog.String("team", u.TeamID))
	return u, nil
}

// RemoveTeamMember deletes a member of the actor's team. Members that are
// still assigned to tasks cannot be removed.
func (b *Board) RemoveTeamMember(id string) error {
	actor, err := b.Actor()
	if err != nil {
		return err
	}
	if !actor.IsTeamAdmin() {
		return fmt.Errorf("%w: only team admins can remove members", policy.ErrPermissionDenied)
	}
	if id == actor.ID {
		return fmt.Errorf("%w: cannot remove yourself", policy.ErrPermissionDenied)
	}
	target, err := b.users.Get(id)
	if err != nil {
		return err
	}
	if target.TeamID != actor.TeamID {
		return fmt.Errorf("%w: %s is not on your team", policy.ErrPermissionDenied, target.Name)
	}
	if err := b.users.Remove(id, func(userID string) bool { return b.tasks.AssignedTo(userID) > 0 }); err != nil {
		return err
	}
	b.logger.Info("team member removed", slog.String("user", id), slog.String("team", actor.TeamID))
	return nil
}

// ExportCalendar writes a visible task as an .ics file into dir.
func (b *Board) ExportCalendar(id, dir string) (string, error) {
	t, err := b.Task(id)
	if err != nil {
		return "", err
	}
	return ics.WriteFile(dir, t, b.now())
}

func (b *Board) checkAssignee(actor model.User, assigneeID string) error {
	for _, m := range b.users.TeamOf(actor) {
		if m.ID == assigneeID {
			return nil
		}
	}
	return fmt.Errorf("%w: assignee %s is not on your team", ErrInvalidTask, assigneeID)
}

func validateTask(t model.Task) error {
	switch {
	case t.Title == "":
		return fmt.Errorf("%w: title is required", ErrInvalidTask)
	case !t.Priority.Valid():
		return fmt.Errorf("%w: unknown priority %q", ErrInvalidTask, t.Priority)
	case !t.Frequency.Valid():
		return fmt.Errorf("%w: unknown frequency %q", ErrInvalidTask, t.Frequency)
	case t.Due.IsZero():
		return fmt.Errorf("%w: due date is required", ErrInvalidTask)
	case t.AssigneeID == "":
		return fmt.Errorf("%w: assignee is required", ErrInvalidTask)
	}
	return nil
}
