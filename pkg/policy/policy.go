// Package policy decides which task fields an actor may change.
package policy

import (
	"fmt"

	"github.com/harrisonrobin/taskboard/pkg/directory"
	"github.com/harrisonrobin/taskboard/pkg/model"
)

// ErrPermissionDenied is shared with the directory so callers can match
// either source with one errors.Is.
var ErrPermissionDenied = directory.ErrPermissionDenied

// CanEdit reports whether actor may edit or delete t: admins may edit any
// task they can see, everyone else only their own.
func CanEdit(actor model.User, t model.Task) bool {
	return actor.IsAdmin() || actor.ID == t.AssigneeID
}

// CanReassignOrChangeDueDate reports whether actor may change the sensitive
// fields (due date and assignee). Individual accounts are always admin, so
// the restriction only shows up for team members.
func CanReassignOrChangeDueDate(actor model.User) bool {
	return actor.IsAdmin()
}

// AuthorizeEdit checks a partial update against current. Non-admins may
// resubmit the current due date or assignee unchanged, but not alter them.
func AuthorizeEdit(actor model.User, current model.Task, fields model.TaskFields) error {
	if !CanEdit(actor, current) {
		return fmt.Errorf("%w: %s cannot edit task %s", ErrPermissionDenied, actor.Name, current.ID)
	}
	if CanReassignOrChangeDueDate(actor) {
		return nil
	}
	if fields.Due != nil && !fields.Due.Equal(current.Due) {
		return fmt.Errorf("%w: only admins can change the due date", ErrPermissionDenied)
	}
	if fields.AssigneeID != nil && *fields.AssigneeID != current.AssigneeID {
		return fmt.Errorf("%w: only admins can reassign tasks", ErrPermissionDenied)
	}
	return nil
}
