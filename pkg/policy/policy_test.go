package policy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/harrisonrobin/taskboard/pkg/model"
)

var (
	admin  = model.User{ID: "a", Name: "Alex", Role: model.RoleAdmin, AccountType: model.AccountTeam, TeamID: "T1"}
	member = model.User{ID: "b", Name: "Sam", Role: model.RoleUser, AccountType: model.AccountTeam, TeamID: "T1"}
	other  = model.User{ID: "c", Name: "Jamie", Role: model.RoleUser, AccountType: model.AccountTeam, TeamID: "T1"}
	solo   = model.User{ID: "e", Name: "Casey", Role: model.RoleAdmin, AccountType: model.AccountIndividual}

	due  = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)
	task = model.Task{ID: "X", Title: "t", AssigneeID: "b", Due: due}
)

func TestCanEdit(t *testing.T) {
	assert.True(t, CanEdit(admin, task))
	assert.True(t, CanEdit(member, task))
	assert.False(t, CanEdit(other, task))
	assert.True(t, CanEdit(solo, model.Task{AssigneeID: "e"}))
}

func TestCanReassignOrChangeDueDate(t *testing.T) {
	assert.True(t, CanReassignOrChangeDueDate(admin))
	assert.True(t, CanReassignOrChangeDueDate(solo))
	assert.False(t, CanReassignOrChangeDueDate(member))
}

func TestAuthorizeEdit(t *testing.T) {
	title := "renamed"
	desc := "more detail"
	later := due.Add(time.Hour)
	same := due
	reassign := "c"
	keep := "b"

	tests := []struct {
		name    string
		actor   model.User
		fields  model.TaskFields
		allowed bool
	}{
		{"assignee edits title and description", member, model.TaskFields{Title: &title, Description: &desc}, true},
		{"assignee changes due date", member, model.TaskFields{Due: &later}, false},
		{"assignee resubmits same due date", member, model.TaskFields{Title: &title, Due: &same}, true},
		{"assignee reassigns", member, model.TaskFields{AssigneeID: &reassign}, false},
		{"assignee keeps assignee", member, model.TaskFields{AssigneeID: &keep}, true},
		{"non-assignee member", other, model.TaskFields{Title: &title}, false},
		{"admin changes due date", admin, model.TaskFields{Due: &later}, true},
		{"admin reassigns", admin, model.TaskFields{AssigneeID: &reassign}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := AuthorizeEdit(tt.actor, task, tt.fields)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrPermissionDenied)
			}
		})
	}
}
