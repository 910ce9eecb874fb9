// Package visibility derives which tasks an actor may see.
//
// Individual accounts and plain team members see the tasks assigned to
// them. Team admins see every task assigned to anyone on their team. The
// view is recomputed on every call.
package visibility

import "github.com/harrisonrobin/taskboard/pkg/model"

// TaskLister returns the full task collection.
type TaskLister interface {
	All() []model.Task
}

// UserLookup resolves an assignee id.
type UserLookup interface {
	Get(id string) (model.User, error)
}

// VisibleTasks returns the tasks actor may see, in store order.
func VisibleTasks(actor model.User, tasks TaskLister, users UserLookup) []model.Task {
	var visible []model.Task
	for _, t := range tasks.All() {
		if CanSee(actor, t, users) {
			visible = append(visible, t)
		}
	}
	return visible
}

// CanSee reports whether a single task is in actor's view.
func CanSee(actor model.User, t model.Task, users UserLookup) bool {
	switch actor.AccountType {
	case model.AccountIndividual:
		return t.AssigneeID == actor.ID
	case model.AccountTeam:
		if actor.Role != model.RoleAdmin {
			return t.AssigneeID == actor.ID
		}
		if t.AssigneeID == actor.ID {
			return true
		}
		if actor.TeamID == "" {
			return false
		}
		assignee, err := users.Get(t.AssigneeID)
		if err != nil {
			return false
		}
		return assignee.TeamID == actor.TeamID
	}
	return false
}

// Columns groups tasks by status, keeping their order within a column.
func Columns(tasks []model.Task) map[model.Status][]model.Task {
	cols := make(map[model.Status][]model.Task, len(model.Statuses))
	for _, t := range tasks {
		cols[t.Status] = append(cols[t.Status], t)
	}
	return cols
}
