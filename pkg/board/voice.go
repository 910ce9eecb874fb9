package board

import (
	"errors"
	"fmt"
	"strings"

	"github.com/harrisonrobin/taskboard/pkg/assistant"
	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/policy"
	"github.com/harrisonrobin/taskboard/pkg/visibility"
)

var (
	// ErrNotUnderstood indicates the assistant could not make sense of a voice command.
	ErrNotUnderstood = errors.New("command not understood")

	// ErrNoMatch indicates a voice delete matched no task.
	ErrNoMatch = errors.New("no matching task")
)

// VoiceOutcome reports what a voice command did.
type VoiceOutcome struct {
	Action assistant.Action
	Task   model.Task
}

// ApplyVoiceCommand runs a parsed voice command through the same checks
// as typed commands. Error commands never touch the store.
func (b *Board) ApplyVoiceCommand(cmd assistant.VoiceCommand) (VoiceOutcome, error) {
	switch cmd.Action {
	case assistant.ActionAdd:
		t, err := b.CreateTask(Draft{
			Title:       cmd.Title,
			Description: cmd.Description,
			Priority:    cmd.Priority,
			Due:         cmd.Due,
		})
		if err != nil {
			return VoiceOutcome{}, err
		}
		return VoiceOutcome{Action: cmd.Action, Task: t}, nil

	case assistant.ActionDelete:
		t, err := b.findForDelete(cmd.Title)
		if err != nil {
			return VoiceOutcome{}, err
		}
		deleted, err := b.DeleteTask(t.ID)
		if err != nil {
			return VoiceOutcome{}, err
		}
		return VoiceOutcome{Action: cmd.Action, Task: deleted}, nil

	case assistant.ActionError:
		if cmd.Message != "" {
			return VoiceOutcome{}, fmt.Errorf("%w: %s", ErrNotUnderstood, cmd.Message)
		}
		return VoiceOutcome{}, ErrNotUnderstood
	}
	return VoiceOutcome{}, fmt.Errorf("%w: unsupported action %q", assistant.ErrMalformedVoiceCommand, cmd.Action)
}

// findForDelete returns the first visible task the actor may edit whose
// title contains fragment, ignoring case.
func (b *Board) findForDelete(fragment string) (model.Task, error) {
	actor, err := b.Actor()
	if err != nil {
		return model.Task{}, err
	}
	needle := strings.ToLower(strings.TrimSpace(fragment))
	if needle == "" {
		return model.Task{}, fmt.Errorf("%w: empty title", assistant.ErrMalformedVoiceCommand)
	}
	for _, t := range visibility.VisibleTasks(actor, b.tasks, b.users) {
		if policy.CanEdit(actor, t) && strings.Contains(strings.ToLower(t.Title), needle) {
			return t, nil
		}
	}
	return model.Task{}, fmt.Errorf("%w: %q", ErrNoMatch, fragment)
}
