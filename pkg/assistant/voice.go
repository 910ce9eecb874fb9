package assistant

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/backend"
	"github.com/harrisonrobin/taskboard/pkg/model"
)

// Action is the kind of a VoiceCommand.
type Action string

const (
	ActionAdd    Action = "add"
	ActionDelete Action = "delete"
	ActionError  Action = "error"
)

// VoiceCommand is a parsed voice instruction. Which fields are meaningful
// depends on Action:
//
//	add:    Title, optional Description, Priority, Due
//	delete: Title (matched against task titles)
//	error:  Message
type VoiceCommand struct {
	Action      Action
	Title       string
	Description string
	Priority    model.Priority // empty when not given
	Due         time.Time      // zero when not given
	Message     string
}

type voiceReply struct {
	Action  string `json:"action"`
	Payload struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Priority    string `json:"priority"`
		DueDate     string `json:"dueDate"`
		Message     string `json:"message"`
	} `json:"payload"`
}

// dueLayouts are tried in order. The local-time forms carry no offset; a
// bare date is midnight UTC.
var dueLayouts = []struct {
	layout string
	loc    *time.Location
}{
	{time.RFC3339Nano, time.UTC},
	{"2006-01-02T15:04:05", time.Local},
	{"2006-01-02T15:04", time.Local},
	{time.DateOnly, time.UTC},
}

// DecodeVoiceCommand validates a model reply against the command schema.
// Code fences and surrounding prose are tolerated.
func DecodeVoiceCommand(reply string) (VoiceCommand, error) {
	raw := backend.ExtractJSON(reply)
	if raw == "" {
		return VoiceCommand{}, fmt.Errorf("%w: no JSON object in reply", ErrMalformedVoiceCommand)
	}
	var r voiceReply
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		return VoiceCommand{}, fmt.Errorf("%w: %w", ErrMalformedVoiceCommand, err)
	}

	p := r.Payload
	cmd := VoiceCommand{
		Action:      Action(strings.ToLower(strings.TrimSpace(r.Action))),
		Title:       strings.TrimSpace(p.Title),
		Description: strings.TrimSpace(p.Description),
		Message:     strings.TrimSpace(p.Message),
	}

	switch cmd.Action {
	case ActionError:
		return cmd, nil
	case ActionDelete:
		if cmd.Title == "" {
			return VoiceCommand{}, fmt.Errorf("%w: delete without a title", ErrMalformedVoiceCommand)
		}
		return cmd, nil
	case ActionAdd:
		if cmd.Title == "" {
			return VoiceCommand{}, fmt.Errorf("%w: add without a title", ErrMalformedVoiceCommand)
		}
	default:
		return VoiceCommand{}, fmt.Errorf("%w: unsupported action %q", ErrMalformedVoiceCommand, r.Action)
	}

	if p.Priority != "" {
		prio, err := model.ParsePriority(p.Priority)
		if err != nil {
			return VoiceCommand{}, fmt.Errorf("%w: %w", ErrMalformedVoiceCommand, err)
		}
		cmd.Priority = prio
	}
	if p.DueDate != "" {
		due, err := parseDue(p.DueDate)
		if err != nil {
			return VoiceCommand{}, fmt.Errorf("%w: %w", ErrMalformedVoiceCommand, err)
		}
		cmd.Due = due
	}
	return cmd, nil
}

func parseDue(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, l := range dueLayouts {
		if t, err := time.ParseInLocation(l.layout, s, l.loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised due date %q", s)
}
