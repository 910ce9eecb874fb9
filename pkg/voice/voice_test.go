package voice

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/taskboard/pkg/assistant"
	"github.com/harrisonrobin/taskboard/pkg/board"
	"github.com/harrisonrobin/taskboard/pkg/model"
)

type fakeParser struct {
	assistant.Collaborator
	commands map[string]assistant.VoiceCommand
}

func (f fakeParser) ParseVoiceCommand(_ context.Context, transcript string) (assistant.VoiceCommand, error) {
	cmd, ok := f.commands[transcript]
	if !ok {
		return assistant.VoiceCommand{}, assistant.ErrMalformedVoiceCommand
	}
	return cmd, nil
}

type fakeBoard struct {
	applied []assistant.VoiceCommand
}

func (f *fakeBoard) ApplyVoiceCommand(cmd assistant.VoiceCommand) (board.VoiceOutcome, error) {
	switch cmd.Action {
	case assistant.ActionError:
		return board.VoiceOutcome{}, board.ErrNotUnderstood
	case assistant.ActionDelete:
		if cmd.Title == "missing" {
			return board.VoiceOutcome{}, board.ErrNoMatch
		}
	}
	f.applied = append(f.applied, cmd)
	return board.VoiceOutcome{Action: cmd.Action, Task: model.Task{Title: cmd.Title}}, nil
}

func newHandler(b *fakeBoard) *Handler {
	parser := fakeParser{commands: map[string]assistant.VoiceCommand{
		"add milk":       {Action: assistant.ActionAdd, Title: "Milk"},
		"delete report":  {Action: assistant.ActionDelete, Title: "Report"},
		"delete missing": {Action: assistant.ActionDelete, Title: "missing"},
		"mumble":         {Action: assistant.ActionError},
	}}
	return NewHandler(parser, b, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHandle(t *testing.T) {
	tests := []struct {
		transcript string
		feedback   string
		ok         bool
	}{
		{"add milk", `Added task: "Milk"`, true},
		{"delete report", `Deleted task: "Report"`, true},
		{"delete missing", "Could not find task to delete.", false},
		{"mumble", "Sorry, I didn't understand that.", false},
		{"gibberish", "Could not process the command.", false},
	}
	for _, tt := range tests {
		t.Run(tt.transcript, func(t *testing.T) {
			res := newHandler(&fakeBoard{}).Handle(context.Background(), tt.transcript)
			assert.Equal(t, tt.feedback, res.Feedback)
			assert.Equal(t, tt.ok, res.OK())
		})
	}
}

func TestHandleNeverAppliesFailedParse(t *testing.T) {
	b := &fakeBoard{}
	newHandler(b).Handle(context.Background(), "gibberish")
	assert.Empty(t, b.applied)
}

func TestLines(t *testing.T) {
	src := Lines(context.Background(), strings.NewReader("add milk\n\n  delete report  \n"))

	var got []string
	for tr := range src {
		require.NoError(t, tr.Err)
		got = append(got, tr.Text)
	}
	assert.Equal(t, []string{"add milk", "delete report"}, got)
}

func TestRun(t *testing.T) {
	b := &fakeBoard{}
	h := newHandler(b)

	var feedback []string
	err := h.Run(context.Background(), Lines(context.Background(), strings.NewReader("add milk\nmumble\n")), func(r Result) {
		feedback = append(feedback, r.Feedback)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{`Added task: "Milk"`, "Sorry, I didn't understand that."}, feedback)
	assert.Len(t, b.applied, 1)
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("mic unplugged") }

func TestRunStopsOnSourceError(t *testing.T) {
	h := newHandler(&fakeBoard{})
	err := h.Run(context.Background(), Lines(context.Background(), failingReader{}), func(Result) {})
	assert.ErrorContains(t, err, "mic unplugged")
}

func TestRunCancelled(t *testing.T) {
	h := newHandler(&fakeBoard{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := h.Run(ctx, make(chan Transcript), func(Result) {})
	assert.ErrorIs(t, err, context.Canceled)
}
