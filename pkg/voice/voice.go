// Package voice turns spoken (or typed) transcripts into board changes.
// A transcript source emits events on a channel; the Handler parses each
// one through the assistant and applies it through the board.
package voice

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/harrisonrobin/taskboard/pkg/assistant"
	"github.com/harrisonrobin/taskboard/pkg/board"
)

// Transcript is one recognised utterance, or the error that ended the source.
type Transcript struct {
	Text string
	Err  error
}

// Lines emits every non-blank line of r as a transcript. The channel is
// closed at EOF, on a read error (sent as a final event) or when ctx is done.
func Lines(ctx context.Context, r io.Reader) <-chan Transcript {
	out := make(chan Transcript)
	go func() {
		defer close(out)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}
			select {
			case out <- Transcript{Text: text}:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			select {
			case out <- Transcript{Err: fmt.Errorf("reading transcript: %w", err)}:
			case <-ctx.Done():
			}
		}
	}()
	return out
}

// Applier is the part of the board the handler needs.
type Applier interface {
	ApplyVoiceCommand(cmd assistant.VoiceCommand) (board.VoiceOutcome, error)
}

// Result is the feedback for one transcript.
type Result struct {
	Transcript string
	Feedback   string
	Outcome    board.VoiceOutcome
	Err        error
}

// OK reports whether the command changed the board.
func (r Result) OK() bool { return r.Err == nil }

// Handler parses transcripts and applies them.
type Handler struct {
	parser assistant.Collaborator
	board  Applier
	logger *slog.Logger
}

// NewHandler creates a handler.
func NewHandler(parser assistant.Collaborator, b Applier, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{parser: parser, board: b, logger: logger}
}

// Handle runs one transcript end to end. Failures are reported in the
// result rather than returned.
func (h *Handler) Handle(ctx context.Context, transcript string) Result {
	res := Result{Transcript: transcript}

	cmd, err := h.parser.ParseVoiceCommand(ctx, transcript)
	if err != nil {
		res.Err = err
		res.Feedback = "Could not process the command."
		h.logger.Warn("voice command not parsed", slog.String("transcript", transcript), slog.String("error", err.Error()))
		return res
	}

	out, err := h.board.ApplyVoiceCommand(cmd)
	res.Outcome = out
	res.Err = err
	switch {
	case errors.Is(err, board.ErrNotUnderstood):
		res.Feedback = "Sorry, I didn't understand that."
	case errors.Is(err, board.ErrNoMatch):
		res.Feedback = "Could not find task to delete."
	case err != nil:
		res.Feedback = "Could not process the command: " + err.Error()
	case out.Action == assistant.ActionAdd:
		res.Feedback = fmt.Sprintf("Added task: %q", out.Task.Title)
	case out.Action == assistant.ActionDelete:
		res.Feedback = fmt.Sprintf("Deleted task: %q", out.Task.Title)
	}
	h.logger.Info("voice command",
		slog.String("transcript", transcript),
		slog.String("action", string(cmd.Action)),
		slog.Bool("ok", err == nil))
	return res
}

// Run handles every transcript from src, calling report after each.
// It returns when src is closed or ctx is done.
func (h *Handler) Run(ctx context.Context, src <-chan Transcript, report func(Result)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case t, ok := <-src:
			if !ok {
				return nil
			}
			if t.Err != nil {
				return t.Err
			}
			report(h.Handle(ctx, t.Text))
		}
	}
}
