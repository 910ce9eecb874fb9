// Package assistant is the board's side of the generative-model boundary:
// task summaries, schedule advice, voice-command parsing, speech and chat.
// Replies are validated here before anything reaches the board.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/backend"
	"github.com/harrisonrobin/taskboard/pkg/metrics"
	"github.com/harrisonrobin/taskboard/pkg/model"
)

var (
	// ErrExternalService wraps every failure of the model backend.
	ErrExternalService = errors.New("assistant unavailable")

	// ErrMalformedVoiceCommand indicates a voice reply that does not fit the command schema.
	ErrMalformedVoiceCommand = errors.New("malformed voice command")

	// ErrBusy indicates a request is already in flight on the panel.
	ErrBusy = errors.New("request already in progress")
)

// DefaultTimeout bounds a single assistant call.
const DefaultTimeout = 60 * time.Second

// Period is the window a summary covers.
type Period string

const (
	Daily   Period = "daily"
	Weekly  Period = "weekly"
	Monthly Period = "monthly"
)

// ParsePeriod accepts daily, weekly or monthly.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case Daily, Weekly, Monthly:
		return p, nil
	}
	return "", fmt.Errorf("unknown period %q (want daily, weekly or monthly)", s)
}

// Collaborator is the contract the front end and the voice pipeline rely on.
type Collaborator interface {
	Summarize(ctx context.Context, tasks []model.Task, period Period) (string, error)
	Optimize(ctx context.Context, tasks []model.Task, members []model.User, actor model.User) (string, error)
	ParseVoiceCommand(ctx context.Context, transcript string) (VoiceCommand, error)
	Speak(ctx context.Context, text string) ([]byte, error)
	Chat(ctx context.Context, history []model.ChatMessage, message string) (string, error)
}

// Models selects the backend model per kind of call. Empty fields fall
// back to the backend's default.
type Models struct {
	// Analysis is used for summaries and optimization.
	Analysis string
	// Fast is used for voice parsing and chat.
	Fast string
	// Speech is used for synthesis.
	Speech string
	// Voice is the prebuilt speech voice.
	Voice string
}

// DefaultModels mirrors the Gemini models the board was built against.
var DefaultModels = Models{
	Analysis: "gemini-2.5-pro",
	Fast:     "gemini-2.5-flash",
	Speech:   "gemini-2.5-flash-preview-tts",
	Voice:    "Kore",
}

// Assistant implements Collaborator on top of a backend.Generator.
type Assistant struct {
	gen     backend.Generator
	models  Models
	timeout time.Duration
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures an Assistant.
type Option func(*Assistant)

// WithModels overrides the model selection.
func WithModels(m Models) Option {
	return func(a *Assistant) {
		a.models = m
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) Option {
	return func(a *Assistant) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Assistant) {
		a.logger = l
	}
}

// WithMetrics records request counts and latency.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *Assistant) {
		a.metrics = m
	}
}

// WithClock overrides the time source used in prompts.
func WithClock(now func() time.Time) Option {
	return func(a *Assistant) {
		a.now = now
	}
}

// New creates an Assistant.
func New(gen backend.Generator, opts ...Option) *Assistant {
	a := &Assistant{
		gen:     gen,
		models:  DefaultModels,
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summarize asks for a Markdown summary of tasks over period.
func (a *Assistant) Summarize(ctx context.Context, tasks []model.Task, period Period) (string, error) {
	prompt, err := summaryPrompt(tasks, period, a.now())
	if err != nil {
		return "", err
	}
	return a.generate(ctx, "summary", []backend.Message{{Role: backend.RoleUser, Content: prompt}},
		backend.InvokeOptions{Model: a.models.Analysis})
}

// Optimize asks for prioritization, conflict and delegation advice.
func (a *Assistant) Optimize(ctx context.Context, tasks []model.Task, members []model.User, actor model.User) (string, error) {
	prompt, err := optimizePrompt(tasks, members, actor, a.now())
	if err != nil {
		return "", err
	}
	return a.generate(ctx, "optimize", []backend.Message{{Role: backend.RoleUser, Content: prompt}},
		backend.InvokeOptions{Model: a.models.Analysis})
}

// ParseVoiceCommand turns a transcript into a validated VoiceCommand.
func (a *Assistant) ParseVoiceCommand(ctx context.Context, transcript string) (VoiceCommand, error) {
	reply, err := a.generate(ctx, "voice", []backend.Message{{Role: backend.RoleUser, Content: voicePrompt(transcript, a.now())}},
		backend.InvokeOptions{
			Model:            a.models.Fast,
			ResponseMIMEType: "application/json",
			ResponseSchema:   voiceSchema,
		})
	if err != nil {
		return VoiceCommand{}, err
	}
	cmd, err := DecodeVoiceCommand(reply)
	if err != nil {
		a.logger.Warn("discarding voice reply", slog.String("error", err.Error()))
		return VoiceCommand{}, err
	}
	return cmd, nil
}

// Speak synthesizes text and returns raw PCM.
func (a *Assistant) Speak(ctx context.Context, text string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	audio, err := a.gen.Synthesize(ctx, text, backend.SpeechOptions{Model: a.models.Speech, Voice: a.models.Voice})
	if err == nil && len(audio.Data) == 0 {
		err = errors.New("no audio data received")
	}
	a.metrics.ObserveRequest("speech", time.Since(start), err)
	if err != nil {
		a.logger.Error("speech synthesis failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("%w: %w", ErrExternalService, err)
	}
	return audio.Data, nil
}

// Chat replays history and returns the reply to message.
func (a *Assistant) Chat(ctx context.Context, history []model.ChatMessage, message string) (string, error) {
	msgs := make([]backend.Message, 0, len(history)+1)
	for _, m := range history {
		role := backend.RoleUser
		if m.Role == model.ChatModel {
			role = backend.RoleModel
		}
		msgs = append(msgs, backend.Message{Role: role, Content: m.Text})
	}
	msgs = append(msgs, backend.Message{Role: backend.RoleUser, Content: message})
	return a.generate(ctx, "chat", msgs, backend.InvokeOptions{Model: a.models.Fast})
}

func (a *Assistant) generate(ctx context.Context, op string, msgs []backend.Message, opts backend.InvokeOptions) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	start := time.Now()
	res, err := a.gen.Invoke(ctx, msgs, opts)
	a.metrics.ObserveRequest(op, time.Since(start), err)
	if err != nil {
		a.logger.Error("assistant request failed",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return "", fmt.Errorf("%w: %s: %w", ErrExternalService, op, err)
	}
	a.logger.Debug("assistant request",
		slog.String("operation", op),
		slog.String("model", res.Model),
		slog.Int("output_tokens", res.OutputTokens),
		slog.Duration("took", time.Since(start)))
	return res.Content, nil
}
