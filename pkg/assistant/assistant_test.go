package assistant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/taskboard/pkg/backend"
	"github.com/harrisonrobin/taskboard/pkg/metrics"
	"github.com/harrisonrobin/taskboard/pkg/model"
)

type fakeGenerator struct {
	reply string
	audio []byte
	err   error

	gotMessages []backend.Message
	gotOpts     backend.InvokeOptions
	gotSpeech   backend.SpeechOptions
}

func (f *fakeGenerator) Name() string         { return "fake" }
func (f *fakeGenerator) DefaultModel() string { return "fake-1" }

func (f *fakeGenerator) Invoke(ctx context.Context, msgs []backend.Message, opts backend.InvokeOptions) (*backend.InvokeResult, error) {
	f.gotMessages = msgs
	f.gotOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("no deadline on context")
	}
	return &backend.InvokeResult{Content: f.reply, Model: opts.Model}, nil
}

func (f *fakeGenerator) Synthesize(_ context.Context, _ string, opts backend.SpeechOptions) (*backend.Audio, error) {
	f.gotSpeech = opts
	if f.err != nil {
		return nil, f.err
	}
	return &backend.Audio{Data: f.audio, SampleRate: 24000}, nil
}

func (f *fakeGenerator) Healthy(context.Context) error { return f.err }

var fixedNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

func newAssistant(gen backend.Generator, opts ...Option) *Assistant {
	base := []Option{
		WithClock(func() time.Time { return fixedNow }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}
	return New(gen, append(base, opts...)...)
}

func sampleTasks() []model.Task {
	return []model.Task{{
		ID: "task-1", Title: "Quarterly report", Status: model.StatusTodo,
		Priority: model.PriorityHigh, Frequency: model.FrequencyOneTime,
		Due: fixedNow.Add(48 * time.Hour), AssigneeID: "user-1",
	}}
}

func TestSummarizePrompt(t *testing.T) {
	gen := &fakeGenerator{reply: "**All good**"}
	a := newAssistant(gen)

	got, err := a.Summarize(context.Background(), sampleTasks(), Weekly)
	require.NoError(t, err)
	assert.Equal(t, "**All good**", got)

	require.Len(t, gen.gotMessages, 1)
	prompt := gen.gotMessages[0].Content
	assert.Contains(t, prompt, "weekly summary")
	assert.Contains(t, prompt, "2025-03-10T09:00:00Z")
	assert.Contains(t, prompt, `"title": "Quarterly report"`)
	assert.Equal(t, "gemini-2.5-pro", gen.gotOpts.Model)
}

func TestOptimizeDelegationOnlyForTeams(t *testing.T) {
	gen := &fakeGenerator{reply: "ok"}
	a := newAssistant(gen)
	members := []model.User{{ID: "user-2", Name: "Bea", Role: model.RoleUser}}

	team := model.User{ID: "user-1", Name: "Alex", Role: model.RoleAdmin, AccountType: model.AccountTeam, TeamID: "team-1"}
	_, err := a.Optimize(context.Background(), sampleTasks(), members, team)
	require.NoError(t, err)
	assert.Contains(t, gen.gotMessages[0].Content, "available for delegation")
	assert.Contains(t, gen.gotMessages[0].Content, `"name": "Bea"`)

	solo := model.User{ID: "user-9", Name: "Casey", Role: model.RoleAdmin, AccountType: model.AccountIndividual}
	_, err = a.Optimize(context.Background(), sampleTasks(), nil, solo)
	require.NoError(t, err)
	assert.Contains(t, gen.gotMessages[0].Content, "individual account")
	assert.NotContains(t, gen.gotMessages[0].Content, "available for delegation")
}

func TestFailuresWrapExternalService(t *testing.T) {
	m := metrics.New()
	gen := &fakeGenerator{err: errors.New("503 unavailable")}
	a := newAssistant(gen, WithMetrics(m))

	_, err := a.Summarize(context.Background(), nil, Daily)
	assert.ErrorIs(t, err, ErrExternalService)

	_, err = a.Speak(context.Background(), "hi")
	assert.ErrorIs(t, err, ErrExternalService)

	_, err = a.ParseVoiceCommand(context.Background(), "add milk")
	assert.ErrorIs(t, err, ErrExternalService)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests().WithLabelValues("summary", "error")))
}

func TestParseVoiceCommandUsesSchema(t *testing.T) {
	gen := &fakeGenerator{reply: "```json\n{\"action\":\"add\",\"payload\":{\"title\":\"Call mom\",\"priority\":\"High\",\"dueDate\":\"2025-03-11T17:00:00Z\"}}\n```"}
	a := newAssistant(gen)

	cmd, err := a.ParseVoiceCommand(context.Background(), "add a task to call mom tomorrow at 5pm")
	require.NoError(t, err)
	assert.Equal(t, ActionAdd, cmd.Action)
	assert.Equal(t, "Call mom", cmd.Title)
	assert.Equal(t, model.PriorityHigh, cmd.Priority)
	assert.Equal(t, time.Date(2025, 3, 11, 17, 0, 0, 0, time.UTC), cmd.Due)

	assert.Equal(t, "application/json", gen.gotOpts.ResponseMIMEType)
	assert.NotNil(t, gen.gotOpts.ResponseSchema)
	assert.Equal(t, "gemini-2.5-flash", gen.gotOpts.Model)
}

func TestSpeak(t *testing.T) {
	gen := &fakeGenerator{audio: []byte{1, 2, 3, 4}}
	a := newAssistant(gen)

	pcm, err := a.Speak(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, pcm)
	assert.Equal(t, "Kore", gen.gotSpeech.Voice)

	gen.audio = nil
	_, err = a.Speak(context.Background(), "hello")
	assert.ErrorIs(t, err, ErrExternalService)
}

func TestChatReplaysHistory(t *testing.T) {
	gen := &fakeGenerator{reply: "Sure."}
	a := newAssistant(gen)

	history := []model.ChatMessage{
		{Role: model.ChatModel, Text: ChatGreeting},
		{Role: model.ChatUser, Text: "what is due?"},
		{Role: model.ChatModel, Text: "The report."},
	}
	got, err := a.Chat(context.Background(), history, "thanks")
	require.NoError(t, err)
	assert.Equal(t, "Sure.", got)

	require.Len(t, gen.gotMessages, 4)
	assert.Equal(t, backend.RoleModel, gen.gotMessages[0].Role)
	assert.Equal(t, backend.RoleUser, gen.gotMessages[1].Role)
	assert.Equal(t, backend.Message{Role: backend.RoleUser, Content: "thanks"}, gen.gotMessages[3])
}

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("monthly")
	require.NoError(t, err)
	assert.Equal(t, Monthly, p)

	_, err = ParsePeriod("yearly")
	assert.Error(t, err)
}
