package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/api/calendar/v3"

	"github.com/harrisonrobin/taskboard/pkg/assistant"
	"github.com/harrisonrobin/taskboard/pkg/auth"
	"github.com/harrisonrobin/taskboard/pkg/backend"
	"github.com/harrisonrobin/taskboard/pkg/backend/gemini"
	"github.com/harrisonrobin/taskboard/pkg/board"
	"github.com/harrisonrobin/taskboard/pkg/colors"
	"github.com/harrisonrobin/taskboard/pkg/config"
	"github.com/harrisonrobin/taskboard/pkg/directory"
	"github.com/harrisonrobin/taskboard/pkg/google"
	"github.com/harrisonrobin/taskboard/pkg/index"
	"github.com/harrisonrobin/taskboard/pkg/metrics"
	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/overdue"
	"github.com/harrisonrobin/taskboard/pkg/seed"
	"github.com/harrisonrobin/taskboard/pkg/session"
	"github.com/harrisonrobin/taskboard/pkg/taskstore"
	"github.com/harrisonrobin/taskboard/pkg/voice"
)

// ErrAssistantUnavailable is returned by AI commands when no backend could
// be configured.
var ErrAssistantUnavailable = errors.New("assistant unavailable")

// CalendarSync pushes tasks to an external calendar.
type CalendarSync interface {
	SyncTask(ctx context.Context, task model.Task, assignee model.User) (*calendar.Event, error)
	RemoveTask(ctx context.Context, taskID string) error
	MarkOverdue(ctx context.Context, entry overdue.Entry) error
}

// App wires the board, the assistant and calendar sync for one process.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	users   *directory.Directory
	tasks   *taskstore.Store
	session *session.Session
	board   *board.Board

	gen          backend.Generator
	assistant    assistant.Collaborator
	assistantErr error
	panel        *assistant.Panel
	chat         *assistant.Conversation
	voice        *voice.Handler

	pending       *overdue.Table
	connectGoogle func(ctx context.Context) (CalendarSync, error)

	calendarMu sync.Mutex
	calendar   CalendarSync
}

type AppOption func(*App)

func WithLogger(l *slog.Logger) AppOption {
	return func(a *App) { a.logger = l }
}

func WithClock(now func() time.Time) AppOption {
	return func(a *App) { a.now = now }
}

// WithAssistant replaces the Gemini-backed assistant.
func WithAssistant(c assistant.Collaborator) AppOption {
	return func(a *App) { a.assistant = c }
}

// WithGoogleCalendar replaces the OAuth-backed calendar connection.
func WithGoogleCalendar(connect func(ctx context.Context) (CalendarSync, error)) AppOption {
	return func(a *App) { a.connectGoogle = connect }
}

// WithPending sets the table of pushed events awaiting their due date.
func WithPending(t *overdue.Table) AppOption {
	return func(a *App) { a.pending = t }
}

func withDirectory(d *directory.Directory) AppOption {
	return func(a *App) { a.users = d }
}

// NewApp loads the seed board and configures the assistant from cfg.
func NewApp(ctx context.Context, cfg *config.Config, opts ...AppOption) (*App, error) {
	a := &App{
		cfg:     cfg,
		logger:  slog.Default(),
		metrics: metrics.New(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.users == nil {
		a.users = directory.New()
	}
	a.tasks = taskstore.New()
	if err := a.loadSeed(); err != nil {
		return nil, err
	}
	a.session = session.New(a.users, a.logger)
	a.board = board.New(a.users, a.tasks, a.session, board.WithLogger(a.logger), board.WithClock(a.now))

	if a.assistant == nil {
		a.assistant, a.assistantErr = a.newAssistant(ctx)
		if a.assistantErr != nil {
			a.logger.Warn("assistant disabled", slog.String("error", a.assistantErr.Error()))
		}
	}
	if a.assistant != nil {
		a.panel = assistant.NewPanel(a.assistant)
		a.chat = assistant.NewConversation(a.assistant)
		a.voice = voice.NewHandler(a.assistant, a.board, a.logger)
	}

	if a.pending == nil {
		t, err := overdue.NewTable()
		if err != nil {
			a.logger.Warn("pending events not persisted", slog.String("error", err.Error()))
			if t, err = overdue.NewTableAt(""); err != nil {
				return nil, fmt.Errorf("opening pending events: %w", err)
			}
		}
		a.pending = t
	}
	if a.connectGoogle == nil {
		a.connectGoogle = a.googleCalendar
	}
	return a, nil
}

func (a *App) loadSeed() error {
	var (
		data *seed.Data
		err  error
	)
	if a.cfg.SeedFile != "" {
		data, err = seed.LoadFile(a.cfg.SeedFile)
	} else {
		data, err = seed.Default()
	}
	if err != nil {
		return err
	}
	return data.Apply(a.users, a.tasks, a.now())
}

func (a *App) newAssistant(ctx context.Context) (assistant.Collaborator, error) {
	ac := a.cfg.Assistant
	opts := []gemini.Option{
		gemini.WithAPIKey(ac.APIKey),
		gemini.WithRateLimit(ac.RequestsPerMinute),
		gemini.WithLogger(a.logger),
	}
	if ac.BaseURL != "" {
		opts = append(opts, gemini.WithBaseURL(ac.BaseURL))
	}
	g, err := gemini.New(ctx, opts...)
	if err != nil {
		return nil, err
	}
	registry := backend.NewRegistry()
	registry.Register(g)
	name := ac.Backend
	if name == "" {
		name = g.Name()
	}
	gen, err := registry.Get(name)
	if err != nil {
		return nil, fmt.Errorf("%w (available: %s)", err, strings.Join(registry.List(), ", "))
	}
	a.gen = gen
	return assistant.New(gen,
		assistant.WithModels(assistant.Models{
			Analysis: ac.Model,
			Fast:     ac.FastModel,
			Speech:   ac.SpeechModel,
			Voice:    ac.Voice,
		}),
		assistant.WithTimeout(ac.Timeout.Duration),
		assistant.WithLogger(a.logger),
		assistant.WithMetrics(a.metrics),
		assistant.WithClock(a.now),
	), nil
}

// Board returns the board service.
func (a *App) Board() *board.Board { return a.board }

// Session returns the session.
func (a *App) Session() *session.Session { return a.session }

func (a *App) requireAssistant() error {
	if a.assistant != nil {
		return nil
	}
	if a.assistantErr != nil {
		return fmt.Errorf("%w: %w", ErrAssistantUnavailable, a.assistantErr)
	}
	return ErrAssistantUnavailable
}

// Calendar returns the Google Calendar connection, opening it on first use.
func (a *App) Calendar(ctx context.Context) (CalendarSync, error) {
	a.calendarMu.Lock()
	defer a.calendarMu.Unlock()
	if a.calendar != nil {
		return a.calendar, nil
	}
	c, err := a.connectGoogle(ctx)
	if err != nil {
		return nil, err
	}
	a.calendar = c
	return c, nil
}

// connectedCalendar returns the open connection, if any.
func (a *App) connectedCalendar() CalendarSync {
	a.calendarMu.Lock()
	defer a.calendarMu.Unlock()
	return a.calendar
}

func (a *App) googleCalendar(ctx context.Context) (CalendarSync, error) {
	flow, err := auth.NewFlow()
	if err != nil {
		return nil, err
	}
	flow.Logger = a.logger
	idx, err := index.NewEventIndex()
	if err != nil {
		return nil, fmt.Errorf("opening event index: %w", err)
	}
	cache, err := colors.NewColorCache()
	if err != nil {
		return nil, fmt.Errorf("opening colour cache: %w", err)
	}
	client, err := google.NewClient(ctx, flow, a.cfg.Calendar, idx,
		google.WithColors(cache),
		google.WithPending(a.pending),
		google.WithLogger(a.logger),
		google.WithClock(a.now))
	if err != nil {
		return nil, err
	}
	return &googleCalendar{CalendarClient: client, index: idx, colors: cache, pending: a.pending, logger: a.logger}, nil
}

// googleCalendar saves the local sync state after every change.
type googleCalendar struct {
	*google.CalendarClient
	index   *index.EventIndex
	colors  *colors.ColorCache
	pending *overdue.Table
	logger  *slog.Logger
}

func (g *googleCalendar) SyncTask(ctx context.Context, task model.Task, assignee model.User) (*calendar.Event, error) {
	ev, err := g.CalendarClient.SyncTask(ctx, task, assignee)
	g.save()
	return ev, err
}

func (g *googleCalendar) RemoveTask(ctx context.Context, taskID string) error {
	err := g.CalendarClient.RemoveTask(ctx, taskID)
	g.save()
	return err
}

func (g *googleCalendar) save() {
	for name, save := range map[string]func() error{
		"event index":    g.index.Save,
		"colour cache":   g.colors.Save,
		"pending events": g.pending.Save,
	} {
		if err := save(); err != nil {
			g.logger.Warn("could not save "+name, slog.String("error", err.Error()))
		}
	}
}

// markOverdue flags a swept event in the calendar, if one is connected.
func (a *App) markOverdue(entry overdue.Entry) {
	c := a.connectedCalendar()
	if c == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := c.MarkOverdue(ctx, entry); err != nil {
		a.logger.Warn("could not mark event overdue",
			slog.String("event", entry.EventID),
			slog.String("error", err.Error()))
	}
}

// Watcher returns an overdue watcher over the whole store.
func (a *App) Watcher(notify func([]model.Task)) *overdue.Watcher {
	return overdue.NewWatcher(a.tasks, a.cfg.OverdueInterval.Duration,
		overdue.WithLogger(a.logger),
		overdue.WithMetrics(a.metrics),
		overdue.WithClock(a.now),
		overdue.WithNotify(notify),
		overdue.WithTable(a.pending, a.markOverdue))
}

// ServeMetrics serves /metrics on the configured address until ctx is
// done. It returns immediately when no address is configured.
func (a *App) ServeMetrics(ctx context.Context) error {
	if a.cfg.MetricsAddr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", a.metrics.Handler())
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdown); err != nil {
			a.logger.Warn("metrics server shutdown", slog.String("error", err.Error()))
		}
	}()
	a.logger.Info("serving metrics", slog.String("addr", a.cfg.MetricsAddr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close saves auxiliary state.
func (a *App) Close() error {
	return a.pending.Save()
}
