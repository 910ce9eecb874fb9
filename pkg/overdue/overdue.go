// Package overdue finds tasks past their due date and watches the board
// for them. It only reads tasks.
package overdue

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/harrisonrobin/taskboard/pkg/metrics"
	"github.com/harrisonrobin/taskboard/pkg/model"
)

// UrgentWindow is how close to its due date a task becomes urgent.
const UrgentWindow = 2 * time.Hour

// DefaultInterval is the watcher tick.
const DefaultInterval = time.Minute

// Urgent reports whether a task that is not done falls due within
// UrgentWindow.
func Urgent(t model.Task, now time.Time) bool {
	if t.Status == model.StatusDone || t.Due.IsZero() {
		return false
	}
	left := t.Due.Sub(now)
	return left > 0 && left < UrgentWindow
}

// Find returns the overdue tasks, earliest due first.
func Find(tasks []model.Task, now time.Time) []model.Task {
	var out []model.Task
	for _, t := range tasks {
		if t.Overdue(now) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Due.Before(out[j].Due) })
	return out
}

// Lister is the read side of the task store.
type Lister interface {
	All() []model.Task
}

type Option func(*Watcher)

func WithLogger(l *slog.Logger) Option {
	return func(w *Watcher) { w.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Watcher) { w.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(w *Watcher) { w.now = now }
}

// WithNotify is called with the tasks that became overdue since the
// previous check.
func WithNotify(fn func([]model.Task)) Option {
	return func(w *Watcher) { w.notify = fn }
}

// WithTable sweeps pending calendar events on every check and hands the
// swept entries to fn.
func WithTable(t *Table, fn func(Entry)) Option {
	return func(w *Watcher) {
		w.table = t
		w.swept = fn
	}
}

// Watcher periodically reports overdue tasks.
type Watcher struct {
	tasks    Lister
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time
	notify   func([]model.Task)
	table    *Table
	swept    func(Entry)

	reported map[string]bool
}

func NewWatcher(tasks Lister, interval time.Duration, opts ...Option) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	w := &Watcher{
		tasks:    tasks,
		interval: interval,
		logger:   slog.Default(),
		now:      time.Now,
		reported: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Check runs one pass and returns the tasks newly overdue since the last
// pass. A task that stops being overdue may be reported again later.
func (w *Watcher) Check() []model.Task {
	now := w.now()
	all := w.tasks.All()
	overdue := Find(all, now)
	w.metrics.SetBoard(len(all), len(overdue))

	current := make(map[string]bool, len(overdue))
	var fresh []model.Task
	for _, t := range overdue {
		current[t.ID] = true
		if !w.reported[t.ID] {
			fresh = append(fresh, t)
			w.logger.Warn("task overdue",
				slog.String("task", t.ID),
				slog.String("title", t.Title),
				slog.Time("due", t.Due))
		}
	}
	w.reported = current

	if len(fresh) > 0 && w.notify != nil {
		w.notify(fresh)
	}

	if w.table != nil {
		for _, entry := range w.table.Sweep(now) {
			if w.swept != nil {
				w.swept(entry)
			}
		}
		if err := w.table.Save(); err != nil {
			w.logger.Error("could not save pending events", slog.String("error", err.Error()))
		}
	}
	return fresh
}

// Run checks once immediately and then every interval until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.Check()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.Check()
		}
	}
}
