package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/policy"
	"github.com/harrisonrobin/taskboard/pkg/style"
	"github.com/harrisonrobin/taskboard/pkg/tui"
	"github.com/harrisonrobin/taskboard/pkg/visibility"
)

// errQuit ends the shell loop.
var errQuit = errors.New("quit")

// lockedWriter serializes writes from the prompt loop and the overdue
// watcher.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Shell is the line-oriented front end of the board.
type Shell struct {
	app    *App
	in     *bufio.Reader
	stdin  *os.File
	out    *lockedWriter
	render func(md string) (string, error)
	logger *slog.Logger

	// runBoard shows the full-screen board. Overdue notices are held
	// while it owns the terminal.
	runBoard func(b tui.Board) error
	heldMu   sync.Mutex
	holding  bool
	held     []model.Task
}

type ShellOption func(*Shell)

// WithTerminal reads passwords from f without echo when it is a terminal.
func WithTerminal(f *os.File) ShellOption {
	return func(s *Shell) { s.stdin = f }
}

// WithRenderer replaces the glamour Markdown renderer.
func WithRenderer(fn func(md string) (string, error)) ShellOption {
	return func(s *Shell) { s.render = fn }
}

// NewShell reads commands from in and writes to out.
func NewShell(app *App, in io.Reader, out io.Writer, opts ...ShellOption) *Shell {
	s := &Shell{
		app:    app,
		in:     bufio.NewReader(in),
		out:    &lockedWriter{w: out},
		logger: app.logger,

		runBoard: tui.Run,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.render == nil {
		s.render = glamourRenderer()
	}
	return s
}

func glamourRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(100))
	if err != nil {
		return func(md string) (string, error) { return md, nil }
	}
	return r.Render
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) success(format string, args ...any) {
	s.printf("%s %s\n", style.SuccessPrefix, fmt.Sprintf(format, args...))
}

func (s *Shell) warn(format string, args ...any) {
	s.printf("%s %s\n", style.WarningPrefix, fmt.Sprintf(format, args...))
}

func (s *Shell) info(format string, args ...any) {
	s.printf("%s %s\n", style.ArrowPrefix, fmt.Sprintf(format, args...))
}

// toast prints a notice framed like the original app's pop-ups.
func (s *Shell) toast(msg string) {
	s.printf("%s\n", style.Toast.Render(msg))
}

func (s *Shell) markdown(md string) {
	out, err := s.render(md)
	if err != nil {
		out = md
	}
	s.printf("%s\n", strings.TrimRight(out, "\n"))
}

// readLine returns the next input line without its newline. io.EOF is
// returned only when nothing was read.
func (s *Shell) readLine() (string, error) {
	line, err := s.in.ReadString('\n')
	if err != nil && (!errors.Is(err, io.EOF) || line == "") {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// readPassword prompts for a credential. On a terminal the input is not
// echoed; otherwise the next line is used.
func (s *Shell) readPassword(prompt string) (string, error) {
	s.printf("%s", prompt)
	if s.stdin != nil && term.IsTerminal(int(s.stdin.Fd())) {
		b, err := term.ReadPassword(int(s.stdin.Fd()))
		s.printf("\n")
		if err != nil {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return string(b), nil
	}
	line, err := s.readLine()
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return line, nil
}

func (s *Shell) prompt() string {
	actor, err := s.app.board.Actor()
	if err != nil {
		return "taskboard> "
	}
	return fmt.Sprintf("taskboard (%s)> ", actor.Name)
}

// Run reads and executes lines until quit, EOF or ctx is done. Command
// errors are printed and never end the loop.
func (s *Shell) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	watcher := s.app.Watcher(s.notifyOverdue)
	go func() {
		if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Warn("overdue watcher stopped", slog.String("error", err.Error()))
		}
	}()

	s.info("Type 'help' for commands. Log in with 'login <email>'.")
	for {
		if ctx.Err() != nil {
			return nil
		}
		s.printf("%s", s.prompt())
		line, err := s.readLine()
		if errors.Is(err, io.EOF) {
			s.printf("\n")
			return nil
		}
		if err != nil {
			return err
		}
		if err := s.Exec(ctx, line); err != nil {
			if errors.Is(err, errQuit) {
				return nil
			}
			s.printf("%s %s\n", style.ErrorPrefix, err)
		}
	}
}

// Exec runs one shell line.
func (s *Shell) Exec(ctx context.Context, line string) error {
	words, err := Split(line)
	if err != nil {
		return err
	}
	if len(words) == 0 {
		return nil
	}
	root := s.commands()
	root.SetArgs(words)
	root.SetOut(s.out)
	root.SetErr(s.out)
	root.SetIn(s.in)
	_, err = root.ExecuteContextC(ctx)
	return err
}

// fullscreen runs fn with overdue notices held back, then prints them.
func (s *Shell) fullscreen(fn func() error) error {
	s.heldMu.Lock()
	s.holding = true
	s.heldMu.Unlock()

	err := fn()

	s.heldMu.Lock()
	held := s.held
	s.held = nil
	s.holding = false
	s.heldMu.Unlock()
	if len(held) > 0 {
		s.notifyOverdue(held)
	}
	return err
}

// notifyOverdue reports newly overdue tasks the current actor can see.
func (s *Shell) notifyOverdue(tasks []model.Task) {
	s.heldMu.Lock()
	if s.holding {
		s.held = append(s.held, tasks...)
		s.heldMu.Unlock()
		return
	}
	s.heldMu.Unlock()

	actor, err := s.app.board.Actor()
	if err != nil {
		return
	}
	for _, t := range tasks {
		if !visibility.CanSee(actor, t, s.app.users) {
			continue
		}
		s.printf("\n%s Overdue: %q (%s) was due %s\n", style.WarningPrefix, t.Title, t.ID,
			t.Due.Local().Format("Mon Jan 2 15:04"))
		if policy.CanEdit(actor, t) {
			s.printf("  push it with: push %s\n", t.ID)
		}
	}
}
