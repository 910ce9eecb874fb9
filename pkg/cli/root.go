// Package cli is the taskboard command line: an interactive shell, the
// full-screen board and a few maintenance commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskboard/pkg/auth"
	"github.com/harrisonrobin/taskboard/pkg/config"
	"github.com/harrisonrobin/taskboard/pkg/logging"
	"github.com/harrisonrobin/taskboard/pkg/tui"
	"github.com/harrisonrobin/taskboard/pkg/voice"
)

const logFile = "taskboard.log"

var (
	configPath string
	logLevel   string
	loginEmail string
)

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Team kanban board with an AI assistant",
	Long: `taskboard is a kanban board for individuals and small teams.

Tasks move through To Do, In Progress and Done. Team admins see and
assign their team's work; members see their own. An assistant summarizes
work, suggests rebalancing and understands spoken commands.

Run without a command to start the interactive shell.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runShell,
}

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive shell",
	Args:  cobra.NoArgs,
	RunE:  runShell,
}

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Open the full-screen board",
	Long: `Log in and open the full-screen board.

Logs are written to ~/.config/taskboard/taskboard.log while the board is
on screen.`,
	Args: cobra.NoArgs,
	RunE: runBoard,
}

var voiceCmd = &cobra.Command{
	Use:   "voice",
	Short: "Apply spoken commands read from stdin",
	Long: `Log in, then treat every line on stdin as a voice transcript.

Pipe a speech-to-text tool into this command to drive the board by voice.`,
	Args: cobra.NoArgs,
	RunE: runVoice,
}

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Authenticate with Google Calendar",
	Long: `Run the Google OAuth flow and store a fresh token.

Place the OAuth client credentials.json in ~/.config/taskboard first.
Any existing token is removed.`,
	Args: cobra.NoArgs,
	RunE: runAuth,
}

var setCalendarCmd = &cobra.Command{
	Use:   "set-calendar <name>",
	Short: "Set the Google calendar tasks are added to",
	Args:  cobra.ExactArgs(1),
	RunE:  runSetCalendar,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.config/taskboard/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides config)")
	for _, cmd := range []*cobra.Command{boardCmd, voiceCmd} {
		cmd.Flags().StringVar(&loginEmail, "email", "", "Log in as this user")
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	rootCmd.AddCommand(shellCmd, boardCmd, voiceCmd, authCmd, setCalendarCmd)
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.LoadFile(configPath)
	}
	return config.Load()
}

// level is --log-level when given, else the configured level.
func level(cfg *config.Config) (slog.Level, error) {
	if logLevel != "" {
		return logging.ParseLevel(logLevel)
	}
	return logging.ParseLevel(cfg.LogLevel)
}

// openApp loads config and builds the app with logs going to w.
func openApp(ctx context.Context, w io.Writer) (*App, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	lvl, err := level(cfg)
	if err != nil {
		return nil, err
	}
	return NewApp(ctx, cfg, WithLogger(logging.New(w, lvl)))
}

func closeApp(app *App) {
	if err := app.Close(); err != nil {
		app.logger.Warn("could not save state", slog.String("error", err.Error()))
	}
}

func runShell(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer closeApp(app)

	go func() {
		if err := app.ServeMetrics(ctx); err != nil {
			app.logger.Error("metrics server failed", slog.String("error", err.Error()))
		}
	}()
	return NewShell(app, os.Stdin, os.Stdout, WithTerminal(os.Stdin)).Run(ctx)
}

// login authenticates through the shell's login command so the password
// prompt behaves the same everywhere.
func login(ctx context.Context, sh *Shell) error {
	email := strings.TrimSpace(loginEmail)
	if email == "" {
		sh.printf("Email: ")
		line, err := sh.readLine()
		if err != nil {
			return fmt.Errorf("reading email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	return sh.Exec(ctx, "login "+quote(email))
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func runBoard(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	dir, err := config.GetXdgHome()
	if err != nil {
		return err
	}
	lvl, err := level(cfg)
	if err != nil {
		return err
	}
	logger, f, err := logging.OpenFile(filepath.Join(dir, logFile), lvl)
	if err != nil {
		return err
	}
	defer f.Close()

	app, err := NewApp(ctx, cfg, WithLogger(logger))
	if err != nil {
		return err
	}
	defer closeApp(app)

	sh := NewShell(app, os.Stdin, os.Stdout, WithTerminal(os.Stdin))
	if err := login(ctx, sh); err != nil {
		return err
	}
	return tui.Run(app.board)
}

func runVoice(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	app, err := openApp(ctx, os.Stderr)
	if err != nil {
		return err
	}
	defer closeApp(app)

	sh := NewShell(app, os.Stdin, os.Stdout, WithTerminal(os.Stdin))
	if err := login(ctx, sh); err != nil {
		return err
	}
	if err := app.requireAssistant(); err != nil {
		return err
	}
	sh.info("Listening for commands on stdin.")
	err = app.voice.Run(ctx, voice.Lines(ctx, sh.in), func(r voice.Result) { sh.reportVoice(ctx, r) })
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runAuth(cmd *cobra.Command, args []string) error {
	flow, err := auth.NewFlow()
	if err != nil {
		return fmt.Errorf("could not find path to configuration file: %w", err)
	}
	tokenFile := filepath.Join(flow.Dir, auth.TokenFile)
	if _, err := os.Stat(tokenFile); err == nil {
		fmt.Printf("Removing existing token file at %s\n", tokenFile)
		if err := os.Remove(tokenFile); err != nil {
			return fmt.Errorf("could not delete token file %s, please delete it manually: %w", tokenFile, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("could not check token file %s: %w", tokenFile, err)
	}

	if _, err := auth.GetCalendarService(cmd.Context(), flow); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	fmt.Printf("Authentication successful! Token saved to %s\n", tokenFile)
	return nil
}

func runSetCalendar(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cfg.Calendar = args[0]
	if configPath != "" {
		err = config.SaveFile(configPath, cfg)
	} else {
		err = config.Save(cfg)
	}
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Printf("Default calendar set to: %s\n", args[0])
	return nil
}
