package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/taskboard/pkg/assistant"
	"github.com/harrisonrobin/taskboard/pkg/audio"
	"github.com/harrisonrobin/taskboard/pkg/board"
	"github.com/harrisonrobin/taskboard/pkg/directory"
	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/overdue"
	"github.com/harrisonrobin/taskboard/pkg/style"
	"github.com/harrisonrobin/taskboard/pkg/tui"
	"github.com/harrisonrobin/taskboard/pkg/voice"
)

const (
	toastSaved  = "Task saved. Add it to your calendar from the task card."
	toastPushed = "Deadline updated. Re-add to your calendar if needed."
)

var (
	errNoCalendar = errors.New("no calendar connected (use 'calendar connect google|outlook')")
	errBadDue     = errors.New("invalid due date")
)

// dueLayouts are tried in order, in local time.
var dueLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// parseDue accepts an absolute date or an offset from now such as "+2h"
// or "+3d".
func parseDue(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(s)
	if rest, ok := strings.CutPrefix(s, "+"); ok {
		if days, ok := strings.CutSuffix(rest, "d"); ok {
			n, err := strconv.Atoi(days)
			if err != nil || n < 0 {
				return time.Time{}, fmt.Errorf("%w: %q", errBadDue, s)
			}
			return now.Add(time.Duration(n) * 24 * time.Hour), nil
		}
		d, err := time.ParseDuration(rest)
		if err != nil || d < 0 {
			return time.Time{}, fmt.Errorf("%w: %q", errBadDue, s)
		}
		return now.Add(d), nil
	}
	for _, layout := range dueLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q (use YYYY-MM-DD HH:MM or +2h/+3d)", errBadDue, s)
}

// resolveMember finds a team member by id, email or name.
func (s *Shell) resolveMember(ref string) (model.User, error) {
	members, err := s.app.board.TeamMembers()
	if err != nil {
		return model.User{}, err
	}
	for _, m := range members {
		if m.ID == ref || strings.EqualFold(m.Email, ref) || strings.EqualFold(m.Name, ref) {
			return m, nil
		}
	}
	return model.User{}, fmt.Errorf("%w: %q is not on your team", directory.ErrUserNotFound, ref)
}

// commands builds the command tree for one shell line.
func (s *Shell) commands() *cobra.Command {
	root := &cobra.Command{
		Use:           "taskboard",
		Short:         "Team kanban board",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.AddGroup(
		&cobra.Group{ID: "account", Title: "Account:"},
		&cobra.Group{ID: "tasks", Title: "Tasks:"},
		&cobra.Group{ID: "team", Title: "Team and calendar:"},
		&cobra.Group{ID: "assistant", Title: "Assistant:"},
	)
	root.AddCommand(
		s.loginCmd(), s.signupCmd(), s.logoutCmd(), s.whoamiCmd(),
		s.tasksCmd(), s.addCmd(), s.editCmd(), s.moveCmd(), s.deleteCmd(), s.pushCmd(), s.overdueCmd(), s.boardCmd(),
		s.teamCmd(), s.calendarCmd(),
		s.summaryCmd(), s.optimizeCmd(), s.voiceCmd(), s.chatCmd(), s.speakCmd(), s.assistantCmd(),
		s.quitCmd(),
	)
	return root
}

func (s *Shell) loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "login <email> [password]",
		GroupID: "account",
		Short:   "Log in",
		Args:    cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password := ""
			if len(args) == 2 {
				password = args[1]
			} else {
				var err error
				if password, err = s.readPassword("Password: "); err != nil {
					return err
				}
			}
			u, err := s.app.session.Login(args[0], password)
			if err != nil {
				return err
			}
			s.success("Logged in as %s (%s).", u.Name, u.Email)
			if visible, err := s.app.board.Visible(); err == nil {
				if late := overdue.Find(visible, s.app.board.Now()); len(late) > 0 {
					s.warn("%d overdue task(s). Run 'overdue' to see them.", len(late))
				}
			}
			return nil
		},
	}
}

func (s *Shell) signupCmd() *cobra.Command {
	var (
		team   bool
		avatar string
	)
	cmd := &cobra.Command{
		Use:     "signup <name> <email>",
		GroupID: "account",
		Short:   "Create an account and log in",
		Long: `Create an account and log in.

Individual accounts see only their own tasks. With --team the account
administers a new team and can add members to it.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := s.readPassword("Choose a password: ")
			if err != nil {
				return err
			}
			kind := model.AccountIndividual
			if team {
				kind = model.AccountTeam
			}
			u, err := s.app.session.SignUp(directory.Candidate{
				Name:        args[0],
				Avatar:      avatar,
				Email:       args[1],
				Credential:  password,
				AccountType: kind,
			})
			if err != nil {
				return err
			}
			s.success("Welcome, %s! You are logged in.", u.Name)
			return nil
		},
	}
	cmd.Flags().BoolVar(&team, "team", false, "Create a team account")
	cmd.Flags().StringVar(&avatar, "avatar", "", "Avatar URL")
	return cmd
}

func (s *Shell) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "logout",
		GroupID: "account",
		Short:   "Log out",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s.app.session.Logout()
			s.info("Logged out.")
			return nil
		},
	}
}

func (s *Shell) whoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "whoami",
		GroupID: "account",
		Short:   "Show the current user",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := s.app.board.Actor()
			if err != nil {
				return err
			}
			s.printf("%s <%s>\n", style.Bold.Render(u.Name), u.Email)
			s.printf("  role: %s, account: %s\n", u.Role, u.AccountType)
			if u.TeamID != "" {
				s.printf("  team: %s\n", u.TeamID)
			}
			s.printf("  calendar: %s\n", s.app.session.Calendar().Label())
			return nil
		},
	}
}

func (s *Shell) tasksCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "tasks",
		Aliases: []string{"ls"},
		GroupID: "tasks",
		Short:   "Show the board",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cols, err := s.app.board.Columns()
			if err != nil {
				return err
			}
			now := s.app.board.Now()
			for _, status := range model.Statuses {
				tasks := cols[status]
				s.printf("%s\n", style.Bold.Render(fmt.Sprintf("%s (%d)", status.Label(), len(tasks))))
				if len(tasks) == 0 {
					s.printf("  %s\n", style.Dim.Render("(empty)"))
				}
				for _, t := range tasks {
					s.printTask(t, now)
				}
			}
			return nil
		},
	}
}

func (s *Shell) printTask(t model.Task, now time.Time) {
	assignee := t.AssigneeID
	if u, err := s.app.board.User(t.AssigneeID); err == nil {
		assignee = u.Name
	}
	due := style.Dim.Render(tui.DueText(t, now))
	switch {
	case overdue.Urgent(t, now):
		due = style.Urgent.Render("URGENT " + tui.DueText(t, now))
	case t.Overdue(now):
		due = style.Error.Render(tui.DueText(t, now))
	}
	s.printf("  %s  %s  %s  %s  %s\n", style.Dim.Render(t.ID), t.Title, style.Priority(t.Priority), assignee, due)
	if t.Description != "" {
		s.printf("      %s\n", style.Dim.Render(t.Description))
	}
}

// taskFlags are shared by add and edit.
type taskFlags struct {
	title, desc, priority, frequency, due, assignee string
}

func (f *taskFlags) register(cmd *cobra.Command, withTitle bool) {
	if withTitle {
		cmd.Flags().StringVar(&f.title, "title", "", "New title")
	}
	cmd.Flags().StringVar(&f.desc, "desc", "", "Description")
	cmd.Flags().StringVar(&f.priority, "priority", "", "low, medium or high")
	cmd.Flags().StringVar(&f.frequency, "frequency", "", "one_time, daily, weekly, monthly or yearly")
	cmd.Flags().StringVar(&f.due, "due", "", "Due date: YYYY-MM-DD HH:MM, or +2h/+3d from now")
	cmd.Flags().StringVar(&f.assignee, "assignee", "", "Team member id, email or name")
}

func (s *Shell) addCmd() *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:     "add <title>",
		GroupID: "tasks",
		Short:   "Create a task",
		Long: `Create a task in To Do.

Defaults: medium priority, one-time, due in 24 hours, assigned to you.
Only admins can assign tasks to someone else.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			d := board.Draft{Title: strings.Join(args, " "), Description: f.desc}
			var err error
			if f.priority != "" {
				if d.Priority, err = model.ParsePriority(f.priority); err != nil {
					return err
				}
			}
			if f.frequency != "" {
				if d.Frequency, err = model.ParseFrequency(f.frequency); err != nil {
					return err
				}
			}
			if f.due != "" {
				if d.Due, err = parseDue(f.due, s.app.board.Now()); err != nil {
					return err
				}
			}
			if f.assignee != "" {
				m, err := s.resolveMember(f.assignee)
				if err != nil {
					return err
				}
				d.AssigneeID = m.ID
			}
			t, err := s.app.board.CreateTask(d)
			if err != nil {
				return err
			}
			s.success("Created %s %q.", t.ID, t.Title)
			s.calendarReminder(toastSaved)
			return nil
		},
	}
	f.register(cmd, false)
	return cmd
}

func (s *Shell) editCmd() *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:     "edit <id>",
		GroupID: "tasks",
		Short:   "Change a task's fields",
		Long: `Change a task's fields. Only the flags given are changed.

Members can edit their own tasks but not the due date or assignee.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fields model.TaskFields
			flags := cmd.Flags()
			if flags.Changed("title") {
				fields.Title = &f.title
			}
			if flags.Changed("desc") {
				fields.Description = &f.desc
			}
			if flags.Changed("priority") {
				p, err := model.ParsePriority(f.priority)
				if err != nil {
					return err
				}
				fields.Priority = &p
			}
			if flags.Changed("frequency") {
				fr, err := model.ParseFrequency(f.frequency)
				if err != nil {
					return err
				}
				fields.Frequency = &fr
			}
			if flags.Changed("due") {
				due, err := parseDue(f.due, s.app.board.Now())
				if err != nil {
					return err
				}
				fields.Due = &due
			}
			if flags.Changed("assignee") {
				m, err := s.resolveMember(f.assignee)
				if err != nil {
					return err
				}
				fields.AssigneeID = &m.ID
			}
			if fields.Empty() {
				return errors.New("nothing to change (see 'help edit')")
			}
			t, err := s.app.board.EditTask(args[0], fields)
			if err != nil {
				return err
			}
			s.success("Saved %s %q.", t.ID, t.Title)
			s.calendarReminder(toastSaved)
			return nil
		},
	}
	f.register(cmd, true)
	return cmd
}

func (s *Shell) moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "move <id> <todo|in_progress|done>",
		GroupID: "tasks",
		Short:   "Move a task to another column",
		Args:    cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := model.ParseStatus(strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			t, err := s.app.board.MoveTask(args[0], status)
			if err != nil {
				return err
			}
			s.success("Moved %q to %s.", t.Title, status.Label())
			return nil
		},
	}
}

func (s *Shell) deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		GroupID: "tasks",
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := s.app.board.DeleteTask(args[0])
			if err != nil {
				return err
			}
			s.success("Deleted %q.", t.Title)
			s.removeEvent(cmd.Context(), t.ID)
			return nil
		},
	}
}

func (s *Shell) pushCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "push <id>",
		GroupID: "tasks",
		Short:   "Push a deadline back by 24 hours",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := s.app.board.PushDeadline(args[0])
			if err != nil {
				return err
			}
			s.success("%q is now due %s.", t.Title, t.Due.Local().Format("Mon Jan 2 15:04"))
			s.calendarReminder(toastPushed)
			return nil
		},
	}
}

func (s *Shell) overdueCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "overdue",
		GroupID: "tasks",
		Short:   "List overdue and urgent tasks",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			visible, err := s.app.board.Visible()
			if err != nil {
				return err
			}
			now := s.app.board.Now()
			late := overdue.Find(visible, now)
			var urgent []model.Task
			for _, t := range visible {
				if overdue.Urgent(t, now) {
					urgent = append(urgent, t)
				}
			}
			if len(late) == 0 && len(urgent) == 0 {
				s.success("Nothing overdue.")
				return nil
			}
			for _, t := range late {
				s.printTask(t, now)
			}
			for _, t := range urgent {
				s.printTask(t, now)
			}
			s.info("Use 'push <id>' to move a deadline back by a day.")
			return nil
		},
	}
}

func (s *Shell) boardCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "board",
		GroupID: "tasks",
		Short:   "Open the interactive board",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := s.app.board.Actor(); err != nil {
				return err
			}
			return s.fullscreen(func() error { return s.runBoard(s.app.board) })
		},
	}
}

func (s *Shell) teamCmd() *cobra.Command {
	team := &cobra.Command{
		Use:     "team",
		GroupID: "team",
		Short:   "Manage your team",
		Args:    cobra.NoArgs,
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List team members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			members, err := s.app.board.TeamMembers()
			if err != nil {
				return err
			}
			actor, _ := s.app.board.Actor()
			for _, m := range members {
				marker := " "
				if m.ID == actor.ID {
					marker = "*"
				}
				s.printf("%s %s  %s <%s> %s\n", marker, style.Dim.Render(m.ID), m.Name, m.Email, style.Dim.Render(string(m.Role)))
			}
			return nil
		},
	}

	var avatar string
	add := &cobra.Command{
		Use:   "add <name> <email>",
		Short: "Add a member to your team",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := s.readPassword("Password for " + args[0] + ": ")
			if err != nil {
				return err
			}
			u, err := s.app.board.AddTeamMember(directory.Member{
				Name:       args[0],
				Avatar:     avatar,
				Email:      args[1],
				Credential: password,
			})
			if err != nil {
				return err
			}
			s.success("Added %s (%s).", u.Name, u.ID)
			return nil
		},
	}
	add.Flags().StringVar(&avatar, "avatar", "", "Avatar URL")

	remove := &cobra.Command{
		Use:   "remove <id|email|name>",
		Short: "Remove a member who has no tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := s.resolveMember(args[0])
			if err != nil {
				return err
			}
			if err := s.app.board.RemoveTeamMember(m.ID); err != nil {
				return err
			}
			s.success("Removed %s.", m.Name)
			return nil
		},
	}

	team.AddCommand(list, add, remove)
	return team
}

func (s *Shell) calendarCmd() *cobra.Command {
	cal := &cobra.Command{
		Use:     "calendar",
		GroupID: "team",
		Short:   "Connect a calendar and add tasks to it",
		Args:    cobra.NoArgs,
	}

	connect := &cobra.Command{
		Use:   "connect <google|outlook|none>",
		Short: "Connect a calendar provider",
		Long: `Connect a calendar provider.

Google pushes tasks to the configured calendar as events. Outlook writes
an .ics file per task that can be imported.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := model.ParseCalendarProvider(strings.ToLower(args[0]))
			if err != nil {
				return err
			}
			if _, err := s.app.board.Actor(); err != nil {
				return err
			}
			if p == model.CalendarGoogle {
				if _, err := s.app.Calendar(cmd.Context()); err != nil {
					return fmt.Errorf("connecting to Google Calendar: %w", err)
				}
			}
			if err := s.app.session.ConnectCalendar(p); err != nil {
				return err
			}
			if p == model.CalendarNone {
				s.info("Calendar disconnected.")
				return nil
			}
			s.toast(fmt.Sprintf("Connected to %s! You can now add tasks to your calendar.", p.Label()))
			return nil
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show the connected calendar",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p := s.app.session.Calendar()
			switch p {
			case model.CalendarGoogle:
				s.printf("Connected to Google (calendar %q).\n", s.app.cfg.Calendar)
			case model.CalendarOutlook:
				s.printf("Connected to Outlook (.ics files in %s).\n", s.exportDir())
			default:
				s.printf("No calendar connected.\n")
			}
			return nil
		},
	}

	add := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a task to the connected calendar",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := s.app.board.Task(args[0])
			if err != nil {
				return err
			}
			switch s.app.session.Calendar() {
			case model.CalendarGoogle:
				c, err := s.app.Calendar(cmd.Context())
				if err != nil {
					return err
				}
				assignee, err := s.app.board.User(t.AssigneeID)
				if err != nil {
					return err
				}
				ev, err := c.SyncTask(cmd.Context(), t, assignee)
				if err != nil {
					return fmt.Errorf("adding %s to Google Calendar: %w", t.ID, err)
				}
				s.success("Added %q to Google Calendar.", t.Title)
				if ev != nil && ev.HtmlLink != "" {
					s.printf("  %s\n", ev.HtmlLink)
				}
			case model.CalendarOutlook:
				path, err := s.app.board.ExportCalendar(t.ID, s.exportDir())
				if err != nil {
					return err
				}
				s.success("Wrote %s. Open it to add the event to Outlook.", path)
			default:
				return errNoCalendar
			}
			return nil
		},
	}

	cal.AddCommand(connect, status, add)
	return cal
}

func (s *Shell) exportDir() string {
	if s.app.cfg.ExportDir != "" {
		return s.app.cfg.ExportDir
	}
	return "."
}

// calendarReminder shows msg when a calendar is connected.
func (s *Shell) calendarReminder(msg string) {
	if s.app.session.CalendarConnected() {
		s.toast(msg)
	}
}

// showReply renders an assistant reply, noting when it is a fallback.
func (s *Shell) showReply(r assistant.Reply) {
	s.markdown(r.Markdown)
	if r.Degraded {
		s.logger.Debug("assistant reply degraded", slog.Any("error", r.Err))
		s.warn("The assistant is unavailable right now.")
	}
}

func (s *Shell) summaryCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "summary [daily|weekly|monthly]",
		GroupID: "assistant",
		Short:   "Summarize your tasks",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			period := assistant.Weekly
			if len(args) == 1 {
				var err error
				if period, err = assistant.ParsePeriod(strings.ToLower(args[0])); err != nil {
					return err
				}
			}
			tasks, err := s.app.board.Visible()
			if err != nil {
				return err
			}
			if err := s.app.requireAssistant(); err != nil {
				return err
			}
			s.info("Generating %s summary...", period)
			r, err := s.app.panel.Summary(cmd.Context(), tasks, period)
			if err != nil {
				return err
			}
			s.showReply(r)
			return nil
		},
	}
}

func (s *Shell) optimizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "optimize",
		GroupID: "assistant",
		Short:   "Suggest how to rebalance the workload",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			actor, err := s.app.board.Actor()
			if err != nil {
				return err
			}
			tasks, err := s.app.board.Visible()
			if err != nil {
				return err
			}
			members, err := s.app.board.TeamMembers()
			if err != nil {
				return err
			}
			if err := s.app.requireAssistant(); err != nil {
				return err
			}
			s.info("Analyzing workload...")
			r, err := s.app.panel.Optimize(cmd.Context(), tasks, members, actor)
			if err != nil {
				return err
			}
			s.showReply(r)
			return nil
		},
	}
}

func (s *Shell) voiceCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "voice [transcript]",
		GroupID: "assistant",
		Short:   "Add or delete tasks by speaking (typed transcripts)",
		Long: `Run spoken commands such as "add a high priority task to call the
client tomorrow" or "delete the report task".

With no arguments every following line is a transcript until an empty line.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := s.app.board.Actor(); err != nil {
				return err
			}
			if err := s.app.requireAssistant(); err != nil {
				return err
			}
			if len(args) > 0 {
				s.reportVoice(cmd.Context(), s.app.voice.Handle(cmd.Context(), strings.Join(args, " ")))
				return nil
			}
			s.info("Listening. Enter an empty line to stop.")
			for {
				s.printf("voice> ")
				line, err := s.readLine()
				if err != nil {
					return nil
				}
				line = strings.TrimSpace(line)
				if line == "" {
					return nil
				}
				s.reportVoice(cmd.Context(), s.app.voice.Handle(cmd.Context(), line))
			}
		},
	}
}

// removeEvent drops a deleted task's calendar event, if a calendar is
// connected.
func (s *Shell) removeEvent(ctx context.Context, taskID string) {
	c := s.app.connectedCalendar()
	if c == nil {
		return
	}
	if err := c.RemoveTask(ctx, taskID); err != nil {
		s.warn("Could not remove the calendar event: %v", err)
	}
}

func (s *Shell) reportVoice(ctx context.Context, r voice.Result) {
	if !r.OK() {
		s.warn("%s", r.Feedback)
		return
	}
	s.success("%s", r.Feedback)
	if r.Outcome.Action == assistant.ActionDelete {
		s.removeEvent(ctx, r.Outcome.Task.ID)
	}
}

func (s *Shell) chatCmd() *cobra.Command {
	var history bool
	cmd := &cobra.Command{
		Use:     "chat <message>",
		GroupID: "assistant",
		Short:   "Talk to the assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.app.requireAssistant(); err != nil {
				return err
			}
			if history || len(args) == 0 {
				for _, m := range s.app.chat.History() {
					who := "assistant"
					if m.Role == model.ChatUser {
						who = "you"
					}
					s.printf("%s: %s\n", style.Bold.Render(who), m.Text)
				}
				return nil
			}
			r, err := s.app.chat.Send(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			s.showReply(r)
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "Show the conversation so far")
	return cmd
}

func (s *Shell) speakCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:     "speak <text>",
		GroupID: "assistant",
		Short:   "Read text aloud into a WAV file",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.app.requireAssistant(); err != nil {
				return err
			}
			pcm, err := s.app.assistant.Speak(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			path := output
			if path == "" {
				path = filepath.Join(s.exportDir(), fmt.Sprintf("speech-%d.wav", s.app.now().Unix()))
			}
			if err := audio.WriteFile(path, pcm, audio.Speech); err != nil {
				return err
			}
			s.success("Wrote %s (%.1fs).", path, audio.Speech.Duration(len(pcm)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "WAV file to write")
	return cmd
}

func (s *Shell) assistantCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "assistant",
		GroupID: "assistant",
		Short:   "Check the assistant backend",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := s.app.requireAssistant(); err != nil {
				return err
			}
			if s.app.gen == nil {
				s.info("Using a built-in assistant.")
				return nil
			}
			ac := s.app.cfg.Assistant
			s.printf("backend: %s (default model %s)\n", s.app.gen.Name(), s.app.gen.DefaultModel())
			s.printf("models: analysis %s, fast %s, speech %s, voice %s\n", ac.Model, ac.FastModel, ac.SpeechModel, ac.Voice)
			if err := s.app.gen.Healthy(cmd.Context()); err != nil {
				return fmt.Errorf("backend unreachable: %w", err)
			}
			s.success("Backend reachable.")
			return nil
		},
	}
}

func (s *Shell) quitCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "quit",
		Aliases: []string{"exit"},
		Short:   "Leave the shell",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return errQuit
		},
	}
}
