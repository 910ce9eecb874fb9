// Package seed loads demo users and tasks into an empty board.
package seed

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/taskboard/pkg/directory"
	"github.com/harrisonrobin/taskboard/pkg/model"
	"github.com/harrisonrobin/taskboard/pkg/taskstore"
)

//go:embed default.yaml
var defaultSeed []byte

type User struct {
	ID          string            `yaml:"id"`
	Name        string            `yaml:"name"`
	Avatar      string            `yaml:"avatar"`
	Email       string            `yaml:"email"`
	Password    string            `yaml:"password"`
	Role        model.Role        `yaml:"role"`
	AccountType model.AccountType `yaml:"account_type"`
	TeamID      string            `yaml:"team_id"`
}

// Task is a seed task. DueIn is relative to the time the seed is applied.
type Task struct {
	ID          string          `yaml:"id"`
	Title       string          `yaml:"title"`
	Description string          `yaml:"description"`
	Status      model.Status    `yaml:"status"`
	Priority    model.Priority  `yaml:"priority"`
	Frequency   model.Frequency `yaml:"frequency"`
	DueIn       time.Duration   `yaml:"due_in"`
	Assignee    string          `yaml:"assignee"`
}

type Data struct {
	Users []User `yaml:"users"`
	Tasks []Task `yaml:"tasks"`
}

// Default returns the built-in demo board.
func Default() (*Data, error) {
	return Parse(defaultSeed)
}

// LoadFile reads a seed file.
func LoadFile(path string) (*Data, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed %s: %w", path, err)
	}
	d, err := Parse(b)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return d, nil
}

// Parse decodes and checks seed YAML. Every task must be assigned to a
// seeded user.
func Parse(b []byte) (*Data, error) {
	var d Data
	if err := yaml.Unmarshal(b, &d); err != nil {
		return nil, fmt.Errorf("parsing seed: %w", err)
	}

	users := make(map[string]bool, len(d.Users))
	for _, u := range d.Users {
		users[u.ID] = true
	}
	for i, t := range d.Tasks {
		if t.Frequency == "" {
			d.Tasks[i].Frequency = model.FrequencyOneTime
		}
		switch {
		case t.ID == "" || t.Title == "":
			return nil, fmt.Errorf("seed task %d: missing id or title", i)
		case !t.Status.Valid():
			return nil, fmt.Errorf("seed task %s: unknown status %q", t.ID, t.Status)
		case !t.Priority.Valid():
			return nil, fmt.Errorf("seed task %s: unknown priority %q", t.ID, t.Priority)
		case !d.Tasks[i].Frequency.Valid():
			return nil, fmt.Errorf("seed task %s: unknown frequency %q", t.ID, t.Frequency)
		case !users[t.Assignee]:
			return nil, fmt.Errorf("seed task %s: unknown assignee %q", t.ID, t.Assignee)
		}
	}
	return &d, nil
}

// Apply inserts the users into dir and the tasks into store, with due
// dates relative to now.
func (d *Data) Apply(dir *directory.Directory, store *taskstore.Store, now time.Time) error {
	for _, u := range d.Users {
		user := model.User{
			ID:          u.ID,
			Name:        u.Name,
			Avatar:      u.Avatar,
			Email:       u.Email,
			Role:        u.Role,
			AccountType: u.AccountType,
			TeamID:      u.TeamID,
		}
		if err := dir.Insert(user, u.Password); err != nil {
			return fmt.Errorf("seeding user %s: %w", u.ID, err)
		}
	}
	for _, t := range d.Tasks {
		task := model.Task{
			ID:          t.ID,
			Title:       t.Title,
			Description: t.Description,
			Status:      t.Status,
			Priority:    t.Priority,
			Frequency:   t.Frequency,
			Due:         now.Add(t.DueIn),
			AssigneeID:  t.Assignee,
		}
		if err := store.Load(task); err != nil {
			return fmt.Errorf("seeding task: %w", err)
		}
	}
	return nil
}
