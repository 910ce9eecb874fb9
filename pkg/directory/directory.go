// Package directory holds the in-memory set of accounts: credential lookup,
// registration and team membership.
package directory

import (
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/text/cases"

	"github.com/harrisonrobin/taskboard/pkg/model"
)

var (
	// ErrInvalidCredentials indicates the email/credential pair did not match an account.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrDuplicateEmail indicates an account with that email already exists.
	ErrDuplicateEmail = errors.New("an account with this email already exists")

	// ErrPermissionDenied indicates the actor may not perform the operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUserReferenced indicates the user is still assigned to tasks.
	ErrUserReferenced = errors.New("user is still assigned to tasks")

	// ErrInvalidUser indicates a candidate account is missing required fields.
	ErrInvalidUser = errors.New("invalid user")
)

// Candidate is a self-service sign-up request.
type Candidate struct {
	Name        string
	Avatar      string
	Email       string
	Credential  string
	AccountType model.AccountType
}

// Member is a team member added by a team admin.
type Member struct {
	Name       string
	Avatar     string
	Email      string
	Credential string
}

// Directory is safe for concurrent use.
type Directory struct {
	mu      sync.RWMutex
	users   map[string]model.User
	order   []string
	byEmail map[string]string // folded email -> id
	secrets map[string][]byte // id -> bcrypt hash

	cost  int
	newID func(prefix string) string

	// dummy is compared against when the email is unknown so both
	// failure paths do the same work.
	dummy []byte
}

// Option configures a Directory.
type Option func(*Directory)

// WithHashCost sets the bcrypt cost. Tests use bcrypt.MinCost.
func WithHashCost(cost int) Option {
	return func(d *Directory) {
		d.cost = cost
	}
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(fn func(prefix string) string) Option {
	return func(d *Directory) {
		d.newID = fn
	}
}

// New creates an empty directory.
func New(opts ...Option) *Directory {
	d := &Directory{
		users:   make(map[string]model.User),
		byEmail: make(map[string]string),
		secrets: make(map[string][]byte),
		cost:    bcrypt.DefaultCost,
		newID: func(prefix string) string {
			return prefix + "-" + uuid.NewString()
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	d.dummy, _ = bcrypt.GenerateFromPassword([]byte("taskboard"), d.cost)
	return d
}

// key folds an email for lookups. A Caser is stateful, so each call gets its own.
func (d *Directory) key(email string) string {
	return cases.Fold().String(strings.TrimSpace(email))
}

// Authenticate returns the account matching email (case-insensitive) and
// credential (exact).
func (d *Directory) Authenticate(email, credential string) (model.User, error) {
	d.mu.RLock()
	id, ok := d.byEmail[d.key(email)]
	hash := d.dummy
	if ok {
		hash = d.secrets[id]
	}
	u := d.users[id]
	d.mu.RUnlock()

	if err := bcrypt.CompareHashAndPassword(hash, []byte(credential)); err != nil || !ok {
		return model.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// Register creates a new account. Team accounts get a fresh team with the
// registrant as admin; individual accounts are their own admin.
func (d *Directory) Register(c Candidate) (model.User, error) {
	if !c.AccountType.Valid() {
		return model.User{}, fmt.Errorf("%w: unknown account type %q", ErrInvalidUser, c.AccountType)
	}
	u := model.User{
		Name:        strings.TrimSpace(c.Name),
		Avatar:      c.Avatar,
		Email:       strings.TrimSpace(c.Email),
		Role:        model.RoleAdmin,
		AccountType: c.AccountType,
	}
	if err := validate(u, c.Credential); err != nil {
		return model.User{}, err
	}
	hash, err := d.hash(c.Credential)
	if err != nil {
		return model.User{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byEmail[d.key(u.Email)]; exists {
		return model.User{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, u.Email)
	}
	u.ID = d.newID("user")
	if u.AccountType == model.AccountTeam {
		u.TeamID = d.newID("team")
	}
	d.putLocked(u, hash)
	return u, nil
}

// AddTeamMember adds a new account to the actor's team with role user.
// Only team admins may do this.
func (d *Directory) AddTeamMember(actor model.User, m Member) (model.User, error) {
	if !actor.IsTeamAdmin() {
		return model.User{}, fmt.Errorf("%w: only team admins can add members", ErrPermissionDenied)
	}
	u := model.User{
		Name:        strings.TrimSpace(m.Name),
		Avatar:      m.Avatar,
		Email:       strings.TrimSpace(m.Email),
		Role:        model.RoleUser,
		AccountType: model.AccountTeam,
		TeamID:      actor.TeamID,
	}
	if err := validate(u, m.Credential); err != nil {
		return model.User{}, err
	}
	hash, err := d.hash(m.Credential)
	if err != nil {
		return model.User{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.byEmail[d.key(u.Email)]; exists {
		return model.User{}, fmt.Errorf("%w: %s", ErrDuplicateEmail, u.Email)
	}
	u.ID = d.newID("user")
	d.putLocked(u, hash)
	return u, nil
}

// Insert stores a fully formed account, keeping its id, role and team.
// Used to load seed data.
func (d *Directory) Insert(u model.User, credential string) error {
	if u.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidUser)
	}
	if !u.AccountType.Valid() || !u.Role.Valid() {
		return fmt.Errorf("%w: %s has unknown role or account type", ErrInvalidUser, u.ID)
	}
	if u.AccountType == model.AccountIndividual {
		u.Role = model.RoleAdmin
		u.TeamID = ""
	}
	if u.AccountType == model.AccountTeam && u.TeamID == "" {
		return fmt.Errorf("%w: team account %s has no team id", ErrInvalidUser, u.ID)
	}
	if err := validate(u, credential); err != nil {
		return err
	}
	hash, err := d.hash(credential)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.users[u.ID]; exists {
		return fmt.Errorf("%w: duplicate id %s", ErrInvalidUser, u.ID)
	}
	if _, exists := d.byEmail[d.key(u.Email)]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateEmail, u.Email)
	}
	d.putLocked(u, hash)
	return nil
}

func (d *Directory) putLocked(u model.User, hash []byte) {
	d.users[u.ID] = u
	d.order = append(d.order, u.ID)
	d.byEmail[d.key(u.Email)] = u.ID
	d.secrets[u.ID] = hash
}

func (d *Directory) hash(credential string) ([]byte, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(credential), d.cost)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidUser, err)
	}
	return hash, nil
}

func validate(u model.User, credential string) error {
	if u.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidUser)
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return fmt.Errorf("%w: invalid email %q", ErrInvalidUser, u.Email)
	}
	if credential == "" {
		return fmt.Errorf("%w: password is required", ErrInvalidUser)
	}
	return nil
}

// Get returns the user with the given id.
func (d *Directory) Get(id string) (model.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	u, ok := d.users[id]
	if !ok {
		return model.User{}, fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	return u, nil
}

// List returns all users in registration order.
func (d *Directory) List() []model.User {
	d.mu.RLock()
	defer d.mu.RUnlock()

	users := make([]model.User, 0, len(d.order))
	for _, id := range d.order {
		users = append(users, d.users[id])
	}
	return users
}

// MembersOf returns every user sharing teamID.
func (d *Directory) MembersOf(teamID string) []model.User {
	if teamID == "" {
		return nil
	}
	d.mu.RLock()
	defer d.mu.RUnlock()

	var members []model.User
	for _, id := range d.order {
		if u := d.users[id]; u.TeamID == teamID {
			members = append(members, u)
		}
	}
	return members
}

// TeamOf returns the users u can assign work to. An individual account's
// team is just itself.
func (d *Directory) TeamOf(u model.User) []model.User {
	if u.AccountType == model.AccountTeam && u.TeamID != "" {
		return d.MembersOf(u.TeamID)
	}
	return []model.User{u}
}

// Remove deletes a user. inUse reports whether tasks still reference the
// user; such users cannot be removed.
func (d *Directory) Remove(id string, inUse func(userID string) bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUserNotFound, id)
	}
	if inUse != nil && inUse(id) {
		return fmt.Errorf("%w: %s", ErrUserReferenced, u.Email)
	}

	delete(d.users, id)
	delete(d.secrets, id)
	delete(d.byEmail, d.key(u.Email))
	for i, existing := range d.order {
		if existing == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of accounts.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.users)
}
