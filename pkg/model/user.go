package model

import "fmt"

// Role of a user within their account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

func (r Role) Valid() bool { return r == RoleAdmin || r == RoleUser }

// AccountType distinguishes solo accounts from team accounts.
type AccountType string

const (
	AccountIndividual AccountType = "individual"
	AccountTeam       AccountType = "team"
)

func (a AccountType) Valid() bool { return a == AccountIndividual || a == AccountTeam }

func ParseAccountType(s string) (AccountType, error) {
	switch AccountType(s) {
	case AccountIndividual, AccountTeam:
		return AccountType(s), nil
	}
	return "", fmt.Errorf("unknown account type %q", s)
}

// User is an account in the directory. The credential is held by the
// directory and never travels with the user value.
type User struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Avatar      string      `json:"avatar,omitempty"`
	Email       string      `json:"email"`
	Role        Role        `json:"role"`
	AccountType AccountType `json:"accountType"`
	TeamID      string      `json:"teamId,omitempty"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// IsTeamAdmin reports whether u administers a team account.
func (u User) IsTeamAdmin() bool {
	return u.AccountType == AccountTeam && u.Role == RoleAdmin && u.TeamID != ""
}

// CalendarProvider is the calendar the session is connected to.
type CalendarProvider string

const (
	CalendarNone    CalendarProvider = "none"
	CalendarGoogle  CalendarProvider = "google"
	CalendarOutlook CalendarProvider = "outlook"
)

func ParseCalendarProvider(s string) (CalendarProvider, error) {
	switch CalendarProvider(s) {
	case CalendarNone, CalendarGoogle, CalendarOutlook:
		return CalendarProvider(s), nil
	}
	return "", fmt.Errorf("unknown calendar provider %q", s)
}

// Label returns the provider's display name.
func (c CalendarProvider) Label() string {
	switch c {
	case CalendarGoogle:
		return "Google"
	case CalendarOutlook:
		return "Outlook"
	}
	return "None"
}

// ChatRole identifies the author of a chat message.
type ChatRole string

const (
	ChatUser  ChatRole = "user"
	ChatModel ChatRole = "model"
)

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	Role ChatRole `json:"role"`
	Text string   `json:"text"`
}
