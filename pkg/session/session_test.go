package session

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/harrisonrobin/taskboard/pkg/directory"
	"github.com/harrisonrobin/taskboard/pkg/model"
)

func newSession(t *testing.T) (*Session, *directory.Directory) {
	t.Helper()
	dir := directory.New(directory.WithHashCost(bcrypt.MinCost))
	return New(dir, slog.New(slog.NewTextHandler(io.Discard, nil))), dir
}

func TestLoginLogout(t *testing.T) {
	s, dir := newSession(t)
	u, err := dir.Register(directory.Candidate{Name: "Alex", Email: "alex@team.com", Credential: "pw", AccountType: model.AccountTeam})
	require.NoError(t, err)

	_, err = s.Actor()
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = s.Login("alex@team.com", "wrong")
	assert.ErrorIs(t, err, directory.ErrInvalidCredentials)
	assert.False(t, s.LoggedIn())

	got, err := s.Login("ALEX@team.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, u, got)

	actor, err := s.Actor()
	require.NoError(t, err)
	assert.Equal(t, u.ID, actor.ID)

	require.NoError(t, s.ConnectCalendar(model.CalendarGoogle))
	assert.Equal(t, model.CalendarGoogle, s.Calendar())
	assert.True(t, s.CalendarConnected())

	s.Logout()
	assert.False(t, s.LoggedIn())
	assert.Equal(t, model.CalendarNone, s.Calendar())
}

func TestSignUpLogsIn(t *testing.T) {
	s, _ := newSession(t)
	u, err := s.SignUp(directory.Candidate{Name: "Casey", Email: "casey@solo.com", Credential: "pw", AccountType: model.AccountIndividual})
	require.NoError(t, err)

	actor, err := s.Actor()
	require.NoError(t, err)
	assert.Equal(t, u, actor)

	_, err = s.SignUp(directory.Candidate{Name: "Casey", Email: "CASEY@solo.com", Credential: "pw", AccountType: model.AccountIndividual})
	assert.ErrorIs(t, err, directory.ErrDuplicateEmail)
}

func TestConnectCalendarRequiresActor(t *testing.T) {
	s, _ := newSession(t)
	assert.ErrorIs(t, s.ConnectCalendar(model.CalendarOutlook), ErrNotAuthenticated)
	assert.Error(t, s.ConnectCalendar("icloud"))
}

func TestActorRemovedFromDirectory(t *testing.T) {
	s, dir := newSession(t)
	u, err := s.SignUp(directory.Candidate{Name: "Casey", Email: "casey@solo.com", Credential: "pw", AccountType: model.AccountIndividual})
	require.NoError(t, err)
	require.NoError(t, dir.Remove(u.ID, nil))

	_, err = s.Actor()
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}
