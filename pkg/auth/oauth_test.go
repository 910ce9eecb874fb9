package auth

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/harrisonrobin/taskboard/pkg/logging"
)

const secrets = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"s3cret",
"auth_uri":"https://accounts.google.com/o/oauth2/auth","token_uri":"https://oauth2.googleapis.com/token",
"redirect_uris":["http://localhost"]}}`

func TestRedirectURL(t *testing.T) {
	logger := logging.Discard()
	tests := map[string]string{
		"http://localhost":               "http://localhost:6789",
		"http://localhost:8080/callback": "http://localhost:6789/callback",
		"http://127.0.0.1:6789":          "http://127.0.0.1:6789",
		"urn:ietf:wg:oauth:2.0:oob":      "http://localhost:6789/oauth2callback",
		"https://example.com/cb":         "https://example.com/cb",
	}
	for in, want := range tests {
		assert.Equal(t, want, redirectURL(in, logger), in)
	}
}

func TestFlowConfig(t *testing.T) {
	dir := t.TempDir()
	f := &Flow{Dir: dir, Out: &bytes.Buffer{}, Logger: logging.Discard()}

	_, err := f.Config(Scopes)
	assert.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ClientSecretsFile), []byte(secrets), 0o600))
	cfg, err := f.Config(Scopes)
	require.NoError(t, err)
	assert.Equal(t, "id.apps.googleusercontent.com", cfg.ClientID)
	assert.Equal(t, "http://localhost:6789", cfg.RedirectURL)
	assert.Equal(t, Scopes, cfg.Scopes)
}

func TestTokenRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "taskboard")
	assert.False(t, TokenStored(dir))

	tok := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	require.NoError(t, SaveToken(filepath.Join(dir, TokenFile), tok))
	assert.True(t, TokenStored(dir))

	info, err := os.Stat(filepath.Join(dir, TokenFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := TokenFromFile(filepath.Join(dir, TokenFile))
	require.NoError(t, err)
	assert.Equal(t, "a", got.AccessToken)
	assert.Equal(t, "r", got.RefreshToken)
	assert.True(t, tok.Expiry.Equal(got.Expiry))
}

type staticSource struct{ tok *oauth2.Token }

func (s staticSource) Token() (*oauth2.Token, error) { return s.tok, nil }

func TestSavingSourcePersistsRefresh(t *testing.T) {
	path := filepath.Join(t.TempDir(), TokenFile)
	old := &oauth2.Token{AccessToken: "old", RefreshToken: "r"}
	fresh := &oauth2.Token{AccessToken: "new", RefreshToken: "r"}

	s := &savingSource{src: staticSource{fresh}, path: path, last: old, logger: logging.Discard()}
	got, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)

	saved, err := TokenFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", saved.AccessToken)
}
