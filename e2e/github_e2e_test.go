package e2e

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/go-ledgit/pkg/ledgit"
)

// ghMock is a GitHub Enterprise stand-in: it serves the App installation API
// under /api/v3 and records the credentials presented to git endpoints.
type ghMock struct {
	server *httptest.Server

	mu         sync.Mutex
	gitAuth    []string
	tokenCalls int
}

func newGHMock(t *testing.T) *ghMock {
	t.Helper()
	m := &ghMock{}
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v3/repos/acme/books/installation", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"id": 42})
	})
	mux.HandleFunc("/api/v3/app/installations/42/access_tokens", func(w http.ResponseWriter, _ *http.Request) {
		m.mu.Lock()
		m.tokenCalls++
		m.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]any{"token": "ghs_installation", "expires_at": "2099-01-01T00:00:00Z"})
	})
	// Any git smart-HTTP request: remember the credentials, then refuse.
	mux.HandleFunc("/acme/", func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.gitAuth = append(m.gitAuth, r.Header.Get("Authorization"))
		m.mu.Unlock()
		w.WriteHeader(http.StatusForbidden)
	})

	m.server = httptest.NewServer(mux)
	t.Cleanup(m.server.Close)
	return m
}

func (m *ghMock) apiURL() string {
	return m.server.URL + "/api/v3"
}

func (m *ghMock) remoteURL() string {
	return m.server.URL + "/acme/books.git"
}

func (m *ghMock) presented() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.gitAuth...)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func basic(user, password string) string {
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(user+":"+password))
}

func writeAppKey(t *testing.T) string {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "app.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func clearAuthEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_APP_ID", "")
	t.Setenv("GH_APP_PRIVATE_KEY_PATH", "")
	t.Setenv("GITHUB_API_URL", "")
}

func initWithRemote(t *testing.T, opts ledgit.Options, remote string) (*ledgit.App, context.Context) {
	t.Helper()
	app, err := ledgit.New(opts)
	require.NoError(t, err)
	ctx := context.Background()
	_, err = app.Init(ctx, t.TempDir())
	require.NoError(t, err)
	require.NoError(t, app.AddRemote(ctx, "origin", remote))
	return app, ctx
}

func TestGitHub_PushPresentsToken(t *testing.T) {
	clearAuthEnv(t)
	m := newGHMock(t)

	app, ctx := initWithRemote(t, ledgit.Options{
		GitHubToken:  "ghp_secret",
		GitHubAPIURL: m.apiURL(),
	}, m.remoteURL())

	err := app.Push(ctx, "", "")
	require.Error(t, err)
	require.ErrorIs(t, err, ledgit.ErrEngine)

	auth := m.presented()
	require.NotEmpty(t, auth)
	require.Equal(t, basic("x-access-token", "ghp_secret"), auth[0])
}

func TestGitHub_PullWithAppInstallationToken(t *testing.T) {
	clearAuthEnv(t)
	m := newGHMock(t)

	app, ctx := initWithRemote(t, ledgit.Options{
		GitHubAppID:      7,
		GitHubAppKeyPath: writeAppKey(t),
		GitHubAPIURL:     m.apiURL(),
	}, m.remoteURL())

	_, err := app.Pull(ctx, "", "")
	require.Error(t, err)
	_, err = app.Pull(ctx, "", "")
	require.Error(t, err)

	auth := m.presented()
	require.NotEmpty(t, auth)
	for _, a := range auth {
		require.Equal(t, basic("x-access-token", "ghs_installation"), a)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	require.Equal(t, 1, m.tokenCalls)
}

func TestGitHub_OtherHostsStayAnonymous(t *testing.T) {
	clearAuthEnv(t)
	m := newGHMock(t)

	// The remote host differs from the API host, so no credentials are sent.
	remote := strings.Replace(m.remoteURL(), "127.0.0.1", "localhost", 1)
	app, ctx := initWithRemote(t, ledgit.Options{
		GitHubToken:  "ghp_secret",
		GitHubAPIURL: "https://ghe.example.com/api/v3/",
	}, remote)

	require.Error(t, app.Push(ctx, "", ""))

	for _, a := range m.presented() {
		require.Empty(t, a)
	}
}
