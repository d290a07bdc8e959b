// Package github resolves credentials for https remotes hosted on GitHub or
// GitHub Enterprise, from a personal access token or a GitHub App
// installation.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/go-git/go-git/v5/plumbing/transport"
	gogithttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gh "github.com/google/go-github/v68/github"
	"golang.org/x/oauth2"
)

// installationUser is the username GitHub expects alongside an installation
// or personal access token over https.
const installationUser = "x-access-token"

// ClientConfig holds the credentials used for GitHub remotes.
type ClientConfig struct {
	// Token is a GitHub personal access token or GITHUB_TOKEN.
	// Falls back to GITHUB_TOKEN env var if empty.
	Token string

	// AppID is the GitHub App ID for app authentication.
	// Falls back to GH_APP_ID env var if zero.
	AppID int64

	// AppKeyPath is the path to a GitHub App private key PEM file.
	// Falls back to GH_APP_PRIVATE_KEY_PATH env var if empty.
	AppKeyPath string

	// BaseURL is a custom GitHub API base URL for GitHub Enterprise.
	// Falls back to GITHUB_API_URL env var if empty.
	BaseURL string
}

// AuthProvider hands out go-git credentials for GitHub remotes. Remotes on
// other hosts, and every remote when no credentials are configured, are
// accessed anonymously.
type AuthProvider struct {
	token      oauth2.TokenSource
	appID      int64
	appKeyPath string
	baseURL    string
	hosts      map[string]bool

	mu            sync.Mutex
	installations map[string]oauth2.TokenSource
}

// NewAuthProvider resolves cfg against the environment.
// Auth resolution order: Token → GITHUB_TOKEN env → App credentials → anonymous.
func NewAuthProvider(cfg ClientConfig) (*AuthProvider, error) {
	p := &AuthProvider{
		baseURL:       ResolveBaseURL(cfg.BaseURL),
		hosts:         map[string]bool{"github.com": true},
		installations: make(map[string]oauth2.TokenSource),
	}

	if p.baseURL != "" {
		u, err := url.Parse(p.baseURL)
		if err != nil || u.Host == "" {
			return nil, fmt.Errorf("invalid GitHub API URL %q", p.baseURL)
		}
		p.hosts[u.Host] = true
		p.hosts[strings.TrimPrefix(u.Host, "api.")] = true
	}

	if token := resolveString(cfg.Token, "GITHUB_TOKEN"); token != "" {
		p.token = oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		return p, nil
	}

	appID := cfg.AppID
	if appID == 0 {
		if s := os.Getenv("GH_APP_ID"); s != "" {
			if v, err := strconv.ParseInt(s, 10, 64); err == nil {
				appID = v
			}
		}
	}
	keyPath := resolveString(cfg.AppKeyPath, "GH_APP_PRIVATE_KEY_PATH")
	if appID != 0 && keyPath != "" {
		p.appID = appID
		p.appKeyPath = keyPath
	}

	return p, nil
}

// HasCredentials reports whether a token or app credentials were resolved.
func (p *AuthProvider) HasCredentials() bool {
	return p.token != nil || p.appID != 0
}

// AuthMethod returns basic-auth credentials for a GitHub https remote, or nil
// when the remote should be accessed anonymously.
func (p *AuthProvider) AuthMethod(ctx context.Context, remoteURL string) (transport.AuthMethod, error) {
	if !p.HasCredentials() {
		return nil, nil
	}

	u, err := url.Parse(remoteURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || !p.hosts[u.Host] {
		return nil, nil
	}

	src := p.token
	if src == nil {
		owner, repo, err := parseOwnerRepo(u.Path)
		if err != nil {
			return nil, err
		}
		if src, err = p.installationSource(ctx, owner, repo); err != nil {
			return nil, err
		}
	}

	tok, err := src.Token()
	if err != nil {
		return nil, fmt.Errorf("obtaining GitHub token: %w", err)
	}
	return &gogithttp.BasicAuth{Username: installationUser, Password: tok.AccessToken}, nil
}

// installationSource returns a cached token source for the app installation
// that covers owner/repo.
func (p *AuthProvider) installationSource(ctx context.Context, owner, repo string) (oauth2.TokenSource, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if src, ok := p.installations[owner]; ok {
		return src, nil
	}

	// Create an app-level transport to discover the installation ID.
	appTransport, err := ghinstallation.NewAppsTransportKeyFromFile(http.DefaultTransport, p.appID, p.appKeyPath)
	if err != nil {
		return nil, fmt.Errorf("creating GitHub App transport: %w", err)
	}
	if p.baseURL != "" {
		appTransport.BaseURL = p.baseURL
	}

	appClient := gh.NewClient(&http.Client{Transport: appTransport})
	if p.baseURL != "" {
		appClient, err = appClient.WithEnterpriseURLs(p.baseURL, p.baseURL)
		if err != nil {
			return nil, fmt.Errorf("setting enterprise URL: %w", err)
		}
	}

	installationID, err := findInstallation(ctx, appClient, owner, repo)
	if err != nil {
		return nil, err
	}

	install := ghinstallation.NewFromAppsTransport(appTransport, installationID)
	src := oauth2.ReuseTokenSource(nil, &installationTokenSource{transport: install})
	p.installations[owner] = src
	return src, nil
}

// installationTokenSource adapts an installation transport to oauth2.
type installationTokenSource struct {
	transport *ghinstallation.Transport
}

func (s *installationTokenSource) Token() (*oauth2.Token, error) {
	// oauth2.TokenSource carries no context.
	token, err := s.transport.Token(context.Background())
	if err != nil {
		return nil, err
	}
	_, refreshAt, err := s.transport.Expiry()
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{AccessToken: token, Expiry: refreshAt}, nil
}

// findInstallation finds the GitHub App installation for a repository,
// falling back to the installation for its owner.
func findInstallation(ctx context.Context, client *gh.Client, owner, repo string) (int64, error) {
	inst, _, err := client.Apps.FindRepositoryInstallation(ctx, owner, repo)
	if err == nil {
		return inst.GetID(), nil
	}
	if !IsNotFoundError(err) {
		return 0, fmt.Errorf("finding GitHub App installation for %s/%s: %w", owner, repo, err)
	}

	opts := &gh.ListOptions{PerPage: 100}
	for {
		installations, resp, err := client.Apps.ListInstallations(ctx, opts)
		if err != nil {
			return 0, fmt.Errorf("listing GitHub App installations: %w", err)
		}

		for _, inst := range installations {
			if inst.GetAccount().GetLogin() == owner {
				return inst.GetID(), nil
			}
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return 0, fmt.Errorf("no GitHub App installation found for owner %q", owner)
}

// parseOwnerRepo extracts owner and repository from a remote URL path such as
// "/acme/books.git".
func parseOwnerRepo(p string) (string, string, error) {
	parts := strings.Split(strings.Trim(p, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("cannot determine owner/repo from remote path %q", p)
	}
	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}

// IsNotFoundError returns true if the error represents an HTTP 404 response
// from the GitHub API.
func IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) {
		return ghErr.Response != nil && ghErr.Response.StatusCode == 404
	}
	return false
}

// resolveString returns the flag value if non-empty, otherwise the env var value.
func resolveString(flag, envKey string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(envKey)
}

// ResolveBaseURL resolves the GitHub API base URL from the flag value or
// the GITHUB_API_URL environment variable. Returns empty string for github.com.
func ResolveBaseURL(flagValue string) string {
	return resolveString(flagValue, "GITHUB_API_URL")
}
