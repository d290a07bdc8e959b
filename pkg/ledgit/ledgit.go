// Package ledgit provides the public Go API for versioning a directory of
// tabular data files with git: status, commits, history, branches, merges
// with conflicts reported as data, and push/pull against remotes.
//
// Basic usage:
//
//	app, err := ledgit.New(ledgit.Options{})
//	info, err := app.Init(ctx, "/data/books")
//	c, err := app.Commit(ctx, "Add prices", []string{"prices.csv"})
//	res, err := app.Merge(ctx, "feature")
//	if !res.Success {
//	    // edit res.Conflicts, then
//	    _, err = app.ResolveConflicts(ctx, res.Conflicts)
//	}
package ledgit

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/MyCarrier-DevOps/go-ledgit/internal/config"
	"github.com/MyCarrier-DevOps/go-ledgit/internal/git"
	"github.com/MyCarrier-DevOps/go-ledgit/internal/logging"
	"github.com/MyCarrier-DevOps/go-ledgit/internal/session"
)

// Result types returned by App.
type (
	Commit      = git.Commit
	RepoStatus  = git.RepoStatus
	RepoInfo    = git.RepoInfo
	BranchList  = git.BranchList
	MergeResult = git.MergeResult
	PullResult  = git.PullResult
	Remote      = git.Remote
	Error       = git.Error
	ErrorKind   = git.ErrorKind
)

// Error kinds, for use with errors.Is.
var (
	ErrEngine        = git.ErrEngine
	ErrNotFound      = git.ErrNotFound
	ErrInvalidData   = git.ErrInvalidData
	ErrNoRepository  = git.ErrNoRepository
	ErrAlreadyExists = git.ErrAlreadyExists
	ErrNotUTF8       = git.ErrNotUTF8
)

// Options configures an App.
type Options struct {
	// ConfigPath is an explicit ledgit YAML config file. If empty, each
	// repository's .ledgit.yml is discovered in its root.
	ConfigPath string

	// AuthorName and AuthorEmail override the configured commit signature.
	AuthorName  string
	AuthorEmail string

	// DefaultRemote overrides the remote used when push/pull name none.
	DefaultRemote string

	// LogLimit overrides the default history page size.
	LogLimit int

	// GitHubToken authenticates https push/pull to GitHub hosts. Falls back
	// to the GITHUB_TOKEN env var.
	GitHubToken string

	// GitHubAppID and GitHubAppKeyPath select GitHub App authentication.
	GitHubAppID      int64
	GitHubAppKeyPath string

	// GitHubAPIURL is the API base URL for GitHub Enterprise.
	GitHubAPIURL string

	// Verbosity is one of quiet, error, warn, info, debug. Empty means quiet.
	Verbosity string

	// LogFormat is "text" or "json". Empty means text.
	LogFormat string

	// LogWriter receives log records. Defaults to io.Discard.
	LogWriter io.Writer

	// Clock supplies commit timestamps. Defaults to time.Now.
	Clock func() time.Time
}

// App is a handle on at most one open repository. It is safe for concurrent
// use; operations are serialized.
type App struct {
	session *session.Session
}

// New creates an App with no repository open.
func New(opts Options) (*App, error) {
	logger, err := newLogger(opts)
	if err != nil {
		return nil, err
	}

	return &App{session: session.New(session.Factory{
		ConfigPath: opts.ConfigPath,
		Overrides:  opts.overrides(),
		Logger:     logger,
		Clock:      opts.Clock,
	})}, nil
}

func newLogger(opts Options) (*slog.Logger, error) {
	verbosity := opts.Verbosity
	if verbosity == "" {
		verbosity = logging.VerbosityQuiet
	}
	w := opts.LogWriter
	if w == nil {
		w = io.Discard
	}
	format := logging.FormatText
	if opts.LogFormat != "" {
		format = logging.Format(opts.LogFormat)
	}
	return logging.New(w, verbosity, format)
}

func (o Options) overrides() *config.Config {
	cfg := &config.Config{}
	if o.AuthorName != "" {
		cfg.Author.Name = &o.AuthorName
	}
	if o.AuthorEmail != "" {
		cfg.Author.Email = &o.AuthorEmail
	}
	if o.DefaultRemote != "" {
		cfg.DefaultRemote = &o.DefaultRemote
	}
	if o.LogLimit > 0 {
		cfg.LogLimit = &o.LogLimit
	}
	if o.GitHubToken != "" {
		cfg.GitHub.Token = &o.GitHubToken
	}
	if o.GitHubAppID != 0 {
		cfg.GitHub.AppID = &o.GitHubAppID
	}
	if o.GitHubAppKeyPath != "" {
		cfg.GitHub.AppKeyPath = &o.GitHubAppKeyPath
	}
	if o.GitHubAPIURL != "" {
		cfg.GitHub.APIURL = &o.GitHubAPIURL
	}
	return cfg
}

// --- Repository lifecycle ---

// Open makes the existing repository at path the open one.
func (a *App) Open(ctx context.Context, path string) (RepoInfo, error) {
	return a.session.Open(ctx, path)
}

// Init creates a repository at path with one initial commit and opens it.
func (a *App) Init(ctx context.Context, path string) (RepoInfo, error) {
	return a.session.Init(ctx, path)
}

// Close closes the open repository, if any.
func (a *App) Close() {
	a.session.Close()
}

// IsOpen reports whether a repository is open.
func (a *App) IsOpen() bool {
	return a.session.IsOpen()
}

// Info identifies the open repository.
func (a *App) Info(ctx context.Context) (RepoInfo, error) {
	var info RepoInfo
	err := a.session.Do(ctx, func(h *session.Handle) error {
		var err error
		info, err = h.Store.Info()
		return err
	})
	return info, err
}

// --- Working tree ---

// Status reports modified, staged, untracked, and conflicted paths.
func (a *App) Status(ctx context.Context) (RepoStatus, error) {
	var st RepoStatus
	err := a.session.Do(ctx, func(h *session.Handle) error {
		var err error
		st, err = h.Store.Status()
		return err
	})
	return st, err
}

// Commit records exactly the listed files on the current branch.
func (a *App) Commit(ctx context.Context, message string, files []string) (Commit, error) {
	return a.commit(ctx, git.CommitOptions{Message: message, Files: files})
}

// CommitWithSuggestedMessage commits files, generating a message such as
// "Add a.csv; Update b.csv" when message is blank.
func (a *App) CommitWithSuggestedMessage(ctx context.Context, message string, files []string) (Commit, error) {
	return a.commit(ctx, git.CommitOptions{Message: message, Files: files, AutoMessage: true})
}

func (a *App) commit(ctx context.Context, opts git.CommitOptions) (Commit, error) {
	var c Commit
	err := a.session.Do(ctx, func(h *session.Handle) error {
		var err error
		c, err = h.Store.Commit(opts)
		return err
	})
	return c, err
}

// SuggestCommitMessage summarizes the pending changes to files, or to every
// changed path when files is empty.
func (a *App) SuggestCommitMessage(ctx context.Context, files []string) (string, error) {
	var msg string
	err := a.session.Do(ctx, func(h *session.Handle) error {
		var err error
		msg, err = h.Store.SuggestCommitMessage(files)
		return err
	})
	return msg, err
}

// --- History ---

// LogOptions selects a page of history. Zero Limit means the configured
// page size.
type LogOptions = git.LogOptions

// Log returns commits reachable from HEAD, newest first.
func (a *App) Log(ctx context.Context, opts LogOptions) ([]Commit, error) {
	var commits []Commit
	err := a.session.Do(ctx, func(h *session.Handle) error {
		var err error
		commits, err = h.Store.Log(opts)
		return err
	})
	return commits, err
}

// ShowFileAtCommit returns the text of path as recorded in commit sha.
func (a *App) ShowFileAtCommit(ctx context.Context, sha, path string) (string, error) {
	var content string
	err := a.session.Do(ctx, func(h *session.Handle) error {
		var err error
		content, err = h.Store.ShowFile(sha, path)
		return err
	})
	return content, err
}

// --- Branches ---

// Branches lists local branches and the current one.
func (a *App) Branches(ctx context.Context) (BranchList, error) {
	var bl BranchList
	err := a.session.Do(ctx, func(h *session.Handle) error {
		var err error
		bl, err = h.Store.Branches()
		return err
	})
	return bl, err
}

// CreateBranch creates name at from, or at HEAD when from is empty.
func (a *App) CreateBranch(ctx context.Context, name, from string) error {
	return a.session.Do(ctx, func(h *session.Handle) error {
		return h.Store.CreateBranch(name, from)
	})
}

// Checkout switches to branch, updating the working tree.
func (a *App) Checkout(ctx context.Context, branch string) error {
	return a.session.Do(ctx, func(h *session.Handle) error {
		return h.Store.Checkout(branch)
	})
}

// --- Merging ---

// Merge integrates source into the current branch. Conflicts are returned in
// the result with Success false, not as an error.
func (a *App) Merge(ctx context.Context, source string) (MergeResult, error) {
	var res MergeResult
	err := a.session.Do(ctx, func(h *session.Handle) error {
		var err error
		res, err = h.Store.Merge(source)
		return err
	})
	return res, err
}

// ResolveConflicts stages the resolved files and concludes the merge.
func (a *App) ResolveConflicts(ctx context.Context, files []string) (Commit, error) {
	var c Commit
	err := a.session.Do(ctx, func(h *session.Handle) error {
		var err error
		c, err = h.Store.ResolveConflicts(files)
		return err
	})
	return c, err
}

// --- Remotes ---

// Remotes lists configured remotes.
func (a *App) Remotes(ctx context.Context) ([]Remote, error) {
	var remotes []Remote
	err := a.session.Do(ctx, func(h *session.Handle) error {
		var err error
		remotes, err = h.Store.Remotes()
		return err
	})
	return remotes, err
}

// AddRemote configures a new remote.
func (a *App) AddRemote(ctx context.Context, name, url string) error {
	return a.session.Do(ctx, func(h *session.Handle) error {
		return h.Store.AddRemote(name, url)
	})
}

// Push sends branch to remote. Empty values mean the default remote and the
// current branch.
func (a *App) Push(ctx context.Context, remote, branch string) error {
	return a.session.Do(ctx, func(h *session.Handle) error {
		return h.Store.Push(ctx, remote, branch)
	})
}

// Pull fetches remote/branch and integrates it into the current branch.
func (a *App) Pull(ctx context.Context, remote, branch string) (PullResult, error) {
	var res PullResult
	err := a.session.Do(ctx, func(h *session.Handle) error {
		var err error
		res, err = h.Store.Pull(ctx, remote, branch)
		return err
	})
	return res, err
}
