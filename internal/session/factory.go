package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MyCarrier-DevOps/go-ledgit/internal/config"
	"github.com/MyCarrier-DevOps/go-ledgit/internal/git"
	"github.com/MyCarrier-DevOps/go-ledgit/internal/github"
)

// AttributesFile is the bootstrap file written by Init.
const AttributesFile = ".gitattributes"

// Factory opens repositories and wires each one with its configuration,
// credentials, and logger.
type Factory struct {
	// ConfigPath names an explicit config file. Empty means discover one in
	// the repository root.
	ConfigPath string

	// Overrides are layered over the file configuration.
	Overrides *config.Config

	Logger *slog.Logger
	Clock  func() time.Time
}

// Handle is an open repository together with its effective configuration.
type Handle struct {
	Store  *git.RepositoryStore
	Config *config.Config
}

// Open opens the repository at path.
func (f Factory) Open(path string) (*Handle, error) {
	root, err := absPath(path)
	if err != nil {
		return nil, err
	}

	cfg, auth, err := f.resolve(root)
	if err != nil {
		return nil, err
	}

	repo, err := git.Open(root, git.Options{Auth: auth})
	if err != nil {
		return nil, err
	}

	return &Handle{Store: f.newStore(repo, cfg), Config: cfg}, nil
}

// Init creates a repository at path, writes the attributes file declaring
// diff drivers for delimited text, and records it as the initial commit.
func (f Factory) Init(path string) (*Handle, error) {
	root, err := absPath(path)
	if err != nil {
		return nil, err
	}

	cfg, auth, err := f.resolve(root)
	if err != nil {
		return nil, err
	}

	repo, err := git.Init(root, git.Options{Auth: auth})
	if err != nil {
		return nil, err
	}

	attrs := filepath.Join(root, AttributesFile)
	if err := os.WriteFile(attrs, []byte(cfg.GitAttributes()), 0o644); err != nil {
		return nil, git.NewError(git.KindEngine, AttributesFile, fmt.Errorf("writing attributes: %w", err))
	}

	store := f.newStore(repo, cfg)
	if _, err := store.Commit(git.CommitOptions{
		Message: git.InitialCommitMessage,
		Files:   []string{AttributesFile},
	}); err != nil {
		return nil, err
	}

	return &Handle{Store: store, Config: cfg}, nil
}

// resolve loads the configuration for root and the credentials it names.
func (f Factory) resolve(root string) (*config.Config, git.AuthProvider, error) {
	cfg, err := config.Load(root, f.ConfigPath, f.Overrides)
	if err != nil {
		return nil, nil, git.NewError(git.KindInvalidData, "configuration", err)
	}

	provider, err := github.NewAuthProvider(github.ClientConfig{
		Token:      deref(cfg.GitHub.Token),
		AppID:      derefInt64(cfg.GitHub.AppID),
		AppKeyPath: deref(cfg.GitHub.AppKeyPath),
		BaseURL:    deref(cfg.GitHub.APIURL),
	})
	if err != nil {
		return nil, nil, git.NewError(git.KindInvalidData, "github", err)
	}
	if !provider.HasCredentials() {
		return cfg, nil, nil
	}
	return cfg, provider, nil
}

func (f Factory) newStore(repo git.Repository, cfg *config.Config) *git.RepositoryStore {
	return git.NewRepositoryStore(repo, git.StoreOptions{
		Logger:         f.Logger,
		Clock:          f.Clock,
		Author:         git.Signature{Name: cfg.AuthorName(), Email: cfg.AuthorEmail()},
		AuthorOverride: f.overridesAuthor(),
		DefaultRemote:  cfg.Remote(),
		LogLimit:       cfg.Limit(),
		IgnorePaths:    cfg.Ignore.Paths,
	})
}

// overridesAuthor reports whether the caller named an author explicitly, in
// which case it wins over git config.
func (f Factory) overridesAuthor() bool {
	return f.Overrides != nil && (f.Overrides.Author.Name != nil || f.Overrides.Author.Email != nil)
}

func absPath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", git.NewError(git.KindInvalidData, "path", errors.New("repository path is empty"))
	}
	root, err := filepath.Abs(path)
	if err != nil {
		return "", git.NewError(git.KindInvalidData, path, err)
	}
	return root, nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func derefInt64(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}
