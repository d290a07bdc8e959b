// Package session holds the repository a caller is working on. At most one
// repository is open at a time, and every operation on it runs under one
// lock so operations never interleave.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/MyCarrier-DevOps/go-ledgit/internal/git"
	"github.com/MyCarrier-DevOps/go-ledgit/internal/logging"
)

var errNoRepository = git.NewError(git.KindNoRepository, "", errors.New("open or initialize a repository first"))

// Session owns the currently open repository.
type Session struct {
	mu      sync.Mutex
	factory Factory
	log     *slog.Logger
	current *Handle
}

// New creates an empty session that opens repositories through factory.
func New(factory Factory) *Session {
	log := factory.Logger
	if log == nil {
		log = logging.Discard()
		factory.Logger = log
	}
	return &Session{factory: factory, log: log}
}

// Open makes the repository at path the open one, replacing any previous
// repository. On failure the previous repository stays open.
func (s *Session) Open(ctx context.Context, path string) (git.RepoInfo, error) {
	return s.activate(ctx, "open", path, s.factory.Open)
}

// Init creates a repository at path and makes it the open one.
func (s *Session) Init(ctx context.Context, path string) (git.RepoInfo, error) {
	return s.activate(ctx, "init", path, s.factory.Init)
}

func (s *Session) activate(ctx context.Context, op, path string, create func(string) (*Handle, error)) (git.RepoInfo, error) {
	if err := ctx.Err(); err != nil {
		return git.RepoInfo{}, contextError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	h, err := create(path)
	if err != nil {
		s.log.Debug(op+" failed", "op", op, "repo", path, "error", err)
		return git.RepoInfo{}, err
	}

	info, err := h.Store.Info()
	if err != nil {
		return git.RepoInfo{}, err
	}

	s.current = h
	s.log.Info(op, "op", op, "repo", info.Path, "branch", info.Branch)
	return info, nil
}

// Close forgets the open repository. Closing an empty session is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.log.Info("close", "op", "close", "repo", s.current.Store.Repository().WorkingDirectory())
	}
	s.current = nil
}

// IsOpen reports whether a repository is open.
func (s *Session) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Do runs fn against the open repository while holding the session lock.
// It fails with a KindNoRepository error when nothing is open.
func (s *Session) Do(ctx context.Context, fn func(*Handle) error) error {
	if err := ctx.Err(); err != nil {
		return contextError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return errNoRepository
	}
	return fn(s.current)
}

// contextError reports a cancelled or expired context as an engine error that
// still matches context.Canceled and context.DeadlineExceeded.
func contextError(err error) error {
	return git.NewError(git.KindEngine, "context", err)
}
