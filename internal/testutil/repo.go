// Package testutil provides helpers for creating temporary git repositories
// for tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	gogitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Epoch is the first timestamp handed out by a TestRepo clock.
var Epoch = time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)

// Clock is a deterministic clock that advances one minute per call.
type Clock struct {
	now time.Time
}

// NewClock returns a clock starting at Epoch.
func NewClock() *Clock {
	return &Clock{now: Epoch}
}

// Now advances the clock and returns the new time.
func (c *Clock) Now() time.Time {
	c.now = c.now.Add(time.Minute)
	return c.now
}

// TestRepo is a builder for creating temporary git repositories with
// controlled commit history and branches.
type TestRepo struct {
	t     testing.TB
	path  string
	repo  *gogit.Repository
	clock *Clock
}

// NewTestRepo creates and initializes a new git repository on branch main in
// a temporary directory.
func NewTestRepo(t testing.TB) *TestRepo {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}

	return &TestRepo{
		t:     t,
		path:  dir,
		repo:  repo,
		clock: NewClock(),
	}
}

// NewBareRepo creates an empty bare repository usable as a remote and
// returns its path.
func NewBareRepo(t testing.TB) string {
	t.Helper()
	dir := t.TempDir()
	_, err := gogit.PlainInitWithOptions(dir, &gogit.PlainInitOptions{
		Bare:        true,
		InitOptions: gogit.InitOptions{DefaultBranch: plumbing.NewBranchReferenceName("main")},
	})
	if err != nil {
		t.Fatalf("failed to init bare repo: %v", err)
	}
	return dir
}

// Clone clones url into a new temporary directory.
func Clone(t testing.TB, url string) *TestRepo {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainClone(dir, false, &gogit.CloneOptions{URL: url})
	if err != nil {
		t.Fatalf("cloning %s: %v", url, err)
	}

	return &TestRepo{t: t, path: dir, repo: repo, clock: NewClock()}
}

// Path returns the repository root directory.
func (r *TestRepo) Path() string {
	return r.path
}

// Clock returns the repository's deterministic clock so callers can share it.
func (r *TestRepo) Clock() *Clock {
	return r.clock
}

// WriteFile writes content to a repository-relative path, creating parents.
func (r *TestRepo) WriteFile(name, content string) {
	r.t.Helper()
	full := filepath.Join(r.path, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		r.t.Fatalf("creating directory for %s: %v", name, err)
	}
	if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
		r.t.Fatalf("writing %s: %v", name, err)
	}
}

// ReadFile returns the working-tree content of a repository-relative path.
func (r *TestRepo) ReadFile(name string) string {
	r.t.Helper()
	data, err := os.ReadFile(filepath.Join(r.path, filepath.FromSlash(name)))
	if err != nil {
		r.t.Fatalf("reading %s: %v", name, err)
	}
	return string(data)
}

// Exists reports whether a repository-relative path exists in the working tree.
func (r *TestRepo) Exists(name string) bool {
	_, err := os.Stat(filepath.Join(r.path, filepath.FromSlash(name)))
	return err == nil
}

// RemoveFile deletes a repository-relative path from the working tree.
func (r *TestRepo) RemoveFile(name string) {
	r.t.Helper()
	if err := os.Remove(filepath.Join(r.path, filepath.FromSlash(name))); err != nil {
		r.t.Fatalf("removing %s: %v", name, err)
	}
}

// CommitFiles writes the given files, stages them, and commits. Returns the
// commit SHA.
func (r *TestRepo) CommitFiles(message string, files map[string]string) string {
	r.t.Helper()

	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("getting worktree: %v", err)
	}

	for name, content := range files {
		r.WriteFile(name, content)
		if _, err := wt.Add(name); err != nil {
			r.t.Fatalf("staging %s: %v", name, err)
		}
	}

	return r.commit(wt, message)
}

// CommitRemovals deletes the given files, stages the removals, and commits.
// Returns the commit SHA.
func (r *TestRepo) CommitRemovals(message string, names ...string) string {
	r.t.Helper()

	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("getting worktree: %v", err)
	}

	for _, name := range names {
		if _, err := wt.Remove(name); err != nil {
			r.t.Fatalf("removing %s: %v", name, err)
		}
	}

	return r.commit(wt, message)
}

// AddCommit creates a new commit with the given message. A file named after
// the commit time is created to ensure each commit has changes.
// Returns the commit SHA.
func (r *TestRepo) AddCommit(message string) string {
	r.t.Helper()
	name := "file-" + r.clock.now.Add(time.Minute).Format("150405") + ".txt"
	return r.CommitFiles(message, map[string]string{name: message})
}

func (r *TestRepo) commit(wt *gogit.Worktree, message string) string {
	r.t.Helper()
	hash, err := wt.Commit(message, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  "Test",
			Email: "test@example.com",
			When:  r.clock.Now(),
		},
		AllowEmptyCommits: true,
	})
	if err != nil {
		r.t.Fatalf("committing: %v", err)
	}
	return hash.String()
}

// CreateBranch creates a new branch pointing at the given SHA.
func (r *TestRepo) CreateBranch(name, sha string) {
	r.t.Helper()

	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), plumbing.NewHash(sha))
	if err := r.repo.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("creating branch %s: %v", name, err)
	}
}

// Checkout switches HEAD to the given branch.
func (r *TestRepo) Checkout(branch string) {
	r.t.Helper()
	wt, err := r.repo.Worktree()
	if err != nil {
		r.t.Fatalf("getting worktree: %v", err)
	}

	err = wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
	})
	if err != nil {
		r.t.Fatalf("checking out %s: %v", branch, err)
	}
}

// AddRemote configures a remote.
func (r *TestRepo) AddRemote(name, url string) {
	r.t.Helper()
	if _, err := r.repo.CreateRemote(&gogitconfig.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
		r.t.Fatalf("adding remote %s: %v", name, err)
	}
}

// Push pushes a local branch to the same-named branch on the remote.
func (r *TestRepo) Push(remote, branch string) {
	r.t.Helper()
	spec := gogitconfig.RefSpec("refs/heads/" + branch + ":refs/heads/" + branch)
	err := r.repo.Push(&gogit.PushOptions{RemoteName: remote, RefSpecs: []gogitconfig.RefSpec{spec}})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		r.t.Fatalf("pushing %s to %s: %v", branch, remote, err)
	}
}

// WriteConfig writes a .ledgit.yml file in the repo root.
func (r *TestRepo) WriteConfig(content string) {
	r.t.Helper()
	r.WriteFile(".ledgit.yml", content)
}

// HeadSha returns the current HEAD commit SHA.
func (r *TestRepo) HeadSha() string {
	r.t.Helper()
	head, err := r.repo.Head()
	if err != nil {
		r.t.Fatalf("getting HEAD: %v", err)
	}
	return head.Hash().String()
}

// BranchSha returns the tip of a local branch.
func (r *TestRepo) BranchSha(name string) string {
	r.t.Helper()
	ref, err := r.repo.Reference(plumbing.NewBranchReferenceName(name), true)
	if err != nil {
		r.t.Fatalf("resolving %s: %v", name, err)
	}
	return ref.Hash().String()
}

// CommitCount returns the number of commits reachable from HEAD.
func (r *TestRepo) CommitCount() int {
	r.t.Helper()
	iter, err := r.repo.Log(&gogit.LogOptions{})
	if err != nil {
		r.t.Fatalf("getting log: %v", err)
	}
	n := 0
	_ = iter.ForEach(func(*object.Commit) error {
		n++
		return nil
	})
	return n
}

// IsolateGitConfig points HOME and XDG_CONFIG_HOME at empty directories so
// the developer's global git identity does not leak into commits.
func IsolateGitConfig(t testing.TB) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
}
