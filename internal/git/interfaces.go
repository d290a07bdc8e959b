package git

import (
	"context"
	"errors"
)

// ErrStop can be returned from a Log callback to end the walk early.
var ErrStop = errors.New("stop iteration")

// Repository provides low-level git operations.
// This is the key abstraction point for testing and backend swapping: the
// RepositoryStore never touches the engine except through this interface.
type Repository interface {
	// Path returns the path to the .git directory.
	Path() string

	// WorkingDirectory returns the path to the working directory.
	WorkingDirectory() string

	// Head returns the branch HEAD points at. Tip is nil when the branch is
	// unborn.
	Head() (Branch, error)

	// UpdateHead moves the ref HEAD resolves through to sha.
	UpdateHead(sha string) error

	// Branches returns the local branches.
	Branches() ([]Branch, error)

	// ResolveBranch returns the tip of a local branch.
	ResolveBranch(name string) (Commit, error)

	// ResolveRemoteBranch returns the tip of a remote-tracking branch.
	ResolveRemoteBranch(remote, branch string) (Commit, error)

	// CommitFromSha returns the commit with the given SHA.
	CommitFromSha(sha string) (Commit, error)

	// CreateBranch creates a local branch pointing at sha.
	CreateBranch(name, sha string) error

	// Checkout switches the working tree, index, and HEAD to a local branch.
	// It fails when tracked files have uncommitted modifications or when the
	// branch tracks a path that exists untracked in the working tree.
	Checkout(branch string) error

	// FastForward moves the current branch to sha and updates the index and
	// working tree to match. It fails without changes when sha adds a path
	// that exists untracked in the working tree.
	FastForward(sha string) error

	// Status returns the index and working-tree state of every changed path.
	Status() ([]FileStatus, error)

	// StagePath records the working-tree content of path in the index,
	// replacing any conflict stages.
	StagePath(path string) error

	// UnstagePath removes path from the index at every stage.
	UnstagePath(path string) error

	// ConflictedPaths returns paths with unresolved index stages.
	ConflictedPaths() ([]string, error)

	// WriteTree writes the index as a tree object and returns its SHA.
	WriteTree() (string, error)

	// CreateCommit writes a commit object without moving any ref.
	CreateCommit(spec CommitSpec) (string, error)

	// Log walks the commits reachable from sha, newest committer time first.
	// The callback may return ErrStop to end the walk.
	Log(sha string, fn func(Commit) error) error

	// TouchesPath reports whether the diff between the commit and its first
	// parent (or the empty tree) changes path.
	TouchesPath(c Commit, path string) (bool, error)

	// IsAncestor reports whether ancestor is reachable from descendant. A
	// commit is its own ancestor.
	IsAncestor(ancestor, descendant string) (bool, error)

	// FindMergeBase returns the best common ancestor of two commits, or ""
	// when the histories are unrelated.
	FindMergeBase(sha1, sha2 string) (string, error)

	// Merge applies a three-way merge of theirs into the current branch to
	// the index and working tree. Conflicting paths receive markers in the
	// working tree and stages 1/2/3 in the index; MERGE_HEAD records theirs.
	// A path that would need a file where the result has a directory (or the
	// reverse) is a conflict. Every path is planned before any is written, so
	// an untracked file in the way fails the merge with nothing applied.
	Merge(theirs string, labels MergeLabels) (MergeOutcome, error)

	// MergeHead returns the SHA recorded in MERGE_HEAD, or "".
	MergeHead() (string, error)

	// CleanupState removes MERGE_HEAD and ORIG_HEAD.
	CleanupState() error

	// ReadFile returns the content of path as recorded in a commit.
	ReadFile(sha, path string) ([]byte, error)

	// Signature returns the author configured in git config, if any.
	Signature() (Signature, bool)

	// Remotes returns the configured remotes.
	Remotes() ([]Remote, error)

	// AddRemote configures a new remote.
	AddRemote(name, url string) error

	// Fetch updates refs/remotes/<remote>/<branch> from the remote.
	Fetch(ctx context.Context, remote, branch string) error

	// Push updates refs/heads/<branch> on the remote from the local branch.
	Push(ctx context.Context, remote, branch string) error
}
