// Package git is the repository core of ledgit. It defines the data model
// (Commit, RepoStatus, MergeResult, ...), the Repository interface that is the
// seam to the underlying git engine, a go-git backed implementation of it, and
// RepositoryStore, which builds the user-facing version-control operations
// (status, commit, history, branches, merge, push/pull, conflict resolution)
// on top of that interface.
package git

import (
	"encoding/json"
	"strings"
	"time"
)

const (
	localBranchPrefix          = "refs/heads/"
	remoteTrackingBranchPrefix = "refs/remotes/"
)

// Commit represents a git commit.
type Commit struct {
	Sha     string
	Parents []string // len > 1 means merge commit
	When    time.Time
	Author  string
	Message string
}

// IsMerge returns true if the commit has more than one parent.
func (c Commit) IsMerge() bool {
	return len(c.Parents) > 1
}

// ShortSha returns the first 7 characters of the SHA.
func (c Commit) ShortSha() string {
	if len(c.Sha) >= 7 {
		return c.Sha[:7]
	}
	return c.Sha
}

// IsEmpty returns true if the commit has no SHA (zero value).
func (c Commit) IsEmpty() bool {
	return c.Sha == ""
}

// Subject returns the first line of the commit message.
func (c Commit) Subject() string {
	subject, _, _ := strings.Cut(c.Message, "\n")
	return strings.TrimSpace(subject)
}

type commitJSON struct {
	Hash      string   `json:"hash"`
	ShortHash string   `json:"short_hash"`
	Message   string   `json:"message"`
	Author    string   `json:"author"`
	Timestamp string   `json:"timestamp"`
	Parents   []string `json:"parents"`
}

// MarshalJSON renders the commit in the shape the editor front end consumes.
func (c Commit) MarshalJSON() ([]byte, error) {
	parents := c.Parents
	if parents == nil {
		parents = []string{}
	}
	return json.Marshal(commitJSON{
		Hash:      c.Sha,
		ShortHash: c.ShortSha(),
		Message:   c.Message,
		Author:    c.Author,
		Timestamp: c.When.UTC().Format(time.RFC3339),
		Parents:   parents,
	})
}

// ReferenceName represents a git reference with canonical and friendly forms.
type ReferenceName struct {
	Canonical     string // e.g., "refs/heads/main"
	Friendly      string // e.g., "main"
	WithoutRemote string // e.g., "main" (strips "origin/" from remote refs)
}

// NewReferenceName creates a ReferenceName from a canonical ref path.
func NewReferenceName(canonical string) ReferenceName {
	friendly := canonical
	withoutRemote := canonical

	switch {
	case strings.HasPrefix(canonical, localBranchPrefix):
		friendly = canonical[len(localBranchPrefix):]
		withoutRemote = friendly
	case strings.HasPrefix(canonical, remoteTrackingBranchPrefix):
		friendly = canonical[len(remoteTrackingBranchPrefix):]
		if idx := strings.Index(friendly, "/"); idx >= 0 {
			withoutRemote = friendly[idx+1:]
		} else {
			withoutRemote = friendly
		}
	}

	return ReferenceName{
		Canonical:     canonical,
		Friendly:      friendly,
		WithoutRemote: withoutRemote,
	}
}

// NewBranchReferenceName creates a ReferenceName for a local branch.
func NewBranchReferenceName(name string) ReferenceName {
	return NewReferenceName(localBranchPrefix + name)
}

// NewRemoteReferenceName creates a ReferenceName for a remote-tracking branch.
func NewRemoteReferenceName(remote, branch string) ReferenceName {
	return NewReferenceName(remoteTrackingBranchPrefix + remote + "/" + branch)
}

// IsBranch returns true if this reference is a local branch.
func (r ReferenceName) IsBranch() bool {
	return strings.HasPrefix(r.Canonical, localBranchPrefix)
}

// IsRemoteBranch returns true if this reference is a remote tracking branch.
func (r ReferenceName) IsRemoteBranch() bool {
	return strings.HasPrefix(r.Canonical, remoteTrackingBranchPrefix)
}

// Branch represents a git branch. Tip is nil for an unborn branch (HEAD of a
// repository with no commits yet).
type Branch struct {
	Name           ReferenceName
	Tip            *Commit
	IsRemote       bool
	IsDetachedHead bool
}

// FriendlyName returns the friendly name of the branch.
func (b Branch) FriendlyName() string {
	return b.Name.Friendly
}

// StatusCode mirrors the porcelain status letters.
type StatusCode byte

const (
	Unmodified         StatusCode = ' '
	Untracked          StatusCode = '?'
	Modified           StatusCode = 'M'
	Added              StatusCode = 'A'
	Deleted            StatusCode = 'D'
	Renamed            StatusCode = 'R'
	Copied             StatusCode = 'C'
	UpdatedButUnmerged StatusCode = 'U'
)

// FileStatus is the index and working-tree state of one path.
type FileStatus struct {
	Path     string
	Staging  StatusCode
	Worktree StatusCode
}

// Signature identifies the author of a commit.
type Signature struct {
	Name  string
	Email string
	When  time.Time
}

// CommitSpec describes a commit object to be written. Parents may be empty
// for a root commit.
type CommitSpec struct {
	Message string
	Tree    string
	Parents []string
	Author  Signature
}

// MergeLabels name the two sides in conflict markers.
type MergeLabels struct {
	Ours   string
	Theirs string
}

// MergeOutcome is what the engine reports after applying a three-way merge
// to the index and working tree.
type MergeOutcome struct {
	Conflicts []string
}

// Remote is a configured remote.
type Remote struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// RepoStatus summarizes the working tree of the open repository.
type RepoStatus struct {
	Branch     string   `json:"branch"`
	Clean      bool     `json:"clean"`
	Modified   []string `json:"modified"`
	Staged     []string `json:"staged"`
	Untracked  []string `json:"untracked"`
	Conflicted []string `json:"conflicted"`
}

// BranchList is the set of local branches plus the current one.
type BranchList struct {
	Branches []string `json:"branches"`
	Current  string   `json:"current"`
}

// MergeResult reports a merge. Conflicts is nil unless the merge stopped on
// conflicting paths.
type MergeResult struct {
	Success   bool     `json:"success"`
	Conflicts []string `json:"conflicts"`
}

// PullResult reports a pull. NewCommits counts commits reachable from the new
// HEAD that were not reachable from the HEAD before the pull.
type PullResult struct {
	Updated    bool     `json:"updated"`
	NewCommits int      `json:"new_commits"`
	Conflicts  []string `json:"conflicts"`
}

// RepoInfo identifies the open repository.
type RepoInfo struct {
	Path      string `json:"path"`
	Name      string `json:"name"`
	Branch    string `json:"branch"`
	RemoteURL string `json:"remote_url,omitempty"`
}
