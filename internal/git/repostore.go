package git

import (
	"errors"
	"log/slog"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/MyCarrier-DevOps/go-ledgit/internal/logging"
	"github.com/MyCarrier-DevOps/go-ledgit/internal/textmerge"
)

// DefaultLogLimit is the page size used when a history query gives none.
const DefaultLogLimit = 50

// StoreOptions configures a RepositoryStore. Zero values select defaults.
type StoreOptions struct {
	Logger *slog.Logger
	Clock  func() time.Time
	// Author signs commits when git config has no user.name/user.email, and
	// always when AuthorOverride is set.
	Author         Signature
	AuthorOverride bool
	DefaultRemote  string
	LogLimit       int
	// IgnorePaths are glob patterns hidden from status.
	IgnorePaths []string
}

// RepositoryStore implements the version-control operations of an open
// repository on top of a Repository. It is not safe for concurrent use; the
// session serializes access.
type RepositoryStore struct {
	repo          Repository
	log           *slog.Logger
	now           func() time.Time
	author        Signature
	forceAuthor   bool
	defaultRemote string
	logLimit      int
	ignore        []string
}

// NewRepositoryStore creates a new RepositoryStore wrapping the given Repository.
func NewRepositoryStore(repo Repository, opts StoreOptions) *RepositoryStore {
	s := &RepositoryStore{
		repo:          repo,
		log:           opts.Logger,
		now:           opts.Clock,
		author:        opts.Author,
		forceAuthor:   opts.AuthorOverride,
		defaultRemote: opts.DefaultRemote,
		logLimit:      opts.LogLimit,
		ignore:        opts.IgnorePaths,
	}
	if s.log == nil {
		s.log = logging.Discard()
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.author.Name == "" || s.author.Email == "" {
		s.author = Signature{Name: "Ledgit", Email: "ledgit@local"}
	}
	if s.defaultRemote == "" {
		s.defaultRemote = "origin"
	}
	if s.logLimit <= 0 {
		s.logLimit = DefaultLogLimit
	}
	return s
}

// Repository returns the underlying engine.
func (s *RepositoryStore) Repository() Repository {
	return s.repo
}

// --- Repository info ---

// Info identifies the open repository.
func (s *RepositoryStore) Info() (RepoInfo, error) {
	head, err := s.repo.Head()
	if err != nil {
		return RepoInfo{}, engineError("HEAD", err)
	}

	root := s.repo.WorkingDirectory()
	info := RepoInfo{
		Path:   root,
		Name:   filepath.Base(root),
		Branch: branchLabel(head),
	}

	remotes, err := s.repo.Remotes()
	if err != nil {
		return RepoInfo{}, engineError("remotes", err)
	}
	for _, r := range remotes {
		if r.Name == s.defaultRemote {
			info.RemoteURL = r.URL
		}
	}

	return info, nil
}

// --- Status ---

// Status classifies every changed path as modified, staged, untracked, or
// conflicted. Clean is true iff all of those sets are empty.
func (s *RepositoryStore) Status() (RepoStatus, error) {
	head, err := s.repo.Head()
	if err != nil {
		return RepoStatus{}, engineError("HEAD", err)
	}

	files, err := s.repo.Status()
	if err != nil {
		return RepoStatus{}, engineError("status", err)
	}

	conflicted, err := s.repo.ConflictedPaths()
	if err != nil {
		return RepoStatus{}, engineError("index", err)
	}
	isConflicted := make(map[string]bool, len(conflicted))
	for _, p := range conflicted {
		isConflicted[p] = true
	}

	st := RepoStatus{
		Branch:     branchLabel(head),
		Modified:   []string{},
		Staged:     []string{},
		Untracked:  []string{},
		Conflicted: []string{},
	}

	for _, f := range files {
		if s.ignored(f.Path) || isConflicted[f.Path] {
			continue
		}
		if f.Worktree == Untracked {
			st.Untracked = append(st.Untracked, f.Path)
			continue
		}
		switch f.Worktree {
		case Modified, Deleted, Renamed, UpdatedButUnmerged:
			st.Modified = append(st.Modified, f.Path)
		}
		switch f.Staging {
		case Added, Modified, Deleted, Renamed, Copied:
			st.Staged = append(st.Staged, f.Path)
		}
	}

	for _, p := range conflicted {
		st.Conflicted = append(st.Conflicted, p)
		st.Modified = append(st.Modified, p)
	}
	sort.Strings(st.Modified)

	st.Clean = len(st.Modified) == 0 && len(st.Staged) == 0 && len(st.Untracked) == 0
	return st, nil
}

func (s *RepositoryStore) ignored(p string) bool {
	for _, pattern := range s.ignore {
		if ok, _ := path.Match(pattern, p); ok {
			return true
		}
		if ok, _ := path.Match(pattern, path.Base(p)); ok {
			return true
		}
		if strings.HasPrefix(p, strings.TrimSuffix(pattern, "/")+"/") {
			return true
		}
	}
	return false
}

// --- Commit ---

// CommitOptions describes a commit request.
type CommitOptions struct {
	Message string
	Files   []string
	// AutoMessage generates a summary message when Message is blank.
	AutoMessage bool
}

// Commit records the listed paths and creates a commit on the current branch.
// A listed path that exists in the working tree is staged with its current
// content; one that no longer exists is removed from the index.
func (s *RepositoryStore) Commit(opts CommitOptions) (Commit, error) {
	files, err := cleanPaths(opts.Files)
	if err != nil {
		return Commit{}, err
	}
	if len(files) == 0 {
		return Commit{}, invalidData("files", "no files to commit")
	}

	message := opts.Message
	if strings.TrimSpace(message) == "" {
		if !opts.AutoMessage {
			return Commit{}, invalidData("message", "commit message is empty")
		}
		if message, err = s.SuggestCommitMessage(files); err != nil {
			return Commit{}, err
		}
	}

	for _, f := range files {
		if err := s.stage(f); err != nil {
			return Commit{}, err
		}
	}

	c, err := s.commitIndex(message, nil)
	if err != nil {
		return Commit{}, err
	}

	s.log.Info("commit", "sha", c.ShortSha(), "files", len(files))
	return c, nil
}

// SuggestCommitMessage summarizes the pending changes to files (or to every
// changed path when files is empty) as an "Add ...; Update ...; Remove ..."
// message.
func (s *RepositoryStore) SuggestCommitMessage(files []string) (string, error) {
	status, err := s.repo.Status()
	if err != nil {
		return "", engineError("status", err)
	}

	want := make(map[string]bool, len(files))
	for _, f := range files {
		want[f] = true
	}

	var added, modified, deleted []string
	for _, f := range status {
		if len(want) > 0 && !want[f.Path] {
			continue
		}
		switch {
		case f.Worktree == Untracked || f.Staging == Added:
			added = append(added, f.Path)
		case f.Worktree == Deleted || f.Staging == Deleted:
			deleted = append(deleted, f.Path)
		default:
			modified = append(modified, f.Path)
		}
	}

	return GenerateCommitMessage(added, modified, deleted), nil
}

// stage records path from the working tree, or drops it from the index when
// the working tree no longer has it.
func (s *RepositoryStore) stage(p string) error {
	err := s.repo.StagePath(p)
	if errors.Is(err, ErrNotFound) {
		err = s.repo.UnstagePath(p)
	}
	return engineError(p, err)
}

// commitIndex writes the index as a commit on top of HEAD (plus any extra
// parents) and advances the current branch to it.
func (s *RepositoryStore) commitIndex(message string, extraParents []string) (Commit, error) {
	tree, err := s.repo.WriteTree()
	if err != nil {
		return Commit{}, engineError("index", err)
	}

	head, err := s.repo.Head()
	if err != nil {
		return Commit{}, engineError("HEAD", err)
	}

	var parents []string
	if head.Tip != nil {
		parents = append(parents, head.Tip.Sha)
	}
	parents = append(parents, extraParents...)

	sha, err := s.repo.CreateCommit(CommitSpec{
		Message: message,
		Tree:    tree,
		Parents: parents,
		Author:  s.signature(),
	})
	if err != nil {
		return Commit{}, engineError("commit", err)
	}

	if err := s.repo.UpdateHead(sha); err != nil {
		return Commit{}, engineError(head.FriendlyName(), err)
	}

	c, err := s.repo.CommitFromSha(sha)
	return c, engineError(sha, err)
}

func (s *RepositoryStore) signature() Signature {
	sig, ok := s.repo.Signature()
	if !ok || s.forceAuthor {
		sig = s.author
	}
	sig.When = s.now()
	return sig
}

// --- History ---

// LogOptions selects a page of history.
type LogOptions struct {
	// Path restricts the history to commits whose diff against their first
	// parent touches this path.
	Path   string
	Limit  int
	Offset int
}

// Log returns commits reachable from HEAD, newest first. Offset counts
// matching commits to skip; at most Limit are returned.
func (s *RepositoryStore) Log(opts LogOptions) ([]Commit, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = s.logLimit
	}
	offset := max(opts.Offset, 0)

	filter := ""
	if opts.Path != "" {
		p, err := cleanPath(opts.Path)
		if err != nil {
			return nil, err
		}
		filter = p
	}

	commits := []Commit{}

	head, err := s.repo.Head()
	if err != nil {
		return nil, engineError("HEAD", err)
	}
	if head.Tip == nil {
		return commits, nil
	}

	skipped := 0
	err = s.repo.Log(head.Tip.Sha, func(c Commit) error {
		if filter != "" {
			touched, err := s.repo.TouchesPath(c, filter)
			if err != nil {
				return err
			}
			if !touched {
				return nil
			}
		}
		if skipped < offset {
			skipped++
			return nil
		}
		commits = append(commits, c)
		if len(commits) >= limit {
			return ErrStop
		}
		return nil
	})
	if err != nil {
		return nil, engineError("log", err)
	}

	return commits, nil
}

// ShowFile returns the text of path as recorded in the given commit.
func (s *RepositoryStore) ShowFile(sha, p string) (string, error) {
	if sha == "" {
		return "", invalidData("hash", "commit hash is empty")
	}
	clean, err := cleanPath(p)
	if err != nil {
		return "", err
	}

	data, err := s.repo.ReadFile(sha, clean)
	if err != nil {
		return "", engineError(clean, err)
	}
	if !utf8.Valid(data) {
		return "", newError(KindNotUTF8, clean, errors.New("file is not valid UTF-8"))
	}
	if textmerge.IsBinary(data) {
		return "", invalidData(clean, "binary content")
	}
	return string(data), nil
}

// --- Branches ---

var branchNameRe = regexp.MustCompile(`^[A-Za-z0-9._/-]+$`)

func validBranchName(name string) bool {
	switch {
	case !branchNameRe.MatchString(name),
		strings.HasPrefix(name, "-"), strings.HasPrefix(name, "/"), strings.HasPrefix(name, "."),
		strings.HasSuffix(name, "/"), strings.HasSuffix(name, "."), strings.HasSuffix(name, ".lock"),
		strings.Contains(name, ".."), strings.Contains(name, "//"), strings.Contains(name, "/."),
		name == "HEAD":
		return false
	}
	return true
}

// Branches lists local branches and the current one.
func (s *RepositoryStore) Branches() (BranchList, error) {
	head, err := s.repo.Head()
	if err != nil {
		return BranchList{}, engineError("HEAD", err)
	}

	branches, err := s.repo.Branches()
	if err != nil {
		return BranchList{}, engineError("branches", err)
	}

	list := BranchList{Branches: []string{}, Current: branchLabel(head)}
	for _, b := range branches {
		list.Branches = append(list.Branches, b.FriendlyName())
	}
	sort.Strings(list.Branches)
	return list, nil
}

// CreateBranch creates name at the tip of the local branch from, or at HEAD
// when from is empty. It does not switch to the new branch.
func (s *RepositoryStore) CreateBranch(name, from string) error {
	if !validBranchName(name) {
		return invalidData(name, "invalid branch name")
	}

	var sha string
	if from != "" {
		c, err := s.repo.ResolveBranch(from)
		if err != nil {
			return engineError(from, err)
		}
		sha = c.Sha
	} else {
		head, err := s.repo.Head()
		if err != nil {
			return engineError("HEAD", err)
		}
		if head.Tip == nil {
			return newError(KindNotFound, "HEAD", errors.New("no commits yet"))
		}
		sha = head.Tip.Sha
	}

	if err := s.repo.CreateBranch(name, sha); err != nil {
		return engineError(name, err)
	}

	s.log.Info("create branch", "branch", name, "from", from)
	return nil
}

// Checkout switches to a local branch.
func (s *RepositoryStore) Checkout(branch string) error {
	if branch == "" {
		return invalidData("branch", "branch name is empty")
	}
	if err := s.repo.Checkout(branch); err != nil {
		return engineError(branch, err)
	}
	s.log.Info("checkout", "branch", branch)
	return nil
}

func branchLabel(b Branch) string {
	if b.IsDetachedHead {
		return "HEAD"
	}
	return b.FriendlyName()
}

// cleanPaths normalizes and de-duplicates repository-relative paths.
func cleanPaths(paths []string) ([]string, error) {
	seen := make(map[string]bool, len(paths))
	result := make([]string, 0, len(paths))
	for _, p := range paths {
		clean, err := cleanPath(p)
		if err != nil {
			return nil, err
		}
		if !seen[clean] {
			seen[clean] = true
			result = append(result, clean)
		}
	}
	return result, nil
}

func cleanPath(p string) (string, error) {
	clean := path.Clean(filepath.ToSlash(strings.TrimSpace(p)))
	switch {
	case p == "" || clean == "." || clean == "":
		return "", invalidData(p, "empty path")
	case path.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, "../"):
		return "", invalidData(p, "path is outside the repository")
	case clean == ".git" || strings.HasPrefix(clean, ".git/"):
		return "", invalidData(p, "path is inside the .git directory")
	}
	return clean, nil
}
