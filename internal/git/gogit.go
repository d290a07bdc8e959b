package git

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/patrickmn/go-cache"
)

// Compile-time check that GoGitRepository implements Repository.
var _ Repository = (*GoGitRepository)(nil)

// DefaultBranch is the branch a freshly initialized repository starts on.
const DefaultBranch = "main"

// Options configures a GoGitRepository.
type Options struct {
	// Auth supplies credentials for fetch and push. Nil means anonymous.
	Auth AuthProvider
	// InitialBranch overrides DefaultBranch for Init.
	InitialBranch string
}

// GoGitRepository implements Repository using go-git.
type GoGitRepository struct {
	repo    *gogit.Repository
	path    string
	workDir string
	auth    AuthProvider

	// touches memoizes TouchesPath; commits are immutable so entries never go stale.
	touches *cache.Cache
}

// Open opens the git repository rooted at path. Parent directories are not
// searched.
func Open(path string, opts Options) (*GoGitRepository, error) {
	r, err := gogit.PlainOpenWithOptions(path, &gogit.PlainOpenOptions{
		DetectDotGit: false,
	})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, newError(KindNotFound, path, errors.New("no git repository at this path"))
	}
	if err != nil {
		return nil, newError(KindEngine, path, fmt.Errorf("opening git repository: %w", err))
	}

	return newGoGitRepository(r, opts)
}

// Init creates a new repository at path, creating the directory if needed.
// It refuses to initialize over an existing repository.
func Init(path string, opts Options) (*GoGitRepository, error) {
	if _, err := os.Stat(filepath.Join(path, gogit.GitDirName)); err == nil {
		return nil, newError(KindAlreadyExists, path, errors.New("a git repository already exists here"))
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, newError(KindEngine, path, fmt.Errorf("creating directory: %w", err))
	}

	branch := opts.InitialBranch
	if branch == "" {
		branch = DefaultBranch
	}

	r, err := gogit.PlainInitWithOptions(path, &gogit.PlainInitOptions{
		InitOptions: gogit.InitOptions{
			DefaultBranch: plumbing.NewBranchReferenceName(branch),
		},
	})
	if err != nil {
		return nil, newError(KindEngine, path, fmt.Errorf("initializing git repository: %w", err))
	}

	return newGoGitRepository(r, opts)
}

func newGoGitRepository(r *gogit.Repository, opts Options) (*GoGitRepository, error) {
	wt, err := r.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	root := wt.Filesystem.Root()

	return &GoGitRepository{
		repo:    r,
		path:    filepath.Join(root, gogit.GitDirName),
		workDir: root,
		auth:    opts.Auth,
		touches: cache.New(30*time.Minute, 10*time.Minute),
	}, nil
}

func (r *GoGitRepository) Path() string {
	return r.path
}

func (r *GoGitRepository) WorkingDirectory() string {
	return r.workDir
}

func (r *GoGitRepository) Head() (Branch, error) {
	ref, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return Branch{}, fmt.Errorf("reading HEAD: %w", err)
	}

	if ref.Type() == plumbing.HashReference {
		commit, err := r.commitFromHash(ref.Hash())
		if err != nil {
			return Branch{}, fmt.Errorf("getting HEAD commit: %w", err)
		}
		return Branch{
			Name:           NewReferenceName(plumbing.HEAD.String()),
			Tip:            &commit,
			IsDetachedHead: true,
		}, nil
	}

	branch := Branch{Name: NewReferenceName(ref.Target().String())}

	target, err := r.repo.Reference(ref.Target(), true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return branch, nil
	}
	if err != nil {
		return Branch{}, fmt.Errorf("resolving HEAD: %w", err)
	}

	commit, err := r.commitFromHash(target.Hash())
	if err != nil {
		return Branch{}, fmt.Errorf("getting HEAD commit: %w", err)
	}
	branch.Tip = &commit

	return branch, nil
}

func (r *GoGitRepository) UpdateHead(sha string) error {
	head, err := r.repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return fmt.Errorf("reading HEAD: %w", err)
	}

	name := plumbing.HEAD
	if head.Type() == plumbing.SymbolicReference {
		name = head.Target()
	}

	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(name, plumbing.NewHash(sha))); err != nil {
		return fmt.Errorf("updating %s: %w", name, err)
	}
	return nil
}

func (r *GoGitRepository) Branches() ([]Branch, error) {
	var branches []Branch

	iter, err := r.repo.Branches()
	if err != nil {
		return nil, fmt.Errorf("listing local branches: %w", err)
	}
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		commit, err := r.commitFromHash(ref.Hash())
		if err != nil {
			return nil // skip branches we can't resolve
		}
		branches = append(branches, Branch{
			Name: NewReferenceName(string(ref.Name())),
			Tip:  &commit,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating local branches: %w", err)
	}

	sort.Slice(branches, func(i, j int) bool {
		return branches[i].Name.Friendly < branches[j].Name.Friendly
	})

	return branches, nil
}

func (r *GoGitRepository) ResolveBranch(name string) (Commit, error) {
	return r.resolveRef(plumbing.NewBranchReferenceName(name), name)
}

func (r *GoGitRepository) ResolveRemoteBranch(remote, branch string) (Commit, error) {
	return r.resolveRef(plumbing.NewRemoteReferenceName(remote, branch), remote+"/"+branch)
}

func (r *GoGitRepository) resolveRef(name plumbing.ReferenceName, subject string) (Commit, error) {
	ref, err := r.repo.Reference(name, true)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return Commit{}, notFound(subject)
	}
	if err != nil {
		return Commit{}, fmt.Errorf("resolving %s: %w", name, err)
	}
	return r.commitFromHash(ref.Hash())
}

func (r *GoGitRepository) CommitFromSha(sha string) (Commit, error) {
	hash, ok := parseHash(sha)
	if !ok {
		return Commit{}, newError(KindNotFound, sha, errors.New("not a commit hash"))
	}
	return r.commitFromHash(hash)
}

func (r *GoGitRepository) CreateBranch(name, sha string) error {
	refName := plumbing.NewBranchReferenceName(name)

	_, err := r.repo.Reference(refName, false)
	if err == nil {
		return newError(KindAlreadyExists, name, errors.New("branch already exists"))
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return fmt.Errorf("looking up branch %s: %w", name, err)
	}

	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(refName, plumbing.NewHash(sha))); err != nil {
		return fmt.Errorf("creating branch %s: %w", name, err)
	}
	return nil
}

func (r *GoGitRepository) Checkout(branch string) error {
	target, err := r.ResolveBranch(branch)
	if err != nil {
		return err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	// go-git moves HEAD before it checks for local changes, so check first.
	dirty, err := r.hasTrackedChanges(wt)
	if err != nil {
		return err
	}
	if dirty {
		return newError(KindEngine, branch, errors.New("uncommitted changes would be overwritten by checkout"))
	}

	head, err := r.Head()
	if err != nil {
		return err
	}
	current := ""
	if head.Tip != nil {
		current = head.Tip.Sha
	}
	if err := r.checkUntracked(wt, current, target.Sha, "checkout"); err != nil {
		return err
	}

	err = wt.Checkout(&gogit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
	})
	if err != nil {
		return fmt.Errorf("checking out %s: %w", branch, err)
	}
	return nil
}

func (r *GoGitRepository) Status() ([]FileStatus, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return nil, fmt.Errorf("getting worktree status: %w", err)
	}

	result := make([]FileStatus, 0, len(status))
	for path, s := range status {
		if s.Staging == gogit.Unmodified && s.Worktree == gogit.Unmodified {
			continue
		}
		result = append(result, FileStatus{
			Path:     path,
			Staging:  StatusCode(s.Staging),
			Worktree: StatusCode(s.Worktree),
		})
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Path < result[j].Path })

	return result, nil
}

// hasTrackedChanges reports staged or unstaged changes to tracked files.
// Untracked files do not count.
func (r *GoGitRepository) hasTrackedChanges(wt *gogit.Worktree) (bool, error) {
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("getting worktree status: %w", err)
	}
	for _, s := range status {
		if s.Worktree == gogit.Untracked {
			continue
		}
		if s.Staging != gogit.Unmodified || s.Worktree != gogit.Unmodified {
			return true, nil
		}
	}
	return false, nil
}

func (r *GoGitRepository) Log(sha string, fn func(Commit) error) error {
	hash, ok := parseHash(sha)
	if !ok {
		return newError(KindNotFound, sha, errors.New("not a commit hash"))
	}

	iter, err := r.repo.Log(&gogit.LogOptions{
		From:  hash,
		Order: gogit.LogOrderCommitterTime,
	})
	if err != nil {
		return fmt.Errorf("getting commit log: %w", err)
	}

	err = iter.ForEach(func(c *object.Commit) error {
		if err := fn(convertCommit(c)); err != nil {
			if errors.Is(err, ErrStop) {
				return storer.ErrStop
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("iterating commits: %w", err)
	}

	return nil
}

func (r *GoGitRepository) TouchesPath(c Commit, path string) (bool, error) {
	key := c.Sha + "\x00" + path
	if v, ok := r.touches.Get(key); ok {
		return v.(bool), nil
	}

	commit, err := r.repo.CommitObject(plumbing.NewHash(c.Sha))
	if err != nil {
		return false, fmt.Errorf("loading commit %s: %w", c.Sha, err)
	}

	current, err := entryAt(commit, path)
	if err != nil {
		return false, err
	}

	var previous *object.TreeEntry
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return false, fmt.Errorf("loading parent of %s: %w", c.Sha, err)
		}
		if previous, err = entryAt(parent, path); err != nil {
			return false, err
		}
	}

	touched := !sameEntry(current, previous)
	r.touches.Set(key, touched, cache.DefaultExpiration)

	return touched, nil
}

// entryAt returns the tree entry for path in a commit, or nil if absent.
func entryAt(c *object.Commit, path string) (*object.TreeEntry, error) {
	tree, err := c.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading tree of %s: %w", c.Hash, err)
	}
	entry, err := tree.FindEntry(path)
	switch {
	case err == nil:
		return entry, nil
	case errors.Is(err, object.ErrEntryNotFound),
		errors.Is(err, object.ErrDirectoryNotFound),
		errors.Is(err, plumbing.ErrObjectNotFound):
		return nil, nil
	default:
		return nil, fmt.Errorf("looking up %s in %s: %w", path, c.Hash, err)
	}
}

func sameEntry(a, b *object.TreeEntry) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Hash == b.Hash && a.Mode == b.Mode
}

func (r *GoGitRepository) IsAncestor(ancestor, descendant string) (bool, error) {
	a, err := r.repo.CommitObject(plumbing.NewHash(ancestor))
	if err != nil {
		return false, fmt.Errorf("loading commit %s: %w", ancestor, err)
	}
	d, err := r.repo.CommitObject(plumbing.NewHash(descendant))
	if err != nil {
		return false, fmt.Errorf("loading commit %s: %w", descendant, err)
	}

	ok, err := a.IsAncestor(d)
	if err != nil {
		return false, fmt.Errorf("checking ancestry of %s: %w", ancestor, err)
	}
	return ok, nil
}

func (r *GoGitRepository) FindMergeBase(sha1, sha2 string) (string, error) {
	c1, err := r.repo.CommitObject(plumbing.NewHash(sha1))
	if err != nil {
		return "", fmt.Errorf("loading commit %s: %w", sha1, err)
	}

	c2, err := r.repo.CommitObject(plumbing.NewHash(sha2))
	if err != nil {
		return "", fmt.Errorf("loading commit %s: %w", sha2, err)
	}

	bases, err := c1.MergeBase(c2)
	if err != nil {
		return "", fmt.Errorf("computing merge base: %w", err)
	}

	if len(bases) == 0 {
		return "", nil
	}

	return bases[0].Hash.String(), nil
}

func (r *GoGitRepository) ReadFile(sha, path string) ([]byte, error) {
	hash, ok := parseHash(sha)
	if !ok {
		return nil, newError(KindNotFound, sha, errors.New("not a commit hash"))
	}

	commit, err := r.repo.CommitObject(hash)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return nil, notFound(sha)
	}
	if err != nil {
		return nil, fmt.Errorf("loading commit %s: %w", sha, err)
	}

	file, err := commit.File(path)
	if errors.Is(err, object.ErrFileNotFound) {
		return nil, newError(KindNotFound, path, fmt.Errorf("not present at commit %s", sha))
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s at %s: %w", path, sha, err)
	}

	rd, err := file.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening blob %s: %w", file.Hash, err)
	}
	defer rd.Close()

	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", file.Hash, err)
	}
	return data, nil
}

func (r *GoGitRepository) Signature() (Signature, bool) {
	cfg, err := r.repo.ConfigScoped(config.GlobalScope)
	if err != nil || cfg.User.Name == "" || cfg.User.Email == "" {
		return Signature{}, false
	}
	return Signature{Name: cfg.User.Name, Email: cfg.User.Email}, true
}

// commitFromHash loads a go-git commit and converts it to our Commit type.
func (r *GoGitRepository) commitFromHash(hash plumbing.Hash) (Commit, error) {
	c, err := r.repo.CommitObject(hash)
	if errors.Is(err, plumbing.ErrObjectNotFound) {
		return Commit{}, notFound(hash.String())
	}
	if err != nil {
		return Commit{}, fmt.Errorf("loading commit %s: %w", hash.String(), err)
	}
	return convertCommit(c), nil
}

// convertCommit converts a go-git commit to our Commit type.
func convertCommit(c *object.Commit) Commit {
	parents := make([]string, 0, c.NumParents())
	for _, p := range c.ParentHashes {
		parents = append(parents, p.String())
	}

	return Commit{
		Sha:     c.Hash.String(),
		Parents: parents,
		When:    c.Committer.When,
		Author:  c.Author.Name,
		Message: c.Message,
	}
}

func parseHash(sha string) (plumbing.Hash, bool) {
	if len(sha) != 40 {
		return plumbing.ZeroHash, false
	}
	h := plumbing.NewHash(sha)
	return h, h.String() == sha
}
