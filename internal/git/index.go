package git

import (
	"errors"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"
	"syscall"

	"github.com/go-git/go-billy/v5/util"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"
)

func (r *GoGitRepository) StagePath(name string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	info, err := wt.Filesystem.Lstat(name)
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		return notFound(name)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", name, err)
	}
	if info.IsDir() {
		return invalidData(name, "is a directory")
	}

	data, err := util.ReadFile(wt.Filesystem, name)
	if err != nil {
		return fmt.Errorf("reading %s: %w", name, err)
	}

	hash, err := r.writeBlob(data)
	if err != nil {
		return err
	}

	mode, err := filemode.NewFromOSFileMode(info.Mode())
	if err != nil {
		return fmt.Errorf("mode of %s: %w", name, err)
	}

	idx, err := r.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("reading index: %w", err)
	}

	removeEntries(idx, name)
	idx.Entries = append(idx.Entries, &index.Entry{
		Name:       name,
		Hash:       hash,
		Mode:       mode,
		Size:       uint32(info.Size()),
		CreatedAt:  info.ModTime(),
		ModifiedAt: info.ModTime(),
	})

	if err := r.repo.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

func (r *GoGitRepository) UnstagePath(name string) error {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return fmt.Errorf("reading index: %w", err)
	}

	removeEntries(idx, name)

	if err := r.repo.Storer.SetIndex(idx); err != nil {
		return fmt.Errorf("writing index: %w", err)
	}
	return nil
}

func (r *GoGitRepository) ConflictedPaths() ([]string, error) {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	return conflictedPaths(idx), nil
}

// stageMerged is the stage of a normal, fully merged entry. go-git's
// index.Merged constant is 1, which collides with the ancestor stage.
const stageMerged index.Stage = 0

func conflictedPaths(idx *index.Index) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, e := range idx.Entries {
		if e.Stage == stageMerged || seen[e.Name] {
			continue
		}
		seen[e.Name] = true
		paths = append(paths, e.Name)
	}
	sort.Strings(paths)
	return paths
}

// removeEntries drops every stage of name from the index.
func removeEntries(idx *index.Index, name string) {
	kept := idx.Entries[:0]
	for _, e := range idx.Entries {
		if e.Name != name {
			kept = append(kept, e)
		}
	}
	idx.Entries = kept
}

// treeNode is a directory being assembled from index entries.
type treeNode struct {
	entry    *index.Entry
	children map[string]*treeNode
}

func (r *GoGitRepository) WriteTree() (string, error) {
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return "", fmt.Errorf("reading index: %w", err)
	}

	if conflicts := conflictedPaths(idx); len(conflicts) > 0 {
		return "", newError(KindEngine, conflicts[0], errors.New("index has unresolved conflicts"))
	}

	root := &treeNode{children: map[string]*treeNode{}}
	for _, e := range idx.Entries {
		node := root
		parts := strings.Split(e.Name, "/")
		for _, dir := range parts[:len(parts)-1] {
			child, ok := node.children[dir]
			if !ok {
				child = &treeNode{children: map[string]*treeNode{}}
				node.children[dir] = child
			}
			node = child
		}
		node.children[parts[len(parts)-1]] = &treeNode{entry: e}
	}

	hash, err := r.writeTreeNode(root)
	if err != nil {
		return "", err
	}
	return hash.String(), nil
}

func (r *GoGitRepository) writeTreeNode(n *treeNode) (plumbing.Hash, error) {
	tree := &object.Tree{}
	for name, child := range n.children {
		if child.entry != nil {
			tree.Entries = append(tree.Entries, object.TreeEntry{
				Name: name,
				Mode: child.entry.Mode,
				Hash: child.entry.Hash,
			})
			continue
		}

		hash, err := r.writeTreeNode(child)
		if err != nil {
			return plumbing.ZeroHash, err
		}
		tree.Entries = append(tree.Entries, object.TreeEntry{
			Name: name,
			Mode: filemode.Dir,
			Hash: hash,
		})
	}
	sort.Sort(object.TreeEntrySorter(tree.Entries))

	obj := r.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("encoding tree: %w", err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("storing tree: %w", err)
	}
	return hash, nil
}

func (r *GoGitRepository) CreateCommit(spec CommitSpec) (string, error) {
	sig := object.Signature{
		Name:  spec.Author.Name,
		Email: spec.Author.Email,
		When:  spec.Author.When,
	}

	parents := make([]plumbing.Hash, 0, len(spec.Parents))
	for _, p := range spec.Parents {
		parents = append(parents, plumbing.NewHash(p))
	}

	commit := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      spec.Message,
		TreeHash:     plumbing.NewHash(spec.Tree),
		ParentHashes: parents,
	}

	obj := r.repo.Storer.NewEncodedObject()
	if err := commit.Encode(obj); err != nil {
		return "", fmt.Errorf("encoding commit: %w", err)
	}
	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return "", fmt.Errorf("storing commit: %w", err)
	}
	return hash.String(), nil
}

func (r *GoGitRepository) FastForward(sha string) error {
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	head, err := r.Head()
	if err != nil {
		return err
	}

	current := ""
	if head.Tip != nil {
		current = head.Tip.Sha
	}
	if err := r.checkUntracked(wt, current, sha, "merge"); err != nil {
		return err
	}

	if head.Tip == nil {
		// Unborn branch: point it at sha first so the reset has a HEAD to move.
		if err := r.UpdateHead(sha); err != nil {
			return err
		}
	}

	err = wt.Reset(&gogit.ResetOptions{
		Commit: plumbing.NewHash(sha),
		Mode:   gogit.MergeReset,
	})
	if errors.Is(err, gogit.ErrUnstagedChanges) {
		return newError(KindEngine, sha, errors.New("local changes would be overwritten by merge"))
	}
	if err != nil {
		return fmt.Errorf("fast-forwarding to %s: %w", sha, err)
	}
	return nil
}

func (r *GoGitRepository) writeBlob(data []byte) (plumbing.Hash, error) {
	obj := r.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	obj.SetSize(int64(len(data)))

	w, err := obj.Writer()
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("opening blob writer: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return plumbing.ZeroHash, fmt.Errorf("writing blob: %w", err)
	}
	if err := w.Close(); err != nil {
		return plumbing.ZeroHash, fmt.Errorf("closing blob writer: %w", err)
	}

	hash, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		return plumbing.ZeroHash, fmt.Errorf("storing blob: %w", err)
	}
	return hash, nil
}

// writeWorktreeFile writes data to name in the working tree and returns a
// stage-0 index entry describing it.
func (r *GoGitRepository) writeWorktreeFile(wt *gogit.Worktree, name string, data []byte, mode filemode.FileMode) (*index.Entry, error) {
	if dir := path.Dir(name); dir != "." {
		if err := wt.Filesystem.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	perm := os.FileMode(0o644)
	if mode == filemode.Executable {
		perm = 0o755
	}
	if err := util.WriteFile(wt.Filesystem, name, data, perm); err != nil {
		return nil, fmt.Errorf("writing %s: %w", name, err)
	}

	info, err := wt.Filesystem.Lstat(name)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", name, err)
	}

	hash, err := r.writeBlob(data)
	if err != nil {
		return nil, err
	}

	return &index.Entry{
		Name:       name,
		Hash:       hash,
		Mode:       mode,
		Size:       uint32(info.Size()),
		CreatedAt:  info.ModTime(),
		ModifiedAt: info.ModTime(),
	}, nil
}

// removeWorktreeFile deletes name and any directories it leaves empty.
func removeWorktreeFile(wt *gogit.Worktree, name string) error {
	if err := wt.Filesystem.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", name, err)
	}
	for dir := path.Dir(name); dir != "."; dir = path.Dir(dir) {
		entries, err := wt.Filesystem.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			break
		}
		if err := wt.Filesystem.Remove(dir); err != nil {
			break
		}
	}
	return nil
}

// checkUntracked fails when moving the working tree from the commit from to
// the commit to would replace a file that from does not track.
func (r *GoGitRepository) checkUntracked(wt *gogit.Worktree, from, to, op string) error {
	fromFiles, err := r.flattenCommit(from)
	if err != nil {
		return err
	}
	toFiles, err := r.flattenCommit(to)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(toFiles))
	for name := range toFiles {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if p, blocked := untrackedInTheWay(wt, fromFiles, name); blocked {
			return untrackedOverwrite(p, op)
		}
	}
	return nil
}

// untrackedInTheWay returns the working-tree path outside tracked that
// writing name would replace: name itself, or a file standing where one of
// its parent directories must go.
func untrackedInTheWay(wt *gogit.Worktree, tracked map[string]*blobRef, name string) (string, bool) {
	if tracked[name] == nil {
		info, err := wt.Filesystem.Lstat(name)
		if err == nil && !(info.IsDir() && tracksUnder(tracked, name)) {
			return name, true
		}
	}
	for dir := path.Dir(name); dir != "."; dir = path.Dir(dir) {
		if tracked[dir] != nil {
			continue
		}
		info, err := wt.Filesystem.Lstat(dir)
		if err == nil && !info.IsDir() {
			return dir, true
		}
	}
	return "", false
}

// tracksUnder reports whether tracked has a file inside directory dir.
func tracksUnder(tracked map[string]*blobRef, dir string) bool {
	prefix := dir + "/"
	for p := range tracked {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func untrackedOverwrite(p, op string) error {
	return newError(KindEngine, p, fmt.Errorf("untracked working tree file would be overwritten by %s", op))
}
