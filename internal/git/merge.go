package git

import (
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/format/index"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/MyCarrier-DevOps/go-ledgit/internal/textmerge"
)

const (
	mergeHeadRef plumbing.ReferenceName = "MERGE_HEAD"
	origHeadRef  plumbing.ReferenceName = "ORIG_HEAD"
)

// blobRef is one side of a path in a three-way merge.
type blobRef struct {
	hash plumbing.Hash
	mode filemode.FileMode
}

func sameBlob(a, b *blobRef) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.hash == b.hash && a.mode == b.mode
}

func (r *GoGitRepository) Merge(theirs string, labels MergeLabels) (MergeOutcome, error) {
	head, err := r.Head()
	if err != nil {
		return MergeOutcome{}, err
	}
	if head.Tip == nil {
		return MergeOutcome{}, newError(KindEngine, head.FriendlyName(), errors.New("cannot merge into a branch with no commits"))
	}
	ours := head.Tip.Sha

	base, err := r.FindMergeBase(ours, theirs)
	if err != nil {
		return MergeOutcome{}, err
	}

	baseFiles, err := r.flattenCommit(base)
	if err != nil {
		return MergeOutcome{}, err
	}
	ourFiles, err := r.flattenCommit(ours)
	if err != nil {
		return MergeOutcome{}, err
	}
	theirFiles, err := r.flattenCommit(theirs)
	if err != nil {
		return MergeOutcome{}, err
	}

	wt, err := r.repo.Worktree()
	if err != nil {
		return MergeOutcome{}, fmt.Errorf("getting worktree: %w", err)
	}
	idx, err := r.repo.Storer.Index()
	if err != nil {
		return MergeOutcome{}, fmt.Errorf("reading index: %w", err)
	}

	var actions []*pathAction
	for _, p := range unionPaths(baseFiles, ourFiles, theirFiles) {
		a, err := r.planPath(p, baseFiles[p], ourFiles[p], theirFiles[p], labels)
		if err != nil {
			return MergeOutcome{}, err
		}
		if a != nil {
			actions = append(actions, a)
		}
	}

	markCollisions(actions, ourFiles)

	for _, a := range actions {
		if !a.write {
			continue
		}
		if p, blocked := untrackedInTheWay(wt, ourFiles, a.name); blocked {
			return MergeOutcome{}, untrackedOverwrite(p, "merge")
		}
	}

	if err := r.applyActions(wt, idx, actions, ourFiles); err != nil {
		return MergeOutcome{}, err
	}

	if err := r.repo.Storer.SetIndex(idx); err != nil {
		return MergeOutcome{}, fmt.Errorf("writing index: %w", err)
	}

	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(origHeadRef, plumbing.NewHash(ours))); err != nil {
		return MergeOutcome{}, fmt.Errorf("writing ORIG_HEAD: %w", err)
	}
	if err := r.repo.Storer.SetReference(plumbing.NewHashReference(mergeHeadRef, plumbing.NewHash(theirs))); err != nil {
		return MergeOutcome{}, fmt.Errorf("writing MERGE_HEAD: %w", err)
	}

	var conflicts []string
	for _, a := range actions {
		if a.conflict {
			conflicts = append(conflicts, a.name)
		}
	}
	return MergeOutcome{Conflicts: conflicts}, nil
}

// pathAction is the planned outcome of merging one path. Nothing touches the
// working tree or index until every path has been planned.
type pathAction struct {
	name     string
	content  []byte
	mode     filemode.FileMode
	write    bool
	remove   bool
	conflict bool

	base, ours, theirs *blobRef
}

// planPath decides the outcome for one path. A nil action keeps ours as is.
func (r *GoGitRepository) planPath(name string, base, ours, theirs *blobRef, labels MergeLabels) (*pathAction, error) {
	a := &pathAction{name: name, base: base, ours: ours, theirs: theirs}

	switch {
	case sameBlob(ours, theirs):
		return nil, nil
	case sameBlob(base, theirs):
		return nil, nil
	case sameBlob(base, ours):
		// Only theirs changed: take it.
		if theirs == nil {
			a.remove = true
			return a, nil
		}
		data, err := r.blobContent(theirs.hash)
		if err != nil {
			return nil, err
		}
		a.content, a.mode, a.write = data, theirs.mode, true
		return a, nil
	case ours == nil || theirs == nil:
		// Modified on one side, deleted on the other.
		a.conflict = true
		if ours == nil {
			data, err := r.blobContent(theirs.hash)
			if err != nil {
				return nil, err
			}
			a.content, a.mode, a.write = data, theirs.mode, true
		}
		return a, nil
	}

	// Both sides changed the content (or both added it).
	var baseData []byte
	if base != nil {
		data, err := r.blobContent(base.hash)
		if err != nil {
			return nil, err
		}
		baseData = data
	}
	ourData, err := r.blobContent(ours.hash)
	if err != nil {
		return nil, err
	}
	theirData, err := r.blobContent(theirs.hash)
	if err != nil {
		return nil, err
	}

	if textmerge.IsBinary(baseData) || textmerge.IsBinary(ourData) || textmerge.IsBinary(theirData) {
		a.conflict = true
		return a, nil
	}

	res := textmerge.Merge(baseData, ourData, theirData, textmerge.Labels{Ours: labels.Ours, Theirs: labels.Theirs})

	a.mode = ours.mode
	if base != nil && ours.mode == base.mode {
		a.mode = theirs.mode
	}
	a.content, a.write = res.Content, true
	a.conflict = !res.Clean()
	return a, nil
}

// markCollisions turns writes that would need a file where the merged tree
// has a directory, or a directory where it has a file, into conflicts that
// leave the working tree alone.
func markCollisions(actions []*pathAction, ourFiles map[string]*blobRef) {
	files := make(map[string]bool, len(ourFiles))
	for p := range ourFiles {
		files[p] = true
	}
	for _, a := range actions {
		switch {
		case a.remove:
			delete(files, a.name)
		case a.write:
			files[a.name] = true
		}
	}

	for _, a := range actions {
		if !a.write || ourFiles[a.name] != nil {
			continue
		}
		if !collides(files, a.name) {
			continue
		}
		delete(files, a.name)
		a.write, a.content, a.conflict = false, nil, true
	}
}

// collides reports whether name is also a directory in files, or one of its
// parent directories is a file there.
func collides(files map[string]bool, name string) bool {
	for dir := path.Dir(name); dir != "."; dir = path.Dir(dir) {
		if files[dir] {
			return true
		}
	}
	prefix := name + "/"
	for p := range files {
		if strings.HasPrefix(p, prefix) {
			return true
		}
	}
	return false
}

// applyActions writes the planned outcome to the working tree and index. On
// failure the paths already written are restored to ours.
func (r *GoGitRepository) applyActions(wt *gogit.Worktree, idx *index.Index, actions []*pathAction, ourFiles map[string]*blobRef) error {
	// Removals go first so a file can replace a directory that theirs dropped.
	ordered := make([]*pathAction, 0, len(actions))
	for _, a := range actions {
		if a.remove {
			ordered = append(ordered, a)
		}
	}
	for _, a := range actions {
		if !a.remove {
			ordered = append(ordered, a)
		}
	}

	var applied []*pathAction
	for _, a := range ordered {
		if err := r.applyAction(wt, idx, a); err != nil {
			return errors.Join(err, r.restoreOurs(wt, applied, ourFiles))
		}
		applied = append(applied, a)
	}
	return nil
}

func (r *GoGitRepository) applyAction(wt *gogit.Worktree, idx *index.Index, a *pathAction) error {
	if a.remove {
		removeEntries(idx, a.name)
		return removeWorktreeFile(wt, a.name)
	}

	var entry *index.Entry
	if a.write {
		e, err := r.writeWorktreeFile(wt, a.name, a.content, a.mode)
		if err != nil {
			return err
		}
		entry = e
	}

	if a.conflict {
		stageConflict(idx, a.name, a.base, a.ours, a.theirs)
		return nil
	}
	removeEntries(idx, a.name)
	idx.Entries = append(idx.Entries, entry)
	return nil
}

// restoreOurs puts the working-tree files of applied actions back to their
// state at HEAD. The index is only written after a successful apply, so it
// needs no restoring.
func (r *GoGitRepository) restoreOurs(wt *gogit.Worktree, applied []*pathAction, ourFiles map[string]*blobRef) error {
	var errs []error
	for i := len(applied) - 1; i >= 0; i-- {
		a := applied[i]
		if !a.write && !a.remove {
			continue
		}
		ours := ourFiles[a.name]
		if ours == nil {
			errs = append(errs, removeWorktreeFile(wt, a.name))
			continue
		}
		data, err := r.blobContent(ours.hash)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if _, err := r.writeWorktreeFile(wt, a.name, data, ours.mode); err != nil {
			errs = append(errs, fmt.Errorf("restoring %s: %w", a.name, err))
		}
	}
	return errors.Join(errs...)
}

// stageConflict replaces the merged entry for name with its base/ours/theirs
// stages, the way git records an unmerged path.
func stageConflict(idx *index.Index, name string, base, ours, theirs *blobRef) {
	removeEntries(idx, name)
	for _, side := range []struct {
		ref   *blobRef
		stage index.Stage
	}{
		{base, index.AncestorMode},
		{ours, index.OurMode},
		{theirs, index.TheirMode},
	} {
		if side.ref == nil {
			continue
		}
		idx.Entries = append(idx.Entries, &index.Entry{
			Name:  name,
			Hash:  side.ref.hash,
			Mode:  side.ref.mode,
			Stage: side.stage,
		})
	}
}

func (r *GoGitRepository) MergeHead() (string, error) {
	ref, err := r.repo.Storer.Reference(mergeHeadRef)
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading MERGE_HEAD: %w", err)
	}
	return ref.Hash().String(), nil
}

func (r *GoGitRepository) CleanupState() error {
	for _, name := range []plumbing.ReferenceName{mergeHeadRef, origHeadRef} {
		if err := r.repo.Storer.RemoveReference(name); err != nil && !errors.Is(err, plumbing.ErrReferenceNotFound) {
			return fmt.Errorf("removing %s: %w", name, err)
		}
	}
	return nil
}

// flattenCommit maps every file path in a commit's tree to its blob. An empty
// sha yields an empty map (the empty tree).
func (r *GoGitRepository) flattenCommit(sha string) (map[string]*blobRef, error) {
	files := make(map[string]*blobRef)
	if sha == "" {
		return files, nil
	}

	commit, err := r.repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return nil, fmt.Errorf("loading commit %s: %w", sha, err)
	}
	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("loading tree of %s: %w", sha, err)
	}

	err = tree.Files().ForEach(func(f *object.File) error {
		files[f.Name] = &blobRef{hash: f.Hash, mode: f.Mode}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking tree of %s: %w", sha, err)
	}
	return files, nil
}

func (r *GoGitRepository) blobContent(hash plumbing.Hash) ([]byte, error) {
	blob, err := r.repo.BlobObject(hash)
	if err != nil {
		return nil, fmt.Errorf("loading blob %s: %w", hash, err)
	}
	rd, err := blob.Reader()
	if err != nil {
		return nil, fmt.Errorf("opening blob %s: %w", hash, err)
	}
	defer rd.Close()

	data, err := io.ReadAll(rd)
	if err != nil {
		return nil, fmt.Errorf("reading blob %s: %w", hash, err)
	}
	return data, nil
}

func unionPaths(sides ...map[string]*blobRef) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, side := range sides {
		for p := range side {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	sort.Strings(paths)
	return paths
}
