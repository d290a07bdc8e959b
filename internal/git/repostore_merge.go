package git

import (
	"context"
	"errors"
	"strings"
)

type mergeStrategy string

const (
	strategyUpToDate    mergeStrategy = "up-to-date"
	strategyFastForward mergeStrategy = "fast-forward"
	strategyMerge       mergeStrategy = "merge"
	strategyConflict    mergeStrategy = "conflict"
)

type integration struct {
	strategy  mergeStrategy
	conflicts []string
}

// --- Merge ---

// Merge integrates the local branch source into the current branch.
// Conflicts are reported in the result, not as an error; the repository is
// then left in the merging state until ResolveConflicts.
func (s *RepositoryStore) Merge(source string) (MergeResult, error) {
	if source == "" {
		return MergeResult{}, invalidData("branch", "source branch is empty")
	}

	head, err := s.repo.Head()
	if err != nil {
		return MergeResult{}, engineError("HEAD", err)
	}

	target, err := s.repo.ResolveBranch(source)
	if err != nil {
		return MergeResult{}, engineError(source, err)
	}

	current := branchLabel(head)
	res, err := s.integrate(head, target, MergeLabels{Ours: current, Theirs: source}, MergeCommitMessage(source, current))
	if err != nil {
		return MergeResult{}, err
	}

	s.log.Info("merge", "source", source, "into", current, "strategy", string(res.strategy), "conflicts", len(res.conflicts))

	if res.strategy == strategyConflict {
		return MergeResult{Success: false, Conflicts: res.conflicts}, nil
	}
	return MergeResult{Success: true}, nil
}

// integrate brings target into the current branch: nothing to do when it is
// already contained, a fast-forward when HEAD is its ancestor, and a
// three-way merge commit otherwise.
func (s *RepositoryStore) integrate(head Branch, target Commit, labels MergeLabels, message string) (integration, error) {
	mergeHead, err := s.repo.MergeHead()
	if err != nil {
		return integration{}, engineError("MERGE_HEAD", err)
	}
	if mergeHead != "" {
		return integration{}, newError(KindEngine, head.FriendlyName(), errors.New("a merge is in progress; resolve conflicts first"))
	}

	if head.Tip != nil {
		ours := head.Tip.Sha
		if ours == target.Sha {
			return integration{strategy: strategyUpToDate}, nil
		}
		contained, err := s.repo.IsAncestor(target.Sha, ours)
		if err != nil {
			return integration{}, engineError(target.Sha, err)
		}
		if contained {
			return integration{strategy: strategyUpToDate}, nil
		}
	}

	if err := s.ensureNoLocalChanges(); err != nil {
		return integration{}, err
	}

	fastForward := head.Tip == nil
	if !fastForward {
		fastForward, err = s.repo.IsAncestor(head.Tip.Sha, target.Sha)
		if err != nil {
			return integration{}, engineError(target.Sha, err)
		}
	}
	if fastForward {
		if err := s.repo.FastForward(target.Sha); err != nil {
			return integration{}, engineError(target.Sha, err)
		}
		return integration{strategy: strategyFastForward}, nil
	}

	outcome, err := s.repo.Merge(target.Sha, labels)
	if err != nil {
		return integration{}, engineError(target.Sha, err)
	}
	if len(outcome.Conflicts) > 0 {
		return integration{strategy: strategyConflict, conflicts: outcome.Conflicts}, nil
	}

	if _, err := s.commitIndex(message, []string{target.Sha}); err != nil {
		return integration{}, err
	}
	if err := s.repo.CleanupState(); err != nil {
		return integration{}, engineError("MERGE_HEAD", err)
	}
	return integration{strategy: strategyMerge}, nil
}

// ensureNoLocalChanges refuses to merge over staged or modified tracked files.
// Untracked files only block the merge when the incoming tree would replace
// them, which the repository checks while applying it.
func (s *RepositoryStore) ensureNoLocalChanges() error {
	files, err := s.repo.Status()
	if err != nil {
		return engineError("status", err)
	}
	for _, f := range files {
		if f.Worktree == Untracked {
			continue
		}
		return newError(KindEngine, f.Path, errors.New("local changes would be overwritten by merge"))
	}
	return nil
}

// --- Conflict resolution ---

// ResolveConflicts stages the caller's resolutions and concludes the merge
// with a commit whose second parent is MERGE_HEAD, when one is recorded.
func (s *RepositoryStore) ResolveConflicts(files []string) (Commit, error) {
	resolved, err := cleanPaths(files)
	if err != nil {
		return Commit{}, err
	}
	if len(resolved) == 0 {
		return Commit{}, invalidData("files", "no resolved files given")
	}

	conflicted, err := s.repo.ConflictedPaths()
	if err != nil {
		return Commit{}, engineError("index", err)
	}
	listed := make(map[string]bool, len(resolved))
	for _, f := range resolved {
		listed[f] = true
	}
	for _, c := range conflicted {
		if !listed[c] {
			return Commit{}, invalidData(c, "unresolved conflict not included in the resolution")
		}
	}

	mergeHead, err := s.repo.MergeHead()
	if err != nil {
		return Commit{}, engineError("MERGE_HEAD", err)
	}

	for _, f := range resolved {
		if err := s.stage(f); err != nil {
			return Commit{}, err
		}
	}

	var extra []string
	if mergeHead != "" {
		extra = append(extra, mergeHead)
	}

	c, err := s.commitIndex(ResolveConflictsMessage, extra)
	if err != nil {
		return Commit{}, err
	}
	if err := s.repo.CleanupState(); err != nil {
		return Commit{}, engineError("MERGE_HEAD", err)
	}

	s.log.Info("resolve conflicts", "sha", c.ShortSha(), "files", len(resolved), "merge", mergeHead != "")
	return c, nil
}

// --- Remotes ---

var remoteNameRe = branchNameRe

// Remotes lists configured remotes.
func (s *RepositoryStore) Remotes() ([]Remote, error) {
	remotes, err := s.repo.Remotes()
	if err != nil {
		return nil, engineError("remotes", err)
	}
	if remotes == nil {
		remotes = []Remote{}
	}
	return remotes, nil
}

// AddRemote configures a new remote.
func (s *RepositoryStore) AddRemote(name, url string) error {
	if !remoteNameRe.MatchString(name) || strings.Contains(name, "/") {
		return invalidData(name, "invalid remote name")
	}
	if strings.TrimSpace(url) == "" {
		return invalidData(name, "remote URL is empty")
	}
	if err := s.repo.AddRemote(name, url); err != nil {
		return engineError(name, err)
	}
	s.log.Info("add remote", "remote", name)
	return nil
}

// resolveRemoteTarget fills in the default remote and the current branch.
func (s *RepositoryStore) resolveRemoteTarget(remote, branch string) (string, string, Branch, error) {
	head, err := s.repo.Head()
	if err != nil {
		return "", "", Branch{}, engineError("HEAD", err)
	}
	if remote == "" {
		remote = s.defaultRemote
	}
	if branch == "" {
		if head.IsDetachedHead {
			return "", "", Branch{}, invalidData("HEAD", "detached HEAD; name a branch")
		}
		branch = head.FriendlyName()
	}
	return remote, branch, head, nil
}

// Push sends the local branch to the same-named branch on remote.
func (s *RepositoryStore) Push(ctx context.Context, remote, branch string) error {
	remote, branch, _, err := s.resolveRemoteTarget(remote, branch)
	if err != nil {
		return err
	}

	if err := s.repo.Push(ctx, remote, branch); err != nil {
		return engineError(remote, err)
	}

	s.log.Info("push", "remote", remote, "branch", branch)
	return nil
}

// Pull fetches remote/branch and integrates it into the current branch like
// Merge does. NewCommits counts the commits that became reachable from HEAD.
func (s *RepositoryStore) Pull(ctx context.Context, remote, branch string) (PullResult, error) {
	remote, branch, head, err := s.resolveRemoteTarget(remote, branch)
	if err != nil {
		return PullResult{}, err
	}

	before := ""
	if head.Tip != nil {
		before = head.Tip.Sha
	}

	if err := s.repo.Fetch(ctx, remote, branch); err != nil {
		return PullResult{}, engineError(remote, err)
	}

	target, err := s.repo.ResolveRemoteBranch(remote, branch)
	if err != nil {
		return PullResult{}, engineError(remote+"/"+branch, err)
	}

	labels := MergeLabels{Ours: branchLabel(head), Theirs: remote + "/" + branch}
	res, err := s.integrate(head, target, labels, PullCommitMessage(remote, branch))
	if err != nil {
		return PullResult{}, err
	}

	result := PullResult{}
	switch res.strategy {
	case strategyUpToDate:
	case strategyConflict:
		result.Conflicts = res.conflicts
	default:
		after, err := s.repo.Head()
		if err != nil {
			return PullResult{}, engineError("HEAD", err)
		}
		n, err := s.countNewCommits(before, after.Tip.Sha)
		if err != nil {
			return PullResult{}, err
		}
		result.Updated = true
		result.NewCommits = n
	}

	s.log.Info("pull", "remote", remote, "branch", branch, "strategy", string(res.strategy),
		"new_commits", result.NewCommits, "conflicts", len(result.Conflicts))
	return result, nil
}

// countNewCommits returns |ancestors(after) \ ancestors(before)|, where a
// commit counts as its own ancestor and an empty before has no ancestors.
func (s *RepositoryStore) countNewCommits(before, after string) (int, error) {
	seen := make(map[string]bool)
	if before != "" {
		err := s.repo.Log(before, func(c Commit) error {
			seen[c.Sha] = true
			return nil
		})
		if err != nil {
			return 0, engineError(before, err)
		}
	}

	n := 0
	err := s.repo.Log(after, func(c Commit) error {
		if !seen[c.Sha] {
			n++
		}
		return nil
	})
	if err != nil {
		return 0, engineError(after, err)
	}
	return n, nil
}
