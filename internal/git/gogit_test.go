package git

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/go-ledgit/internal/testutil"
)

func openTestRepo(t *testing.T, tr *testutil.TestRepo) *GoGitRepository {
	t.Helper()
	repo, err := Open(tr.Path(), Options{})
	require.NoError(t, err)
	return repo
}

func TestOpen_MissingRepository(t *testing.T) {
	_, err := Open(t.TempDir(), Options{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestOpen_DoesNotSearchParents(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	sub := filepath.Join(tr.Path(), "nested")
	require.NoError(t, os.Mkdir(sub, 0o755))

	_, err := Open(sub, Options{})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestInit_CreatesDirectoryAndUnbornHead(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "books")

	repo, err := Init(dir, Options{})
	require.NoError(t, err)
	require.Equal(t, dir, repo.WorkingDirectory())

	head, err := repo.Head()
	require.NoError(t, err)
	require.Equal(t, DefaultBranch, head.FriendlyName())
	require.Nil(t, head.Tip)
}

func TestInit_RefusesExistingRepository(t *testing.T) {
	tr := testutil.NewTestRepo(t)

	_, err := Init(tr.Path(), Options{})
	require.ErrorIs(t, err, ErrAlreadyExists)
}

func TestGoGitRepository_HeadAndBranches(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	sha := tr.AddCommit("first")
	tr.CreateBranch("feature", sha)
	repo := openTestRepo(t, tr)

	head, err := repo.Head()
	require.NoError(t, err)
	require.Equal(t, "main", head.FriendlyName())
	require.Equal(t, sha, head.Tip.Sha)
	require.Equal(t, "Test", head.Tip.Author)

	branches, err := repo.Branches()
	require.NoError(t, err)
	require.Len(t, branches, 2)
	require.Equal(t, "feature", branches[0].FriendlyName())
	require.Equal(t, "main", branches[1].FriendlyName())

	_, err = repo.ResolveBranch("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGoGitRepository_CreateBranchTwiceFails(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	sha := tr.AddCommit("first")
	repo := openTestRepo(t, tr)

	require.NoError(t, repo.CreateBranch("feature", sha))
	require.ErrorIs(t, repo.CreateBranch("feature", sha), ErrAlreadyExists)
}

func TestGoGitRepository_StageWriteTreeCommit(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	base := tr.CommitFiles("base", map[string]string{"data/a.csv": "x\n"})
	repo := openTestRepo(t, tr)

	tr.WriteFile("data/a.csv", "x\ny\n")
	tr.WriteFile("b.csv", "1\n")
	require.NoError(t, repo.StagePath("data/a.csv"))
	require.NoError(t, repo.StagePath("b.csv"))

	tree, err := repo.WriteTree()
	require.NoError(t, err)

	sha, err := repo.CreateCommit(CommitSpec{
		Message: "update",
		Tree:    tree,
		Parents: []string{base},
		Author:  Signature{Name: "Ada", Email: "ada@example.com", When: testutil.Epoch},
	})
	require.NoError(t, err)
	require.NoError(t, repo.UpdateHead(sha))

	require.Equal(t, sha, tr.HeadSha())

	data, err := repo.ReadFile(sha, "data/a.csv")
	require.NoError(t, err)
	require.Equal(t, "x\ny\n", string(data))

	status, err := repo.Status()
	require.NoError(t, err)
	require.Empty(t, status)
}

func TestGoGitRepository_StageMissingFileIsNotFound(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	tr.AddCommit("first")
	repo := openTestRepo(t, tr)

	require.ErrorIs(t, repo.StagePath("ghost.csv"), ErrNotFound)
}

func TestGoGitRepository_UnstageRemovesPathFromTree(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	tr.CommitFiles("base", map[string]string{"keep.csv": "k\n", "gone.csv": "g\n"})
	repo := openTestRepo(t, tr)

	tr.RemoveFile("gone.csv")
	require.NoError(t, repo.UnstagePath("gone.csv"))

	tree, err := repo.WriteTree()
	require.NoError(t, err)
	sha, err := repo.CreateCommit(CommitSpec{Message: "rm", Tree: tree, Parents: []string{tr.HeadSha()}})
	require.NoError(t, err)

	_, err = repo.ReadFile(sha, "gone.csv")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = repo.ReadFile(sha, "keep.csv")
	require.NoError(t, err)
}

func TestGoGitRepository_StatusCodes(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	tr.CommitFiles("base", map[string]string{"a.csv": "1\n"})
	repo := openTestRepo(t, tr)

	tr.WriteFile("a.csv", "2\n")
	tr.WriteFile("new.csv", "n\n")

	status, err := repo.Status()
	require.NoError(t, err)
	require.Equal(t, []FileStatus{
		{Path: "a.csv", Staging: Unmodified, Worktree: Modified},
		{Path: "new.csv", Staging: Untracked, Worktree: Untracked},
	}, status)
}

func TestGoGitRepository_LogNewestFirstAndStop(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	first := tr.AddCommit("first")
	second := tr.AddCommit("second")
	third := tr.AddCommit("third")
	repo := openTestRepo(t, tr)

	var seen []string
	err := repo.Log(third, func(c Commit) error {
		seen = append(seen, c.Sha)
		if len(seen) == 2 {
			return ErrStop
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{third, second}, seen)

	ok, err := repo.IsAncestor(first, third)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.IsAncestor(third, first)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestGoGitRepository_TouchesPath(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	c1 := tr.CommitFiles("add a", map[string]string{"a.csv": "1\n"})
	c2 := tr.CommitFiles("add b", map[string]string{"b.csv": "1\n"})
	c3 := tr.CommitFiles("edit a", map[string]string{"a.csv": "2\n"})
	repo := openTestRepo(t, tr)

	for _, tc := range []struct {
		sha  string
		path string
		want bool
	}{
		{c1, "a.csv", true},
		{c2, "a.csv", false},
		{c3, "a.csv", true},
		{c3, "b.csv", false},
		{c2, "missing/x.csv", false},
	} {
		c, err := repo.CommitFromSha(tc.sha)
		require.NoError(t, err)
		got, err := repo.TouchesPath(c, tc.path)
		require.NoError(t, err)
		require.Equal(t, tc.want, got, "%s %s", c.Message, tc.path)

		cached, err := repo.TouchesPath(c, tc.path)
		require.NoError(t, err)
		require.Equal(t, got, cached)
	}
}

func TestGoGitRepository_CommitFromShaRejectsGarbage(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	tr.AddCommit("first")
	repo := openTestRepo(t, tr)

	_, err := repo.CommitFromSha("not-a-sha")
	require.ErrorIs(t, err, ErrNotFound)

	_, err = repo.CommitFromSha("0123456789abcdef0123456789abcdef01234567")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestGoGitRepository_CheckoutRefusesDirtyTree(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	sha := tr.CommitFiles("base", map[string]string{"a.csv": "1\n"})
	tr.CreateBranch("feature", sha)
	repo := openTestRepo(t, tr)

	tr.WriteFile("a.csv", "dirty\n")

	err := repo.Checkout("feature")
	require.ErrorIs(t, err, ErrEngine)

	head, err := repo.Head()
	require.NoError(t, err)
	require.Equal(t, "main", head.FriendlyName())
}

func TestGoGitRepository_CheckoutRefusesToReplaceUntrackedFile(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	base := tr.CommitFiles("base", map[string]string{"a.csv": "1\n"})
	tr.CreateBranch("feature", base)
	tr.Checkout("feature")
	tr.CommitFiles("feature adds new", map[string]string{"new.csv": "from feature\n"})
	tr.Checkout("main")
	repo := openTestRepo(t, tr)

	tr.WriteFile("new.csv", "unsaved\n")

	err := repo.Checkout("feature")
	require.ErrorIs(t, err, ErrEngine)
	require.ErrorContains(t, err, "new.csv: untracked working tree file would be overwritten by checkout")
	require.Equal(t, "unsaved\n", tr.ReadFile("new.csv"))

	head, err := repo.Head()
	require.NoError(t, err)
	require.Equal(t, "main", head.FriendlyName())
	require.Equal(t, base, head.Tip.Sha)
}

func TestGoGitRepository_CheckoutSwitchesContent(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	base := tr.CommitFiles("base", map[string]string{"a.csv": "1\n"})
	tr.CreateBranch("feature", base)
	tr.CommitFiles("main only", map[string]string{"a.csv": "2\n", "m.csv": "m\n"})
	repo := openTestRepo(t, tr)

	require.NoError(t, repo.Checkout("feature"))
	require.Equal(t, "1\n", tr.ReadFile("a.csv"))
	require.False(t, tr.Exists("m.csv"))

	require.ErrorIs(t, repo.Checkout("nope"), ErrNotFound)
}

func TestGoGitRepository_FastForward(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	base := tr.CommitFiles("base", map[string]string{"a.csv": "1\n"})
	ahead := tr.CommitFiles("ahead", map[string]string{"a.csv": "2\n", "n.csv": "n\n"})
	tr.CreateBranch("behind", base)
	tr.Checkout("behind")
	repo := openTestRepo(t, tr)

	require.NoError(t, repo.FastForward(ahead))

	require.Equal(t, ahead, tr.BranchSha("behind"))
	require.Equal(t, "2\n", tr.ReadFile("a.csv"))
	require.Equal(t, "n\n", tr.ReadFile("n.csv"))

	status, err := repo.Status()
	require.NoError(t, err)
	require.Empty(t, status)
}

func TestGoGitRepository_MergeCleanDisjointFiles(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	base := tr.CommitFiles("base", map[string]string{"a.csv": "1\n", "b.csv": "1\n", "gone.csv": "g\n"})
	tr.CreateBranch("feature", base)
	tr.CommitFiles("main edits a", map[string]string{"a.csv": "main\n"})
	tr.Checkout("feature")
	tr.CommitRemovals("feature removes gone", "gone.csv")
	feature := tr.CommitFiles("feature edits b", map[string]string{"b.csv": "feature\n"})
	tr.Checkout("main")
	repo := openTestRepo(t, tr)

	outcome, err := repo.Merge(feature, MergeLabels{Ours: "main", Theirs: "feature"})
	require.NoError(t, err)
	require.Empty(t, outcome.Conflicts)

	require.Equal(t, "main\n", tr.ReadFile("a.csv"))
	require.Equal(t, "feature\n", tr.ReadFile("b.csv"))
	require.False(t, tr.Exists("gone.csv"))

	mergeHead, err := repo.MergeHead()
	require.NoError(t, err)
	require.Equal(t, feature, mergeHead)

	_, err = repo.WriteTree()
	require.NoError(t, err)

	require.NoError(t, repo.CleanupState())
	mergeHead, err = repo.MergeHead()
	require.NoError(t, err)
	require.Empty(t, mergeHead)
}

func TestGoGitRepository_MergeConflictStagesAndMarkers(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	base := tr.CommitFiles("base", map[string]string{"data.csv": "id,v\n1,a\n"})
	tr.CreateBranch("feature", base)
	tr.CommitFiles("main", map[string]string{"data.csv": "id,v\n1,main\n"})
	tr.Checkout("feature")
	feature := tr.CommitFiles("feature", map[string]string{"data.csv": "id,v\n1,feature\n"})
	tr.Checkout("main")
	repo := openTestRepo(t, tr)

	outcome, err := repo.Merge(feature, MergeLabels{Ours: "main", Theirs: "feature"})
	require.NoError(t, err)
	require.Equal(t, []string{"data.csv"}, outcome.Conflicts)

	require.Equal(t, "id,v\n<<<<<<< main\n1,main\n=======\n1,feature\n>>>>>>> feature\n", tr.ReadFile("data.csv"))

	conflicted, err := repo.ConflictedPaths()
	require.NoError(t, err)
	require.Equal(t, []string{"data.csv"}, conflicted)

	_, err = repo.WriteTree()
	require.ErrorIs(t, err, ErrEngine)

	// Staging the edited file clears every conflict stage.
	tr.WriteFile("data.csv", "id,v\n1,both\n")
	require.NoError(t, repo.StagePath("data.csv"))
	conflicted, err = repo.ConflictedPaths()
	require.NoError(t, err)
	require.Empty(t, conflicted)
}

func TestGoGitRepository_MergeModifyDeleteConflict(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	base := tr.CommitFiles("base", map[string]string{"data.csv": "1\n", "other.csv": "o\n"})
	tr.CreateBranch("feature", base)
	tr.CommitFiles("main edits", map[string]string{"data.csv": "2\n"})
	tr.Checkout("feature")
	tr.CommitRemovals("feature removes", "data.csv")
	feature := tr.CommitFiles("feature edits other", map[string]string{"other.csv": "o2\n"})
	tr.Checkout("main")
	repo := openTestRepo(t, tr)

	outcome, err := repo.Merge(feature, MergeLabels{Ours: "main", Theirs: "feature"})
	require.NoError(t, err)
	require.Equal(t, []string{"data.csv"}, outcome.Conflicts)
	require.Equal(t, "2\n", tr.ReadFile("data.csv"))
	require.Equal(t, "o2\n", tr.ReadFile("other.csv"))
}

func TestGoGitRepository_FastForwardRefusesToReplaceUntrackedFile(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	base := tr.CommitFiles("base", map[string]string{"a.csv": "1\n"})
	ahead := tr.CommitFiles("ahead", map[string]string{"new.csv": "n\n"})
	tr.CreateBranch("behind", base)
	tr.Checkout("behind")
	repo := openTestRepo(t, tr)

	tr.WriteFile("new.csv", "unsaved\n")

	err := repo.FastForward(ahead)
	require.ErrorIs(t, err, ErrEngine)
	require.ErrorContains(t, err, "untracked working tree file would be overwritten by merge")
	require.Equal(t, base, tr.BranchSha("behind"))
	require.Equal(t, "unsaved\n", tr.ReadFile("new.csv"))
}

func TestGoGitRepository_MergeFileDirectoryCollisionIsConflict(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	base := tr.CommitFiles("base", map[string]string{"a.csv": "1\n"})
	tr.CreateBranch("feature", base)
	tr.CommitFiles("main adds file x", map[string]string{"x": "ours\n"})
	tr.Checkout("feature")
	feature := tr.CommitFiles("feature adds directory x", map[string]string{"x/b.csv": "b\n", "f.csv": "f\n"})
	tr.Checkout("main")
	repo := openTestRepo(t, tr)

	outcome, err := repo.Merge(feature, MergeLabels{Ours: "main", Theirs: "feature"})
	require.NoError(t, err)
	require.Equal(t, []string{"x/b.csv"}, outcome.Conflicts)

	require.Equal(t, "ours\n", tr.ReadFile("x"))
	require.Equal(t, "f\n", tr.ReadFile("f.csv"))

	conflicted, err := repo.ConflictedPaths()
	require.NoError(t, err)
	require.Equal(t, []string{"x/b.csv"}, conflicted)

	mergeHead, err := repo.MergeHead()
	require.NoError(t, err)
	require.Equal(t, feature, mergeHead)
}

func TestGoGitRepository_MergeBlockedByUntrackedFileAppliesNothing(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	base := tr.CommitFiles("base", map[string]string{"a.csv": "1\n"})
	tr.CreateBranch("feature", base)
	tr.CommitFiles("main edits a", map[string]string{"a.csv": "main\n"})
	tr.Checkout("feature")
	feature := tr.CommitFiles("feature adds files", map[string]string{"f.csv": "f\n", "new.csv": "from feature\n"})
	tr.Checkout("main")
	repo := openTestRepo(t, tr)

	tr.WriteFile("new.csv", "unsaved\n")

	_, err := repo.Merge(feature, MergeLabels{Ours: "main", Theirs: "feature"})
	require.ErrorIs(t, err, ErrEngine)
	require.ErrorContains(t, err, "new.csv: untracked working tree file would be overwritten by merge")

	require.Equal(t, "unsaved\n", tr.ReadFile("new.csv"))
	require.False(t, tr.Exists("f.csv"))

	mergeHead, err := repo.MergeHead()
	require.NoError(t, err)
	require.Empty(t, mergeHead)

	status, err := repo.Status()
	require.NoError(t, err)
	require.Equal(t, []FileStatus{{Path: "new.csv", Staging: Untracked, Worktree: Untracked}}, status)
}

func TestGoGitRepository_RemotesAndAddRemote(t *testing.T) {
	tr := testutil.NewTestRepo(t)
	tr.AddCommit("first")
	repo := openTestRepo(t, tr)

	require.NoError(t, repo.AddRemote("origin", "https://example.com/books.git"))
	require.ErrorIs(t, repo.AddRemote("origin", "https://example.com/other.git"), ErrAlreadyExists)

	remotes, err := repo.Remotes()
	require.NoError(t, err)
	require.Equal(t, []Remote{{Name: "origin", URL: "https://example.com/books.git"}}, remotes)
}
