package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/go-ledgit/internal/testutil"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	out, err := runCLI(t, append(args, "--output", "json")...)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), v), out)
}

func TestCLI_InitStatusCommitLog(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "books")

	var info map[string]any
	runJSON(t, &info, "init", dir)
	require.Equal(t, "books", info["name"])
	require.Equal(t, "main", info["branch"])

	out, err := runCLI(t, "--path", dir)
	require.NoError(t, err)
	require.Contains(t, out, "working tree clean")

	writeFile(t, dir, "prices.csv", "id,price\n1,10\n")
	var st map[string]any
	runJSON(t, &st, "status", "--path", dir)
	require.Equal(t, false, st["clean"])
	require.Equal(t, []any{"prices.csv"}, st["untracked"])

	out, err = runCLI(t, "commit", "--suggest", "--path", dir)
	require.NoError(t, err)
	require.Equal(t, "Add prices.csv\n", out)

	_, err = runCLI(t, "commit", "--path", dir, "prices.csv")
	require.Error(t, err)
	require.Contains(t, err.Error(), "commit message is empty")

	var c map[string]any
	runJSON(t, &c, "commit", "--auto", "--path", dir, "--author-name", "Ada", "prices.csv")
	require.Equal(t, "Add prices.csv", c["message"])
	require.Equal(t, "Ada", c["author"])

	var log []map[string]any
	runJSON(t, &log, "log", "--path", dir)
	require.Len(t, log, 2)
	require.Equal(t, c["hash"], log[0]["hash"])

	runJSON(t, &log, "log", "--path", dir, "--file", "prices.csv")
	require.Len(t, log, 1)

	runJSON(t, &log, "log", "--path", dir, "--limit", "1", "--offset", "1")
	require.Len(t, log, 1)
	require.True(t, strings.HasPrefix(log[0]["message"].(string), "Initial commit"))

	out, err = runCLI(t, "show", c["hash"].(string), "prices.csv", "--path", dir)
	require.NoError(t, err)
	require.Equal(t, "id,price\n1,10\n", out)
}

func TestCLI_BranchMergeResolve(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, "init", dir)
	require.NoError(t, err)

	writeFile(t, dir, "a.csv", "id,v\n1,base\n")
	_, err = runCLI(t, "commit", "-m", "base", "--path", dir, "a.csv")
	require.NoError(t, err)

	out, err := runCLI(t, "branch", "feature", "--path", dir)
	require.NoError(t, err)
	require.Equal(t, "Created branch 'feature'\n", out)

	out, err = runCLI(t, "checkout", "feature", "--path", dir)
	require.NoError(t, err)
	require.Equal(t, "Switched to branch 'feature'\n", out)

	writeFile(t, dir, "a.csv", "id,v\n1,feature\n")
	_, err = runCLI(t, "commit", "-m", "feature edit", "--path", dir, "a.csv")
	require.NoError(t, err)

	_, err = runCLI(t, "checkout", "main", "--path", dir)
	require.NoError(t, err)
	writeFile(t, dir, "a.csv", "id,v\n1,main\n")
	_, err = runCLI(t, "commit", "-m", "main edit", "--path", dir, "a.csv")
	require.NoError(t, err)

	out, err = runCLI(t, "branch", "--path", dir)
	require.NoError(t, err)
	require.Equal(t, "  feature\n* main\n", out)

	var res map[string]any
	runJSON(t, &res, "merge", "feature", "--path", dir)
	require.Equal(t, false, res["success"])
	require.Equal(t, []any{"a.csv"}, res["conflicts"])

	writeFile(t, dir, "a.csv", "id,v\n1,both\n")
	var c map[string]any
	runJSON(t, &c, "resolve", "a.csv", "--path", dir)
	require.Len(t, c["parents"], 2)

	out, err = runCLI(t, "status", "--path", dir)
	require.NoError(t, err)
	require.Contains(t, out, "working tree clean")
}

func TestCLI_RemotePushPull(t *testing.T) {
	bare := testutil.NewBareRepo(t)
	dir := t.TempDir()
	_, err := runCLI(t, "init", dir)
	require.NoError(t, err)

	out, err := runCLI(t, "remote", "add", "origin", bare, "--path", dir)
	require.NoError(t, err)
	require.Equal(t, "Added remote 'origin'\n", out)

	out, err = runCLI(t, "remote", "--path", dir)
	require.NoError(t, err)
	require.Equal(t, "origin\t"+bare+"\n", out)

	out, err = runCLI(t, "push", "--path", dir)
	require.NoError(t, err)
	require.Equal(t, "Push completed\n", out)

	out, err = runCLI(t, "pull", "origin", "main", "--path", dir)
	require.NoError(t, err)
	require.Equal(t, "Already up to date\n", out)

	other := testutil.Clone(t, bare)
	other.CommitFiles("remote edit", map[string]string{"b.csv": "1\n"})
	other.Push("origin", "main")

	var res map[string]any
	runJSON(t, &res, "pull", "--path", dir)
	require.Equal(t, true, res["updated"])
	require.Equal(t, float64(1), res["new_commits"])
}
