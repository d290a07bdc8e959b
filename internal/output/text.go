package output

import (
	"fmt"
	"io"
	"slices"

	"github.com/MyCarrier-DevOps/go-ledgit/internal/git"
)

const arrowPrefix = "\u2192"

// Message is a one-line confirmation such as "Switched to branch 'x'".
type Message string

// WriteText renders v for a terminal.
func WriteText(w io.Writer, v any) error {
	switch r := v.(type) {
	case git.RepoStatus:
		return WriteStatus(w, r)
	case git.RepoInfo:
		return WriteInfo(w, r)
	case git.Commit:
		return WriteCommit(w, r)
	case []git.Commit:
		return WriteLog(w, r)
	case git.BranchList:
		return WriteBranches(w, r)
	case git.MergeResult:
		return WriteMerge(w, r)
	case git.PullResult:
		return WritePull(w, r)
	case []git.Remote:
		return WriteRemotes(w, r)
	case Message:
		_, err := fmt.Fprintln(w, string(r))
		return err
	case string:
		_, err := io.WriteString(w, r)
		return err
	default:
		_, err := fmt.Fprintf(w, "%v\n", v)
		return err
	}
}

// WriteStatus writes the branch line followed by one section per non-empty
// change set.
func WriteStatus(w io.Writer, st git.RepoStatus) error {
	fmt.Fprintf(w, "On branch %s\n", st.Branch)
	if st.Clean {
		_, err := fmt.Fprintln(w, "Nothing to commit, working tree clean")
		return err
	}

	sections := []struct {
		title string
		paths []string
	}{
		{"Conflicted", st.Conflicted},
		{"Staged", st.Staged},
		{"Modified", st.Modified},
		{"Untracked", st.Untracked},
	}
	for _, s := range sections {
		if len(s.paths) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s:\n", s.title)
		for _, p := range s.paths {
			fmt.Fprintf(w, "  %s\n", p)
		}
	}
	return nil
}

// WriteInfo writes the repository identity.
func WriteInfo(w io.Writer, info git.RepoInfo) error {
	fmt.Fprintf(w, "Repository: %s\n", info.Name)
	fmt.Fprintf(w, "Path:       %s\n", info.Path)
	fmt.Fprintf(w, "Branch:     %s\n", info.Branch)
	remote := info.RemoteURL
	if remote == "" {
		remote = "(none)"
	}
	_, err := fmt.Fprintf(w, "Remote:     %s\n", remote)
	return err
}

// WriteCommit writes a single commit as one log line.
func WriteCommit(w io.Writer, c git.Commit) error {
	_, err := fmt.Fprintln(w, logLine(c))
	return err
}

// WriteLog writes one line per commit, newest first. Merge commits get a
// second line naming the merged branch when the message is recognized.
func WriteLog(w io.Writer, commits []git.Commit) error {
	if len(commits) == 0 {
		_, err := fmt.Fprintln(w, "No commits")
		return err
	}
	for _, c := range commits {
		fmt.Fprintln(w, logLine(c))
		if !c.IsMerge() {
			continue
		}
		mm := git.ParseMergeMessage(c.Message)
		if mm.IsEmpty() || mm.MergedBranch == "" {
			continue
		}
		source := mm.MergedBranch
		if mm.Remote != "" {
			source = mm.Remote + "/" + source
		}
		fmt.Fprintf(w, "        %s merged %s\n", arrowPrefix, source)
	}
	return nil
}

func logLine(c git.Commit) string {
	return fmt.Sprintf("%s %s %-16s %s",
		c.ShortSha(),
		c.When.UTC().Format("2006-01-02 15:04"),
		c.Author,
		c.Subject(),
	)
}

// WriteBranches lists local branches, marking the current one.
func WriteBranches(w io.Writer, bl git.BranchList) error {
	for _, b := range bl.Branches {
		marker := " "
		if b == bl.Current {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %s\n", marker, b)
	}
	if bl.Current != "" && !slices.Contains(bl.Branches, bl.Current) {
		fmt.Fprintf(w, "* %s\n", bl.Current)
	}
	return nil
}

// WriteMerge writes the outcome of a merge.
func WriteMerge(w io.Writer, r git.MergeResult) error {
	if r.Success {
		_, err := fmt.Fprintln(w, "Merge completed")
		return err
	}
	return writeConflicts(w, "Merge stopped", r.Conflicts)
}

// WritePull writes the outcome of a pull.
func WritePull(w io.Writer, r git.PullResult) error {
	switch {
	case len(r.Conflicts) > 0:
		return writeConflicts(w, "Pull stopped", r.Conflicts)
	case !r.Updated:
		_, err := fmt.Fprintln(w, "Already up to date")
		return err
	default:
		_, err := fmt.Fprintf(w, "Updated with %d new %s\n", r.NewCommits, plural(r.NewCommits, "commit", "commits"))
		return err
	}
}

// WriteRemotes lists remotes as "name<TAB>url".
func WriteRemotes(w io.Writer, remotes []git.Remote) error {
	for _, r := range remotes {
		fmt.Fprintf(w, "%s\t%s\n", r.Name, r.URL)
	}
	return nil
}

func writeConflicts(w io.Writer, title string, conflicts []string) error {
	fmt.Fprintf(w, "%s with %d %s:\n", title, len(conflicts), plural(len(conflicts), "conflict", "conflicts"))
	for _, c := range conflicts {
		fmt.Fprintf(w, "  %s %s\n", arrowPrefix, c)
	}
	_, err := fmt.Fprintln(w, "Edit the files, then run resolve with the paths.")
	return err
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
