package git

import (
	"fmt"
	"path"
	"regexp"
	"strings"
)

// Messages written by the repository core.
const (
	InitialCommitMessage    = "Initial commit – Ledgit repository"
	ResolveConflictsMessage = "Resolve merge conflicts"
)

// MergeCommitMessage titles a three-way merge of a local branch.
func MergeCommitMessage(source, target string) string {
	return fmt.Sprintf("Merge branch '%s' into '%s'", source, target)
}

// PullCommitMessage titles a three-way merge created by a pull.
func PullCommitMessage(remote, branch string) string {
	return fmt.Sprintf("Merge remote branch '%s/%s'", remote, branch)
}

// MergeMessage holds the parsed components of a merge commit message.
type MergeMessage struct {
	FormatName   string
	MergedBranch string
	TargetBranch string
	Remote       string
}

// IsEmpty returns true if no format matched.
func (m MergeMessage) IsEmpty() bool {
	return m.FormatName == ""
}

// MergeMessageFormat pairs a name with a regex pattern.
type MergeMessageFormat struct {
	Name    string
	Pattern *regexp.Regexp
}

var mergeFormats = []MergeMessageFormat{
	{
		Name:    "Default",
		Pattern: regexp.MustCompile(`(?i)^Merge (?:branch|tag) '(?P<SourceBranch>[^']*)'(?: into '?(?P<TargetBranch>[^'\s]*)'?)?`),
	},
	{
		Name:    "RemoteBranch",
		Pattern: regexp.MustCompile(`(?i)^Merge remote branch '(?P<Remote>[^/']+)/(?P<SourceBranch>[^']*)'`),
	},
	{
		Name:    "RemoteTracking",
		Pattern: regexp.MustCompile(`(?i)^Merge remote-tracking branch '(?P<Remote>[^/']+)/(?P<SourceBranch>[^']*)'(?: into '?(?P<TargetBranch>[^'\s]*)'?)?`),
	},
	{
		Name:    "GitHubPull",
		Pattern: regexp.MustCompile(`(?i)^Merge pull request #\d+ from (?P<SourceBranch>\S*)`),
	},
	{
		Name:    "ConflictResolution",
		Pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(ResolveConflictsMessage) + `$`),
	},
}

// ParseMergeMessage matches the first line of a commit message against the
// known merge formats. Returns a zero MergeMessage if no format matches.
func ParseMergeMessage(message string) MergeMessage {
	first, _, _ := strings.Cut(message, "\n")
	first = strings.TrimSpace(first)

	for _, format := range mergeFormats {
		match := format.Pattern.FindStringSubmatch(first)
		if match == nil {
			continue
		}

		result := MergeMessage{FormatName: format.Name}
		for i, name := range format.Pattern.SubexpNames() {
			if i == 0 || name == "" || match[i] == "" {
				continue
			}
			switch name {
			case "SourceBranch":
				result.MergedBranch = match[i]
			case "TargetBranch":
				result.TargetBranch = match[i]
			case "Remote":
				result.Remote = match[i]
			}
		}
		return result
	}

	return MergeMessage{}
}

// GenerateCommitMessage summarizes a change set by action, e.g.
// "Add new.csv; Update sales.csv". Only base names are shown; more than three
// files of one kind are abbreviated to the first two and a count.
func GenerateCommitMessage(added, modified, deleted []string) string {
	var parts []string
	if len(added) > 0 {
		parts = append(parts, "Add "+fileNames(added))
	}
	if len(modified) > 0 {
		parts = append(parts, "Update "+fileNames(modified))
	}
	if len(deleted) > 0 {
		parts = append(parts, "Remove "+fileNames(deleted))
	}

	if len(parts) == 0 {
		return "Update files"
	}
	return strings.Join(parts, "; ")
}

func fileNames(paths []string) string {
	names := make([]string, 0, len(paths))
	for _, p := range paths {
		names = append(names, path.Base(p))
	}
	if len(names) <= 3 {
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%s, %s and %d more", names[0], names[1], len(names)-2)
}
