// Package textmerge implements a line-based three-way merge (diff3) of text
// files. Both sides are diffed against the common base; changes to disjoint
// regions are combined, identical changes collapse, and overlapping or
// adjacent changes become conflict regions delimited by git-style markers.
package textmerge

import (
	"bytes"
	"strings"
	"time"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Labels name the two sides in conflict markers.
type Labels struct {
	Ours   string
	Theirs string
}

// Result is the outcome of a merge. Content always holds the merged text;
// when Conflicts > 0 it contains marker-delimited conflict regions.
type Result struct {
	Content   []byte
	Conflicts int
}

// Clean reports whether the merge produced no conflicts.
func (r Result) Clean() bool {
	return r.Conflicts == 0
}

const (
	markerOurs   = "<<<<<<<"
	markerSep    = "======="
	markerTheirs = ">>>>>>>"
)

// hunk replaces base lines [start, end) with lines.
type hunk struct {
	start, end int
	lines      []string
	theirs     bool
}

// Merge performs a three-way merge of ours and theirs against base.
func Merge(base, ours, theirs []byte, labels Labels) Result {
	baseLines := splitLines(string(base))
	ourHunks := diffHunks(baseLines, splitLines(string(ours)), false)
	theirHunks := diffHunks(baseLines, splitLines(string(theirs)), true)

	all := mergeSorted(ourHunks, theirHunks)

	var out strings.Builder
	conflicts := 0
	pos := 0

	for i := 0; i < len(all); {
		lo, hi := all[i].start, all[i].end
		j := i + 1
		for j < len(all) && all[j].start <= hi {
			if all[j].end > hi {
				hi = all[j].end
			}
			j++
		}
		group := all[i:j]
		i = j

		writeLines(&out, baseLines[pos:lo])
		pos = hi

		var mine, other []hunk
		for _, h := range group {
			if h.theirs {
				other = append(other, h)
			} else {
				mine = append(mine, h)
			}
		}

		switch {
		case len(other) == 0:
			writeLines(&out, apply(baseLines, lo, hi, mine))
		case len(mine) == 0:
			writeLines(&out, apply(baseLines, lo, hi, other))
		default:
			oursRegion := apply(baseLines, lo, hi, mine)
			theirsRegion := apply(baseLines, lo, hi, other)
			if equalLines(oursRegion, theirsRegion) {
				writeLines(&out, oursRegion)
				continue
			}
			conflicts++
			writeConflict(&out, oursRegion, theirsRegion, labels)
		}
	}
	writeLines(&out, baseLines[pos:])

	return Result{Content: []byte(out.String()), Conflicts: conflicts}
}

// IsBinary reports whether data looks like binary content, using the same
// NUL-byte heuristic as git.
func IsBinary(data []byte) bool {
	const sniff = 8000
	if len(data) > sniff {
		data = data[:sniff]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// DiffTimeout bounds each line diff. Past it the diff is still valid but may
// not be minimal, which can only turn a clean merge into a conflict.
var DiffTimeout = 5 * time.Second

// diffHunks returns the edits that turn base into other, in base order.
func diffHunks(base, other []string, theirs bool) []hunk {
	dmp := diffmatchpatch.New()
	dmp.DiffTimeout = DiffTimeout

	a, b, _ := dmp.DiffLinesToRunes(strings.Join(base, ""), strings.Join(other, ""))
	diffs := dmp.DiffMainRunes(a, b, false)

	var hunks []hunk
	basePos, otherPos := 0, 0
	pending := false
	var cur hunk

	flush := func() {
		if pending {
			hunks = append(hunks, cur)
			pending = false
		}
	}

	for _, d := range diffs {
		n := len([]rune(d.Text))
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			flush()
			basePos += n
			otherPos += n
		case diffmatchpatch.DiffDelete:
			if !pending {
				cur = hunk{start: basePos, end: basePos, theirs: theirs}
				pending = true
			}
			basePos += n
			cur.end = basePos
		case diffmatchpatch.DiffInsert:
			if !pending {
				cur = hunk{start: basePos, end: basePos, theirs: theirs}
				pending = true
			}
			cur.lines = append(cur.lines, other[otherPos:otherPos+n]...)
			otherPos += n
		}
	}
	flush()

	return hunks
}

// mergeSorted interleaves both hunk lists by base position. On equal starts
// our hunk comes first so a group always starts at its lowest position.
func mergeSorted(ours, theirs []hunk) []hunk {
	all := make([]hunk, 0, len(ours)+len(theirs))
	i, j := 0, 0
	for i < len(ours) && j < len(theirs) {
		if theirs[j].start < ours[i].start {
			all = append(all, theirs[j])
			j++
		} else {
			all = append(all, ours[i])
			i++
		}
	}
	all = append(all, ours[i:]...)
	return append(all, theirs[j:]...)
}

// apply rewrites base[lo:hi] with hunks, which must lie inside that range.
func apply(base []string, lo, hi int, hunks []hunk) []string {
	var out []string
	p := lo
	for _, h := range hunks {
		out = append(out, base[p:h.start]...)
		out = append(out, h.lines...)
		p = h.end
	}
	return append(out, base[p:hi]...)
}

func writeConflict(out *strings.Builder, ours, theirs []string, labels Labels) {
	out.WriteString(markerLine(markerOurs, labels.Ours))
	writeTerminated(out, ours)
	out.WriteString(markerSep + "\n")
	writeTerminated(out, theirs)
	out.WriteString(markerLine(markerTheirs, labels.Theirs))
}

func markerLine(marker, label string) string {
	if label == "" {
		return marker + "\n"
	}
	return marker + " " + label + "\n"
}

// writeTerminated writes lines, making sure the last one ends in a newline so
// the following marker starts on its own line.
func writeTerminated(out *strings.Builder, lines []string) {
	writeLines(out, lines)
	if n := len(lines); n > 0 && !strings.HasSuffix(lines[n-1], "\n") {
		out.WriteByte('\n')
	}
}

func writeLines(out *strings.Builder, lines []string) {
	for _, l := range lines {
		out.WriteString(l)
	}
}

func equalLines(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// splitLines splits text after every newline. A trailing fragment without a
// newline is kept as the last line.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
