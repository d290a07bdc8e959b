package textmerge

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var testLabels = Labels{Ours: "main", Theirs: "feature"}

func TestMerge_DisjointRowsMergeCleanly(t *testing.T) {
	base := "id,name\n1,alice\n2,bob\n3,carol\n4,dave\n"
	ours := "id,name\n1,ALICE\n2,bob\n3,carol\n4,dave\n"
	theirs := "id,name\n1,alice\n2,bob\n3,carol\n4,DAVE\n"

	res := Merge([]byte(base), []byte(ours), []byte(theirs), testLabels)

	require.True(t, res.Clean())
	require.Equal(t, "id,name\n1,ALICE\n2,bob\n3,carol\n4,DAVE\n", string(res.Content))
}

func TestMerge_SameLineConflicts(t *testing.T) {
	base := "id,name\n1,alice\n2,bob\n"
	ours := "id,name\n1,alicia\n2,bob\n"
	theirs := "id,name\n1,alison\n2,bob\n"

	res := Merge([]byte(base), []byte(ours), []byte(theirs), testLabels)

	require.Equal(t, 1, res.Conflicts)
	require.Equal(t,
		"id,name\n<<<<<<< main\n1,alicia\n=======\n1,alison\n>>>>>>> feature\n2,bob\n",
		string(res.Content))
}

func TestMerge_IdenticalChangesCollapse(t *testing.T) {
	base := "a\nb\nc\n"
	both := "a\nB\nc\n"

	res := Merge([]byte(base), []byte(both), []byte(both), testLabels)

	require.True(t, res.Clean())
	require.Equal(t, both, string(res.Content))
}

func TestMerge_AppendsOnBothSidesConflict(t *testing.T) {
	base := "h\n1\n"
	ours := "h\n1\n2\n"
	theirs := "h\n1\n3\n"

	res := Merge([]byte(base), []byte(ours), []byte(theirs), testLabels)

	require.Equal(t, 1, res.Conflicts)
	require.Contains(t, string(res.Content), "<<<<<<< main\n2\n=======\n3\n>>>>>>> feature\n")
}

func TestMerge_AddAddWithEmptyBase(t *testing.T) {
	res := Merge(nil, []byte("x\n"), []byte("y\n"), testLabels)

	require.Equal(t, 1, res.Conflicts)
	require.Equal(t, "<<<<<<< main\nx\n=======\ny\n>>>>>>> feature\n", string(res.Content))
}

func TestMerge_MissingTrailingNewlineInConflict(t *testing.T) {
	res := Merge([]byte("a"), []byte("b"), []byte("c"), testLabels)

	require.Equal(t, 1, res.Conflicts)
	require.Equal(t, "<<<<<<< main\nb\n=======\nc\n>>>>>>> feature\n", string(res.Content))
}

func TestMerge_DeletionAndDistantEdit(t *testing.T) {
	base := "1\n2\n3\n4\n5\n"
	ours := "1\n3\n4\n5\n"
	theirs := "1\n2\n3\n4\nfive\n"

	res := Merge([]byte(base), []byte(ours), []byte(theirs), testLabels)

	require.True(t, res.Clean())
	require.Equal(t, "1\n3\n4\nfive\n", string(res.Content))
}

func TestIsBinary(t *testing.T) {
	require.False(t, IsBinary([]byte("a,b\n1,2\n")))
	require.True(t, IsBinary([]byte{'P', 'K', 0, 3}))
	require.False(t, IsBinary(nil))
}

func TestSplitLines(t *testing.T) {
	require.Nil(t, splitLines(""))
	require.Equal(t, []string{"a\n", "b"}, splitLines("a\nb"))
	require.Equal(t, []string{"a\n", "\n"}, splitLines("a\n\n"))
}

func linesGen() *rapid.Generator[string] {
	return rapid.Custom(func(t *rapid.T) string {
		lines := rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b", "c", "1,2", "x,y", ""}), 0, 12).Draw(t, "lines")
		if len(lines) == 0 {
			return ""
		}
		return strings.Join(lines, "\n") + "\n"
	})
}

func TestMerge_PropertyOneSidedChangeWins(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := linesGen().Draw(t, "base")
		changed := linesGen().Draw(t, "changed")

		ours := Merge([]byte(base), []byte(changed), []byte(base), testLabels)
		if !ours.Clean() || string(ours.Content) != changed {
			t.Fatalf("ours-only change: got %q (conflicts=%d), want %q", ours.Content, ours.Conflicts, changed)
		}

		theirs := Merge([]byte(base), []byte(base), []byte(changed), testLabels)
		if !theirs.Clean() || string(theirs.Content) != changed {
			t.Fatalf("theirs-only change: got %q (conflicts=%d), want %q", theirs.Content, theirs.Conflicts, changed)
		}
	})
}

func TestMerge_PropertyIdenticalSidesNeverConflict(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := linesGen().Draw(t, "base")
		changed := linesGen().Draw(t, "changed")

		res := Merge([]byte(base), []byte(changed), []byte(changed), testLabels)
		if !res.Clean() || string(res.Content) != changed {
			t.Fatalf("got %q (conflicts=%d), want %q", res.Content, res.Conflicts, changed)
		}
	})
}

func TestMerge_LargeTablesMergeWithinDiffTimeout(t *testing.T) {
	var b strings.Builder
	b.WriteString("id,value\n")
	for i := 0; i < 20000; i++ {
		fmt.Fprintf(&b, "%d,v%d\n", i, i)
	}
	base := b.String()
	ours := strings.Replace(base, "\n0,v0\n", "\n0,ours\n", 1)
	theirs := strings.Replace(base, "\n19999,v19999\n", "\n19999,theirs\n", 1)

	res := Merge([]byte(base), []byte(ours), []byte(theirs), testLabels)

	require.True(t, res.Clean())
	want := strings.Replace(ours, "\n19999,v19999\n", "\n19999,theirs\n", 1)
	require.Equal(t, want, string(res.Content))
}
