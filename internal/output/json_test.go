package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/MyCarrier-DevOps/go-ledgit/internal/git"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatText, false},
		{"text", FormatText, false},
		{"JSON", FormatJSON, false},
		{" json ", FormatJSON, false},
		{"yaml", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestWriteJSON_Status(t *testing.T) {
	st := git.RepoStatus{
		Branch:     "main",
		Modified:   []string{"a.csv"},
		Staged:     []string{},
		Untracked:  []string{"b.csv"},
		Conflicted: []string{},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, st))

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	require.Equal(t, "main", parsed["branch"])
	require.Equal(t, false, parsed["clean"])
	require.Equal(t, []any{"a.csv"}, parsed["modified"])
	require.Equal(t, []any{}, parsed["staged"])
	require.True(t, bytes.HasSuffix(buf.Bytes(), []byte("}\n")))
}

func TestWriteJSON_CommitShape(t *testing.T) {
	c := git.Commit{
		Sha:     "0123456789abcdef0123456789abcdef01234567",
		When:    time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC),
		Author:  "Ada",
		Message: "Update prices.csv",
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, []git.Commit{c}))

	var parsed []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &parsed))
	require.Len(t, parsed, 1)
	require.Equal(t, "0123456", parsed[0]["short_hash"])
	require.Equal(t, "2025-03-04T05:06:07Z", parsed[0]["timestamp"])
	require.Equal(t, []any{}, parsed[0]["parents"])
}

func TestWriteJSON_Unmarshalable(t *testing.T) {
	var buf bytes.Buffer
	err := WriteJSON(&buf, make(chan int))
	require.Error(t, err)
	require.Contains(t, err.Error(), "marshaling result")
}
