package labelmap

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpapenbr/owlracer-agent-go/pkg/model"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "labelmap.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    map[int64]model.DrivingCommand
		wantErr error
	}{
		{
			name:  "single group",
			input: "g1:\n  0: 1\n  1: 2\n",
			want:  map[int64]model.DrivingCommand{0: 1, 1: 2},
		},
		{
			name:  "groups are flattened",
			input: "speed:\n  0: 1\n  1: 2\nsteer:\n  2: 5\n  3: 6\n",
			want:  map[int64]model.DrivingCommand{0: 1, 1: 2, 2: 5, 3: 6},
		},
		{
			name:  "duplicate label across groups, last wins",
			input: "a:\n  0: 1\nb:\n  0: 4\n",
			want:  map[int64]model.DrivingCommand{0: 4},
		},
		{
			name:    "empty document",
			input:   "",
			wantErr: ErrEmpty,
		},
		{
			name:    "only empty groups",
			input:   "a: {}\n",
			wantErr: ErrEmpty,
		},
		{
			name:    "top level list",
			input:   "- 1\n- 2\n",
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "group is not a mapping",
			input:   "a: 3\n",
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "label is not an integer",
			input:   "a:\n  left: 3\n",
			wantErr: ErrInvalidFormat,
		},
		{
			name:    "broken yaml",
			input:   "a: [1, 2\n",
			wantErr: ErrInvalidFormat,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse([]byte(tt.input))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got.Entries()); diff != "" {
				t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParse_Duplicates(t *testing.T) {
	m, err := Parse([]byte("a:\n  0: 1\n  1: 2\nb:\n  0: 4\n"))
	require.NoError(t, err)

	want := []Duplicate{{
		Label: 0, PreviousGroup: "a", Previous: 1, Group: "b", Current: 4,
	}}
	if diff := cmp.Diff(want, m.Duplicates()); diff != "" {
		t.Errorf("Duplicates() mismatch (-want +got):\n%s", diff)
	}
	cmd, ok := m.Lookup(0)
	assert.True(t, ok)
	assert.Equal(t, model.DrivingCommand(4), cmd)
}

func TestLoad_Idempotent(t *testing.T) {
	path := writeFile(t, "g1:\n  0: 1\n  1: 2\ng2:\n  7: 3\n  1: 6\n")

	first, err := Load(path)
	require.NoError(t, err)
	second, err := Load(path)
	require.NoError(t, err)

	if diff := cmp.Diff(first.Entries(), second.Entries()); diff != "" {
		t.Errorf("second load differs (-first +second):\n%s", diff)
	}
	assert.Equal(t, []int64{0, 1, 7}, first.Labels())
	assert.Equal(t, 3, first.Len())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestNew_CopiesInput(t *testing.T) {
	src := map[int64]model.DrivingCommand{0: 1}
	m := New(src)
	src[0] = 2
	cmd, _ := m.Lookup(0)
	assert.Equal(t, model.CmdAccelerate, cmd)
}
