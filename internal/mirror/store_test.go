package mirror

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple", "nmgrl-ages", true},
		{"dots and underscores", "data_v2.0", true},
		{"empty", "", false},
		{"dot", ".", false},
		{"dotdot", "..", false},
		{"slash", "a/b", false},
		{"traversal", "../etc", false},
		{"space", "my repo", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidName(tt.input))
		})
	}
}

func TestStore_Path(t *testing.T) {
	root := t.TempDir()
	s := NewStore(root)

	p, err := s.Path("ages")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "ages"), p)

	again, err := s.Path("ages")
	require.NoError(t, err)
	assert.Equal(t, p, again)

	_, err = s.Path("../ages")
	assert.ErrorIs(t, err, ErrInvalidName)
}

func TestStore_SetupAndExists(t *testing.T) {
	root := filepath.Join(t.TempDir(), "nested", "repositories")
	s := NewStore(root)

	assert.False(t, s.Exists("ages"))
	require.NoError(t, s.Setup())
	require.NoError(t, s.Setup())

	info, err := os.Stat(root)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, os.Mkdir(filepath.Join(root, "ages"), 0755))
	assert.True(t, s.Exists("ages"))
	assert.False(t, s.Exists(".."))
}
