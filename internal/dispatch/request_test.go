package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/dvc-connector/internal/mirror"
)

func TestParseRequest(t *testing.T) {
	t.Run("flat", func(t *testing.T) {
		src, err := ParseRequest(map[string]any{"name": "ages", "clone_url": "https://example.org/ages.git", "extra": 1})
		require.NoError(t, err)
		assert.Equal(t, SourceRequest{Name: "ages", URL: "https://example.org/ages.git"}, src)
	})

	t.Run("nested repository is not read", func(t *testing.T) {
		tests := []map[string]any{
			{
				"ref": "refs/heads/master",
				"repository": map[string]any{
					"name":      "ages",
					"clone_url": "https://github.com/nmgrl/ages.git",
				},
			},
			{
				"clone_url": "https://example.org/ages.git",
				"repository": map[string]any{
					"name":      "other",
					"clone_url": "https://elsewhere.example/other.git",
				},
			},
		}
		for _, req := range tests {
			src, err := ParseRequest(req)
			assert.ErrorIs(t, err, ErrMalformedRequest)
			assert.Equal(t, SourceRequest{}, src)
		}
	})

	t.Run("invalid name", func(t *testing.T) {
		_, err := ParseRequest(map[string]any{"name": "a/b", "clone_url": "u"})
		assert.ErrorIs(t, err, ErrMalformedRequest)
		assert.ErrorIs(t, err, mirror.ErrInvalidName)
	})

	t.Run("repository not an object", func(t *testing.T) {
		_, err := ParseRequest(map[string]any{"repository": "ages"})
		assert.ErrorIs(t, err, ErrMalformedRequest)
	})
}
