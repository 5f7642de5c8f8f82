package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDrafts(t *testing.T) {
	t.Run("plain array", func(t *testing.T) {
		drafts, err := parseDrafts(`[{"content":"idea one","x":100,"y":400,"priority":"high"}]`)
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.Equal(t, "idea one", drafts[0].Content)
		assert.Equal(t, 100.0, drafts[0].X)
		assert.Equal(t, "high", drafts[0].Priority)
	})

	t.Run("markdown fenced output", func(t *testing.T) {
		content := "```json\n[{\"content\":\"idea one\",\"x\":10,\"y\":20}]\n```"
		drafts, err := parseDrafts(content)
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.Equal(t, "idea one", drafts[0].Content)
	})

	t.Run("prose around the array", func(t *testing.T) {
		content := `Here are some ideas: [{"content":"idea one"},{"content":"idea two"}] Hope that helps!`
		drafts, err := parseDrafts(content)
		require.NoError(t, err)
		assert.Len(t, drafts, 2)
	})

	t.Run("blank content entries are dropped", func(t *testing.T) {
		drafts, err := parseDrafts(`[{"content":"  "},{"content":"kept"}]`)
		require.NoError(t, err)
		require.Len(t, drafts, 1)
		assert.Equal(t, "kept", drafts[0].Content)
	})

	t.Run("no array is an error", func(t *testing.T) {
		_, err := parseDrafts("Sorry, I can't help with that.")
		assert.Error(t, err)
	})

	t.Run("malformed json is an error", func(t *testing.T) {
		_, err := parseDrafts(`[{"content": "unterminated`)
		assert.Error(t, err)
	})
}
