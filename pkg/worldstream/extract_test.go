package worldstream_test

import (
	"testing"

	"github.com/renatogalera/worldgen/pkg/worldstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract(t *testing.T) {
	t.Parallel()

	t.Run("direct parse", func(t *testing.T) {
		t.Parallel()
		f := worldstream.Extract(`{"title_delta":"Lu"}`)
		require.NotNil(t, f.TitleDelta)
		assert.Equal(t, "Lu", *f.TitleDelta)
		assert.Nil(t, f.PromptDelta)
		assert.Nil(t, f.Title)
		assert.Nil(t, f.Prompt)
		assert.False(t, f.HasFinal())
	})

	t.Run("empty string is not absent", func(t *testing.T) {
		t.Parallel()
		f := worldstream.Extract(`{"title":"","prompt":"x"}`)
		require.NotNil(t, f.Title)
		assert.Equal(t, "", *f.Title)
		assert.True(t, f.HasFinal())
	})

	t.Run("non string values carry no information", func(t *testing.T) {
		t.Parallel()
		f := worldstream.Extract(`{"title":1,"prompt":null}`)
		assert.True(t, f.IsZero())
	})

	t.Run("fence markers inside the line", func(t *testing.T) {
		t.Parallel()
		f := worldstream.Extract("```json{\"title\":\"A\",\"prompt\":\"B\"}```")
		require.True(t, f.HasFinal())
		assert.Equal(t, "A", *f.Title)
		assert.Equal(t, "B", *f.Prompt)
	})

	t.Run("regex fallback on truncated line", func(t *testing.T) {
		t.Parallel()
		f := worldstream.Extract(`{"prompt_delta":"half \"quoted\" text", "title_delta": }`)
		require.NotNil(t, f.PromptDelta)
		assert.Equal(t, `half "quoted" text`, *f.PromptDelta)
		assert.Nil(t, f.TitleDelta)
	})

	t.Run("regex fallback needs both final keys", func(t *testing.T) {
		t.Parallel()
		f := worldstream.Extract(`{"title":"Atlas", "prompt": oops}`)
		assert.Nil(t, f.Title)
		assert.Nil(t, f.Prompt)
	})

	t.Run("regex fallback on double encoded final pair", func(t *testing.T) {
		t.Parallel()
		f := worldstream.Extract(`{"title":"Atlas","prompt":"Of Rivers"} trailing}`)
		require.True(t, f.HasFinal())
		assert.Equal(t, "Atlas", *f.Title)
		assert.Equal(t, "Of Rivers", *f.Prompt)
	})
}

func TestIsNestedEcho(t *testing.T) {
	t.Parallel()

	str := func(s string) *string { return &s }
	echo := "```json\n{\"title_delta\":\"Atlas\"}\n```"

	assert.True(t, worldstream.IsNestedEcho(worldstream.Fields{Title: str(""), Prompt: str(echo)}))
	assert.True(t, worldstream.IsNestedEcho(worldstream.Fields{Prompt: str(echo)}))
	assert.False(t, worldstream.IsNestedEcho(worldstream.Fields{Title: str("Atlas"), Prompt: str(echo)}))
	assert.False(t, worldstream.IsNestedEcho(worldstream.Fields{Title: str(""), Prompt: str("plain prompt")}))
	assert.False(t, worldstream.IsNestedEcho(worldstream.Fields{}))
}
