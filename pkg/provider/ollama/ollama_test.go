package ollama_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/provider/ollama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOllamaClientValidates(t *testing.T) {
	t.Parallel()

	_, err := ollama.NewOllamaClient("ollama", "localhost", "llama3.1")
	require.Error(t, err)
	_, err = ollama.NewOllamaClient("ollama", "http://localhost:11434", " ")
	require.Error(t, err)
}

func TestStreamText(t *testing.T) {
	t.Parallel()

	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/x-ndjson")
		for _, line := range []string{
			`{"model":"llama3.1","response":"{\"title_delta\":","done":false}`,
			`{"model":"llama3.1","response":"\"Atlas\"}\n","done":false}`,
			`{"model":"llama3.1","response":"","done":true}`,
		} {
			_, _ = w.Write([]byte(line + "\n"))
		}
	}))
	defer srv.Close()

	c, err := ollama.NewOllamaClient("ollama", srv.URL, "llama3.1")
	require.NoError(t, err)

	var deltas []string
	out, err := c.StreamText(context.Background(), ai.Request{System: "sys", Input: "make a world"}, func(d string) {
		deltas = append(deltas, d)
	})
	require.NoError(t, err)
	assert.Equal(t, "{\"title_delta\":\"Atlas\"}\n", out)
	assert.Len(t, deltas, 2)
	assert.Equal(t, "sys", got["system"])
	assert.Equal(t, "make a world", got["prompt"])
	assert.Equal(t, true, got["stream"])
}
