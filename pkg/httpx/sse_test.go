package httpx_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/renatogalera/worldgen/pkg/httpx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamAggregate(t *testing.T) {
	t.Parallel()

	t.Run("aggregates openai style chunks", func(t *testing.T) {
		t.Parallel()
		body := strings.Join([]string{
			`: keep-alive`,
			`data: {"type":"metadata"}`,
			`data: {"choices":[{"delta":{"content":"Glass "}}]}`,
			``,
			`data: {"choices":[{"delta":{"content":"Harbor"},"finish_reason":"stop"}]}`,
			`data: {"choices":[{"delta":{"content":"ignored"}}]}`,
		}, "\n")
		var deltas []string
		out, err := httpx.StreamAggregate(context.Background(), strings.NewReader(body), httpx.OpenAIStyleDecoder, func(d string) {
			deltas = append(deltas, d)
		})
		require.NoError(t, err)
		assert.Equal(t, "Glass Harbor", out)
		assert.Equal(t, []string{"Glass ", "Harbor"}, deltas)
	})

	t.Run("stops at DONE", func(t *testing.T) {
		t.Parallel()
		body := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\ndata: [DONE]\ndata: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n"
		out, err := httpx.StreamAggregate(context.Background(), strings.NewReader(body), httpx.OpenAIStyleDecoder, nil)
		require.NoError(t, err)
		assert.Equal(t, "a", out)
	})

	t.Run("returns partial output on cancel", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		body := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\ndata: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n"
		out, err := httpx.StreamAggregate(ctx, strings.NewReader(body), httpx.OpenAIStyleDecoder, func(string) { cancel() })
		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, "a", out)
	})
}

func TestFirstOf(t *testing.T) {
	t.Parallel()

	never := func([]byte) (string, bool, bool) { return "", false, false }
	dec := httpx.FirstOf(never, httpx.OpenAIStyleDecoder)
	delta, done, ok := dec([]byte(`{"choices":[{"delta":{"content":"x"}}]}`))
	assert.True(t, ok)
	assert.False(t, done)
	assert.Equal(t, "x", delta)

	_, _, ok = dec([]byte(`not json`))
	assert.False(t, ok)
}

func TestErrorFromResponse(t *testing.T) {
	t.Parallel()

	for body, want := range map[string]string{
		`{"error":{"message":"bad key"}}`: "API error (status 401): bad key",
		`{"detail":"Unauthorized"}`:       "API error (status 401): Unauthorized",
		`<html>nope</html>`:               "unexpected response (status 401): <html>nope</html>",
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(body))
		}))
		resp, err := http.Get(srv.URL)
		require.NoError(t, err)
		err = httpx.ErrorFromResponse(resp)
		resp.Body.Close()
		srv.Close()
		assert.EqualError(t, err, want)
	}
}
