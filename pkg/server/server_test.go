package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/server"
	"github.com/renatogalera/worldgen/pkg/worldstream"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type textClient struct {
	ai.BaseAIClient
	out string
	err error
}

func (c textClient) GenerateText(context.Context, ai.Request) (string, error) {
	return c.out, c.err
}

type streamClient struct {
	textClient
	deltas []string
}

func (c streamClient) StreamText(_ context.Context, _ ai.Request, onDelta func(string)) (string, error) {
	var sb strings.Builder
	for _, d := range c.deltas {
		sb.WriteString(d)
		onDelta(d)
	}
	return sb.String(), c.err
}

func newHandler(client ai.AIClient, clientErr error) http.Handler {
	s := server.New(func(context.Context) (ai.AIClient, error) {
		return client, clientErr
	}, server.WithLogger(zerolog.Nop()))
	return s.Handler()
}

func post(t *testing.T, h http.Handler, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func lines(body string) []string {
	return strings.Split(strings.TrimRight(body, "\n"), "\n")
}

func TestRejectsBadRequests(t *testing.T) {
	t.Parallel()

	t.Run("missing input", func(t *testing.T) {
		t.Parallel()
		rec := post(t, newHandler(textClient{}, nil), "/api/llm", `{"input":"  "}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.JSONEq(t, `{"error":"Missing input prompt"}`, rec.Body.String())
	})

	t.Run("provider unavailable", func(t *testing.T) {
		t.Parallel()
		rec := post(t, newHandler(nil, errors.New("missing FAL_KEY")), "/api/llm", `{"input":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "missing FAL_KEY", gjson.Get(rec.Body.String(), "error").String())
	})

	t.Run("invalid json", func(t *testing.T) {
		t.Parallel()
		rec := post(t, newHandler(textClient{}, nil), "/api/llm", `{`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestNonStreaming(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		out  string
		want string
	}{
		{name: "json document", out: `{"title":"Atlas","prompt":"Of Rivers"}`, want: `{"title":"Atlas","prompt":"Of Rivers"}`},
		{name: "fenced document", out: "```json\n{\"title\":\"Atlas\",\"prompt\":\"Of Rivers\"}\n```", want: `{"title":"Atlas","prompt":"Of Rivers"}`},
		{name: "plain text", out: "a quiet harbor", want: `{"title":"","prompt":"a quiet harbor"}`},
		{name: "json without fields", out: `{"answer":1}`, want: `{"title":"","prompt":"{\"answer\":1}"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec := post(t, newHandler(textClient{out: tt.out}, nil), "/api/llm", `{"input":"x"}`)
			require.Equal(t, http.StatusOK, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
		})
	}

	t.Run("provider failure", func(t *testing.T) {
		t.Parallel()
		rec := post(t, newHandler(textClient{err: errors.New("boom")}, nil), "/api/llm", `{"input":"x"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.JSONEq(t, `{"error":"boom"}`, rec.Body.String())
	})
}

func TestStreaming(t *testing.T) {
	t.Parallel()

	client := streamClient{deltas: []string{`{"title":"At`, `las","prompt":"Riv`, `ers"}`}}
	rec := post(t, newHandler(client, nil), "/api/llm?stream=1", `{"input":"x"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-ndjson; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache, no-transform", rec.Header().Get("Cache-Control"))

	got := lines(rec.Body.String())
	require.Len(t, got, 3)
	assert.Equal(t, `las","prompt":"Riv`, gjson.Get(got[0], "prompt_delta").String())
	assert.Equal(t, `ers"}`, gjson.Get(got[1], "prompt_delta").String())
	assert.JSONEq(t, `{"title":"Atlas","prompt":"Rivers"}`, got[2])

	res := worldstream.DecodeString(rec.Body.String(), worldstream.WithLogger(zerolog.Nop()))
	assert.Equal(t, worldstream.SourceFinal, res.Source)
	assert.Equal(t, "Atlas", res.Title)
	assert.Equal(t, "Rivers", res.Prompt)
}

func TestStreamingDropsScaffolding(t *testing.T) {
	t.Parallel()

	client := streamClient{deltas: []string{"```json", "\n[", "drifting", " lanterns"}}
	rec := post(t, newHandler(client, nil), "/api/llm?stream=1", `{"input":"x"}`)
	got := lines(rec.Body.String())
	require.Len(t, got, 3)
	assert.Equal(t, "drifting", gjson.Get(got[0], "prompt_delta").String())
	assert.Equal(t, " lanterns", gjson.Get(got[1], "prompt_delta").String())
	assert.Equal(t, "", gjson.Get(got[2], "title").String())
}

func TestStreamingError(t *testing.T) {
	t.Parallel()

	client := streamClient{deltas: []string{"half a "}, textClient: textClient{err: errors.New("upstream closed")}}
	rec := post(t, newHandler(client, nil), "/api/llm?stream=1", `{"input":"x"}`)
	got := lines(rec.Body.String())
	require.Len(t, got, 2)
	assert.Equal(t, "half a ", gjson.Get(got[0], "prompt_delta").String())
	assert.JSONEq(t, `{"error":"upstream closed"}`, got[1])

	res := worldstream.DecodeString(rec.Body.String(), worldstream.WithLogger(zerolog.Nop()))
	require.ErrorIs(t, res.Err, worldstream.ErrUpstream)
	assert.Equal(t, "half a", res.Prompt)
}

func TestStreamingWithoutStreamingClient(t *testing.T) {
	t.Parallel()

	rec := post(t, newHandler(textClient{out: `{"title":"Atlas","prompt":"Of Rivers"}`}, nil), "/api/llm?stream=1", `{"input":"x"}`)
	got := lines(rec.Body.String())
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"title":"Atlas","prompt":"Of Rivers"}`, got[0])
}

func TestFinalPair(t *testing.T) {
	t.Parallel()

	title, prompt := server.FinalPair(`{"prompt":"only"}`)
	assert.Equal(t, "", title)
	assert.Equal(t, "only", prompt)

	title, prompt = server.FinalPair(`["a"]`)
	assert.Equal(t, "", title)
	assert.Equal(t, `["a"]`, prompt)
}
