package worldstream_test

import (
	"strings"
	"testing"

	"github.com/renatogalera/worldgen/pkg/worldstream"
	"github.com/stretchr/testify/assert"
)

var messyInputs = []string{
	"",
	"   ",
	`""`,
	"{}",
	"Lu",
	"na ",
	`line\nbreak`,
	`a\\nb`,
	`say \"hi\"`,
	`"title_delta": "Atlas"`,
	`"prompt":"Of Rivers"`,
	`prompt_delta: "x\"`,
	"\n\nhello\n",
	"```json\n{\"title_delta\":\"Atlas\"}\n```",
	"Atlas {\"title_delta\":\"x\"} rises",
	"a {brace} in prose",
	"{\"prompt\":\"{\\\"title\\\":\\\"deep\\\"}\"}",
	`\\\\\"`,
	"```",
	"title_delta prompt_delta",
}

func TestSanitizeDelta(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "Lu", want: "Lu"},
		{in: "na ", want: "na "},
		{in: " Archive", want: " Archive"},
		{in: "line\nbreak", want: "line\nbreak"},
		{in: `C:\new`, want: `C:\new`},
		{in: `say \"hi\"`, want: `say \"hi\"`},
		{in: `"title_delta": "Atlas"`, want: "Atlas"},
		{in: `"prompt": "Of Rivers"`, want: "Of Rivers"},
		{in: `prompt: "Of Rivers"`, want: `prompt: "Of Rivers"`},
		{in: "\n\nhello\n", want: "hello"},
		{in: "   ", want: ""},
		{in: `""`, want: ""},
		{in: "{}", want: ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, worldstream.SanitizeDelta(tt.in), "input %q", tt.in)
	}
}

func TestUnescape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: `line\nbreak`, want: "line\nbreak"},
		{in: `say \"hi\"`, want: `say "hi"`},
		{in: `back\\slash`, want: `back\slash`},
		{in: `C:\\new`, want: `C:\new`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, worldstream.Unescape(tt.in), "input %q", tt.in)
	}
}

func TestSanitizeDeltaIdempotent(t *testing.T) {
	t.Parallel()

	for _, in := range messyInputs {
		once := worldstream.SanitizeDelta(in)
		assert.Equal(t, once, worldstream.SanitizeDelta(once), "input %q", in)
	}
}

func TestSanitizeForDisplay(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "clean text untouched", in: "  a {brace} in prose ", want: "  a {brace} in prose "},
		{name: "fenced block", in: "```json\nGlass Harbor\n```", want: "Glass Harbor"},
		{name: "trailing fence", in: "Glass Harbor```", want: "Glass Harbor"},
		{name: "embedded object", in: "Atlas {\"title_delta\":\"x\"}", want: "Atlas"},
		{name: "delta key", in: "prompt_delta: rivers of glass", want: "rivers of glass"},
		{name: "syntax lines dropped", in: "{\"title\":\"A\"}\n,\nreal text", want: "real text"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, worldstream.SanitizeForDisplay(tt.in))
		})
	}
}

func TestSanitizeForDisplayIdempotentAndClean(t *testing.T) {
	t.Parallel()

	for _, in := range messyInputs {
		once := worldstream.SanitizeForDisplay(in)
		assert.Equal(t, once, worldstream.SanitizeForDisplay(once), "input %q", in)
		assert.False(t, worldstream.HasArtifacts(once), "input %q left %q", in, once)
		assert.NotContains(t, once, worldstream.Fence)
		assert.False(t, strings.Contains(once, "title_delta") || strings.Contains(once, "prompt_delta"))
	}
}
