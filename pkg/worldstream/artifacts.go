package worldstream

import (
	"regexp"
	"strings"
)

// Fence is the code-block delimiter models wrap around their output.
const Fence = "```"

// jsonString matches a double-quoted JSON string, escapes included.
const jsonString = `"(?:[^"\\]|\\.)*"`

var (
	fenceTagRe      = regexp.MustCompile(`^[A-Za-z0-9_+.-]*$`)
	fenceMarkerRe   = regexp.MustCompile("(?i)```(?:jsonl|ndjson|json|javascript|js|text|txt|markdown|md)?[ \t]*\r?\n?")
	jsonObjectRe    = regexp.MustCompile(`\{\s*\}|\{\s*` + jsonString + `\s*:(?:` + jsonString + `|[^{}"])*\}`)
	jsonKeyPrefixRe = regexp.MustCompile(`^"[^"]*"\s*:`)
	jsonPairRe      = regexp.MustCompile(`^"[^"]*"\s*:\s*"[^"]*"$`)
	protocolKeyRe   = regexp.MustCompile(`"(?:title_delta|prompt_delta|title|prompt|output)"\s*:`)
	deltaKeyRe      = regexp.MustCompile(`"?(?:title|prompt)_delta"?\s*:?\s*`)
)

// IsFence reports whether line is nothing but a fence delimiter with an
// optional language tag.
func IsFence(line string) bool {
	t := strings.TrimSpace(line)
	if !strings.HasPrefix(t, Fence) {
		return false
	}
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(t, Fence), Fence))
	return fenceTagRe.MatchString(body)
}

// LooksLikeJSON reports whether line reads as leaked JSON syntax: an object
// or array edge, a bare key, a lone separator, or a protocol key.
func LooksLikeJSON(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	switch {
	case strings.HasPrefix(t, "{"), strings.HasPrefix(t, "["):
		return true
	case strings.HasSuffix(t, "}"), strings.HasSuffix(t, "]"):
		return true
	case t == ",", t == "}":
		return true
	case jsonKeyPrefixRe.MatchString(t):
		return true
	}
	return protocolKeyRe.MatchString(t)
}

// isJSONSyntaxLine is the stricter line test used when cleaning text for
// display: only lines made purely of JSON syntax are dropped.
func isJSONSyntaxLine(line string) bool {
	t := strings.TrimSpace(line)
	switch {
	case t == ",", t == "}":
		return true
	case (strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")) &&
		(strings.HasSuffix(t, "}") || strings.HasSuffix(t, "]")):
		return true
	}
	return jsonPairRe.MatchString(t)
}

// HasArtifacts reports whether s still carries protocol residue: a fence,
// a delta key, or a JSON object. It gates SanitizeForDisplay so clean text
// that merely contains a brace is left alone.
func HasArtifacts(s string) bool {
	return strings.Contains(s, Fence) ||
		strings.Contains(s, "title_delta") ||
		strings.Contains(s, "prompt_delta") ||
		jsonObjectRe.MatchString(s)
}

// hasDeltaArtifacts is the cheaper gate used per delta.
func hasDeltaArtifacts(s string) bool {
	return strings.Contains(s, "{") ||
		strings.Contains(s, `"title`) ||
		strings.Contains(s, `"prompt`) ||
		strings.Contains(s, Fence)
}
