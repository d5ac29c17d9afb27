package worldstream

import (
	"regexp"
	"strings"
)

var (
	labelPrefixRe = regexp.MustCompile(`(?i)^\s*"?(?:title_delta|prompt_delta|title|prompt)"?\s*:\s*"?`)
	unescaper     = strings.NewReplacer(`\\`, `\`, `\n`, "\n", `\"`, `"`)
)

// SanitizeDelta turns a delta fragment into plain text. Fragments carrying
// JSON residue lose a leading field label and a trailing stray quote. Spaces
// are content and survive, only line breaks are trimmed from the ends. The
// result is empty when nothing usable remains. SanitizeDelta is idempotent.
//
// Escapes are not touched: JSON values arrive decoded, and raw fragments go
// through Unescape once before they get here.
func SanitizeDelta(s string) string {
	for {
		next := sanitizeDeltaStep(s)
		if next == s {
			break
		}
		s = next
	}
	switch strings.TrimSpace(s) {
	case "", `""`, "{}":
		return ""
	}
	return s
}

// sanitizeDeltaStep never grows its input, so iterating it reaches a fixpoint.
func sanitizeDeltaStep(s string) string {
	if !hasDeltaArtifacts(s) {
		return trimLineBreaks(s)
	}
	s = strings.TrimSpace(s)
	s = labelPrefixRe.ReplaceAllString(s, "")
	s = strings.TrimSuffix(strings.TrimRight(s, " \t\r\n"), `"`)
	return trimLineBreaks(s)
}

// Unescape resolves \n, \" and \\ in a single pass. It is meant for text
// that never went through a JSON decoder.
func Unescape(s string) string {
	return unescaper.Replace(s)
}

func trimLineBreaks(s string) string {
	return strings.Trim(s, "\r\n")
}

// SanitizeForDisplay removes residual fences, delta keys and JSON objects from
// text about to be shown. Text without artifacts is returned unchanged; text
// with artifacts only ever loses characters, never reorders them.
// SanitizeForDisplay is idempotent.
func SanitizeForDisplay(s string) string {
	for HasArtifacts(s) {
		next := displayPass(s)
		if next == s {
			break
		}
		s = next
	}
	return s
}

func displayPass(s string) string {
	t := fenceMarkerRe.ReplaceAllString(s, "")
	t = jsonObjectRe.ReplaceAllString(t, "")
	t = deltaKeyRe.ReplaceAllString(t, "")

	lines := strings.Split(t, "\n")
	kept := lines[:0]
	for _, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" || isJSONSyntaxLine(line) {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}
