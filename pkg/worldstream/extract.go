package worldstream

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Fields is what Extract recovers from a line. A nil field carries no
// information, which is different from an empty string.
type Fields struct {
	TitleDelta  *string
	PromptDelta *string
	Title       *string
	Prompt      *string
	// Error is the message of an {"error": "..."} line sent by the route.
	Error *string
}

// HasFinal reports whether the line asserted both final values.
func (f Fields) HasFinal() bool {
	return f.Title != nil && f.Prompt != nil
}

// IsZero reports whether nothing was recovered.
func (f Fields) IsZero() bool {
	return f.TitleDelta == nil && f.PromptDelta == nil && f.Title == nil && f.Prompt == nil && f.Error == nil
}

var (
	titleDeltaRe  = fieldRe("title_delta")
	promptDeltaRe = fieldRe("prompt_delta")
	titleRe       = fieldRe("title")
	promptRe      = fieldRe("prompt")
	anyFenceRe    = regexp.MustCompile("```[A-Za-z0-9_+.-]*")
)

func fieldRe(key string) *regexp.Regexp {
	return regexp.MustCompile(`"` + key + `"\s*:\s*"((?:[^"\\]|\\.)*)"`)
}

// Extract recovers protocol fields from a structured-JSON candidate line.
// It tries a direct parse, then a parse of the de-fenced text, then per-key
// regular expressions, stopping at the first that succeeds.
func Extract(line string) Fields {
	if f, ok := parseObject(line); ok {
		return f
	}
	if f, ok := parseObject(defence(line)); ok {
		return f
	}
	return extractByRegex(line)
}

func parseObject(s string) (Fields, bool) {
	s = strings.TrimSpace(s)
	if s == "" || !gjson.Valid(s) {
		return Fields{}, false
	}
	obj := gjson.Parse(s)
	if !obj.IsObject() {
		return Fields{}, false
	}
	return Fields{
		TitleDelta:  stringField(obj, "title_delta"),
		PromptDelta: stringField(obj, "prompt_delta"),
		Title:       stringField(obj, "title"),
		Prompt:      stringField(obj, "prompt"),
		Error:       stringField(obj, "error"),
	}, true
}

func stringField(obj gjson.Result, key string) *string {
	v := obj.Get(key)
	if v.Type != gjson.String {
		return nil
	}
	s := v.Str
	return &s
}

// defence drops fence markers and keeps the outermost {...} span.
func defence(s string) string {
	s = anyFenceRe.ReplaceAllString(s, "")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

func extractByRegex(s string) Fields {
	var f Fields
	f.TitleDelta = matchField(titleDeltaRe, s)
	f.PromptDelta = matchField(promptDeltaRe, s)
	title, prompt := matchField(titleRe, s), matchField(promptRe, s)
	if title != nil && prompt != nil {
		f.Title, f.Prompt = title, prompt
	}
	return f
}

func matchField(re *regexp.Regexp, s string) *string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	v := decodeJSONString(m[1])
	return &v
}

// decodeJSONString resolves escapes in the body of a JSON string literal.
// Bodies that are not valid literals get the plain Unescape pass instead.
func decodeJSONString(raw string) string {
	quoted := `"` + raw + `"`
	if !gjson.Valid(quoted) {
		return Unescape(raw)
	}
	return gjson.Parse(quoted).Str
}

// IsNestedEcho reports whether f looks like the model echoed its own
// streaming protocol inside the final prompt value.
func IsNestedEcho(f Fields) bool {
	if f.Prompt == nil {
		return false
	}
	if f.Title != nil && strings.TrimSpace(*f.Title) != "" {
		return false
	}
	return strings.Contains(*f.Prompt, Fence) && strings.Contains(*f.Prompt, "title_delta")
}
