package worldstream

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ParseDocument reads a complete, non-streaming route response. Title comes
// from "title" or "data.title"; prompt from "prompt", "data.prompt" or
// "output". An output that is itself a JSON document is unwrapped once.
// Both values are cleaned for display. ok is false when neither is present.
func ParseDocument(body []byte) (title, prompt string, ok bool) {
	if !gjson.ValidBytes(body) {
		return "", "", false
	}
	doc := gjson.ParseBytes(body)
	title = firstString(doc, "title", "data.title")
	prompt = firstString(doc, "prompt", "data.prompt")
	if prompt == "" {
		out := doc.Get("output").Str
		if t, p, inner := ParseDocument([]byte(strings.TrimSpace(out))); inner && doc.Get("output").Type == gjson.String {
			if title == "" {
				title = t
			}
			prompt = p
		} else {
			prompt = out
		}
	}
	title, prompt = clean(title), clean(prompt)
	return title, prompt, title != "" || prompt != ""
}

func firstString(doc gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := doc.Get(p); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return v.Str
		}
	}
	return ""
}
