package worldstream

import (
	"regexp"
	"strings"
)

// Kind is the category LineClassifier assigns to a line.
type Kind int

const (
	KindEmpty Kind = iota
	KindFence
	KindJSON
	KindNoise
	KindLabeled
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindFence:
		return "fence"
	case KindJSON:
		return "json"
	case KindNoise:
		return "noise"
	case KindLabeled:
		return "labeled"
	default:
		return "other"
	}
}

// Field names one of the two accumulated outputs.
type Field int

const (
	FieldTitle Field = iota
	FieldPrompt
)

func (f Field) String() string {
	if f == FieldTitle {
		return "title"
	}
	return "prompt"
}

// Class is the outcome of classifying one line. Text holds the line to hand
// to Extract for KindJSON and the captured fragment for KindLabeled.
type Class struct {
	Kind  Kind
	Field Field
	Text  string
}

var labeledRe = regexp.MustCompile(`(?i)^\s*(title|prompt)\b\s*:?\s*(.*)$`)

// Classify decides what a line is. The order matters: a complete one-line
// object must reach Extract before the noise test can discard it.
func Classify(line string) Class {
	t := strings.TrimSpace(line)
	if t == "" {
		return Class{Kind: KindEmpty}
	}
	if strings.HasPrefix(t, Fence) {
		if IsFence(t) {
			return Class{Kind: KindFence}
		}
		return Classify(unfence(t))
	}
	if strings.HasPrefix(t, "{") && strings.HasSuffix(t, "}") {
		return Class{Kind: KindJSON, Text: t}
	}
	if LooksLikeJSON(t) {
		return Class{Kind: KindNoise}
	}
	if m := labeledRe.FindStringSubmatch(t); m != nil && m[2] != "" {
		field := FieldTitle
		if strings.EqualFold(m[1], "prompt") {
			field = FieldPrompt
		}
		return Class{Kind: KindLabeled, Field: field, Text: unquote(m[2])}
	}
	return Class{Kind: KindOther}
}

// unfence strips a fence opener (and a closer on the same line) from a line
// that carries content next to it, dropping a language tag glued to a JSON
// value.
func unfence(t string) string {
	body := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(t, Fence), Fence))
	if i := strings.IndexAny(body, "{["); i > 0 && fenceTagRe.MatchString(strings.TrimSpace(body[:i])) {
		body = body[i:]
	}
	return body
}

func unquote(s string) string {
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		return s[1 : len(s)-1]
	}
	return s
}
