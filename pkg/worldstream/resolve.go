package worldstream

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUpstream wraps an error message the route sent inside the stream.
var ErrUpstream = errors.New("upstream error")

// Source says which signal a Result was resolved from.
type Source int

const (
	SourceNone Source = iota
	SourceDeltas
	SourceFinal
	// SourceFallback marks results fetched through the non-streaming request.
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourceDeltas:
		return "deltas"
	case SourceFinal:
		return "final"
	case SourceFallback:
		return "fallback"
	default:
		return "none"
	}
}

// Result is the terminal title/prompt pair handed to the caller.
type Result struct {
	ID         string
	Title      string
	Prompt     string
	Source     Source
	NestedEcho bool
	// Err is the transport or upstream error that ended the stream early,
	// if any. The other fields still hold the best-effort resolution.
	Err error
}

// Empty reports whether nothing usable was decoded, which is the cue to
// retry through the non-streaming endpoint.
func (r Result) Empty() bool {
	return r.Source == SourceNone || (r.Title == "" && r.Prompt == "")
}

// Resolve applies the resolution policy: a final pair beats accumulated
// deltas, deltas beat nothing. A final field that is blank after cleaning
// falls back to its accumulator.
func (s *StreamState) Resolve() Result {
	r := Result{ID: s.id, NestedEcho: s.nestedEcho}
	if s.upstreamErr != "" {
		r.Err = fmt.Errorf("%w: %s", ErrUpstream, s.upstreamErr)
	}
	acTitle := clean(s.title.String())
	acPrompt := clean(s.prompt.String())
	switch {
	case s.hasFinal:
		r.Source = SourceFinal
		r.Title = firstNonBlank(clean(s.finalTitle), acTitle)
		r.Prompt = firstNonBlank(clean(s.finalPrompt), acPrompt)
	case s.receivedAny:
		r.Source = SourceDeltas
		r.Title, r.Prompt = acTitle, acPrompt
	}
	return r
}

func clean(s string) string {
	return strings.TrimSpace(SanitizeForDisplay(s))
}
