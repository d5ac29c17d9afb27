package worldstream

import (
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Update is emitted every time an accepted delta grows an accumulator.
// Title and Prompt are the grown values, already cleaned for display.
type Update struct {
	ID     string
	Field  Field
	Delta  string
	Title  string
	Prompt string
}

// Option configures a StreamState.
type Option func(*StreamState)

// WithID sets the generation ID stamped on updates and results.
func WithID(id string) Option {
	return func(s *StreamState) { s.id = id }
}

// WithUpdates registers the callback that receives incremental updates.
func WithUpdates(fn func(Update)) Option {
	return func(s *StreamState) { s.onUpdate = fn }
}

// WithLogger replaces the global zerolog logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *StreamState) { s.logger = l }
}

// StreamState is the decoding state of one generation request. It is owned
// by a single goroutine; a new request gets a new StreamState.
type StreamState struct {
	id       string
	lines    LineAssembler
	onUpdate func(Update)
	logger   zerolog.Logger

	title  strings.Builder
	prompt strings.Builder

	finalTitle  string
	finalPrompt string
	hasFinal    bool
	nestedEcho  bool
	receivedAny bool
	upstreamErr string

	// nested states decode echoed protocol text and never recurse further.
	nested   bool
	finished bool
}

// NewStreamState returns an empty state with a fresh generation ID.
func NewStreamState(opts ...Option) *StreamState {
	s := &StreamState{
		id:     uuid.NewString(),
		logger: log.Logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the generation ID.
func (s *StreamState) ID() string { return s.id }

// ReceivedAny reports whether a non-empty delta or a final pair was seen.
func (s *StreamState) ReceivedAny() bool { return s.receivedAny }

// Title returns the raw title accumulator.
func (s *StreamState) Title() string { return s.title.String() }

// Prompt returns the raw prompt accumulator.
func (s *StreamState) Prompt() string { return s.prompt.String() }

// Push feeds one decoded chunk.
func (s *StreamState) Push(chunk string) {
	if s.finished {
		return
	}
	for _, line := range s.lines.Push(chunk) {
		s.ConsumeLine(line)
	}
}

// ConsumeLine runs one complete line through classification, extraction,
// sanitizing and accumulation.
func (s *StreamState) ConsumeLine(line string) {
	c := Classify(line)
	s.logger.Trace().Str("kind", c.Kind.String()).Str("line", line).Msg("world stream line")

	switch c.Kind {
	case KindJSON:
		s.consumeFields(Extract(c.Text))
	case KindLabeled:
		s.appendDelta(c.Field, Unescape(c.Text))
	}
}

func (s *StreamState) consumeFields(f Fields) {
	if f.Error != nil && s.upstreamErr == "" && !s.nested {
		s.upstreamErr = strings.TrimSpace(*f.Error)
		s.logger.Warn().Str("generation", s.id).Str("error", s.upstreamErr).Msg("route reported an error mid-stream")
	}
	if f.TitleDelta != nil {
		s.appendDelta(FieldTitle, *f.TitleDelta)
	}
	if f.PromptDelta != nil {
		s.appendDelta(FieldPrompt, *f.PromptDelta)
	}
	if !s.nested && IsNestedEcho(f) {
		s.recoverNested(*f.Prompt)
		return
	}
	if f.HasFinal() {
		s.setFinal(*f.Title, *f.Prompt)
	}
}

func (s *StreamState) appendDelta(field Field, raw string) {
	clean := SanitizeDelta(raw)
	if clean == "" {
		return
	}
	s.receivedAny = true
	if field == FieldTitle {
		s.title.WriteString(clean)
	} else {
		s.prompt.WriteString(clean)
	}
	if s.onUpdate != nil {
		s.onUpdate(Update{
			ID:     s.id,
			Field:  field,
			Delta:  clean,
			Title:  SanitizeForDisplay(s.title.String()),
			Prompt: SanitizeForDisplay(s.prompt.String()),
		})
	}
}

func (s *StreamState) setFinal(title, prompt string) {
	if s.hasFinal {
		s.logger.Debug().Str("generation", s.id).Msg("ignoring repeated final pair")
		return
	}
	s.finalTitle, s.finalPrompt = title, prompt
	s.hasFinal = true
	s.receivedAny = true
}

// recoverNested decodes protocol text the model echoed inside the final
// prompt. Delta keys win over final keys found in the echo.
func (s *StreamState) recoverNested(text string) {
	if !strings.Contains(text, "\n") && strings.Contains(text, `\n`) {
		text = Unescape(text)
	}
	inner := &StreamState{id: s.id, logger: s.logger, nested: true}
	inner.Push(text)
	inner.Finish()

	title := firstNonBlank(inner.Title(), inner.finalTitle)
	prompt := firstNonBlank(inner.Prompt(), inner.finalPrompt)
	s.logger.Warn().
		Str("generation", s.id).
		Bool("recovered_title", title != "").
		Bool("recovered_prompt", prompt != "").
		Msg("final prompt echoed the stream protocol, re-extracted it")
	s.nestedEcho = true
	s.setFinal(title, prompt)
}

// Finish flushes the trailing partial line and resolves the result. Later
// calls return the same resolution without consuming anything.
func (s *StreamState) Finish() Result {
	if !s.finished {
		if line, ok := s.lines.Flush(); ok {
			s.ConsumeLine(line)
		}
		s.finished = true
	}
	return s.Resolve()
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
