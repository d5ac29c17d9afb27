package ai

import (
	"context"
	"strings"
)

// Request is one world generation call: a system prompt, the user input and
// an optional model override.
type Request struct {
	Model  string
	System string
	Input  string
}

// AIClient generates text in a single round trip.
type AIClient interface {
	GenerateText(ctx context.Context, req Request) (string, error)
	ProviderName() string
}

// StreamingAIClient is implemented by providers that can emit text deltas.
// StreamText returns the full text, or whatever was accumulated when it fails.
type StreamingAIClient interface {
	AIClient
	StreamText(ctx context.Context, req Request, onDelta func(string)) (string, error)
}

// BaseAIClient carries behaviour shared by every provider.
type BaseAIClient struct {
	Provider string
}

func (b BaseAIClient) ProviderName() string {
	return b.Provider
}

// ModelOr returns the request's model, or fallback when none was asked for.
func (r Request) ModelOr(fallback string) string {
	if m := strings.TrimSpace(r.Model); m != "" {
		return m
	}
	return fallback
}

// SanitizeResponse trims the output and unwraps a single surrounding code fence.
func (b BaseAIClient) SanitizeResponse(message string) string {
	return SanitizeResponse(message)
}

// SanitizeResponse is the provider-independent form of
// BaseAIClient.SanitizeResponse.
func SanitizeResponse(message string) string {
	msg := strings.TrimSpace(message)
	if !strings.HasPrefix(msg, "```") || !strings.HasSuffix(msg, "```") || len(msg) < 6 {
		return msg
	}
	inner := strings.TrimSuffix(strings.TrimPrefix(msg, "```"), "```")
	// drop a language tag on the opening line
	if i := strings.IndexByte(inner, '\n'); i >= 0 && !strings.ContainsAny(inner[:i], " \t{[") {
		inner = inner[i+1:]
	}
	return strings.TrimSpace(inner)
}
