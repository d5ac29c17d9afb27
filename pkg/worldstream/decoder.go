// Package worldstream decodes the near-NDJSON stream produced by the world
// generation route into a clean title and prompt.
//
// Upstream models are not trusted to emit valid JSON: lines may be fenced,
// plain-text labeled, truncated, or carry a second copy of the protocol in
// the final prompt. The pipeline is
//
//	ReadChunks -> LineAssembler -> Classify -> Extract -> SanitizeDelta
//	-> accumulate -> Resolve -> SanitizeForDisplay
//
// and never hands raw JSON, fences or field labels to its caller.
package worldstream

import (
	"context"
	"io"
)

// Decode runs the whole pipeline over r. It always returns a resolved
// Result: read errors and cancellation end the stream early and are
// reported on Result.Err, taking precedence over an upstream error line.
func Decode(ctx context.Context, r io.Reader, opts ...Option) Result {
	st := NewStreamState(opts...)
	err := ReadChunks(ctx, r, st.Push)
	res := st.Finish()
	if err != nil {
		st.logger.Debug().Err(err).Str("generation", st.id).Msg("world stream ended early")
		res.Err = err
	}
	return res
}

// DecodeString decodes a complete body held in memory.
func DecodeString(body string, opts ...Option) Result {
	st := NewStreamState(opts...)
	st.Push(body)
	return st.Finish()
}
