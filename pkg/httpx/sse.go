package httpx

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/tidwall/gjson"
)

// ChunkDecoder extracts a text delta from an SSE data payload.
// It returns (delta, done, ok).
//   - delta: text to append to the aggregate output
//   - done:  whether the stream signaled completion
//   - ok:    whether this payload was recognized/consumed
type ChunkDecoder func(data []byte) (delta string, done bool, ok bool)

// StreamAggregate reads text/event-stream content from r, calls decode for each
// `data:` line, forwards every non-empty delta to onDelta and aggregates the
// deltas until completion or EOF. Partial output is returned with any error.
func StreamAggregate(ctx context.Context, r io.Reader, decode ChunkDecoder, onDelta func(string)) (string, error) {
	scanner := bufio.NewScanner(r)
	const maxBuf = 1024 * 1024
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxBuf)

	var out strings.Builder
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return out.String(), err
		}
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}
		if payload == "[DONE]" {
			break
		}
		delta, done, ok := decode([]byte(payload))
		if !ok {
			continue
		}
		if delta != "" {
			out.WriteString(delta)
			if onDelta != nil {
				onDelta(delta)
			}
		}
		if done {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return out.String(), err
	}
	return out.String(), nil
}

// FirstOf tries each decoder in order and returns the first recognized result.
func FirstOf(decoders ...ChunkDecoder) ChunkDecoder {
	return func(data []byte) (string, bool, bool) {
		for _, d := range decoders {
			if delta, done, ok := d(data); ok {
				return delta, done, ok
			}
		}
		return "", false, false
	}
}

// OpenAIStyleDecoder decodes typical OpenAI-like SSE chunks where the payload
// is a JSON object with `choices[0].delta.content` and optional `type:"metadata"`.
func OpenAIStyleDecoder(data []byte) (string, bool, bool) {
	if !gjson.ValidBytes(data) {
		return "", false, false
	}
	sr := gjson.ParseBytes(data)
	if sr.Get("type").Str == "metadata" {
		return "", false, true
	}
	choices := sr.Get("choices")
	if !choices.IsArray() {
		return "", false, false
	}
	first := choices.Get("0")
	if !first.Exists() {
		return "", false, true
	}
	delta := first.Get("delta.content").Str
	done := first.Get("finish_reason").Str != ""
	return delta, done, true
}
