// Package worldgen asks the LLM route for a new world and turns its stream
// into a title and prompt, falling back to a plain request when the stream
// yields nothing usable.
package worldgen

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/httpx"
	"github.com/renatogalera/worldgen/pkg/worldstream"
)

var (
	// ErrGenerationFailed is returned when neither the stream nor the
	// fallback request produced a world. It wraps the underlying causes.
	ErrGenerationFailed = errors.New("world generation failed")
	ErrNoStream         = errors.New("response has no body to stream")
	ErrMissingInput     = errors.New("missing input prompt")
)

const maxFallbackBody = 1 << 20

type Client struct {
	endpoint string
	http     *http.Client
	logger   zerolog.Logger
	timeout  time.Duration
}

type ClientOption func(*Client)

func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.http = h }
}

func WithLogger(l zerolog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithTimeout bounds each Generate call, stream and fallback together.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.timeout = d }
}

// NewClient returns a client for the route at endpoint, e.g.
// http://127.0.0.1:8787/api/llm.
func NewClient(endpoint string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint: endpoint,
		http:     httpx.NewDefaultClient(),
		logger:   log.Logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate streams one world. Options are passed to the decoder, so callers
// can set the generation ID and receive incremental updates.
//
// Any usable stream result is returned, even when the stream broke off; the
// cause is left on Result.Err. Only a stream that yielded nothing triggers
// the non-streaming fallback. Cancellation never triggers it.
func (c *Client) Generate(ctx context.Context, req ai.Request, opts ...worldstream.Option) (worldstream.Result, error) {
	if strings.TrimSpace(req.Input) == "" {
		return worldstream.Result{}, ErrMissingInput
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	st := worldstream.NewStreamState(append([]worldstream.Option{worldstream.WithLogger(c.logger)}, opts...)...)
	streamErr := c.stream(ctx, req, st)
	res := st.Finish()
	if streamErr != nil {
		res.Err = streamErr
	}
	logger := c.logger.With().Str("generation", res.ID).Logger()

	if !res.Empty() {
		if res.Err != nil {
			logger.Warn().Err(res.Err).Str("source", res.Source.String()).Msg("stream ended early, keeping partial world")
		} else {
			logger.Debug().Str("source", res.Source.String()).Bool("nested_echo", res.NestedEcho).Msg("world resolved from stream")
		}
		return res, nil
	}
	if ctx.Err() != nil {
		return res, fmt.Errorf("%w: %w", ErrGenerationFailed, ctx.Err())
	}

	logger.Info().AnErr("stream_error", res.Err).Msg("stream yielded no usable world, trying non-streaming request")
	title, prompt, err := c.fetch(ctx, req)
	if err == nil {
		return worldstream.Result{ID: res.ID, Title: title, Prompt: prompt, Source: worldstream.SourceFallback}, nil
	}
	return res, fmt.Errorf("%w: %w", ErrGenerationFailed, errors.Join(res.Err, err))
}

func (c *Client) stream(ctx context.Context, req ai.Request, st *worldstream.StreamState) error {
	resp, err := c.post(ctx, req, true)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return httpx.ErrorFromResponse(resp)
	}
	if resp.Body == http.NoBody {
		return ErrNoStream
	}
	return worldstream.ReadChunks(ctx, resp.Body, st.Push)
}

func (c *Client) fetch(ctx context.Context, req ai.Request) (title, prompt string, err error) {
	resp, err := c.post(ctx, req, false)
	if err != nil {
		return "", "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", "", httpx.ErrorFromResponse(resp)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFallbackBody))
	if err != nil {
		return "", "", fmt.Errorf("reading fallback response: %w", err)
	}
	title, prompt, ok := worldstream.ParseDocument(body)
	if !ok {
		return "", "", errors.New("fallback response carried no title or prompt")
	}
	return title, prompt, nil
}

type routeRequest struct {
	Model  string `json:"model,omitempty"`
	System string `json:"system,omitempty"`
	Input  string `json:"input"`
}

func (c *Client) post(ctx context.Context, req ai.Request, stream bool) (*http.Response, error) {
	target, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint %q: %w", c.endpoint, err)
	}
	if stream {
		q := target.Query()
		q.Set("stream", "1")
		target.RawQuery = q.Encode()
	}

	data, err := json.Marshal(routeRequest{Model: req.Model, System: req.System, Input: req.Input})
	if err != nil {
		return nil, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, target.String(), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if stream {
		httpReq.Header.Set("Accept", "application/x-ndjson")
	}
	return c.http.Do(httpReq)
}
