// Package fal talks to fal.ai's any-llm application, which fronts a range of
// hosted chat models behind one queue-less HTTP endpoint.
package fal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/httpx"
)

const appPath = "/fal-ai/any-llm"

type Client struct {
	ai.BaseAIClient
	http    *http.Client
	apiKey  string
	model   string
	baseURL string
}

// NewFalClient builds a client. A nil httpClient selects httpx.NewDefaultClient.
func NewFalClient(provider, apiKey, model, baseURL string, httpClient *http.Client) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("fal API key is required")
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("fal baseURL is required")
	}
	if httpClient == nil {
		httpClient = httpx.NewDefaultClient()
	}
	return &Client{
		BaseAIClient: ai.BaseAIClient{Provider: provider},
		http:         httpClient,
		apiKey:       apiKey,
		model:        model,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}, nil
}

type input struct {
	Prompt       string `json:"prompt"`
	SystemPrompt string `json:"system_prompt,omitempty"`
	Model        string `json:"model,omitempty"`
	Priority     string `json:"priority"`
}

func (c *Client) newRequest(ctx context.Context, path string, req ai.Request) (*http.Request, error) {
	data, err := json.Marshal(input{
		Prompt:       req.Input,
		SystemPrompt: req.System,
		Model:        req.ModelOr(c.model),
		Priority:     "latency",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Key "+c.apiKey)
	return httpReq, nil
}

func (c *Client) GenerateText(ctx context.Context, req ai.Request) (string, error) {
	httpReq, err := c.newRequest(ctx, appPath, req)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", httpx.ErrorFromResponse(resp)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}
	body := buf.Bytes()
	if msg := gjson.GetBytes(body, "error").Str; msg != "" {
		return "", fmt.Errorf("fal error: %s", msg)
	}
	out := gjson.GetBytes(body, "output").Str
	if strings.TrimSpace(out) == "" {
		return "", errors.New("no output received from fal")
	}
	return out, nil
}

func (c *Client) StreamText(ctx context.Context, req ai.Request, onDelta func(string)) (string, error) {
	httpReq, err := c.newRequest(ctx, appPath+"/stream", req)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", httpx.ErrorFromResponse(resp)
	}
	return httpx.StreamAggregate(ctx, resp.Body, httpx.FirstOf(NewEventDecoder(), httpx.OpenAIStyleDecoder), onDelta)
}

// NewEventDecoder returns a decoder for fal stream events. Events carry
// either an explicit delta (delta.content or delta.output) or the cumulative
// output so far; cumulative output is turned into the new suffix. The decoder
// is stateful and serves a single stream.
func NewEventDecoder() httpx.ChunkDecoder {
	var prev string
	return func(data []byte) (string, bool, bool) {
		if !gjson.ValidBytes(data) {
			return "", false, false
		}
		ev := gjson.ParseBytes(data)
		for _, path := range []string{"delta.content", "delta.output"} {
			if d := ev.Get(path); d.Type == gjson.String {
				return d.Str, false, true
			}
		}
		out := ev.Get("output")
		if out.Type != gjson.String {
			return "", false, false
		}
		cur := out.Str
		delta := ""
		if strings.HasPrefix(cur, prev) {
			delta = cur[len(prev):]
		} else {
			log.Debug().Int("prev", len(prev)).Int("cur", len(cur)).Msg("fal output rewound, skipping event")
		}
		prev = cur
		partial := ev.Get("partial")
		return delta, partial.Exists() && !partial.Bool(), true
	}
}

var _ ai.StreamingAIClient = (*Client)(nil)
