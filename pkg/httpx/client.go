package httpx

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"
)

// NewDefaultClient returns an HTTP client suitable for SSE and NDJSON
// endpoints. Timeouts are managed by per-request contexts.
func NewDefaultClient() *http.Client {
	return &http.Client{
		Timeout: 0,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			// Keep raw bytes; compressed streams get buffered by some proxies.
			DisableCompression: true,
		},
	}
}

// ErrorFromResponse builds an error for a non-2xx response, preferring the
// message the server put in its JSON body.
func ErrorFromResponse(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if msg := ErrorMessage(body); msg != "" {
		return fmt.Errorf("API error (status %d): %s", resp.StatusCode, msg)
	}
	return fmt.Errorf("unexpected response (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

// ErrorMessage extracts a human readable message from common JSON error
// shapes: {"error":"..."}, {"error":{"message":"..."}} and {"detail":"..."}.
func ErrorMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range []string{"error.message", "error", "detail.0.msg", "detail", "message"} {
		if v := gjson.GetBytes(body, path); v.Type == gjson.String && strings.TrimSpace(v.Str) != "" {
			return v.Str
		}
	}
	return ""
}
