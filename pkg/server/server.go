// Package server exposes the LLM route the world generator talks to.
//
// POST /api/llm?stream=1 answers with newline-delimited JSON: a
// {"prompt_delta": ...} line per provider delta and a final
// {"title": ..., "prompt": ...} line. Without stream=1 the final document is
// returned on its own.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"golang.org/x/sync/errgroup"

	"github.com/renatogalera/worldgen/pkg/ai"
)

const (
	RoutePath       = "/api/llm"
	requestIDHeader = "X-Request-Id"
	shutdownTimeout = 5 * time.Second
)

// ClientFunc returns the provider client for one request. An error is reported
// to the caller as a 400, the way a missing API key is.
type ClientFunc func(ctx context.Context) (ai.AIClient, error)

// Server serves the LLM route.
type Server struct {
	clientFor ClientFunc
	logger    zerolog.Logger
	engine    *gin.Engine
}

type Option func(*Server)

// WithLogger replaces the global logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// New builds the gin engine around clientFor.
func New(clientFor ClientFunc, opts ...Option) *Server {
	s := &Server{clientFor: clientFor, logger: log.Logger}
	for _, opt := range opts {
		opt(s)
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())
	engine.POST(RoutePath, s.handleLLM)
	s.engine = engine
	return s
}

// Handler returns the http.Handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info().Str("addr", ln.Addr().String()).Msg("LLM route listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

type llmRequest struct {
	Model  string `json:"model"`
	System string `json:"system"`
	Input  string `json:"input"`
}

func (s *Server) handleLLM(c *gin.Context) {
	client, err := s.clientFor(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var body llmRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON body"})
		return
	}
	if strings.TrimSpace(body.Input) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing input prompt"})
		return
	}

	req := ai.Request{Model: body.Model, System: body.System, Input: body.Input}
	if c.Query("stream") == "1" {
		s.stream(c, client, req)
		return
	}

	out, err := client.GenerateText(c.Request.Context(), req)
	if err != nil {
		s.logger.Error().Err(err).Str("provider", client.ProviderName()).Msg("generation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	title, prompt := FinalPair(out)
	c.JSON(http.StatusOK, gin.H{"title": title, "prompt": prompt})
}

func (s *Server) stream(c *gin.Context, client ai.AIClient, req ai.Request) {
	c.Header("Content-Type", "application/x-ndjson; charset=utf-8")
	c.Header("Cache-Control", "no-cache, no-transform")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	emit := func(key, value string) {
		line, _ := sjson.SetBytes([]byte(`{}`), key, value)
		_, _ = c.Writer.Write(append(line, '\n'))
		c.Writer.Flush()
	}

	ctx := c.Request.Context()
	var (
		out string
		err error
	)
	if sc, ok := client.(ai.StreamingAIClient); ok {
		out, err = sc.StreamText(ctx, req, func(delta string) {
			if droppedDelta(delta) {
				return
			}
			emit("prompt_delta", delta)
		})
	} else {
		out, err = client.GenerateText(ctx, req)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("provider", client.ProviderName()).Msg("streaming generation failed")
		emit("error", err.Error())
		return
	}

	title, prompt := FinalPair(out)
	line, _ := sjson.SetBytes([]byte(`{}`), "title", title)
	line, _ = sjson.SetBytes(line, "prompt", prompt)
	_, _ = c.Writer.Write(append(line, '\n'))
	c.Writer.Flush()
}

// droppedDelta reports deltas that open a fence or a JSON document. They are
// protocol scaffolding, not prompt text.
func droppedDelta(d string) bool {
	t := strings.TrimSpace(d)
	return strings.HasPrefix(t, "```") || strings.HasPrefix(t, "{") || strings.HasPrefix(t, "[")
}

// FinalPair reads the provider's complete output. A JSON object carrying a
// title or prompt string is split into the pair; anything else becomes the
// prompt with an empty title.
func FinalPair(out string) (title, prompt string) {
	doc := ai.SanitizeResponse(out)
	if gjson.Valid(doc) {
		r := gjson.Parse(doc)
		t, p := r.Get("title"), r.Get("prompt")
		if r.IsObject() && (t.Type == gjson.String || p.Type == gjson.String) {
			return t.Str, p.Str
		}
	}
	return "", out
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		c.Next()

		s.logger.Info().
			Str("request_id", id).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Bool("stream", c.Query("stream") == "1").
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	}
}
