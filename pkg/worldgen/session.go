package worldgen

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/worldstream"
)

// Outcome is the end of one generation started through a Session.
type Outcome struct {
	Result worldstream.Result
	Err    error
	// Superseded is set when a later Start replaced this generation.
	Superseded bool
}

// Session runs at most one generation at a time. Starting a new one cancels
// the previous request and silences its updates.
type Session struct {
	client *Client

	mu      sync.Mutex
	current string
	cancel  context.CancelFunc
}

func NewSession(c *Client) *Session {
	return &Session{client: c}
}

// Start launches a generation. onUpdate is called from the generation
// goroutine for as long as this generation is current. The returned channel
// yields exactly one Outcome and is then closed.
func (s *Session) Start(ctx context.Context, req ai.Request, onUpdate func(worldstream.Update)) <-chan Outcome {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.current, s.cancel = id, cancel
	s.mu.Unlock()

	out := make(chan Outcome, 1)
	go func() {
		defer close(out)
		defer cancel()

		res, err := s.client.Generate(ctx, req,
			worldstream.WithID(id),
			worldstream.WithUpdates(func(u worldstream.Update) {
				if onUpdate != nil && s.IsCurrent(u.ID) {
					onUpdate(u)
				}
			}),
		)
		out <- Outcome{Result: res, Err: err, Superseded: !s.IsCurrent(id)}
	}()
	return out
}

// IsCurrent reports whether id belongs to the latest started generation.
func (s *Session) IsCurrent(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current == id
}

// Cancel aborts the in-flight generation, if any. Its outcome is reported as
// superseded.
func (s *Session) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.current = ""
}
