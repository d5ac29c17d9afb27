package ui

import (
	"context"
	"errors"
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/prompt"
	"github.com/renatogalera/worldgen/pkg/worldgen"
	"github.com/renatogalera/worldgen/pkg/worldstream"
)

type fakeGenerator struct {
	updates   []worldstream.Update
	outcome   worldgen.Outcome
	requests  []ai.Request
	cancelled int
}

func (g *fakeGenerator) Start(_ context.Context, req ai.Request, onUpdate func(worldstream.Update)) <-chan worldgen.Outcome {
	g.requests = append(g.requests, req)
	for _, u := range g.updates {
		onUpdate(u)
	}
	ch := make(chan worldgen.Outcome, 1)
	ch <- g.outcome
	close(ch)
	return ch
}

func (g *fakeGenerator) Cancel() { g.cancelled++ }

func keyPress(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func step(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	nm, ok := next.(Model)
	require.True(t, ok)
	return nm, cmd
}

func newTestModel(gen Generator, saved *[]worldstream.Result) Model {
	return NewModel(gen, Options{
		Language: "en",
		Slot:     1,
		Current:  prompt.World{Title: "Atlas", Prompt: "Of Rivers"},
		Build: func(extra string) ai.Request {
			return ai.Request{Input: "make a world " + extra}
		},
		Save: func(res worldstream.Result) (string, error) {
			if saved != nil {
				*saved = append(*saved, res)
			}
			return "saved " + res.Title, nil
		},
	})
}

var luna = worldstream.Result{ID: "g1", Title: "Luna", Prompt: "na Archive", Source: worldstream.SourceDeltas}

func TestStreamingUpdatesRender(t *testing.T) {
	t.Parallel()
	m := newTestModel(&fakeGenerator{}, nil)

	m, cmd := step(t, m, streamUpdateMsg{seq: 1, update: worldstream.Update{Title: "Lu", Prompt: "na "}})
	assert.NotNil(t, cmd)
	assert.Equal(t, "Lu", m.title)
	assert.Contains(t, m.View(), "Lu")

	m, _ = step(t, m, streamUpdateMsg{seq: 0, update: worldstream.Update{Title: "stale"}})
	assert.Equal(t, "Lu", m.title)

	m, _ = step(t, m, streamDoneMsg{seq: 1, outcome: worldgen.Outcome{Result: luna}})
	assert.Equal(t, stateShowWorld, m.state)
	view := m.View()
	assert.Contains(t, view, "Luna")
	assert.Contains(t, view, "na Archive")
	assert.Contains(t, view, "Source: deltas")
}

func TestSupersededOutcomeIgnored(t *testing.T) {
	t.Parallel()
	m := newTestModel(&fakeGenerator{}, nil)

	m, _ = step(t, m, streamDoneMsg{seq: 1, outcome: worldgen.Outcome{Result: luna, Superseded: true}})
	assert.Equal(t, stateGenerating, m.state)
}

func TestFallbackIsRevealed(t *testing.T) {
	t.Parallel()
	m := newTestModel(&fakeGenerator{}, nil)

	res := worldstream.Result{Title: "Atlas", Prompt: "Of Rivers", Source: worldstream.SourceFallback}
	m, _ = step(t, m, streamDoneMsg{seq: 1, outcome: worldgen.Outcome{Result: res}})
	require.True(t, m.revealActive)
	assert.Equal(t, stateGenerating, m.state)

	for i := 0; i < 20 && m.state == stateGenerating; i++ {
		m, _ = step(t, m, spinner.TickMsg{})
	}
	assert.Equal(t, stateShowWorld, m.state)
	assert.Equal(t, "Of Rivers", m.displayed)
}

func TestGenerationFailureShowsError(t *testing.T) {
	t.Parallel()
	m := newTestModel(&fakeGenerator{}, nil)

	m, _ = step(t, m, streamDoneMsg{seq: 1, outcome: worldgen.Outcome{Err: worldgen.ErrGenerationFailed}})
	assert.Equal(t, stateShowWorld, m.state)
	assert.Contains(t, m.View(), "Generation failed")

	m, cmd := step(t, m, keyPress("y"))
	assert.Nil(t, cmd)
	assert.Equal(t, "Nothing to save yet.", m.errMsg)
}

func TestSaveFlow(t *testing.T) {
	t.Parallel()
	var saved []worldstream.Result
	m := newTestModel(&fakeGenerator{}, &saved)
	m, _ = step(t, m, streamDoneMsg{seq: 1, outcome: worldgen.Outcome{Result: luna}})

	m, cmd := step(t, m, keyPress("y"))
	require.NotNil(t, cmd)
	assert.Equal(t, stateSaving, m.state)

	msg := saveCmd(m.opts.Save, m.res)()
	m, _ = step(t, m, msg)
	assert.True(t, m.Saved())
	assert.Equal(t, stateResult, m.state)
	assert.Equal(t, "saved Luna", m.result)
	require.Len(t, saved, 1)
	assert.Equal(t, "na Archive", saved[0].Prompt)
}

func TestSaveFailureReturnsToWorld(t *testing.T) {
	t.Parallel()
	m := newTestModel(&fakeGenerator{}, nil)
	m, _ = step(t, m, streamDoneMsg{seq: 1, outcome: worldgen.Outcome{Result: luna}})
	m, _ = step(t, m, keyPress("y"))

	m, _ = step(t, m, saveResultMsg{err: errors.New("disk full")})
	assert.Equal(t, stateShowWorld, m.state)
	assert.False(t, m.Saved())
	assert.Contains(t, m.errMsg, "disk full")
}

func TestRegenerate(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{outcome: worldgen.Outcome{Result: luna}}
	m := newTestModel(gen, nil)
	m, _ = step(t, m, streamDoneMsg{seq: 1, outcome: worldgen.Outcome{Result: luna}})

	m, cmd := step(t, m, keyPress("r"))
	require.NotNil(t, cmd)
	assert.Equal(t, 2, m.seq)
	assert.Equal(t, stateGenerating, m.state)
	assert.Empty(t, m.title)

	// the first generation finishing late changes nothing
	m, _ = step(t, m, streamDoneMsg{seq: 1, outcome: worldgen.Outcome{Result: luna}})
	assert.Equal(t, stateGenerating, m.state)
}

func TestRegenerateLimit(t *testing.T) {
	t.Parallel()
	m := newTestModel(&fakeGenerator{}, nil)
	m.opts.MaxRegens = 1
	m, _ = step(t, m, streamDoneMsg{seq: 1, outcome: worldgen.Outcome{Result: luna}})
	m, _ = step(t, m, keyPress("r"))
	m, _ = step(t, m, streamDoneMsg{seq: 2, outcome: worldgen.Outcome{Result: luna}})

	m, cmd := step(t, m, keyPress("r"))
	assert.NotNil(t, cmd)
	assert.Equal(t, stateResult, m.state)
	assert.Contains(t, m.result, "Maximum regenerations (1)")
}

func TestEditContextRegenerates(t *testing.T) {
	t.Parallel()
	m := newTestModel(&fakeGenerator{}, nil)
	m, _ = step(t, m, streamDoneMsg{seq: 1, outcome: worldgen.Outcome{Result: luna}})

	m, _ = step(t, m, keyPress("p"))
	require.Equal(t, stateEditingContext, m.state)
	m.textarea.SetValue("  floating gardens ")

	m, cmd := step(t, m, tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	assert.Equal(t, "floating gardens", m.extra)
	assert.Equal(t, stateGenerating, m.state)
}

func TestDiffView(t *testing.T) {
	t.Parallel()
	m := newTestModel(&fakeGenerator{}, nil)
	m, _ = step(t, m, streamDoneMsg{seq: 1, outcome: worldgen.Outcome{Result: luna}})

	m, _ = step(t, m, keyPress("l"))
	require.Equal(t, stateShowDiff, m.state)
	assert.Contains(t, m.View(), "Prompt (+")

	m, _ = step(t, m, keyPress("q"))
	assert.Equal(t, stateShowWorld, m.state)
}

func TestQuitCancelsGeneration(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{}
	m := newTestModel(gen, nil)

	_, cmd := step(t, m, keyPress("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, 1, gen.cancelled)
}

func TestStartCmdWiresGenerator(t *testing.T) {
	t.Parallel()
	gen := &fakeGenerator{outcome: worldgen.Outcome{Result: luna}}

	msg := startCmd(gen, 7, ai.Request{Input: "x"})()
	started, ok := msg.(streamStartedMsg)
	require.True(t, ok)
	assert.Equal(t, 7, started.seq)
	require.Len(t, gen.requests, 1)

	out := <-started.done
	assert.Equal(t, "Luna", out.Result.Title)
}

func TestOfferLatestKeepsNewest(t *testing.T) {
	t.Parallel()
	ch := make(chan worldstream.Update, 1)
	for _, title := range []string{"L", "Lu", "Luna"} {
		offerLatest(ch, worldstream.Update{Title: title})
	}
	assert.Equal(t, "Luna", (<-ch).Title)
	assert.Empty(t, ch)
}
