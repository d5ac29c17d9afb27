package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/prompt"
	"github.com/renatogalera/worldgen/pkg/worldgen"
	"github.com/renatogalera/worldgen/pkg/worldstream"
)

// uiState represents the different states of the TUI.
type uiState int

const (
	stateGenerating uiState = iota
	stateShowWorld
	stateSaving
	stateResult
	stateEditingContext
	stateShowDiff
)

// Generator runs one generation at a time; worldgen.Session implements it.
type Generator interface {
	Start(ctx context.Context, req ai.Request, onUpdate func(worldstream.Update)) <-chan worldgen.Outcome
	Cancel()
}

type (
	streamStartedMsg struct {
		seq     int
		updates <-chan worldstream.Update
		done    <-chan worldgen.Outcome
	}
	streamUpdateMsg struct {
		seq    int
		update worldstream.Update
	}
	streamDoneMsg struct {
		seq     int
		outcome worldgen.Outcome
	}
	saveResultMsg struct {
		msg string
		err error
	}
	autoQuitMsg struct{}
)

var (
	logoStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62"))

	logoText = `WORLDGEN`

	worldBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63")).
			Padding(1, 2).
			Margin(1, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	infoLineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			Margin(0, 1).
			Italic(true)

	errorBoxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Foreground(lipgloss.Color("196")).
			Bold(true).
			Padding(1, 2).
			Margin(1, 1)
)

type keys struct {
	Save       key.Binding
	Regenerate key.Binding
	Context    key.Binding
	ViewDiff   key.Binding
	Quit       key.Binding
	Help       key.Binding
}

var keyMap = keys{
	Save: key.NewBinding(
		key.WithKeys("y", "enter"),
		key.WithHelp("y", "save world"),
	),
	Regenerate: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "regenerate"),
	),
	Context: key.NewBinding(
		key.WithKeys("p"),
		key.WithHelp("p", "add context"),
	),
	ViewDiff: key.NewBinding(
		key.WithKeys("l"),
		key.WithHelp("l", "diff vs current"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c", "esc"),
		key.WithHelp("q", "quit"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
}

// Options configures the world view.
type Options struct {
	Language string
	Slot     int
	// Current is the world the new one would replace; empty for a fresh slot.
	Current prompt.World
	// Build turns extra user context into the request sent to the route.
	Build func(extra string) ai.Request
	// Save persists the shown world and returns a line for the result screen.
	Save      func(res worldstream.Result) (string, error)
	MaxRegens int
}

type Model struct {
	opts  Options
	gen   Generator
	state uiState

	// seq tags the messages of one generation; older ones are dropped.
	seq     int
	updates <-chan worldstream.Update
	done    <-chan worldgen.Outcome

	title   string
	prompt  string
	res     worldstream.Result
	extra   string
	saved   bool
	result  string
	errMsg  string
	spinner spinner.Model

	// animation
	progress     progress.Model
	progValue    float64
	dotFrame     int
	revealActive bool
	displayed    string

	regenCount int

	textarea textarea.Model
	help     help.Model

	width  int
	height int
}

// NewModel creates the world view. Generation starts in Init.
func NewModel(gen Generator, opts Options) Model {
	if opts.MaxRegens <= 0 {
		opts.MaxRegens = 3
	}

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	ta := textarea.New()
	ta.Placeholder = "Steer the next world: a place, a mood, a technology..."
	ta.Prompt = "> "
	ta.SetWidth(80)
	ta.SetHeight(6)
	ta.ShowLineNumbers = false

	return Model{
		opts:     opts,
		gen:      gen,
		state:    stateGenerating,
		seq:      1,
		spinner:  newSpinner(),
		progress: p,
		textarea: ta,
		help:     help.New(),
	}
}

// NewProgram creates a new Bubble Tea program with the given model.
func NewProgram(m Model) *tea.Program {
	return tea.NewProgram(m, tea.WithAltScreen())
}

func newSpinner() spinner.Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	return s
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, startCmd(m.gen, m.seq, m.opts.Build(m.extra)))
}

// Saved reports whether the world was persisted.
func (m Model) Saved() bool { return m.saved }

// Result returns the last resolved world.
func (m Model) Result() worldstream.Result { return m.res }

// --- UPDATE ------------------------------------------------------------------

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	if p, pcmd := m.progress.Update(msg); pcmd != nil {
		m.progress = p.(progress.Model)
		cmds = append(cmds, pcmd)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.textarea.SetWidth(max(min(m.width-4, 80), 20))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case streamStartedMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.updates, m.done = msg.updates, msg.done
		return m, waitStreamCmd(m.seq, m.updates, m.done)

	case streamUpdateMsg:
		if msg.seq != m.seq {
			return m, nil
		}
		m.title, m.prompt = msg.update.Title, msg.update.Prompt
		return m, waitStreamCmd(m.seq, m.updates, m.done)

	case streamDoneMsg:
		if msg.seq != m.seq || msg.outcome.Superseded {
			return m, nil
		}
		return m.finish(msg.outcome)

	case saveResultMsg:
		if msg.err != nil {
			m.errMsg = fmt.Sprintf("Save failed: %v", msg.err)
			m.state = stateShowWorld
			return m, nil
		}
		m.saved = true
		m.result = msg.msg
		m.state = stateResult
		return m, autoQuitCmd()

	case autoQuitMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		if m.state == stateGenerating || m.state == stateSaving {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
			m.progValue += 0.03
			if m.progValue > 1.2 {
				m.progValue = 0
			}
			m.dotFrame = (m.dotFrame + 1) % 4
			if m.revealActive {
				m.advanceReveal()
			}
			cmds = append(cmds, m.progress.SetPercent(m.progValue))
		}
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.state == stateEditingContext {
		var tcmd tea.Cmd
		m.textarea, tcmd = m.textarea.Update(msg)
		switch msg.String() {
		case "ctrl+s":
			m.extra = strings.TrimSpace(m.textarea.Value())
			m.textarea.Blur()
			return m.regenerate()
		case "esc":
			m.textarea.Blur()
			m.state = stateShowWorld
			return m, nil
		}
		return m, tcmd
	}

	if key.Matches(msg, keyMap.Quit) {
		if m.state == stateShowDiff {
			m.state = stateShowWorld
			return m, nil
		}
		if m.gen != nil {
			m.gen.Cancel()
		}
		return m, tea.Quit
	}
	if key.Matches(msg, keyMap.Help) {
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.state != stateShowWorld {
		return m, nil
	}
	switch {
	case key.Matches(msg, keyMap.Save):
		if m.res.Empty() {
			m.errMsg = "Nothing to save yet."
			return m, nil
		}
		m.state = stateSaving
		m.errMsg = ""
		m.spinner = newSpinner()
		return m, tea.Batch(m.spinner.Tick, saveCmd(m.opts.Save, m.res))
	case key.Matches(msg, keyMap.Regenerate):
		return m.regenerate()
	case key.Matches(msg, keyMap.Context):
		m.state = stateEditingContext
		m.errMsg = ""
		m.textarea.SetValue(m.extra)
		m.textarea.Focus()
		return m, nil
	case key.Matches(msg, keyMap.ViewDiff):
		if m.opts.Current.Prompt == "" && m.opts.Current.Title == "" {
			m.errMsg = "This slot has no world to compare against."
			return m, nil
		}
		m.state = stateShowDiff
		return m, nil
	}
	return m, nil
}

func (m Model) regenerate() (tea.Model, tea.Cmd) {
	if m.regenCount >= m.opts.MaxRegens {
		m.result = fmt.Sprintf("Maximum regenerations (%d) reached.", m.opts.MaxRegens)
		m.state = stateResult
		return m, autoQuitCmd()
	}
	m.regenCount++
	m.seq++
	m.state = stateGenerating
	m.title, m.prompt, m.errMsg = "", "", ""
	m.res = worldstream.Result{}
	m.revealActive = false
	m.spinner = newSpinner()
	return m, tea.Batch(m.spinner.Tick, startCmd(m.gen, m.seq, m.opts.Build(m.extra)))
}

func (m Model) finish(out worldgen.Outcome) (tea.Model, tea.Cmd) {
	m.res = out.Result
	if out.Err != nil {
		log.Debug().Err(out.Err).Msg("generation ended without a world")
		m.errMsg = fmt.Sprintf("Generation failed: %v", out.Err)
		m.state = stateShowWorld
		return m, nil
	}
	if out.Result.Err != nil {
		m.errMsg = fmt.Sprintf("Stream ended early: %v", out.Result.Err)
	}
	m.title, m.prompt = out.Result.Title, out.Result.Prompt

	// A fallback world arrives in one piece; type it out instead.
	if out.Result.Source == worldstream.SourceFallback {
		m.revealActive = true
		m.displayed = ""
		return m, nil
	}
	m.state = stateShowWorld
	return m, nil
}

func (m *Model) advanceReveal() {
	shown, full := []rune(m.displayed), []rune(m.prompt)
	if len(shown) >= len(full) {
		m.revealActive = false
		m.state = stateShowWorld
		return
	}
	m.displayed = string(full[:min(len(shown)+3, len(full))])
}

// --- VIEWS -------------------------------------------------------------------

func (m Model) View() string {
	switch m.state {
	case stateGenerating:
		return m.viewGenerating()
	case stateShowWorld:
		return m.viewShowWorld()
	case stateSaving:
		return m.viewSaving()
	case stateResult:
		return m.viewResult()
	case stateEditingContext:
		return m.viewEditing()
	case stateShowDiff:
		return m.viewDiff()
	default:
		return "Unknown state."
	}
}

func (m Model) boxWidth() int {
	if m.width <= 0 {
		return 100
	}
	return min(m.width-4, 100)
}

func (m Model) worldBox(title, body string) string {
	if title == "" {
		title = "Untitled"
	}
	return worldBoxStyle.Width(m.boxWidth()).Render(titleStyle.Render(title) + "\n\n" + body)
}

func (m Model) errSection() string {
	if strings.TrimSpace(m.errMsg) == "" {
		return ""
	}
	return errorBoxStyle.Width(m.boxWidth()).Render(m.errMsg)
}

func (m Model) viewShowWorld() string {
	header := logoStyle.Render(logoText)
	info := fmt.Sprintf("Language: %s | Slot: %d | Source: %s | Regens Left: %d/%d",
		prompt.LanguageName(m.opts.Language), m.opts.Slot, m.res.Source,
		m.opts.MaxRegens-m.regenCount, m.opts.MaxRegens)
	if m.res.NestedEcho {
		info += " | recovered from echoed protocol"
	}

	var b strings.Builder
	b.WriteString(header + "\n\n")
	b.WriteString(infoLineStyle.Render(info) + "\n")
	if e := m.errSection(); e != "" {
		b.WriteString(e + "\n")
	}
	b.WriteString(m.worldBox(m.title, m.prompt) + "\n")
	b.WriteString(m.help.View(m) + "\n")
	return b.String()
}

func (m Model) viewGenerating() string {
	header := logoStyle.Render(logoText)
	body := m.prompt
	if m.revealActive {
		body = m.displayed
	}
	genLine := fmt.Sprintf("%s Dreaming up a world%s", m.spinner.View(), strings.Repeat(".", m.dotFrame))
	content := fmt.Sprintf("%s\n%s\n\n%s", genLine, m.progress.View(), m.worldBox(m.title, body))
	return lipgloss.JoinVertical(lipgloss.Left, header, content, m.help.View(m))
}

func (m Model) viewSaving() string {
	header := logoStyle.Render(logoText)
	body := fmt.Sprintf("Saving...\n\n%s", m.spinner.View())
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func (m Model) viewResult() string {
	header := logoStyle.Render(logoText)
	body := lipgloss.NewStyle().Margin(1, 2).Render(m.result)
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func (m Model) viewEditing() string {
	header := logoStyle.Render(logoText)
	body := lipgloss.NewStyle().Margin(1, 2).Render(
		fmt.Sprintf("Extra context for the next world (Ctrl+S to regenerate, ESC to cancel):\n\n%s", m.textarea.View()),
	)
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

func (m Model) viewDiff() string {
	header := logoStyle.Render(logoText)
	ins, del := DiffStats(m.opts.Current.Prompt, m.prompt)
	body := lipgloss.NewStyle().Margin(1, 2).Render(fmt.Sprintf(
		"Title: %s\n\nPrompt (+%d -%d):\n\n%s\n\nPress ESC/q to return.",
		RenderDiff(m.opts.Current.Title, m.title), ins, del,
		RenderDiff(m.opts.Current.Prompt, m.prompt),
	))
	return lipgloss.JoinVertical(lipgloss.Left, header, body)
}

// --- COMMANDS ----------------------------------------------------------------

// startCmd launches a generation. Updates carry whole accumulators, so only
// the newest pending one is kept.
func startCmd(gen Generator, seq int, req ai.Request) tea.Cmd {
	return func() tea.Msg {
		updates := make(chan worldstream.Update, 1)
		done := gen.Start(context.Background(), req, func(u worldstream.Update) {
			offerLatest(updates, u)
		})
		return streamStartedMsg{seq: seq, updates: updates, done: done}
	}
}

// offerLatest replaces whatever update is pending in ch with u. ch must have
// a single sender.
func offerLatest(ch chan worldstream.Update, u worldstream.Update) {
	for {
		select {
		case ch <- u:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}

func waitStreamCmd(seq int, updates <-chan worldstream.Update, done <-chan worldgen.Outcome) tea.Cmd {
	return func() tea.Msg {
		select {
		case u := <-updates:
			return streamUpdateMsg{seq: seq, update: u}
		case out, ok := <-done:
			if !ok {
				return nil
			}
			return streamDoneMsg{seq: seq, outcome: out}
		}
	}
}

func saveCmd(save func(worldstream.Result) (string, error), res worldstream.Result) tea.Cmd {
	return func() tea.Msg {
		if save == nil {
			return saveResultMsg{msg: "World kept (no store configured)."}
		}
		msg, err := save(res)
		return saveResultMsg{msg: msg, err: err}
	}
}

func autoQuitCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(_ time.Time) tea.Msg {
		return autoQuitMsg{}
	})
}

// ShortHelp and FullHelp make Model a help.KeyMap.
func (m Model) ShortHelp() []key.Binding {
	return []key.Binding{
		keyMap.Save,
		keyMap.Regenerate,
		keyMap.Context,
		keyMap.ViewDiff,
		keyMap.Help,
		keyMap.Quit,
	}
}

func (m Model) FullHelp() [][]key.Binding {
	return [][]key.Binding{m.ShortHelp()}
}
