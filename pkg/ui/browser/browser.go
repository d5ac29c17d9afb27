// Package browser is a list view over stored worlds with bulk delete.
package browser

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/renatogalera/worldgen/pkg/prompt"
	"github.com/renatogalera/worldgen/pkg/store"
)

type browserState int

const (
	stateList browserState = iota
	stateSpinner
	stateDone
)

type worldItem struct {
	World    store.World
	Selected bool
}

func (wi worldItem) Title() string {
	mark := "[ ]"
	if wi.Selected {
		mark = "[x]"
	}
	title := wi.World.Title
	if title == "" {
		title = "Untitled"
	}
	return fmt.Sprintf("%s %s", mark, title)
}

func (wi worldItem) Description() string {
	return fmt.Sprintf("%s · slot %d · %s", prompt.LanguageName(wi.World.Language), wi.World.Slot, humanize.Time(wi.World.CreatedAt))
}

func (wi worldItem) FilterValue() string { return wi.World.Title + " " + wi.World.Prompt }

type deletedMsg struct {
	n   int
	err error
}

// DeleteFunc removes the worlds with the given IDs and reports how many went.
type DeleteFunc func(ids []string) (int, error)

type Model struct {
	state    browserState
	list     list.Model
	spinner  spinner.Model
	selected map[string]bool
	remove   DeleteFunc
	result   string
}

func NewBrowserModel(worlds []store.World, remove DeleteFunc) Model {
	items := make([]list.Item, 0, len(worlds))
	for _, w := range worlds {
		items = append(items, worldItem{World: w})
	}

	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Stored worlds (space to mark, 'a' to mark all, 'd' to delete marked, 'q' to quit)"
	l.SetShowStatusBar(false)

	s := spinner.New()
	s.Spinner = spinner.Dot

	return Model{
		state:    stateList,
		list:     l,
		spinner:  s,
		selected: make(map[string]bool),
		remove:   remove,
	}
}

func NewProgram(m Model) *tea.Program {
	return tea.NewProgram(m)
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Result is the summary shown after a delete.
func (m Model) Result() string { return m.result }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.list.SetSize(msg.Width, msg.Height-2)
		return m, nil
	case tea.KeyMsg:
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case " ":
			if m.state == stateList {
				return m.toggle(m.list.Index()), nil
			}
		case "a":
			if m.state == stateList {
				for i := range m.list.Items() {
					if it, ok := m.list.Items()[i].(worldItem); ok && !it.Selected {
						m = m.toggle(i)
					}
				}
				return m, nil
			}
		case "d":
			if m.state == stateList {
				return m.deleteMarked()
			}
		}
	case deletedMsg:
		if msg.err != nil {
			m.result = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.result = fmt.Sprintf("Deleted %d world(s).", msg.n)
		}
		m.state = stateDone
		return m, nil
	case spinner.TickMsg:
		if m.state == stateSpinner {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.state != stateList {
		return m, nil
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) toggle(index int) Model {
	items := m.list.Items()
	if index < 0 || index >= len(items) {
		return m
	}
	it, ok := items[index].(worldItem)
	if !ok {
		return m
	}
	it.Selected = !it.Selected
	if it.Selected {
		m.selected[it.World.ID] = true
	} else {
		delete(m.selected, it.World.ID)
	}
	m.list.SetItem(index, it)
	return m
}

func (m Model) deleteMarked() (tea.Model, tea.Cmd) {
	ids := make([]string, 0, len(m.selected))
	for _, it := range m.list.Items() {
		if wi, ok := it.(worldItem); ok && m.selected[wi.World.ID] {
			ids = append(ids, wi.World.ID)
		}
	}
	if len(ids) == 0 {
		return m, m.list.NewStatusMessage("No worlds marked.")
	}
	m.state = stateSpinner
	remove := m.remove
	return m, tea.Batch(m.spinner.Tick, func() tea.Msg {
		n, err := remove(ids)
		return deletedMsg{n: n, err: err}
	})
}

func (m Model) View() string {
	switch m.state {
	case stateList:
		return m.list.View()
	case stateSpinner:
		return fmt.Sprintf("Deleting... %s", m.spinner.View())
	case stateDone:
		return strings.TrimSpace(m.result) + "\nPress q to exit."
	}
	return ""
}
