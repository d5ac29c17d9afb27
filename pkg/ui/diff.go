package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/sergi/go-diff/diffmatchpatch"
)

var (
	insertStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Underline(true)
	deleteStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Strikethrough(true)
	equalStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
)

// RenderDiff shows the word-level changes from before to after, colored for the
// terminal.
func RenderDiff(before, after string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(before, after, false))

	var b strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			b.WriteString(insertStyle.Render(d.Text))
		case diffmatchpatch.DiffDelete:
			b.WriteString(deleteStyle.Render(d.Text))
		default:
			b.WriteString(equalStyle.Render(d.Text))
		}
	}
	return b.String()
}

// DiffStats counts inserted and deleted runes between before and after.
func DiffStats(before, after string) (inserted, deleted int) {
	dmp := diffmatchpatch.New()
	for _, d := range dmp.DiffMain(before, after, false) {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len([]rune(d.Text))
		case diffmatchpatch.DiffDelete:
			deleted += len([]rune(d.Text))
		}
	}
	return inserted, deleted
}
