package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/renatogalera/worldgen/pkg/provider/registry"
)

func newProvidersCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List the registered LLM providers and their defaults",
		RunE: func(_ *cobra.Command, _ []string) error {
			nameStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
			activeStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
			infoStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).PaddingLeft(2)

			for _, info := range registry.Describe() {
				name := nameStyle.Render(info.Name)
				if info.Name == a.cfg.Provider {
					name += " " + activeStyle.Render("(active)")
				}
				fmt.Println(name)

				ps := a.cfg.GetProviderSettings(info.Name, info.Defaults)
				key := "not required"
				if info.RequiresAPIKey {
					key = "$" + info.APIKeyEnv
				}
				fmt.Println(infoStyle.Render(fmt.Sprintf(
					"model: %s\nbase URL: %s\nAPI key: %s\nstreaming: %t",
					orDash(ps.Model), orDash(ps.BaseURL), key, info.Streaming,
				)))
			}
			return nil
		},
	}
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
