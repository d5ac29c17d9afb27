package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/ktr0731/go-fuzzyfinder"
	"github.com/spf13/cobra"

	"github.com/renatogalera/worldgen/pkg/prompt"
	"github.com/renatogalera/worldgen/pkg/store"
	"github.com/renatogalera/worldgen/pkg/ui/browser"
)

func newWorldsCmd(a *app) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "worlds",
		Short: "Pick a stored world with a fuzzy finder and print it",
		RunE: func(_ *cobra.Command, _ []string) error {
			st, err := store.Open(a.cfg.StorePath)
			if err != nil {
				return err
			}
			lang := a.cfg.Language
			if all {
				lang = ""
			}
			return pickWorld(st.List(lang))
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include every language, not only --lang")
	cmd.AddCommand(newWorldsManageCmd(a))
	return cmd
}

func pickWorld(worlds []store.World) error {
	if len(worlds) == 0 {
		fmt.Println("No stored worlds yet. Run 'worldgen generate' first.")
		return nil
	}

	idx, err := fuzzyfinder.Find(
		worlds,
		func(i int) string {
			w := worlds[i]
			return fmt.Sprintf("%s | %s #%d | %s", w.Title, w.Language, w.Slot, humanize.Time(w.CreatedAt))
		},
		fuzzyfinder.WithPromptString("Select a world> "),
		fuzzyfinder.WithPreviewWindow(func(i, _, _ int) string {
			if i == -1 {
				return ""
			}
			return worlds[i].Prompt
		}),
	)
	if errors.Is(err, fuzzyfinder.ErrAbort) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("fuzzyfinder error: %w", err)
	}

	w := worlds[idx]
	info := fmt.Sprintf("%s · slot %d · %s · %s", prompt.LanguageName(w.Language), w.Slot,
		orDash(w.Source), humanize.Time(w.CreatedAt))
	printWorld(w.Title, w.Prompt, info)
	return nil
}

func newWorldsManageCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "manage",
		Short: "Browse stored worlds and delete the ones you no longer want",
		RunE: func(_ *cobra.Command, _ []string) error {
			st, err := store.Open(a.cfg.StorePath)
			if err != nil {
				return err
			}
			model := browser.NewBrowserModel(st.List(""), func(ids []string) (int, error) {
				n := 0
				for _, id := range ids {
					found, err := st.Delete(id)
					if err != nil {
						return n, err
					}
					if found {
						n++
					}
				}
				return n, nil
			})
			final, err := browser.NewProgram(model).Run()
			if err != nil {
				return fmt.Errorf("browser UI error: %w", err)
			}
			if m, ok := final.(browser.Model); ok && m.Result() != "" {
				fmt.Println(m.Result())
			}
			return nil
		},
	}
}
