package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/config"
	"github.com/renatogalera/worldgen/pkg/prompt"
	"github.com/renatogalera/worldgen/pkg/server"
	"github.com/renatogalera/worldgen/pkg/store"
	"github.com/renatogalera/worldgen/pkg/ui"
	"github.com/renatogalera/worldgen/pkg/worldgen"
	"github.com/renatogalera/worldgen/pkg/worldstream"
)

type generateOptions struct {
	slot   int
	title  string
	prompt string
	extra  string
	model  string
	noTUI  bool
	local  bool
	dryRun bool
	regens int
}

func newGenerateCmd(a *app) *cobra.Command {
	opts := &generateOptions{}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a world through the LLM route and store it",
		Long: `Streams a new world from the LLM route into a terminal UI (or stdout with
--no-tui) and stores it for the chosen language and slot. The world currently in
that slot, or the one given with --title/--prompt, seeds the request.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runGenerate(ctx, a, opts)
		},
	}

	f := cmd.Flags()
	f.IntVar(&opts.slot, "slot", 0, "Slot the world is stored in")
	f.StringVar(&opts.title, "title", "", "Title of the current world (default: the stored one)")
	f.StringVar(&opts.prompt, "prompt", "", "Prompt of the current world (default: the stored one)")
	f.StringVar(&opts.extra, "context", "", "Extra context to steer the new world")
	f.StringVar(&opts.model, "model", "", "Model override passed to the route")
	f.BoolVar(&opts.noTUI, "no-tui", false, "Stream to stdout instead of the terminal UI")
	f.BoolVar(&opts.local, "local", false, "Run the LLM route in-process instead of calling --endpoint")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Do not store the generated world (--no-tui only)")
	f.IntVar(&opts.regens, "max-regens", 3, "Regenerations allowed in the terminal UI")
	return cmd
}

func runGenerate(ctx context.Context, a *app, opts *generateOptions) error {
	cfg := a.cfg
	lang := cfg.Language

	st, err := store.Open(cfg.StorePath)
	if err != nil {
		return err
	}

	current := prompt.World{Title: opts.title, Prompt: opts.prompt}
	if current.Title == "" && current.Prompt == "" {
		if w, ok := st.Get(lang, opts.slot); ok {
			current = prompt.World{Title: w.Title, Prompt: w.Prompt}
		}
	}

	endpoint := cfg.Endpoint
	var g *errgroup.Group
	routeCtx, stopRoute := context.WithCancel(ctx)
	defer stopRoute()
	if opts.local {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return fmt.Errorf("failed to start local route: %w", err)
		}
		srv := server.New(a.providerClient, server.WithLogger(log.Logger))
		g, routeCtx = errgroup.WithContext(routeCtx)
		g.Go(func() error { return srv.Serve(routeCtx, ln) })
		endpoint = "http://" + ln.Addr().String() + server.RoutePath
	}

	client := worldgen.NewClient(endpoint,
		worldgen.WithTimeout(time.Duration(cfg.TimeoutSeconds)*time.Second),
		worldgen.WithLogger(log.Logger),
	)
	build := func(extra string) ai.Request {
		return ai.Request{
			Model:  opts.model,
			System: prompt.BuildSystemPrompt(lang, cfg.SystemPrompt),
			Input:  prompt.BuildWorldPrompt(lang, current, extra, cfg.PromptTemplate),
		}
	}
	save := func(res worldstream.Result) (string, error) {
		prev, err := st.Put(store.World{
			Language: lang,
			Slot:     opts.slot,
			Title:    res.Title,
			Prompt:   res.Prompt,
			Provider: cfg.Provider,
			Source:   res.Source.String(),
		})
		if err != nil {
			return "", err
		}
		if prev != nil {
			return fmt.Sprintf("Saved %q to slot %d, replacing %q.", res.Title, opts.slot, prev.Title), nil
		}
		return fmt.Sprintf("Saved %q to slot %d.", res.Title, opts.slot), nil
	}

	if opts.noTUI {
		err = generatePlain(ctx, client, build(opts.extra), current, opts, save)
	} else {
		err = generateTUI(cfg, client, current, opts, build, save)
	}

	if g != nil {
		stopRoute()
		if werr := g.Wait(); werr != nil {
			log.Warn().Err(werr).Msg("Local route stopped with an error")
		}
	}
	return err
}

func generateTUI(cfg *config.Config, client *worldgen.Client, current prompt.World, opts *generateOptions,
	build func(string) ai.Request, save func(worldstream.Result) (string, error)) error {
	// Console logs would tear the alternate screen.
	if fileOnly, err := newLogger(cfg, nil); err == nil {
		log.Logger = fileOnly
	}

	session := worldgen.NewSession(client)
	model := ui.NewModel(session, ui.Options{
		Language:  cfg.Language,
		Slot:      opts.slot,
		Current:   current,
		Build:     build,
		Save:      save,
		MaxRegens: opts.regens,
	})
	final, err := ui.NewProgram(model).Run()
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("terminal UI error: %w", err)
	}
	if m, ok := final.(ui.Model); ok && !m.Saved() && !m.Result().Empty() {
		fmt.Println("World not saved.")
	}
	return nil
}

func generatePlain(ctx context.Context, client *worldgen.Client, req ai.Request, current prompt.World,
	opts *generateOptions, save func(worldstream.Result) (string, error)) error {
	progress := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	res, err := client.Generate(ctx, req, worldstream.WithUpdates(func(u worldstream.Update) {
		if u.Field == worldstream.FieldPrompt {
			fmt.Fprint(os.Stderr, progress.Render(u.Delta))
		}
	}))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	if res.Err != nil {
		log.Warn().Err(res.Err).Msg("Stream ended early, showing what arrived")
	}

	printWorld(res.Title, res.Prompt, fmt.Sprintf("source: %s", res.Source))
	if current.Prompt != "" && !strings.EqualFold(current.Prompt, res.Prompt) {
		fmt.Println(ui.RenderDiff(current.Prompt, res.Prompt))
	}

	if opts.dryRun {
		return nil
	}
	msg, err := save(res)
	if err != nil {
		return fmt.Errorf("failed to store world: %w", err)
	}
	fmt.Println(msg)
	return nil
}

func printWorld(title, body, info string) {
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("63")).
		Underline(true).
		MarginBottom(1)
	infoStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("240")).
		PaddingLeft(2)
	bodyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("250")).
		PaddingLeft(2)

	if title == "" {
		title = "Untitled"
	}
	fmt.Println(headerStyle.Render(title))
	if info != "" {
		fmt.Println(infoStyle.Render(info))
	}
	fmt.Println(bodyStyle.Render(body))
	fmt.Println()
}
