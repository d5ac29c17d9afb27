package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/renatogalera/worldgen/pkg/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the LLM route with the configured provider",
		Long: `Serves POST /api/llm. With ?stream=1 the response is newline-delimited JSON
({"prompt_delta": ...} lines then a final {"title": ..., "prompt": ...}); without it
the final document is returned on its own.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if a.cfg.LogLevel != "debug" && a.cfg.LogLevel != "trace" {
				gin.SetMode(gin.ReleaseMode)
			}
			if _, err := a.providerClient(ctx); err != nil {
				// Requests get a 400 with this error until it is fixed.
				log.Warn().Err(err).Str("provider", a.cfg.Provider).Msg("Provider is not usable yet")
			}

			srv := server.New(a.providerClient, server.WithLogger(log.Logger))
			return srv.ListenAndServe(ctx, a.cfg.Server.Addr)
		},
	}
	cmd.Flags().StringVar(&a.addr, "addr", "", "Listen address (default from config, 127.0.0.1:8787)")
	return cmd
}
