package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/renatogalera/worldgen/pkg/ai"
	"github.com/renatogalera/worldgen/pkg/config"
	"github.com/renatogalera/worldgen/pkg/provider/registry"

	_ "github.com/renatogalera/worldgen/pkg/provider/anthropic"
	_ "github.com/renatogalera/worldgen/pkg/provider/deepseek"
	_ "github.com/renatogalera/worldgen/pkg/provider/fal"
	_ "github.com/renatogalera/worldgen/pkg/provider/google"
	_ "github.com/renatogalera/worldgen/pkg/provider/ollama"
	_ "github.com/renatogalera/worldgen/pkg/provider/openai"
	_ "github.com/renatogalera/worldgen/pkg/provider/openrouter"
)

// app carries the merged configuration and the persistent flags shared by
// every subcommand.
type app struct {
	cfg *config.Config

	configPath string
	provider   string
	apiKey     string
	language   string
	logLevel   string
	logFile    string
	endpoint   string
	addr       string
	timeout    int

	clientMu sync.Mutex
	client   ai.AIClient
}

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	// .env is optional; real environment variables win.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Could not load .env file")
	}

	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("worldgen failed")
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "worldgen",
		Short: "Stream new worlds out of an LLM and keep the ones you like",
		Long: `worldgen asks an LLM for a new world (a title and an image prompt), decodes
the model's messy streaming output into clean text as it arrives, and stores the
result per language and slot.

Run "worldgen serve" to expose the LLM route, then "worldgen generate" to use it,
or "worldgen generate --local" to do both in one process.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Config file (default ~/.config/worldgen/config.yaml)")
	pf.StringVar(&a.provider, "provider", "", "LLM provider used by the route (see 'worldgen providers')")
	pf.StringVar(&a.apiKey, "api-key", "", "API key for the provider (overrides env and config)")
	pf.StringVar(&a.language, "lang", "", "World language: "+strings.Join(config.Languages, ", "))
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	pf.StringVar(&a.logFile, "log-file", "", "Also write logs to this rotating file")
	pf.StringVar(&a.endpoint, "endpoint", "", "URL of the LLM route used by generate")
	pf.IntVar(&a.timeout, "timeout", 0, "Seconds allowed for one generation, 0 keeps the configured value")

	root.AddCommand(
		newServeCmd(a),
		newGenerateCmd(a),
		newWorldsCmd(a),
		newProvidersCmd(a),
		newDecodeCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	var (
		cfg *config.Config
		err error
	)
	if a.configPath != "" {
		cfg, err = config.LoadOrCreateConfigAt(a.configPath)
	} else {
		cfg, err = config.LoadOrCreateConfig()
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cm := config.NewConfigManager(cfg)
	cm.RegisterFlag("provider", a.provider)
	cm.RegisterFlag("language", a.language)
	cm.RegisterFlag("logLevel", a.logLevel)
	cm.RegisterFlag("logFile", a.logFile)
	cm.RegisterFlag("endpoint", a.endpoint)
	cm.RegisterFlag("server.addr", a.addr)
	cm.RegisterFlag("timeoutSeconds", a.timeout)
	cfg = cm.MergeConfiguration()

	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := newLogger(cfg, zerolog.ConsoleWriter{Out: os.Stderr})
	if err != nil {
		return err
	}
	log.Logger = logger
	log.Debug().Str("command", cmd.Name()).Str("provider", cfg.Provider).Str("language", cfg.Language).Msg("configuration loaded")
	return nil
}

// newLogger applies the configured level and adds a rotating file sink when
// logFile is set. console may be nil to log to the file only.
func newLogger(cfg *config.Config, console io.Writer) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if cfg.LogLevel != "" {
		l, err := zerolog.ParseLevel(cfg.LogLevel)
		if err != nil {
			return zerolog.Logger{}, fmt.Errorf("invalid log level %q: %w", cfg.LogLevel, err)
		}
		level = l
	}
	zerolog.SetGlobalLevel(level)

	var writers []io.Writer
	if console != nil {
		writers = append(writers, console)
	}
	if cfg.LogFile != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
	}
	if len(writers) == 0 {
		return zerolog.Nop(), nil
	}
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger(), nil
}

// providerClient builds the configured provider once it succeeds. Failures
// are not cached so a key added to the environment is picked up.
func (a *app) providerClient(context.Context) (ai.AIClient, error) {
	a.clientMu.Lock()
	defer a.clientMu.Unlock()
	if a.client != nil {
		return a.client, nil
	}
	client, err := registry.Build(context.Background(), a.cfg, a.cfg.Provider, a.apiKey)
	if err != nil {
		return nil, err
	}
	a.client = client
	return client, nil
}
