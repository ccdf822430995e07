package cli

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/compozy/docchat/cli/cmd/ask"
	configcmd "github.com/compozy/docchat/cli/cmd/config"
	"github.com/compozy/docchat/cli/cmd/index"
	"github.com/compozy/docchat/cli/cmd/ingest"
	"github.com/compozy/docchat/cli/cmd/stats"
	"github.com/compozy/docchat/cli/helpers"
	"github.com/compozy/docchat/engine/infra/monitoring"
	"github.com/compozy/docchat/pkg/config"
	"github.com/compozy/docchat/pkg/logger"
	"github.com/compozy/docchat/pkg/version"
)

const defaultConfigFile = "docchat.yaml"

// app holds state shared by the persistent hooks of one command run.
type app struct {
	monitor      *monitoring.Service
	shutdownOnce sync.Once
}

// RootCmd builds the docchat command tree.
func RootCmd() *cobra.Command {
	return newRootCmd(&app{})
}

// Execute runs the CLI and reports a failed command on stderr.
func Execute(ctx context.Context) error {
	a := &app{}
	root := newRootCmd(a)
	executed, err := root.ExecuteContextC(ctx)
	a.shutdown(ctx)
	if err != nil {
		if executed == nil {
			executed = root
		}
		helpers.OutputError(executed.ErrOrStderr(), err, false, helpers.ShouldUseColor(executed))
	}
	return err
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "docchat",
		Short: "Chunk, index and query PDF and text documents",
		Long: `docchat turns PDF and text files into overlapping text chunks, embeds them
into a vector store and answers questions from the stored passages.`,
		Version:            version.Get().String(),
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setup,
		PersistentPostRunE: a.teardown,
	}
	addGlobalFlags(root)
	root.AddCommand(
		ingest.NewIngestCommand(),
		index.NewIndexCommand(),
		ask.NewAskCommand(),
		stats.NewStatsCommand(),
		configcmd.NewConfigCommand(),
	)
	return root
}

func addGlobalFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.String("config", defaultConfigFile, "Path to the YAML configuration file")
	flags.String("env-file", "", "Path to a .env file loaded before the configuration")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.Bool("log-source", false, "Include source locations in logs")
	flags.Bool("no-color", false, "Disable colored output")

	flags.Int("chunk-size", 0, "Maximum chunk length in characters (overrides processing.chunk_size)")
	flags.Int("overlap", 0, "Characters shared by consecutive chunks (overrides processing.overlap_size)")
	flags.Int("min-chunk-length", 0, "Drop chunks shorter than this (overrides processing.min_chunk_length)")
	flags.Bool("remove-numbers", false, "Strip digits during normalization")
	flags.Bool("remove-punctuation", false, "Strip punctuation during normalization")
	flags.Int("max-parallelism", 0, "Concurrent page decoders per PDF")
	flags.String("unicode", "", "Non-ASCII handling: strip, fold or keep")
	flags.String("strategy", "", "Splitting strategy: line_window or recursive")
	flags.Int("max-concurrent-files", 0, "Files processed at the same time")
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	if err := loadEnvFile(cmd); err != nil {
		return err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to get config flag: %w", err)
	}
	service := config.NewService()
	cfg, err := service.Load(ctx, config.NewYAMLProvider(configFile), config.NewCLIProvider(changedConfigFlags(cmd)))
	if err != nil {
		return helpers.NewCliError("CONFIG_ERROR", "Failed to load configuration", err.Error()).WithCause(err)
	}

	level, logJSON, logSource, err := logger.GetLoggerConfig(cmd)
	if err != nil {
		return err
	}
	if !cmd.Flags().Changed("log-level") {
		level = cfg.Runtime.LogLevel
	}
	log := logger.SetupLogger(level, logJSON, logSource)
	ctx = logger.ContextWithLogger(ctx, log)
	ctx = config.ContextWithConfig(ctx, cfg)
	ctx = config.ContextWithService(ctx, service)

	a.monitor = monitoring.NewMonitoringServiceWithFallback(ctx, monitoring.FromAppConfig(&cfg.Monitoring))
	a.monitor.SetAsGlobal()
	log.Debug("Command initialized", "command", cmd.CommandPath(), "config", configFile, "env", cfg.Runtime.Environment)
	cmd.SetContext(ctx)
	return nil
}

func (a *app) teardown(cmd *cobra.Command, _ []string) error {
	var err error
	a.shutdownOnce.Do(func() {
		if a.monitor != nil {
			err = a.monitor.Shutdown(context.WithoutCancel(cmd.Context()))
		}
	})
	return err
}

// shutdown flushes metrics when the command failed before its post-run hook.
func (a *app) shutdown(ctx context.Context) {
	a.shutdownOnce.Do(func() {
		if a.monitor == nil {
			return
		}
		if err := a.monitor.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.FromContext(ctx).Warn("Failed to flush metrics", "error", err)
		}
	})
}

// changedConfigFlags collects flags set on the command line that map to config keys.
func changedConfigFlags(cmd *cobra.Command) map[string]any {
	known := config.CLIFlagNames()
	values := make(map[string]any)
	cmd.Flags().Visit(func(f *pflag.Flag) {
		if slices.Contains(known, f.Name) {
			values[f.Name] = f.Value.String()
		}
	})
	return values
}

func loadEnvFile(cmd *cobra.Command) error {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if envFile == "" {
		return nil
	}
	if !helpers.FileExists(envFile) {
		return helpers.NewCliError("ENV_FILE_NOT_FOUND", "Env file not found", envFile)
	}
	if err := godotenv.Load(envFile); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}
	return nil
}
