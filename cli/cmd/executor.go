package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compozy/docchat/cli/helpers"
	"github.com/compozy/docchat/engine/knowledge/answer"
	"github.com/compozy/docchat/engine/knowledge/chunk"
	"github.com/compozy/docchat/engine/knowledge/document"
	"github.com/compozy/docchat/engine/knowledge/embedder"
	"github.com/compozy/docchat/engine/knowledge/ingest"
	"github.com/compozy/docchat/engine/knowledge/retriever"
	"github.com/compozy/docchat/engine/knowledge/vectordb"
	"github.com/compozy/docchat/pkg/config"
	"github.com/compozy/docchat/pkg/logger"
)

// CommandExecutor handles common setup for CLI commands.
// It resolves the output format once and builds knowledge components
// from the configuration attached to the command context.
type CommandExecutor struct {
	cfg    *config.Config
	output *helpers.OutputWriter
	stdout io.Writer
	stderr io.Writer
}

// HandlerFunc defines the signature for command handlers.
type HandlerFunc func(ctx context.Context, cmd *cobra.Command, executor *CommandExecutor, args []string) error

// ExecutorOptions allows customization of the command executor
type ExecutorOptions struct {
	// Formats lists the accepted --format values; the first is the default.
	Formats []helpers.OutputFormat
}

// AddFormatFlag registers --format with the first allowed format as default.
func AddFormatFlag(cmd *cobra.Command, formats ...helpers.OutputFormat) {
	names := make([]string, len(formats))
	for i, f := range formats {
		names[i] = string(f)
	}
	usage := fmt.Sprintf("Output format (%s)", strings.Join(names, ", "))
	cmd.Flags().StringP("format", "f", names[0], usage)
}

// NewCommandExecutor creates a new command executor with all necessary setup.
func NewCommandExecutor(cmd *cobra.Command, opts ExecutorOptions) (*CommandExecutor, error) {
	ctx := cmd.Context()
	cfg := config.FromContext(ctx)
	if cfg == nil {
		return nil, fmt.Errorf("configuration not found in context")
	}
	executor := &CommandExecutor{
		cfg:    cfg,
		stdout: cmd.OutOrStdout(),
		stderr: cmd.ErrOrStderr(),
	}
	if len(opts.Formats) > 0 {
		value, err := cmd.Flags().GetString("format")
		if err != nil {
			return nil, fmt.Errorf("failed to get format flag: %w", err)
		}
		format, err := helpers.ParseOutputFormat(value, opts.Formats...)
		if err != nil {
			return nil, err
		}
		executor.output = helpers.NewOutputWriter(executor.stdout, format, helpers.ShouldUseColor(cmd))
		logger.FromContext(ctx).Debug("Resolved output format", "format", format)
	}
	return executor, nil
}

// ExecuteCommand is a convenience function that combines executor creation and execution.
func ExecuteCommand(cmd *cobra.Command, opts ExecutorOptions, handler HandlerFunc, args []string) error {
	executor, err := NewCommandExecutor(cmd, opts)
	if err != nil {
		return HandleCommonErrors(err)
	}
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	return HandleCommonErrors(handler(ctx, cmd, executor, args))
}

// Config returns the loaded configuration.
func (e *CommandExecutor) Config() *config.Config {
	return e.cfg
}

// Output returns the writer for the resolved --format; nil when the command has none.
func (e *CommandExecutor) Output() *helpers.OutputWriter {
	return e.output
}

func (e *CommandExecutor) Stdout() io.Writer {
	return e.stdout
}

func (e *CommandExecutor) Stderr() io.Writer {
	return e.stderr
}

// Inputs expands command arguments, falling back to batch.inputs from the config.
func (e *CommandExecutor) Inputs(args []string) ([]string, error) {
	if len(args) == 0 {
		args = e.cfg.Batch.Inputs
	}
	return helpers.ExpandInputs(args)
}

// NewDriver builds the batch driver from the processing and batch sections.
func (e *CommandExecutor) NewDriver() (*ingest.Driver, error) {
	processor, err := chunk.NewProcessor(chunk.SettingsFromConfig(&e.cfg.Processing))
	if err != nil {
		return nil, err
	}
	registry := document.DefaultRegistry(e.cfg.Processing.MaxParallelism)
	return ingest.NewDriver(registry, processor, ingest.OptionsFromConfig(e.cfg))
}

func (e *CommandExecutor) NewEmbedder(ctx context.Context) (*embedder.Adapter, error) {
	return embedder.New(ctx, embedder.FromAppConfig(&e.cfg.Embedder))
}

// AcquireStore opens the configured vector store. Callers must invoke release.
func (e *CommandExecutor) AcquireStore(
	ctx context.Context,
	dimension int,
) (vectordb.Store, func(context.Context) error, error) {
	return vectordb.AcquireShared(ctx, vectordb.FromAppConfig(&e.cfg.VectorStore, dimension))
}

// StoreLabel names the configured store for output.
func (e *CommandExecutor) StoreLabel() string {
	if e.cfg.VectorStore.Provider == string(vectordb.ProviderMemory) {
		return string(vectordb.ProviderMemory)
	}
	return e.cfg.VectorStore.Path
}

func (e *CommandExecutor) NewIndexer(emb embedder.Embedder, store vectordb.Store) (*ingest.Indexer, error) {
	return ingest.NewIndexer(emb, store, ingest.IndexOptionsFromConfig(e.cfg))
}

func (e *CommandExecutor) NewRetriever(
	ctx context.Context,
	emb embedder.Embedder,
	store vectordb.Store,
) (*retriever.Service, error) {
	estimator := retriever.EstimatorFor(ctx, e.cfg.Retrieval.Encoding)
	return retriever.NewService(emb, store, estimator, retriever.OptionsFromConfig(&e.cfg.Retrieval))
}

func (e *CommandExecutor) NewAnswerer(ret answer.Retriever) (*answer.Answerer, error) {
	model, err := answer.NewModel(&e.cfg.LLM)
	if err != nil {
		return nil, err
	}
	return answer.New(ret, model, answer.OptionsFromConfig(e.cfg))
}

// HandleCommonErrors maps well-known failures to structured CLI errors.
func HandleCommonErrors(err error) error {
	if err == nil {
		return nil
	}
	var existing *helpers.CliError
	if errors.As(err, &existing) {
		return err
	}
	if cliErr := categorizeError(err); cliErr != nil {
		return cliErr.WithCause(err)
	}
	return err
}

func categorizeError(err error) *helpers.CliError {
	switch {
	case errors.Is(err, context.Canceled):
		return helpers.NewCliError("OPERATION_CANCELED", "Operation was canceled by user")
	case errors.Is(err, context.DeadlineExceeded):
		return helpers.NewCliError("OPERATION_TIMEOUT", "Operation timed out")
	case errors.Is(err, helpers.ErrNoInputs):
		return helpers.NewCliError("NO_INPUTS", "No input files given", "pass paths or set batch.inputs")
	case errors.Is(err, helpers.ErrNoMatches):
		return helpers.NewCliError("NO_MATCHES", "Input pattern matched no files", err.Error())
	case errors.Is(err, ingest.ErrNoContent):
		return helpers.NewCliError("NO_CONTENT", "No chunks were produced", err.Error())
	case errors.Is(err, answer.ErrNoDocuments):
		return helpers.NewCliError("NO_DOCUMENTS", "No documents available", "run `docchat index` first")
	case errors.Is(err, retriever.ErrEmptyQuery):
		return helpers.NewCliError("EMPTY_QUERY", "Question cannot be empty")
	default:
		return nil
	}
}
