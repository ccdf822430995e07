package index

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/compozy/docchat/cli/cmd"
	"github.com/compozy/docchat/cli/cmd/ingest"
	"github.com/compozy/docchat/cli/helpers"
	"github.com/compozy/docchat/engine/knowledge/document"
	knowledgeingest "github.com/compozy/docchat/engine/knowledge/ingest"
	"github.com/compozy/docchat/engine/knowledge/vectordb"
	"github.com/compozy/docchat/pkg/logger"
)

var formats = []helpers.OutputFormat{helpers.OutputFormatTable, helpers.OutputFormatJSON, helpers.OutputFormatYAML}

// IndexView is the serialized outcome of an index run.
type IndexView struct {
	cmd.RunView `json:",inline" yaml:",inline"`
	Indexed     int    `json:"indexed" yaml:"indexed"`
	Records     int    `json:"records" yaml:"records"`
	Store       string `json:"store"   yaml:"store"`
}

// NewIndexCommand creates the index command
func NewIndexCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "index [paths or globs...]",
		Short: "Chunk documents, embed them and store the vectors",
		Long: `Run the ingest pipeline and write every chunk's embedding to the configured
vector store. Re-indexing a file replaces the records previously stored for it.
With --watch the command keeps running, re-indexing changed documents and
dropping the records of deleted ones until interrupted.`,
		RunE: executeIndexCommand,
	}
	cmd.AddFormatFlag(command, formats...)
	command.Flags().String("store", "", "Vector store file (overrides vector_store.path)")
	command.Flags().Bool("watch", false, "Keep running and re-index when input documents change")
	return command
}

func executeIndexCommand(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{Formats: formats}, handleIndex, args)
}

func handleIndex(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, args []string) (err error) {
	log := logger.FromContext(ctx)
	cfg := executor.Config()
	watch, err := cobraCmd.Flags().GetBool("watch")
	if err != nil {
		return fmt.Errorf("failed to get watch flag: %w", err)
	}
	emb, err := executor.NewEmbedder(ctx)
	if err != nil {
		return err
	}
	store, release, err := executor.AcquireStore(ctx, emb.Dimension())
	if err != nil {
		return err
	}
	defer func() {
		if releaseErr := release(context.WithoutCancel(ctx)); releaseErr != nil && err == nil {
			err = releaseErr
		}
	}()
	if cfg.VectorStore.Provider == string(vectordb.ProviderMemory) {
		log.Warn("Memory vector store is not persisted; indexed records are lost when the command exits")
	}
	indexer, err := executor.NewIndexer(emb, store)
	if err != nil {
		return err
	}
	run := &indexRun{executor: executor, indexer: indexer, store: store, args: args}
	if !watch {
		return run.once(ctx)
	}

	if err := run.once(ctx); err != nil && !isIdle(err) {
		return err
	}
	inputs := args
	if len(inputs) == 0 {
		inputs = cfg.Batch.Inputs
	}
	roots, err := watchRoots(inputs)
	if err != nil {
		return err
	}
	registry := document.DefaultRegistry(cfg.Processing.MaxParallelism)
	return watchInputs(ctx, roots, registry.Handles, fileChangeDebounceDelay, run.onChange)
}

// indexRun indexes one batch into an already opened store.
type indexRun struct {
	executor *cmd.CommandExecutor
	indexer  *knowledgeingest.Indexer
	store    vectordb.Store
	args     []string
}

func (r *indexRun) once(ctx context.Context) error {
	log := logger.FromContext(ctx)
	result, err := ingest.RunBatch(ctx, r.executor, r.args)
	if result != nil && (err == nil || errors.Is(err, knowledgeingest.ErrNoContent)) {
		dropped, forgetErr := r.indexer.ForgetStale(ctx, result.Files)
		if forgetErr != nil {
			return fmt.Errorf("index run %s: %w", result.RunID, forgetErr)
		}
		if dropped > 0 {
			log.Info("Dropped records of files without content", "sources", dropped)
		}
	}
	if err != nil {
		return err
	}
	indexed, err := r.indexer.Index(ctx, result.Chunks())
	if err != nil {
		return fmt.Errorf("index run %s: %w", result.RunID, err)
	}
	records, err := r.store.Count(ctx)
	if err != nil {
		return err
	}
	log.Info("Index updated", "indexed", indexed, "records", records, "store", r.executor.StoreLabel())

	out := r.executor.Output()
	if out.Format() == helpers.OutputFormatTable {
		if err := out.WriteData(cmd.FileTable(result)); err != nil {
			return err
		}
		_, err := fmt.Fprintf(
			r.executor.Stdout(),
			"%s\nindexed %d %s, store %s now holds %d %s\n",
			cmd.Summary(result),
			indexed,
			helpers.Pluralize(indexed, "chunk", "chunks"),
			r.executor.StoreLabel(),
			records,
			helpers.Pluralize(records, "record", "records"),
		)
		return err
	}
	return out.WriteData(IndexView{
		RunView: cmd.NewRunView(result, false),
		Indexed: indexed,
		Records: records,
		Store:   r.executor.StoreLabel(),
	})
}

// onChange drops records of removed files and re-indexes the inputs.
// Failures are logged so the watch keeps running.
func (r *indexRun) onChange(ctx context.Context, removed []string) {
	log := logger.FromContext(ctx)
	for _, path := range removed {
		if err := r.indexer.Forget(ctx, filepath.Base(path)); err != nil {
			log.Error("Failed to drop removed document", "path", path, "error", err)
		}
	}
	if err := r.once(ctx); err != nil {
		if isIdle(err) {
			log.Warn("Nothing to index", "error", err)
			return
		}
		log.Error("Re-index failed", "error", err)
	}
}

// isIdle reports errors that only mean the inputs are currently empty.
func isIdle(err error) bool {
	return errors.Is(err, knowledgeingest.ErrNoContent) || errors.Is(err, helpers.ErrNoMatches)
}
