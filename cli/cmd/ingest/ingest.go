package ingest

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/compozy/docchat/cli/cmd"
	"github.com/compozy/docchat/cli/helpers"
	"github.com/compozy/docchat/engine/knowledge/ingest"
	"github.com/compozy/docchat/pkg/logger"
)

var formats = []helpers.OutputFormat{helpers.OutputFormatJSONL, helpers.OutputFormatJSON, helpers.OutputFormatTable}

// NewIngestCommand creates the ingest command
func NewIngestCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "ingest [paths or globs...]",
		Short: "Extract, normalize and split documents into chunks",
		Long: `Load every input file, normalize its text and split it into overlapping chunks.

Arguments may be files, directories or doublestar globs such as "docs/**/*.pdf".
Without arguments the batch.inputs configuration is used. Files that fail are
reported as warnings; the command fails only when no chunk was produced.`,
		RunE: executeIngestCommand,
	}
	cmd.AddFormatFlag(command, formats...)
	return command
}

func executeIngestCommand(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{Formats: formats}, handleIngest, args)
}

func handleIngest(ctx context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, args []string) error {
	result, err := RunBatch(ctx, executor, args)
	if err != nil {
		return err
	}
	out := executor.Output()
	switch out.Format() {
	case helpers.OutputFormatJSONL:
		for c := range result.Chunks() {
			if err := out.WriteJSONLine(cmd.NewChunkView(c)); err != nil {
				return fmt.Errorf("failed to write chunk: %w", err)
			}
		}
		return nil
	case helpers.OutputFormatTable:
		if err := out.WriteData(cmd.FileTable(result)); err != nil {
			return err
		}
		_, err := fmt.Fprintln(executor.Stdout(), cmd.Summary(result))
		return err
	default:
		return out.WriteData(cmd.NewRunView(result, true))
	}
}

// RunBatch expands args and runs the batch driver, printing skipped files as warnings.
func RunBatch(ctx context.Context, executor *cmd.CommandExecutor, args []string) (*ingest.Result, error) {
	log := logger.FromContext(ctx)
	paths, err := executor.Inputs(args)
	if err != nil {
		return nil, err
	}
	driver, err := executor.NewDriver()
	if err != nil {
		return nil, err
	}
	log.Debug("Expanded inputs", "files", len(paths))
	result, err := driver.Run(ctx, paths)
	if result != nil {
		reportFailures(executor.Stderr(), result)
	}
	return result, err
}

func reportFailures(w io.Writer, result *ingest.Result) {
	for _, f := range result.Failures {
		fmt.Fprintf(w, "warning: skipped %s at %s: %v\n", f.Path, f.Stage, f.Err)
	}
}
