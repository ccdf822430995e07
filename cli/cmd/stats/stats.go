package stats

import (
	"context"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/compozy/docchat/cli/cmd"
	"github.com/compozy/docchat/cli/helpers"
)

var formats = []helpers.OutputFormat{helpers.OutputFormatTable, helpers.OutputFormatJSON, helpers.OutputFormatYAML}

// StatsView describes the configured vector store.
type StatsView struct {
	Provider  string `json:"provider"  yaml:"provider"`
	Store     string `json:"store"     yaml:"store"`
	Records   int    `json:"records"   yaml:"records"`
	Dimension int    `json:"dimension" yaml:"dimension"`
	Embedder  string `json:"embedder"  yaml:"embedder"`
	Model     string `json:"model"     yaml:"model"`
}

// NewStatsCommand creates the stats command
func NewStatsCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "stats",
		Short: "Show vector store statistics",
		Args:  cobra.NoArgs,
		RunE:  executeStatsCommand,
	}
	cmd.AddFormatFlag(command, formats...)
	command.Flags().String("store", "", "Vector store file (overrides vector_store.path)")
	return command
}

func executeStatsCommand(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{Formats: formats}, handleStats, args)
}

func handleStats(ctx context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) (err error) {
	cfg := executor.Config()
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
	records, err := store.Count(ctx)
	if err != nil {
		return err
	}
	view := StatsView{
		Provider:  cfg.VectorStore.Provider,
		Store:     executor.StoreLabel(),
		Records:   records,
		Dimension: emb.Dimension(),
		Embedder:  cfg.Embedder.Provider,
		Model:     emb.Model(),
	}
	out := executor.Output()
	if out.Format() != helpers.OutputFormatTable {
		return out.WriteData(view)
	}
	return out.WriteData(&helpers.Table{
		Headers: []string{"PROVIDER", "STORE", "RECORDS", "DIMENSION", "EMBEDDER", "MODEL"},
		Rows: [][]string{{
			view.Provider,
			view.Store,
			strconv.Itoa(view.Records),
			strconv.Itoa(view.Dimension),
			view.Embedder,
			view.Model,
		}},
	})
}
