package ask

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compozy/docchat/cli/cmd"
	"github.com/compozy/docchat/cli/helpers"
	"github.com/compozy/docchat/engine/knowledge/answer"
)

var formats = []helpers.OutputFormat{helpers.OutputFormatTable, helpers.OutputFormatJSON, helpers.OutputFormatYAML}

// SourceView is one passage handed to the model.
type SourceView struct {
	Source  string  `json:"source"            yaml:"source"`
	Index   int     `json:"chunk_index"       yaml:"chunk_index"`
	Score   float64 `json:"score"             yaml:"score"`
	Content string  `json:"content,omitempty" yaml:"content,omitempty"`
}

// AnswerView is the serialized form of an answer.
type AnswerView struct {
	Question string       `json:"question"         yaml:"question"`
	Answer   string       `json:"answer"           yaml:"answer"`
	Sources  []SourceView `json:"sources"          yaml:"sources"`
	Prompt   string       `json:"prompt,omitempty" yaml:"prompt,omitempty"`
}

// NewAskCommand creates the ask command
func NewAskCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question from the indexed documents",
		Long: `Embed the question, retrieve the most similar chunks from the vector store and
answer from them. With llm.provider set to "extractive" the best passage is
returned as is; with "openai" the passages are sent to the configured model.`,
		Args: cobra.MinimumNArgs(1),
		RunE: executeAskCommand,
	}
	cmd.AddFormatFlag(command, formats...)
	command.Flags().Int("top-k", 0, "Number of chunks to retrieve (overrides retrieval.top_k)")
	command.Flags().String("store", "", "Vector store file (overrides vector_store.path)")
	command.Flags().Bool("show-prompt", false, "Include the rendered prompt in the output")
	command.Flags().Bool("show-context", false, "Include the retrieved passages in the output")
	return command
}

func executeAskCommand(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{Formats: formats}, handleAsk, args)
}

func handleAsk(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, args []string) (err error) {
	showPrompt, err := cobraCmd.Flags().GetBool("show-prompt")
	if err != nil {
		return fmt.Errorf("failed to get show-prompt flag: %w", err)
	}
	showContext, err := cobraCmd.Flags().GetBool("show-context")
	if err != nil {
		return fmt.Errorf("failed to get show-context flag: %w", err)
	}
	question := strings.TrimSpace(strings.Join(args, " "))

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
	ret, err := executor.NewRetriever(ctx, emb, store)
	if err != nil {
		return err
	}
	answerer, err := executor.NewAnswerer(ret)
	if err != nil {
		return err
	}
	result, err := answerer.Ask(ctx, question)
	if err != nil {
		return err
	}
	view := newAnswerView(result, showPrompt, showContext)

	out := executor.Output()
	if out.Format() != helpers.OutputFormatTable {
		return out.WriteData(view)
	}
	if _, err := fmt.Fprintf(executor.Stdout(), "%s\n\n", view.Answer); err != nil {
		return err
	}
	if err := out.WriteData(sourcesTable(view.Sources)); err != nil {
		return err
	}
	if showPrompt {
		_, err := fmt.Fprintf(executor.Stdout(), "\n%s\n", view.Prompt)
		return err
	}
	return nil
}

func newAnswerView(result *answer.Answer, showPrompt, showContext bool) AnswerView {
	view := AnswerView{
		Question: result.Question,
		Answer:   result.Text,
		Sources:  make([]SourceView, 0, len(result.Contexts)),
	}
	for _, c := range result.Contexts {
		sv := SourceView{Source: c.Source, Index: c.Index, Score: c.Score}
		if showContext {
			sv.Content = c.Content
		}
		view.Sources = append(view.Sources, sv)
	}
	if showPrompt {
		view.Prompt = result.Prompt
	}
	return view
}

func sourcesTable(sources []SourceView) *helpers.Table {
	t := &helpers.Table{Headers: []string{"#", "SOURCE", "CHUNK", "SCORE"}}
	withContent := false
	for _, s := range sources {
		if s.Content != "" {
			withContent = true
			break
		}
	}
	if withContent {
		t.Headers = append(t.Headers, "CONTENT")
	}
	for i, s := range sources {
		row := []string{
			strconv.Itoa(i + 1),
			s.Source,
			strconv.Itoa(s.Index),
			strconv.FormatFloat(s.Score, 'f', 3, 64),
		}
		if withContent {
			row = append(row, helpers.Truncate(strings.Join(strings.Fields(s.Content), " "), 80))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
