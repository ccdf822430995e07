package answer

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"github.com/tmc/langchaingo/llms"

	"github.com/compozy/docchat/engine/knowledge"
	"github.com/compozy/docchat/pkg/logger"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// ErrNoDocuments is returned when nothing relevant is stored for a question.
var ErrNoDocuments = errors.New("answer: no documents available")

// Retriever finds stored chunks for a question.
type Retriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]knowledge.RetrievedContext, error)
}

type Options struct {
	TopK        int
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
}

// Answer is the model reply together with the passages it was given.
type Answer struct {
	Question string
	Text     string
	Contexts []knowledge.RetrievedContext
	Prompt   string
}

// Answerer turns a question into a grounded prompt and asks a model.
// Without a model it replies with the best matching passage.
type Answerer struct {
	retriever Retriever
	model     llms.Model
	template  *template.Template
	options   Options
}

type promptData struct {
	Question string
	Contexts []knowledge.RetrievedContext
}

func New(retriever Retriever, model llms.Model, opts Options) (*Answerer, error) {
	if retriever == nil {
		return nil, errors.New("answer: retriever is required")
	}
	tpl, err := template.New("answer").
		Option("missingkey=error").
		Funcs(sprig.TxtFuncMap()).
		ParseFS(templateFS, "templates/answer.tmpl")
	if err != nil {
		return nil, fmt.Errorf("answer: parse prompt template: %w", err)
	}
	return &Answerer{
		retriever: retriever,
		model:     model,
		template:  tpl.Lookup("answer.tmpl"),
		options:   opts,
	}, nil
}

// Ask retrieves context for question and returns the model's answer.
func (a *Answerer) Ask(ctx context.Context, question string) (*Answer, error) {
	contexts, err := a.retriever.Retrieve(ctx, question, a.options.TopK)
	if err != nil {
		return nil, err
	}
	if len(contexts) == 0 {
		return nil, ErrNoDocuments
	}
	prompt, err := a.BuildPrompt(question, contexts)
	if err != nil {
		return nil, err
	}
	out := &Answer{Question: question, Contexts: contexts, Prompt: prompt}
	if a.model == nil {
		out.Text = extractive(contexts[0])
		return out, nil
	}
	if a.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.options.Timeout)
		defer cancel()
	}
	start := time.Now()
	text, err := llms.GenerateFromSinglePrompt(ctx, a.model, prompt, a.callOptions()...)
	if err != nil {
		return nil, fmt.Errorf("answer: generate: %w", err)
	}
	logger.FromContext(ctx).Debug(
		"Answer generated",
		"contexts", len(contexts),
		"prompt_bytes", len(prompt),
		"duration", time.Since(start),
	)
	out.Text = strings.TrimSpace(text)
	return out, nil
}

// BuildPrompt renders the prompt for question and contexts.
func (a *Answerer) BuildPrompt(question string, contexts []knowledge.RetrievedContext) (string, error) {
	var buf bytes.Buffer
	if err := a.template.Execute(&buf, promptData{Question: question, Contexts: contexts}); err != nil {
		return "", fmt.Errorf("answer: render prompt: %w", err)
	}
	return buf.String(), nil
}

func (a *Answerer) callOptions() []llms.CallOption {
	opts := []llms.CallOption{llms.WithTemperature(a.options.Temperature)}
	if a.options.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(a.options.MaxTokens))
	}
	return opts
}

func extractive(best knowledge.RetrievedContext) string {
	return fmt.Sprintf("From %s (chunk %d):\n%s", best.Source, best.Index, strings.TrimSpace(best.Content))
}
