package config

import (
	"context"
	"fmt"
	"maps"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/cobra"

	"github.com/compozy/docchat/cli/cmd"
	"github.com/compozy/docchat/cli/helpers"
	"github.com/compozy/docchat/pkg/config"
	"github.com/compozy/docchat/pkg/logger"
)

// Pre-compiled regex for URL token redaction
var tokenRegex = regexp.MustCompile(`(token|key|api_key)=[^&\s]+`)

var showFormats = []helpers.OutputFormat{helpers.OutputFormatYAML, helpers.OutputFormatJSON, helpers.OutputFormatTable}

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	command.AddCommand(
		NewConfigShowCommand(),
		NewConfigValidateCommand(),
	)
	return command
}

// NewConfigShowCommand creates the config show subcommand
func NewConfigShowCommand() *cobra.Command {
	command := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration values",
		Long: `Display the configuration after defaults, the YAML file, environment variables
and flags were merged. Secrets are redacted.`,
		Args: cobra.NoArgs,
		RunE: executeConfigShowCommand,
	}
	cmd.AddFormatFlag(command, showFormats...)
	command.Flags().BoolP("sources", "s", false, "Show where each value came from")
	return command
}

func executeConfigShowCommand(cobraCmd *cobra.Command, args []string) error {
	return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{Formats: showFormats}, handleConfigShow, args)
}

func handleConfigShow(ctx context.Context, cobraCmd *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	log := logger.FromContext(ctx)
	log.Debug("Executing config show command")
	showSources, err := cobraCmd.Flags().GetBool("sources")
	if err != nil {
		return fmt.Errorf("failed to get sources flag: %w", err)
	}
	flat, err := flattenConfig(executor.Config())
	if err != nil {
		return err
	}
	var sources map[string]config.SourceType
	if showSources {
		sources = collectSources(ctx, flat)
	}
	return formatConfigOutput(executor.Output(), flat, sources)
}

// NewConfigValidateCommand creates the config validate subcommand
func NewConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cobraCmd *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(cobraCmd, cmd.ExecutorOptions{}, handleConfigValidate, args)
		},
	}
}

func handleConfigValidate(ctx context.Context, _ *cobra.Command, executor *cmd.CommandExecutor, _ []string) error {
	service := config.ServiceFromContext(ctx)
	if service == nil {
		service = config.NewService()
	}
	if err := service.Validate(executor.Config()); err != nil {
		return helpers.NewCliError("INVALID_CONFIG", "Configuration is invalid", err.Error())
	}
	_, err := fmt.Fprintln(executor.Stdout(), "Configuration is valid")
	return err
}

// formatConfigOutput writes the flattened config in the writer's format
func formatConfigOutput(out *helpers.OutputWriter, flat map[string]any, sources map[string]config.SourceType) error {
	if out.Format() == helpers.OutputFormatTable {
		return out.WriteData(configTable(flat, sources))
	}
	nested, err := unflatten(flat)
	if err != nil {
		return err
	}
	doc := map[string]any{"config": nested}
	if len(sources) > 0 {
		doc["sources"] = sources
	}
	return out.WriteData(doc)
}

func configTable(flat map[string]any, sources map[string]config.SourceType) *helpers.Table {
	t := &helpers.Table{Headers: []string{"KEY", "VALUE"}}
	if sources != nil {
		t.Headers = append(t.Headers, "SOURCE")
	}
	for _, key := range slices.Sorted(maps.Keys(flat)) {
		row := []string{key, fmt.Sprint(flat[key])}
		if sources != nil {
			row = append(row, string(sources[key]))
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func collectSources(ctx context.Context, flat map[string]any) map[string]config.SourceType {
	sources := make(map[string]config.SourceType, len(flat))
	service := config.ServiceFromContext(ctx)
	for key := range flat {
		source := config.SourceDefault
		if service != nil {
			source = service.GetSource(key)
		}
		sources[key] = source
	}
	return sources
}

// flattenConfig converts the config to dot-separated keys with display-ready values
func flattenConfig(cfg *config.Config) (map[string]any, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to flatten configuration: %w", err)
	}
	result := make(map[string]any)
	for key, value := range k.All() {
		result[key] = displayValue(key, value)
	}
	return result, nil
}

func displayValue(key string, value any) any {
	if config.IsSensitiveConfigPath(key) {
		return redactSensitive(fmt.Sprint(value))
	}
	switch v := value.(type) {
	case time.Duration:
		return v.String()
	case []string:
		return strings.Join(v, ",")
	case string:
		if strings.HasSuffix(key, "base_url") {
			return redactURL(v)
		}
		return v
	default:
		return value
	}
}

func unflatten(flat map[string]any) (map[string]any, error) {
	k := koanf.New(".")
	for key, value := range flat {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("failed to set %s: %w", key, err)
		}
	}
	return k.Raw(), nil
}

// redactURL hides credentials embedded in URLs
func redactURL(urlStr string) string {
	if strings.Contains(urlStr, "://") && strings.Contains(urlStr, "@") {
		protocolEnd := strings.Index(urlStr, "://") + 3
		atIndex := strings.LastIndex(urlStr, "@")
		if atIndex > protocolEnd {
			urlStr = urlStr[:protocolEnd] + "[REDACTED]@" + urlStr[atIndex+1:]
		}
	}
	return tokenRegex.ReplaceAllString(urlStr, "$1=[REDACTED]")
}

// redactSensitive redacts sensitive string values
func redactSensitive(value string) string {
	if value == "" {
		return ""
	}
	return "[REDACTED]"
}
