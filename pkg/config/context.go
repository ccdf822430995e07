package config

import (
	"context"
	"sync"

	"github.com/compozy/docchat/pkg/logger"
)

// ContextKey is an alias used for storing values in context
type ContextKey string

const (
	// ConfigCtxKey is the context key used to store the *Config instance
	ConfigCtxKey ContextKey = "config"
	// ServiceCtxKey is the context key used to store the Service that loaded the config
	ServiceCtxKey ContextKey = "config_service"
)

// ContextWithConfig stores the configuration in the context
func ContextWithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, ConfigCtxKey, cfg)
}

// ContextWithService stores the loader so callers can ask where a key came from.
func ContextWithService(ctx context.Context, service Service) context.Context {
	return context.WithValue(ctx, ServiceCtxKey, service)
}

// ServiceFromContext returns the loader attached to ctx, or nil.
func ServiceFromContext(ctx context.Context) Service {
	if ctx == nil {
		return nil
	}
	service, _ := ctx.Value(ServiceCtxKey).(Service)
	return service
}

var (
	defaultConfig     *Config
	defaultConfigOnce sync.Once
)

// FromContext returns the configuration attached to ctx.
// When none is attached it falls back to defaults plus environment overrides.
func FromContext(ctx context.Context) *Config {
	if ctx != nil {
		if cfg, ok := ctx.Value(ConfigCtxKey).(*Config); ok && cfg != nil {
			return cfg
		}
	}
	defaultConfigOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			logger.FromContext(ctx).Warn("failed to load default configuration, using built-in defaults", "error", err)
			cfg = Default()
		}
		defaultConfig = cfg
	})
	return defaultConfig
}
