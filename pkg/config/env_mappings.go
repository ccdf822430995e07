package config

import (
	"reflect"
	"strings"
	"sync"
)

// EnvMapping links an environment variable to a configuration path.
type EnvMapping struct {
	EnvVar     string
	ConfigPath string
	Sensitive  bool
}

var (
	cachedMappings []EnvMapping
	mappingsOnce   sync.Once
)

// GenerateEnvMappings walks the Config struct tags once and returns every
// field that declares an `env` tag.
func GenerateEnvMappings() []EnvMapping {
	mappingsOnce.Do(func() {
		cachedMappings = collectMappings(reflect.TypeOf(Config{}), "")
	})
	return cachedMappings
}

func collectMappings(t reflect.Type, prefix string) []EnvMapping {
	var out []EnvMapping
	for i := range t.NumField() {
		field := t.Field(i)
		key := field.Tag.Get("koanf")
		if !field.IsExported() || key == "" || key == "-" {
			continue
		}
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if envVar := field.Tag.Get("env"); envVar != "" && envVar != "-" {
			out = append(out, EnvMapping{
				EnvVar:     envVar,
				ConfigPath: path,
				Sensitive:  isSensitiveField(field),
			})
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			out = append(out, collectMappings(field.Type, path)...)
		}
	}
	return out
}

func isSensitiveField(field reflect.StructField) bool {
	return field.Type == reflect.TypeOf(SensitiveString("")) || field.Tag.Get("sensitive") == "true"
}

// GenerateEnvToConfigMap returns env var name -> config path.
func GenerateEnvToConfigMap() map[string]string {
	mappings := GenerateEnvMappings()
	result := make(map[string]string, len(mappings))
	for _, m := range mappings {
		result[m.EnvVar] = m.ConfigPath
	}
	return result
}

// GetEnvVarForConfigPath returns the environment variable for a config path, or "".
func GetEnvVarForConfigPath(configPath string) string {
	for _, m := range GenerateEnvMappings() {
		if m.ConfigPath == configPath {
			return m.EnvVar
		}
	}
	return ""
}

// IsSensitiveConfigPath reports whether the value at configPath must be redacted.
func IsSensitiveConfigPath(configPath string) bool {
	t := reflect.TypeOf(Config{})
	parts := strings.Split(configPath, ".")
	for i, part := range parts {
		field, ok := fieldByKoanfTag(t, part)
		if !ok {
			return false
		}
		if i == len(parts)-1 {
			return isSensitiveField(field)
		}
		if field.Type.Kind() != reflect.Struct {
			return false
		}
		t = field.Type
	}
	return false
}

func fieldByKoanfTag(t reflect.Type, tag string) (reflect.StructField, bool) {
	for i := range t.NumField() {
		if f := t.Field(i); f.Tag.Get("koanf") == tag {
			return f, true
		}
	}
	return reflect.StructField{}, false
}
