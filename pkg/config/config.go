package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/rotabyte/mp4tag/pkg/mp4"
)

// Config holds the settings a tagging CLI loads once at startup and hands
// to every mp4.Open/Save call it makes. Configure via YAML file
// (/config/tagctl.yaml or CONFIG_FILE) or environment variables; env vars
// use uppercase with underscores (e.g. PADDING_CEILING).
type Config struct {
	ReadAllMetaFrames      bool  `koanf:"read_all_meta_frames" json:"read_all_meta_frames"`
	UseFileNameWhenNoTitle bool  `koanf:"use_file_name_when_no_title" json:"use_file_name_when_no_title"`
	AddNewPadding          bool  `koanf:"add_new_padding" json:"add_new_padding"`
	DefaultPaddingSize     int64 `koanf:"default_padding_size" json:"default_padding_size" validate:"min=0"`
	PaddingCeiling         int64 `koanf:"padding_ceiling" json:"padding_ceiling" validate:"min=0"`
	MinPaddingSize         int64 `koanf:"min_padding_size" json:"min_padding_size" validate:"min=8"`
	EnableLogging          bool  `koanf:"enable_logging" json:"enable_logging"`
}

// ToMP4Config adapts this Config into the mp4.Config every Open/Save call
// consults, so a CLI only has to load settings once.
func (c *Config) ToMP4Config() mp4.Config {
	return mp4.Config{
		ReadAllMetaFrames:      c.ReadAllMetaFrames,
		UseFileNameWhenNoTitle: c.UseFileNameWhenNoTitle,
		AddNewPadding:          c.AddNewPadding,
		DefaultPaddingSize:     c.DefaultPaddingSize,
		PaddingCeiling:         c.PaddingCeiling,
		MinPaddingSize:         c.MinPaddingSize,
		EnableLogging:          c.EnableLogging,
	}
}

// defaults returns a Config with default values, mirroring mp4.DefaultConfig.
func defaults() *Config {
	return &Config{
		AddNewPadding:      true,
		DefaultPaddingSize: 1024,
		PaddingCeiling:     4096,
		MinPaddingSize:     8,
	}
}

// New creates a new Config by loading from file and environment variables.
// Load order (later sources override earlier):
//  1. Defaults
//  2. Config file (/config/tagctl.yaml or CONFIG_FILE env var)
//  3. Environment variables
func New() (*Config, error) {
	k := koanf.New(".")

	cfg := defaults()

	configPath := os.Getenv("CONFIG_FILE")
	if configPath == "" {
		configPath = "/config/tagctl.yaml"
	}
	if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
		// File not existing is fine - we'll use defaults and env vars
		if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "failed to load config file %s", configPath)
		}
	}

	if err := k.Load(env.Provider("", ".", strings.ToLower), nil); err != nil {
		return nil, errors.Wrap(err, "failed to load environment variables")
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// NewForTest creates a Config with every padding knob at a small, predictable
// value, for tests that don't want to exercise padding-absorption behavior.
func NewForTest() *Config {
	cfg := defaults()
	cfg.MinPaddingSize = 8
	cfg.DefaultPaddingSize = 64
	cfg.PaddingCeiling = 256
	return cfg
}

// validateConfig validates the config and returns user-friendly error messages.
func validateConfig(cfg *Config) error {
	validate := validator.New()
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors) //nolint:errorlint // validator's documented type-assert API
	if !ok {
		return errors.Wrap(err, "config validation failed")
	}

	var msgs []string
	for _, e := range validationErrors {
		field := e.StructField()
		tag := e.Tag()

		envVar := strings.ToUpper(toSnakeCase(field))
		yamlKey := toSnakeCase(field)
		msgs = append(msgs, fmt.Sprintf(
			"invalid config %s (tag %q)\n  Set via environment variable: %s\n  Or in config file: %s",
			field, tag, envVar, yamlKey,
		))
	}

	return errors.New("configuration validation failed:\n\n" + strings.Join(msgs, "\n\n"))
}

// toSnakeCase converts PascalCase to snake_case.
func toSnakeCase(s string) string {
	var result strings.Builder
	for i, r := range s {
		if i > 0 && r >= 'A' && r <= 'Z' {
			result.WriteRune('_')
		}
		result.WriteRune(r)
	}
	return strings.ToLower(result.String())
}
