// Package config loads schemagate configuration.
//
// Values are layered, later layers winning:
//
//  1. Built-in defaults
//  2. Optional YAML file (--config flag or SCHEMAGATE_CONFIG)
//  3. Environment variables prefixed SCHEMAGATE_, e.g.
//     SCHEMAGATE_SERVER_ADDR -> server.addr,
//     SCHEMAGATE_GATE_MAX_BODY_BYTES -> gate.max_body_bytes
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/raywall/json-schema-gate/utils"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "SCHEMAGATE_"

// ConfigPathEnvVar names the config file when no path is given explicitly.
const ConfigPathEnvVar = EnvPrefix + "CONFIG"

// Config is the complete service configuration.
type Config struct {
	Server  ServerConfig  `koanf:"server"`
	Log     LogConfig     `koanf:"log"`
	Gate    GateConfig    `koanf:"gate"`
	Schemas SchemasConfig `koanf:"schemas"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required,hostname_port"`
	ReadTimeout     time.Duration `koanf:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `koanf:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`

	// CORSAllowedOrigins enables CORS for the listed origins; empty disables it.
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
	// RateLimitRequests per RateLimitWindow and client IP on validation
	// routes; 0 disables rate limiting.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=0"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gt=0"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error disabled"`
	Format string `koanf:"format" validate:"oneof=json console"`
}

// GateConfig applies to every validation gate the server mounts.
type GateConfig struct {
	Draft        string   `koanf:"draft" validate:"oneof=draft-04 draft-06 draft-07 hybrid"`
	MaxBodyBytes int64    `koanf:"max_body_bytes" validate:"min=1"`
	SkipMethods  []string `koanf:"skip_methods" validate:"dive,oneof=GET HEAD OPTIONS DELETE POST PUT PATCH"`
}

// SchemasConfig locates the schema files.
type SchemasConfig struct {
	Dir string `koanf:"dir" validate:"required"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            "127.0.0.1:8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimitWindow: time.Minute,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
		Gate: GateConfig{
			Draft:        "draft-04",
			MaxBodyBytes: 1 << 20,
		},
		Schemas: SchemasConfig{
			Dir: "schemas",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (or at
// $SCHEMAGATE_CONFIG when path is empty) and the environment.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path == "" {
		path = utils.GetEnvOrDefault(ConfigPathEnvVar, "")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Lists arrive from the environment as comma separated strings.
	for _, key := range []string{"gate.skip_methods", "server.cors_allowed_origins"} {
		if raw, ok := k.Get(key).(string); ok {
			if err := k.Set(key, utils.SplitList(raw)); err != nil {
				return nil, fmt.Errorf("failed to set %s: %w", key, err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if len(cfg.Gate.SkipMethods) == 0 {
		cfg.Gate.SkipMethods = nil
	}
	if len(cfg.Server.CORSAllowedOrigins) == 0 {
		cfg.Server.CORSAllowedOrigins = nil
	}
	for i, m := range cfg.Gate.SkipMethods {
		cfg.Gate.SkipMethods[i] = strings.ToUpper(m)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// envTransformFunc maps SCHEMAGATE_SECTION_FIELD_NAME to section.field_name.
// Variables that do not name a section are dropped.
func envTransformFunc(key string) string {
	key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	if key == "config" {
		return ""
	}
	section, field, ok := strings.Cut(key, "_")
	if !ok {
		return ""
	}
	switch section {
	case "server", "log", "gate", "schemas":
		return section + "." + field
	default:
		return ""
	}
}

// Validate checks the configuration with its struct tags.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}
	return nil
}

// formatValidationErrors turns validator errors into one readable error.
func formatValidationErrors(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "Config.")
		switch fe.Tag() {
		case "required":
			messages = append(messages, fmt.Sprintf("%s is required", field))
		case "oneof":
			messages = append(messages, fmt.Sprintf("%s must be one of [%s], got %q", field, fe.Param(), fe.Value()))
		case "hostname_port":
			messages = append(messages, fmt.Sprintf("%s must be host:port, got %q", field, fe.Value()))
		default:
			messages = append(messages, fmt.Sprintf("%s failed %s=%s", field, fe.Tag(), fe.Param()))
		}
	}
	return errors.New(strings.Join(messages, "; "))
}
