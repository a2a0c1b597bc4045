package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Josn-deng/lux-xiaokai/pkg/dotdir"
)

// EnvPrefix prefixes every environment override, e.g. XIAOKAI_AI_MODEL.
const EnvPrefix = "XIAOKAI"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the XIAOKAI_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (XIAOKAI_AI_SERVER, XIAOKAI_API_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// ConfigPath returns the config.toml path viper resolved for configDir.
func ConfigPath(configDir string) (string, error) {
	target, err := dotdir.NewManager().Target(configDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(target, File), nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// AI endpoint
	v.SetDefault("ai.server", d.AI.Server)
	v.SetDefault("ai.model", d.AI.Model)
	v.SetDefault("ai.api_key", d.AI.APIKey)
	v.SetDefault("ai.timeout_seconds", d.AI.TimeoutSeconds)
	v.SetDefault("ai.max_retries", d.AI.MaxRetries)

	// Assistant
	v.SetDefault("assistant.target_language", d.Assistant.TargetLanguage)
	v.SetDefault("assistant.auto_start", d.Assistant.AutoStart)

	// History
	v.SetDefault("history.driver", d.History.Driver)
	v.SetDefault("history.sqlite_path", d.History.SQLitePath)
	v.SetDefault("history.postgres_dsn", d.History.PostgresDSN)
	v.SetDefault("history.limit", d.History.Limit)

	// API
	v.SetDefault("api.listen", d.API.Listen)

	// Events
	v.SetDefault("events.driver", d.Events.Driver)
	v.SetDefault("events.brokers", d.Events.Brokers)
	v.SetDefault("events.topic", d.Events.Topic)
}

// FromViper materializes the layered values of v into a Config, applying
// the same defaults and validation as a parsed config file.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Version: v.GetInt("version"),
		AI: AIConfig{
			Server:         v.GetString("ai.server"),
			Model:          v.GetString("ai.model"),
			APIKey:         v.GetString("ai.api_key"),
			TimeoutSeconds: v.GetInt("ai.timeout_seconds"),
			MaxRetries:     v.GetInt("ai.max_retries"),
		},
		Assistant: AssistantConfig{
			TargetLanguage: v.GetString("assistant.target_language"),
			AutoStart:      v.GetBool("assistant.auto_start"),
		},
		History: HistoryConfig{
			Driver:      v.GetString("history.driver"),
			SQLitePath:  v.GetString("history.sqlite_path"),
			PostgresDSN: v.GetString("history.postgres_dsn"),
			Limit:       v.GetInt("history.limit"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
		Events: EventsConfig{
			Driver:  v.GetString("events.driver"),
			Brokers: brokersFromViper(v),
			Topic:   v.GetString("events.topic"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// brokersFromViper accepts both a TOML array and a comma-separated
// environment value.
func brokersFromViper(v *viper.Viper) []string {
	var out []string
	for _, b := range v.GetStringSlice("events.brokers") {
		out = append(out, splitList(b)...)
	}
	return out
}

// Validate checks the driver selections. An unknown target language is not
// an error: translation falls back to Chinese.
func (cfg *Config) Validate() error {
	var errs []error
	for _, key := range []string{"history.driver", "events.driver"} {
		info := configKeys[key]
		probe := *cfg
		if err := info.set(&probe, info.get(cfg)); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
