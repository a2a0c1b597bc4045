package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Josn-deng/lux-xiaokai/pkg/prompt"
)

// Config represents the persistent xiaokai configuration stored as
// config.toml in the .xiaokai/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version   int             `toml:"version"`
	AI        AIConfig        `toml:"ai"`
	Assistant AssistantConfig `toml:"assistant"`
	History   HistoryConfig   `toml:"history"`
	API       APIConfig       `toml:"api"`
	Events    EventsConfig    `toml:"events"`
}

// AIConfig holds the chat-completions endpoint settings.
type AIConfig struct {
	Server         string `toml:"server,omitempty"`
	Model          string `toml:"model,omitempty"`
	APIKey         string `toml:"api_key,omitempty"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	MaxRetries     int    `toml:"max_retries"`
}

// AssistantConfig holds settings for the translation and polishing tasks.
type AssistantConfig struct {
	TargetLanguage string `toml:"target_language,omitempty"`
	AutoStart      bool   `toml:"auto_start"`
}

// HistoryConfig selects where completed interactions are recorded.
type HistoryConfig struct {
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
	Limit       int    `toml:"limit"`
}

// APIConfig holds the local HTTP service settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty"`
}

// EventsConfig selects the interaction event publisher.
type EventsConfig struct {
	Driver  string   `toml:"driver,omitempty"`
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"ai.server": {
		get: func(c *Config) string { return c.AI.Server },
		set: func(c *Config, v string) error { c.AI.Server = v; return nil },
	},
	"ai.model": {
		get: func(c *Config) string { return c.AI.Model },
		set: func(c *Config, v string) error { c.AI.Model = v; return nil },
	},
	"ai.api_key": {
		get: func(c *Config) string { return c.AI.APIKey },
		set: func(c *Config, v string) error { c.AI.APIKey = strings.TrimSpace(v); return nil },
	},
	"ai.timeout_seconds": {
		get: func(c *Config) string { return strconv.Itoa(c.AI.TimeoutSeconds) },
		set: func(c *Config, v string) error {
			n, err := parsePositiveInt("ai.timeout_seconds", v)
			if err != nil {
				return err
			}
			c.AI.TimeoutSeconds = n
			return nil
		},
	},
	"ai.max_retries": {
		get: func(c *Config) string { return strconv.Itoa(c.AI.MaxRetries) },
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid value for ai.max_retries: %q (must be a non-negative integer)", v)
			}
			c.AI.MaxRetries = n
			return nil
		},
	},
	"assistant.target_language": {
		get: func(c *Config) string { return c.Assistant.TargetLanguage },
		set: func(c *Config, v string) error {
			if !prompt.ValidLanguage(v) {
				return fmt.Errorf("invalid value for assistant.target_language: %q (available: %s)",
					v, strings.Join(prompt.SupportedLanguages(), ", "))
			}
			c.Assistant.TargetLanguage = v
			return nil
		},
	},
	"assistant.auto_start": {
		get: func(c *Config) string { return strconv.FormatBool(c.Assistant.AutoStart) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for assistant.auto_start: %w", err)
			}
			c.Assistant.AutoStart = b
			return nil
		},
	},
	"history.driver": {
		get: func(c *Config) string { return c.History.Driver },
		set: func(c *Config, v string) error {
			if err := oneOf("history.driver", v, HistoryDrivers()); err != nil {
				return err
			}
			c.History.Driver = v
			return nil
		},
	},
	"history.sqlite_path": {
		get: func(c *Config) string { return c.History.SQLitePath },
		set: func(c *Config, v string) error { c.History.SQLitePath = v; return nil },
	},
	"history.postgres_dsn": {
		get: func(c *Config) string { return c.History.PostgresDSN },
		set: func(c *Config, v string) error { c.History.PostgresDSN = v; return nil },
	},
	"history.limit": {
		get: func(c *Config) string { return strconv.Itoa(c.History.Limit) },
		set: func(c *Config, v string) error {
			n, err := parsePositiveInt("history.limit", v)
			if err != nil {
				return err
			}
			c.History.Limit = n
			return nil
		},
	},
	"api.listen": {
		get: func(c *Config) string { return c.API.Listen },
		set: func(c *Config, v string) error { c.API.Listen = v; return nil },
	},
	"events.driver": {
		get: func(c *Config) string { return c.Events.Driver },
		set: func(c *Config, v string) error {
			if err := oneOf("events.driver", v, EventDrivers()); err != nil {
				return err
			}
			c.Events.Driver = v
			return nil
		},
	},
	"events.brokers": {
		get: func(c *Config) string { return strings.Join(c.Events.Brokers, ",") },
		set: func(c *Config, v string) error { c.Events.Brokers = splitList(v); return nil },
	},
	"events.topic": {
		get: func(c *Config) string { return c.Events.Topic },
		set: func(c *Config, v string) error { c.Events.Topic = v; return nil },
	},
}

func parsePositiveInt(key, v string) (int, error) {
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid value for %s: %q (must be a positive integer)", key, v)
	}
	return n, nil
}

func oneOf(key, v string, allowed []string) error {
	for _, a := range allowed {
		if v == a {
			return nil
		}
	}
	return fmt.Errorf("invalid value for %s: %q (available: %s)", key, v, strings.Join(allowed, ", "))
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
