package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/Josn-deng/lux-xiaokai/pkg/dotdir"
)

const (
	// File is the config file name inside the .xiaokai/ directory.
	File = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0

	// APIKeyEnv is consulted when ai.api_key is empty.
	APIKeyEnv = "AI_API_KEY"
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, File)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetPath = path

	return cfger, nil
}

// orderedKeys follows the TOML section layout.
var orderedKeys = []string{
	"ai.server",
	"ai.model",
	"ai.api_key",
	"ai.timeout_seconds",
	"ai.max_retries",
	"assistant.target_language",
	"assistant.auto_start",
	"history.driver",
	"history.sqlite_path",
	"history.postgres_dsn",
	"history.limit",
	"api.listen",
	"events.driver",
	"events.brokers",
	"events.topic",
}

// ValidConfigKeys returns all supported configuration key names in section
// order.
func ValidConfigKeys() []string {
	result := make([]string, 0, len(configKeys))
	for _, k := range orderedKeys {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
		}
	}
	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads config.toml from the target .xiaokai/ directory. A
// missing file yields NewDefaultConfig(), and fields absent from the file
// keep their defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	return LoadFile(c.targetPath)
}

// LoadFile parses the config file at path, falling back to defaults when it
// does not exist.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return ParseConfigTOML(data)
}

// applyDefaults replaces empty or out-of-range values with defaults.
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.AI.Server == "" {
		cfg.AI.Server = defaults.AI.Server
	}
	if cfg.AI.Model == "" {
		cfg.AI.Model = defaults.AI.Model
	}
	if cfg.AI.TimeoutSeconds <= 0 {
		cfg.AI.TimeoutSeconds = defaults.AI.TimeoutSeconds
	}
	if cfg.AI.MaxRetries < 0 {
		cfg.AI.MaxRetries = defaults.AI.MaxRetries
	}

	if cfg.Assistant.TargetLanguage == "" {
		cfg.Assistant.TargetLanguage = defaults.Assistant.TargetLanguage
	}

	if cfg.History.Driver == "" {
		cfg.History.Driver = defaults.History.Driver
	}
	if cfg.History.Limit <= 0 {
		cfg.History.Limit = defaults.History.Limit
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}

	if cfg.Events.Driver == "" {
		cfg.Events.Driver = defaults.Events.Driver
	}
	if cfg.Events.Topic == "" {
		cfg.Events.Topic = defaults.Events.Topic
	}
}

// SaveConfig persists the configuration to config.toml in the target
// .xiaokai/ directory. The file holds the API key, so it is written 0600.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// Value returns the string form of key on cfg.
func (cfg *Config) Value(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}
	return info.get(cfg), nil
}

// PresetConfig returns defaults pointed at a well-known endpoint.
// Supported presets: "local", "openai", "ollama".
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "local":
		return cfg, nil

	case "openai":
		cfg.AI.Server = "https://api.openai.com/v1/chat/completions"
		cfg.AI.Model = "gpt-4o-mini"
		return cfg, nil

	case "ollama":
		cfg.AI.Server = "http://localhost:11434/v1/chat/completions"
		cfg.AI.Model = "qwen2.5-coder"
		cfg.AI.TimeoutSeconds = 120
		return cfg, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"local", "openai", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config. Fields missing from
// the document keep their defaults. Returns an error if the version field is
// present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := NewDefaultConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	applyDefaults(cfg)

	return cfg, nil
}

// APIToken returns ai.api_key, or the AI_API_KEY environment variable when
// the key is empty.
func (cfg *Config) APIToken() string {
	if key := strings.TrimSpace(cfg.AI.APIKey); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv(APIKeyEnv))
}

// Timeout returns ai.timeout_seconds as a duration.
func (cfg *Config) Timeout() time.Duration {
	return time.Duration(cfg.AI.TimeoutSeconds) * time.Second
}

// MaskKey shortens a secret to its first 8 characters.
func MaskKey(key string) string {
	if len(key) > 8 {
		return key[:8] + "..."
	}
	return key
}

// String renders the config for display with the API key masked.
func (cfg *Config) String() string {
	return fmt.Sprintf(
		"Config(ai.server=%s, ai.model=%s, ai.api_key=%s, assistant.target_language=%s, assistant.auto_start=%t, history.driver=%s)",
		cfg.AI.Server, cfg.AI.Model, MaskKey(cfg.APIToken()),
		cfg.Assistant.TargetLanguage, cfg.Assistant.AutoStart, cfg.History.Driver,
	)
}
