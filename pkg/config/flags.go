package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag
// (e.g. --model on translate, ask and chat) cannot drift.
type Flag struct {
	// Name is the long flag name (e.g. "model").
	Name string

	// Shorthand is the one-letter short flag (e.g. "m"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "ai.model").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling AddStringFlag, AddIntFlag,
// and BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagServer      = "server"
	FlagModel       = "model"
	FlagTimeout     = "timeout"
	FlagMaxRetries  = "max-retries"
	FlagTarget      = "target"
	FlagListen      = "listen"
	FlagHistory     = "history"
	FlagSQLite      = "sqlite"
	FlagPostgres    = "postgres"
	FlagLimit       = "limit"
	FlagEvents      = "events"
	FlagKafkaBroker = "kafka-brokers"
	FlagKafkaTopic  = "kafka-topic"
)

// Flags is the registry shared by all xiaokai commands.
var Flags = FlagSet{
	FlagServer: {
		Name:        "server",
		Shorthand:   "s",
		ViperKey:    "ai.server",
		Description: "Chat-completions endpoint URL",
	},
	FlagModel: {
		Name:        "model",
		Shorthand:   "m",
		ViperKey:    "ai.model",
		Description: "Model name sent with every request",
	},
	FlagTimeout: {
		Name:        "timeout",
		ViperKey:    "ai.timeout_seconds",
		Description: "Per-attempt timeout in seconds",
	},
	FlagMaxRetries: {
		Name:        "max-retries",
		ViperKey:    "ai.max_retries",
		Description: "Retries for rate limits, server and network errors",
	},
	FlagTarget: {
		Name:        "target",
		Shorthand:   "t",
		ViperKey:    "assistant.target_language",
		Description: "Target language (zh, en, vi)",
	},
	FlagListen: {
		Name:        "listen",
		Shorthand:   "l",
		ViperKey:    "api.listen",
		Description: "Address for the local API server",
	},
	FlagHistory: {
		Name:        "history",
		ViperKey:    "history.driver",
		Description: "History driver (memory, sqlite, postgres)",
	},
	FlagSQLite: {
		Name:        "sqlite",
		ViperKey:    "history.sqlite_path",
		Description: "Path to the sqlite history database",
	},
	FlagPostgres: {
		Name:        "postgres",
		ViperKey:    "history.postgres_dsn",
		Description: "PostgreSQL DSN for the history store",
	},
	FlagLimit: {
		Name:        "limit",
		Shorthand:   "n",
		ViperKey:    "history.limit",
		Description: "Number of interactions to show",
	},
	FlagEvents: {
		Name:        "events",
		ViperKey:    "events.driver",
		Description: "Interaction event publisher (nop, kafka)",
	},
	FlagKafkaBroker: {
		Name:        "kafka-brokers",
		ViperKey:    "events.brokers",
		Description: "Comma-separated Kafka brokers",
	},
	FlagKafkaTopic: {
		Name:        "kafka-topic",
		ViperKey:    "events.topic",
		Description: "Kafka topic for interaction events",
	},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaultString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, registryKey string, target *int) {
	def, ok := fs[registryKey]
	if !ok {
		return
	}

	defaultVal := defaultInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaultString returns the default string value for a viper key from NewDefaultConfig.
func defaultString(viperKey string) string {
	v := viper.New()
	setViperDefaults(v)
	return v.GetString(viperKey)
}

// defaultInt returns the default int value for a viper key from NewDefaultConfig.
func defaultInt(viperKey string) int {
	v := viper.New()
	setViperDefaults(v)
	return v.GetInt(viperKey)
}
