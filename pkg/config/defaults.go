package config

const (
	defaultServer         = "http://localhost:3000/v1/chat/completions"
	defaultModel          = "qwen3-coder"
	defaultTimeoutSeconds = 30
	defaultMaxRetries     = 3

	defaultTargetLanguage = "zh"

	defaultHistoryDriver = HistoryDriverMemory
	defaultHistoryLimit  = 50

	defaultAPIListen = "127.0.0.1:8765"

	defaultEventsDriver = EventsDriverNop
	defaultEventsTopic  = "xiaokai.interactions"
)

// History drivers.
const (
	HistoryDriverMemory   = "memory"
	HistoryDriverSQLite   = "sqlite"
	HistoryDriverPostgres = "postgres"
)

// Event publisher drivers.
const (
	EventsDriverNop   = "nop"
	EventsDriverKafka = "kafka"
)

// HistoryDrivers returns the recognized history.driver values.
func HistoryDrivers() []string {
	return []string{HistoryDriverMemory, HistoryDriverSQLite, HistoryDriverPostgres}
}

// EventDrivers returns the recognized events.driver values.
func EventDrivers() []string {
	return []string{EventsDriverNop, EventsDriverKafka}
}

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		AI: AIConfig{
			Server:         defaultServer,
			Model:          defaultModel,
			TimeoutSeconds: defaultTimeoutSeconds,
			MaxRetries:     defaultMaxRetries,
		},
		Assistant: AssistantConfig{
			TargetLanguage: defaultTargetLanguage,
		},
		History: HistoryConfig{
			Driver: defaultHistoryDriver,
			Limit:  defaultHistoryLimit,
		},
		API: APIConfig{
			Listen: defaultAPIListen,
		},
		Events: EventsConfig{
			Driver: defaultEventsDriver,
			Topic:  defaultEventsTopic,
		},
	}
}
