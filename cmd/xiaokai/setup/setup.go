// Package setup builds the pieces every xiaokai command shares from the
// resolved configuration: the logger, the chat client, the history driver,
// the event publisher and the worker pool that connects them.
package setup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/sqlitepath"
	"github.com/Josn-deng/lux-xiaokai/pkg/aiclient"
	"github.com/Josn-deng/lux-xiaokai/pkg/assistant"
	"github.com/Josn-deng/lux-xiaokai/pkg/config"
	"github.com/Josn-deng/lux-xiaokai/pkg/eventstream"
	"github.com/Josn-deng/lux-xiaokai/pkg/eventstream/kafka"
	"github.com/Josn-deng/lux-xiaokai/pkg/eventstream/nop"
	"github.com/Josn-deng/lux-xiaokai/pkg/history"
	"github.com/Josn-deng/lux-xiaokai/pkg/history/inmemory"
	"github.com/Josn-deng/lux-xiaokai/pkg/history/postgres"
	"github.com/Josn-deng/lux-xiaokai/pkg/history/sqlite"
	"github.com/Josn-deng/lux-xiaokai/pkg/logger"
	"github.com/Josn-deng/lux-xiaokai/pkg/worker"
)

// ConfigDir returns the --config-dir persistent flag.
func ConfigDir(cmd *cobra.Command) string {
	dir, _ := cmd.Flags().GetString("config-dir")
	return dir
}

// Debug returns the --debug persistent flag.
func Debug(cmd *cobra.Command) bool {
	debug, _ := cmd.Flags().GetBool("debug")
	return debug
}

// ClientFlags are the registry keys of the chat endpoint flags.
var ClientFlags = []string{
	config.FlagServer,
	config.FlagModel,
	config.FlagTimeout,
	config.FlagMaxRetries,
	config.FlagTarget,
}

// RecordingFlags are the registry keys of the history and event flags.
var RecordingFlags = []string{
	config.FlagHistory,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagEvents,
	config.FlagKafkaBroker,
	config.FlagKafkaTopic,
}

var intFlags = map[string]bool{
	config.FlagTimeout:    true,
	config.FlagMaxRetries: true,
	config.FlagLimit:      true,
}

// AddFlags registers the registry flags named by groups on cmd and returns
// their keys for LoadConfig. Values are read back through viper, so the
// flag targets are not kept.
func AddFlags(cmd *cobra.Command, groups ...[]string) []string {
	var keys []string
	for _, group := range groups {
		for _, key := range group {
			if intFlags[key] {
				config.AddIntFlag(cmd, config.Flags, key, new(int))
			} else {
				config.AddStringFlag(cmd, config.Flags, key, new(string))
			}
			keys = append(keys, key)
		}
	}
	return keys
}

// LoadConfig layers flags named by keys over env, config.toml and defaults.
func LoadConfig(cmd *cobra.Command, keys []string) (*config.Config, error) {
	v, err := config.InitViper(ConfigDir(cmd))
	if err != nil {
		return nil, err
	}

	config.BindRegisteredFlags(v, cmd, config.Flags, keys)

	return config.FromViper(v)
}

// NewLogger returns the command logger. It is pretty when w is a terminal
// and plain text otherwise.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	return logger.New(
		logger.WithWriter(w),
		logger.WithDebug(debug),
		logger.WithPretty(isTerminal(w)),
	)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// NewClient builds the chat client from the [ai] section.
func NewClient(cfg *config.Config, log *slog.Logger) (*aiclient.Client, error) {
	return aiclient.New(cfg.AI.Server, cfg.APIToken(),
		aiclient.WithTimeout(cfg.Timeout()),
		aiclient.WithMaxRetries(cfg.AI.MaxRetries),
		aiclient.WithLogger(log),
	)
}

// NewService builds the assistant service, recording to recorder.
func NewService(cfg *config.Config, recorder assistant.Recorder, log *slog.Logger) (*assistant.Service, error) {
	client, err := NewClient(cfg, log)
	if err != nil {
		return nil, err
	}

	return assistant.New(client, cfg.AI.Model, cfg.Assistant.TargetLanguage,
		assistant.WithRecorder(recorder),
		assistant.WithLogger(log),
	), nil
}

// OpenHistory opens the driver selected by history.driver.
func OpenHistory(ctx context.Context, cfg *config.Config, configDir string) (history.Driver, error) {
	switch cfg.History.Driver {
	case config.HistoryDriverSQLite:
		path, err := sqlitepath.ResolveSQLitePath(cfg.History.SQLitePath, configDir)
		if err != nil {
			return nil, err
		}
		return sqlite.NewDriver(ctx, path)

	case config.HistoryDriverPostgres:
		if cfg.History.PostgresDSN == "" {
			return nil, errors.New("history.postgres_dsn is required for the postgres driver")
		}
		return postgres.NewDriver(ctx, cfg.History.PostgresDSN)

	case config.HistoryDriverMemory, "":
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unknown history driver: %q", cfg.History.Driver)
	}
}

// NewPublisher builds the publisher selected by events.driver.
func NewPublisher(cfg *config.Config, log *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.Events.Driver {
	case config.EventsDriverKafka:
		return kafka.NewPublisher(kafka.Config{
			Brokers: cfg.Events.Brokers,
			Topic:   cfg.Events.Topic,
			Logger:  log,
		})

	case config.EventsDriverNop, "":
		return nop.NewPublisher(), nil

	default:
		return nil, fmt.Errorf("unknown events driver: %q", cfg.Events.Driver)
	}
}

// Stack is a ready assistant service with its recording pipeline.
type Stack struct {
	Config    *config.Config
	Logger    *slog.Logger
	Driver    history.Driver
	Publisher eventstream.Publisher
	Pool      *worker.Pool
	Service   *assistant.Service
}

// Open builds a Stack for cfg. frontend is stamped on every event.
func Open(ctx context.Context, cfg *config.Config, configDir, frontend string, log *slog.Logger) (*Stack, error) {
	driver, err := OpenHistory(ctx, cfg, configDir)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}

	publisher, err := NewPublisher(cfg, log)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("creating event publisher: %w", err)
	}

	hostname, _ := os.Hostname()
	pool, err := worker.NewPool(&worker.Config{
		Driver:    driver,
		Publisher: publisher,
		Source: eventstream.EventSource{
			Frontend: frontend,
			Server:   hostname,
		},
		Logger: log,
	})
	if err != nil {
		publisher.Close()
		driver.Close()
		return nil, err
	}

	service, err := NewService(cfg, pool, log)
	if err != nil {
		pool.Close()
		publisher.Close()
		driver.Close()
		return nil, err
	}

	return &Stack{
		Config:    cfg,
		Logger:    log,
		Driver:    driver,
		Publisher: publisher,
		Pool:      pool,
		Service:   service,
	}, nil
}

// Close drains the pool before closing the publisher and the driver it
// writes to.
func (s *Stack) Close() error {
	s.Pool.Close()
	return errors.Join(s.Publisher.Close(), s.Driver.Close())
}
