// Package servecmder provides the serve command, which runs the local HTTP
// API and MCP endpoint over the assistant services.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Josn-deng/lux-xiaokai/api"
	"github.com/Josn-deng/lux-xiaokai/cmd/xiaokai/setup"
	"github.com/Josn-deng/lux-xiaokai/pkg/cliui"
	"github.com/Josn-deng/lux-xiaokai/pkg/config"
	"github.com/Josn-deng/lux-xiaokai/pkg/logger"
)

type serveCommander struct {
	logFile  string
	noWatch  bool
	flagKeys []string

	configDir string
	logger    *slog.Logger
}

const serveLongDesc string = `Run the local xiaokai API server.

Serves the assistant tasks over HTTP for desktop front ends and scripts:
  GET  /ping
  POST /v1/translate, /v1/polish, /v1/ask, /v1/speech-translate
  POST /v1/stream/{task}       Server-sent events of reply deltas
  GET  /v1/history[/{id}]      Recorded interactions
       /mcp                    MCP tools translate, polish and ask

Every interaction is recorded to the history driver and, with
events.driver = kafka, published as an event. Changes to config.toml are
picked up without a restart; history, events and listen changes need one.

Examples:
  xiaokai serve
  xiaokai serve --listen 127.0.0.1:9000 --history sqlite
  xiaokai serve --events kafka --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the local API server"

func NewServeCmd() *cobra.Command {
	cmder := &serveCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().BoolVar(&cmder.noWatch, "no-watch", false, "Do not reload config.toml on change")
	cmder.flagKeys = setup.AddFlags(cmd,
		setup.ClientFlags,
		setup.RecordingFlags,
		[]string{config.FlagListen, config.FlagLimit},
	)

	return cmd
}

func (c *serveCommander) run(cmd *cobra.Command) error {
	cfg, err := setup.LoadConfig(cmd, c.flagKeys)
	if err != nil {
		return err
	}

	c.configDir = setup.ConfigDir(cmd)

	closeLog, err := c.initLogger(cmd)
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var stack *setup.Stack
	err = cliui.Step(cmd.ErrOrStderr(), fmt.Sprintf("Opening %s history", cfg.History.Driver), func() error {
		var err error
		stack, err = setup.Open(ctx, cfg, c.configDir, "api", c.logger)
		return err
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := stack.Close(); err != nil {
			c.logger.Warn("closing history", "error", err)
		}
	}()

	c.logger.Info("recording interactions",
		"history", cfg.History.Driver,
		"events", cfg.Events.Driver,
	)

	server, err := api.NewServer(api.Config{
		ListenAddr:   cfg.API.Listen,
		HistoryLimit: cfg.History.Limit,
	}, stack.Service, stack.Driver, c.logger)
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	errChan := make(chan error, 2)

	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("API server error: %w", err)
		}
	}()

	if !c.noWatch {
		go func() {
			if err := c.watch(ctx, cmd, cfg, stack, server); err != nil {
				errChan <- err
			}
		}()
	}

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		c.logger.Info("shutting down")
		return server.Shutdown()
	}
}

// initLogger sets up the console logger, fanned out to a JSON log file when
// --log-file is set. The returned func closes the file.
func (c *serveCommander) initLogger(cmd *cobra.Command) (func(), error) {
	debug := setup.Debug(cmd)
	console := setup.NewLogger(cmd.ErrOrStderr(), debug)

	if c.logFile == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	c.logger = logger.Multi(console, logger.New(
		logger.WithWriter(f),
		logger.WithJSON(true),
		logger.WithDebug(debug),
	))

	return func() { _ = f.Close() }, nil
}

// watch swaps in a new assistant service whenever config.toml changes. The
// full flag > env > file precedence is re-resolved on each change.
func (c *serveCommander) watch(ctx context.Context, cmd *cobra.Command, initial *config.Config, stack *setup.Stack, server *api.Server) error {
	path, err := config.ConfigPath(c.configDir)
	if err != nil {
		return err
	}

	return config.Watch(ctx, path, c.logger, func(*config.Config) {
		cfg, err := setup.LoadConfig(cmd, c.flagKeys)
		if err != nil {
			c.logger.Warn("ignoring config change", "error", err)
			return
		}

		if cfg.History != initial.History || cfg.API != initial.API || cfg.Events.Driver != initial.Events.Driver {
			c.logger.Warn("history, events and listen changes take effect after a restart")
		}

		service, err := setup.NewService(cfg, stack.Pool, c.logger)
		if err != nil {
			c.logger.Warn("ignoring config change", "error", err)
			return
		}

		server.SetService(service)
	})
}
