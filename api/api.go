package api

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"

	"github.com/Josn-deng/lux-xiaokai/api/mcp"
	"github.com/Josn-deng/lux-xiaokai/pkg/assistant"
	"github.com/Josn-deng/lux-xiaokai/pkg/history"
)

const defaultHistoryLimit = 50

// Server is the API server exposing the assistant tasks and their history.
type Server struct {
	config  Config
	service atomic.Pointer[assistant.Service]
	history history.Driver
	mcp     *mcp.Server
	logger  *slog.Logger
	app     *fiber.App
}

// NewServer creates a new API server. The history driver is injected so it
// can be shared with the worker pool that writes to it.
func NewServer(config Config, service *assistant.Service, driver history.Driver, logger *slog.Logger) (*Server, error) {
	if service == nil {
		return nil, errors.New("assistant service is required")
	}
	if driver == nil {
		return nil, errors.New("history driver is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}
	if config.HistoryLimit <= 0 {
		config.HistoryLimit = defaultHistoryLimit
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	s := &Server{
		config:  config,
		history: driver,
		logger:  logger,
		app:     app,
	}
	s.service.Store(service)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Service: s.Service,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}
	s.mcp = mcpServer

	app.Get("/ping", s.handlePing)
	app.Post("/v1/translate", s.handleTask(assistant.TaskTranslate))
	app.Post("/v1/polish", s.handleTask(assistant.TaskPolish))
	app.Post("/v1/ask", s.handleTask(assistant.TaskAsk))
	app.Post("/v1/speech-translate", s.handleTask(assistant.TaskSpeechTranslate))
	app.Post("/v1/stream/:task", s.handleStream)
	app.Get("/v1/history", s.handleListHistory)
	app.Get("/v1/history/:id", s.handleGetHistory)
	app.All("/mcp", adaptor.HTTPHandler(s.mcp.Handler()))

	return s, nil
}

// Service returns the assistant service currently serving requests.
func (s *Server) Service() *assistant.Service {
	return s.service.Load()
}

// SetService swaps the assistant service, e.g. after the config file
// changed. In-flight requests finish on the previous service.
func (s *Server) SetService(service *assistant.Service) {
	if service == nil {
		return
	}
	s.service.Store(service)
	s.logger.Info("assistant service reloaded",
		"model", service.Model(),
		"target_language", service.TargetLanguage(),
	)
}

// Run starts the API server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server",
		"listen", s.config.ListenAddr,
	)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
