package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/papercomputeco/watsonx/pkg/gateway/mcp"
	"github.com/papercomputeco/watsonx/pkg/history"
	"github.com/papercomputeco/watsonx/pkg/logger"
	"github.com/papercomputeco/watsonx/pkg/orchestrate"
	"github.com/papercomputeco/watsonx/pkg/recorder"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
)

// Generator is the part of *watsonx.Client the gateway serves.
type Generator interface {
	mcp.Generator

	GenerateText(ctx context.Context, prompt string, cfg watsonx.GenerationConfig) (*watsonx.GenerationResult, error)
	GenerateTextStream(ctx context.Context, prompt string, cfg watsonx.GenerationConfig, onFragment func(string) error) (*watsonx.GenerationResult, error)
	ChatCompletion(ctx context.Context, messages []watsonx.ChatMessage, cfg watsonx.ChatCompletionConfig) (*watsonx.ChatCompletionResult, error)
	ChatCompletionStream(ctx context.Context, messages []watsonx.ChatMessage, cfg watsonx.ChatCompletionConfig, onFragment func(string) error) (*watsonx.ChatCompletionResult, error)
}

// Agents is the part of *orchestrate.Client the gateway serves.
type Agents interface {
	ListAgents(ctx context.Context) ([]orchestrate.Agent, error)
	SendMessage(ctx context.Context, agentID, message, threadID string) (*orchestrate.StreamResult, error)
}

// Deps are the collaborators a Server routes to. Only Generator is
// required; routes for missing optional collaborators answer with a
// configuration error.
type Deps struct {
	Generator Generator
	Agents    Agents
	History   history.Store
	Recorder  *recorder.Pool

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// MCP is mounted at /mcp when set.
	MCP http.Handler

	Logger *slog.Logger
}

// Server is the local HTTP gateway.
type Server struct {
	config Config
	deps   Deps
	logger *slog.Logger
	app    *fiber.App

	mu       sync.RWMutex
	defaults watsonx.GenerationConfig
}

// NewServer creates a gateway that generates with defaults unless a request
// overrides them.
func NewServer(config Config, deps Deps, defaults watsonx.GenerationConfig) *Server {
	if config.ListenAddr == "" {
		config.ListenAddr = DefaultListenAddr
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          handleFiberError,
	})
	app.Use(recover.New())

	s := &Server{
		config:   config,
		deps:     deps,
		logger:   logger.OrNop(deps.Logger).With("component", "gateway"),
		app:      app,
		defaults: defaults,
	}

	app.Get("/ping", s.handlePing)
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}
	if deps.MCP != nil {
		app.All("/mcp", adaptor.HTTPHandler(deps.MCP))
	}

	v1 := app.Group("/v1")
	v1.Get("/models", s.handleListModels)
	v1.Post("/generate", s.handleGenerate)
	v1.Post("/generate/stream", s.handleGenerateStream)
	v1.Post("/chat", s.handleChat)
	v1.Post("/batch", s.handleBatch)
	v1.Get("/agents", s.handleListAgents)
	v1.Post("/agents/:id/messages", s.handleAgentMessage)
	v1.Get("/history", s.handleListHistory)
	v1.Get("/history/:id", s.handleGetHistory)

	return s
}

// Defaults returns the generation settings requests start from.
func (s *Server) Defaults() watsonx.GenerationConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

// SetDefaults replaces the generation settings for subsequent requests.
func (s *Server) SetDefaults(cfg watsonx.GenerationConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults = cfg
	s.logger.Info("generation defaults updated", "model", cfg.ModelID, "max_tokens", cfg.MaxTokens)
}

// Run starts the gateway on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting gateway", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the gateway.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
