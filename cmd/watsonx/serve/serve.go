// Package servecmder provides the serve command that runs the local HTTP
// gateway.
package servecmder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/papercomputeco/watsonx/cmd/watsonx/session"
	"github.com/papercomputeco/watsonx/pkg/config"
	"github.com/papercomputeco/watsonx/pkg/gateway"
	"github.com/papercomputeco/watsonx/pkg/gateway/mcp"
	"github.com/papercomputeco/watsonx/pkg/logger"
	"github.com/papercomputeco/watsonx/pkg/metrics"
	"github.com/papercomputeco/watsonx/pkg/orchestrate"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
)

const shutdownTimeout = 10 * time.Second

type ServeCommander struct {
	listen    string
	logFile   string
	rateLimit float64
	noAgents  bool
	noMCP     bool

	logger *slog.Logger
}

const serveLongDesc string = `Run the local watsonx gateway.

The gateway holds the IBM Cloud credentials and exposes watsonx.ai to
local tools over plain HTTP:

  GET  /ping                    Liveness
  GET  /metrics                 Prometheus metrics
  ALL  /mcp                     MCP tools (generate, batch_generate, list_models)
  GET  /v1/models               Foundation models
  POST /v1/generate             Generate text
  POST /v1/generate/stream      Generate text as server-sent events
  POST /v1/chat                 Chat completion (set "stream" for SSE)
  POST /v1/batch                Many prompts at once
  GET  /v1/agents               Orchestrate agents
  POST /v1/agents/:id/messages  Message an agent
  GET  /v1/history              Recorded calls
  GET  /v1/history/:id          One recorded call

Changes to watsonx.model, watsonx.max_tokens and watsonx.timeout_secs in
config.toml are picked up without a restart.`

const serveShortDesc string = "Run the local watsonx gateway"

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := session.Load(cmd,
				config.FlagListen,
				config.FlagProjectID,
				config.FlagAPIURL,
				config.FlagTimeout,
				config.FlagInstanceID,
				config.FlagRegion,
				config.FlagModel,
				config.FlagMaxTokens,
				config.FlagConcurrency,
				config.FlagHistoryDriver,
				config.FlagHistoryDSN,
				config.FlagKafkaBrokers,
				config.FlagKafkaTopic,
			)
			if err != nil {
				return err
			}

			if cmder.logFile != "" {
				closeLog, err := cmder.teeLogs(s)
				if err != nil {
					return err
				}
				defer closeLog()
			}
			cmder.logger = s.Logger

			return cmder.run(cmd.Context(), s)
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagProjectID, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagAPIURL, new(string))
	config.AddUintFlag(cmd, config.Flags, config.FlagTimeout, new(uint))
	config.AddStringFlag(cmd, config.Flags, config.FlagInstanceID, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagRegion, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, new(string))
	config.AddUintFlag(cmd, config.Flags, config.FlagMaxTokens, new(uint))
	config.AddUintFlag(cmd, config.Flags, config.FlagConcurrency, new(uint))
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDriver, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagHistoryDSN, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, new(string))
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, new(string))
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also write JSON logs to this file")
	cmd.Flags().Float64Var(&cmder.rateLimit, "rate-limit", 0, "Maximum upstream requests per second (0 for no limit)")
	cmd.Flags().BoolVar(&cmder.noAgents, "no-agents", false, "Do not connect to Watson Orchestrate")
	cmd.Flags().BoolVar(&cmder.noMCP, "no-mcp", false, "Serve /mcp without tools")

	return cmd
}

// teeLogs sends the session's logs to the log file as JSON as well.
func (c *ServeCommander) teeLogs(s *session.Session) (func(), error) {
	f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	s.Logger = logger.Multi(s.Logger, logger.New(
		logger.WithDebug(s.Debug),
		logger.WithJSON(true),
		logger.WithWriter(f),
	))
	return func() { _ = f.Close() }, nil
}

func (c *ServeCommander) run(ctx context.Context, s *session.Session) error {
	collector := metrics.New()

	opts := []watsonx.Option{watsonx.WithObserver(collector)}
	if c.rateLimit > 0 {
		opts = append(opts, watsonx.WithRateLimit(c.rateLimit, max(1, int(c.rateLimit))))
	}
	client, err := s.Watsonx(ctx, opts...)
	if err != nil {
		return err
	}

	pool, store, closeRecorder, err := s.Recorder(ctx, session.SurfaceGateway)
	if err != nil {
		return err
	}
	defer closeRecorder()

	deps := gateway.Deps{
		Generator: client,
		History:   store,
		Recorder:  pool,
		Metrics:   collector.Handler(),
		Agents:    c.connectAgents(ctx, s, collector),
		Logger:    c.logger,
	}

	var server *gateway.Server
	mcpServer, err := mcp.NewServer(mcp.Config{
		Generator: client,
		Defaults:  func() watsonx.GenerationConfig { return server.Defaults() },
		Noop:      c.noMCP,
		Logger:    c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating MCP server: %w", err)
	}
	deps.MCP = mcpServer.Handler()

	server = gateway.NewServer(gateway.Config{ListenAddr: s.Viper.GetString("gateway.listen")}, deps, s.GenerationConfig())

	if config.WatchConfig(s.Viper, func(e fsnotify.Event) {
		c.logger.Debug("config file changed", "file", e.Name)
		server.SetDefaults(watsonx.GenerationConfigFromViper(s.Viper))
	}) {
		c.logger.Info("watching config for changes", "file", s.Viper.ConfigFileUsed())
	}

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(); err != nil {
			errChan <- fmt.Errorf("gateway error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	select {
	case err := <-errChan:
		return err
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		c.logger.Info("context cancelled, shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// connectAgents returns an orchestrate client, or nil when agents are
// disabled or not configured.
func (c *ServeCommander) connectAgents(ctx context.Context, s *session.Session, o orchestrate.Observer) gateway.Agents {
	if c.noAgents {
		return nil
	}
	if orchestrate.ConfigFromViper(s.Viper).InstanceID == "" {
		c.logger.Info("agents disabled, no orchestrate instance configured")
		return nil
	}

	client, err := s.Orchestrate(ctx, orchestrate.WithObserver(o))
	if err != nil {
		c.logger.Warn("agents disabled", "error", err)
		return nil
	}
	return client
}
