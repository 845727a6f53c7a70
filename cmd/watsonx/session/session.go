// Package session resolves configuration, credentials and logging for a
// single CLI invocation and builds the clients commands need.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/watsonx/cmd/watsonx/sqlitepath"
	"github.com/papercomputeco/watsonx/pkg/config"
	"github.com/papercomputeco/watsonx/pkg/credentials"
	"github.com/papercomputeco/watsonx/pkg/eventstream"
	"github.com/papercomputeco/watsonx/pkg/eventstream/kafka"
	"github.com/papercomputeco/watsonx/pkg/eventstream/nop"
	"github.com/papercomputeco/watsonx/pkg/history"
	"github.com/papercomputeco/watsonx/pkg/logger"
	"github.com/papercomputeco/watsonx/pkg/orchestrate"
	"github.com/papercomputeco/watsonx/pkg/recorder"
	"github.com/papercomputeco/watsonx/pkg/watsonx"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

// Surfaces reported in published events.
const (
	SurfaceCLI     = "cli"
	SurfaceGateway = "gateway"
)

// Session holds the resolved settings of one command run.
type Session struct {
	ConfigDir string
	Viper     *viper.Viper
	Logger    *slog.Logger
	Debug     bool
}

// Load initialises viper from --config-dir, binds the given registry flags
// and builds the logger from --debug and --json-logs.
func Load(cmd *cobra.Command, flagKeys ...string) (*Session, error) {
	configDir, _ := cmd.Flags().GetString("config-dir")
	debug, _ := cmd.Flags().GetBool("debug")
	jsonLogs, _ := cmd.Flags().GetBool("json-logs")

	v, err := config.InitViper(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	config.BindRegisteredFlags(v, cmd, config.Flags, flagKeys)

	return &Session{
		ConfigDir: configDir,
		Viper:     v,
		Debug:     debug,
		Logger: logger.New(
			logger.WithDebug(debug),
			logger.WithPretty(!jsonLogs),
			logger.WithJSON(jsonLogs),
		),
	}, nil
}

// GenerationConfig returns the generation defaults from config and flags.
func (s *Session) GenerationConfig() watsonx.GenerationConfig {
	return watsonx.GenerationConfigFromViper(s.Viper)
}

// WatsonxConfig returns the client settings with the API key resolved from
// the environment or credentials.toml.
func (s *Session) WatsonxConfig() (watsonx.Config, error) {
	cfg := watsonx.ConfigFromViper(s.Viper)
	if cfg.APIKey != "" {
		return cfg, nil
	}

	key, err := s.resolveKey(credentials.ProviderWatsonx)
	if err != nil {
		return cfg, err
	}
	cfg.APIKey = key
	return cfg, nil
}

// Watsonx returns a connected watsonx.ai client.
func (s *Session) Watsonx(ctx context.Context, opts ...watsonx.Option) (*watsonx.Client, error) {
	cfg, err := s.WatsonxConfig()
	if err != nil {
		return nil, err
	}

	opts = append([]watsonx.Option{
		watsonx.WithLogger(s.Logger),
		watsonx.WithBatchConcurrency(s.Viper.GetInt("batch.concurrency")),
	}, opts...)

	client, err := watsonx.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if model := s.Viper.GetString("watsonx.model"); model != "" {
		client.SetModel(model)
	}

	if err := client.Connect(ctx); err != nil {
		return nil, err
	}
	return client, nil
}

// Orchestrate returns an authenticated orchestrate client. The orchestrate
// API key falls back to the watsonx key.
func (s *Session) Orchestrate(ctx context.Context, opts ...orchestrate.Option) (*orchestrate.Client, error) {
	cfg := orchestrate.ConfigFromViper(s.Viper)

	key := s.Viper.GetString("orchestrate.api_key")
	if key == "" {
		var err error
		key, err = s.resolveKey(credentials.ProviderOrchestrate)
		if err != nil {
			return nil, err
		}
	}
	if key == "" {
		wx, err := s.WatsonxConfig()
		if err != nil {
			return nil, err
		}
		key = wx.APIKey
	}
	if key == "" {
		return nil, wxerrors.Configuration("orchestrate_auth",
			"no API key configured; set WXO_API_KEY or run 'watsonx auth orchestrate'")
	}

	opts = append([]orchestrate.Option{
		orchestrate.WithLogger(s.Logger),
		orchestrate.WithIAMURL(s.Viper.GetString("watsonx.iam_url")),
	}, opts...)

	client, err := orchestrate.New(cfg, opts...)
	if err != nil {
		return nil, err
	}
	if _, err := client.GenerateToken(ctx, key); err != nil {
		return nil, err
	}
	return client, nil
}

func (s *Session) resolveKey(provider string) (string, error) {
	mgr, err := credentials.NewManager(s.ConfigDir)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}
	key, source, err := mgr.Resolve(provider)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}
	if key != "" {
		s.Logger.Debug("resolved api key", "provider", provider, "source", source)
	}
	return key, nil
}

// HistoryDriver returns the configured history driver.
func (s *Session) HistoryDriver() string {
	return s.Viper.GetString("history.driver")
}

// OpenHistory opens the configured history store. The sqlite driver without
// a DSN uses history.db in the .watsonx/ directory.
func (s *Session) OpenHistory(ctx context.Context) (history.Store, error) {
	driver := s.HistoryDriver()
	dsn := s.Viper.GetString("history.dsn")

	if driver == history.DriverSQLite && dsn == "" {
		path, err := sqlitepath.ResolveSQLitePath("", s.ConfigDir)
		if err != nil {
			return nil, err
		}
		dsn = path
	}

	store, err := history.Open(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	s.Logger.Debug("history store opened", "driver", driver)
	return store, nil
}

// Publisher returns the Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func (s *Session) Publisher() (eventstream.Publisher, error) {
	brokers := splitList(s.Viper.GetString("events.kafka_brokers"))
	if len(brokers) == 0 {
		return nop.NewPublisher(), nil
	}

	topic := s.Viper.GetString("events.kafka_topic")
	s.Logger.Info("publishing generation events", "brokers", brokers, "topic", topic)
	return kafka.NewPublisher(
		kafka.Config{Brokers: brokers, Topic: topic},
		kafka.WithLogger(s.Logger),
	)
}

// Recorder starts a recorder pool over the configured history store and
// publisher. The returned close function drains the pool and releases
// both.
func (s *Session) Recorder(ctx context.Context, surface string) (*recorder.Pool, history.Store, func(), error) {
	store, err := s.OpenHistory(ctx)
	if err != nil {
		return nil, nil, nil, err
	}

	pub, err := s.Publisher()
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}

	pool, err := recorder.NewPool(&recorder.Config{
		Store:     store,
		Publisher: pub,
		Surface:   surface,
		Logger:    s.Logger,
	})
	if err != nil {
		_ = pub.Close()
		_ = store.Close()
		return nil, nil, nil, err
	}

	closeFn := func() {
		pool.Close()
		if err := pub.Close(); err != nil {
			s.Logger.Warn("closing publisher", "error", err)
		}
		if err := store.Close(); err != nil {
			s.Logger.Warn("closing history", "error", err)
		}
	}
	return pool, store, closeFn, nil
}

// Recording reports whether CLI calls should be recorded: a persistent
// history store or an event stream is configured.
func (s *Session) Recording() bool {
	return s.HistoryDriver() != history.DriverMemory ||
		len(splitList(s.Viper.GetString("events.kafka_brokers"))) > 0
}

// StartRecorder returns a recorder for CLI calls, or nil when Recording is
// false or the recorder cannot start. Failures are logged rather than
// returned so that recording never blocks a command.
func (s *Session) StartRecorder(ctx context.Context) (*recorder.Pool, func()) {
	if !s.Recording() {
		return nil, func() {}
	}

	pool, _, closeFn, err := s.Recorder(ctx, SurfaceCLI)
	if err != nil {
		s.Logger.Warn("history recording disabled", "error", err)
		return nil, func() {}
	}
	return pool, closeFn
}

// Record enqueues a history job when pool is non-nil.
func Record(pool *recorder.Pool, job recorder.Job) {
	if pool != nil {
		pool.Enqueue(job)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
