// Package watsonx is a client for the watsonx.ai text generation, chat and
// model catalogue APIs.
package watsonx

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/papercomputeco/watsonx/pkg/auth"
	"github.com/papercomputeco/watsonx/pkg/logger"
	"github.com/papercomputeco/watsonx/pkg/models"
	"github.com/papercomputeco/watsonx/pkg/transport"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

// Client talks to one watsonx.ai project. It is safe for concurrent use
// once connected.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	tokens     auth.TokenSource
	observer   Observer
	transport  *transport.Transport

	rps              float64
	burst            int
	batchConcurrency int

	// generate runs a single batch item.
	generate func(ctx context.Context, prompt string, cfg GenerationConfig) (*GenerationResult, error)

	mu    sync.RWMutex
	token string
	model string
}

// New validates cfg and returns a Client. The client holds no token until
// Connect or SetToken is called.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger.Nop(),
		observer:   nopObserver{},
		model:      models.DefaultModel,
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.tokens == nil {
		c.tokens = auth.NewIAM(cfg.APIKey, cfg.IAMURL,
			auth.WithHTTPClient(c.httpClient),
			auth.WithLogger(c.logger),
		)
	}

	c.transport = transport.New(
		transport.WithDoer(c.httpClient),
		transport.WithRateLimit(c.rps, c.burst),
		transport.WithLogger(c.logger),
	)
	c.generate = c.GenerateWithConfig

	return c, nil
}

// Connect obtains an access token from the token source.
func (c *Client) Connect(ctx context.Context) error {
	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}
	c.SetToken(tok)
	c.logger.Debug("connected to watsonx", "project_id", c.cfg.ProjectID)
	return nil
}

// SetToken installs a bearer token directly.
func (c *Client) SetToken(tok string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
}

// IsConnected reports whether the client holds a token.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// Model returns the model used by Generate.
func (c *Client) Model() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.model
}

// SetModel changes the model used by Generate.
func (c *Client) SetModel(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.model = id
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

func (c *Client) accessToken(op string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.token == "" {
		return "", wxerrors.Authentication(op, "not connected, call Connect first")
	}
	return c.token, nil
}

func (c *Client) newRequest(ctx context.Context, method, path, token string, body any) (*http.Request, error) {
	req, err := transport.NewJSONRequest(ctx, method, c.cfg.endpoint(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

// withTimeout bounds ctx by d, falling back to the client timeout.
func (c *Client) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = c.cfg.Timeout
	}
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (c *Client) observe(op string, start time.Time, err error) {
	c.observer.ObserveRequest(op, err, time.Since(start))
}
