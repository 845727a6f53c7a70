// Package orchestrate is a client for the Watson Orchestrate agent API:
// streamed agent runs, chat with documents, run tracking, agents and
// conversation threads.
package orchestrate

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/watsonx/pkg/auth"
	"github.com/papercomputeco/watsonx/pkg/logger"
	"github.com/papercomputeco/watsonx/pkg/models"
	"github.com/papercomputeco/watsonx/pkg/transport"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

// DefaultTimeout is the Config.Timeout of NewConfig.
const DefaultTimeout = 300 * time.Second

// Observer receives request outcomes. pkg/metrics provides one.
type Observer interface {
	ObserveRequest(op string, err error, d time.Duration)
	ObserveParseError(op string)
}

type nopObserver struct{}

func (nopObserver) ObserveRequest(string, error, time.Duration) {}

func (nopObserver) ObserveParseError(string) {}

// Client talks to one orchestrate instance.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	observer   Observer
	iamURL     string
	transport  *transport.Transport

	mu    sync.RWMutex
	token string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) {
		cl.logger = logger.OrNop(l)
	}
}

// WithToken starts the client with a bearer token.
func WithToken(tok string) Option {
	return func(cl *Client) {
		cl.token = tok
	}
}

// WithObserver registers o for request outcomes.
func WithObserver(o Observer) Option {
	return func(cl *Client) {
		if o != nil {
			cl.observer = o
		}
	}
}

// WithTimeout overrides Config.Timeout.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		cl.cfg.Timeout = d
	}
}

// WithIAMURL sets the IAM host used by GenerateToken.
func WithIAMURL(u string) Option {
	return func(cl *Client) {
		if u != "" {
			cl.iamURL = u
		}
	}
}

// New validates cfg and returns a Client.
func New(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
		logger:     logger.Nop(),
		observer:   nopObserver{},
		iamURL:     models.DefaultIAMURL,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.transport = transport.New(
		transport.WithDoer(c.httpClient),
		transport.WithLogger(c.logger),
	)

	return c, nil
}

// Config returns the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// SetToken installs a bearer token.
func (c *Client) SetToken(tok string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = tok
}

// IsAuthenticated reports whether the client holds a token.
func (c *Client) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// GenerateToken exchanges apiKey for an IAM token and installs it.
func (c *Client) GenerateToken(ctx context.Context, apiKey string) (string, error) {
	iam := auth.NewIAM(apiKey, c.iamURL,
		auth.WithHTTPClient(c.httpClient),
		auth.WithLogger(c.logger),
	)

	tok, err := iam.Token(ctx)
	if err != nil {
		return "", err
	}

	c.SetToken(tok)
	return tok, nil
}

func (c *Client) newRequest(ctx context.Context, op, method, path string, body any) (*http.Request, error) {
	c.mu.RLock()
	tok := c.token
	c.mu.RUnlock()

	if tok == "" {
		return nil, wxerrors.Authentication(op, "not authenticated, set a token first")
	}

	req, err := transport.NewJSONRequest(ctx, method, c.cfg.BaseURL()+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("X-Instance-ID", c.cfg.InstanceID)
	return req, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.Timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.Timeout)
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, body, out any) (err error) {
	start := time.Now()
	defer func() { c.observer.ObserveRequest(op, err, time.Since(start)) }()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, op, method, path, body)
	if err != nil {
		return err
	}
	return c.transport.DoJSON(ctx, op, req, out)
}

// doBytes is doJSON for endpoints whose answer is not always JSON.
func (c *Client) doBytes(ctx context.Context, op, method, path string, body any) (out []byte, err error) {
	start := time.Now()
	defer func() { c.observer.ObserveRequest(op, err, time.Since(start)) }()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := c.newRequest(ctx, op, method, path, body)
	if err != nil {
		return nil, err
	}
	return c.transport.DoBytes(ctx, op, req)
}

// tryPaths calls try with each path in order until one succeeds.
// Deployments differ in where they serve some endpoints, so a status
// failure other than an authentication one moves on to the next path. Any
// other failure is returned at once.
func (c *Client) tryPaths(op, what string, paths []string, try func(path string) error) error {
	var lastStatus int
	for _, path := range paths {
		err := try(path)
		if err == nil {
			return nil
		}

		var werr *wxerrors.Error
		if !errors.As(err, &werr) || werr.StatusCode == 0 || werr.Kind == wxerrors.KindAuthentication {
			return err
		}
		lastStatus = werr.StatusCode
		c.logger.Debug("endpoint path failed", "op", op, "path", path, "status", werr.StatusCode)
	}

	return &wxerrors.Error{
		Kind:       wxerrors.KindAPI,
		Op:         op,
		Msg:        "no " + what + " endpoint answered, tried " + strings.Join(paths, ", "),
		StatusCode: lastStatus,
	}
}
