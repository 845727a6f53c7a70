package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/papercomputeco/watsonx/pkg/logger"
	"github.com/papercomputeco/watsonx/pkg/wxerrors"
)

const (
	apiKeyGrantType = "urn:ibm:params:oauth:grant-type:apikey"

	// refreshMargin is how long before expiry a cached token is replaced.
	refreshMargin = 60 * time.Second
)

// IAMToken is the IBM Cloud IAM token endpoint response.
type IAMToken struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Expiration   int64  `json:"expiration"`
}

// IAM exchanges an IBM Cloud API key for an access token and caches it until
// shortly before it expires.
type IAM struct {
	apiKey   string
	endpoint string
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// IAMOption configures an IAM token source.
type IAMOption func(*IAM)

// WithHTTPClient sets the HTTP client used for the exchange.
func WithHTTPClient(c *http.Client) IAMOption {
	return func(s *IAM) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) IAMOption {
	return func(s *IAM) {
		s.logger = logger.OrNop(l)
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) IAMOption {
	return func(s *IAM) {
		s.now = now
	}
}

// NewIAM returns an IAM token source for apiKey. iamURL is either a bare host
// such as "iam.cloud.ibm.com" or a full base URL.
func NewIAM(apiKey, iamURL string, opts ...IAMOption) *IAM {
	s := &IAM{
		apiKey:   apiKey,
		endpoint: TokenEndpoint(iamURL),
		client:   &http.Client{Timeout: 30 * time.Second},
		logger:   logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TokenEndpoint builds the identity token URL for an IAM host or base URL.
func TokenEndpoint(iamURL string) string {
	base := strings.TrimRight(iamURL, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return base + "/identity/token"
}

// Token returns a cached token or performs a new exchange.
func (s *IAM) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.now().Before(s.expiry.Add(-refreshMargin)) {
		return s.token, nil
	}

	tok, err := s.Exchange(ctx)
	if err != nil {
		return "", err
	}

	s.token = tok.AccessToken
	s.expiry = s.expiryOf(tok)

	s.logger.Debug("obtained iam token", "expires_at", s.expiry)

	return s.token, nil
}

// Invalidate drops the cached token so the next Token call exchanges again.
func (s *IAM) Invalidate() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = ""
	s.expiry = time.Time{}
}

// Exchange performs one API key exchange without touching the cache.
func (s *IAM) Exchange(ctx context.Context) (*IAMToken, error) {
	const op = "iam_token"

	if s.apiKey == "" {
		return nil, wxerrors.Authentication(op, "api key is empty")
	}

	form := url.Values{
		"grant_type": {apiKeyGrantType},
		"apikey":     {s.apiKey},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, wxerrors.Wrap(wxerrors.KindConfiguration, op, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, wxerrors.Network(op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wxerrors.Network(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &wxerrors.Error{
			Kind:       wxerrors.KindAuthentication,
			Op:         op,
			Msg:        "token exchange rejected",
			StatusCode: resp.StatusCode,
			Body:       string(body),
		}
	}

	var tok IAMToken
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, wxerrors.Serialization(op, err)
	}
	if tok.AccessToken == "" {
		return nil, wxerrors.Authentication(op, "response carried no access_token")
	}

	return &tok, nil
}

func (s *IAM) expiryOf(tok *IAMToken) time.Time {
	switch {
	case tok.Expiration > 0:
		return time.Unix(tok.Expiration, 0)
	case tok.ExpiresIn > 0:
		return s.now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	default:
		return s.now().Add(time.Hour)
	}
}
