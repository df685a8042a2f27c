package identity

import (
	"context"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultTimeout bounds the interactive auth and profile operations.
	DefaultTimeout = 30 * time.Second
	// DefaultProbeTimeout bounds the short-lived existence probe used by
	// the OAuth reconciliation path.
	DefaultProbeTimeout = 5 * time.Second
)

// Client talks to the remote identity service. Every operation is a
// single-shot call bounded by a per-operation timeout; the client keeps
// no local state and never retries on its own.
type Client struct {
	http         *resty.Client
	logger       *slog.Logger
	timeout      time.Duration
	probeTimeout time.Duration
}

// Option customises a Client.
type Option func(*Client)

// WithTimeout overrides the default per-operation timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithProbeTimeout overrides the short probe timeout.
func WithProbeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.probeTimeout = d
		}
	}
}

// NewClient constructs a Client for the given base URL.
func NewClient(baseURL string, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "shikshaspace-gateway/1.0")

	c := &Client{
		http:         httpClient,
		logger:       logger,
		timeout:      DefaultTimeout,
		probeTimeout: DefaultProbeTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register creates a new user account.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result AuthResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/api/auth/register")
	if err := c.outcome(resp, err, "register", slog.String("username", req.Username)); err != nil {
		return nil, err
	}
	return &result, nil
}

// Login exchanges credentials for tokens.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result AuthResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&result).
		Post("/api/auth/login")
	if err := c.outcome(resp, err, "login", slog.String("username", req.Username)); err != nil {
		return nil, err
	}
	return &result, nil
}

// OAuth2Exchange trades an external Google ID token for tokens.
func (c *Client) OAuth2Exchange(ctx context.Context, idToken string) (*AuthResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result AuthResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(oauthExchangeRequest{IDToken: idToken}).
		SetResult(&result).
		Post("/api/auth/oauth2/google")
	if err := c.outcome(resp, err, "oauth2 exchange"); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetProfile fetches a profile by user id or email. The remote service
// resolves either form of the path parameter. This is the probe used by
// OAuth reconciliation and runs under the shorter probe timeout.
func (c *Client) GetProfile(ctx context.Context, idOrEmail, accessToken string) (*UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	var result UserProfile
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&result).
		Get("/api/users/" + idOrEmail)
	if err := c.outcome(resp, err, "get profile", slog.String("user", idOrEmail)); err != nil {
		return nil, err
	}
	return &result, nil
}

// CurrentProfile fetches the profile backing the bearer token.
func (c *Client) CurrentProfile(ctx context.Context, accessToken string) (*UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result UserProfile
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetResult(&result).
		Get("/api/users/me")
	if err := c.outcome(resp, err, "get current profile"); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateProfile applies a partial profile update.
func (c *Client) UpdateProfile(ctx context.Context, userID string, req UpdateProfileRequest, accessToken string) (*UserProfile, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result UserProfile
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(accessToken).
		SetBody(req).
		SetResult(&result).
		Put("/api/users/" + userID)
	if err := c.outcome(resp, err, "update profile", slog.String("user", userID)); err != nil {
		return nil, err
	}
	return &result, nil
}

// RefreshToken exchanges a refresh token for a fresh token pair. Nothing
// in the gateway invokes this automatically; it backs the explicit
// refresh endpoint only.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*AuthResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result AuthResult
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(refreshRequest{RefreshToken: refreshToken}).
		SetResult(&result).
		Post("/api/auth/refresh")
	if err := c.outcome(resp, err, "refresh token"); err != nil {
		return nil, err
	}
	return &result, nil
}

// outcome collapses a resty response into the error taxonomy.
func (c *Client) outcome(resp *resty.Response, err error, op string, attrs ...any) error {
	if err != nil {
		classified := classifyTransport(err)
		c.logger.Error("identity "+op+" failed",
			append(attrs, slog.Any("error", err))...)
		return classified
	}
	if resp.IsError() {
		classified := classifyStatus(resp.StatusCode())
		c.logger.Warn("identity "+op+" rejected",
			append(attrs, slog.Int("status", resp.StatusCode()))...)
		return classified
	}
	c.logger.Debug("identity "+op+" ok", attrs...)
	return nil
}
