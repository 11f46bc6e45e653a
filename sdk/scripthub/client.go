// Package scripthub is the Go client for the scripthub licensing API. It
// wraps an auth.SessionHandle so callers get transparent token renewal:
// requests renew proactively inside the renewal window, concurrent renewals
// collapse into one flight, and a 401 triggers exactly one forced renewal
// and retry before the error surfaces.
package scripthub

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/scripthub-inc/scripthub/internal/infrastructure/auth"
	"github.com/scripthub-inc/scripthub/internal/shared/clock"
	apperrors "github.com/scripthub-inc/scripthub/internal/shared/errors"
	"github.com/scripthub-inc/scripthub/internal/shared/logger"
)

// Client is the scripthub API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *auth.SessionHandle
}

// Option configures the Client.
type Option func(*clientConfig)

type clientConfig struct {
	httpClient    *http.Client
	clock         clock.Clock
	logger        logger.Interface
	renewalWindow int
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cfg *clientConfig) { cfg.httpClient = c }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(cfg *clientConfig) { cfg.httpClient.Timeout = d }
}

// WithClock injects the clock used for renewal decisions.
func WithClock(clk clock.Clock) Option {
	return func(cfg *clientConfig) { cfg.clock = clk }
}

// WithLogger sets the logger for session bookkeeping warnings.
func WithLogger(log logger.Interface) Option {
	return func(cfg *clientConfig) { cfg.logger = log }
}

// WithRenewalWindow sets how many minutes before expiry the client starts
// renewing its access token.
func WithRenewalWindow(minutes int) Option {
	return func(cfg *clientConfig) { cfg.renewalWindow = minutes }
}

// NewClient creates a scripthub API client. store persists the session's
// token pair across restarts; pass nil to keep tokens in memory only.
func NewClient(baseURL string, store auth.TokenStore, opts ...Option) *Client {
	cfg := &clientConfig{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		clock:      clock.System(),
		logger:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if store == nil {
		store = &memoryTokenStore{}
	}

	c := &Client{
		baseURL:    baseURL,
		httpClient: cfg.httpClient,
	}
	c.session = auth.NewSessionHandle(
		&httpRenewer{client: c},
		store,
		cfg.clock,
		cfg.renewalWindow,
		cfg.logger,
	)
	return c
}

// SetTokens installs a freshly issued token pair, as handed out by the
// marketplace core after it establishes the session.
func (c *Client) SetTokens(ctx context.Context, accessToken, refreshToken string) error {
	return c.session.Set(ctx, &auth.TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	})
}

// Restore loads a previously persisted session from the token store.
func (c *Client) Restore(ctx context.Context) error {
	return c.session.Restore(ctx)
}

// MyLicenses lists the authenticated user's licenses.
func (c *Client) MyLicenses(ctx context.Context) ([]License, error) {
	var result struct {
		Licenses []License `json:"licenses"`
	}
	if err := c.doAuthed(ctx, http.MethodGet, "/api/v1/users/me/licenses", nil, &result); err != nil {
		return nil, fmt.Errorf("list licenses: %w", err)
	}
	return result.Licenses, nil
}

// IssueTrial starts a trial of the given script for the authenticated user.
func (c *Client) IssueTrial(ctx context.Context, scriptID string) (*IssuedLicense, error) {
	body := map[string]string{"script_id": scriptID}

	var issued IssuedLicense
	if err := c.doAuthed(ctx, http.MethodPost, "/api/v1/licenses/trial", body, &issued); err != nil {
		return nil, fmt.Errorf("issue trial: %w", err)
	}
	return &issued, nil
}

// BindIP registers the address every one of the user's licenses validates
// against.
func (c *Client) BindIP(ctx context.Context, ip string) error {
	body := map[string]string{"ip": ip}

	if err := c.doAuthed(ctx, http.MethodPut, "/api/v1/users/me/ip", body, nil); err != nil {
		return fmt.Errorf("bind ip: %w", err)
	}
	return nil
}

// Logout revokes the current session server-side.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.doAuthed(ctx, http.MethodDelete, "/api/v1/auth/sessions/current", nil, nil); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	return nil
}

// ValidateLicense checks a license key. The key itself is the credential;
// no session is required. ip is optional and overrides the transport address
// seen by the server.
func (c *Client) ValidateLicense(ctx context.Context, privateKey, ip string) (*ValidationResult, error) {
	body := map[string]string{"private_key": privateKey}
	if ip != "" {
		body["ip"] = ip
	}

	var result ValidationResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/licenses/validate", "", body, &result); err != nil {
		return nil, fmt.Errorf("validate license: %w", err)
	}
	return &result, nil
}

// doAuthed performs a bearer-authenticated request. A 401 means the server
// stopped honoring the access token regardless of its claimed expiry, so the
// client forces one renewal and retries once.
func (c *Client) doAuthed(ctx context.Context, method, path string, body, result any) error {
	token, err := c.session.EnsureToken(ctx)
	if err != nil {
		return err
	}

	err = c.do(ctx, method, path, token, body, result)
	if !isUnauthorized(err) {
		return err
	}

	token, err = c.session.ForceRenew(ctx)
	if err != nil {
		return err
	}
	return c.do(ctx, method, path, token, body, result)
}

// statusError carries the HTTP status for retry decisions.
type statusError struct {
	status  int
	message string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("api error: status=%d %s", e.status, e.message)
}

func isUnauthorized(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusUnauthorized
}

func (c *Client) do(ctx context.Context, method, path, token string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	var envelope apiEnvelope
	if len(respBody) > 0 {
		if err := json.Unmarshal(respBody, &envelope); err != nil && resp.StatusCode < 400 {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{status: resp.StatusCode, message: envelope.Error.text()}
	}
	if result == nil || envelope.Data == nil {
		return nil
	}
	if err := json.Unmarshal(envelope.Data, result); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	return nil
}

// httpRenewer drives the server's single-flight refresh endpoint.
type httpRenewer struct {
	client *Client
}

func (r *httpRenewer) Renew(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	body := map[string]string{"refresh_token": refreshToken}

	var pair struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		ExpiresIn    int64  `json:"expires_in"`
	}
	if err := r.client.do(ctx, http.MethodPost, "/api/v1/auth/refresh", "", body, &pair); err != nil {
		return nil, apperrors.NewRenewalFailedError(err.Error())
	}
	return &auth.TokenPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
	}, nil
}

// memoryTokenStore keeps the pair in process memory. The default when the
// caller has no durable store.
type memoryTokenStore struct {
	mu   sync.Mutex
	pair *auth.TokenPair
}

func (s *memoryTokenStore) Load(context.Context) (*auth.TokenPair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, nil
}

func (s *memoryTokenStore) Save(_ context.Context, pair *auth.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = pair
	return nil
}

func (s *memoryTokenStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pair = nil
	return nil
}
