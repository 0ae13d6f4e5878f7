package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/shared"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 4 << 20

// Refresher exchanges a refresh token for a new grant. [TokenExchanger] implements it.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error)
}

// Response is a raw Spotify response; callers decide what a status means.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body into v. An empty body leaves v untouched.
func (r *Response) Decode(v any) error {
	if len(bytes.TrimSpace(r.Body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
	}
	return nil
}

// Err returns an [*APIError] for non-2xx responses and nil otherwise.
func (r *Response) Err() error {
	if r.OK() {
		return nil
	}
	e := &APIError{Status: r.StatusCode, Message: ErrorMessage(r.Body, r.StatusCode)}
	switch r.StatusCode {
	case http.StatusUnauthorized:
		e.Kind = shared.ErrNotAuthenticated
	case http.StatusTooManyRequests:
		e.Kind = shared.ErrRateLimited
	}
	return e
}

// GatewayOpts configures a [Gateway].
type GatewayOpts struct {
	BaseURL           string
	HTTPClient        *http.Client
	RequestsPerSecond float64 // zero disables client-side throttling
	Logger            *log.Logger
}

// Gateway is the single path to the Spotify Web API. It supplies a valid bearer token,
// refreshing it when stale, and retries exactly once after a 401.
type Gateway struct {
	baseURL   string
	store     *TokenStore
	refresher Refresher
	client    *http.Client
	limiter   *rate.Limiter
	logger    *log.Logger
	refreshes singleflight.Group
}

// NewGateway creates a [Gateway] over store, refreshing through refresher.
func NewGateway(store *TokenStore, refresher Refresher, opts GatewayOpts) *Gateway {
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		burst := int(opts.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Gateway{
		baseURL:   strings.TrimRight(opts.BaseURL, "/"),
		store:     store,
		refresher: refresher,
		client:    opts.HTTPClient,
		limiter:   limiter,
		logger:    opts.Logger,
	}
}

// Store returns the backing [TokenStore].
func (g *Gateway) Store() *TokenStore { return g.store }

// EnsureToken returns a usable access token, refreshing first when the stored one is stale.
// A failed refresh clears the store and reports [shared.ErrNotAuthenticated].
func (g *Gateway) EnsureToken(ctx context.Context) (string, error) {
	if !g.store.IsExpired() {
		return g.store.AccessToken(), nil
	}
	return g.refresh(ctx, "")
}

// Call sends method path with an optional JSON body. path is relative to the API base URL
// unless it is already absolute, as pagination links are. Any status is returned as a
// [Response]; only transport and authentication failures are errors.
func (g *Gateway) Call(ctx context.Context, method, path string, body any, retryOn401 bool) (*Response, error) {
	payload, err := encodeBody(body)
	if err != nil {
		return nil, err
	}

	token, err := g.EnsureToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := g.do(ctx, method, g.url(path), payload, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && retryOn401 {
		g.logger.Debug("spotify rejected token, refreshing", "method", method, "path", path)
		if token, err = g.refresh(ctx, token); err != nil {
			return nil, err
		}
		return g.do(ctx, method, g.url(path), payload, token)
	}
	return resp, nil
}

// refresh exchanges the stored refresh token. Concurrent callers share one exchange.
// stale is the token the caller saw rejected, or "" when it found the store expired; a fresh
// token that differs from it means another caller already refreshed, so it is reused.
func (g *Gateway) refresh(ctx context.Context, stale string) (string, error) {
	v, err, _ := g.refreshes.Do("refresh", func() (any, error) {
		if current := g.store.AccessToken(); current != "" && current != stale && !g.store.IsExpired() {
			return current, nil
		}

		rt := g.store.RefreshToken()
		if rt == "" {
			g.store.Clear()
			return "", shared.ErrNotAuthenticated
		}

		timeout := g.client.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
		defer cancel()

		grant, err := g.refresher.Refresh(rctx, rt)
		if err != nil {
			if errors.Is(err, shared.ErrMissingCredentials) {
				return "", err
			}
			g.logger.Warn("token refresh failed, clearing tokens", "err", err)
			g.store.Clear()
			return "", fmt.Errorf("%w: %w", shared.ErrNotAuthenticated, err)
		}

		g.store.SetTokens(grant.AccessToken, grant.RefreshToken, grant.ExpiresIn)
		g.logger.Info("refreshed spotify token", "expires_in", grant.ExpiresIn)
		return grant.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

func (g *Gateway) do(ctx context.Context, method, url string, payload []byte, token string) (*Response, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, transportError(err)
		}
	}

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, transportError(err)
	}

	g.logger.Debug("spotify call", "method", method, "url", url, "status", resp.StatusCode, "took", time.Since(start))
	return &Response{StatusCode: resp.StatusCode, Header: resp.Header, Body: body}, nil
}

func (g *Gateway) url(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return g.baseURL + path
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		return data, nil
	}
}

// transportError classifies network failures; timeouts are transient and map to [shared.ErrTimeout].
func transportError(err error) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return fmt.Errorf("%w: %v", shared.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
}
