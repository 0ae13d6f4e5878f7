package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/jukebox/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	defaultExpiresIn = 3600
)

// Scopes requested during login: playback control, queue reads and private playlist management.
var Scopes = []string{
	"user-read-private",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-read-currently-playing",
	"playlist-read-private",
	"playlist-modify-private",
	"playlist-modify-public",
}

// TokenGrant is the result of a code exchange or refresh.
type TokenGrant struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	ExpiresIn    int64  `json:"expires_in"`
}

// TokenExchanger trades authorization codes and refresh tokens for access tokens at
// Spotify's token endpoint, authenticating with HTTP Basic client credentials.
type TokenExchanger struct {
	clientID     string
	clientSecret string
	authURL      string
	tokenURL     string
	httpClient   *http.Client
}

// ExchangerOpts configures a [TokenExchanger]. Empty URLs use Spotify's accounts service.
type ExchangerOpts struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	HTTPClient   *http.Client
}

// NewTokenExchanger creates a [TokenExchanger]. Missing credentials are not an error here;
// every exchange fails fast with [shared.ErrMissingCredentials] instead.
func NewTokenExchanger(opts ExchangerOpts) *TokenExchanger {
	if opts.AuthURL == "" {
		opts.AuthURL = spotifyAuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &TokenExchanger{
		clientID:     strings.TrimSpace(opts.ClientID),
		clientSecret: strings.TrimSpace(opts.ClientSecret),
		authURL:      opts.AuthURL,
		tokenURL:     opts.TokenURL,
		httpClient:   opts.HTTPClient,
	}
}

// Configured reports whether both client credentials are present.
func (e *TokenExchanger) Configured() bool {
	return e.clientID != "" && e.clientSecret != ""
}

func (e *TokenExchanger) config(redirectURI string) (*oauth2.Config, error) {
	if !e.Configured() {
		return nil, shared.ErrMissingCredentials
	}
	return &oauth2.Config{
		ClientID:     e.clientID,
		ClientSecret: e.clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   e.authURL,
			TokenURL:  e.tokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}, nil
}

func (e *TokenExchanger) context(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)
}

// AuthURL builds the Spotify authorize URL for the given redirect URI and state.
func (e *TokenExchanger) AuthURL(redirectURI, state string) (string, error) {
	cfg, err := e.config(strings.TrimSpace(redirectURI))
	if err != nil {
		return "", err
	}
	return cfg.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true")), nil
}

// ExchangeCode trades an authorization code for a token pair. redirectURI must be exactly the
// URI registered with Spotify; only surrounding whitespace is trimmed.
func (e *TokenExchanger) ExchangeCode(ctx context.Context, code, redirectURI string) (*TokenGrant, error) {
	code = strings.TrimSpace(code)
	redirectURI = strings.TrimSpace(redirectURI)
	if code == "" || redirectURI == "" {
		return nil, fmt.Errorf("%w: code and redirectUri are required", shared.ErrMissingArgument)
	}

	cfg, err := e.config(redirectURI)
	if err != nil {
		return nil, err
	}

	tok, err := cfg.Exchange(e.context(ctx), code)
	if err != nil {
		return nil, tokenError(shared.ErrExchangeFailed, err)
	}
	return grantFromToken(tok), nil
}

// Refresh trades a refresh token for a new access token. When Spotify does not rotate the
// refresh token, the grant carries the one that was passed in.
func (e *TokenExchanger) Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error) {
	if refreshToken == "" {
		return nil, shared.ErrNoRefreshToken
	}

	cfg, err := e.config("")
	if err != nil {
		return nil, err
	}

	tok, err := cfg.TokenSource(e.context(ctx), &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, tokenError(shared.ErrRefreshFailed, err)
	}

	grant := grantFromToken(tok)
	if grant.RefreshToken == "" {
		grant.RefreshToken = refreshToken
	}
	return grant, nil
}

func grantFromToken(tok *oauth2.Token) *TokenGrant {
	expiresIn := tok.ExpiresIn
	if expiresIn <= 0 && !tok.Expiry.IsZero() {
		expiresIn = int64(time.Until(tok.Expiry).Round(time.Second) / time.Second)
	}
	if expiresIn <= 0 {
		expiresIn = defaultExpiresIn
	}
	return &TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
	}
}

// tokenError wraps kind with the best message recoverable from a token endpoint failure.
func tokenError(kind, err error) error {
	var re *oauth2.RetrieveError
	if !errors.As(err, &re) {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %w", kind, shared.ErrTimeout)
		}
		return fmt.Errorf("%w: %v", kind, err)
	}

	status := 0
	if re.Response != nil {
		status = re.Response.StatusCode
	}

	msg := re.ErrorDescription
	if msg == "" {
		msg = re.ErrorCode
	}
	if msg == "" {
		msg = ErrorMessage(re.Body, status)
	}
	return &APIError{Status: status, Message: msg, Kind: kind}
}

// ErrorMessage extracts a human-readable message from a Spotify error body. It understands
// {"error":{"message":...}} and {"error":"...","error_description":"..."}, then falls back to
// the raw text and finally to the HTTP status text.
func ErrorMessage(body []byte, status int) string {
	var nested struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}

	var flat struct {
		Error       string `json:"error"`
		Description string `json:"error_description"`
	}
	if json.Unmarshal(body, &flat) == nil {
		if flat.Description != "" {
			return flat.Description
		}
		if flat.Error != "" {
			return flat.Error
		}
	}

	if raw := strings.TrimSpace(string(body)); raw != "" && !strings.HasPrefix(raw, "{") {
		if len(raw) > 200 {
			raw = raw[:200]
		}
		return raw
	}

	if text := http.StatusText(status); text != "" {
		return text
	}
	return "unknown error"
}

// APIError is a non-success Spotify response carrying its normalized message.
type APIError struct {
	Status  int
	Message string
	Kind    error // sentinel this error unwraps to, defaults to [shared.ErrAPIRequest]
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("spotify: %s", e.Message)
	}
	return fmt.Sprintf("spotify: %s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() error {
	if e.Kind != nil {
		return e.Kind
	}
	return shared.ErrAPIRequest
}
