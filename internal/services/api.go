// API client for a running jukebox server, used by the CLI and the watch console
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/desertthunder/jukebox/internal/models"
)

// PasswordHeader carries the admin password on admin-gated routes.
const PasswordHeader = "password"

// APIService makes requests against a jukebox server's HTTP API.
type APIService struct {
	baseURL    string
	httpClient *http.Client
	password   string
}

// NewAPIService creates a new client for the jukebox server at baseURL.
func NewAPIService(baseURL string, client *http.Client) *APIService {
	if baseURL == "" {
		baseURL = "http://127.0.0.1:3000"
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &APIService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
	}
}

// WithPassword returns a copy of the client that sends the admin password.
func (a *APIService) WithPassword(password string) *APIService {
	c := *a
	c.password = password
	return &c
}

// URL joins path onto the server's base URL.
func (a *APIService) URL(path string) string {
	return a.baseURL + path
}

// APIResponse represents a raw API response with status and body.
type APIResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
	IsJSON     bool
	JSONData   any
}

// ServerError is a non-2xx answer from the jukebox server.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("jukebox: %s (status %d)", e.Message, e.StatusCode)
}

// Get performs a GET request to the specified path and returns the raw response.
func (a *APIService) Get(ctx context.Context, path string) (*APIResponse, error) {
	return a.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with the given JSON data and returns the raw response.
func (a *APIService) Post(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodPost, path, data)
}

// Delete performs a DELETE request with the given JSON data and returns the raw response.
func (a *APIService) Delete(ctx context.Context, path string, data []byte) (*APIResponse, error) {
	return a.do(ctx, http.MethodDelete, path, data)
}

func (a *APIService) do(ctx context.Context, method, path string, data []byte) (*APIResponse, error) {
	var body io.Reader
	if data != nil {
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if data != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if a.password != "" {
		req.Header.Set(PasswordHeader, a.password)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	apiResp := &APIResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       raw,
	}

	var jsonData any
	if err := json.Unmarshal(raw, &jsonData); err == nil {
		apiResp.IsJSON = true
		apiResp.JSONData = jsonData
	}

	return apiResp, nil
}

// call sends body as JSON and decodes a 2xx answer into out.
func (a *APIService) call(ctx context.Context, method, path string, body, out any) error {
	var data []byte
	if body != nil {
		var err error
		if data, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
	}

	resp, err := a.do(ctx, method, path, data)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		msg := http.StatusText(resp.StatusCode)
		if json.Unmarshal(resp.Body, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &ServerError{StatusCode: resp.StatusCode, Message: msg}
	}

	if out != nil {
		if err := json.Unmarshal(resp.Body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// StatusResponse mirrors GET /api/spotify/status.
type StatusResponse struct {
	Authenticated bool `json:"authenticated"`
	HasToken      bool `json:"hasToken"`
}

// ActionResponse mirrors the {success, message} bodies of mutating routes.
type ActionResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	ExpiresIn int64  `json:"expires_in,omitempty"`
}

// SearchResponse mirrors GET /api/spotify/search.
type SearchResponse struct {
	Tracks []models.Track `json:"tracks"`
	Total  int            `json:"total"`
}

// HistoryResponse mirrors GET /api/spotify/history.
type HistoryResponse struct {
	Events []models.EventView `json:"events"`
}

// Status reports the server's Spotify authentication state.
func (a *APIService) Status(ctx context.Context) (*StatusResponse, error) {
	var out StatusResponse
	if err := a.call(ctx, http.MethodGet, "/api/spotify/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExchangeToken hands an authorization code to the server.
func (a *APIService) ExchangeToken(ctx context.Context, code, redirectURI string) (*ActionResponse, error) {
	var out ActionResponse
	body := map[string]string{"code": code, "redirectUri": redirectURI}
	if err := a.call(ctx, http.MethodPost, "/api/spotify/token", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Queue fetches the reconciled queue.
func (a *APIService) Queue(ctx context.Context) (*models.QueueView, error) {
	var out models.QueueView
	if err := a.call(ctx, http.MethodGet, "/api/spotify/queue", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Enqueue queues a song by name, track URI or track link.
func (a *APIService) Enqueue(ctx context.Context, input string) (*ActionResponse, error) {
	body := map[string]string{"songName": input}
	if _, ok := models.NormalizeTrackURI(input); ok && (models.IsTrackURI(input) || strings.Contains(input, "spotify.com")) {
		body = map[string]string{"uri": input}
	}

	var out ActionResponse
	if err := a.call(ctx, http.MethodPost, "/api/spotify/queue", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Remove removes a track by URI or bare id. Requires the admin password.
func (a *APIService) Remove(ctx context.Context, identifier string) (*ActionResponse, error) {
	body := map[string]string{"trackId": identifier}
	if models.IsTrackURI(identifier) {
		body = map[string]string{"uri": identifier}
	}

	var out ActionResponse
	if err := a.call(ctx, http.MethodDelete, "/api/spotify/queue", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Control runs a playback action. Requires the admin password.
func (a *APIService) Control(ctx context.Context, action models.Action, volume *int) (*ActionResponse, error) {
	body := map[string]any{"action": action}
	if volume != nil {
		body["volume"] = *volume
	}

	var out ActionResponse
	if err := a.call(ctx, http.MethodPost, "/api/spotify/control", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// NowPlaying fetches the current track.
func (a *APIService) NowPlaying(ctx context.Context) (*models.NowPlaying, error) {
	var out models.NowPlaying
	if err := a.call(ctx, http.MethodGet, "/api/spotify/now-playing", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search searches tracks through the server.
func (a *APIService) Search(ctx context.Context, query string, limit int) (*SearchResponse, error) {
	params := url.Values{"q": {query}}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var out SearchResponse
	if err := a.call(ctx, http.MethodGet, "/api/spotify/search?"+params.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History fetches recent jukebox events, newest first. A blank kind asks for every kind.
func (a *APIService) History(ctx context.Context, kind string, limit int) (*HistoryResponse, error) {
	params := url.Values{}
	if kind != "" {
		params.Set("kind", kind)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/api/spotify/history"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	var out HistoryResponse
	if err := a.call(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
