package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/services"
	"github.com/desertthunder/jukebox/internal/shared"
)

// Jukebox is the queue behaviour the API exposes. [services.Reconciler] implements it.
type Jukebox interface {
	Enqueue(ctx context.Context, input string) (*services.EnqueueResult, error)
	View(ctx context.Context) models.QueueView
	Remove(ctx context.Context, identifier string) (*services.RemoveResult, error)
	Control(ctx context.Context, action models.Action, volume *int) error
	NowPlaying(ctx context.Context) models.NowPlaying
	Search(ctx context.Context, query string, limit int) ([]models.Track, int, error)
	Status(ctx context.Context) (authenticated, hasToken bool)
}

// History reads recorded queue events.
type History interface {
	Recent(ctx context.Context, kind models.EventKind, limit int) ([]*models.QueueEvent, error)
}

// Authenticator completes the Spotify authorization-code flow. [services.Session] implements it.
type Authenticator interface {
	AuthURL(redirectURI, state string) (string, error)
	Login(ctx context.Context, code, redirectURI string) (*services.TokenGrant, error)
}

// APIHandler serves the /api/spotify JSON routes.
type APIHandler struct {
	jukebox Jukebox
	auth    Authenticator
	history History
	logger  *log.Logger
}

// NewAPIHandler creates an [APIHandler]. history may be nil, in which case the history route
// reports an empty list.
func NewAPIHandler(jukebox Jukebox, auth Authenticator, history History, logger *log.Logger) *APIHandler {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &APIHandler{jukebox: jukebox, auth: auth, history: history, logger: logger}
}

// Token handles POST /api/spotify/token.
func (h *APIHandler) Token(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code        string `json:"code"`
		RedirectURI string `json:"redirectUri"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(body.Code) == "" || strings.TrimSpace(body.RedirectURI) == "" {
		writeError(w, fmt.Errorf("%w: code and redirectUri are required", shared.ErrMissingArgument))
		return
	}

	grant, err := h.auth.Login(r.Context(), body.Code, body.RedirectURI)
	if err != nil {
		h.logger.Error("token exchange failed", "err", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, actionResponse{
		Success:   true,
		Message:   "Spotify authorized",
		ExpiresIn: grant.ExpiresIn,
	})
}

// Status handles GET /api/spotify/status.
func (h *APIHandler) Status(w http.ResponseWriter, r *http.Request) {
	authenticated, hasToken := h.jukebox.Status(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"authenticated": authenticated, "hasToken": hasToken})
}

// Enqueue handles POST /api/spotify/queue.
func (h *APIHandler) Enqueue(w http.ResponseWriter, r *http.Request) {
	var body struct {
		SongName string `json:"songName"`
		URI      string `json:"uri"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	input := strings.TrimSpace(body.SongName)
	if uri := strings.TrimSpace(body.URI); uri != "" {
		normalized, ok := models.NormalizeTrackURI(uri)
		if !ok {
			writeError(w, fmt.Errorf("%w: %q is not a track uri", shared.ErrInvalidInput, uri))
			return
		}
		input = normalized
	}
	if input == "" {
		writeError(w, fmt.Errorf("%w: songName or uri is required", shared.ErrMissingArgument))
		return
	}

	res, err := h.jukebox.Enqueue(h.clientContext(r), input)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, res.Message())
}

// Queue handles GET /api/spotify/queue. It never fails.
func (h *APIHandler) Queue(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.jukebox.View(r.Context()))
}

// Remove handles DELETE /api/spotify/queue. Admin only.
func (h *APIHandler) Remove(w http.ResponseWriter, r *http.Request) {
	var body struct {
		URI     string `json:"uri"`
		TrackID string `json:"trackId"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	identifier := strings.TrimSpace(body.URI)
	if identifier == "" {
		identifier = strings.TrimSpace(body.TrackID)
	}
	if identifier == "" {
		writeError(w, fmt.Errorf("%w: uri or trackId is required", shared.ErrMissingArgument))
		return
	}

	res, err := h.jukebox.Remove(h.clientContext(r), identifier)
	if err != nil {
		h.logger.Error("remove failed", "track", identifier, "err", err)
		writeError(w, err)
		return
	}
	writeSuccess(w, res.Message())
}

// Control handles POST /api/spotify/control. Admin only.
func (h *APIHandler) Control(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Action string `json:"action"`
		Volume *int   `json:"volume"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}

	action, err := models.ParseAction(body.Action)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.jukebox.Control(h.clientContext(r), action, body.Volume); err != nil {
		h.logger.Error("control failed", "action", action, "err", err)
		writeError(w, err)
		return
	}
	writeSuccess(w, controlMessage(action, body.Volume))
}

// NowPlaying handles GET /api/spotify/now-playing. It never fails.
func (h *APIHandler) NowPlaying(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.jukebox.NowPlaying(r.Context()))
}

// Search handles GET /api/spotify/search.
func (h *APIHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, fmt.Errorf("%w: q is required", shared.ErrMissingArgument))
		return
	}

	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}

	tracks, total, err := h.jukebox.Search(r.Context(), query, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks, "total": total})
}

// History handles GET /api/spotify/history.
func (h *APIHandler) History(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	kind, err := models.ParseEventKind(r.URL.Query().Get("kind"))
	if err != nil {
		writeError(w, err)
		return
	}

	views := []models.EventView{}
	if h.history != nil {
		events, err := h.history.Recent(r.Context(), kind, limit)
		if err != nil {
			writeError(w, err)
			return
		}
		for _, e := range events {
			views = append(views, e.View())
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": views})
}

// Health handles GET /healthz.
func Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *APIHandler) clientContext(r *http.Request) context.Context {
	return services.WithClient(r.Context(), clientAddr(r))
}

func queryInt(r *http.Request, key string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s must be a non-negative integer", shared.ErrInvalidInput, key)
	}
	return n, nil
}

func controlMessage(action models.Action, volume *int) string {
	switch action {
	case models.ActionPlay:
		return "Playback started"
	case models.ActionPause:
		return "Playback paused"
	case models.ActionNext:
		return "Skipped to the next track"
	default:
		return fmt.Sprintf("Volume set to %d", *volume)
	}
}
