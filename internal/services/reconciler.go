package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
)

const (
	playlistPageSize       = 100
	defaultRemoveScanLimit = 500
	defaultViewLimit       = 500
	defaultSearchLimit     = 10
	defaultSearchLimitMax  = 20
)

// Recorder stores request history. Recording never fails an operation.
type Recorder interface {
	Record(ctx context.Context, event *models.QueueEvent) error
}

type clientKey struct{}

// WithClient tags ctx with the requesting client's address for history records.
func WithClient(ctx context.Context, client string) context.Context {
	return context.WithValue(ctx, clientKey{}, client)
}

func clientFrom(ctx context.Context) string {
	c, _ := ctx.Value(clientKey{}).(string)
	return c
}

// ReconcilerOpts configures a [Reconciler]. Zero values select defaults.
type ReconcilerOpts struct {
	Logger           *log.Logger
	Recorder         Recorder
	ConsistencyDelay time.Duration
	RemoveScanLimit  int
	ViewLimit        int
	SearchLimitMax   int
	// Sleep waits between a mutation and its verification read. Tests replace it.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Reconciler presents Spotify's opaque player queue and the radio playlist as one queue.
// The playlist is the addressable, removable source of truth; skipping is the fallback
// for what has already reached the live session.
type Reconciler struct {
	api       SpotifyAPI
	playlists *PlaylistManager
	logger    *log.Logger
	recorder  Recorder
	delay     time.Duration
	scanLimit int
	viewLimit int
	searchMax int
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewReconciler creates a [Reconciler].
func NewReconciler(api SpotifyAPI, playlists *PlaylistManager, opts ReconcilerOpts) *Reconciler {
	r := &Reconciler{
		api:       api,
		playlists: playlists,
		logger:    opts.Logger,
		recorder:  opts.Recorder,
		delay:     opts.ConsistencyDelay,
		scanLimit: opts.RemoveScanLimit,
		viewLimit: opts.ViewLimit,
		searchMax: opts.SearchLimitMax,
		sleep:     opts.Sleep,
	}
	if r.logger == nil {
		r.logger = log.New(io.Discard)
	}
	if r.scanLimit <= 0 {
		r.scanLimit = defaultRemoveScanLimit
	}
	if r.viewLimit <= 0 {
		r.viewLimit = defaultViewLimit
	}
	if r.searchMax <= 0 {
		r.searchMax = defaultSearchLimitMax
	}
	if r.sleep == nil {
		r.sleep = sleepContext
	}
	return r
}

// EnqueueResult describes where an enqueued track landed.
type EnqueueResult struct {
	URI             string
	Name            string
	Queued          bool // appended to the immediate player queue
	Saved           bool // inserted at the top of the radio playlist
	PlaybackStarted bool
}

// Message is a human-readable summary for clients.
func (r *EnqueueResult) Message() string {
	label := r.Name
	if label == "" {
		label = r.URI
	}
	switch {
	case r.Queued && r.Saved:
		return fmt.Sprintf("Added %s to the queue", label)
	case r.Queued:
		return fmt.Sprintf("Added %s to the player queue", label)
	default:
		return fmt.Sprintf("Added %s to the radio playlist", label)
	}
}

// RemoveResult describes how a removal was carried out.
type RemoveResult struct {
	URI                 string
	RemovedFromPlaylist bool
	Skipped             bool
}

// Message is a human-readable summary for clients.
func (r *RemoveResult) Message() string {
	switch {
	case r.RemovedFromPlaylist && r.Skipped:
		return "Removed track from the queue and skipped it"
	case r.RemovedFromPlaylist:
		return "Removed track from the queue"
	default:
		return "Skipped track"
	}
}

// ResolveURI turns enqueue input into a track URI. Track URIs and open.spotify.com links are
// used verbatim with no search; anything else is searched and the first result is taken.
func (r *Reconciler) ResolveURI(ctx context.Context, input string) (uri, name string, err error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", "", fmt.Errorf("%w: songName or uri", shared.ErrMissingArgument)
	}
	if models.IsTrackURI(input) || strings.Contains(input, "open.spotify.com/") {
		if uri, ok := models.NormalizeTrackURI(input); ok {
			return uri, "", nil
		}
		return "", "", fmt.Errorf("%w: not a track link: %q", shared.ErrInvalidInput, input)
	}

	result, err := r.api.SearchTracks(ctx, input, 1)
	if err != nil {
		return "", "", err
	}
	if len(result.Tracks.Items) == 0 || result.Tracks.Items[0].URI == "" {
		return "", "", fmt.Errorf("%w: no results for %q", shared.ErrTrackNotFound, input)
	}
	top := result.Tracks.Items[0]
	return top.URI, top.Name, nil
}

// Enqueue adds a track to both the immediate player queue and the top of the radio playlist,
// then makes sure something is playing. It fails only when neither add succeeded.
func (r *Reconciler) Enqueue(ctx context.Context, input string) (*EnqueueResult, error) {
	uri, name, err := r.ResolveURI(ctx, input)
	if err != nil {
		r.record(ctx, models.EventEnqueue, "", input, "", err)
		return nil, err
	}
	res := &EnqueueResult{URI: uri, Name: name}

	queueErr := r.api.AddToQueue(ctx, uri)
	if queueErr != nil {
		r.logger.Warn("immediate queue add failed", "uri", uri, "err", queueErr)
	}
	res.Queued = queueErr == nil

	playlistID, playlistErr := r.playlists.GetOrCreatePlaylistID(ctx)
	if playlistErr == nil {
		playlistErr = r.api.AddToPlaylist(ctx, playlistID, []string{uri}, 0)
	}
	if playlistErr != nil {
		r.logger.Warn("radio playlist add failed", "uri", uri, "err", playlistErr)
		playlistID = ""
	}
	res.Saved = playlistErr == nil

	if !res.Queued && !res.Saved {
		err := fmt.Errorf("failed to queue %s: %w", uri, errors.Join(queueErr, playlistErr))
		r.record(ctx, models.EventEnqueue, uri, name, "", err)
		return nil, err
	}

	res.PlaybackStarted = r.ensurePlayback(ctx, res.Queued, playlistID)
	r.record(ctx, models.EventEnqueue, uri, name, res.Message(), nil)
	return res, nil
}

// ensurePlayback resumes a paused session without touching its context, since a context
// change discards the immediate queue. With no session at all it starts playback, from the
// immediate queue when the add landed there and from the radio playlist otherwise.
func (r *Reconciler) ensurePlayback(ctx context.Context, queued bool, playlistID string) bool {
	state, err := r.api.PlaybackState(ctx)
	if err != nil {
		r.logger.Warn("could not read playback state", "err", err)
		return false
	}

	switch {
	case state != nil && state.IsPlaying:
		return false
	case state != nil || queued:
		err = r.api.Play(ctx, nil)
	case playlistID != "":
		err = r.api.Play(ctx, &PlayOptions{ContextURI: playlistURI(playlistID)})
	default:
		return false
	}

	if err != nil {
		r.logger.Warn("could not start playback", "err", err)
		return false
	}
	return true
}

// View returns the reconciled queue. Each sub-read degrades to empty on failure.
func (r *Reconciler) View(ctx context.Context) models.QueueView {
	immediate := bestEffort(r.logger, "player queue", nil, func() ([]SpotifyTrack, error) {
		q, err := r.api.Queue(ctx)
		if err != nil {
			return nil, err
		}
		return q.Queue, nil
	})

	var saved []SpotifyTrack
	if id := r.playlists.ID(); id != "" {
		saved = bestEffort(r.logger, "radio playlist", nil, func() ([]SpotifyTrack, error) {
			return r.playlistTracks(ctx, id, r.viewLimit)
		})
	}

	current := bestEffort(r.logger, "currently playing", nil, func() (*models.Track, error) {
		return r.currentTrack(ctx)
	})

	return models.QueueView{Queue: Merge(immediate, saved), CurrentlyPlaying: current}
}

// Merge lists immediate items first in Spotify's order, then playlist items whose URI is not
// already listed, in playlist order. No URI appears twice.
func Merge(immediate, playlist []SpotifyTrack) []models.Track {
	seen := make(map[string]bool, len(immediate)+len(playlist))
	merged := make([]models.Track, 0, len(immediate)+len(playlist))

	add := func(tracks []SpotifyTrack, source models.Source) {
		for _, t := range tracks {
			if t.URI == "" || seen[t.URI] {
				continue
			}
			seen[t.URI] = true
			merged = append(merged, ToTrack(t, source))
		}
	}

	add(immediate, models.SourceQueue)
	add(playlist, models.SourcePlaylist)
	return merged
}

// Remove takes a track out of the queue. A playlist entry is deleted, then skipped if it is
// already live and verified gone after a short wait. A track only in the live session can
// be removed solely by skipping it when it is current or next.
func (r *Reconciler) Remove(ctx context.Context, identifier string) (*RemoveResult, error) {
	uri, ok := models.NormalizeTrackURI(identifier)
	if !ok {
		err := fmt.Errorf("%w: %q is not a track uri or id", shared.ErrInvalidInput, identifier)
		r.record(ctx, models.EventRemove, identifier, "", "", err)
		return nil, err
	}

	res, err := r.remove(ctx, uri)
	if err != nil {
		r.record(ctx, models.EventRemove, uri, "", "", err)
		return nil, err
	}
	r.record(ctx, models.EventRemove, uri, "", res.Message(), nil)
	return res, nil
}

func (r *Reconciler) remove(ctx context.Context, uri string) (*RemoveResult, error) {
	res := &RemoveResult{URI: uri}

	playlistID := r.playlists.ID()
	match, err := r.findInPlaylist(ctx, playlistID, uri)
	if err != nil {
		return nil, err
	}

	if match == "" {
		skipped, err := r.skipIfLive(ctx, uri)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", shared.ErrControlFailed, err)
		}
		if !skipped {
			return nil, fmt.Errorf("%w: track not in playlist and not currently queued", shared.ErrTrackNotFound)
		}
		res.Skipped = true
		return res, nil
	}

	if err := r.api.RemoveFromPlaylist(ctx, playlistID, []string{match}); err != nil {
		return nil, fmt.Errorf("failed to remove from playlist: %w", err)
	}
	res.RemovedFromPlaylist = true

	skipped, err := r.skipIfLive(ctx, match)
	if err != nil {
		return nil, fmt.Errorf("%w: removed from playlist but could not skip it: %w", shared.ErrControlFailed, err)
	}
	res.Skipped = skipped

	if err := r.sleep(ctx, r.delay); err != nil {
		return nil, err
	}

	still, err := r.findInPlaylist(ctx, playlistID, match)
	if err != nil {
		r.logger.Warn("could not verify playlist removal", "uri", match, "err", err)
		return res, nil
	}
	if still == "" {
		return res, nil
	}

	// The entry will play again later, so this is never a success. Cut it if it went live meanwhile.
	r.logger.Warn("track still listed after delete", "uri", match)
	if _, err := r.skipIfLive(ctx, match); err != nil {
		r.logger.Warn("live session check failed", "uri", match, "err", err)
	}
	return nil, fmt.Errorf("%w: %s is still in the radio playlist", shared.ErrRemovalUnverified, match)
}

// findInPlaylist scans at most scanLimit items for target, matching by URI or bare track id,
// and returns the matching item's URI or "". A playlist Spotify no longer knows is forgotten
// and treated as empty.
func (r *Reconciler) findInPlaylist(ctx context.Context, playlistID, target string) (string, error) {
	if playlistID == "" {
		return "", nil
	}

	tracks, err := r.playlistTracks(ctx, playlistID, r.scanLimit)
	if err != nil {
		if playlistGone(err) {
			r.logger.Warn("radio playlist unreadable, forgetting it", "playlist", playlistID, "err", err)
			r.playlists.Clear()
			return "", nil
		}
		return "", fmt.Errorf("failed to scan radio playlist: %w", err)
	}

	for _, t := range tracks {
		if models.SameTrack(t.URI, target) {
			return t.URI, nil
		}
	}
	return "", nil
}

// skipIfLive skips uri when it is playing now, or when it is the next item in the player
// queue. Spotify can only skip the current item, so a next-up target is reached with one
// skip and passed with a second, which also cuts the track that was playing.
func (r *Reconciler) skipIfLive(ctx context.Context, uri string) (bool, error) {
	q, err := r.api.Queue(ctx)
	if err != nil {
		return false, err
	}

	if q.CurrentlyPlaying != nil && models.SameTrack(q.CurrentlyPlaying.URI, uri) {
		r.logger.Info("skipping removed track that is playing", "uri", uri)
		if err := r.api.Next(ctx); err != nil {
			return false, err
		}
		return true, nil
	}

	if len(q.Queue) == 0 || !models.SameTrack(q.Queue[0].URI, uri) {
		return false, nil
	}

	r.logger.Info("skipping removed track that is next in the queue", "uri", uri)
	if err := r.api.Next(ctx); err != nil {
		return false, err
	}
	if err := r.sleep(ctx, r.delay); err != nil {
		return true, err
	}

	current, err := r.api.CurrentlyPlaying(ctx)
	if err != nil {
		return true, err
	}
	if current != nil && current.Item != nil && models.SameTrack(current.Item.URI, uri) {
		if err := r.api.Next(ctx); err != nil {
			return false, err
		}
	}
	return true, nil
}

// Control runs an admin playback action. volume is required for [models.ActionVolume].
func (r *Reconciler) Control(ctx context.Context, action models.Action, volume *int) error {
	err := r.control(ctx, action, volume)
	detail := string(action)
	if action == models.ActionVolume && volume != nil {
		detail = fmt.Sprintf("volume %d", *volume)
	}
	r.record(ctx, models.EventControl, "", "", detail, err)
	return err
}

func (r *Reconciler) control(ctx context.Context, action models.Action, volume *int) error {
	var err error
	switch action {
	case models.ActionPlay:
		err = r.api.Play(ctx, r.playOptions(ctx))
	case models.ActionPause:
		err = r.api.Pause(ctx)
	case models.ActionNext:
		err = r.api.Next(ctx)
	case models.ActionVolume:
		if volume == nil {
			return fmt.Errorf("%w: volume is required", shared.ErrMissingArgument)
		}
		if *volume < 0 || *volume > 100 {
			return fmt.Errorf("%w: volume must be between 0 and 100", shared.ErrInvalidInput)
		}
		err = r.api.SetVolume(ctx, *volume)
	default:
		return fmt.Errorf("%w: %q", shared.ErrInvalidAction, action)
	}

	if err != nil {
		return fmt.Errorf("%w: %s: %w", shared.ErrControlFailed, action, err)
	}
	return nil
}

// playOptions resumes with the radio playlist as context when the player has none,
// and otherwise resumes whatever is active.
func (r *Reconciler) playOptions(ctx context.Context) *PlayOptions {
	state, err := r.api.PlaybackState(ctx)
	if err != nil || (state != nil && state.Context != nil && state.Context.URI != "") {
		return nil
	}

	id, err := r.playlists.GetOrCreatePlaylistID(ctx)
	if err != nil {
		r.logger.Warn("no radio playlist to play from", "err", err)
		return nil
	}
	return &PlayOptions{ContextURI: playlistURI(id)}
}

// Search returns up to limit tracks, capped at the configured maximum.
func (r *Reconciler) Search(ctx context.Context, query string, limit int) ([]models.Track, int, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, 0, fmt.Errorf("%w: q", shared.ErrMissingArgument)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > r.searchMax {
		limit = r.searchMax
	}

	result, err := r.api.SearchTracks(ctx, query, limit)
	if err != nil {
		return nil, 0, err
	}

	tracks := make([]models.Track, 0, len(result.Tracks.Items))
	for _, t := range result.Tracks.Items {
		tracks = append(tracks, ToTrack(t, ""))
	}
	return tracks, result.Tracks.Total, nil
}

// NowPlaying reports the current track. It never fails; errors read as nothing playing.
func (r *Reconciler) NowPlaying(ctx context.Context) models.NowPlaying {
	return bestEffort(r.logger, "now playing", models.NowPlaying{}, func() (models.NowPlaying, error) {
		state, err := r.api.CurrentlyPlaying(ctx)
		if err != nil || state == nil || state.Item == nil {
			return models.NowPlaying{}, err
		}
		t := ToTrack(*state.Item, "")
		return models.NowPlaying{
			Playing: state.IsPlaying,
			Track:   &models.NowPlayingTrack{Name: t.Name, Artist: t.Artist, Image: t.Image},
		}, nil
	})
}

// Status reports whether a usable token exists, refreshing a stale one first, and whether
// any token is stored at all.
func (r *Reconciler) Status(ctx context.Context) (authenticated, hasToken bool) {
	err := r.api.EnsureToken(ctx)
	if err != nil {
		r.logger.Debug("spotify not authenticated", "err", err)
	}
	return err == nil, r.api.HasToken()
}

// PlaylistID returns the cached radio playlist id, "" when none exists yet.
func (r *Reconciler) PlaylistID() string {
	return r.playlists.ID()
}

func (r *Reconciler) currentTrack(ctx context.Context) (*models.Track, error) {
	state, err := r.api.CurrentlyPlaying(ctx)
	if err != nil || state == nil || state.Item == nil {
		return nil, err
	}
	t := ToTrack(*state.Item, "")
	return &t, nil
}

// playlistTracks pages through a playlist, 100 items per page, stopping after limit items.
// Unavailable items are skipped.
func (r *Reconciler) playlistTracks(ctx context.Context, playlistID string, limit int) ([]SpotifyTrack, error) {
	var tracks []SpotifyTrack
	for offset := 0; offset < limit; offset += playlistPageSize {
		page, err := r.api.PlaylistTracks(ctx, playlistID, min(playlistPageSize, limit-offset), offset)
		if err != nil {
			return nil, err
		}
		for _, item := range page.Items {
			if item.Track != nil && item.Track.URI != "" {
				tracks = append(tracks, *item.Track)
			}
		}
		if page.Next == nil || len(page.Items) == 0 {
			break
		}
	}
	return tracks, nil
}

func (r *Reconciler) record(ctx context.Context, kind models.EventKind, uri, name, detail string, opErr error) {
	if r.recorder == nil {
		return
	}
	if opErr != nil {
		detail = strings.TrimSpace(detail + " " + opErr.Error())
	}

	event := models.NewQueueEvent(kind, uri, name, detail, opErr == nil)
	event.SetClient(clientFrom(ctx))
	if err := r.recorder.Record(context.WithoutCancel(ctx), event); err != nil {
		r.logger.Warn("failed to record history", "kind", kind, "err", err)
	}
}

// bestEffort runs fn and returns fallback when it fails, logging the failure. Read paths
// polled by clients use it so one failed sub-read never breaks the whole response.
func bestEffort[T any](logger *log.Logger, what string, fallback T, fn func() (T, error)) T {
	v, err := fn()
	if err == nil {
		return v
	}
	if errors.Is(err, shared.ErrNotAuthenticated) {
		logger.Debug("skipped read, spotify not authenticated", "what", what)
	} else {
		logger.Warn("read failed, returning empty result", "what", what, "err", err)
	}
	return fallback
}

func playlistURI(id string) string {
	return "spotify:playlist:" + id
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
