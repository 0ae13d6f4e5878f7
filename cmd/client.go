package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/jukebox/internal/formatter"
	"github.com/desertthunder/jukebox/internal/models"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthURL prints the server's login URL and optionally opens it.
func (r *Runner) AuthURL(ctx context.Context, cmd *cli.Command) error {
	loginURL := r.api.URL("/api/spotify/login")

	if err := r.writePlain("%s\n", loginURL); err != nil {
		return err
	}
	if cmd.Bool("open") {
		if err := shared.OpenBrowser(loginURL); err != nil {
			r.logger.Warn("could not open browser", "error", err)
		}
	}
	return nil
}

// Status reports whether the server holds Spotify tokens.
func (r *Runner) Status(ctx context.Context, cmd *cli.Command) error {
	status, err := r.api.Status(ctx)
	if err != nil {
		return err
	}

	if status.Authenticated {
		return r.writePlain("✓ Authenticated with Spotify\n")
	}
	if status.HasToken {
		return r.writePlain("✗ Token present but not usable\n")
	}
	return r.writePlain("✗ Not authenticated. Run 'jukebox auth-url --open'\n")
}

// Token exchanges an authorization code on the server.
func (r *Runner) Token(ctx context.Context, cmd *cli.Command) error {
	redirectURI := cmd.String("redirect-uri")
	if redirectURI == "" {
		redirectURI = r.config.Spotify.RedirectURI
	}
	if redirectURI == "" {
		return fmt.Errorf("%w: --redirect-uri", shared.ErrMissingArgument)
	}

	resp, err := r.api.ExchangeToken(ctx, cmd.String("code"), redirectURI)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s (expires in %ds)\n", resp.Message, resp.ExpiresIn)
}

// Search lists matching tracks.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: query", shared.ErrMissingArgument)
	}

	resp, err := r.api.Search(ctx, query, cmd.Int("limit"))
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(resp, true)
	}

	if len(resp.Tracks) == 0 {
		return r.writePlain("No tracks found for %q\n", query)
	}
	for i, t := range resp.Tracks {
		r.writePlain("%2d. %s - %s [%s]\n    %s\n", i+1, t.Name, t.Artist, formatter.FormatDuration(t.DurationMS), t.URI)
	}
	return nil
}

// QueueList renders the reconciled queue in the requested format.
func (r *Runner) QueueList(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	view, err := r.api.Queue(ctx)
	if err != nil {
		return err
	}

	data, err := formatter.Queue(view, format)
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := formatter.WriteExport(data, path); err != nil {
			return err
		}
		r.logger.Info("queue exported", "path", path, "format", format)
		return nil
	}

	_, err = r.output.Write(data)
	return err
}

// QueueAdd queues a song.
func (r *Runner) QueueAdd(ctx context.Context, cmd *cli.Command) error {
	song := strings.TrimSpace(cmd.StringArg("song"))
	if song == "" {
		return fmt.Errorf("%w: song", shared.ErrMissingArgument)
	}

	resp, err := r.api.Enqueue(ctx, song)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s\n", resp.Message)
}

// QueueRemove removes a track.
func (r *Runner) QueueRemove(ctx context.Context, cmd *cli.Command) error {
	track := strings.TrimSpace(cmd.StringArg("track"))
	if track == "" {
		return fmt.Errorf("%w: track", shared.ErrMissingArgument)
	}
	if uri, ok := models.NormalizeTrackURI(track); ok {
		track = uri
	}

	resp, err := r.api.Remove(ctx, track)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s\n", resp.Message)
}

// Control runs a playback action.
func (r *Runner) Control(ctx context.Context, cmd *cli.Command) error {
	action, err := models.ParseAction(cmd.StringArg("action"))
	if err != nil {
		return err
	}

	var volume *int
	if action == models.ActionVolume {
		v := cmd.Int("volume")
		if v < 0 || v > 100 {
			return fmt.Errorf("%w: --volume must be within 0..100", shared.ErrInvalidInput)
		}
		volume = &v
	}

	resp, err := r.api.Control(ctx, action, volume)
	if err != nil {
		return err
	}
	return r.writePlain("✓ %s\n", resp.Message)
}

// NowPlaying prints the current track.
func (r *Runner) NowPlaying(ctx context.Context, cmd *cli.Command) error {
	np, err := r.api.NowPlaying(ctx)
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(np, true)
	}
	if np.Track == nil {
		return r.writePlain("Nothing playing\n")
	}

	state := "▶"
	if !np.Playing {
		state = "⏸"
	}
	return r.writePlain("%s %s - %s\n", state, np.Track.Name, np.Track.Artist)
}

// History prints recent jukebox events.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	resp, err := r.api.History(ctx, cmd.String("kind"), cmd.Int("limit"))
	if err != nil {
		return err
	}

	data, err := formatter.History(resp.Events, format)
	if err != nil {
		return err
	}
	_, err = r.output.Write(data)
	return err
}
