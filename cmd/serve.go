package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/desertthunder/jukebox/internal/repositories"
	"github.com/desertthunder/jukebox/internal/server"
	"github.com/desertthunder/jukebox/internal/services"
	"github.com/desertthunder/jukebox/internal/shared"
	"github.com/urfave/cli/v3"
)

// Serve wires the Spotify gateway, queue reconciler and history store into the HTTP server and
// runs it until SIGINT or SIGTERM.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := *r.config
	if host := cmd.String("host"); host != "" {
		cfg.Server.Host = host
	}
	if cmd.IsSet("port") {
		cfg.Server.Port = cmd.Int("port")
	}

	if cfg.Server.AdminPassword == "" {
		r.logger.Warn("no admin password configured; control and remove will answer 500")
	}
	if cfg.Spotify.ClientID == "" || cfg.Spotify.ClientSecret == "" {
		r.logger.Warn("spotify credentials missing; token exchange will answer 500")
	}

	db, err := shared.OpenDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	defer db.Close()
	history, err := r.openHistory(ctx, db, cfg.Database.HistoryKeep)
	if err != nil {
		return err
	}

	httpClient := &http.Client{Timeout: cfg.Spotify.Timeout()}
	store := services.NewTokenStore()
	exchanger := services.NewTokenExchanger(services.ExchangerOpts{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		AuthURL:      cfg.Spotify.AuthURL,
		TokenURL:     cfg.Spotify.TokenURL,
		HTTPClient:   httpClient,
	})
	gw := services.NewGateway(store, exchanger, services.GatewayOpts{
		BaseURL:           cfg.Spotify.APIBaseURL,
		HTTPClient:        httpClient,
		RequestsPerSecond: cfg.Spotify.RequestsPerSecond,
		Logger:            shared.WithLogger(r.logger, "component", "gateway"),
	})
	api := services.NewSpotifyService(gw)

	playlists := services.NewPlaylistManager(api, cfg.Jukebox.PlaylistName, cfg.Jukebox.PlaylistDescription,
		shared.WithLogger(r.logger, "component", "playlist"))
	if id := cmd.String("playlist-id"); id != "" {
		playlists.Adopt(id)
	}

	reconciler := services.NewReconciler(api, playlists, services.ReconcilerOpts{
		Logger:           shared.WithLogger(r.logger, "component", "queue"),
		Recorder:         history,
		ConsistencyDelay: cfg.Jukebox.ConsistencyDelay(),
		RemoveScanLimit:  cfg.Jukebox.RemoveScanLimit,
		ViewLimit:        cfg.Jukebox.ViewLimit,
		SearchLimitMax:   cfg.Jukebox.SearchLimitMax,
	})

	srv := server.New(server.Options{
		Addr:             cfg.Server.Addr(),
		Jukebox:          reconciler,
		Auth:             services.NewSession(exchanger, store, playlists, shared.WithLogger(r.logger, "component", "session")),
		History:          history,
		AdminPassword:    cfg.Server.AdminPassword,
		RedirectURI:      cfg.Spotify.RedirectURI,
		EnqueuePerMinute: cfg.Jukebox.EnqueuePerMinute,
		Logger:           shared.WithLogger(r.logger, "component", "http"),
	})

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r.logger.Info("open the login page to connect Spotify", "url", "http://"+cfg.Server.Addr()+"/api/spotify/login")
	return srv.Run(ctx)
}

// openHistory applies the retention to rows left by earlier runs before the server records more.
func (r *Runner) openHistory(ctx context.Context, db *sql.DB, keep int) (*repositories.EventRepository, error) {
	history := repositories.NewEventRepository(db).WithRetention(keep)
	if keep == 0 {
		return history, nil
	}

	removed, err := history.Prune(ctx, keep)
	if err != nil {
		return nil, err
	}
	if removed > 0 {
		r.logger.Info("pruned request history", "removed", removed, "kept", keep)
	}
	return history, nil
}
