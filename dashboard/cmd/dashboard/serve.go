package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fetalalert/fetalalert/dashboard/internal/alerts"
	"github.com/fetalalert/fetalalert/dashboard/internal/api"
	"github.com/fetalalert/fetalalert/dashboard/internal/config"
	"github.com/fetalalert/fetalalert/dashboard/internal/security"
	"github.com/fetalalert/fetalalert/dashboard/internal/source"
	"github.com/fetalalert/fetalalert/dashboard/internal/ws"
)

const certCheckTTL = time.Hour

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Poll the source and serve the dashboard API and live stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configPath)
			if err != nil {
				return err
			}
			defer a.close()
			return serve(a, *configPath)
		},
	}
}

func serve(a *app, configPath string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	d := a.cfg.Dashboard
	slog.Info("fetalalert-dashboard starting", "listen", d.HTTP.Listen)

	engine := alerts.New(d.Alerts)
	certs := security.NewCache(d.Source, certCheckTTL)
	hub := ws.New(a.poller.Current)

	a.poller.Subscribe(hub.Publish)
	a.poller.Subscribe(engine.Evaluate)

	go a.store.Run(ctx)
	go hub.Run(ctx)
	go a.poller.Run(ctx)

	go func() {
		if err := config.Watch(ctx, configPath, func(updated *config.Config) {
			reload(ctx, a, engine, updated)
		}); err != nil {
			slog.Error("config watcher stopped", "err", err)
		}
	}()

	apiHandler := api.New(api.Options{
		Dashboard:      a.poller,
		Store:          a.store,
		Alerts:         engine,
		Certs:          certs,
		MinDate:        a.minDate,
		Location:       a.loc,
		ExportFilename: d.Export.Filename,
	})

	mux := http.NewServeMux()
	mux.Handle("/api/", apiHandler)
	mux.Handle("/metrics", apiHandler)
	mux.Handle("/ws/stream", hub)
	if d.HTTP.UIDir != "" {
		mux.Handle("/", spaHandler(d.HTTP.UIDir))
		slog.Info("serving UI static files", "dir", d.HTTP.UIDir)
	}

	srv := &http.Server{
		Addr:              d.HTTP.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", d.HTTP.Listen)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	slog.Info("fetalalert-dashboard shutting down")
	shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("HTTP shutdown", "err", err)
	}
	engine.Wait()
	return nil
}

// reload applies the hot-reloadable parts of an updated config: the query
// (device, patient, key, date range) and the alert rules and webhooks. The
// source type and endpoint are fixed for the process lifetime.
func reload(ctx context.Context, a *app, engine *alerts.Engine, updated *config.Config) {
	src := updated.Dashboard.Source
	if src.Type != a.running.Type || src.Endpoint != a.running.Endpoint {
		slog.Warn("config: source endpoint changed, restart to apply",
			"type", src.Type, "endpoint", src.Endpoint,
			"running_endpoint", a.running.Endpoint)
	}

	q, err := source.DefaultQuery(src, a.minDate, time.Now().In(a.loc), a.loc)
	if err != nil {
		slog.Error("config: reload query", "err", err)
		return
	}
	a.cfg = updated
	engine.Reload(updated.Dashboard.Alerts)
	a.poller.SetQuery(ctx, q)
	slog.Info("config hot-reloaded",
		"device_id", q.DeviceID,
		"patient_id", q.PatientID,
		"alert_rules", len(updated.Dashboard.Alerts.Rules),
	)
}

// spaHandler serves static assets from dir and falls back to index.html for
// client-side routes.
func spaHandler(dir string) http.Handler {
	fs := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(path); os.IsNotExist(err) {
			http.ServeFile(w, r, filepath.Join(dir, "index.html"))
			return
		}
		fs.ServeHTTP(w, r)
	})
}
