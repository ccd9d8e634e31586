package main

import (
	"fmt"
	"log/slog"
	"time"

	"go.uber.org/zap"

	"github.com/fetalalert/fetalalert/dashboard/internal/config"
	"github.com/fetalalert/fetalalert/dashboard/internal/logging"
	"github.com/fetalalert/fetalalert/dashboard/internal/poller"
	"github.com/fetalalert/fetalalert/dashboard/internal/source"
	"github.com/fetalalert/fetalalert/dashboard/internal/store"
	"github.com/fetalalert/fetalalert/dashboard/internal/vitals"
)

// app holds the components shared by every subcommand.
type app struct {
	cfg     *config.Config
	running config.Source // source the process was started with
	zap     *zap.Logger
	loc     *time.Location
	minDate time.Time
	store   *store.Store
	poller  *poller.Poller
}

// newApp loads the config, installs the default logger and builds the
// source, store and poller. Callers must defer a.close().
func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	logger, z, err := logging.New(cfg.Log.Level, cfg.Log.Format, cfg.Log.Service)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	d := cfg.Dashboard
	loc, err := d.Location()
	if err != nil {
		return nil, fmt.Errorf("timezone: %w", err)
	}
	minDate, err := vitals.ParseISODate(d.MinDate, loc)
	if err != nil {
		return nil, fmt.Errorf("min_date: %w", err)
	}
	q, err := source.DefaultQuery(d.Source, minDate, time.Now().In(loc), loc)
	if err != nil {
		return nil, err
	}
	src, err := source.New(d.Source)
	if err != nil {
		return nil, err
	}

	st := store.New(d.HTTP.SnapshotTTL)
	p := poller.New(src, st, poller.Options{
		Interval:   d.PollInterval,
		TableLimit: d.TableLimit,
		MinDate:    minDate,
		Location:   loc,
		Query:      q,

		FetchTimeout: d.Source.Timeout,
	})

	slog.Info("config loaded",
		"config", configPath,
		"source_type", d.Source.Type,
		"endpoint", d.Source.Endpoint,
		"device_id", d.Source.DeviceID,
		"poll_interval", d.PollInterval,
		"timezone", loc.String(),
	)

	return &app{cfg: cfg, running: d.Source, zap: z, loc: loc, minDate: minDate, store: st, poller: p}, nil
}

func (a *app) close() {
	_ = a.zap.Sync()
}
