package commands

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ledgerview/ledgerview/internal/api"
	"github.com/ledgerview/ledgerview/internal/config"
	"github.com/ledgerview/ledgerview/internal/events"
	"github.com/ledgerview/ledgerview/internal/history"
	"github.com/ledgerview/ledgerview/internal/metrics"
	"github.com/ledgerview/ledgerview/internal/store"
	"github.com/ledgerview/ledgerview/internal/upload"
)

// app is everything a subcommand needs, built from config and flags.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	loc     *time.Location
	metrics *metrics.Metrics
	client  *api.Client
	store   *store.Store
	history *history.Log
}

func (o *globalOptions) newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.LoadOrDefault(o.configPath, cmd.Flags().Changed("config"))
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	if o.apiURL != "" {
		cfg.API.BaseURL = o.apiURL
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	log, err := newLogger(cmd.ErrOrStderr(), cfg.Log)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	client := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout, m)
	return &app{
		cfg:     cfg,
		log:     log,
		loc:     loc,
		metrics: m,
		client:  client,
		store:   store.New(client, store.Options{TTL: cfg.Cache.TTL, Logger: &log, Metrics: m}),
		history: history.NewLog(cfg.History.Path),
	}, nil
}

// publisher connects to NATS when configured. Connection failures are
// logged and events are dropped.
func (a *app) publisher() events.Publisher {
	if a.cfg.Events.NATSURL == "" {
		return events.Nop{}
	}
	p, err := events.Connect(a.cfg.Events.NATSURL, a.cfg.Events.Subject)
	if err != nil {
		a.log.Warn().Err(err).Msg("upload events disabled")
		return events.Nop{}
	}
	return p
}

func (a *app) uploader(pub events.Publisher) *upload.Uploader {
	return upload.New(a.client, upload.Options{
		MaxBytes: a.cfg.Upload.MaxBytes,
		Store:    a.store,
		History:  a.history,
		Events:   pub,
		Metrics:  a.metrics,
		Logger:   &a.log,
	})
}

func newLogger(w io.Writer, cfg config.LogConfig) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("log.level: %w", err)
	}
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(level).With().Timestamp().Logger(), nil
}
