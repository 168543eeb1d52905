// chatterm - a terminal client for a remote conversational AI service.
//
// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jeranaias/chatterm/internal/api"
	"github.com/jeranaias/chatterm/internal/auth"
	"github.com/jeranaias/chatterm/internal/catalog"
	"github.com/jeranaias/chatterm/internal/config"
	"github.com/jeranaias/chatterm/internal/controller"
	"github.com/jeranaias/chatterm/internal/convstore"
	"github.com/jeranaias/chatterm/internal/history"
	"github.com/jeranaias/chatterm/internal/kvstore"
	"github.com/jeranaias/chatterm/internal/repl"
)

// Version information (set at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "chatterm: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogging(cfg)
	log.Debug().Str("version", Version).Str("commit", GitCommit).Str("built", BuildDate).Msg("starting")

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	gate := auth.NewGate(store)
	client := api.NewClient(cfg.Server.BaseURL).
		WithTokenSource(gate.Token).
		WithOnUnauthorized(gate.OnUnauthorized).
		WithTimeout(time.Duration(cfg.Server.TimeoutSecs) * time.Second)
	if cfg.Server.ChatPerMinute > 0 {
		client.WithRateLimit(rate.Limit(float64(cfg.Server.ChatPerMinute)/60.0), 1)
	}

	cat := catalog.New(client)
	convs := convstore.New(store)
	ctrl := controller.New(client, gate, cat, convs)
	defer ctrl.Close()
	hist := history.NewService(client)

	app := repl.New(client, gate, cat, ctrl, hist, cfg.Export.Dir)
	gate.WithNavigator(app)
	ctrl.WithNotifier(app)
	hist.WithConfirmer(app)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Live reload retunes the rate limit without a restart. Settings that
	// would invalidate open handles (server URL, storage path) need one.
	if path, err := config.ConfigPath(); err == nil {
		if stop, err := config.Watch(path, func(fresh *config.Config) {
			if fresh.Server.ChatPerMinute > 0 {
				client.WithRateLimit(rate.Limit(float64(fresh.Server.ChatPerMinute)/60.0), 1)
			} else {
				client.WithRateLimit(rate.Inf, 0)
			}
		}); err == nil {
			defer stop()
		}
	}

	loadCtx, loadCancel := context.WithTimeout(ctx, 10*time.Second)
	cat.Load(loadCtx)
	loadCancel()

	return app.Run(ctx)
}

// openStore opens the configured persistence backend.
func openStore(cfg *config.Config) (kvstore.Store, error) {
	if cfg.Storage.InMemory {
		return kvstore.NewMemoryStore(), nil
	}
	path := cfg.Storage.Path
	if path == "" {
		var err error
		path, err = kvstore.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return kvstore.NewSQLiteStore(path)
}

// setupLogging routes structured logs away from the interactive prompt.
func setupLogging(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var w io.Writer = io.Discard
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err == nil {
			w = f
		}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}
