// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

// Command focusguardd runs the FocusGuard enforcement engine: it syncs
// the user's challenges from the backend, keeps a realtime socket open
// for push updates, and redirects blocked tabs reported by the browser
// bridge through the local control surface.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/focusguard/focusguard/internal/backend"
	"github.com/focusguard/focusguard/internal/config"
	"github.com/focusguard/focusguard/internal/control"
	"github.com/focusguard/focusguard/internal/enforcer"
	"github.com/focusguard/focusguard/internal/logging"
	"github.com/focusguard/focusguard/internal/realtime"
	"github.com/focusguard/focusguard/internal/state"
	"github.com/focusguard/focusguard/internal/supervisor"
)

// Build information, injected via -ldflags.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("focusguardd %s (commit %s, built %s)\n", version, commit, buildDate)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	logging.Info().
		Str("version", version).
		Str("commit", commit).
		Msg("focusguard engine starting")

	store, err := state.Open(cfg.State.Path)
	if err != nil {
		logging.Fatal().Err(err).Str("path", cfg.State.Path).Msg("open state store")
	}

	api := backend.NewCircuitBreakerClient(cfg.API.BaseURL)
	bridge := enforcer.NewBridgeTabs()

	ctrl := enforcer.NewController(store, api, bridge, enforcer.Config{
		LockPageURL:       cfg.Enforcer.LockPageURL,
		KeepAliveInterval: cfg.Enforcer.KeepAliveInterval,
		RebuildInterval:   cfg.Enforcer.RebuildInterval,
	})

	rt := realtime.NewClient(api, store, ctrl.HandleRealtimeNotification)
	ctrl.SetRealtime(rt)

	srv := control.NewServer(ctrl, bridge, cfg.Control)

	tree := supervisor.NewTree(logging.Slog(), supervisor.DefaultTreeConfig())
	tree.AddSyncService(supervisor.NewRealtimeService(rt))
	tree.AddSyncService(supervisor.NewAlarmService(ctrl))
	tree.AddControlService(supervisor.NewControlService(srv))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// The startup trigger re-reads durable state and may hit the network;
	// it must not delay the control surface coming up.
	go ctrl.HandleStartup(ctx)

	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("supervisor tree exited")
	}

	if err := store.Close(); err != nil {
		logging.Error().Err(err).Msg("close state store")
	}

	logging.Info().Msg("focusguard engine stopped")
}
