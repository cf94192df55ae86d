// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

// Package enforcer orchestrates the engine: on every trigger (startup,
// login, tab event, alarm, realtime notification) it re-derives the block
// decision and redirects the active tab when its URL is blocked.
package enforcer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/focusguard/focusguard/internal/backend"
	"github.com/focusguard/focusguard/internal/challenge"
	"github.com/focusguard/focusguard/internal/logging"
	"github.com/focusguard/focusguard/internal/metrics"
	"github.com/focusguard/focusguard/internal/realtime"
	"github.com/focusguard/focusguard/internal/state"
	"github.com/focusguard/focusguard/internal/urlmatch"
)

// Realtime is the slice of the realtime client the controller drives. The
// controller only ever reopens the channel with Connect; Start belongs to
// the supervised service, which owns the client's base context. Handing a
// request-scoped context to the client would cancel its reconnect path the
// moment the triggering message completes.
type Realtime interface {
	Connect() error
	Close() error
	IsConnected() bool
}

// Ensure the concrete client satisfies the interface.
var _ Realtime = (*realtime.Client)(nil)

// Config holds the controller's tunables.
type Config struct {
	// LockPageURL is where blocked tabs are redirected.
	LockPageURL string

	// KeepAliveInterval drives the cheap active-tab re-check
	// (order of tens of seconds).
	KeepAliveInterval time.Duration

	// RebuildInterval drives the block-set rebuild from the cached
	// challenge list (minute scale, no network). This is what catches a
	// time-based challenge silently becoming active or expired purely
	// from clock advancement.
	RebuildInterval time.Duration
}

// Controller owns the in-memory block set and is the only component that
// touches tab state.
//
// Durable facts (credential, challenge list, connectivity) are re-read
// from the state store at the start of every independent operation; the
// process may have been restarted since the previous trigger, so no
// in-memory continuity is assumed. The block set is an atomically replaced
// snapshot, never mutated in place.
type Controller struct {
	store    *state.Store
	backend  backend.ClientInterface
	tabs     Tabs
	realtime Realtime
	cfg      Config

	blocked atomic.Pointer[urlmatch.BlockedSet]

	// limiter guards redirect calls; tab APIs are rate-sensitive.
	limiter *rate.Limiter

	// clock is replaceable in tests; production uses time.Now.
	clock func() time.Time
}

// NewController wires the controller. Attach the realtime client with
// SetRealtime after construction (the realtime notification handler points
// back at the controller).
func NewController(s *state.Store, b backend.ClientInterface, tabs Tabs, cfg Config) *Controller {
	if cfg.KeepAliveInterval <= 0 {
		cfg.KeepAliveInterval = 20 * time.Second
	}
	if cfg.RebuildInterval <= 0 {
		cfg.RebuildInterval = time.Minute
	}

	c := &Controller{
		store:   s,
		backend: b,
		tabs:    tabs,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 5),
		clock:   time.Now,
	}

	empty := make(urlmatch.BlockedSet)
	c.blocked.Store(&empty)

	return c
}

// SetRealtime attaches the realtime client.
func (c *Controller) SetRealtime(rt Realtime) {
	c.realtime = rt
}

// BlockedSet returns the current snapshot.
func (c *Controller) BlockedSet() urlmatch.BlockedSet {
	return *c.blocked.Load()
}

// swapBlockedSet atomically replaces the snapshot.
func (c *Controller) swapBlockedSet(set urlmatch.BlockedSet) {
	c.blocked.Store(&set)
	metrics.BlockedSetSize.Set(float64(set.Len()))
}

// HandleStartup runs on process start: fetch challenges if a credential
// exists, connect realtime, and evaluate the currently active tab.
func (c *Controller) HandleStartup(ctx context.Context) {
	st, err := c.store.GetState(ctx)
	if err != nil {
		logging.Error().Err(err).Msg("startup: read state")
		return
	}

	if !st.HasSession() {
		logging.Info().Msg("startup: no session, enforcement idle")
		return
	}

	if err := c.RefreshChallenges(ctx); err != nil {
		logging.Warn().Err(err).Msg("startup: challenge refresh failed")
	}

	if c.realtime != nil {
		if err := c.realtime.Connect(); err != nil {
			logging.Warn().Err(err).Msg("startup: realtime connect failed")
		}
	}

	c.CheckActiveTab(ctx, "startup")
}

// HandleLogin runs on an explicit login message: fetch challenges, connect
// realtime, evaluate the active tab.
func (c *Controller) HandleLogin(ctx context.Context, token, username string) error {
	if err := c.store.SetSession(ctx, token, username); err != nil {
		return err
	}

	if err := c.RefreshChallenges(ctx); err != nil {
		logging.Warn().Err(err).Msg("login: challenge refresh failed")
	}

	if c.realtime != nil {
		if err := c.realtime.Connect(); err != nil {
			logging.Warn().Err(err).Msg("login: realtime connect failed")
		}
	}

	c.CheckActiveTab(ctx, "login")

	return nil
}

// HandleLogout tears the session down: realtime closed with no further
// reconnection, persisted session cleared, in-memory block set dropped.
// No tab is evaluated — with no session there is nothing to block.
func (c *Controller) HandleLogout(ctx context.Context) error {
	if c.realtime != nil {
		if err := c.realtime.Close(); err != nil {
			logging.Warn().Err(err).Msg("logout: realtime close")
		}
	}

	if err := c.store.ClearSession(ctx); err != nil {
		return err
	}

	c.swapBlockedSet(make(urlmatch.BlockedSet))
	logging.Info().Msg("logged out, enforcement idle")

	return nil
}

// HandleChallengesUpdated accepts a challenge list pushed by the UI,
// persists it, rebuilds the block set, and re-evaluates the active tab.
func (c *Controller) HandleChallengesUpdated(ctx context.Context, challenges []challenge.Challenge) error {
	for i := range challenges {
		if err := challenges[i].Validate(); err != nil {
			logging.Warn().Err(err).Msg("challenge failed validation")
		}
	}

	if err := c.store.SetChallenges(ctx, challenges); err != nil {
		return err
	}

	c.swapBlockedSet(urlmatch.Build(challenges, c.clock()))
	c.CheckActiveTab(ctx, "challenges_updated")

	return nil
}

// HandleRealtimeNotification is the realtime client's callback: a
// challenge changed server-side, so re-fetch everything and re-enforce
// the active tab.
func (c *Controller) HandleRealtimeNotification(ctx context.Context, messageType string) {
	logging.Debug().Str("type", messageType).Msg("realtime notification")

	if err := c.RefreshChallenges(ctx); err != nil {
		logging.Warn().Err(err).Msg("realtime refresh failed")
	}

	c.CheckActiveTab(ctx, "realtime")
}

// HandleCheckConnection answers the UI's connection probe and nudges the
// realtime client to reconnect if a session exists but the socket is down.
func (c *Controller) HandleCheckConnection(ctx context.Context) (string, error) {
	st, err := c.store.GetState(ctx)
	if err != nil {
		return "", err
	}

	if st.HasSession() && c.realtime != nil && !c.realtime.IsConnected() {
		if err := c.realtime.Connect(); err != nil {
			logging.Debug().Err(err).Msg("connection check: reconnect failed")
		}
	}

	if c.realtime != nil && c.realtime.IsConnected() {
		return state.StatusConnected, nil
	}

	return st.ConnectionStatus, nil
}

// RefreshChallenges fetches the challenge list from the backend, persists
// it, and rebuilds the block set.
//
// Error policy:
//   - 401/403 → session invalid: persisted session cleared, realtime
//     closed with no reschedule, block set cleared, no redirect.
//   - any other failure → soft: the cached list stays in effect and the
//     block set is rebuilt from it with a fresh clock, because a
//     time-based status may have flipped while the network was down.
func (c *Controller) RefreshChallenges(ctx context.Context) error {
	st, err := c.store.GetState(ctx)
	if err != nil {
		return err
	}

	if !st.HasSession() {
		c.swapBlockedSet(make(urlmatch.BlockedSet))
		return nil
	}

	challenges, err := c.backend.FetchChallenges(ctx, st.AccessToken)
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			metrics.ChallengeRefreshes.WithLabelValues("unauthorized").Inc()
			c.invalidateSession(ctx)

			return err
		}

		metrics.ChallengeRefreshes.WithLabelValues("error").Inc()
		c.swapBlockedSet(urlmatch.Build(st.Challenges, c.clock()))

		return err
	}

	for i := range challenges {
		if err := challenges[i].Validate(); err != nil {
			logging.Warn().Err(err).Msg("challenge failed validation")
		}
	}

	if err := c.store.SetChallenges(ctx, challenges); err != nil {
		return err
	}

	metrics.ChallengeRefreshes.WithLabelValues("success").Inc()
	c.swapBlockedSet(urlmatch.Build(challenges, c.clock()))

	logging.Info().
		Int("challenges", len(challenges)).
		Int("blocked", c.BlockedSet().Len()).
		Msg("challenges refreshed")

	return nil
}

// RebuildFromCache recomputes the block set from the persisted challenge
// list without a network call.
func (c *Controller) RebuildFromCache(ctx context.Context) error {
	st, err := c.store.GetState(ctx)
	if err != nil {
		return err
	}

	c.swapBlockedSet(urlmatch.Build(st.Challenges, c.clock()))

	return nil
}

// invalidateSession implements the 401/403 path.
func (c *Controller) invalidateSession(ctx context.Context) {
	logging.Warn().Msg("credential rejected, invalidating session")

	if err := c.store.ClearSession(ctx); err != nil {
		logging.Error().Err(err).Msg("clear session")
	}

	if c.realtime != nil {
		if err := c.realtime.Close(); err != nil {
			logging.Warn().Err(err).Msg("close realtime")
		}
	}

	c.swapBlockedSet(make(urlmatch.BlockedSet))
}

// CheckActiveTab evaluates only the currently focused tab. Only the
// visible tab can be interacted with, so enforcing on focus, activation,
// and navigation events — with the keep-alive alarm as a safety net — is
// sufficient, and far cheaper than scanning every open tab per trigger.
func (c *Controller) CheckActiveTab(ctx context.Context, trigger string) {
	metrics.TabChecks.WithLabelValues(trigger).Inc()

	tab, err := c.tabs.ActiveTab(ctx)
	if err != nil {
		logging.Warn().Err(err).Msg("query active tab")
		return
	}

	if tab == nil {
		return
	}

	c.CheckAndRedirectTab(ctx, tab)
}

// HandleTabEvent re-evaluates the single tab a navigation, activation, or
// focus event reported. The decision is derived fresh; no cached redirect
// flag is trusted.
func (c *Controller) HandleTabEvent(ctx context.Context, tab *Tab) {
	metrics.TabChecks.WithLabelValues("tab_event").Inc()

	if tab == nil {
		return
	}

	c.CheckAndRedirectTab(ctx, tab)
}

// CheckAndRedirectTab applies the block decision to one tab:
//
//  1. No URL → no-op.
//  2. Browser-internal scheme → no-op; internal pages are never redirected.
//  3. Blocked → redirect to the lock page. Redirect failures (tab closed
//     mid-flight) are logged, never propagated; the next trigger
//     re-evaluates if the tab still exists.
func (c *Controller) CheckAndRedirectTab(ctx context.Context, tab *Tab) {
	if tab.URL == "" {
		return
	}

	if urlmatch.IsInternal(tab.URL) {
		return
	}

	if !c.BlockedSet().IsBlocked(tab.URL) {
		return
	}

	if !c.limiter.Allow() {
		logging.Warn().Int("tab", tab.ID).Msg("redirect suppressed by rate limit")
		return
	}

	logging.Info().
		Int("tab", tab.ID).
		Str("url", tab.URL).
		Msg("blocking tab")

	if err := c.tabs.Redirect(ctx, tab.ID, c.cfg.LockPageURL); err != nil {
		metrics.TabRedirectErrors.Inc()
		logging.Warn().Err(err).Int("tab", tab.ID).Msg("redirect failed")

		return
	}

	metrics.TabRedirects.Inc()
}

// RunAlarms drives the two periodic triggers until ctx is cancelled:
//
//   - keep-alive tick: re-evaluate only the active tab (cheap; also covers
//     events missed while the process was down)
//   - rebuild tick: recompute the block set from the cached challenge
//     list, then re-check the active tab
//
// Suitable as a supervised service body.
func (c *Controller) RunAlarms(ctx context.Context) error {
	keepAlive := time.NewTicker(c.cfg.KeepAliveInterval)
	defer keepAlive.Stop()

	rebuild := time.NewTicker(c.cfg.RebuildInterval)
	defer rebuild.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-keepAlive.C:
			c.CheckActiveTab(ctx, "keepalive")

		case <-rebuild.C:
			if err := c.RebuildFromCache(ctx); err != nil {
				logging.Warn().Err(err).Msg("block set rebuild failed")
				continue
			}

			c.CheckActiveTab(ctx, "rebuild")
		}
	}
}
