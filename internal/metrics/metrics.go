// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for the enforcement engine:
// - Tab redirects enforced and skipped
// - Challenge refresh outcomes
// - Realtime socket lifecycle and reconnect attempts
// - Backend circuit breaker state

var (
	// Enforcement Metrics
	TabRedirects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "focusguard_tab_redirects_total",
			Help: "Total number of blocked tabs redirected to the lock page",
		},
	)

	TabRedirectErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "focusguard_tab_redirect_errors_total",
			Help: "Total number of failed tab redirect attempts",
		},
	)

	TabChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusguard_tab_checks_total",
			Help: "Total number of tab evaluations by trigger",
		},
		[]string{"trigger"}, // "startup", "login", "tab_event", "keepalive", "rebuild", "realtime"
	)

	BlockedSetSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "focusguard_blocked_set_entries",
			Help: "Current number of entries in the derived block set",
		},
	)

	// Challenge Refresh Metrics
	ChallengeRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusguard_challenge_refreshes_total",
			Help: "Total number of challenge refresh attempts by outcome",
		},
		[]string{"outcome"}, // "success", "unauthorized", "error"
	)

	// Realtime Sync Metrics
	RealtimeConnects = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "focusguard_realtime_connects_total",
			Help: "Total number of successful realtime socket connections",
		},
	)

	RealtimeReconnectAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "focusguard_realtime_reconnect_attempts_total",
			Help: "Total number of realtime reconnection attempts",
		},
	)

	RealtimeNotifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusguard_realtime_notifications_total",
			Help: "Total number of realtime notifications received by type",
		},
		[]string{"type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "focusguard_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "focusguard_circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from", "to"},
	)
)
