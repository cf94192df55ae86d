// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

package backend

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/focusguard/focusguard/internal/challenge"
	"github.com/focusguard/focusguard/internal/logging"
	"github.com/focusguard/focusguard/internal/metrics"
)

// CircuitBreakerClient wraps Client with a circuit breaker so a backend
// outage does not turn every alarm tick and realtime notification into a
// fresh 30-second timeout. While the circuit is open, fetches fail fast
// and the engine keeps enforcing against the last-known-good list.
//
// Authentication failures do not count against the breaker: a rejected
// credential is a session problem, not backend unavailability.
type CircuitBreakerClient struct {
	client *Client
	cb     *gobreaker.CircuitBreaker[[]challenge.Challenge]
}

// Ensure CircuitBreakerClient implements ClientInterface.
var _ ClientInterface = (*CircuitBreakerClient)(nil)

// NewCircuitBreakerClient creates a backend client with circuit breaking.
//
// Breaker configuration:
//   - Opens after 60% failure rate with at least 6 requests in the window
//   - 1 minute measurement window
//   - 2 minute timeout before attempting recovery
//   - Max 2 concurrent probes in half-open state
func NewCircuitBreakerClient(apiBase string) *CircuitBreakerClient {
	const cbName = "challenge-api"

	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0) // 0 = closed

	cb := gobreaker.NewCircuitBreaker[[]challenge.Challenge](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 2,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 6 {
				return false
			}

			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			if failureRatio >= 0.6 {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Uint32("requests", counts.Requests).
					Msg("opening challenge API circuit")

				return true
			}

			return false
		},

		IsSuccessful: func(err error) bool {
			// A rejected credential must propagate to session
			// invalidation without tripping the breaker.
			return err == nil || errors.Is(err, ErrUnauthorized)
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("circuit breaker state transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.
				WithLabelValues(name, from.String(), to.String()).
				Inc()
		},
	})

	return &CircuitBreakerClient{
		client: NewClient(apiBase),
		cb:     cb,
	}
}

// FetchChallenges fetches through the breaker.
func (c *CircuitBreakerClient) FetchChallenges(ctx context.Context, token string) ([]challenge.Challenge, error) {
	return c.cb.Execute(func() ([]challenge.Challenge, error) {
		return c.client.FetchChallenges(ctx, token)
	})
}

// WebSocketURL derives the realtime endpoint; no network call, no breaker.
func (c *CircuitBreakerClient) WebSocketURL() (string, error) {
	return c.client.WebSocketURL()
}

// State returns the current breaker state.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.cb.State()
}

func stateToFloat(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
