// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

// Package backend consumes the FocusGuard REST and realtime API as an
// opaque external service.
package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/focusguard/focusguard/internal/challenge"
)

// ErrUnauthorized is returned when the backend rejects the credential
// (HTTP 401/403). Callers treat it as "session invalid": persisted session
// cleared, realtime torn down, block set dropped.
var ErrUnauthorized = errors.New("backend rejected credential")

// challengePageLimit matches the upstream clients' fixed fetch window.
const challengePageLimit = 100

// ClientInterface defines the backend operations the engine depends on.
// Both Client and CircuitBreakerClient implement it.
type ClientInterface interface {
	FetchChallenges(ctx context.Context, token string) ([]challenge.Challenge, error)
	WebSocketURL() (string, error)
}

// Ensure Client implements ClientInterface.
var _ ClientInterface = (*Client)(nil)

// Client is a thin HTTP client for the challenge API.
type Client struct {
	apiBase    string
	httpClient *http.Client
}

// NewClient creates a backend client for the given API base URL
// (e.g. "https://api.example.com/api/v1").
func NewClient(apiBase string) *Client {
	return &Client{
		apiBase: strings.TrimSuffix(apiBase, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// FetchChallenges retrieves the caller's full challenge list.
//
// A 401/403 response returns ErrUnauthorized. Any other non-2xx status is
// a soft failure: the caller keeps enforcing against its last-known-good
// challenge list.
func (c *Client) FetchChallenges(ctx context.Context, token string) ([]challenge.Challenge, error) {
	endpoint := fmt.Sprintf(
		"%s/challenges/my-challenges?skip=0&limit=%d",
		c.apiBase, challengePageLimit,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build challenges request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("challenges request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w (HTTP %d)", ErrUnauthorized, resp.StatusCode)

	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 1024))
		if readErr != nil {
			return nil, fmt.Errorf(
				"challenges returned status %d (failed to read body)",
				resp.StatusCode,
			)
		}

		return nil, fmt.Errorf(
			"challenges returned status %d: %s",
			resp.StatusCode, string(body),
		)
	}

	var challenges []challenge.Challenge
	if err := json.NewDecoder(resp.Body).Decode(&challenges); err != nil {
		return nil, fmt.Errorf("decode challenges: %w", err)
	}

	return challenges, nil
}

// WebSocketURL derives the realtime endpoint from the API base:
// the http(s) scheme is rewritten to ws(s) and "/challenges/ws" appended.
func (c *Client) WebSocketURL() (string, error) {
	parsed, err := url.Parse(c.apiBase)
	if err != nil {
		return "", fmt.Errorf("parse api base: %w", err)
	}

	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	default:
		return "", fmt.Errorf("unsupported api base scheme %q", parsed.Scheme)
	}

	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + "/challenges/ws"

	return parsed.String(), nil
}
