// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

package challenge

import (
	"strings"
	"time"
)

// Status is the derived lifecycle state of a challenge. It is never stored;
// time-based challenges change status purely through clock advancement, so
// status must be re-derived with a fresh clock on every evaluation.
type Status string

const (
	StatusActive    Status = "active"
	StatusPaused    Status = "paused"
	StatusCompleted Status = "completed"
	StatusScheduled Status = "scheduled"
	StatusExpired   Status = "expired"
)

// ParseWireTime parses an ISO-8601 timestamp from the backend. Source
// timestamps are UTC-naive: a string without a trailing "Z" is still UTC,
// so the suffix is appended before parsing. This normalization is part of
// the wire contract and must not be "fixed".
func ParseWireTime(s string) (time.Time, error) {
	if !strings.HasSuffix(s, "Z") {
		s += "Z"
	}

	return time.Parse(time.RFC3339, s)
}

// Resolve computes the lifecycle status of c at the instant now.
//
// Priority order, first match wins:
//  1. completed flag → StatusCompleted (terminal, regardless of type/dates)
//  2. time_based with details → expired / scheduled / active by date window
//     (window bounds inclusive)
//  3. toggle with details → active / paused by the is_active switch
//  4. anything else (unknown type, missing details, unparseable dates) →
//     StatusPaused
//
// The fallback is deliberately fail-open: blocking on malformed data could
// lock a user out of sites no active challenge covers.
//
// Resolve is pure. Callers must pass a fresh now on every call.
func Resolve(c *Challenge, now time.Time) Status {
	if c.Completed {
		return StatusCompleted
	}

	switch c.Type {
	case TypeTimeBased:
		if c.TimeBased == nil {
			return StatusPaused
		}

		start, err := ParseWireTime(c.TimeBased.StartDate)
		if err != nil {
			return StatusPaused
		}

		end, err := ParseWireTime(c.TimeBased.EndDate)
		if err != nil {
			return StatusPaused
		}

		switch {
		case now.After(end):
			return StatusExpired
		case now.Before(start):
			return StatusScheduled
		default:
			return StatusActive
		}

	case TypeToggle:
		if c.Toggle == nil {
			return StatusPaused
		}

		if c.Toggle.IsActive {
			return StatusActive
		}

		return StatusPaused

	default:
		return StatusPaused
	}
}

// IsActive reports whether c is currently active. Active is the only
// status that causes blocking.
func IsActive(c *Challenge, now time.Time) bool {
	return Resolve(c, now) == StatusActive
}

// IsPaused reports whether c is currently paused.
func IsPaused(c *Challenge, now time.Time) bool {
	return Resolve(c, now) == StatusPaused
}

// IsCompleted reports whether c has been completed.
func IsCompleted(c *Challenge, now time.Time) bool {
	return Resolve(c, now) == StatusCompleted
}

// IsScheduled reports whether c has not started yet.
func IsScheduled(c *Challenge, now time.Time) bool {
	return Resolve(c, now) == StatusScheduled
}

// IsExpired reports whether c's date window has passed.
func IsExpired(c *Challenge, now time.Time) bool {
	return Resolve(c, now) == StatusExpired
}

// IsTerminal reports whether c can never become active again
// (completed or expired).
func IsTerminal(c *Challenge, now time.Time) bool {
	s := Resolve(c, now)
	return s == StatusCompleted || s == StatusExpired
}

// IsActionable reports whether c can still transition to active.
func IsActionable(c *Challenge, now time.Time) bool {
	return !IsTerminal(c, now)
}

// ShouldBlock reports whether c's distractions belong in the block set.
func ShouldBlock(c *Challenge, now time.Time) bool {
	return IsActive(c, now)
}
