// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

// Package challenge defines the challenge model and derives challenge
// lifecycle status from challenge data and the current time.
package challenge

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Type discriminates the challenge variants carried on the wire.
type Type string

const (
	// TypeTimeBased challenges are active between a start and end date.
	TypeTimeBased Type = "time_based"
	// TypeToggle challenges are switched on and off manually.
	TypeToggle Type = "toggle"
)

// Distraction is a single website a challenge blocks while active.
type Distraction struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// TimeBasedDetails holds the date window of a time-based challenge.
// Timestamps are ISO-8601 strings that MAY omit a timezone suffix; a
// missing suffix means UTC (see ParseWireTime).
type TimeBasedDetails struct {
	StartDate string `json:"start_date" validate:"required"`
	EndDate   string `json:"end_date"   validate:"required"`
}

// ToggleDetails holds the manual on/off switch of a toggle challenge.
type ToggleDetails struct {
	IsActive bool `json:"is_active"`
}

// Challenge is a user-defined commitment to avoid certain websites.
//
// Exactly one of TimeBased / Toggle is populated, matching Type. Unknown
// Type values are accepted on the wire and resolve to StatusPaused, never
// to a blocking state.
type Challenge struct {
	ID          string `json:"id" validate:"required"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Completed is permanently terminal regardless of type or dates.
	Completed bool `json:"completed"`
	Type      Type `json:"challenge_type"`
	// StrictMode changes enforcement UI behavior in some clients; the
	// engine itself always redirects.
	StrictMode   bool              `json:"strict_mode"`
	TimeBased    *TimeBasedDetails `json:"time_based_details,omitempty"`
	Toggle       *ToggleDetails    `json:"toggle_details,omitempty"`
	Distractions []Distraction     `json:"distractions"`
}

// validate checks struct tags on wire payloads.
var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate reports whether the challenge satisfies the wire invariants:
// required fields present, and at most one detail object populated,
// matching the declared type.
//
// A validation failure never removes a challenge from the working set; the
// status resolver already fails open (paused) on malformed shapes. Callers
// use Validate for logging visibility only.
func (c *Challenge) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("challenge %q: %w", c.ID, err)
	}

	if c.TimeBased != nil && c.Toggle != nil {
		return fmt.Errorf(
			"challenge %q: both time_based_details and toggle_details populated",
			c.ID,
		)
	}

	switch c.Type {
	case TypeTimeBased:
		if c.Toggle != nil {
			return fmt.Errorf(
				"challenge %q: toggle_details populated on a time_based challenge",
				c.ID,
			)
		}
	case TypeToggle:
		if c.TimeBased != nil {
			return fmt.Errorf(
				"challenge %q: time_based_details populated on a toggle challenge",
				c.ID,
			)
		}
	default:
		// Unknown types are tolerated on the wire; the resolver treats
		// them as paused.
	}

	return nil
}
