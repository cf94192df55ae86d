// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

package urlmatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/focusguard/focusguard/internal/challenge"
)

func TestBuild(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

	challenges := []challenge.Challenge{
		{
			ID:     "active-toggle",
			Type:   challenge.TypeToggle,
			Toggle: &challenge.ToggleDetails{IsActive: true},
			Distractions: []challenge.Distraction{
				{URL: "https://www.Instagram.com/"},
				{URL: "tiktok.com"},
			},
		},
		{
			ID:   "active-window",
			Type: challenge.TypeTimeBased,
			TimeBased: &challenge.TimeBasedDetails{
				StartDate: "2026-03-01T00:00:00",
				EndDate:   "2026-03-31T00:00:00",
			},
			Distractions: []challenge.Distraction{
				{URL: "youtube.com"},
				{URL: ""}, // empty URLs never contribute
			},
		},
		{
			ID:     "paused-toggle",
			Type:   challenge.TypeToggle,
			Toggle: &challenge.ToggleDetails{IsActive: false},
			Distractions: []challenge.Distraction{
				{URL: "reddit.com"},
			},
		},
		{
			ID:        "completed",
			Completed: true,
			Type:      challenge.TypeToggle,
			Toggle:    &challenge.ToggleDetails{IsActive: true},
			Distractions: []challenge.Distraction{
				{URL: "twitter.com"},
			},
		},
		{
			ID:   "expired-window",
			Type: challenge.TypeTimeBased,
			TimeBased: &challenge.TimeBasedDetails{
				StartDate: "2026-01-01T00:00:00",
				EndDate:   "2026-01-31T00:00:00",
			},
			Distractions: []challenge.Distraction{
				{URL: "news.ycombinator.com"},
			},
		},
	}

	set := Build(challenges, now)

	assert.ElementsMatch(t,
		[]string{"instagram.com", "tiktok.com", "youtube.com"},
		set.Fragments(),
	)
	assert.True(t, set.IsBlocked("https://www.instagram.com/explore"))
	assert.False(t, set.IsBlocked("reddit.com"))
	assert.False(t, set.IsBlocked("twitter.com"))
	assert.False(t, set.IsBlocked("news.ycombinator.com"))
}

func TestBuildEmptyInputs(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 0, Build(nil, now).Len())
	assert.Equal(t, 0, Build([]challenge.Challenge{}, now).Len())
}

// The same list builds different sets as the clock moves across a
// challenge's date window.
func TestBuildFollowsClock(t *testing.T) {
	challenges := []challenge.Challenge{
		{
			ID:   "march-detox",
			Type: challenge.TypeTimeBased,
			TimeBased: &challenge.TimeBasedDetails{
				StartDate: "2026-03-10T00:00:00",
				EndDate:   "2026-03-20T00:00:00",
			},
			Distractions: []challenge.Distraction{{URL: "youtube.com"}},
		},
	}

	before := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
	during := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	after := time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, Build(challenges, before).Len())
	assert.Equal(t, 1, Build(challenges, during).Len())
	assert.Equal(t, 0, Build(challenges, after).Len())
}
