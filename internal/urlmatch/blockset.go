// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

package urlmatch

import (
	"time"

	"github.com/focusguard/focusguard/internal/challenge"
)

// Build derives the block set from a challenge list at the instant now.
//
// Only challenges whose resolved status is active contribute; each of their
// distractions with a non-empty URL is normalized into the set. Challenges
// in any other status contribute nothing even when they carry distractions.
//
// The set is always rebuilt from the full list, never patched
// incrementally: a time-based challenge can transition status purely
// through clock advancement with no update event, so an incremental patch
// would go stale.
func Build(challenges []challenge.Challenge, now time.Time) BlockedSet {
	set := make(BlockedSet)

	for i := range challenges {
		c := &challenges[i]

		if !challenge.ShouldBlock(c, now) {
			continue
		}

		for _, d := range c.Distractions {
			if d.URL == "" {
				continue
			}

			set.Add(Normalize(d.URL))
		}
	}

	return set
}
