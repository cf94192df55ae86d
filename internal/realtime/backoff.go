// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

package realtime

import (
	"math/rand/v2"
	"time"
)

const (
	baseReconnectDelay = time.Second
	maxReconnectDelay  = 30 * time.Second
	maxReconnectJitter = time.Second
)

// reconnectDelay computes the wait before reconnect attempt retry:
//
//	delay = min(30s, 2^retry * 1s) + jitter(0..1s)
//
// The jitter spreads simultaneous reconnects from many clients after a
// server restart. For retry count n the result is always within
// [2^n * 1s, 2^n * 1s + 1s], capped at [30s, 31s].
func reconnectDelay(retry int) time.Duration {
	delay := maxReconnectDelay
	// 1s << 5 = 32s already exceeds the cap; guard the shift instead of
	// overflowing on large retry counts.
	if retry < 5 {
		delay = baseReconnectDelay << uint(retry)
		if delay > maxReconnectDelay {
			delay = maxReconnectDelay
		}
	}

	return delay + rand.N(maxReconnectJitter)
}
