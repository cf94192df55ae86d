// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

package challenge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fixedNow is the reference instant all status tests resolve against.
var fixedNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func TestParseWireTime(t *testing.T) {
	t.Run("naive timestamp is UTC", func(t *testing.T) {
		got, err := ParseWireTime("2026-03-15T10:30:00")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC), got)
	})

	t.Run("explicit Z suffix", func(t *testing.T) {
		got, err := ParseWireTime("2026-03-15T10:30:00Z")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC), got)
	})

	t.Run("garbage errors", func(t *testing.T) {
		_, err := ParseWireTime("not-a-date")
		assert.Error(t, err)
	})

	t.Run("empty errors", func(t *testing.T) {
		_, err := ParseWireTime("")
		assert.Error(t, err)
	})
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name string
		c    Challenge
		want Status
	}{
		{
			name: "completed wins over active window",
			c: Challenge{
				ID:        "c1",
				Completed: true,
				Type:      TypeTimeBased,
				TimeBased: &TimeBasedDetails{
					StartDate: "2026-03-01T00:00:00",
					EndDate:   "2026-03-31T00:00:00",
				},
			},
			want: StatusCompleted,
		},
		{
			name: "completed wins over active toggle",
			c: Challenge{
				ID:        "c2",
				Completed: true,
				Type:      TypeToggle,
				Toggle:    &ToggleDetails{IsActive: true},
			},
			want: StatusCompleted,
		},
		{
			name: "time based inside window",
			c: Challenge{
				ID:   "c3",
				Type: TypeTimeBased,
				TimeBased: &TimeBasedDetails{
					StartDate: "2026-03-01T00:00:00",
					EndDate:   "2026-03-31T00:00:00",
				},
			},
			want: StatusActive,
		},
		{
			name: "time based before window",
			c: Challenge{
				ID:   "c4",
				Type: TypeTimeBased,
				TimeBased: &TimeBasedDetails{
					StartDate: "2026-04-01T00:00:00",
					EndDate:   "2026-04-30T00:00:00",
				},
			},
			want: StatusScheduled,
		},
		{
			name: "time based after window",
			c: Challenge{
				ID:   "c5",
				Type: TypeTimeBased,
				TimeBased: &TimeBasedDetails{
					StartDate: "2026-02-01T00:00:00",
					EndDate:   "2026-02-28T00:00:00",
				},
			},
			want: StatusExpired,
		},
		{
			name: "window start is inclusive",
			c: Challenge{
				ID:   "c6",
				Type: TypeTimeBased,
				TimeBased: &TimeBasedDetails{
					StartDate: "2026-03-15T12:00:00",
					EndDate:   "2026-03-31T00:00:00",
				},
			},
			want: StatusActive,
		},
		{
			name: "window end is inclusive",
			c: Challenge{
				ID:   "c7",
				Type: TypeTimeBased,
				TimeBased: &TimeBasedDetails{
					StartDate: "2026-03-01T00:00:00",
					EndDate:   "2026-03-15T12:00:00",
				},
			},
			want: StatusActive,
		},
		{
			name: "time based with missing details pauses",
			c:    Challenge{ID: "c8", Type: TypeTimeBased},
			want: StatusPaused,
		},
		{
			name: "time based with unparseable start pauses",
			c: Challenge{
				ID:   "c9",
				Type: TypeTimeBased,
				TimeBased: &TimeBasedDetails{
					StartDate: "soon",
					EndDate:   "2026-03-31T00:00:00",
				},
			},
			want: StatusPaused,
		},
		{
			name: "time based with unparseable end pauses",
			c: Challenge{
				ID:   "c10",
				Type: TypeTimeBased,
				TimeBased: &TimeBasedDetails{
					StartDate: "2026-03-01T00:00:00",
					EndDate:   "eventually",
				},
			},
			want: StatusPaused,
		},
		{
			name: "toggle on",
			c: Challenge{
				ID:     "c11",
				Type:   TypeToggle,
				Toggle: &ToggleDetails{IsActive: true},
			},
			want: StatusActive,
		},
		{
			name: "toggle off",
			c: Challenge{
				ID:     "c12",
				Type:   TypeToggle,
				Toggle: &ToggleDetails{IsActive: false},
			},
			want: StatusPaused,
		},
		{
			name: "toggle with missing details pauses",
			c:    Challenge{ID: "c13", Type: TypeToggle},
			want: StatusPaused,
		},
		{
			name: "unknown type pauses",
			c: Challenge{
				ID:     "c14",
				Type:   Type("streak_based"),
				Toggle: &ToggleDetails{IsActive: true},
			},
			want: StatusPaused,
		},
		{
			name: "zero value pauses",
			c:    Challenge{ID: "c15"},
			want: StatusPaused,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(&tt.c, fixedNow))
		})
	}
}

// A time-based challenge changes status through clock advancement alone.
func TestResolveClockAdvancement(t *testing.T) {
	c := Challenge{
		ID:   "march",
		Type: TypeTimeBased,
		TimeBased: &TimeBasedDetails{
			StartDate: "2026-03-10T00:00:00",
			EndDate:   "2026-03-20T00:00:00",
		},
	}

	assert.Equal(t, StatusScheduled, Resolve(&c, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, StatusActive, Resolve(&c, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, StatusExpired, Resolve(&c, time.Date(2026, 3, 25, 0, 0, 0, 0, time.UTC)))
}

func TestResolveIsPure(t *testing.T) {
	c := Challenge{
		ID:   "pure",
		Type: TypeTimeBased,
		TimeBased: &TimeBasedDetails{
			StartDate: "2026-03-01T00:00:00",
			EndDate:   "2026-03-31T00:00:00",
		},
	}
	before := c

	for i := 0; i < 10; i++ {
		assert.Equal(t, StatusActive, Resolve(&c, fixedNow))
	}

	assert.Equal(t, before, c, "Resolve must not mutate the challenge")
}

func TestPredicates(t *testing.T) {
	active := Challenge{
		ID:     "a",
		Type:   TypeToggle,
		Toggle: &ToggleDetails{IsActive: true},
	}
	paused := Challenge{
		ID:     "p",
		Type:   TypeToggle,
		Toggle: &ToggleDetails{IsActive: false},
	}
	completed := Challenge{ID: "c", Completed: true}
	expired := Challenge{
		ID:   "e",
		Type: TypeTimeBased,
		TimeBased: &TimeBasedDetails{
			StartDate: "2026-01-01T00:00:00",
			EndDate:   "2026-01-31T00:00:00",
		},
	}

	assert.True(t, IsActive(&active, fixedNow))
	assert.True(t, ShouldBlock(&active, fixedNow))
	assert.False(t, IsTerminal(&active, fixedNow))
	assert.True(t, IsActionable(&active, fixedNow))

	assert.True(t, IsPaused(&paused, fixedNow))
	assert.False(t, ShouldBlock(&paused, fixedNow))
	assert.True(t, IsActionable(&paused, fixedNow))

	assert.True(t, IsCompleted(&completed, fixedNow))
	assert.True(t, IsTerminal(&completed, fixedNow))
	assert.False(t, IsActionable(&completed, fixedNow))
	assert.False(t, ShouldBlock(&completed, fixedNow))

	assert.True(t, IsExpired(&expired, fixedNow))
	assert.True(t, IsTerminal(&expired, fixedNow))
	assert.False(t, ShouldBlock(&expired, fixedNow))

	scheduled := Challenge{
		ID:   "s",
		Type: TypeTimeBased,
		TimeBased: &TimeBasedDetails{
			StartDate: "2026-06-01T00:00:00",
			EndDate:   "2026-06-30T00:00:00",
		},
	}
	assert.True(t, IsScheduled(&scheduled, fixedNow))
	assert.False(t, ShouldBlock(&scheduled, fixedNow))
}
