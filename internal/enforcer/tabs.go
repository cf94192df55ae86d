// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

package enforcer

import (
	"context"
	"errors"
	"sync"
)

// Tab describes one browser tab as reported by the browser bridge.
type Tab struct {
	ID       int    `json:"id"`
	URL      string `json:"url"`
	WindowID int    `json:"window_id,omitempty"`
}

// RedirectCommand instructs the browser bridge to navigate a tab.
type RedirectCommand struct {
	TabID     int    `json:"tab_id"`
	TargetURL string `json:"target_url"`
}

// Tabs is the controller's only window into browser tab state. The
// concrete implementation is whatever bridge feeds tab events into the
// engine; the controller never talks to a browser API directly.
type Tabs interface {
	// ActiveTab returns the currently focused tab, or nil when the
	// bridge has not reported one.
	ActiveTab(ctx context.Context) (*Tab, error)

	// Redirect navigates the given tab to targetURL. Failures (tab
	// closed mid-flight, bridge gone) are returned, logged by the
	// caller, and never retried — the next trigger re-evaluates.
	Redirect(ctx context.Context, tabID int, targetURL string) error
}

// ErrNoBridge is returned by Redirect when no browser bridge is attached
// to receive the command.
var ErrNoBridge = errors.New("no browser bridge connected")

// BridgeTabs implements Tabs for a remote browser bridge: the bridge
// reports the active tab through the control surface, and redirect
// commands flow back to it over the bridge's subscription channel.
//
// The active-tab record is a snapshot, replaced wholesale on every report;
// it carries no authority — a stale snapshot merely means the keep-alive
// alarm re-checks a tab that already navigated away.
type BridgeTabs struct {
	mu     sync.RWMutex
	active *Tab
	sink   chan<- RedirectCommand
}

// NewBridgeTabs creates an empty bridge with no subscriber.
func NewBridgeTabs() *BridgeTabs {
	return &BridgeTabs{}
}

// ReportActiveTab records the bridge's latest active-tab observation.
// Passing nil clears it (e.g. browser lost focus entirely).
func (b *BridgeTabs) ReportActiveTab(tab *Tab) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.active = tab
}

// Subscribe attaches the channel redirect commands are delivered on.
// A second subscriber replaces the first (one bridge per engine).
func (b *BridgeTabs) Subscribe(sink chan<- RedirectCommand) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.sink = sink
}

// Unsubscribe detaches the given sink if it is still the current one.
func (b *BridgeTabs) Unsubscribe(sink chan<- RedirectCommand) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sink == sink {
		b.sink = nil
	}
}

// ActiveTab implements Tabs.
func (b *BridgeTabs) ActiveTab(_ context.Context) (*Tab, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.active == nil {
		return nil, nil
	}

	tab := *b.active

	return &tab, nil
}

// Redirect implements Tabs by handing the command to the subscribed
// bridge. A full or missing subscriber channel is an error; the caller
// logs it and moves on.
func (b *BridgeTabs) Redirect(_ context.Context, tabID int, targetURL string) error {
	// The send happens under the read lock so Unsubscribe (write lock)
	// can safely close the channel once it returns.
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.sink == nil {
		return ErrNoBridge
	}

	select {
	case b.sink <- RedirectCommand{TabID: tabID, TargetURL: targetURL}:
		return nil
	default:
		return errors.New("browser bridge not accepting commands")
	}
}
