// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

package supervisor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRealtimeClient struct {
	started atomic.Int32
	closed  atomic.Int32
}

func (f *fakeRealtimeClient) Start(_ context.Context) error {
	f.started.Add(1)
	return nil
}

func (f *fakeRealtimeClient) Close() error {
	f.closed.Add(1)
	return nil
}

func TestRealtimeServiceLifecycle(t *testing.T) {
	client := &fakeRealtimeClient{}
	svc := NewRealtimeService(client)

	assert.Equal(t, "realtime-client", svc.String())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	require.Eventually(t, func() bool {
		return client.started.Load() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("service did not stop on cancellation")
	}

	assert.Equal(t, int32(1), client.closed.Load())
}

type fakeAlarmRunner struct{}

func (fakeAlarmRunner) RunAlarms(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestAlarmServiceStopsOnCancel(t *testing.T) {
	svc := NewAlarmService(fakeAlarmRunner{})

	assert.Equal(t, "enforcement-alarms", svc.String())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- svc.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("service did not stop on cancellation")
	}
}

type fakeHTTPServer struct{}

func (fakeHTTPServer) Serve(ctx context.Context) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestControlServiceString(t *testing.T) {
	svc := NewControlService(fakeHTTPServer{})
	assert.Equal(t, "control-server", svc.String())
}

func TestDefaultTreeConfig(t *testing.T) {
	cfg := DefaultTreeConfig()

	assert.Equal(t, 5.0, cfg.FailureThreshold)
	assert.Equal(t, 30.0, cfg.FailureDecay)
	assert.Equal(t, 15*time.Second, cfg.FailureBackoff)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}
