// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

package supervisor

import (
	"context"
	"fmt"
)

// RealtimeClient is the realtime sync client's lifecycle surface.
type RealtimeClient interface {
	Start(ctx context.Context) error
	Close() error
}

// RealtimeService adapts the realtime client to suture's Serve pattern:
// connect on entry, hold until shutdown, close on exit. Connection-level
// failures inside the client are handled by its own backoff loop; Serve
// only fails when even starting is impossible, letting suture restart it.
type RealtimeService struct {
	client RealtimeClient
}

// NewRealtimeService wraps the realtime client.
func NewRealtimeService(client RealtimeClient) *RealtimeService {
	return &RealtimeService{client: client}
}

// Serve implements suture.Service.
func (s *RealtimeService) Serve(ctx context.Context) error {
	// A missing credential is not a failure: the client stays idle and
	// the login message connects it later.
	if err := s.client.Start(ctx); err != nil {
		return fmt.Errorf("realtime start: %w", err)
	}

	<-ctx.Done()

	if err := s.client.Close(); err != nil {
		return fmt.Errorf("realtime close: %w", err)
	}

	return ctx.Err()
}

// String implements fmt.Stringer for supervisor logs.
func (s *RealtimeService) String() string {
	return "realtime-client"
}

// AlarmRunner is the enforcement controller's periodic-trigger surface.
type AlarmRunner interface {
	RunAlarms(ctx context.Context) error
}

// AlarmService runs the controller's keep-alive and rebuild alarms as a
// supervised service.
type AlarmService struct {
	runner AlarmRunner
}

// NewAlarmService wraps the alarm runner.
func NewAlarmService(runner AlarmRunner) *AlarmService {
	return &AlarmService{runner: runner}
}

// Serve implements suture.Service.
func (s *AlarmService) Serve(ctx context.Context) error {
	return s.runner.RunAlarms(ctx)
}

// String implements fmt.Stringer for supervisor logs.
func (s *AlarmService) String() string {
	return "enforcement-alarms"
}

// HTTPServer is the control server's lifecycle surface.
type HTTPServer interface {
	Serve(ctx context.Context) error
}

// ControlService runs the control surface as a supervised service.
type ControlService struct {
	server HTTPServer
}

// NewControlService wraps the control server.
func NewControlService(server HTTPServer) *ControlService {
	return &ControlService{server: server}
}

// Serve implements suture.Service.
func (s *ControlService) Serve(ctx context.Context) error {
	return s.server.Serve(ctx)
}

// String implements fmt.Stringer for supervisor logs.
func (s *ControlService) String() string {
	return "control-server"
}
