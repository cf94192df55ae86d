// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

package control

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/focusguard/focusguard/internal/challenge"
	"github.com/focusguard/focusguard/internal/enforcer"
)

// Message types accepted from the UI (popup/options) and browser bridge.
const (
	MsgUserLoggedIn      = "user_logged_in"
	MsgUserLoggedOut     = "user_logged_out"
	MsgChallengesUpdated = "challenges_updated"
	MsgRefreshChallenges = "refresh_challenges"
	MsgCheckConnection   = "check_connection"
	MsgTabEvent          = "tab_event"
)

// Envelope is the inbound message frame. Payload fields beyond Type are
// type-specific and decoded on demand.
type Envelope struct {
	Type        string                `json:"type"`
	AccessToken string                `json:"access_token,omitempty"`
	Username    string                `json:"username,omitempty"`
	Challenges  []challenge.Challenge `json:"challenges,omitempty"`
	Tab         *enforcer.Tab         `json:"tab,omitempty"`
}

// Response is the acknowledgement frame. Every accepted message is
// answered; the channel never goes silent on the UI.
type Response struct {
	Success bool   `json:"success"`
	Status  string `json:"status,omitempty"`
	Error   string `json:"error,omitempty"`
}

// dispatch routes one envelope to the controller and produces the
// acknowledgement. Handler errors surface in the response, never as a
// dropped message.
func (s *Server) dispatch(ctx context.Context, env *Envelope) Response {
	switch env.Type {
	case MsgUserLoggedIn:
		if env.AccessToken == "" {
			return Response{Error: "access_token required"}
		}

		if err := s.controller.HandleLogin(ctx, env.AccessToken, env.Username); err != nil {
			return Response{Error: err.Error()}
		}

		return Response{Success: true}

	case MsgUserLoggedOut:
		if err := s.controller.HandleLogout(ctx); err != nil {
			return Response{Error: err.Error()}
		}

		return Response{Success: true}

	case MsgChallengesUpdated:
		if err := s.controller.HandleChallengesUpdated(ctx, env.Challenges); err != nil {
			return Response{Error: err.Error()}
		}

		return Response{Success: true}

	case MsgRefreshChallenges:
		if err := s.controller.RefreshChallenges(ctx); err != nil {
			// Soft failure: cached challenges remain in effect. The UI
			// still gets an honest answer.
			return Response{Error: err.Error()}
		}

		s.controller.CheckActiveTab(ctx, "refresh_message")

		return Response{Success: true}

	case MsgCheckConnection:
		status, err := s.controller.HandleCheckConnection(ctx)
		if err != nil {
			return Response{Error: err.Error()}
		}

		return Response{Success: true, Status: status}

	case MsgTabEvent:
		if env.Tab != nil {
			s.bridge.ReportActiveTab(env.Tab)
		} else {
			s.bridge.ReportActiveTab(nil)
		}

		s.controller.HandleTabEvent(ctx, env.Tab)

		return Response{Success: true}

	default:
		return Response{Error: fmt.Sprintf("unknown message type %q", env.Type)}
	}
}

// decodeEnvelope parses an inbound frame.
func decodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode message: %w", err)
	}

	if env.Type == "" {
		return nil, fmt.Errorf("message type required")
	}

	return &env, nil
}
