// FocusGuard - Challenge-Based Website Blocking Engine
// Copyright 2026 FocusGuard Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/focusguard/focusguard

// Package control exposes the local HTTP surface the extension UI and the
// browser bridge talk to: the message endpoint, the duplex bridge socket
// redirect commands flow back over, and Prometheus metrics.
package control

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/focusguard/focusguard/internal/config"
	"github.com/focusguard/focusguard/internal/enforcer"
	"github.com/focusguard/focusguard/internal/logging"
)

const shutdownTimeout = 5 * time.Second

// Server is the control surface.
type Server struct {
	controller *enforcer.Controller
	bridge     *enforcer.BridgeTabs
	cfg        config.ControlConfig
	upgrader   websocket.Upgrader
}

// NewServer wires the control surface.
func NewServer(ctrl *enforcer.Controller, bridge *enforcer.BridgeTabs, cfg config.ControlConfig) *Server {
	return &Server{
		controller: ctrl,
		bridge:     bridge,
		cfg:        cfg,
		upgrader: websocket.Upgrader{
			// The listener is loopback-only; origin filtering happens
			// in the CORS layer for the REST surface.
			CheckOrigin: func(_ *http.Request) bool { return true },
		},
	}
}

// Router assembles the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	if len(s.cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type"},
			MaxAge:         300,
		}))
	}

	if s.cfg.RequestsPerMinute > 0 {
		r.Use(httprate.LimitByIP(s.cfg.RequestsPerMinute, time.Minute))
	}

	r.Post("/v1/message", s.handleMessage)
	r.Get("/v1/bridge/ws", s.handleBridgeSocket)
	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

// handleMessage accepts one UI message and answers synchronously.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, 1<<20)

	var env Envelope
	if err := json.NewDecoder(body).Decode(&env); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "malformed message"})
		return
	}

	if env.Type == "" {
		writeJSON(w, http.StatusBadRequest, Response{Error: "message type required"})
		return
	}

	resp := s.dispatch(r.Context(), &env)

	status := http.StatusOK
	if resp.Error != "" && !resp.Success {
		status = http.StatusUnprocessableEntity
	}

	writeJSON(w, status, resp)
}

// handleBridgeSocket upgrades the browser bridge's connection. Inbound
// frames are ordinary envelopes (mostly tab events); redirect commands are
// pushed outbound as they are issued by the controller.
func (s *Server) handleBridgeSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn().Err(err).Msg("bridge socket upgrade failed")
		return
	}

	logging.Info().Str("remote", r.RemoteAddr).Msg("browser bridge connected")

	cmds := make(chan enforcer.RedirectCommand, 16)
	s.bridge.Subscribe(cmds)

	defer func() {
		s.bridge.Unsubscribe(cmds)
		close(cmds)
		_ = conn.Close()
		logging.Info().Msg("browser bridge disconnected")
	}()

	// writeMu serializes the redirect writer with the reader's acks; the
	// websocket allows only one concurrent writer.
	var writeMu sync.Mutex

	writeFrame := func(v any) error {
		writeMu.Lock()
		defer writeMu.Unlock()

		return conn.WriteJSON(v)
	}

	// Writer: forward redirect commands until the reader exits and
	// closes the channel.
	go func() {
		for cmd := range cmds {
			frame := struct {
				Type string `json:"type"`
				enforcer.RedirectCommand
			}{Type: "redirect", RedirectCommand: cmd}

			if err := writeFrame(frame); err != nil {
				logging.Warn().Err(err).Msg("bridge write failed")
				_ = conn.Close()
				return
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Warn().Err(err).Msg("bridge socket closed unexpectedly")
			}

			return
		}

		env, err := decodeEnvelope(data)
		if err != nil {
			logging.Warn().Err(err).Msg("malformed bridge frame ignored")
			continue
		}

		resp := s.dispatch(r.Context(), env)
		if err := writeFrame(resp); err != nil {
			logging.Warn().Err(err).Msg("bridge ack failed")
			return
		}
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Serve runs the control server until ctx is cancelled. Suitable as a
// supervised service body.
func (s *Server) Serve(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("control server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("control server shutdown: %w", err)
		}

		return ctx.Err()

	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("control server: %w", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("write control response")
	}
}
