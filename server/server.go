// Copyright 2026 ByteDance Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package server exposes the executive-decision workflow over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/cloudwego/boardroom/internal/env"
	"github.com/cloudwego/boardroom/internal/export"
	"github.com/cloudwego/boardroom/llm/log"
	"github.com/cloudwego/boardroom/pipeline"
	"github.com/cloudwego/boardroom/version"
)

const service = "boardroom"

// Runner executes one debate. *council.Council satisfies it.
type Runner interface {
	Run(ctx context.Context, initial map[string]any) (*pipeline.RunResult, error)
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

func ConfigFromEnv() (Config, error) {
	shutdown, err := env.Duration("BOARDROOM_SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	return Config{
		Addr:            env.String("BOARDROOM_HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdown,
	}, nil
}

type Server struct {
	cfg      Config
	runner   Runner
	exporter export.Exporter
}

// New wires the HTTP adapter. A nil exporter drops records.
func New(cfg Config, runner Runner, exporter export.Exporter) *Server {
	if runner == nil {
		panic("server requires a runner")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
	if exporter == nil {
		exporter = export.Noop{}
	}
	return &Server{cfg: cfg, runner: runner, exporter: exporter}
}

// Handler builds the routed and middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleRoot)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("POST /v1/runs", s.handleRun)
	return recoverMiddleware(requestLogMiddleware(requestIDMiddleware(mux)))
}

// Run serves until ctx is cancelled, then drains within the shutdown
// timeout.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service":     service,
		"version":     version.Version,
		"description": "multi-agent executive council for price undercutting decisions",
		"endpoints": map[string]string{
			"health": "GET /health",
			"runs":   "POST /v1/runs",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": service,
	})
}

type runRequest struct {
	InitialState map[string]any `json:"initial_state,omitempty"`
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	var req runRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}

	res, err := s.runner.Run(r.Context(), req.InitialState)
	if res == nil {
		// nothing ran, the workflow could not even be built
		log.Error("run not started: %v", err)
		writeError(w, r, http.StatusInternalServerError, "run_not_started")
		return
	}

	if xerr := s.exporter.Export(r.Context(), res.Record); xerr != nil {
		log.Error("export run %s failed: %v", res.RunID, xerr)
	}

	if err != nil {
		status, body := failureResponse(res, err)
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":          res.RunID,
		"terminal_output": res.Output,
		"final_state":     res.State.Snapshot(),
		"record":          res.Record,
	})
}

// failureResponse maps a failed run to a status code by its recorded
// cause: backend trouble reads as a bad gateway, everything else as an
// internal error.
func failureResponse(res *pipeline.RunResult, err error) (int, map[string]any) {
	body := map[string]any{
		"run_id":      res.RunID,
		"error":       err.Error(),
		"final_state": res.State.Snapshot(),
		"record":      res.Record,
	}
	var uerr *pipeline.UnitError
	if errors.As(err, &uerr) {
		body["unit"] = uerr.Unit
		body["stage"] = uerr.Stage
	}

	status := http.StatusInternalServerError
	if n := len(res.Record.Entries); n > 0 {
		cause := res.Record.Entries[n-1].Cause
		if cause != "" {
			body["cause"] = cause
		}
		if cause == pipeline.CauseExternalCall {
			status = http.StatusBadGateway
		}
	}
	return status, body
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

// decodeJSON tolerates an empty body and rejects unknown fields and
// trailing values.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); err == nil {
		return errors.New("multiple JSON values")
	}
	return nil
}
