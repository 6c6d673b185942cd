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

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/boardroom/pipeline"
)

type fakeRunner struct {
	res        *pipeline.RunResult
	err        error
	gotInitial map[string]any
	calls      int
}

func (f *fakeRunner) Run(ctx context.Context, initial map[string]any) (*pipeline.RunResult, error) {
	f.calls++
	f.gotInitial = initial
	return f.res, f.err
}

type fakeExporter struct {
	records []*pipeline.Record
	err     error
}

func (f *fakeExporter) Export(ctx context.Context, rec *pipeline.Record) error {
	f.records = append(f.records, rec)
	return f.err
}

func successResult(runID string) *pipeline.RunResult {
	return &pipeline.RunResult{
		RunID:  runID,
		State:  pipeline.NewState(map[string]any{"ceo_decision_json": `{"verdict": "hold", "status": "rejected"}`}),
		Output: "# Undercut Response Report\n",
		Record: &pipeline.Record{
			RunID:    runID,
			Pipeline: "executive-decision",
			Entries: []pipeline.RecordEntry{
				{Unit: "data-finder", OutputKey: "undercut_signals", Status: pipeline.StatusOK},
			},
		},
	}
}

func failedResult(runID, unit, cause string) (*pipeline.RunResult, error) {
	res := &pipeline.RunResult{
		RunID: runID,
		State: pipeline.NewState(nil),
		Record: &pipeline.Record{
			RunID:    runID,
			Pipeline: "executive-decision",
			Entries: []pipeline.RecordEntry{
				{Unit: "data-finder", Status: pipeline.StatusOK},
				{Unit: unit, Status: pipeline.StatusFailed, Stage: pipeline.StageInvoke, Cause: cause, Error: "boom"},
			},
		},
	}
	return res, &pipeline.UnitError{Unit: unit, Stage: pipeline.StageInvoke, Err: errors.New("boom")}
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "http://example.test"+path, nil)
	} else {
		req = httptest.NewRequest(method, "http://example.test"+path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %v\n%s", err, rec.Body.String())
		}
	}
	return rec, decoded
}

func TestHealth(t *testing.T) {
	h := New(Config{}, &fakeRunner{res: successResult("r")}, nil).Handler()
	rec, body := doRequest(t, h, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if body["status"] != "healthy" || body["service"] != "boardroom" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestRoot(t *testing.T) {
	h := New(Config{}, &fakeRunner{res: successResult("r")}, nil).Handler()
	rec, body := doRequest(t, h, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if body["service"] != "boardroom" {
		t.Fatalf("unexpected root body: %v", body)
	}
	if _, ok := body["endpoints"]; !ok {
		t.Fatalf("root body misses endpoints: %v", body)
	}

	rec, _ = doRequest(t, h, http.MethodGet, "/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status=%d, want 404", rec.Code)
	}
}

func TestRunEndpoint_Success(t *testing.T) {
	runner := &fakeRunner{res: successResult("run-1")}
	exporter := &fakeExporter{}
	h := New(Config{}, runner, exporter).Handler()

	rec, body := doRequest(t, h, http.MethodPost, "/v1/runs", `{"initial_state": {"region": "EU"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200\n%s", rec.Code, rec.Body.String())
	}
	if body["run_id"] != "run-1" {
		t.Fatalf("run_id=%v", body["run_id"])
	}
	if out, _ := body["terminal_output"].(string); !strings.Contains(out, "Undercut Response Report") {
		t.Fatalf("terminal_output=%v", body["terminal_output"])
	}
	state, _ := body["final_state"].(map[string]any)
	if state["ceo_decision_json"] == nil {
		t.Fatalf("final_state misses the decision: %v", state)
	}
	if body["record"] == nil {
		t.Fatalf("record missing from response")
	}
	if runner.gotInitial["region"] != "EU" {
		t.Fatalf("initial state not forwarded: %v", runner.gotInitial)
	}
	if len(exporter.records) != 1 || exporter.records[0].RunID != "run-1" {
		t.Fatalf("record not exported: %+v", exporter.records)
	}
}

func TestRunEndpoint_EmptyBody(t *testing.T) {
	runner := &fakeRunner{res: successResult("run-1")}
	h := New(Config{}, runner, nil).Handler()

	rec, _ := doRequest(t, h, http.MethodPost, "/v1/runs", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200", rec.Code)
	}
	if runner.gotInitial != nil {
		t.Fatalf("empty body must mean no initial state, got %v", runner.gotInitial)
	}
}

func TestRunEndpoint_BadRequest(t *testing.T) {
	runner := &fakeRunner{res: successResult("run-1")}
	h := New(Config{}, runner, nil).Handler()

	cases := []struct {
		name string
		body string
	}{
		{"broken json", `{"initial_state":`},
		{"unknown field", `{"bogus": 1}`},
		{"trailing value", `{"initial_state": {}} {}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			rec, body := doRequest(t, h, http.MethodPost, "/v1/runs", c.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status=%d, want 400", rec.Code)
			}
			if body["error"] != "invalid_json" {
				t.Fatalf("unexpected error body: %v", body)
			}
		})
	}
	if runner.calls != 0 {
		t.Fatalf("runner ran on invalid input")
	}
}

func TestRunEndpoint_Failure(t *testing.T) {
	t.Run("backend failure is a bad gateway", func(t *testing.T) {
		res, err := failedResult("run-2", "cfo", pipeline.CauseExternalCall)
		exporter := &fakeExporter{}
		h := New(Config{}, &fakeRunner{res: res, err: err}, exporter).Handler()

		rec, body := doRequest(t, h, http.MethodPost, "/v1/runs", "")
		if rec.Code != http.StatusBadGateway {
			t.Fatalf("status=%d, want 502", rec.Code)
		}
		if body["unit"] != "cfo" || body["stage"] != string(pipeline.StageInvoke) {
			t.Fatalf("failure not located: %v", body)
		}
		if body["cause"] != pipeline.CauseExternalCall {
			t.Fatalf("cause=%v", body["cause"])
		}
		if body["record"] == nil || body["final_state"] == nil {
			t.Fatalf("diagnostics missing: %v", body)
		}
		if len(exporter.records) != 1 {
			t.Fatalf("failed runs must still export their record")
		}
	})

	t.Run("policy violation is an internal error", func(t *testing.T) {
		res, err := failedResult("run-3", "debate-logger", pipeline.CausePermissionDenied)
		h := New(Config{}, &fakeRunner{res: res, err: err}, nil).Handler()

		rec, body := doRequest(t, h, http.MethodPost, "/v1/runs", "")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status=%d, want 500", rec.Code)
		}
		if body["cause"] != pipeline.CausePermissionDenied {
			t.Fatalf("cause=%v", body["cause"])
		}
	})

	t.Run("run not started", func(t *testing.T) {
		h := New(Config{}, &fakeRunner{err: errors.New("no generator for unit cmo")}, nil).Handler()
		rec, body := doRequest(t, h, http.MethodPost, "/v1/runs", "")
		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("status=%d, want 500", rec.Code)
		}
		if body["error"] != "run_not_started" {
			t.Fatalf("unexpected body: %v", body)
		}
	})
}

func TestRequestID(t *testing.T) {
	h := New(Config{}, &fakeRunner{res: successResult("r")}, nil).Handler()

	rec, _ := doRequest(t, h, http.MethodGet, "/health", "")
	if rec.Header().Get("X-Request-Id") == "" {
		t.Fatalf("expected an assigned X-Request-Id header")
	}

	req := httptest.NewRequest(http.MethodGet, "http://example.test/health", nil)
	req.Header.Set("X-Request-Id", "rid-123")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if got := rr.Header().Get("X-Request-Id"); got != "rid-123" {
		t.Fatalf("X-Request-Id=%q, want rid-123", got)
	}
}

func TestRecoverMiddleware(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/boom", func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	h := recoverMiddleware(requestLogMiddleware(requestIDMiddleware(mux)))

	rec, body := doRequest(t, h, http.MethodGet, "/boom", "")
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d, want 500", rec.Code)
	}
	if body["error"] != "internal_server_error" {
		t.Fatalf("unexpected body: %v", body)
	}
}
