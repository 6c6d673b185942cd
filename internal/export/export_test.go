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

package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/cloudwego/boardroom/pipeline"
)

func sampleRecord(runID string) *pipeline.Record {
	started := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	return &pipeline.Record{
		RunID:      runID,
		Pipeline:   "executive-decision",
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
		Entries: []pipeline.RecordEntry{
			{Unit: "data-finder", OutputKey: "undercut_signals", Status: pipeline.StatusOK},
		},
	}
}

func TestNDJSONExporter(t *testing.T) {
	var buf bytes.Buffer
	exp := NewNDJSONExporter(&buf)

	if err := exp.Export(context.Background(), sampleRecord("run-1")); err != nil {
		t.Fatalf("export failed: %v", err)
	}
	if err := exp.Export(context.Background(), sampleRecord("run-2")); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	var lines []pipeline.Record
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec pipeline.Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("line is not valid JSON: %v", err)
		}
		lines = append(lines, rec)
	}
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0].RunID != "run-1" || lines[1].RunID != "run-2" {
		t.Fatalf("records out of order: %v, %v", lines[0].RunID, lines[1].RunID)
	}
	if len(lines[0].Entries) != 1 || lines[0].Entries[0].Unit != "data-finder" {
		t.Fatalf("entries lost in export: %+v", lines[0].Entries)
	}
}

func TestObjectKey(t *testing.T) {
	key := objectKey(sampleRecord("run-9"))
	if key != "runs/2026-03-14/run-9.json" {
		t.Fatalf("object key = %q", key)
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{name: "none", cfg: Config{Destination: "none"}, ok: true},
		{name: "empty means none", cfg: Config{}, ok: true},
		{name: "ndjson", cfg: Config{Destination: "ndjson", Path: "runs.ndjson"}, ok: true},
		{name: "ndjson without path", cfg: Config{Destination: "ndjson"}, ok: false},
		{name: "minio", cfg: Config{Destination: "minio", Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b"}, ok: true},
		{name: "minio with scheme", cfg: Config{Destination: "minio", Endpoint: "http://localhost:9000", AccessKey: "a", SecretKey: "s", Bucket: "b"}, ok: false},
		{name: "minio without creds", cfg: Config{Destination: "minio", Endpoint: "localhost:9000", Bucket: "b"}, ok: false},
		{name: "unknown", cfg: Config{Destination: "s3"}, ok: false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.cfg.Validate()
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok && err == nil {
				t.Fatalf("expected an error")
			}
		})
	}
}

func TestNew_SelectsExporter(t *testing.T) {
	exp, err := New(Config{})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	if _, ok := exp.(Noop); !ok {
		t.Fatalf("expected the noop exporter, got %T", exp)
	}

	dir := t.TempDir()
	exp, err = New(Config{Destination: "ndjson", Path: dir + "/runs.ndjson"})
	if err != nil {
		t.Fatalf("new failed: %v", err)
	}
	if _, ok := exp.(*NDJSONExporter); !ok {
		t.Fatalf("expected the ndjson exporter, got %T", exp)
	}
}
