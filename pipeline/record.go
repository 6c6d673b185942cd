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

package pipeline

import (
	"time"
)

// Status is the outcome of one unit execution.
type Status string

const (
	StatusOK     Status = "ok"
	StatusFailed Status = "failed"
)

// RecordEntry is an immutable log entry for one unit execution: which
// keys it consumed, which key it produced, and how it ended. Stage and
// Cause are set only on failure.
type RecordEntry struct {
	Unit       string    `json:"unit"`
	InputKeys  []string  `json:"input_keys,omitempty"`
	OutputKey  string    `json:"output_key,omitempty"`
	Status     Status    `json:"status"`
	Stage      Stage     `json:"stage,omitempty"`
	Cause      string    `json:"cause,omitempty"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Record is the execution record of one run. The executor creates it at
// run start and appends one entry per unit; units never touch it. It is
// returned to the caller and optionally exported at run end.
type Record struct {
	RunID      string        `json:"run_id"`
	Pipeline   string        `json:"pipeline"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Entries    []RecordEntry `json:"entries"`
}

// Failed reports whether any entry failed.
func (r *Record) Failed() bool {
	for _, e := range r.Entries {
		if e.Status == StatusFailed {
			return true
		}
	}
	return false
}

// UnitNames lists the units that were actually executed, in order.
func (r *Record) UnitNames() []string {
	names := make([]string, 0, len(r.Entries))
	for _, e := range r.Entries {
		names = append(names, e.Unit)
	}
	return names
}
