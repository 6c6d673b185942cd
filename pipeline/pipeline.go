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

// Package pipeline executes a fixed sequence of reasoning units against
// one shared key-value state. Each unit's instruction is rendered from
// the state, its result is merged back under its output key, and the
// run halts on the first failure with prior writes preserved.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Pipeline holds an ordered, immutable unit sequence. Configured once
// at process start; safe to share across concurrent Execute calls since
// every run owns its own State and Record.
type Pipeline struct {
	name        string
	units       []Unit
	initialKeys []string
}

type Option func(*Pipeline)

// WithInitialKeys declares state keys the caller seeds at Execute time,
// satisfying template references that no unit output covers.
func WithInitialKeys(keys ...string) Option {
	return func(p *Pipeline) {
		p.initialKeys = append(p.initialKeys, keys...)
	}
}

// New validates the unit sequence and its key graph: every template
// reference must be produced by a strictly earlier unit or declared as
// an initial key. A workflow that would hit a missing key on every run
// is a configuration error and is rejected here rather than mid-run.
func New(name string, units []Unit, opts ...Option) (*Pipeline, error) {
	if name == "" {
		return nil, fmt.Errorf("pipeline: name is required")
	}
	if len(units) == 0 {
		return nil, fmt.Errorf("pipeline %s: no units configured", name)
	}
	p := &Pipeline{name: name, units: units}
	for _, opt := range opts {
		opt(p)
	}

	produced := make(map[string]bool, len(units))
	for _, k := range p.initialKeys {
		produced[k] = true
	}
	seen := make(map[string]bool, len(units))
	for i, u := range units {
		if u == nil {
			return nil, fmt.Errorf("pipeline %s: unit %d is nil", name, i)
		}
		if seen[u.Name()] {
			return nil, fmt.Errorf("pipeline %s: duplicate unit name %q", name, u.Name())
		}
		seen[u.Name()] = true
		if u.Instruction() == nil {
			return nil, fmt.Errorf("pipeline %s: unit %q has no instruction template", name, u.Name())
		}
		for _, key := range u.Instruction().Keys() {
			if !produced[key] {
				return nil, fmt.Errorf("pipeline %s: unit %q references state key %q produced by no earlier unit", name, u.Name(), key)
			}
		}
		if out := u.OutputKey(); out != "" {
			produced[out] = true
		}
	}
	return p, nil
}

func (p *Pipeline) Name() string {
	return p.name
}

// UnitNames lists the configured sequence, in order.
func (p *Pipeline) UnitNames() []string {
	names := make([]string, 0, len(p.units))
	for _, u := range p.units {
		names = append(names, u.Name())
	}
	return names
}

// RunResult is what one Execute call produces. On failure Output is nil
// and State holds every write up to the failed unit.
type RunResult struct {
	RunID string
	// State is the final shared state, preserved even on failure so
	// the last successful unit's outputs stay diagnosable.
	State *State
	// Output is the payload of the last executed unit, not a state-key
	// lookup. Nil when the run failed.
	Output any
	Record *Record
}

type runIDKey struct{}

// RunIDFrom returns the id of the run whose Execute call produced this
// context, or "" outside a run. Units use it to tag external writes.
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Execute runs the units strictly in configured order against a fresh
// State seeded from initial. Each unit sees every prior unit's writes
// and none of any later unit's. The first unit failure halts the run:
// no downstream unit is invoked, no state rollback happens, and the
// error is a *UnitError naming the unit, stage, and cause.
func (p *Pipeline) Execute(ctx context.Context, initial map[string]any) (*RunResult, error) {
	st := NewState(initial)
	rec := &Record{
		RunID:     uuid.NewString(),
		Pipeline:  p.name,
		StartedAt: time.Now().UTC(),
	}
	res := &RunResult{RunID: rec.RunID, State: st, Record: rec}
	ctx = context.WithValue(ctx, runIDKey{}, rec.RunID)

	var lastOutput any
	for _, u := range p.units {
		entry := RecordEntry{
			Unit:      u.Name(),
			InputKeys: u.Instruction().Keys(),
			OutputKey: u.OutputKey(),
			StartedAt: time.Now().UTC(),
		}

		instruction, err := u.Instruction().Render(st)
		if err != nil {
			rec.Entries = append(rec.Entries, failEntry(entry, StageRender, err))
			rec.FinishedAt = time.Now().UTC()
			return res, &UnitError{Unit: u.Name(), Stage: StageRender, Err: err}
		}

		out, err := invokeUnit(ctx, u, instruction)
		if err != nil {
			// Cancelled or failed invocation: no partial result is merged.
			rec.Entries = append(rec.Entries, failEntry(entry, StageInvoke, err))
			rec.FinishedAt = time.Now().UTC()
			return res, &UnitError{Unit: u.Name(), Stage: StageInvoke, Err: err}
		}

		if key := u.OutputKey(); key != "" {
			st.set(key, out.Payload)
		}
		lastOutput = out.Payload
		entry.Status = StatusOK
		entry.FinishedAt = time.Now().UTC()
		rec.Entries = append(rec.Entries, entry)
	}

	rec.FinishedAt = time.Now().UTC()
	res.Output = lastOutput
	return res, nil
}

// invokeUnit treats a cancelled or expired context as a unit failure so
// the fail-stop rule applies uniformly.
func invokeUnit(ctx context.Context, u Unit, instruction string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return u.Invoke(ctx, instruction)
}

func failEntry(entry RecordEntry, stage Stage, err error) RecordEntry {
	entry.Status = StatusFailed
	entry.Stage = stage
	entry.Cause = causeOf(stage, err)
	entry.Error = errStr(err)
	entry.FinishedAt = time.Now().UTC()
	return entry
}
