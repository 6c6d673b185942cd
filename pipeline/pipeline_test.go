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
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
)

// stubUnit is a deterministic reasoning unit: fixed payload or error,
// recording every instruction it receives.
type stubUnit struct {
	name      string
	tpl       *Template
	outputKey string
	payload   any
	err       error

	calls        int
	instructions []string
}

func (u *stubUnit) Name() string           { return u.name }
func (u *stubUnit) Instruction() *Template { return u.tpl }
func (u *stubUnit) OutputKey() string      { return u.outputKey }

func (u *stubUnit) Invoke(ctx context.Context, instruction string) (Result, error) {
	u.calls++
	u.instructions = append(u.instructions, instruction)
	if u.err != nil {
		return Result{}, u.err
	}
	return Result{Payload: u.payload}, nil
}

type deniedError struct{}

func (deniedError) Error() string          { return "mutation requires write-enabled capability" }
func (deniedError) PermissionDenied() bool { return true }

func TestNew_Validation(t *testing.T) {
	t.Run("no units", func(t *testing.T) {
		if _, err := New("empty", nil); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("duplicate unit name", func(t *testing.T) {
		units := []Unit{
			&stubUnit{name: "a", tpl: MustTemplate("x"), outputKey: "k1"},
			&stubUnit{name: "a", tpl: MustTemplate("y"), outputKey: "k2"},
		}
		if _, err := New("dup", units); err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("reference to key no earlier unit produces", func(t *testing.T) {
		units := []Unit{
			&stubUnit{name: "a", tpl: MustTemplate("needs {k9}"), outputKey: "k1"},
		}
		_, err := New("unbound", units)
		if err == nil {
			t.Fatal("expected error")
		}
	})

	t.Run("reference satisfied by earlier output", func(t *testing.T) {
		units := []Unit{
			&stubUnit{name: "a", tpl: MustTemplate("go"), outputKey: "k1"},
			&stubUnit{name: "b", tpl: MustTemplate("got {k1}"), outputKey: "k2"},
		}
		if _, err := New("ok", units); err != nil {
			t.Fatalf("New: %v", err)
		}
	})

	t.Run("reference satisfied by declared initial key", func(t *testing.T) {
		units := []Unit{
			&stubUnit{name: "a", tpl: MustTemplate("got {seed}"), outputKey: "k1"},
		}
		if _, err := New("seeded", units, WithInitialKeys("seed")); err != nil {
			t.Fatalf("New: %v", err)
		}
	})
}

func TestPipeline_Execute_Order(t *testing.T) {
	a := &stubUnit{name: "a", tpl: MustTemplate("start"), outputKey: "k1", payload: "va"}
	b := &stubUnit{name: "b", tpl: MustTemplate("after {k1}"), outputKey: "k2", payload: "vb"}
	c := &stubUnit{name: "c", tpl: MustTemplate("after {k2}"), outputKey: "k3", payload: "vc"}

	p, err := New("ordered", []Unit{a, b, c})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if got := res.Record.UnitNames(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("order: got %v", got)
	}
	if res.Output != "vc" {
		t.Errorf("terminal output: got %v", res.Output)
	}
	want := map[string]any{"k1": "va", "k2": "vb", "k3": "vc"}
	if !reflect.DeepEqual(res.State.Snapshot(), want) {
		t.Errorf("final state: got %v", res.State.Snapshot())
	}
	if b.instructions[0] != "after va" {
		t.Errorf("b instruction: got %q", b.instructions[0])
	}
	for _, e := range res.Record.Entries {
		if e.Status != StatusOK {
			t.Errorf("entry %s status: got %s", e.Unit, e.Status)
		}
	}
	if res.RunID == "" {
		t.Error("expected a run id")
	}
}

func TestPipeline_Execute_FailStop(t *testing.T) {
	boom := fmt.Errorf("backend unreachable")
	a := &stubUnit{name: "a", tpl: MustTemplate("start"), outputKey: "k1", payload: "va"}
	b := &stubUnit{name: "b", tpl: MustTemplate("after {k1}"), outputKey: "k2", err: boom}
	c := &stubUnit{name: "c", tpl: MustTemplate("never"), outputKey: "k3", payload: "vc"}

	p, err := New("failing", []Unit{a, b, c})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var ue *UnitError
	if !errors.As(err, &ue) {
		t.Fatalf("error type: got %T", err)
	}
	if ue.Unit != "b" || ue.Stage != StageInvoke {
		t.Errorf("unit error: got %s/%s", ue.Unit, ue.Stage)
	}
	if !errors.Is(err, boom) {
		t.Error("cause not reachable via errors.Is")
	}
	if c.calls != 0 {
		t.Errorf("downstream unit invoked %d times", c.calls)
	}
	if res.Output != nil {
		t.Errorf("terminal output on failure: got %v", res.Output)
	}
	// Prior writes stay visible for diagnostics.
	if v, ok := res.State.Get("k1"); !ok || v != "va" {
		t.Errorf("k1: got %v, %v", v, ok)
	}
	if got := res.Record.UnitNames(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("record prefix: got %v", got)
	}
	last := res.Record.Entries[len(res.Record.Entries)-1]
	if last.Status != StatusFailed || last.Stage != StageInvoke || last.Cause != CauseExternalCall {
		t.Errorf("failed entry: %+v", last)
	}
	if !res.Record.Failed() {
		t.Error("record should report failure")
	}
}

func TestPipeline_Execute_MissingKeyHaltsBeforeInvoke(t *testing.T) {
	a := &stubUnit{name: "a", tpl: MustTemplate("needs {seed}"), outputKey: "k1", payload: "va"}
	p, err := New("missing", []Unit{a}, WithInitialKeys("seed"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	// Declared initial key never seeded: rendering must fail.
	res, err := p.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var missing *MissingKeyError
	if !errors.As(err, &missing) || missing.Key != "seed" {
		t.Fatalf("error: got %v", err)
	}
	var ue *UnitError
	if !errors.As(err, &ue) || ue.Stage != StageRender {
		t.Fatalf("stage: got %v", err)
	}
	if a.calls != 0 {
		t.Errorf("unit invoked despite render failure")
	}
	entry := res.Record.Entries[0]
	if entry.Cause != CauseMissingKey {
		t.Errorf("cause: got %s", entry.Cause)
	}
}

func TestPipeline_Execute_SideEffectUnitHaltsOnFailure(t *testing.T) {
	a := &stubUnit{name: "a", tpl: MustTemplate("start"), outputKey: "k1", payload: "va"}
	logger := &stubUnit{name: "logger", tpl: MustTemplate("log {k1}"), err: errors.New("insert failed")}
	reporter := &stubUnit{name: "reporter", tpl: MustTemplate("report {k1}"), outputKey: "", payload: "report"}

	p, err := New("sideeffect", []Unit{a, logger, reporter})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Execute(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if reporter.calls != 0 {
		t.Error("reporter ran after logger failure")
	}
	if res.Output != nil {
		t.Errorf("terminal output: got %v", res.Output)
	}
}

func TestPipeline_Execute_PermissionCause(t *testing.T) {
	a := &stubUnit{name: "a", tpl: MustTemplate("write"), outputKey: "k1", err: deniedError{}}
	p, err := New("denied", []Unit{a})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, _ := p.Execute(context.Background(), nil)
	if got := res.Record.Entries[0].Cause; got != CausePermissionDenied {
		t.Errorf("cause: got %s", got)
	}
}

func TestPipeline_Execute_Idempotence(t *testing.T) {
	build := func() []Unit {
		return []Unit{
			&stubUnit{name: "a", tpl: MustTemplate("start"), outputKey: "k1", payload: "va"},
			&stubUnit{name: "b", tpl: MustTemplate("after {k1}"), outputKey: "k2", payload: []any{}},
		}
	}
	p1, err := New("idem", build())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p2, err := New("idem", build())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r1, err := p1.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	r2, err := p2.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !reflect.DeepEqual(r1.State.Snapshot(), r2.State.Snapshot()) {
		t.Errorf("final states differ: %v vs %v", r1.State.Snapshot(), r2.State.Snapshot())
	}
	if !reflect.DeepEqual(r1.Record.UnitNames(), r2.Record.UnitNames()) {
		t.Errorf("record shapes differ")
	}
	for i := range r1.Record.Entries {
		e1, e2 := r1.Record.Entries[i], r2.Record.Entries[i]
		if e1.Status != e2.Status || e1.OutputKey != e2.OutputKey || !reflect.DeepEqual(e1.InputKeys, e2.InputKeys) {
			t.Errorf("entry %d differs: %+v vs %+v", i, e1, e2)
		}
	}
}

func TestPipeline_Execute_Cancelled(t *testing.T) {
	a := &stubUnit{name: "a", tpl: MustTemplate("start"), outputKey: "k1", payload: "va"}
	p, err := New("cancelled", []Unit{a})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := p.Execute(ctx, nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("cause: got %v", err)
	}
	if a.calls != 0 {
		t.Error("unit invoked after cancellation")
	}
	if res.Record.Entries[0].Status != StatusFailed {
		t.Errorf("entry: %+v", res.Record.Entries[0])
	}
}

func TestPipeline_Execute_LaterUnitMayOverwriteKey(t *testing.T) {
	a := &stubUnit{name: "a", tpl: MustTemplate("start"), outputKey: "k1", payload: "first"}
	b := &stubUnit{name: "b", tpl: MustTemplate("redo {k1}"), outputKey: "k1", payload: "second"}
	p, err := New("overwrite", []Unit{a, b})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	res, err := p.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if v, _ := res.State.Get("k1"); v != "second" {
		t.Errorf("k1: got %v", v)
	}
}

func TestPipeline_Execute_InitialStateSeed(t *testing.T) {
	a := &stubUnit{name: "a", tpl: MustTemplate("got {seed}"), outputKey: "k1", payload: "va"}
	p, err := New("seeded", []Unit{a}, WithInitialKeys("seed"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = p.Execute(context.Background(), map[string]any{"seed": "hello"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if a.instructions[0] != "got hello" {
		t.Errorf("instruction: got %q", a.instructions[0])
	}
}
