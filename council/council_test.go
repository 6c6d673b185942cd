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

package council

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/cloudwego/boardroom/llm"
	"github.com/cloudwego/boardroom/pipeline"
	"github.com/cloudwego/boardroom/store"
)

// stubGen stands in for a role agent: it records every instruction it
// receives and answers with a canned output or a custom handler.
type stubGen struct {
	output  string
	err     error
	handler func(ctx context.Context, input string) (string, error)

	calls  int
	inputs []string
}

func (g *stubGen) Call(ctx context.Context, input string) (string, error) {
	g.calls++
	g.inputs = append(g.inputs, input)
	if g.handler != nil {
		return g.handler(ctx, input)
	}
	return g.output, g.err
}

func (g *stubGen) lastInput(t *testing.T) string {
	t.Helper()
	if len(g.inputs) == 0 {
		t.Fatalf("generator was never called")
	}
	return g.inputs[len(g.inputs)-1]
}

const p1Signals = `[{"product_id": "P1", "product_name": "Espresso Beans 1kg", "competitor_price": 8.0, "cost_price": 10.0, "current_stock": 120}]`

const ceoJSON = `{"verdict": "Approve a temporary 5% discount on P1 and review in two weeks.", "status": "APPROVED"}`

func defaultStubs() map[string]*stubGen {
	return map[string]*stubGen{
		UnitDataFinder: {output: "```json\n" + p1Signals + "\n```"},
		UnitCMO:        {output: "Cut the P1 price by 5% for two weeks to defend share."},
		UnitCFO:        {output: "A 5% cut keeps P1 above cost; anything deeper burns margin."},
		UnitOps:        {output: "120 units in stock cover a two-week promotion."},
		UnitCEO:        {output: "After weighing all three positions:\n\n" + ceoJSON},
		UnitDebateLogger: {handler: func(ctx context.Context, input string) (string, error) {
			if rec := store.ReceiptFrom(ctx); rec != nil {
				rec.Ack()
			}
			return "logged", nil
		}},
		UnitFinalReporter: {handler: func(ctx context.Context, input string) (string, error) {
			if strings.Contains(input, `"P1"`) {
				return "# Undercut Response Report\n\nDecision: " + ceoJSON + "\n", nil
			}
			return "# Undercut Response Report\n\n## No Undercutting Signals\n\nNo competitor undercutting was detected in the lookback window.\n", nil
		}},
	}
}

func gensOf(stubs map[string]*stubGen) map[string]llm.Generator {
	gens := make(map[string]llm.Generator, len(stubs))
	for name, g := range stubs {
		gens[name] = g
	}
	return gens
}

func buildStubPipeline(t *testing.T, stubs map[string]*stubGen) *pipeline.Pipeline {
	t.Helper()
	reg, err := NewRegistry("")
	if err != nil {
		t.Fatalf("new registry failed: %v", err)
	}
	p, err := buildPipeline(reg, gensOf(stubs))
	if err != nil {
		t.Fatalf("build pipeline failed: %v", err)
	}
	return p
}

func TestCouncilRun_Success(t *testing.T) {
	stubs := defaultStubs()
	var loggerRunID string
	logged := stubs[UnitDebateLogger]
	logged.handler = func(ctx context.Context, input string) (string, error) {
		loggerRunID = store.RunIDFrom(ctx)
		store.ReceiptFrom(ctx).Ack()
		return "logged", nil
	}

	p := buildStubPipeline(t, stubs)
	res, err := p.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if res.Record.Failed() {
		t.Fatalf("record reports failure: %+v", res.Record.Entries)
	}
	if got := res.Record.UnitNames(); !reflect.DeepEqual(got, unitOrder) {
		t.Fatalf("unit order = %v, want %v", got, unitOrder)
	}

	t.Run("verbatim signal propagation", func(t *testing.T) {
		v, ok := res.State.Get(KeyUndercutSignals)
		if !ok {
			t.Fatalf("state has no %s", KeyUndercutSignals)
		}
		if v != p1Signals {
			t.Fatalf("undercut signals mutated:\n got %q\nwant %q", v, p1Signals)
		}
		if in := stubs[UnitCMO].lastInput(t); !strings.Contains(in, p1Signals) {
			t.Fatalf("cmo instruction does not quote the signals: %q", in)
		}
		if in := logged.lastInput(t); !strings.Contains(in, p1Signals) {
			t.Fatalf("logger instruction does not quote the signals: %q", in)
		}
	})

	t.Run("verbatim decision propagation", func(t *testing.T) {
		v, ok := res.State.Get(KeyCEODecision)
		if !ok {
			t.Fatalf("state has no %s", KeyCEODecision)
		}
		if v != ceoJSON {
			t.Fatalf("decision mutated:\n got %q\nwant %q", v, ceoJSON)
		}
		if in := logged.lastInput(t); !strings.Contains(in, ceoJSON) {
			t.Fatalf("logger instruction does not quote the decision: %q", in)
		}
	})

	t.Run("run id reaches the audit write", func(t *testing.T) {
		if loggerRunID == "" || loggerRunID != res.RunID {
			t.Fatalf("logger saw run id %q, run is %q", loggerRunID, res.RunID)
		}
	})

	t.Run("terminal output is the report", func(t *testing.T) {
		out, ok := res.Output.(string)
		if !ok || !strings.Contains(out, "Undercut Response Report") {
			t.Fatalf("unexpected terminal output: %v", res.Output)
		}
	})
}

func TestCouncilRun_NoSignals(t *testing.T) {
	stubs := defaultStubs()
	stubs[UnitDataFinder].output = "[]"

	p := buildStubPipeline(t, stubs)
	res, err := p.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if v, _ := res.State.Get(KeyUndercutSignals); v != "[]" {
		t.Fatalf("undercut signals = %q, want []", v)
	}
	if in := stubs[UnitFinalReporter].lastInput(t); !strings.Contains(in, "[]") {
		t.Fatalf("reporter instruction does not carry the empty list: %q", in)
	}
	out, _ := res.Output.(string)
	if !strings.Contains(out, "No Undercutting Signals") {
		t.Fatalf("report misses the no-signal section: %q", out)
	}
	if stubs[UnitDebateLogger].calls != 1 {
		t.Fatalf("empty signals must still be logged, logger calls = %d", stubs[UnitDebateLogger].calls)
	}
}

func TestCouncilRun_StopsAtFirstFailure(t *testing.T) {
	stubs := defaultStubs()
	stubs[UnitCFO].err = errors.New("model backend unavailable")

	p := buildStubPipeline(t, stubs)
	res, err := p.Execute(context.Background(), nil)
	if err == nil {
		t.Fatalf("execute should fail")
	}
	var uerr *pipeline.UnitError
	if !errors.As(err, &uerr) || uerr.Unit != UnitCFO || uerr.Stage != pipeline.StageInvoke {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, name := range []string{UnitOps, UnitCEO, UnitDebateLogger, UnitFinalReporter} {
		if stubs[name].calls != 0 {
			t.Fatalf("unit %s ran after the failure", name)
		}
	}
	if res.Output != nil {
		t.Fatalf("failed run must have nil output, got %v", res.Output)
	}
	if _, ok := res.State.Get(KeyCMOProposal); !ok {
		t.Fatalf("prior writes must survive the failure")
	}
	if res.State.Has(KeyCFORebuttal) {
		t.Fatalf("failed unit must not write state")
	}
	entries := res.Record.Entries
	if len(entries) != 3 || entries[2].Status != pipeline.StatusFailed || entries[2].Cause != pipeline.CauseExternalCall {
		t.Fatalf("unexpected record entries: %+v", entries)
	}
}

func TestCouncilRun_LoggerDenied(t *testing.T) {
	stubs := defaultStubs()
	stubs[UnitDebateLogger].handler = func(ctx context.Context, input string) (string, error) {
		perr := &store.PermissionError{Mode: store.ReadOnly}
		store.ReceiptFrom(ctx).Fail(perr)
		return "", errors.New("tool log_council_debate failed: " + perr.Error())
	}

	p := buildStubPipeline(t, stubs)
	res, err := p.Execute(context.Background(), nil)
	if err == nil {
		t.Fatalf("execute should fail")
	}
	var uerr *pipeline.UnitError
	if !errors.As(err, &uerr) || uerr.Unit != UnitDebateLogger {
		t.Fatalf("unexpected error: %v", err)
	}
	if !errors.Is(err, store.ErrPermissionDenied) {
		t.Fatalf("permission denial lost in the chain: %v", err)
	}
	if stubs[UnitFinalReporter].calls != 0 {
		t.Fatalf("reporter ran after a failed audit write")
	}
	if res.Output != nil {
		t.Fatalf("failed run must have nil output, got %v", res.Output)
	}
	last := res.Record.Entries[len(res.Record.Entries)-1]
	if last.Unit != UnitDebateLogger || last.Cause != pipeline.CausePermissionDenied {
		t.Fatalf("unexpected failure entry: %+v", last)
	}
}

func TestCouncilRun_LoggerClaimsWithoutWrite(t *testing.T) {
	stubs := defaultStubs()
	stubs[UnitDebateLogger].handler = func(ctx context.Context, input string) (string, error) {
		// the agent answers "logged" but the tool never ran
		return "logged", nil
	}

	p := buildStubPipeline(t, stubs)
	_, err := p.Execute(context.Background(), nil)
	if err == nil || !strings.Contains(err.Error(), "without a persisted audit row") {
		t.Fatalf("unexpected error: %v", err)
	}
	if stubs[UnitFinalReporter].calls != 0 {
		t.Fatalf("reporter ran without a persisted audit row")
	}
}

func TestCouncilRun_BadCEODecision(t *testing.T) {
	cases := []struct {
		name    string
		output  string
		wantErr string
	}{
		{"prose only", "I cannot decide yet.", "no JSON"},
		{"missing status", `{"verdict": "Hold prices."}`, "missing a status"},
		{"missing verdict", `{"status": "approved"}`, "missing a verdict"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			stubs := defaultStubs()
			stubs[UnitCEO].output = c.output

			p := buildStubPipeline(t, stubs)
			_, err := p.Execute(context.Background(), nil)
			if err == nil || !strings.Contains(err.Error(), c.wantErr) {
				t.Fatalf("unexpected error: %v", err)
			}
			var uerr *pipeline.UnitError
			if !errors.As(err, &uerr) || uerr.Unit != UnitCEO {
				t.Fatalf("failure not pinned to the ceo unit: %v", err)
			}
			if stubs[UnitDebateLogger].calls != 0 {
				t.Fatalf("logger ran on an invalid decision")
			}
		})
	}
}

func TestCouncilRun_Idempotent(t *testing.T) {
	stubs := defaultStubs()
	p := buildStubPipeline(t, stubs)

	first, err := p.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	second, err := p.Execute(context.Background(), nil)
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if !reflect.DeepEqual(first.State.Snapshot(), second.State.Snapshot()) {
		t.Fatalf("same inputs produced different states:\n%v\n%v", first.State.Snapshot(), second.State.Snapshot())
	}
	if first.Output != second.Output {
		t.Fatalf("same inputs produced different outputs: %v vs %v", first.Output, second.Output)
	}
}

func TestCouncil_PromptOverride(t *testing.T) {
	t.Run("override text reaches the unit", func(t *testing.T) {
		dir := t.TempDir()
		override := "You are the CMO. Reply with one sentence.\n\nSignals: {undercut_signals}\n"
		if err := os.WriteFile(filepath.Join(dir, "cmo.md"), []byte(override), 0o644); err != nil {
			t.Fatalf("write override: %v", err)
		}
		reg, err := NewRegistry(dir)
		if err != nil {
			t.Fatalf("new registry failed: %v", err)
		}
		stubs := defaultStubs()
		p, err := buildPipeline(reg, gensOf(stubs))
		if err != nil {
			t.Fatalf("build pipeline failed: %v", err)
		}
		if _, err := p.Execute(context.Background(), nil); err != nil {
			t.Fatalf("execute failed: %v", err)
		}
		if in := stubs[UnitCMO].lastInput(t); !strings.Contains(in, "Reply with one sentence.") {
			t.Fatalf("override did not reach the cmo unit: %q", in)
		}
	})

	t.Run("override with unknown key is rejected at build", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "cfo.md"), []byte("Respond to {surprise_key}.\n"), 0o644); err != nil {
			t.Fatalf("write override: %v", err)
		}
		reg, err := NewRegistry(dir)
		if err != nil {
			t.Fatalf("new registry failed: %v", err)
		}
		_, err = buildPipeline(reg, gensOf(defaultStubs()))
		if err == nil || !strings.Contains(err.Error(), "references state key") {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestBuildPipeline_MissingGenerator(t *testing.T) {
	reg, err := NewRegistry("")
	if err != nil {
		t.Fatalf("new registry failed: %v", err)
	}
	gens := gensOf(defaultStubs())
	delete(gens, UnitOps)
	_, err = buildPipeline(reg, gens)
	if err == nil || !strings.Contains(err.Error(), "no generator for unit") {
		t.Fatalf("unexpected error: %v", err)
	}
}
