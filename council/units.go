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
	"strings"

	"github.com/pkg/errors"

	"github.com/cloudwego/boardroom/llm"
	"github.com/cloudwego/boardroom/pipeline"
	"github.com/cloudwego/boardroom/store"
)

// Unit names, in debate order.
const (
	UnitDataFinder    = "data-finder"
	UnitCMO           = "cmo"
	UnitCFO           = "cfo"
	UnitOps           = "ops"
	UnitCEO           = "ceo"
	UnitDebateLogger  = "debate-logger"
	UnitFinalReporter = "final-reporter"
)

// State keys written by the units.
const (
	KeyUndercutSignals = "undercut_signals"
	KeyCMOProposal     = "cmo_proposal"
	KeyCFORebuttal     = "cfo_rebuttal"
	KeyOpsInput        = "ops_input"
	KeyCEODecision     = "ceo_decision_json"
)

func parseUnitTemplate(unit, text string) (*pipeline.Template, error) {
	tpl, err := pipeline.ParseTemplate(text)
	if err != nil {
		return nil, errors.Wrapf(err, "instruction template of unit %s", unit)
	}
	return tpl, nil
}

// newDataFinderUnit writes the undercut signal list. The payload is
// the JSON array exactly as the model wrote it, extracted from any
// fences, so later instructions quote it verbatim.
func newDataFinderUnit(gen llm.Generator, text string) (pipeline.Unit, error) {
	tpl, err := parseUnitTemplate(UnitDataFinder, text)
	if err != nil {
		return nil, err
	}
	return pipeline.NewUnit(UnitDataFinder, tpl, KeyUndercutSignals, func(ctx context.Context, instruction string) (pipeline.Result, error) {
		out, err := gen.Call(ctx, instruction)
		if err != nil {
			return pipeline.Result{}, err
		}
		js, err := ExtractJSONArray(out)
		if err != nil {
			return pipeline.Result{}, err
		}
		return pipeline.Result{Payload: js}, nil
	}), nil
}

func newTextUnit(name, outputKey string, gen llm.Generator, text string) (pipeline.Unit, error) {
	tpl, err := parseUnitTemplate(name, text)
	if err != nil {
		return nil, err
	}
	return pipeline.NewUnit(name, tpl, outputKey, func(ctx context.Context, instruction string) (pipeline.Result, error) {
		out, err := gen.Call(ctx, instruction)
		if err != nil {
			return pipeline.Result{}, err
		}
		out = strings.TrimSpace(out)
		if out == "" {
			return pipeline.Result{}, errors.Errorf("unit %s produced no output", name)
		}
		return pipeline.Result{Payload: out}, nil
	}), nil
}

func newCMOUnit(gen llm.Generator, text string) (pipeline.Unit, error) {
	return newTextUnit(UnitCMO, KeyCMOProposal, gen, text)
}

func newCFOUnit(gen llm.Generator, text string) (pipeline.Unit, error) {
	return newTextUnit(UnitCFO, KeyCFORebuttal, gen, text)
}

func newOpsUnit(gen llm.Generator, text string) (pipeline.Unit, error) {
	return newTextUnit(UnitOps, KeyOpsInput, gen, text)
}

// newCEOUnit writes the decision JSON. The object must carry "verdict"
// and "status"; the state value is the extracted string, never a
// re-encoding, so key order and spacing survive to the audit row.
func newCEOUnit(gen llm.Generator, text string) (pipeline.Unit, error) {
	tpl, err := parseUnitTemplate(UnitCEO, text)
	if err != nil {
		return nil, err
	}
	return pipeline.NewUnit(UnitCEO, tpl, KeyCEODecision, func(ctx context.Context, instruction string) (pipeline.Result, error) {
		out, err := gen.Call(ctx, instruction)
		if err != nil {
			return pipeline.Result{}, err
		}
		js, err := ExtractJSONObject(out)
		if err != nil {
			return pipeline.Result{}, err
		}
		if err := validateCEODecision(js); err != nil {
			return pipeline.Result{}, err
		}
		return pipeline.Result{Payload: js}, nil
	}), nil
}

// newDebateLoggerUnit has no output key; it exists to persist the
// audit row. Success is judged by the store's write receipt, not by
// the model's answer: an unacknowledged or failed write fails the unit
// and halts the run before the reporter.
func newDebateLoggerUnit(gen llm.Generator, text string) (pipeline.Unit, error) {
	tpl, err := parseUnitTemplate(UnitDebateLogger, text)
	if err != nil {
		return nil, err
	}
	return pipeline.NewUnit(UnitDebateLogger, tpl, "", func(ctx context.Context, instruction string) (pipeline.Result, error) {
		ctx = store.WithRunID(ctx, pipeline.RunIDFrom(ctx))
		ctx, receipt := store.WithReceipt(ctx)

		out, err := gen.Call(ctx, instruction)
		if rerr := receipt.Err(); rerr != nil {
			// the store's own error outranks whatever the agent said
			return pipeline.Result{}, rerr
		}
		if err != nil {
			return pipeline.Result{}, err
		}
		if !receipt.Acked() {
			return pipeline.Result{}, errors.New("debate logger finished without a persisted audit row")
		}
		return pipeline.Result{Payload: strings.TrimSpace(out)}, nil
	}), nil
}

// newFinalReporterUnit produces the terminal report; its payload is
// the run's terminal output.
func newFinalReporterUnit(gen llm.Generator, text string) (pipeline.Unit, error) {
	return newTextUnit(UnitFinalReporter, "", gen, text)
}
