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

// Package council assembles the executive-decision workflow: a fixed
// sequence of LLM-backed units that detect price undercutting, debate a
// response, record the debate and report the outcome. Analyst roles hold
// a read-only store capability; only the debate logger holds the
// write-enabled one.
package council

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/cloudwego/boardroom/llm"
	"github.com/cloudwego/boardroom/llm/prompt"
	"github.com/cloudwego/boardroom/llm/tool"
	"github.com/cloudwego/boardroom/pipeline"
	"github.com/cloudwego/boardroom/store"
)

// PipelineName is the workflow name stamped on every run record.
const PipelineName = "executive-decision"

// unitOrder is the debate order. Build constructs the units in this
// sequence and the pipeline validates the key flow between them.
var unitOrder = []string{
	UnitDataFinder,
	UnitCMO,
	UnitCFO,
	UnitOps,
	UnitCEO,
	UnitDebateLogger,
	UnitFinalReporter,
}

type Options struct {
	// Models maps model aliases to constructed chat models.
	Models map[string]llm.ChatModel
	// WithModel picks the alias every role runs on. May be left empty
	// when exactly one model is configured.
	WithModel string
	// MaxSteps caps the react loop of the tool-holding roles, default 20.
	MaxSteps int

	// Store backs the retail tools. Two capabilities are bound to it:
	// read-only for the analyst roles, write-enabled for the debate
	// logger only.
	Store store.Store
	// Rule filters market signals, nil means store.DefaultSignalRule.
	Rule *store.SignalRule
	// RuleFile optionally replaces Rule with a watched expression file.
	RuleFile string
	// Window is the signal lookback handed to the read tools.
	Window time.Duration

	// EnableThinking attaches the sequential-thinking MCP toolset to
	// the CEO role.
	EnableThinking bool
	// PromptDir overrides unit instruction templates with
	// <unit-name>.md files, hot reloaded into the next Build.
	PromptDir string
}

// Council holds the built role agents and the instruction registry.
// Agents are wired once in New; pipelines are cheap and built per run
// so prompt overrides apply without a restart.
type Council struct {
	registry   *Registry
	generators map[string]llm.Generator
}

func New(ctx context.Context, opts Options) (*Council, error) {
	if opts.Store == nil {
		return nil, errors.New("council requires a store")
	}
	alias, err := resolveModelAlias(opts)
	if err != nil {
		return nil, err
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = 20
	}

	registry, err := NewRegistry(opts.PromptDir)
	if err != nil {
		return nil, err
	}

	readTools := tool.NewRetailReadTools(tool.RetailReadToolsOptions{
		Capability: store.Bind(opts.Store, store.ReadOnly),
		Rule:       opts.Rule,
		RuleFile:   opts.RuleFile,
		Window:     opts.Window,
	})
	writeTools := tool.NewRetailWriteTools(tool.RetailWriteToolsOptions{
		Capability: store.Bind(opts.Store, store.WriteEnabled),
	})

	tools := map[string]tool.Tool{
		tool.ToolFindUndercutSignals: readTools.GetTool(tool.ToolFindUndercutSignals),
		tool.ToolGetProductStock:     readTools.GetTool(tool.ToolGetProductStock),
		tool.ToolListMarketSignals:   readTools.GetTool(tool.ToolListMarketSignals),
		tool.ToolLogCouncilDebate:    writeTools.GetTool(tool.ToolLogCouncilDebate),
	}

	sysPrompt := prompt.NewTextPrompt(prompt.PromptCouncilSystem)
	ceoPrompt := sysPrompt
	var ceoTools []string
	if opts.EnableThinking {
		seqTools, err := tool.GetSequentialThinkingTools(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "attach sequential thinking tools")
		}
		for _, t := range seqTools {
			info, err := t.Info(ctx)
			if err != nil {
				return nil, errors.Wrap(err, "sequential thinking tool info")
			}
			tools[info.Name] = t
			ceoTools = append(ceoTools, info.Name)
		}
		ceoPrompt = prompt.NewTextPrompt(prompt.PromptCouncilSystem + "\n\n" + prompt.DeliberateThinkingAppendix)
	}

	makeRole := func(unit string, sys prompt.Prompt, withTools []string) llm.Generator {
		return llm.MakeAgent(unit, sys, opts.Models, tools, llm.AgentConfig{
			WithModel: alias,
			WithTools: withTools,
			MaxSteps:  opts.MaxSteps,
		})
	}

	generators := map[string]llm.Generator{
		UnitDataFinder: makeRole(UnitDataFinder, sysPrompt, []string{
			tool.ToolFindUndercutSignals,
			tool.ToolGetProductStock,
			tool.ToolListMarketSignals,
		}),
		UnitCMO:           makeRole(UnitCMO, sysPrompt, nil),
		UnitCFO:           makeRole(UnitCFO, sysPrompt, nil),
		UnitOps:           makeRole(UnitOps, sysPrompt, []string{tool.ToolGetProductStock}),
		UnitCEO:           makeRole(UnitCEO, ceoPrompt, ceoTools),
		UnitDebateLogger:  makeRole(UnitDebateLogger, sysPrompt, []string{tool.ToolLogCouncilDebate}),
		UnitFinalReporter: makeRole(UnitFinalReporter, sysPrompt, nil),
	}

	return &Council{
		registry:   registry,
		generators: generators,
	}, nil
}

func resolveModelAlias(opts Options) (string, error) {
	if len(opts.Models) == 0 {
		return "", errors.New("council requires at least one model")
	}
	if opts.WithModel != "" {
		if _, ok := opts.Models[opts.WithModel]; !ok {
			return "", errors.Errorf("model %q is not configured", opts.WithModel)
		}
		return opts.WithModel, nil
	}
	if len(opts.Models) > 1 {
		return "", errors.New("multiple models configured, pick one with WithModel")
	}
	for alias := range opts.Models {
		return alias, nil
	}
	return "", nil // unreachable
}

// Build assembles a fresh pipeline from the current instruction texts.
func (c *Council) Build() (*pipeline.Pipeline, error) {
	return buildPipeline(c.registry, c.generators)
}

// Run builds and executes one debate. The initial state may be nil.
func (c *Council) Run(ctx context.Context, initial map[string]any) (*pipeline.RunResult, error) {
	p, err := c.Build()
	if err != nil {
		return nil, err
	}
	return p.Execute(ctx, initial)
}

// NewWorkflow assembles a council and returns its pipeline in one step,
// for callers that drive pipeline.Execute themselves.
func NewWorkflow(ctx context.Context, opts Options) (*pipeline.Pipeline, error) {
	c, err := New(ctx, opts)
	if err != nil {
		return nil, err
	}
	return c.Build()
}

func buildPipeline(reg *Registry, gens map[string]llm.Generator) (*pipeline.Pipeline, error) {
	units := make([]pipeline.Unit, 0, len(unitOrder))
	for _, name := range unitOrder {
		gen, ok := gens[name]
		if !ok {
			return nil, errors.Errorf("no generator for unit %s", name)
		}
		u, err := buildUnit(name, gen, reg.Text(name))
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return pipeline.New(PipelineName, units)
}

func buildUnit(name string, gen llm.Generator, text string) (pipeline.Unit, error) {
	switch name {
	case UnitDataFinder:
		return newDataFinderUnit(gen, text)
	case UnitCMO:
		return newCMOUnit(gen, text)
	case UnitCFO:
		return newCFOUnit(gen, text)
	case UnitOps:
		return newOpsUnit(gen, text)
	case UnitCEO:
		return newCEOUnit(gen, text)
	case UnitDebateLogger:
		return newDebateLoggerUnit(gen, text)
	case UnitFinalReporter:
		return newFinalReporterUnit(gen, text)
	default:
		return nil, errors.Errorf("unknown unit %s", name)
	}
}
