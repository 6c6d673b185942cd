/**
 * Copyright 2026 ByteDance Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     https://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package tool

import (
	"context"

	abutil "github.com/cloudwego/boardroom/internal/utils"
	"github.com/cloudwego/boardroom/llm/log"
	"github.com/cloudwego/boardroom/store"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
)

const (
	ToolLogCouncilDebate = "log_council_debate"
	DescLogCouncilDebate = "insert one council debate transcript row into the audit table"
)

var SchemaLogCouncilDebate = GetJSONSchema(LogCouncilDebateReq{})

type RetailWriteToolsOptions struct {
	// Capability is NOT required to be write-enabled: binding a
	// read-only capability here is how the permission gate is proven
	// live, the denial surfaces at call time.
	Capability *store.Capability
}

type RetailWriteTools struct {
	opts  RetailWriteToolsOptions
	tools map[string]tool.InvokableTool
}

func NewRetailWriteTools(opts RetailWriteToolsOptions) *RetailWriteTools {
	if opts.Capability == nil {
		panic("retail write tools require a store capability")
	}
	ret := &RetailWriteTools{
		opts:  opts,
		tools: map[string]tool.InvokableTool{},
	}

	tt, err := utils.InferTool(ToolLogCouncilDebate,
		DescLogCouncilDebate,
		ret.LogCouncilDebate, utils.WithMarshalOutput(func(ctx context.Context, output interface{}) (string, error) {
			return abutil.MarshalJSONIndent(output)
		}))
	if err != nil {
		panic(err)
	}
	ret.tools[ToolLogCouncilDebate] = tt

	return ret
}

func (t *RetailWriteTools) GetTools() []Tool {
	ret := make([]Tool, 0, len(t.tools))
	for _, tt := range t.tools {
		ret = append(ret, tt)
	}
	return ret
}

func (t *RetailWriteTools) GetTool(name string) Tool {
	return t.tools[name]
}

type LogCouncilDebateReq struct {
	UndercutSignals string `json:"undercut_signals" jsonschema:"description=the undercut signals JSON from the briefing"`
	CMOProposal     string `json:"cmo_proposal" jsonschema:"description=the marketing proposal text"`
	CFORebuttal     string `json:"cfo_rebuttal" jsonschema:"description=the finance rebuttal text"`
	OpsInput        string `json:"ops_input" jsonschema:"description=the operations feasibility text"`
	CEODecision     string `json:"ceo_decision" jsonschema:"description=the CEO decision JSON"`
}

type LogCouncilDebateResp struct {
	Logged bool   `json:"logged" jsonschema:"description=true when the row was persisted"`
	RunID  string `json:"run_id" jsonschema:"description=the run id the row was recorded under"`
}

// LogCouncilDebate persists the transcript under the run id carried by
// the context, never one the model invents. Any insert failure,
// including a permission denial, is returned as an error: a lost audit
// row must end the agent run, not read as advice.
func (t *RetailWriteTools) LogCouncilDebate(ctx context.Context, req LogCouncilDebateReq) (*LogCouncilDebateResp, error) {
	log.Debug("log council debate, req: %v", abutil.MarshalJSONIndentNoError(req))
	runID := store.RunIDFrom(ctx)
	err := store.LogCouncilDebate(ctx, t.opts.Capability, store.Debate{
		RunID:           runID,
		UndercutSignals: req.UndercutSignals,
		CMOProposal:     req.CMOProposal,
		CFORebuttal:     req.CFORebuttal,
		OpsInput:        req.OpsInput,
		CEODecision:     req.CEODecision,
	})
	if err != nil {
		return nil, err
	}
	return &LogCouncilDebateResp{Logged: true, RunID: runID}, nil
}
