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
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	abutil "github.com/cloudwego/boardroom/internal/utils"
	"github.com/cloudwego/boardroom/llm/log"
	"github.com/cloudwego/boardroom/store"
	"github.com/cloudwego/eino/components/tool"
	"github.com/cloudwego/eino/components/tool/utils"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

const (
	ToolFindUndercutSignals = "find_undercut_signals"
	DescFindUndercutSignals = "find market signals where a competitor price undercuts a product, joined with the product's cost, price and stock data"
	ToolGetProductStock     = "get_product_stock"
	DescGetProductStock     = "get the current stock level and selling price of a specific product"
	ToolListMarketSignals   = "list_market_signals"
	DescListMarketSignals   = "list the recent raw market signals inside the lookback window, unfiltered"
)

var (
	SchemaFindUndercutSignals = GetJSONSchema(FindUndercutSignalsReq{})
	SchemaGetProductStock     = GetJSONSchema(GetProductStockReq{})
	SchemaListMarketSignals   = GetJSONSchema(ListMarketSignalsReq{})
)

type RetailReadToolsOptions struct {
	Capability *store.Capability
	Rule       *store.SignalRule
	// Window is the default signal lookback, 7 days when unset.
	Window time.Duration
	// RuleFile optionally overrides Rule with a watched expression
	// file, reloaded on write.
	RuleFile string
}

type RetailReadTools struct {
	opts  RetailReadToolsOptions
	rule  atomic.Pointer[store.SignalRule]
	tools map[string]tool.InvokableTool
}

func NewRetailReadTools(opts RetailReadToolsOptions) *RetailReadTools {
	if opts.Capability == nil {
		panic("retail read tools require a store capability")
	}
	if opts.Capability.CanWrite() {
		panic("retail read tools must be bound to a read-only capability")
	}
	if opts.Window == 0 {
		opts.Window = 7 * 24 * time.Hour
	}
	ret := &RetailReadTools{
		opts:  opts,
		tools: map[string]tool.InvokableTool{},
	}

	rule := opts.Rule
	if rule == nil {
		rule = store.MustCompileSignalRule(store.DefaultSignalRule)
	}
	ret.rule.Store(rule)

	// an expression file takes over the static rule and is reloaded on
	// every write (strict: first load error panics)
	if opts.RuleFile != "" {
		if err := ret.loadRuleFile(opts.RuleFile); err != nil {
			panic("load signal rule file failed: " + err.Error())
		}
		abutil.WatchDir(filepath.Dir(opts.RuleFile), func(op fsnotify.Op, file string) {
			if filepath.Clean(file) != filepath.Clean(opts.RuleFile) {
				return
			}
			if op&fsnotify.Write != 0 || op&fsnotify.Create != 0 {
				if err := ret.loadRuleFile(opts.RuleFile); err != nil {
					log.Error("reload signal rule file failed: %v", err)
				} else {
					log.Info("signal rule reloaded: %s", ret.rule.Load().Text())
				}
			}
		})
	}

	tt, err := utils.InferTool(ToolFindUndercutSignals,
		DescFindUndercutSignals,
		ret.FindUndercutSignals, utils.WithMarshalOutput(func(ctx context.Context, output interface{}) (string, error) {
			return abutil.MarshalJSONIndent(output)
		}))
	if err != nil {
		panic(err)
	}
	ret.tools[ToolFindUndercutSignals] = tt

	tt, err = utils.InferTool(ToolGetProductStock,
		DescGetProductStock,
		ret.GetProductStock, utils.WithMarshalOutput(func(ctx context.Context, output interface{}) (string, error) {
			return abutil.MarshalJSONIndent(output)
		}))
	if err != nil {
		panic(err)
	}
	ret.tools[ToolGetProductStock] = tt

	tt, err = utils.InferTool(ToolListMarketSignals,
		DescListMarketSignals,
		ret.ListMarketSignals, utils.WithMarshalOutput(func(ctx context.Context, output interface{}) (string, error) {
			return abutil.MarshalJSONIndent(output)
		}))
	if err != nil {
		panic(err)
	}
	ret.tools[ToolListMarketSignals] = tt

	return ret
}

func (t *RetailReadTools) loadRuleFile(file string) error {
	bs, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, "read rule file %s", file)
	}
	rule, err := store.CompileSignalRule(strings.TrimSpace(string(bs)))
	if err != nil {
		return err
	}
	t.rule.Store(rule)
	return nil
}

func (t *RetailReadTools) GetTools() []Tool {
	ret := make([]Tool, 0, len(t.tools))
	for _, tt := range t.tools {
		ret = append(ret, tt)
	}
	return ret
}

func (t *RetailReadTools) GetTool(name string) Tool {
	return t.tools[name]
}

type FindUndercutSignalsReq struct {
	WindowHours int `json:"window_hours,omitempty" jsonschema:"description=optional lookback window in hours; 0 uses the configured default"`
}

type FindUndercutSignalsResp struct {
	Rule    string         `json:"rule" jsonschema:"description=the filter expression that was applied"`
	Signals []store.Signal `json:"signals" jsonschema:"description=the matching signals; an empty list means no undercutting was found"`
	Error   string         `json:"error,omitempty" jsonschema:"description=the error message"`
}

// FindUndercutSignals runs the active rule over the recent signals.
// Store failures are returned as errors, not in-band: the agent run
// must not continue on a broken read.
func (t *RetailReadTools) FindUndercutSignals(ctx context.Context, req FindUndercutSignalsReq) (*FindUndercutSignalsResp, error) {
	log.Debug("find undercut signals, req: %v", abutil.MarshalJSONIndentNoError(req))
	window := t.opts.Window
	if req.WindowHours > 0 {
		window = time.Duration(req.WindowHours) * time.Hour
	}
	rule := t.rule.Load()
	signals, err := store.FindUndercutSignals(ctx, t.opts.Capability, rule, window)
	if err != nil {
		return nil, err
	}
	resp := &FindUndercutSignalsResp{
		Rule:    rule.Text(),
		Signals: signals,
	}
	log.Debug("find undercut signals, resp: %v", abutil.MarshalJSONIndentNoError(resp))
	return resp, nil
}

type GetProductStockReq struct {
	ProductID string `json:"product_id" jsonschema:"description=the id of the product, like P1"`
}

type GetProductStockResp struct {
	Stock *store.Stock `json:"stock,omitempty" jsonschema:"description=the product inventory view"`
	Error string       `json:"error,omitempty" jsonschema:"description=the error message"`
}

func (t *RetailReadTools) GetProductStock(ctx context.Context, req GetProductStockReq) (*GetProductStockResp, error) {
	log.Debug("get product stock, req: %v", abutil.MarshalJSONIndentNoError(req))
	if req.ProductID == "" {
		return &GetProductStockResp{
			Error: "product_id is required",
		}, nil
	}
	stock, err := store.GetProductStock(ctx, t.opts.Capability, req.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		// bad id is a model input mistake, let it correct itself
		return &GetProductStockResp{
			Error: err.Error(),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	log.Debug("get product stock, resp: %v", abutil.MarshalJSONIndentNoError(stock))
	return &GetProductStockResp{Stock: stock}, nil
}

type ListMarketSignalsReq struct {
	WindowHours int `json:"window_hours,omitempty" jsonschema:"description=optional lookback window in hours; 0 uses the configured default"`
	Limit       int `json:"limit,omitempty" jsonschema:"description=maximum number of signals to return, default 50"`
}

type ListMarketSignalsResp struct {
	Signals []store.MarketSignal `json:"signals" jsonschema:"description=the raw market signals, newest first"`
	Error   string               `json:"error,omitempty" jsonschema:"description=the error message"`
}

func (t *RetailReadTools) ListMarketSignals(ctx context.Context, req ListMarketSignalsReq) (*ListMarketSignalsResp, error) {
	log.Debug("list market signals, req: %v", abutil.MarshalJSONIndentNoError(req))
	window := t.opts.Window
	if req.WindowHours > 0 {
		window = time.Duration(req.WindowHours) * time.Hour
	}
	signals, err := store.ListRecentSignals(ctx, t.opts.Capability, window, req.Limit)
	if err != nil {
		return nil, err
	}
	return &ListMarketSignalsResp{Signals: signals}, nil
}
