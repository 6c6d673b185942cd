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

package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrNotFound reports that a lookup matched no row.
var ErrNotFound = errors.New("store: not found")

// Signal is one joined product/market-signal row that matched the
// active signal rule.
type Signal struct {
	ProductID      string  `json:"product_id"`
	ProductName    string  `json:"product_name"`
	CostPrice      float64 `json:"cost_price"`
	SellingPrice   float64 `json:"selling_price"`
	CurrentStock   int64   `json:"current_stock"`
	CompetitorName string  `json:"competitor_name"`
	DetectedPrice  float64 `json:"detected_price"`
	DetectedAt     string  `json:"detected_at"`
}

// Stock is the inventory view of a single product.
type Stock struct {
	ProductID    string  `json:"product_id"`
	ProductName  string  `json:"product_name"`
	SellingPrice float64 `json:"selling_price"`
	CurrentStock int64   `json:"current_stock"`
}

// Debate is one persisted council transcript. The columns mirror the
// debate state keys plus the run id.
type Debate struct {
	RunID           string
	UndercutSignals string
	CMOProposal     string
	CFORebuttal     string
	OpsInput        string
	CEODecision     string
}

const findSignalsQuery = `
SELECT p.product_id, p.product_name, p.cost_price, p.selling_price, p.current_stock,
       s.competitor_name, s.detected_price, s.detected_at
FROM market_signals s
JOIN products p ON p.product_id = s.product_id
WHERE s.detected_at >= $1
ORDER BY s.detected_at DESC, s.signal_id DESC`

// FindUndercutSignals returns the signals within the window that match
// the rule. The result is never nil: no matches is an ordinary empty
// list, not an error.
func FindUndercutSignals(ctx context.Context, cap *Capability, rule *SignalRule, window time.Duration) ([]Signal, error) {
	if rule == nil {
		return nil, errors.New("store: nil signal rule")
	}
	cutoff := time.Now().UTC().Add(-window)
	rows, err := cap.Query(ctx, findSignalsQuery, cutoff)
	if err != nil {
		return nil, errors.Wrap(err, "find undercut signals")
	}
	signals := make([]Signal, 0, len(rows))
	for _, row := range rows {
		matched, err := rule.Match(row)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		signals = append(signals, Signal{
			ProductID:      rowString(row, "product_id"),
			ProductName:    rowString(row, "product_name"),
			CostPrice:      rowFloat(row, "cost_price"),
			SellingPrice:   rowFloat(row, "selling_price"),
			CurrentStock:   rowInt(row, "current_stock"),
			CompetitorName: rowString(row, "competitor_name"),
			DetectedPrice:  rowFloat(row, "detected_price"),
			DetectedAt:     rowTime(row, "detected_at"),
		})
	}
	return signals, nil
}

const productStockQuery = `
SELECT product_id, product_name, selling_price, current_stock
FROM products
WHERE product_id = $1`

// GetProductStock returns the inventory view of one product, or
// ErrNotFound when the id is unknown.
func GetProductStock(ctx context.Context, cap *Capability, productID string) (*Stock, error) {
	if productID == "" {
		return nil, errors.New("store: product id is required")
	}
	rows, err := cap.Query(ctx, productStockQuery, productID)
	if err != nil {
		return nil, errors.Wrapf(err, "get stock for %s", productID)
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(ErrNotFound, "product %s", productID)
	}
	row := rows[0]
	return &Stock{
		ProductID:    rowString(row, "product_id"),
		ProductName:  rowString(row, "product_name"),
		SellingPrice: rowFloat(row, "selling_price"),
		CurrentStock: rowInt(row, "current_stock"),
	}, nil
}

const recentSignalsQuery = `
SELECT s.signal_id, s.product_id, s.competitor_name, s.detected_price, s.detected_at
FROM market_signals s
WHERE s.detected_at >= $1
ORDER BY s.detected_at DESC, s.signal_id DESC
LIMIT $2`

// MarketSignal is one raw market observation, unfiltered by any rule.
type MarketSignal struct {
	SignalID       int64   `json:"signal_id"`
	ProductID      string  `json:"product_id"`
	CompetitorName string  `json:"competitor_name"`
	DetectedPrice  float64 `json:"detected_price"`
	DetectedAt     string  `json:"detected_at"`
}

// ListRecentSignals returns up to limit raw signals inside the window.
func ListRecentSignals(ctx context.Context, cap *Capability, window time.Duration, limit int) ([]MarketSignal, error) {
	if limit <= 0 {
		limit = 50
	}
	cutoff := time.Now().UTC().Add(-window)
	rows, err := cap.Query(ctx, recentSignalsQuery, cutoff, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list recent signals")
	}
	signals := make([]MarketSignal, 0, len(rows))
	for _, row := range rows {
		signals = append(signals, MarketSignal{
			SignalID:       rowInt(row, "signal_id"),
			ProductID:      rowString(row, "product_id"),
			CompetitorName: rowString(row, "competitor_name"),
			DetectedPrice:  rowFloat(row, "detected_price"),
			DetectedAt:     rowTime(row, "detected_at"),
		})
	}
	return signals, nil
}

const insertDebateStmt = `
INSERT INTO council_debates (run_id, undercut_signals, cmo_proposal, cfo_rebuttal, ops_input, ceo_decision)
VALUES ($1, $2, $3, $4, $5, $6)`

// LogCouncilDebate persists one debate transcript and settles the
// context receipt, if one is attached, from the real outcome of the
// insert. Callers that need proof of persistence check the receipt,
// not the tool's prose.
func LogCouncilDebate(ctx context.Context, cap *Capability, d Debate) error {
	if d.RunID == "" {
		return settleReceipt(ctx, errors.New("store: debate run id is required"))
	}
	_, err := cap.Mutate(ctx, insertDebateStmt,
		d.RunID, d.UndercutSignals, d.CMOProposal, d.CFORebuttal, d.OpsInput, d.CEODecision)
	if err != nil {
		return settleReceipt(ctx, errors.Wrap(err, "log council debate"))
	}
	return settleReceipt(ctx, nil)
}

func settleReceipt(ctx context.Context, err error) error {
	if r := ReceiptFrom(ctx); r != nil {
		if err != nil {
			r.Fail(err)
		} else {
			r.Ack()
		}
	}
	return err
}

func rowString(row Row, col string) string {
	s, _ := row[col].(string)
	return s
}

func rowFloat(row Row, col string) float64 {
	switch n := row[col].(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	case int:
		return float64(n)
	default:
		return 0
	}
}

func rowInt(row Row, col string) int64 {
	switch n := row[col].(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func rowTime(row Row, col string) string {
	switch t := row[col].(type) {
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case string:
		return t
	default:
		return ""
	}
}
