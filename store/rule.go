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
	"strings"

	"github.com/Knetic/govaluate"
	"github.com/pkg/errors"
)

// DefaultSignalRule flags a competitor price below our own cost.
const DefaultSignalRule = "detected_price < cost_price"

// SignalRule is a compiled filter evaluated per joined product/signal
// row. Operators tune the expression through configuration; the
// available variables are the row's column names (cost_price,
// detected_price, current_stock, ...).
type SignalRule struct {
	text string
	expr *govaluate.EvaluableExpression
}

// CompileSignalRule parses the expression once. An empty expression
// compiles to the default rule.
func CompileSignalRule(text string) (*SignalRule, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultSignalRule
	}
	expr, err := govaluate.NewEvaluableExpression(text)
	if err != nil {
		return nil, errors.Wrapf(err, "compile signal rule %q", text)
	}
	return &SignalRule{text: text, expr: expr}, nil
}

// MustCompileSignalRule is CompileSignalRule for static expressions.
func MustCompileSignalRule(text string) *SignalRule {
	rule, err := CompileSignalRule(text)
	if err != nil {
		panic(err)
	}
	return rule
}

// Text returns the expression source.
func (r *SignalRule) Text() string { return r.text }

// Match evaluates the rule against one row. Integer column values are
// widened to float64 first, which is the only numeric type the
// expression engine compares.
func (r *SignalRule) Match(row Row) (bool, error) {
	params := make(map[string]interface{}, len(row))
	for k, v := range row {
		params[k] = widenNumber(v)
	}
	out, err := r.expr.Evaluate(params)
	if err != nil {
		return false, errors.Wrapf(err, "evaluate signal rule %q", r.text)
	}
	matched, ok := out.(bool)
	if !ok {
		return false, errors.Errorf("signal rule %q is not a boolean expression", r.text)
	}
	return matched, nil
}

func widenNumber(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}
