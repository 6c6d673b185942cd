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
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// ExtractJSONArray pulls the first JSON array out of model output,
// tolerating markdown fences and prose around it. The returned string
// is the array verbatim, not re-encoded, so downstream instructions
// see exactly what the model wrote.
func ExtractJSONArray(s string) (string, error) {
	return extractJSON(s, '[', ']')
}

// ExtractJSONObject is ExtractJSONArray for a single object.
func ExtractJSONObject(s string) (string, error) {
	return extractJSON(s, '{', '}')
}

func extractJSON(s string, opener, closer byte) (string, error) {
	trimmed := stripFences(s)
	start := strings.IndexByte(trimmed, opener)
	end := strings.LastIndexByte(trimmed, closer)
	if start < 0 || end <= start {
		return "", errors.Errorf("no JSON %c...%c found in output %q", opener, closer, truncate(s, 120))
	}
	candidate := trimmed[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", errors.Errorf("extracted %c...%c is not valid JSON: %q", opener, closer, truncate(candidate, 120))
	}
	return candidate, nil
}

func stripFences(s string) string {
	t := strings.TrimSpace(s)
	if !strings.HasPrefix(t, "```") {
		return t
	}
	t = strings.TrimPrefix(t, "```")
	if i := strings.IndexByte(t, '\n'); i >= 0 {
		t = t[i+1:] // drop the language tag line
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "```")
	return strings.TrimSpace(t)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// ceoDecision is the required shape of the CEO unit's output.
type ceoDecision struct {
	Verdict string `json:"verdict"`
	Status  string `json:"status"`
}

// validateCEODecision checks the extracted object carries non-empty
// "verdict" and "status" and nothing is structurally off. The original
// string stays the state value; this never re-encodes it.
func validateCEODecision(js string) error {
	var d ceoDecision
	if err := json.Unmarshal([]byte(js), &d); err != nil {
		return errors.Wrap(err, "decode CEO decision")
	}
	if d.Verdict == "" {
		return errors.New("CEO decision is missing a verdict")
	}
	if d.Status == "" {
		return errors.New("CEO decision is missing a status")
	}
	return nil
}
