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
	"encoding/json"
	"sort"

	"github.com/cloudwego/boardroom/internal/utils"
)

// State carries accumulated unit outputs through one run. Values are
// plain strings or JSON-marshalable structures. One run owns its State
// exclusively; units never hold a reference. The executor renders
// instructions from it and merges each unit's output back in, so a unit
// can only observe keys written strictly before it ran.
type State struct {
	values map[string]any
}

// NewState copies initial into a fresh State. A nil map seeds an empty
// run, the common case: units rely only on earlier units' outputs or on
// external lookups.
func NewState(initial map[string]any) *State {
	values := make(map[string]any, len(initial))
	for k, v := range initial {
		values[k] = v
	}
	return &State{values: values}
}

func (s *State) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

func (s *State) Has(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Keys returns all set keys in sorted order.
func (s *State) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Snapshot returns a shallow copy of the state mapping, for the run
// result and for export. Mutating the copy does not affect the run.
func (s *State) Snapshot() map[string]any {
	out := make(map[string]any, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}

// set merges one unit write. Executor-only: keys may be overwritten by
// later units but are never deleted mid-run.
func (s *State) set(key string, v any) {
	s.values[key] = v
}

// renderValue produces the textual form substituted into instructions:
// strings pass through as-is, everything else becomes compact JSON, so
// an empty result set renders as [] rather than erroring downstream.
func renderValue(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "null", nil
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case json.RawMessage:
		return string(x), nil
	}
	b, err := utils.MarshalJSONBytes(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
