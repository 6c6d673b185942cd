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
	"fmt"
	"regexp"
	"strings"
)

// keyRefPattern matches {key} references. Only identifier-shaped keys
// count, so JSON examples embedded in an instruction are left alone.
var keyRefPattern = regexp.MustCompile(`\{([a-z][a-z0-9_]*)\}`)

// Template is one unit's instruction text with {key} references bound
// to the run state. Required keys are enumerated at construction, so a
// workflow wired against keys no unit produces fails at process start,
// not mid-run.
type Template struct {
	text string
	keys []string
}

// ParseTemplate validates text and enumerates its key references, in
// first-appearance order and deduplicated.
func ParseTemplate(text string) (*Template, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("pipeline: empty instruction template")
	}
	seen := make(map[string]bool)
	var keys []string
	for _, m := range keyRefPattern.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			keys = append(keys, m[1])
		}
	}
	return &Template{text: text, keys: keys}, nil
}

// MustTemplate is ParseTemplate for statically known instruction text.
func MustTemplate(text string) *Template {
	t, err := ParseTemplate(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Keys returns the state keys this template consumes.
func (t *Template) Keys() []string {
	return append([]string(nil), t.keys...)
}

func (t *Template) Text() string {
	return t.text
}

// Render substitutes every key reference with the value's textual form.
// It fails with *MissingKeyError when a referenced key is unset, never
// a silent placeholder. Substitution is a single pass over the original
// text: values containing brace references are not re-substituted.
func (t *Template) Render(st *State) (string, error) {
	if len(t.keys) == 0 {
		return t.text, nil
	}
	if st == nil {
		return "", &MissingKeyError{Key: t.keys[0]}
	}
	pairs := make([]string, 0, len(t.keys)*2)
	for _, key := range t.keys {
		v, ok := st.Get(key)
		if !ok {
			return "", &MissingKeyError{Key: key}
		}
		s, err := renderValue(v)
		if err != nil {
			return "", fmt.Errorf("render state key %q: %w", key, err)
		}
		pairs = append(pairs, "{"+key+"}", s)
	}
	return strings.NewReplacer(pairs...).Replace(t.text), nil
}
