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
	"context"
	"fmt"
)

// Stage identifies which phase of a unit's execution an outcome
// belongs to: rendering its instruction, or invoking it.
type Stage string

const (
	StageRender Stage = "render"
	StageInvoke Stage = "invoke"
)

// Result is a successful unit outcome. Payload is plain text or a
// JSON-marshalable structure; the executor merges it into state under
// the unit's output key. An empty structured payload (for example an
// empty signal list) is a valid result, not a failure.
type Result struct {
	Payload any
}

// Unit is one reasoning step of a pipeline. The instruction template is
// rendered by the executor against the current state; Invoke receives
// only the rendered text. Whatever store capabilities the unit needs
// are bound at construction, never passed through state. The underlying
// reasoning is non-deterministic, so the executor never assumes
// repeatability; tests substitute deterministic stubs implementing this
// same interface.
type Unit interface {
	Name() string
	Instruction() *Template
	// OutputKey names the state key the payload is stored under.
	// Empty means the unit is side-effect only; it still halts the
	// run when it fails.
	OutputKey() string
	Invoke(ctx context.Context, instruction string) (Result, error)
}

type funcUnit struct {
	name      string
	tpl       *Template
	outputKey string
	invoke    func(ctx context.Context, instruction string) (Result, error)
}

// NewUnit builds a Unit from a reasoning function. Panics on missing
// name, template, or function: unit wiring is static process-start
// configuration.
func NewUnit(name string, tpl *Template, outputKey string, invoke func(ctx context.Context, instruction string) (Result, error)) Unit {
	if name == "" {
		panic("pipeline: unit name is required")
	}
	if tpl == nil {
		panic(fmt.Sprintf("pipeline: unit %s has no instruction template", name))
	}
	if invoke == nil {
		panic(fmt.Sprintf("pipeline: unit %s has no invoke function", name))
	}
	return &funcUnit{name: name, tpl: tpl, outputKey: outputKey, invoke: invoke}
}

func (u *funcUnit) Name() string           { return u.name }
func (u *funcUnit) Instruction() *Template { return u.tpl }
func (u *funcUnit) OutputKey() string      { return u.outputKey }

func (u *funcUnit) Invoke(ctx context.Context, instruction string) (Result, error) {
	return u.invoke(ctx, instruction)
}
