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
	"errors"
	"fmt"
)

// MissingKeyError reports a template reference to a state key that no
// earlier unit produced and the caller did not seed.
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("state key %q is not set", e.Key)
}

// UnitError is the structured failure returned by Execute: which unit
// failed, at which stage, and the underlying cause. Prior units' state
// writes stay visible in the returned RunResult for diagnostics.
type UnitError struct {
	Unit  string
	Stage Stage
	Err   error
}

func (e *UnitError) Error() string {
	return fmt.Sprintf("unit %q failed at %s stage: %v", e.Unit, e.Stage, e.Err)
}

func (e *UnitError) Unwrap() error {
	return e.Err
}

// Failure cause classes recorded per entry, so observers can tell a
// configuration error from a policy violation or a flaky backend.
const (
	CauseMissingKey       = "missing_key"
	CausePermissionDenied = "permission_denied"
	CauseExternalCall     = "external_call"
)

func causeOf(stage Stage, err error) string {
	var missing *MissingKeyError
	if errors.As(err, &missing) {
		return CauseMissingKey
	}
	if stage == StageRender {
		return CauseMissingKey
	}
	var denied interface{ PermissionDenied() bool }
	if errors.As(err, &denied) && denied.PermissionDenied() {
		return CausePermissionDenied
	}
	return CauseExternalCall
}

func errStr(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
