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

// Package store wraps the external tabular store behind a two-mode
// capability boundary: read-only capabilities can only query, and the
// mutation gate lives on the capability object itself, not in caller
// convention. This is the one safety boundary between an LLM-driven
// unit and an unintended write.
package store

import (
	"context"
	"fmt"
)

// Row is one result row keyed by column name.
type Row = map[string]any

// Store is the backing tabular store. Query must be free of side
// effects: implementations enforce that (the Postgres store runs every
// query inside a read-only transaction), so not even adversarial
// statement text can mutate through the read path.
type Store interface {
	Query(ctx context.Context, query string, args ...any) ([]Row, error)
	Mutate(ctx context.Context, stmt string, args ...any) (int64, error)
	Close() error
}

// PermissionError reports a mutation attempted through a read-only
// capability. It is always fatal to the calling unit.
type PermissionError struct {
	Mode Mode
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("store: mutation requires a write-enabled capability, bound mode is %q", e.Mode)
}

// PermissionDenied marks the error for cause classification without
// importing this package.
func (e *PermissionError) PermissionDenied() bool { return true }

func (e *PermissionError) Is(target error) bool {
	_, ok := target.(*PermissionError)
	return ok
}

// ErrPermissionDenied matches any PermissionError via errors.Is.
var ErrPermissionDenied = &PermissionError{}
