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
	"fmt"
)

// Mode is the access level a capability grants.
type Mode string

const (
	// ReadOnly permits queries and rejects every mutation.
	ReadOnly Mode = "read-only"
	// WriteEnabled permits both queries and mutations.
	WriteEnabled Mode = "write-enabled"
)

// Capability is a mode-bound handle to the store. Units and tools
// never hold a Store directly; they hold a Capability, and the mode
// decides what crosses the boundary.
type Capability struct {
	store Store
	mode  Mode
}

// Bind wraps the store with the given mode. Both arguments are static
// wiring, so invalid values panic at startup rather than surfacing at
// request time.
func Bind(s Store, mode Mode) *Capability {
	if s == nil {
		panic("store: Bind called with nil store")
	}
	switch mode {
	case ReadOnly, WriteEnabled:
	default:
		panic(fmt.Sprintf("store: Bind called with unknown mode %q", mode))
	}
	return &Capability{store: s, mode: mode}
}

// Mode reports the bound access level.
func (c *Capability) Mode() Mode { return c.mode }

// CanWrite reports whether mutations pass the gate.
func (c *Capability) CanWrite() bool { return c.mode == WriteEnabled }

// Query runs a read. Allowed in both modes.
func (c *Capability) Query(ctx context.Context, query string, args ...any) ([]Row, error) {
	return c.store.Query(ctx, query, args...)
}

// Mutate runs a write and returns the affected row count. In read-only
// mode it fails with a PermissionError before the statement ever
// reaches the store.
func (c *Capability) Mutate(ctx context.Context, stmt string, args ...any) (int64, error) {
	if c.mode != WriteEnabled {
		return 0, &PermissionError{Mode: c.mode}
	}
	return c.store.Mutate(ctx, stmt, args...)
}
