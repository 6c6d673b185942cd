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
	"sync"
)

// WriteReceipt records whether the audit write for a run actually
// reached the store. The debate logger is an LLM behind a tool call,
// so its text answer is not proof of persistence; the receipt is
// acknowledged by the store layer itself and checked by the executor
// side before any downstream unit runs.
type WriteReceipt struct {
	mu    sync.Mutex
	acked bool
	err   error
}

// Ack marks the write as persisted.
func (r *WriteReceipt) Ack() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acked = true
	r.err = nil
}

// Fail records the write error.
func (r *WriteReceipt) Fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.acked = false
	r.err = err
}

// Acked reports whether Ack was called after the last Fail.
func (r *WriteReceipt) Acked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acked
}

// Err returns the recorded write error, if any.
func (r *WriteReceipt) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

type receiptKey struct{}

// WithReceipt attaches a fresh receipt to the context and returns it.
func WithReceipt(ctx context.Context) (context.Context, *WriteReceipt) {
	r := &WriteReceipt{}
	return context.WithValue(ctx, receiptKey{}, r), r
}

// ReceiptFrom returns the receipt attached to the context, or nil.
func ReceiptFrom(ctx context.Context) *WriteReceipt {
	r, _ := ctx.Value(receiptKey{}).(*WriteReceipt)
	return r
}

type runIDKey struct{}

// WithRunID tags the context with the run the audit write belongs to.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunIDFrom returns the run id attached to the context, or "".
func RunIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}
