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

	"github.com/pkg/errors"
)

var schemaStmts = []string{
	`CREATE TABLE IF NOT EXISTS products (
		product_id    TEXT PRIMARY KEY,
		product_name  TEXT NOT NULL,
		cost_price    DOUBLE PRECISION NOT NULL,
		selling_price DOUBLE PRECISION NOT NULL,
		current_stock BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS market_signals (
		signal_id       BIGSERIAL PRIMARY KEY,
		product_id      TEXT NOT NULL REFERENCES products (product_id),
		competitor_name TEXT NOT NULL,
		detected_price  DOUBLE PRECISION NOT NULL,
		detected_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS market_signals_detected_at_idx
		ON market_signals (detected_at DESC)`,
	`CREATE TABLE IF NOT EXISTS council_debates (
		debate_id        BIGSERIAL PRIMARY KEY,
		run_id           TEXT NOT NULL,
		undercut_signals TEXT NOT NULL,
		cmo_proposal     TEXT NOT NULL,
		cfo_rebuttal     TEXT NOT NULL,
		ops_input        TEXT NOT NULL,
		ceo_decision     TEXT NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// EnsureSchema creates the retail tables if they do not exist. It
// needs a Store, not a Capability: schema management is operator
// tooling, outside the unit permission model.
func EnsureSchema(ctx context.Context, s Store) error {
	for _, stmt := range schemaStmts {
		if _, err := s.Mutate(ctx, stmt); err != nil {
			return errors.Wrap(err, "ensure schema")
		}
	}
	return nil
}

var seedStmts = []string{
	`INSERT INTO products (product_id, product_name, cost_price, selling_price, current_stock) VALUES
		('P1', 'Trail Runner GTX', 10.0, 18.0, 1200),
		('P2', 'Summit Pro Jacket', 42.0, 89.0, 310),
		('P3', 'Basecamp Stove', 17.5, 34.0, 0)
	ON CONFLICT (product_id) DO NOTHING`,
	`INSERT INTO market_signals (product_id, competitor_name, detected_price) VALUES
		('P1', 'PriceHawk', 8.0),
		('P2', 'PriceHawk', 95.0),
		('P3', 'BulkMart', 12.0)`,
}

// SeedDemo loads a small fixture set so a fresh database exercises
// both the undercut and the no-signal paths.
func SeedDemo(ctx context.Context, s Store) error {
	for _, stmt := range seedStmts {
		if _, err := s.Mutate(ctx, stmt); err != nil {
			return errors.Wrap(err, "seed demo data")
		}
	}
	return nil
}
