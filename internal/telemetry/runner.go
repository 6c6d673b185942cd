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

package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/cloudwego/boardroom/pipeline"
)

// Runner matches the workflow runner shape without importing it.
type Runner interface {
	Run(ctx context.Context, initial map[string]any) (*pipeline.RunResult, error)
}

// ObservedRunner wraps a Runner with one span per run, one child span
// per executed unit rebuilt from the run record's timestamps, and
// counters for runs and units by outcome. With the default no-op
// providers the wrapper costs nothing.
type ObservedRunner struct {
	next   Runner
	tracer trace.Tracer
	runs   metric.Int64Counter
	units  metric.Int64Counter
}

func ObserveRunner(next Runner) *ObservedRunner {
	meter := Meter("")
	runs, _ := meter.Int64Counter("boardroom.runs",
		metric.WithDescription("pipeline runs by outcome"))
	units, _ := meter.Int64Counter("boardroom.units",
		metric.WithDescription("unit executions by outcome"))
	return &ObservedRunner{
		next:   next,
		tracer: Tracer(""),
		runs:   runs,
		units:  units,
	}
}

func (o *ObservedRunner) Run(ctx context.Context, initial map[string]any) (*pipeline.RunResult, error) {
	ctx, span := o.tracer.Start(ctx, "boardroom.run")
	defer span.End()

	res, err := o.next.Run(ctx, initial)

	outcome := "ok"
	if err != nil {
		outcome = "failed"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	o.runs.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))

	if res == nil {
		return res, err
	}
	span.SetAttributes(attribute.String("run_id", res.RunID))
	for _, e := range res.Record.Entries {
		_, us := o.tracer.Start(ctx, "boardroom.unit."+e.Unit, trace.WithTimestamp(e.StartedAt))
		us.SetAttributes(
			attribute.String("unit", e.Unit),
			attribute.String("status", string(e.Status)),
		)
		if e.Status == pipeline.StatusFailed {
			us.SetStatus(codes.Error, e.Error)
			us.SetAttributes(attribute.String("cause", e.Cause))
		}
		us.End(trace.WithTimestamp(e.FinishedAt))
		o.units.Add(ctx, 1, metric.WithAttributes(
			attribute.String("unit", e.Unit),
			attribute.String("status", string(e.Status)),
		))
	}
	return res, err
}
