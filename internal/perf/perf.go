// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package perf provides the bracketing performance markers the supervisory
// loop and dispatcher place around units of work.
//
// Markers are paired: every MarkEntry has a matching MarkExit for the same
// ID. Both calls are non-blocking and never fail the caller.
package perf

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// MarkID names an instrumented section.
type MarkID string

const (
	// MarkAppMain brackets the non-blocked portion of each supervisory
	// loop iteration.
	MarkAppMain MarkID = "app_main"

	// MarkEngineCycle brackets one transfer-engine cycle.
	MarkEngineCycle MarkID = "engine_cycle"
)

// Monitor is the instrumentation contract consumed by the core.
type Monitor interface {
	MarkEntry(id MarkID)
	MarkExit(id MarkID)
}

// Tracer implements Monitor on OpenTelemetry spans plus prometheus
// counters. All marks happen on the single supervisory thread, so the open
// section bookkeeping needs no locking.
type Tracer struct {
	tracer trace.Tracer
	open   map[MarkID]section
}

type section struct {
	span  trace.Span
	start time.Time
}

// NewTracer creates a monitor reporting through the global otel tracer
// provider under the given instrumentation name.
func NewTracer(name string) *Tracer {
	return &Tracer{
		tracer: otel.Tracer(name),
		open:   make(map[MarkID]section),
	}
}

// MarkEntry opens the section. A second entry for an already-open ID is
// counted and ignored; the original section stays open.
func (t *Tracer) MarkEntry(id MarkID) {
	if _, ok := t.open[id]; ok {
		recordUnbalanced(string(id), "entry")
		return
	}
	_, span := t.tracer.Start(context.Background(), string(id))
	t.open[id] = section{span: span, start: time.Now()}
	recordMark(string(id), "entry")
	activeGauge.Inc()
}

// MarkExit closes the section opened by the matching MarkEntry. An exit
// without an open section is counted and ignored.
func (t *Tracer) MarkExit(id MarkID) {
	sec, ok := t.open[id]
	if !ok {
		recordUnbalanced(string(id), "exit")
		return
	}
	delete(t.open, id)
	sec.span.End()
	recordMark(string(id), "exit")
	recordDuration(string(id), time.Since(sec.start))
	activeGauge.Dec()
}

// Nop is a Monitor that does nothing. Useful where instrumentation is
// disabled.
type Nop struct{}

func (Nop) MarkEntry(MarkID) {}
func (Nop) MarkExit(MarkID)  {}
