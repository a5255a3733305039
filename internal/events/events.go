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

// Package events is the diagnostic event service for the ferry core.
//
// Every fatal or recoverable condition in the core produces exactly one
// event carrying a distinguishing ID and a formatted message. The mapping
// from ID to severity and message template is static, process-wide
// configuration built once at startup; emitting is fire-and-forget and never
// fails or blocks the caller.
package events

import (
	"fmt"
	"log/slog"

	"golang.org/x/time/rate"
)

// ID identifies one kind of diagnostic event.
type ID int

const (
	// InitComplete reports successful initialization with version info.
	InitComplete ID = iota + 1

	// Initialization failures for the table register/load/manage/address
	// sequence.
	InitTableRegister
	InitTableLoad
	InitTableManage
	InitTableAddress

	// Table reconcile failures, one per step of release/manage/address.
	TableCheckRelease
	TableCheckManage
	TableCheckAddress

	// Table validation rejections, one per invariant.
	ValidateZeroTickRate
	ValidateCRCAlignment
	ValidateChunkOverflow

	// UnknownMessageID reports an inbound message that matched no route.
	UnknownMessageID

	// ReceiveFatal reports a bus receive failure other than timeout.
	ReceiveFatal

	// EngineInitFailed reports a protocol engine initialization failure.
	EngineInitFailed
)

// Severity classifies an event.
type Severity int

const (
	Information Severity = iota
	Error
)

// String returns the severity name.
func (s Severity) String() string {
	switch s {
	case Information:
		return "information"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

type definition struct {
	severity Severity
	template string
}

// table maps event IDs to their severity and message template. Read-only
// after package init.
var table = map[ID]definition{
	InitComplete:          {Information, "ferry initialized, version %s"},
	InitTableRegister:     {Error, "error registering config table: %v"},
	InitTableLoad:         {Error, "error loading config table: %v"},
	InitTableManage:       {Error, "error managing config table: %v"},
	InitTableAddress:      {Error, "error getting config table address: %v"},
	TableCheckRelease:     {Error, "error releasing table address during check: %v"},
	TableCheckManage:      {Error, "error managing table during check: %v"},
	TableCheckAddress:     {Error, "error getting table address during check: %v"},
	ValidateZeroTickRate:  {Error, "config table has zero ticks per second"},
	ValidateCRCAlignment:  {Error, "config table rx crc chunk size not aligned with 1024"},
	ValidateChunkOverflow: {Error, "config table outgoing file chunk size too large: %d > %d"},
	UnknownMessageID:      {Error, "invalid message packet id=0x%04x"},
	ReceiveFatal:          {Error, "exiting due to bus receive error: %v"},
	EngineInitFailed:      {Error, "error initializing transfer engine: %v"},
}

// Emitter records diagnostic events through a structured logger.
//
// A token bucket caps sustained emission so an event storm can never stall
// the single supervisory thread; excess events are dropped, not queued.
type Emitter struct {
	logger  *slog.Logger
	limiter *rate.Limiter
}

// NewEmitter returns an emitter writing to logger.
func NewEmitter(logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{
		logger:  logger,
		limiter: rate.NewLimiter(rate.Limit(200), 400),
	}
}

// Emit records one event. Unknown IDs and rate-limited events are dropped
// silently; Emit never fails the caller's operation.
func (e *Emitter) Emit(id ID, args ...any) {
	if e == nil {
		return
	}
	def, ok := table[id]
	if !ok {
		return
	}
	if !e.limiter.Allow() {
		return
	}

	msg := fmt.Sprintf(def.template, args...)
	attrs := []any{
		slog.Int("event_id", int(id)),
		slog.String("severity", def.severity.String()),
	}
	switch def.severity {
	case Error:
		e.logger.Error(msg, attrs...)
	default:
		e.logger.Info(msg, attrs...)
	}
}
