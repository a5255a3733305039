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

// Package dispatch classifies inbound messages by identifier and routes
// each to exactly one handler.
//
// Routing is total and deterministic: every identifier maps to command,
// wakeup, housekeeping, or unrecognized. No route blocks or retries; each
// message is one synchronous step.
package dispatch

import (
	"github.com/tombee/ferry/internal/bus"
	"github.com/tombee/ferry/internal/events"
)

// CommandHandler is the external command-processing collaborator.
type CommandHandler interface {
	HandleCommand(msg *bus.Message)
}

// CommandFunc adapts a function to CommandHandler.
type CommandFunc func(msg *bus.Message)

// HandleCommand implements CommandHandler.
func (f CommandFunc) HandleCommand(msg *bus.Message) { f(msg) }

// Config wires a Router. The three identifiers come from configuration and
// must be distinct.
type Config struct {
	CommandID      bus.MsgID
	WakeupID       bus.MsgID
	HousekeepingID bus.MsgID

	Commands     CommandHandler
	Wakeup       func()
	Housekeeping func()
}

// Router routes inbound messages. It runs on the supervisory thread only.
type Router struct {
	cfg      Config
	events   *events.Emitter
	errCount uint32
}

// NewRouter creates a router.
func NewRouter(cfg Config, em *events.Emitter) *Router {
	return &Router{cfg: cfg, events: em}
}

// Dispatch routes one message. Unrecognized identifiers increment the error
// counter and emit one diagnostic event; they are recoverable and never
// touch the run state.
func (r *Router) Dispatch(msg *bus.Message) {
	switch msg.ID {
	case r.cfg.CommandID:
		recordRoute("command")
		if r.cfg.Commands != nil {
			r.cfg.Commands.HandleCommand(msg)
		}
	case r.cfg.WakeupID:
		recordRoute("wakeup")
		if r.cfg.Wakeup != nil {
			r.cfg.Wakeup()
		}
	case r.cfg.HousekeepingID:
		recordRoute("housekeeping")
		if r.cfg.Housekeeping != nil {
			r.cfg.Housekeeping()
		}
	default:
		recordRoute("unrecognized")
		r.errCount++
		r.events.Emit(events.UnknownMessageID, uint32(msg.ID))
	}
}

// ErrorCount returns the number of unrecognized messages seen since process
// start. The counter resets only at restart.
func (r *Router) ErrorCount() uint32 {
	return r.errCount
}
