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

// Package engine defines the contract between the supervisory core and the
// file-transfer protocol engine.
//
// The engine itself lives outside this core; the loop drives it once per
// wakeup and gates table reconciliation on its administrative enabled flag.
package engine

// FileDataCapacity is the size in bytes of the file-data buffer in one
// outgoing PDU. The configuration table's outgoing chunk size may not
// exceed it.
const FileDataCapacity = 4096

// Engine is one transfer protocol engine.
type Engine interface {
	// Init prepares the engine. Called once during application
	// initialization; failure is fatal to startup.
	Init() error

	// Enabled reports the administrative enabled flag. Table swaps are
	// deferred while the engine is enabled.
	Enabled() bool

	// Cycle performs one bounded unit of protocol work. Invoked
	// synchronously once per wakeup and must not block indefinitely.
	Cycle()
}

// Noop is a stand-in engine used until a transfer engine is wired in, and
// in integration tests. It starts disabled.
type Noop struct {
	enabled bool
	cycles  uint64
}

// Init implements Engine.
func (n *Noop) Init() error { return nil }

// Enabled implements Engine.
func (n *Noop) Enabled() bool { return n.enabled }

// Cycle implements Engine.
func (n *Noop) Cycle() { n.cycles++ }

// Enable sets the administrative enabled flag.
func (n *Noop) Enable() { n.enabled = true }

// Disable clears the administrative enabled flag.
func (n *Noop) Disable() { n.enabled = false }

// Cycles returns how many cycles have run.
func (n *Noop) Cycles() uint64 { return n.cycles }
