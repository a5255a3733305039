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

// Package table manages the single-buffered runtime configuration table.
//
// A table image is either not yet validated (rejected, never visible to
// consumers) or validated with all constraints satisfied; there is no
// partially-valid state outside the validation step. The backing storage and
// buffer swap belong to the persistence store; this package only ever holds
// a lease on the currently active image.
package table

import (
	"errors"
	"fmt"

	"github.com/tombee/ferry/internal/events"
)

// Config is the runtime configuration table image consumed by the transfer
// engine between reconciliation cycles.
type Config struct {
	// TicksPerSecond is the scheduler tick rate timers are computed from.
	// Must be nonzero.
	TicksPerSecond uint32 `yaml:"ticks_per_second"`

	// RxCRCChunkBytes is how many received-file bytes are CRC'd per wakeup.
	// Must be a nonzero multiple of 1024.
	RxCRCChunkBytes uint32 `yaml:"rx_crc_chunk_bytes"`

	// OutgoingFileChunkBytes is the file-data payload size of one outgoing
	// PDU. Must fit the engine's per-PDU file-data buffer.
	OutgoingFileChunkBytes uint32 `yaml:"outgoing_file_chunk_bytes"`
}

// Validation outcomes, one per invariant. Checks short-circuit in the order
// tick rate, CRC alignment, outgoing chunk size, so exactly one outcome is
// produced per candidate.
var (
	ErrZeroTickRate      = errors.New("table: zero ticks per second")
	ErrCRCChunkAlign     = errors.New("table: rx crc chunk size not a nonzero multiple of 1024")
	ErrChunkOverflow     = errors.New("table: outgoing file chunk size exceeds engine buffer")
	ErrAddressNotHeld    = errors.New("table: address lease not held")
	ErrNotRegistered     = errors.New("table: not registered")
	ErrAlreadyRegistered = errors.New("table: already registered")
)

// Handle identifies a registered table within a Store.
type Handle int

// Status qualifies a successful Address fetch.
type Status int

const (
	// StatusUnchanged means the active image is the one from the previous
	// fetch.
	StatusUnchanged Status = iota

	// StatusUpdated means a pending image was applied since the previous
	// fetch. Still success.
	StatusUpdated
)

// Validator checks a candidate image. It must return nil only when every
// constraint holds.
type Validator func(*Config) error

// Store is the persistence service contract. The store exclusively owns the
// backing storage and performs the single-buffered swap; callers interact
// through handles and address leases only.
type Store interface {
	// Register creates a table descriptor with the given validator.
	Register(name string, validate Validator) (Handle, error)

	// Load reads a candidate image from the named source and stages it if
	// the validator accepts it.
	Load(h Handle, source string) error

	// Manage applies any pending staged image, provided the address lease
	// is not held.
	Manage(h Handle) error

	// Address acquires the lease on the active image. StatusUpdated is
	// reported once after a swap.
	Address(h Handle) (*Config, Status, error)

	// ReleaseAddress releases the lease so a pending swap can proceed.
	ReleaseAddress(h Handle) error
}

// Manager owns the application's table lease and drives the register, load,
// validate, reconcile lifecycle against a Store.
//
// All access happens on the supervisory thread; Manager is not safe for
// concurrent use.
type Manager struct {
	store  Store
	events *events.Emitter

	name     string
	source   string
	chunkCap uint32

	handle Handle
	active *Config
}

// NewManager creates a manager for the named table loaded from source.
// chunkCap is the engine's per-PDU file-data buffer capacity that bounds
// OutgoingFileChunkBytes.
func NewManager(store Store, em *events.Emitter, name, source string, chunkCap uint32) *Manager {
	return &Manager{
		store:    store,
		events:   em,
		name:     name,
		source:   source,
		chunkCap: chunkCap,
	}
}

// Validate checks the three table invariants, emitting one diagnostic event
// per failure kind. It is a pure function of the candidate's fields plus the
// fixed engine capacity, and returns the first failing outcome.
func (m *Manager) Validate(c *Config) error {
	switch {
	case c.TicksPerSecond == 0:
		m.events.Emit(events.ValidateZeroTickRate)
		return ErrZeroTickRate
	case c.RxCRCChunkBytes == 0 || c.RxCRCChunkBytes&0x3ff != 0:
		m.events.Emit(events.ValidateCRCAlignment)
		return ErrCRCChunkAlign
	case c.OutgoingFileChunkBytes > m.chunkCap:
		m.events.Emit(events.ValidateChunkOverflow, c.OutgoingFileChunkBytes, m.chunkCap)
		return ErrChunkOverflow
	default:
		return nil
	}
}

// Init performs the startup sequence: register, load from the configured
// source, manage, and acquire the address lease. Any failure is fatal to
// initialization; the failing step has already emitted its event when Init
// returns an error.
func (m *Manager) Init() error {
	h, err := m.store.Register(m.name, m.Validate)
	if err != nil {
		m.events.Emit(events.InitTableRegister, err)
		return fmt.Errorf("registering table %q: %w", m.name, err)
	}
	m.handle = h

	if err := m.store.Load(m.handle, m.source); err != nil {
		m.events.Emit(events.InitTableLoad, err)
		return fmt.Errorf("loading table %q from %q: %w", m.name, m.source, err)
	}

	if err := m.store.Manage(m.handle); err != nil {
		m.events.Emit(events.InitTableManage, err)
		return fmt.Errorf("managing table %q: %w", m.name, err)
	}

	// The fetch right after the initial load normally reports updated;
	// unchanged is equally fine.
	cfg, _, err := m.store.Address(m.handle)
	if err != nil {
		m.events.Emit(events.InitTableAddress, err)
		return fmt.Errorf("getting table %q address: %w", m.name, err)
	}
	m.active = cfg
	return nil
}

// ReconcileIfIdle applies any pending table update, but only while the
// transfer engine is administratively disabled. Swapping under an active
// engine would let it read through a stale or half-updated lease, so the
// swap is deferred until the engine idles.
//
// The sequence is release, manage, re-acquire, stopping at the first failing
// step. A returned error is fatal to the run; the caller owns the run-state
// transition.
func (m *Manager) ReconcileIfIdle(engineEnabled bool) error {
	if engineEnabled {
		return nil
	}

	if err := m.store.ReleaseAddress(m.handle); err != nil {
		m.events.Emit(events.TableCheckRelease, err)
		return fmt.Errorf("releasing table %q address: %w", m.name, err)
	}

	if err := m.store.Manage(m.handle); err != nil {
		m.events.Emit(events.TableCheckManage, err)
		return fmt.Errorf("managing table %q: %w", m.name, err)
	}

	cfg, _, err := m.store.Address(m.handle)
	if err != nil {
		m.events.Emit(events.TableCheckAddress, err)
		return fmt.Errorf("getting table %q address: %w", m.name, err)
	}
	m.active = cfg
	return nil
}

// Active returns the currently leased, validated table image. Nil before a
// successful Init.
func (m *Manager) Active() *Config {
	return m.active
}
