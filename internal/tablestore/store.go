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

// Package tablestore is the file-backed table persistence service.
//
// Each registered table is single-buffered: one active image, at most one
// validated pending image staged behind it. The swap from pending to active
// happens only inside Manage and only while the address lease is not held,
// which is what lets table consumers read the active image without ever
// seeing a half-updated buffer.
package tablestore

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/tombee/ferry/internal/table"
)

// FileStore implements table.Store over YAML image files on disk.
type FileStore struct {
	logger *slog.Logger

	mu      sync.Mutex
	entries []*entry
	byName  map[string]table.Handle
}

type entry struct {
	name     string
	validate table.Validator

	source  string // last load source, reloaded when dirty
	active  *table.Config
	pending *table.Config

	locked  bool // address lease held
	updated bool // swap happened since last Address
	dirty   bool // source changed on disk, reload on next Manage
}

// New creates an empty store.
func New(logger *slog.Logger) *FileStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{
		logger: logger.With("component", "tablestore"),
		byName: make(map[string]table.Handle),
	}
}

// Register creates a descriptor for a named table. Duplicate names are
// rejected.
func (s *FileStore) Register(name string, validate table.Validator) (table.Handle, error) {
	if name == "" {
		return 0, fmt.Errorf("tablestore: empty table name")
	}
	if validate == nil {
		return 0, fmt.Errorf("tablestore: table %q registered without validator", name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byName[name]; exists {
		return 0, fmt.Errorf("tablestore: %q: %w", name, table.ErrAlreadyRegistered)
	}

	h := table.Handle(len(s.entries))
	s.entries = append(s.entries, &entry{name: name, validate: validate})
	s.byName[name] = h
	recordRegistered()
	return h, nil
}

// Load reads a candidate image from source, validates it, and stages it as
// the pending image. The active image is untouched until the next Manage
// while unlocked.
func (s *FileStore) Load(h table.Handle, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(h)
	if err != nil {
		return err
	}

	cfg, err := readImage(source)
	if err != nil {
		recordLoad(e.name, "read_error")
		return err
	}
	if err := e.validate(cfg); err != nil {
		recordLoad(e.name, "rejected")
		return fmt.Errorf("tablestore: %q: candidate from %q rejected: %w", e.name, source, err)
	}

	e.source = source
	e.pending = cfg
	recordLoad(e.name, "staged")
	return nil
}

// Manage reconciles the table: if the source was marked dirty, the image is
// re-read and re-validated (a rejected image is logged and dropped, never
// staged); then, if a pending image exists and the lease is not held, it
// becomes active.
func (s *FileStore) Manage(h table.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(h)
	if err != nil {
		return err
	}

	if e.dirty && e.source != "" {
		e.dirty = false
		cfg, err := readImage(e.source)
		if err != nil {
			recordLoad(e.name, "read_error")
			s.logger.Error("reload of changed table source failed", "table", e.name, "source", e.source, "error", err)
		} else if verr := e.validate(cfg); verr != nil {
			// Validator emitted the diagnostic; the running image stays.
			recordLoad(e.name, "rejected")
			s.logger.Warn("changed table source rejected by validation", "table", e.name, "source", e.source, "error", verr)
		} else {
			e.pending = cfg
			recordLoad(e.name, "staged")
		}
	}

	if e.pending != nil && !e.locked {
		e.active = e.pending
		e.pending = nil
		e.updated = true
		recordSwap(e.name)
		s.logger.Info("table image applied", "table", e.name, "source", e.source)
	}
	return nil
}

// Address acquires the lease on the active image. The first fetch after a
// swap reports StatusUpdated; later fetches report StatusUnchanged.
func (s *FileStore) Address(h table.Handle) (*table.Config, table.Status, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(h)
	if err != nil {
		return nil, table.StatusUnchanged, err
	}
	if e.active == nil {
		return nil, table.StatusUnchanged, fmt.Errorf("tablestore: %q has no active image", e.name)
	}

	e.locked = true
	st := table.StatusUnchanged
	if e.updated {
		st = table.StatusUpdated
		e.updated = false
	}
	return e.active, st, nil
}

// ReleaseAddress releases the lease so a staged swap can proceed.
func (s *FileStore) ReleaseAddress(h table.Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.entry(h)
	if err != nil {
		return err
	}
	if !e.locked {
		return fmt.Errorf("tablestore: %q: %w", e.name, table.ErrAddressNotHeld)
	}
	e.locked = false
	return nil
}

// markDirty flags every table whose source matches path for reload on the
// next Manage. Called from the watcher.
func (s *FileStore) markDirty(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.source != "" && sameFile(e.source, path) {
			e.dirty = true
			recordSourceChange(e.name)
		}
	}
}

func (s *FileStore) entry(h table.Handle) (*entry, error) {
	if int(h) < 0 || int(h) >= len(s.entries) {
		return nil, fmt.Errorf("tablestore: handle %d: %w", h, table.ErrNotRegistered)
	}
	return s.entries[h], nil
}

func readImage(source string) (*table.Config, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return nil, fmt.Errorf("tablestore: reading %q: %w", source, err)
	}
	var cfg table.Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("tablestore: parsing %q: %w", source, err)
	}
	return &cfg, nil
}

func sameFile(a, b string) bool {
	aa, err := filepath.Abs(a)
	if err != nil {
		return a == b
	}
	bb, err := filepath.Abs(b)
	if err != nil {
		return a == b
	}
	return aa == bb
}
