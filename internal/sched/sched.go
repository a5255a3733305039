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

// Package sched publishes the periodic wakeup and housekeeping-request
// messages that pace the supervisory loop.
//
// In a flight system these triggers come from a separate scheduler
// application on the bus; this package plays that role for a standalone
// deployment.
package sched

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tombee/ferry/internal/bus"
)

// Config contains scheduler cadences and target identifiers.
type Config struct {
	// WakeupInterval is the time between wakeup messages, typically
	// 1s / ticks_per_second of the validated table.
	WakeupInterval time.Duration

	// HousekeepingInterval is the time between housekeeping requests.
	HousekeepingInterval time.Duration

	WakeupID       bus.MsgID
	HousekeepingID bus.MsgID
}

// Scheduler drives the two cadences against a bus.
type Scheduler struct {
	cfg    Config
	bus    *bus.Bus
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a scheduler.
func New(cfg Config, b *bus.Bus, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cfg:    cfg,
		bus:    b,
		logger: logger.With("component", "sched"),
	}
}

// Start begins publishing. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.loop()
}

// Stop halts publishing and waits for the loop to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()
	<-doneCh
}

func (s *Scheduler) loop() {
	defer close(s.doneCh)

	wake := time.NewTicker(s.cfg.WakeupInterval)
	defer wake.Stop()
	hk := time.NewTicker(s.cfg.HousekeepingInterval)
	defer hk.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-wake.C:
			s.publish(s.cfg.WakeupID)
		case <-hk.C:
			s.publish(s.cfg.HousekeepingID)
		}
	}
}

func (s *Scheduler) publish(id bus.MsgID) {
	if err := s.bus.Publish(&bus.Message{ID: id}); err != nil {
		// A full pipe means the loop is falling behind; dropping the
		// trigger is the correct backpressure.
		s.logger.Debug("dropped scheduled message", "id", uint32(id), "error", err)
	}
}
