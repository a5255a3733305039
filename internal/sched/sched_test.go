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

package sched

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tombee/ferry/internal/bus"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSchedulerPublishesBothCadences(t *testing.T) {
	b := bus.New()
	defer b.Close()

	pipe, err := b.CreatePipe("test", 64)
	require.NoError(t, err)
	require.NoError(t, b.Subscribe(10, pipe))
	require.NoError(t, b.Subscribe(20, pipe))

	s := New(Config{
		WakeupInterval:       5 * time.Millisecond,
		HousekeepingInterval: 20 * time.Millisecond,
		WakeupID:             10,
		HousekeepingID:       20,
	}, b, quietLogger())

	s.Start()
	defer s.Stop()

	seen := map[bus.MsgID]int{}
	deadline := time.After(time.Second)
	for seen[10] == 0 || seen[20] == 0 {
		select {
		case <-deadline:
			t.Fatalf("missing messages after 1s: %v", seen)
		default:
		}
		msg, err := pipe.Receive(100 * time.Millisecond)
		if err != nil {
			continue
		}
		seen[msg.ID]++
	}
}

func TestSchedulerStartStopIdempotent(t *testing.T) {
	b := bus.New()
	defer b.Close()

	s := New(Config{
		WakeupInterval:       time.Millisecond,
		HousekeepingInterval: time.Millisecond,
		WakeupID:             1,
		HousekeepingID:       2,
	}, b, quietLogger())

	s.Start()
	s.Start()
	s.Stop()
	s.Stop()
}

func TestSchedulerDropsWhenNobodyListens(t *testing.T) {
	b := bus.New()
	defer b.Close()

	pipe, err := b.CreatePipe("test", 1)
	require.NoError(t, err)
	require.NoError(t, b.Subscribe(1, pipe))

	s := New(Config{
		WakeupInterval:       time.Millisecond,
		HousekeepingInterval: time.Hour,
		WakeupID:             1,
		HousekeepingID:       2,
	}, b, quietLogger())

	s.Start()
	time.Sleep(20 * time.Millisecond)
	s.Stop()

	// Depth never exceeds the pipe bound; overflow was dropped.
	assert.LessOrEqual(t, pipe.Depth(), 1)
}
