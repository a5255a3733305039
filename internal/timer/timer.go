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

// Package timer provides the tick-counted countdown primitive used to bound
// waiting operations in the transfer engine.
//
// All timers count against a single process-wide Timebase that the
// supervisory loop advances exactly once per scheduling cycle. Timers never
// read the wall clock; a "second" is whatever the configured tick rate says
// it is.
package timer

// Tick is one unit of the time base.
//
// Ticks are expected to run at around 100/sec, so uint32 could wrap in
// theory, but no mission profile needs more than ~400,000,000 seconds of
// uptime. Wraparound beyond that bound is an accepted limitation, not
// something we guard against.
type Tick uint32

// Timebase is the process-wide tick counter and its configured rate.
//
// It has a single writer: the supervisory loop advances it once per cycle
// before any timer-dependent decision is made. Timers read it only at
// creation time.
type Timebase struct {
	now  Tick
	rate uint32 // ticks per second
}

// NewTimebase returns a time base running at the given tick rate.
func NewTimebase(ticksPerSecond uint32) *Timebase {
	return &Timebase{rate: ticksPerSecond}
}

// Advance moves the time base forward by one tick. Called exactly once per
// scheduling cycle.
func (tb *Timebase) Advance() {
	tb.now++
}

// Now returns the current time-base reading.
func (tb *Timebase) Now() Tick {
	return tb.now
}

// Rate returns the configured ticks-per-second rate.
func (tb *Timebase) Rate() uint32 {
	return tb.rate
}

// SetRate updates the ticks-per-second rate after a configuration table
// reload. Rate changes take effect only for timers created after the call;
// timers already counting keep the tick count computed under the old rate.
func (tb *Timebase) SetRate(ticksPerSecond uint32) {
	tb.rate = ticksPerSecond
}

// Timer is a relative countdown. It expires when its remaining tick count
// reaches zero.
//
// A Timer is owned by the operation that created it and holds no reference
// back to the Timebase; the owner calls Tick once per cycle.
type Timer struct {
	remaining Tick
}

// NewRelative returns a timer expiring relSeconds from now under the time
// base's current rate.
//
// If the computed absolute expiration is at or before the current time-base
// reading (zero rate, zero duration, or arithmetic wrap past the documented
// bound), the timer is returned already expired. That is valid, intentional
// behavior for deadlines that are already past; no error is signaled.
func (tb *Timebase) NewRelative(relSeconds uint32) Timer {
	target := tb.now + Tick(relSeconds)*Tick(tb.rate)
	if target <= tb.now {
		return Timer{}
	}
	return Timer{remaining: target - tb.now}
}

// Tick decrements the remaining count by one, floored at zero. Safe to call
// after expiration.
func (t *Timer) Tick() {
	if t.remaining > 0 {
		t.remaining--
	}
}

// Expired reports whether the timer has run out.
func (t *Timer) Expired() bool {
	return t.remaining == 0
}

// Remaining returns the remaining tick count.
func (t *Timer) Remaining() Tick {
	return t.remaining
}
