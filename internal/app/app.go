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

// Package app is the supervisory loop of the ferry core.
//
// It is the only thread of control: it receives messages from the bus with
// a bounded timeout, dispatches each one synchronously, and converts
// unrecoverable conditions into an ordered shutdown. A run-state transition
// to error-stopping takes effect at the top of the next iteration; the
// current dispatch always completes.
package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tombee/ferry/internal/bus"
	"github.com/tombee/ferry/internal/dispatch"
	"github.com/tombee/ferry/internal/engine"
	"github.com/tombee/ferry/internal/events"
	"github.com/tombee/ferry/internal/exec"
	"github.com/tombee/ferry/internal/perf"
	"github.com/tombee/ferry/internal/table"
	"github.com/tombee/ferry/internal/timer"
)

// Options configures an App. Message identifiers are opaque tokens assigned
// by whoever operates the bus; nothing here hardcodes them.
type Options struct {
	PipeName       string
	PipeDepth      int
	ReceiveTimeout time.Duration

	CommandID      bus.MsgID
	WakeupID       bus.MsgID
	HousekeepingID bus.MsgID

	// TelemetryID is where housekeeping snapshots are published.
	TelemetryID bus.MsgID

	// Commands is the external command-processing collaborator. May be nil.
	Commands dispatch.CommandHandler

	// Version is reported in the initialization-complete event.
	Version string
}

// App owns the run state and wires the dispatcher, table manager, engine,
// and instrumentation together.
type App struct {
	opts   Options
	logger *slog.Logger
	events *events.Emitter
	perf   perf.Monitor

	bus    *bus.Bus
	pipe   *bus.Pipe
	tables *table.Manager
	engine engine.Engine
	exec   exec.Executive
	router *dispatch.Router

	timebase *timer.Timebase
	run      exec.RunState
}

// New assembles an application. All collaborators are required except
// opts.Commands.
func New(opts Options, logger *slog.Logger, em *events.Emitter, mon perf.Monitor, b *bus.Bus, tables *table.Manager, eng engine.Engine, ex exec.Executive) *App {
	if logger == nil {
		logger = slog.Default()
	}
	if mon == nil {
		mon = perf.Nop{}
	}
	return &App{
		opts:   opts,
		logger: logger.With("component", "app"),
		events: em,
		perf:   mon,
		bus:    b,
		tables: tables,
		engine: eng,
		exec:   ex,
		run:    exec.Running,
	}
}

// init performs the startup sequence: pipe creation, subscriptions, table
// registration and initial load, engine initialization, and the
// initialization-complete event. The first failure aborts initialization;
// there is no partial continue.
func (a *App) init() error {
	pipe, err := a.bus.CreatePipe(a.opts.PipeName, a.opts.PipeDepth)
	if err != nil {
		return fmt.Errorf("creating pipe %q: %w", a.opts.PipeName, err)
	}
	a.pipe = pipe

	for _, id := range []bus.MsgID{a.opts.CommandID, a.opts.WakeupID, a.opts.HousekeepingID} {
		if err := a.bus.Subscribe(id, a.pipe); err != nil {
			return fmt.Errorf("subscribing to id 0x%04x: %w", uint32(id), err)
		}
	}

	// Table manager emits its own diagnostic on failure.
	if err := a.tables.Init(); err != nil {
		return err
	}
	a.timebase = timer.NewTimebase(a.tables.Active().TicksPerSecond)

	if err := a.engine.Init(); err != nil {
		a.events.Emit(events.EngineInitFailed, err)
		return fmt.Errorf("initializing engine: %w", err)
	}

	a.router = dispatch.NewRouter(dispatch.Config{
		CommandID:      a.opts.CommandID,
		WakeupID:       a.opts.WakeupID,
		HousekeepingID: a.opts.HousekeepingID,
		Commands:       a.opts.Commands,
		Wakeup:         a.wakeup,
		Housekeeping:   a.housekeeping,
	}, a.events)

	a.events.Emit(events.InitComplete, a.opts.Version)
	return nil
}

// Run executes the application to completion and returns the terminal run
// status after reporting it to the executive.
//
// Instrumentation brackets the non-blocked portion of each iteration: the
// app-main section is exited before the bounded receive and re-entered
// right after it.
func (a *App) Run() exec.RunState {
	a.perf.MarkEntry(perf.MarkAppMain)

	if err := a.init(); err != nil {
		a.logger.Error("initialization failed", "error", err)
		a.run = exec.ErrorStopping
	}

	for a.exec.ShouldContinue(a.run) {
		a.perf.MarkExit(perf.MarkAppMain)
		msg, err := a.pipe.Receive(a.opts.ReceiveTimeout)
		a.perf.MarkEntry(perf.MarkAppMain)

		switch {
		case errors.Is(err, bus.ErrTimeout):
			// Steady-state idle path.
		case err != nil || msg == nil:
			a.events.Emit(events.ReceiveFatal, err)
			a.run = exec.ErrorStopping
		default:
			a.router.Dispatch(msg)
		}
	}

	a.perf.MarkExit(perf.MarkAppMain)
	a.exec.ReportExit(a.run)
	return a.run
}

// wakeup advances the time base and drives one engine cycle, bracketed by
// instrumentation markers. The time base moves exactly once per cycle,
// before any timer-dependent work.
func (a *App) wakeup() {
	a.perf.MarkEntry(perf.MarkEngineCycle)
	a.timebase.Advance()
	a.engine.Cycle()
	a.perf.MarkExit(perf.MarkEngineCycle)
}

// housekeeping publishes the telemetry snapshot and then reconciles any
// pending table update.
func (a *App) housekeeping() {
	a.sendHousekeeping()
	a.checkTables()
}

// checkTables applies a pending table update if the engine is idle. A
// failed reconcile step is fatal; the manager has already emitted the
// diagnostic identifying the step.
func (a *App) checkTables() {
	if err := a.tables.ReconcileIfIdle(a.engine.Enabled()); err != nil {
		a.run = exec.ErrorStopping
		return
	}

	// Rate changes apply to timers created after the reload only.
	if rate := a.tables.Active().TicksPerSecond; rate != a.timebase.Rate() {
		a.timebase.SetRate(rate)
	}
}

// RunState returns the current run state. Exposed for tests.
func (a *App) RunState() exec.RunState {
	return a.run
}

// Timebase returns the process-wide time base, nil before initialization.
// The transfer engine derives its timers from it.
func (a *App) Timebase() *timer.Timebase {
	return a.timebase
}
