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

// Package exec defines the process run-state machine and the executive
// service the supervisory loop reports to.
package exec

import (
	"context"
	"log/slog"
)

// RunState is the supervisory run-state machine. It starts Running; any
// unrecoverable failure moves it to ErrorStopping, after which no further
// message processing happens and the process shuts down. There is no
// transition back.
type RunState int

const (
	Running RunState = iota
	ErrorStopping
)

// String returns the run-state name.
func (s RunState) String() string {
	switch s {
	case Running:
		return "running"
	case ErrorStopping:
		return "error-stopping"
	default:
		return "unknown"
	}
}

// Executive is the run-state service. ShouldContinue is polled at the top
// of every loop iteration; ReportExit is called exactly once at shutdown.
type Executive interface {
	ShouldContinue(RunState) bool
	ReportExit(RunState)
}

// OS is the production executive: it continues while the run state is
// Running and the process context (signal handling, typically) is alive,
// and records the terminal status for the process exit code.
type OS struct {
	ctx    context.Context
	logger *slog.Logger
	final  RunState
}

// NewOS creates an executive bound to ctx.
func NewOS(ctx context.Context, logger *slog.Logger) *OS {
	if logger == nil {
		logger = slog.Default()
	}
	return &OS{ctx: ctx, logger: logger.With("component", "exec")}
}

// ShouldContinue reports whether the loop should run another iteration.
func (e *OS) ShouldContinue(s RunState) bool {
	return s == Running && e.ctx.Err() == nil
}

// ReportExit records the terminal run status.
func (e *OS) ReportExit(s RunState) {
	e.final = s
	if s == ErrorStopping {
		e.logger.Error("application exiting", "run_state", s.String())
		return
	}
	e.logger.Info("application exiting", "run_state", s.String())
}

// ExitCode maps the reported terminal status to a process exit code.
func (e *OS) ExitCode() int {
	if e.final == ErrorStopping {
		return 1
	}
	return 0
}
