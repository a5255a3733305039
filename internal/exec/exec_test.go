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

package exec

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRunStateString(t *testing.T) {
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "error-stopping", ErrorStopping.String())
	assert.Equal(t, "unknown", RunState(42).String())
}

func TestShouldContinue(t *testing.T) {
	e := NewOS(context.Background(), quietLogger())

	assert.True(t, e.ShouldContinue(Running))
	assert.False(t, e.ShouldContinue(ErrorStopping))
}

func TestShouldContinueStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := NewOS(ctx, quietLogger())

	assert.True(t, e.ShouldContinue(Running))
	cancel()
	assert.False(t, e.ShouldContinue(Running))
}

func TestExitCode(t *testing.T) {
	e := NewOS(context.Background(), quietLogger())

	e.ReportExit(Running)
	assert.Equal(t, 0, e.ExitCode())

	e.ReportExit(ErrorStopping)
	assert.Equal(t, 1, e.ExitCode())
}
