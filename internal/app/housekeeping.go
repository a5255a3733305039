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

package app

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/tombee/ferry/internal/bus"
)

// Counters is the housekeeping counter set. Counters reset only at process
// restart.
type Counters struct {
	// Err counts unrecognized inbound message identifiers.
	Err uint32 `json:"err"`
}

// Snapshot is the housekeeping telemetry packet published on the bus.
type Snapshot struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Counters  Counters  `json:"counters"`
}

// sendHousekeeping publishes the current telemetry snapshot. Telemetry is
// best-effort: a full pipe or marshal problem is logged, never fatal.
func (a *App) sendHousekeeping() {
	snap := Snapshot{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Counters:  Counters{Err: a.router.ErrorCount()},
	}

	payload, err := json.Marshal(snap)
	if err != nil {
		a.logger.Warn("marshalling housekeeping snapshot", "error", err)
		return
	}
	if err := a.bus.Publish(&bus.Message{ID: a.opts.TelemetryID, Payload: payload}); err != nil {
		a.logger.Warn("publishing housekeeping snapshot", "error", err)
	}
}
