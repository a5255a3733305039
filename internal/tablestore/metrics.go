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

package tablestore

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// tableRegistered counts registered tables
	tableRegistered = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ferry_tablestore_registered_total",
			Help: "Total tables registered with the store",
		},
	)

	// tableLoads tracks load attempts by table and result
	tableLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_tablestore_loads_total",
			Help: "Total table image load attempts by table name and result",
		},
		[]string{"table", "result"},
	)

	// tableSwaps tracks applied pending images
	tableSwaps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_tablestore_swaps_total",
			Help: "Total pending table images applied by table name",
		},
		[]string{"table"},
	)

	// tableSourceChanges tracks watcher-detected source file changes
	tableSourceChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_tablestore_source_changes_total",
			Help: "Total watched source file changes by table name",
		},
		[]string{"table"},
	)
)

// recordRegistered increments the registration counter
func recordRegistered() {
	tableRegistered.Inc()
}

// recordLoad increments the load counter
func recordLoad(tbl, result string) {
	tableLoads.WithLabelValues(tbl, result).Inc()
}

// recordSwap increments the swap counter
func recordSwap(tbl string) {
	tableSwaps.WithLabelValues(tbl).Inc()
}

// recordSourceChange increments the source-change counter
func recordSourceChange(tbl string) {
	tableSourceChanges.WithLabelValues(tbl).Inc()
}
