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

package perf

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// markCounter tracks entry/exit marks by section
	markCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_perf_marks_total",
			Help: "Total performance marks by section id and phase",
		},
		[]string{"id", "phase"},
	)

	// unbalancedCounter tracks mismatched entry/exit pairs
	unbalancedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_perf_unbalanced_marks_total",
			Help: "Total unbalanced performance marks by section id and phase",
		},
		[]string{"id", "phase"},
	)

	// sectionDuration observes time spent inside instrumented sections
	sectionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ferry_perf_section_duration_seconds",
			Help:    "Duration of instrumented sections by section id",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"id"},
	)

	// activeGauge tracks currently open sections
	activeGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ferry_perf_open_sections",
			Help: "Number of currently open instrumented sections",
		},
	)
)

// recordMark increments the mark counter
func recordMark(id, phase string) {
	markCounter.WithLabelValues(id, phase).Inc()
}

// recordUnbalanced increments the unbalanced-mark counter
func recordUnbalanced(id, phase string) {
	unbalancedCounter.WithLabelValues(id, phase).Inc()
}

// recordDuration observes a section duration
func recordDuration(id string, d time.Duration) {
	sectionDuration.WithLabelValues(id).Observe(d.Seconds())
}
