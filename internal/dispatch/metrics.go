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

package dispatch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// routedMessages tracks dispatched messages by route
	routedMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ferry_dispatch_messages_total",
			Help: "Total dispatched messages by route",
		},
		[]string{"route"},
	)
)

// recordRoute increments the route counter
func recordRoute(route string) {
	routedMessages.WithLabelValues(route).Inc()
}
