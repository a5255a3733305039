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
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMarkEntryExitPairs(t *testing.T) {
	tr := NewTracer("test")

	before := testutil.ToFloat64(markCounter.WithLabelValues("pair_section", "exit"))

	tr.MarkEntry(MarkID("pair_section"))
	assert.Len(t, tr.open, 1)

	tr.MarkExit(MarkID("pair_section"))
	assert.Empty(t, tr.open)

	after := testutil.ToFloat64(markCounter.WithLabelValues("pair_section", "exit"))
	assert.Equal(t, before+1, after)
}

func TestDoubleEntryKeepsOriginalSection(t *testing.T) {
	tr := NewTracer("test")

	tr.MarkEntry(MarkID("dup_section"))
	first := tr.open[MarkID("dup_section")]
	tr.MarkEntry(MarkID("dup_section"))

	assert.Equal(t, first, tr.open[MarkID("dup_section")])
	assert.InDelta(t, 1, testutil.ToFloat64(unbalancedCounter.WithLabelValues("dup_section", "entry")), 0.01)

	tr.MarkExit(MarkID("dup_section"))
	assert.Empty(t, tr.open)
}

func TestExitWithoutEntryIsIgnored(t *testing.T) {
	tr := NewTracer("test")

	tr.MarkExit(MarkID("orphan_section")) // must not panic
	assert.InDelta(t, 1, testutil.ToFloat64(unbalancedCounter.WithLabelValues("orphan_section", "exit")), 0.01)
}

func TestNopMonitor(t *testing.T) {
	var n Nop
	n.MarkEntry(MarkAppMain)
	n.MarkExit(MarkAppMain)
}
