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

package engine

import "testing"

func TestNoopStartsDisabled(t *testing.T) {
	var n Noop
	if n.Enabled() {
		t.Fatal("Noop must start disabled")
	}
}

func TestNoopEnableDisable(t *testing.T) {
	var n Noop
	n.Enable()
	if !n.Enabled() {
		t.Fatal("Enable did not take")
	}
	n.Disable()
	if n.Enabled() {
		t.Fatal("Disable did not take")
	}
}

func TestNoopCountsCycles(t *testing.T) {
	var n Noop
	if err := n.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	n.Cycle()
	n.Cycle()
	if n.Cycles() != 2 {
		t.Fatalf("Cycles() = %d, want 2", n.Cycles())
	}
}
