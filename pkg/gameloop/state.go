// Copyright 2025 UMH Systems GmbH
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

package gameloop

// State is a game loop macro-state. Exactly one is current at any time.
type State string

const (
	// Boot is the initial state. It is re-entered on every reset.
	Boot State = "boot"
	// Ready waits for the player to start (menu, lobby).
	Ready State = "ready"
	// IntroStage plays an intro before gameplay begins.
	IntroStage State = "intro_stage"
	// Playing is the only state in which gameplay actions are allowed.
	Playing State = "playing"
	// Paused suspends gameplay until resumed.
	Paused State = "paused"
	// PostPlay follows the end of a run and can return to Ready.
	PostPlay State = "post_play"
)

// AllStates lists the states in declaration order.
var AllStates = []State{Boot, Ready, IntroStage, Playing, Paused, PostPlay}

func (s State) String() string { return string(s) }

// Valid reports whether s is one of the declared states.
func (s State) Valid() bool {
	for _, st := range AllStates {
		if st == s {
			return true
		}
	}

	return false
}

// IsGameActive reports whether gameplay is running in state s.
func IsGameActive(s State) bool {
	return s == Playing
}

// IsGameplayActionAllowed is true only while Playing.
func IsGameplayActionAllowed(s State) bool {
	return s == Playing
}

// IsUiActionAllowed is true in every state except Playing.
func IsUiActionAllowed(s State) bool {
	return s != Playing
}

// IsSystemActionAllowed is true in every state except Playing.
func IsSystemActionAllowed(s State) bool {
	return s != Playing
}
