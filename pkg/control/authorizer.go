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

package control

import (
	"github.com/united-manufacturing-hub/playloop/pkg/constants"
	"github.com/united-manufacturing-hub/playloop/pkg/gameloop"
	"github.com/united-manufacturing-hub/playloop/pkg/simgate"
)

// StateReader exposes the current loop state.
type StateReader interface {
	Current() gameloop.State
}

// Authorizer answers action permission queries. The loop state decides
// first; gameplay actions are additionally blocked while the pause or scene
// transition token is held.
type Authorizer struct {
	loop StateReader
	gate simgate.Gate
}

// NewAuthorizer creates an authorizer. A nil gate only consults the loop state.
func NewAuthorizer(loop StateReader, gate simgate.Gate) *Authorizer {
	return &Authorizer{loop: loop, gate: gate}
}

// IsGameplayActionAllowed reports whether gameplay input may be processed.
func (a *Authorizer) IsGameplayActionAllowed() bool {
	return a.GameplayBlockedBy() == ""
}

// GameplayBlockedBy names what blocks gameplay: the loop state or a gate
// token. It returns "" when gameplay is allowed.
func (a *Authorizer) GameplayBlockedBy() string {
	state := a.loop.Current()
	if !gameloop.IsGameplayActionAllowed(state) {
		return "state:" + string(state)
	}

	if a.gate == nil {
		return ""
	}

	for _, token := range []string{constants.GateTokenPause, constants.GateTokenSceneTransition} {
		if a.gate.IsTokenActive(token) {
			return "gate:" + token
		}
	}

	return ""
}

// IsUiActionAllowed reports whether menu input may be processed.
func (a *Authorizer) IsUiActionAllowed() bool {
	return gameloop.IsUiActionAllowed(a.loop.Current())
}

// IsSystemActionAllowed reports whether system actions may run.
func (a *Authorizer) IsSystemActionAllowed() bool {
	return gameloop.IsSystemActionAllowed(a.loop.Current())
}
