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
	"sync"

	"github.com/united-manufacturing-hub/playloop/pkg/constants"
	"github.com/united-manufacturing-hub/playloop/pkg/gameloop"
	"github.com/united-manufacturing-hub/playloop/pkg/simgate"
)

// PauseHolder holds the pause gate token for as long as the machine is Paused.
type PauseHolder struct {
	gameloop.NopObserver

	gate    *simgate.Service
	release func()
	mu      sync.Mutex
}

// NewPauseHolder creates an observer acquiring the pause token on gate.
func NewPauseHolder(gate *simgate.Service) *PauseHolder {
	return &PauseHolder{gate: gate}
}

func (p *PauseHolder) OnStateEnter(state gameloop.State, _ bool) {
	if state != gameloop.Paused {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.release == nil {
		p.release = p.gate.Acquire(constants.GateTokenPause)
	}
}

func (p *PauseHolder) OnStateExit(state gameloop.State) {
	if state != gameloop.Paused {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.release != nil {
		p.release()
		p.release = nil
	}
}
