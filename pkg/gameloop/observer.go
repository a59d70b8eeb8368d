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

import (
	"sync"

	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
)

// Observer is notified about every transition.
// OnStateExit runs before the current state changes, OnStateEnter after.
// OnGameActivityChanged runs once per flip of IsGameActive, after OnStateEnter.
type Observer interface {
	OnStateExit(state State)
	OnStateEnter(state State, gameActive bool)
	OnGameActivityChanged(active bool)
}

// NopObserver ignores all notifications.
type NopObserver struct{}

func (NopObserver) OnStateExit(State)          {}
func (NopObserver) OnStateEnter(State, bool)   {}
func (NopObserver) OnGameActivityChanged(bool) {}

// MultiObserver fans notifications out in slice order.
type MultiObserver []Observer

func (m MultiObserver) OnStateExit(state State) {
	for _, o := range m {
		o.OnStateExit(state)
	}
}

func (m MultiObserver) OnStateEnter(state State, gameActive bool) {
	for _, o := range m {
		o.OnStateEnter(state, gameActive)
	}
}

func (m MultiObserver) OnGameActivityChanged(active bool) {
	for _, o := range m {
		o.OnGameActivityChanged(active)
	}
}

// StateChanged is published on the bus after a transition.
type StateChanged struct {
	From       State
	To         State
	GameActive bool
}

// GameActivityChanged is published when gameplay starts or stops running.
type GameActivityChanged struct {
	Active bool
}

// BusObserver republishes machine notifications as bus events.
type BusObserver struct {
	bus  *eventbus.Bus
	from State
	mu   sync.Mutex
}

// NewBusObserver creates an observer that publishes on bus.
func NewBusObserver(bus *eventbus.Bus) *BusObserver {
	return &BusObserver{bus: bus, from: Boot}
}

func (b *BusObserver) OnStateExit(state State) {
	b.mu.Lock()
	b.from = state
	b.mu.Unlock()
}

func (b *BusObserver) OnStateEnter(state State, gameActive bool) {
	b.mu.Lock()
	from := b.from
	b.mu.Unlock()

	eventbus.Publish(b.bus, StateChanged{From: from, To: state, GameActive: gameActive})
}

func (b *BusObserver) OnGameActivityChanged(active bool) {
	eventbus.Publish(b.bus, GameActivityChanged{Active: active})
}
