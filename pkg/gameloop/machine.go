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
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/metrics"
	"github.com/united-manufacturing-hub/playloop/pkg/sentry"
)

// Event names used on the underlying fsm. An event may have several sources
// with different destinations ("start" leaves Boot for Ready but Ready for Playing).
const (
	EventReset  = "reset"
	EventReady  = "ready"
	EventStart  = "start"
	EventIntro  = "intro"
	EventEnd    = "end"
	EventPause  = "pause"
	EventResume = "resume"
)

func transitions() fsm.Events {
	return fsm.Events{
		{Name: EventReset, Src: states(Ready, IntroStage, Playing, Paused, PostPlay), Dst: string(Boot)},
		{Name: EventReady, Src: states(Boot, Paused, PostPlay, IntroStage), Dst: string(Ready)},
		{Name: EventStart, Src: states(Boot, PostPlay), Dst: string(Ready)},
		{Name: EventStart, Src: states(Ready, IntroStage), Dst: string(Playing)},
		{Name: EventIntro, Src: states(Ready), Dst: string(IntroStage)},
		{Name: EventEnd, Src: states(Playing), Dst: string(PostPlay)},
		{Name: EventPause, Src: states(Playing), Dst: string(Paused)},
		{Name: EventResume, Src: states(Paused), Dst: string(Playing)},
	}
}

func states(s ...State) []string {
	out := make([]string, len(s))
	for i, st := range s {
		out[i] = string(st)
	}

	return out
}

// Next is the priority ordered transition rule. It returns the state the
// machine moves to and the fsm event that performs the move, or current and
// "" when the signals do not cause a transition.
//
//  1. ResetRequested always wins and leads to Boot.
//  2. ReadyRequested leads to Ready, but only from Boot, Paused, PostPlay or IntroStage.
//  3. Otherwise the per-state rules apply.
func Next(current State, s Signals) (State, string) {
	if s.ResetRequested {
		if current == Boot {
			return Boot, ""
		}

		return Boot, EventReset
	}

	if s.ReadyRequested {
		switch current {
		case Boot, Paused, PostPlay, IntroStage:
			return Ready, EventReady
		}
	}

	switch current {
	case Boot:
		if s.StartRequested {
			return Ready, EventStart
		}
	case Ready:
		if s.IntroStageRequested {
			return IntroStage, EventIntro
		}

		if s.StartRequested {
			return Playing, EventStart
		}
	case IntroStage:
		if s.StartRequested && s.IntroStageCompleted {
			return Playing, EventStart
		}
	case Playing:
		if s.EndRequested {
			return PostPlay, EventEnd
		}

		if s.PauseRequested {
			return Paused, EventPause
		}
	case Paused:
		if s.ResumeRequested {
			return Playing, EventResume
		}
	case PostPlay:
		if s.StartRequested {
			return Ready, EventStart
		}
	}

	return current, ""
}

// Transition describes one performed state change.
type Transition struct {
	From  State
	To    State
	Event string
}

// Snapshot is a point-in-time view of the machine.
type Snapshot struct {
	Current     State     `json:"current"`
	Previous    State     `json:"previous"`
	Transitions uint64    `json:"transitions"`
	Resets      uint64    `json:"resets"`
	LastChange  time.Time `json:"lastChange"`
	GameActive  bool      `json:"gameActive"`
}

// Machine is the game loop state machine. Update is meant to be called from
// a single goroutine once per tick; the query methods are safe from anywhere.
type Machine struct {
	fsm      *fsm.FSM
	source   SignalSource
	observer Observer
	log      *zap.SugaredLogger

	// updating rejects Update calls made from inside an observer callback.
	updating atomic.Bool

	mu          sync.RWMutex
	current     State
	previous    State
	transitions uint64
	resets      uint64
	lastChange  time.Time
}

// NewMachine creates a machine in Boot that polls source on every Update.
func NewMachine(source SignalSource, observer Observer, log *zap.SugaredLogger) *Machine {
	if observer == nil {
		observer = NopObserver{}
	}

	if log == nil {
		log = zap.NewNop().Sugar()
	}

	m := &Machine{
		source:     source,
		observer:   observer,
		log:        log,
		current:    Boot,
		previous:   Boot,
		lastChange: time.Now(),
	}

	m.fsm = fsm.NewFSM(
		string(Boot),
		transitions(),
		fsm.Callbacks{
			"leave_state": func(_ context.Context, e *fsm.Event) {
				m.notify("exit", func() { m.observer.OnStateExit(State(e.Src)) })
			},
			"enter_state": func(_ context.Context, e *fsm.Event) {
				m.enter(State(e.Src), State(e.Dst), e.Event)
			},
		},
	)

	return m
}

func (m *Machine) enter(from, to State, event string) {
	m.mu.Lock()
	m.previous = from
	m.current = to
	m.transitions++

	if event == EventReset {
		m.resets++
	}

	m.lastChange = time.Now()
	m.mu.Unlock()

	metrics.RecordTransition(string(from), string(to))
	m.log.Infof("Game loop transition %s -> %s (%s)", from, to, event)

	wasActive, isActive := IsGameActive(from), IsGameActive(to)

	m.notify("enter", func() { m.observer.OnStateEnter(to, isActive) })

	if wasActive != isActive {
		m.notify("activity", func() { m.observer.OnGameActivityChanged(isActive) })
	}
}

// notify runs an observer callback. A panicking observer must not leave the
// fsm half way through a transition.
func (m *Machine) notify(operation string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			metrics.IncErrorCount(metrics.ComponentGameLoop, "observer_"+operation)
			sentry.ReportLoopError(m.log, string(m.Current()), "observer_"+operation, fmt.Errorf("observer panicked: %v", r))
		}
	}()

	fn()
}

// Update polls the signal source and performs at most one transition.
// It returns the transition and true when the state changed.
func (m *Machine) Update(ctx context.Context) (Transition, bool) {
	if !m.updating.CompareAndSwap(false, true) {
		m.log.Debugf("Ignoring nested Update call")

		return Transition{}, false
	}
	defer m.updating.Store(false)

	signals := m.source.Poll()
	current := m.Current()

	next, event := Next(current, signals)
	if event == "" || next == current {
		return Transition{}, false
	}

	if err := m.fsm.Event(ctx, event); err != nil {
		var noTransition fsm.NoTransitionError
		if errors.As(err, &noTransition) {
			return Transition{}, false
		}

		sentry.ReportLoopError(m.log, string(current), event, err)

		return Transition{}, false
	}

	return Transition{From: current, To: next, Event: event}, true
}

// Current returns the current state.
func (m *Machine) Current() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.current
}

// State returns a snapshot of the machine.
func (m *Machine) State() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return Snapshot{
		Current:     m.current,
		Previous:    m.previous,
		Transitions: m.transitions,
		Resets:      m.resets,
		LastChange:  m.lastChange,
		GameActive:  IsGameActive(m.current),
	}
}

// IsGameActive reports whether the machine is Playing.
func (m *Machine) IsGameActive() bool { return IsGameActive(m.Current()) }

// IsGameplayActionAllowed reports what the loop state alone permits.
// Callers needing the final answer also consult the simulation gate.
func (m *Machine) IsGameplayActionAllowed() bool { return IsGameplayActionAllowed(m.Current()) }

// IsUiActionAllowed reports what the loop state alone permits.
func (m *Machine) IsUiActionAllowed() bool { return IsUiActionAllowed(m.Current()) }

// IsSystemActionAllowed reports what the loop state alone permits.
func (m *Machine) IsSystemActionAllowed() bool { return IsSystemActionAllowed(m.Current()) }
