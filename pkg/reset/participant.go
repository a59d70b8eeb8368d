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

package reset

import (
	"context"
	"fmt"
)

// Phase is one step of a participant reset. Phases run strictly in order and
// every participant finishes a phase before any participant starts the next.
type Phase int

const (
	PhaseCleanup Phase = iota
	PhaseRestore
	PhaseRebind
)

// Phases lists the phases in execution order.
var Phases = []Phase{PhaseCleanup, PhaseRestore, PhaseRebind}

func (p Phase) String() string {
	switch p {
	case PhaseCleanup:
		return "cleanup"
	case PhaseRestore:
		return "restore"
	case PhaseRebind:
		return "rebind"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ResetContext is handed to a participant for one phase of one run.
// RequestSerial and FrameStarted let a participant detect that it is looking
// at a stale run when resets overlap.
type ResetContext struct {
	SceneName     string
	Request       ResetRequest
	RunID         string
	RequestSerial uint64
	FrameStarted  uint64
	CurrentPhase  Phase
}

// Participant is a unit of gameplay state that can reset itself.
type Participant interface {
	ID() string
	// Order sorts participants within a phase, lowest first.
	Order() int
	Cleanup(ctx context.Context, rc ResetContext) error
	Restore(ctx context.Context, rc ResetContext) error
	Rebind(ctx context.Context, rc ResetContext) error
}

// KindProvider is an optional capability naming the participant's kind for scoped resets.
type KindProvider interface {
	Kind() string
}

// ParticipantSource lists the participants registered for a scene.
type ParticipantSource interface {
	ParticipantsFor(scene string) []Participant
}

// ParticipantSourceFunc adapts a function to ParticipantSource.
type ParticipantSourceFunc func(scene string) []Participant

// ParticipantsFor calls f.
func (f ParticipantSourceFunc) ParticipantsFor(scene string) []Participant { return f(scene) }

// FrameClock supplies the simulation frame a run started on.
type FrameClock interface {
	CurrentFrame() uint64
}

// FrameClockFunc adapts a function to FrameClock.
type FrameClockFunc func() uint64

// CurrentFrame calls f.
func (f FrameClockFunc) CurrentFrame() uint64 { return f() }

func runPhase(ctx context.Context, p Participant, rc ResetContext) error {
	switch rc.CurrentPhase {
	case PhaseCleanup:
		return p.Cleanup(ctx, rc)
	case PhaseRestore:
		return p.Restore(ctx, rc)
	case PhaseRebind:
		return p.Rebind(ctx, rc)
	default:
		return fmt.Errorf("unknown reset phase %s", rc.CurrentPhase)
	}
}
