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
	"fmt"
	"strings"
)

// Signals are the flags polled from the SignalSource on every Update.
// The machine only reads them; the source owns clearing.
type Signals struct {
	ResetRequested      bool
	ReadyRequested      bool
	StartRequested      bool
	IntroStageRequested bool
	IntroStageCompleted bool
	PauseRequested      bool
	EndRequested        bool
	ResumeRequested     bool
}

// Signal names one of the Signals flags.
type Signal int

const (
	SignalReset Signal = iota
	SignalReady
	SignalStart
	SignalIntroStage
	SignalIntroCompleted
	SignalPause
	SignalEnd
	SignalResume
)

var signalNames = map[Signal]string{
	SignalReset:          "reset",
	SignalReady:          "ready",
	SignalStart:          "start",
	SignalIntroStage:     "intro",
	SignalIntroCompleted: "intro_completed",
	SignalPause:          "pause",
	SignalEnd:            "end",
	SignalResume:         "resume",
}

func (s Signal) String() string {
	if name, ok := signalNames[s]; ok {
		return name
	}

	return fmt.Sprintf("signal(%d)", int(s))
}

// ParseSignal maps a signal name (case insensitive) back to its Signal.
func ParseSignal(name string) (Signal, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for sig, n := range signalNames {
		if n == name {
			return sig, nil
		}
	}

	return 0, fmt.Errorf("unknown game loop signal %q", name)
}

// With returns a copy of s with sig raised.
func (s Signals) With(sig Signal) Signals {
	switch sig {
	case SignalReset:
		s.ResetRequested = true
	case SignalReady:
		s.ReadyRequested = true
	case SignalStart:
		s.StartRequested = true
	case SignalIntroStage:
		s.IntroStageRequested = true
	case SignalIntroCompleted:
		s.IntroStageCompleted = true
	case SignalPause:
		s.PauseRequested = true
	case SignalEnd:
		s.EndRequested = true
	case SignalResume:
		s.ResumeRequested = true
	}

	return s
}

// Merge returns the union of s and other.
func (s Signals) Merge(other Signals) Signals {
	return Signals{
		ResetRequested:      s.ResetRequested || other.ResetRequested,
		ReadyRequested:      s.ReadyRequested || other.ReadyRequested,
		StartRequested:      s.StartRequested || other.StartRequested,
		IntroStageRequested: s.IntroStageRequested || other.IntroStageRequested,
		IntroStageCompleted: s.IntroStageCompleted || other.IntroStageCompleted,
		PauseRequested:      s.PauseRequested || other.PauseRequested,
		EndRequested:        s.EndRequested || other.EndRequested,
		ResumeRequested:     s.ResumeRequested || other.ResumeRequested,
	}
}

// Any reports whether at least one flag is raised.
func (s Signals) Any() bool {
	return s != Signals{}
}

// SignalSource supplies the flags for one Update call.
type SignalSource interface {
	Poll() Signals
}

// SignalSourceFunc adapts a function to SignalSource.
type SignalSourceFunc func() Signals

// Poll calls f.
func (f SignalSourceFunc) Poll() Signals { return f() }
