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

package gameloop_test

import (
	"context"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"

	"github.com/united-manufacturing-hub/playloop/pkg/gameloop"
)

// recordingObserver captures notifications as strings such as "exit:boot".
type recordingObserver struct {
	calls   []string
	onEnter func(gameloop.State)
}

func (r *recordingObserver) OnStateExit(s gameloop.State) {
	r.calls = append(r.calls, "exit:"+string(s))
}

func (r *recordingObserver) OnStateEnter(s gameloop.State, active bool) {
	r.calls = append(r.calls, fmt.Sprintf("enter:%s:%t", s, active))
	if r.onEnter != nil {
		r.onEnter(s)
	}
}

func (r *recordingObserver) OnGameActivityChanged(active bool) {
	r.calls = append(r.calls, fmt.Sprintf("active:%t", active))
}

func (r *recordingObserver) activityCalls() int {
	n := 0

	for _, c := range r.calls {
		if c == "active:true" || c == "active:false" {
			n++
		}
	}

	return n
}

var _ = Describe("Next", func() {
	all := gameloop.Signals{}.
		With(gameloop.SignalReady).
		With(gameloop.SignalStart).
		With(gameloop.SignalIntroStage).
		With(gameloop.SignalIntroCompleted).
		With(gameloop.SignalPause).
		With(gameloop.SignalEnd).
		With(gameloop.SignalResume)

	DescribeTable("per-state rules",
		func(from gameloop.State, signals gameloop.Signals, expected gameloop.State) {
			next, _ := gameloop.Next(from, signals)
			Expect(next).To(Equal(expected))
		},
		Entry("boot+start -> ready", gameloop.Boot, gameloop.Signals{StartRequested: true}, gameloop.Ready),
		Entry("ready+intro beats start", gameloop.Ready, gameloop.Signals{IntroStageRequested: true, StartRequested: true}, gameloop.IntroStage),
		Entry("ready+start -> playing", gameloop.Ready, gameloop.Signals{StartRequested: true}, gameloop.Playing),
		Entry("intro needs start and completed", gameloop.IntroStage, gameloop.Signals{StartRequested: true}, gameloop.IntroStage),
		Entry("intro completed alone is not enough", gameloop.IntroStage, gameloop.Signals{IntroStageCompleted: true}, gameloop.IntroStage),
		Entry("intro start+completed -> playing", gameloop.IntroStage, gameloop.Signals{StartRequested: true, IntroStageCompleted: true}, gameloop.Playing),
		Entry("playing end beats pause", gameloop.Playing, gameloop.Signals{EndRequested: true, PauseRequested: true}, gameloop.PostPlay),
		Entry("playing+pause -> paused", gameloop.Playing, gameloop.Signals{PauseRequested: true}, gameloop.Paused),
		Entry("paused+resume -> playing", gameloop.Paused, gameloop.Signals{ResumeRequested: true}, gameloop.Playing),
		Entry("post play+start -> ready", gameloop.PostPlay, gameloop.Signals{StartRequested: true}, gameloop.Ready),
		Entry("ready request does not hijack playing", gameloop.Playing, gameloop.Signals{ReadyRequested: true, PauseRequested: true}, gameloop.Paused),
		Entry("ready request from paused", gameloop.Paused, gameloop.Signals{ReadyRequested: true, ResumeRequested: true}, gameloop.Ready),
		Entry("ready request from intro", gameloop.IntroStage, gameloop.Signals{ReadyRequested: true}, gameloop.Ready),
		Entry("ready request while ready falls through to start", gameloop.Ready, gameloop.Signals{ReadyRequested: true, StartRequested: true}, gameloop.Playing),
		Entry("paused ignores start", gameloop.Paused, gameloop.Signals{StartRequested: true}, gameloop.Paused),
		Entry("no signals", gameloop.Playing, gameloop.Signals{}, gameloop.Playing),
	)

	It("always picks Boot when a reset is requested", func() {
		for _, from := range gameloop.AllStates {
			next, event := gameloop.Next(from, all.With(gameloop.SignalReset))
			Expect(next).To(Equal(gameloop.Boot), "from %s", from)

			if from == gameloop.Boot {
				Expect(event).To(BeEmpty())
			} else {
				Expect(event).To(Equal(gameloop.EventReset))
			}
		}
	})
})

var _ = Describe("Machine", func() {
	var (
		source   *gameloop.LatchedSource
		observer *recordingObserver
		machine  *gameloop.Machine
		ctx      context.Context
	)

	BeforeEach(func() {
		ctx = context.Background()
		log := zaptest.NewLogger(GinkgoT()).Sugar()
		source = gameloop.NewLatchedSource(log)
		observer = &recordingObserver{}
		machine = gameloop.NewMachine(source, observer, log)
	})

	step := func(sigs ...gameloop.Signal) (gameloop.Transition, bool) {
		for _, s := range sigs {
			source.Raise(s)
		}

		return machine.Update(ctx)
	}

	driveTo := func(target gameloop.State) {
		path := map[gameloop.State][]gameloop.Signal{
			gameloop.Ready:      {gameloop.SignalStart},
			gameloop.Playing:    {gameloop.SignalStart, gameloop.SignalStart},
			gameloop.Paused:     {gameloop.SignalStart, gameloop.SignalStart, gameloop.SignalPause},
			gameloop.PostPlay:   {gameloop.SignalStart, gameloop.SignalStart, gameloop.SignalEnd},
			gameloop.IntroStage: {gameloop.SignalStart, gameloop.SignalIntroStage},
		}
		for _, s := range path[target] {
			_, ok := step(s)
			Expect(ok).To(BeTrue())
		}

		Expect(machine.Current()).To(Equal(target))
		observer.calls = nil
	}

	It("starts in Boot", func() {
		Expect(machine.Current()).To(Equal(gameloop.Boot))
		Expect(machine.State().Transitions).To(BeZero())
	})

	It("resumes from Paused in one update and then stays", func() {
		driveTo(gameloop.Paused)

		tr, ok := step(gameloop.SignalResume)
		Expect(ok).To(BeTrue())
		Expect(tr).To(Equal(gameloop.Transition{From: gameloop.Paused, To: gameloop.Playing, Event: gameloop.EventResume}))

		_, ok = step()
		Expect(ok).To(BeFalse())
		Expect(machine.Current()).To(Equal(gameloop.Playing))
	})

	It("performs at most one transition per update", func() {
		// Start would chain Boot -> Ready -> Playing if it were applied twice.
		_, ok := step(gameloop.SignalStart)
		Expect(ok).To(BeTrue())
		Expect(machine.Current()).To(Equal(gameloop.Ready))
		Expect(machine.State().Transitions).To(Equal(uint64(1)))
	})

	It("consumes signals when polled", func() {
		step(gameloop.SignalStart)
		_, ok := step()
		Expect(ok).To(BeFalse())
		Expect(machine.Current()).To(Equal(gameloop.Ready))
	})

	It("notifies exit, enter and activity in order", func() {
		driveTo(gameloop.Ready)

		step(gameloop.SignalStart)
		Expect(observer.calls).To(Equal([]string{"exit:ready", "enter:playing:true", "active:true"}))

		observer.calls = nil
		step(gameloop.SignalPause)
		Expect(observer.calls).To(Equal([]string{"exit:playing", "enter:paused:false", "active:false"}))
	})

	It("does not report activity changes between non playing states", func() {
		step(gameloop.SignalStart)
		step(gameloop.SignalIntroStage)
		step(gameloop.SignalReady)
		step(gameloop.SignalReset)

		Expect(observer.activityCalls()).To(BeZero())
	})

	It("resets to Boot from every state and counts resets", func() {
		for _, target := range []gameloop.State{gameloop.Ready, gameloop.IntroStage, gameloop.Playing, gameloop.Paused, gameloop.PostPlay} {
			driveTo(target)

			tr, ok := step(gameloop.SignalReset, gameloop.SignalStart, gameloop.SignalResume)
			Expect(ok).To(BeTrue())
			Expect(tr.To).To(Equal(gameloop.Boot))
		}

		Expect(machine.State().Resets).To(Equal(uint64(5)))
	})

	It("treats a reset in Boot as a no-op", func() {
		_, ok := step(gameloop.SignalReset, gameloop.SignalStart)
		Expect(ok).To(BeFalse())
		Expect(observer.calls).To(BeEmpty())
	})

	It("returns to Ready after PostPlay", func() {
		driveTo(gameloop.PostPlay)

		_, ok := step(gameloop.SignalStart)
		Expect(ok).To(BeTrue())
		Expect(machine.Current()).To(Equal(gameloop.Ready))
	})

	It("ignores an Update triggered from inside an observer", func() {
		var nested bool

		observer.onEnter = func(gameloop.State) {
			source.Raise(gameloop.SignalStart)
			_, nested = machine.Update(ctx)
		}

		step(gameloop.SignalStart)
		Expect(nested).To(BeFalse())
		Expect(machine.Current()).To(Equal(gameloop.Ready))
	})

	It("survives a panicking observer", func() {
		observer.onEnter = func(gameloop.State) { panic("observer bug") }

		_, ok := step(gameloop.SignalStart)
		Expect(ok).To(BeTrue())

		observer.onEnter = nil
		_, ok = step(gameloop.SignalStart)
		Expect(ok).To(BeTrue())
		Expect(machine.Current()).To(Equal(gameloop.Playing))
	})

	Describe("capabilities", func() {
		It("allows gameplay only while playing and UI/system everywhere else", func() {
			for _, s := range gameloop.AllStates {
				Expect(gameloop.IsGameplayActionAllowed(s)).To(Equal(s == gameloop.Playing))
				Expect(gameloop.IsUiActionAllowed(s)).To(Equal(s != gameloop.Playing))
				Expect(gameloop.IsSystemActionAllowed(s)).To(Equal(s != gameloop.Playing))
			}

			driveTo(gameloop.Playing)
			Expect(machine.IsGameplayActionAllowed()).To(BeTrue())
			Expect(machine.IsUiActionAllowed()).To(BeFalse())
			Expect(machine.State().GameActive).To(BeTrue())
		})
	})
})
