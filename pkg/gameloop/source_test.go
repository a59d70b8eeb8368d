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
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"

	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
	"github.com/united-manufacturing-hub/playloop/pkg/gameloop"
)

var _ = Describe("Signals", func() {
	It("parses every signal name back", func() {
		for _, sig := range []gameloop.Signal{
			gameloop.SignalReset, gameloop.SignalReady, gameloop.SignalStart, gameloop.SignalIntroStage,
			gameloop.SignalIntroCompleted, gameloop.SignalPause, gameloop.SignalEnd, gameloop.SignalResume,
		} {
			parsed, err := gameloop.ParseSignal(sig.String())
			Expect(err).NotTo(HaveOccurred())
			Expect(parsed).To(Equal(sig))
		}

		_, err := gameloop.ParseSignal("jump")
		Expect(err).To(HaveOccurred())
	})

	It("merges flags", func() {
		merged := gameloop.Signals{StartRequested: true}.Merge(gameloop.Signals{PauseRequested: true})
		Expect(merged).To(Equal(gameloop.Signals{StartRequested: true, PauseRequested: true}))
		Expect(merged.Any()).To(BeTrue())
		Expect(gameloop.Signals{}.Any()).To(BeFalse())
	})
})

var _ = Describe("LatchedSource", func() {
	It("latches raised signals until polled", func() {
		source := gameloop.NewLatchedSource(nil)
		source.Raise(gameloop.SignalPause)
		source.Raise(gameloop.SignalEnd)

		Expect(source.Peek().PauseRequested).To(BeTrue())
		Expect(source.Poll()).To(Equal(gameloop.Signals{PauseRequested: true, EndRequested: true}))
		Expect(source.Poll()).To(Equal(gameloop.Signals{}))
	})

	It("raises signals from loop commands on the bus", func() {
		bus := eventbus.New(zaptest.NewLogger(GinkgoT()).Sugar())
		source := gameloop.NewLatchedSource(nil)
		sub := source.Listen(bus)

		eventbus.Publish(bus, gameloop.LoopCommand{Signal: gameloop.SignalReset, Reason: "menu"})
		Expect(source.Poll().ResetRequested).To(BeTrue())

		sub.Close()
		eventbus.Publish(bus, gameloop.LoopCommand{Signal: gameloop.SignalReset})
		Expect(source.Poll().ResetRequested).To(BeFalse())
	})
})
