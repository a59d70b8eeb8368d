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

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"

	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
	"github.com/united-manufacturing-hub/playloop/pkg/gameloop"
)

var _ = Describe("BusObserver", func() {
	It("publishes state and activity changes", func() {
		log := zaptest.NewLogger(GinkgoT()).Sugar()
		bus := eventbus.New(log)
		source := gameloop.NewLatchedSource(log)

		var (
			changes  []gameloop.StateChanged
			activity []bool
		)

		eventbus.Subscribe(bus, func(e gameloop.StateChanged) { changes = append(changes, e) })
		eventbus.Subscribe(bus, func(e gameloop.GameActivityChanged) { activity = append(activity, e.Active) })

		second := &recordingObserver{}
		machine := gameloop.NewMachine(source, gameloop.MultiObserver{gameloop.NewBusObserver(bus), second}, log)

		for _, sig := range []gameloop.Signal{gameloop.SignalStart, gameloop.SignalStart, gameloop.SignalReset} {
			source.Raise(sig)
			machine.Update(context.Background())
		}

		Expect(changes).To(Equal([]gameloop.StateChanged{
			{From: gameloop.Boot, To: gameloop.Ready},
			{From: gameloop.Ready, To: gameloop.Playing, GameActive: true},
			{From: gameloop.Playing, To: gameloop.Boot},
		}))
		Expect(activity).To(Equal([]bool{true, false}))
		Expect(second.calls).To(HaveLen(8))
	})
})
