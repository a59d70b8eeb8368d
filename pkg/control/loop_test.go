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

package control_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"

	"github.com/united-manufacturing-hub/playloop/pkg/control"
	"github.com/united-manufacturing-hub/playloop/pkg/gameloop"
	"github.com/united-manufacturing-hub/playloop/pkg/starvationchecker"
)

// raise latches signals and advances the loop one frame per signal.
func raise(ctx context.Context, loop *control.ControlLoop, source *gameloop.LatchedSource, signals ...gameloop.Signal) {
	for _, s := range signals {
		source.Raise(s)
		Expect(loop.Tick(ctx)).To(Succeed())
	}
}

var _ = Describe("ControlLoop", func() {
	var (
		ctx     context.Context
		source  *gameloop.LatchedSource
		machine *gameloop.Machine
		loop    *control.ControlLoop
	)

	BeforeEach(func() {
		ctx = context.Background()
		log := zaptest.NewLogger(GinkgoT()).Sugar()
		source = gameloop.NewLatchedSource(log)
		machine = gameloop.NewMachine(source, nil, log)
		loop = control.NewControlLoop(machine, time.Second, nil)
	})

	Describe("Tick", func() {
		It("counts frames even when nothing changes", func() {
			Expect(loop.Tick(ctx)).To(Succeed())
			Expect(loop.Tick(ctx)).To(Succeed())

			Expect(loop.CurrentFrame()).To(Equal(uint64(2)))
			Expect(machine.Current()).To(Equal(gameloop.Boot))
		})

		It("performs at most one transition per frame", func() {
			source.Raise(gameloop.SignalStart)
			Expect(loop.Tick(ctx)).To(Succeed())
			Expect(machine.Current()).To(Equal(gameloop.Ready))

			// Start was consumed; the next frame needs a new request.
			Expect(loop.Tick(ctx)).To(Succeed())
			Expect(machine.Current()).To(Equal(gameloop.Ready))

			raise(ctx, loop, source, gameloop.SignalStart)
			Expect(machine.Current()).To(Equal(gameloop.Playing))
		})

		It("returns the context error once the loop is cancelled", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			Expect(loop.Tick(cancelled)).To(MatchError(context.Canceled))
			Expect(loop.CurrentFrame()).To(BeZero())
		})

		It("converts a panicking signal source into an error", func() {
			panicking := gameloop.NewMachine(gameloop.SignalSourceFunc(func() gameloop.Signals {
				panic("input device lost")
			}), nil, nil)
			loop = control.NewControlLoop(panicking, time.Second, nil)

			err := loop.Tick(ctx)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("input device lost"))
			Expect(loop.CurrentFrame()).To(Equal(uint64(1)))
		})

		It("feeds the starvation checker", func() {
			checker := starvationchecker.NewStarvationChecker(time.Minute)
			defer checker.Stop()

			loop = control.NewControlLoop(machine, time.Second, checker)
			before := checker.GetLastTick()

			time.Sleep(5 * time.Millisecond)
			Expect(loop.Tick(ctx)).To(Succeed())

			Expect(checker.GetLastTick()).To(BeTemporally(">", before))
		})
	})

	Describe("Execute", func() {
		It("ticks until the context is cancelled", func() {
			loop = control.NewControlLoop(machine, 5*time.Millisecond, nil)
			runCtx, cancel := context.WithCancel(ctx)

			done := make(chan error, 1)
			go func() {
				defer GinkgoRecover()
				done <- loop.Execute(runCtx)
			}()

			source.Raise(gameloop.SignalStart)
			Eventually(machine.Current, time.Second, 5*time.Millisecond).Should(Equal(gameloop.Ready))
			Eventually(loop.CurrentFrame, time.Second, 5*time.Millisecond).Should(BeNumerically(">=", 3))

			cancel()
			Eventually(done, time.Second).Should(Receive(BeNil()))
		})
	})
})
