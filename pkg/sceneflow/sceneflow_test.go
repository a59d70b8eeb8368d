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

package sceneflow_test

import (
	"context"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"

	"github.com/united-manufacturing-hub/playloop/internal/resettest"
	"github.com/united-manufacturing-hub/playloop/pkg/config"
	"github.com/united-manufacturing-hub/playloop/pkg/constants"
	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
	"github.com/united-manufacturing-hub/playloop/pkg/reset"
	"github.com/united-manufacturing-hub/playloop/pkg/sceneflow"
	"github.com/united-manufacturing-hub/playloop/pkg/simgate"
)

type resetterFunc func(ctx context.Context, req reset.ResetRequest)

func (f resetterFunc) TriggerReset(ctx context.Context, req reset.ResetRequest) { f(ctx, req) }

var _ = Describe("Service", func() {
	var (
		bus       *eventbus.Bus
		gate      *simgate.Service
		resets    *reset.Service
		calls     *resettest.CallLog
		source    resettest.Source
		flow      *sceneflow.Service
		activated []sceneflow.SceneActivated
		ctx       context.Context
	)

	newFlow := func(resetter sceneflow.Resetter) *sceneflow.Service {
		cfg := config.DefaultConfig()
		cfg.Reset.GameplayProfiles = []string{"gameplay", "arcade"}

		return sceneflow.NewService(sceneflow.Config{
			Gate:              gate,
			Resets:            resetter,
			Bus:               bus,
			IsGameplayProfile: cfg.Reset.IsGameplayProfile,
			InitialScene:      "menu",
			Logger:            zaptest.NewLogger(GinkgoT()).Sugar(),
		})
	}

	BeforeEach(func() {
		log := zaptest.NewLogger(GinkgoT()).Sugar()
		ctx = context.Background()
		bus = eventbus.New(log)
		gate = simgate.NewService(log)
		calls = &resettest.CallLog{}
		source = resettest.Source{
			"arena": {resettest.NewParticipant("enemy", 0, calls)},
			"menu":  {resettest.NewParticipant("cursor", 0, calls)},
		}

		orchestrator := reset.NewOrchestrator(reset.OrchestratorConfig{
			Bus:        bus,
			Policy:     reset.NewPolicy(false, nil),
			Discoverer: reset.NewDiscoverer(source, reset.TypeNameMatcher),
			Logger:     log,
		})
		resets = reset.NewService(orchestrator, bus, log)
		flow = newFlow(resets)

		activated = nil
		sub := eventbus.Subscribe(bus, func(e sceneflow.SceneActivated) {
			activated = append(activated, e)
		})
		DeferCleanup(sub.Close)
	})

	It("derives a stable, prefixed signature per transition", func() {
		sig := sceneflow.Signature("menu", "arena", "gameplay")

		Expect(sig).To(HavePrefix(constants.SignatureSceneFlowPrefix))
		Expect(sig).To(Equal(sceneflow.Signature("menu", "arena", "gameplay")))
		Expect(sig).NotTo(Equal(sceneflow.Signature("menu", "arena", "arcade")))
		Expect(sig).NotTo(Equal(sceneflow.Signature("arena", "menu", "gameplay")))
	})

	It("resets the target scene for gameplay profiles and activates it", func() {
		completed, err := flow.Transition(ctx, "menu", "arena", "arcade")
		Expect(err).NotTo(HaveOccurred())

		Expect(completed.Outcome).To(Equal(reset.OutcomeSucceeded))
		Expect(completed.Scene).To(Equal("arena"))
		Expect(calls.Entries()).To(Equal([]string{"enemy:cleanup", "enemy:restore", "enemy:rebind"}))

		Expect(flow.ActiveScene()).To(Equal("arena"))
		Expect(flow.ActiveProfile()).To(Equal("arcade"))
		Expect(activated).To(HaveLen(1))
		Expect(activated[0].Scene).To(Equal("arena"))
		Expect(activated[0].Reset.Signature).To(Equal(sceneflow.Signature("menu", "arena", "arcade")))
	})

	It("skips the world reset for non-gameplay profiles but still activates the scene", func() {
		completed, err := flow.Transition(ctx, "arena", "menu", "loading")
		Expect(err).NotTo(HaveOccurred())

		Expect(completed.Outcome).To(Equal(reset.OutcomeSkipped))
		Expect(completed.Violation).To(BeFalse())
		Expect(strings.HasPrefix(completed.Reason, constants.ReasonNonGameplayProfile)).To(BeTrue())
		Expect(calls.Entries()).To(BeEmpty())

		Expect(flow.ActiveScene()).To(Equal("menu"))
		Expect(activated).To(HaveLen(1))
	})

	It("holds the scene transition token only while transitioning", func() {
		var heldDuringReset bool
		flow = newFlow(resetterFunc(func(ctx context.Context, req reset.ResetRequest) {
			heldDuringReset = gate.IsTokenActive(constants.GateTokenSceneTransition)
			resets.TriggerReset(ctx, req)
		}))

		_, err := flow.Transition(ctx, "menu", "arena", "gameplay")
		Expect(err).NotTo(HaveOccurred())

		Expect(heldDuringReset).To(BeTrue())
		Expect(gate.IsTokenActive(constants.GateTokenSceneTransition)).To(BeFalse())
	})

	It("rejects a second transition while one is running", func() {
		blocker := resettest.NewBlockingParticipant("loader", calls)
		source["arena"] = []reset.Participant{blocker}

		done := make(chan error, 1)
		go func() {
			defer GinkgoRecover()
			_, err := flow.Transition(ctx, "menu", "arena", "gameplay")
			done <- err
		}()

		Eventually(blocker.Entered()).Should(BeClosed())

		_, err := flow.Transition(ctx, "menu", "arena", "gameplay")
		Expect(err).To(MatchError(sceneflow.ErrTransitionInProgress))

		blocker.Release()
		Eventually(done, time.Second).Should(Receive(BeNil()))
		Expect(flow.ActiveScene()).To(Equal("arena"))
	})

	It("does not change the active scene when the context is cancelled", func() {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()

		_, err := flow.Transition(cancelled, "menu", "arena", "gameplay")
		Expect(err).To(MatchError(context.Canceled))
		Expect(flow.ActiveScene()).To(Equal("menu"))
		Expect(activated).To(BeEmpty())
	})

	It("rejects an empty target scene", func() {
		_, err := flow.Transition(ctx, "menu", "", "gameplay")
		Expect(err).To(HaveOccurred())
	})
})
