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

package reset_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/united-manufacturing-hub/playloop/internal/resettest"
	"github.com/united-manufacturing-hub/playloop/pkg/reset"
)

var _ = Describe("Discoverer", func() {
	var (
		player *resettest.KindedParticipant
		enemy  *resettest.KindedParticipant
		plain  *resettest.Participant
		source resettest.Source
	)

	ids := func(ps []reset.Participant) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.ID()
		}

		return out
	}

	BeforeEach(func() {
		player = &resettest.KindedParticipant{Participant: resettest.NewParticipant("player", 10, nil), KindName: "player"}
		enemy = &resettest.KindedParticipant{Participant: resettest.NewParticipant("enemy", 5, nil), KindName: "antagonist"}
		plain = resettest.NewParticipant("crate", 5, nil)
		source = resettest.Source{"arena": {player, enemy, plain}}
	})

	It("returns every participant of the scene sorted by order then id", func() {
		d := reset.NewDiscoverer(source, nil).Discover(reset.ResetRequest{TargetScene: "arena"})
		Expect(ids(d.Participants)).To(Equal([]string{"crate", "enemy", "player"}))
		Expect(d.Fallbacks).To(BeEmpty())
	})

	It("returns nothing for an unknown scene", func() {
		d := reset.NewDiscoverer(source, nil).Discover(reset.ResetRequest{TargetScene: "menu"})
		Expect(d.Participants).To(BeEmpty())
	})

	It("filters by id", func() {
		d := reset.NewDiscoverer(source, nil).Discover(reset.ResetRequest{TargetScene: "arena", Scope: reset.ScopeIDs("player", "ghost")})
		Expect(ids(d.Participants)).To(Equal([]string{"player"}))
	})

	It("filters by kind using the capability and excludes unknown kinds without a matcher", func() {
		d := reset.NewDiscoverer(source, nil).Discover(reset.ResetRequest{TargetScene: "arena", Scope: reset.ScopeKind("antagonist")})
		Expect(ids(d.Participants)).To(Equal([]string{"enemy"}))
		Expect(d.Fallbacks).To(BeEmpty())
	})

	It("records every fallback decision", func() {
		d := reset.NewDiscoverer(source, reset.TypeNameMatcher).Discover(reset.ResetRequest{TargetScene: "arena", Scope: reset.ScopeKind("participant")})
		Expect(ids(d.Participants)).To(Equal([]string{"crate"}))
		Expect(d.Fallbacks).To(Equal([]string{"crate"}))
	})

	It("tolerates a nil discoverer", func() {
		var d *reset.Discoverer
		Expect(d.Discover(reset.ResetRequest{}).Participants).To(BeEmpty())
	})
})
