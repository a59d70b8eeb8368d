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
	"go.uber.org/zap/zaptest"

	"github.com/united-manufacturing-hub/playloop/pkg/constants"
	"github.com/united-manufacturing-hub/playloop/pkg/reset"
	"github.com/united-manufacturing-hub/playloop/pkg/simgate"
)

var _ = Describe("Validators", func() {
	policy := reset.NewPolicy(false, nil)

	Describe("SignatureValidator", func() {
		DescribeTable("rejects blank signatures as violations",
			func(sig string) {
				d := reset.SignatureValidator{}.Validate(reset.ResetRequest{ContextSignature: sig}, policy)
				Expect(d.ShouldProceed).To(BeFalse())
				Expect(d.IsViolation).To(BeTrue())
				Expect(d.ShouldPublishCompletion).To(BeTrue())
				Expect(d.Reason).To(Equal(constants.ReasonMissingSignature))
			},
			Entry("empty", ""),
			Entry("whitespace", "  \t"),
		)

		It("accepts a signature", func() {
			d := reset.SignatureValidator{}.Validate(reset.ResetRequest{ContextSignature: "sig"}, policy)
			Expect(d.ShouldProceed).To(BeTrue())
		})
	})

	Describe("ProfileValidator", func() {
		It("skips scene flow resets into non gameplay profiles", func() {
			d := reset.ProfileValidator{}.Validate(reset.ResetRequest{
				ContextSignature: "sig", Origin: reset.OriginSceneFlow, ProfileName: "menu",
			}, policy)
			Expect(d.ShouldProceed).To(BeFalse())
			Expect(d.IsViolation).To(BeFalse())
			Expect(d.ShouldPublishCompletion).To(BeTrue())
			Expect(d.Reason).To(Equal(constants.ReasonNonGameplayProfile + ":menu"))
			Expect(d.Outcome()).To(Equal(reset.OutcomeSkipped))
		})

		It("normalizes a custom reason to the skipped prefix", func() {
			d := reset.ProfileValidator{SkipReason: "MenuScene"}.Validate(reset.ResetRequest{
				ContextSignature: "sig", Origin: reset.OriginSceneFlow,
			}, policy)
			Expect(d.Reason).To(Equal(constants.ReasonPrefixSkipped + "MenuScene"))
		})

		It("lets manual and gameplay requests through", func() {
			Expect(reset.ProfileValidator{}.Validate(reset.ResetRequest{Origin: reset.OriginManual}, policy).ShouldProceed).To(BeTrue())
			Expect(reset.ProfileValidator{}.Validate(reset.ResetRequest{
				Origin: reset.OriginSceneFlow, IsGameplayProfile: true,
			}, policy).ShouldProceed).To(BeTrue())
		})
	})

	It("stops at the first failing validator", func() {
		d, name := reset.RunValidators(reset.DefaultValidators(), reset.ResetRequest{
			Origin: reset.OriginSceneFlow, ProfileName: "menu",
		}, policy)
		Expect(name).To(Equal("signature"))
		Expect(d.IsViolation).To(BeTrue())
	})

	Describe("NormalizeSkipReason", func() {
		It("keeps prefixed reasons untouched", func() {
			r := constants.ReasonPrefixSkipped + "X"
			Expect(reset.NormalizeSkipReason(r, "fallback", "s")).To(Equal(r))
		})

		It("falls back without a subject", func() {
			Expect(reset.NormalizeSkipReason(" ", "fallback", "")).To(Equal("fallback"))
		})
	})

	It("marks suppressed decisions", func() {
		d := reset.Skip("r", "d").Suppress()
		Expect(d.ShouldPublishCompletion).To(BeFalse())
		Expect(reset.Proceed().Outcome()).To(Equal(reset.OutcomeSucceeded))
		Expect(reset.Violation("r", "d").Outcome()).To(Equal(reset.OutcomeRejected))
	})
})

var _ = Describe("Guards", func() {
	var gate *simgate.Service

	BeforeEach(func() {
		gate = simgate.NewService(zaptest.NewLogger(GinkgoT()).Sugar())
	})

	It("skips while a blocking token is held", func() {
		release := gate.Acquire(constants.GateTokenResetLock)
		guard := reset.NewGateGuard(gate, constants.GateTokenResetLock)

		d := guard.Evaluate(reset.ResetRequest{ContextSignature: "sig"}, nil)
		Expect(d.ShouldProceed).To(BeFalse())
		Expect(d.IsViolation).To(BeFalse())
		Expect(d.Reason).To(Equal(constants.ReasonGateActive + ":" + constants.GateTokenResetLock))

		release()
		Expect(guard.Evaluate(reset.ResetRequest{}, nil).ShouldProceed).To(BeTrue())
	})

	It("short-circuits in order", func() {
		var evaluated []string

		mk := func(name string, proceed bool) reset.Guard {
			return reset.GuardFunc{Label: name, Fn: func(reset.ResetRequest, reset.Policy) reset.Decision {
				evaluated = append(evaluated, name)
				if proceed {
					return reset.Proceed()
				}

				return reset.Skip("stop:"+name, "")
			}}
		}

		d, name := reset.EvaluateGuards([]reset.Guard{mk("a", true), mk("b", false), mk("c", false)}, reset.ResetRequest{}, nil)
		Expect(name).To(Equal("b"))
		Expect(d.Reason).To(Equal("stop:b"))
		Expect(evaluated).To(Equal([]string{"a", "b"}))
	})
})
