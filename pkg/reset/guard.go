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
	"strings"

	"github.com/united-manufacturing-hub/playloop/pkg/constants"
	"github.com/united-manufacturing-hub/playloop/pkg/simgate"
)

// Guard checks an environment precondition before any request content is looked at.
type Guard interface {
	Name() string
	Evaluate(req ResetRequest, policy Policy) Decision
}

// GateGuard blocks resets while any of its tokens is held on the simulation gate.
type GateGuard struct {
	gate   simgate.Gate
	tokens []string
}

// NewGateGuard creates a guard over tokens.
func NewGateGuard(gate simgate.Gate, tokens ...string) *GateGuard {
	return &GateGuard{gate: gate, tokens: append([]string(nil), tokens...)}
}

// Name implements Guard.
func (g *GateGuard) Name() string { return "gate" }

// Evaluate implements Guard.
func (g *GateGuard) Evaluate(req ResetRequest, _ Policy) Decision {
	var held []string

	for _, t := range g.tokens {
		if g.gate.IsTokenActive(t) {
			held = append(held, t)
		}
	}

	if len(held) == 0 {
		return Proceed()
	}

	return Skip(constants.ReasonGateActive+":"+held[0], "simulation gate held: "+strings.Join(held, ","))
}

// GuardFunc adapts a named function to Guard.
type GuardFunc struct {
	Label string
	Fn    func(req ResetRequest, policy Policy) Decision
}

// Name implements Guard.
func (g GuardFunc) Name() string { return g.Label }

// Evaluate implements Guard.
func (g GuardFunc) Evaluate(req ResetRequest, policy Policy) Decision { return g.Fn(req, policy) }

// EvaluateGuards runs guards in order and stops at the first one that does not proceed.
// It returns that decision and the guard's name, or Proceed and "".
func EvaluateGuards(guards []Guard, req ResetRequest, policy Policy) (Decision, string) {
	for _, g := range guards {
		if d := g.Evaluate(req, policy); !d.ShouldProceed {
			return d, g.Name()
		}
	}

	return Proceed(), ""
}
