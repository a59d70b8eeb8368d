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
)

// Validator checks the request content. Validators run after all guards passed.
type Validator interface {
	Name() string
	Validate(req ResetRequest, policy Policy) Decision
}

// SignatureValidator rejects requests without a context signature. Nothing
// past validation may run without one.
type SignatureValidator struct{}

// Name implements Validator.
func (SignatureValidator) Name() string { return "signature" }

// Validate implements Validator.
func (SignatureValidator) Validate(req ResetRequest, _ Policy) Decision {
	if strings.TrimSpace(req.ContextSignature) == "" {
		return Violation(constants.ReasonMissingSignature, "reset request has an empty context signature")
	}

	return Proceed()
}

// ProfileValidator skips scene flow resets into non gameplay profiles (menus, loading screens).
type ProfileValidator struct {
	// SkipReason overrides the skip reason. It is normalized to the skipped prefix.
	SkipReason string
}

// Name implements Validator.
func (ProfileValidator) Name() string { return "profile" }

// Validate implements Validator.
func (v ProfileValidator) Validate(req ResetRequest, _ Policy) Decision {
	if req.Origin != OriginSceneFlow || req.IsGameplayProfile {
		return Proceed()
	}

	reason := NormalizeSkipReason(v.SkipReason, constants.ReasonNonGameplayProfile, req.ProfileName)

	return Skip(reason, "profile "+req.ProfileName+" is not a gameplay profile")
}

// DefaultValidators returns the signature and profile validators in that order.
func DefaultValidators() []Validator {
	return []Validator{SignatureValidator{}, ProfileValidator{}}
}

// RunValidators runs validators in order; the first failing one wins.
func RunValidators(validators []Validator, req ResetRequest, policy Policy) (Decision, string) {
	for _, v := range validators {
		if d := v.Validate(req, policy); !d.ShouldProceed {
			return d, v.Name()
		}
	}

	return Proceed(), ""
}
