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

// Decision is the result of a guard or validator.
type Decision struct {
	ShouldProceed           bool
	ShouldPublishCompletion bool
	IsViolation             bool
	Reason                  string
	Detail                  string
}

// Proceed lets the pipeline continue.
func Proceed() Decision {
	return Decision{ShouldProceed: true, ShouldPublishCompletion: true}
}

// Skip stops the pipeline as a benign skip. Completion is still published.
func Skip(reason, detail string) Decision {
	return Decision{ShouldPublishCompletion: true, Reason: reason, Detail: detail}
}

// Violation stops the pipeline and flags the request as invalid. Completion is still published.
func Violation(reason, detail string) Decision {
	return Decision{ShouldPublishCompletion: true, IsViolation: true, Reason: reason, Detail: detail}
}

// Suppress returns d without completion publication. Only use it when no
// caller can be waiting for the request, or the waiter would never resolve.
func (d Decision) Suppress() Decision {
	d.ShouldPublishCompletion = false

	return d
}

// Outcome maps a stopping decision to the completion outcome.
func (d Decision) Outcome() Outcome {
	switch {
	case d.ShouldProceed:
		return OutcomeSucceeded
	case d.IsViolation:
		return OutcomeRejected
	default:
		return OutcomeSkipped
	}
}

// NormalizeSkipReason gives a skip reason the well-known prefix so telemetry
// can pattern match it. A blank reason becomes "<fallback>:<subject>".
func NormalizeSkipReason(reason, fallback, subject string) string {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		if subject == "" {
			return fallback
		}

		return fallback + ":" + subject
	}

	if strings.HasPrefix(reason, constants.ReasonPrefixSkipped) {
		return reason
	}

	return constants.ReasonPrefixSkipped + reason
}
