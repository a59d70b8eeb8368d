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

import "time"

// Outcome classifies how a reset run ended.
type Outcome string

const (
	OutcomeSucceeded      Outcome = "succeeded"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeRejected       Outcome = "rejected"
	OutcomeNoParticipants Outcome = "no_participants"
	OutcomeFailed         Outcome = "failed"
)

// ResetStarted is published once discovery found participants, before the first phase.
type ResetStarted struct {
	Signature     string
	Reason        string
	RunID         string
	Scene         string
	RequestSerial uint64
	FrameStarted  uint64
	Participants  int
}

// ResetCompleted is published exactly once for every accepted run.
// Callers learn the outcome from Reason; Outcome and Violation classify it.
type ResetCompleted struct {
	Signature     string
	Reason        string
	Outcome       Outcome
	Violation     bool
	RunID         string
	Scene         string
	RequestSerial uint64
	Duration      time.Duration
}
