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

package constants

import "time"

// Feature identifiers handed to the degraded-mode reporter.
const (
	FeatureWorldReset = "WorldReset"
	FeatureSceneFlow  = "SceneFlow"
	FeatureDiscovery  = "WorldReset.Discovery"
)

// Reason strings published on ResetCompleted. Consumers pattern-match on the
// prefixes, so they are part of the observable contract.
const (
	ReasonPrefixSkipped  = "WorldReset/Skipped/"
	ReasonPrefixGuarded  = "WorldReset/Guarded/"
	ReasonPrefixInvalid  = "WorldReset/Invalid/"
	ReasonPrefixFailed   = "WorldReset/Failed/"
	ReasonPrefixDegraded = "WorldReset/Degraded/"

	ReasonMissingSignature   = ReasonPrefixInvalid + "MissingSignature"
	ReasonNonGameplayProfile = ReasonPrefixSkipped + "NonGameplayProfile"
	ReasonGateActive         = ReasonPrefixGuarded + "GateActive"
	ReasonNoController       = ReasonPrefixFailed + "NoController"
	ReasonExecutionFailed    = ReasonPrefixFailed + "Execution"
	ReasonOrchestratorFailed = ReasonPrefixFailed + "Orchestrator"
	ReasonKindFallback       = ReasonPrefixDegraded + "KindFallback"

	// ReasonCompleted is used when a successful run carried no reason of its own.
	ReasonCompleted = "WorldReset/Completed"
)

const (
	// DefaultMaxParallelParticipants keeps participants of one phase strictly ordered.
	DefaultMaxParallelParticipants = 1

	// DefaultResetHistoryTTL is how long a finished reset stays in the history.
	DefaultResetHistoryTTL = 10 * time.Minute

	// ResetHistoryCullInterval is how often expired history entries are dropped.
	ResetHistoryCullInterval = time.Minute

	// DefaultGameplayProfile is the profile name treated as gameplay when none is configured.
	DefaultGameplayProfile = "gameplay"

	// SignatureManualPrefix prefixes signatures created by the loop reset bridge.
	SignatureManualPrefix = "manual:"

	// SignatureSceneFlowPrefix prefixes signatures created by scene transitions.
	SignatureSceneFlowPrefix = "sceneflow:"
)
