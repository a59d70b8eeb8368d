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

const (
	// DefaultTickInterval is the interval between two simulation ticks.
	// The game loop state machine performs at most one transition per tick.
	DefaultTickInterval = 16 * time.Millisecond

	// StarvationThreshold defines when to consider the control loop starved.
	// If no tick has been processed for this duration, the starvation
	// detector logs warnings and records metrics.
	StarvationThreshold = 5 * time.Second

	// StarvationCheckInterval is how often the starvation detector wakes up.
	StarvationCheckInterval = time.Second

	// DefaultSceneName is used when no scene has been activated yet.
	DefaultSceneName = "boot"

	// DefaultInitialScene is the scene entered once bootstrap finished.
	DefaultInitialScene = "arena"
)
