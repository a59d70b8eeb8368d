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

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/tiendc/go-deepcopy"

	"github.com/united-manufacturing-hub/playloop/pkg/constants"
)

// FullConfig is the complete playloop configuration as stored in the YAML file.
type FullConfig struct {
	Loop      LoopConfig      `yaml:"loop"`
	Reset     ResetConfig     `yaml:"reset"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// LoopConfig configures the simulation tick driver.
type LoopConfig struct {
	TickInterval        time.Duration `yaml:"tickInterval"`
	StarvationThreshold time.Duration `yaml:"starvationThreshold"`
	InitialScene        string        `yaml:"initialScene"`
}

// ResetConfig configures the world reset pipeline.
type ResetConfig struct {
	// Strict escalates guard and validator violations from degraded notices to hard violations.
	Strict                  bool          `yaml:"strict"`
	BlockingGateTokens      []string      `yaml:"blockingGateTokens"`
	GameplayProfiles        []string      `yaml:"gameplayProfiles"`
	MaxParallelParticipants int           `yaml:"maxParallelParticipants"`
	HistoryTTL              time.Duration `yaml:"historyTTL"`
}

// TelemetryConfig configures metrics, the admin API and sentry.
type TelemetryConfig struct {
	MetricsPort int  `yaml:"metricsPort"`
	AdminPort   int  `yaml:"adminPort"`
	Sentry      bool `yaml:"sentry"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() FullConfig {
	return FullConfig{
		Loop: LoopConfig{
			TickInterval:        constants.DefaultTickInterval,
			StarvationThreshold: constants.StarvationThreshold,
			InitialScene:        constants.DefaultInitialScene,
		},
		Reset: ResetConfig{
			BlockingGateTokens:      []string{constants.GateTokenResetLock},
			GameplayProfiles:        []string{constants.DefaultGameplayProfile},
			MaxParallelParticipants: constants.DefaultMaxParallelParticipants,
			HistoryTTL:              constants.DefaultResetHistoryTTL,
		},
		Telemetry: TelemetryConfig{
			MetricsPort: constants.DefaultMetricsPort,
			AdminPort:   constants.DefaultAdminPort,
		},
	}
}

// Clone returns a deep copy of the config.
func (c FullConfig) Clone() FullConfig {
	clone := FullConfig{}
	_ = deepcopy.Copy(&clone, &c)

	return clone
}

// Validate checks the values that would leave the runtime unable to start.
func (c FullConfig) Validate() error {
	var errs []error

	if c.Loop.TickInterval <= 0 {
		errs = append(errs, fmt.Errorf("loop.tickInterval must be positive, got %s", c.Loop.TickInterval))
	}

	if c.Loop.StarvationThreshold <= 0 {
		errs = append(errs, fmt.Errorf("loop.starvationThreshold must be positive, got %s", c.Loop.StarvationThreshold))
	}

	if c.Reset.MaxParallelParticipants < 1 {
		errs = append(errs, fmt.Errorf("reset.maxParallelParticipants must be at least 1, got %d", c.Reset.MaxParallelParticipants))
	}

	if c.Reset.HistoryTTL < 0 {
		errs = append(errs, fmt.Errorf("reset.historyTTL must not be negative, got %s", c.Reset.HistoryTTL))
	}

	if c.Telemetry.MetricsPort < 0 {
		errs = append(errs, fmt.Errorf("telemetry.metricsPort must not be negative, got %d", c.Telemetry.MetricsPort))
	}

	if c.Telemetry.AdminPort < 0 {
		errs = append(errs, fmt.Errorf("telemetry.adminPort must not be negative, got %d", c.Telemetry.AdminPort))
	}

	return errors.Join(errs...)
}

// IsGameplayProfile reports whether profile is one of the configured gameplay profiles.
func (c ResetConfig) IsGameplayProfile(profile string) bool {
	for _, p := range c.GameplayProfiles {
		if p == profile {
			return true
		}
	}

	return false
}
