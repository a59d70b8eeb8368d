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
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/united-manufacturing-hub/playloop/pkg/constants"
	"github.com/united-manufacturing-hub/playloop/pkg/env"
	"github.com/united-manufacturing-hub/playloop/pkg/sentry"
)

// ConfigPath returns the file location, honoring PLAYLOOP_CONFIG.
func ConfigPath() string {
	path, err := env.GetAsString("PLAYLOOP_CONFIG", false, constants.DefaultConfigPath)
	if err != nil {
		return constants.DefaultConfigPath
	}

	return path
}

// LoadFile reads the YAML file at path on top of the defaults.
// A missing file is not an error; the defaults are returned.
func LoadFile(ctx context.Context, path string) (FullConfig, error) {
	if err := ctx.Err(); err != nil {
		return FullConfig{}, err
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}

		return FullConfig{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return FullConfig{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// Marshal renders the config as YAML.
func Marshal(cfg FullConfig) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// LoadConfigWithEnvOverrides loads the config file and applies environment variable overrides.
//
// Order of precedence (highest to lowest):
// 1. Environment variables (PLAYLOOP_STRICT, PLAYLOOP_TICK_INTERVAL, PLAYLOOP_METRICS_PORT, PLAYLOOP_ADMIN_PORT)
// 2. Existing config file values
// 3. Default values
//
// Unlike the file, the environment is never written back.
func LoadConfigWithEnvOverrides(ctx context.Context, path string, log *zap.SugaredLogger) (FullConfig, error) {
	cfg, err := LoadFile(ctx, path)
	if err != nil {
		return FullConfig{}, err
	}

	cfg = applyEnvOverrides(cfg, log)

	if err := cfg.Validate(); err != nil {
		return FullConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}

	log.Infof("Loaded configuration from %s (tick=%s strict=%t)", path, cfg.Loop.TickInterval, cfg.Reset.Strict)

	return cfg, nil
}

func applyEnvOverrides(cfg FullConfig, log *zap.SugaredLogger) FullConfig {
	out := cfg.Clone()

	strict, err := env.GetAsBool("PLAYLOOP_STRICT", false, out.Reset.Strict)
	if err != nil {
		sentry.ReportIssuef(sentry.IssueTypeWarning, log, "Failed to get PLAYLOOP_STRICT: %v", err)
	}

	out.Reset.Strict = strict

	tick, err := env.GetAsDuration("PLAYLOOP_TICK_INTERVAL", false, out.Loop.TickInterval)
	if err != nil {
		sentry.ReportIssuef(sentry.IssueTypeWarning, log, "Failed to get PLAYLOOP_TICK_INTERVAL: %v", err)
	}

	out.Loop.TickInterval = tick

	metricsPort, err := env.GetAsInt("PLAYLOOP_METRICS_PORT", false, out.Telemetry.MetricsPort)
	if err != nil {
		sentry.ReportIssuef(sentry.IssueTypeWarning, log, "Failed to get PLAYLOOP_METRICS_PORT: %v", err)
	}

	out.Telemetry.MetricsPort = metricsPort

	adminPort, err := env.GetAsInt("PLAYLOOP_ADMIN_PORT", false, out.Telemetry.AdminPort)
	if err != nil {
		sentry.ReportIssuef(sentry.IssueTypeWarning, log, "Failed to get PLAYLOOP_ADMIN_PORT: %v", err)
	}

	out.Telemetry.AdminPort = adminPort

	return out
}
