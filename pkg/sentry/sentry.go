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

package sentry

import (
	"os"

	"github.com/Masterminds/semver/v3"
	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/constants"
)

// Package-level state for debouncing errors.
var shouldDebounceErrors = true

// enabled is true once a client was initialized.
var enabled bool

// EnableTestMode disables debouncing for testing.
func EnableTestMode() {
	shouldDebounceErrors = false
}

// DisableTestMode restores normal debouncing behavior.
func DisableTestMode() {
	shouldDebounceErrors = true
}

// Enabled reports whether events are forwarded to a sentry project.
func Enabled() bool {
	return enabled
}

// InitSentry initializes sentry with the given app version. The DSN is taken
// from SENTRY_DSN; local builds and an empty DSN leave sentry disabled.
func InitSentry(appVersion string, debounceErrors bool) {
	shouldDebounceErrors = debounceErrors

	if appVersion == "" || appVersion == constants.DefaultAppVersion {
		zap.S().Debug("Sentry disabled for local development build")

		return
	}

	dsn := os.Getenv("SENTRY_DSN")
	if dsn == "" {
		zap.S().Debug("Sentry disabled, SENTRY_DSN is not set")

		return
	}

	environment := constants.DefaultDevelopmentEnvironment

	version, err := semver.NewVersion(appVersion)
	if err != nil {
		zap.S().Errorf("Failed to parse app version, using default environment (development): %s", err)
	} else if version.Prerelease() == "" {
		environment = constants.DefaultProductionEnvironment
	}

	err = sentry.Init(sentry.ClientOptions{
		Dsn:           dsn,
		Environment:   environment,
		Release:       "playloop@" + appVersion,
		EnableTracing: false,
	})
	if err != nil {
		zap.S().Errorf("Failed to initialize Sentry: %s", err)

		return
	}

	enabled = true
}

