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

const (
	// DefaultAppVersion is reported by local builds. Sentry stays disabled for it.
	DefaultAppVersion = "0.0.0-dev"

	// DefaultDevelopmentEnvironment is the sentry environment for prerelease builds.
	DefaultDevelopmentEnvironment = "development"

	// DefaultProductionEnvironment is the sentry environment for release builds.
	DefaultProductionEnvironment = "production"

	// DefaultConfigPath is read when PLAYLOOP_CONFIG is not set.
	DefaultConfigPath = "/data/playloop.yaml"

	// DefaultMetricsPort serves /metrics.
	DefaultMetricsPort = 9102

	// DefaultAdminPort serves the admin API. 0 disables it.
	DefaultAdminPort = 9103
)
