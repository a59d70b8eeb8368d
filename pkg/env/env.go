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

// Package env reads typed overrides from the process environment on top of
// umh-utils/env. Optional variables holding an unparsable value fall back to
// the default; required ones report the error.
package env

import (
	"strings"
	"time"

	umhenv "github.com/united-manufacturing-hub/umh-utils/env"
)

func settle[T any](required bool, defaultValue, value T, err error) (T, error) {
	if err == nil {
		return value, nil
	}

	if required {
		var zero T

		return zero, err
	}

	return defaultValue, nil
}

// GetAsString retrieves an environment variable as a string.
// If required is true and the variable is not set, an error is returned.
// A blank optional value yields defaultValue.
func GetAsString(key string, required bool, defaultValue string) (string, error) {
	v, err := umhenv.GetAsString(key, required, defaultValue)
	if err == nil && !required && strings.TrimSpace(v) == "" {
		return defaultValue, nil
	}

	return settle(required, defaultValue, v, err)
}

// GetAsInt retrieves an environment variable as an integer.
func GetAsInt(key string, required bool, defaultValue int) (int, error) {
	v, err := umhenv.GetAsInt(key, required, defaultValue)

	return settle(required, defaultValue, v, err)
}

// GetAsBool retrieves an environment variable as a boolean (strconv.ParseBool syntax).
func GetAsBool(key string, required bool, defaultValue bool) (bool, error) {
	v, err := umhenv.GetAsBool(key, required, defaultValue)

	return settle(required, defaultValue, v, err)
}

// GetAsFloat retrieves an environment variable as a float64.
func GetAsFloat(key string, required bool, defaultValue float64) (float64, error) {
	v, err := umhenv.GetAsFloat64(key, required, defaultValue)

	return settle(required, defaultValue, v, err)
}

// GetAsDuration retrieves an environment variable as a time.Duration ("16ms", "2s").
// A bare integer is read as milliseconds.
func GetAsDuration(key string, required bool, defaultValue time.Duration) (time.Duration, error) {
	if ms, err := umhenv.GetAsInt(key, true, 0); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}

	raw, err := umhenv.GetAsString(key, required, defaultValue.String())
	if err != nil {
		return settle(required, defaultValue, 0, err)
	}

	d, err := time.ParseDuration(strings.TrimSpace(raw))

	return settle(required, defaultValue, d, err)
}

// GetAsStringSlice retrieves a comma separated environment variable. Empty items are dropped.
func GetAsStringSlice(key string, required bool, defaultValue []string) ([]string, error) {
	raw, err := umhenv.GetAsString(key, required, "")
	if err != nil {
		return settle(required, defaultValue, nil, err)
	}

	if strings.TrimSpace(raw) == "" {
		return defaultValue, nil
	}

	var out []string

	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out, nil
}
