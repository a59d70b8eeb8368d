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
	"fmt"
	"math"
	"strconv"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap/zapcore"
)

// FingerprintKeys are the field keys that affect Sentry grouping.
// These fields group issues by their semantic meaning rather than per-request data
// such as signatures or run ids.
var FingerprintKeys = []string{"feature", "stage", "reason_code", "state", "operation"}

// reportedKey marks log entries whose issue was already sent, with its own
// debouncing, by ReportIssue.
const reportedKey = "sentry_reported"

// SentryHook implements zapcore.Core and captures Error and Warn level logs
// to Sentry. It wraps an existing zapcore.Core and delegates all logging to it.
type SentryHook struct {
	zapcore.Core
}

// NewSentryHook creates a new SentryHook wrapping the given zapcore.Core.
func NewSentryHook(core zapcore.Core) zapcore.Core {
	return &SentryHook{Core: core}
}

// With returns a new SentryHook with the given fields added to the context.
func (h *SentryHook) With(fields []zapcore.Field) zapcore.Core {
	return &SentryHook{Core: h.Core.With(fields)}
}

// Check determines whether the entry should be logged.
func (h *SentryHook) Check(entry zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if h.Enabled(entry.Level) {
		return ce.AddCore(entry, h)
	}

	return ce
}

// Write logs the entry to the underlying core and captures Error/Warn to Sentry.
func (h *SentryHook) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	if shouldCapture(entry, fields) {
		go h.captureToSentry(entry, fields)
	}

	return h.Core.Write(entry, fields)
}

func (h *SentryHook) captureToSentry(entry zapcore.Entry, fields []zapcore.Field) {
	context := extractFieldsAsContext(fields)
	fingerprint := extractFingerprintKeys(fields)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(zapLevelToSentry(entry.Level))

		scope.SetFingerprint(append(baseFingerprint(zapLevelToSentry(entry.Level)), fingerprint...))

		if entry.LoggerName != "" {
			scope.SetTag("component", entry.LoggerName)
		}

		for k, v := range context {
			scope.SetTag(k, v)
		}

		sentry.CaptureMessage(entry.Message)
	})
}

// shouldCapture reports whether the hook forwards entry. Entries logged by
// ReportIssue carry reportedKey and were already handled there.
func shouldCapture(entry zapcore.Entry, fields []zapcore.Field) bool {
	return entry.Level >= zapcore.WarnLevel && enabled && !alreadyReported(fields)
}

func alreadyReported(fields []zapcore.Field) bool {
	for _, field := range fields {
		if field.Key == reportedKey {
			return true
		}
	}

	return false
}

// extractFieldsAsContext converts zap fields to a map of string values for Sentry tags.
func extractFieldsAsContext(fields []zapcore.Field) map[string]string {
	context := make(map[string]string, len(fields))

	for _, field := range fields {
		if value, ok := fieldString(field); ok {
			context[field.Key] = value
		}
	}

	return context
}

// extractFingerprintKeys extracts the fingerprint keys from fields, in FingerprintKeys order.
func extractFingerprintKeys(fields []zapcore.Field) []string {
	var fingerprint []string

	for _, key := range FingerprintKeys {
		for _, field := range fields {
			if field.Key != key {
				continue
			}

			if value, ok := fieldString(field); ok {
				fingerprint = append(fingerprint, fmt.Sprintf("%s: %s", key, value))
			}

			break
		}
	}

	return fingerprint
}

func fieldString(field zapcore.Field) (string, bool) {
	switch field.Type {
	case zapcore.StringType:
		return field.String, true
	case zapcore.Int64Type, zapcore.Int32Type, zapcore.Int16Type, zapcore.Int8Type:
		return strconv.FormatInt(field.Integer, 10), true
	case zapcore.Uint64Type, zapcore.Uint32Type, zapcore.Uint16Type, zapcore.Uint8Type:
		return strconv.FormatUint(uint64(field.Integer), 10), true
	case zapcore.BoolType:
		return strconv.FormatBool(field.Integer == 1), true
	case zapcore.Float64Type:
		return strconv.FormatFloat(math.Float64frombits(uint64(field.Integer)), 'g', -1, 64), true
	case zapcore.Float32Type:
		return strconv.FormatFloat(float64(math.Float32frombits(uint32(field.Integer))), 'g', -1, 32), true
	case zapcore.DurationType:
		return strconv.FormatInt(field.Integer, 10), true
	default:
		if field.Interface != nil {
			return fmt.Sprintf("%v", field.Interface), true
		}

		return "", false
	}
}

// zapLevelToSentry converts a zapcore.Level to a sentry.Level.
func zapLevelToSentry(level zapcore.Level) sentry.Level {
	switch level {
	case zapcore.DebugLevel:
		return sentry.LevelDebug
	case zapcore.InfoLevel:
		return sentry.LevelInfo
	case zapcore.WarnLevel:
		return sentry.LevelWarning
	case zapcore.ErrorLevel:
		return sentry.LevelError
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		return sentry.LevelFatal
	default:
		return sentry.LevelInfo
	}
}
