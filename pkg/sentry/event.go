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
	"strings"

	"github.com/getsentry/sentry-go"
)

// maxTitleLength caps the exception type shown as the issue title.
const maxTitleLength = 100

// issue is one reportable problem before it becomes a sentry event.
type issue struct {
	err     error
	context map[string]interface{}
	level   sentry.Level
}

// title is the leading phrase of the error, up to the first period, comma or colon.
func (i issue) title() string {
	message := i.err.Error()
	if idx := strings.IndexAny(message, ".,:"); idx > 0 {
		message = message[:idx]
	}

	if len(message) > maxTitleLength {
		message = message[:maxTitleLength-3] + "..."
	}

	return message
}

// groupingValues returns "key: value" pairs for every FingerprintKeys entry
// present in the context, in FingerprintKeys order.
func (i issue) groupingValues() []string {
	var values []string

	for _, key := range FingerprintKeys {
		if value, ok := i.context[key]; ok {
			values = append(values, fmt.Sprintf("%s: %v", key, value))
		}
	}

	return values
}

func (i issue) fingerprint() []string {
	return append(baseFingerprint(i.level), i.groupingValues()...)
}

// key identifies the issue for debouncing.
func (i issue) key() string {
	return levelName(i.level) + "|" + i.title() + "|" + strings.Join(i.groupingValues(), "|")
}

func (i issue) event() *sentry.Event {
	event := sentry.NewEvent()
	event.Level = i.level
	event.Message = i.err.Error()
	event.Exception = []sentry.Exception{{
		Type:       i.title(),
		Value:      i.err.Error(),
		Stacktrace: sentry.ExtractStacktrace(i.err),
	}}
	event.Fingerprint = i.fingerprint()

	if i.level == sentry.LevelFatal || i.level == sentry.LevelError {
		threads, dump := captureGoroutinesAsThreads()
		event.Threads = threads
		event.Attachments = append(event.Attachments, &sentry.Attachment{
			Filename:    "goroutines.txt",
			ContentType: "text/plain",
			Payload:     dump,
		})
	}

	for key, value := range i.context {
		switch value.(type) {
		case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
			event.Tags[key] = fmt.Sprint(value)
		default:
			event.Extra[key] = value
		}
	}

	return event
}

func baseFingerprint(level sentry.Level) []string {
	return []string{"{{ default }}", "level: " + levelName(level)}
}

func levelName(level sentry.Level) string {
	switch level {
	case sentry.LevelDebug, sentry.LevelInfo, sentry.LevelWarning, sentry.LevelError, sentry.LevelFatal:
		return string(level)
	default:
		return "unknown"
	}
}

// capture sends the event on a cloned hub so scope changes stay local.
func capture(event *sentry.Event) {
	if !enabled {
		return
	}

	sentry.CurrentHub().Clone().CaptureEvent(event)
}
