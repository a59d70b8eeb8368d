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
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"
)

// debounceWindow limits how often the same issue is forwarded to sentry.
const debounceWindow = 2 * time.Hour

var (
	lastSentMu sync.Mutex
	lastSent   = map[string]time.Time{}
)

// reportFatal sends a fatal error to Sentry, including a stack trace and a message
// Afterwards it will report the error to the logger and panic
func reportFatal(err error, log *zap.SugaredLogger, context map[string]interface{}) {
	log.Errorw("playloop has encountered a fatal error and will now terminate",
		"error", err.Error(),
		"stacktrace", string(debug.Stack()),
		reportedKey, true)

	capture(issue{err: err, context: context, level: sentry.LevelFatal}.event())
	sentry.Flush(time.Second * 5)

	log.Panicw("Fatal error", reportedKey, true)
}

// reportDebounced logs every occurrence but forwards one event per
// fingerprint and debounce window to Sentry.
func reportDebounced(err error, log *zap.SugaredLogger, context map[string]interface{}, issueType IssueType) {
	level := sentry.LevelWarning
	fields := append(contextFields(context), reportedKey, true)
	if issueType == IssueTypeError {
		level = sentry.LevelError
		log.Errorw(err.Error(), fields...)
	} else {
		log.Warnw(err.Error(), fields...)
	}

	reported := issue{err: err, context: context, level: level}
	if !shouldSend(reported.key()) {
		return
	}

	capture(reported.event())
}

func shouldSend(key string) bool {
	if !shouldDebounceErrors {
		return true
	}

	lastSentMu.Lock()
	defer lastSentMu.Unlock()

	if at, ok := lastSent[key]; ok && time.Since(at) < debounceWindow {
		return false
	}

	lastSent[key] = time.Now()

	return true
}

// contextFields flattens the context map into sorted zap key/value pairs.
func contextFields(context map[string]interface{}) []interface{} {
	keys := make([]string, 0, len(context))
	for k := range context {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	fields := make([]interface{}, 0, 2*len(keys))
	for _, k := range keys {
		fields = append(fields, k, context[k])
	}

	return fields
}
