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
	"bytes"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/DataDog/gostackparse"
	"github.com/getsentry/sentry-go"
)

// maxCapturedGoroutines bounds the thread list attached to one event.
const maxCapturedGoroutines = 64

// captureGoroutinesAsThreads captures all current goroutines and converts them to Sentry threads.
// The raw dump is returned alongside for the attachment.
func captureGoroutinesAsThreads() ([]sentry.Thread, []byte) {
	stack := entireStack()

	goroutines, errs := gostackparse.Parse(bytes.NewReader(stack))
	if len(errs) > 0 && len(goroutines) == 0 {
		return nil, stack
	}

	if len(goroutines) > maxCapturedGoroutines {
		goroutines = goroutines[:maxCapturedGoroutines]
	}

	threads := make([]sentry.Thread, 0, len(goroutines))
	for i, g := range goroutines {
		threads = append(threads, convertGoroutineToThread(g, i == 0))
	}

	return threads, stack
}

func entireStack() []byte {
	buf := make([]byte, 4096)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			return buf[:n]
		}

		buf = make([]byte, 2*len(buf))
	}
}

// convertGoroutineToThread converts a parsed Goroutine to a Sentry Thread object.
// The first goroutine of a dump is the reporting one.
func convertGoroutineToThread(g *gostackparse.Goroutine, current bool) sentry.Thread {
	return sentry.Thread{
		ID:         strconv.Itoa(g.ID),
		Name:       "Goroutine " + strconv.Itoa(g.ID) + " [" + g.State + "]",
		Stacktrace: &sentry.Stacktrace{Frames: convertFrames(g.Stack)},
		Current:    current,
	}
}

// convertFrames converts gostackparse frames to sentry frames. Sentry expects
// the outermost frame first, gostackparse yields the innermost first.
func convertFrames(goroutineFrames []*gostackparse.Frame) []sentry.Frame {
	frames := make([]sentry.Frame, 0, len(goroutineFrames))

	for i := len(goroutineFrames) - 1; i >= 0; i-- {
		gf := goroutineFrames[i]
		frames = append(frames, sentry.Frame{
			Function: gf.Func,
			Filename: filepath.Base(gf.File),
			Lineno:   gf.Line,
			AbsPath:  gf.File,
		})
	}

	return frames
}
