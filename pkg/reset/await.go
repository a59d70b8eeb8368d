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

package reset

import (
	"context"

	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
)

// AwaitCompletion waits for the next ResetCompleted carrying signature.
// Subscribe before triggering the reset, otherwise a synchronous run can
// complete before the wait starts. The subscription is released on every
// return path.
func AwaitCompletion(ctx context.Context, bus *eventbus.Bus, signature string) (ResetCompleted, error) {
	w := Watch(bus, signature)
	defer w.Close()

	return w.Wait(ctx)
}

// Watcher captures the first ResetCompleted for one signature.
type Watcher struct {
	sub *eventbus.Subscription
	ch  chan ResetCompleted
}

// Watch starts listening for signature. Close it when done.
func Watch(bus *eventbus.Bus, signature string) *Watcher {
	w := &Watcher{ch: make(chan ResetCompleted, 1)}
	w.sub = eventbus.Subscribe(bus, func(e ResetCompleted) {
		if e.Signature != signature {
			return
		}

		select {
		case w.ch <- e:
		default:
		}
	})

	return w
}

// Wait returns the captured completion or the context error.
func (w *Watcher) Wait(ctx context.Context) (ResetCompleted, error) {
	select {
	case e := <-w.ch:
		return e, nil
	case <-ctx.Done():
		return ResetCompleted{}, ctx.Err()
	}
}

// Close releases the bus subscription.
func (w *Watcher) Close() {
	w.sub.Close()
}
