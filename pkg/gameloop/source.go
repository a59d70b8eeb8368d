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

package gameloop

import (
	"sync"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
)

// LoopCommand asks the game loop to raise a signal on its next tick.
type LoopCommand struct {
	Signal Signal
	Reason string
}

// LatchedSource is a SignalSource whose flags stay raised until polled.
// Raise may be called from any goroutine; Poll consumes everything raised so far.
type LatchedSource struct {
	log     *zap.SugaredLogger
	pending Signals
	mu      sync.Mutex
}

// NewLatchedSource creates an empty source.
func NewLatchedSource(log *zap.SugaredLogger) *LatchedSource {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &LatchedSource{log: log}
}

// Raise latches sig until the next Poll.
func (l *LatchedSource) Raise(sig Signal) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.pending = l.pending.With(sig)
}

// Poll returns the latched signals and clears them.
func (l *LatchedSource) Poll() Signals {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := l.pending
	l.pending = Signals{}

	return out
}

// Peek returns the latched signals without clearing them.
func (l *LatchedSource) Peek() Signals {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.pending
}

// Listen raises signals carried by LoopCommand messages on bus.
// Close the returned subscription to stop listening.
func (l *LatchedSource) Listen(bus *eventbus.Bus) *eventbus.Subscription {
	return eventbus.Subscribe(bus, func(cmd LoopCommand) {
		l.log.Debugf("Loop command %s received (reason: %s)", cmd.Signal, cmd.Reason)
		l.Raise(cmd.Signal)
	})
}
