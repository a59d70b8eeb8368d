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

package actors

import (
	"context"
	"fmt"
	"sync"

	"github.com/tiendc/go-deepcopy"

	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
	"github.com/united-manufacturing-hub/playloop/pkg/reset"
)

// Binder subscribes an actor to the bus and returns the subscriptions it opened.
type Binder[S any] func(a *Actor[S], bus *eventbus.Bus) []*eventbus.Subscription

// Config describes an actor.
type Config[S any] struct {
	ID    string
	Kind  string
	Order int
	// Spawn is the state the actor returns to on every reset.
	Spawn S
	Bind  Binder[S]
}

// Actor is a resettable participant with live state S.
//
// Cleanup closes its subscriptions and drops live state, Restore copies the
// spawn snapshot into live state, Rebind subscribes again. After a reset the
// actor holds exactly the subscriptions Bind returns, never more.
type Actor[S any] struct {
	cfg  Config[S]
	bus  *eventbus.Bus
	live S
	subs []*eventbus.Subscription

	// lastSerial is the newest run that touched the actor.
	lastSerial uint64
	mu         sync.Mutex
}

// NewActor spawns an actor: live state is a copy of cfg.Spawn and Bind has run once.
func NewActor[S any](cfg Config[S], bus *eventbus.Bus) (*Actor[S], error) {
	a := &Actor[S]{cfg: cfg, bus: bus}

	if err := deepcopy.Copy(&a.live, &cfg.Spawn); err != nil {
		return nil, fmt.Errorf("failed to copy spawn state of actor %s: %w", cfg.ID, err)
	}

	a.bind()

	return a, nil
}

func (a *Actor[S]) ID() string   { return a.cfg.ID }
func (a *Actor[S]) Order() int   { return a.cfg.Order }
func (a *Actor[S]) Kind() string { return a.cfg.Kind }

// State returns a deep copy of the live state.
func (a *Actor[S]) State() S {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out S
	_ = deepcopy.Copy(&out, &a.live)

	return out
}

// Mutate changes the live state under the actor lock.
func (a *Actor[S]) Mutate(fn func(state *S)) {
	a.mu.Lock()
	defer a.mu.Unlock()

	fn(&a.live)
}

// SubscriptionCount returns the number of open bus subscriptions.
func (a *Actor[S]) SubscriptionCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0

	for _, s := range a.subs {
		if !s.Closed() {
			n++
		}
	}

	return n
}

// Despawn closes the actor's subscriptions. Live state is kept for inspection.
func (a *Actor[S]) Despawn() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.unbindLocked()
}

// Cleanup implements reset.Participant.
func (a *Actor[S]) Cleanup(_ context.Context, rc reset.ResetContext) error {
	if err := a.claim(rc); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.unbindLocked()

	var zero S
	a.live = zero

	return nil
}

// Restore implements reset.Participant.
func (a *Actor[S]) Restore(_ context.Context, rc reset.ResetContext) error {
	if err := a.claim(rc); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	var fresh S
	if err := deepcopy.Copy(&fresh, &a.cfg.Spawn); err != nil {
		return fmt.Errorf("failed to restore spawn state of actor %s: %w", a.cfg.ID, err)
	}

	a.live = fresh

	return nil
}

// Rebind implements reset.Participant.
func (a *Actor[S]) Rebind(_ context.Context, rc reset.ResetContext) error {
	if err := a.claim(rc); err != nil {
		return err
	}

	a.bind()

	return nil
}

// claim rejects contexts of a run older than the newest one seen.
func (a *Actor[S]) claim(rc reset.ResetContext) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if rc.RequestSerial < a.lastSerial {
		return reset.NewIgnoredError(fmt.Errorf("actor %s: stale reset context %d, already at %d", a.cfg.ID, rc.RequestSerial, a.lastSerial))
	}

	a.lastSerial = rc.RequestSerial

	return nil
}

func (a *Actor[S]) bind() {
	a.mu.Lock()
	a.unbindLocked()
	a.mu.Unlock()

	if a.cfg.Bind == nil || a.bus == nil {
		return
	}

	// Bind runs unlocked so it may call Mutate or State.
	subs := a.cfg.Bind(a, a.bus)

	a.mu.Lock()
	a.subs = subs
	a.mu.Unlock()
}

func (a *Actor[S]) unbindLocked() {
	for _, s := range a.subs {
		s.Close()
	}

	a.subs = nil
}
