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

// Package demo spawns a small sample world so the binary has something to reset.
package demo

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/actors"
	"github.com/united-manufacturing-hub/playloop/pkg/control"
	"github.com/united-manufacturing-hub/playloop/pkg/di"
	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
	"github.com/united-manufacturing-hub/playloop/pkg/sceneflow"
)

// Damage hits the actor with id Target.
type Damage struct {
	Target string
	Amount int
}

// Vitals is the resettable state of a demo actor.
type Vitals struct {
	Health int
	Tags   []string
}

// Spawn describes one actor of a layout.
type Spawn struct {
	ID     string
	Kind   string
	Order  int
	Health int
}

// DefaultLayouts is the sample world.
var DefaultLayouts = map[string][]Spawn{
	"arena": {
		{ID: "player", Kind: "Player", Order: 0, Health: 100},
		{ID: "goblin-1", Kind: "Enemy", Order: 1, Health: 30},
		{ID: "goblin-2", Kind: "Enemy", Order: 1, Health: 30},
	},
	"forest": {
		{ID: "player", Kind: "Player", Order: 0, Health: 100},
		{ID: "wolf", Kind: "Enemy", Order: 1, Health: 45},
	},
}

// Loader spawns the layout of every loading scene into the scene's scope.
type Loader struct {
	bus      *eventbus.Bus
	registry *actors.Registry
	auth     *di.Lazy[*control.Authorizer]
	layouts  map[string][]Spawn
	log      *zap.SugaredLogger

	sub     *eventbus.Subscription
	spawned map[string]*actors.Actor[Vitals]
	mu      sync.Mutex
}

// NewLoader resolves the bus and registry from scope. The authorizer is
// resolved lazily because it is provided after the loader is created.
func NewLoader(scope *di.Scope, layouts map[string][]Spawn, log *zap.SugaredLogger) (*Loader, error) {
	bus, ok := di.Resolve[*eventbus.Bus](scope)
	if !ok {
		return nil, fmt.Errorf("demo loader: no event bus in scope %s", scope.Name())
	}

	registry, ok := di.Resolve[*actors.Registry](scope)
	if !ok {
		return nil, fmt.Errorf("demo loader: no actor registry in scope %s", scope.Name())
	}

	if layouts == nil {
		layouts = DefaultLayouts
	}

	if log == nil {
		log = zap.NewNop().Sugar()
	}

	l := &Loader{
		bus:      bus,
		registry: registry,
		auth:     di.NewLazy[*control.Authorizer](scope, log),
		layouts:  layouts,
		log:      log,
		spawned:  make(map[string]*actors.Actor[Vitals]),
	}
	l.sub = eventbus.Subscribe(bus, l.onLoading)

	return l, nil
}

// Close stops spawning.
func (l *Loader) Close() {
	l.sub.Close()
}

// Actor returns a spawned actor of the live scenes.
func (l *Loader) Actor(id string) (*actors.Actor[Vitals], bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, ok := l.spawned[id]

	return a, ok
}

func (l *Loader) onLoading(e sceneflow.SceneLoading) {
	for _, spawn := range l.layouts[e.Scene] {
		a, err := actors.NewActor(actors.Config[Vitals]{
			ID:    spawn.ID,
			Kind:  spawn.Kind,
			Order: spawn.Order,
			Spawn: Vitals{Health: spawn.Health, Tags: []string{e.Scene}},
			Bind:  l.bindDamage,
		}, l.bus)
		if err != nil {
			l.log.Errorf("Failed to spawn %s in scene %s: %v", spawn.ID, e.Scene, err)

			continue
		}

		if err := l.register(e, a); err != nil {
			l.log.Errorf("Failed to register %s in scene %s: %v", spawn.ID, e.Scene, err)

			continue
		}

		l.log.Debugf("Spawned %s (%s) in scene %s", spawn.ID, spawn.Kind, e.Scene)
	}
}

func (l *Loader) register(e sceneflow.SceneLoading, a *actors.Actor[Vitals]) error {
	if e.Scope == nil {
		if _, err := l.registry.Register(e.Scene, a); err != nil {
			return err
		}
	} else if err := l.registry.RegisterInScope(e.Scope, e.Scene, a); err != nil {
		return err
	}

	l.mu.Lock()
	l.spawned[a.ID()] = a
	l.mu.Unlock()

	if e.Scope != nil {
		e.Scope.OnClose(func() {
			a.Despawn()

			l.mu.Lock()
			if l.spawned[a.ID()] == a {
				delete(l.spawned, a.ID())
			}
			l.mu.Unlock()
		})
	}

	return nil
}

func (l *Loader) bindDamage(a *actors.Actor[Vitals], bus *eventbus.Bus) []*eventbus.Subscription {
	return []*eventbus.Subscription{
		eventbus.Subscribe(bus, func(d Damage) {
			if d.Target != a.ID() {
				return
			}

			auth, ok := l.auth.Get()
			if !ok || !auth.IsGameplayActionAllowed() {
				l.log.Debugf("Ignoring damage to %s, gameplay is not running", a.ID())

				return
			}

			a.Mutate(func(v *Vitals) {
				v.Health = max(v.Health-d.Amount, 0)
			})
		}),
	}
}
