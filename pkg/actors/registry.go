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

// Package actors holds the reset participants of each scene.
package actors

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/di"
	"github.com/united-manufacturing-hub/playloop/pkg/reset"
)

// Registry maps scene names to their participants. It is the
// reset.ParticipantSource used by discovery.
type Registry struct {
	log     *zap.SugaredLogger
	byScene map[string]map[string]reset.Participant
	mu      sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry(log *zap.SugaredLogger) *Registry {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Registry{
		log:     log,
		byScene: make(map[string]map[string]reset.Participant),
	}
}

// Register adds p to scene. Ids are unique per scene. The returned function
// removes p again and is safe to call more than once.
func (r *Registry) Register(scene string, p reset.Participant) (unregister func(), err error) {
	if p == nil {
		return nil, fmt.Errorf("cannot register nil participant in scene %q", scene)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	participants, ok := r.byScene[scene]
	if !ok {
		participants = make(map[string]reset.Participant)
		r.byScene[scene] = participants
	}

	if _, exists := participants[p.ID()]; exists {
		return nil, fmt.Errorf("participant %q already registered in scene %q", p.ID(), scene)
	}

	participants[p.ID()] = p
	r.log.Debugf("Registered participant %s in scene %s", p.ID(), scene)

	var once sync.Once

	return func() {
		once.Do(func() { r.remove(scene, p) })
	}, nil
}

// RegisterInScope registers p and unregisters it when scope closes.
func (r *Registry) RegisterInScope(scope *di.Scope, scene string, p reset.Participant) error {
	unregister, err := r.Register(scene, p)
	if err != nil {
		return err
	}

	scope.OnClose(unregister)

	return nil
}

func (r *Registry) remove(scene string, p reset.Participant) {
	r.mu.Lock()
	defer r.mu.Unlock()

	participants := r.byScene[scene]
	if current, ok := participants[p.ID()]; ok && current == p {
		delete(participants, p.ID())
	}

	if len(participants) == 0 {
		delete(r.byScene, scene)
	}
}

// ParticipantsFor implements reset.ParticipantSource. The result is sorted by order, then id.
func (r *Registry) ParticipantsFor(scene string) []reset.Participant {
	r.mu.RLock()
	out := make([]reset.Participant, 0, len(r.byScene[scene]))

	for _, p := range r.byScene[scene] {
		out = append(out, p)
	}
	r.mu.RUnlock()

	reset.SortParticipants(out)

	return out
}

// Scenes returns the scenes with at least one participant, sorted.
func (r *Registry) Scenes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.byScene))
	for s := range r.byScene {
		out = append(out, s)
	}

	sort.Strings(out)

	return out
}

// Count returns the number of participants in scene.
func (r *Registry) Count(scene string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byScene[scene])
}
