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
	"reflect"
	"sort"
	"strings"
)

// KindMatcher decides scope membership for participants that do not
// implement KindProvider. Every use is reported as a degraded path.
type KindMatcher func(p Participant, kind string) bool

// TypeNameMatcher compares kind with the participant's Go type name,
// ignoring case and pointer indirection.
func TypeNameMatcher(p Participant, kind string) bool {
	t := reflect.TypeOf(p)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil {
		return false
	}

	return strings.EqualFold(t.Name(), kind)
}

// Discovery is the result of resolving a request's scope.
type Discovery struct {
	Participants []Participant
	// Fallbacks lists participant ids whose kind was decided by the KindMatcher.
	Fallbacks []string
}

// Discoverer resolves the participants of a request's target scene and scope.
type Discoverer struct {
	source  ParticipantSource
	matcher KindMatcher
}

// NewDiscoverer creates a discoverer. A nil matcher excludes participants
// without a KindProvider from kind scoped resets.
func NewDiscoverer(source ParticipantSource, matcher KindMatcher) *Discoverer {
	return &Discoverer{source: source, matcher: matcher}
}

// Discover returns the participants in scope, sorted by order then id.
func (d *Discoverer) Discover(req ResetRequest) Discovery {
	var out Discovery

	if d == nil || d.source == nil {
		return out
	}

	candidates := d.source.ParticipantsFor(req.TargetScene)

	var ids map[string]struct{}
	if req.Scope.Mode == ScopeModeIDs {
		ids = make(map[string]struct{}, len(req.Scope.IDs))
		for _, id := range req.Scope.IDs {
			ids[id] = struct{}{}
		}
	}

	fallbackSeen := make(map[string]struct{})

	for _, p := range candidates {
		if p == nil {
			continue
		}

		switch req.Scope.Mode {
		case ScopeModeKind:
			if kp, ok := p.(KindProvider); ok {
				if kp.Kind() != req.Scope.Kind {
					continue
				}
			} else {
				if d.matcher == nil {
					continue
				}

				if _, seen := fallbackSeen[p.ID()]; !seen {
					fallbackSeen[p.ID()] = struct{}{}
					out.Fallbacks = append(out.Fallbacks, p.ID())
				}

				if !d.matcher(p, req.Scope.Kind) {
					continue
				}
			}
		case ScopeModeIDs:
			if _, ok := ids[p.ID()]; !ok {
				continue
			}
		}

		out.Participants = append(out.Participants, p)
	}

	SortParticipants(out.Participants)

	return out
}

// SortParticipants orders participants by Order, then ID.
func SortParticipants(ps []Participant) {
	sort.SliceStable(ps, func(i, j int) bool {
		if ps[i].Order() != ps[j].Order() {
			return ps[i].Order() < ps[j].Order()
		}

		return ps[i].ID() < ps[j].ID()
	})
}
