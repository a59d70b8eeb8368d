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

// Package reset performs deterministic world resets.
//
// A request runs through guards, validators, participant discovery, the three
// phase executor (Cleanup, Restore, Rebind) and completion publication. The
// Orchestrator guarantees exactly one ResetCompleted per accepted run; the
// Service in front of it drops concurrent duplicates by context signature.
package reset

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
)

// Origin tells who asked for the reset.
type Origin int

const (
	OriginManual Origin = iota
	OriginSceneFlow
)

func (o Origin) String() string {
	switch o {
	case OriginManual:
		return "manual"
	case OriginSceneFlow:
		return "sceneflow"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Origin) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Origin) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "manual":
		*o = OriginManual
	case "sceneflow", "scene_flow":
		*o = OriginSceneFlow
	default:
		return fmt.Errorf("unknown reset origin %q", string(text))
	}

	return nil
}

// ScopeMode selects which participants of the target scene are reset.
type ScopeMode string

const (
	ScopeModeAll  ScopeMode = "all"
	ScopeModeKind ScopeMode = "kind"
	ScopeModeIDs  ScopeMode = "ids"
)

// Scope is the breadth of a reset target.
type Scope struct {
	Mode ScopeMode `json:"mode,omitempty"`
	Kind string    `json:"kind,omitempty"`
	IDs  []string  `json:"ids,omitempty"`
}

// ScopeAll resets every participant of the scene. It is the zero value.
var ScopeAll = Scope{}

// ScopeKind resets only participants of the given kind.
func ScopeKind(kind string) Scope {
	return Scope{Mode: ScopeModeKind, Kind: kind}
}

// ScopeIDs resets only the listed participants.
func ScopeIDs(ids ...string) Scope {
	return Scope{Mode: ScopeModeIDs, IDs: append([]string(nil), ids...)}
}

// IsAll reports whether the scope covers every participant.
func (s Scope) IsAll() bool {
	return s.Mode == "" || s.Mode == ScopeModeAll
}

func (s Scope) String() string {
	switch s.Mode {
	case ScopeModeKind:
		return "kind:" + s.Kind
	case ScopeModeIDs:
		return "ids:" + strings.Join(s.IDs, ",")
	default:
		return string(ScopeModeAll)
	}
}

// ResetRequest is consumed exactly once by the orchestrator. Treat it as an
// immutable value; the orchestrator works on its own deep copy.
type ResetRequest struct {
	// ContextSignature is the deduplication key. It must not be blank.
	ContextSignature  string `json:"contextSignature"`
	Reason            string `json:"reason"`
	ProfileName       string `json:"profileName"`
	TargetScene       string `json:"targetScene"`
	Origin            Origin `json:"origin"`
	IsGameplayProfile bool   `json:"isGameplayProfile"`
	Scope             Scope  `json:"scope"`
}

func (r ResetRequest) String() string {
	return fmt.Sprintf("reset{signature=%q reason=%q scene=%q profile=%q origin=%s scope=%s}",
		r.ContextSignature, r.Reason, r.TargetScene, r.ProfileName, r.Origin, r.Scope)
}

// DecodeRequest parses a JSON encoded request.
func DecodeRequest(data []byte) (ResetRequest, error) {
	var r ResetRequest
	if err := json.Unmarshal(data, &r); err != nil {
		return ResetRequest{}, fmt.Errorf("failed to decode reset request: %w", err)
	}

	return r, nil
}
