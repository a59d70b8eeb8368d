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

// Package sceneflow switches the active scene and resets its world.
package sceneflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/constants"
	"github.com/united-manufacturing-hub/playloop/pkg/di"
	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
	"github.com/united-manufacturing-hub/playloop/pkg/metrics"
	"github.com/united-manufacturing-hub/playloop/pkg/reset"
	"github.com/united-manufacturing-hub/playloop/pkg/simgate"
)

// ErrTransitionInProgress is returned when a transition is requested while another one runs.
var ErrTransitionInProgress = errors.New("scene transition already in progress")

// SceneLoading is published before the world reset of a transition.
// Subscribers spawn the scene's participants and bind them to Scope, which
// is closed when the scene is left. Scope is nil when no root scope is configured.
type SceneLoading struct {
	Scene   string
	Profile string
	Scope   *di.Scope
}

// SceneActivated is published once a transition finished and the scene is live.
type SceneActivated struct {
	Scene   string
	Profile string
	// Reset is the completion of the world reset issued for the transition.
	Reset reset.ResetCompleted
}

// Resetter triggers a reset and returns once it finished. *reset.Service implements it.
type Resetter interface {
	TriggerReset(ctx context.Context, req reset.ResetRequest)
}

// Config wires a Service.
type Config struct {
	Gate   *simgate.Service
	Resets Resetter
	Bus    *eventbus.Bus
	// IsGameplayProfile classifies profiles. Defaults to the built-in gameplay profile.
	IsGameplayProfile func(profile string) bool
	InitialScene      string
	// Scopes is the parent of the per-scene scopes. Optional.
	Scopes *di.Scope
	Logger *zap.SugaredLogger
}

// Service performs scene transitions one at a time.
type Service struct {
	cfg Config
	log *zap.SugaredLogger

	active        string
	activeProfile string
	activeScope   *di.Scope
	transitioning bool
	mu            sync.RWMutex
}

// NewService creates a scene flow starting in cfg.InitialScene.
func NewService(cfg Config) *Service {
	if cfg.IsGameplayProfile == nil {
		cfg.IsGameplayProfile = func(p string) bool { return p == constants.DefaultGameplayProfile }
	}

	if cfg.InitialScene == "" {
		cfg.InitialScene = constants.DefaultSceneName
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Service{cfg: cfg, log: log, active: cfg.InitialScene}
}

// Signature derives the reset signature of a transition. Equal transitions
// share a signature, so a repeated transition is deduplicated while it runs.
func Signature(from, to, profile string) string {
	sum := xxhash.Sum64String(from + "|" + to + "|" + profile)

	return constants.SignatureSceneFlowPrefix + strconv.FormatUint(sum, 16)
}

// ActiveScene returns the scene that is currently live.
func (s *Service) ActiveScene() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.active
}

// ActiveProfile returns the profile the active scene was entered with.
func (s *Service) ActiveProfile() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.activeProfile
}

// ActiveScope returns the scope of the live scene, or nil.
func (s *Service) ActiveScope() *di.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.activeScope
}

// Transition moves from `from` to `to`. While it runs the scene transition
// gate token is held. The previous scene scope is closed, a new one is opened
// and announced with SceneLoading, then the world reset for `to` runs.
// Gameplay profiles reset the world, other profiles are skipped by validation.
func (s *Service) Transition(ctx context.Context, from, to, profile string) (reset.ResetCompleted, error) {
	if to == "" {
		return reset.ResetCompleted{}, errors.New("target scene must not be empty")
	}

	if err := ctx.Err(); err != nil {
		return reset.ResetCompleted{}, err
	}

	s.mu.Lock()
	if s.transitioning {
		s.mu.Unlock()

		return reset.ResetCompleted{}, ErrTransitionInProgress
	}

	s.transitioning = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.transitioning = false
		s.mu.Unlock()
	}()

	if s.cfg.Gate != nil {
		release := s.cfg.Gate.Acquire(constants.GateTokenSceneTransition)
		defer release()
	}

	req := reset.ResetRequest{
		ContextSignature:  Signature(from, to, profile),
		Reason:            fmt.Sprintf("scene transition %s -> %s", from, to),
		ProfileName:       profile,
		TargetScene:       to,
		Origin:            reset.OriginSceneFlow,
		IsGameplayProfile: s.cfg.IsGameplayProfile(profile),
		Scope:             reset.ScopeAll,
	}

	s.log.Infof("Transitioning scene %s -> %s (profile %s, gameplay %t)", from, to, profile, req.IsGameplayProfile)

	scope, err := s.swapScope(to)
	if err != nil {
		return reset.ResetCompleted{}, err
	}

	eventbus.Publish(s.cfg.Bus, SceneLoading{Scene: to, Profile: profile, Scope: scope})

	watcher := reset.Watch(s.cfg.Bus, req.ContextSignature)
	defer watcher.Close()

	s.cfg.Resets.TriggerReset(ctx, req)

	completed, err := watcher.Wait(ctx)
	if err != nil {
		metrics.IncErrorCountAndLog(metrics.ComponentSceneFlow, to, err, s.log)

		return reset.ResetCompleted{}, fmt.Errorf("waiting for world reset of scene %s: %w", to, err)
	}

	s.mu.Lock()
	s.active = to
	s.activeProfile = profile
	s.mu.Unlock()

	eventbus.Publish(s.cfg.Bus, SceneActivated{Scene: to, Profile: profile, Reset: completed})
	s.log.Infof("Scene %s active (reset %s: %s)", to, completed.Outcome, completed.Reason)

	return completed, nil
}

// swapScope closes the scope of the scene being left and opens one for to.
func (s *Service) swapScope(to string) (*di.Scope, error) {
	if s.cfg.Scopes == nil {
		return nil, nil
	}

	s.mu.Lock()
	previous := s.activeScope
	s.activeScope = nil
	s.mu.Unlock()

	if previous != nil {
		if err := previous.Close(); err != nil {
			s.log.Warnf("Releasing scope of scene %s reported errors: %v", previous.Name(), err)
		}
	}

	scope, err := s.cfg.Scopes.Child(di.Scene, to)
	if err != nil {
		return nil, fmt.Errorf("failed to open scope for scene %s: %w", to, err)
	}

	s.mu.Lock()
	s.activeScope = scope
	s.mu.Unlock()

	return scope, nil
}
