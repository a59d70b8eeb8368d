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

package control

import (
	"context"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/constants"
	"github.com/united-manufacturing-hub/playloop/pkg/gameloop"
	"github.com/united-manufacturing-hub/playloop/pkg/logger"
	"github.com/united-manufacturing-hub/playloop/pkg/reset"
)

// AsyncResetter accepts reset requests without blocking. *reset.Service implements it.
type AsyncResetter interface {
	TriggerResetAsync(ctx context.Context, req reset.ResetRequest) <-chan struct{}
}

// SceneProvider names the scene that is currently live. *sceneflow.Service implements it.
type SceneProvider interface {
	ActiveScene() string
}

// ResetBridge turns a loop reset into a world reset of the active scene.
// It observes the machine and fires when Boot is entered.
type ResetBridge struct {
	gameloop.NopObserver

	ctx    context.Context //nolint:containedctx // requests outlive the observer callback
	resets AsyncResetter
	scenes SceneProvider
	log    *zap.SugaredLogger
	serial atomic.Uint64
}

// NewResetBridge creates the bridge. ctx is handed to every triggered reset.
func NewResetBridge(ctx context.Context, resets AsyncResetter, scenes SceneProvider, log *zap.SugaredLogger) *ResetBridge {
	return &ResetBridge{ctx: ctx, resets: resets, scenes: scenes, log: logger.OrNop(log)}
}

func (b *ResetBridge) OnStateEnter(state gameloop.State, _ bool) {
	if state != gameloop.Boot {
		return
	}

	b.Trigger("game loop reset")
}

// Trigger issues a manual world reset of the active scene and returns
// without waiting for it.
func (b *ResetBridge) Trigger(reason string) <-chan struct{} {
	scene := constants.DefaultSceneName
	if b.scenes != nil {
		scene = b.scenes.ActiveScene()
	}

	req := reset.ResetRequest{
		ContextSignature:  constants.SignatureManualPrefix + strconv.FormatUint(b.serial.Add(1), 10),
		Reason:            reason,
		TargetScene:       scene,
		Origin:            reset.OriginManual,
		IsGameplayProfile: true,
		Scope:             reset.ScopeAll,
	}

	b.log.Infof("Loop reset requested, resetting scene %s (signature %s)", scene, req.ContextSignature)

	return b.resets.TriggerResetAsync(b.ctx, req)
}

// Serial returns the number of resets triggered so far.
func (b *ResetBridge) Serial() uint64 {
	return b.serial.Load()
}
