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

// Package control drives the game loop.
//
// This package is responsible for:
// - Ticking the game loop state machine at a fixed rate
// - Counting simulation frames for reset bookkeeping
// - Holding the pause gate token while the loop is paused
// - Answering action permission queries from loop state and gate
// - Bridging loop resets to world resets
package control

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/constants"
	"github.com/united-manufacturing-hub/playloop/pkg/gameloop"
	"github.com/united-manufacturing-hub/playloop/pkg/logger"
	"github.com/united-manufacturing-hub/playloop/pkg/metrics"
	"github.com/united-manufacturing-hub/playloop/pkg/sentry"
	"github.com/united-manufacturing-hub/playloop/pkg/starvationchecker"
)

// Updater advances the game loop by one step. *gameloop.Machine implements it.
type Updater interface {
	Update(ctx context.Context) (gameloop.Transition, bool)
	Current() gameloop.State
}

// ControlLoop calls Update on the machine once per tick. It runs on a single
// goroutine, so the machine performs at most one transition per frame.
type ControlLoop struct {
	tickerTime        time.Duration
	machine           Updater
	logger            *zap.SugaredLogger
	starvationChecker *starvationchecker.StarvationChecker
	currentFrame      atomic.Uint64
}

// NewControlLoop creates a loop ticking every tickerTime. The starvation
// checker is optional and is fed after every frame.
func NewControlLoop(machine Updater, tickerTime time.Duration, checker *starvationchecker.StarvationChecker) *ControlLoop {
	log := logger.For(logger.ComponentControlLoop)
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	if tickerTime <= 0 {
		tickerTime = constants.DefaultTickInterval
	}

	metrics.InitErrorCounter(metrics.ComponentControlLoop, "main")

	return &ControlLoop{
		tickerTime:        tickerTime,
		machine:           machine,
		logger:            log,
		starvationChecker: checker,
	}
}

// Execute runs the loop until ctx is cancelled.
//
// Error handling:
// - Deadline exceeded: the frame overran its budget, log and continue
// - Context cancelled: clean shutdown
// - Other errors (a panicking signal source): count, report and continue
func (c *ControlLoop) Execute(ctx context.Context) error {
	ticker := time.NewTicker(c.tickerTime)
	defer ticker.Stop()

	c.logger.Infof("Control loop started with tick interval %s", c.tickerTime)

	for {
		select {
		case <-ctx.Done():
			c.logger.Infof("Control loop stopped at frame %d", c.CurrentFrame())

			return nil
		case <-ticker.C:
			err := c.Tick(ctx)
			if err == nil {
				continue
			}

			switch {
			case errors.Is(err, context.Canceled):
				c.logger.Infof("Control loop cancelled")

				return nil
			case errors.Is(err, context.DeadlineExceeded):
				sentry.ReportIssuef(sentry.IssueTypeWarning, c.logger, "Control loop frame timed out: %v", err)
			default:
				metrics.IncErrorCountAndLog(metrics.ComponentControlLoop, "main", err, c.logger)
			}
		}
	}
}

// Tick advances one frame. It returns the context error when the frame
// overran its budget or the loop is shutting down.
func (c *ControlLoop) Tick(ctx context.Context) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	frame := c.currentFrame.Add(1)
	start := time.Now()

	timeoutCtx, cancel := context.WithTimeout(ctx, c.tickerTime)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("frame %d panicked in state %s: %v", frame, c.machine.Current(), r)
		}

		cycleTime := time.Since(start)
		if cycleTime > c.tickerTime {
			c.logger.Warnf("Control loop frame time is greater than ticker time: %v", cycleTime)

			if cycleTime > 2*c.tickerTime {
				c.logger.Errorf("Control loop frame time is greater than 2*ticker time: %v", cycleTime)
			}
		}

		metrics.ObserveTickTime(cycleTime)

		if c.starvationChecker != nil {
			c.starvationChecker.Tick()
		}
	}()

	if t, changed := c.machine.Update(timeoutCtx); changed {
		c.logger.Debugf("Frame %d: %s -> %s", frame, t.From, t.To)
	}

	return timeoutCtx.Err()
}

// CurrentFrame returns the number of frames started so far. It implements reset.FrameClock.
func (c *ControlLoop) CurrentFrame() uint64 {
	return c.currentFrame.Load()
}
