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

package starvationchecker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/constants"
	"github.com/united-manufacturing-hub/playloop/pkg/logger"
	"github.com/united-manufacturing-hub/playloop/pkg/metrics"
	"github.com/united-manufacturing-hub/playloop/pkg/sentry"
)

// StarvationChecker detects periods in which the control loop did not tick.
//
// The control loop calls Tick after every processed frame. A background
// goroutine compares the time since the last tick with the threshold and,
// when it is exceeded, records starvation metrics and reports a warning.
// The check runs independently of the loop so a fully blocked loop is still
// noticed.
type StarvationChecker struct {
	lastTick            time.Time
	ctx                 context.Context //nolint:containedctx // background service lifecycle
	logger              *zap.SugaredLogger
	cancel              context.CancelFunc
	wg                  sync.WaitGroup
	starvationThreshold time.Duration
	checkInterval       time.Duration
	starved             bool
	mutex               sync.RWMutex
	stopOnce            sync.Once
}

// NewStarvationChecker creates a checker and starts its background goroutine.
// It must be stopped with Stop.
func NewStarvationChecker(threshold time.Duration) *StarvationChecker {
	return NewStarvationCheckerWithInterval(threshold, constants.StarvationCheckInterval)
}

// NewStarvationCheckerWithInterval is NewStarvationChecker with a custom check interval.
func NewStarvationCheckerWithInterval(threshold, interval time.Duration) *StarvationChecker {
	if interval <= 0 {
		interval = constants.StarvationCheckInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	checker := &StarvationChecker{
		starvationThreshold: threshold,
		checkInterval:       interval,
		lastTick:            time.Now(),
		logger:              logger.For(logger.ComponentStarvationChecker),
		ctx:                 ctx,
		cancel:              cancel,
	}

	checker.wg.Add(1)

	go checker.checkStarvationLoop()

	checker.logger.Infof("Starvation checker created with threshold %s", threshold)

	return checker
}

func (s *StarvationChecker) checkStarvationLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.check()
		}
	}
}

func (s *StarvationChecker) check() {
	s.mutex.Lock()
	sinceLastTick := time.Since(s.lastTick)
	starved := sinceLastTick > s.starvationThreshold
	recovered := s.starved && !starved
	s.starved = starved
	s.mutex.Unlock()

	switch {
	case starved:
		metrics.AddStarvationTime(sinceLastTick.Seconds())
		sentry.ReportIssuef(sentry.IssueTypeWarning, s.logger, "[StarvationChecker.check] Control loop starvation detected: %.2f seconds since last tick", sinceLastTick.Seconds())
	case recovered:
		s.logger.Infof("Control loop recovered, last tick was %.2f seconds ago", sinceLastTick.Seconds())
	default:
		s.logger.Debugf("Control loop is healthy, last tick was %.2f seconds ago", sinceLastTick.Seconds())
	}
}

// Stop terminates the background goroutine. It is safe to call more than once.
func (s *StarvationChecker) Stop() {
	s.stopOnce.Do(func() {
		s.logger.Info("Stopping starvation checker")
		s.cancel()
		s.wg.Wait()
		s.logger.Info("Starvation checker stopped")
	})
}

// Tick marks the current time as the most recent processed frame.
func (s *StarvationChecker) Tick() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.lastTick = time.Now()
}

// GetLastTick returns the time of the most recent processed frame.
func (s *StarvationChecker) GetLastTick() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.lastTick
}

// IsStarved reports the result of the most recent background check.
func (s *StarvationChecker) IsStarved() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	return s.starved
}
