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
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/constants"
	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
	"github.com/united-manufacturing-hub/playloop/pkg/metrics"
	"github.com/united-manufacturing-hub/playloop/pkg/sentry"
)

// Runner executes one accepted request and publishes its completion.
// *Orchestrator is the production Runner.
type Runner interface {
	Execute(ctx context.Context, req ResetRequest)
}

// Service is the reset entry point. It drops a request whose signature is
// already in flight and guarantees that the signature is released and a
// completion is published even if the runner panics.
type Service struct {
	runner   Runner
	bus      *eventbus.Bus
	log      *zap.SugaredLogger
	inFlight map[string]struct{}
	mu       sync.Mutex
	wg       sync.WaitGroup
}

// NewService creates a service in front of runner. A nil bus is replaced by a
// private one.
func NewService(runner Runner, bus *eventbus.Bus, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	if bus == nil {
		bus = eventbus.New(log)
	}

	return &Service{
		runner:   runner,
		bus:      bus,
		log:      log,
		inFlight: make(map[string]struct{}),
	}
}

// TriggerReset runs req on the calling goroutine and returns when it finished.
// A duplicate returns immediately. It never panics.
func (s *Service) TriggerReset(ctx context.Context, req ResetRequest) {
	if !s.acquire(req) {
		return
	}

	s.run(ctx, req)
}

// TriggerResetAsync runs req on its own goroutine. The signature is claimed
// before it returns, so a duplicate issued right after is dropped. The
// returned channel closes when the run (or the duplicate drop) is done.
// The run is detached from ctx cancellation; once accepted it runs to the end.
func (s *Service) TriggerResetAsync(ctx context.Context, req ResetRequest) <-chan struct{} {
	done := make(chan struct{})

	if !s.acquire(req) {
		close(done)

		return done
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()
		defer close(done)

		s.run(context.WithoutCancel(ctx), req)
	}()

	return done
}

// Wait blocks until every asynchronous run has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) acquire(req ResetRequest) bool {
	sig := req.ContextSignature

	s.mu.Lock()
	if _, busy := s.inFlight[sig]; busy {
		s.mu.Unlock()
		s.log.Warnw("[GUARDED] Duplicate world reset ignored, signature already in flight",
			"reason_code", constants.ReasonPrefixGuarded+"Duplicate", "signature", sig, "reason", req.Reason)
		metrics.IncResetDuplicates()

		return false
	}

	s.inFlight[sig] = struct{}{}
	n := len(s.inFlight)
	s.mu.Unlock()

	metrics.SetResetInFlight(n)

	return true
}

func (s *Service) release(sig string) {
	s.mu.Lock()
	delete(s.inFlight, sig)
	n := len(s.inFlight)
	s.mu.Unlock()

	metrics.SetResetInFlight(n)
}

func (s *Service) run(ctx context.Context, req ResetRequest) {
	defer s.release(req.ContextSignature)

	defer func() {
		r := recover()
		if r == nil {
			return
		}

		err := fmt.Errorf("reset runner panicked: %v", r)
		sentry.ReportResetIssue(s.log, sentry.IssueTypeError, "service", constants.ReasonOrchestratorFailed, req.ContextSignature, err)
		metrics.IncErrorCount(metrics.ComponentResetService, "runner")
		metrics.RecordResetOutcome(string(OutcomeFailed), 0)

		eventbus.Publish(s.bus, ResetCompleted{
			Signature: req.ContextSignature,
			Reason:    constants.ReasonOrchestratorFailed,
			Outcome:   OutcomeFailed,
			Scene:     req.TargetScene,
		})
	}()

	s.runner.Execute(ctx, req)
}

// InFlight returns the signatures currently being processed, sorted.
func (s *Service) InFlight() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.inFlight))
	for sig := range s.inFlight {
		out = append(out, sig)
	}

	sort.Strings(out)

	return out
}

// IsInFlight reports whether sig is being processed.
func (s *Service) IsInFlight(sig string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.inFlight[sig]

	return ok
}
