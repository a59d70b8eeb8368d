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
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tiendc/go-deepcopy"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/constants"
	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
	"github.com/united-manufacturing-hub/playloop/pkg/metrics"
	"github.com/united-manufacturing-hub/playloop/pkg/sentry"
)

// OrchestratorConfig wires the collaborators of an Orchestrator.
type OrchestratorConfig struct {
	Bus        *eventbus.Bus
	Policy     Policy
	Guards     []Guard
	Validators []Validator
	Discoverer *Discoverer
	Executor   *Executor
	// Frames stamps FrameStarted. Optional.
	Frames FrameClock
	Logger *zap.SugaredLogger
}

// Orchestrator sequences guard, validate, discover, execute and publish for one request.
type Orchestrator struct {
	bus        *eventbus.Bus
	policy     Policy
	guards     []Guard
	validators []Validator
	discoverer *Discoverer
	executor   *Executor
	frames     FrameClock
	log        *zap.SugaredLogger

	serial atomic.Uint64
}

// NewOrchestrator creates an orchestrator. Nil validators default to
// DefaultValidators; a nil bus is replaced by a private one nobody listens on.
func NewOrchestrator(cfg OrchestratorConfig) *Orchestrator {
	o := &Orchestrator{
		bus:        cfg.Bus,
		policy:     cfg.Policy,
		guards:     cfg.Guards,
		validators: cfg.Validators,
		discoverer: cfg.Discoverer,
		executor:   cfg.Executor,
		frames:     cfg.Frames,
		log:        cfg.Logger,
	}

	if o.log == nil {
		o.log = zap.NewNop().Sugar()
	}

	if o.bus == nil {
		o.log.Warn("Orchestrator created without an event bus, completions are not observable")
		o.bus = eventbus.New(o.log)
	}

	if o.policy == nil {
		o.policy = NewPolicy(false, nil)
	}

	if o.validators == nil {
		o.validators = DefaultValidators()
	}

	if o.executor == nil {
		o.executor = NewExecutor(constants.DefaultMaxParallelParticipants, o.log)
	}

	if o.frames == nil {
		o.frames = FrameClockFunc(func() uint64 { return 0 })
	}

	return o
}

// Execute runs one request to the end. It never panics and publishes exactly
// one ResetCompleted, unless a guard or validator decision suppressed it.
func (o *Orchestrator) Execute(ctx context.Context, request ResetRequest) {
	start := time.Now()

	req := request
	if err := deepcopy.Copy(&req, &request); err != nil {
		o.log.Debugf("Falling back to a shallow request copy: %v", err)
	}

	completion := ResetCompleted{
		Signature:     req.ContextSignature,
		Scene:         req.TargetScene,
		RunID:         uuid.NewString(),
		RequestSerial: o.serial.Add(1),
		Outcome:       OutcomeFailed,
		Reason:        constants.ReasonExecutionFailed,
	}
	publish := true

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("reset orchestration panicked: %v", r)
			sentry.ReportResetIssue(o.log, sentry.IssueTypeError, "orchestrate", constants.ReasonOrchestratorFailed, req.ContextSignature, err)

			completion.Reason = constants.ReasonOrchestratorFailed
			completion.Outcome = OutcomeFailed
			completion.Violation = false
			publish = true
		}

		completion.Duration = time.Since(start)
		metrics.RecordResetOutcome(string(completion.Outcome), completion.Duration)

		if publish {
			eventbus.Publish(o.bus, completion)
		} else {
			o.log.Debugf("Completion for %s suppressed by decision", req.ContextSignature)
		}
	}()

	if d, name := EvaluateGuards(o.guards, req, o.policy); !d.ShouldProceed {
		o.stopped("guard", name, req, d)
		completion.Reason, completion.Outcome, completion.Violation = d.Reason, d.Outcome(), d.IsViolation
		publish = d.ShouldPublishCompletion

		return
	}

	if d, name := RunValidators(o.validators, req, o.policy); !d.ShouldProceed {
		o.stopped("validate", name, req, d)
		completion.Reason, completion.Outcome, completion.Violation = d.Reason, d.Outcome(), d.IsViolation
		publish = d.ShouldPublishCompletion

		return
	}

	discovery := o.discoverer.Discover(req)
	for _, id := range discovery.Fallbacks {
		o.policy.ReportDegraded(DegradedReport{
			FeatureID:  constants.FeatureDiscovery,
			ReasonCode: constants.ReasonKindFallback,
			Detail:     fmt.Sprintf("participant %s has no kind capability, matched %q by fallback", id, req.Scope.Kind),
			Signature:  req.ContextSignature,
			Profile:    req.ProfileName,
		})
	}

	if len(discovery.Participants) == 0 {
		reason := constants.ReasonNoController + ":" + req.TargetScene
		o.log.Warnf("[DEGRADED] No reset participants for scene %q (signature %s, scope %s)", req.TargetScene, req.ContextSignature, req.Scope)
		o.policy.ReportDegraded(DegradedReport{
			FeatureID:  constants.FeatureWorldReset,
			ReasonCode: reason,
			Detail:     fmt.Sprintf("no controller found for scene %s", req.TargetScene),
			Signature:  req.ContextSignature,
			Profile:    req.ProfileName,
		})

		completion.Reason, completion.Outcome = reason, OutcomeNoParticipants

		return
	}

	base := ResetContext{
		SceneName:     req.TargetScene,
		Request:       req,
		RunID:         completion.RunID,
		RequestSerial: completion.RequestSerial,
		FrameStarted:  o.frames.CurrentFrame(),
	}

	eventbus.Publish(o.bus, ResetStarted{
		Signature:     req.ContextSignature,
		Reason:        req.Reason,
		RunID:         base.RunID,
		Scene:         base.SceneName,
		RequestSerial: base.RequestSerial,
		FrameStarted:  base.FrameStarted,
		Participants:  len(discovery.Participants),
	})

	o.log.Infof("World reset %s started for scene %q with %d participants (signature %s)",
		base.RunID, base.SceneName, len(discovery.Participants), req.ContextSignature)

	if err := o.executor.Execute(ctx, discovery.Participants, base); err != nil {
		o.failed(req, err)

		completion.Reason, completion.Outcome = constants.ReasonExecutionFailed, OutcomeFailed

		return
	}

	completion.Reason, completion.Outcome = req.Reason, OutcomeSucceeded
	if strings.TrimSpace(completion.Reason) == "" {
		completion.Reason = constants.ReasonCompleted
	}

	o.log.Infof("World reset %s completed in %s", base.RunID, time.Since(start))
}

// stopped logs a guard or validator stop. Violations go to the degraded
// reporter and are logged as STRICT or DEGRADED; skips are benign.
func (o *Orchestrator) stopped(stage, name string, req ResetRequest, d Decision) {
	if !d.IsViolation {
		o.log.Infof("World reset skipped by %s %s: %s (%s) signature=%q", stage, name, d.Reason, d.Detail, req.ContextSignature)

		return
	}

	if o.policy.IsStrict() {
		o.log.Errorw("[STRICT] World reset rejected",
			"stage", stage, "check", name, "reason_code", d.Reason, "detail", d.Detail, "signature", req.ContextSignature)
	} else {
		o.log.Warnw("[DEGRADED] World reset rejected",
			"stage", stage, "check", name, "reason_code", d.Reason, "detail", d.Detail, "signature", req.ContextSignature)
	}

	o.policy.ReportDegraded(DegradedReport{
		FeatureID:  constants.FeatureWorldReset,
		ReasonCode: d.Reason,
		Detail:     d.Detail,
		Signature:  req.ContextSignature,
		Profile:    req.ProfileName,
	})
}

func (o *Orchestrator) failed(req ResetRequest, err error) {
	stage := "execute"

	var phaseErr *PhaseError

	var panicErr *PanicError

	switch {
	case errors.As(err, &panicErr):
		stage = panicErr.Phase.String()
	case errors.As(err, &phaseErr):
		stage = phaseErr.Phase.String()
	}

	sentry.ReportResetIssue(o.log, sentry.IssueTypeError, stage, constants.ReasonExecutionFailed, req.ContextSignature, err)
	metrics.IncErrorCountAndLog(metrics.ComponentResetOrchestrator, req.TargetScene, err, o.log)
}
