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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Executor runs the three phases over a sorted participant list.
//
// Phases are separated by a global barrier. Within a phase, participants with
// a lower Order finish before the next Order starts; participants sharing an
// Order run with at most maxParallel in flight (1 keeps them sequential by id).
// The first fatal error stops the run without rollback.
type Executor struct {
	log         *zap.SugaredLogger
	maxParallel int
}

// NewExecutor creates an executor. maxParallel below 1 is treated as 1.
func NewExecutor(maxParallel int, log *zap.SugaredLogger) *Executor {
	if maxParallel < 1 {
		maxParallel = 1
	}

	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Executor{log: log, maxParallel: maxParallel}
}

// Execute runs Cleanup, Restore and Rebind for participants. base supplies
// every field of the ResetContext except CurrentPhase.
func (e *Executor) Execute(ctx context.Context, participants []Participant, base ResetContext) error {
	for _, phase := range Phases {
		rc := base
		rc.CurrentPhase = phase

		if err := e.executePhase(ctx, participants, rc); err != nil {
			return err
		}

		e.log.Debugf("Reset %s finished %s for %d participants", base.RunID, phase, len(participants))
	}

	return nil
}

func (e *Executor) executePhase(ctx context.Context, participants []Participant, rc ResetContext) error {
	for start := 0; start < len(participants); {
		end := start + 1
		for end < len(participants) && participants[end].Order() == participants[start].Order() {
			end++
		}

		if err := e.executeBatch(ctx, participants[start:end], rc); err != nil {
			return err
		}

		start = end
	}

	return nil
}

func (e *Executor) executeBatch(ctx context.Context, batch []Participant, rc ResetContext) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.maxParallel)

	for _, p := range batch {
		g.Go(func() error {
			return e.invoke(gctx, p, rc)
		})
	}

	return g.Wait()
}

func (e *Executor) invoke(ctx context.Context, p Participant, rc ResetContext) (err error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &PhaseError{Err: ctxErr, Participant: p.ID(), Phase: rc.CurrentPhase}
	}

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Participant: p.ID(), Phase: rc.CurrentPhase}
		}
	}()

	if phaseErr := runPhase(ctx, p, rc); phaseErr != nil {
		if IsIgnoredError(phaseErr) {
			e.log.Debugf("Ignoring %s error of participant %s: %v", rc.CurrentPhase, p.ID(), phaseErr)

			return nil
		}

		return &PhaseError{Err: phaseErr, Participant: p.ID(), Phase: rc.CurrentPhase}
	}

	return nil
}

