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

// Package resettest holds test doubles for the world reset pipeline.
package resettest

import (
	"context"
	"fmt"
	"sync"

	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
	"github.com/united-manufacturing-hub/playloop/pkg/reset"
)

// CallLog records participant calls as "id:phase" in call order.
type CallLog struct {
	entries []string
	mu      sync.Mutex
}

// Append adds an entry.
func (c *CallLog) Append(entry string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = append(c.entries, entry)
}

// Entries returns a copy of the recorded entries.
func (c *CallLog) Entries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]string(nil), c.entries...)
}

// Participant is a recording reset participant.
type Participant struct {
	Name     string
	Priority int
	Log      *CallLog

	// Fail maps a phase to the error returned from it.
	Fail map[reset.Phase]error
	// Panic makes the given phases panic.
	Panic map[reset.Phase]bool

	contexts []reset.ResetContext
	mu       sync.Mutex
}

// NewParticipant creates a participant logging into log.
func NewParticipant(id string, order int, log *CallLog) *Participant {
	return &Participant{Name: id, Priority: order, Log: log}
}

func (p *Participant) ID() string { return p.Name }
func (p *Participant) Order() int { return p.Priority }

func (p *Participant) Cleanup(ctx context.Context, rc reset.ResetContext) error {
	return p.handle(rc)
}

func (p *Participant) Restore(ctx context.Context, rc reset.ResetContext) error {
	return p.handle(rc)
}

func (p *Participant) Rebind(ctx context.Context, rc reset.ResetContext) error {
	return p.handle(rc)
}

func (p *Participant) handle(rc reset.ResetContext) error {
	p.mu.Lock()
	p.contexts = append(p.contexts, rc)
	p.mu.Unlock()

	if p.Log != nil {
		p.Log.Append(fmt.Sprintf("%s:%s", p.Name, rc.CurrentPhase))
	}

	if p.Panic[rc.CurrentPhase] {
		panic(fmt.Sprintf("%s exploded in %s", p.Name, rc.CurrentPhase))
	}

	return p.Fail[rc.CurrentPhase]
}

// Contexts returns the contexts the participant was called with.
func (p *Participant) Contexts() []reset.ResetContext {
	p.mu.Lock()
	defer p.mu.Unlock()

	return append([]reset.ResetContext(nil), p.contexts...)
}

// KindedParticipant adds the KindProvider capability.
type KindedParticipant struct {
	*Participant
	KindName string
}

func (k *KindedParticipant) Kind() string { return k.KindName }

// BlockingParticipant blocks in Cleanup until Release is called.
type BlockingParticipant struct {
	*Participant
	entered chan struct{}
	release chan struct{}
	once    sync.Once
	enter   sync.Once
}

// NewBlockingParticipant creates a participant that holds the run in Cleanup.
func NewBlockingParticipant(id string, log *CallLog) *BlockingParticipant {
	return &BlockingParticipant{
		Participant: NewParticipant(id, 0, log),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (b *BlockingParticipant) Cleanup(ctx context.Context, rc reset.ResetContext) error {
	b.enter.Do(func() { close(b.entered) })
	<-b.release

	return b.Participant.Cleanup(ctx, rc)
}

// Entered is closed once Cleanup has been entered.
func (b *BlockingParticipant) Entered() <-chan struct{} { return b.entered }

// Release unblocks Cleanup.
func (b *BlockingParticipant) Release() { b.once.Do(func() { close(b.release) }) }

// Reporter records degraded reports.
type Reporter struct {
	reports []reset.DegradedReport
	mu      sync.Mutex
}

// Report implements reset.DegradedReporter.
func (r *Reporter) Report(report reset.DegradedReport) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reports = append(r.reports, report)
}

// Reports returns the recorded reports.
func (r *Reporter) Reports() []reset.DegradedReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]reset.DegradedReport(nil), r.reports...)
}

// ReasonCodes returns the reason codes in report order.
func (r *Reporter) ReasonCodes() []string {
	var out []string
	for _, rep := range r.Reports() {
		out = append(out, rep.ReasonCode)
	}

	return out
}

// Recorder captures reset events from a bus.
type Recorder struct {
	started   []reset.ResetStarted
	completed []reset.ResetCompleted
	subs      []*eventbus.Subscription
	mu        sync.Mutex
}

// NewRecorder subscribes to bus.
func NewRecorder(bus *eventbus.Bus) *Recorder {
	r := &Recorder{}
	r.subs = append(r.subs,
		eventbus.Subscribe(bus, func(e reset.ResetStarted) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.started = append(r.started, e)
		}),
		eventbus.Subscribe(bus, func(e reset.ResetCompleted) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.completed = append(r.completed, e)
		}),
	)

	return r
}

// Started returns the recorded ResetStarted events.
func (r *Recorder) Started() []reset.ResetStarted {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]reset.ResetStarted(nil), r.started...)
}

// Completed returns the recorded ResetCompleted events.
func (r *Recorder) Completed() []reset.ResetCompleted {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]reset.ResetCompleted(nil), r.completed...)
}

// CompletedFor returns the completions for one signature.
func (r *Recorder) CompletedFor(sig string) []reset.ResetCompleted {
	var out []reset.ResetCompleted

	for _, c := range r.Completed() {
		if c.Signature == sig {
			out = append(out, c)
		}
	}

	return out
}

// Close unsubscribes.
func (r *Recorder) Close() {
	for _, s := range r.subs {
		s.Close()
	}
}

// Source is a static participant source keyed by scene.
type Source map[string][]reset.Participant

// ParticipantsFor implements reset.ParticipantSource.
func (s Source) ParticipantsFor(scene string) []reset.Participant {
	return append([]reset.Participant(nil), s[scene]...)
}
