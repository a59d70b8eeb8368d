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
	"sort"
	"sync"
	"time"

	"github.com/united-manufacturing-hub/expiremap/v2/pkg/expiremap"

	"github.com/united-manufacturing-hub/playloop/pkg/constants"
	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
)

// Record is the latest known run for a signature.
type Record struct {
	Signature    string        `json:"signature"`
	RunID        string        `json:"runId"`
	Scene        string        `json:"scene"`
	Reason       string        `json:"reason"`
	Outcome      Outcome       `json:"outcome,omitempty"`
	Violation    bool          `json:"violation"`
	Participants int           `json:"participants"`
	StartedAt    time.Time     `json:"startedAt,omitzero"`
	CompletedAt  time.Time     `json:"completedAt,omitzero"`
	Duration     time.Duration `json:"duration"`
	InProgress   bool          `json:"inProgress"`
}

// History keeps the most recent run per signature for a TTL. It learns
// about runs only from ResetStarted and ResetCompleted on the bus.
type History struct {
	records *expiremap.ExpireMap[string, Record]
	subs    []*eventbus.Subscription
	mu      sync.Mutex
}

// NewHistory subscribes to bus. ttl <= 0 uses the default TTL.
func NewHistory(bus *eventbus.Bus, ttl time.Duration) *History {
	if ttl <= 0 {
		ttl = constants.DefaultResetHistoryTTL
	}

	cull := constants.ResetHistoryCullInterval
	if ttl < cull {
		cull = ttl
	}

	h := &History{
		records: expiremap.NewEx[string, Record](cull, ttl),
	}

	h.subs = append(h.subs,
		eventbus.Subscribe(bus, h.onStarted),
		eventbus.Subscribe(bus, h.onCompleted),
	)

	return h
}

func (h *History) onStarted(e ResetStarted) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records.Set(e.Signature, Record{
		Signature:    e.Signature,
		RunID:        e.RunID,
		Scene:        e.Scene,
		Reason:       e.Reason,
		Participants: e.Participants,
		StartedAt:    time.Now(),
		InProgress:   true,
	})
}

func (h *History) onCompleted(e ResetCompleted) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec := Record{Signature: e.Signature}
	if prev, ok := h.records.Load(e.Signature); ok && prev.RunID == e.RunID {
		rec = *prev
	}

	rec.RunID = e.RunID
	rec.Scene = e.Scene
	rec.Reason = e.Reason
	rec.Outcome = e.Outcome
	rec.Violation = e.Violation
	rec.CompletedAt = time.Now()
	rec.Duration = e.Duration
	rec.InProgress = false

	h.records.Set(e.Signature, rec)
}

// Get returns the record for sig.
func (h *History) Get(sig string) (Record, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec, ok := h.records.Load(sig)
	if !ok {
		return Record{}, false
	}

	return *rec, true
}

// List returns all live records, most recent first.
func (h *History) List() []Record {
	h.mu.Lock()

	var out []Record

	h.records.Range(func(_ string, rec Record) bool {
		out = append(out, rec)

		return true
	})
	h.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		return lastSeen(out[i]).After(lastSeen(out[j]))
	})

	return out
}

// Len returns the number of live records.
func (h *History) Len() int {
	return h.records.Length()
}

// Close stops listening to the bus.
func (h *History) Close() {
	for _, s := range h.subs {
		s.Close()
	}
}

func lastSeen(r Record) time.Time {
	if r.CompletedAt.After(r.StartedAt) {
		return r.CompletedAt
	}

	return r.StartedAt
}
