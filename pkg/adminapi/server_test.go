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

package adminapi_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"

	"github.com/united-manufacturing-hub/playloop/pkg/adminapi"
	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
	"github.com/united-manufacturing-hub/playloop/pkg/gameloop"
	"github.com/united-manufacturing-hub/playloop/pkg/reset"
	"github.com/united-manufacturing-hub/playloop/pkg/simgate"
)

type fakeResets struct {
	requests []reset.ResetRequest
	inFlight []string
	mu       sync.Mutex
}

func (f *fakeResets) TriggerResetAsync(_ context.Context, req reset.ResetRequest) <-chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	done := make(chan struct{})
	close(done)

	return done
}

func (f *fakeResets) InFlight() []string { return f.inFlight }

func (f *fakeResets) Requests() []reset.ResetRequest {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]reset.ResetRequest(nil), f.requests...)
}

var _ = Describe("Server", func() {
	var (
		bus     *eventbus.Bus
		source  *gameloop.LatchedSource
		machine *gameloop.Machine
		resets  *fakeResets
		history *reset.History
		gate    *simgate.Service
		handler http.Handler
	)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		return rec
	}

	BeforeEach(func() {
		log := zaptest.NewLogger(GinkgoT()).Sugar()
		bus = eventbus.New(log)
		source = gameloop.NewLatchedSource(log)
		machine = gameloop.NewMachine(source, nil, log)
		resets = &fakeResets{inFlight: []string{"manual:7"}}
		history = reset.NewHistory(bus, 0)
		DeferCleanup(history.Close)
		gate = simgate.NewService(log)

		server, err := adminapi.NewServer(adminapi.Dependencies{
			Loop:    machine,
			Signals: source,
			Resets:  resets,
			History: history,
			Gate:    gate,
		}, 0, false, log)
		Expect(err).NotTo(HaveOccurred())

		handler = server.Handler()
	})

	It("refuses to build without its required dependencies", func() {
		_, err := adminapi.NewServer(adminapi.Dependencies{}, 0, false, nil)
		Expect(err).To(HaveOccurred())
	})

	Describe("GET /state", func() {
		It("reports loop state, in-flight resets and gate tokens", func() {
			release := gate.Acquire("world.reset.lock")
			defer release()

			rec := do(http.MethodGet, "/state", "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var body adminapi.StateResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Loop.Current).To(Equal(gameloop.Boot))
			Expect(body.InFlight).To(Equal([]string{"manual:7"}))
			Expect(body.ActiveTokens).To(Equal([]string{"world.reset.lock"}))
		})
	})

	Describe("POST /loop/:signal", func() {
		It("latches a known signal for the next tick", func() {
			rec := do(http.MethodPost, "/loop/start", "")
			Expect(rec.Code).To(Equal(http.StatusAccepted))
			Expect(source.Peek().StartRequested).To(BeTrue())

			_, changed := machine.Update(context.Background())
			Expect(changed).To(BeTrue())
			Expect(machine.Current()).To(Equal(gameloop.Ready))
		})

		It("rejects an unknown signal", func() {
			rec := do(http.MethodPost, "/loop/teleport", "")
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(source.Peek().Any()).To(BeFalse())
		})
	})

	Describe("POST /resets", func() {
		It("accepts a request and hands it to the reset service", func() {
			rec := do(http.MethodPost, "/resets", `{"contextSignature":"manual:admin","reason":"debug","targetScene":"arena","scope":{"mode":"kind","kind":"Enemy"}}`)
			Expect(rec.Code).To(Equal(http.StatusAccepted))

			Expect(resets.Requests()).To(HaveLen(1))
			req := resets.Requests()[0]
			Expect(req.ContextSignature).To(Equal("manual:admin"))
			Expect(req.Origin).To(Equal(reset.OriginManual))
			Expect(req.Scope).To(Equal(reset.ScopeKind("Enemy")))
		})

		It("rejects malformed JSON", func() {
			rec := do(http.MethodPost, "/resets", `{"contextSignature":`)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
			Expect(resets.Requests()).To(BeEmpty())
		})
	})

	Describe("GET /resets", func() {
		It("lists the history and looks up single records", func() {
			eventbus.Publish(bus, reset.ResetCompleted{Signature: "manual:1", Outcome: reset.OutcomeSucceeded, Scene: "arena"})

			rec := do(http.MethodGet, "/resets", "")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var records []reset.Record
			Expect(json.Unmarshal(rec.Body.Bytes(), &records)).To(Succeed())
			Expect(records).To(HaveLen(1))
			Expect(records[0].Outcome).To(Equal(reset.OutcomeSucceeded))

			Expect(do(http.MethodGet, "/resets/manual:1", "").Code).To(Equal(http.StatusOK))
			Expect(do(http.MethodGet, "/resets/unknown", "").Code).To(Equal(http.StatusNotFound))
		})
	})
})
