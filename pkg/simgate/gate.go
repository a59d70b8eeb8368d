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

// Package simgate tracks named tokens that hold parts of the simulation.
// A token is active while at least one holder has acquired it and not yet
// released it.
package simgate

import (
	"sort"
	"sync"

	"go.uber.org/zap"
)

// Gate is the read side consumed by guards and authorization checks.
type Gate interface {
	IsTokenActive(token string) bool
}

// Service is a reference-counted token gate.
type Service struct {
	log    *zap.SugaredLogger
	counts map[string]int
	mu     sync.Mutex
}

// NewService creates an empty gate.
func NewService(log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Service{
		log:    log,
		counts: make(map[string]int),
	}
}

// Acquire increments the holder count for token and returns its release
// function. Release is idempotent.
func (s *Service) Acquire(token string) (release func()) {
	s.mu.Lock()
	s.counts[token]++
	n := s.counts[token]
	s.mu.Unlock()

	if n == 1 {
		s.log.Debugf("Gate token %s acquired", token)
	}

	var once sync.Once

	return func() {
		once.Do(func() { s.release(token) })
	}
}

func (s *Service) release(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.counts[token] - 1
	if n <= 0 {
		delete(s.counts, token)
		s.log.Debugf("Gate token %s released", token)

		return
	}

	s.counts[token] = n
}

// IsTokenActive reports whether token has at least one holder.
func (s *Service) IsTokenActive(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.counts[token] > 0
}

// IsAnyActive reports whether any of tokens is held and returns the first one found.
func (s *Service) IsAnyActive(tokens ...string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range tokens {
		if s.counts[t] > 0 {
			return t, true
		}
	}

	return "", false
}

// ActiveTokens returns the held tokens in lexical order.
func (s *Service) ActiveTokens() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.counts))
	for t := range s.counts {
		out = append(out, t)
	}

	sort.Strings(out)

	return out
}
