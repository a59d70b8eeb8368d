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

// Package di provides typed dependency scopes. A scope resolves a type from
// its own bindings first and then walks its parent chain:
// entity -> scene -> process.
package di

import (
	"errors"
	"fmt"
	"reflect"
	"sync"
)

// Level identifies the lifetime a scope represents.
type Level int

const (
	Process Level = iota
	Scene
	Entity
)

func (l Level) String() string {
	switch l {
	case Process:
		return "process"
	case Scene:
		return "scene"
	case Entity:
		return "entity"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// ErrScopeClosed is returned when providing into a closed scope.
var ErrScopeClosed = errors.New("scope is closed")

// Scope holds typed bindings and the release functions registered against it.
type Scope struct {
	parent   *Scope
	bindings map[reflect.Type]any
	releases []func()
	children []*Scope
	name     string
	level    Level
	closed   bool
	mu       sync.RWMutex
}

// NewProcessScope creates the root scope.
func NewProcessScope() *Scope {
	return newScope(nil, Process, "process")
}

func newScope(parent *Scope, level Level, name string) *Scope {
	return &Scope{
		parent:   parent,
		bindings: make(map[reflect.Type]any),
		name:     name,
		level:    level,
	}
}

// Child creates a nested scope. The child must be at a deeper level than its parent.
// Closing the parent closes the child first.
func (s *Scope) Child(level Level, name string) (*Scope, error) {
	if level <= s.level {
		return nil, fmt.Errorf("cannot create %s scope %q under %s scope %q", level, name, s.level, s.name)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("scope %q: %w", s.name, ErrScopeClosed)
	}

	child := newScope(s, level, name)
	s.children = append(s.children, child)

	return child, nil
}

// Name returns the scope name.
func (s *Scope) Name() string { return s.name }

// Level returns the scope level.
func (s *Scope) Level() Level { return s.level }

// Parent returns the enclosing scope, nil for the process scope.
func (s *Scope) Parent() *Scope { return s.parent }

// OnClose registers fn to run when the scope closes. Functions run in reverse
// registration order. If the scope is already closed fn runs immediately.
func (s *Scope) OnClose(fn func()) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		fn()

		return
	}

	s.releases = append(s.releases, fn)
	s.mu.Unlock()
}

// Close closes child scopes, then runs the release functions in reverse order
// and drops all bindings. Panics in release functions are collected as errors
// so every release still runs.
func (s *Scope) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()

		return nil
	}

	s.closed = true
	children := s.children
	releases := s.releases
	s.children = nil
	s.releases = nil
	s.bindings = make(map[reflect.Type]any)
	s.mu.Unlock()

	var errs []error

	for i := len(children) - 1; i >= 0; i-- {
		if err := children[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	for i := len(releases) - 1; i >= 0; i-- {
		if err := runRelease(releases[i]); err != nil {
			errs = append(errs, fmt.Errorf("scope %q: %w", s.name, err))
		}
	}

	if s.parent != nil {
		s.parent.detach(s)
	}

	return errors.Join(errs...)
}

// Closed reports whether Close was called.
func (s *Scope) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.closed
}

func (s *Scope) detach(child *Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)

			return
		}
	}
}

func runRelease(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("release panicked: %v", r)
		}
	}()

	fn()

	return nil
}

// Provide binds value as the T of this scope, replacing any previous binding.
func Provide[T any](s *Scope, value T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return fmt.Errorf("scope %q: %w", s.name, ErrScopeClosed)
	}

	s.bindings[reflect.TypeFor[T]()] = value

	return nil
}

// Resolve returns the nearest binding for T, walking up the parent chain.
func Resolve[T any](s *Scope) (T, bool) {
	typ := reflect.TypeFor[T]()

	for cur := s; cur != nil; cur = cur.parent {
		cur.mu.RLock()
		v, ok := cur.bindings[typ]
		cur.mu.RUnlock()

		if ok {
			return v.(T), true
		}
	}

	var zero T

	return zero, false
}

// MustResolve is Resolve for bindings that are wired at bootstrap. It panics on a miss.
func MustResolve[T any](s *Scope) T {
	v, ok := Resolve[T](s)
	if !ok {
		panic(fmt.Sprintf("di: no binding for %s in %s scope %q", reflect.TypeFor[T](), s.level, s.name))
	}

	return v
}
