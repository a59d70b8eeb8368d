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

package di

import (
	"reflect"
	"sync"

	"go.uber.org/zap"
)

// Lazy resolves T from a scope on first successful Get and caches it.
// Until the binding appears every Get re-attempts the lookup; the
// "not yet available" warning is logged only once.
type Lazy[T any] struct {
	scope  *Scope
	log    *zap.SugaredLogger
	value  T
	ok     bool
	warned bool
	mu     sync.Mutex
}

// NewLazy creates a lazy accessor over scope.
func NewLazy[T any](scope *Scope, log *zap.SugaredLogger) *Lazy[T] {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Lazy[T]{scope: scope, log: log}
}

// Get returns the resolved value, or false while it is still unavailable.
func (l *Lazy[T]) Get() (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ok {
		return l.value, true
	}

	v, ok := Resolve[T](l.scope)
	if !ok {
		if !l.warned {
			l.warned = true
			l.log.Warnf("Dependency %s not yet available in %s scope %q, will retry on next access",
				reflect.TypeFor[T](), l.scope.Level(), l.scope.Name())
		}

		var zero T

		return zero, false
	}

	l.value = v
	l.ok = true

	return v, true
}

// Ready reports whether the value has been resolved.
func (l *Lazy[T]) Ready() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.ok
}
