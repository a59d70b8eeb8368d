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

// Package eventbus is an in-process publish/subscribe bus keyed by the Go type
// of the payload.
//
// Dispatch is synchronous: Publish returns after every handler that was
// subscribed when the call started has run, in subscription order. A handler
// may publish further events or close subscriptions (including its own).
package eventbus

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/logger"
	"github.com/united-manufacturing-hub/playloop/pkg/metrics"
)

// Bus routes payloads to the handlers subscribed to their type.
type Bus struct {
	log      *zap.SugaredLogger
	handlers map[reflect.Type][]*Subscription
	nextID   uint64
	mu       sync.RWMutex
}

// Subscription is the handle returned by Subscribe. Close removes the handler.
type Subscription struct {
	bus    *Bus
	typ    reflect.Type
	invoke func(any)
	id     uint64
	closed atomic.Bool
	once   sync.Once
}

// New creates an empty bus.
func New(log *zap.SugaredLogger) *Bus {
	if log == nil {
		log = logger.For(logger.ComponentEventBus)
	}

	return &Bus{
		log:      log,
		handlers: make(map[reflect.Type][]*Subscription),
	}
}

// Subscribe registers handler for payloads of type T.
func Subscribe[T any](b *Bus, handler func(T)) *Subscription {
	typ := reflect.TypeFor[T]()

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &Subscription{
		bus: b,
		typ: typ,
		id:  b.nextID,
		invoke: func(payload any) {
			handler(payload.(T))
		},
	}
	b.handlers[typ] = append(b.handlers[typ], sub)

	return sub
}

// Publish delivers payload to every current subscriber of type T.
func Publish[T any](b *Bus, payload T) {
	typ := reflect.TypeFor[T]()

	b.mu.RLock()
	subs := append([]*Subscription(nil), b.handlers[typ]...)
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.closed.Load() {
			continue
		}

		b.dispatch(sub, payload)
	}
}

// SubscriberCount returns the number of open subscriptions for type T.
func SubscriberCount[T any](b *Bus) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.handlers[reflect.TypeFor[T]()])
}

func (b *Bus) dispatch(sub *Subscription, payload any) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Errorw("Event handler panicked",
				"payload_type", sub.typ.String(),
				"subscription", sub.id,
				"panic", fmt.Sprint(r))
			metrics.IncErrorCount(metrics.ComponentEventBus, sub.typ.String())
		}
	}()

	sub.invoke(payload)
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.handlers[sub.typ]
	for i, s := range subs {
		if s == sub {
			b.handlers[sub.typ] = append(subs[:i:i], subs[i+1:]...)

			break
		}
	}

	if len(b.handlers[sub.typ]) == 0 {
		delete(b.handlers, sub.typ)
	}
}

// Close unsubscribes. It is idempotent and safe to call from inside the handler.
func (s *Subscription) Close() {
	if s == nil {
		return
	}

	s.once.Do(func() {
		s.closed.Store(true)
		s.bus.remove(s)
	})
}

// Closed reports whether Close has been called.
func (s *Subscription) Closed() bool {
	return s != nil && s.closed.Load()
}
