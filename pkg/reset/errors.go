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
	"errors"
	"fmt"
)

// ErrorCategory tells the executor how to treat a participant error.
type ErrorCategory int

const (
	// CategoryFatal stops the run. Completed phases stay completed; there is no rollback.
	CategoryFatal ErrorCategory = iota

	// CategoryIgnored is logged and the phase continues with the next participant.
	CategoryIgnored
)

// CategorizedError wraps a participant error with its category.
type CategorizedError struct {
	Err      error
	Category ErrorCategory
}

// Error returns the original error message.
func (ce *CategorizedError) Error() string {
	return ce.Err.Error()
}

// Unwrap returns the underlying wrapped error.
func (ce *CategorizedError) Unwrap() error {
	return ce.Err
}

// NewIgnoredError marks err as not worth stopping the run for.
func NewIgnoredError(err error) error {
	return &CategorizedError{Err: err, Category: CategoryIgnored}
}

// NewFatalError marks err as stopping the run. Uncategorized errors are fatal too.
func NewFatalError(err error) error {
	return &CategorizedError{Err: err, Category: CategoryFatal}
}

// IsIgnoredError reports whether err was wrapped with NewIgnoredError.
func IsIgnoredError(err error) bool {
	var ce *CategorizedError

	return errors.As(err, &ce) && ce.Category == CategoryIgnored
}

// PanicError is returned in place of a panic raised inside a participant.
type PanicError struct {
	Value       any
	Participant string
	Phase       Phase
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("participant %s panicked during %s: %v", p.Participant, p.Phase, p.Value)
}

// PhaseError attributes a fatal error to a participant and phase.
type PhaseError struct {
	Err         error
	Participant string
	Phase       Phase
}

func (p *PhaseError) Error() string {
	return fmt.Sprintf("%s failed for participant %s: %v", p.Phase, p.Participant, p.Err)
}

// Unwrap returns the participant error.
func (p *PhaseError) Unwrap() error {
	return p.Err
}
