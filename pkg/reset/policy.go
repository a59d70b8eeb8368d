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

import "sync/atomic"

// DegradedReport describes a non-ideal pipeline path.
type DegradedReport struct {
	FeatureID  string
	ReasonCode string
	Detail     string
	Signature  string
	Profile    string
}

// DegradedReporter is a telemetry sink. Implementations must not panic or block.
type DegradedReporter interface {
	Report(report DegradedReport)
}

// DegradedReporterFunc adapts a function to DegradedReporter.
type DegradedReporterFunc func(DegradedReport)

// Report calls f.
func (f DegradedReporterFunc) Report(r DegradedReport) { f(r) }

// Policy is handed to every guard and validator.
type Policy interface {
	// IsStrict escalates violations from degraded notices to hard violations in logs.
	IsStrict() bool
	ReportDegraded(report DegradedReport)
}

// RuntimePolicy is a Policy whose strictness can be flipped at runtime.
type RuntimePolicy struct {
	reporter DegradedReporter
	strict   atomic.Bool
}

// NewPolicy creates a policy reporting to reporter. A nil reporter drops reports.
func NewPolicy(strict bool, reporter DegradedReporter) *RuntimePolicy {
	p := &RuntimePolicy{reporter: reporter}
	p.strict.Store(strict)

	return p
}

// IsStrict implements Policy.
func (p *RuntimePolicy) IsStrict() bool { return p.strict.Load() }

// SetStrict changes the strictness for subsequent runs.
func (p *RuntimePolicy) SetStrict(strict bool) { p.strict.Store(strict) }

// ReportDegraded implements Policy.
func (p *RuntimePolicy) ReportDegraded(report DegradedReport) {
	if p.reporter == nil {
		return
	}

	p.reporter.Report(report)
}
