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

// Package degraded is the telemetry sink for non-ideal world reset paths.
package degraded

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/metrics"
	"github.com/united-manufacturing-hub/playloop/pkg/reset"
	"github.com/united-manufacturing-hub/playloop/pkg/sentry"
)

// SentryReporter logs every report, counts it and forwards it to sentry as a warning.
// Sentry debounces identical reports, so a looping fallback does not flood it.
type SentryReporter struct {
	log *zap.SugaredLogger
}

// NewSentryReporter creates a reporter.
func NewSentryReporter(log *zap.SugaredLogger) *SentryReporter {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &SentryReporter{log: log}
}

// Report implements reset.DegradedReporter. It never panics.
func (r *SentryReporter) Report(report reset.DegradedReport) {
	defer func() {
		if rec := recover(); rec != nil {
			metrics.IncErrorCount(metrics.ComponentDegraded, report.FeatureID)
			r.log.Errorf("Degraded reporter failed for %s: %v", report.ReasonCode, rec)
		}
	}()

	metrics.IncDegradedReport(report.FeatureID, ReasonFamily(report.ReasonCode))

	context := map[string]interface{}{
		"feature":     report.FeatureID,
		"reason_code": ReasonFamily(report.ReasonCode),
		"detail":      report.Detail,
	}

	if report.Signature != "" {
		context["signature"] = report.Signature
	}

	if report.Profile != "" {
		context["profile"] = report.Profile
	}

	msg := report.Detail
	if msg == "" {
		msg = report.ReasonCode
	}

	sentry.ReportIssueWithContext(fmt.Errorf("%s: %s", report.ReasonCode, msg), sentry.IssueTypeWarning, r.log, context)
}

// ReasonFamily strips the per-instance suffix (":<scene>", ":<token>") from a
// reason code so metrics and fingerprints stay low cardinality.
func ReasonFamily(reasonCode string) string {
	if i := strings.IndexByte(reasonCode, ':'); i >= 0 {
		return reasonCode[:i]
	}

	return reasonCode
}

// Multi fans a report out to several reporters.
type Multi []reset.DegradedReporter

// Report implements reset.DegradedReporter.
func (m Multi) Report(report reset.DegradedReport) {
	for _, r := range m {
		if r != nil {
			r.Report(report)
		}
	}
}
