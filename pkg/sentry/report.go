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

package sentry

import (
	"fmt"

	"go.uber.org/zap"
)

type IssueType string

const (
	IssueTypeWarning IssueType = "warning"
	IssueTypeError   IssueType = "error"
	IssueTypeFatal   IssueType = "fatal"
)

func ReportIssue(err error, issueType IssueType, log *zap.SugaredLogger) {
	ReportIssueWithContext(err, issueType, log, nil)
}

func ReportIssuef(issueType IssueType, log *zap.SugaredLogger, template string, args ...interface{}) {
	ReportIssue(fmt.Errorf(template, args...), issueType, log)
}

// ReportIssueWithContext reports an issue with additional context data that will be included in Sentry.
func ReportIssueWithContext(err error, issueType IssueType, log *zap.SugaredLogger, context map[string]interface{}) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	switch issueType {
	case IssueTypeFatal:
		reportFatal(err, log, context)
	case IssueTypeError:
		reportDebounced(err, log, context, IssueTypeError)
	case IssueTypeWarning:
		reportDebounced(err, log, context, IssueTypeWarning)
	}
}

// ReportIssuefWithContext formats an error message and reports it with additional context data.
func ReportIssuefWithContext(issueType IssueType, log *zap.SugaredLogger, context map[string]interface{}, template string, args ...interface{}) {
	ReportIssueWithContext(fmt.Errorf(template, args...), issueType, log, context)
}

// ReportResetIssue reports a world reset anomaly. The stage and reason code
// take part in grouping, the signature does not.
func ReportResetIssue(log *zap.SugaredLogger, issueType IssueType, stage, reasonCode, signature string, err error) {
	context := map[string]interface{}{
		"feature":     "WorldReset",
		"stage":       stage,
		"reason_code": reasonCode,
		"signature":   signature,
	}
	ReportIssueWithContext(err, issueType, log, context)
}

// ReportLoopError reports a game loop failure with proper context.
func ReportLoopError(log *zap.SugaredLogger, state string, operation string, err error) {
	context := map[string]interface{}{
		"feature":   "GameLoop",
		"state":     state,
		"operation": operation,
	}
	ReportIssueWithContext(err, IssueTypeError, log, context)
}
