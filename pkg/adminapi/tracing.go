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

package adminapi

import (
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// sentryTracingMiddleware continues an incoming trace and wraps the request
// in a transaction. Without an initialized client the transaction is a no-op.
func sentryTracingMiddleware(c *gin.Context) {
	ctx := c.Request.Context()

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub().Clone()
		ctx = sentry.SetHubOnContext(ctx, hub)
	}

	transaction := sentry.StartTransaction(ctx, fmt.Sprintf("%s %s", c.Request.Method, c.FullPath()),
		sentry.WithOpName("http.server"),
		sentry.ContinueFromRequest(c.Request),
		sentry.WithTransactionSource(sentry.SourceRoute),
	)
	transaction.SetData("method", c.Request.Method)

	c.Request = c.Request.WithContext(transaction.Context())

	c.Next()

	transaction.SetData("status_code", c.Writer.Status())

	if len(c.Errors) > 0 {
		transaction.SetData("error", c.Errors.String())
	}

	transaction.Finish()
}
