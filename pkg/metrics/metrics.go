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

package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/logger"
	"github.com/united-manufacturing-hub/playloop/pkg/sentry"
)

const (
	// Component Labels.
	ComponentControlLoop       = "control_loop"
	ComponentGameLoop          = "game_loop"
	ComponentResetService      = "reset_service"
	ComponentResetOrchestrator = "reset_orchestrator"
	ComponentSceneFlow         = "scene_flow"
	ComponentAdminAPI          = "admin_api"
	ComponentEventBus          = "event_bus"
	ComponentDegraded          = "degraded_reporter"
)

var (
	// Namespace for all metrics.
	namespace = "playloop"

	errorCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors encountered by component",
		},
		[]string{"component", "instance"},
	)

	tickTime = promauto.NewSummary(
		prometheus.SummaryOpts{
			Namespace: namespace,
			Subsystem: "gameloop",
			Name:      "tick_duration_milliseconds",
			Help:      "Time taken to process one simulation tick (in milliseconds)",
			Objectives: map[float64]float64{
				0.5:  0.01,
				0.9:  0.01,
				0.99: 0.01,
			},
		},
	)

	starvationSeconds = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "loop_starved_total_seconds",
			Help:      "Total seconds the tick loop was starved",
		},
	)

	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "gameloop",
			Name:      "transitions_total",
			Help:      "Game loop state transitions by source and destination state",
		},
		[]string{"from", "to"},
	)

	currentState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "gameloop",
			Name:      "state",
			Help:      "Current game loop state (0=Boot, 1=Ready, 2=IntroStage, 3=Playing, 4=Paused, 5=PostPlay, -1=Unknown)",
		},
	)

	resetRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reset",
			Name:      "requests_total",
			Help:      "World reset runs by outcome",
		},
		[]string{"outcome"},
	)

	resetDuplicates = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reset",
			Name:      "duplicates_total",
			Help:      "World reset requests dropped because the same signature was in flight",
		},
	)

	resetInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "reset",
			Name:      "inflight",
			Help:      "Number of world reset signatures currently being processed",
		},
	)

	resetDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reset",
			Name:      "duration_seconds",
			Help:      "Duration of world reset runs in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"outcome"},
	)

	degradedReports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reset",
			Name:      "degraded_reports_total",
			Help:      "Degraded-mode reports by feature and reason code",
		},
		[]string{"feature", "reason"},
	)
)

// SetupMetricsEndpoint starts an HTTP server to expose metrics
// This should be called once at application startup.
func SetupMetricsEndpoint(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sentry.ReportIssue(err, sentry.IssueTypeError, logger.For("metrics"))
		}
	}()

	return server
}

// IncErrorCountAndLog increments the error counter for a component and logs a debug message if a logger is provided.
func IncErrorCountAndLog(component, instance string, err error, logger *zap.SugaredLogger) {
	IncErrorCount(component, instance)

	if logger != nil {
		logger.Debugf("Component %s instance %s failed: %v", component, instance, err)
	}
}

// IncErrorCount increments the error counter for a component.
func IncErrorCount(component, instance string) {
	errorCounter.WithLabelValues(component, instance).Inc()
}

// InitErrorCounter initializes the error counter for a component.
func InitErrorCounter(component, instance string) {
	errorCounter.WithLabelValues(component, instance).Add(0)
}

// ObserveTickTime records the time taken for one tick.
func ObserveTickTime(duration time.Duration) {
	tickTime.Observe(float64(duration.Microseconds()) / 1000)
}

// AddStarvationTime increases the starvation counter by the specified seconds.
func AddStarvationTime(seconds float64) {
	starvationSeconds.Add(seconds)
}

// RecordTransition counts a game loop transition and updates the state gauge.
func RecordTransition(from, to string) {
	transitionsTotal.WithLabelValues(from, to).Inc()
	currentState.Set(getStateValue(to))
}

// RecordResetOutcome records a finished reset run.
func RecordResetOutcome(outcome string, duration time.Duration) {
	resetRequests.WithLabelValues(outcome).Inc()
	resetDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// IncResetDuplicates counts a dropped duplicate reset request.
func IncResetDuplicates() {
	resetDuplicates.Inc()
}

// SetResetInFlight publishes the size of the in-flight signature set.
func SetResetInFlight(n int) {
	resetInFlight.Set(float64(n))
}

// IncDegradedReport counts a degraded-mode report.
func IncDegradedReport(feature, reason string) {
	degradedReports.WithLabelValues(feature, reason).Inc()
}

func getStateValue(state string) float64 {
	switch state {
	case "boot":
		return 0
	case "ready":
		return 1
	case "intro_stage":
		return 2
	case "playing":
		return 3
	case "paused":
		return 4
	case "post_play":
		return 5
	default:
		return -1
	}
}
