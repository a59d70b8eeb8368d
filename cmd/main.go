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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/internal/demo"
	"github.com/united-manufacturing-hub/playloop/pkg/actors"
	"github.com/united-manufacturing-hub/playloop/pkg/adminapi"
	"github.com/united-manufacturing-hub/playloop/pkg/config"
	"github.com/united-manufacturing-hub/playloop/pkg/constants"
	"github.com/united-manufacturing-hub/playloop/pkg/control"
	"github.com/united-manufacturing-hub/playloop/pkg/degraded"
	"github.com/united-manufacturing-hub/playloop/pkg/di"
	"github.com/united-manufacturing-hub/playloop/pkg/eventbus"
	"github.com/united-manufacturing-hub/playloop/pkg/gameloop"
	"github.com/united-manufacturing-hub/playloop/pkg/logger"
	"github.com/united-manufacturing-hub/playloop/pkg/metrics"
	"github.com/united-manufacturing-hub/playloop/pkg/reset"
	"github.com/united-manufacturing-hub/playloop/pkg/sceneflow"
	"github.com/united-manufacturing-hub/playloop/pkg/sentry"
	"github.com/united-manufacturing-hub/playloop/pkg/simgate"
	"github.com/united-manufacturing-hub/playloop/pkg/starvationchecker"
	"github.com/united-manufacturing-hub/playloop/pkg/version"
)

func main() {
	// Warnings and errors are forwarded to sentry once a client is initialized
	logger.RegisterCoreWrapper(sentry.NewSentryHook)
	logger.Initialize()

	log := logger.For(logger.ComponentCore)
	log.Infof("Starting playloop %s...", version.GetAppVersion())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load the config file and apply environment overrides
	configData, err := config.LoadConfigWithEnvOverrides(ctx, config.ConfigPath(), logger.For(logger.ComponentConfigManager))
	if err != nil {
		sentry.ReportIssuef(sentry.IssueTypeFatal, log, "Failed to load config: %v", err)
		os.Exit(1)
	}

	if configData.Telemetry.Sentry {
		sentry.InitSentry(version.GetAppVersion(), true)
	}

	// Start the metrics server
	metricsServer := metrics.SetupMetricsEndpoint(fmt.Sprintf(":%d", configData.Telemetry.MetricsPort))
	defer shutdown(log, "metrics server", metricsServer.Shutdown)

	// Process wide bindings
	processScope := di.NewProcessScope()
	defer func() {
		if err := processScope.Close(); err != nil {
			log.Warnf("Releasing process scope reported errors: %v", err)
		}
	}()

	bus := eventbus.New(logger.For(logger.ComponentEventBus))
	gate := simgate.NewService(logger.For(logger.ComponentSimGate))
	registry := actors.NewRegistry(logger.For(logger.ComponentActors))

	mustProvide(log, processScope, bus)
	mustProvide(log, processScope, gate)
	mustProvide(log, processScope, registry)

	loader, err := demo.NewLoader(processScope, nil, logger.For(logger.ComponentActors))
	if err != nil {
		sentry.ReportIssuef(sentry.IssueTypeFatal, log, "Failed to create scene loader: %v", err)
		os.Exit(1)
	}
	defer loader.Close()

	// World reset stack
	policy := reset.NewPolicy(configData.Reset.Strict, degraded.NewSentryReporter(logger.For(logger.ComponentDegraded)))

	// The control loop is the frame clock but only exists once the machine does
	frames := di.NewLazy[reset.FrameClock](processScope, logger.For(logger.ComponentScopes))

	orchestrator := reset.NewOrchestrator(reset.OrchestratorConfig{
		Bus:        bus,
		Policy:     policy,
		Guards:     []reset.Guard{reset.NewGateGuard(gate, configData.Reset.BlockingGateTokens...)},
		Discoverer: reset.NewDiscoverer(registry, reset.TypeNameMatcher),
		Executor:   reset.NewExecutor(configData.Reset.MaxParallelParticipants, logger.For(logger.ComponentResetExecutor)),
		Frames:     reset.FrameClockFunc(func() uint64 { return currentFrame(frames) }),
		Logger:     logger.For(logger.ComponentResetOrchestrator),
	})
	resets := reset.NewService(orchestrator, bus, logger.For(logger.ComponentResetService))
	defer resets.Wait()

	history := reset.NewHistory(bus, configData.Reset.HistoryTTL)
	defer history.Close()

	flow := sceneflow.NewService(sceneflow.Config{
		Gate:              gate,
		Resets:            resets,
		Bus:               bus,
		IsGameplayProfile: configData.Reset.IsGameplayProfile,
		Scopes:            processScope,
		Logger:            logger.For(logger.ComponentSceneFlow),
	})

	// Game loop
	signals := gameloop.NewLatchedSource(logger.For(logger.ComponentGameLoop))
	commands := signals.Listen(bus)
	defer commands.Close()

	bridge := control.NewResetBridge(ctx, resets, flow, logger.For(logger.ComponentControlLoop))
	machine := gameloop.NewMachine(signals, gameloop.MultiObserver{
		control.NewPauseHolder(gate),
		gameloop.NewBusObserver(bus),
		bridge,
	}, logger.For(logger.ComponentGameLoop))

	authorizer := control.NewAuthorizer(machine, gate)
	mustProvide(log, processScope, authorizer)

	checker := starvationchecker.NewStarvationChecker(configData.Loop.StarvationThreshold)
	defer checker.Stop()

	controlLoop := control.NewControlLoop(machine, configData.Loop.TickInterval, checker)
	mustProvide[reset.FrameClock](log, processScope, controlLoop)

	// Admin API
	if configData.Telemetry.AdminPort > 0 {
		admin, err := adminapi.NewServer(adminapi.Dependencies{
			Loop:       machine,
			Signals:    signals,
			Resets:     resets,
			History:    history,
			Gate:       gate,
			Scenes:     flow,
			Authorizer: authorizer,
		}, configData.Telemetry.AdminPort, false, logger.For(logger.ComponentAdminAPI))
		if err != nil {
			sentry.ReportIssuef(sentry.IssueTypeFatal, log, "Failed to create admin API: %v", err)
			os.Exit(1)
		}

		go func() {
			if err := admin.Start(); err != nil {
				sentry.ReportIssue(err, sentry.IssueTypeError, log)
			}
		}()

		defer shutdown(log, "admin API", admin.Stop)
	} else {
		log.Info("Admin API disabled via configuration")
	}

	// Enter the initial scene before the loop starts ticking
	if _, err := flow.Transition(ctx, constants.DefaultSceneName, configData.Loop.InitialScene, constants.DefaultGameplayProfile); err != nil {
		sentry.ReportIssuef(sentry.IssueTypeError, log, "Failed to enter initial scene %s: %v", configData.Loop.InitialScene, err)
	}

	go StateLogger(ctx, machine, resets, history)

	if err := controlLoop.Execute(ctx); err != nil {
		sentry.ReportIssuef(sentry.IssueTypeFatal, log, "Control loop failed: %v", err)
	}

	log.Info("playloop completed")
}

func mustProvide[T any](log *zap.SugaredLogger, scope *di.Scope, value T) {
	if err := di.Provide(scope, value); err != nil {
		sentry.ReportIssuef(sentry.IssueTypeFatal, log, "Failed to provide %T: %v", value, err)
		os.Exit(1)
	}
}

func currentFrame(frames *di.Lazy[reset.FrameClock]) uint64 {
	clock, ok := frames.Get()
	if !ok {
		return 0
	}

	return clock.CurrentFrame()
}

func shutdown(log *zap.SugaredLogger, name string, fn func(context.Context) error) {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := fn(shutdownCtx); err != nil {
		sentry.ReportIssuef(sentry.IssueTypeError, log, "Failed to shutdown %s: %v", name, err)
	}
}

// StateLogger logs the loop state and reset activity every 5 seconds.
func StateLogger(ctx context.Context, machine *gameloop.Machine, resets *reset.Service, history *reset.History) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	stateLogger := logger.For("StateLogger")
	stateLogger.Info("Starting state logger")

	for {
		select {
		case <-ctx.Done():
			stateLogger.Info("Stopping state logger")

			return
		case <-ticker.C:
			snapshot := machine.State()
			stateLogger.Infof("=== Loop %s (previous %s, %d transitions, %d resets) ===",
				snapshot.Current, snapshot.Previous, snapshot.Transitions, snapshot.Resets)

			if inFlight := resets.InFlight(); len(inFlight) > 0 {
				stateLogger.Infof("  resets in flight: %v", inFlight)
			}

			for _, rec := range history.List() {
				if rec.InProgress {
					stateLogger.Infof("  %s running in %s", rec.Signature, rec.Scene)

					continue
				}

				stateLogger.Infof("  %s %s in %s (%s)", rec.Signature, rec.Outcome, rec.Scene, rec.Reason)
			}
		}
	}
}
