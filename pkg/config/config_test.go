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

package config_test

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap/zaptest"

	"github.com/united-manufacturing-hub/playloop/pkg/config"
	"github.com/united-manufacturing-hub/playloop/pkg/constants"
)

var _ = Describe("Config", func() {
	var (
		dir string
		ctx context.Context
	)

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
		ctx = context.Background()
	})

	write := func(body string) string {
		path := filepath.Join(dir, "playloop.yaml")
		Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())

		return path
	}

	Describe("LoadFile", func() {
		It("returns defaults when the file does not exist", func() {
			cfg, err := config.LoadFile(ctx, filepath.Join(dir, "missing.yaml"))
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg).To(Equal(config.DefaultConfig()))
		})

		It("overlays file values on the defaults", func() {
			path := write(`
loop:
  tickInterval: 20ms
reset:
  strict: true
  gameplayProfiles: [gameplay, arena]
`)
			cfg, err := config.LoadFile(ctx, path)
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Loop.TickInterval).To(Equal(20 * time.Millisecond))
			Expect(cfg.Loop.StarvationThreshold).To(Equal(constants.StarvationThreshold))
			Expect(cfg.Reset.Strict).To(BeTrue())
			Expect(cfg.Reset.IsGameplayProfile("arena")).To(BeTrue())
			Expect(cfg.Reset.IsGameplayProfile("menu")).To(BeFalse())
			Expect(cfg.Reset.BlockingGateTokens).To(ConsistOf(constants.GateTokenResetLock))
		})

		It("reports malformed YAML", func() {
			path := write("loop: [")
			_, err := config.LoadFile(ctx, path)
			Expect(err).To(MatchError(ContainSubstring("failed to parse")))
		})

		It("honors a cancelled context", func() {
			cancelled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := config.LoadFile(cancelled, filepath.Join(dir, "missing.yaml"))
			Expect(err).To(MatchError(context.Canceled))
		})
	})

	Describe("LoadConfigWithEnvOverrides", func() {
		AfterEach(func() {
			for _, k := range []string{"PLAYLOOP_STRICT", "PLAYLOOP_TICK_INTERVAL", "PLAYLOOP_METRICS_PORT", "PLAYLOOP_ADMIN_PORT"} {
				Expect(os.Unsetenv(k)).To(Succeed())
			}
		})

		It("lets the environment win over the file", func() {
			path := write("reset:\n  strict: false\ntelemetry:\n  adminPort: 8000\n")
			Expect(os.Setenv("PLAYLOOP_STRICT", "true")).To(Succeed())
			Expect(os.Setenv("PLAYLOOP_ADMIN_PORT", "0")).To(Succeed())
			Expect(os.Setenv("PLAYLOOP_TICK_INTERVAL", "33ms")).To(Succeed())

			cfg, err := config.LoadConfigWithEnvOverrides(ctx, path, zaptest.NewLogger(GinkgoT()).Sugar())
			Expect(err).NotTo(HaveOccurred())
			Expect(cfg.Reset.Strict).To(BeTrue())
			Expect(cfg.Telemetry.AdminPort).To(Equal(0))
			Expect(cfg.Loop.TickInterval).To(Equal(33 * time.Millisecond))
		})

		It("rejects an invalid result", func() {
			path := write("reset:\n  maxParallelParticipants: 0\n")
			_, err := config.LoadConfigWithEnvOverrides(ctx, path, zaptest.NewLogger(GinkgoT()).Sugar())
			Expect(err).To(MatchError(ContainSubstring("maxParallelParticipants")))
		})
	})

	Describe("Validate", func() {
		It("accepts the defaults", func() {
			Expect(config.DefaultConfig().Validate()).To(Succeed())
		})

		It("collects every problem", func() {
			cfg := config.DefaultConfig()
			cfg.Loop.TickInterval = 0
			cfg.Telemetry.MetricsPort = -1
			err := cfg.Validate()
			Expect(err).To(MatchError(ContainSubstring("tickInterval")))
			Expect(err).To(MatchError(ContainSubstring("metricsPort")))
		})
	})

	Describe("Clone", func() {
		It("does not share slices with the original", func() {
			orig := config.DefaultConfig()
			clone := orig.Clone()
			clone.Reset.GameplayProfiles[0] = "changed"
			Expect(orig.Reset.GameplayProfiles[0]).To(Equal(constants.DefaultGameplayProfile))
		})
	})

	It("round-trips through YAML", func() {
		data, err := config.Marshal(config.DefaultConfig())
		Expect(err).NotTo(HaveOccurred())
		path := write(string(data))
		cfg, err := config.LoadFile(ctx, path)
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg).To(Equal(config.DefaultConfig()))
	})
})
