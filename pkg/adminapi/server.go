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

// Package adminapi exposes loop state and reset controls over HTTP for
// debugging and tooling.
package adminapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/united-manufacturing-hub/playloop/pkg/gameloop"
	"github.com/united-manufacturing-hub/playloop/pkg/logger"
	"github.com/united-manufacturing-hub/playloop/pkg/metrics"
	"github.com/united-manufacturing-hub/playloop/pkg/reset"
)

// LoopState reads the game loop. *gameloop.Machine implements it.
type LoopState interface {
	State() gameloop.Snapshot
}

// SignalRaiser latches loop signals for the next tick. *gameloop.LatchedSource implements it.
type SignalRaiser interface {
	Raise(sig gameloop.Signal)
}

// Resets accepts reset requests. *reset.Service implements it.
type Resets interface {
	TriggerResetAsync(ctx context.Context, req reset.ResetRequest) <-chan struct{}
	InFlight() []string
}

// History lists recent runs. *reset.History implements it.
type History interface {
	List() []reset.Record
	Get(signature string) (reset.Record, bool)
}

// Tokens lists held gate tokens. *simgate.Service implements it.
type Tokens interface {
	ActiveTokens() []string
}

// Scenes names the live scene. *sceneflow.Service implements it.
type Scenes interface {
	ActiveScene() string
}

// Blockers explains why gameplay is blocked. *control.Authorizer implements it.
type Blockers interface {
	GameplayBlockedBy() string
}

// Dependencies are the components the API reads and drives. Gate, Scenes
// and Authorizer are optional.
type Dependencies struct {
	Loop       LoopState
	Signals    SignalRaiser
	Resets     Resets
	History    History
	Gate       Tokens
	Scenes     Scenes
	Authorizer Blockers
}

// StateResponse is the body of GET /state.
type StateResponse struct {
	Loop              gameloop.Snapshot `json:"loop"`
	Scene             string            `json:"scene,omitempty"`
	InFlight          []string          `json:"inFlight"`
	ActiveTokens      []string          `json:"activeTokens"`
	GameplayBlockedBy string            `json:"gameplayBlockedBy,omitempty"`
}

// Server is the admin HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	deps   Dependencies
	logger *zap.SugaredLogger
	port   int
}

// NewServer builds the router. Call Start to listen on port.
func NewServer(deps Dependencies, port int, debug bool, log *zap.SugaredLogger) (*Server, error) {
	if deps.Loop == nil || deps.Signals == nil || deps.Resets == nil || deps.History == nil {
		return nil, errors.New("admin api requires loop, signals, resets and history")
	}

	if debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		deps:   deps,
		logger: logger.OrNop(log),
		port:   port,
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentryTracingMiddleware)
	router.Use(s.loggingMiddleware())

	router.GET("/state", s.handleState)
	router.GET("/resets", s.handleListResets)
	router.GET("/resets/:signature", s.handleGetReset)
	router.POST("/resets", s.handleTriggerReset)
	router.POST("/loop/:signal", s.handleSignal)

	s.router = router

	return s, nil
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Stop is called.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Infow("Starting admin API", "port", s.port)

	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin api failed: %w", err)
	}

	return nil
}

// Stop gracefully stops the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("Stopping admin API")

	return s.server.Shutdown(ctx)
}

func (s *Server) handleState(c *gin.Context) {
	resp := StateResponse{
		Loop:         s.deps.Loop.State(),
		InFlight:     s.deps.Resets.InFlight(),
		ActiveTokens: []string{},
	}

	if s.deps.Gate != nil {
		resp.ActiveTokens = s.deps.Gate.ActiveTokens()
	}

	if s.deps.Scenes != nil {
		resp.Scene = s.deps.Scenes.ActiveScene()
	}

	if s.deps.Authorizer != nil {
		resp.GameplayBlockedBy = s.deps.Authorizer.GameplayBlockedBy()
	}

	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleListResets(c *gin.Context) {
	records := s.deps.History.List()
	if records == nil {
		records = []reset.Record{}
	}

	c.JSON(http.StatusOK, records)
}

func (s *Server) handleGetReset(c *gin.Context) {
	record, ok := s.deps.History.Get(c.Param("signature"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no reset known for signature"})

		return
	}

	c.JSON(http.StatusOK, record)
}

func (s *Server) handleTriggerReset(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	req, err := reset.DecodeRequest(body)
	if err != nil {
		metrics.IncErrorCount(metrics.ComponentAdminAPI, "decode_request")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	// The run outlives the HTTP request.
	s.deps.Resets.TriggerResetAsync(context.WithoutCancel(c.Request.Context()), req)

	c.JSON(http.StatusAccepted, gin.H{"signature": req.ContextSignature, "status": "accepted"})
}

func (s *Server) handleSignal(c *gin.Context) {
	sig, err := gameloop.ParseSignal(c.Param("signal"))
	if err != nil {
		metrics.IncErrorCount(metrics.ComponentAdminAPI, "parse_signal")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	s.deps.Signals.Raise(sig)
	s.logger.Infof("Loop signal %s raised via admin API", sig)

	c.JSON(http.StatusAccepted, gin.H{"signal": sig.String(), "status": "raised"})
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		s.logger.Debugw("Admin request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
