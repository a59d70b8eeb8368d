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

package logger

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogLevel represents the logging level.
type LogLevel string

// LogFormat represents the logging format.
type LogFormat string

const (
	DebugLevel LogLevel = "DEBUG"
	InfoLevel  LogLevel = "INFO"
	WarnLevel  LogLevel = "WARN"
	ErrorLevel LogLevel = "ERROR"
	// ProductionLevel is an alias for InfoLevel.
	ProductionLevel LogLevel = "PRODUCTION"

	// FormatConsole is colored, pipe separated and timestamped.
	FormatConsole LogFormat = "CONSOLE"
	// FormatJSON is one JSON object per entry.
	FormatJSON LogFormat = "JSON"
	// FormatPretty is tab separated without timestamps; frames are logged explicitly.
	FormatPretty LogFormat = "PRETTY"
)

const (
	envLevel  = "LOGGING_LEVEL"
	envFormat = "LOGGING_FORMAT"
)

// CoreWrapper decorates the zap core before the logger is built.
// The sentry package uses it to capture warnings and errors.
type CoreWrapper func(zapcore.Core) zapcore.Core

// Options describe how a logger is built.
type Options struct {
	Output   io.Writer
	Level    LogLevel
	Format   LogFormat
	Wrappers []CoreWrapper
}

var (
	initOnce    sync.Once
	initialized bool
	wrappersMu  sync.Mutex
	wrappers    []CoreWrapper
)

// ParseLevel maps a level name to zap. Unknown names fall back to info.
func ParseLevel(level LogLevel) zapcore.Level {
	switch LogLevel(strings.ToUpper(string(level))) {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// ParseFormat maps a format name, returning fallback for unknown names.
func ParseFormat(format string, fallback LogFormat) LogFormat {
	switch f := LogFormat(strings.ToUpper(format)); f {
	case FormatConsole, FormatJSON, FormatPretty:
		return f
	default:
		return fallback
	}
}

// OptionsFromEnv reads LOGGING_LEVEL and LOGGING_FORMAT.
func OptionsFromEnv() Options {
	level := LogLevel(os.Getenv(envLevel))
	if level == "" {
		level = ProductionLevel
	}

	return Options{
		Output: os.Stdout,
		Level:  level,
		Format: ParseFormat(os.Getenv(envFormat), FormatPretty),
	}
}

// RegisterCoreWrapper adds a wrapper that is applied by Initialize.
// Wrappers registered after initialization have no effect on the global logger.
func RegisterCoreWrapper(w CoreWrapper) {
	wrappersMu.Lock()
	defer wrappersMu.Unlock()

	wrappers = append(wrappers, w)
}

// Build creates a zap logger from opts.
func Build(opts Options) *zap.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}

	core := zapcore.NewCore(newEncoder(opts.Format), zapcore.AddSync(out), zap.NewAtomicLevelAt(ParseLevel(opts.Level)))

	for _, w := range opts.Wrappers {
		if w != nil {
			core = w(core)
		}
	}

	return zap.New(core, zap.AddCaller())
}

func newEncoder(format LogFormat) zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "component",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	switch format {
	case FormatPretty:
		cfg.TimeKey = zapcore.OmitKey
		cfg.EncodeName = func(name string, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString("[" + name + "]")
		}
		cfg.ConsoleSeparator = "\t"

		return zapcore.NewConsoleEncoder(cfg)
	case FormatConsole:
		cfg.EncodeTime = func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006-01-02 15:04:05.000 MST"))
		}
		cfg.ConsoleSeparator = " | "

		return zapcore.NewConsoleEncoder(cfg)
	default:
		cfg.EncodeLevel = zapcore.CapitalLevelEncoder
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder

		return zapcore.NewJSONEncoder(cfg)
	}
}

// Initialize builds the global logger from the environment and registered
// wrappers, then installs it with zap.ReplaceGlobals.
func Initialize() {
	initOnce.Do(func() {
		opts := OptionsFromEnv()

		wrappersMu.Lock()
		opts.Wrappers = append([]CoreWrapper(nil), wrappers...)
		wrappersMu.Unlock()

		log := Build(opts)
		log.Info("Logger initialized",
			zap.String("level", string(opts.Level)),
			zap.String("format", string(opts.Format)))

		zap.ReplaceGlobals(log)

		initialized = true
	})
}

// GetLogger returns the global logger, initializing it if needed.
func GetLogger() *zap.Logger {
	if !initialized {
		Initialize()
	}

	return zap.L()
}

// Sync flushes any buffered log entries.
func Sync() error {
	return zap.L().Sync()
}

// For creates a named logger for a specific component.
func For(component string) *zap.SugaredLogger {
	if !initialized {
		Initialize()
	}

	return zap.S().Named(component)
}

// OrNop returns log, or a no-op logger when log is nil.
func OrNop(log *zap.SugaredLogger) *zap.SugaredLogger {
	if log == nil {
		return zap.NewNop().Sugar()
	}

	return log
}
