/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"io"
	"os"
	"slices"
	"strings"

	"github.com/hyperledger/fabric-lib-go/common/flogging"
	"go.uber.org/zap/zapcore"
)

const (
	loggerNameSeparator = "."

	// DefaultFormat is the log line format used when none is configured
	DefaultFormat = "%{color}%{time:2006-01-02 15:04:05.000 MST} [%{module}] %{shortfunc} -> %{level:.4s} %{id:03x}%{color:reset} %{message}"
	// DefaultSpec is the log level spec used when none is configured
	DefaultSpec = "info"
)

// Logger provides logging API
type Logger interface {
	Debug(args ...interface{})
	Debugf(format string, args ...interface{})
	Error(args ...interface{})
	Errorf(format string, args ...interface{})
	Info(args ...interface{})
	Infof(format string, args ...interface{})
	Warn(args ...interface{})
	Warnf(format string, args ...interface{})
	IsEnabledFor(level zapcore.Level) bool
}

// MustGetLogger returns the logger with the passed name, the name parts are joined with a dot
func MustGetLogger(parts ...string) Logger {
	return flogging.MustGetLogger(loggerName(parts...))
}

// Named returns a child logger of the passed one
func Named(logger Logger, parts ...string) Logger {
	l, ok := logger.(*flogging.FabricLogger)
	if !ok {
		return logger
	}
	return l.Named(loggerName(parts...))
}

// Config configures the global logging system
type Config struct {
	// Spec is the log level spec, for instance `info:token-sdk.ttx=debug`
	Spec string
	// Format is either `json` or a text format string
	Format string
	Writer io.Writer
}

// Init initializes the global logging system.
// Empty fields fall back to the defaults.
func Init(c Config) {
	if len(c.Spec) == 0 {
		c.Spec = DefaultSpec
	}
	if len(c.Format) == 0 {
		c.Format = DefaultFormat
	}
	if c.Writer == nil {
		c.Writer = os.Stderr
	}
	flogging.Init(flogging.Config{
		Format:  c.Format,
		Writer:  c.Writer,
		LogSpec: c.Spec,
	})
}

// ActivateSpec changes the active log level spec at runtime
func ActivateSpec(spec string) {
	flogging.ActivateSpec(spec)
}

func isEmptyString(s string) bool { return len(s) == 0 }

func loggerName(parts ...string) string {
	return strings.Join(slices.DeleteFunc(slices.Clone(parts), isEmptyString), loggerNameSeparator)
}
