// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package routeforge provides shared helpers for the routeforge modules.
package routeforge

import (
	"log/slog"

	"go.opentelemetry.io/contrib/bridges/otelslog"
)

// Logger returns a [slog.Logger] which is backed by the
// OpenTelemetry logs bridge. Records are forwarded to whichever
// log provider the surrounding application has installed.
func Logger(name string) *slog.Logger {
	return otelslog.NewLogger(name)
}

// LogHandler returns the underlying [slog.Handler] used by [Logger].
func LogHandler(name string) slog.Handler {
	return otelslog.NewHandler(name)
}
