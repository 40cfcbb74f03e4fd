// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/routeforge/routeforge"
)

// HttpResponseWriter is an interface for errors that can write their own
// HTTP responses. When a [Handler] returns an error implementing it, the
// default error handler delegates the response to the error itself.
type HttpResponseWriter interface {
	WriteHttpResponse(context.Context, http.ResponseWriter)
}

// ErrorHandler handles errors returned by a route's [Handler]. Auth and
// validation failures never reach it; those are resolved in their own
// pipeline stages.
type ErrorHandler interface {
	OnError(context.Context, http.ResponseWriter, error)
}

// ErrorHandlerFunc is a function adapter that implements [ErrorHandler].
type ErrorHandlerFunc func(context.Context, http.ResponseWriter, error)

func (f ErrorHandlerFunc) OnError(ctx context.Context, w http.ResponseWriter, err error) {
	f(ctx, w, err)
}

func defaultErrorHandler(h slog.Handler) ErrorHandlerFunc {
	log := slog.New(h)

	return func(ctx context.Context, w http.ResponseWriter, err error) {
		log.ErrorContext(ctx, "sending error response", slog.Any("error", err))

		hrw, ok := err.(HttpResponseWriter)
		if ok {
			hrw.WriteHttpResponse(ctx, w)
			return
		}

		writeEnvelope(ctx, w, ServerError("internal server error"))
	}
}

// writeEnvelope terminates a request with the given envelope. Encoding
// failures can not be reported to the client anymore and are only logged.
func writeEnvelope(ctx context.Context, w http.ResponseWriter, e Envelope) {
	err := e.Write(w)
	if err == nil {
		return
	}

	log := routeforge.Logger("github.com/routeforge/routeforge/rest")
	log.ErrorContext(ctx, "failed to write response envelope", slog.Any("error", err))
}
