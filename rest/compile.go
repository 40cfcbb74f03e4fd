// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/routeforge/routeforge"

	"github.com/go-chi/chi/v5"
	"github.com/z5labs/sdk-go/try"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// Router is the minimal capability this package needs from the
// underlying web framework: per-method registration and ordered stage
// execution. It is satisfied by [chi.Mux], [chi.Router] and [Api].
type Router interface {
	Method(method, pattern string, h http.Handler)
	Use(middlewares ...func(http.Handler) http.Handler)
}

// globalAuthenticator is implemented by attach targets which have already
// installed the authentication stage for every route, letting compiled
// pipelines skip their own.
type globalAuthenticator interface {
	GloballyAuthenticated() bool
}

// CompileOptions holds configuration values used by [Compile].
type CompileOptions struct {
	registry Registry
	cell     *ValidatorCell
}

// CompileOption sets values on [CompileOptions].
type CompileOption func(*CompileOptions)

// WithRegistry overrides the documentation registry the route is
// registered into. Defaults to [DefaultRegistry].
func WithRegistry(reg Registry) CompileOption {
	return func(co *CompileOptions) {
		co.registry = reg
	}
}

// WithTokenValidator overrides the validator cell consulted by the
// route's authentication stage. Defaults to [DefaultTokenValidator].
func WithTokenValidator(cell *ValidatorCell) CompileOption {
	return func(co *CompileOptions) {
		co.cell = cell
	}
}

// CompiledRoute is a route contract ready to be installed on a [Router].
type CompiledRoute struct {
	def  *RouteDefinition
	cell *ValidatorCell
}

// Compile turns a [RouteDefinition] into a [CompiledRoute].
//
// Compilation happens entirely at declaration time, before any request is
// served: the auth policy is normalized, a default "400" response bound
// to the standard error shape is injected when none was declared (a
// declared "400" is kept, with a single warning), and the documentation
// entry is registered.
func Compile(def *RouteDefinition, opts ...CompileOption) *CompiledRoute {
	co := &CompileOptions{
		registry: DefaultRegistry,
		cell:     DefaultTokenValidator,
	}
	for _, opt := range opts {
		opt(co)
	}

	def.policy = normalizePolicy(def.policy)

	if def.hasResponse("400") {
		log := routeforge.Logger("github.com/routeforge/routeforge/rest")
		log.Warn(
			"route declares its own 400 response; standard error shape not injected",
			slog.String("method", def.method),
			slog.String("path", def.path),
		)
	} else {
		def.responses = append(def.responses, ResponseSpec{
			Code:   "400",
			Schema: StandardError(),
		})
	}

	err := registerDocs(co.registry, def)
	if err != nil {
		panic(fmt.Sprintf("rest: failed to register documentation for %s %s: %v", def.method, def.path, err))
	}

	return &CompiledRoute{
		def:  def,
		cell: co.cell,
	}
}

// Attach assembles the route's middleware pipeline and installs it on the
// router at the declared method and path. The returned router is the one
// given, allowing chained attachment.
//
// Pipeline order: authentication (skipped when the router reports global
// authentication), roles, scopes, claims in declaration order, custom
// middleware in declared order, then the validation-and-dispatch stage.
func (cr *CompiledRoute) Attach(r Router) Router {
	skipAuthentication := false
	if ga, ok := r.(globalAuthenticator); ok {
		skipAuthentication = ga.GloballyAuthenticated()
	}

	stages := authStages(cr.def.policy, cr.cell, skipAuthentication)
	stages = append(stages, cr.def.middleware...)

	errHandler := cr.def.errHandler
	if errHandler == nil {
		errHandler = defaultErrorHandler(routeforge.LogHandler("rest"))
	}

	var h http.Handler = &dispatcher{
		tracer:     otel.Tracer("github.com/routeforge/routeforge/rest"),
		errHandler: errHandler,
		def:        cr.def,
	}
	for i := len(stages) - 1; i >= 0; i-- {
		h = stages[i](h)
	}

	pattern := bracePath(cr.def.path)
	r.Method(cr.def.method, pattern, otelhttp.WithRouteTag(pattern, h))
	return r
}

// dispatcher is the terminal pipeline stage: it validates params, query
// and body in that fixed order, then invokes the user handler with the
// coerced inputs. The first validation failure terminates the request
// with a 400; later schemas are not evaluated and the handler never runs.
type dispatcher struct {
	tracer     trace.Tracer
	errHandler ErrorHandler
	def        *RouteDefinition
}

func (d *dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	spanCtx, span := d.tracer.Start(r.Context(), "dispatcher.ServeHTTP")
	defer span.End()

	var err error
	defer func() {
		if err == nil {
			return
		}

		d.errHandler.OnError(spanCtx, w, err)
	}()
	defer try.Recover(&err)

	req, ok := d.validateRequest(spanCtx, w, r)
	if !ok {
		return
	}

	resp, err := d.def.handler.Handle(spanCtx, req)
	if err != nil {
		return
	}

	err = resp.Write(w)
}

// validateRequest runs the three schemas in order. It reports ok=false
// after writing the 400 response for the first failure.
func (d *dispatcher) validateRequest(ctx context.Context, w http.ResponseWriter, r *http.Request) (*Request, bool) {
	req := &Request{}
	if user, ok := UserFromContext(ctx); ok {
		req.User = user
	}

	if d.def.params != nil {
		raw := make(map[string]string)
		for _, name := range pathParamNames(d.def.path) {
			if value := chi.URLParam(r, name); value != "" {
				raw[name] = value
			}
		}

		validated, err := d.def.params.Validate(ctx, raw)
		if err != nil {
			writeEnvelope(ctx, w, BadRequest(errorDetails(err)))
			return nil, false
		}
		req.Params, _ = validated.(map[string]any)
	}

	if d.def.query != nil {
		raw := make(map[string]string)
		for name, values := range r.URL.Query() {
			if len(values) > 0 {
				raw[name] = values[0]
			}
		}

		validated, err := d.def.query.Validate(ctx, raw)
		if err != nil {
			writeEnvelope(ctx, w, BadRequest(errorDetails(err)))
			return nil, false
		}
		req.Query, _ = validated.(map[string]any)
	}

	if d.def.body != nil {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			writeEnvelope(ctx, w, BadRequest(map[string]any{
				"body": "failed to read request body",
			}))
			return nil, false
		}

		validated, err := d.def.body.Validate(ctx, b)
		if err != nil {
			writeEnvelope(ctx, w, BadRequest(errorDetails(err)))
			return nil, false
		}
		req.Body = validated
	}

	return req, true
}

func errorDetails(err error) map[string]any {
	if fieldErrs, ok := err.(FieldErrors); ok {
		return fieldErrs.Details()
	}
	return map[string]any{
		"message": err.Error(),
	}
}
