// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/routeforge/routeforge"

	"github.com/go-chi/chi/v5"
)

// ApiOptions holds configuration values used when constructing an [Api].
type ApiOptions struct {
	mux        *chi.Mux
	registry   *OpenAPIRegistry
	cell       *ValidatorCell
	globalAuth bool

	routes []*RouteDefinition

	readiness        http.Handler
	liveness         http.Handler
	notFound         http.Handler
	methodNotAllowed http.Handler
}

// ApiOption is an interface for configuring an [Api].
//
// Common implementations include:
//   - [Route] - registers compiled route contracts
//   - [GlobalAuth] - installs authentication for every route
//   - [ValidateTokensWith] - installs the API's token validator
//   - [Readiness] / [Liveness] - configure probe endpoints
//   - [NotFoundHandler] / [MethodNotAllowedHandler] - customize fallback handling
type ApiOption interface {
	ApplyApiOption(*ApiOptions)
}

type apiOptionFunc func(*ApiOptions)

func (f apiOptionFunc) ApplyApiOption(ao *ApiOptions) {
	f(ao)
}

// Route registers a route contract with the [Api]. The definition is
// compiled against the API's documentation registry and validator cell,
// then attached to the API's router.
func Route(def *RouteDefinition) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.routes = append(ao.routes, def)
	})
}

// GlobalAuth installs the authentication stage for every route of the
// [Api]. Compiled pipelines detect this and skip their own
// authentication stage; role, scope and claim stages still run per
// route. Probe endpoints and the OpenAPI schema remain unauthenticated.
func GlobalAuth() ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.globalAuth = true
	})
}

// ValidateTokensWith installs the given [TokenValidator] into the API's
// validator cell. Without it the API shares [DefaultTokenValidator].
func ValidateTokensWith(v TokenValidator) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.cell = NewValidatorCell(v)
	})
}

// Readiness configures a custom readiness probe endpoint at
// GET /health/readiness. By default the probe returns 200 OK.
func Readiness(h http.Handler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.readiness = h
	})
}

// Liveness configures a custom liveness probe endpoint at
// GET /health/liveness. By default the probe returns 200 OK.
func Liveness(h http.Handler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.liveness = h
	})
}

// NotFoundHandler configures a custom handler for requests that don't
// match any registered route.
func NotFoundHandler(h http.Handler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.notFound = h
	})
}

// MethodNotAllowedHandler configures a custom handler for requests to
// valid routes with unsupported HTTP methods.
func MethodNotAllowedHandler(h http.Handler) ApiOption {
	return apiOptionFunc(func(ao *ApiOptions) {
		ao.methodNotAllowed = h
	})
}

// Api is an OpenAPI-documented [http.Handler] bundling a router, a
// documentation registry and a token validator cell.
//
// Every Api automatically provides:
//   - OpenAPI 3.0 schema at GET /openapi.json
//   - liveness probe at GET /health/liveness
//   - readiness probe at GET /health/readiness
type Api struct {
	mux        *chi.Mux
	routes     chi.Router
	registry   *OpenAPIRegistry
	cell       *ValidatorCell
	globalAuth bool
}

// NewApi creates a new [Api] with the specified title and version, both
// of which appear in the OpenAPI document served at /openapi.json.
//
// Example:
//
//	api := rest.NewApi(
//	    "Project Service",
//	    "v1.0.0",
//	    rest.ValidateTokensWith(verifyToken),
//	    rest.Route(listProjects),
//	    rest.Route(createProject),
//	)
//	http.ListenAndServe(":8080", api)
func NewApi(title, version string, opts ...ApiOption) *Api {
	log := routeforge.Logger("github.com/routeforge/routeforge/rest")

	ao := &ApiOptions{
		mux:      chi.NewMux(),
		registry: NewOpenAPIRegistry(title, version),
		cell:     DefaultTokenValidator,
	}
	for _, opt := range opts {
		opt.ApplyApiOption(ao)
	}

	api := &Api{
		mux:        ao.mux,
		routes:     ao.mux,
		registry:   ao.registry,
		cell:       ao.cell,
		globalAuth: ao.globalAuth,
	}
	if ao.globalAuth {
		api.routes = ao.mux.With(Authenticate(ao.cell))
	}

	for _, def := range ao.routes {
		compiled := Compile(
			def,
			WithRegistry(ao.registry),
			WithTokenValidator(ao.cell),
		)
		compiled.Attach(api)
	}

	ao.mux.Get("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		enc := json.NewEncoder(w)
		err := enc.Encode(ao.registry.Spec())
		if err == nil {
			return
		}
		log.ErrorContext(
			r.Context(),
			"failed to encode openapi schema to json",
			slog.Any("error", err),
		)
	})

	okProbe := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	if ao.liveness == nil {
		ao.liveness = okProbe
	}
	if ao.readiness == nil {
		ao.readiness = okProbe
	}
	ao.mux.Method(http.MethodGet, "/health/liveness", ao.liveness)
	ao.mux.Method(http.MethodGet, "/health/readiness", ao.readiness)

	if ao.notFound != nil {
		ao.mux.NotFound(ao.notFound.ServeHTTP)
	}
	if ao.methodNotAllowed != nil {
		ao.mux.MethodNotAllowed(ao.methodNotAllowed.ServeHTTP)
	}

	return api
}

// Method implements the [Router] interface. Routes registered through it
// pass through the API's global middleware, including global
// authentication when enabled.
func (api *Api) Method(method, pattern string, h http.Handler) {
	api.routes.Method(method, pattern, h)
}

// Use implements the [Router] interface.
func (api *Api) Use(middlewares ...func(http.Handler) http.Handler) {
	api.mux.Use(middlewares...)
}

// GloballyAuthenticated reports whether the API authenticates every
// route itself, letting compiled pipelines skip their own
// authentication stage.
func (api *Api) GloballyAuthenticated() bool {
	return api.globalAuth
}

// Registry returns the API's documentation registry.
func (api *Api) Registry() *OpenAPIRegistry {
	return api.registry
}

// SetTokenValidator hot-swaps the API's token validator. The new
// validator takes effect for all subsequent requests.
func (api *Api) SetTokenValidator(v TokenValidator) {
	api.cell.Store(v)
}

// ServeHTTP implements the [http.Handler] interface.
func (api *Api) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	api.mux.ServeHTTP(w, req)
}
