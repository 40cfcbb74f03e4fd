// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"net/http"
)

// Request carries the validated, coerced inputs of one request into the
// user handler. Params, Query and Body hold the transformed output of the
// respective schemas; User is set when the route required authentication.
type Request struct {
	Params map[string]any
	Query  map[string]any
	Body   any
	User   *User
}

// Handler implements the business logic of a route. It runs only after
// every auth and validation stage has passed.
//
// A returned error is forwarded untouched to the route's [ErrorHandler];
// it is never reformatted into an auth or validation response.
type Handler interface {
	Handle(ctx context.Context, req *Request) (Envelope, error)
}

// HandlerFunc is an adapter to allow the use of ordinary functions
// as [Handler]s.
type HandlerFunc func(ctx context.Context, req *Request) (Envelope, error)

// Handle implements the [Handler] interface.
func (f HandlerFunc) Handle(ctx context.Context, req *Request) (Envelope, error) {
	return f(ctx, req)
}

// ResponseSpec binds one status code to the schema of its response body.
type ResponseSpec struct {
	Code   string
	Schema Schema
}

// RouteDefinition is the declarative description of one endpoint: method,
// path, input schemas, possible responses, auth policy and documentation
// metadata. Definitions are built with [NewRoute] and immutable once
// compiled.
type RouteDefinition struct {
	method      string
	path        string
	displayPath string

	summary     string
	description string
	tags        []string

	params Schema
	query  Schema
	body   Schema

	responses []ResponseSpec

	policy     *AuthPolicy
	middleware []Middleware

	handler    Handler
	errHandler ErrorHandler
}

// RouteOption configures a [RouteDefinition] created by [NewRoute].
type RouteOption func(*RouteDefinition)

// Summary sets the documentation summary.
func Summary(summary string) RouteOption {
	return func(def *RouteDefinition) {
		def.summary = summary
	}
}

// Description sets the documentation description. Claim requirement text,
// if any, is appended below it.
func Description(description string) RouteOption {
	return func(def *RouteDefinition) {
		def.description = description
	}
}

// Tags sets the documentation tags.
func Tags(tags ...string) RouteOption {
	return func(def *RouteDefinition) {
		def.tags = tags
	}
}

// DisplayPath overrides the path shown in documentation. The runtime path
// given to [NewRoute] still drives routing.
func DisplayPath(path string) RouteOption {
	return func(def *RouteDefinition) {
		def.displayPath = path
	}
}

// Params declares the path parameter schema. It must also implement
// [ObjectSchema] so its fields can be documented.
func Params(schema Schema) RouteOption {
	return func(def *RouteDefinition) {
		def.params = schema
	}
}

// Query declares the query parameter schema. It must also implement
// [ObjectSchema] so its fields can be documented.
func Query(schema Schema) RouteOption {
	return func(def *RouteDefinition) {
		def.query = schema
	}
}

// Body declares the request body schema.
func Body(schema Schema) RouteOption {
	return func(def *RouteDefinition) {
		def.body = schema
	}
}

// Response declares one possible response. Declaration order is preserved
// in documentation; codes are looked up by key.
func Response(code string, schema Schema) RouteOption {
	return func(def *RouteDefinition) {
		def.responses = append(def.responses, ResponseSpec{
			Code:   code,
			Schema: schema,
		})
	}
}

// Auth declares the route's [AuthPolicy].
func Auth(policy AuthPolicy) RouteOption {
	return func(def *RouteDefinition) {
		def.policy = &policy
	}
}

// Use appends custom middleware, run after every auth stage and before
// validation, in the order given.
func Use(middleware ...Middleware) RouteOption {
	return func(def *RouteDefinition) {
		def.middleware = append(def.middleware, middleware...)
	}
}

// OnError configures a custom [ErrorHandler] for errors returned by the
// route's [Handler].
func OnError(eh ErrorHandler) RouteOption {
	return func(def *RouteDefinition) {
		def.errHandler = eh
	}
}

var allowedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodDelete: {},
	http.MethodPatch:  {},
}

// NewRoute creates a [RouteDefinition] for the given method, path and
// handler. The method must be one of GET, POST, PUT, DELETE or PATCH and
// the path must start with "/"; anything else is a programming error and
// panics at declaration time.
//
// Example:
//
//	def := rest.NewRoute(
//	    http.MethodGet,
//	    "/companies/:companyId/projects",
//	    listProjectsHandler,
//	    rest.Summary("List projects"),
//	    rest.Params(rest.Fields(rest.StringField("companyId").Required())),
//	    rest.Query(rest.Fields(rest.IntField("page"), rest.BoolField("archived"))),
//	    rest.Response("200", rest.Struct[[]Project]()),
//	    rest.Auth(rest.AuthPolicy{
//	        Authorization: &rest.Authorization{
//	            Claims: []rest.ClaimRule{{ClaimPath: "companies", RouteParam: "companyId"}},
//	        },
//	    }),
//	)
func NewRoute(method, path string, h Handler, opts ...RouteOption) *RouteDefinition {
	if _, ok := allowedMethods[method]; !ok {
		panic("rest: unsupported route method: " + method)
	}
	if err := validatePath(path); err != nil {
		panic("rest: " + err.Error())
	}
	if h == nil {
		panic("rest: route handler must not be nil")
	}

	def := &RouteDefinition{
		method:  method,
		path:    path,
		handler: h,
	}
	for _, opt := range opts {
		opt(def)
	}
	return def
}

func (def *RouteDefinition) hasResponse(code string) bool {
	for _, resp := range def.responses {
		if resp.Code == code {
			return true
		}
	}
	return false
}
