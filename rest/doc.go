// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Package rest compiles declarative route contracts into enforced HTTP endpoints.
//
// # Overview
//
// A route contract declares, in one place, everything an endpoint promises:
// the shape of its path parameters, query parameters and request body, the
// responses it may produce per status code, and the authentication and
// authorization rules callers must satisfy. From that single declaration the
// package derives:
//   - request validation with standard 400 rejections
//   - an ordered auth middleware pipeline (authentication, roles, scopes, claims)
//   - an OpenAPI 3.0 documentation entry, including security requirements
//     and synthesized 401/403 responses
//
// # Quick Start
//
//	listProjects := rest.NewRoute(
//	    http.MethodGet,
//	    "/projects",
//	    rest.HandlerFunc(func(ctx context.Context, req *rest.Request) (rest.Envelope, error) {
//	        return rest.Ok([]string{"alpha", "beta"}), nil
//	    }),
//	    rest.Summary("List projects"),
//	    rest.Response("200", rest.Struct[[]string]()),
//	)
//
//	api := rest.NewApi("Project Service", "v1.0.0", rest.Route(listProjects))
//	http.ListenAndServe(":8080", api)
//
// The API automatically provides:
//   - OpenAPI schema at GET /openapi.json
//   - Health endpoints at GET /health/liveness and GET /health/readiness
//
// # Auth Contracts
//
// Declaring any authorization dimension implies authentication:
//
//	rest.Auth(rest.AuthPolicy{
//	    Authorization: &rest.Authorization{
//	        Roles:  []string{"admin"},
//	        Claims: []rest.ClaimRule{{ClaimPath: "companies", RouteParam: "companyId"}},
//	    },
//	})
//
// Token verification itself is caller-supplied: install a [TokenValidator]
// with [SetTokenValidator] (or per-[Api] with [ValidateTokensWith]) before
// serving traffic. The validator may be swapped at runtime; subsequent
// requests observe the new validator.
//
// # Standalone Compilation
//
// Routes can also be compiled and attached to any [Router] directly:
//
//	rest.Compile(def).Attach(chi.NewMux())
package rest
