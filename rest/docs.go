// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"fmt"
	"strings"
	"sync"

	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

// bearerSchemeName is the security scheme key attached to every route
// requiring authentication.
const bearerSchemeName = "bearerAuth"

// Registry is the append-only documentation store routes are registered
// into. This package only ever appends; it never reads back or mutates
// existing entries.
type Registry interface {
	RegisterPath(method, path string, op openapi3.Operation) error
	EnsureSecurityScheme(name string, scheme openapi3.SecurityScheme)
}

// OpenAPIRegistry is a [Registry] backed by an OpenAPI 3.0 document.
type OpenAPIRegistry struct {
	mu   sync.Mutex
	spec *openapi3.Spec
}

// NewOpenAPIRegistry creates an empty registry with the given document
// title and version.
func NewOpenAPIRegistry(title, version string) *OpenAPIRegistry {
	return &OpenAPIRegistry{
		spec: &openapi3.Spec{
			Openapi: "3.0",
			Info: openapi3.Info{
				Title:   title,
				Version: version,
			},
		},
	}
}

// Spec returns the underlying OpenAPI document.
func (r *OpenAPIRegistry) Spec() *openapi3.Spec {
	return r.spec
}

// RegisterPath implements the [Registry] interface.
func (r *OpenAPIRegistry) RegisterPath(method, path string, op openapi3.Operation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.spec.AddOperation(method, path, op)
}

// EnsureSecurityScheme implements the [Registry] interface.
func (r *OpenAPIRegistry) EnsureSecurityScheme(name string, scheme openapi3.SecurityScheme) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.spec.ComponentsEns().SecuritySchemesEns().WithMapOfSecuritySchemeOrRefValuesItem(
		name,
		openapi3.SecuritySchemeOrRef{
			SecurityScheme: &scheme,
		},
	)
}

// DefaultRegistry is the process-wide registry used by [Compile] unless
// overridden with [WithRegistry].
var DefaultRegistry = NewOpenAPIRegistry("API", "v0.0.0")

// registerDocs translates a normalized route definition into one
// documentation entry. It must not fail on a well-formed definition;
// schemas that can not be enumerated or described are a declaration-time
// programming error and panic before any request is served.
func registerDocs(reg Registry, def *RouteDefinition) error {
	displayPath := def.path
	if def.displayPath != "" {
		displayPath = def.displayPath
	}

	op := openapi3.Operation{
		Tags: def.tags,
	}
	if def.summary != "" {
		op.Summary = ptr.Ref(def.summary)
	}
	if description := describeRoute(def); description != "" {
		op.Description = ptr.Ref(description)
	}

	responses := make(map[string]openapi3.ResponseOrRef, len(def.responses))
	for _, resp := range def.responses {
		responses[resp.Code] = openapi3.ResponseOrRef{
			Response: &openapi3.Response{
				Description: fmt.Sprintf("Status %s response", resp.Code),
				Content:     schemaContent(resp.Schema),
			},
		}
	}

	if def.policy != nil && def.policy.RequireAuthentication {
		reg.EnsureSecurityScheme(bearerSchemeName, openapi3.SecurityScheme{
			HTTPSecurityScheme: &openapi3.HTTPSecurityScheme{
				Scheme:       "bearer",
				BearerFormat: ptr.Ref("JWT"),
			},
		})
		op.WithSecurity(map[string][]string{
			bearerSchemeName: {},
		})

		if _, ok := responses["401"]; !ok {
			responses["401"] = genericErrorResponse("Unauthorized")
		}
		if _, ok := responses["403"]; !ok && !def.policy.Authorization.empty() {
			responses["403"] = genericErrorResponse("Forbidden")
		}
	}

	op.Responses = openapi3.Responses{
		MapOfResponseOrRefValues: responses,
	}

	op.Parameters = append(
		paramEntries(def.params, openapi3.ParameterInPath),
		paramEntries(def.query, openapi3.ParameterInQuery)...,
	)

	// Path params without a schema field still need a documentation
	// entry; the OpenAPI document rejects undeclared placeholders.
	declared := make(map[string]struct{})
	for _, entry := range op.Parameters {
		if entry.Parameter != nil && entry.Parameter.In == openapi3.ParameterInPath {
			declared[entry.Parameter.Name] = struct{}{}
		}
	}
	for _, name := range pathParamNames(displayPath) {
		if _, ok := declared[name]; ok {
			continue
		}
		op.Parameters = append(op.Parameters, openapi3.ParameterOrRef{
			Parameter: &openapi3.Parameter{
				Name:     name,
				In:       openapi3.ParameterInPath,
				Required: ptr.Ref(true),
				Schema: &openapi3.SchemaOrRef{
					Schema: &openapi3.Schema{
						Type: ptr.Ref(openapi3.SchemaTypeString),
					},
				},
			},
		})
	}

	if def.body != nil {
		op.RequestBody = &openapi3.RequestBodyOrRef{
			RequestBody: &openapi3.RequestBody{
				Required: ptr.Ref(true),
				Content:  schemaContent(def.body),
			},
		}
	}

	return reg.RegisterPath(def.method, bracePath(displayPath), op)
}

// describeRoute appends the claim requirement list, when any claim rules
// are declared, below the route's own description text.
func describeRoute(def *RouteDefinition) string {
	description := def.description
	if def.policy == nil || def.policy.Authorization == nil {
		return description
	}

	claims := def.policy.Authorization.Claims
	if len(claims) == 0 {
		return description
	}

	var sb strings.Builder
	sb.WriteString(description)
	if description != "" {
		sb.WriteString("\n\n")
	}
	sb.WriteString("Required claims:")
	for _, rule := range claims {
		text := rule.Description
		if text == "" {
			text = fmt.Sprintf("claim %q must match route parameter %q", rule.ClaimPath, rule.RouteParam)
		}
		sb.WriteString("\n- ")
		sb.WriteString(text)
	}
	return sb.String()
}

// paramEntries enumerates the top-level fields of a params or query
// schema. Path parameters are always documented as required and query
// parameters as optional, regardless of the schema's own optionality.
func paramEntries(schema Schema, in openapi3.ParameterIn) []openapi3.ParameterOrRef {
	if schema == nil {
		return nil
	}

	object, ok := schema.(ObjectSchema)
	if !ok {
		panic(fmt.Sprintf("rest: %s schema must enumerate its fields (implement ObjectSchema)", in))
	}

	fields := object.Fields()
	entries := make([]openapi3.ParameterOrRef, 0, len(fields))
	for _, field := range fields {
		parameter := &openapi3.Parameter{
			Name:     field.Name,
			In:       in,
			Required: ptr.Ref(in == openapi3.ParameterInPath),
			Schema: &openapi3.SchemaOrRef{
				Schema: &openapi3.Schema{
					Type: ptr.Ref(field.Type),
				},
			},
		}
		if field.Description != "" {
			parameter.Description = ptr.Ref(field.Description)
		}

		entries = append(entries, openapi3.ParameterOrRef{
			Parameter: parameter,
		})
	}
	return entries
}

func schemaContent(schema Schema) map[string]openapi3.MediaType {
	documented, ok := schema.(DocumentedSchema)
	if !ok {
		return nil
	}

	schemaOrRef, err := documented.DocSchema()
	if err != nil {
		panic(fmt.Sprintf("rest: failed to describe schema for documentation: %v", err))
	}

	return map[string]openapi3.MediaType{
		"application/json": {
			Schema: &schemaOrRef,
		},
	}
}

func genericErrorResponse(description string) openapi3.ResponseOrRef {
	return openapi3.ResponseOrRef{
		Response: &openapi3.Response{
			Description: description,
			Content:     schemaContent(StandardError()),
		},
	}
}
