// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/swaggest/openapi-go/openapi3"
	"github.com/z5labs/sdk-go/ptr"
)

// Schema validates a raw input value and returns its coerced form.
//
// Validate returns the transformed value on success. On failure it returns
// a non-nil error which, when it is a [FieldErrors], carries per-field
// messages that end up under the `details` key of the 400 response.
type Schema interface {
	Validate(ctx context.Context, value any) (any, error)
}

// ObjectSchema is a [Schema] whose top-level fields can be enumerated.
// Params and query schemas must implement it so their fields can be
// documented as individual parameters.
type ObjectSchema interface {
	Schema

	Fields() []FieldSpec
}

// DocumentedSchema is a [Schema] which can describe itself for
// documentation purposes.
type DocumentedSchema interface {
	Schema

	DocSchema() (openapi3.SchemaOrRef, error)
}

// FieldSpec describes one top-level field of an [ObjectSchema].
type FieldSpec struct {
	Name        string
	Type        openapi3.SchemaType
	Required    bool
	Description string
}

// FieldErrors maps field names to validation failure messages.
// It implements the error interface so schemas can return it directly.
type FieldErrors map[string]string

// Error implements the error interface.
func (e FieldErrors) Error() string {
	names := make([]string, 0, len(e))
	for name := range e {
		names = append(names, name)
	}
	sort.Strings(names)
	return fmt.Sprintf("validation failed for fields: %s", strings.Join(names, ", "))
}

// Details returns the field messages as a generic details map.
func (e FieldErrors) Details() map[string]any {
	details := make(map[string]any, len(e))
	for name, msg := range e {
		details[name] = msg
	}
	return details
}

// Field describes one named input accepted by a [Fields] schema.
// Fields are built with the typed constructors, for example:
//
//	rest.StringField("projectId").Required()
//	rest.IntField("page").Describe("zero-based page index")
type Field struct {
	name        string
	required    bool
	adapter     Adapter
	typ         openapi3.SchemaType
	description string
}

// StringField creates a field which passes its raw value through unchanged.
func StringField(name string) Field {
	return Field{
		name:    name,
		adapter: StringAdapter,
		typ:     openapi3.SchemaTypeString,
	}
}

// BoolField creates a field coerced with [BoolAdapter].
func BoolField(name string) Field {
	return Field{
		name:    name,
		adapter: BoolAdapter,
		typ:     openapi3.SchemaTypeBoolean,
	}
}

// IntField creates a field coerced with [IntAdapter].
func IntField(name string) Field {
	return Field{
		name:    name,
		adapter: IntAdapter,
		typ:     openapi3.SchemaTypeInteger,
	}
}

// PositiveField creates a field coerced with [PositiveAdapter].
func PositiveField(name string) Field {
	return Field{
		name:    name,
		adapter: PositiveAdapter,
		typ:     openapi3.SchemaTypeNumber,
	}
}

// Required marks the field as required. Absent required fields fail
// validation with a standard 400 response.
func (f Field) Required() Field {
	f.required = true
	return f
}

// Describe attaches a human readable description used in documentation.
func (f Field) Describe(description string) Field {
	f.description = description
	return f
}

// FieldsSchema is an ordered object schema over stringly-typed inputs,
// such as path and query parameters. See [Fields].
type FieldsSchema struct {
	fields []Field
}

// Fields creates a [FieldsSchema] from the given fields.
//
// Validation accepts a map[string]string of raw values. Each declared
// field is coerced by its adapter; absent optional fields are omitted from
// the output. Undeclared keys pass through unchanged.
func Fields(fields ...Field) *FieldsSchema {
	return &FieldsSchema{
		fields: fields,
	}
}

// Validate implements the [Schema] interface.
func (s *FieldsSchema) Validate(ctx context.Context, value any) (any, error) {
	raw, ok := value.(map[string]string)
	if !ok {
		return nil, fmt.Errorf("fields schema expects map[string]string, got %T", value)
	}

	out := make(map[string]any, len(raw))
	fieldErrs := make(FieldErrors)

	declared := make(map[string]struct{}, len(s.fields))
	for _, field := range s.fields {
		declared[field.name] = struct{}{}

		rawValue, present := raw[field.name]
		if !present {
			if field.required {
				fieldErrs[field.name] = "is required"
			}
			continue
		}

		coerced, err := field.adapter(rawValue, true)
		if err != nil {
			fieldErrs[field.name] = err.Error()
			continue
		}
		out[field.name] = coerced
	}

	for name, rawValue := range raw {
		if _, ok := declared[name]; ok {
			continue
		}
		out[name] = rawValue
	}

	if len(fieldErrs) > 0 {
		return nil, fieldErrs
	}
	return out, nil
}

// Fields implements the [ObjectSchema] interface.
func (s *FieldsSchema) Fields() []FieldSpec {
	specs := make([]FieldSpec, 0, len(s.fields))
	for _, field := range s.fields {
		specs = append(specs, FieldSpec{
			Name:        field.name,
			Type:        field.typ,
			Required:    field.required,
			Description: field.description,
		})
	}
	return specs
}

// DocSchema implements the [DocumentedSchema] interface.
func (s *FieldsSchema) DocSchema() (openapi3.SchemaOrRef, error) {
	properties := make(map[string]openapi3.SchemaOrRef, len(s.fields))
	var required []string
	for _, field := range s.fields {
		fieldSchema := &openapi3.Schema{
			Type: ptr.Ref(field.typ),
		}
		if field.description != "" {
			fieldSchema.Description = ptr.Ref(field.description)
		}
		properties[field.name] = openapi3.SchemaOrRef{
			Schema: fieldSchema,
		}
		if field.required {
			required = append(required, field.name)
		}
	}

	return openapi3.SchemaOrRef{
		Schema: &openapi3.Schema{
			Type:       ptr.Ref(openapi3.SchemaTypeObject),
			Properties: properties,
			Required:   required,
		},
	}, nil
}

type standardErrorSchema struct{}

// StandardError returns the schema of the standard error envelope,
// `{"error": string, "details": object}`. It is injected as the default
// "400" response on every compiled route and used for synthesized 401/403
// documentation entries.
func StandardError() Schema {
	return standardErrorSchema{}
}

// Validate implements the [Schema] interface. The standard error shape is
// produced by this package itself so validation is a pass-through.
func (standardErrorSchema) Validate(ctx context.Context, value any) (any, error) {
	return value, nil
}

// DocSchema implements the [DocumentedSchema] interface.
func (standardErrorSchema) DocSchema() (openapi3.SchemaOrRef, error) {
	return openapi3.SchemaOrRef{
		Schema: &openapi3.Schema{
			Type: ptr.Ref(openapi3.SchemaTypeObject),
			Properties: map[string]openapi3.SchemaOrRef{
				"error": {
					Schema: &openapi3.Schema{
						Type: ptr.Ref(openapi3.SchemaTypeString),
					},
				},
				"details": {
					Schema: &openapi3.Schema{
						Type: ptr.Ref(openapi3.SchemaTypeObject),
					},
				},
			},
			Required: []string{"error", "details"},
		},
	}, nil
}
