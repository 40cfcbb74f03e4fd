// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/swaggest/jsonschema-go"
	"github.com/swaggest/openapi-go/openapi3"
)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report failures under the wire name, not the Go field name.
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		tag := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return field.Name
		}
		return tag
	})

	return v
}

// StructSchema validates JSON request bodies against a struct type using
// `validate` struct tags. See [Struct].
type StructSchema[T any] struct{}

// Struct creates a schema which decodes a JSON body into T and validates
// it with go-playground/validator struct tags.
//
// Example:
//
//	type CreateUser struct {
//	    Email string `json:"email" validate:"required,email"`
//	    Name  string `json:"name" validate:"required"`
//	}
//
//	rest.Body(rest.Struct[CreateUser]())
func Struct[T any]() *StructSchema[T] {
	return &StructSchema[T]{}
}

// Validate implements the [Schema] interface.
//
// Accepted inputs are raw JSON ([]byte, [json.RawMessage] or [io.Reader])
// or an already decoded T / *T. The returned value is always a *T.
func (s *StructSchema[T]) Validate(ctx context.Context, value any) (any, error) {
	target, err := s.decode(value)
	if err != nil {
		return nil, FieldErrors{"body": err.Error()}
	}

	err = structValidator.StructCtx(ctx, target)
	if err == nil {
		return target, nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return nil, FieldErrors{"body": err.Error()}
	}

	fieldErrs := make(FieldErrors, len(validationErrs))
	for _, fieldErr := range validationErrs {
		fieldErrs[fieldErr.Field()] = fmt.Sprintf("failed %q validation", fieldErr.Tag())
	}
	return nil, fieldErrs
}

func (s *StructSchema[T]) decode(value any) (*T, error) {
	switch v := value.(type) {
	case *T:
		return v, nil
	case T:
		return &v, nil
	case json.RawMessage:
		return unmarshalBody[T](v)
	case []byte:
		return unmarshalBody[T](v)
	case io.Reader:
		b, err := io.ReadAll(v)
		if err != nil {
			return nil, err
		}
		return unmarshalBody[T](b)
	default:
		return nil, fmt.Errorf("unsupported body input type %T", value)
	}
}

func unmarshalBody[T any](b []byte) (*T, error) {
	if len(b) == 0 {
		return nil, errors.New("is empty")
	}

	var target T
	err := json.Unmarshal(b, &target)
	if err != nil {
		return nil, errors.New("is not valid JSON")
	}
	return &target, nil
}

// DocSchema implements the [DocumentedSchema] interface by reflecting a
// JSON schema for T.
func (s *StructSchema[T]) DocSchema() (openapi3.SchemaOrRef, error) {
	var t T
	var reflector jsonschema.Reflector

	jsonSchema, err := reflector.Reflect(t, jsonschema.InlineRefs)
	if err != nil {
		return openapi3.SchemaOrRef{}, err
	}

	var schemaOrRef openapi3.SchemaOrRef
	schemaOrRef.FromJSONSchema(jsonSchema.ToSchemaOrBool())
	return schemaOrRef, nil
}
