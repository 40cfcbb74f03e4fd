// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ClaimValidator is a caller-supplied predicate comparing a resolved
// claim value against the runtime value of a route parameter. The claim
// value is nil when the claim path did not resolve. A returned error is
// treated as a failed check, not a crash.
type ClaimValidator func(ctx context.Context, claimValue any, paramValue string) (bool, error)

// ClaimRule checks one attribute of the authenticated caller against one
// route parameter.
type ClaimRule struct {
	// ClaimPath is a dot-separated path into the caller's claims bag,
	// e.g. "projectRoles" or "org.teams".
	ClaimPath string

	// RouteParam names the path parameter whose runtime value is checked
	// against the resolved claim value.
	RouteParam string

	// Validator overrides the default comparison policy when set.
	Validator ClaimValidator

	// Description is documentation-only text for the generated claim
	// requirement list.
	Description string
}

type claimKind int

const (
	claimMissing claimKind = iota
	claimScalar
	claimArray
	claimMapping
)

// claimValue is the resolved value of a claim path, tagged by shape so
// the default comparison policy is an exhaustive match rather than
// repeated runtime type inspection.
type claimValue struct {
	kind    claimKind
	scalar  any
	array   []any
	mapping map[string]any
}

func (cv claimValue) raw() any {
	switch cv.kind {
	case claimScalar:
		return cv.scalar
	case claimArray:
		return cv.array
	case claimMapping:
		return cv.mapping
	default:
		return nil
	}
}

// resolveClaim walks the dot-separated path through the claims bag,
// stopping early when any intermediate segment is missing or nil.
func resolveClaim(claims map[string]any, path string) claimValue {
	missing := claimValue{kind: claimMissing}

	var current any = claims
	for _, segment := range strings.Split(path, ".") {
		bag, ok := current.(map[string]any)
		if !ok {
			return missing
		}

		next, ok := bag[segment]
		if !ok || next == nil {
			return missing
		}
		current = next
	}

	switch v := current.(type) {
	case []any:
		return claimValue{kind: claimArray, array: v}
	case []string:
		arr := make([]any, len(v))
		for i, s := range v {
			arr[i] = s
		}
		return claimValue{kind: claimArray, array: arr}
	case map[string]any:
		return claimValue{kind: claimMapping, mapping: v}
	default:
		return claimValue{kind: claimScalar, scalar: v}
	}
}

// matches applies the default comparison policy: arrays contain the
// parameter, mappings hold it as a key, scalars equal it with no
// coercion, missing values never match.
func (cv claimValue) matches(param string) bool {
	switch cv.kind {
	case claimArray:
		for _, el := range cv.array {
			if s, ok := el.(string); ok && s == param {
				return true
			}
		}
		return false
	case claimMapping:
		_, ok := cv.mapping[param]
		return ok
	case claimScalar:
		s, ok := cv.scalar.(string)
		return ok && s == param
	default:
		return false
	}
}

// RequireClaim builds one claim stage. The named route parameter must be
// present on the live request; its absence indicates a route/path
// mismatch and terminates with a 400 rather than an auth failure.
func RequireClaim(rule ClaimRule) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			user, ok := UserFromContext(ctx)
			if !ok {
				writeEnvelope(ctx, w, Unauthorized(msgMissingUser))
				return
			}

			param := chi.URLParam(r, rule.RouteParam)
			if param == "" {
				writeEnvelope(ctx, w, BadRequest(map[string]any{
					"message": fmt.Sprintf("missing route parameter %q", rule.RouteParam),
				}))
				return
			}

			value := resolveClaim(user.Claims, rule.ClaimPath)

			passed := false
			if rule.Validator != nil {
				ok, err := rule.Validator(ctx, value.raw(), param)
				passed = ok && err == nil
			} else {
				passed = value.matches(param)
			}

			if !passed {
				writeEnvelope(ctx, w, Forbidden(
					fmt.Sprintf("insufficient claim for route parameter %q", rule.RouteParam),
				))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
