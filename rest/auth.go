// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync/atomic"
)

// User is an authenticated caller produced by a [TokenValidator].
// It lives on the request context for the duration of one request and is
// never persisted by this package.
type User struct {
	ID     string
	Roles  []string
	Scopes []string

	// Claims is an open-ended bag of custom attributes, addressable by
	// dot-separated paths in [ClaimRule]s.
	Claims map[string]any
}

type userCtxKey struct{}

func withUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, userCtxKey{}, u)
}

// UserFromContext returns the authenticated [User] attached to the request
// context by the authentication stage, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userCtxKey{}).(*User)
	return u, ok
}

// TokenValidator verifies a bearer token and resolves the caller it
// represents. Implementations own all cryptography; this package only
// extracts the token and invokes the validator.
//
// A returned error results in a 401 response with the error message
// embedded in the response details.
type TokenValidator func(ctx context.Context, token string) (*User, error)

func anonymousValidator(ctx context.Context, token string) (*User, error) {
	return &User{}, nil
}

// ValidatorCell is a hot-swappable holder for a [TokenValidator].
//
// A cell always resolves to a usable validator: until one is stored it
// falls back to a stub returning an anonymous user. Storing a new
// validator takes effect for all subsequent requests.
type ValidatorCell struct {
	v atomic.Pointer[TokenValidator]
}

// NewValidatorCell creates a cell holding the given validator.
// A nil validator leaves the anonymous fallback in place.
func NewValidatorCell(v TokenValidator) *ValidatorCell {
	cell := &ValidatorCell{}
	if v != nil {
		cell.Store(v)
	}
	return cell
}

// Store swaps the cell's validator.
func (c *ValidatorCell) Store(v TokenValidator) {
	c.v.Store(&v)
}

// Load returns the cell's current validator.
func (c *ValidatorCell) Load() TokenValidator {
	v := c.v.Load()
	if v == nil {
		return anonymousValidator
	}
	return *v
}

// DefaultTokenValidator is the process-wide validator cell used by
// [Compile] unless overridden with [WithTokenValidator] and by [NewApi]
// unless overridden with [ValidateTokensWith].
var DefaultTokenValidator = NewValidatorCell(nil)

// SetTokenValidator installs a validator into [DefaultTokenValidator].
// Call it before serving traffic; calling it again at runtime hot-swaps
// the validator for all subsequent requests.
func SetTokenValidator(v TokenValidator) {
	DefaultTokenValidator.Store(v)
}

// AuthPolicy declares the authentication and authorization requirements of
// a route.
type AuthPolicy struct {
	// RequireAuthentication demands a valid bearer token. It is implied,
	// regardless of its declared value, whenever Authorization carries at
	// least one rule.
	RequireAuthentication bool

	Authorization *Authorization
}

// Authorization holds independent, all-optional authorization dimensions.
type Authorization struct {
	// Roles passes when the caller holds at least one of the listed roles.
	Roles []string

	// Scopes passes only when the caller holds every listed scope.
	Scopes []string

	// Claims are evaluated independently, in declaration order.
	Claims []ClaimRule
}

func (a *Authorization) empty() bool {
	return a == nil || (len(a.Roles) == 0 && len(a.Scopes) == 0 && len(a.Claims) == 0)
}

// normalizePolicy forces RequireAuthentication whenever any authorization
// dimension is present. Authorization without authentication is
// meaningless and must not silently no-op. Idempotent; nil stays nil.
func normalizePolicy(p *AuthPolicy) *AuthPolicy {
	if p == nil {
		return nil
	}

	normalized := *p
	normalized.RequireAuthentication = p.RequireAuthentication || !p.Authorization.empty()
	return &normalized
}

const (
	msgMissingToken      = "missing or malformed authorization header"
	msgMissingUser       = "authentication required"
	msgInsufficientRole  = "insufficient role"
	msgInsufficientScope = "insufficient scope"
)

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header per RFC 6750 Section 2.1. The scheme check is case-sensitive.
func bearerToken(headerValues []string) (string, error) {
	if len(headerValues) == 0 {
		return "", fmt.Errorf("missing Authorization header")
	}

	authHeader := headerValues[0]
	const bearerPrefix = "Bearer "

	if len(authHeader) < len(bearerPrefix) {
		return "", fmt.Errorf("malformed Authorization header: missing Bearer prefix")
	}
	if authHeader[:len(bearerPrefix)] != bearerPrefix {
		return "", fmt.Errorf("malformed Authorization header: expected Bearer scheme")
	}

	token := authHeader[len(bearerPrefix):]
	if len(token) == 0 {
		return "", fmt.Errorf("malformed Authorization header: empty token")
	}
	return token, nil
}

// Middleware is one pipeline stage: it either forwards to next or
// terminates the request with a response of its own.
type Middleware func(next http.Handler) http.Handler

// Authenticate builds the authentication stage. It extracts a bearer
// token, resolves it through the cell's current [TokenValidator] and
// attaches the resulting [User] to the request context. Missing or
// malformed credentials terminate the request with a 401.
func Authenticate(cell *ValidatorCell) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, err := bearerToken(r.Header.Values("Authorization"))
			if err != nil {
				writeEnvelope(ctx, w, Unauthorized(msgMissingToken))
				return
			}

			user, err := cell.Load()(ctx, token)
			if err != nil {
				writeEnvelope(ctx, w, Unauthorized(err.Error()))
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(ctx, user)))
		})
	}
}

// RequireRoles builds the role stage: the caller must hold at least one
// of the given roles.
func RequireRoles(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			user, ok := UserFromContext(ctx)
			if !ok {
				writeEnvelope(ctx, w, Unauthorized(msgMissingUser))
				return
			}

			for _, role := range roles {
				if slices.Contains(user.Roles, role) {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeEnvelope(ctx, w, Forbidden(msgInsufficientRole))
		})
	}
}

// RequireScopes builds the scope stage: the caller must hold every one of
// the given scopes.
func RequireScopes(scopes ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			user, ok := UserFromContext(ctx)
			if !ok {
				writeEnvelope(ctx, w, Unauthorized(msgMissingUser))
				return
			}

			for _, scope := range scopes {
				if !slices.Contains(user.Scopes, scope) {
					writeEnvelope(ctx, w, Forbidden(msgInsufficientScope))
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// authStages assembles the auth portion of a pipeline for a normalized
// policy: authentication, then roles, then scopes, then claims in
// declaration order.
func authStages(policy *AuthPolicy, cell *ValidatorCell, skipAuthentication bool) []Middleware {
	if policy == nil {
		return nil
	}

	var stages []Middleware
	if policy.RequireAuthentication && !skipAuthentication {
		stages = append(stages, Authenticate(cell))
	}

	authz := policy.Authorization
	if authz == nil {
		return stages
	}

	if len(authz.Roles) > 0 {
		stages = append(stages, RequireRoles(authz.Roles...))
	}
	if len(authz.Scopes) > 0 {
		stages = append(stages, RequireScopes(authz.Scopes...))
	}
	for _, rule := range authz.Claims {
		stages = append(stages, RequireClaim(rule))
	}
	return stages
}
