// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizePolicy(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		require.Nil(t, normalizePolicy(nil))
	})

	t.Run("authorization implies authentication", func(t *testing.T) {
		policies := []*AuthPolicy{
			{Authorization: &Authorization{Roles: []string{"admin"}}},
			{Authorization: &Authorization{Scopes: []string{"read"}}},
			{Authorization: &Authorization{Claims: []ClaimRule{{ClaimPath: "a", RouteParam: "b"}}}},
		}

		for _, policy := range policies {
			require.False(t, policy.RequireAuthentication)
			require.True(t, normalizePolicy(policy).RequireAuthentication)
		}
	})

	t.Run("empty authorization does not imply authentication", func(t *testing.T) {
		normalized := normalizePolicy(&AuthPolicy{Authorization: &Authorization{}})
		require.False(t, normalized.RequireAuthentication)
	})

	t.Run("declared authentication is preserved", func(t *testing.T) {
		normalized := normalizePolicy(&AuthPolicy{RequireAuthentication: true})
		require.True(t, normalized.RequireAuthentication)
	})

	t.Run("idempotent", func(t *testing.T) {
		policy := &AuthPolicy{Authorization: &Authorization{Roles: []string{"admin"}}}

		once := normalizePolicy(policy)
		twice := normalizePolicy(once)
		require.Equal(t, once, twice)
	})
}

func TestBearerToken(t *testing.T) {
	t.Run("extracts the token", func(t *testing.T) {
		token, err := bearerToken([]string{"Bearer abc123"})
		require.NoError(t, err)
		require.Equal(t, "abc123", token)
	})

	t.Run("rejects malformed headers", func(t *testing.T) {
		for _, values := range [][]string{
			nil,
			{""},
			{"abc123"},
			{"bearer abc123"},
			{"Basic abc123"},
			{"Bearer "},
		} {
			_, err := bearerToken(values)
			require.Error(t, err, "values=%v", values)
		}
	})
}

// nextRecorder reports whether the pipeline continued past a stage.
type nextRecorder struct {
	called bool
}

func (n *nextRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n.called = true
	w.WriteHeader(http.StatusOK)
}

func runStage(t *testing.T, stage Middleware, r *http.Request) (*httptest.ResponseRecorder, bool) {
	t.Helper()

	next := &nextRecorder{}
	rec := httptest.NewRecorder()
	stage(next).ServeHTTP(rec, r)
	return rec, next.called
}

func withTestUser(r *http.Request, u *User) *http.Request {
	return r.WithContext(withUser(r.Context(), u))
}

func TestAuthenticate(t *testing.T) {
	t.Run("missing header terminates with 401", func(t *testing.T) {
		stage := Authenticate(NewValidatorCell(nil))

		rec, continued := runStage(t, stage, httptest.NewRequest(http.MethodGet, "/", nil))
		require.False(t, continued)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		body := decodeBody(t, rec)
		require.Equal(t, "Unauthorized", body["error"])
	})

	t.Run("validator failure embeds its message in details", func(t *testing.T) {
		stage := Authenticate(NewValidatorCell(func(ctx context.Context, token string) (*User, error) {
			return nil, errors.New("token expired")
		}))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer abc")

		rec, continued := runStage(t, stage, r)
		require.False(t, continued)
		require.Equal(t, http.StatusUnauthorized, rec.Code)

		details := decodeBody(t, rec)["details"].(map[string]any)
		require.Equal(t, "token expired", details["message"])
	})

	t.Run("attaches the user and continues", func(t *testing.T) {
		var attached *User
		stage := Authenticate(NewValidatorCell(func(ctx context.Context, token string) (*User, error) {
			require.Equal(t, "abc", token)
			return &User{ID: "u1"}, nil
		}))

		inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attached, _ = UserFromContext(r.Context())
		})

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer abc")
		stage(inner).ServeHTTP(httptest.NewRecorder(), r)

		require.NotNil(t, attached)
		require.Equal(t, "u1", attached.ID)
	})

	t.Run("unset cell falls back to an anonymous user", func(t *testing.T) {
		stage := Authenticate(NewValidatorCell(nil))

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer anything")

		rec, continued := runStage(t, stage, r)
		require.True(t, continued)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("hot-swapping the cell affects subsequent requests", func(t *testing.T) {
		cell := NewValidatorCell(nil)
		stage := Authenticate(cell)

		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.Header.Set("Authorization", "Bearer abc")

		_, continued := runStage(t, stage, r)
		require.True(t, continued)

		cell.Store(func(ctx context.Context, token string) (*User, error) {
			return nil, errors.New("revoked")
		})

		rec, continued := runStage(t, stage, r)
		require.False(t, continued)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireRoles(t *testing.T) {
	t.Run("passes on any role intersection", func(t *testing.T) {
		stage := RequireRoles("admin", "owner")

		r := withTestUser(httptest.NewRequest(http.MethodGet, "/", nil), &User{Roles: []string{"user", "owner"}})
		_, continued := runStage(t, stage, r)
		require.True(t, continued)
	})

	t.Run("fails with 403 on empty intersection", func(t *testing.T) {
		stage := RequireRoles("admin")

		r := withTestUser(httptest.NewRequest(http.MethodGet, "/", nil), &User{Roles: []string{"user"}})
		rec, continued := runStage(t, stage, r)
		require.False(t, continued)
		require.Equal(t, http.StatusForbidden, rec.Code)

		details := decodeBody(t, rec)["details"].(map[string]any)
		require.Equal(t, msgInsufficientRole, details["message"])
	})

	t.Run("missing user terminates with 401", func(t *testing.T) {
		stage := RequireRoles("admin")

		rec, continued := runStage(t, stage, httptest.NewRequest(http.MethodGet, "/", nil))
		require.False(t, continued)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireScopes(t *testing.T) {
	t.Run("requires every scope", func(t *testing.T) {
		stage := RequireScopes("read", "write")

		r := withTestUser(httptest.NewRequest(http.MethodGet, "/", nil), &User{Scopes: []string{"write", "read", "admin"}})
		_, continued := runStage(t, stage, r)
		require.True(t, continued)
	})

	t.Run("fails with 403 on any missing scope", func(t *testing.T) {
		stage := RequireScopes("read", "write")

		r := withTestUser(httptest.NewRequest(http.MethodGet, "/", nil), &User{Scopes: []string{"read"}})
		rec, continued := runStage(t, stage, r)
		require.False(t, continued)
		require.Equal(t, http.StatusForbidden, rec.Code)

		details := decodeBody(t, rec)["details"].(map[string]any)
		require.Equal(t, msgInsufficientScope, details["message"])
	})
}
