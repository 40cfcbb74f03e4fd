// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func getOpenAPISpec(t *testing.T, api *Api) map[string]any {
	t.Helper()

	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	resp, err := http.Get(srv.URL + "/openapi.json")
	require.NoError(t, err)
	defer resp.Body.Close()

	var spec map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&spec))
	return spec
}

func operationSpec(t *testing.T, spec map[string]any, path, method string) map[string]any {
	t.Helper()

	paths := spec["paths"].(map[string]any)
	require.Contains(t, paths, path)
	pathSpec := paths[path].(map[string]any)
	require.Contains(t, pathSpec, method)
	return pathSpec[method].(map[string]any)
}

func TestDocs_PathTranslation(t *testing.T) {
	def := NewRoute(http.MethodGet, "/companies/:companyId/projects/:projectId", okHandler(nil))

	api := NewApi("Test", "v1", Route(def))
	spec := getOpenAPISpec(t, api)

	operationSpec(t, spec, "/companies/{companyId}/projects/{projectId}", "get")
}

func TestDocs_DisplayPathPreferred(t *testing.T) {
	def := NewRoute(
		http.MethodGet,
		"/internal/:id",
		okHandler(nil),
		DisplayPath("/public/:id"),
	)

	api := NewApi("Test", "v1", Route(def))
	spec := getOpenAPISpec(t, api)

	operationSpec(t, spec, "/public/{id}", "get")
}

func TestDocs_SecurityAndSynthesizedResponses(t *testing.T) {
	// an authenticated route with authorization gains a bearer security
	// requirement plus generic 401/403 entries it never declared
	def := NewRoute(
		http.MethodGet,
		"/admin",
		okHandler(nil),
		Response("200", Struct[map[string]string]()),
		Auth(AuthPolicy{
			RequireAuthentication: true,
			Authorization: &Authorization{
				Roles: []string{"admin"},
			},
		}),
	)

	api := NewApi("Test", "v1", Route(def))
	spec := getOpenAPISpec(t, api)

	op := operationSpec(t, spec, "/admin", "get")

	security := op["security"].([]any)
	require.Len(t, security, 1)
	require.Contains(t, security[0].(map[string]any), "bearerAuth")

	responses := op["responses"].(map[string]any)
	require.Contains(t, responses, "200")
	require.Contains(t, responses, "400")
	require.Contains(t, responses, "401")
	require.Contains(t, responses, "403")

	schemes := spec["components"].(map[string]any)["securitySchemes"].(map[string]any)
	bearer := schemes["bearerAuth"].(map[string]any)
	require.Equal(t, "http", bearer["type"])
	require.Equal(t, "bearer", bearer["scheme"])
}

func TestDocs_NoForbiddenWithoutAuthorization(t *testing.T) {
	def := NewRoute(
		http.MethodGet,
		"/me",
		okHandler(nil),
		Auth(AuthPolicy{RequireAuthentication: true}),
	)

	api := NewApi("Test", "v1", Route(def))
	spec := getOpenAPISpec(t, api)

	responses := operationSpec(t, spec, "/me", "get")["responses"].(map[string]any)
	require.Contains(t, responses, "401")
	require.NotContains(t, responses, "403")
}

func TestDocs_DeclaredResponsesWin(t *testing.T) {
	def := NewRoute(
		http.MethodGet,
		"/me",
		okHandler(nil),
		Response("401", Struct[createUser]()),
		Auth(AuthPolicy{RequireAuthentication: true}),
	)

	api := NewApi("Test", "v1", Route(def))
	spec := getOpenAPISpec(t, api)

	responses := operationSpec(t, spec, "/me", "get")["responses"].(map[string]any)
	declared := responses["401"].(map[string]any)
	require.Equal(t, "Status 401 response", declared["description"])
}

func TestDocs_ClaimDescriptions(t *testing.T) {
	def := NewRoute(
		http.MethodGet,
		"/companies/:companyId",
		okHandler(nil),
		Description("Returns one company."),
		Auth(AuthPolicy{
			Authorization: &Authorization{
				Claims: []ClaimRule{
					{
						ClaimPath:   "companies",
						RouteParam:  "companyId",
						Description: "token must grant company access",
					},
					{
						ClaimPath:  "org.teams",
						RouteParam: "companyId",
					},
				},
			},
		}),
	)

	api := NewApi("Test", "v1", Route(def))
	spec := getOpenAPISpec(t, api)

	op := operationSpec(t, spec, "/companies/{companyId}", "get")
	description := op["description"].(string)

	require.Contains(t, description, "Returns one company.")
	require.Contains(t, description, "Required claims:")
	require.Contains(t, description, "- token must grant company access")
	// templated fallback references the claim path and route parameter
	require.Contains(t, description, "org.teams")
	require.Contains(t, description, "companyId")
}

func TestDocs_Parameters(t *testing.T) {
	def := NewRoute(
		http.MethodGet,
		"/companies/:companyId/projects",
		okHandler(nil),
		Params(Fields(StringField("companyId").Required())),
		Query(Fields(
			IntField("page").Required(),
			BoolField("archived"),
		)),
	)

	api := NewApi("Test", "v1", Route(def))
	spec := getOpenAPISpec(t, api)

	op := operationSpec(t, spec, "/companies/{companyId}/projects", "get")
	parameters := op["parameters"].([]any)
	require.Len(t, parameters, 3)

	byName := make(map[string]map[string]any)
	for _, p := range parameters {
		parameter := p.(map[string]any)
		byName[parameter["name"].(string)] = parameter
	}

	require.Equal(t, "path", byName["companyId"]["in"])
	require.Equal(t, true, byName["companyId"]["required"])

	// query parameters are always documented as optional, even when the
	// schema itself requires them; a change here is a semantic change
	require.Equal(t, "query", byName["page"]["in"])
	require.Equal(t, false, byName["page"]["required"])
	require.Equal(t, false, byName["archived"]["required"])
}

func TestDocs_UndeclaredPathParamsBackfilled(t *testing.T) {
	def := NewRoute(http.MethodGet, "/things/:id", okHandler(nil))

	api := NewApi("Test", "v1", Route(def))
	spec := getOpenAPISpec(t, api)

	op := operationSpec(t, spec, "/things/{id}", "get")
	parameters := op["parameters"].([]any)
	require.Len(t, parameters, 1)

	parameter := parameters[0].(map[string]any)
	require.Equal(t, "id", parameter["name"])
	require.Equal(t, "path", parameter["in"])
	require.Equal(t, true, parameter["required"])
}

func TestDocs_RequestBody(t *testing.T) {
	def := NewRoute(
		http.MethodPost,
		"/users",
		okHandler(nil),
		Body(Struct[createUser]()),
	)

	api := NewApi("Test", "v1", Route(def))
	spec := getOpenAPISpec(t, api)

	op := operationSpec(t, spec, "/users", "post")
	body := op["requestBody"].(map[string]any)
	require.Equal(t, true, body["required"])

	content := body["content"].(map[string]any)
	require.Contains(t, content, "application/json")
}

func TestDocs_NonEnumerableParamsSchemaPanics(t *testing.T) {
	def := NewRoute(
		http.MethodGet,
		"/things",
		okHandler(nil),
		Query(Struct[createUser]()),
	)

	require.Panics(t, func() {
		compileForTest(def, nil)
	})
}

func TestRegisterDocs_DuplicateRegistration(t *testing.T) {
	t.Run("duplicate registration fails compilation", func(t *testing.T) {
		registry := NewOpenAPIRegistry("test", "v0.0.0")

		Compile(
			NewRoute(http.MethodGet, "/things", okHandler(nil)),
			WithRegistry(registry),
		)

		require.Panics(t, func() {
			Compile(
				NewRoute(http.MethodGet, "/things", okHandler(nil)),
				WithRegistry(registry),
			)
		})
	})
}
