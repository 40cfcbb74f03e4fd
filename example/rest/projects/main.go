// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Example API demonstrating route contracts: input schemas, role and
// claim based authorization, and the generated OpenAPI document at
// GET /openapi.json.
//
// Try it with a token signed by the shared secret:
//
//	go run .
//	curl -H "Authorization: Bearer $TOKEN" localhost:8080/companies/c1/projects
package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/routeforge/routeforge/rest"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const signingSecret = "local-dev-secret"

// verifyToken is the caller-supplied token validator: it owns all
// cryptography, the rest package only hands it the bearer token.
func verifyToken(ctx context.Context, token string) (*rest.User, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != "HS256" {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(signingSecret), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}

	user := &rest.User{
		Claims: map[string]any(claims),
	}
	if sub, ok := claims["sub"].(string); ok {
		user.ID = sub
	}
	if roles, ok := claims["roles"].([]any); ok {
		for _, role := range roles {
			if s, ok := role.(string); ok {
				user.Roles = append(user.Roles, s)
			}
		}
	}
	if scopes, ok := claims["scopes"].([]any); ok {
		for _, scope := range scopes {
			if s, ok := scope.(string); ok {
				user.Scopes = append(user.Scopes, s)
			}
		}
	}
	return user, nil
}

type Project struct {
	ID        string `json:"id"`
	CompanyID string `json:"companyId"`
	Name      string `json:"name"`
	OwnerMail string `json:"ownerEmail"`
}

type CreateProject struct {
	Name      string `json:"name" validate:"required"`
	OwnerMail string `json:"ownerEmail" validate:"required,email"`
}

type projectStore struct {
	mu       sync.Mutex
	projects map[string][]Project
}

func (s *projectStore) list(companyID string) []Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.projects[companyID]
}

func (s *projectStore) create(companyID string, req *CreateProject) Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	project := Project{
		ID:        uuid.NewString(),
		CompanyID: companyID,
		Name:      req.Name,
		OwnerMail: req.OwnerMail,
	}
	s.projects[companyID] = append(s.projects[companyID], project)
	return project
}

func main() {
	store := &projectStore{
		projects: make(map[string][]Project),
	}

	// Members may list projects of companies their token's "companies"
	// claim grants access to.
	listProjects := rest.NewRoute(
		http.MethodGet,
		"/companies/:companyId/projects",
		rest.HandlerFunc(func(ctx context.Context, req *rest.Request) (rest.Envelope, error) {
			companyID := req.Params["companyId"].(string)
			return rest.Ok(store.list(companyID)), nil
		}),
		rest.Summary("List projects"),
		rest.Tags("projects"),
		rest.Params(rest.Fields(
			rest.StringField("companyId").Required(),
		)),
		rest.Query(rest.Fields(
			rest.BoolField("archived").Describe("include archived projects"),
			rest.PositiveField("limit").Describe("maximum number of projects returned"),
		)),
		rest.Response("200", rest.Struct[[]Project]()),
		rest.Auth(rest.AuthPolicy{
			Authorization: &rest.Authorization{
				Claims: []rest.ClaimRule{
					{
						ClaimPath:   "companies",
						RouteParam:  "companyId",
						Description: "token must grant access to the company",
					},
				},
			},
		}),
	)

	// Project creation is restricted to admins.
	createProject := rest.NewRoute(
		http.MethodPost,
		"/companies/:companyId/projects",
		rest.HandlerFunc(func(ctx context.Context, req *rest.Request) (rest.Envelope, error) {
			companyID := req.Params["companyId"].(string)
			body := req.Body.(*CreateProject)
			return rest.Created(store.create(companyID, body)), nil
		}),
		rest.Summary("Create a project"),
		rest.Tags("projects"),
		rest.Params(rest.Fields(
			rest.StringField("companyId").Required(),
		)),
		rest.Body(rest.Struct[CreateProject]()),
		rest.Response("201", rest.Struct[Project]()),
		rest.Auth(rest.AuthPolicy{
			Authorization: &rest.Authorization{
				Roles: []string{"admin"},
			},
		}),
	)

	api := rest.NewApi(
		"Project Service",
		"v1.0.0",
		rest.ValidateTokensWith(verifyToken),
		rest.Route(listProjects),
		rest.Route(createProject),
	)

	_ = http.ListenAndServe(":8080", api)
}
