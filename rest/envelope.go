// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"encoding/json"
	"net/http"
)

// Envelope is a finalized response instruction: a status code plus the
// JSON body to write. Envelopes are pure values; nothing is written until
// [Envelope.Write] is called.
type Envelope struct {
	Status int
	Body   any
}

type errorBody struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details"`
}

// Ok shapes a 200 response around the given payload.
func Ok(payload any) Envelope {
	return Envelope{
		Status: http.StatusOK,
		Body:   payload,
	}
}

// Created shapes a 201 response around the given payload.
func Created(payload any) Envelope {
	return Envelope{
		Status: http.StatusCreated,
		Body:   payload,
	}
}

// BadRequest shapes a 400 response carrying the given details map.
func BadRequest(details map[string]any) Envelope {
	if details == nil {
		details = map[string]any{}
	}
	return Envelope{
		Status: http.StatusBadRequest,
		Body: errorBody{
			Error:   "Bad Request",
			Details: details,
		},
	}
}

// Conflict shapes a 400 response with the message folded into the details.
func Conflict(message string) Envelope {
	return Envelope{
		Status: http.StatusBadRequest,
		Body: errorBody{
			Error: "Conflict",
			Details: map[string]any{
				"message": message,
			},
		},
	}
}

// Unauthorized shapes a 401 response.
func Unauthorized(message string) Envelope {
	return Envelope{
		Status: http.StatusUnauthorized,
		Body: errorBody{
			Error: "Unauthorized",
			Details: map[string]any{
				"message": message,
			},
		},
	}
}

// Forbidden shapes a 403 response.
func Forbidden(message string) Envelope {
	return Envelope{
		Status: http.StatusForbidden,
		Body: errorBody{
			Error: "Forbidden",
			Details: map[string]any{
				"message": message,
			},
		},
	}
}

// NotFound shapes a 404 response.
func NotFound(message string) Envelope {
	return Envelope{
		Status: http.StatusNotFound,
		Body: errorBody{
			Error: "Not Found",
			Details: map[string]any{
				"message": message,
			},
		},
	}
}

// ServerError shapes a 500 response.
func ServerError(message string) Envelope {
	return Envelope{
		Status: http.StatusInternalServerError,
		Body: errorBody{
			Error: "Internal Server Error",
			Details: map[string]any{
				"message": message,
			},
		},
	}
}

// Write writes the envelope as a JSON response.
func (e Envelope) Write(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)

	enc := json.NewEncoder(w)
	return enc.Encode(e.Body)
}
