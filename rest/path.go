// Copyright (c) 2025 RouteForge Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import (
	"fmt"
	"strings"
)

// Route paths use ":name" placeholders for path parameters, e.g.
// "/companies/:companyId/projects/:projectId". The same template is
// rewritten to chi's and OpenAPI's brace-delimited "{name}" form when the
// route is attached and documented.

func validatePath(path string) error {
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("route path must start with '/': %q", path)
	}
	return nil
}

// bracePath rewrites every ":name" segment into "{name}".
func bracePath(path string) string {
	segments := strings.Split(path, "/")
	for i, segment := range segments {
		if strings.HasPrefix(segment, ":") && len(segment) > 1 {
			segments[i] = "{" + segment[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}

// pathParamNames enumerates the ":name" placeholders in declaration order.
func pathParamNames(path string) []string {
	var names []string
	for _, segment := range strings.Split(path, "/") {
		if strings.HasPrefix(segment, ":") && len(segment) > 1 {
			names = append(names, segment[1:])
		}
	}
	return names
}
