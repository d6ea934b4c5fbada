package tools

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/gateway"
)

// libraryKinds are the keys a library entry may carry. Each entry names
// exactly one.
var libraryKinds = map[string]string{
	"jar":          "string",
	"egg":          "string",
	"whl":          "string",
	"requirements": "string",
	"pypi":         "package",
	"cran":         "package",
	"maven":        "coordinates",
}

// LibraryOperations covers the libraries 2.0 API.
func LibraryOperations() []gateway.Operation {
	return []gateway.Operation{
		{
			Name: "install_libraries",
			Description: "Install libraries on a Databricks cluster. Each entry names one of " +
				"jar, egg, whl, requirements, pypi {package, repo}, maven {coordinates, repo, exclusions} " +
				"or cran {package, repo}.",
			Method: http.MethodPost,
			Path:   "/api/2.0/libraries/install",
			Fields: []gateway.Field{
				clusterIDBody,
				{
					Name:        "libraries",
					Kind:        gateway.KindArray,
					Items:       gateway.KindObject,
					Description: "Libraries to install",
					Required:    true,
					Check:       checkLibraries,
				},
			},
			Render: renderInstall,
		},
	}
}

func checkLibraries(v any) error {
	entries, _ := v.([]any)
	if len(entries) == 0 {
		return fmt.Errorf("at least one library is required")
	}
	for i, e := range entries {
		if err := checkLibrary(e); err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
	}
	return nil
}

func checkLibrary(e any) error {
	entry, ok := e.(map[string]any)
	if !ok {
		return fmt.Errorf("must be an object")
	}
	var kinds []string
	for k := range entry {
		if _, known := libraryKinds[k]; known {
			kinds = append(kinds, k)
		}
	}
	sort.Strings(kinds)
	switch len(kinds) {
	case 0:
		return fmt.Errorf("must name one of %s", strings.Join(sortedKinds(), ", "))
	case 1:
	default:
		return fmt.Errorf("names more than one library type: %s", strings.Join(kinds, ", "))
	}

	kind := kinds[0]
	member := libraryKinds[kind]
	if member == "string" {
		if s, _ := entry[kind].(string); strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s must be a non-empty string", kind)
		}
		return nil
	}
	spec, ok := entry[kind].(map[string]any)
	if !ok {
		return fmt.Errorf("%s must be an object", kind)
	}
	if s, _ := spec[member].(string); strings.TrimSpace(s) == "" {
		return fmt.Errorf("%s.%s is required", kind, member)
	}
	return nil
}

func sortedKinds() []string {
	out := make([]string, 0, len(libraryKinds))
	for k := range libraryKinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func renderInstall(params gateway.Params, body map[string]any) any {
	return map[string]any{
		"status":     "submitted",
		"cluster_id": params.String("cluster_id"),
		"libraries":  params["libraries"],
		"response":   body,
	}
}
