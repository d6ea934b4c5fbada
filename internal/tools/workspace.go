package tools

import (
	"net/http"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/gateway"
)

// WorkspaceOperations covers notebooks, files and folders.
func WorkspaceOperations() []gateway.Operation {
	pathBody := gateway.Field{
		Name:        "path",
		Kind:        gateway.KindString,
		Description: "Absolute workspace path",
		Required:    true,
		Check:       absolutePath,
	}
	pathQuery := pathBody
	pathQuery.In = gateway.InQuery

	return []gateway.Operation{
		{
			Name:        "get_workspace_object_status",
			Description: "Get the status of a workspace object (notebook, directory, file, library or repo).",
			Method:      http.MethodGet,
			Path:        "/api/2.0/workspace/get-status",
			Fields:      []gateway.Field{pathQuery},
		},
		{
			Name: "import_workspace_object",
			Description: "Import a notebook or file into the workspace. Plain content is " +
				"base64-encoded before upload.",
			Method: http.MethodPost,
			Path:   "/api/2.0/workspace/import",
			Fields: []gateway.Field{
				pathBody,
				{Name: "content", Kind: gateway.KindString, Description: "Content to import, plain or base64", Required: true, Transform: encodeBase64},
				{Name: "format", Kind: gateway.KindString, Description: "Import format", Required: true, Enum: []string{"SOURCE", "HTML", "JUPYTER", "DBC"}},
				{Name: "language", Kind: gateway.KindString, Description: "Notebook language, required for SOURCE notebooks", Enum: []string{"PYTHON", "SCALA", "SQL", "R"}},
				{Name: "overwrite", Kind: gateway.KindBoolean, Description: "Replace an existing object", Default: false},
			},
		},
		{
			Name:        "create_workspace_directory",
			Description: "Create a directory in the workspace, including missing parents.",
			Method:      http.MethodPost,
			Path:        "/api/2.0/workspace/mkdirs",
			Fields:      []gateway.Field{pathBody},
		},
		{
			Name:        "delete_workspace_object",
			Description: "Delete a workspace object. Non-empty directories need recursive=true.",
			Method:      http.MethodPost,
			Path:        "/api/2.0/workspace/delete",
			Fields: []gateway.Field{
				pathBody,
				{Name: "recursive", Kind: gateway.KindBoolean, Description: "Delete directories recursively", Default: false},
			},
		},
	}
}
