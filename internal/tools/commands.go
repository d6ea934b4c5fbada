package tools

import (
	"net/http"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/gateway"
)

var commandLanguages = []string{"python", "scala", "sql"}

// CommandOperations covers the command execution 1.2 API. Only classic
// all-purpose clusters support it.
func CommandOperations() []gateway.Operation {
	clusterID := gateway.Field{
		Name:        "cluster_id",
		Kind:        gateway.KindString,
		Description: "ID of a running all-purpose cluster",
		Required:    true,
		Wire:        "clusterId",
	}
	language := gateway.Field{
		Name:        "language",
		Kind:        gateway.KindString,
		Description: "Language of the command: python, scala or sql",
		Required:    true,
		Enum:        commandLanguages,
	}

	return []gateway.Operation{
		{
			Name:        "execute_command",
			Description: "Execute a command on a running Databricks cluster. Serverless compute is not supported.",
			Method:      http.MethodPost,
			Path:        "/api/1.2/commands/execute",
			Fields: []gateway.Field{
				clusterID,
				language,
				{Name: "command", Kind: gateway.KindString, Description: "The command to execute", Required: true, Check: notBlank},
				{Name: "context_id", Kind: gateway.KindString, Description: "Execution context to keep session state in", Wire: "contextId"},
			},
			Result: gateway.ResultShape{gateway.EmptyObject("results")},
			Render: renderCommand,
		},
		{
			Name:        "create_context",
			Description: "Create an execution context on a running Databricks cluster. Serverless compute is not supported.",
			Method:      http.MethodPost,
			Path:        "/api/1.2/contexts/create",
			Fields:      []gateway.Field{clusterID, language},
			Render:      renderContext,
		},
		{
			Name:        "get_command_status",
			Description: "Get the status and results of a command started with execute_command.",
			Method:      http.MethodGet,
			Path:        "/api/1.2/commands/status",
			Fields: []gateway.Field{
				{Name: "command_id", Kind: gateway.KindString, Description: "ID of the command", Required: true, Wire: "commandId", In: gateway.InQuery},
				{Name: "cluster_id", Kind: gateway.KindString, Description: "ID of the cluster the command ran on", Required: true, Wire: "clusterId", In: gateway.InQuery},
				{Name: "context_id", Kind: gateway.KindString, Description: "Execution context of the command", Required: true, Wire: "contextId", In: gateway.InQuery},
			},
			Result: gateway.ResultShape{gateway.EmptyObject("results")},
		},
	}
}

func renderCommand(params gateway.Params, body map[string]any) any {
	contextID := body["contextId"]
	if contextID == nil && params.String("context_id") != "" {
		contextID = params.String("context_id")
	}
	return map[string]any{
		"command_results": body["results"],
		"command_id":      body["id"],
		"status":          body["status"],
		"context_id":      contextID,
	}
}

func renderContext(params gateway.Params, body map[string]any) any {
	return map[string]any{
		"context_id": body["id"],
		"status":     body["status"],
		"language":   params.String("language"),
		"cluster_id": params.String("cluster_id"),
	}
}
