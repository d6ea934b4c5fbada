package tools

import (
	"fmt"
	"net/http"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/gateway"
)

// ClusterOperations covers the clusters 2.1 API.
func ClusterOperations() []gateway.Operation {
	return []gateway.Operation{
		{
			Name:        "list_clusters",
			Description: "List all Databricks clusters in the workspace.",
			Method:      http.MethodGet,
			Path:        "/api/2.1/clusters/list",
			Fields: []gateway.Field{
				{Name: "page_token", Kind: gateway.KindString, Description: "Token of the page to fetch, from a previous call", In: gateway.InQuery},
				{Name: "page_size", Kind: gateway.KindInteger, Description: "Maximum number of clusters per page", In: gateway.InQuery, Check: positive},
			},
			Result:       gateway.ResultShape{gateway.EmptyList("clusters")},
			ListKey:      "clusters",
			EmptyMessage: "No clusters found in the workspace",
			Render:       renderClusterList,
		},
		{
			Name:        "get_cluster",
			Description: "Get information about a specific Databricks cluster.",
			Method:      http.MethodGet,
			Path:        "/api/2.1/clusters/get",
			Fields:      []gateway.Field{clusterIDQuery},
		},
		{
			Name: "create_cluster",
			Description: "Create a new Databricks cluster. Supply either autoscale " +
				"({min_workers, max_workers}) or num_workers, not both.",
			Method: http.MethodPost,
			Path:   "/api/2.1/clusters/create",
			Fields: []gateway.Field{
				{Name: "cluster_name", Kind: gateway.KindString, Description: "Name of the cluster", Required: true},
				{Name: "spark_version", Kind: gateway.KindString, Description: "Spark version to use (e.g. '13.3.x-scala2.12')", Required: true},
				{Name: "node_type_id", Kind: gateway.KindString, Description: "Node type (e.g. 'Standard_DS3_v2' on Azure, 'i3.xlarge' on AWS)", Required: true},
				{Name: "autoscale", Kind: gateway.KindObject, Description: "Autoscaling range: {min_workers, max_workers}", Check: checkAutoscale,
					Transform: integerMembers("min_workers", "max_workers")},
				{Name: "num_workers", Kind: gateway.KindInteger, Description: "Fixed number of workers (don't use with autoscale)", Check: nonNegative},
				{Name: "spark_conf", Kind: gateway.KindObject, Description: "Spark configuration properties", Default: map[string]any{}},
				{Name: "custom_tags", Kind: gateway.KindObject, Description: "Custom tags", Default: map[string]any{}},
				{Name: "init_scripts", Kind: gateway.KindArray, Items: gateway.KindObject, Description: "Initialization script configurations", Default: []any{}},
				{Name: "aws_attributes", Kind: gateway.KindObject, Description: "AWS-specific attributes"},
				{Name: "azure_attributes", Kind: gateway.KindObject, Description: "Azure-specific attributes"},
				{Name: "gcp_attributes", Kind: gateway.KindObject, Description: "GCP-specific attributes"},
				{Name: "autotermination_minutes", Kind: gateway.KindInteger, Description: "Minutes of inactivity before the cluster terminates (0 disables)", Check: nonNegative},
				{Name: "driver_node_type_id", Kind: gateway.KindString, Description: "Node type of the driver, defaults to node_type_id"},
				{Name: "policy_id", Kind: gateway.KindString, Description: "Cluster policy to apply"},
				{Name: "data_security_mode", Kind: gateway.KindString, Description: "Data security mode", Enum: []string{"NONE", "SINGLE_USER", "USER_ISOLATION"}},
				{Name: "single_user_name", Kind: gateway.KindString, Description: "User allowed to use a SINGLE_USER cluster"},
				{Name: "runtime_engine", Kind: gateway.KindString, Description: "Runtime engine", Enum: []string{"STANDARD", "PHOTON"}},
			},
			Exclusive: [][]string{{"autoscale", "num_workers"}},
		},
		{
			Name:        "start_cluster",
			Description: "Start a terminated Databricks cluster.",
			Method:      http.MethodPost,
			Path:        "/api/2.1/clusters/start",
			Fields:      []gateway.Field{clusterIDBody},
		},
		{
			Name:        "delete_cluster",
			Description: "Terminate a Databricks cluster.",
			Method:      http.MethodPost,
			Path:        "/api/2.1/clusters/delete",
			Fields:      []gateway.Field{clusterIDBody},
		},
		{
			Name:        "list_node_types",
			Description: "List all available node types for Databricks clusters.",
			Method:      http.MethodGet,
			Path:        "/api/2.1/clusters/list-node-types",
			Result:      gateway.ResultShape{gateway.EmptyList("node_types")},
			Render:      renderNodeTypes,
		},
		{
			Name:        "list_spark_versions",
			Description: "List all available Spark versions for Databricks clusters.",
			Method:      http.MethodGet,
			Path:        "/api/2.1/clusters/spark-versions",
			Result:      gateway.ResultShape{gateway.EmptyList("versions")},
		},
	}
}

func renderClusterList(_ gateway.Params, body map[string]any) any {
	clusters, _ := body["clusters"].([]any)
	token, _ := body["next_page_token"].(string)
	out := map[string]any{
		"clusters":       clusters,
		"total_clusters": len(clusters),
		"has_more":       token != "",
	}
	if token != "" {
		out["next_page_token"] = token
	}
	return out
}

var nodeTypeKeys = []string{
	"node_type_id", "memory_mb", "num_cores", "description",
	"instance_type_id", "category", "num_gpus",
}

func renderNodeTypes(_ gateway.Params, body map[string]any) any {
	nodes, _ := body["node_types"].([]any)
	filtered := make([]map[string]any, 0, len(nodes))
	for _, n := range nodes {
		node, ok := n.(map[string]any)
		if !ok {
			continue
		}
		summary := make(map[string]any, len(nodeTypeKeys)+1)
		for _, k := range nodeTypeKeys {
			summary[k] = node[k]
		}
		if info, ok := node["node_info"]; ok && info != nil {
			summary["node_info"] = info
		} else {
			summary["node_info"] = map[string]any{}
		}
		filtered = append(filtered, summary)
	}
	return filtered
}

func checkAutoscale(v any) error {
	m, _ := v.(map[string]any)
	minW, err := intMember(m, "min_workers")
	if err != nil {
		return err
	}
	maxW, err := intMember(m, "max_workers")
	if err != nil {
		return err
	}
	if minW < 0 {
		return fmt.Errorf("min_workers must not be negative")
	}
	if minW > maxW {
		return fmt.Errorf("min_workers (%d) must not exceed max_workers (%d)", minW, maxW)
	}
	return nil
}
