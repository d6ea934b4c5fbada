package tools

import (
	"fmt"
	"net/http"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/gateway"
)

var warehouseSizes = []string{
	"2X-Small", "X-Small", "Small", "Medium", "Large",
	"X-Large", "2X-Large", "3X-Large", "4X-Large",
}

// SQLOperations covers SQL warehouses and the statement execution API.
func SQLOperations() []gateway.Operation {
	return []gateway.Operation{
		{
			Name:         "list_sql_warehouses",
			Description:  "List all SQL warehouses in the Databricks workspace.",
			Method:       http.MethodGet,
			Path:         "/api/2.0/sql/warehouses",
			Result:       gateway.ResultShape{gateway.EmptyList("warehouses")},
			ListKey:      "warehouses",
			EmptyMessage: "No SQL warehouses found in the workspace",
		},
		{
			Name:        "create_sql_warehouse",
			Description: "Create a new SQL warehouse.",
			Method:      http.MethodPost,
			Path:        "/api/2.0/sql/warehouses",
			Fields: []gateway.Field{
				{Name: "name", Kind: gateway.KindString, Description: "Name of the warehouse", Required: true, Check: notBlank},
				{Name: "cluster_size", Kind: gateway.KindString, Description: "Size of the warehouse clusters", Required: true, Enum: warehouseSizes},
				{Name: "min_num_clusters", Kind: gateway.KindInteger, Description: "Minimum number of clusters", Default: int64(1), Check: positive},
				{Name: "max_num_clusters", Kind: gateway.KindInteger, Description: "Maximum number of clusters", Default: int64(1), Check: positive},
				{Name: "auto_stop_mins", Kind: gateway.KindInteger, Description: "Minutes of inactivity before the warehouse stops (0 disables)", Default: int64(120), Check: nonNegative},
				{Name: "enable_photon", Kind: gateway.KindBoolean, Description: "Use Photon", Default: true},
				{Name: "enable_serverless_compute", Kind: gateway.KindBoolean, Description: "Use serverless compute"},
				{Name: "spot_instance_policy", Kind: gateway.KindString, Description: "Spot instance policy", Default: "COST_OPTIMIZED", Enum: []string{"COST_OPTIMIZED", "RELIABILITY_OPTIMIZED", "POLICY_UNSPECIFIED"}},
				{Name: "warehouse_type", Kind: gateway.KindString, Description: "Warehouse type", Default: "PRO", Enum: []string{"PRO", "CLASSIC"}},
				{Name: "channel", Kind: gateway.KindString, Description: "Release channel", Enum: []string{"CHANNEL_NAME_CURRENT", "CHANNEL_NAME_PREVIEW"}, Transform: channelObject},
				{Name: "tags", Kind: gateway.KindObject, Description: "Custom tags", Default: map[string]any{}},
			},
		},
		{
			Name: "execute_sql_statement",
			Description: "Execute a SQL statement on a SQL warehouse. Statements that outlive " +
				"wait_timeout return a statement_id to poll.",
			Method: http.MethodPost,
			Path:   "/api/2.0/sql/statements",
			Fields: []gateway.Field{
				{Name: "warehouse_id", Kind: gateway.KindString, Description: "ID of the SQL warehouse", Required: true},
				{Name: "statement", Kind: gateway.KindString, Description: "SQL statement to execute", Required: true, Check: notBlank},
				{Name: "catalog", Kind: gateway.KindString, Description: "Default catalog"},
				{Name: "schema", Kind: gateway.KindString, Description: "Default schema"},
				{Name: "disposition", Kind: gateway.KindString, Description: "Result disposition", Default: "INLINE", Enum: []string{"INLINE", "EXTERNAL_LINKS"}},
				{Name: "wait_timeout", Kind: gateway.KindInteger, Description: "Seconds to wait for the result (0 or 5 to 50)", Check: checkWaitTimeout, Transform: seconds},
			},
			Result: gateway.ResultShape{gateway.EmptyObject("status")},
		},
	}
}

func checkWaitTimeout(v any) error {
	n, _ := v.(int64)
	if n != 0 && (n < 5 || n > 50) {
		return fmt.Errorf("must be 0 or between 5 and 50 seconds")
	}
	return nil
}

func seconds(v any) any {
	n, _ := v.(int64)
	return fmt.Sprintf("%ds", n)
}

func channelObject(v any) any {
	return map[string]any{"name": v}
}
