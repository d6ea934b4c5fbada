package tools

import (
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/gateway"
)

// Catalog returns every operation in registration order. The order is the
// order tools are advertised in.
func Catalog() []gateway.Operation {
	var ops []gateway.Operation
	ops = append(ops, ClusterOperations()...)
	ops = append(ops, CommandOperations()...)
	ops = append(ops, LibraryOperations()...)
	ops = append(ops, SQLOperations()...)
	ops = append(ops, WorkspaceOperations()...)
	return ops
}

// NewRegistry builds the registration table.
func NewRegistry() (*gateway.Registry, error) {
	return gateway.NewRegistry(Catalog()...)
}

// Fields shared across several operations.
var (
	clusterIDBody = gateway.Field{
		Name:        "cluster_id",
		Kind:        gateway.KindString,
		Description: "ID of the cluster",
		Required:    true,
	}
	clusterIDQuery = gateway.Field{
		Name:        "cluster_id",
		Kind:        gateway.KindString,
		Description: "ID of the cluster",
		Required:    true,
		In:          gateway.InQuery,
	}
)
