package mcp

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/protocol"
)

// Prompt is a named message template.
type Prompt struct {
	Name        string
	Description string
	Arguments   []protocol.PromptArgument
	// Defaults fill optional arguments the caller leaves out.
	Defaults map[string]string
	Render   func(args map[string]string) string
}

// Prompts stores prompts in registration order.
type Prompts struct {
	order  []*Prompt
	byName map[string]*Prompt
}

// NewPrompts indexes the provided prompts.
func NewPrompts(prompts ...Prompt) *Prompts {
	p := &Prompts{byName: make(map[string]*Prompt, len(prompts))}
	for i := range prompts {
		pr := prompts[i]
		p.order = append(p.order, &pr)
		p.byName[pr.Name] = &pr
	}
	return p
}

// Describe lists prompt descriptors.
func (p *Prompts) Describe() []protocol.PromptDescriptor {
	out := make([]protocol.PromptDescriptor, 0, len(p.order))
	for _, pr := range p.order {
		out = append(out, protocol.PromptDescriptor{
			Name:        pr.Name,
			Description: pr.Description,
			Arguments:   pr.Arguments,
		})
	}
	return out
}

// Get renders a prompt as a single user message.
func (p *Prompts) Get(name string, args map[string]string) (protocol.PromptGetResult, error) {
	pr, ok := p.byName[name]
	if !ok {
		return protocol.PromptGetResult{}, fmt.Errorf("unknown prompt: %s", name)
	}

	merged := make(map[string]string, len(pr.Arguments))
	for k, v := range pr.Defaults {
		merged[k] = v
	}
	var missing []string
	for _, a := range pr.Arguments {
		v, supplied := args[a.Name]
		if supplied && v != "" {
			merged[a.Name] = v
			continue
		}
		if a.Required {
			missing = append(missing, a.Name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return protocol.PromptGetResult{}, fmt.Errorf("missing required arguments: %s", strings.Join(missing, ", "))
	}

	return protocol.PromptGetResult{
		Description: pr.Description,
		Messages: []protocol.PromptMessage{{
			Role:    "user",
			Content: protocol.ContentPart{Type: "text", Text: pr.Render(merged)},
		}},
	}, nil
}

// DefaultPrompts returns the prompts the server ships with.
func DefaultPrompts() *Prompts {
	return NewPrompts(clusterConfigurationPrompt())
}

func clusterConfigurationPrompt() Prompt {
	return Prompt{
		Name:        "create-databricks-cluster-configurations",
		Description: "Generate configuration for creating a Databricks cluster",
		Arguments: []protocol.PromptArgument{
			{Name: "cluster_name", Description: "Name of the cluster", Required: true},
			{Name: "node_type_id", Description: "Type of nodes", Required: true},
			{Name: "spark_version", Description: "Spark version to use", Required: true},
			{Name: "purpose", Description: "Purpose of the cluster"},
			{Name: "autoscaling", Description: "Whether to enable autoscaling (yes or no)"},
			{Name: "min_workers", Description: "Minimum number of workers when autoscaling"},
			{Name: "max_workers", Description: "Maximum number of workers when autoscaling"},
			{Name: "fixed_workers", Description: "Fixed number of workers without autoscaling"},
			{Name: "additional_config", Description: "Additional configuration options as JSON"},
		},
		Defaults: map[string]string{
			"purpose":           "General Purpose",
			"autoscaling":       "yes",
			"min_workers":       "2",
			"max_workers":       "4",
			"fixed_workers":     "4",
			"additional_config": "{}",
		},
		Render: renderClusterConfiguration,
	}
}

func renderClusterConfiguration(args map[string]string) string {
	var b strings.Builder
	b.WriteString("I need help creating a Databricks cluster with the following requirements:\n\n")
	fmt.Fprintf(&b, "- Cluster name: %s\n", args["cluster_name"])
	fmt.Fprintf(&b, "- Node type: %s\n", args["node_type_id"])
	fmt.Fprintf(&b, "- Spark version: %s\n", args["spark_version"])
	fmt.Fprintf(&b, "- Purpose: %s\n", args["purpose"])
	fmt.Fprintf(&b, "- Autoscaling: %s\n", args["autoscaling"])
	if strings.EqualFold(args["autoscaling"], "yes") {
		fmt.Fprintf(&b, "- Minimum workers: %s\n", args["min_workers"])
		fmt.Fprintf(&b, "- Maximum workers: %s\n", args["max_workers"])
	} else {
		fmt.Fprintf(&b, "- Fixed number of workers: %s\n", args["fixed_workers"])
	}
	if cfg := strings.TrimSpace(args["additional_config"]); cfg != "" && cfg != "{}" {
		fmt.Fprintf(&b, "- Additional configuration: %s\n", cfg)
	}
	b.WriteString("\nBased on these requirements, please provide:\n")
	b.WriteString("1. An explanation of the configuration choices, especially for any recommended settings\n")
	b.WriteString("2. Best practices for this type of cluster configuration\n")
	return b.String()
}
