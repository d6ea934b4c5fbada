package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/lakehouse-mcp/databricks-mcp-server/internal/mcpclient"
	"github.com/lakehouse-mcp/databricks-mcp-server/internal/protocol"
)

const defaultURL = "http://localhost:8000"

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(out io.Writer) *cobra.Command {
	var (
		serverURL string
		timeout   time.Duration
	)
	if v := os.Getenv("MCP_URL"); v != "" {
		serverURL = v
	}

	root := &cobra.Command{
		Use:          "mcp-call",
		Short:        "Call tools on a running Databricks MCP server (sse transport)",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&serverURL, "url", defaultOr(serverURL, defaultURL), "base URL of the MCP server")
	root.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall request timeout")

	client := func() *mcpclient.Client {
		return mcpclient.New(serverURL)
	}

	toolsCmd := &cobra.Command{
		Use:   "tools",
		Short: "List the tools the server advertises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd, timeout)
			defer cancel()
			list, err := client().ListTools(ctx)
			if err != nil {
				return fmt.Errorf("list tools: %w", err)
			}
			for _, t := range list {
				fmt.Fprintf(out, "%-30s %s\n", t.Name, t.Description)
			}
			return nil
		},
	}

	var rawArgs string
	callCmd := &cobra.Command{
		Use:   "call <tool>",
		Short: "Invoke a tool and print its result",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			params := map[string]any{}
			if strings.TrimSpace(rawArgs) != "" {
				if err := json.Unmarshal([]byte(rawArgs), &params); err != nil {
					return fmt.Errorf("--args must be a JSON object: %w", err)
				}
			}
			ctx, cancel := withTimeout(cmd, timeout)
			defer cancel()
			res, err := client().CallTool(ctx, args[0], params)
			if err != nil {
				return fmt.Errorf("call %s: %w", args[0], err)
			}
			printResult(out, res)
			if res.IsError {
				return fmt.Errorf("tool %s reported an error", args[0])
			}
			return nil
		},
	}
	callCmd.Flags().StringVar(&rawArgs, "args", "{}", "tool arguments as a JSON object")

	promptsCmd := &cobra.Command{
		Use:   "prompts",
		Short: "List the prompts the server advertises",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := withTimeout(cmd, timeout)
			defer cancel()
			list, err := client().ListPrompts(ctx)
			if err != nil {
				return fmt.Errorf("list prompts: %w", err)
			}
			for _, p := range list {
				fmt.Fprintf(out, "%-45s %s\n", p.Name, p.Description)
			}
			return nil
		},
	}

	var promptArgs map[string]string
	promptCmd := &cobra.Command{
		Use:   "prompt <name>",
		Short: "Render a prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := withTimeout(cmd, timeout)
			defer cancel()
			res, err := client().GetPrompt(ctx, args[0], promptArgs)
			if err != nil {
				return fmt.Errorf("get prompt %s: %w", args[0], err)
			}
			for _, m := range res.Messages {
				fmt.Fprintf(out, "[%s]\n%s\n", m.Role, m.Content.Text)
			}
			return nil
		},
	}
	promptCmd.Flags().StringToStringVar(&promptArgs, "arg", nil, "prompt argument as key=value (repeatable)")

	root.AddCommand(toolsCmd, callCmd, promptsCmd, promptCmd)
	return root
}

func printResult(out io.Writer, res protocol.CallResult) {
	for _, part := range res.Content {
		var v any
		if err := json.Unmarshal([]byte(part.Text), &v); err == nil {
			pretty, _ := json.MarshalIndent(v, "", "  ")
			fmt.Fprintln(out, string(pretty))
			continue
		}
		fmt.Fprintln(out, part.Text)
	}
}

func defaultOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
