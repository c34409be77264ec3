package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bc-dunia/mcpstress/internal/client"
)

func newDiscoverCmd() *cobra.Command {
	o := &connectOptions{}
	cmd := &cobra.Command{
		Use:   "discover -- cmd args... | discover --url URL",
		Short: "Enumerate a server's tools, resources, and prompts",
		RunE: func(cmd *cobra.Command, args []string) error {
			o.command = splitArgsOnDashDash(args, cmd.ArgsLenAtDash())
			return runDiscover(cmd.Context(), o)
		},
	}
	bindConnectFlags(cmd, o)
	return cmd
}

func runDiscover(ctx context.Context, o *connectOptions) error {
	newTransport, err := o.newTransportFactory()
	if err != nil {
		return withExitCode(err, 1)
	}
	t, err := newTransport()
	if err != nil {
		return withExitCode(fmt.Errorf("building transport: %w", err), 1)
	}
	if err := t.Connect(ctx); err != nil {
		return withExitCode(fmt.Errorf("connection failed: %w", err), 1)
	}
	defer t.Close()

	c := client.New(t, slog.Default())
	if err := c.Handshake(ctx); err != nil {
		return withExitCode(fmt.Errorf("connection failed: %w", err), 1)
	}

	out := map[string]interface{}{"server": c.Server}
	if tools, _, err := c.ListTools(ctx); err == nil {
		out["tools"] = tools.Tools
	}
	if resources, _, err := c.ListResources(ctx); err == nil {
		out["resources"] = resources.Resources
	}
	if prompts, _, err := c.ListPrompts(ctx); err == nil {
		out["prompts"] = prompts.Prompts
	}

	b, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(b))
	return nil
}
