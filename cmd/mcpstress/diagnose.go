package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bc-dunia/mcpstress/internal/client"
	"github.com/bc-dunia/mcpstress/internal/mcpwire"
	"github.com/bc-dunia/mcpstress/internal/transport"
)

func newDiagnoseCmd() *cobra.Command {
	o := &connectOptions{}
	cmd := &cobra.Command{
		Use:   "diagnose -- cmd args... | diagnose --url URL",
		Short: "Step-by-step capability probe",
		RunE: func(cmd *cobra.Command, args []string) error {
			o.command = splitArgsOnDashDash(args, cmd.ArgsLenAtDash())
			return runDiagnose(cmd.Context(), o)
		},
	}
	bindConnectFlags(cmd, o)
	return cmd
}

type diagnoseStep struct {
	name string
	run  func(ctx context.Context, c *client.Client) error
}

func runDiagnose(ctx context.Context, o *connectOptions) error {
	newTransport, err := o.newTransportFactory()
	if err != nil {
		return withExitCode(err, 1)
	}
	t, err := newTransport()
	if err != nil {
		fmt.Printf("FAIL connect: %v\n", err)
		return withExitCode(err, 1)
	}
	if err := t.Connect(ctx); err != nil {
		fmt.Printf("FAIL connect: %v\n", err)
		return withExitCode(err, 1)
	}
	defer t.Close()

	c := client.New(t, slog.Default())

	steps := []diagnoseStep{
		{"handshake", func(ctx context.Context, c *client.Client) error { return c.Handshake(ctx) }},
		{"ping", func(ctx context.Context, c *client.Client) error { _, err := c.Ping(ctx); return err }},
		{"tools/list", func(ctx context.Context, c *client.Client) error { _, _, err := c.ListTools(ctx); return err }},
		{"resources/list", func(ctx context.Context, c *client.Client) error { _, _, err := c.ListResources(ctx); return err }},
		{"prompts/list", func(ctx context.Context, c *client.Client) error { _, _, err := c.ListPrompts(ctx); return err }},
	}

	anyFailed := false
	for _, step := range steps {
		err := step.run(ctx, c)
		switch {
		case err == nil:
			fmt.Printf("PASS %s\n", step.name)
		case isMethodNotFound(err):
			fmt.Printf("SKIP %s (method not found)\n", step.name)
		default:
			fmt.Printf("FAIL %s: %v\n", step.name, err)
			anyFailed = true
		}
	}

	if anyFailed {
		return withExitCode(fmt.Errorf("one or more diagnose steps failed"), 1)
	}
	return nil
}

// isMethodNotFound recognizes JSON-RPC -32601 so diagnose can mark optional
// capabilities as skipped rather than failed.
func isMethodNotFound(err error) bool {
	var opErr *transport.OpError
	if !errors.As(err, &opErr) {
		return false
	}
	return opErr.Category == transport.CategoryServer && opErr.Code == mcpwire.CodeMethodNotFound
}
