package mockserver

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/bc-dunia/mcpstress/internal/client"
	"github.com/bc-dunia/mcpstress/internal/transport"
)

func TestEvalExpression_DivisionByZeroReturnsError(t *testing.T) {
	_, err := evalExpression("1/0")
	if err == nil {
		t.Fatal("expected division by zero error")
	}
}

// TestMockServerServesAFullHandshakeAndToolCall exercises this repo's own
// StreamableHTTPTransport and client.Client against a real HTTP round trip,
// the way internal/engine's tests would against any other MCP server.
func TestMockServerServesAFullHandshakeAndToolCall(t *testing.T) {
	srv, cleanup := StartTestServer()
	defer cleanup()
	if srv.Addr() == "" {
		t.Fatal("expected server to bind an address")
	}

	tr, err := transport.New(transport.KindStreamableHTTP, transport.Config{
		URL:              srv.MCPURL(),
		RequestTimeoutMs: 5000,
	})
	if err != nil {
		t.Fatalf("transport.New: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Close()

	c := client.New(tr, slog.Default())
	if err := c.Handshake(ctx); err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if c.Server.Name != "mockserver" {
		t.Errorf("Server.Name = %q, want mockserver", c.Server.Name)
	}

	tools, _, err := c.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools.Tools) == 0 {
		t.Fatal("expected at least one tool")
	}

	result, _, err := c.CallTool(ctx, "fast_echo", map[string]interface{}{"message": "hi"})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if len(result.Content) == 0 || result.Content[0].Text != "echo: hi" {
		t.Errorf("CallTool result = %+v, want echo: hi", result)
	}
}

// TestMockServerToolErrorIsReportedAsClientError covers the isError:true
// contract client.CallTool translates into a transport.CategoryClient error.
func TestMockServerToolErrorIsReportedAsClientError(t *testing.T) {
	srv, cleanup := StartTestServer()
	defer cleanup()

	tr, err := transport.New(transport.KindStreamableHTTP, transport.Config{URL: srv.MCPURL(), RequestTimeoutMs: 2000})
	if err != nil {
		t.Fatalf("transport.New: %v", err)
	}
	ctx := context.Background()
	if err := tr.Connect(ctx); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer tr.Close()

	c := client.New(tr, slog.Default())
	if err := c.Handshake(ctx); err != nil {
		t.Fatalf("Handshake: %v", err)
	}

	_, _, err = c.CallTool(ctx, "error_tool", nil)
	if err == nil {
		t.Fatal("expected error_tool to surface as an error")
	}
	var opErr *transport.OpError
	if !errors.As(err, &opErr) || opErr.Category != transport.CategoryClient {
		t.Errorf("error_tool error = %v, want a client-category OpError", err)
	}
}
