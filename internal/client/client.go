// Package client is the thin MCP adapter: typed operations on top of any
// transport.Transport, plus the initialize/initialized handshake. Protocol
// version negotiation is warn-and-proceed rather than strict-by-default — a
// mismatch logs and continues instead of failing the handshake.
package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"

	"github.com/bc-dunia/mcpstress/internal/mcpwire"
	"github.com/bc-dunia/mcpstress/internal/transport"
)

type Client struct {
	t      transport.Transport
	log    *slog.Logger
	Server mcpwire.ServerInfo
}

func New(t transport.Transport, log *slog.Logger) *Client {
	if log == nil {
		log = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return &Client{t: t, log: log}
}

// Handshake performs `initialize` then fires `notifications/initialized`.
// On a protocol-version mismatch it logs a warning and proceeds, per §4.2.
func (c *Client) Handshake(ctx context.Context) error {
	params := mcpwire.NewInitializeParams()
	raw, _, err := c.t.Request(ctx, "initialize", params)
	if err != nil {
		return err
	}
	var result mcpwire.InitializeResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return transport.NewProtocolError(-32700, "malformed initialize result: "+err.Error())
	}
	c.Server = result.ServerInfo
	if result.ProtocolVersion != mcpwire.ProtocolVersion {
		c.log.Warn("protocol_version_mismatch",
			"requested", mcpwire.ProtocolVersion,
			"returned", result.ProtocolVersion)
	}
	return c.t.Notify(ctx, "notifications/initialized", struct{}{})
}

func (c *Client) Ping(ctx context.Context) (float64, error) {
	_, latencyMs, err := c.t.Request(ctx, "ping", struct{}{})
	return latencyMs, err
}

func (c *Client) ListTools(ctx context.Context) (mcpwire.ToolsListResult, float64, error) {
	raw, latencyMs, err := c.t.Request(ctx, "tools/list", struct{}{})
	if err != nil {
		return mcpwire.ToolsListResult{}, latencyMs, err
	}
	var result mcpwire.ToolsListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return mcpwire.ToolsListResult{}, latencyMs, transport.NewProtocolError(-32700, "malformed tools/list result")
	}
	return result, latencyMs, nil
}

// CallTool returns (result, latencyMs, err). A tool result with isError:true
// is a logical failure even though the transport call itself succeeded, per
// §4.2: err is set to a client-category error in that case so the caller can
// record it as an error while still keeping the measured latency.
func (c *Client) CallTool(ctx context.Context, name string, args interface{}) (mcpwire.ToolsCallResult, float64, error) {
	raw, latencyMs, err := c.t.Request(ctx, "tools/call", mcpwire.ToolsCallParams{Name: name, Arguments: args})
	if err != nil {
		return mcpwire.ToolsCallResult{}, latencyMs, err
	}
	var result mcpwire.ToolsCallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return mcpwire.ToolsCallResult{}, latencyMs, transport.NewProtocolError(-32700, "malformed tools/call result")
	}
	if result.IsError {
		return result, latencyMs, transport.NewClientError("tool reported isError:true")
	}
	return result, latencyMs, nil
}

func (c *Client) ListResources(ctx context.Context) (mcpwire.ResourcesListResult, float64, error) {
	raw, latencyMs, err := c.t.Request(ctx, "resources/list", struct{}{})
	if err != nil {
		return mcpwire.ResourcesListResult{}, latencyMs, err
	}
	var result mcpwire.ResourcesListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return mcpwire.ResourcesListResult{}, latencyMs, transport.NewProtocolError(-32700, "malformed resources/list result")
	}
	return result, latencyMs, nil
}

func (c *Client) ReadResource(ctx context.Context, uri string) (mcpwire.ResourcesReadResult, float64, error) {
	raw, latencyMs, err := c.t.Request(ctx, "resources/read", mcpwire.ResourcesReadParams{URI: uri})
	if err != nil {
		return mcpwire.ResourcesReadResult{}, latencyMs, err
	}
	var result mcpwire.ResourcesReadResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return mcpwire.ResourcesReadResult{}, latencyMs, transport.NewProtocolError(-32700, "malformed resources/read result")
	}
	return result, latencyMs, nil
}

func (c *Client) ListResourceTemplates(ctx context.Context) (mcpwire.ResourcesTemplatesListResult, float64, error) {
	raw, latencyMs, err := c.t.Request(ctx, "resources/templates/list", struct{}{})
	if err != nil {
		return mcpwire.ResourcesTemplatesListResult{}, latencyMs, err
	}
	var result mcpwire.ResourcesTemplatesListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return mcpwire.ResourcesTemplatesListResult{}, latencyMs, transport.NewProtocolError(-32700, "malformed resources/templates/list result")
	}
	return result, latencyMs, nil
}

func (c *Client) ListPrompts(ctx context.Context) (mcpwire.PromptsListResult, float64, error) {
	raw, latencyMs, err := c.t.Request(ctx, "prompts/list", struct{}{})
	if err != nil {
		return mcpwire.PromptsListResult{}, latencyMs, err
	}
	var result mcpwire.PromptsListResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return mcpwire.PromptsListResult{}, latencyMs, transport.NewProtocolError(-32700, "malformed prompts/list result")
	}
	return result, latencyMs, nil
}

func (c *Client) GetPrompt(ctx context.Context, name string, args interface{}) (mcpwire.PromptsGetResult, float64, error) {
	raw, latencyMs, err := c.t.Request(ctx, "prompts/get", mcpwire.PromptsGetParams{Name: name, Arguments: args})
	if err != nil {
		return mcpwire.PromptsGetResult{}, latencyMs, err
	}
	var result mcpwire.PromptsGetResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return mcpwire.PromptsGetResult{}, latencyMs, transport.NewProtocolError(-32700, "malformed prompts/get result")
	}
	return result, latencyMs, nil
}
