package engine

import (
	"context"
	"encoding/json"

	"github.com/bc-dunia/mcpstress/internal/mcpwire"
	"github.com/bc-dunia/mcpstress/internal/transport"
)

// fakeTransport is an in-memory transport.Transport for engine tests: it
// answers `initialize`/`ping`/`tools/list`/`tools/call` directly without any
// subprocess or network I/O.
type fakeTransport struct {
	tools      []mcpwire.Tool
	failPing   bool
	failHandle func(method string) error
}

func (f *fakeTransport) Connect(ctx context.Context) error { return nil }

func (f *fakeTransport) Request(ctx context.Context, method string, params interface{}) (json.RawMessage, float64, error) {
	if f.failHandle != nil {
		if err := f.failHandle(method); err != nil {
			return nil, 1, err
		}
	}
	switch method {
	case "initialize":
		b, _ := json.Marshal(mcpwire.InitializeResult{
			ProtocolVersion: mcpwire.ProtocolVersion,
			ServerInfo:      mcpwire.ServerInfo{Name: "fake", Version: "1.0"},
		})
		return b, 1, nil
	case "ping":
		if f.failPing {
			return nil, 1, errFake
		}
		b, _ := json.Marshal(struct{}{})
		return b, 1, nil
	case "tools/list":
		b, _ := json.Marshal(mcpwire.ToolsListResult{Tools: f.tools})
		return b, 1, nil
	case "tools/call":
		b, _ := json.Marshal(mcpwire.ToolsCallResult{Content: []mcpwire.ToolContent{{Type: "text", Text: "ok"}}})
		return b, 1, nil
	default:
		b, _ := json.Marshal(struct{}{})
		return b, 1, nil
	}
}

func (f *fakeTransport) Notify(ctx context.Context, method string, params interface{}) error {
	return nil
}
func (f *fakeTransport) OnNotification(h transport.NotificationHandler) {}
func (f *fakeTransport) Close() error                                   { return nil }
func (f *fakeTransport) Closed() bool                                   { return false }

var errFake = &fakeErr{"fake ping failure"}

type fakeErr struct{ msg string }

func (e *fakeErr) Error() string { return e.msg }
