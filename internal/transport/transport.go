// Package transport implements the three MCP wire carriers (stdio, legacy
// SSE, streamable-HTTP) behind a single interface, each tracked by a small
// looplab/fsm state machine (init -> connecting -> connected -> closed).
package transport

import (
	"context"
	"encoding/json"
)

// NotificationHandler receives server-initiated notifications (messages with
// a method but no id) for the lifetime of a connected Transport.
type NotificationHandler func(method string, params json.RawMessage)

// Transport is the capability set shared by stdio / sse / streamable-http.
type Transport interface {
	Connect(ctx context.Context) error
	Request(ctx context.Context, method string, params interface{}) (result json.RawMessage, latencyMs float64, err error)
	Notify(ctx context.Context, method string, params interface{}) error
	OnNotification(handler NotificationHandler)
	Close() error
	Closed() bool
}

// Config carries the knobs shared across all three transports.
type Config struct {
	// Stdio
	Command []string
	Env     map[string]string

	// HTTP (sse / streamable-http)
	URL                  string
	Headers              map[string]string
	TLSSkipVerify        bool
	AllowPrivateNetworks bool
	RedirectPolicy       RedirectPolicy

	RequestTimeoutMs int
	PhaseTiming      bool
}

type RedirectPolicy struct {
	Mode         string // "deny" | "same_origin" | "allowlist_only"
	MaxRedirects int
	Allowlist    []string
}

func DefaultConfig() Config {
	return Config{
		RequestTimeoutMs: 30000,
		RedirectPolicy:   RedirectPolicy{Mode: "same_origin", MaxRedirects: 3},
	}
}
