package transport

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when a transport is asked to build with a
// configuration it cannot act on (unknown kind, missing command/URL).
var ErrInvalidConfig = errors.New("invalid transport config")

type Kind string

const (
	KindStdio          Kind = "stdio"
	KindSSE            Kind = "sse"
	KindStreamableHTTP Kind = "streamable-http"
)

// New builds the Transport variant named by kind. Unknown kinds are a
// configuration error, not a panic, since they originate from user input.
func New(kind Kind, cfg Config) (Transport, error) {
	switch kind {
	case KindStdio:
		return NewStdioTransport(cfg), nil
	case KindSSE:
		return NewLegacySSETransport(cfg), nil
	case KindStreamableHTTP:
		return NewStreamableHTTPTransport(cfg), nil
	default:
		return nil, fmt.Errorf("%w: unknown transport kind %q", ErrInvalidConfig, kind)
	}
}
