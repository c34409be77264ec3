package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Error is the raw JSON-RPC error object as it appears on the wire, used
// when unmarshalling a reply before classification.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Category is one of the five wire-error buckets the recorder understands.
type Category int

const (
	CategoryNone Category = iota
	CategoryTimeout
	CategoryProtocol
	CategoryServer
	CategoryNetwork
	CategoryClient
)

func (c Category) String() string {
	switch c {
	case CategoryTimeout:
		return "timeout"
	case CategoryProtocol:
		return "protocol"
	case CategoryServer:
		return "server"
	case CategoryNetwork:
		return "network"
	case CategoryClient:
		return "client"
	default:
		return "none"
	}
}

// OpError is the tagged error every Transport returns for a failed Request.
type OpError struct {
	Category Category
	Code     int
	Message  string
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s (code %d): %s", e.Category, e.Code, e.Message)
}

func NewTimeoutError() *OpError {
	return &OpError{Category: CategoryTimeout, Code: -1, Message: "request timed out"}
}

func NewClosingError() *OpError {
	return &OpError{Category: CategoryClient, Code: -1, Message: "transport closed"}
}

func NewProtocolError(code int, msg string) *OpError {
	return &OpError{Category: CategoryProtocol, Code: code, Message: msg}
}

func NewServerError(code int, msg string) *OpError {
	return &OpError{Category: CategoryServer, Code: code, Message: msg}
}

func NewNetworkError(msg string) *OpError {
	return &OpError{Category: CategoryNetwork, Code: -1, Message: msg}
}

func NewClientError(msg string) *OpError {
	return &OpError{Category: CategoryClient, Code: -1, Message: msg}
}

// Classify folds an arbitrary local error (from a dial, read, or write) into
// one of the five Category buckets. A *OpError passed in is returned unchanged.
func Classify(err error) *OpError {
	if err == nil {
		return nil
	}
	var opErr *OpError
	if errors.As(err, &opErr) {
		return opErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewTimeoutError()
	}
	if errors.Is(err, context.Canceled) {
		return NewClientError("cancelled")
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return NewTimeoutError()
		}
		return NewNetworkError("dns lookup failed: " + dnsErr.Err)
	}

	var netOpErr *net.OpError
	if errors.As(err, &netOpErr) {
		if netOpErr.Timeout() {
			return NewTimeoutError()
		}
		return NewNetworkError(netOpErr.Error())
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return NewTimeoutError()
		}
		return Classify(urlErr.Unwrap())
	}

	var recordErr tls.RecordHeaderError
	if errors.As(err, &recordErr) {
		return NewNetworkError("tls: " + recordErr.Error())
	}
	var certErr *tls.CertificateVerificationError
	if errors.As(err, &certErr) {
		return NewNetworkError("tls: " + certErr.Error())
	}
	var unknownAuth x509.UnknownAuthorityError
	if errors.As(err, &unknownAuth) {
		return NewNetworkError("tls: " + unknownAuth.Error())
	}
	var hostErr x509.HostnameError
	if errors.As(err, &hostErr) {
		return NewNetworkError("tls: " + hostErr.Error())
	}

	msg := err.Error()
	if strings.Contains(msg, "tls:") || strings.Contains(strings.ToLower(msg), "certificate") {
		return NewNetworkError(msg)
	}
	return NewClientError(msg)
}

// ClassifyJSONRPCError maps a JSON-RPC error object's code to (category, code).
// Any reply carrying an `error` member is always categorized `server`; the
// code is carried through verbatim for diagnostics.
func ClassifyJSONRPCError(code int, message string) *OpError {
	return NewServerError(code, message)
}
