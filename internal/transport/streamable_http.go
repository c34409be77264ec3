package transport

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// StreamableHTTPTransport implements the streamable-HTTP carrier: a single
// URL, POST per request, a reply that is either an application/json body or
// an inline text/event-stream. One Transport instance owns exactly one MCP
// session, with no session-pool layer above it.
type StreamableHTTPTransport struct {
	cfg    Config
	client *http.Client

	sessionID atomic.Pointer[string]
	pending   *pendingTable
	fsm       *lifecycleFSM

	notifyHandler atomic.Pointer[NotificationHandler]
	streamWG      sync.WaitGroup
}

func NewStreamableHTTPTransport(cfg Config) *StreamableHTTPTransport {
	return &StreamableHTTPTransport{
		cfg:     cfg,
		pending: newPendingTable(),
		fsm:     newLifecycleFSM(),
	}
}

func (t *StreamableHTTPTransport) Connect(ctx context.Context) error {
	if err := t.fsm.toConnecting(); err != nil {
		return err
	}
	tr := &http.Transport{
		DialContext:     newSafeDialer(t.cfg.AllowPrivateNetworks),
		TLSClientConfig: &tls.Config{InsecureSkipVerify: t.cfg.TLSSkipVerify},
	}
	t.client = &http.Client{
		Transport:     tr,
		CheckRedirect: buildCheckRedirect(t.cfg.RedirectPolicy),
	}
	_ = t.fsm.toConnected()
	return nil
}

func (t *StreamableHTTPTransport) OnNotification(handler NotificationHandler) {
	t.notifyHandler.Store(&handler)
}

func (t *StreamableHTTPTransport) Request(ctx context.Context, method string, params interface{}) (json.RawMessage, float64, error) {
	if t.Closed() {
		return nil, 0, NewClosingError()
	}
	id := t.pending.nextRequestID()
	req := map[string]interface{}{"jsonrpc": "2.0", "id": id, "method": method}
	if params != nil {
		req["params"] = params
	}
	return t.doRequest(ctx, id, req)
}

func (t *StreamableHTTPTransport) Notify(ctx context.Context, method string, params interface{}) error {
	if t.Closed() {
		return NewClosingError()
	}
	req := map[string]interface{}{"jsonrpc": "2.0", "method": method}
	if params != nil {
		req["params"] = params
	}
	_, _, err := t.postOnly(ctx, req)
	return err
}

func (t *StreamableHTTPTransport) doRequest(ctx context.Context, id int64, body map[string]interface{}) (json.RawMessage, float64, error) {
	start := time.Now()
	timeout := time.Duration(t.cfg.RequestTimeoutMs) * time.Millisecond
	reqCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	httpResp, contentType, err := t.post(reqCtx, body)
	if err != nil {
		return nil, roundLatency(time.Since(start)), Classify(err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		return nil, roundLatency(time.Since(start)), mapHTTPStatus(httpResp.StatusCode)
	}

	switch {
	case strings.HasPrefix(contentType, "application/json"):
		data, jerr := io.ReadAll(httpResp.Body)
		if jerr != nil {
			return nil, roundLatency(time.Since(start)), NewNetworkError("body read: " + jerr.Error())
		}
		var resp struct {
			Result json.RawMessage `json:"result"`
			Error  *Error          `json:"error"`
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, roundLatency(time.Since(start)), NewProtocolError(-32700, "malformed JSON-RPC reply: "+err.Error())
		}
		if resp.Error != nil {
			return nil, roundLatency(time.Since(start)), ClassifyJSONRPCError(resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, roundLatency(time.Since(start)), nil

	case isSSEContentType(contentType):
		result, err := t.consumeSSEForID(httpResp.Body, id)
		return result, roundLatency(time.Since(start)), err

	default:
		return nil, roundLatency(time.Since(start)), NewProtocolError(0, "unexpected content-type: "+contentType)
	}
}

func (t *StreamableHTTPTransport) postOnly(ctx context.Context, body map[string]interface{}) (json.RawMessage, float64, error) {
	start := time.Now()
	resp, _, err := t.post(ctx, body)
	if err != nil {
		return nil, roundLatency(time.Since(start)), Classify(err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil, roundLatency(time.Since(start)), nil
}

func (t *StreamableHTTPTransport) post(ctx context.Context, body map[string]interface{}) (*http.Response, string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, "", NewClientError("marshal: " + err.Error())
	}
	if t.cfg.PhaseTiming {
		ctx = withPhaseTrace(ctx)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.URL, bytes.NewReader(b))
	if err != nil {
		return nil, "", NewClientError("build request: " + err.Error())
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	for k, v := range t.cfg.Headers {
		httpReq.Header.Set(k, v)
	}
	if sid := t.sessionID.Load(); sid != nil {
		httpReq.Header.Set("Mcp-Session-Id", *sid)
	}

	resp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, "", err
	}
	if sid := resp.Header.Get("Mcp-Session-Id"); sid != "" {
		t.sessionID.Store(&sid)
	}
	return resp, resp.Header.Get("Content-Type"), nil
}

func (t *StreamableHTTPTransport) consumeSSEForID(body io.Reader, id int64) (json.RawMessage, error) {
	dec := newSSEDecoder(bufio.NewReader(body))
	for {
		ev, ok, err := dec.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, NewProtocolError(0, "sse stream ended without a matching response")
		}
		if ev.Event != "" && ev.Event != "message" {
			continue
		}
		var resp struct {
			ID     json.RawMessage `json:"id"`
			Result json.RawMessage `json:"result"`
			Error  *Error          `json:"error"`
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
		}
		if err := json.Unmarshal([]byte(ev.Data), &resp); err != nil {
			return nil, NewProtocolError(-32700, "malformed sse json: "+err.Error())
		}
		if len(resp.ID) == 0 {
			if resp.Method != "" {
				t.dispatchNotification(resp.Method, resp.Params)
			}
			continue
		}
		var gotID int64
		if err := json.Unmarshal(resp.ID, &gotID); err != nil || gotID != id {
			continue // another request's reply riding the same stream
		}
		if resp.Error != nil {
			return nil, ClassifyJSONRPCError(resp.Error.Code, resp.Error.Message)
		}
		return resp.Result, nil
	}
}

func (t *StreamableHTTPTransport) dispatchNotification(method string, params json.RawMessage) {
	if h := t.notifyHandler.Load(); h != nil {
		(*h)(method, params)
	}
}

func (t *StreamableHTTPTransport) Close() error {
	if !t.fsm.toClosed() {
		return nil
	}
	t.pending.drain()
	if sid := t.sessionID.Load(); sid != nil && t.client != nil {
		req, err := http.NewRequest(http.MethodDelete, t.cfg.URL, nil)
		if err == nil {
			req.Header.Set("Mcp-Session-Id", *sid)
			resp, derr := t.client.Do(req) // server rejection is tolerated, per §4.1.3
			if derr == nil {
				resp.Body.Close()
			}
		}
	}
	t.streamWG.Wait()
	return nil
}

func (t *StreamableHTTPTransport) Closed() bool {
	return t.fsm.isClosed()
}

func isSSEContentType(ct string) bool {
	return strings.HasPrefix(ct, "text/event-stream")
}

func mapHTTPStatus(status int) *OpError {
	switch {
	case status == 429:
		return NewServerError(status, "rate limited")
	case status >= 500:
		return NewServerError(status, fmt.Sprintf("http %d", status))
	case status >= 400:
		return NewClientError(fmt.Sprintf("http %d", status))
	default:
		return NewClientError(fmt.Sprintf("http %d", status))
	}
}

// withPhaseTrace attaches an httptrace.ClientTrace that records DNS/connect/
// TLS/TTFB timestamps onto the context when Config.PhaseTiming is set.
// Nothing reads them back from the context. Purely additive per
// SPEC_FULL.md §12.
func withPhaseTrace(ctx context.Context) context.Context {
	pt := &phaseTimes{}
	trace := &httptrace.ClientTrace{
		DNSStart:             func(httptrace.DNSStartInfo) { pt.dnsStart = time.Now() },
		DNSDone:              func(httptrace.DNSDoneInfo) { pt.dnsDone = time.Now() },
		ConnectStart:         func(string, string) { pt.connectStart = time.Now() },
		ConnectDone:          func(string, string, error) { pt.connectDone = time.Now() },
		TLSHandshakeStart:    func() { pt.tlsStart = time.Now() },
		TLSHandshakeDone:     func(tls.ConnectionState, error) { pt.tlsDone = time.Now() },
		GotFirstResponseByte: func() { pt.firstByte = time.Now() },
	}
	ctx = context.WithValue(ctx, phaseTimesKey{}, pt)
	return httptrace.WithClientTrace(ctx, trace)
}
