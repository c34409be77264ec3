package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// LegacySSETransport implements the legacy two-URL dance: a GET that opens a
// long-lived event stream, an `event: endpoint` frame that announces the
// POST URL, then POSTs whose actual replies travel back on the GET stream.
// Built around a background reader goroutine that owns the one HTTP
// response body for the run.
type LegacySSETransport struct {
	cfg    Config
	client *http.Client

	endpointURL atomic.Pointer[url.URL]
	endpointCh  chan struct{}

	pending       *pendingTable
	fsm           *lifecycleFSM
	notifyHandler atomic.Pointer[NotificationHandler]

	respBody   io.Closer
	readerDone chan struct{}
	readerErr  atomic.Pointer[error]
}

func NewLegacySSETransport(cfg Config) *LegacySSETransport {
	return &LegacySSETransport{
		cfg:        cfg,
		pending:    newPendingTable(),
		fsm:        newLifecycleFSM(),
		endpointCh: make(chan struct{}),
		readerDone: make(chan struct{}),
	}
}

func (t *LegacySSETransport) Connect(ctx context.Context) error {
	if err := t.fsm.toConnecting(); err != nil {
		return err
	}
	tr := &http.Transport{
		DialContext:     newSafeDialer(t.cfg.AllowPrivateNetworks),
		TLSClientConfig: &tls.Config{InsecureSkipVerify: t.cfg.TLSSkipVerify},
	}
	t.client = &http.Client{Transport: tr, CheckRedirect: buildCheckRedirect(t.cfg.RedirectPolicy)}

	var body interface{ Close() error }
	var statusLine *http.Response
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.URL, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "text/event-stream")
		for k, v := range t.cfg.Headers {
			req.Header.Set(k, v)
		}
		resp, err := t.client.Do(req)
		if err != nil {
			return err // retryable: connection-level backoff per SPEC_FULL.md §11
		}
		if resp.StatusCode >= 400 {
			resp.Body.Close()
			return fmt.Errorf("sse connect: http %d", resp.StatusCode)
		}
		if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/event-stream") {
			resp.Body.Close()
			return backoff.Permanent(NewProtocolError(0, "sse endpoint did not return text/event-stream"))
		}
		statusLine = resp
		body = resp.Body
		return nil
	}
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)
	if err := backoff.Retry(op, bo); err != nil {
		return Classify(err)
	}

	t.respBody = statusLine.Body
	go t.readLoop(statusLine.Body)

	select {
	case <-t.endpointCh:
	case <-time.After(10 * time.Second):
		return NewProtocolError(0, "timed out waiting for sse endpoint event")
	case <-ctx.Done():
		return Classify(ctx.Err())
	}

	_ = t.fsm.toConnected()
	return nil
}

func (t *LegacySSETransport) readLoop(body interface{ Close() error }) {
	defer close(t.readerDone)
	r, ok := body.(interface {
		Read(p []byte) (int, error)
	})
	if !ok {
		return
	}
	dec := newSSEDecoder(bufio.NewReader(r))
	endpointSeen := false
	for {
		ev, ok, err := dec.next()
		if err != nil {
			e := Classify(err)
			var opErr error = e
			t.readerErr.Store(&opErr)
			return
		}
		if !ok {
			return
		}
		switch ev.Event {
		case "endpoint":
			if endpointSeen {
				continue
			}
			endpointSeen = true
			u, perr := t.resolveEndpoint(ev.Data)
			if perr == nil {
				t.endpointURL.Store(u)
			}
			close(t.endpointCh)
		case "message", "":
			t.handleMessage([]byte(ev.Data))
		}
	}
}

func (t *LegacySSETransport) resolveEndpoint(data string) (*url.URL, error) {
	base, err := url.Parse(t.cfg.URL)
	if err != nil {
		return nil, err
	}
	rel, err := url.Parse(data)
	if err != nil {
		return nil, err
	}
	resolved := base.ResolveReference(rel)
	if resolved.Host != base.Host {
		return nil, NewClientError("endpoint origin mismatch: " + resolved.Host)
	}
	return resolved, nil
}

func (t *LegacySSETransport) handleMessage(data []byte) {
	var resp struct {
		ID     json.RawMessage `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *Error          `json:"error"`
		Method string          `json:"method"`
		Params json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return
	}
	if len(resp.ID) == 0 {
		if resp.Method != "" {
			if h := t.notifyHandler.Load(); h != nil {
				(*h)(resp.Method, resp.Params)
			}
		}
		return
	}
	var id int64
	if err := json.Unmarshal(resp.ID, &id); err != nil {
		return
	}
	if resp.Error != nil {
		t.pending.complete(id, rawResult{err: ClassifyJSONRPCError(resp.Error.Code, resp.Error.Message)})
		return
	}
	t.pending.complete(id, rawResult{data: resp.Result})
}

func (t *LegacySSETransport) OnNotification(handler NotificationHandler) {
	t.notifyHandler.Store(&handler)
}

func (t *LegacySSETransport) Request(ctx context.Context, method string, params interface{}) (json.RawMessage, float64, error) {
	if t.Closed() {
		return nil, 0, NewClosingError()
	}
	id := t.pending.nextRequestID()
	timeout := time.Duration(t.cfg.RequestTimeoutMs) * time.Millisecond
	ch, ok := t.pending.register(id, timeout)
	if !ok {
		return nil, 0, NewClosingError()
	}
	start := time.Now()
	body := map[string]interface{}{"jsonrpc": "2.0", "id": id, "method": method}
	if params != nil {
		body["params"] = params
	}
	if err := t.postBody(ctx, body); err != nil {
		t.pending.complete(id, rawResult{err: Classify(err)})
		return nil, roundLatency(time.Since(start)), Classify(err)
	}
	select {
	case res := <-ch:
		latencyMs := roundLatency(time.Since(start))
		if res.err != nil {
			return nil, latencyMs, res.err
		}
		return res.data, latencyMs, nil
	case <-ctx.Done():
		return nil, roundLatency(time.Since(start)), Classify(ctx.Err())
	}
}

func (t *LegacySSETransport) Notify(ctx context.Context, method string, params interface{}) error {
	if t.Closed() {
		return NewClosingError()
	}
	body := map[string]interface{}{"jsonrpc": "2.0", "method": method}
	if params != nil {
		body["params"] = params
	}
	return t.postBody(ctx, body)
}

func (t *LegacySSETransport) postBody(ctx context.Context, body map[string]interface{}) error {
	u := t.endpointURL.Load()
	if u == nil {
		return NewClientError("sse endpoint not yet discovered")
	}
	b, err := json.Marshal(body)
	if err != nil {
		return NewClientError("marshal: " + err.Error())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), newJSONReader(b))
	if err != nil {
		return NewClientError("build request: " + err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range t.cfg.Headers {
		req.Header.Set(k, v)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_ = discard(resp.Body)
	if resp.StatusCode >= 400 {
		return mapHTTPStatus(resp.StatusCode)
	}
	return nil
}

func (t *LegacySSETransport) Close() error {
	if !t.fsm.toClosed() {
		return nil
	}
	t.pending.drain()
	if t.respBody != nil {
		_ = t.respBody.Close()
	}
	select {
	case <-t.readerDone:
	case <-time.After(2 * time.Second):
	}
	return nil
}

func (t *LegacySSETransport) Closed() bool {
	return t.fsm.isClosed()
}
