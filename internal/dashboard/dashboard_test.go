package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bc-dunia/mcpstress/internal/aggregator"
	"github.com/bc-dunia/mcpstress/internal/stats"
)

func startTestServer(t *testing.T) (*Server, *Hub, func()) {
	t.Helper()
	hub := NewHub()
	srv := NewServer(hub)
	require.NoError(t, srv.Start())
	return srv, hub, func() { _ = srv.Shutdown(context.Background()) }
}

func TestDashboardIndexServesHTML(t *testing.T) {
	srv, _, cleanup := startTestServer(t)
	defer cleanup()

	resp, err := http.Get(srv.URL() + "/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
}

func TestDashboardEventsStreamsMetaAndWindow(t *testing.T) {
	srv, hub, cleanup := startTestServer(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL()+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream; charset=utf-8", resp.Header.Get("Content-Type"))

	// give the handler a moment to subscribe before publishing.
	time.Sleep(20 * time.Millisecond)
	hub.Meta(map[string]interface{}{"runId": "abc"})
	hub.Window(stats.Window{T: 1000, Count: 3})

	scanner := bufio.NewScanner(resp.Body)
	var sawMeta, sawWindow bool
	var eventName string
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, "event: ") {
			eventName = strings.TrimPrefix(line, "event: ")
		}
		if strings.HasPrefix(line, "data: ") {
			switch eventName {
			case "meta":
				sawMeta = true
			case "window":
				sawWindow = true
			}
		}
		if sawMeta && sawWindow {
			break
		}
	}
	assert.True(t, sawMeta)
	assert.True(t, sawWindow)
}

func TestDashboardCompleteClosesConnection(t *testing.T) {
	srv, hub, cleanup := startTestServer(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL()+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	time.Sleep(20 * time.Millisecond)
	hub.Complete(&aggregator.Summary{Type: "summary", TotalRequests: 10})

	scanner := bufio.NewScanner(resp.Body)
	var sawComplete bool
	for scanner.Scan() {
		if strings.HasPrefix(scanner.Text(), "event: complete") {
			sawComplete = true
		}
	}
	assert.True(t, sawComplete)
}

func TestDashboardEventsMethodNotAllowed(t *testing.T) {
	srv, _, cleanup := startTestServer(t)
	defer cleanup()

	resp, err := http.Post(srv.URL()+"/events", "application/json", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestHubWindowRateLimitsSlowConsumer(t *testing.T) {
	hub := NewHub()
	ch, unsub := hub.subscribe()
	defer unsub()

	for i := 0; i < 10; i++ {
		hub.Window(stats.Window{T: int64(i)})
	}

	// the per-subscriber limiter (5/sec, burst 5) must have dropped some.
	received := 0
drain:
	for {
		select {
		case <-ch:
			received++
		default:
			break drain
		}
	}
	assert.Less(t, received, 10)
}

func TestAggregatorFeedsSink(t *testing.T) {
	hub := NewHub()
	ch, unsub := hub.subscribe()
	defer unsub()

	agg := aggregator.New()
	agg.SetSink(hub)
	agg.Init("", map[string]interface{}{"runId": "x"})
	agg.Method(1, "ping")
	agg.Batch([]aggregator.RawRecord{{T: 10, MethodID: 1, LatencyMs: 5, OK: true, ErrorCategoryInt: 0, Phase: -1}})
	agg.Complete()

	var sawMeta, sawComplete bool
	timeout := time.After(2 * time.Second)
	for !sawComplete {
		select {
		case ev, open := <-ch:
			if !open {
				return
			}
			if ev.Type == "meta" {
				sawMeta = true
			}
			if ev.Type == "complete" {
				sawComplete = true
				var summary aggregator.Summary
				b, _ := json.Marshal(ev.Data)
				require.NoError(t, json.Unmarshal(b, &summary))
				assert.Equal(t, int64(1), summary.TotalRequests)
			}
		case <-timeout:
			t.Fatal("timed out waiting for complete event")
		}
	}
	assert.True(t, sawMeta)
}
