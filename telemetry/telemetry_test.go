package telemetry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rustyeddy/ticksim/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)

func TestFromAccount(t *testing.T) {
	t.Parallel()

	s := FromAccount(7, t0, broker.Account{
		Cash: 100, Equity: 110, MarginUsage: 0.2, MaxMarginUsage: 0.4,
		OpenTrades: 2, ClosedTrades: 3,
	})
	assert.Equal(t, Snapshot{
		Tick: 7, Time: t0, Cash: 100, Equity: 110, MarginUsage: 0.2,
		MaxMarginUsage: 0.4, OpenTrades: 2, ClosedTrades: 3,
	}, s)
}

func TestPublisherLatestAndFanOut(t *testing.T) {
	t.Parallel()

	p := NewPublisher()
	_, ok := p.Latest()
	assert.False(t, ok)

	ch, cancel := p.Subscribe(4)
	assert.Equal(t, 1, p.Subscribers())

	p.Publish(Snapshot{Tick: 1})
	p.Publish(Snapshot{Tick: 2})

	latest, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, 2, latest.Tick)
	assert.Equal(t, 1, (<-ch).Tick)
	assert.Equal(t, 2, (<-ch).Tick)

	cancel()
	cancel()
	assert.Equal(t, 0, p.Subscribers())
	_, open := <-ch
	assert.False(t, open)
}

func TestPublisherDropsForSlowSubscribers(t *testing.T) {
	t.Parallel()

	p := NewPublisher()
	ch, cancel := p.Subscribe(1)
	defer cancel()

	p.Publish(Snapshot{Tick: 1})
	p.Publish(Snapshot{Tick: 2})

	assert.Equal(t, 1, (<-ch).Tick)
	latest, _ := p.Latest()
	assert.Equal(t, 2, latest.Tick)
}

func TestPublisherConcurrentReaders(t *testing.T) {
	t.Parallel()

	p := NewPublisher()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				p.Latest()
			}
		}()
	}
	for i := 0; i < 100; i++ {
		p.Publish(Snapshot{Tick: i})
	}
	wg.Wait()

	latest, _ := p.Latest()
	assert.Equal(t, 99, latest.Tick)
}

func TestServerRoutes(t *testing.T) {
	t.Parallel()

	pub := NewPublisher()
	ts := httptest.NewServer(NewServer(":0", pub, nil).Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/api/v1/snapshot")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	pub.Publish(Snapshot{Tick: 3, Equity: 1234.5})

	resp, err = http.Get(ts.URL + "/api/v1/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var got Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, 3, got.Tick)
	assert.Equal(t, 1234.5, got.Equity)
}

func TestServerCORS(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(NewServer(":0", NewPublisher(), nil).Handler())
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "http://localhost:3000", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebsocketStreamsSnapshots(t *testing.T) {
	t.Parallel()

	pub := NewPublisher()
	pub.Publish(Snapshot{Tick: 1})

	ts := httptest.NewServer(NewServer(":0", pub, nil).Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var got Snapshot
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, 1, got.Tick)

	// the first frame is sent after subscribing, so this one cannot be missed
	pub.Publish(Snapshot{Tick: 2, Ruined: true})
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, 2, got.Tick)
	assert.True(t, got.Ruined)
}

func TestWebsocketChecksOrigin(t *testing.T) {
	t.Parallel()

	srv := NewServer(":0", NewPublisher(), nil)
	srv.AllowedOrigins = []string{"https://dash.example"}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"

	tests := []struct {
		name   string
		origin string
		ok     bool
	}{
		{"allowed", "https://dash.example", true},
		{"allowed any case", "HTTPS://DASH.EXAMPLE", true},
		{"no origin", "", true},
		{"foreign", "https://evil.example", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			h := http.Header{}
			if tt.origin != "" {
				h.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(url, h)
			if tt.ok {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}

func TestServerStartAndShutdown(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewServer("127.0.0.1:0", NewPublisher(), nil)
	require.NoError(t, s.Start(ctx))

	resp, err := http.Get("http://" + s.ListenAddr() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, s.Shutdown(context.Background()))
}
