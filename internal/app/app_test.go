package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pulseboard/internal/cache/memory"
	"github.com/alanyoungcy/pulseboard/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeUpstreams serves minimal Open-Meteo, CoinMarketCap and NewsAPI
// responses from one server.
func fakeUpstreams(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/forecast", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"current":{"temperature_2m":14.2,"relative_humidity_2m":77,"weathercode":3}}`)
	})
	mux.HandleFunc("GET /v1/cryptocurrency/quotes/latest", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"BTC":{"quote":{"USD":{"price":100}}},"ETH":{"quote":{"USD":{"price":10}}}}}`)
	})
	mux.HandleFunc("GET /v2/top-headlines", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"status":"error"}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func testConfig(t *testing.T, upstream string) *config.Config {
	t.Helper()
	cfg := config.Defaults()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = freePort(t)
	cfg.Weather.BaseURL = upstream
	cfg.Crypto.BaseURL = upstream
	cfg.Crypto.APIKey = "cmc"
	cfg.News.BaseURL = upstream
	cfg.News.APIKey = "news"
	cfg.Push.Interval.Duration = time.Second
	return &cfg
}

func TestWireWithoutRedis(t *testing.T) {
	cfg := config.Defaults()
	deps, cleanup, err := Wire(context.Background(), &cfg, discardLogger())
	require.NoError(t, err)
	defer cleanup()

	assert.IsType(t, &memory.RateLimiter{}, deps.RateLimiter)
	assert.Nil(t, deps.LockManager)
	assert.Nil(t, deps.SignalBus)
	assert.Equal(t, "London", deps.Location.City)
	assert.Len(t, deps.background, 1)
}

func TestWireWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	cfg := config.Defaults()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()

	deps, cleanup, err := Wire(context.Background(), &cfg, discardLogger())
	require.NoError(t, err)
	defer cleanup()

	assert.NotNil(t, deps.LockManager)
	assert.NotNil(t, deps.SignalBus)
	assert.NotNil(t, deps.RateLimiter)
}

func TestWireRedisUnreachable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	cfg := config.Defaults()
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = addr

	_, _, err = Wire(context.Background(), &cfg, discardLogger())
	assert.Error(t, err)
}

func runApp(t *testing.T, cfg *config.Config) string {
	t.Helper()
	a := New(cfg, discardLogger())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
		a.Close()
	})

	base := fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port)
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 3*time.Second, 20*time.Millisecond)
	return base
}

func TestServeEndToEnd(t *testing.T) {
	cfg := testConfig(t, fakeUpstreams(t).URL)
	base := runApp(t, cfg)

	resp, err := http.Get(base + "/dashboard")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{
		"weather":{"city":"London","temp":14.2,"humidity":77,"description":"Overcast"},
		"crypto":{"bitcoin":100,"ethereum":10},
		"news":{"error":"Failed to fetch news data"}
	}`, string(body))

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://127.0.0.1:%d/ws", cfg.Server.Port), nil)
	require.NoError(t, err)
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(4 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"crypto update","data":{"bitcoin":100,"ethereum":10}}`, string(msg))
}

func TestServeEndToEndWithRedis(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := testConfig(t, fakeUpstreams(t).URL)
	cfg.Redis.Enabled = true
	cfg.Redis.Addr = mr.Addr()
	runApp(t, cfg)

	conn, _, err := websocket.DefaultDialer.Dial(fmt.Sprintf("ws://127.0.0.1:%d/ws", cfg.Server.Port), nil)
	require.NoError(t, err)
	defer conn.Close()

	// miniredis only expires keys on FastForward; advance it so the tick
	// lock frees up between intervals.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(200 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				mr.FastForward(time.Second)
			}
		}
	}()

	conn.SetReadDeadline(time.Now().Add(4 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"crypto update","data":{"bitcoin":100,"ethereum":10}}`, string(msg))
}
