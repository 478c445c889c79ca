package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/pulseboard/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubFetcher struct {
	mu    sync.Mutex
	snaps []domain.Snapshot
	err   error
}

func (f *stubFetcher) Dashboard(context.Context) (domain.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return domain.Snapshot{}, f.err
	}
	s := f.snaps[0]
	if len(f.snaps) > 1 {
		f.snaps = f.snaps[1:]
	}
	return s, nil
}

func snapshot(btc, eth float64) domain.Snapshot {
	return domain.Snapshot{
		Weather: domain.OK(domain.Weather{City: "London", Temp: 14.2, Humidity: 77, Description: "Overcast"}),
		Crypto:  domain.OK(domain.Crypto{Bitcoin: btc, Ethereum: eth}),
		News:    domain.OK([]domain.NewsItem{{Title: "Go 1.25", Source: "Go Blog", URL: "https://go.dev/blog"}}),
	}
}

func loadedStore(t *testing.T, snaps ...domain.Snapshot) *Store {
	t.Helper()
	s := NewStore(&stubFetcher{snaps: snaps}, discardLogger())
	require.NoError(t, s.Refresh(context.Background()))
	return s
}

func TestNewStoreIsLoading(t *testing.T) {
	s := NewStore(&stubFetcher{}, discardLogger())
	st := s.State()
	assert.True(t, st.Loading)
	assert.False(t, st.Loaded)
	assert.Equal(t, TrendState{}, st.Trend)
}

func TestRefreshPopulatesSnapshot(t *testing.T) {
	s := loadedStore(t, snapshot(100, 10))
	st := s.State()
	assert.True(t, st.Loaded)
	assert.False(t, st.Loading)
	assert.Equal(t, snapshot(100, 10), st.Snapshot)
	assert.Equal(t, TrendState{Bitcoin: TrendUp, Ethereum: TrendUp}, st.Trend)
}

func TestApplyCryptoUpdateTrend(t *testing.T) {
	s := loadedStore(t, snapshot(100, 100))

	s.ApplyCryptoUpdate(domain.OK(domain.Crypto{Bitcoin: 110, Ethereum: 90}))
	assert.Equal(t, TrendState{Bitcoin: TrendUp, Ethereum: TrendDown}, s.State().Trend)

	// equal prices count as down
	s.ApplyCryptoUpdate(domain.OK(domain.Crypto{Bitcoin: 110, Ethereum: 95}))
	assert.Equal(t, TrendState{Bitcoin: TrendDown, Ethereum: TrendUp}, s.State().Trend)
}

func TestApplyCryptoUpdateLeavesOtherFields(t *testing.T) {
	s := loadedStore(t, snapshot(100, 10))
	before := s.State().Snapshot
	s.now = func() time.Time { return time.Date(2026, 10, 17, 9, 5, 7, 0, time.Local) }

	s.ApplyCryptoUpdate(domain.OK(domain.Crypto{Bitcoin: 101, Ethereum: 11}))
	after := s.State()

	for _, pair := range [][2]any{
		{before.Weather, after.Snapshot.Weather},
		{before.News, after.Snapshot.News},
	} {
		want, err := json.Marshal(pair[0])
		require.NoError(t, err)
		got, err := json.Marshal(pair[1])
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got))
	}
	assert.Equal(t, domain.Crypto{Bitcoin: 101, Ethereum: 11}, after.Snapshot.Crypto.Value())
	assert.Equal(t, "09:05:07", after.LastUpdated)
}

func TestApplyCryptoUpdateErrorMarker(t *testing.T) {
	s := loadedStore(t, snapshot(100, 10))

	s.ApplyCryptoUpdate(domain.Fail[domain.Crypto](domain.ErrCryptoFetch))
	st := s.State()
	assert.ErrorIs(t, st.Snapshot.Crypto.Err(), domain.ErrCryptoFetch)
	assert.Equal(t, TrendState{Bitcoin: TrendDown, Ethereum: TrendDown}, st.Trend)

	// a held error compares as zero
	s.ApplyCryptoUpdate(domain.OK(domain.Crypto{Bitcoin: 1, Ethereum: 1}))
	assert.Equal(t, TrendState{Bitcoin: TrendUp, Ethereum: TrendUp}, s.State().Trend)
}

func TestRefreshComparesAgainstHeldValues(t *testing.T) {
	s := loadedStore(t, snapshot(100, 100), snapshot(105, 95))

	s.ApplyCryptoUpdate(domain.OK(domain.Crypto{Bitcoin: 110, Ethereum: 90}))
	require.NoError(t, s.Refresh(context.Background()))

	st := s.State()
	assert.Equal(t, TrendState{Bitcoin: TrendDown, Ethereum: TrendUp}, st.Trend)
	assert.Equal(t, domain.Crypto{Bitcoin: 105, Ethereum: 95}, st.Snapshot.Crypto.Value())
}

func TestRefreshFailureKeepsSnapshot(t *testing.T) {
	f := &stubFetcher{snaps: []domain.Snapshot{snapshot(100, 10)}}
	s := NewStore(f, discardLogger())
	require.NoError(t, s.Refresh(context.Background()))

	f.err = errors.New("connection refused")
	assert.Error(t, s.Refresh(context.Background()))

	st := s.State()
	assert.False(t, st.Loading)
	assert.True(t, st.Loaded)
	assert.Equal(t, snapshot(100, 10), st.Snapshot)
}

func TestSubscribeNotifiesUntilUnsubscribed(t *testing.T) {
	s := NewStore(&stubFetcher{snaps: []domain.Snapshot{snapshot(1, 1)}}, discardLogger())

	var seen []State
	unsubscribe := s.Subscribe(func(st State) { seen = append(seen, st) })

	require.NoError(t, s.Refresh(context.Background()))
	require.Len(t, seen, 2)
	assert.True(t, seen[0].Loading)
	assert.False(t, seen[1].Loading)

	unsubscribe()
	unsubscribe()
	s.ApplyCryptoUpdate(domain.OK(domain.Crypto{Bitcoin: 2, Ethereum: 2}))
	assert.Len(t, seen, 2)
}

type chanSubscriber struct {
	mu      sync.Mutex
	handler func(domain.CryptoResult)
}

func (c *chanSubscriber) Subscribe(h func(domain.CryptoResult)) func() {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.handler = nil
		c.mu.Unlock()
	}
}

func (c *chanSubscriber) active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.handler != nil
}

func (c *chanSubscriber) emit(r domain.CryptoResult) {
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	if h != nil {
		h(r)
	}
}

func TestMountScopesSubscription(t *testing.T) {
	s := NewStore(&stubFetcher{snaps: []domain.Snapshot{snapshot(100, 10)}}, discardLogger())
	sub := &chanSubscriber{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Mount(ctx, s, sub) }()

	require.Eventually(t, func() bool { return s.State().Loaded }, time.Second, 5*time.Millisecond)
	assert.True(t, sub.active())

	sub.emit(domain.OK(domain.Crypto{Bitcoin: 120, Ethereum: 5}))
	assert.Equal(t, 120.0, s.State().Snapshot.Crypto.Value().Bitcoin)

	cancel()
	require.NoError(t, <-done)
	assert.False(t, sub.active())
}

func TestRender(t *testing.T) {
	t.Run("loading before first fetch", func(t *testing.T) {
		var b strings.Builder
		require.NoError(t, Render(&b, NewStore(&stubFetcher{}, discardLogger()).State()))
		assert.Contains(t, b.String(), "Data Dashboard")
		assert.Contains(t, b.String(), "[Refreshing...]")
		assert.Contains(t, b.String(), "Loading...")
	})

	t.Run("full snapshot", func(t *testing.T) {
		st := State{
			Snapshot:    snapshot(67000.5, 2400),
			Loaded:      true,
			Trend:       TrendState{Bitcoin: TrendUp, Ethereum: TrendDown},
			LastUpdated: "12:00:00",
		}
		var b strings.Builder
		require.NoError(t, Render(&b, st))
		out := b.String()

		assert.NotContains(t, out, "Refreshing")
		assert.Contains(t, out, "City:       London")
		assert.Contains(t, out, "Temp:       14.2°C")
		assert.Contains(t, out, "Humidity:   77%")
		assert.Contains(t, out, "Bitcoin:  $67000.50 ↑")
		assert.Contains(t, out, "Ethereum: $2400.00 ↓")
		assert.Contains(t, out, "Last Updated: 12:00:00")
		assert.Contains(t, out, "- Go 1.25")
	})

	t.Run("error sections", func(t *testing.T) {
		st := State{
			Snapshot: domain.Snapshot{
				Weather: domain.Fail[domain.Weather](domain.ErrWeatherFetch),
				Crypto:  domain.Fail[domain.Crypto](domain.ErrCryptoFetch),
				News:    domain.Fail[[]domain.NewsItem](domain.ErrNewsFetch),
			},
			Loaded:      true,
			LastUpdated: "12:00:00",
		}
		var b strings.Builder
		require.NoError(t, Render(&b, st))
		out := b.String()

		assert.Contains(t, out, "Failed to fetch weather data")
		assert.Contains(t, out, "Failed to fetch crypto data")
		assert.Contains(t, out, "Failed to fetch news data")
		assert.NotContains(t, out, "City:")
		assert.NotContains(t, out, "Last Updated")
	})
}
