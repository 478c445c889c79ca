// Package client is the dashboard consumer: it holds the last snapshot,
// merges crypto push events into it and renders it as text.
package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/alanyoungcy/pulseboard/internal/domain"
)

// Trend is the direction of the last observed price change.
type Trend int

const (
	TrendDown Trend = -1
	TrendUp   Trend = 1
)

// TrendState holds one Trend per tracked asset. The zero value means no
// comparison has been made yet.
type TrendState struct {
	Bitcoin  Trend
	Ethereum Trend
}

// State is an immutable view of the store handed to renderers.
type State struct {
	Snapshot domain.Snapshot
	// Loaded is set after the first successful full fetch.
	Loaded  bool
	Loading bool
	Trend   TrendState
	// LastUpdated is the wall-clock time of the last crypto push, empty
	// until one arrives.
	LastUpdated string
}

// Fetcher retrieves a full dashboard snapshot.
type Fetcher interface {
	Dashboard(ctx context.Context) (domain.Snapshot, error)
}

// Store holds the client's dashboard state. It is safe for concurrent use;
// listeners are invoked one at a time.
type Store struct {
	fetcher Fetcher
	logger  *slog.Logger
	now     func() time.Time

	mu    sync.Mutex
	state State

	notifyMu  sync.Mutex
	listeners map[uint64]func(State)
	nextID    uint64
}

// NewStore creates a Store in the loading state.
func NewStore(fetcher Fetcher, logger *slog.Logger) *Store {
	return &Store{
		fetcher:   fetcher,
		logger:    logger.With(slog.String("component", "store")),
		now:       time.Now,
		state:     State{Loading: true},
		listeners: make(map[uint64]func(State)),
	}
}

// State returns a copy of the current state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Refresh re-fetches the whole snapshot. The trend is computed against the
// crypto held before the fetch. On failure the held snapshot is kept.
func (s *Store) Refresh(ctx context.Context) error {
	s.update(func(st *State) { st.Loading = true })

	snap, err := s.fetcher.Dashboard(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "dashboard fetch failed", slog.String("error", err.Error()))
		s.update(func(st *State) { st.Loading = false })
		return err
	}

	s.update(func(st *State) {
		st.Trend = deriveTrend(st.Snapshot.Crypto, snap.Crypto)
		st.Snapshot = snap
		st.Loaded = true
		st.Loading = false
	})
	return nil
}

// ApplyCryptoUpdate merges a pushed crypto result. Weather and news are left
// untouched.
func (s *Store) ApplyCryptoUpdate(crypto domain.CryptoResult) {
	stamp := s.now().Format("15:04:05")
	s.update(func(st *State) {
		st.Trend = deriveTrend(st.Snapshot.Crypto, crypto)
		st.Snapshot.Crypto = crypto
		st.LastUpdated = stamp
	})
}

// Subscribe registers fn to be called with the new state after every change.
// The returned func removes it.
func (s *Store) Subscribe(fn func(State)) func() {
	s.notifyMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.notifyMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.notifyMu.Lock()
			delete(s.listeners, id)
			s.notifyMu.Unlock()
		})
	}
}

func (s *Store) update(mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	st := s.state
	s.mu.Unlock()

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	for _, fn := range s.listeners {
		fn(st)
	}
}

// deriveTrend compares incoming prices to the held ones. A held error counts
// as a price of 0; an incoming error is reported as down.
func deriveTrend(held, incoming domain.CryptoResult) TrendState {
	if incoming.Failed() {
		return TrendState{Bitcoin: TrendDown, Ethereum: TrendDown}
	}
	prev := held.Value()
	next := incoming.Value()
	return TrendState{
		Bitcoin:  compare(prev.Bitcoin, next.Bitcoin),
		Ethereum: compare(prev.Ethereum, next.Ethereum),
	}
}

func compare(prev, next float64) Trend {
	if next > prev {
		return TrendUp
	}
	return TrendDown
}

// Subscriber delivers crypto push events.
type Subscriber interface {
	Subscribe(handler func(domain.CryptoResult)) func()
}

// Mount performs the initial fetch and applies crypto pushes to store until
// ctx is done. The subscription is released on return.
func Mount(ctx context.Context, store *Store, events Subscriber) error {
	unsubscribe := events.Subscribe(store.ApplyCryptoUpdate)
	defer unsubscribe()

	// failures are logged by the store; pushes keep flowing regardless
	_ = store.Refresh(ctx)

	<-ctx.Done()
	return nil
}
