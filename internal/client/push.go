package client

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/alanyoungcy/pulseboard/internal/domain"
)

const (
	// reconnectDelay is the pause between connection attempts.
	reconnectDelay = 2 * time.Second

	handshakeTimeout = 10 * time.Second
)

// PushClient consumes the server's push channel and dispatches crypto
// updates to subscribers. It reconnects until its context ends.
type PushClient struct {
	url    string
	dialer websocket.Dialer
	delay  time.Duration
	logger *slog.Logger

	mu       sync.RWMutex
	handlers map[uint64]func(domain.CryptoResult)
	nextID   uint64
}

// NewPushClient creates a PushClient for the websocket endpoint at url.
func NewPushClient(url string, logger *slog.Logger) *PushClient {
	return &PushClient{
		url:      url,
		dialer:   websocket.Dialer{HandshakeTimeout: handshakeTimeout},
		delay:    reconnectDelay,
		logger:   logger.With(slog.String("component", "push-client")),
		handlers: make(map[uint64]func(domain.CryptoResult)),
	}
}

// Subscribe registers handler for crypto updates. The returned func removes
// it.
func (p *PushClient) Subscribe(handler func(domain.CryptoResult)) func() {
	p.mu.Lock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	p.mu.Unlock()

	return func() {
		p.mu.Lock()
		delete(p.handlers, id)
		p.mu.Unlock()
	}
}

// Run keeps a connection open until ctx is cancelled.
func (p *PushClient) Run(ctx context.Context) error {
	for {
		conn, _, err := p.dialer.DialContext(ctx, p.url, nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.WarnContext(ctx, "push connect failed",
				slog.String("url", p.url),
				slog.String("error", err.Error()),
			)
		} else {
			p.logger.InfoContext(ctx, "push connected", slog.String("url", p.url))
			err = p.readLoop(ctx, conn)
			if ctx.Err() != nil {
				return nil
			}
			p.logger.WarnContext(ctx, "push connection lost", slog.String("error", err.Error()))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(p.delay):
		}
	}
}

func (p *PushClient) readLoop(ctx context.Context, conn *websocket.Conn) error {
	stop := context.AfterFunc(ctx, func() {
		conn.Close()
	})
	defer func() {
		stop()
		conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		p.handleMessage(msg)
	}
}

func (p *PushClient) handleMessage(raw []byte) {
	var ev domain.PushEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		p.logger.Warn("push: undecodable frame", slog.String("error", err.Error()))
		return
	}
	if ev.Event != domain.EventCryptoUpdate {
		return
	}

	var crypto domain.CryptoResult
	if err := json.Unmarshal(ev.Data, &crypto); err != nil {
		p.logger.Warn("push: bad crypto payload", slog.String("error", err.Error()))
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, h := range p.handlers {
		h(crypto)
	}
}

var _ Subscriber = (*PushClient)(nil)
