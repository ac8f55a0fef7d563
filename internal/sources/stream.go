package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tradeforge/signalguard/internal/domain"
)

// StreamQuoteAdapter keeps a WebSocket subscription open and serves the most
// recent tick from memory. FetchQuote never hits the network; it fails with a
// timeout category when the stream has gone stale.
type StreamQuoteAdapter struct {
	name     string
	wsURL    string
	maxStale time.Duration

	mu     sync.RWMutex // guards latest and conn
	latest map[string]domain.PriceQuote
	conn   *websocket.Conn

	stopCh chan struct{}
	doneCh chan struct{}
}

type streamTick struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume24h float64 `json:"volume_24h"`
	Timestamp int64   `json:"timestamp"`
}

// NewStreamQuoteAdapter creates a streaming adapter. Run must be called
// before FetchQuote will see data.
func NewStreamQuoteAdapter(name, wsURL string, maxStale time.Duration) *StreamQuoteAdapter {
	return &StreamQuoteAdapter{
		name:     name,
		wsURL:    wsURL,
		maxStale: maxStale,
		latest:   make(map[string]domain.PriceQuote),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (a *StreamQuoteAdapter) Name() string { return a.name }

// Run dials the stream and pumps ticks until ctx is done or Close is called.
// Reconnects with a flat 5s pause on read errors.
func (a *StreamQuoteAdapter) Run(ctx context.Context, symbols []string) {
	defer close(a.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		default:
		}

		if err := a.connectAndPump(ctx, symbols); err != nil {
			log.Warn().Err(err).Str("source", a.name).Msg("stream disconnected, reconnecting")
		}

		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		case <-time.After(5 * time.Second):
		}
	}
}

func (a *StreamQuoteAdapter) connectAndPump(ctx context.Context, symbols []string) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, a.wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", a.wsURL, err)
	}
	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.conn = nil
		a.mu.Unlock()
		conn.Close()
	}()

	sub := map[string]interface{}{"op": "subscribe", "symbols": symbols}
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.stopCh:
			return nil
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		var tick streamTick
		if err := json.Unmarshal(payload, &tick); err != nil || tick.Symbol == "" {
			continue // heartbeat or control frame
		}
		if tick.Price <= 0 {
			continue
		}

		observedAt := time.Now()
		if tick.Timestamp > 0 {
			observedAt = time.Unix(tick.Timestamp, 0)
		}

		a.mu.Lock()
		a.latest[tick.Symbol] = domain.PriceQuote{
			SourceID:   a.name,
			Price:      tick.Price,
			Volume24h:  tick.Volume24h,
			ObservedAt: observedAt,
		}
		a.mu.Unlock()
	}
}

// FetchQuote serves the most recent tick for symbol. A missing or stale tick
// is a timeout-category failure: the stream is the network here.
func (a *StreamQuoteAdapter) FetchQuote(_ context.Context, symbol string) (domain.PriceQuote, error) {
	a.mu.RLock()
	quote, ok := a.latest[symbol]
	a.mu.RUnlock()

	if !ok {
		return domain.PriceQuote{}, NewCategorizedError(a.name, ErrTimeout,
			fmt.Errorf("no tick received for %s", symbol))
	}
	if age := time.Since(quote.ObservedAt); age > a.maxStale {
		return domain.PriceQuote{}, NewCategorizedError(a.name, ErrTimeout,
			fmt.Errorf("last tick for %s is %s old", symbol, age.Round(time.Second)))
	}
	return quote, nil
}

// Close stops the pump loop and waits for it to exit.
func (a *StreamQuoteAdapter) Close() {
	close(a.stopCh)
	a.mu.Lock()
	conn := a.conn
	a.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	<-a.doneCh
}

// seed is a test hook: it installs a tick without a live stream.
func (a *StreamQuoteAdapter) seed(quote domain.PriceQuote, symbol string) {
	a.mu.Lock()
	a.latest[symbol] = quote
	a.mu.Unlock()
}
