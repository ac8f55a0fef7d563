package sources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/tradeforge/signalguard/internal/domain"
)

// RESTQuoteAdapter polls a provider's ticker endpoint over HTTP. The base URL
// is injectable so tests can point it at a local httptest server.
type RESTQuoteAdapter struct {
	name    string
	baseURL string
	client  *http.Client
}

// tickerResponse is the minimal provider payload we depend on. Providers that
// need field remapping get their own adapter.
type tickerResponse struct {
	Symbol    string  `json:"symbol"`
	Price     float64 `json:"price"`
	Volume24h float64 `json:"volume_24h"`
	Timestamp int64   `json:"timestamp"` // unix seconds, 0 = use receipt time
}

// NewRESTQuoteAdapter creates a polling adapter for one provider endpoint.
func NewRESTQuoteAdapter(name, baseURL string, timeout time.Duration) *RESTQuoteAdapter {
	return &RESTQuoteAdapter{
		name:    name,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (a *RESTQuoteAdapter) Name() string { return a.name }

// FetchQuote performs one ticker request. Failures come back categorized so
// the triangulator can fold them into per-source status without inspecting
// provider specifics.
func (a *RESTQuoteAdapter) FetchQuote(ctx context.Context, symbol string) (domain.PriceQuote, error) {
	url := fmt.Sprintf("%s/ticker/%s", a.baseURL, symbol)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return domain.PriceQuote{}, NewCategorizedError(a.name, ErrUnknown, err)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		category := ErrNetwork
		if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
			category = ErrTimeout
		}
		return domain.PriceQuote{}, NewCategorizedError(a.name, category, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.PriceQuote{}, NewCategorizedError(a.name, ErrRateLimit,
			fmt.Errorf("provider returned 429"))
	case resp.StatusCode == http.StatusNotFound:
		return domain.PriceQuote{}, NewCategorizedError(a.name, ErrUnsupportedSymbol,
			fmt.Errorf("symbol %s not available", symbol))
	case resp.StatusCode != http.StatusOK:
		return domain.PriceQuote{}, NewCategorizedError(a.name, ErrAPIError,
			fmt.Errorf("provider returned status %d", resp.StatusCode))
	}

	var ticker tickerResponse
	if err := json.NewDecoder(resp.Body).Decode(&ticker); err != nil {
		return domain.PriceQuote{}, NewCategorizedError(a.name, ErrAPIError,
			fmt.Errorf("malformed ticker payload: %w", err))
	}

	if ticker.Price <= 0 {
		return domain.PriceQuote{}, NewCategorizedError(a.name, ErrAPIError,
			fmt.Errorf("non-positive price %.8f", ticker.Price))
	}

	observedAt := time.Now()
	if ticker.Timestamp > 0 {
		observedAt = time.Unix(ticker.Timestamp, 0)
	}

	log.Debug().Str("source", a.name).Str("symbol", symbol).
		Float64("price", ticker.Price).Msg("quote fetched")

	return domain.PriceQuote{
		SourceID:   a.name,
		Price:      ticker.Price,
		Volume24h:  ticker.Volume24h,
		ObservedAt: observedAt,
	}, nil
}
