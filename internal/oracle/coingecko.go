// Package oracle provides USD price quotes for native currency symbols.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"
)

// PriceSource resolves a native symbol to its current USD price. The boolean
// is false when no quote is available; an unavailable price is never an error
// for callers, only missing decoration on estimates.
type PriceSource interface {
	USDPrice(ctx context.Context, symbol string) (float64, bool)
}

// tokenIDs maps native currency symbols to CoinGecko asset ids.
var tokenIDs = map[string]string{
	"ETH": "ethereum",
}

// CoinGeckoClient fetches USD quotes from the public CoinGecko simple-price API.
type CoinGeckoClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewCoinGeckoClient creates a price client with bounded retries.
func NewCoinGeckoClient(baseURL string) *CoinGeckoClient {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 2
	retryClient.RetryWaitMin = 500 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.HTTPClient.Timeout = 10 * time.Second
	retryClient.Logger = nil

	return &CoinGeckoClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: retryClient.StandardClient(),
	}
}

// USDPrice returns the current USD price for a native symbol. Unknown symbols
// and any transport or decoding failure yield (0, false).
func (c *CoinGeckoClient) USDPrice(ctx context.Context, symbol string) (float64, bool) {
	tokenID, ok := tokenIDs[strings.ToUpper(symbol)]
	if !ok {
		logrus.Debugf("No CoinGecko id for symbol %s, skipping USD quote", symbol)
		return 0, false
	}

	url := fmt.Sprintf("%s/api/v3/simple/price?ids=%s&vs_currencies=usd", c.baseURL, tokenID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, false
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		logrus.Warnf("Price lookup for %s failed: %v", symbol, err)
		return 0, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		logrus.Warnf("CoinGecko API error: status %d, body: %s", resp.StatusCode, string(body))
		return 0, false
	}

	var quotes map[string]struct {
		USD *float64 `json:"usd"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&quotes); err != nil {
		logrus.Warnf("Error decoding CoinGecko response: %v", err)
		return 0, false
	}

	quote, ok := quotes[tokenID]
	if !ok || quote.USD == nil {
		return 0, false
	}
	return *quote.USD, true
}
