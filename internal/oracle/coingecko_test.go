package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUSDPrice_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v3/simple/price", r.URL.Path)
		assert.Equal(t, "ethereum", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ethereum":{"usd":2517.43}}`))
	}))
	defer srv.Close()

	client := NewCoinGeckoClient(srv.URL)
	price, ok := client.USDPrice(context.Background(), "ETH")

	require.True(t, ok)
	assert.Equal(t, 2517.43, price)
}

func TestUSDPrice_LowercaseSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ethereum":{"usd":1800.0}}`))
	}))
	defer srv.Close()

	client := NewCoinGeckoClient(srv.URL)
	price, ok := client.USDPrice(context.Background(), "eth")

	require.True(t, ok)
	assert.Equal(t, 1800.0, price)
}

func TestUSDPrice_UnknownSymbol(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("unknown symbols must not reach the API")
	}))
	defer srv.Close()

	client := NewCoinGeckoClient(srv.URL)
	_, ok := client.USDPrice(context.Background(), "DOGE")

	assert.False(t, ok)
}

func TestUSDPrice_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewCoinGeckoClient(srv.URL)
	_, ok := client.USDPrice(context.Background(), "ETH")

	assert.False(t, ok, "an unavailable price is reported, not an error")
}

func TestUSDPrice_MalformedBodyIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	client := NewCoinGeckoClient(srv.URL)
	_, ok := client.USDPrice(context.Background(), "ETH")

	assert.False(t, ok)
}

func TestUSDPrice_MissingQuoteIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"ethereum":{}}`))
	}))
	defer srv.Close()

	client := NewCoinGeckoClient(srv.URL)
	_, ok := client.USDPrice(context.Background(), "ETH")

	assert.False(t, ok)
}
