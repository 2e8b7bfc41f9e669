package marketApi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/KotFed0t/crypto_portfolio_api/config"
	"github.com/KotFed0t/crypto_portfolio_api/internal/externalApi"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApi(t *testing.T, handler http.HandlerFunc) *MarketApi {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{}
	cfg.API.Timeout = 5 * time.Second
	cfg.API.MarketApi.Url = srv.URL
	cfg.API.MarketApi.Currency = "usd"

	return New(cfg)
}

func TestGetSpotPrices(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "btc,eth", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"btc": {"usd": 64250.12}, "eth": {"usd": 3120.4}}`))
	})

	prices, err := api.GetSpotPrices(context.Background(), []string{"btc", "eth"})
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.True(t, prices["btc"].Equal(decimal.RequireFromString("64250.12")))
	assert.True(t, prices["eth"].Equal(decimal.RequireFromString("3120.4")))
}

func TestGetSpotPricesUnknownSymbolSkipped(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"btc": {"usd": 64250.12}}`))
	})

	prices, err := api.GetSpotPrices(context.Background(), []string{"btc", "unknowncoin"})
	require.NoError(t, err)
	require.Len(t, prices, 1)
	_, ok := prices["unknowncoin"]
	assert.False(t, ok)
}

func TestGetSpotPriceNotFound(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := api.GetSpotPrice(context.Background(), "unknowncoin")
	assert.ErrorIs(t, err, externalApi.ErrNotFound)
}

func TestGetSpotPricesErrorStatus(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := api.GetSpotPrices(context.Background(), []string{"btc"})
	assert.Error(t, err)
}

func TestGetSpotPricesMissingCurrencyQuote(t *testing.T) {
	api := newTestApi(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"btc": {"eur": 59000.5}}`))
	})

	_, err := api.GetSpotPrices(context.Background(), []string{"btc"})
	assert.Error(t, err)
}
