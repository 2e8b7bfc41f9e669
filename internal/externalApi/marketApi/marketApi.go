package marketApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/KotFed0t/crypto_portfolio_api/config"
	"github.com/KotFed0t/crypto_portfolio_api/internal/externalApi"
	"github.com/KotFed0t/crypto_portfolio_api/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// MarketApi pulls current spot prices from a CoinGecko-style simple price
// endpoint: GET /simple/price?ids=btc,eth&vs_currencies=usd returns
// {"btc": {"usd": 64250.12}, "eth": {"usd": 3120.4}}.
type MarketApi struct {
	client   *resty.Client
	currency string
}

func New(cfg *config.Config) *MarketApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.MarketApi.Url)
	return &MarketApi{client: client, currency: cfg.API.MarketApi.Currency}
}

func (a *MarketApi) GetSpotPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	url := "/simple/price"
	params := map[string]string{
		"ids":           strings.ToLower(strings.Join(symbols, ",")),
		"vs_currencies": a.currency,
	}

	slog.Debug("start MarketApi.GetSpotPrices request", slog.String("rqID", rqID))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(url)

	if err != nil {
		slog.Error("error while dialing MarketApi", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	if resp.IsError() {
		slog.Error("MarketApi returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID))
		return nil, fmt.Errorf("market api status %d", resp.StatusCode())
	}

	rawPrices := map[string]map[string]json.Number{}
	err = json.Unmarshal(resp.Body(), &rawPrices)
	if err != nil {
		slog.Error("can't unmarshall MarketApi response", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	res, err := a.parseRawPrices(rawPrices, symbols)
	if err != nil {
		slog.Error("can't parse raw prices", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	slog.Debug("MarketApi.GetSpotPrices request complete", slog.String("rqID", rqID))

	return res, nil
}

func (a *MarketApi) GetSpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	prices, err := a.GetSpotPrices(ctx, []string{symbol})
	if err != nil {
		return decimal.Decimal{}, err
	}

	price, ok := prices[symbol]
	if !ok {
		return decimal.Decimal{}, externalApi.ErrNotFound
	}

	return price, nil
}

// parseRawPrices keys the result by the requested symbols; symbols the API
// does not know are simply absent.
func (a *MarketApi) parseRawPrices(rawPrices map[string]map[string]json.Number, symbols []string) (map[string]decimal.Decimal, error) {
	res := make(map[string]decimal.Decimal, len(rawPrices))

	for _, symbol := range symbols {
		quote, ok := rawPrices[strings.ToLower(symbol)]
		if !ok {
			continue
		}

		rawPrice, ok := quote[a.currency]
		if !ok {
			return nil, fmt.Errorf("no %s quote for symbol %s", a.currency, symbol)
		}

		price, err := decimal.NewFromString(rawPrice.String())
		if err != nil {
			return nil, fmt.Errorf("failed create decimal from price value = %s, err: %w", rawPrice.String(), err)
		}

		res[symbol] = price
	}

	return res, nil
}
