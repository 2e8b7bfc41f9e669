package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/KotFed0t/crypto_portfolio_api/config"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/KotFed0t/crypto_portfolio_api/utils"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func valuationKey(portfolioID int64) string {
	return fmt.Sprintf("portfolio:%d:valuation", portfolioID)
}

func spotPriceKey(symbol string) string {
	return fmt.Sprintf("spot:%s", symbol)
}

func (r *RedisCache) GetPortfolioValuation(ctx context.Context, portfolioID int64) (model.PortfolioValuation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetPortfolioValuation start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, valuationKey(portfolioID)).Result()
	if err != nil {
		return model.PortfolioValuation{}, err
	}

	valuation := model.PortfolioValuation{}
	err = json.Unmarshal([]byte(res), &valuation)
	if err != nil {
		slog.Error(
			"can't unmarshall valuation in GetPortfolioValuation",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.PortfolioValuation{}, errors.New("can't unmarshall valuation")
	}

	slog.Debug("GetPortfolioValuation finished", slog.String("rqID", rqID))

	return valuation, nil
}

func (r *RedisCache) SetPortfolioValuation(ctx context.Context, portfolioID int64, valuation model.PortfolioValuation) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetPortfolioValuation start", slog.String("rqID", rqID))

	valuationJson, err := json.Marshal(valuation)
	if err != nil {
		slog.Error(
			"can't marshall valuation in SetPortfolioValuation",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.Any("valuation", valuation),
		)
		return errors.New("can't marshall valuation")
	}

	err = r.redis.Set(ctx, valuationKey(portfolioID), valuationJson, r.cfg.Cache.ValuationExpiration).Err()
	if err != nil {
		slog.Error("failed on redis.Set", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetPortfolioValuation completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) FlushPortfolioValuation(ctx context.Context, portfolioID int64) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("FlushPortfolioValuation start", slog.String("rqID", rqID))

	err := r.redis.Del(ctx, valuationKey(portfolioID)).Err()
	if err != nil {
		slog.Error("failed on redis.Del", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("FlushPortfolioValuation completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) SetSpotPrices(ctx context.Context, prices map[string]decimal.Decimal) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetSpotPrices start", slog.String("rqID", rqID))

	pipe := r.redis.Pipeline()
	for symbol, price := range prices {
		pipe.Set(ctx, spotPriceKey(symbol), price.String(), r.cfg.Cache.PricesExpiration)
	}

	_, err := pipe.Exec(ctx)
	if err != nil {
		slog.Error("failed on pipe.Exec", slog.String("rqID", rqID), slog.String("err", err.Error()))
		return err
	}

	slog.Debug("SetSpotPrices completed", slog.String("rqID", rqID))

	return nil
}

func (r *RedisCache) GetSpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetSpotPrice start", slog.String("rqID", rqID))

	res, err := r.redis.Get(ctx, spotPriceKey(symbol)).Result()
	if err != nil {
		return decimal.Decimal{}, err
	}

	price, err := decimal.NewFromString(res)
	if err != nil {
		slog.Error(
			"can't parse spot price in GetSpotPrice",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return decimal.Decimal{}, errors.New("can't parse spot price")
	}

	slog.Debug("GetSpotPrice finished", slog.String("rqID", rqID))

	return price, nil
}
