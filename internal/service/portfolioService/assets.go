package portfolioService

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/KotFed0t/crypto_portfolio_api/utils"
)

func (s *PortfolioService) CreateAsset(ctx context.Context, symbol, name string, description *string) (asset model.Asset, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreateAsset"

	slog.Debug("CreateAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	defer func() {
		slog.Debug("CreateAsset finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
	}()

	assetID, err := s.repo.CreateAsset(ctx, symbol, name, description)
	if err != nil {
		slog.Error("got error from repo.CreateAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Asset{}, mapRepoErr(err)
	}

	return s.repo.GetAsset(ctx, assetID)
}

func (s *PortfolioService) GetAsset(ctx context.Context, assetID int64) (asset model.Asset, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetAsset"

	slog.Debug("GetAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", assetID))
	defer func() {
		slog.Debug("GetAsset finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", assetID))
	}()

	asset, err = s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return model.Asset{}, mapRepoErr(err)
	}

	return asset, nil
}

func (s *PortfolioService) ListAssets(ctx context.Context, limit, offset int) (assets []model.Asset, hasNextPage bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ListAssets"

	slog.Debug("ListAssets start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ListAssets finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	assets, hasNextPage, err = s.repo.GetAssets(ctx, limit, offset)
	if err != nil {
		slog.Error("got error from repo.GetAssets", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, false, err
	}

	return assets, hasNextPage, nil
}

func (s *PortfolioService) UpdateAsset(ctx context.Context, assetID int64, symbol, name, description *string) (asset model.Asset, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdateAsset"

	slog.Debug("UpdateAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", assetID))
	defer func() {
		slog.Debug("UpdateAsset finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", assetID))
	}()

	err = s.repo.UpdateAsset(ctx, assetID, symbol, name, description)
	if err != nil {
		slog.Error("got error from repo.UpdateAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Asset{}, mapRepoErr(err)
	}

	return s.repo.GetAsset(ctx, assetID)
}

func (s *PortfolioService) DeleteAsset(ctx context.Context, assetID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteAsset"

	slog.Debug("DeleteAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", assetID))
	defer func() {
		slog.Debug("DeleteAsset finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", assetID))
	}()

	err = s.repo.DeleteAsset(ctx, assetID)
	if err != nil {
		slog.Error("got error from repo.DeleteAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return mapRepoErr(err)
	}

	return nil
}

func (s *PortfolioService) AddPricePoint(ctx context.Context, price model.PricePoint) (created model.PricePoint, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.AddPricePoint"

	slog.Debug("AddPricePoint start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", price.AssetID))
	defer func() {
		slog.Debug("AddPricePoint finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", price.AssetID))
	}()

	if price.Ts.IsZero() {
		price.Ts = time.Now().UTC()
	}

	priceID, err := s.repo.CreatePricePoint(ctx, price)
	if err != nil {
		slog.Error("got error from repo.CreatePricePoint", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PricePoint{}, mapRepoErr(err)
	}

	price.ID = priceID
	return price, nil
}

func (s *PortfolioService) GetAssetPrices(ctx context.Context, assetID int64, from, to *time.Time) (prices []model.PricePoint, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetAssetPrices"

	slog.Debug("GetAssetPrices start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", assetID))
	defer func() {
		slog.Debug("GetAssetPrices finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", assetID))
	}()

	if _, err = s.repo.GetAsset(ctx, assetID); err != nil {
		return nil, mapRepoErr(err)
	}

	prices, err = s.repo.GetPricesByAsset(ctx, assetID, from, to)
	if err != nil {
		slog.Error("got error from repo.GetPricesByAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return prices, nil
}

func (s *PortfolioService) DeletePricePoint(ctx context.Context, priceID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeletePricePoint"

	slog.Debug("DeletePricePoint start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("priceID", priceID))
	defer func() {
		slog.Debug("DeletePricePoint finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("priceID", priceID))
	}()

	err = s.repo.DeletePricePoint(ctx, priceID)
	if err != nil {
		slog.Error("got error from repo.DeletePricePoint", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return mapRepoErr(err)
	}

	return nil
}
