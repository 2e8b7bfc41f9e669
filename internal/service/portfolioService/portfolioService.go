package portfolioService

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/KotFed0t/crypto_portfolio_api/config"
	"github.com/KotFed0t/crypto_portfolio_api/data/repository"
	"github.com/KotFed0t/crypto_portfolio_api/internal/externalApi"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/KotFed0t/crypto_portfolio_api/internal/service"
	"github.com/KotFed0t/crypto_portfolio_api/utils"
	"github.com/shopspring/decimal"
)

type MarketApi interface {
	GetSpotPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
	GetSpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type Cache interface {
	GetPortfolioValuation(ctx context.Context, portfolioID int64) (model.PortfolioValuation, error)
	SetPortfolioValuation(ctx context.Context, portfolioID int64, valuation model.PortfolioValuation) error
	FlushPortfolioValuation(ctx context.Context, portfolioID int64) error
	SetSpotPrices(ctx context.Context, prices map[string]decimal.Decimal) error
	GetSpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type ReportGenerator interface {
	Generate(ctx context.Context, report model.PortfolioReport) (fileBytes []byte, fileExtension string, err error)
}

type Repository interface {
	CreatePortfolio(ctx context.Context, userID int64, name string, description *string) (portfolioID int64, err error)
	GetPortfolio(ctx context.Context, portfolioID int64) (portfolio model.Portfolio, err error)
	GetPortfoliosByUser(ctx context.Context, userID int64, limit, offset int) (portfolios []model.Portfolio, hasNextPage bool, err error)
	UpdatePortfolio(ctx context.Context, portfolioID int64, name, description *string) (err error)
	DeletePortfolio(ctx context.Context, portfolioID int64) (err error)

	CreateAsset(ctx context.Context, symbol, name string, description *string) (assetID int64, err error)
	GetAsset(ctx context.Context, assetID int64) (asset model.Asset, err error)
	GetAssets(ctx context.Context, limit, offset int) (assets []model.Asset, hasNextPage bool, err error)
	GetAllAssets(ctx context.Context) (assets []model.Asset, err error)
	UpdateAsset(ctx context.Context, assetID int64, symbol, name, description *string) (err error)
	DeleteAsset(ctx context.Context, assetID int64) (err error)

	CreateTransaction(ctx context.Context, tx model.Transaction) (transactionID int64, err error)
	GetTransaction(ctx context.Context, transactionID int64) (tx model.Transaction, err error)
	GetTransactionsByPortfolio(ctx context.Context, portfolioID int64) (txs []model.Transaction, err error)
	UpdateTransaction(ctx context.Context, transactionID int64, quantity, price *decimal.Decimal, side *string, executedAt *time.Time) (err error)
	DeleteTransaction(ctx context.Context, transactionID int64) (err error)

	CreatePricePoint(ctx context.Context, price model.PricePoint) (priceID int64, err error)
	InsertPricePoints(ctx context.Context, prices []model.PricePoint) (err error)
	GetPricesByAsset(ctx context.Context, assetID int64, from, to *time.Time) (prices []model.PricePoint, err error)
	GetLatestClosePrices(ctx context.Context, assetIDs []int64) (closes map[int64]decimal.Decimal, err error)
	DeletePricePoint(ctx context.Context, priceID int64) (err error)
}

type PortfolioService struct {
	cfg       *config.Config
	repo      Repository
	cache     Cache
	marketApi MarketApi
	reportGen ReportGenerator
}

func New(cfg *config.Config, repo Repository, cache Cache, marketApi MarketApi, reportGen ReportGenerator) *PortfolioService {
	return &PortfolioService{
		cfg:       cfg,
		repo:      repo,
		cache:     cache,
		marketApi: marketApi,
		reportGen: reportGen,
	}
}

func mapRepoErr(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return service.ErrNotFound
	case errors.Is(err, repository.ErrAlreadyExists):
		return service.ErrConflict
	}
	return err
}

// getOwnedPortfolio loads a portfolio and enforces that userID owns it.
func (s *PortfolioService) getOwnedPortfolio(ctx context.Context, portfolioID, userID int64) (model.Portfolio, error) {
	portfolio, err := s.repo.GetPortfolio(ctx, portfolioID)
	if err != nil {
		return model.Portfolio{}, mapRepoErr(err)
	}

	if portfolio.UserID != userID {
		return model.Portfolio{}, service.ErrForbidden
	}

	return portfolio, nil
}

func (s *PortfolioService) CreatePortfolio(ctx context.Context, userID int64, name string, description *string) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreatePortfolio"

	slog.Debug("CreatePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("CreatePortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("name", name), slog.Int64("userID", userID))
	}()

	portfolioID, err := s.repo.CreatePortfolio(ctx, userID, name, description)
	if err != nil {
		slog.Error("got error from repo.CreatePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, mapRepoErr(err)
	}

	return s.repo.GetPortfolio(ctx, portfolioID)
}

func (s *PortfolioService) GetPortfolio(ctx context.Context, portfolioID, userID int64) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetPortfolio"

	slog.Debug("GetPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		slog.Debug("GetPortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	return s.getOwnedPortfolio(ctx, portfolioID, userID)
}

func (s *PortfolioService) ListPortfolios(ctx context.Context, userID int64, limit, offset int) (portfolios []model.Portfolio, hasNextPage bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ListPortfolios"

	slog.Debug("ListPortfolios start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	defer func() {
		slog.Debug("ListPortfolios finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("userID", userID))
	}()

	portfolios, hasNextPage, err = s.repo.GetPortfoliosByUser(ctx, userID, limit, offset)
	if err != nil {
		slog.Error("got error from repo.GetPortfoliosByUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, false, err
	}

	return portfolios, hasNextPage, nil
}

func (s *PortfolioService) UpdatePortfolio(ctx context.Context, portfolioID, userID int64, name, description *string) (portfolio model.Portfolio, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdatePortfolio"

	slog.Debug("UpdatePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		slog.Debug("UpdatePortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	if _, err = s.getOwnedPortfolio(ctx, portfolioID, userID); err != nil {
		return model.Portfolio{}, err
	}

	err = s.repo.UpdatePortfolio(ctx, portfolioID, name, description)
	if err != nil {
		slog.Error("got error from repo.UpdatePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Portfolio{}, mapRepoErr(err)
	}

	return s.repo.GetPortfolio(ctx, portfolioID)
}

func (s *PortfolioService) DeletePortfolio(ctx context.Context, portfolioID, userID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeletePortfolio"

	slog.Debug("DeletePortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		slog.Debug("DeletePortfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	if _, err = s.getOwnedPortfolio(ctx, portfolioID, userID); err != nil {
		return err
	}

	err = s.repo.DeletePortfolio(ctx, portfolioID)
	if err != nil {
		slog.Error("got error from repo.DeletePortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return mapRepoErr(err)
	}

	// flushed synchronously so a follow-up valuation request can't see stale data
	if err := s.cache.FlushPortfolioValuation(ctx, portfolioID); err != nil {
		slog.Error("got error from cache.FlushPortfolioValuation", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return nil
}

// PortfolioValue prices every transaction at the latest close of its asset:
// buys add quantity x price, sells subtract. Assets with no price history
// contribute zero.
func (s *PortfolioService) PortfolioValue(ctx context.Context, portfolioID, userID int64) (valuation model.PortfolioValuation, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.PortfolioValue"

	slog.Debug("PortfolioValue start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		slog.Debug("PortfolioValue finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	if _, err = s.getOwnedPortfolio(ctx, portfolioID, userID); err != nil {
		return model.PortfolioValuation{}, err
	}

	valuation, err = s.cache.GetPortfolioValuation(ctx, portfolioID)
	if err == nil {
		return valuation, nil
	}

	slog.Warn("can't get portfolio valuation from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	valuation, err = s.computePortfolioValue(ctx, portfolioID)
	if err != nil {
		return model.PortfolioValuation{}, err
	}

	go s.cache.SetPortfolioValuation(context.WithoutCancel(ctx), portfolioID, valuation)

	return valuation, nil
}

func (s *PortfolioService) computePortfolioValue(ctx context.Context, portfolioID int64) (valuation model.PortfolioValuation, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.computePortfolioValue"

	txs, err := s.repo.GetTransactionsByPortfolio(ctx, portfolioID)
	if err != nil {
		slog.Error("got error from repo.GetTransactionsByPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioValuation{}, err
	}

	// net quantity per asset over all transactions
	quantities := make(map[int64]decimal.Decimal)
	assetIDs := make([]int64, 0)
	for _, tx := range txs {
		if _, ok := quantities[tx.AssetID]; !ok {
			assetIDs = append(assetIDs, tx.AssetID)
		}

		if tx.Side == model.SideSell {
			quantities[tx.AssetID] = quantities[tx.AssetID].Sub(tx.Quantity)
		} else {
			quantities[tx.AssetID] = quantities[tx.AssetID].Add(tx.Quantity)
		}
	}

	valuation = model.PortfolioValuation{
		PortfolioID: portfolioID,
		TotalValue:  decimal.Zero,
		Positions:   make([]model.Position, 0, len(assetIDs)),
	}

	if len(assetIDs) == 0 {
		return valuation, nil
	}

	closes, err := s.repo.GetLatestClosePrices(ctx, assetIDs)
	if err != nil {
		slog.Error("got error from repo.GetLatestClosePrices", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioValuation{}, err
	}

	for _, assetID := range assetIDs {
		position := model.Position{
			AssetID:  assetID,
			Quantity: quantities[assetID],
		}

		asset, err := s.repo.GetAsset(ctx, assetID)
		if err != nil {
			slog.Error("got error from repo.GetAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return model.PortfolioValuation{}, err
		}
		position.Symbol = asset.Symbol

		if lastPrice, ok := closes[assetID]; ok {
			position.LastPrice = lastPrice
			position.Value = position.Quantity.Mul(lastPrice)
		}

		valuation.TotalValue = valuation.TotalValue.Add(position.Value)
		valuation.Positions = append(valuation.Positions, position)
	}

	return valuation, nil
}

// AssetPerformance compares the earliest close at or after from with the
// latest close at or before to. A zero start price yields 0 pct (guards the
// division, it is not a no-data signal); an empty period is ErrNoPriceData.
func (s *PortfolioService) AssetPerformance(ctx context.Context, assetID int64, from, to time.Time) (perf model.AssetPerformance, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.AssetPerformance"

	slog.Debug("AssetPerformance start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", assetID))
	defer func() {
		slog.Debug("AssetPerformance finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", assetID))
	}()

	if _, err = s.repo.GetAsset(ctx, assetID); err != nil {
		return model.AssetPerformance{}, mapRepoErr(err)
	}

	prices, err := s.repo.GetPricesByAsset(ctx, assetID, &from, &to)
	if err != nil {
		slog.Error("got error from repo.GetPricesByAsset", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.AssetPerformance{}, err
	}

	if len(prices) == 0 {
		return model.AssetPerformance{}, service.ErrNoPriceData
	}

	perf = model.AssetPerformance{
		AssetID:    assetID,
		StartPrice: prices[0].Close,
		EndPrice:   prices[len(prices)-1].Close,
	}

	if !perf.StartPrice.IsZero() {
		perf.PerformancePct = perf.EndPrice.Sub(perf.StartPrice).
			Div(perf.StartPrice).
			Mul(decimal.NewFromInt(100))
	}

	return perf, nil
}

// GetSpotPrice serves the current market quote for an asset, cache first
// with a fallback to the market data API.
func (s *PortfolioService) GetSpotPrice(ctx context.Context, assetID int64) (symbol string, price decimal.Decimal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetSpotPrice"

	slog.Debug("GetSpotPrice start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", assetID))
	defer func() {
		slog.Debug("GetSpotPrice finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("assetID", assetID))
	}()

	asset, err := s.repo.GetAsset(ctx, assetID)
	if err != nil {
		return "", decimal.Decimal{}, mapRepoErr(err)
	}

	price, err = s.cache.GetSpotPrice(ctx, asset.Symbol)
	if err == nil {
		return asset.Symbol, price, nil
	}

	slog.Warn("can't get spot price from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	price, err = s.marketApi.GetSpotPrice(ctx, asset.Symbol)
	if err != nil {
		if errors.Is(err, externalApi.ErrNotFound) {
			slog.Warn("symbol not found in marketApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", asset.Symbol))
			return "", decimal.Decimal{}, service.ErrNotFound
		}
		slog.Error("can't get spot price from marketApi", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return "", decimal.Decimal{}, err
	}

	go s.cache.SetSpotPrices(context.WithoutCancel(ctx), map[string]decimal.Decimal{asset.Symbol: price})

	return asset.Symbol, price, nil
}

// GeneratePortfolioReport renders the portfolio, its valuation and its
// transaction history into a spreadsheet.
func (s *PortfolioService) GeneratePortfolioReport(ctx context.Context, portfolioID, userID int64) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GeneratePortfolioReport"

	slog.Debug("GeneratePortfolioReport start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		slog.Debug("GeneratePortfolioReport finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	portfolio, err := s.getOwnedPortfolio(ctx, portfolioID, userID)
	if err != nil {
		return nil, "", err
	}

	valuation, err := s.computePortfolioValue(ctx, portfolioID)
	if err != nil {
		return nil, "", err
	}

	txs, err := s.repo.GetTransactionsByPortfolio(ctx, portfolioID)
	if err != nil {
		slog.Error("got error from repo.GetTransactionsByPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	report := model.PortfolioReport{
		Portfolio:    portfolio,
		Valuation:    valuation,
		Transactions: txs,
	}

	fileBytes, fileExtension, err = s.reportGen.Generate(ctx, report)
	if err != nil {
		slog.Error("got error from reportGen.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	return fileBytes, fileExtension, nil
}

// SyncAssetPrices is the scheduled job body: fetch spot prices for every
// registered asset, append them to price history and warm the spot cache.
func (s *PortfolioService) SyncAssetPrices(ctx context.Context) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.SyncAssetPrices"

	slog.Debug("SyncAssetPrices start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("SyncAssetPrices finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	assets, err := s.repo.GetAllAssets(ctx)
	if err != nil {
		slog.Error("got error from repo.GetAllAssets", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if len(assets) == 0 {
		return nil
	}

	symbols := make([]string, 0, len(assets))
	for _, asset := range assets {
		symbols = append(symbols, asset.Symbol)
	}

	prices, err := s.marketApi.GetSpotPrices(ctx, symbols)
	if err != nil {
		slog.Error("got error from marketApi.GetSpotPrices", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	now := time.Now().UTC()
	points := make([]model.PricePoint, 0, len(prices))
	for _, asset := range assets {
		price, ok := prices[asset.Symbol]
		if !ok {
			slog.Warn("no spot price for symbol", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", asset.Symbol))
			continue
		}

		points = append(points, model.PricePoint{
			AssetID: asset.ID,
			Ts:      now,
			Open:    price,
			High:    price,
			Low:     price,
			Close:   price,
		})
	}

	if err = s.repo.InsertPricePoints(ctx, points); err != nil {
		slog.Error("got error from repo.InsertPricePoints", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if err := s.cache.SetSpotPrices(ctx, prices); err != nil {
		slog.Error("got error from cache.SetSpotPrices", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return nil
}
