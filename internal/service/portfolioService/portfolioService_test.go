package portfolioService

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/KotFed0t/crypto_portfolio_api/config"
	"github.com/KotFed0t/crypto_portfolio_api/data/repository"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/KotFed0t/crypto_portfolio_api/internal/service"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type repoStub struct {
	createPortfolioFn     func(ctx context.Context, userID int64, name string, description *string) (int64, error)
	getPortfolioFn        func(ctx context.Context, portfolioID int64) (model.Portfolio, error)
	getPortfoliosByUserFn func(ctx context.Context, userID int64, limit, offset int) ([]model.Portfolio, bool, error)
	updatePortfolioFn     func(ctx context.Context, portfolioID int64, name, description *string) error
	deletePortfolioFn     func(ctx context.Context, portfolioID int64) error

	createAssetFn  func(ctx context.Context, symbol, name string, description *string) (int64, error)
	getAssetFn     func(ctx context.Context, assetID int64) (model.Asset, error)
	getAssetsFn    func(ctx context.Context, limit, offset int) ([]model.Asset, bool, error)
	getAllAssetsFn func(ctx context.Context) ([]model.Asset, error)
	updateAssetFn  func(ctx context.Context, assetID int64, symbol, name, description *string) error
	deleteAssetFn  func(ctx context.Context, assetID int64) error

	createTransactionFn          func(ctx context.Context, tx model.Transaction) (int64, error)
	getTransactionFn             func(ctx context.Context, transactionID int64) (model.Transaction, error)
	getTransactionsByPortfolioFn func(ctx context.Context, portfolioID int64) ([]model.Transaction, error)
	updateTransactionFn          func(ctx context.Context, transactionID int64, quantity, price *decimal.Decimal, side *string, executedAt *time.Time) error
	deleteTransactionFn          func(ctx context.Context, transactionID int64) error

	createPricePointFn     func(ctx context.Context, price model.PricePoint) (int64, error)
	insertPricePointsFn    func(ctx context.Context, prices []model.PricePoint) error
	getPricesByAssetFn     func(ctx context.Context, assetID int64, from, to *time.Time) ([]model.PricePoint, error)
	getLatestClosePricesFn func(ctx context.Context, assetIDs []int64) (map[int64]decimal.Decimal, error)
	deletePricePointFn     func(ctx context.Context, priceID int64) error
}

func (s *repoStub) CreatePortfolio(ctx context.Context, userID int64, name string, description *string) (int64, error) {
	return s.createPortfolioFn(ctx, userID, name, description)
}

func (s *repoStub) GetPortfolio(ctx context.Context, portfolioID int64) (model.Portfolio, error) {
	return s.getPortfolioFn(ctx, portfolioID)
}

func (s *repoStub) GetPortfoliosByUser(ctx context.Context, userID int64, limit, offset int) ([]model.Portfolio, bool, error) {
	return s.getPortfoliosByUserFn(ctx, userID, limit, offset)
}

func (s *repoStub) UpdatePortfolio(ctx context.Context, portfolioID int64, name, description *string) error {
	return s.updatePortfolioFn(ctx, portfolioID, name, description)
}

func (s *repoStub) DeletePortfolio(ctx context.Context, portfolioID int64) error {
	return s.deletePortfolioFn(ctx, portfolioID)
}

func (s *repoStub) CreateAsset(ctx context.Context, symbol, name string, description *string) (int64, error) {
	return s.createAssetFn(ctx, symbol, name, description)
}

func (s *repoStub) GetAsset(ctx context.Context, assetID int64) (model.Asset, error) {
	return s.getAssetFn(ctx, assetID)
}

func (s *repoStub) GetAssets(ctx context.Context, limit, offset int) ([]model.Asset, bool, error) {
	return s.getAssetsFn(ctx, limit, offset)
}

func (s *repoStub) GetAllAssets(ctx context.Context) ([]model.Asset, error) {
	return s.getAllAssetsFn(ctx)
}

func (s *repoStub) UpdateAsset(ctx context.Context, assetID int64, symbol, name, description *string) error {
	return s.updateAssetFn(ctx, assetID, symbol, name, description)
}

func (s *repoStub) DeleteAsset(ctx context.Context, assetID int64) error {
	return s.deleteAssetFn(ctx, assetID)
}

func (s *repoStub) CreateTransaction(ctx context.Context, tx model.Transaction) (int64, error) {
	return s.createTransactionFn(ctx, tx)
}

func (s *repoStub) GetTransaction(ctx context.Context, transactionID int64) (model.Transaction, error) {
	return s.getTransactionFn(ctx, transactionID)
}

func (s *repoStub) GetTransactionsByPortfolio(ctx context.Context, portfolioID int64) ([]model.Transaction, error) {
	return s.getTransactionsByPortfolioFn(ctx, portfolioID)
}

func (s *repoStub) UpdateTransaction(ctx context.Context, transactionID int64, quantity, price *decimal.Decimal, side *string, executedAt *time.Time) error {
	return s.updateTransactionFn(ctx, transactionID, quantity, price, side, executedAt)
}

func (s *repoStub) DeleteTransaction(ctx context.Context, transactionID int64) error {
	return s.deleteTransactionFn(ctx, transactionID)
}

func (s *repoStub) CreatePricePoint(ctx context.Context, price model.PricePoint) (int64, error) {
	return s.createPricePointFn(ctx, price)
}

func (s *repoStub) InsertPricePoints(ctx context.Context, prices []model.PricePoint) error {
	return s.insertPricePointsFn(ctx, prices)
}

func (s *repoStub) GetPricesByAsset(ctx context.Context, assetID int64, from, to *time.Time) ([]model.PricePoint, error) {
	return s.getPricesByAssetFn(ctx, assetID, from, to)
}

func (s *repoStub) GetLatestClosePrices(ctx context.Context, assetIDs []int64) (map[int64]decimal.Decimal, error) {
	return s.getLatestClosePricesFn(ctx, assetIDs)
}

func (s *repoStub) DeletePricePoint(ctx context.Context, priceID int64) error {
	return s.deletePricePointFn(ctx, priceID)
}

// cacheStub always misses unless configured otherwise and records flushes.
type cacheStub struct {
	mu             sync.Mutex
	flushedIDs     []int64
	spotPrices     map[string]decimal.Decimal
	getValuationFn func(ctx context.Context, portfolioID int64) (model.PortfolioValuation, error)
}

func (s *cacheStub) GetPortfolioValuation(ctx context.Context, portfolioID int64) (model.PortfolioValuation, error) {
	if s.getValuationFn != nil {
		return s.getValuationFn(ctx, portfolioID)
	}
	return model.PortfolioValuation{}, errors.New("cache miss")
}

func (s *cacheStub) SetPortfolioValuation(_ context.Context, _ int64, _ model.PortfolioValuation) error {
	return nil
}

func (s *cacheStub) FlushPortfolioValuation(_ context.Context, portfolioID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushedIDs = append(s.flushedIDs, portfolioID)
	return nil
}

func (s *cacheStub) SetSpotPrices(_ context.Context, prices map[string]decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.spotPrices == nil {
		s.spotPrices = make(map[string]decimal.Decimal)
	}
	for symbol, price := range prices {
		s.spotPrices[symbol] = price
	}
	return nil
}

func (s *cacheStub) GetSpotPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	price, ok := s.spotPrices[symbol]
	if !ok {
		return decimal.Decimal{}, errors.New("cache miss")
	}
	return price, nil
}

type marketApiStub struct {
	getSpotPricesFn func(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error)
	getSpotPriceFn  func(ctx context.Context, symbol string) (decimal.Decimal, error)
}

func (s *marketApiStub) GetSpotPrices(ctx context.Context, symbols []string) (map[string]decimal.Decimal, error) {
	return s.getSpotPricesFn(ctx, symbols)
}

func (s *marketApiStub) GetSpotPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	return s.getSpotPriceFn(ctx, symbol)
}

type reportGenStub struct{}

func (reportGenStub) Generate(_ context.Context, _ model.PortfolioReport) ([]byte, string, error) {
	return []byte("report"), ".xlsx", nil
}

func newTestService(repo *repoStub, cache *cacheStub, marketApi *marketApiStub) *PortfolioService {
	if cache == nil {
		cache = &cacheStub{}
	}
	if marketApi == nil {
		marketApi = &marketApiStub{}
	}
	return New(&config.Config{}, repo, cache, marketApi, reportGenStub{})
}

func ownedPortfolioRepo(portfolioID, userID int64) *repoStub {
	return &repoStub{
		getPortfolioFn: func(_ context.Context, id int64) (model.Portfolio, error) {
			if id != portfolioID {
				return model.Portfolio{}, repository.ErrNotFound
			}
			return model.Portfolio{ID: portfolioID, UserID: userID, Name: "main"}, nil
		},
	}
}

func TestPortfolioValue(t *testing.T) {
	repo := ownedPortfolioRepo(1, 7)
	repo.getTransactionsByPortfolioFn = func(_ context.Context, _ int64) ([]model.Transaction, error) {
		return []model.Transaction{
			{ID: 1, PortfolioID: 1, AssetID: 10, Quantity: decimal.NewFromInt(2), Side: model.SideBuy},
		}, nil
	}
	repo.getLatestClosePricesFn = func(_ context.Context, assetIDs []int64) (map[int64]decimal.Decimal, error) {
		assert.Equal(t, []int64{10}, assetIDs)
		return map[int64]decimal.Decimal{10: decimal.NewFromInt(100)}, nil
	}
	repo.getAssetFn = func(_ context.Context, assetID int64) (model.Asset, error) {
		return model.Asset{ID: assetID, Symbol: "btc"}, nil
	}

	srv := newTestService(repo, nil, nil)

	valuation, err := srv.PortfolioValue(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, valuation.TotalValue.Equal(decimal.NewFromInt(200)), "got %s", valuation.TotalValue)
	require.Len(t, valuation.Positions, 1)
	assert.True(t, valuation.Positions[0].Quantity.Equal(decimal.NewFromInt(2)))
	assert.Equal(t, "btc", valuation.Positions[0].Symbol)
}

func TestPortfolioValueSellReducesPosition(t *testing.T) {
	repo := ownedPortfolioRepo(1, 7)
	repo.getTransactionsByPortfolioFn = func(_ context.Context, _ int64) ([]model.Transaction, error) {
		return []model.Transaction{
			{ID: 1, PortfolioID: 1, AssetID: 10, Quantity: decimal.NewFromInt(2), Side: model.SideBuy},
			{ID: 2, PortfolioID: 1, AssetID: 10, Quantity: decimal.NewFromInt(1), Side: model.SideSell},
		}, nil
	}
	repo.getLatestClosePricesFn = func(_ context.Context, _ []int64) (map[int64]decimal.Decimal, error) {
		return map[int64]decimal.Decimal{10: decimal.NewFromInt(100)}, nil
	}
	repo.getAssetFn = func(_ context.Context, assetID int64) (model.Asset, error) {
		return model.Asset{ID: assetID, Symbol: "btc"}, nil
	}

	valuation, err := newTestService(repo, nil, nil).PortfolioValue(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, valuation.TotalValue.Equal(decimal.NewFromInt(100)), "got %s", valuation.TotalValue)
}

func TestPortfolioValueMissingPriceCountsAsZero(t *testing.T) {
	repo := ownedPortfolioRepo(1, 7)
	repo.getTransactionsByPortfolioFn = func(_ context.Context, _ int64) ([]model.Transaction, error) {
		return []model.Transaction{
			{ID: 1, PortfolioID: 1, AssetID: 10, Quantity: decimal.NewFromInt(2), Side: model.SideBuy},
			{ID: 2, PortfolioID: 1, AssetID: 11, Quantity: decimal.NewFromInt(5), Side: model.SideBuy},
		}, nil
	}
	repo.getLatestClosePricesFn = func(_ context.Context, _ []int64) (map[int64]decimal.Decimal, error) {
		return map[int64]decimal.Decimal{10: decimal.NewFromInt(100)}, nil
	}
	repo.getAssetFn = func(_ context.Context, assetID int64) (model.Asset, error) {
		return model.Asset{ID: assetID, Symbol: "sym"}, nil
	}

	valuation, err := newTestService(repo, nil, nil).PortfolioValue(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, valuation.TotalValue.Equal(decimal.NewFromInt(200)), "got %s", valuation.TotalValue)
	require.Len(t, valuation.Positions, 2)
	assert.True(t, valuation.Positions[1].Value.IsZero())
}

func TestPortfolioValueEmptyPortfolio(t *testing.T) {
	repo := ownedPortfolioRepo(1, 7)
	repo.getTransactionsByPortfolioFn = func(_ context.Context, _ int64) ([]model.Transaction, error) {
		return nil, nil
	}

	valuation, err := newTestService(repo, nil, nil).PortfolioValue(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, valuation.TotalValue.IsZero())
	assert.Empty(t, valuation.Positions)
}

func TestPortfolioValueForbiddenForOtherUser(t *testing.T) {
	repo := ownedPortfolioRepo(1, 7)

	_, err := newTestService(repo, nil, nil).PortfolioValue(context.Background(), 1, 99)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestPortfolioValueServedFromCache(t *testing.T) {
	repo := ownedPortfolioRepo(1, 7)
	cached := model.PortfolioValuation{PortfolioID: 1, TotalValue: decimal.NewFromInt(500)}
	cache := &cacheStub{
		getValuationFn: func(_ context.Context, _ int64) (model.PortfolioValuation, error) {
			return cached, nil
		},
	}

	valuation, err := newTestService(repo, cache, nil).PortfolioValue(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.True(t, valuation.TotalValue.Equal(decimal.NewFromInt(500)))
}

func TestUpdatePortfolioPartial(t *testing.T) {
	repo := ownedPortfolioRepo(1, 7)

	var gotName, gotDescription *string
	repo.updatePortfolioFn = func(_ context.Context, portfolioID int64, name, description *string) error {
		assert.Equal(t, int64(1), portfolioID)
		gotName, gotDescription = name, description
		return nil
	}

	name := "renamed"
	_, err := newTestService(repo, nil, nil).UpdatePortfolio(context.Background(), 1, 7, &name, nil)
	require.NoError(t, err)

	require.NotNil(t, gotName)
	assert.Equal(t, "renamed", *gotName)
	// description stays untouched in storage when not provided
	assert.Nil(t, gotDescription)
}

func TestAssetPerformance(t *testing.T) {
	repo := &repoStub{
		getAssetFn: func(_ context.Context, assetID int64) (model.Asset, error) {
			return model.Asset{ID: assetID, Symbol: "btc"}, nil
		},
		getPricesByAssetFn: func(_ context.Context, _ int64, _, _ *time.Time) ([]model.PricePoint, error) {
			return []model.PricePoint{
				{Close: decimal.NewFromInt(100)},
				{Close: decimal.NewFromInt(80)},
				{Close: decimal.NewFromInt(150)},
			}, nil
		},
	}

	perf, err := newTestService(repo, nil, nil).AssetPerformance(context.Background(), 10, time.Time{}, time.Now())
	require.NoError(t, err)
	assert.True(t, perf.StartPrice.Equal(decimal.NewFromInt(100)))
	assert.True(t, perf.EndPrice.Equal(decimal.NewFromInt(150)))
	assert.True(t, perf.PerformancePct.Equal(decimal.NewFromInt(50)), "got %s", perf.PerformancePct)
}

func TestAssetPerformanceZeroStartPrice(t *testing.T) {
	repo := &repoStub{
		getAssetFn: func(_ context.Context, assetID int64) (model.Asset, error) {
			return model.Asset{ID: assetID}, nil
		},
		getPricesByAssetFn: func(_ context.Context, _ int64, _, _ *time.Time) ([]model.PricePoint, error) {
			return []model.PricePoint{
				{Close: decimal.Zero},
				{Close: decimal.NewFromInt(150)},
			}, nil
		},
	}

	perf, err := newTestService(repo, nil, nil).AssetPerformance(context.Background(), 10, time.Time{}, time.Now())
	require.NoError(t, err)
	assert.True(t, perf.PerformancePct.IsZero())
}

func TestAssetPerformanceNoData(t *testing.T) {
	repo := &repoStub{
		getAssetFn: func(_ context.Context, assetID int64) (model.Asset, error) {
			return model.Asset{ID: assetID}, nil
		},
		getPricesByAssetFn: func(_ context.Context, _ int64, _, _ *time.Time) ([]model.PricePoint, error) {
			return nil, nil
		},
	}

	_, err := newTestService(repo, nil, nil).AssetPerformance(context.Background(), 10, time.Time{}, time.Now())
	assert.ErrorIs(t, err, service.ErrNoPriceData)
}

func TestAssetPerformanceUnknownAsset(t *testing.T) {
	repo := &repoStub{
		getAssetFn: func(_ context.Context, _ int64) (model.Asset, error) {
			return model.Asset{}, repository.ErrNotFound
		},
	}

	_, err := newTestService(repo, nil, nil).AssetPerformance(context.Background(), 10, time.Time{}, time.Now())
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestCreateTransaction(t *testing.T) {
	repo := ownedPortfolioRepo(1, 7)
	repo.createTransactionFn = func(_ context.Context, tx model.Transaction) (int64, error) {
		assert.False(t, tx.ExecutedAt.IsZero())
		return 33, nil
	}
	cache := &cacheStub{}

	tx := model.Transaction{
		PortfolioID: 1,
		AssetID:     10,
		Quantity:    decimal.NewFromInt(2),
		Price:       decimal.NewFromInt(100),
		Side:        model.SideBuy,
	}

	created, err := newTestService(repo, cache, nil).CreateTransaction(context.Background(), 7, tx)
	require.NoError(t, err)
	assert.Equal(t, int64(33), created.ID)
	assert.Equal(t, []int64{1}, cache.flushedIDs)
}

func TestCreateTransactionInvalidSide(t *testing.T) {
	repo := ownedPortfolioRepo(1, 7)

	tx := model.Transaction{PortfolioID: 1, AssetID: 10, Quantity: decimal.NewFromInt(1), Side: "hold"}

	_, err := newTestService(repo, nil, nil).CreateTransaction(context.Background(), 7, tx)
	assert.ErrorIs(t, err, service.ErrInvalidSide)
}

func TestCreateTransactionForeignPortfolio(t *testing.T) {
	repo := ownedPortfolioRepo(1, 7)

	tx := model.Transaction{PortfolioID: 1, AssetID: 10, Quantity: decimal.NewFromInt(1), Side: model.SideBuy}

	_, err := newTestService(repo, nil, nil).CreateTransaction(context.Background(), 99, tx)
	assert.ErrorIs(t, err, service.ErrForbidden)
}

func TestUpdateTransactionInvalidSide(t *testing.T) {
	repo := ownedPortfolioRepo(1, 7)

	side := "hold"
	_, err := newTestService(repo, nil, nil).UpdateTransaction(context.Background(), 33, 7, nil, nil, &side, nil)
	assert.ErrorIs(t, err, service.ErrInvalidSide)
}

func TestDeleteTransaction(t *testing.T) {
	repo := ownedPortfolioRepo(1, 7)
	repo.getTransactionFn = func(_ context.Context, transactionID int64) (model.Transaction, error) {
		if transactionID != 33 {
			return model.Transaction{}, repository.ErrNotFound
		}
		return model.Transaction{ID: 33, PortfolioID: 1}, nil
	}
	repo.deleteTransactionFn = func(_ context.Context, _ int64) error {
		return nil
	}
	cache := &cacheStub{}
	srv := newTestService(repo, cache, nil)

	require.NoError(t, srv.DeleteTransaction(context.Background(), 33, 7))
	assert.Equal(t, []int64{1}, cache.flushedIDs)

	assert.ErrorIs(t, srv.DeleteTransaction(context.Background(), 99, 7), service.ErrNotFound)
}

func TestGetSpotPrice(t *testing.T) {
	repo := &repoStub{
		getAssetFn: func(_ context.Context, assetID int64) (model.Asset, error) {
			return model.Asset{ID: assetID, Symbol: "btc"}, nil
		},
	}

	t.Run("cache hit skips market api", func(t *testing.T) {
		cache := &cacheStub{spotPrices: map[string]decimal.Decimal{"btc": decimal.NewFromInt(50000)}}
		marketApi := &marketApiStub{
			getSpotPriceFn: func(_ context.Context, _ string) (decimal.Decimal, error) {
				t.Fatal("market api must not be called on cache hit")
				return decimal.Decimal{}, nil
			},
		}

		symbol, price, err := newTestService(repo, cache, marketApi).GetSpotPrice(context.Background(), 10)
		require.NoError(t, err)
		assert.Equal(t, "btc", symbol)
		assert.True(t, price.Equal(decimal.NewFromInt(50000)))
	})

	t.Run("cache miss falls back to market api", func(t *testing.T) {
		marketApi := &marketApiStub{
			getSpotPriceFn: func(_ context.Context, symbol string) (decimal.Decimal, error) {
				assert.Equal(t, "btc", symbol)
				return decimal.NewFromInt(51000), nil
			},
		}

		_, price, err := newTestService(repo, &cacheStub{}, marketApi).GetSpotPrice(context.Background(), 10)
		require.NoError(t, err)
		assert.True(t, price.Equal(decimal.NewFromInt(51000)))
	})
}

func TestSyncAssetPrices(t *testing.T) {
	var inserted []model.PricePoint
	repo := &repoStub{
		getAllAssetsFn: func(_ context.Context) ([]model.Asset, error) {
			return []model.Asset{
				{ID: 10, Symbol: "btc"},
				{ID: 11, Symbol: "eth"},
			}, nil
		},
		insertPricePointsFn: func(_ context.Context, prices []model.PricePoint) error {
			inserted = prices
			return nil
		},
	}
	marketApi := &marketApiStub{
		getSpotPricesFn: func(_ context.Context, symbols []string) (map[string]decimal.Decimal, error) {
			assert.ElementsMatch(t, []string{"btc", "eth"}, symbols)
			return map[string]decimal.Decimal{"btc": decimal.NewFromInt(50000)}, nil
		},
	}
	cache := &cacheStub{}

	require.NoError(t, newTestService(repo, cache, marketApi).SyncAssetPrices(context.Background()))

	// eth had no quote, only btc gets a price point
	require.Len(t, inserted, 1)
	assert.Equal(t, int64(10), inserted[0].AssetID)
	assert.True(t, inserted[0].Close.Equal(decimal.NewFromInt(50000)))
	assert.True(t, inserted[0].Open.Equal(inserted[0].Close))

	price, err := cache.GetSpotPrice(context.Background(), "btc")
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(50000)))
}

func TestGeneratePortfolioReport(t *testing.T) {
	repo := ownedPortfolioRepo(1, 7)
	repo.getTransactionsByPortfolioFn = func(_ context.Context, _ int64) ([]model.Transaction, error) {
		return nil, nil
	}

	fileBytes, ext, err := newTestService(repo, nil, nil).GeneratePortfolioReport(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, ".xlsx", ext)
	assert.NotEmpty(t, fileBytes)
}
