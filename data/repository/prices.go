package repository

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/KotFed0t/crypto_portfolio_api/internal/converter/dbConverter"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model/dbModel"
	"github.com/KotFed0t/crypto_portfolio_api/utils"
	"github.com/shopspring/decimal"
)

func (r *Postgres) CreatePricePoint(ctx context.Context, price model.PricePoint) (priceID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CreatePricePoint"
	query := `
		INSERT INTO price_history(asset_id, ts, open, high, low, close, volume)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING price_id
	`

	slog.Debug("CreatePricePoint start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CreatePricePoint failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreatePricePoint completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.db.QueryRowContext(
		ctx,
		query,
		price.AssetID,
		price.Ts,
		price.Open,
		price.High,
		price.Low,
		price.Close,
		price.Volume,
	).Scan(&priceID)

	if err != nil {
		return 0, mapPgErr(err)
	}

	return priceID, nil
}

// InsertPricePoints appends a batch of price points in a single statement,
// used by the price sync job.
func (r *Postgres) InsertPricePoints(ctx context.Context, prices []model.PricePoint) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertPricePoints"

	slog.Debug("InsertPricePoints start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(prices)))
	defer func() {
		if err != nil {
			slog.Error("InsertPricePoints failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertPricePoints completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	if len(prices) == 0 {
		return nil
	}

	sb := strings.Builder{}
	args := make([]any, 0, len(prices)*7)

	sb.WriteString(`INSERT INTO price_history (asset_id, ts, open, high, low, close, volume) VALUES `)

	for i, price := range prices {
		args = append(args, price.AssetID, price.Ts, price.Open, price.High, price.Low, price.Close, price.Volume)

		start := i*7 + 1
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			start, start+1, start+2, start+3, start+4, start+5, start+6,
		))

		if i < len(prices)-1 {
			sb.WriteString(",")
		}
	}

	_, err = r.db.ExecContext(ctx, sb.String(), args...)
	if err != nil {
		return mapPgErr(err)
	}

	return nil
}

func (r *Postgres) GetPricesByAsset(ctx context.Context, assetID int64, from, to *time.Time) (prices []model.PricePoint, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPricesByAsset"
	params := map[string]any{
		"assetID": assetID,
		"from":    from,
		"to":      to,
	}
	query := `
		SELECT price_id, asset_id, ts, open, high, low, close, volume
		FROM price_history
		WHERE asset_id = $1
		AND ($2::timestamptz IS NULL OR ts >= $2)
		AND ($3::timestamptz IS NULL OR ts <= $3)
		ORDER BY ts
	`

	slog.Debug("GetPricesByAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("GetPricesByAsset failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetPricesByAsset completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.db.QueryxContext(ctx, query, assetID, from, to)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbPrice dbModel.PricePoint
		err = rows.StructScan(&dbPrice)
		if err != nil {
			return nil, err
		}
		prices = append(prices, dbConverter.ConvertPricePoint(dbPrice))
	}

	return prices, nil
}

// GetLatestClosePrices returns the close price of the most recent price point
// per asset. Assets without price history are absent from the result.
// Ties on ts are broken arbitrarily.
func (r *Postgres) GetLatestClosePrices(ctx context.Context, assetIDs []int64) (closes map[int64]decimal.Decimal, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetLatestClosePrices"
	query := `
		SELECT DISTINCT ON (asset_id) asset_id, close
		FROM price_history
		WHERE asset_id = ANY($1)
		ORDER BY asset_id, ts DESC
	`

	slog.Debug("GetLatestClosePrices start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("assetIDs", assetIDs))
	defer func() {
		if err != nil {
			slog.Error("GetLatestClosePrices failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetLatestClosePrices completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.db.QueryxContext(ctx, query, assetIDs)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	closes = make(map[int64]decimal.Decimal, len(assetIDs))
	for rows.Next() {
		var assetID int64
		var closePrice decimal.Decimal
		if err = rows.Scan(&assetID, &closePrice); err != nil {
			return nil, err
		}
		closes[assetID] = closePrice
	}

	return closes, nil
}

func (r *Postgres) DeletePricePoint(ctx context.Context, priceID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeletePricePoint"
	query := `DELETE FROM price_history WHERE price_id = $1`

	slog.Debug("DeletePricePoint start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeletePricePoint failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeletePricePoint completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.db.ExecContext(ctx, query, priceID)
	if err != nil {
		return mapPgErr(err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}
