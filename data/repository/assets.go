package repository

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/crypto_portfolio_api/internal/converter/dbConverter"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model/dbModel"
	"github.com/KotFed0t/crypto_portfolio_api/utils"
)

func (r *Postgres) CreateAsset(ctx context.Context, symbol, name string, description *string) (assetID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CreateAsset"
	query := `INSERT INTO assets(symbol, name, description) VALUES($1, $2, $3) RETURNING asset_id`

	slog.Debug("CreateAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("CreateAsset failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreateAsset completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.db.QueryRowContext(ctx, query, symbol, name, description).Scan(&assetID)
	if err != nil {
		return 0, mapPgErr(err)
	}

	return assetID, nil
}

func (r *Postgres) GetAsset(ctx context.Context, assetID int64) (asset model.Asset, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetAsset"
	query := `SELECT asset_id, symbol, name, description, created_at FROM assets WHERE asset_id = $1`

	slog.Debug("GetAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAsset failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAsset completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbAsset := dbModel.Asset{}
	err = r.db.QueryRowxContext(ctx, query, assetID).StructScan(&dbAsset)
	if err != nil {
		return model.Asset{}, mapPgErr(err)
	}

	return dbConverter.ConvertAsset(dbAsset), nil
}

func (r *Postgres) GetAssets(ctx context.Context, limit, offset int) (assets []model.Asset, hasNextPage bool, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetAssets"
	params := map[string]any{
		"limit":  limit,
		"offset": offset,
	}
	query := `
		SELECT asset_id, symbol, name, description, created_at
		FROM assets
		ORDER BY symbol
		LIMIT $1
		OFFSET $2
	`

	slog.Debug("GetAssets start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("GetAssets failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAssets completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.db.QueryxContext(ctx, query, limit+1, offset)
	if err != nil {
		return nil, false, err
	}

	defer rows.Close()

	i := 0
	assets = make([]model.Asset, 0, limit)
	for rows.Next() {
		i++
		var dbAsset dbModel.Asset
		err = rows.StructScan(&dbAsset)
		if err != nil {
			return nil, false, err
		}

		if i > limit {
			hasNextPage = true
			break
		}
		assets = append(assets, dbConverter.ConvertAsset(dbAsset))
	}

	return assets, hasNextPage, nil
}

// GetAllAssets returns every registered asset, used by the price sync job.
func (r *Postgres) GetAllAssets(ctx context.Context) (assets []model.Asset, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetAllAssets"
	query := `SELECT asset_id, symbol, name, description, created_at FROM assets ORDER BY asset_id`

	slog.Debug("GetAllAssets start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetAllAssets failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetAllAssets completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbAsset dbModel.Asset
		err = rows.StructScan(&dbAsset)
		if err != nil {
			return nil, err
		}
		assets = append(assets, dbConverter.ConvertAsset(dbAsset))
	}

	return assets, nil
}

func (r *Postgres) UpdateAsset(ctx context.Context, assetID int64, symbol, name, description *string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateAsset"
	query := `
		UPDATE assets
		SET
			symbol = COALESCE($1, symbol),
			name = COALESCE($2, name),
			description = COALESCE($3, description)
		WHERE asset_id = $4
	`

	slog.Debug("UpdateAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateAsset failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateAsset completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.db.ExecContext(ctx, query, symbol, name, description, assetID)
	if err != nil {
		return mapPgErr(err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Postgres) DeleteAsset(ctx context.Context, assetID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteAsset"
	query := `DELETE FROM assets WHERE asset_id = $1`

	slog.Debug("DeleteAsset start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteAsset failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteAsset completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.db.ExecContext(ctx, query, assetID)
	if err != nil {
		return mapPgErr(err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}
