package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/crypto_portfolio_api/internal/converter/dbConverter"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model/dbModel"
	"github.com/KotFed0t/crypto_portfolio_api/utils"
	"github.com/shopspring/decimal"
)

func (r *Postgres) CreateTransaction(ctx context.Context, tx model.Transaction) (transactionID int64, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.CreateTransaction"
	query := `
		INSERT INTO transactions(portfolio_id, asset_id, quantity, price, side, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING transaction_id
	`

	slog.Debug(
		"CreateTransaction start",
		slog.String("rqID", rqID),
		slog.String("op", op),
		slog.Int64("portfolioID", tx.PortfolioID),
		slog.Any("transaction", tx),
		slog.String("query", query),
	)
	defer func() {
		if err != nil {
			slog.Error("CreateTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("CreateTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	err = r.db.QueryRowContext(
		ctx,
		query,
		tx.PortfolioID,
		tx.AssetID,
		tx.Quantity,
		tx.Price,
		string(tx.Side),
		tx.ExecutedAt,
	).Scan(&transactionID)

	if err != nil {
		return 0, mapPgErr(err)
	}

	return transactionID, nil
}

func (r *Postgres) GetTransaction(ctx context.Context, transactionID int64) (tx model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTransaction"
	query := `
		SELECT transaction_id, portfolio_id, asset_id, quantity, price, side, executed_at
		FROM transactions
		WHERE transaction_id = $1
	`

	slog.Debug("GetTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbTx := dbModel.Transaction{}
	err = r.db.QueryRowxContext(ctx, query, transactionID).StructScan(&dbTx)
	if err != nil {
		return model.Transaction{}, mapPgErr(err)
	}

	return dbConverter.ConvertTransaction(dbTx), nil
}

func (r *Postgres) GetTransactionsByPortfolio(ctx context.Context, portfolioID int64) (txs []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTransactionsByPortfolio"
	query := `
		SELECT transaction_id, portfolio_id, asset_id, quantity, price, side, executed_at
		FROM transactions
		WHERE portfolio_id = $1
		ORDER BY executed_at DESC
	`

	slog.Debug("GetTransactionsByPortfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Int64("portfolioID", portfolioID))
	defer func() {
		if err != nil {
			slog.Error("GetTransactionsByPortfolio failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTransactionsByPortfolio completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.db.QueryxContext(ctx, query, portfolioID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbTx dbModel.Transaction
		err = rows.StructScan(&dbTx)
		if err != nil {
			return nil, err
		}
		txs = append(txs, dbConverter.ConvertTransaction(dbTx))
	}

	return txs, nil
}

func (r *Postgres) UpdateTransaction(ctx context.Context, transactionID int64, quantity, price *decimal.Decimal, side *string, executedAt *time.Time) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateTransaction"
	query := `
		UPDATE transactions
		SET
			quantity = COALESCE($1, quantity),
			price = COALESCE($2, price),
			side = COALESCE($3, side),
			executed_at = COALESCE($4, executed_at)
		WHERE transaction_id = $5
	`

	slog.Debug("UpdateTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("UpdateTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.db.ExecContext(ctx, query, quantity, price, side, executedAt, transactionID)
	if err != nil {
		return mapPgErr(err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}

func (r *Postgres) DeleteTransaction(ctx context.Context, transactionID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteTransaction"
	query := `DELETE FROM transactions WHERE transaction_id = $1`

	slog.Debug("DeleteTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("DeleteTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.db.ExecContext(ctx, query, transactionID)
	if err != nil {
		return mapPgErr(err)
	}

	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}

	return nil
}
