package portfolioService

import (
	"context"
	"log/slog"
	"time"

	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/KotFed0t/crypto_portfolio_api/internal/service"
	"github.com/KotFed0t/crypto_portfolio_api/utils"
	"github.com/shopspring/decimal"
)

// getOwnedTransaction loads a transaction and enforces that the caller owns
// the portfolio it belongs to.
func (s *PortfolioService) getOwnedTransaction(ctx context.Context, transactionID, userID int64) (model.Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return model.Transaction{}, mapRepoErr(err)
	}

	if _, err := s.getOwnedPortfolio(ctx, tx.PortfolioID, userID); err != nil {
		return model.Transaction{}, err
	}

	return tx, nil
}

func (s *PortfolioService) CreateTransaction(ctx context.Context, userID int64, tx model.Transaction) (created model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CreateTransaction"

	slog.Debug("CreateTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", tx.PortfolioID))
	defer func() {
		slog.Debug("CreateTransaction finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", tx.PortfolioID))
	}()

	if !tx.Side.Valid() {
		return model.Transaction{}, service.ErrInvalidSide
	}

	if _, err = s.getOwnedPortfolio(ctx, tx.PortfolioID, userID); err != nil {
		return model.Transaction{}, err
	}

	if tx.ExecutedAt.IsZero() {
		tx.ExecutedAt = time.Now().UTC()
	}

	transactionID, err := s.repo.CreateTransaction(ctx, tx)
	if err != nil {
		slog.Error("got error from repo.CreateTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, mapRepoErr(err)
	}

	// flushed synchronously so a follow-up valuation request can't see stale data
	if err := s.cache.FlushPortfolioValuation(ctx, tx.PortfolioID); err != nil {
		slog.Error("got error from cache.FlushPortfolioValuation", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	tx.ID = transactionID
	return tx, nil
}

func (s *PortfolioService) GetTransaction(ctx context.Context, transactionID, userID int64) (tx model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.GetTransaction"

	slog.Debug("GetTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("transactionID", transactionID))
	defer func() {
		slog.Debug("GetTransaction finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("transactionID", transactionID))
	}()

	return s.getOwnedTransaction(ctx, transactionID, userID)
}

func (s *PortfolioService) ListPortfolioTransactions(ctx context.Context, portfolioID, userID int64) (txs []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.ListPortfolioTransactions"

	slog.Debug("ListPortfolioTransactions start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	defer func() {
		slog.Debug("ListPortfolioTransactions finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("portfolioID", portfolioID))
	}()

	if _, err = s.getOwnedPortfolio(ctx, portfolioID, userID); err != nil {
		return nil, err
	}

	txs, err = s.repo.GetTransactionsByPortfolio(ctx, portfolioID)
	if err != nil {
		slog.Error("got error from repo.GetTransactionsByPortfolio", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return txs, nil
}

func (s *PortfolioService) UpdateTransaction(ctx context.Context, transactionID, userID int64, quantity, price *decimal.Decimal, side *string, executedAt *time.Time) (tx model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.UpdateTransaction"

	slog.Debug("UpdateTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("transactionID", transactionID))
	defer func() {
		slog.Debug("UpdateTransaction finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("transactionID", transactionID))
	}()

	if side != nil && !model.TxSide(*side).Valid() {
		return model.Transaction{}, service.ErrInvalidSide
	}

	existing, err := s.getOwnedTransaction(ctx, transactionID, userID)
	if err != nil {
		return model.Transaction{}, err
	}

	err = s.repo.UpdateTransaction(ctx, transactionID, quantity, price, side, executedAt)
	if err != nil {
		slog.Error("got error from repo.UpdateTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Transaction{}, mapRepoErr(err)
	}

	if err := s.cache.FlushPortfolioValuation(ctx, existing.PortfolioID); err != nil {
		slog.Error("got error from cache.FlushPortfolioValuation", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	tx, err = s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return model.Transaction{}, mapRepoErr(err)
	}

	return tx, nil
}

func (s *PortfolioService) DeleteTransaction(ctx context.Context, transactionID, userID int64) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.DeleteTransaction"

	slog.Debug("DeleteTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("transactionID", transactionID))
	defer func() {
		slog.Debug("DeleteTransaction finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int64("transactionID", transactionID))
	}()

	existing, err := s.getOwnedTransaction(ctx, transactionID, userID)
	if err != nil {
		return err
	}

	err = s.repo.DeleteTransaction(ctx, transactionID)
	if err != nil {
		slog.Error("got error from repo.DeleteTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return mapRepoErr(err)
	}

	if err := s.cache.FlushPortfolioValuation(ctx, existing.PortfolioID); err != nil {
		slog.Error("got error from cache.FlushPortfolioValuation", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return nil
}
