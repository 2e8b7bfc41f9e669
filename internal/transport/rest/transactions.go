package rest

import (
	"net/http"
	"time"

	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type transactionRequest struct {
	PortfolioID int64           `json:"portfolio_id" binding:"required"`
	AssetID     int64           `json:"asset_id" binding:"required"`
	Quantity    decimal.Decimal `json:"quantity" binding:"required"`
	Price       decimal.Decimal `json:"price" binding:"required"`
	Side        string          `json:"side" binding:"required"`
	ExecutedAt  *time.Time      `json:"executed_at"`
}

type updateTransactionRequest struct {
	Quantity   *decimal.Decimal `json:"quantity"`
	Price      *decimal.Decimal `json:"price"`
	Side       *string          `json:"side"`
	ExecutedAt *time.Time       `json:"executed_at"`
}

type transactionResponse struct {
	ID          int64           `json:"id"`
	PortfolioID int64           `json:"portfolio_id"`
	AssetID     int64           `json:"asset_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Side        string          `json:"side"`
	ExecutedAt  time.Time       `json:"executed_at"`
}

func toTransactionResponse(tx model.Transaction) transactionResponse {
	return transactionResponse{
		ID:          tx.ID,
		PortfolioID: tx.PortfolioID,
		AssetID:     tx.AssetID,
		Quantity:    tx.Quantity,
		Price:       tx.Price,
		Side:        string(tx.Side),
		ExecutedAt:  tx.ExecutedAt,
	}
}

func (ctrl *Controller) CreateTransaction(c *gin.Context) {
	var req transactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx := model.Transaction{
		PortfolioID: req.PortfolioID,
		AssetID:     req.AssetID,
		Quantity:    req.Quantity,
		Price:       req.Price,
		Side:        model.TxSide(req.Side),
	}
	if req.ExecutedAt != nil {
		tx.ExecutedAt = *req.ExecutedAt
	}

	created, err := ctrl.portfolios.CreateTransaction(c.Request.Context(), currentUser(c).ID, tx)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTransactionResponse(created))
}

func (ctrl *Controller) GetTransaction(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	tx, err := ctrl.portfolios.GetTransaction(c.Request.Context(), id, currentUser(c).ID)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toTransactionResponse(tx))
}

func (ctrl *Controller) ListPortfolioTransactions(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	txs, err := ctrl.portfolios.ListPortfolioTransactions(c.Request.Context(), id, currentUser(c).ID)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	items := make([]transactionResponse, 0, len(txs))
	for _, tx := range txs {
		items = append(items, toTransactionResponse(tx))
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (ctrl *Controller) UpdateTransaction(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tx, err := ctrl.portfolios.UpdateTransaction(
		c.Request.Context(),
		id,
		currentUser(c).ID,
		req.Quantity,
		req.Price,
		req.Side,
		req.ExecutedAt,
	)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toTransactionResponse(tx))
}

func (ctrl *Controller) DeleteTransaction(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.portfolios.DeleteTransaction(c.Request.Context(), id, currentUser(c).ID); err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
