package rest

import (
	"fmt"
	"net/http"
	"time"

	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type portfolioRequest struct {
	Name        string  `json:"name" binding:"required,max=255"`
	Description *string `json:"description"`
}

type updatePortfolioRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description"`
}

type portfolioResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toPortfolioResponse(p model.Portfolio) portfolioResponse {
	return portfolioResponse{
		ID:          p.ID,
		UserID:      p.UserID,
		Name:        p.Name,
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}
}

type positionResponse struct {
	AssetID   int64           `json:"asset_id"`
	Symbol    string          `json:"symbol"`
	Quantity  decimal.Decimal `json:"quantity"`
	LastPrice decimal.Decimal `json:"last_price"`
	Value     decimal.Decimal `json:"value"`
}

type valuationResponse struct {
	PortfolioID int64              `json:"portfolio_id"`
	TotalValue  decimal.Decimal    `json:"total_value"`
	Positions   []positionResponse `json:"positions"`
}

func toValuationResponse(v model.PortfolioValuation) valuationResponse {
	resp := valuationResponse{
		PortfolioID: v.PortfolioID,
		TotalValue:  v.TotalValue,
		Positions:   make([]positionResponse, 0, len(v.Positions)),
	}
	for _, p := range v.Positions {
		resp.Positions = append(resp.Positions, positionResponse{
			AssetID:   p.AssetID,
			Symbol:    p.Symbol,
			Quantity:  p.Quantity,
			LastPrice: p.LastPrice,
			Value:     p.Value,
		})
	}
	return resp
}

func (ctrl *Controller) CreatePortfolio(c *gin.Context) {
	var req portfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	portfolio, err := ctrl.portfolios.CreatePortfolio(c.Request.Context(), currentUser(c).ID, req.Name, req.Description)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, toPortfolioResponse(portfolio))
}

func (ctrl *Controller) GetPortfolio(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	portfolio, err := ctrl.portfolios.GetPortfolio(c.Request.Context(), id, currentUser(c).ID)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toPortfolioResponse(portfolio))
}

func (ctrl *Controller) ListPortfolios(c *gin.Context) {
	limit, offset := ctrl.parsePagination(c)

	portfolios, hasNextPage, err := ctrl.portfolios.ListPortfolios(c.Request.Context(), currentUser(c).ID, limit, offset)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	items := make([]portfolioResponse, 0, len(portfolios))
	for _, p := range portfolios {
		items = append(items, toPortfolioResponse(p))
	}

	c.JSON(http.StatusOK, gin.H{
		"items":         items,
		"limit":         limit,
		"offset":        offset,
		"has_next_page": hasNextPage,
	})
}

func (ctrl *Controller) UpdatePortfolio(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updatePortfolioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	portfolio, err := ctrl.portfolios.UpdatePortfolio(c.Request.Context(), id, currentUser(c).ID, req.Name, req.Description)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toPortfolioResponse(portfolio))
}

func (ctrl *Controller) DeletePortfolio(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.portfolios.DeletePortfolio(c.Request.Context(), id, currentUser(c).ID); err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (ctrl *Controller) PortfolioValue(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	valuation, err := ctrl.portfolios.PortfolioValue(c.Request.Context(), id, currentUser(c).ID)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toValuationResponse(valuation))
}

func (ctrl *Controller) PortfolioReport(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fileBytes, ext, err := ctrl.portfolios.GeneratePortfolioReport(c.Request.Context(), id, currentUser(c).ID)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	filename := fmt.Sprintf("portfolio_%d_report%s", id, ext)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", fileBytes)
}
