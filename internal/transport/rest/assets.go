package rest

import (
	"net/http"
	"time"

	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type assetRequest struct {
	Symbol      string  `json:"symbol" binding:"required,max=32"`
	Name        string  `json:"name" binding:"required,max=255"`
	Description *string `json:"description"`
}

type updateAssetRequest struct {
	Symbol      *string `json:"symbol" binding:"omitempty,max=32"`
	Name        *string `json:"name" binding:"omitempty,max=255"`
	Description *string `json:"description"`
}

type assetResponse struct {
	ID          int64     `json:"id"`
	Symbol      string    `json:"symbol"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func toAssetResponse(a model.Asset) assetResponse {
	return assetResponse{
		ID:          a.ID,
		Symbol:      a.Symbol,
		Name:        a.Name,
		Description: a.Description,
		CreatedAt:   a.CreatedAt,
	}
}

type pricePointRequest struct {
	Ts     *time.Time       `json:"ts"`
	Open   decimal.Decimal  `json:"open" binding:"required"`
	High   decimal.Decimal  `json:"high" binding:"required"`
	Low    decimal.Decimal  `json:"low" binding:"required"`
	Close  decimal.Decimal  `json:"close" binding:"required"`
	Volume *decimal.Decimal `json:"volume"`
}

type pricePointResponse struct {
	ID      int64            `json:"id"`
	AssetID int64            `json:"asset_id"`
	Ts      time.Time        `json:"ts"`
	Open    decimal.Decimal  `json:"open"`
	High    decimal.Decimal  `json:"high"`
	Low     decimal.Decimal  `json:"low"`
	Close   decimal.Decimal  `json:"close"`
	Volume  *decimal.Decimal `json:"volume,omitempty"`
}

func toPricePointResponse(p model.PricePoint) pricePointResponse {
	return pricePointResponse{
		ID:      p.ID,
		AssetID: p.AssetID,
		Ts:      p.Ts,
		Open:    p.Open,
		High:    p.High,
		Low:     p.Low,
		Close:   p.Close,
		Volume:  p.Volume,
	}
}

func (ctrl *Controller) CreateAsset(c *gin.Context) {
	var req assetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	asset, err := ctrl.portfolios.CreateAsset(c.Request.Context(), req.Symbol, req.Name, req.Description)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, toAssetResponse(asset))
}

func (ctrl *Controller) GetAsset(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	asset, err := ctrl.portfolios.GetAsset(c.Request.Context(), id)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toAssetResponse(asset))
}

func (ctrl *Controller) ListAssets(c *gin.Context) {
	limit, offset := ctrl.parsePagination(c)

	assets, hasNextPage, err := ctrl.portfolios.ListAssets(c.Request.Context(), limit, offset)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	items := make([]assetResponse, 0, len(assets))
	for _, a := range assets {
		items = append(items, toAssetResponse(a))
	}

	c.JSON(http.StatusOK, gin.H{
		"items":         items,
		"limit":         limit,
		"offset":        offset,
		"has_next_page": hasNextPage,
	})
}

func (ctrl *Controller) UpdateAsset(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateAssetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	asset, err := ctrl.portfolios.UpdateAsset(c.Request.Context(), id, req.Symbol, req.Name, req.Description)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toAssetResponse(asset))
}

func (ctrl *Controller) DeleteAsset(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.portfolios.DeleteAsset(c.Request.Context(), id); err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (ctrl *Controller) GetSpotPrice(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	symbol, price, err := ctrl.portfolios.GetSpotPrice(c.Request.Context(), id)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"asset_id": id, "symbol": symbol, "price": price})
}

func (ctrl *Controller) AddPricePoint(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req pricePointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	price := model.PricePoint{
		AssetID: id,
		Open:    req.Open,
		High:    req.High,
		Low:     req.Low,
		Close:   req.Close,
		Volume:  req.Volume,
	}
	if req.Ts != nil {
		price.Ts = *req.Ts
	}

	created, err := ctrl.portfolios.AddPricePoint(c.Request.Context(), price)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, toPricePointResponse(created))
}

func (ctrl *Controller) GetAssetPrices(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	from, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	to, ok := parseTimeQuery(c, "to")
	if !ok {
		return
	}

	prices, err := ctrl.portfolios.GetAssetPrices(c.Request.Context(), id, from, to)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	items := make([]pricePointResponse, 0, len(prices))
	for _, p := range prices {
		items = append(items, toPricePointResponse(p))
	}

	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (ctrl *Controller) DeletePricePoint(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ctrl.portfolios.DeletePricePoint(c.Request.Context(), id); err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetAssetPerformance compares the first and last closes within the requested
// window. Omitted bounds default to the beginning of time and now.
func (ctrl *Controller) GetAssetPerformance(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	fromPtr, ok := parseTimeQuery(c, "from")
	if !ok {
		return
	}
	toPtr, ok := parseTimeQuery(c, "to")
	if !ok {
		return
	}

	var from, to time.Time
	if fromPtr != nil {
		from = *fromPtr
	}
	if toPtr != nil {
		to = *toPtr
	} else {
		to = time.Now().UTC()
	}

	if to.Before(from) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "to must not precede from"})
		return
	}

	perf, err := ctrl.portfolios.AssetPerformance(c.Request.Context(), id, from, to)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"asset_id":        perf.AssetID,
		"start_price":     perf.StartPrice,
		"end_price":       perf.EndPrice,
		"performance_pct": perf.PerformancePct,
	})
}
