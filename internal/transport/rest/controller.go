package rest

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/KotFed0t/crypto_portfolio_api/config"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/KotFed0t/crypto_portfolio_api/internal/service"
	"github.com/KotFed0t/crypto_portfolio_api/internal/transport/rest/middleware"
	"github.com/KotFed0t/crypto_portfolio_api/utils"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type AuthService interface {
	Register(ctx context.Context, username, email, password string) (model.User, error)
	Login(ctx context.Context, username, password string) (string, error)
	UpdateProfile(ctx context.Context, userID int64, email, password *string) (model.User, error)
	DeleteAccount(ctx context.Context, userID int64) error
}

type PortfolioService interface {
	CreatePortfolio(ctx context.Context, userID int64, name string, description *string) (model.Portfolio, error)
	GetPortfolio(ctx context.Context, portfolioID, userID int64) (model.Portfolio, error)
	ListPortfolios(ctx context.Context, userID int64, limit, offset int) ([]model.Portfolio, bool, error)
	UpdatePortfolio(ctx context.Context, portfolioID, userID int64, name, description *string) (model.Portfolio, error)
	DeletePortfolio(ctx context.Context, portfolioID, userID int64) error
	PortfolioValue(ctx context.Context, portfolioID, userID int64) (model.PortfolioValuation, error)
	GeneratePortfolioReport(ctx context.Context, portfolioID, userID int64) ([]byte, string, error)

	CreateAsset(ctx context.Context, symbol, name string, description *string) (model.Asset, error)
	GetAsset(ctx context.Context, assetID int64) (model.Asset, error)
	ListAssets(ctx context.Context, limit, offset int) ([]model.Asset, bool, error)
	UpdateAsset(ctx context.Context, assetID int64, symbol, name, description *string) (model.Asset, error)
	DeleteAsset(ctx context.Context, assetID int64) error
	GetSpotPrice(ctx context.Context, assetID int64) (string, decimal.Decimal, error)

	CreateTransaction(ctx context.Context, userID int64, tx model.Transaction) (model.Transaction, error)
	GetTransaction(ctx context.Context, transactionID, userID int64) (model.Transaction, error)
	ListPortfolioTransactions(ctx context.Context, portfolioID, userID int64) ([]model.Transaction, error)
	UpdateTransaction(ctx context.Context, transactionID, userID int64, quantity, price *decimal.Decimal, side *string, executedAt *time.Time) (model.Transaction, error)
	DeleteTransaction(ctx context.Context, transactionID, userID int64) error

	AddPricePoint(ctx context.Context, price model.PricePoint) (model.PricePoint, error)
	GetAssetPrices(ctx context.Context, assetID int64, from, to *time.Time) ([]model.PricePoint, error)
	DeletePricePoint(ctx context.Context, priceID int64) error
	AssetPerformance(ctx context.Context, assetID int64, from, to time.Time) (model.AssetPerformance, error)
}

type Controller struct {
	cfg        *config.Config
	auth       AuthService
	portfolios PortfolioService
}

func NewController(cfg *config.Config, auth AuthService, portfolios PortfolioService) *Controller {
	return &Controller{cfg: cfg, auth: auth, portfolios: portfolios}
}

func currentUser(c *gin.Context) model.User {
	return c.MustGet(middleware.UserKey).(model.User)
}

func parseIDParam(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// parsePagination reads limit/offset query params, clamping them to the
// configured bounds.
func (ctrl *Controller) parsePagination(c *gin.Context) (limit, offset int) {
	limit = ctrl.cfg.Pagination.DefaultLimit

	if raw := c.Query("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > ctrl.cfg.Pagination.MaxLimit {
		limit = ctrl.cfg.Pagination.MaxLimit
	}

	if raw := c.Query("offset"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			offset = v
		}
	}
	return limit, offset
}

func parseTimeQuery(c *gin.Context, name string) (*time.Time, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": name + " must be RFC3339"})
		return nil, false
	}
	return &t, true
}

func (ctrl *Controller) handleErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, service.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "already exists"})
	case errors.Is(err, service.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, service.ErrInvalidSide):
		c.JSON(http.StatusBadRequest, gin.H{"error": "side must be buy or sell"})
	case errors.Is(err, service.ErrNoPriceData):
		c.JSON(http.StatusNotFound, gin.H{"error": "no price data for period"})
	default:
		rqID := utils.GetRequestIDFromCtx(c.Request.Context())
		slog.Error("unexpected error", slog.String("rqID", rqID), slog.String("err", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

type registerRequest struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type updateProfileRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	Password *string `json:"password" binding:"omitempty,min=8"`
}

type userResponse struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u model.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

func (ctrl *Controller) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ctrl.auth.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (ctrl *Controller) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := ctrl.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"access_token": token, "token_type": "bearer"})
}

func (ctrl *Controller) Me(c *gin.Context) {
	c.JSON(http.StatusOK, toUserResponse(currentUser(c)))
}

func (ctrl *Controller) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := ctrl.auth.UpdateProfile(c.Request.Context(), currentUser(c).ID, req.Email, req.Password)
	if err != nil {
		ctrl.handleErr(c, err)
		return
	}

	c.JSON(http.StatusOK, toUserResponse(user))
}

func (ctrl *Controller) DeleteMe(c *gin.Context) {
	if err := ctrl.auth.DeleteAccount(c.Request.Context(), currentUser(c).ID); err != nil {
		ctrl.handleErr(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
