package rest

import (
	"github.com/KotFed0t/crypto_portfolio_api/config"
	"github.com/KotFed0t/crypto_portfolio_api/internal/transport/rest/middleware"
	"github.com/gin-gonic/gin"
)

// NewRouter assembles the HTTP surface. Asset and price reads are public,
// everything touching a user's own data sits behind the bearer middleware.
func NewRouter(cfg *config.Config, ctrl *Controller, sessions middleware.SessionResolver) *gin.Engine {
	if !cfg.HTTP.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), middleware.Logger())

	r.POST("/users/register", ctrl.Register)
	r.POST("/users/login", ctrl.Login)

	r.GET("/assets", ctrl.ListAssets)
	r.GET("/assets/:id", ctrl.GetAsset)
	r.GET("/assets/:id/prices", ctrl.GetAssetPrices)
	r.GET("/assets/:id/performance", ctrl.GetAssetPerformance)
	r.GET("/assets/:id/spot", ctrl.GetSpotPrice)

	authorized := r.Group("/", middleware.Auth(sessions))
	{
		authorized.GET("/users/me", ctrl.Me)
		authorized.PUT("/users/me", ctrl.UpdateMe)
		authorized.DELETE("/users/me", ctrl.DeleteMe)

		authorized.POST("/assets", ctrl.CreateAsset)
		authorized.PUT("/assets/:id", ctrl.UpdateAsset)
		authorized.DELETE("/assets/:id", ctrl.DeleteAsset)
		authorized.POST("/assets/:id/prices", ctrl.AddPricePoint)
		authorized.DELETE("/prices/:id", ctrl.DeletePricePoint)

		authorized.POST("/portfolios", ctrl.CreatePortfolio)
		authorized.GET("/portfolios", ctrl.ListPortfolios)
		authorized.GET("/portfolios/:id", ctrl.GetPortfolio)
		authorized.PUT("/portfolios/:id", ctrl.UpdatePortfolio)
		authorized.DELETE("/portfolios/:id", ctrl.DeletePortfolio)
		authorized.GET("/portfolios/:id/value", ctrl.PortfolioValue)
		authorized.GET("/portfolios/:id/report", ctrl.PortfolioReport)
		authorized.GET("/portfolios/:id/transactions", ctrl.ListPortfolioTransactions)

		authorized.POST("/transactions", ctrl.CreateTransaction)
		authorized.GET("/transactions/:id", ctrl.GetTransaction)
		authorized.PUT("/transactions/:id", ctrl.UpdateTransaction)
		authorized.DELETE("/transactions/:id", ctrl.DeleteTransaction)
	}

	return r
}
