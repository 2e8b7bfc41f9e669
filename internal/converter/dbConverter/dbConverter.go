package dbConverter

import (
	"github.com/KotFed0t/crypto_portfolio_api/internal/model"
	"github.com/KotFed0t/crypto_portfolio_api/internal/model/dbModel"
)

func ConvertUser(dbUser dbModel.User) model.User {
	return model.User{
		ID:           dbUser.UserID,
		Username:     dbUser.Username,
		Email:        dbUser.Email,
		PasswordHash: dbUser.PasswordHash,
		IsActive:     dbUser.IsActive,
		CreatedAt:    dbUser.CreatedAt,
	}
}

func ConvertPortfolio(dbPortfolio dbModel.Portfolio) model.Portfolio {
	return model.Portfolio{
		ID:          dbPortfolio.PortfolioID,
		UserID:      dbPortfolio.UserID,
		Name:        dbPortfolio.Name,
		Description: dbPortfolio.Description.String,
		CreatedAt:   dbPortfolio.CreatedAt,
	}
}

func ConvertAsset(dbAsset dbModel.Asset) model.Asset {
	return model.Asset{
		ID:          dbAsset.AssetID,
		Symbol:      dbAsset.Symbol,
		Name:        dbAsset.Name,
		Description: dbAsset.Description.String,
		CreatedAt:   dbAsset.CreatedAt,
	}
}

func ConvertTransaction(dbTx dbModel.Transaction) model.Transaction {
	return model.Transaction{
		ID:          dbTx.TransactionID,
		PortfolioID: dbTx.PortfolioID,
		AssetID:     dbTx.AssetID,
		Quantity:    dbTx.Quantity,
		Price:       dbTx.Price,
		Side:        model.TxSide(dbTx.Side),
		ExecutedAt:  dbTx.ExecutedAt,
	}
}

func ConvertPricePoint(dbPrice dbModel.PricePoint) model.PricePoint {
	price := model.PricePoint{
		ID:      dbPrice.PriceID,
		AssetID: dbPrice.AssetID,
		Ts:      dbPrice.Ts,
		Open:    dbPrice.Open,
		High:    dbPrice.High,
		Low:     dbPrice.Low,
		Close:   dbPrice.Close,
	}
	if dbPrice.Volume.Valid {
		v := dbPrice.Volume.Decimal
		price.Volume = &v
	}
	return price
}
