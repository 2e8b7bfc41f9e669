package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Portfolio struct {
	ID          int64
	UserID      int64
	Name        string
	Description string
	CreatedAt   time.Time
}

// Position is an aggregated holding of one asset within a portfolio:
// net quantity over all buy/sell transactions priced at the latest close.
type Position struct {
	AssetID   int64
	Symbol    string
	Quantity  decimal.Decimal
	LastPrice decimal.Decimal
	Value     decimal.Decimal
}

type PortfolioValuation struct {
	PortfolioID int64
	TotalValue  decimal.Decimal
	Positions   []Position
}

type PortfolioReport struct {
	Portfolio    Portfolio
	Valuation    PortfolioValuation
	Transactions []Transaction
}
