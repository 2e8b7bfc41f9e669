package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TxSide string

const (
	SideBuy  TxSide = "buy"
	SideSell TxSide = "sell"
)

func (s TxSide) Valid() bool {
	return s == SideBuy || s == SideSell
}

type Transaction struct {
	ID          int64
	PortfolioID int64
	AssetID     int64
	Quantity    decimal.Decimal
	Price       decimal.Decimal
	Side        TxSide
	ExecutedAt  time.Time
}
