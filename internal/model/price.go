package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PricePoint struct {
	ID      int64
	AssetID int64
	Ts      time.Time
	Open    decimal.Decimal
	High    decimal.Decimal
	Low     decimal.Decimal
	Close   decimal.Decimal
	Volume  *decimal.Decimal
}

type AssetPerformance struct {
	AssetID        int64
	StartPrice     decimal.Decimal
	EndPrice       decimal.Decimal
	PerformancePct decimal.Decimal
}
