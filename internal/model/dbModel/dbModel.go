package dbModel

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	UserID       int64     `db:"user_id"`
	Username     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
}

type Portfolio struct {
	PortfolioID int64          `db:"portfolio_id"`
	UserID      int64          `db:"user_id"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	CreatedAt   time.Time      `db:"created_at"`
}

type Asset struct {
	AssetID     int64          `db:"asset_id"`
	Symbol      string         `db:"symbol"`
	Name        string         `db:"name"`
	Description sql.NullString `db:"description"`
	CreatedAt   time.Time      `db:"created_at"`
}

type Transaction struct {
	TransactionID int64           `db:"transaction_id"`
	PortfolioID   int64           `db:"portfolio_id"`
	AssetID       int64           `db:"asset_id"`
	Quantity      decimal.Decimal `db:"quantity"`
	Price         decimal.Decimal `db:"price"`
	Side          string          `db:"side"`
	ExecutedAt    time.Time       `db:"executed_at"`
}

type PricePoint struct {
	PriceID int64               `db:"price_id"`
	AssetID int64               `db:"asset_id"`
	Ts      time.Time           `db:"ts"`
	Open    decimal.Decimal     `db:"open"`
	High    decimal.Decimal     `db:"high"`
	Low     decimal.Decimal     `db:"low"`
	Close   decimal.Decimal     `db:"close"`
	Volume  decimal.NullDecimal `db:"volume"`
}
