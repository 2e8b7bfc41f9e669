package service

import "errors"

var (
	ErrNotFound     = errors.New("error not found")
	ErrConflict     = errors.New("error already exists")
	ErrUnauthorized = errors.New("error unauthorized")
	ErrForbidden    = errors.New("error forbidden")
	ErrNoPriceData  = errors.New("error no price data for period")
	ErrInvalidSide  = errors.New("error side must be buy or sell")
)
