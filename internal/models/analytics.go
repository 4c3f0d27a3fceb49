package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DailyBalance represents the projected balance for a specific day
type DailyBalance struct {
	Day     int             `json:"day"`
	Date    time.Time       `json:"date"`
	Balance decimal.Decimal `json:"balance"`
}
