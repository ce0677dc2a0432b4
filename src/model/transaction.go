package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionBuy        TransactionType = "BUY"
	TransactionSell       TransactionType = "SELL"
	TransactionWithdrawal TransactionType = "WITHDRAWAL"
	TransactionDeposit    TransactionType = "DEPOSIT"
)

// Transaction is an immutable ledger entry. Slice order is chronological order.
type Transaction struct {
	ID         string           `json:"id"`
	Type       TransactionType  `json:"type"`
	Asset      string           `json:"asset"`
	Amount     decimal.Decimal  `json:"amount"`
	Price      decimal.Decimal  `json:"price"`
	Total      decimal.Decimal  `json:"total"`
	Fee        decimal.Decimal  `json:"fee"`
	ProfitLoss *decimal.Decimal `json:"profit_loss,omitempty"`
	PositionID string           `json:"position_id,omitempty"`
	Timestamp  time.Time        `json:"timestamp"`
}
