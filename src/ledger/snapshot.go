package ledger

import (
	"time"

	"papertrader/src/model"

	"github.com/shopspring/decimal"
)

// Snapshot is the full ledger state. It is what Persistence stores and what
// the read model exposes.
type Snapshot struct {
	QuoteAsset   string                     `json:"quote_asset"`
	Balances     map[string]decimal.Decimal `json:"balances"`
	Positions    []model.Position           `json:"positions"`
	Transactions []model.Transaction        `json:"transactions"`

	RealizedProfit     decimal.Decimal `json:"realized_profit"`
	RealizedLoss       decimal.Decimal `json:"realized_loss"`
	UnrealizedProfit   decimal.Decimal `json:"unrealized_profit"`
	UnrealizedLoss     decimal.Decimal `json:"unrealized_loss"`
	WithdrawableProfit decimal.Decimal `json:"withdrawable_profit"`

	InitialQuoteBalance decimal.Decimal `json:"initial_quote_balance"`
	TotalFeesPaid       decimal.Decimal `json:"total_fees_paid"`
	WithdrawalFeesPaid  decimal.Decimal `json:"withdrawal_fees_paid"`
	TotalWithdrawn      decimal.Decimal `json:"total_withdrawn"`
	TotalDeposited      decimal.Decimal `json:"total_deposited"`

	UpdatedAt time.Time `json:"updated_at"`
}

func newSnapshot(cfg Config, now time.Time) Snapshot {
	return Snapshot{
		QuoteAsset:          cfg.QuoteAsset,
		Balances:            map[string]decimal.Decimal{cfg.QuoteAsset: cfg.InitialQuoteBalance},
		Positions:           []model.Position{},
		Transactions:        []model.Transaction{},
		InitialQuoteBalance: cfg.InitialQuoteBalance,
		UpdatedAt:           now,
	}
}

// Clone returns a deep copy.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.Balances = make(map[string]decimal.Decimal, len(s.Balances))
	for k, v := range s.Balances {
		out.Balances[k] = v
	}
	out.Positions = append([]model.Position{}, s.Positions...)
	out.Transactions = make([]model.Transaction, len(s.Transactions))
	for i, tx := range s.Transactions {
		if tx.ProfitLoss != nil {
			pl := *tx.ProfitLoss
			tx.ProfitLoss = &pl
		}
		out.Transactions[i] = tx
	}
	return out
}

// Balance returns the balance of asset, zero when absent.
func (s Snapshot) Balance(asset string) decimal.Decimal {
	return s.Balances[asset]
}

// NetPnL is realized profit minus realized loss.
func (s Snapshot) NetPnL() decimal.Decimal {
	return s.RealizedProfit.Sub(s.RealizedLoss)
}

// validate rejects restored state that breaks the non-negativity rules.
func (s Snapshot) validate() error {
	for _, v := range s.Balances {
		if v.IsNegative() {
			return ErrInvalidAmount
		}
	}
	if s.WithdrawableProfit.IsNegative() {
		return ErrInvalidAmount
	}
	for _, p := range s.Positions {
		if !p.Amount.IsPositive() || !p.EntryPrice.IsPositive() {
			return ErrInvalidAmount
		}
	}
	return nil
}
