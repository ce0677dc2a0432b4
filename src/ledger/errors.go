package ledger

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// Every command checks its inputs against these before mutating any state.
var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrInvalidAsset        = errors.New("invalid asset")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrInsufficientFunds   = errors.New("insufficient withdrawable profit")
	ErrOutOfBounds         = errors.New("withdrawal amount out of bounds")
	ErrPositionNotFound    = errors.New("position not found")
)

// DecimalFromFloat converts user input, rejecting NaN and infinities which
// decimal.NewFromFloat cannot represent.
func DecimalFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, ErrInvalidAmount
	}
	return decimal.NewFromFloat(f), nil
}
