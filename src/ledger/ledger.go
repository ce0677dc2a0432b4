package ledger

import (
	"strings"
	"sync"
	"time"

	"papertrader/src/metrics"
	"papertrader/src/model"
	"papertrader/src/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

// Ledger owns balances, positions, transactions and PnL accumulators of one
// session. Each command runs as a single critical section and validates its
// inputs before touching state, so a rejected command leaves no trace.
type Ledger struct {
	mu    sync.Mutex
	cfg   Config
	state Snapshot

	now           func() time.Time
	newTxID       func() string
	newPositionID func() string

	persistence Persistence
	metrics     *metrics.Metrics
	log         *logger.Entry

	subMu       sync.Mutex
	subscribers map[int]func(Event)
	nextSubID   int
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithIDGenerators replaces the ULID transaction ids and uuid position ids.
func WithIDGenerators(txID, positionID func() string) Option {
	return func(l *Ledger) {
		l.newTxID = txID
		l.newPositionID = positionID
	}
}

func WithPersistence(p Persistence) Option {
	return func(l *Ledger) { l.persistence = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(l *Ledger) { l.metrics = m }
}

func New(cfg Config, opts ...Option) *Ledger {
	cfg.QuoteAsset = normalizeAsset(cfg.QuoteAsset)
	l := &Ledger{
		cfg:           cfg,
		now:           time.Now,
		newTxID:       utils.NewID,
		newPositionID: uuid.NewString,
		subscribers:   make(map[int]func(Event)),
		log: logger.WithFields(logger.Fields{
			"component": "ledger",
			"session":   cfg.SessionID,
		}),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.state = newSnapshot(cfg, l.now())
	l.metrics.SetQuoteBalance(cfg.InitialQuoteBalance.InexactFloat64())
	return l
}

func (l *Ledger) Config() Config {
	return l.cfg
}

// ----- commands -----

// Buy spends amount*price plus the trading fee from the quote balance and
// credits amount of asset. A position is opened when amount exceeds the dust
// threshold.
func (l *Ledger) Buy(asset string, amount, price decimal.Decimal) (model.Transaction, error) {
	l.mu.Lock()
	tx, err := l.buy(normalizeAsset(asset), amount, price)
	l.mu.Unlock()
	return tx, l.finish("buy", err, EventBuy, &tx)
}

func (l *Ledger) buy(asset string, amount, price decimal.Decimal) (model.Transaction, error) {
	if err := l.checkTrade(asset, amount, price); err != nil {
		return model.Transaction{}, err
	}

	total := amount.Mul(price)
	fee := total.Mul(l.cfg.TradingFeeRate)
	cost := total.Add(fee)
	quote := l.state.Balance(l.cfg.QuoteAsset)
	if cost.GreaterThan(quote) {
		return model.Transaction{}, ErrInsufficientBalance
	}

	now := l.now()
	l.state.Balances[l.cfg.QuoteAsset] = quote.Sub(cost)
	l.state.Balances[asset] = l.state.Balance(asset).Add(amount)
	l.state.TotalFeesPaid = l.state.TotalFeesPaid.Add(fee)

	tx := model.Transaction{
		ID:        l.newTxID(),
		Type:      model.TransactionBuy,
		Asset:     asset,
		Amount:    amount,
		Price:     price,
		Total:     total,
		Fee:       fee,
		Timestamp: now,
	}

	if amount.GreaterThan(l.cfg.DustThreshold) {
		pos := model.Position{
			ID:         l.newPositionID(),
			Pair:       asset + "/" + l.cfg.QuoteAsset,
			Asset:      asset,
			EntryPrice: price,
			Amount:     amount,
			OpenedAt:   now,
		}
		l.state.Positions = append(l.state.Positions, pos)
		tx.PositionID = pos.ID
	}

	l.append(tx)
	return tx, nil
}

// Sell credits amount*price minus the trading fee. PnL is attributed against
// the volume weighted average price of every BUY of asset, while open
// positions are consumed oldest first.
func (l *Ledger) Sell(asset string, amount, price decimal.Decimal) (model.Transaction, error) {
	l.mu.Lock()
	tx, err := l.sell(normalizeAsset(asset), amount, price)
	l.mu.Unlock()
	return tx, l.finish("sell", err, EventSell, &tx)
}

func (l *Ledger) sell(asset string, amount, price decimal.Decimal) (model.Transaction, error) {
	if err := l.checkTrade(asset, amount, price); err != nil {
		return model.Transaction{}, err
	}
	if amount.GreaterThan(l.state.Balance(asset)) {
		return model.Transaction{}, ErrInsufficientBalance
	}

	tx := l.settleSell(asset, amount, price)
	l.consumeFIFO(asset, amount)
	l.append(tx)
	return tx, nil
}

// ClosePosition sells exactly the amount of one position at price and
// removes it. PnL follows the same rule as Sell.
func (l *Ledger) ClosePosition(positionID string, price decimal.Decimal) (model.Transaction, error) {
	l.mu.Lock()
	tx, err := l.closePosition(positionID, price)
	l.mu.Unlock()
	return tx, l.finish("close", err, EventClose, &tx)
}

func (l *Ledger) closePosition(positionID string, price decimal.Decimal) (model.Transaction, error) {
	idx := -1
	for i, p := range l.state.Positions {
		if p.ID == positionID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return model.Transaction{}, ErrPositionNotFound
	}
	if !price.IsPositive() {
		return model.Transaction{}, ErrInvalidAmount
	}

	pos := l.state.Positions[idx]
	if pos.Amount.GreaterThan(l.state.Balance(pos.Asset)) {
		return model.Transaction{}, ErrInsufficientBalance
	}

	tx := l.settleSell(pos.Asset, pos.Amount, price)
	tx.PositionID = pos.ID
	l.state.Positions = append(l.state.Positions[:idx], l.state.Positions[idx+1:]...)
	l.append(tx)
	return tx, nil
}

// Withdraw pays out amount of withdrawable profit. The gross amount leaves
// the quote balance and the withdrawable accumulator; the fee,
// min(amount*rate, max fee), is kept from the payout.
func (l *Ledger) Withdraw(amount decimal.Decimal) (model.Transaction, error) {
	l.mu.Lock()
	tx, err := l.withdraw(amount)
	l.mu.Unlock()
	return tx, l.finish("withdraw", err, EventWithdraw, &tx)
}

func (l *Ledger) withdraw(amount decimal.Decimal) (model.Transaction, error) {
	if !amount.IsPositive() {
		return model.Transaction{}, ErrInvalidAmount
	}
	if amount.LessThan(l.cfg.WithdrawMin) || amount.GreaterThan(l.cfg.WithdrawMax) {
		return model.Transaction{}, ErrOutOfBounds
	}
	if amount.GreaterThan(l.state.WithdrawableProfit) {
		return model.Transaction{}, ErrInsufficientFunds
	}
	quote := l.state.Balance(l.cfg.QuoteAsset)
	if amount.GreaterThan(quote) {
		return model.Transaction{}, ErrInsufficientBalance
	}

	fee := decimal.Min(amount.Mul(l.cfg.WithdrawFeeRate), l.cfg.WithdrawFeeMax)

	l.state.WithdrawableProfit = l.state.WithdrawableProfit.Sub(amount)
	l.state.Balances[l.cfg.QuoteAsset] = quote.Sub(amount)
	l.state.TotalWithdrawn = l.state.TotalWithdrawn.Add(amount)
	l.state.WithdrawalFeesPaid = l.state.WithdrawalFeesPaid.Add(fee)

	tx := model.Transaction{
		ID:        l.newTxID(),
		Type:      model.TransactionWithdrawal,
		Asset:     l.cfg.QuoteAsset,
		Amount:    amount,
		Price:     decimal.NewFromInt(1),
		Total:     amount.Sub(fee),
		Fee:       fee,
		Timestamp: l.now(),
	}
	l.append(tx)
	return tx, nil
}

// Deposit injects external quote funds.
func (l *Ledger) Deposit(amount decimal.Decimal) (model.Transaction, error) {
	l.mu.Lock()
	tx, err := l.deposit(amount)
	l.mu.Unlock()
	return tx, l.finish("deposit", err, EventDeposit, &tx)
}

func (l *Ledger) deposit(amount decimal.Decimal) (model.Transaction, error) {
	if !amount.IsPositive() {
		return model.Transaction{}, ErrInvalidAmount
	}
	l.state.Balances[l.cfg.QuoteAsset] = l.state.Balance(l.cfg.QuoteAsset).Add(amount)
	l.state.TotalDeposited = l.state.TotalDeposited.Add(amount)

	tx := model.Transaction{
		ID:        l.newTxID(),
		Type:      model.TransactionDeposit,
		Asset:     l.cfg.QuoteAsset,
		Amount:    amount,
		Price:     decimal.NewFromInt(1),
		Total:     amount,
		Fee:       decimal.Zero,
		Timestamp: l.now(),
	}
	l.append(tx)
	return tx, nil
}

// Reset returns the session to its initial balances.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.state = newSnapshot(l.cfg, l.now())
	l.mu.Unlock()
	_ = l.finish("reset", nil, EventReset, nil)
}

// ----- read model -----

func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Clone()
}

func (l *Ledger) Balance(asset string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Balance(normalizeAsset(asset))
}

func (l *Ledger) Positions() []model.Position {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]model.Position{}, l.state.Positions...)
}

func (l *Ledger) Transactions() []model.Transaction {
	return l.Snapshot().Transactions
}

func (l *Ledger) WithdrawableProfit() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.WithdrawableProfit
}

// AverageBuyPrice is the volume weighted price over all BUY transactions of
// asset, zero when there are none.
func (l *Ledger) AverageBuyPrice(asset string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.averageBuyPrice(normalizeAsset(asset))
}

// PnL holds the unrealized buckets produced by RecomputeUnrealized.
type PnL struct {
	Profit decimal.Decimal `json:"unrealized_profit"`
	Loss   decimal.Decimal `json:"unrealized_loss"`
}

// RecomputeUnrealized replaces the unrealized accumulators from the open
// positions and prices keyed by asset. Positions without a price are left out.
// Calling it twice with the same prices yields the same result.
func (l *Ledger) RecomputeUnrealized(prices map[string]decimal.Decimal) PnL {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out PnL
	for _, p := range l.state.Positions {
		price, ok := prices[p.Asset]
		if !ok {
			continue
		}
		pnl := p.UnrealizedPnL(price)
		if pnl.IsPositive() {
			out.Profit = out.Profit.Add(pnl)
		} else {
			out.Loss = out.Loss.Add(pnl.Abs())
		}
	}
	l.state.UnrealizedProfit = out.Profit
	l.state.UnrealizedLoss = out.Loss
	return out
}

// PortfolioValue is the quote balance plus every asset balance at prices.
// Assets without a price are listed in missing and contribute nothing.
func (l *Ledger) PortfolioValue(prices map[string]decimal.Decimal) (value decimal.Decimal, missing []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	value = l.state.Balance(l.cfg.QuoteAsset)
	for asset, bal := range l.state.Balances {
		if asset == l.cfg.QuoteAsset || bal.IsZero() {
			continue
		}
		price, ok := prices[asset]
		if !ok {
			missing = append(missing, asset)
			continue
		}
		value = value.Add(bal.Mul(price))
	}
	return value, missing
}

// ----- internals, called with mu held -----

func (l *Ledger) checkTrade(asset string, amount, price decimal.Decimal) error {
	if asset == "" || asset == l.cfg.QuoteAsset {
		return ErrInvalidAsset
	}
	if !amount.IsPositive() || !price.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

func (l *Ledger) settleSell(asset string, amount, price decimal.Decimal) model.Transaction {
	total := amount.Mul(price)
	fee := total.Mul(l.cfg.TradingFeeRate)
	pnl := price.Sub(l.averageBuyPrice(asset)).Mul(amount).Sub(fee)

	l.state.Balances[l.cfg.QuoteAsset] = l.state.Balance(l.cfg.QuoteAsset).Add(total.Sub(fee))
	remaining := l.state.Balance(asset).Sub(amount)
	if remaining.IsZero() {
		delete(l.state.Balances, asset)
	} else {
		l.state.Balances[asset] = remaining
	}
	l.state.TotalFeesPaid = l.state.TotalFeesPaid.Add(fee)

	if pnl.IsPositive() {
		l.state.RealizedProfit = l.state.RealizedProfit.Add(pnl)
		l.state.WithdrawableProfit = l.state.WithdrawableProfit.Add(pnl)
	} else {
		l.state.RealizedLoss = l.state.RealizedLoss.Add(pnl.Abs())
	}

	return model.Transaction{
		ID:         l.newTxID(),
		Type:       model.TransactionSell,
		Asset:      asset,
		Amount:     amount,
		Price:      price,
		Total:      total,
		Fee:        fee,
		ProfitLoss: &pnl,
		Timestamp:  l.now(),
	}
}

// consumeFIFO reduces open positions of asset oldest first by amount.
// Amount not covered by positions (dust buys) is simply dropped.
func (l *Ledger) consumeFIFO(asset string, amount decimal.Decimal) {
	remaining := amount
	kept := l.state.Positions[:0]
	for _, p := range l.state.Positions {
		if p.Asset == asset && remaining.IsPositive() {
			take := decimal.Min(p.Amount, remaining)
			p.Amount = p.Amount.Sub(take)
			remaining = remaining.Sub(take)
		}
		if p.Amount.IsPositive() {
			kept = append(kept, p)
		}
	}
	l.state.Positions = kept
}

func (l *Ledger) averageBuyPrice(asset string) decimal.Decimal {
	var qty, cost decimal.Decimal
	for _, tx := range l.state.Transactions {
		if tx.Type != model.TransactionBuy || tx.Asset != asset {
			continue
		}
		qty = qty.Add(tx.Amount)
		cost = cost.Add(tx.Amount.Mul(tx.Price))
	}
	if qty.IsZero() {
		return decimal.Zero
	}
	return cost.Div(qty)
}

func (l *Ledger) append(tx model.Transaction) {
	l.state.Transactions = append(l.state.Transactions, tx)
	l.state.UpdatedAt = tx.Timestamp
}

// finish records the outcome and notifies subscribers. It runs after mu is
// released so subscribers may read the ledger.
func (l *Ledger) finish(command string, err error, evt EventType, tx *model.Transaction) error {
	l.metrics.LedgerCommand(command, err)
	if err != nil {
		l.log.WithError(err).WithField("command", command).Warn("ledger command rejected")
		return err
	}

	quote := l.Balance(l.cfg.QuoteAsset)
	l.metrics.SetQuoteBalance(quote.InexactFloat64())

	fields := logger.Fields{"command": command, "quote_balance": quote.String()}
	event := Event{Type: evt, At: l.now()}
	if tx != nil && tx.ID != "" {
		txCopy := *tx
		event.Transaction = &txCopy
		fields["asset"] = tx.Asset
		fields["amount"] = tx.Amount.String()
		fields["tx_id"] = tx.ID
	}
	l.log.WithFields(fields).Info("ledger command applied")
	l.emit(event)
	return nil
}

func normalizeAsset(asset string) string {
	return strings.ToUpper(strings.TrimSpace(asset))
}
