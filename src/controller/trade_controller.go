package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"papertrader/src/connectors"
	"papertrader/src/ledger"
	"papertrader/src/model"
	"papertrader/src/repository"
	"papertrader/src/risk"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
)

var ErrPriceUnavailable = errors.New("no price available for asset")

// MarketView is the latest analysed market state, keyed by asset symbol.
type MarketView interface {
	LatestPrice(symbol string) (decimal.Decimal, bool)
	LatestSignal(symbol string) (model.Signal, bool)
}

// TradeRequest is a user initiated buy or sell. A zero Amount is sized from
// Percent (or the configured default); a zero Price uses the latest market
// price.
type TradeRequest struct {
	Asset             string          `json:"asset"`
	Amount            decimal.Decimal `json:"amount"`
	Percent           int             `json:"percent,omitempty"`
	Price             decimal.Decimal `json:"price"`
	ScaleByConfidence bool            `json:"scale_by_confidence,omitempty"`
}

// TradeController turns user commands into ledger calls and persists the
// resulting snapshot.
type TradeController struct {
	cfg        Config
	ledger     *ledger.Ledger
	market     MarketView
	catalog    *connectors.Catalog
	exceptions *repository.ExceptionRepository
	sizing     risk.ConfidenceSizeConfig
	log        *logger.Entry
}

func NewTradeController(cfg Config, l *ledger.Ledger, market MarketView, catalog *connectors.Catalog, exceptions *repository.ExceptionRepository) *TradeController {
	if catalog == nil {
		catalog = connectors.DefaultCatalog()
	}
	return &TradeController{
		cfg:        cfg,
		ledger:     l,
		market:     market,
		catalog:    catalog,
		exceptions: exceptions,
		sizing:     risk.DefaultConfidenceSizeConfig(),
		log:        logger.WithField("component", "trade_controller"),
	}
}

func (c *TradeController) Ledger() *ledger.Ledger {
	return c.ledger
}

// Symbol maps a coin id or symbol to the ledger asset symbol.
func (c *TradeController) Symbol(asset string) string {
	if a, ok := c.catalog.Resolve(asset); ok {
		return a.Symbol
	}
	return strings.ToUpper(strings.TrimSpace(asset))
}

func (c *TradeController) Buy(ctx context.Context, req TradeRequest) (model.Transaction, error) {
	symbol := c.Symbol(req.Asset)
	price, err := c.price(symbol, req.Price)
	if err != nil {
		return model.Transaction{}, err
	}

	amount := req.Amount
	if amount.IsZero() {
		quote := c.ledger.Balance(c.ledger.Config().QuoteAsset)
		amount, err = risk.SizeFromQuote(quote, price, c.percent(req.Percent), c.ledger.Config().TradingFeeRate)
		if err != nil {
			return model.Transaction{}, err
		}
		amount = c.scale(symbol, amount, req.ScaleByConfidence)
	}

	tx, err := c.ledger.Buy(symbol, amount, price)
	if err != nil {
		return tx, err
	}
	c.persist(ctx, "Buy", symbol)
	return tx, nil
}

func (c *TradeController) Sell(ctx context.Context, req TradeRequest) (model.Transaction, error) {
	symbol := c.Symbol(req.Asset)
	price, err := c.price(symbol, req.Price)
	if err != nil {
		return model.Transaction{}, err
	}

	amount := req.Amount
	if amount.IsZero() {
		amount = risk.SizeFromHolding(c.ledger.Balance(symbol), c.percent(req.Percent))
		amount = c.scale(symbol, amount, req.ScaleByConfidence)
	}

	tx, err := c.ledger.Sell(symbol, amount, price)
	if err != nil {
		return tx, err
	}
	c.persist(ctx, "Sell", symbol)
	return tx, nil
}

// ClosePosition closes positionID at price, or at the latest price of the
// position's asset when price is zero.
func (c *TradeController) ClosePosition(ctx context.Context, positionID string, price decimal.Decimal) (model.Transaction, error) {
	var asset string
	for _, p := range c.ledger.Positions() {
		if p.ID == positionID {
			asset = p.Asset
			break
		}
	}
	if asset == "" {
		return model.Transaction{}, ledger.ErrPositionNotFound
	}

	price, err := c.price(asset, price)
	if err != nil {
		return model.Transaction{}, err
	}
	tx, err := c.ledger.ClosePosition(positionID, price)
	if err != nil {
		return tx, err
	}
	c.persist(ctx, "ClosePosition", asset)
	return tx, nil
}

func (c *TradeController) Withdraw(ctx context.Context, amount decimal.Decimal) (model.Transaction, error) {
	tx, err := c.ledger.Withdraw(amount)
	if err != nil {
		return tx, err
	}
	c.persist(ctx, "Withdraw", "")
	return tx, nil
}

func (c *TradeController) Deposit(ctx context.Context, amount decimal.Decimal) (model.Transaction, error) {
	tx, err := c.ledger.Deposit(amount)
	if err != nil {
		return tx, err
	}
	c.persist(ctx, "Deposit", "")
	return tx, nil
}

func (c *TradeController) Reset(ctx context.Context) {
	c.ledger.Reset()
	c.persist(ctx, "Reset", "")
}

// Prices returns the latest price of every asset the ledger holds.
func (c *TradeController) Prices() map[string]decimal.Decimal {
	prices := make(map[string]decimal.Decimal)
	if c.market == nil {
		return prices
	}
	quote := c.ledger.Config().QuoteAsset
	for asset := range c.ledger.Snapshot().Balances {
		if asset == quote {
			continue
		}
		if p, ok := c.market.LatestPrice(asset); ok {
			prices[asset] = p
		}
	}
	return prices
}

func (c *TradeController) price(symbol string, explicit decimal.Decimal) (decimal.Decimal, error) {
	if !explicit.IsZero() {
		return explicit, nil
	}
	if c.market != nil {
		if p, ok := c.market.LatestPrice(symbol); ok {
			return p, nil
		}
	}
	return decimal.Zero, fmt.Errorf("%w: %s", ErrPriceUnavailable, symbol)
}

func (c *TradeController) percent(p int) int {
	if p == 0 {
		p = c.cfg.OrderSizePercent
	}
	return risk.ClampPercent(p)
}

func (c *TradeController) scale(symbol string, amount decimal.Decimal, enabled bool) decimal.Decimal {
	if !enabled || c.market == nil {
		return amount
	}
	sig, ok := c.market.LatestSignal(symbol)
	if !ok {
		return amount
	}
	return risk.SizeByConfidence(amount, sig.Confidence, c.sizing)
}

// persist saves the ledger after a successful command. A failed save is
// captured but does not undo the command.
func (c *TradeController) persist(ctx context.Context, method, asset string) {
	err := c.ledger.Save(ctx)
	if err == nil || errors.Is(err, ledger.ErrNoPersistence) {
		return
	}
	Capture(ctx, c.exceptions, Fault{
		Service: c.cfg.ServiceName,
		Module:  "trade_controller",
		Method:  method,
		Asset:   asset,
		Err:     err,
		Extra:   map[string]interface{}{"session": c.ledger.Config().SessionID},
	})
}
