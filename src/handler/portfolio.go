package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"papertrader/src/controller"
	"papertrader/src/ledger"
	"papertrader/src/model"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type portfolioResponse struct {
	ledger.Snapshot
	Prices         map[string]decimal.Decimal `json:"prices"`
	PortfolioValue decimal.Decimal            `json:"portfolio_value"`
	UnpricedAssets []string                   `json:"unpriced_assets"`
	NetPnL         decimal.Decimal            `json:"net_pnl"`
}

// PortfolioHandler returns the ledger snapshot valued at the latest prices.
func PortfolioHandler(c *controller.TradeController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		l := c.Ledger()
		prices := c.Prices()
		value, missing := l.PortfolioValue(prices)
		snap := l.Snapshot()
		if missing == nil {
			missing = []string{}
		}
		writeJSON(w, http.StatusOK, portfolioResponse{
			Snapshot:       snap,
			Prices:         prices,
			PortfolioValue: value,
			UnpricedAssets: missing,
			NetPnL:         snap.NetPnL(),
		})
	}
}

// TransactionsHandler lists transactions newest first. Supports asset, type
// and limit filters.
func TransactionsHandler(c *controller.TradeController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		limit := 0
		if limitParam := q.Get("limit"); limitParam != "" {
			parsed, err := strconv.Atoi(limitParam)
			if err != nil || parsed <= 0 {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = parsed
		}

		var asset string
		if assetParam := q.Get("asset"); assetParam != "" {
			asset = c.Symbol(assetParam)
		}
		txType := model.TransactionType(strings.ToUpper(q.Get("type")))

		all := c.Ledger().Transactions()
		out := make([]model.Transaction, 0, len(all))
		for i := len(all) - 1; i >= 0; i-- {
			tx := all[i]
			if asset != "" && tx.Asset != asset {
				continue
			}
			if txType != "" && tx.Type != txType {
				continue
			}
			out = append(out, tx)
			if limit > 0 && len(out) == limit {
				break
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func BuyHandler(c *controller.TradeController) http.HandlerFunc {
	return tradeHandler(c.Buy)
}

func SellHandler(c *controller.TradeController) http.HandlerFunc {
	return tradeHandler(c.Sell)
}

func tradeHandler(execute func(ctx context.Context, req controller.TradeRequest) (model.Transaction, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req controller.TradeRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if strings.TrimSpace(req.Asset) == "" {
			writeError(w, http.StatusBadRequest, "asset is required")
			return
		}
		tx, err := execute(r.Context(), req)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

type closeRequest struct {
	Price decimal.Decimal `json:"price"`
}

// ClosePositionHandler closes the position in the {id} URL parameter.
func ClosePositionHandler(c *controller.TradeController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req closeRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		tx, err := c.ClosePosition(r.Context(), chi.URLParam(r, "id"), req.Price)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func WithdrawHandler(c *controller.TradeController) http.HandlerFunc {
	return amountHandler(c.Withdraw)
}

func DepositHandler(c *controller.TradeController) http.HandlerFunc {
	return amountHandler(c.Deposit)
}

func amountHandler(execute func(ctx context.Context, amount decimal.Decimal) (model.Transaction, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req amountRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		tx, err := execute(r.Context(), req.Amount)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	}
}

// ResetHandler restores the initial balance and clears all history.
func ResetHandler(c *controller.TradeController) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c.Reset(r.Context())
		writeJSON(w, http.StatusOK, c.Ledger().Snapshot())
	}
}
