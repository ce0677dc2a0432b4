package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"papertrader/src/marketdata"
	"papertrader/src/model"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type analysisReader interface {
	Get(asset string) (model.Analysis, bool)
	All() []model.Analysis
}

type marketReader interface {
	Market(ctx context.Context, ids []string) ([]model.MarketCoin, marketdata.Meta, error)
	History(ctx context.Context, id string, days int) (*model.PriceHistory, marketdata.Meta, error)
}

type coinReader interface {
	Coin(ctx context.Context, id string) (model.MarketCoin, marketdata.Meta, error)
}

type moversReader interface {
	Movers(ctx context.Context, ids []string, limit int) (marketdata.Movers, marketdata.Meta, error)
}

type marketResponse struct {
	marketdata.Meta
	Data interface{} `json:"data"`
}

// AnalysisListHandler returns the latest analysis of every watched asset.
func AnalysisListHandler(store analysisReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.All())
	}
}

// AnalysisHandler returns the analysis for the {asset} URL parameter, which
// may be a coin id or a symbol.
func AnalysisHandler(store analysisReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		asset := chi.URLParam(r, "asset")
		a, ok := store.Get(asset)
		if !ok {
			writeError(w, http.StatusNotFound, "no analysis for "+asset)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func idsParam(r *http.Request) []string {
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("ids"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

// MarketHandler returns snapshots for the comma separated ids query param.
func MarketHandler(market marketReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := idsParam(r)
		if len(ids) == 0 {
			writeError(w, http.StatusBadRequest, "ids is required")
			return
		}

		coins, meta, err := market.Market(r.Context(), ids)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, marketResponse{Meta: meta, Data: coins})
	}
}

// HistoryHandler returns daily prices for {id}; days defaults to 30.
func HistoryHandler(market marketReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		days := 30
		if daysParam := r.URL.Query().Get("days"); daysParam != "" {
			parsed, err := strconv.Atoi(daysParam)
			if err != nil || parsed <= 0 || parsed > 365 {
				writeError(w, http.StatusBadRequest, "invalid days")
				return
			}
			days = parsed
		}

		history, meta, err := market.History(r.Context(), chi.URLParam(r, "id"), days)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, marketResponse{Meta: meta, Data: history})
	}
}

// MoversHandler ranks top gainers and losers over the ids query param, or
// over defaultIDs when it is absent.
func MoversHandler(market moversReader, defaultIDs []string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := marketdata.DefaultMoversLimit
		if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
			parsed, err := strconv.Atoi(limitParam)
			if err != nil || parsed < 1 || parsed > marketdata.MaxMoversLimit {
				writeError(w, http.StatusBadRequest, "invalid limit")
				return
			}
			limit = parsed
		}
		ids := idsParam(r)
		if len(ids) == 0 {
			ids = defaultIDs
		}

		movers, meta, err := market.Movers(r.Context(), ids, limit)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, marketResponse{Meta: meta, Data: movers})
	}
}

type coinValue struct {
	CoinID       string          `json:"coin_id"`
	Symbol       string          `json:"symbol"`
	Amount       decimal.Decimal `json:"amount"`
	PricePerCoin decimal.Decimal `json:"price_per_coin"`
	TotalValue   decimal.Decimal `json:"total_value"`
	Currency     string          `json:"currency"`
}

// CoinValueHandler prices amount units of {id} at the current market price.
func CoinValueHandler(market coinReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		amount, err := decimal.NewFromString(r.URL.Query().Get("amount"))
		if err != nil || !amount.IsPositive() {
			writeError(w, http.StatusBadRequest, "amount must be a positive number")
			return
		}

		coin, meta, err := market.Coin(r.Context(), chi.URLParam(r, "id"))
		if err != nil {
			writeDomainError(w, err)
			return
		}
		price := decimal.NewFromFloat(coin.CurrentPrice)
		writeJSON(w, http.StatusOK, marketResponse{Meta: meta, Data: coinValue{
			CoinID:       coin.ID,
			Symbol:       coin.Symbol,
			Amount:       amount,
			PricePerCoin: price,
			TotalValue:   amount.Mul(price),
			Currency:     "USD",
		}})
	}
}
