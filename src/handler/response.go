package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"papertrader/src/connectors"
	"papertrader/src/controller"
	"papertrader/src/fetcher"
	"papertrader/src/ledger"
	"papertrader/src/risk"

	logger "github.com/sirupsen/logrus"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps command and market data errors to a status code.
func writeDomainError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.WithError(err).Error("request failed")
		writeError(w, status, "Internal Server Error")
		return
	}
	writeError(w, status, err.Error())
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrInvalidAsset),
		errors.Is(err, risk.ErrInvalidPrice):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrPositionNotFound),
		errors.Is(err, connectors.ErrUnknownCoin):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrInsufficientFunds):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrOutOfBounds):
		return http.StatusUnprocessableEntity
	case errors.Is(err, controller.ErrPriceUnavailable),
		errors.Is(err, fetcher.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func decodeBody(r *http.Request, dst interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	return json.NewDecoder(r.Body).Decode(dst)
}
