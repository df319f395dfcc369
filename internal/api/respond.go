// Package api holds the response envelope shared by all HTTP handlers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/paper-trader/internal/domain"
)

// Response is the standard API envelope
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
}

// OK writes a success envelope
func OK(w http.ResponseWriter, data interface{}) {
	write(w, http.StatusOK, Response{Success: true, Data: data})
}

// Created writes a success envelope with 201
func Created(w http.ResponseWriter, data interface{}) {
	write(w, http.StatusCreated, Response{Success: true, Data: data})
}

// Fail writes a failure envelope with an explicit status
func Fail(w http.ResponseWriter, status int, message string) {
	write(w, status, Response{Success: false, Message: message})
}

// Error maps a domain error to its HTTP status and writes a failure
// envelope. Unknown errors become 500 with a generic message so internals
// never leak to the client.
func Error(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds),
		errors.Is(err, domain.ErrInsufficientHoldings),
		errors.Is(err, domain.ErrMarketClosed):
		Fail(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrDuplicateWatchlistEntry):
		Fail(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrPriceUnavailable),
		errors.Is(err, domain.ErrTokenUnavailable):
		Fail(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, domain.ErrLedgerConflict):
		Fail(w, http.StatusConflict, err.Error())
	default:
		Fail(w, http.StatusInternalServerError, "internal error")
	}
}

func write(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp) // Ignore encode error - already committed response
}
