package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/scoopworks/storefront/internal/domain/cart"
	"github.com/scoopworks/storefront/internal/domain/catalog"
	"github.com/scoopworks/storefront/internal/domain/customer"
	"github.com/scoopworks/storefront/internal/domain/invoice"
	"github.com/scoopworks/storefront/internal/domain/order"
	"github.com/scoopworks/storefront/internal/domain/payment"
)

type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Code: status, Message: msg})
}

// writeError maps domain errors onto HTTP statuses. Unknown errors become an
// opaque 500 and the cause goes to the log, not to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		stockErr  *cart.InsufficientStockError
		cardErr   *payment.InvalidCardDataError
		fiscalErr *invoice.InvalidFiscalDataError
	)

	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, customer.ErrNotFound),
		errors.Is(err, order.ErrNotFound),
		errors.Is(err, invoice.ErrNotFound),
		errors.Is(err, cart.ErrItemNotInCart):
		writeErrorMessage(w, http.StatusNotFound, err.Error())

	case errors.Is(err, order.ErrAlreadyPaid),
		errors.Is(err, order.ErrConflict),
		errors.Is(err, invoice.ErrAlreadyExists):
		writeErrorMessage(w, http.StatusConflict, err.Error())

	case errors.As(err, &stockErr):
		writeErrorMessage(w, http.StatusConflict, stockErr.Error())

	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, catalog.ErrUnavailable),
		errors.Is(err, order.ErrEmptyCart):
		writeErrorMessage(w, http.StatusUnprocessableEntity, err.Error())

	case errors.As(err, &cardErr):
		writeErrorMessage(w, http.StatusUnprocessableEntity, cardErr.Error())

	case errors.As(err, &fiscalErr):
		writeErrorMessage(w, http.StatusUnprocessableEntity, fiscalErr.Error())

	case errors.Is(err, payment.ErrRejected):
		writeErrorMessage(w, http.StatusPaymentRequired, payment.ErrRejected.Error())

	case errors.Is(err, payment.ErrUnsupportedMethod):
		writeErrorMessage(w, http.StatusBadRequest, err.Error())

	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeErrorMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody parses a JSON request body into v. An empty body leaves v at its
// zero value, which endpoints with optional bodies rely on.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil && !errors.Is(err, io.EOF) {
		writeErrorMessage(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}
