package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/resto-platform/internal/domain/catalog"
	"github.com/xenking/resto-platform/internal/domain/order"
	"github.com/xenking/resto-platform/internal/domain/payment"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		// Internal details stay out of the response body.
		respond(w, status, errorBody{Code: status, Message: http.StatusText(status)})
		return
	}
	respond(w, status, errorBody{Code: status, Message: err.Error()})
}

func badRequest(w http.ResponseWriter, msg string) {
	respond(w, http.StatusBadRequest, errorBody{Code: http.StatusBadRequest, Message: msg})
}

// statusFor maps domain errors to HTTP statuses: missing entities to 404,
// malformed input to 400, business rule rejections to 422, downstream
// processing failures to 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, order.ErrItemNotFound),
		errors.Is(err, payment.ErrNotFound),
		errors.Is(err, catalog.ErrItemNotFound),
		errors.Is(err, catalog.ErrRestaurantNotFound),
		errors.Is(err, catalog.ErrTableNotFound):
		return http.StatusNotFound

	case errors.Is(err, order.ErrEmptyItems):
		return http.StatusBadRequest

	case errors.Is(err, order.ErrHasCompletedPayments),
		errors.Is(err, payment.ErrOrderCancelled),
		errors.Is(err, payment.ErrOrderAlreadyPaid),
		errors.Is(err, payment.ErrAlreadyRefunded):
		return http.StatusUnprocessableEntity

	case errors.Is(err, payment.ErrSplitByItemNotImplemented):
		return http.StatusNotImplemented
	}

	var (
		orderValidation   *order.ValidationError
		paymentValidation *payment.ValidationError
		invalidQuantity   *order.InvalidQuantityError

		unavailable       *order.ItemUnavailableError
		invalidTransition *order.InvalidTransitionError
		notModifiable     *order.NotModifiableError
		splitMismatch     *payment.SplitMismatchError
		insufficient      *payment.InsufficientPaymentError
		refundNotAllowed  *payment.RefundNotAllowedError
		refundExceeds     *payment.RefundExceedsError

		processing *payment.ProcessingError
	)
	switch {
	case errors.As(err, &orderValidation),
		errors.As(err, &paymentValidation),
		errors.As(err, &invalidQuantity):
		return http.StatusBadRequest

	case errors.As(err, &unavailable),
		errors.As(err, &invalidTransition),
		errors.As(err, &notModifiable),
		errors.As(err, &splitMismatch),
		errors.As(err, &insufficient),
		errors.As(err, &refundNotAllowed),
		errors.As(err, &refundExceeds):
		return http.StatusUnprocessableEntity

	case errors.As(err, &processing):
		return http.StatusBadGateway
	}

	return http.StatusInternalServerError
}
