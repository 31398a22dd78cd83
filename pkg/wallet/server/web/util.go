package web

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/compressed-wallet/pkg/wallet/collection"
	"github.com/code-payments/compressed-wallet/pkg/wallet/data/wallet"
	"github.com/code-payments/compressed-wallet/pkg/wallet/gateway"
	"github.com/code-payments/compressed-wallet/pkg/wallet/transfer"
)

const (
	successJsonKey = "success"
	errorJsonKey   = "error"
	dataJsonKey    = "data"

	contentTypeHeaderName      = "Content-Type"
	jsonContentTypeHeaderValue = "application/json"
)

var (
	errInternal        = errors.New("internal server error")
	errTimeout         = errors.New("request timed out")
	errUnavailable     = errors.New("wallets are still loading")
	errInvalidAddress  = errors.New("invalid wallet address")
	errInvalidJsonBody = errors.New("invalid json body")
)

type GenericApiResponseBody map[string]any

func NewGenericApiSuccessResponseBody(data any) GenericApiResponseBody {
	body := map[string]any{
		successJsonKey: true,
	}
	if data != nil {
		body[dataJsonKey] = data
	}
	return body
}

func NewGenericApiFailureResponseBody(err error) GenericApiResponseBody {
	return map[string]any{
		successJsonKey: false,
		errorJsonKey:   err.Error(),
	}
}

func (b *GenericApiResponseBody) ToString() string {
	marshalled, _ := json.Marshal(b)
	return string(marshalled)
}

// HandleErrorInWebContext maps an error to its HTTP status code and the error
// that's safe to show to callers
func HandleErrorInWebContext(err error) (int, error) {
	if err == nil {
		return http.StatusOK, nil
	}

	if transfer.IsValidationError(err) {
		return http.StatusBadRequest, err
	}

	switch errors.Cause(err) {
	case collection.ErrWalletNotFound:
		return http.StatusNotFound, collection.ErrWalletNotFound
	case collection.ErrWalletExists:
		return http.StatusConflict, collection.ErrWalletExists
	case collection.ErrNotHydrated:
		return http.StatusServiceUnavailable, errUnavailable
	case wallet.ErrInvalidPublicKey, wallet.ErrInvalidPrivateKey, wallet.ErrInvalidWallet:
		return http.StatusBadRequest, errors.Cause(err)
	case gateway.ErrAirdropUnavailable, gateway.ErrInvalidAmount:
		return http.StatusBadRequest, errors.Cause(err)
	case gateway.ErrAirdropRateLimited:
		return http.StatusTooManyRequests, gateway.ErrAirdropRateLimited
	case context.Canceled, context.DeadlineExceeded:
		return http.StatusRequestTimeout, errTimeout
	default:
		return http.StatusInternalServerError, errInternal
	}
}

func writeResponse(log *logrus.Entry, w http.ResponseWriter, statusCode int, body GenericApiResponseBody) {
	w.Header().Set(contentTypeHeaderName, jsonContentTypeHeaderValue)
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(body.ToString())); err != nil {
		log.WithError(err).Info("failed to write body")
	}
}
