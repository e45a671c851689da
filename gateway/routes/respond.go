package routes

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"onecoupon/faucet"
	"onecoupon/gateway/middleware"
	"onecoupon/ptb"
	"onecoupon/reconcile"
	"onecoupon/screens"
	"onecoupon/wallet"
)

const maxBodyBytes = 64 << 10

// actionResponse carries the outcome of a mutating request next to the
// refreshed view.
type actionResponse struct {
	Digest string      `json:"digest,omitempty"`
	Error  string      `json:"error,omitempty"`
	View   interface{} `json:"view"`
}

func (a *api) respond(w http.ResponseWriter, r *http.Request, status int, digest string, err error, view interface{}) {
	body := actionResponse{Digest: digest, View: view}
	if err != nil {
		status = statusFor(err)
		body.Error = wallet.FailureMessage(err)
		if status >= http.StatusInternalServerError {
			a.logger.Warn("action failed",
				"path", r.URL.Path,
				"request_id", middleware.RequestID(r.Context()),
				"error", err)
		}
	}
	middleware.WriteJSON(w, status, body)
}

func statusFor(err error) int {
	var validation *ptb.ValidationError
	var submit *wallet.SubmitError
	var faucetErr *faucet.Error
	switch {
	case errors.Is(err, screens.ErrNotConnected),
		errors.Is(err, screens.ErrNoPackage),
		errors.Is(err, screens.ErrNoMerchant),
		errors.Is(err, screens.ErrNoFaucet),
		errors.Is(err, screens.ErrUnknownNetwork):
		return http.StatusPreconditionFailed
	case errors.Is(err, screens.ErrBusy),
		errors.Is(err, screens.ErrMerchantExists),
		errors.Is(err, screens.ErrNotTimedOut),
		errors.Is(err, screens.ErrRegistrationUnsettled),
		errors.Is(err, reconcile.ErrAlreadyAwaiting),
		errors.Is(err, reconcile.ErrSettled):
		return http.StatusConflict
	case errors.Is(err, faucet.ErrCoolingDown), errors.Is(err, faucet.ErrInFlight):
		return http.StatusTooManyRequests
	case errors.Is(err, screens.ErrUnknownCoupon):
		return http.StatusNotFound
	case errors.As(err, &validation),
		errors.Is(err, ptb.ErrMissingPackage),
		errors.Is(err, screens.ErrInvalidTotal),
		errors.Is(err, screens.ErrNotRedeemable),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.As(err, &submit), errors.As(err, &faucetErr):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

var errBadRequest = errors.New("malformed request body")

func decodeBody(r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errBadRequest
	}
	return nil
}
