package controllers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/ohyerin/magpress-backend/api/middleware"
	"github.com/ohyerin/magpress-backend/api/responses"
	"github.com/ohyerin/magpress-backend/api/validators"
	"github.com/ohyerin/magpress-backend/internal/payments"
	"github.com/ohyerin/magpress-backend/internal/subscriptions"
	pkgerrors "github.com/ohyerin/magpress-backend/pkg/errors"
	"github.com/ohyerin/magpress-backend/pkg/logger"
)

// paymentResponse mirrors the shape the checkout frontend consumes.
type paymentResponse struct {
	Success     bool   `json:"success"`
	PaymentID   string `json:"paymentId,omitempty"`
	PortoneData any    `json:"portoneData,omitempty"`
	Details     any    `json:"details,omitempty"`
	Error       string `json:"error,omitempty"`
}

// PaymentCreate charges an issued billing key on behalf of the caller.
func PaymentCreate(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var input payments.CheckoutInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			writePaymentError(ctx, logg, w, err)
			return
		}

		result, err := svc.Checkout(ctx, middleware.UserUUIDFromContext(ctx), input)
		if err != nil {
			writePaymentError(ctx, logg, w, err)
			return
		}

		writePaymentJSON(w, http.StatusOK, paymentResponse{
			Success:     true,
			PaymentID:   result.PaymentID,
			PortoneData: result.Payment,
		})
	}
}

// PaymentCancel asks the gateway to cancel a payment the caller owns.
func PaymentCancel(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var input payments.CancelInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			writePaymentError(ctx, logg, w, err)
			return
		}

		cancelled, err := svc.Cancel(ctx, middleware.UserUUIDFromContext(ctx), input)
		if err != nil {
			writePaymentError(ctx, logg, w, err)
			return
		}

		writePaymentJSON(w, http.StatusOK, paymentResponse{Success: true, Details: cancelled})
	}
}

// SubscriptionStatus reports the caller's derived subscription state.
func SubscriptionStatus(svc subscriptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status, err := svc.Status(ctx, middleware.UserUUIDFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, status)
	}
}

func writePaymentError(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, err error) {
	typed := pkgerrors.As(err)
	if typed == nil {
		typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
	}
	if logg != nil {
		logg.Error(ctx, "payment request failed", err)
	}
	meta := pkgerrors.MetadataFor(typed.Code())
	writePaymentJSON(w, meta.HTTPStatus, paymentResponse{Success: false, Error: typed.Message()})
}

func writePaymentJSON(w http.ResponseWriter, status int, payload paymentResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode payment response","err":"%v"}`, err)
	}
}
