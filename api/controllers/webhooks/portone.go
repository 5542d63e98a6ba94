package webhooks

import (
	"encoding/json"
	"log"
	"net/http"

	webhooksvc "github.com/ohyerin/magpress-backend/internal/webhooks/portone"
	pkgerrors "github.com/ohyerin/magpress-backend/pkg/errors"
	"github.com/ohyerin/magpress-backend/pkg/logger"
)

// webhookResponse is the acknowledgement shape the gateway expects. The
// standard API envelope is not used here.
type webhookResponse struct {
	Success bool   `json:"success"`
	Details any    `json:"details,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PortOneWebhook consumes payment notifications from the gateway. Handled
// deliveries, including unrecognized statuses and duplicates, acknowledge
// with 200; any failure collapses to a 500 carrying the error message.
func PortOneWebhook(svc webhooksvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			writeWebhookJSON(w, http.StatusInternalServerError, webhookResponse{
				Success: false,
				Error:   "webhook service unavailable",
			})
			return
		}

		var event webhooksvc.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			if logg != nil {
				logg.Warn(ctx, "webhook body could not be decoded: "+err.Error())
			}
			writeWebhookJSON(w, http.StatusInternalServerError, webhookResponse{
				Success: false,
				Error:   "invalid webhook body",
			})
			return
		}

		result, err := svc.HandleEvent(ctx, event)
		if err != nil {
			if logg != nil {
				logg.Error(ctx, "webhook handling failed", err)
			}
			msg := err.Error()
			if typed := pkgerrors.As(err); typed != nil {
				msg = typed.Message()
			}
			writeWebhookJSON(w, http.StatusInternalServerError, webhookResponse{
				Success: false,
				Error:   msg,
			})
			return
		}

		writeWebhookJSON(w, http.StatusOK, webhookResponse{Success: true, Details: result})
	}
}

func writeWebhookJSON(w http.ResponseWriter, status int, payload webhookResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf(`{"level":"error","msg":"failed to encode webhook response","err":"%v"}`, err)
	}
}
