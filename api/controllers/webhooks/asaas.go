package webhooks

import (
	"encoding/json"
	"net/http"

	"github.com/amorize/checkout-backend/api/middleware"
	"github.com/amorize/checkout-backend/api/responses"
	asaaswebhook "github.com/amorize/checkout-backend/internal/webhooks/asaas"
	pkgerrors "github.com/amorize/checkout-backend/pkg/errors"
	"github.com/amorize/checkout-backend/pkg/logger"
)

const accessTokenHeader = "Asaas-Access-Token"

// AsaasWebhook receives gateway payment events. The shared token check keeps
// forged events out; processing is idempotent so gateway retries are safe.
func AsaasWebhook(svc *asaaswebhook.Service, webhookToken string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}

		if webhookToken != "" && r.Header.Get(accessTokenHeader) != webhookToken {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid webhook token"))
			return
		}

		// The gateway envelope carries fields beyond the ones handled here,
		// so strict decoding would reject real events.
		var event asaaswebhook.Event
		if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid webhook body"))
			return
		}

		result, err := svc.HandleEvent(r.Context(), &event, middleware.ForensicFrom(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"received":  true,
			"duplicate": result.Duplicate,
			"confirmed": result.Confirmed,
			"ignored":   result.Ignored,
		})
	}
}
