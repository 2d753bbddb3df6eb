package api

import (
	"log"
	"net/http"

	"github.com/legacycamp/camp-api/internal/pkg/httputil"
)

// Internal errors (SQL text, provider replies, file paths) never reach API
// consumers. 5xx responses carry a fixed public message while the real
// error is logged server-side.

// sanitizedError logs the full internal error and returns the public-safe message.
func sanitizedError(code int, internalErr error, publicMsg string) string {
	if internalErr != nil {
		log.Printf("ERROR [%d]: %s: %v", code, publicMsg, internalErr)
	}
	return publicMsg
}

// respondSafeError logs the internal error and sends a sanitized envelope.
func respondSafeError(w http.ResponseWriter, code int, internalErr error, publicMsg string) {
	httputil.Fail(w, code, sanitizedError(code, internalErr, publicMsg))
}

// deliveryFailed answers a send that the provider did not accept. The
// outcome was already logged by the deliverer.
func deliveryFailed(w http.ResponseWriter, publicMsg string) {
	httputil.Fail(w, http.StatusInternalServerError, publicMsg)
}
