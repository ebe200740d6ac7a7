package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/smartstudy/companion/internal/apperr"
	"github.com/smartstudy/companion/internal/logger"
)

// errorResponse is the JSON body written for any non-2xx response, per
// spec §7: a kind-specific status and a human message, with the
// conflict window surfaced only when present.
type errorResponse struct {
	Error  string `json:"error"`
	Window string `json:"window,omitempty"`
}

// writeError maps err to the HTTP status its apperr.Kind owns and
// writes it as JSON, generalizing the teacher's errors.Format CLI
// convention (which prints and exits) into a response write that
// never crashes the process.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperr.Error
	if !errors.As(err, &appErr) {
		logger.Logger.Error("unhandled internal error", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
		return
	}

	status := statusForKind(appErr.Kind)
	if status >= http.StatusInternalServerError {
		logger.Logger.Error("store failure", "err", appErr)
	}
	writeJSON(w, status, errorResponse{Error: appErr.Message, Window: appErr.Window})
}

func statusForKind(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindForbidden:
		return http.StatusBadRequest
	case apperr.KindAuth:
		return http.StatusUnauthorized
	case apperr.KindStore:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Logger.Error("failed to encode response body", "err", err)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperr.Validationf("malformed request body: %v", err)
	}
	return nil
}
