package tenant

import (
	"encoding/json"
	"net/http"
)

// ErrorHandler writes the response for a failed resolution.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

type errorPayload struct {
	Error      string `json:"error"`
	RedirectTo string `json:"redirectTo,omitempty"`
}

// DefaultErrorHandler writes resolution failures as JSON. Anything that is
// not a *ResolutionError becomes a bare 500.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	status := http.StatusInternalServerError
	payload := errorPayload{Error: MessageInternalFailure}

	if re, ok := AsResolutionError(err); ok {
		status = re.Status
		payload = errorPayload{Error: re.Message, RedirectTo: re.RedirectTo}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
