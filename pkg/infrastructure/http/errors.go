// Package httputil provides the JSON error envelope and response helpers
// shared by the API handlers.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	shared "github.com/coursescope/server/pkg"
	"github.com/coursescope/server/pkg/domain/telemetry"
)

// ErrorResponse is the envelope every error response carries.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail names the failure. Rule and Row are set only for telemetry
// validation failures.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Rule    string `json:"rule,omitempty"`
	Row     *int   `json:"row,omitempty"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the error envelope with an explicit status and code.
func WriteError(w http.ResponseWriter, status int, code, message string) {
	WriteJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// WriteErrorFrom maps an error onto the envelope: not-found becomes 404,
// telemetry contract violations become 422 carrying the broken rule and
// row, anything else is a 500.
func WriteErrorFrom(w http.ResponseWriter, err error) {
	if errors.Is(err, shared.ErrNotFound) {
		WriteError(w, http.StatusNotFound, "not_found", err.Error())
		return
	}

	var verr *telemetry.ValidationError
	if errors.As(err, &verr) {
		detail := ErrorDetail{
			Code:    "invalid_telemetry",
			Message: verr.Error(),
			Rule:    verr.Rule,
		}
		if verr.Row >= 0 {
			row := verr.Row
			detail.Row = &row
		}
		WriteJSON(w, http.StatusUnprocessableEntity, ErrorResponse{Error: detail})
		return
	}

	WriteError(w, http.StatusInternalServerError, "internal", err.Error())
}
