package api

import (
	"encoding/json"
	"net/http"

	"github.com/OPSDECK/opsdeck/internal/connector"
)

// errorResponse is the structured failure object returned by every endpoint.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}

// kindStatus maps a failure kind to its HTTP status. Transport-adjacent
// failures surface as gateway errors so callers can tell their own mistakes
// (4xx) apart from upstream trouble (5xx).
func kindStatus(kind connector.Kind) int {
	switch kind {
	case connector.KindInput:
		return http.StatusBadRequest
	case connector.KindInstanceNotFound:
		return http.StatusNotFound
	case connector.KindInstanceInactive:
		return http.StatusConflict
	case connector.KindRateLimited:
		return http.StatusTooManyRequests
	case connector.KindAuthentication, connector.KindUpstream, connector.KindMalformed:
		return http.StatusBadGateway
	case connector.KindTransport:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// writeQueryError writes a classified query failure.
func writeQueryError(w http.ResponseWriter, err error) {
	kind := connector.KindOf(err)
	writeJSON(w, kindStatus(kind), errorResponse{
		Success: false,
		Error:   err.Error(),
		Kind:    string(kind),
	})
}

// writeError writes a plain failure with an explicit status.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Success: false, Error: message})
}

// decodeBody decodes a JSON request body into dst, rejecting unknown shapes
// with a client error.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
