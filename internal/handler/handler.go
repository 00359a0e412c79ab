// Package handler implements the HTTP API surface. Handlers decode the
// request, call into a session or provider, and translate fault kinds to
// status codes; they hold no domain logic of their own.
package handler

import (
	"encoding/json"
	"net/http"

	"chorebank/internal/fault"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeFault maps a fault kind to an HTTP status and writes the error body.
func writeFault(w http.ResponseWriter, err error) {
	writeError(w, statusOf(fault.KindOf(err)), fault.MessageOf(err))
}

func statusOf(kind fault.Kind) int {
	switch kind {
	case fault.Validation:
		return http.StatusBadRequest
	case fault.Unauthorized:
		return http.StatusUnauthorized
	case fault.NotFound:
		return http.StatusNotFound
	case fault.InvalidTransition, fault.InsufficientPoints, fault.NoGuardianLinked:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
