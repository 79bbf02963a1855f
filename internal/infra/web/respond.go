package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"tagpay/internal/domain"
	"tagpay/internal/normalize"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// errorResponse maps domain failures to a status and a client-safe message.
// Blocked and unavailable tags read like unknown ones.
func errorResponse(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrInvalidTokenFormat):
		return http.StatusBadRequest, "Invalid token format"
	case errors.Is(err, domain.ErrInvalidEmail):
		return http.StatusBadRequest, "Invalid email format"
	case errors.Is(err, domain.ErrInvalidPaymentHandle):
		if reason := normalize.Reason(err); reason != "" {
			return http.StatusBadRequest, "Invalid payment handle: " + reason
		}
		return http.StatusBadRequest, "Invalid payment handle"
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest, "All required fields must be provided"
	case errors.Is(err, domain.ErrDuplicateActivation):
		return http.StatusBadRequest, "This token has already been activated by this user"
	case errors.Is(err, domain.ErrAlreadyActivated):
		return http.StatusBadRequest, "Token is already activated"
	case errors.Is(err, domain.ErrTagBlocked),
		errors.Is(err, domain.ErrNotAvailable),
		errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Token not found"
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, "Unauthorized"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
