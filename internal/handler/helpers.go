package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sheetdrop/sheetdrop/internal/model"
	"github.com/sheetdrop/sheetdrop/internal/service"
	"github.com/sheetdrop/sheetdrop/internal/store"
)

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard envelope.
func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{Code: code, Message: message},
	})
}

// writeApprovalPending is the distinguished 403 for accounts whose admin
// elevation request has not been resolved yet, so clients can render a
// specific message instead of a generic denial.
func writeApprovalPending(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:             http.StatusForbidden,
			Message:          "Your admin access request is still pending approval from the super administrator.",
			RequiresApproval: true,
		},
	})
}

// readJSON decodes the request body as JSON into v. The body is closed after
// decoding regardless of success or failure.
func readJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// errorStatus maps the service and store error taxonomy to an HTTP status
// and a client-safe message. Unrecognized errors come back as a generic 500;
// the caller is expected to log the real error.
func errorStatus(err error) (int, string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Message
	case errors.Is(err, service.ErrInvalidRole):
		return http.StatusBadRequest, "Invalid role specified"
	case errors.Is(err, store.ErrInvalidState):
		return http.StatusBadRequest, "This user did not request admin access"
	case errors.Is(err, service.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, service.ErrTokenExpired):
		return http.StatusUnauthorized, "Token expired"
	case errors.Is(err, service.ErrTokenInvalid):
		return http.StatusUnauthorized, "Invalid token"
	case errors.Is(err, service.ErrAccountDisabled):
		return http.StatusForbidden, "Your account has been deactivated."
	case errors.Is(err, service.ErrForbidden):
		return http.StatusForbidden, "Access denied."
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, store.ErrDuplicateEmail):
		return http.StatusConflict, "User already exists"
	case errors.Is(err, store.ErrSuperAdminExists):
		return http.StatusConflict, "Super admin already provisioned"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "Storage unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
