// Package handler provides shared HTTP response helpers for the
// storefront and webhook handlers.
package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/calliehq/bramble/internal/domain"
)

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized
	case domain.EPAYMENT:
		return http.StatusPaymentRequired
	case domain.EFORBIDDEN:
		return http.StatusForbidden
	case domain.ENOTFOUND:
		return http.StatusNotFound
	case domain.ECONFLICT:
		return http.StatusConflict
	case domain.EGONE:
		return http.StatusGone
	case domain.ETOOLARGE:
		return http.StatusRequestEntityTooLarge
	case domain.ERATELIMIT:
		return http.StatusTooManyRequests
	case domain.ENOTIMPL:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse writes an error to the client. JSON clients get a
// structured body; everyone else gets plain text. Internal error
// details are never exposed (domain.ErrorMessage hides them).
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)
	status := ErrorCodeToHTTPStatus(code)

	if acceptsJSON(r) {
		writeJSONError(w, status, code, message, nil)
		return
	}

	http.Error(w, message, status)
}

// ValidationErrorResponse writes a validation error with per-field
// messages. Falls back to ErrorResponse for non-validation errors.
func ValidationErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	if !domain.IsValidationError(err) {
		ErrorResponse(w, r, err)
		return
	}

	fields := domain.GetValidationFields(err)
	message := domain.ErrorMessage(err)

	if acceptsJSON(r) {
		writeJSONError(w, http.StatusBadRequest, domain.EINVALID, message, fields)
		return
	}

	http.Error(w, message, http.StatusBadRequest)
}

// NotFoundResponse writes a generic 404.
func NotFoundResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.ENOTFOUND, "", "The requested resource was not found"))
}

// UnauthorizedResponse writes a generic 401.
func UnauthorizedResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.EUNAUTHORIZED, "", "Authentication required"))
}

// ForbiddenResponse writes a generic 403.
func ForbiddenResponse(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.EFORBIDDEN, "", "You do not have permission to access this resource"))
}

// InternalErrorResponse writes a generic 500 wrapping err.
func InternalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	ErrorResponse(w, r, domain.Internal(err, "", "internal error"))
}

// JSON writes v as a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, code, message string, fields map[string]string) {
	type errorBody struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields,omitempty"`
	}

	JSON(w, status, struct {
		Error errorBody `json:"error"`
	}{
		Error: errorBody{Code: code, Message: message, Fields: fields},
	})
}

// acceptsJSON reports whether the client should receive a JSON body.
func acceptsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasSuffix(r.URL.Path, ".json")
}
