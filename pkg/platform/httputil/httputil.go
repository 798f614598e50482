package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "contactsync/pkg/domain-errors"
)

func WriteJSON(w http.ResponseWriter, status int, response any) {
	WriteJSONAs(w, "application/json", status, response)
}

// WriteJSONAs writes response as JSON under a custom media type.
func WriteJSONAs(w http.ResponseWriter, contentType string, status int, response any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	// Errors after WriteHeader cannot change the status code, so we ignore encoding errors.
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError centralizes domain error translation to HTTP responses.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		response := map[string]string{
			"error": DomainCodeToHTTPCode(domainErr.Code),
		}
		if domainErr.Message != "" {
			response["error_description"] = domainErr.Message
		}
		WriteJSON(w, DomainCodeToHTTPStatus(domainErr.Code), response)
		return
	}

	// Fallback for unexpected errors
	WriteJSON(w, http.StatusInternalServerError, map[string]string{
		"error": DomainCodeToHTTPCode(dErrors.CodeInternal),
	})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	switch code {
	case dErrors.CodeNotFound:
		return http.StatusNotFound
	case dErrors.CodeBadRequest:
		return http.StatusBadRequest
	case dErrors.CodeConflict:
		return http.StatusConflict
	case dErrors.CodeTimeout:
		return http.StatusGatewayTimeout
	case dErrors.CodeUpstream, dErrors.CodeBadData:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// DomainCodeToHTTPCode translates domain error codes to HTTP error codes (for JSON response).
func DomainCodeToHTTPCode(code dErrors.Code) string {
	switch code {
	case dErrors.CodeNotFound:
		return "not_found"
	case dErrors.CodeBadRequest:
		return "bad_request"
	case dErrors.CodeConflict:
		return "conflict"
	case dErrors.CodeTimeout:
		return "upstream_timeout"
	case dErrors.CodeUpstream:
		return "upstream_failure"
	case dErrors.CodeBadData:
		return "bad_upstream_data"
	default:
		return "internal_error"
	}
}
