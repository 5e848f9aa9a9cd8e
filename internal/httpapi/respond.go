package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	apperrors "bto-allocation/internal/common/errors"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the domain error taxonomy onto HTTP statuses. Business
// rule refusals are 409s; the caller did nothing malformed, the state just
// does not allow the operation.
func writeError(w http.ResponseWriter, err error) {
	var de *apperrors.DomainError
	code := apperrors.CodeOf(err)
	if code == "" {
		writeJSON(w, http.StatusInternalServerError, errorBody{
			Code:    "INTERNAL",
			Message: err.Error(),
		})
		return
	}
	de, _ = err.(*apperrors.DomainError)

	status := http.StatusConflict
	switch code {
	case apperrors.ErrCodeNotFound:
		status = http.StatusNotFound
	case apperrors.ErrCodeUnauthorized:
		status = http.StatusForbidden
	case apperrors.ErrCodeInvalidCredential:
		status = http.StatusUnauthorized
	case apperrors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	case apperrors.ErrCodeStoreFailure:
		status = http.StatusServiceUnavailable
	}

	body := errorBody{Code: string(code), Message: err.Error()}
	if de != nil {
		body.Message = de.Message
		body.Details = de.Details
	}
	writeJSON(w, status, body)
}

func writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Code: "UNAUTHORIZED", Message: msg})
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperrors.NewInvalidInputError("malformed request body: " + err.Error())
	}
	return nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
