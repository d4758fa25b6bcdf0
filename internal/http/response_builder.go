package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"pointsledger/internal/core"
	"pointsledger/internal/log"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// statusBody is the shape of every mutation response.
type statusBody struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type messageBody struct {
	Message string `json:"message"`
}

// StatusFor maps an error kind to an HTTP status. Business failures get
// 4xx codes unless legacy is set, in which case they are reported with 200
// and only the body says "error".
func StatusFor(err error, legacy bool) int {
	switch core.Kind(err) {
	case nil:
		if err == nil {
			return http.StatusOK
		}
		return http.StatusInternalServerError
	case core.ErrInvalidRequest:
		return http.StatusBadRequest
	case core.ErrStoreUnavailable:
		return http.StatusInternalServerError
	}
	if legacy {
		return http.StatusOK
	}
	switch {
	case errors.Is(err, core.ErrPolicyViolation):
		return http.StatusForbidden
	case errors.Is(err, core.ErrInsufficientBalance),
		errors.Is(err, core.ErrAlreadyCheckedIn),
		errors.Is(err, core.ErrNoActiveEvent):
		return http.StatusConflict
	default:
		return http.StatusNotFound
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Failed to encode response", log.FieldError, err)
	}
}

// writeStatus answers a mutation endpoint.
func (s *Server) writeStatus(w http.ResponseWriter, r *http.Request, message string, err error) {
	if err != nil {
		writeJSON(w, r, StatusFor(err, s.legacy), statusBody{Status: statusError, Message: core.Message(err)})
		return
	}
	writeJSON(w, r, http.StatusOK, statusBody{Status: statusSuccess, Message: message})
}

// writeError answers a read endpoint. These always use real status codes.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err, false)
	if status >= 500 {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Read failed",
			log.FieldError, err, log.FieldErrorKind, core.KindName(err))
	}
	writeJSON(w, r, status, messageBody{Message: core.Message(err)})
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusMethodNotAllowed)
	_, _ = w.Write([]byte("Method Not Allowed"))
}
