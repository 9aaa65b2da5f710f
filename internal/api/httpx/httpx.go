package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/qarzdaftar/backend/internal/api/validate"
	"github.com/qarzdaftar/backend/internal/apperr"
)

type APIError struct {
	Error   string      `json:"error"`
	Code    string      `json:"code"`
	Details interface{} `json:"details,omitempty"`
}

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, code, msg string, details interface{}) {
	WriteJSON(w, status, APIError{
		Error:   msg,
		Code:    code,
		Details: details,
	})
}

// Error maps err to a status by its kind. Internal errors are logged and
// their text is never sent to the client.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	var fields validate.Errs
	if errors.As(err, &fields) {
		WriteError(w, http.StatusBadRequest, apperr.KindValidation.String(), "validation failed", fields)
		return
	}

	kind := apperr.KindOf(err)
	switch kind {
	case apperr.KindNotFound:
		WriteError(w, http.StatusNotFound, kind.String(), err.Error(), nil)
	case apperr.KindValidation:
		WriteError(w, http.StatusBadRequest, kind.String(), err.Error(), nil)
	case apperr.KindForbidden:
		WriteError(w, http.StatusForbidden, kind.String(), err.Error(), nil)
	case apperr.KindConflict:
		WriteError(w, http.StatusConflict, kind.String(), err.Error(), nil)
	case apperr.KindUnavailable:
		slog.Warn("upstream unavailable", "path", r.URL.Path, "err", err)
		WriteError(w, http.StatusServiceUnavailable, kind.String(), "service unavailable", nil)
	default:
		slog.Error("request failed", "path", r.URL.Path, "err", err)
		WriteError(w, http.StatusInternalServerError, kind.String(), "internal error", nil)
	}
}

// DecodeJSON reads a JSON body of at most 1 MiB into v.
func DecodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return apperr.Validation("malformed JSON body")
	}
	return nil
}
