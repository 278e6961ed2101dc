package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/starford/folio/internal/apperr"
)

// maxJSONBody bounds JSON request bodies; a catalog with thousands of images
// stays well below it.
const maxJSONBody = 5 << 20

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode failed", slog.String("error", err.Error()))
	}
}

type errResponse struct {
	Error   string `json:"error" validate:"required"`
	Details string `json:"details,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

type successResponse struct {
	Success bool `json:"success" example:"true" validate:"required"`
}

var okBody = successResponse{Success: true}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		return apperr.Validation("read body: %v", err)
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperr.Validation("invalid JSON body: %v", err)
	}
	return nil
}

// writeError maps err onto a status code. Storage and unexpected errors are
// logged with msg and reported without internals.
func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody("unauthorized"))
	default:
		h.logger.Error(msg, slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errResponse{Error: msg, Details: err.Error()})
	}
}
