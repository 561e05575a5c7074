package incidents

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"incidentLog/pkg/e"
)

const (
	msgInvalidID = "Invalid incident ID format"
	msgNotFound  = "Incident not found"
	msgInternal  = "Internal server error"
)

type messageResponse struct {
	Message string `json:"message"`
}

// handleError maps classified errors to client responses. Only unclassified
// errors are logged as server faults.
func (h *Handler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	l := h.log(r)

	var ve *e.ValidationError
	switch {
	case errors.As(err, &ve):
		l.Info("validation failed", slog.String("reason", ve.Error()))
		h.writeMessage(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, e.ErrInvalidID):
		h.writeMessage(w, http.StatusBadRequest, msgInvalidID)
	case errors.Is(err, e.ErrNotFound):
		h.writeMessage(w, http.StatusNotFound, msgNotFound)
	case errors.Is(err, e.ErrInvalidInput):
		h.writeMessage(w, http.StatusBadRequest, "Invalid input")
	case errors.Is(err, e.ErrUniqueViolation):
		h.writeMessage(w, http.StatusConflict, "Incident already exists")
	default:
		l.Error("handler error",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Any("error", err),
		)
		h.writeMessage(w, http.StatusInternalServerError, msgInternal)
	}
}

func (h *Handler) writeMessage(w http.ResponseWriter, code int, msg string) {
	h.writeJSON(w, code, messageResponse{Message: msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("json encode failed", slog.Any("error", err))
	}
}
