package incidents

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"incidentLog/internal/domain"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

//go:generate mockgen -source=handlers.go -destination=mocks/mock.go
type Incidents interface {
	List(ctx context.Context) ([]*domain.Incident, error)
	Create(ctx context.Context, req domain.CreateIncidentRequest) (*domain.Incident, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Incident, error)
	GetByTitle(ctx context.Context, title string, ignoreCase bool) (*domain.Incident, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type StatsGetter interface {
	GetStats(ctx context.Context) (*domain.SeverityStats, error)
}

type Handler struct {
	logger    *slog.Logger
	Incidents Incidents
	Stats     StatsGetter
}

func NewHandler(logger *slog.Logger, incidents Incidents, stats StatsGetter) *Handler {
	return &Handler{
		logger:    logger,
		Incidents: incidents,
		Stats:     stats,
	}
}

func (h *Handler) log(r *http.Request) *slog.Logger {
	reqID := chimw.GetReqID(r.Context())
	if reqID == "" {
		return h.logger
	}
	return h.logger.With(slog.String("request_id", reqID))
}

func (h *Handler) IncidentList(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("IncidentList", slog.String("remote", r.RemoteAddr))

	incidents, err := h.Incidents.List(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	if incidents == nil {
		incidents = []*domain.Incident{}
	}

	l.Info("incidents listed", slog.Int("count", len(incidents)))
	h.writeJSON(w, http.StatusOK, incidents)
}

func (h *Handler) IncidentCreate(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("IncidentCreate", slog.String("remote", r.RemoteAddr))

	var req domain.CreateIncidentRequest
	// An empty body is validated like an empty object so the client sees every missing field.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		l.Warn("invalid JSON", slog.String("error", err.Error()))
		h.writeMessage(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	incident, err := h.Incidents.Create(r.Context(), req)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Info("incident created",
		slog.String("id", incident.ID.String()),
		slog.String("severity", string(incident.Severity)),
	)
	h.writeJSON(w, http.StatusCreated, incident)
}

func (h *Handler) IncidentGet(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("IncidentGet", slog.String("remote", r.RemoteAddr))

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	incident, err := h.Incidents.Get(r.Context(), id)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, incident)
}

func (h *Handler) IncidentGetByTitle(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("IncidentGetByTitle", slog.String("query", r.URL.RawQuery), slog.String("remote", r.RemoteAddr))

	q := r.URL.Query()
	title := q.Get("title")
	if title == "" {
		h.writeMessage(w, http.StatusBadRequest, "Query parameter 'title' is required")
		return
	}
	ignoreCase, _ := strconv.ParseBool(q.Get("ignore_case"))

	incident, err := h.Incidents.GetByTitle(r.Context(), title, ignoreCase)
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, incident)
}

func (h *Handler) IncidentDelete(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("IncidentDelete", slog.String("remote", r.RemoteAddr))

	id, ok := h.parseID(w, r)
	if !ok {
		return
	}

	if err := h.Incidents.Delete(r.Context(), id); err != nil {
		h.handleError(w, r, err)
		return
	}

	l.Info("incident deleted", slog.String("id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) IncidentStats(w http.ResponseWriter, r *http.Request) {
	l := h.log(r)
	l.Debug("IncidentStats", slog.String("remote", r.RemoteAddr))

	stats, err := h.Stats.GetStats(r.Context())
	if err != nil {
		h.handleError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, stats)
}

func (h *Handler) parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	idStr := chi.URLParam(r, "id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		h.log(r).Warn("invalid id", slog.String("id", idStr), slog.String("error", err.Error()))
		h.writeMessage(w, http.StatusBadRequest, msgInvalidID)
		return uuid.Nil, false
	}
	return id, true
}
