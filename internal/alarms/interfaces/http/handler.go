package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	alarmapp "alarmhub/internal/alarms/application"
	alarms "alarmhub/internal/alarms/domain"
	"alarmhub/internal/auth"
)

// Handler provides alarm HTTP endpoints.
type Handler struct {
	service *alarmapp.Service
}

// NewHandler constructs a handler.
func NewHandler(service *alarmapp.Service) (*Handler, error) {
	if service == nil {
		return nil, errors.New("alarms handler: nil service")
	}
	return &Handler{service: service}, nil
}

// alarmRequest is the create/edit payload. Day sets are decoded loosely:
// clients have historically sent numbers and numeric strings mixed.
type alarmRequest struct {
	Message        string    `json:"message"`
	FireAt         time.Time `json:"fire_at"`
	IsRecurring    bool      `json:"is_recurring"`
	RecurrenceKind string    `json:"recurrence_kind"`
	WeekDays       []any     `json:"week_days"`
	MonthDays      []any     `json:"month_days"`
}

func (req alarmRequest) toInput() alarmapp.AlarmInput {
	return alarmapp.AlarmInput{
		Message:        req.Message,
		FireAt:         req.FireAt,
		IsRecurring:    req.IsRecurring,
		RecurrenceKind: req.RecurrenceKind,
		WeekDays:       alarms.ParseDaySet(req.WeekDays, 0, 6),
		MonthDays:      alarms.ParseDaySet(req.MonthDays, 1, 31),
	}
}

type snoozeRequest struct {
	Minutes int `json:"minutes"`
}

// ServeHTTP handles /api/v1/alarms and subroutes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ownerID := auth.UserIDFromContext(r.Context())
	if ownerID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	switch {
	case r.URL.Path == "/api/v1/alarms":
		switch r.Method {
		case http.MethodPost:
			h.handleCreate(w, r, ownerID)
		case http.MethodGet:
			h.handleListActive(w, r, ownerID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case r.URL.Path == "/api/v1/alarms/active":
		h.requireMethod(w, r, http.MethodGet, func() { h.handleListActive(w, r, ownerID) })
	case r.URL.Path == "/api/v1/alarms/history":
		switch r.Method {
		case http.MethodGet:
			h.handleListHistory(w, r, ownerID)
		case http.MethodDelete:
			h.handleClearHistory(w, r, ownerID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case r.URL.Path == "/api/v1/alarms/due":
		h.requireMethod(w, r, http.MethodGet, func() { h.handleDue(w, r, ownerID) })
	case strings.HasPrefix(r.URL.Path, "/api/v1/alarms/"):
		h.handleItem(w, r, ownerID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) requireMethod(w http.ResponseWriter, r *http.Request, method string, fn func()) {
	if r.Method != method {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	fn()
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req alarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	alarm, err := h.service.Create(r.Context(), ownerID, req.toInput())
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, alarm)
}

func (h *Handler) handleListActive(w http.ResponseWriter, r *http.Request, ownerID string) {
	list, err := h.service.ListActive(r.Context(), ownerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, emptyAsList(list))
}

func (h *Handler) handleListHistory(w http.ResponseWriter, r *http.Request, ownerID string) {
	list, err := h.service.ListHistory(r.Context(), ownerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, emptyAsList(list))
}

func (h *Handler) handleClearHistory(w http.ResponseWriter, r *http.Request, ownerID string) {
	deleted, err := h.service.ClearHistory(r.Context(), ownerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]int64{"deleted_count": deleted})
}

func (h *Handler) handleDue(w http.ResponseWriter, r *http.Request, ownerID string) {
	due, err := h.service.DueAlarms(r.Context(), ownerID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, emptyAsList(due))
}

// handleItem covers /api/v1/alarms/{id} and /api/v1/alarms/{id}/{action}.
func (h *Handler) handleItem(w http.ResponseWriter, r *http.Request, ownerID string) {
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/alarms/")
	parts := strings.Split(path, "/")

	switch len(parts) {
	case 1:
		id := parts[0]
		switch r.Method {
		case http.MethodGet:
			alarm, err := h.service.Get(r.Context(), id, ownerID)
			h.respondAlarm(w, alarm, err)
		case http.MethodPut:
			h.handleEdit(w, r, id, ownerID)
		case http.MethodDelete:
			h.handleDelete(w, r, id, ownerID)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	case 2:
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleAction(w, r, parts[0], parts[1], ownerID)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request, id, ownerID string) {
	var req alarmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	alarm, err := h.service.Edit(r.Context(), id, ownerID, req.toInput())
	h.respondAlarm(w, alarm, err)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request, id, ownerID string) {
	if err := h.service.Delete(r.Context(), id, ownerID); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "alarm deleted"})
}

func (h *Handler) handleAction(w http.ResponseWriter, r *http.Request, id, action, ownerID string) {
	switch action {
	case "ack":
		alarm, err := h.service.Acknowledge(r.Context(), id, ownerID)
		h.respondAlarm(w, alarm, err)
	case "ring":
		alarm, err := h.service.Ring(r.Context(), id, ownerID)
		h.respondAlarm(w, alarm, err)
	case "snooze":
		var req snoozeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json body", http.StatusBadRequest)
			return
		}
		alarm, err := h.service.Snooze(r.Context(), id, ownerID, req.Minutes)
		h.respondAlarm(w, alarm, err)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) respondAlarm(w http.ResponseWriter, alarm *alarms.Alarm, err error) {
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, alarm)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, alarms.ErrNotFound):
		http.Error(w, "alarm not found", http.StatusNotFound)
	case errors.Is(err, alarms.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, alarms.ErrConflict):
		http.Error(w, "alarm changed concurrently", http.StatusConflict)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func emptyAsList(list []alarms.Alarm) []alarms.Alarm {
	if list == nil {
		return []alarms.Alarm{}
	}
	return list
}
