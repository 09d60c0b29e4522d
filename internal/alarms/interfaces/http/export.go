package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	alarmapp "alarmhub/internal/alarms/application"
	"alarmhub/internal/alarms/interfaces"
	"alarmhub/internal/auth"
	"alarmhub/internal/observability/metrics"
)

// ExportHandler serves alarm history downloads.
type ExportHandler struct {
	service *alarmapp.Service
}

// NewExportHandler constructs an export handler.
func NewExportHandler(service *alarmapp.Service) (*ExportHandler, error) {
	if service == nil {
		return nil, errors.New("export handler: nil service")
	}
	return &ExportHandler{service: service}, nil
}

// ServeHTTP handles /api/v1/exports/history.{csv,xlsx,pdf}.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	ownerID := auth.UserIDFromContext(r.Context())
	if ownerID == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	format := strings.TrimPrefix(r.URL.Path, "/api/v1/exports/history.")
	switch format {
	case "csv", "xlsx", "pdf":
	default:
		w.WriteHeader(http.StatusNotFound)
		return
	}

	history, err := h.service.ListHistory(r.Context(), ownerID)
	if err != nil {
		metrics.IncExport(format, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	var (
		data        []byte
		contentType string
	)
	switch format {
	case "csv":
		data, err = interfaces.BuildHistoryCSV(history)
		contentType = "text/csv; charset=utf-8"
	case "xlsx":
		data, err = interfaces.BuildHistoryXLSX(history)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "pdf":
		data, err = interfaces.BuildHistoryPDF(history, time.Now().UTC())
		contentType = "application/pdf"
	}
	metrics.IncExport(format, err)
	if err != nil {
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=alarm-history.%s", format))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
