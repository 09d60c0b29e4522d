package retention

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
)

const secretHeader = "X-Cron-Secret"

// TaskHandler lets an external scheduler trigger the retention sweep over
// HTTP. The caller authenticates with a shared secret header instead of a
// user token.
type TaskHandler struct {
	sweeper HistorySweeper
	secret  string
}

// NewTaskHandler constructs the task endpoint.
func NewTaskHandler(sweeper HistorySweeper, secret string) (*TaskHandler, error) {
	if sweeper == nil {
		return nil, errors.New("retention: nil sweeper")
	}
	if secret == "" {
		return nil, errors.New("retention: empty task secret")
	}
	return &TaskHandler{sweeper: sweeper, secret: secret}, nil
}

// ServeHTTP handles /tasks/cleanup-old-history.
func (h *TaskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	provided := r.Header.Get(secretHeader)
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) != 1 {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	deleted, err := h.sweeper.SweepHistory(r.Context())
	if err != nil {
		http.Error(w, "sweep failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"message":       "history cleanup completed",
		"deleted_count": deleted,
	})
}
