// Package health reports liveness of the notification pipeline.
package health

import (
	"net/http"

	"github.com/user/issuebot/pkg/logger"
)

// Pinger is the dedup store's reachability probe.
type Pinger interface {
	Ping() error
}

// Queue exposes the dispatcher's current depth.
type Queue interface {
	Len() int
}

// Handler answers GET /health: 200 when the dedup store responds and
// the dispatcher queue is below the saturation threshold, 503
// otherwise. It never mutates state.
type Handler struct {
	store     Pinger
	queue     Queue
	threshold int
}

// NewHandler creates a health handler.
func NewHandler(store Pinger, queue Queue, threshold int) *Handler {
	return &Handler{store: store, queue: queue, threshold: threshold}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(); err != nil {
		logger.Warn().Err(err).Msg("Health check: dedup store unreachable")
		http.Error(w, "Store unreachable", http.StatusServiceUnavailable)
		return
	}

	if depth := h.queue.Len(); depth >= h.threshold {
		logger.Warn().Int("depth", depth).Int("threshold", h.threshold).
			Msg("Health check: dispatcher queue saturated")
		http.Error(w, "Dispatcher saturated", http.StatusServiceUnavailable)
		return
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
