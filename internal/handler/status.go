package handler

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/nklymok/monobank-mcp/internal/httputil"
	"github.com/nklymok/monobank-mcp/internal/repository"
)

// StatusHandler serves the operational surface of the HTTP transport:
// liveness and audit-trail statistics.
type StatusHandler struct {
	invocations repository.InvocationRepository
	startedAt   time.Time
	version     string
}

// NewStatusHandler builds the handler. invocations may be nil when no
// database is configured; /stats then reports the trail as disabled.
func NewStatusHandler(invocations repository.InvocationRepository, version string) *StatusHandler {
	return &StatusHandler{
		invocations: invocations,
		startedAt:   time.Now(),
		version:     version,
	}
}

func (h *StatusHandler) Health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   h.version,
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp": time.Now().UnixMilli(),
	})
}

func (h *StatusHandler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.invocations == nil {
		httputil.WriteJSON(w, http.StatusOK, map[string]any{"auditEnabled": false})
		return
	}

	since := time.Now().Add(-24 * time.Hour)
	counts, err := h.invocations.CountByOutcomeSince(r.Context(), since)
	if err != nil {
		log.Error().Err(err).Msg("stats: failed to count invocations")
		httputil.WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get stats"})
		return
	}

	byTool := make(map[string]map[string]int)
	for _, c := range counts {
		if byTool[c.Tool] == nil {
			byTool[c.Tool] = make(map[string]int)
		}
		byTool[c.Tool][string(c.Outcome)] = c.Count
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"auditEnabled": true,
		"since":        since.UTC().Format(time.RFC3339),
		"tools":        byTool,
	})
}
