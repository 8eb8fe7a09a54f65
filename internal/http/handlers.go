// Package http serves the read-only view of the in-memory game store:
// health and readiness, the games list, single games and their reconciled
// timelines.
package http

import (
	"encoding/json"
	"log/slog"
	nethttp "net/http"
	"strconv"
	"strings"

	"rugby-livescore-service/internal/refresh"
	"rugby-livescore-service/internal/snapshots"
	"rugby-livescore-service/internal/store"
)

// StatusSource reports refresh-loop health for the readiness probe.
type StatusSource interface {
	Status() refresh.Status
}

// Handler wires HTTP routes to the game store.
type Handler struct {
	store  *store.MemoryStore
	status StatusSource
	logger *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(st *store.MemoryStore, status StatusSource, logger *slog.Logger) *Handler {
	return &Handler{store: st, status: status, logger: logger}
}

// Health reports the service is up.
func (h *Handler) Health(w nethttp.ResponseWriter, r *nethttp.Request) {
	h.writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ok"})
}

// Ready reports whether the refresh loop has recent data.
func (h *Handler) Ready(w nethttp.ResponseWriter, r *nethttp.Request) {
	if h.status == nil {
		h.writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ready"})
		return
	}

	status := h.status.Status()
	payload := map[string]any{
		"lastSuccess":         status.LastSuccess,
		"consecutiveFailures": status.ConsecutiveFailures,
	}
	if status.LastError != "" {
		payload["lastError"] = status.LastError
	}
	if !status.IsReady() {
		payload["status"] = "not ready"
		h.writeJSON(w, nethttp.StatusServiceUnavailable, payload)
		return
	}
	payload["status"] = "ready"
	h.writeJSON(w, nethttp.StatusOK, payload)
}

// Games returns the current games list.
func (h *Handler) Games(w nethttp.ResponseWriter, r *nethttp.Request) {
	games := h.store.ListGames()
	h.writeJSON(w, nethttp.StatusOK, map[string]any{
		"count": len(games),
		"games": games,
	})
}

// GameByID serves /games/{id} and /games/{id}/timeline.
func (h *Handler) GameByID(w nethttp.ResponseWriter, r *nethttp.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/games/")
	if rest == "" {
		h.writeError(w, nethttp.StatusBadRequest, "missing game id")
		return
	}

	idPart, tail, _ := strings.Cut(rest, "/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		h.writeError(w, nethttp.StatusBadRequest, "invalid game id")
		return
	}

	switch tail {
	case "":
		game, ok := h.store.GetGame(id)
		if !ok {
			h.writeError(w, nethttp.StatusNotFound, "game not found")
			return
		}
		h.writeJSON(w, nethttp.StatusOK, game)
	case "timeline":
		entries, ok := h.store.Timeline(id)
		if !ok {
			h.writeError(w, nethttp.StatusNotFound, "game not found")
			return
		}
		h.writeJSON(w, nethttp.StatusOK, map[string]any{
			"gameId":   id,
			"timeline": snapshots.SerializeTimeline(entries),
		})
	default:
		h.writeError(w, nethttp.StatusNotFound, "not found")
	}
}

func (h *Handler) writeJSON(w nethttp.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil && h.logger != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w nethttp.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
