package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AyushAagrwal/DataStatX/internal/store"
)

type healthHandler struct {
	store store.Store
}

type readinessResponse struct {
	Status    string `json:"status"`
	Store     string `json:"store"`
	Error     string `json:"error,omitempty"`
	Entries   *int   `json:"entries,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

// Health is the liveness probe.
func (h *healthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready checks that the session store answers.
func (h *healthHandler) Ready(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, readinessResponse{Status: "not_ready", Store: "missing"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	start := time.Now()
	_, _, err := h.store.Get(ctx, "health:probe")
	resp := readinessResponse{Status: "ok", Store: "ok", LatencyMs: time.Since(start).Milliseconds()}
	if err != nil {
		resp.Status, resp.Store, resp.Error = "not_ready", "error", err.Error()
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	// In-process stores report their size; Redis does not.
	if counter, ok := h.store.(interface{ Len() int }); ok {
		n := counter.Len()
		resp.Entries = &n
	}
	c.JSON(http.StatusOK, resp)
}
