package server

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/AyushAagrwal/DataStatX/internal/apperr"
)

func (h *handler) uploadDataset(c *gin.Context) {
	ds, ok, err := h.readUpload(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !ok {
		h.writeError(c, apperr.Local(apperr.CodeNoUpload, "multipart field \"file\" is required", nil))
		return
	}
	c.JSON(http.StatusCreated, newDatasetResponse(sessionID(c), ds))
}

func (h *handler) getDataset(c *gin.Context) {
	ds, err := h.deps.Sessions.Dataset(c.Request.Context(), sessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newDatasetResponse(sessionID(c), ds))
}

func (h *handler) deleteDataset(c *gin.Context) {
	if err := h.deps.Sessions.Clear(c.Request.Context(), sessionID(c)); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) stats(c *gin.Context) {
	ds, err := h.deps.Sessions.Dataset(c.Request.Context(), sessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	res, err := h.analyze(ds, false)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newStatsResponse(res.stats))
}

func (h *handler) heatmapPNG(c *gin.Context) {
	ds, err := h.deps.Sessions.Dataset(c.Request.Context(), sessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	res, err := h.analyze(ds, true)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Data(http.StatusOK, "image/png", res.heatmap)
}

func (h *handler) chart(c *gin.Context) {
	var req chartRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeError(c, apperr.Local(apperr.CodeInvalidInput, "request body must be JSON {\"query\": \"...\"}", err))
		return
	}
	ds, err := h.deps.Sessions.Dataset(c.Request.Context(), sessionID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	res, err := h.generate(c.Request.Context(), ds, req.Query)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, chartResponse{
		Query: res.Query,
		Chart: chartDTO{
			Spec:    res.Chart.Spec,
			Library: res.Chart.Library,
			Raster:  base64.StdEncoding.EncodeToString(res.PNG),
		},
		ElapsedMs: res.Elapsed.Milliseconds(),
	})
}
