package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/AyushAagrwal/DataStatX/internal/analysis"
	"github.com/AyushAagrwal/DataStatX/internal/apperr"
	"github.com/AyushAagrwal/DataStatX/internal/bridge"
	"github.com/AyushAagrwal/DataStatX/internal/heatmap"
	"github.com/AyushAagrwal/DataStatX/internal/metrics"
	"github.com/AyushAagrwal/DataStatX/internal/server/middleware"
)

type handler struct {
	deps Deps
}

func (h *handler) entry(c *gin.Context) *logrus.Entry {
	return h.deps.Log.WithFields(logrus.Fields{
		"request_id": c.GetString(middleware.RequestIDKey),
		"session_id": c.GetString(middleware.SessionIDKey),
	})
}

func sessionID(c *gin.Context) string {
	return c.GetString(middleware.SessionIDKey)
}

// readUpload stores the multipart "file" field in the session. ok is false
// when the request carries no file.
func (h *handler) readUpload(c *gin.Context) (ds *analysis.Dataset, ok bool, err error) {
	limit := int64(h.deps.Config.MaxUploadMB) << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit+(1<<20))
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, true, apperr.Local(apperr.CodeInvalidInput, fmt.Sprintf("file exceeds %d MB", h.deps.Config.MaxUploadMB), nil)
		}
		return nil, false, nil
	}
	if fh.Size > limit {
		return nil, true, apperr.Local(apperr.CodeInvalidInput, fmt.Sprintf("file exceeds %d MB", h.deps.Config.MaxUploadMB), nil)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, true, apperr.Local(apperr.CodeInvalidInput, "open upload", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, true, apperr.Local(apperr.CodeInvalidInput, "read upload", err)
	}
	ds, err = h.deps.Sessions.Put(c.Request.Context(), sessionID(c), fh.Filename, data)
	if err != nil {
		return nil, true, err
	}
	metrics.UploadBytes.Observe(float64(len(data)))
	h.entry(c).WithFields(logrus.Fields{
		"file": fh.Filename, "rows": ds.NumRows(), "cols": ds.NumCols(), "bytes": len(data),
	}).Info("Dataset uploaded")
	return ds, true, nil
}

// dataset returns the uploaded file of this request, or the session's
// previous upload when none was sent.
func (h *handler) dataset(c *gin.Context) (*analysis.Dataset, error) {
	ds, ok, err := h.readUpload(c)
	if err != nil {
		return nil, err
	}
	if ok {
		return ds, nil
	}
	return h.deps.Sessions.Dataset(c.Request.Context(), sessionID(c))
}

type analysisResult struct {
	stats   *analysis.Stats
	heatmap []byte
}

func (h *handler) analyze(ds *analysis.Dataset, withHeatmap bool) (*analysisResult, error) {
	st, err := analysis.Describe(ds)
	if err != nil {
		metrics.AnalysisTotal.WithLabelValues("error").Inc()
		return nil, apperr.Local(apperr.CodeInvalidInput, "", err)
	}
	res := &analysisResult{stats: st}
	if withHeatmap {
		opt := heatmap.DefaultOptions()
		opt.Width, opt.Height = h.deps.Config.HeatmapSize, h.deps.Config.HeatmapSize
		png, err := heatmap.Render(st.Corr, opt)
		if err != nil {
			metrics.AnalysisTotal.WithLabelValues("error").Inc()
			return nil, apperr.Local(apperr.CodeInternal, "render heatmap", err)
		}
		res.heatmap = png
	}
	metrics.AnalysisTotal.WithLabelValues("ok").Inc()
	return res, nil
}

func (h *handler) generate(ctx context.Context, ds *analysis.Dataset, query string) (*bridge.Result, error) {
	start := time.Now()
	res, err := h.deps.Bridge.Generate(ctx, ds, query)
	if err != nil {
		metrics.ChartTotal.WithLabelValues(apperr.Classify(err).Kind.String()).Inc()
		return nil, err
	}
	metrics.ChartTotal.WithLabelValues("ok").Inc()
	metrics.ChartDuration.Observe(time.Since(start).Seconds())
	return res, nil
}

// errorBody is the JSON error shape of the API.
type errorBody struct {
	Code    apperr.Code `json:"code"`
	Kind    string      `json:"kind"`
	Message string      `json:"message"`
	Hint    string      `json:"hint,omitempty"`
}

func (h *handler) writeError(c *gin.Context, err error) {
	e := apperr.Classify(err)
	status := apperr.HTTPStatus(e)
	entry := h.entry(c).WithFields(logrus.Fields{"kind": e.Kind.String(), "code": e.Code, "status": status})
	if status >= 500 {
		entry.WithError(err).Error("Request failed")
	} else {
		entry.WithError(err).Warn("Request rejected")
	}
	body := errorBody{Code: e.Code, Kind: e.Kind.String(), Message: apperr.UserMessage(e)}
	if e.Kind == apperr.LocalProcessing {
		body.Hint = apperr.RetryHint
	}
	c.AbortWithStatusJSON(status, body)
}
