// Package server exposes the statistics and query-to-chart flows over HTTP.
package server

import (
	"embed"
	"html/template"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/AyushAagrwal/DataStatX/internal/bridge"
	"github.com/AyushAagrwal/DataStatX/internal/config"
	"github.com/AyushAagrwal/DataStatX/internal/server/middleware"
	"github.com/AyushAagrwal/DataStatX/internal/session"
	"github.com/AyushAagrwal/DataStatX/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

// Deps are the collaborators the handlers need.
type Deps struct {
	Config   *config.Global
	Log      *logrus.Logger
	Sessions *session.Manager
	Bridge   *bridge.Bridge
	Store    store.Store
}

// Router owns the gin engine.
type Router struct {
	engine *gin.Engine
	deps   Deps
}

// New builds the engine with middleware and routes installed.
func New(deps Deps) (*Router, error) {
	if deps.Log == nil {
		deps.Log = logrus.New()
	}
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	engine := gin.New()
	engine.SetHTMLTemplate(tmpl)
	engine.MaxMultipartMemory = int64(deps.Config.MaxUploadMB) << 20

	r := &Router{engine: engine, deps: deps}
	r.setupMiddleware()
	r.setupRoutes()
	return r, nil
}

// Engine returns the gin engine as an http.Handler.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// HTTPServer wraps the engine with the configured address and timeouts.
func (r *Router) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.engine,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      r.deps.Config.HTTPTimeout() + 30*time.Second,
		IdleTimeout:       2 * time.Minute,
	}
}

func (r *Router) setupMiddleware() {
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Recovery(r.deps.Log))
	r.engine.Use(middleware.Logger(r.deps.Log))
	r.engine.Use(middleware.CORS(r.deps.Config.CORSOrigins))
	r.engine.Use(middleware.Metrics())
}

func (r *Router) setupRoutes() {
	health := &healthHandler{store: r.deps.Store}
	r.engine.GET("/health", health.Health)
	r.engine.GET("/ready", health.Ready)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := &handler{deps: r.deps}
	sess := middleware.Session(r.deps.Config.SessionTTL())

	ui := r.engine.Group("/", sess)
	{
		ui.GET("", h.index)
		ui.POST("/ui/analysis", h.uiAnalysis)
		ui.POST("/ui/query", h.uiQuery)
	}

	v1 := r.engine.Group("/api/v1", sess)
	{
		v1.POST("/datasets", h.uploadDataset)
		v1.GET("/datasets", h.getDataset)
		v1.DELETE("/datasets", h.deleteDataset)
		v1.GET("/stats", h.stats)
		v1.GET("/stats/heatmap.png", h.heatmapPNG)
		v1.POST("/charts", h.chart)
	}
}
