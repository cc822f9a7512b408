// Package httpapi serves the filesystem tree read-only over HTTP.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/agentic-research/monfs/internal/catalog"
	"github.com/agentic-research/monfs/internal/metrics"
	"github.com/agentic-research/monfs/internal/query"
	"github.com/agentic-research/monfs/internal/store"
	"github.com/agentic-research/monfs/internal/vfs"
)

// Handlers answers gateway requests from the adapter.
type Handlers struct {
	adapter *vfs.Adapter
	store   store.Store
	log     *zap.Logger
}

// NewRouter builds the gin engine:
//
//	GET  /api/v1/fs/*path   directory listing (JSON) or entry text;
//	                        ?format=json returns an entry's fields
//	GET  /api/v1/dirs       catalog directory names
//	GET  /api/v1/find?expr= JSONPath query over record documents
//	GET  /metrics           Prometheus exposition
//	GET  /healthz           liveness
//
// Mutating methods on /api/v1/fs are answered with 405.
func NewRouter(a *vfs.Adapter, s store.Store, reg *prometheus.Registry, log *zap.Logger) *gin.Engine {
	if log == nil {
		log = zap.NewNop()
	}
	h := &Handlers{adapter: a, store: s, log: log}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if reg != nil {
		metrics.MustRegister(reg)
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	v1 := r.Group("/api/v1")
	v1.GET("/dirs", h.Dirs)
	v1.GET("/find", h.Find)
	v1.GET("/fs/*path", h.Get)
	v1.PUT("/fs/*path", h.refuse(vfs.OpWrite))
	v1.POST("/fs/*path", h.refuse(vfs.OpCreate))
	v1.PATCH("/fs/*path", h.refuse(vfs.OpWrite))
	v1.DELETE("/fs/*path", h.refuse(vfs.OpUnlink))
	return r
}

// Dirs lists the catalog.
func (h *Handlers) Dirs(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"dirs": catalog.Names()})
}

// Get returns a directory listing or the decoded text of an entry.
func (h *Handlers) Get(c *gin.Context) {
	p := c.Param("path")
	ctx := c.Request.Context()

	attr, err := h.adapter.Lookup(ctx, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	if !attr.IsDir() && c.Query("format") == "json" {
		rec, err := h.adapter.Record(ctx, p)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"path":     p,
			"id":       rec.ID,
			"type":     rec.Meta.Type,
			"enabled":  rec.Meta.Enabled,
			"template": rec.IsTemplate(),
			"fields":   rec.FieldMap(),
		})
		return
	}
	if !attr.IsDir() {
		data, err := h.adapter.Content(ctx, p)
		if err != nil {
			h.fail(c, err)
			return
		}
		c.Header("Last-Modified", attr.ModTime.UTC().Format(http.TimeFormat))
		c.Data(http.StatusOK, "text/plain; charset=utf-8", data)
		return
	}

	entries, err := h.adapter.Enumerate(ctx, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	type entry struct {
		Name string `json:"name"`
		Dir  bool   `json:"dir"`
		Size int64  `json:"size"`
	}
	out := make([]entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, entry{Name: e.Name, Dir: e.Attr.IsDir(), Size: e.Attr.Size})
	}
	c.JSON(http.StatusOK, gin.H{"path": p, "entries": out})
}

// Find runs a JSONPath query over all record documents.
func (h *Handlers) Find(c *gin.Context) {
	expr := c.Query("expr")
	if expr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing expr"})
		return
	}
	matches, err := query.Records(c.Request.Context(), h.store, expr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (h *Handlers) refuse(op vfs.Op) gin.HandlerFunc {
	return func(c *gin.Context) {
		h.fail(c, h.adapter.Refuse(op, c.Param("path")))
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()
	switch {
	case errors.Is(err, vfs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, vfs.ErrUnsupported):
		status = http.StatusMethodNotAllowed
		msg = vfs.ErrUnsupported.Error()
	case errors.Is(err, vfs.ErrIsDir), errors.Is(err, vfs.ErrNotDir):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": msg})
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	}
}

// Serve runs the router on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string, handler http.Handler, log *zap.Logger) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		log.Info("http gateway listening", zap.String("addr", addr))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
