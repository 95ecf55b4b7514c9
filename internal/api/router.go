// Package api serves the operator HTTP API: health, metrics, domain
// reliability views, thread rankings, and run reports.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/newsthreader/internal/logger"
	"github.com/jonesrussell/newsthreader/internal/metrics"
)

// NewRouter builds the gin engine with all routes mounted.
func NewRouter(h *Handler, m *metrics.Metrics, log logger.Interface, debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(ginLogger(log))
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	v1 := router.Group("/api/v1")

	domains := v1.Group("/domains")
	domains.GET("", h.ListDomains)
	domains.GET("/blocked", h.ListBlockedDomains)
	domains.GET("/:domain", h.GetDomain)
	domains.PUT("/:domain/allowlist", h.SetAllowlist)

	threads := v1.Group("/threads")
	threads.GET("", h.ListThreads)
	threads.GET("/:id", h.GetThread)

	v1.GET("/runs/latest", h.LatestRun)

	return router
}

func ginLogger(log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method

		c.Next()

		log.Info("HTTP request",
			"method", method,
			"path", path,
			"status_code", c.Writer.Status(),
			"client_ip", c.ClientIP(),
			"duration", time.Since(start).String(),
		)
	}
}
