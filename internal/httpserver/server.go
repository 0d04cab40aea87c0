// Package httpserver exposes the ingestion pipeline over HTTP.
package httpserver

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"game-events/internal/httpx"
	"game-events/internal/model"
	"game-events/internal/pipeline"
)

// NewRouter wires the public endpoints.
//
// Public: /health, /metrics.
// Authenticated (inside the pipeline): /v1/events, /v1/events/install,
// /v1/events/purchase.
func NewRouter(p *pipeline.Pipeline) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpx.Metrics())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/v1/events", ingestHandler(p, ""))
	r.POST("/v1/events/install", ingestHandler(p, model.TypeInstall))
	r.POST("/v1/events/purchase", ingestHandler(p, model.TypePurchase))

	return r
}

func ingestHandler(p *pipeline.Pipeline, expected model.EventType) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body"})
			return
		}

		res, err := p.Ingest(c.Request.Context(), c.GetHeader("Authorization"), body, expected)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "dedup store unavailable"})
			return
		}

		switch res.Kind {
		case pipeline.Accepted, pipeline.Duplicate:
			c.JSON(http.StatusOK, gin.H{"status": "accepted", "event_id": res.EventID})
		case pipeline.Unauthorized:
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		case pipeline.Invalid:
			c.JSON(http.StatusBadRequest, gin.H{
				"error":  "validation failed",
				"fields": res.FieldErrors,
			})
		case pipeline.DeliveryFailed:
			c.JSON(http.StatusBadGateway, gin.H{"error": "event accepted but not forwarded"})
		}
	}
}
