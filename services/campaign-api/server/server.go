package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mailhive/mailhive/docs"
	"github.com/mailhive/mailhive/pkg/metrics"
)

func NewHTTPServer(addr string, h *Handlers) *http.Server {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), Observability())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	r.POST("/emails", h.CreateEmail)
	r.GET("/emails/:id", h.GetEmail)

	r.POST("/campaigns", h.CreateCampaign)
	r.GET("/campaigns", h.ListCampaigns)
	r.GET("/campaigns/:id", h.GetCampaign)

	r.POST("/backends", h.CreateBackend)
	r.GET("/backends", h.ListBackends)

	r.POST("/templates", h.CreateTemplate)
	r.GET("/templates", h.ListTemplates)

	r.GET("/docs", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", docs.SwaggerHTML)
	})
	r.GET("/docs/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", docs.OpenAPI)
	})

	return &http.Server{
		Addr:    addr,
		Handler: r,
	}
}
