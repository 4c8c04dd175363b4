package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/openmined/scriptsync/internal/server/handlers/api"
	scriptsH "github.com/openmined/scriptsync/internal/server/handlers/scripts"
	"github.com/openmined/scriptsync/internal/server/middlewares"
	"github.com/openmined/scriptsync/internal/server/scripts"
	"github.com/openmined/scriptsync/internal/version"
)

func SetupRoutes(cfg *Config, index *scripts.ScriptIndex) (http.Handler, error) {
	r := gin.New()

	rateLimiter, err := middlewares.RateLimiter(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	h := scriptsH.New(index)

	r.Use(middlewares.Logger())
	r.Use(gin.Recovery())
	r.Use(middlewares.SecureHeaders(cfg.Http.TLS()))
	r.Use(middlewares.CORS())
	r.Use(middlewares.GZIP())

	r.GET("/", IndexHandler)
	r.GET("/healthz", HealthHandler)

	published := r.Group("/")
	published.Use(rateLimiter)
	{
		published.GET("/timestamps", h.Versions)
		published.GET("/file/*filepath", h.File)
	}

	r.NoRoute(func(c *gin.Context) {
		c.PureJSON(http.StatusNotFound, api.APIError{
			Code:    api.CodeNotFound,
			Message: "not found",
		})
	})

	r.NoMethod(func(c *gin.Context) {
		c.PureJSON(http.StatusMethodNotAllowed, api.APIError{
			Code:    api.CodeInvalidRequest,
			Message: "method not allowed",
		})
	})

	return r.Handler(), nil
}

func IndexHandler(ctx *gin.Context) {
	ctx.String(http.StatusOK, version.DetailedWithApp())
}

func HealthHandler(ctx *gin.Context) {
	ctx.PureJSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

func init() {
	gin.SetMode(gin.ReleaseMode)
}
