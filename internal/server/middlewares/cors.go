package middlewares

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS allows read-only access from any origin
func CORS() gin.HandlerFunc {
	return cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowHeaders:     []string{"*"},
		AllowMethods:     []string{"GET", "HEAD", "OPTIONS"},
		ExposeHeaders:    []string{"X-Script-Version"},
		AllowCredentials: false,
	})
}
