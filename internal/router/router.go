// Package router wires the HTTP surface of spec.md §6, grounded on
// internal/router/router.go's corsMiddleware + SetupRouter shape.
package router

import (
	"net/http"
	"strconv"

	"github.com/AccountantBot/AccountantBot-Backend/internal/config"
	"github.com/AccountantBot/AccountantBot-Backend/internal/handlers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func corsMiddleware(cors config.CORSConfig) gin.HandlerFunc {
	allowAll := len(cors.AllowedOrigins) == 1 && cors.AllowedOrigins[0] == "*"

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if allowAll {
			c.Header("Access-Control-Allow-Origin", "*")
		} else if origin != "" {
			for _, allowed := range cors.AllowedOrigins {
				if allowed == origin {
					c.Header("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}

		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if cors.AllowCredentials {
			c.Header("Access-Control-Allow-Credentials", "true")
		}
		c.Header("Access-Control-Max-Age", strconv.Itoa(cors.MaxAge))

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// New assembles the gin engine serving spec.md §6's routes plus the
// health check and Prometheus scrape endpoint.
func New(cors config.CORSConfig, splitHandler *handlers.SplitHandler) *gin.Engine {
	r := gin.Default()
	r.Use(corsMiddleware(cors))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/splits", splitHandler.CreateSplit)
	r.GET("/splits/allowances/check", splitHandler.CheckAllowance)
	r.GET("/splits/:id", splitHandler.GetSplit)
	r.POST("/splits/:id/approve-intent", splitHandler.GenerateIntent)
	r.POST("/splits/:id/signatures", splitHandler.SubmitSignature)
	r.POST("/splits/:id/settle", splitHandler.Settle)
	r.GET("/tokens", splitHandler.ListTokens)

	return r
}
