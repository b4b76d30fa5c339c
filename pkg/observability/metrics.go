package observability

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PrometheusHandler serves the Prometheus scrape endpoint. Without an exporter
// it answers 503 in the API error shape.
func PrometheusHandler(handler http.Handler) gin.HandlerFunc {
	if handler == nil {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"statusCode": http.StatusServiceUnavailable,
				"message":    "Metrics exporter is not initialized",
				"success":    false,
				"errors":     []string{},
				"data":       nil,
			})
		}
	}
	return gin.WrapH(handler)
}
